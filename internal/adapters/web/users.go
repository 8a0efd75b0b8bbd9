package web

import (
	"net/http"
	"strings"

	"shop-ledger/internal/app"
	"shop-ledger/internal/core"
)

// createUser handles POST /api/users. Admin only.
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShopID   string `json:"shop_id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	switch role {
	case "", core.RoleAdmin, core.RoleStaff:
	default:
		badRequest(w, r, "role must be admin or staff")
		return
	}
	shopID, ok := resolveShop(w, r, req.ShopID)
	if !ok {
		return
	}

	user, err := h.svc.CreateUser(r.Context(), app.CreateUserRequest{
		ShopID:   shopID,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, user)
}
