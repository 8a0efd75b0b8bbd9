package web

import (
	"net/http"

	"shop-ledger/internal/core"

	"github.com/go-chi/chi/v5"
)

// listCustomers handles GET /api/customers.
func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	shopID, ok := queryShop(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ListCustomers(r.Context(), shopID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getCustomer handles GET /api/customers/{id}.
func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if _, ok := resolveShop(w, r, result.Customer.ShopID); !ok {
		return
	}
	writeJSON(w, result)
}

// createCustomer handles POST /api/customers.
func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var in core.Customer
	if !decodeJSON(w, r, &in) {
		return
	}
	shopID, ok := resolveShop(w, r, in.ShopID)
	if !ok {
		return
	}
	in.ShopID = shopID

	result, err := h.svc.CreateCustomer(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}
