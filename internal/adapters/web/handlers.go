package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"shop-ledger/internal/app"
	"shop-ledger/internal/metrics"

	"github.com/go-chi/chi/v5"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
	metrics   *metrics.Metrics
}

// NewHandler creates and wires the chi router with all routes. m may be nil, in which case
// requests are not counted and /metrics is not served.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string, m *metrics.Metrics) http.Handler {
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
		metrics:   m,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(m))
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	// ── Public ───────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// Invoices
		r.Get("/api/invoices", h.listInvoices)
		r.Post("/api/invoices", h.createInvoice)
		r.Get("/api/invoices/{id}", h.getInvoice)
		r.Put("/api/invoices/{id}", h.updateInvoice)
		r.Delete("/api/invoices/{id}", h.deleteInvoice)
		r.Post("/api/invoices/{id}/payments", h.recordPayment)
		r.Post("/api/invoices/{id}/reminders", h.sendReminder)
		r.Get("/api/invoices/{id}/render", h.renderInvoice)
		r.Get("/api/sync/invoices", h.syncInvoices)

		// Customers
		r.Get("/api/customers", h.listCustomers)
		r.Post("/api/customers", h.createCustomer)
		r.Get("/api/customers/{id}", h.getCustomer)

		// Reports
		r.Get("/api/dashboard", h.dashboard)
		r.Get("/api/reports/monthly", h.monthlyReport)
		r.Post("/api/cache/refresh", h.refreshCache)

		// Users
		r.With(requireAdmin).Post("/api/users", h.createUser)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// resolveShop scopes a request to a shop. An empty request falls back to the caller's own
// shop; a staff user bound to a shop may not name another one.
func resolveShop(w http.ResponseWriter, r *http.Request, requested string) (string, bool) {
	requested = strings.TrimSpace(requested)
	claims := authFromContext(r.Context())
	if claims == nil {
		return requested, true
	}
	if requested == "" {
		return claims.ShopID, true
	}
	if !claims.IsAdmin() && claims.ShopID != "" && requested != claims.ShopID {
		writeError(w, r, "shop is outside your scope", "FORBIDDEN", http.StatusForbidden)
		return "", false
	}
	return requested, true
}

// queryShop resolves the shop_id query parameter.
func queryShop(w http.ResponseWriter, r *http.Request) (string, bool) {
	return resolveShop(w, r, r.URL.Query().Get("shop_id"))
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	writeError(w, r, msg, "BAD_REQUEST", http.StatusBadRequest)
}
