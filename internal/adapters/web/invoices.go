package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shop-ledger/internal/app"
	"shop-ledger/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// parseInvoiceQuery reads the list filters from the query string. Dates use YYYY-MM-DD.
func parseInvoiceQuery(r *http.Request) (app.InvoiceQuery, error) {
	q := r.URL.Query()
	out := app.InvoiceQuery{
		Search:     q.Get("search"),
		CustomerID: q.Get("customer_id"),
	}

	if s := strings.ToLower(q.Get("status")); s != "" && s != core.AllFilter {
		status := core.InvoiceStatus(s)
		if !status.Valid() {
			return out, fmt.Errorf("status must be unpaid, halfpay, fullpaid or all (got %q)", s)
		}
		out.Status = status
	}

	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"from", &out.From}, {"to", &out.To}} {
		if v := q.Get(p.key); v != "" {
			t, err := core.ParseDay(v, time.Local)
			if err != nil {
				return out, fmt.Errorf("%s must be YYYY-MM-DD (got %q)", p.key, v)
			}
			*p.dst = &t
		}
	}

	for _, p := range []struct {
		key string
		dst **decimal.Decimal
	}{{"min", &out.MinTotal}, {"max", &out.MaxTotal}} {
		if v := q.Get(p.key); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return out, fmt.Errorf("%s must be a number (got %q)", p.key, v)
			}
			*p.dst = &d
		}
	}

	if v := q.Get("warranty"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return out, fmt.Errorf("warranty must be a boolean (got %q)", v)
		}
		out.WarrantyIssuesOnly = b
	}

	switch s := core.SortOrder(strings.ToLower(q.Get("sort"))); s {
	case "":
	case core.SortAscending, core.SortDescending:
		out.Sort = s
	default:
		return out, fmt.Errorf("sort must be asc or desc (got %q)", s)
	}

	for _, p := range []struct {
		key string
		dst *int
	}{{"page", &out.Page}, {"page_size", &out.PageSize}} {
		if v := q.Get(p.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return out, fmt.Errorf("%s must be an integer (got %q)", p.key, v)
			}
			*p.dst = n
		}
	}
	return out, nil
}

// listInvoices handles GET /api/invoices.
func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	shopID, ok := queryShop(w, r)
	if !ok {
		return
	}
	q, err := parseInvoiceQuery(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	q.ShopID = shopID

	result, err := h.svc.ListInvoices(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// syncInvoices handles GET /api/sync/invoices, the raw snapshot used by remote clients.
func (h *Handler) syncInvoices(w http.ResponseWriter, r *http.Request) {
	shopID, ok := queryShop(w, r)
	if !ok {
		return
	}
	invoices, err := h.svc.SyncInvoices(r.Context(), shopID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"invoices": invoices})
}

// getInvoice handles GET /api/invoices/{id}.
func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if _, ok := resolveShop(w, r, result.Invoice.ShopID); !ok {
		return
	}
	writeJSON(w, result)
}

// invoiceInScope resolves the {id} URL parameter and rejects staff acting on another shop's
// invoice. Admins skip the lookup.
func (h *Handler) invoiceInScope(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	claims := authFromContext(r.Context())
	if claims == nil || claims.IsAdmin() || claims.ShopID == "" {
		return id, true
	}
	result, err := h.svc.GetInvoice(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return "", false
	}
	if _, ok := resolveShop(w, r, result.Invoice.ShopID); !ok {
		return "", false
	}
	return id, true
}

// createInvoice handles POST /api/invoices.
func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var in core.Invoice
	if !decodeJSON(w, r, &in) {
		return
	}
	shopID, ok := resolveShop(w, r, in.ShopID)
	if !ok {
		return
	}
	in.ShopID = shopID

	result, err := h.svc.CreateInvoice(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// updateInvoice handles PUT /api/invoices/{id}.
func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	var patch core.EditPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	id, ok := h.invoiceInScope(w, r)
	if !ok {
		return
	}
	result, err := h.svc.UpdateInvoice(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// deleteInvoice handles DELETE /api/invoices/{id}.
func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceInScope(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteInvoice(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// recordPayment handles POST /api/invoices/{id}/payments.
func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var in core.PaymentInput
	if !decodeJSON(w, r, &in) {
		return
	}
	id, ok := h.invoiceInScope(w, r)
	if !ok {
		return
	}
	result, err := h.svc.RecordPayment(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

type reminderRequest struct {
	Channel       string     `json:"channel"`
	Message       string     `json:"message"`
	Template      string     `json:"template"`
	CustomerPhone string     `json:"customer_phone"`
	SentAt        *time.Time `json:"sent_at"`
	Deliver       bool       `json:"deliver"`
}

// sendReminder handles POST /api/invoices/{id}/reminders. The reminder is always recorded;
// it is handed to the delivery channel only when deliver is true.
func (h *Handler) sendReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, ok := h.invoiceInScope(w, r)
	if !ok {
		return
	}
	result, err := h.svc.SendReminder(r.Context(), app.SendReminderRequest{
		InvoiceID: id,
		Channel:   req.Channel,
		Message:   req.Message,
		Template:  req.Template,
		Phone:     req.CustomerPhone,
		Deliver:   req.Deliver,
		SentAt:    req.SentAt,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result)
}

// renderInvoice handles GET /api/invoices/{id}/render. With format=text the printable text is
// returned as text/plain.
func (h *Handler) renderInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceInScope(w, r)
	if !ok {
		return
	}
	result, err := h.svc.RenderInvoice(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(result.Text))
		return
	}
	writeJSON(w, result)
}
