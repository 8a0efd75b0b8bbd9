package web

import (
	"net/http"
	"strconv"
	"time"

	"shop-ledger/internal/app"
)

// dashboard handles GET /api/dashboard.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	shopID, ok := queryShop(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetDashboard(r.Context(), shopID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// monthlyReport handles GET /api/reports/monthly?year=&month=&narrative=. Year and month
// default to the current month.
func (h *Handler) monthlyReport(w http.ResponseWriter, r *http.Request) {
	shopID, ok := queryShop(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	now := time.Now()
	req := app.MonthlySummaryRequest{ShopID: shopID, Year: now.Year(), Month: now.Month()}

	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, r, "year must be an integer")
			return
		}
		req.Year = year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			badRequest(w, r, "month must be 1-12")
			return
		}
		req.Month = time.Month(month)
	}
	if v := q.Get("narrative"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(w, r, "narrative must be a boolean")
			return
		}
		req.WithNarrative = b
	}

	result, err := h.svc.GetMonthlySummary(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// refreshCache handles POST /api/cache/refresh.
func (h *Handler) refreshCache(w http.ResponseWriter, r *http.Request) {
	shopID, ok := queryShop(w, r)
	if !ok {
		return
	}
	h.svc.Refresh(shopID)
	w.WriteHeader(http.StatusNoContent)
}
