package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"shop-ledger/internal/core"
	"shop-ledger/internal/store"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps an ApplicationService error onto a status and a machine-readable code.
// The codes match core.ErrorCode so the remote client can restore the sentinel.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch code := core.ErrorCode(err); code {
	case core.CodeInvalidAmount, core.CodeTotalBelowPaid, core.CodeInvalidReminder, core.CodeMissingField:
		writeError(w, r, err.Error(), code, http.StatusBadRequest)
		return
	case core.CodeNotFound:
		writeError(w, r, err.Error(), code, http.StatusNotFound)
		return
	case core.CodeUnauthorized:
		writeError(w, r, err.Error(), code, http.StatusUnauthorized)
		return
	case core.CodeUpstreamUnavailable:
		slog.ErrorContext(r.Context(), "upstream store failure", "error", err, "request_id", requestIDFromContext(r.Context()))
		writeError(w, r, "store unavailable", code, http.StatusServiceUnavailable)
		return
	}

	switch {
	case errors.Is(err, store.ErrWeakPassword):
		writeError(w, r, err.Error(), "WEAK_PASSWORD", http.StatusBadRequest)
	case errors.Is(err, store.ErrInvalidCredentials):
		writeError(w, r, "invalid username or password", core.CodeUnauthorized, http.StatusUnauthorized)
	default:
		slog.ErrorContext(r.Context(), "request failed", "error", err, "request_id", requestIDFromContext(r.Context()))
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
