package core

import "errors"

var (
	// ErrInvalidAmount is returned when a payment amount is not strictly positive, or an edit
	// would set a negative monetary field.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrRecordNotFound is returned when an operation targets an id that does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrUpstreamUnavailable wraps failures of the store behind the engine. It is propagated,
	// never retried, by the ledger.
	ErrUpstreamUnavailable = errors.New("upstream store unavailable")

	// ErrUnauthorized is kept distinct from ErrUpstreamUnavailable so callers can send the user
	// to a login flow instead of showing a generic failure.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTotalBelowPaid protects invariant 0 <= paidAmount <= total on edits.
	ErrTotalBelowPaid = errors.New("invoice total would fall below the amount already paid")

	// ErrInvalidReminder is returned when a reminder has no channel or no message.
	ErrInvalidReminder = errors.New("invalid reminder")

	// ErrMissingField is returned when a new record lacks a required reference or name.
	ErrMissingField = errors.New("required field missing")
)

// Machine-readable codes for the errors above, shared by the HTTP API and its client.
const (
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeNotFound            = "NOT_FOUND"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeTotalBelowPaid      = "TOTAL_BELOW_PAID"
	CodeInvalidReminder     = "INVALID_REMINDER"
	CodeMissingField        = "MISSING_FIELD"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidAmount, CodeInvalidAmount},
	{ErrRecordNotFound, CodeNotFound},
	{ErrUpstreamUnavailable, CodeUpstreamUnavailable},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrTotalBelowPaid, CodeTotalBelowPaid},
	{ErrInvalidReminder, CodeInvalidReminder},
	{ErrMissingField, CodeMissingField},
}

// ErrorCode returns the code for err, or "" if it wraps none of the ledger errors.
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// ErrorForCode is the inverse of ErrorCode. Unknown codes yield nil.
func ErrorForCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
