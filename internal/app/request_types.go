package app

import (
	"time"

	"shop-ledger/internal/core"

	"github.com/shopspring/decimal"
)

// InvoiceQuery is the input for ListInvoices. Zero values impose no constraint.
type InvoiceQuery struct {
	ShopID             string
	Search             string
	Status             core.InvoiceStatus
	CustomerID         string
	From               *time.Time
	To                 *time.Time
	MinTotal           *decimal.Decimal
	MaxTotal           *decimal.Decimal
	WarrantyIssuesOnly bool
	Sort               core.SortOrder // defaults to newest first
	Page               int            // 1-indexed; defaults to 1
	PageSize           int            // defaults to core.DefaultPageSize
}

// SendReminderRequest is the input for SendReminder.
type SendReminderRequest struct {
	InvoiceID string
	Channel   string
	// Message overrides the rendered template when non-empty.
	Message string
	// Template overrides the configured reminder template.
	Template string
	// Phone overrides the linked customer's phone.
	Phone   string
	Deliver bool
	SentAt  *time.Time
}

// MonthlySummaryRequest is the input for GetMonthlySummary.
type MonthlySummaryRequest struct {
	ShopID        string
	Year          int
	Month         time.Month
	WithNarrative bool
}

// CreateUserRequest is the input for CreateUser.
type CreateUserRequest struct {
	ShopID   string
	Username string
	Email    string
	Password string
	Role     string
}
