package app

import (
	"time"

	"shop-ledger/internal/ai"
	"shop-ledger/internal/core"
	"shop-ledger/internal/notify"

	"github.com/shopspring/decimal"
)

// InvoiceView is an invoice with the values the list and detail screens derive from it.
type InvoiceView struct {
	core.Invoice
	DueAmount decimal.Decimal      `json:"due_amount"`
	Warranty  core.WarrantySummary `json:"warranty"`
}

// InvoiceListResult is returned by ListInvoices. Stats cover the filtered set, not just the
// current page.
type InvoiceListResult struct {
	Page  core.Page[InvoiceView] `json:"page"`
	Stats core.Stats             `json:"stats"`
}

// InvoiceResult is returned by single-invoice operations.
type InvoiceResult struct {
	Invoice InvoiceView `json:"invoice"`
}

// PaymentResult is returned by RecordPayment.
type PaymentResult struct {
	Invoice  InvoiceView     `json:"invoice"`
	Customer *core.Customer  `json:"customer,omitempty"`
	Applied  decimal.Decimal `json:"applied"`
}

// ReminderResult is returned by SendReminder. Receipt is nil when delivery was not requested
// or failed; DeliveryError carries the failure.
type ReminderResult struct {
	Invoice       InvoiceView     `json:"invoice"`
	Message       string          `json:"message"`
	Receipt       *notify.Receipt `json:"receipt,omitempty"`
	DeliveryError string          `json:"delivery_error,omitempty"`
}

// RenderResult is returned by RenderInvoice.
type RenderResult struct {
	InvoiceID string `json:"invoice_id"`
	Text      string `json:"text"`
}

// CustomerListResult is returned by ListCustomers.
type CustomerListResult struct {
	Customers []core.Customer `json:"customers"`
}

// CustomerResult is returned by single-customer operations.
type CustomerResult struct {
	Customer *core.Customer `json:"customer"`
}

// DashboardResult is returned by GetDashboard.
type DashboardResult struct {
	Stats                core.Stats      `json:"stats"`
	OverdueCount         int             `json:"overdue_count"`
	OverdueAmount        decimal.Decimal `json:"overdue_amount"`
	WarrantyExpired      int             `json:"warranty_expired"`
	WarrantyExpiringSoon int             `json:"warranty_expiring_soon"`
	Recent               []InvoiceView   `json:"recent"`
	AsOf                 time.Time       `json:"as_of"`
}

// MonthlySummaryResult is returned by GetMonthlySummary.
type MonthlySummaryResult struct {
	Metrics        core.MonthSummary   `json:"metrics"`
	Narrative      *ai.BusinessSummary `json:"narrative,omitempty"`
	NarrativeError string              `json:"narrative_error,omitempty"`
}

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID   int    `json:"user_id"`
	ShopID   string `json:"shop_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// UserResult is returned by GetUser and CreateUser.
type UserResult struct {
	ID       int    `json:"id"`
	ShopID   string `json:"shop_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}
