package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is derived from PaidAmount and Total but stored alongside them.
type InvoiceStatus string

const (
	StatusUnpaid   InvoiceStatus = "unpaid"
	StatusHalfPay  InvoiceStatus = "halfpay"
	StatusFullPaid InvoiceStatus = "fullpaid"
)

// Valid reports whether s is one of the three known statuses.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusUnpaid, StatusHalfPay, StatusFullPaid:
		return true
	}
	return false
}

// CreditStatus tracks a customer's standing against their credit balance.
type CreditStatus string

const (
	CreditActive  CreditStatus = "active"
	CreditOverdue CreditStatus = "overdue"
	CreditClear   CreditStatus = "clear"
)

// AllFilter is the sentinel meaning "no constraint" for status and customer filters.
const AllFilter = "all"

// LineItem is one product line on an invoice. Total is carried as entered (quantity × unit price
// at creation time) and is not re-validated by the engine.
type LineItem struct {
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Total           decimal.Decimal `json:"total"`
	WarrantyDueDate *time.Time      `json:"warranty_due_date,omitempty"`
}

// Payment is an append-only payment event on an invoice.
// Amount is what was applied to the invoice; Tendered is set only when the caller offered more
// than the remaining balance.
type Payment struct {
	Amount        decimal.Decimal  `json:"amount"`
	Tendered      *decimal.Decimal `json:"tendered,omitempty"`
	PaymentDate   time.Time        `json:"payment_date"`
	PaymentMethod string           `json:"payment_method"`
	Notes         string           `json:"notes,omitempty"`
}

// Reminder is one entry in an invoice's reminder log.
type Reminder struct {
	ID            string    `json:"id"`
	Channel       string    `json:"channel"`
	Message       string    `json:"message"`
	CustomerPhone string    `json:"customer_phone"`
	CustomerName  string    `json:"customer_name"`
	SentAt        time.Time `json:"sent_at"`
}

// CreditSettlement records an amount applied against the linked customer's credit balance.
type CreditSettlement struct {
	CustomerID    string          `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	PaymentMethod string          `json:"payment_method"`
	SettledAt     time.Time       `json:"settled_at"`
}

// Invoice is a ledger record: an invoice and its payment and reminder history.
type Invoice struct {
	ID                string             `json:"id"`
	APIID             string             `json:"api_id,omitempty"`
	ShopID            string             `json:"shop_id,omitempty"`
	CustomerID        string             `json:"customer_id"`
	CustomerName      string             `json:"customer_name"`
	Date              time.Time          `json:"date"`
	DueDate           time.Time          `json:"due_date"`
	Items             []LineItem         `json:"items"`
	Subtotal          decimal.Decimal    `json:"subtotal"`
	Tax               decimal.Decimal    `json:"tax"`
	Total             decimal.Decimal    `json:"total"`
	Status            InvoiceStatus      `json:"status"`
	PaidAmount        decimal.Decimal    `json:"paid_amount"`
	Payments          []Payment          `json:"payments"`
	Reminders         []Reminder         `json:"reminders"`
	ReminderCount     int                `json:"reminder_count"`
	LastReminderDate  *time.Time         `json:"last_reminder_date,omitempty"`
	CreditSettlements []CreditSettlement `json:"credit_settlements"`
	Notes             string             `json:"notes,omitempty"`
}

// IsRemote reports whether the record is backed by a remote store rather than local-only.
func (inv Invoice) IsRemote() bool {
	return inv.APIID != ""
}

// DueAmount is the remaining balance, never negative.
func (inv Invoice) DueAmount() decimal.Decimal {
	due := inv.Total.Sub(inv.PaidAmount)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// CustomerPayment is an entry in a customer's payment history.
type CustomerPayment struct {
	InvoiceID     string          `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
}

// Customer is referenced by invoices; the ledger reads and updates its credit fields but does not
// own its lifecycle.
type Customer struct {
	ID             string            `json:"id"`
	ShopID         string            `json:"shop_id,omitempty"`
	Name           string            `json:"name"`
	Phone          string            `json:"phone"`
	Email          string            `json:"email,omitempty"`
	Address        string            `json:"address,omitempty"`
	CreditBalance  decimal.Decimal   `json:"credit_balance"`
	CreditStatus   CreditStatus      `json:"credit_status"`
	CreditInvoices []string          `json:"credit_invoices"`
	PaymentHistory []CustomerPayment `json:"payment_history"`
	CreatedAt      time.Time         `json:"created_at"`
}

// ShopProfile holds the shop details substituted into reminder and print templates.
type ShopProfile struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Website string `json:"website"`
}
