package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewInvoiceID returns a display id such as INV-20260315-1A2B3C.
func NewInvoiceID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "INV-" + now.Format("20060102") + "-" + suffix
}

// NewCustomerID returns an id for a customer created without one.
func NewCustomerID() string {
	return "CUS-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// PrepareInvoice fills defaults on a record entering a store and checks the ledger invariants.
// PaidAmount is taken from the sum of any payments supplied.
func PrepareInvoice(inv Invoice, now time.Time) (Invoice, error) {
	out := inv.Clone()
	if out.ID == "" {
		out.ID = NewInvoiceID(now)
	}
	if out.Date.IsZero() {
		out.Date = now
	}
	if out.DueDate.IsZero() {
		out.DueDate = out.Date
	}
	if out.CustomerID == "" {
		return Invoice{}, fmt.Errorf("invoice %s customer: %w", out.ID, ErrMissingField)
	}
	for _, d := range []decimal.Decimal{out.Subtotal, out.Tax, out.Total} {
		if d.IsNegative() {
			return Invoice{}, fmt.Errorf("invoice %s: %w", out.ID, ErrInvalidAmount)
		}
	}
	for _, item := range out.Items {
		if item.Quantity < 0 || item.UnitPrice.IsNegative() {
			return Invoice{}, fmt.Errorf("invoice %s line %q: %w", out.ID, item.ProductID, ErrInvalidAmount)
		}
	}

	paid := decimal.Zero
	for _, p := range out.Payments {
		if p.Amount.IsNegative() {
			return Invoice{}, fmt.Errorf("invoice %s payment: %w", out.ID, ErrInvalidAmount)
		}
		paid = paid.Add(p.Amount)
	}
	if paid.GreaterThan(out.Total) {
		return Invoice{}, fmt.Errorf("invoice %s: %w", out.ID, ErrTotalBelowPaid)
	}
	out.PaidAmount = paid
	out.Status = StatusFor(out.PaidAmount, out.Total)
	if out.Items == nil {
		out.Items = []LineItem{}
	}
	if out.Payments == nil {
		out.Payments = []Payment{}
	}
	if out.Reminders == nil {
		out.Reminders = []Reminder{}
	}
	if out.CreditSettlements == nil {
		out.CreditSettlements = []CreditSettlement{}
	}
	out.ReminderCount = len(out.Reminders)
	return out, nil
}

// PrepareCustomer fills defaults on a new customer.
func PrepareCustomer(c Customer, now time.Time) (Customer, error) {
	out := c.Clone()
	if strings.TrimSpace(out.Name) == "" {
		return Customer{}, fmt.Errorf("customer name: %w", ErrMissingField)
	}
	if out.ID == "" {
		out.ID = NewCustomerID()
	}
	if out.CreditBalance.IsNegative() {
		return Customer{}, fmt.Errorf("customer %s credit balance: %w", out.ID, ErrInvalidAmount)
	}
	if out.CreditStatus == "" {
		out.CreditStatus = CreditClear
		if out.CreditBalance.IsPositive() {
			out.CreditStatus = CreditActive
		}
	}
	if out.CreditInvoices == nil {
		out.CreditInvoices = []string{}
	}
	if out.PaymentHistory == nil {
		out.PaymentHistory = []CustomerPayment{}
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	return out, nil
}
