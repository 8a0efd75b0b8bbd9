package core

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentInput describes one payment against an invoice.
type PaymentInput struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	Notes  string          `json:"notes,omitempty"`
	// Date defaults to the current time when nil.
	Date *time.Time `json:"date,omitempty"`
}

// PaymentResult holds the next state of the invoice and, when one was supplied, the linked
// customer. Neither aliases the inputs.
type PaymentResult struct {
	Invoice  Invoice   `json:"invoice"`
	Customer *Customer `json:"customer,omitempty"`
	// Applied is the amount that actually moved PaidAmount.
	Applied decimal.Decimal `json:"applied"`
}

// ApplyPayment appends a payment to inv, clamps PaidAmount to Total and re-derives Status.
// When cust is non-nil its credit balance is decreased by the tendered amount (never below zero),
// a settlement is recorded on the invoice and a history entry on the customer.
func ApplyPayment(inv Invoice, cust *Customer, in PaymentInput) (PaymentResult, error) {
	if !in.Amount.IsPositive() {
		return PaymentResult{}, fmt.Errorf("payment of %s: %w", in.Amount.String(), ErrInvalidAmount)
	}

	at := time.Now()
	if in.Date != nil {
		at = *in.Date
	}

	next := inv.Clone()
	base := decimal.Max(next.PaidAmount, decimal.Zero)
	paid := clamp(base.Add(in.Amount), decimal.Zero, next.Total)
	applied := paid.Sub(base)
	if applied.IsNegative() {
		applied = decimal.Zero
	}

	p := Payment{
		Amount:        applied,
		PaymentDate:   at,
		PaymentMethod: in.Method,
		Notes:         in.Notes,
	}
	if !applied.Equal(in.Amount) {
		tendered := in.Amount
		p.Tendered = &tendered
	}
	next.Payments = append(next.Payments, p)
	next.PaidAmount = paid
	next.Status = StatusFor(next.PaidAmount, next.Total)

	res := PaymentResult{Invoice: next, Applied: applied}
	if cust == nil {
		return res, nil
	}

	c := cust.Clone()
	balance := c.CreditBalance.Sub(in.Amount)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	c.CreditBalance = balance
	c.PaymentHistory = append(c.PaymentHistory, CustomerPayment{
		InvoiceID:     next.ID,
		Amount:        in.Amount,
		PaymentDate:   at,
		PaymentMethod: in.Method,
		Notes:         in.Notes,
	})
	if next.Status == StatusFullPaid {
		c.CreditInvoices = slices.DeleteFunc(c.CreditInvoices, func(id string) bool {
			return id == next.ID
		})
	}
	if c.CreditBalance.IsZero() {
		c.CreditStatus = CreditClear
	}

	res.Invoice.CreditSettlements = append(res.Invoice.CreditSettlements, CreditSettlement{
		CustomerID:    c.ID,
		Amount:        in.Amount,
		BalanceAfter:  c.CreditBalance,
		PaymentMethod: in.Method,
		SettledAt:     at,
	})
	res.Customer = &c
	return res, nil
}

// EditPatch replaces the fields that are set. Payments and reminders are never editable and
// Status is always re-derived.
type EditPatch struct {
	Items    []LineItem       `json:"items,omitempty"`
	Subtotal *decimal.Decimal `json:"subtotal,omitempty"`
	Tax      *decimal.Decimal `json:"tax,omitempty"`
	Total    *decimal.Decimal `json:"total,omitempty"`
	DueDate  *time.Time       `json:"due_date,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
}

// ApplyEdit returns inv with the patch applied. It fails without changing anything when a
// monetary field would be negative or the new total would fall below PaidAmount.
func ApplyEdit(inv Invoice, patch EditPatch) (Invoice, error) {
	for _, d := range []*decimal.Decimal{patch.Subtotal, patch.Tax, patch.Total} {
		if d != nil && d.IsNegative() {
			return Invoice{}, fmt.Errorf("edit with negative amount %s: %w", d.String(), ErrInvalidAmount)
		}
	}
	for _, item := range patch.Items {
		if item.Quantity < 0 || item.UnitPrice.IsNegative() {
			return Invoice{}, fmt.Errorf("line item %q: %w", item.ProductID, ErrInvalidAmount)
		}
	}
	if patch.Total != nil && patch.Total.LessThan(inv.PaidAmount) {
		return Invoice{}, fmt.Errorf("total %s below paid %s: %w",
			patch.Total.String(), inv.PaidAmount.String(), ErrTotalBelowPaid)
	}

	next := inv.Clone()
	if patch.Items != nil {
		next.Items = cloneItems(patch.Items)
	}
	if patch.Subtotal != nil {
		next.Subtotal = *patch.Subtotal
	}
	if patch.Tax != nil {
		next.Tax = *patch.Tax
	}
	if patch.Total != nil {
		next.Total = *patch.Total
	}
	if patch.DueDate != nil {
		next.DueDate = *patch.DueDate
	}
	if patch.Notes != nil {
		next.Notes = *patch.Notes
	}
	next.Status = StatusFor(next.PaidAmount, next.Total)
	return next, nil
}

// ReminderInput is the content of one reminder. Delivery happens elsewhere.
type ReminderInput struct {
	Channel       string     `json:"channel"`
	Message       string     `json:"message"`
	CustomerPhone string     `json:"customer_phone"`
	CustomerName  string     `json:"customer_name"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
}

// RecordReminder appends a reminder with a fresh id and keeps ReminderCount equal to the log
// length.
func RecordReminder(inv Invoice, in ReminderInput) (Invoice, error) {
	if strings.TrimSpace(in.Channel) == "" || strings.TrimSpace(in.Message) == "" {
		return Invoice{}, ErrInvalidReminder
	}
	at := time.Now()
	if in.SentAt != nil {
		at = *in.SentAt
	}

	next := inv.Clone()
	next.Reminders = append(next.Reminders, Reminder{
		ID:            uuid.NewString(),
		Channel:       in.Channel,
		Message:       in.Message,
		CustomerPhone: in.CustomerPhone,
		CustomerName:  in.CustomerName,
		SentAt:        at,
	})
	next.ReminderCount = len(next.Reminders)
	next.LastReminderDate = &at
	return next, nil
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.WarrantyDueDate != nil {
			d := *item.WarrantyDueDate
			out[i].WarrantyDueDate = &d
		}
	}
	return out
}

// Clone copies every slice so appends on the result never reach the receiver's backing arrays.
func (inv Invoice) Clone() Invoice {
	out := inv
	if inv.Items != nil {
		out.Items = cloneItems(inv.Items)
	}
	out.Payments = slices.Clone(inv.Payments)
	out.Reminders = slices.Clone(inv.Reminders)
	out.CreditSettlements = slices.Clone(inv.CreditSettlements)
	if inv.LastReminderDate != nil {
		d := *inv.LastReminderDate
		out.LastReminderDate = &d
	}
	return out
}

// Clone copies the customer's slices.
func (c Customer) Clone() Customer {
	out := c
	out.CreditInvoices = slices.Clone(c.CreditInvoices)
	out.PaymentHistory = slices.Clone(c.PaymentHistory)
	return out
}
