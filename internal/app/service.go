package app

import (
	"context"

	"shop-ledger/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// ListInvoices filters, sorts and paginates the shop's invoices and computes statistics over
	// the filtered set.
	ListInvoices(ctx context.Context, q InvoiceQuery) (*InvoiceListResult, error)

	// SyncInvoices returns the raw snapshot of a shop's invoices, for remote clients.
	SyncInvoices(ctx context.Context, shopID string) ([]core.Invoice, error)

	// GetInvoice returns one invoice with its due amount and warranty badge.
	GetInvoice(ctx context.Context, id string) (*InvoiceResult, error)

	// CreateInvoice validates and stores a new invoice.
	CreateInvoice(ctx context.Context, inv core.Invoice) (*InvoiceResult, error)

	// UpdateInvoice applies an edit. Payments and reminders are never touched.
	UpdateInvoice(ctx context.Context, id string, patch core.EditPatch) (*InvoiceResult, error)

	// DeleteInvoice removes an invoice.
	DeleteInvoice(ctx context.Context, id string) error

	// RecordPayment applies a payment and syncs the linked customer's credit.
	RecordPayment(ctx context.Context, id string, in core.PaymentInput) (*PaymentResult, error)

	// SendReminder renders and records a reminder, then hands it to the delivery channel when
	// req.Deliver is set. A failed delivery does not undo the recorded reminder.
	SendReminder(ctx context.Context, req SendReminderRequest) (*ReminderResult, error)

	// RenderInvoice renders the printable text of an invoice.
	RenderInvoice(ctx context.Context, id string) (*RenderResult, error)

	// ListCustomers returns the shop's customers.
	ListCustomers(ctx context.Context, shopID string) (*CustomerListResult, error)

	// GetCustomer returns one customer.
	GetCustomer(ctx context.Context, id string) (*CustomerResult, error)

	// CreateCustomer validates and stores a new customer.
	CreateCustomer(ctx context.Context, c core.Customer) (*CustomerResult, error)

	// GetDashboard computes statistics and warranty counts over the whole shop snapshot.
	GetDashboard(ctx context.Context, shopID string) (*DashboardResult, error)

	// GetMonthlySummary aggregates one calendar month and, when an agent is configured and
	// requested, attaches the AI narrative.
	GetMonthlySummary(ctx context.Context, req MonthlySummaryRequest) (*MonthlySummaryResult, error)

	// Refresh drops cached snapshots so the next read goes to the store.
	Refresh(shopID string)

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)

	// CreateUser registers a back-office user.
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResult, error)
}
