// Package store defines the persistence contracts the application service depends on.
// Implementations live in the postgres, sqlite and remote subpackages.
package store

import (
	"context"

	"shop-ledger/internal/core"
)

// InvoiceStore persists ledger records. An empty shopID lists every shop.
//
// AddPayment and RecordReminder load the record, apply the core transition and write the result
// in one step, so concurrent writers to the same record never lose an update.
type InvoiceStore interface {
	ListInvoices(ctx context.Context, shopID string) ([]core.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*core.Invoice, error)
	CreateInvoice(ctx context.Context, inv core.Invoice) (*core.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, patch core.EditPatch) (*core.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
	AddPayment(ctx context.Context, id string, in core.PaymentInput) (*core.PaymentResult, error)
	RecordReminder(ctx context.Context, id string, in core.ReminderInput) (*core.Invoice, error)
}

// CustomerStore persists customers. The ledger updates credit fields only through
// InvoiceStore.AddPayment.
type CustomerStore interface {
	ListCustomers(ctx context.Context, shopID string) ([]core.Customer, error)
	GetCustomer(ctx context.Context, id string) (*core.Customer, error)
	CreateCustomer(ctx context.Context, c core.Customer) (*core.Customer, error)
}

// UserStore looks up and registers back-office users.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*core.User, error)
	GetByID(ctx context.Context, userID int) (*core.User, error)
	CreateUser(ctx context.Context, u core.User, password string) (*core.User, error)
}

// Store bundles the three contracts for wiring.
type Store interface {
	InvoiceStore
	CustomerStore
	UserStore
	Close() error
}
