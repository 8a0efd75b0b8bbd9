// Package postgres implements the store contracts on PostgreSQL with pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shop-ledger/internal/core"
	"shop-ledger/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewStore constructs a store.Store backed by PostgreSQL. The caller owns the pool.
func NewStore(pool *pgxpool.Pool) store.Store {
	return &pgStore{pool: pool, now: time.Now}
}

func (s *pgStore) Close() error { return nil }

const invoiceColumns = `id, api_id, shop_id, customer_id, customer_name, invoice_date, due_date,
	items, subtotal, tax, total, status, paid_amount, payments, reminders, reminder_count,
	last_reminder_date, credit_settlements, notes`

func scanInvoice(row pgx.Row) (*core.Invoice, error) {
	var (
		inv                                          core.Invoice
		status                                       string
		items, payments, reminders, settlementsBytes []byte
	)
	err := row.Scan(
		&inv.ID, &inv.APIID, &inv.ShopID, &inv.CustomerID, &inv.CustomerName, &inv.Date, &inv.DueDate,
		&items, &inv.Subtotal, &inv.Tax, &inv.Total, &status, &inv.PaidAmount, &payments, &reminders,
		&inv.ReminderCount, &inv.LastReminderDate, &settlementsBytes, &inv.Notes,
	)
	if err != nil {
		return nil, mapError(err)
	}
	inv.Status = core.InvoiceStatus(status)
	if err := unmarshalAll(
		jsonField{"items", items, &inv.Items},
		jsonField{"payments", payments, &inv.Payments},
		jsonField{"reminders", reminders, &inv.Reminders},
		jsonField{"credit_settlements", settlementsBytes, &inv.CreditSettlements},
	); err != nil {
		return nil, fmt.Errorf("invoice %s: %w", inv.ID, err)
	}
	return &inv, nil
}

const customerColumns = `id, shop_id, name, phone, email, address, credit_balance, credit_status,
	credit_invoices, payment_history, created_at`

func scanCustomer(row pgx.Row) (*core.Customer, error) {
	var (
		c                       core.Customer
		status                  string
		creditInvoices, history []byte
	)
	err := row.Scan(&c.ID, &c.ShopID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreditBalance,
		&status, &creditInvoices, &history, &c.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	c.CreditStatus = core.CreditStatus(status)
	if err := unmarshalAll(
		jsonField{"credit_invoices", creditInvoices, &c.CreditInvoices},
		jsonField{"payment_history", history, &c.PaymentHistory},
	); err != nil {
		return nil, fmt.Errorf("customer %s: %w", c.ID, err)
	}
	return &c, nil
}

type jsonField struct {
	name string
	raw  []byte
	dst  any
}

func unmarshalAll(fields ...jsonField) error {
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return fmt.Errorf("failed to decode %s: %w", f.name, err)
		}
	}
	return nil
}

func marshal(name string, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return b, nil
}

// --- Invoices ---

func (s *pgStore) ListInvoices(ctx context.Context, shopID string) ([]core.Invoice, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE ($1 = '' OR shop_id = $1)
		ORDER BY invoice_date DESC, id`, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", mapError(err))
	}
	defer rows.Close()

	invoices := []core.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", mapError(err))
	}
	return invoices, nil
}

func (s *pgStore) GetInvoice(ctx context.Context, id string) (*core.Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("invoice %s: %w", id, err)
	}
	return inv, nil
}

func (s *pgStore) CreateInvoice(ctx context.Context, in core.Invoice) (*core.Invoice, error) {
	inv, err := core.PrepareInvoice(in, s.now())
	if err != nil {
		return nil, err
	}
	if inv.APIID == "" {
		inv.APIID = uuid.NewString()
	}

	args, err := invoiceArgs(inv)
	if err != nil {
		return nil, err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert invoice %s: %w", inv.ID, mapError(err))
	}
	return &inv, nil
}

func invoiceArgs(inv core.Invoice) ([]any, error) {
	items, err := marshal("items", inv.Items)
	if err != nil {
		return nil, err
	}
	payments, err := marshal("payments", inv.Payments)
	if err != nil {
		return nil, err
	}
	reminders, err := marshal("reminders", inv.Reminders)
	if err != nil {
		return nil, err
	}
	settlements, err := marshal("credit_settlements", inv.CreditSettlements)
	if err != nil {
		return nil, err
	}
	return []any{
		inv.ID, inv.APIID, inv.ShopID, inv.CustomerID, inv.CustomerName, inv.Date, inv.DueDate,
		items, inv.Subtotal, inv.Tax, inv.Total, string(inv.Status), inv.PaidAmount, payments, reminders,
		inv.ReminderCount, inv.LastReminderDate, settlements, inv.Notes,
	}, nil
}

// lockInvoice loads an invoice inside tx with a row lock held until commit or rollback.
func lockInvoice(ctx context.Context, tx pgx.Tx, id string) (*core.Invoice, error) {
	inv, err := scanInvoice(tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("invoice %s: %w", id, err)
	}
	return inv, nil
}

func saveInvoice(ctx context.Context, tx pgx.Tx, inv core.Invoice) error {
	args, err := invoiceArgs(inv)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE invoices SET
			api_id = $2, shop_id = $3, customer_id = $4, customer_name = $5, invoice_date = $6,
			due_date = $7, items = $8, subtotal = $9, tax = $10, total = $11, status = $12,
			paid_amount = $13, payments = $14, reminders = $15, reminder_count = $16,
			last_reminder_date = $17, credit_settlements = $18, notes = $19, updated_at = NOW()
		WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("failed to update invoice %s: %w", inv.ID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %s: %w", inv.ID, core.ErrRecordNotFound)
	}
	return nil
}

// mutateInvoice runs fn against the locked invoice and persists its result.
func (s *pgStore) mutateInvoice(ctx context.Context, id string, fn func(core.Invoice) (core.Invoice, error)) (*core.Invoice, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoice(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	next, err := fn(*inv)
	if err != nil {
		return nil, err
	}
	if err := saveInvoice(ctx, tx, next); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", mapError(err))
	}
	return &next, nil
}

func (s *pgStore) UpdateInvoice(ctx context.Context, id string, patch core.EditPatch) (*core.Invoice, error) {
	return s.mutateInvoice(ctx, id, func(inv core.Invoice) (core.Invoice, error) {
		return core.ApplyEdit(inv, patch)
	})
}

func (s *pgStore) RecordReminder(ctx context.Context, id string, in core.ReminderInput) (*core.Invoice, error) {
	return s.mutateInvoice(ctx, id, func(inv core.Invoice) (core.Invoice, error) {
		return core.RecordReminder(inv, in)
	})
}

func (s *pgStore) DeleteInvoice(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice %s: %w", id, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %s: %w", id, core.ErrRecordNotFound)
	}
	return nil
}

// AddPayment locks the invoice and its customer, applies the payment and writes both rows in one
// transaction.
func (s *pgStore) AddPayment(ctx context.Context, id string, in core.PaymentInput) (*core.PaymentResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer tx.Rollback(ctx)

	inv, err := lockInvoice(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	var cust *core.Customer
	if inv.CustomerID != "" {
		c, err := scanCustomer(tx.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, inv.CustomerID))
		switch {
		case err == nil:
			cust = c
		case errors.Is(err, core.ErrRecordNotFound):
			// Walk-in sale with no customer record: nothing to settle.
		default:
			return nil, fmt.Errorf("customer %s: %w", inv.CustomerID, err)
		}
	}

	res, err := core.ApplyPayment(*inv, cust, in)
	if err != nil {
		return nil, err
	}
	if err := saveInvoice(ctx, tx, res.Invoice); err != nil {
		return nil, err
	}
	if res.Customer != nil {
		if err := saveCustomer(ctx, tx, *res.Customer); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", mapError(err))
	}
	return &res, nil
}
