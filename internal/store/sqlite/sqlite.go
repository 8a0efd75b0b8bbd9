// Package sqlite implements the store contracts on a local SQLite file (modernc.org/sqlite, no
// cgo). Amounts are stored as decimal text and timestamps as fixed-width UTC text so that they
// sort lexically.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shop-ledger/internal/core"
	"shop-ledger/internal/db"
	"shop-ledger/internal/store"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore is a store.Store over a single SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*SQLiteStore)(nil)

// New opens (creating if needed) the database at path and applies migrations.
func New(ctx context.Context, path string) (*SQLiteStore, error) {
	sqlDB, err := db.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateSQLite(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return &SQLiteStore{db: sqlDB, now: time.Now}, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrRecordNotFound
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

const invoiceColumns = `id, api_id, shop_id, customer_id, customer_name, invoice_date, due_date,
	items, subtotal, tax, total, status, paid_amount, payments, reminders, reminder_count,
	last_reminder_date, credit_settlements, notes`

func scanInvoice(row scanner) (*core.Invoice, error) {
	var (
		inv                                     core.Invoice
		date, due, status                       string
		items, payments, reminders, settlements string
		lastReminder                            sql.NullString
	)
	err := row.Scan(
		&inv.ID, &inv.APIID, &inv.ShopID, &inv.CustomerID, &inv.CustomerName, &date, &due,
		&items, &inv.Subtotal, &inv.Tax, &inv.Total, &status, &inv.PaidAmount, &payments, &reminders,
		&inv.ReminderCount, &lastReminder, &settlements, &inv.Notes,
	)
	if err != nil {
		return nil, mapError(err)
	}
	inv.Status = core.InvoiceStatus(status)
	if inv.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if inv.DueDate, err = parseTime(due); err != nil {
		return nil, err
	}
	if lastReminder.Valid {
		t, err := parseTime(lastReminder.String)
		if err != nil {
			return nil, err
		}
		inv.LastReminderDate = &t
	}
	for _, f := range []struct {
		name string
		raw  string
		dst  any
	}{
		{"items", items, &inv.Items},
		{"payments", payments, &inv.Payments},
		{"reminders", reminders, &inv.Reminders},
		{"credit_settlements", settlements, &inv.CreditSettlements},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("invoice %s: failed to decode %s: %w", inv.ID, f.name, err)
		}
	}
	return &inv, nil
}

func invoiceArgs(inv core.Invoice) ([]any, error) {
	enc := func(name string, v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s: %w", name, err)
		}
		return string(b), nil
	}
	items, err := enc("items", inv.Items)
	if err != nil {
		return nil, err
	}
	payments, err := enc("payments", inv.Payments)
	if err != nil {
		return nil, err
	}
	reminders, err := enc("reminders", inv.Reminders)
	if err != nil {
		return nil, err
	}
	settlements, err := enc("credit_settlements", inv.CreditSettlements)
	if err != nil {
		return nil, err
	}
	var lastReminder any
	if inv.LastReminderDate != nil {
		lastReminder = formatTime(*inv.LastReminderDate)
	}
	return []any{
		inv.ID, inv.APIID, inv.ShopID, inv.CustomerID, inv.CustomerName,
		formatTime(inv.Date), formatTime(inv.DueDate),
		items, inv.Subtotal.String(), inv.Tax.String(), inv.Total.String(), string(inv.Status),
		inv.PaidAmount.String(), payments, reminders, inv.ReminderCount, lastReminder, settlements, inv.Notes,
	}, nil
}

func (s *SQLiteStore) ListInvoices(ctx context.Context, shopID string) ([]core.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE (? = '' OR shop_id = ?)
		ORDER BY invoice_date DESC, id`, shopID, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
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
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}
	return invoices, nil
}

func (s *SQLiteStore) GetInvoice(ctx context.Context, id string) (*core.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("invoice %s: %w", id, err)
	}
	return inv, nil
}

func (s *SQLiteStore) CreateInvoice(ctx context.Context, in core.Invoice) (*core.Invoice, error) {
	inv, err := core.PrepareInvoice(in, s.now())
	if err != nil {
		return nil, err
	}
	// Local-only records carry no API id.
	inv.APIID = ""

	args, err := invoiceArgs(inv)
	if err != nil {
		return nil, err
	}
	now := formatTime(s.now())
	args = append(args, now, now)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert invoice %s: %w", inv.ID, err)
	}
	return &inv, nil
}

func (s *SQLiteStore) saveInvoice(ctx context.Context, tx *sql.Tx, inv core.Invoice) error {
	args, err := invoiceArgs(inv)
	if err != nil {
		return err
	}
	// Move the id to the end for the WHERE clause.
	args = append(args[1:], formatTime(s.now()), inv.ID)
	res, err := tx.ExecContext(ctx, `
		UPDATE invoices SET
			api_id = ?, shop_id = ?, customer_id = ?, customer_name = ?, invoice_date = ?,
			due_date = ?, items = ?, subtotal = ?, tax = ?, total = ?, status = ?,
			paid_amount = ?, payments = ?, reminders = ?, reminder_count = ?,
			last_reminder_date = ?, credit_settlements = ?, notes = ?, updated_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update invoice %s: %w", inv.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("invoice %s: %w", inv.ID, core.ErrRecordNotFound)
	}
	return nil
}

// mutateInvoice runs fn on the current record and writes its result in the same transaction.
// The store holds a single connection, so the transaction excludes every other writer.
func (s *SQLiteStore) mutateInvoice(ctx context.Context, id string, fn func(*sql.Tx, core.Invoice) (core.Invoice, error)) (*core.Invoice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inv, err := scanInvoice(tx.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("invoice %s: %w", id, err)
	}
	next, err := fn(tx, *inv)
	if err != nil {
		return nil, err
	}
	if err := s.saveInvoice(ctx, tx, next); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return &next, nil
}

func (s *SQLiteStore) UpdateInvoice(ctx context.Context, id string, patch core.EditPatch) (*core.Invoice, error) {
	return s.mutateInvoice(ctx, id, func(_ *sql.Tx, inv core.Invoice) (core.Invoice, error) {
		return core.ApplyEdit(inv, patch)
	})
}

func (s *SQLiteStore) RecordReminder(ctx context.Context, id string, in core.ReminderInput) (*core.Invoice, error) {
	return s.mutateInvoice(ctx, id, func(_ *sql.Tx, inv core.Invoice) (core.Invoice, error) {
		return core.RecordReminder(inv, in)
	})
}

func (s *SQLiteStore) DeleteInvoice(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("invoice %s: %w", id, core.ErrRecordNotFound)
	}
	return nil
}

// AddPayment applies the payment and the linked customer's credit update in one transaction.
func (s *SQLiteStore) AddPayment(ctx context.Context, id string, in core.PaymentInput) (*core.PaymentResult, error) {
	var result core.PaymentResult
	_, err := s.mutateInvoice(ctx, id, func(tx *sql.Tx, inv core.Invoice) (core.Invoice, error) {
		var cust *core.Customer
		if inv.CustomerID != "" {
			c, err := scanCustomer(tx.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, inv.CustomerID))
			switch {
			case err == nil:
				cust = c
			case errors.Is(err, core.ErrRecordNotFound):
			default:
				return core.Invoice{}, fmt.Errorf("customer %s: %w", inv.CustomerID, err)
			}
		}

		res, err := core.ApplyPayment(inv, cust, in)
		if err != nil {
			return core.Invoice{}, err
		}
		if res.Customer != nil {
			if err := saveCustomer(ctx, tx, *res.Customer); err != nil {
				return core.Invoice{}, err
			}
		}
		result = res
		return res.Invoice, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
