package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"shop-ledger/internal/core"
)

const customerColumns = `id, shop_id, name, phone, email, address, credit_balance, credit_status,
	credit_invoices, payment_history, created_at`

func scanCustomer(row scanner) (*core.Customer, error) {
	var (
		c                                        core.Customer
		status, creditInvoices, history, created string
	)
	err := row.Scan(&c.ID, &c.ShopID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreditBalance,
		&status, &creditInvoices, &history, &created)
	if err != nil {
		return nil, mapError(err)
	}
	c.CreditStatus = core.CreditStatus(status)
	if c.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(creditInvoices), &c.CreditInvoices); err != nil {
		return nil, fmt.Errorf("customer %s: failed to decode credit_invoices: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(history), &c.PaymentHistory); err != nil {
		return nil, fmt.Errorf("customer %s: failed to decode payment_history: %w", c.ID, err)
	}
	return &c, nil
}

func encodeCredit(c core.Customer) (string, string, error) {
	creditInvoices, err := json.Marshal(c.CreditInvoices)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode credit_invoices: %w", err)
	}
	history, err := json.Marshal(c.PaymentHistory)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode payment_history: %w", err)
	}
	return string(creditInvoices), string(history), nil
}

func (s *SQLiteStore) ListCustomers(ctx context.Context, shopID string) ([]core.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE (? = '' OR shop_id = ?)
		ORDER BY name, id`, shopID, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []core.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}
	return customers, nil
}

func (s *SQLiteStore) GetCustomer(ctx context.Context, id string) (*core.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("customer %s: %w", id, err)
	}
	return c, nil
}

func (s *SQLiteStore) CreateCustomer(ctx context.Context, in core.Customer) (*core.Customer, error) {
	c, err := core.PrepareCustomer(in, s.now())
	if err != nil {
		return nil, err
	}
	creditInvoices, history, err := encodeCredit(c)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO customers (`+customerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ShopID, c.Name, c.Phone, c.Email, c.Address, c.CreditBalance.String(),
		string(c.CreditStatus), creditInvoices, history, formatTime(c.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert customer %s: %w", c.ID, err)
	}
	return &c, nil
}

func saveCustomer(ctx context.Context, tx *sql.Tx, c core.Customer) error {
	creditInvoices, history, err := encodeCredit(c)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE customers
		SET credit_balance = ?, credit_status = ?, credit_invoices = ?, payment_history = ?
		WHERE id = ?`,
		c.CreditBalance.String(), string(c.CreditStatus), creditInvoices, history, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update customer %s: %w", c.ID, err)
	}
	return nil
}
