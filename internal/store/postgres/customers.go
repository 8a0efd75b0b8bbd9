package postgres

import (
	"context"
	"fmt"

	"shop-ledger/internal/core"

	"github.com/jackc/pgx/v5"
)

func (s *pgStore) ListCustomers(ctx context.Context, shopID string) ([]core.Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE ($1 = '' OR shop_id = $1)
		ORDER BY name, id`, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", mapError(err))
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
		return nil, fmt.Errorf("failed to list customers: %w", mapError(err))
	}
	return customers, nil
}

func (s *pgStore) GetCustomer(ctx context.Context, id string) (*core.Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("customer %s: %w", id, err)
	}
	return c, nil
}

func (s *pgStore) CreateCustomer(ctx context.Context, in core.Customer) (*core.Customer, error) {
	c, err := core.PrepareCustomer(in, s.now())
	if err != nil {
		return nil, err
	}
	creditInvoices, err := marshal("credit_invoices", c.CreditInvoices)
	if err != nil {
		return nil, err
	}
	history, err := marshal("payment_history", c.PaymentHistory)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO customers (`+customerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.ShopID, c.Name, c.Phone, c.Email, c.Address, c.CreditBalance, string(c.CreditStatus),
		creditInvoices, history, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert customer %s: %w", c.ID, mapError(err))
	}
	return &c, nil
}

// saveCustomer writes the fields the ledger may change.
func saveCustomer(ctx context.Context, tx pgx.Tx, c core.Customer) error {
	creditInvoices, err := marshal("credit_invoices", c.CreditInvoices)
	if err != nil {
		return err
	}
	history, err := marshal("payment_history", c.PaymentHistory)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE customers
		SET credit_balance = $2, credit_status = $3, credit_invoices = $4, payment_history = $5
		WHERE id = $1`,
		c.ID, c.CreditBalance, string(c.CreditStatus), creditInvoices, history)
	if err != nil {
		return fmt.Errorf("failed to update customer %s: %w", c.ID, mapError(err))
	}
	return nil
}
