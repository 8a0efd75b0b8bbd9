package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"shop-ledger/internal/core"
	"shop-ledger/internal/db"
	"shop-ledger/internal/store"
	"shop-ledger/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) (*pgxpool.Pool, store.Store) {
	_ = godotenv.Load("../../../.env")

	// Use a dedicated TEST database; the tables are truncated.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.MigratePostgres(ctx, pool); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE TABLE invoices, customers, users RESTART IDENTITY`); err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}
	return pool, postgres.NewStore(pool)
}

func TestPostgresStore_PaymentLifecycle(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	c, err := s.CreateCustomer(ctx, core.Customer{
		Name:           "Acme",
		CreditBalance:  decimal.NewFromInt(1000),
		CreditInvoices: []string{"INV-PG-1"},
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	inv, err := s.CreateInvoice(ctx, core.Invoice{
		ID:         "INV-PG-1",
		CustomerID: c.ID,
		Date:       time.Now(),
		Total:      decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if !inv.IsRemote() {
		t.Error("postgres-backed invoice should carry an api id")
	}

	for _, amt := range []int64{400, 700} {
		if _, err := s.AddPayment(ctx, inv.ID, core.PaymentInput{Amount: decimal.NewFromInt(amt), Method: "cash"}); err != nil {
			t.Fatalf("AddPayment(%d): %v", amt, err)
		}
	}

	got, err := s.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.PaidAmount.Equal(decimal.NewFromInt(1000)) || got.Status != core.StatusFullPaid || len(got.Payments) != 2 {
		t.Errorf("invoice after payments = %+v", got)
	}
	cust, err := s.GetCustomer(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !cust.CreditBalance.IsZero() || cust.CreditStatus != core.CreditClear || len(cust.CreditInvoices) != 0 {
		t.Errorf("customer after payments = %+v", cust)
	}

	if err := s.DeleteInvoice(ctx, inv.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetInvoice(ctx, inv.ID); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("deleted invoice: err = %v", err)
	}
}

func TestPostgresStore_Users(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, core.User{Username: "admin", Role: core.RoleAdmin}, "password123")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	got, err := s.GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("id = %d, want %d", got.ID, u.ID)
	}
	if err := store.CheckPassword(got, "password123"); err != nil {
		t.Errorf("CheckPassword: %v", err)
	}
}
