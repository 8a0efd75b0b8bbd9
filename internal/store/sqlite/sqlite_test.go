package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shop-ledger/internal/core"
	"shop-ledger/internal/store/sqlite"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	s, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s *sqlite.SQLiteStore, total string) (*core.Customer, *core.Invoice) {
	t.Helper()
	ctx := context.Background()
	c, err := s.CreateCustomer(ctx, core.Customer{
		ShopID:         "shop-1",
		Name:           "Acme Traders",
		Phone:          "0771234567",
		CreditBalance:  dec(total),
		CreditInvoices: []string{"INV-1"},
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	warranty := time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)
	inv, err := s.CreateInvoice(ctx, core.Invoice{
		ID:           "INV-1",
		ShopID:       "shop-1",
		CustomerID:   c.ID,
		CustomerName: c.Name,
		Date:         time.Date(2026, time.March, 1, 10, 30, 0, 0, time.UTC),
		DueDate:      time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
		Items: []core.LineItem{{
			ProductID: "SSD-1", ProductName: "SSD 1TB", Quantity: 1,
			UnitPrice: dec(total), Total: dec(total), WarrantyDueDate: &warranty,
		}},
		Subtotal: dec(total),
		Total:    dec(total),
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	return c, inv
}

func TestSQLiteStore_InvoiceRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	_, created := seed(t, s, "1000.50")

	got, err := s.GetInvoice(ctx, "INV-1")
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if got.Status != core.StatusUnpaid || !got.Total.Equal(dec("1000.50")) || got.APIID != "" {
		t.Errorf("invoice = %+v", got)
	}
	if !got.Date.Equal(created.Date) || len(got.Items) != 1 || got.Items[0].WarrantyDueDate == nil {
		t.Errorf("round trip lost data: %+v", got)
	}
	if got.IsRemote() {
		t.Error("sqlite invoices must be local-only")
	}

	if _, err := s.GetInvoice(ctx, "missing"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("missing invoice: err = %v", err)
	}
}

func TestSQLiteStore_ListByShop(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seed(t, s, "100")
	if _, err := s.CreateInvoice(ctx, core.Invoice{
		ID: "INV-2", ShopID: "shop-2", CustomerID: "walk-in", Total: dec("50"),
		Date: time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatal(err)
	}

	all, err := s.ListInvoices(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != "INV-2" {
		t.Errorf("all invoices (newest first) = %v", all)
	}
	shop1, err := s.ListInvoices(ctx, "shop-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(shop1) != 1 || shop1[0].ID != "INV-1" {
		t.Errorf("shop-1 invoices = %v", shop1)
	}
	none, err := s.ListInvoices(ctx, "shop-9")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("unknown shop = %v, %v", none, err)
	}
}

func TestSQLiteStore_AddPaymentSyncsCustomer(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	c, _ := seed(t, s, "1000")

	res, err := s.AddPayment(ctx, "INV-1", core.PaymentInput{Amount: dec("400"), Method: "cash"})
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if res.Invoice.Status != core.StatusHalfPay || res.Customer == nil {
		t.Fatalf("result = %+v", res)
	}

	res, err = s.AddPayment(ctx, "INV-1", core.PaymentInput{Amount: dec("700"), Method: "card"})
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if !res.Invoice.PaidAmount.Equal(dec("1000")) || res.Invoice.Status != core.StatusFullPaid {
		t.Errorf("after overpayment: %+v", res.Invoice)
	}

	stored, err := s.GetInvoice(ctx, "INV-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Payments) != 2 || len(stored.CreditSettlements) != 2 || !stored.PaidAmount.Equal(dec("1000")) {
		t.Errorf("stored invoice = %+v", stored)
	}

	cust, err := s.GetCustomer(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !cust.CreditBalance.IsZero() || cust.CreditStatus != core.CreditClear || len(cust.CreditInvoices) != 0 {
		t.Errorf("customer = %+v", cust)
	}
	if len(cust.PaymentHistory) != 2 {
		t.Errorf("payment history = %d entries, want 2", len(cust.PaymentHistory))
	}

	if _, err := s.AddPayment(ctx, "INV-1", core.PaymentInput{Amount: dec("0")}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero payment: err = %v", err)
	}
	if _, err := s.AddPayment(ctx, "nope", core.PaymentInput{Amount: dec("1")}); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("missing invoice: err = %v", err)
	}
}

func TestSQLiteStore_ConcurrentPaymentsAreSerialized(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seed(t, s, "1000")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AddPayment(ctx, "INV-1", core.PaymentInput{Amount: dec("50"), Method: "cash"}); err != nil {
				t.Errorf("AddPayment: %v", err)
			}
		}()
	}
	wg.Wait()

	inv, err := s.GetInvoice(ctx, "INV-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(inv.Payments) != 10 || !inv.PaidAmount.Equal(dec("500")) {
		t.Errorf("paid = %s over %d payments, want 500 over 10", inv.PaidAmount, len(inv.Payments))
	}
}

func TestSQLiteStore_EditRemindDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seed(t, s, "1000")

	if _, err := s.AddPayment(ctx, "INV-1", core.PaymentInput{Amount: dec("300")}); err != nil {
		t.Fatal(err)
	}
	total := dec("300")
	edited, err := s.UpdateInvoice(ctx, "INV-1", core.EditPatch{Total: &total})
	if err != nil {
		t.Fatalf("UpdateInvoice: %v", err)
	}
	if edited.Status != core.StatusFullPaid || len(edited.Payments) != 1 {
		t.Errorf("edited = %+v", edited)
	}
	tooLow := dec("100")
	if _, err := s.UpdateInvoice(ctx, "INV-1", core.EditPatch{Total: &tooLow}); !errors.Is(err, core.ErrTotalBelowPaid) {
		t.Errorf("total below paid: err = %v", err)
	}

	reminded, err := s.RecordReminder(ctx, "INV-1", core.ReminderInput{Channel: "whatsapp", Message: "hello"})
	if err != nil {
		t.Fatalf("RecordReminder: %v", err)
	}
	if reminded.ReminderCount != 1 || reminded.LastReminderDate == nil {
		t.Errorf("reminded = %+v", reminded)
	}
	stored, err := s.GetInvoice(ctx, "INV-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.ReminderCount != 1 || len(stored.Reminders) != 1 || stored.LastReminderDate == nil {
		t.Errorf("stored reminder state = %+v", stored)
	}

	if err := s.DeleteInvoice(ctx, "INV-1"); err != nil {
		t.Fatalf("DeleteInvoice: %v", err)
	}
	if err := s.DeleteInvoice(ctx, "INV-1"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("second delete: err = %v", err)
	}
}

func TestSQLiteStore_Users(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, core.User{Username: "Owner", Role: core.RoleAdmin}, "password123")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected user id")
	}
	byName, err := s.GetByUsername(ctx, "owner")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if byName.ID != u.ID || byName.Role != core.RoleAdmin || !byName.IsActive {
		t.Errorf("user = %+v", byName)
	}
	if _, err := s.GetByID(ctx, 999); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("missing user: err = %v", err)
	}
}
