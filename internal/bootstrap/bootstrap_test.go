package bootstrap_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"shop-ledger/internal/app"
	"shop-ledger/internal/bootstrap"
	"shop-ledger/internal/config"
	"shop-ledger/internal/core"

	"github.com/shopspring/decimal"
)

func TestBuildSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		StoreBackend:       config.BackendSQLite,
		SQLitePath:         filepath.Join(t.TempDir(), "ledger.db"),
		DefaultCountryCode: "94",
		Shop:               core.ShopProfile{Name: "Computer Shop"},
	}

	rt, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	cust, err := rt.Service.CreateCustomer(ctx, core.Customer{Name: "Acme", Phone: "0771234567"})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	inv, err := rt.Service.CreateInvoice(ctx, core.Invoice{CustomerID: cust.Customer.ID, Total: decimal.NewFromInt(300)})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	res, err := rt.Service.SendReminder(ctx, app.SendReminderRequest{InvoiceID: inv.Invoice.ID, Deliver: true})
	if err != nil {
		t.Fatalf("SendReminder: %v", err)
	}
	if res.Receipt == nil || res.Receipt.URL == "" {
		t.Errorf("whatsapp channel not wired: %+v", res)
	}

	summary, err := rt.Service.GetMonthlySummary(ctx, app.MonthlySummaryRequest{
		Year: 2026, Month: time.March, WithNarrative: true,
	})
	if err != nil {
		t.Fatalf("GetMonthlySummary: %v", err)
	}
	if summary.NarrativeError == "" {
		t.Error("no agent configured, expected a narrative error")
	}
}

func TestOpenStoreRejectsUnknownBackend(t *testing.T) {
	_, err := bootstrap.OpenStore(context.Background(), &config.Config{StoreBackend: "mongo"}, false)
	if err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestOpenStoreRemoteDoesNotDial(t *testing.T) {
	st, err := bootstrap.OpenStore(context.Background(), &config.Config{
		StoreBackend: config.BackendRemote,
		RemoteURL:    "http://127.0.0.1:1",
	}, true)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
