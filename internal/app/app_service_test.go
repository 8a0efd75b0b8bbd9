package app_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"shop-ledger/internal/ai"
	"shop-ledger/internal/app"
	"shop-ledger/internal/cache"
	"shop-ledger/internal/core"
	"shop-ledger/internal/events"
	"shop-ledger/internal/metrics"
	"shop-ledger/internal/notify"
	"shop-ledger/internal/store"
	"shop-ledger/internal/store/sqlite"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

var now = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

type recordingPublisher struct {
	mu    sync.Mutex
	types []events.Type
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, e.Type)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fakeDispatcher struct {
	msgs []notify.Message
	err  error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, msg notify.Message) (notify.Receipt, error) {
	if d.err != nil {
		return notify.Receipt{}, d.err
	}
	d.msgs = append(d.msgs, msg)
	return notify.Receipt{Channel: msg.Channel, URL: "https://wa.me/" + msg.Phone}, nil
}

type fakeSummarizer struct {
	tools *ai.ToolRegistry
	err   error
}

func (f *fakeSummarizer) SummarizeMonth(_ context.Context, m core.MonthSummary, tools *ai.ToolRegistry) (*ai.BusinessSummary, error) {
	f.tools = tools
	if f.err != nil {
		return nil, f.err
	}
	return &ai.BusinessSummary{Headline: "Billed " + m.Billed.StringFixed(2), CollectionOutlook: ai.OutlookStable}, nil
}

type fixture struct {
	svc     app.ApplicationService
	store   *sqlite.SQLiteStore
	events  *recordingPublisher
	notify  *fakeDispatcher
	agent   *fakeSummarizer
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := &fixture{
		store:   st,
		events:  &recordingPublisher{},
		notify:  &fakeDispatcher{},
		agent:   &fakeSummarizer{},
		metrics: metrics.New(),
	}
	cached := cache.New(st, 0, 0, f.metrics)
	f.svc = app.NewAppService(app.Deps{
		Store:    cached,
		Cache:    cached,
		Events:   f.events,
		Notifier: f.notify,
		Agent:    f.agent,
		Metrics:  f.metrics,
		Shop:     core.ShopProfile{Name: "Computer Shop", Phone: "011-2345678"},
		Now:      func() time.Time { return now },
	})
	return f
}

func (f *fixture) customer(t *testing.T, name, credit string) *core.Customer {
	t.Helper()
	res, err := f.svc.CreateCustomer(context.Background(), core.Customer{
		ShopID: "shop-1", Name: name, Phone: "0771234567", CreditBalance: dec(credit),
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	return res.Customer
}

func (f *fixture) invoice(t *testing.T, id string, c *core.Customer, date time.Time, total string) app.InvoiceView {
	t.Helper()
	res, err := f.svc.CreateInvoice(context.Background(), core.Invoice{
		ID: id, ShopID: "shop-1", CustomerID: c.ID, Date: date, DueDate: date.AddDate(0, 0, 14),
		Items: []core.LineItem{{ProductID: "P-" + id, ProductName: "Laptop", Quantity: 1, UnitPrice: dec(total), Total: dec(total)}},
		Total: dec(total), Subtotal: dec(total),
	})
	if err != nil {
		t.Fatalf("CreateInvoice %s: %v", id, err)
	}
	return res.Invoice
}

func TestRecordPayment_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.customer(t, "Acme Traders", "1000")
	inv := f.invoice(t, "INV-1", c, day(2026, time.March, 1), "1000")

	if inv.CustomerName != "Acme Traders" {
		t.Errorf("customer name not denormalized: %q", inv.CustomerName)
	}
	if inv.Status != core.StatusUnpaid || !inv.DueAmount.Equal(dec("1000")) {
		t.Fatalf("new invoice = %s due %s", inv.Status, inv.DueAmount)
	}

	first, err := f.svc.RecordPayment(ctx, "INV-1", core.PaymentInput{Amount: dec("400"), Method: "cash"})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if first.Invoice.Status != core.StatusHalfPay || !first.Invoice.PaidAmount.Equal(dec("400")) {
		t.Errorf("after 400: %s paid %s", first.Invoice.Status, first.Invoice.PaidAmount)
	}
	if first.Customer == nil || !first.Customer.CreditBalance.Equal(dec("600")) {
		t.Errorf("customer after 400 = %+v", first.Customer)
	}

	second, err := f.svc.RecordPayment(ctx, "INV-1", core.PaymentInput{Amount: dec("700"), Method: "card"})
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if second.Invoice.Status != core.StatusFullPaid || !second.Invoice.PaidAmount.Equal(dec("1000")) {
		t.Errorf("after 700: %s paid %s", second.Invoice.Status, second.Invoice.PaidAmount)
	}
	if !second.Applied.Equal(dec("600")) || !second.Invoice.DueAmount.IsZero() {
		t.Errorf("applied %s due %s", second.Applied, second.Invoice.DueAmount)
	}
	if !second.Customer.CreditBalance.IsZero() || second.Customer.CreditStatus != core.CreditClear {
		t.Errorf("customer credit = %s %s", second.Customer.CreditBalance, second.Customer.CreditStatus)
	}

	if _, err := f.svc.RecordPayment(ctx, "INV-1", core.PaymentInput{Amount: decimal.Zero}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero payment err = %v", err)
	}
	if _, err := f.svc.RecordPayment(ctx, "INV-404", core.PaymentInput{Amount: dec("1")}); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("missing invoice err = %v", err)
	}

	want := []events.Type{events.InvoiceCreated, events.PaymentApplied, events.PaymentApplied}
	if len(f.events.types) != len(want) {
		t.Fatalf("events = %v, want %v", f.events.types, want)
	}
	for i := range want {
		if f.events.types[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, f.events.types[i], want[i])
		}
	}
	if got := testutil.ToFloat64(f.metrics.Payments.WithLabelValues("card", "fullpaid")); got != 1 {
		t.Errorf("card payments = %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.PaymentAmount); got != 1000 {
		t.Errorf("applied total = %v, want 1000", got)
	}
}

func TestListInvoices_FilterSortPaginate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acme := f.customer(t, "Acme Traders", "0")
	other := f.customer(t, "Beta Stores", "0")

	for i, d := range []int{5, 10, 12, 20} {
		f.invoice(t, "INV-A"+string(rune('1'+i)), acme, day(2026, time.January, d), "100")
	}
	f.invoice(t, "INV-B1", other, day(2026, time.January, 15), "500")
	if _, err := f.svc.RecordPayment(ctx, "INV-A1", core.PaymentInput{Amount: dec("100")}); err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.ListInvoices(ctx, app.InvoiceQuery{ShopID: "shop-1", Search: "acm", PageSize: 3})
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if res.Page.TotalCount != 4 || res.Page.TotalPages != 2 || len(res.Page.Items) != 3 {
		t.Fatalf("page = %+v", res.Page)
	}
	if res.Page.Items[0].ID != "INV-A4" {
		t.Errorf("default order should be newest first, got %s", res.Page.Items[0].ID)
	}
	if res.Stats.TotalCount != 4 || res.Stats.FullpaidCount != 1 || !res.Stats.UnpaidTotal.Equal(dec("300")) {
		t.Errorf("stats = %+v", res.Stats)
	}

	from := day(2026, time.January, 10)
	res, err = f.svc.ListInvoices(ctx, app.InvoiceQuery{ShopID: "shop-1", From: &from, Sort: core.SortAscending})
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, v := range res.Page.Items {
		ids = append(ids, v.ID)
	}
	if strings.Join(ids, ",") != "INV-A2,INV-A3,INV-B1,INV-A4" {
		t.Errorf("from 2026-01-10 ascending = %v", ids)
	}

	res, err = f.svc.ListInvoices(ctx, app.InvoiceQuery{ShopID: "shop-1", Page: 9})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Page.Items) != 0 || res.Page.TotalCount != 5 {
		t.Errorf("out of range page = %+v", res.Page)
	}
}

func TestSendReminder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.customer(t, "Kamal Perera", "0")
	f.invoice(t, "INV-1", c, day(2026, time.February, 1), "250")

	res, err := f.svc.SendReminder(ctx, app.SendReminderRequest{InvoiceID: "INV-1", Deliver: true})
	if err != nil {
		t.Fatalf("SendReminder: %v", err)
	}
	if !strings.Contains(res.Message, "Dear Kamal Perera") || !strings.Contains(res.Message, "Computer Shop") {
		t.Errorf("message = %q", res.Message)
	}
	// Due 2026-02-15, today 2026-03-15.
	if !strings.Contains(res.Message, "(28 days overdue)") {
		t.Errorf("message missing overdue days: %q", res.Message)
	}
	if res.Invoice.ReminderCount != 1 || res.Receipt == nil || len(f.notify.msgs) != 1 {
		t.Errorf("count = %d receipt = %v sent = %d", res.Invoice.ReminderCount, res.Receipt, len(f.notify.msgs))
	}
	if f.notify.msgs[0].Phone != "0771234567" || f.notify.msgs[0].Channel != notify.ChannelWhatsApp {
		t.Errorf("dispatched = %+v", f.notify.msgs[0])
	}

	f.notify.err = errors.New("queue down")
	res, err = f.svc.SendReminder(ctx, app.SendReminderRequest{InvoiceID: "INV-1", Channel: "queue", Message: "pay", Deliver: true})
	if err != nil {
		t.Fatalf("failed delivery must not fail the call: %v", err)
	}
	if res.Invoice.ReminderCount != 2 || res.DeliveryError == "" || res.Receipt != nil {
		t.Errorf("after failed delivery: %+v", res)
	}

	f.notify.err = nil
	res, err = f.svc.SendReminder(ctx, app.SendReminderRequest{InvoiceID: "INV-1", Message: "recorded elsewhere"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Invoice.ReminderCount != 3 || len(f.notify.msgs) != 1 {
		t.Errorf("record-only reminder dispatched: count %d sent %d", res.Invoice.ReminderCount, len(f.notify.msgs))
	}

	if got := testutil.ToFloat64(f.metrics.Reminders.WithLabelValues("queue", "failed")); got != 1 {
		t.Errorf("failed reminders = %v", got)
	}
}

func TestRenderInvoice(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Kamal", "0")
	f.invoice(t, "INV-1", c, day(2026, time.March, 1), "99.5")

	res, err := f.svc.RenderInvoice(context.Background(), "INV-1")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"INVOICE INV-1", "Bill to: Kamal", "Balance due: 99.50", "1. Laptop x1 @ 99.50 = 99.50"} {
		if !strings.Contains(res.Text, want) {
			t.Errorf("render missing %q:\n%s", want, res.Text)
		}
	}
}

func TestGetDashboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.customer(t, "Kamal", "0")
	f.invoice(t, "INV-OLD", c, day(2026, time.January, 1), "300") // due 2026-01-15
	f.invoice(t, "INV-NEW", c, day(2026, time.March, 10), "200")  // due 2026-03-24
	if _, err := f.svc.RecordPayment(ctx, "INV-OLD", core.PaymentInput{Amount: dec("100")}); err != nil {
		t.Fatal(err)
	}

	d, err := f.svc.GetDashboard(ctx, "shop-1")
	if err != nil {
		t.Fatal(err)
	}
	if d.Stats.TotalCount != 2 || d.OverdueCount != 1 || !d.OverdueAmount.Equal(dec("200")) {
		t.Errorf("dashboard = %+v", d)
	}
	if len(d.Recent) != 2 || d.Recent[0].ID != "INV-NEW" {
		t.Errorf("recent = %v", d.Recent)
	}
}

func TestGetMonthlySummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.customer(t, "Kamal", "0")
	f.invoice(t, "INV-1", c, day(2026, time.March, 2), "400")
	f.invoice(t, "INV-2", c, day(2026, time.February, 2), "900")

	res, err := f.svc.GetMonthlySummary(ctx, app.MonthlySummaryRequest{ShopID: "shop-1", Year: 2026, Month: time.March, WithNarrative: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Metrics.InvoiceCount != 1 || res.Narrative == nil || res.Narrative.Headline != "Billed 400.00" {
		t.Errorf("summary = %+v narrative = %+v", res.Metrics, res.Narrative)
	}

	out := f.agent.tools.Call(ctx, "get_month_metrics", `{"year":2026,"month":2}`)
	if !strings.Contains(out, `"invoice_count":1`) || !strings.Contains(out, `"billed":"900"`) {
		t.Errorf("get_month_metrics = %s", out)
	}
	out = f.agent.tools.Call(ctx, "get_customer_invoices", `{"customer_id":"`+c.ID+`"}`)
	if !strings.HasPrefix(out, `[{"id":"INV-1"`) {
		t.Errorf("get_customer_invoices = %s", out)
	}

	f.agent.err = errors.New("rate limited")
	res, err = f.svc.GetMonthlySummary(ctx, app.MonthlySummaryRequest{ShopID: "shop-1", Year: 2026, Month: time.March, WithNarrative: true})
	if err != nil {
		t.Fatalf("narrative failure must not fail the call: %v", err)
	}
	if res.Narrative != nil || res.NarrativeError == "" {
		t.Errorf("result = %+v", res)
	}

	if _, err := f.svc.GetMonthlySummary(ctx, app.MonthlySummaryRequest{Year: 2026, Month: 13}); err == nil {
		t.Error("expected error for month 13")
	}
}

func TestAuthenticateUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created, err := f.svc.CreateUser(ctx, app.CreateUserRequest{ShopID: "shop-1", Username: "Admin", Password: "s3cret-pass", Role: core.RoleAdmin})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	session, err := f.svc.AuthenticateUser(ctx, "  ADMIN ", "s3cret-pass")
	if err != nil {
		t.Fatalf("AuthenticateUser: %v", err)
	}
	if session.UserID != created.ID || session.Role != core.RoleAdmin || session.ShopID != "shop-1" {
		t.Errorf("session = %+v", session)
	}

	for _, tc := range []struct{ user, pass string }{{"admin", "wrong-pass"}, {"nobody", "s3cret-pass"}} {
		if _, err := f.svc.AuthenticateUser(ctx, tc.user, tc.pass); !errors.Is(err, store.ErrInvalidCredentials) {
			t.Errorf("%s/%s: err = %v", tc.user, tc.pass, err)
		}
	}

	u, err := f.svc.GetUser(ctx, created.ID)
	if err != nil || u.Username != "admin" {
		t.Errorf("GetUser = %+v, %v", u, err)
	}
}

func TestUpdateAndDeleteInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.customer(t, "Kamal", "0")
	f.invoice(t, "INV-1", c, day(2026, time.March, 1), "500")
	if _, err := f.svc.RecordPayment(ctx, "INV-1", core.PaymentInput{Amount: dec("200")}); err != nil {
		t.Fatal(err)
	}

	total := dec("150")
	if _, err := f.svc.UpdateInvoice(ctx, "INV-1", core.EditPatch{Total: &total}); !errors.Is(err, core.ErrTotalBelowPaid) {
		t.Errorf("err = %v, want ErrTotalBelowPaid", err)
	}
	total = dec("200")
	res, err := f.svc.UpdateInvoice(ctx, "INV-1", core.EditPatch{Total: &total})
	if err != nil {
		t.Fatal(err)
	}
	if res.Invoice.Status != core.StatusFullPaid || len(res.Invoice.Payments) != 1 {
		t.Errorf("after edit: %s payments %d", res.Invoice.Status, len(res.Invoice.Payments))
	}

	// The cached list must reflect the edit.
	list, err := f.svc.ListInvoices(ctx, app.InvoiceQuery{ShopID: "shop-1"})
	if err != nil || list.Page.Items[0].Status != core.StatusFullPaid {
		t.Errorf("list after edit = %+v, %v", list, err)
	}

	if err := f.svc.DeleteInvoice(ctx, "INV-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.GetInvoice(ctx, "INV-1"); !errors.Is(err, core.ErrRecordNotFound) {
		t.Errorf("err = %v", err)
	}
	list, _ = f.svc.ListInvoices(ctx, app.InvoiceQuery{ShopID: "shop-1"})
	if list.Page.TotalCount != 0 {
		t.Errorf("deleted invoice still listed")
	}
}
