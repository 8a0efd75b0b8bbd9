package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"shop-ledger/internal/ai"
	"shop-ledger/internal/core"
	"shop-ledger/internal/events"
	"shop-ledger/internal/metrics"
	"shop-ledger/internal/notify"
	"shop-ledger/internal/store"

	"github.com/shopspring/decimal"
)

// recentLimit is how many of the newest invoices the dashboard shows.
const recentLimit = 5

// Invalidator drops cached snapshots. *cache.Store satisfies it.
type Invalidator interface {
	Invalidate(shopID string)
	InvalidateAll()
}

// Deps are the collaborators of the application service. Store is required; the rest may be
// left nil and fall back to no-ops.
type Deps struct {
	Store            store.Store
	Cache            Invalidator
	Events           events.Publisher
	Notifier         notify.Dispatcher
	Agent            ai.Summarizer
	Metrics          *metrics.Metrics
	Shop             core.ShopProfile
	ReminderTemplate string
	Now              func() time.Time
}

type appService struct {
	store            store.Store
	cache            Invalidator
	events           events.Publisher
	notifier         notify.Dispatcher
	agent            ai.Summarizer
	metrics          *metrics.Metrics
	shop             core.ShopProfile
	reminderTemplate string
	now              func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(d Deps) ApplicationService {
	s := &appService{
		store:            d.Store,
		cache:            d.Cache,
		events:           d.Events,
		notifier:         d.Notifier,
		agent:            d.Agent,
		metrics:          d.Metrics,
		shop:             d.Shop,
		reminderTemplate: d.ReminderTemplate,
		now:              d.Now,
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	if s.reminderTemplate == "" {
		s.reminderTemplate = core.DefaultReminderTemplate
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ListInvoices filters, sorts and paginates the shop's invoices.
func (s *appService) ListInvoices(ctx context.Context, q InvoiceQuery) (*InvoiceListResult, error) {
	records, err := s.store.ListInvoices(ctx, q.ShopID)
	if err != nil {
		return nil, err
	}
	today := s.now()

	filtered := core.Filter(records, core.FilterCriteria{
		SearchText:         q.Search,
		Status:             q.Status,
		CustomerID:         q.CustomerID,
		DateRange:          core.DateRange{Start: q.From, End: q.To},
		PriceRange:         core.PriceRange{Min: q.MinTotal, Max: q.MaxTotal},
		WarrantyIssuesOnly: q.WarrantyIssuesOnly,
		AsOf:               today,
	})

	order := q.Sort
	if order == "" {
		order = core.SortDescending
	}
	sorted := core.Sort(filtered, order)

	page := q.Page
	if page == 0 {
		page = 1
	}
	return &InvoiceListResult{
		Page:  core.Paginate(views(sorted, today), page, q.PageSize),
		Stats: core.ComputeStatistics(filtered),
	}, nil
}

// SyncInvoices returns the raw snapshot of a shop's invoices.
func (s *appService) SyncInvoices(ctx context.Context, shopID string) ([]core.Invoice, error) {
	return s.store.ListInvoices(ctx, shopID)
}

// GetInvoice returns one invoice.
func (s *appService) GetInvoice(ctx context.Context, id string) (*InvoiceResult, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: view(*inv, s.now())}, nil
}

// CreateInvoice validates and stores a new invoice.
func (s *appService) CreateInvoice(ctx context.Context, in core.Invoice) (*InvoiceResult, error) {
	if in.CustomerID != "" && strings.TrimSpace(in.CustomerName) == "" {
		if c, err := s.store.GetCustomer(ctx, in.CustomerID); err == nil {
			in.CustomerName = c.Name
		}
	}
	inv, err := s.store.CreateInvoice(ctx, in)
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, events.InvoiceCreated, inv.ID, inv.ShopID, inv)
	return &InvoiceResult{Invoice: view(*inv, s.now())}, nil
}

// UpdateInvoice applies an edit.
func (s *appService) UpdateInvoice(ctx context.Context, id string, patch core.EditPatch) (*InvoiceResult, error) {
	inv, err := s.store.UpdateInvoice(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, events.InvoiceUpdated, inv.ID, inv.ShopID, inv)
	return &InvoiceResult{Invoice: view(*inv, s.now())}, nil
}

// DeleteInvoice removes an invoice.
func (s *appService) DeleteInvoice(ctx context.Context, id string) error {
	if err := s.store.DeleteInvoice(ctx, id); err != nil {
		return err
	}
	s.afterWrite(ctx, events.InvoiceDeleted, id, "", nil)
	return nil
}

// RecordPayment applies a payment and syncs the linked customer's credit.
func (s *appService) RecordPayment(ctx context.Context, id string, in core.PaymentInput) (*PaymentResult, error) {
	res, err := s.store.AddPayment(ctx, id, in)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		method := in.Method
		if method == "" {
			method = "unspecified"
		}
		s.metrics.Payments.WithLabelValues(method, string(res.Invoice.Status)).Inc()
		s.metrics.PaymentAmount.Add(res.Applied.InexactFloat64())
	}
	s.afterWrite(ctx, events.PaymentApplied, res.Invoice.ID, res.Invoice.ShopID, res)
	return &PaymentResult{
		Invoice:  view(res.Invoice, s.now()),
		Customer: res.Customer,
		Applied:  res.Applied,
	}, nil
}

// SendReminder records the reminder first so a delivery failure never loses it.
func (s *appService) SendReminder(ctx context.Context, req SendReminderRequest) (*ReminderResult, error) {
	channel := strings.ToLower(strings.TrimSpace(req.Channel))
	if channel == "" {
		channel = notify.ChannelWhatsApp
	}

	inv, err := s.store.GetInvoice(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	phone := req.Phone
	if phone == "" && inv.CustomerID != "" {
		c, err := s.store.GetCustomer(ctx, inv.CustomerID)
		switch {
		case err == nil:
			phone = c.Phone
		case errors.Is(err, core.ErrRecordNotFound):
		default:
			return nil, err
		}
	}

	message := req.Message
	if strings.TrimSpace(message) == "" {
		tmpl := req.Template
		if tmpl == "" {
			tmpl = s.reminderTemplate
		}
		message = core.RenderTemplate(tmpl, *inv, s.shop, s.now())
	}

	updated, err := s.store.RecordReminder(ctx, inv.ID, core.ReminderInput{
		Channel:       channel,
		Message:       message,
		CustomerPhone: phone,
		CustomerName:  inv.CustomerName,
		SentAt:        req.SentAt,
	})
	if err != nil {
		return nil, err
	}
	s.countReminder(channel, "recorded")
	s.afterWrite(ctx, events.ReminderRecorded, updated.ID, updated.ShopID, updated)

	result := &ReminderResult{Invoice: view(*updated, s.now()), Message: message}
	if !req.Deliver {
		return result, nil
	}
	if s.notifier == nil {
		result.DeliveryError = "no delivery channel configured"
		s.countReminder(channel, "failed")
		return result, nil
	}
	receipt, err := s.notifier.Dispatch(ctx, notify.Message{
		InvoiceID:    updated.ID,
		ShopID:       updated.ShopID,
		Channel:      channel,
		Phone:        phone,
		CustomerName: updated.CustomerName,
		Body:         message,
	})
	if err != nil {
		slog.WarnContext(ctx, "reminder delivery failed", "invoice_id", updated.ID, "channel", channel, "error", err)
		result.DeliveryError = err.Error()
		s.countReminder(channel, "failed")
		return result, nil
	}
	s.countReminder(channel, "delivered")
	result.Receipt = &receipt
	return result, nil
}

// RenderInvoice renders the printable text of an invoice.
func (s *appService) RenderInvoice(ctx context.Context, id string) (*RenderResult, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	text := core.RenderTemplate(core.DefaultInvoiceTemplate, *inv, s.shop, s.now())
	if lines := core.RenderLines(*inv); lines != "" {
		text += "\n\n" + lines
	}
	return &RenderResult{InvoiceID: inv.ID, Text: text}, nil
}

// ListCustomers returns the shop's customers.
func (s *appService) ListCustomers(ctx context.Context, shopID string) (*CustomerListResult, error) {
	customers, err := s.store.ListCustomers(ctx, shopID)
	if err != nil {
		return nil, err
	}
	return &CustomerListResult{Customers: customers}, nil
}

// GetCustomer returns one customer.
func (s *appService) GetCustomer(ctx context.Context, id string) (*CustomerResult, error) {
	c, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CustomerResult{Customer: c}, nil
}

// CreateCustomer validates and stores a new customer.
func (s *appService) CreateCustomer(ctx context.Context, in core.Customer) (*CustomerResult, error) {
	c, err := s.store.CreateCustomer(ctx, in)
	if err != nil {
		return nil, err
	}
	return &CustomerResult{Customer: c}, nil
}

// GetDashboard computes statistics over the whole shop snapshot.
func (s *appService) GetDashboard(ctx context.Context, shopID string) (*DashboardResult, error) {
	records, err := s.store.ListInvoices(ctx, shopID)
	if err != nil {
		return nil, err
	}
	today := s.now()

	d := &DashboardResult{
		Stats:         core.ComputeStatistics(records),
		OverdueAmount: decimal.Zero,
		AsOf:          today,
	}
	for _, inv := range records {
		w := core.ClassifyWarranty(inv, today)
		d.WarrantyExpired += w.Expired
		d.WarrantyExpiringSoon += w.ExpiringSoon
		if inv.Status != core.StatusFullPaid && core.DaysBetween(today, inv.DueDate) < 0 {
			d.OverdueCount++
			d.OverdueAmount = d.OverdueAmount.Add(inv.DueAmount())
		}
	}
	sorted := core.Sort(records, core.SortDescending)
	d.Recent = views(sorted[:min(recentLimit, len(sorted))], today)
	return d, nil
}

// GetMonthlySummary aggregates one calendar month and optionally asks the agent for a narrative.
// A narrative failure is reported in the result, not as an error.
func (s *appService) GetMonthlySummary(ctx context.Context, req MonthlySummaryRequest) (*MonthlySummaryResult, error) {
	if req.Month < time.January || req.Month > time.December {
		return nil, fmt.Errorf("invalid month %d", req.Month)
	}
	records, err := s.store.ListInvoices(ctx, req.ShopID)
	if err != nil {
		return nil, err
	}
	result := &MonthlySummaryResult{Metrics: core.MonthlyMetrics(records, req.Year, req.Month)}
	if !req.WithNarrative {
		return result, nil
	}
	if s.agent == nil {
		result.NarrativeError = "AI summary is not configured"
		return result, nil
	}
	narrative, err := s.agent.SummarizeMonth(ctx, result.Metrics, s.summaryTools(records))
	if err != nil {
		slog.WarnContext(ctx, "monthly summary failed", "year", req.Year, "month", int(req.Month), "error", err)
		result.NarrativeError = err.Error()
		return result, nil
	}
	result.Narrative = narrative
	return result, nil
}

// Refresh drops cached snapshots.
func (s *appService) Refresh(shopID string) {
	if s.cache == nil {
		return
	}
	if shopID == "" {
		s.cache.InvalidateAll()
		return
	}
	s.cache.Invalidate(shopID)
}

// AuthenticateUser verifies credentials and returns a session on success.
func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.store.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			return nil, store.ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, store.ErrInvalidCredentials
	}
	if err := store.CheckPassword(u, password); err != nil {
		return nil, err
	}
	return &UserSession{UserID: u.ID, ShopID: u.ShopID, Username: u.Username, Role: u.Role}, nil
}

// GetUser returns user profile by ID.
func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userResult(u), nil
}

// CreateUser registers a back-office user.
func (s *appService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResult, error) {
	u, err := s.store.CreateUser(ctx, core.User{
		ShopID:   req.ShopID,
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
	}, req.Password)
	if err != nil {
		return nil, err
	}
	return userResult(u), nil
}

// ── private helpers ───────────────────────────────────────────────────────────

// afterWrite publishes the change. The store write has already succeeded, so a publish failure
// is logged and swallowed.
func (s *appService) afterWrite(ctx context.Context, t events.Type, invoiceID, shopID string, data any) {
	if err := s.events.Publish(ctx, events.NewEvent(t, invoiceID, shopID, data)); err != nil {
		slog.WarnContext(ctx, "failed to publish ledger event", "type", t, "invoice_id", invoiceID, "error", err)
	}
}

func (s *appService) countReminder(channel, outcome string) {
	if s.metrics != nil {
		s.metrics.Reminders.WithLabelValues(channel, outcome).Inc()
	}
}

func view(inv core.Invoice, today time.Time) InvoiceView {
	return InvoiceView{
		Invoice:   inv,
		DueAmount: inv.DueAmount(),
		Warranty:  core.ClassifyWarranty(inv, today),
	}
}

func views(records []core.Invoice, today time.Time) []InvoiceView {
	out := make([]InvoiceView, len(records))
	for i, inv := range records {
		out[i] = view(inv, today)
	}
	return out
}

func userResult(u *core.User) *UserResult {
	return &UserResult{ID: u.ID, ShopID: u.ShopID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// customerInvoices returns the customer's invoices, newest first.
func customerInvoices(records []core.Invoice, customerID string) []core.Invoice {
	out := slices.DeleteFunc(slices.Clone(records), func(inv core.Invoice) bool {
		return inv.CustomerID != customerID
	})
	return core.Sort(out, core.SortDescending)
}
