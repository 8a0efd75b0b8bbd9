// Package cache keeps short-lived snapshots of the invoice and customer lists in front of a
// store. Reads are served from the snapshot until it expires or is invalidated; every write
// goes straight to the store and drops the affected snapshots.
package cache

import (
	"context"
	"sync"
	"time"

	"shop-ledger/internal/core"
	"shop-ledger/internal/metrics"
	"shop-ledger/internal/store"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultSize is the number of per-shop snapshots kept for each list.
const DefaultSize = 64

// Store wraps a store.Store with snapshot caching of ListInvoices and ListCustomers.
type Store struct {
	store.Store

	invoices  *expirable.LRU[string, []core.Invoice]
	customers *expirable.LRU[string, []core.Customer]
	metrics   *metrics.Metrics

	// mu orders snapshot fills against invalidation. A fill is only stored when no
	// invalidation of its list happened while it was reading the store.
	mu          sync.Mutex
	invoicesGen uint64
	customerGen uint64
}

var _ store.Store = (*Store)(nil)

// New wraps next. A ttl of zero keeps snapshots until they are invalidated. m may be nil.
func New(next store.Store, size int, ttl time.Duration, m *metrics.Metrics) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	return &Store{
		Store:     next,
		invoices:  expirable.NewLRU[string, []core.Invoice](size, nil, ttl),
		customers: expirable.NewLRU[string, []core.Customer](size, nil, ttl),
		metrics:   m,
	}
}

func (s *Store) observe(name string, hit bool) {
	if s.metrics == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	s.metrics.CacheLookups.WithLabelValues(name, result).Inc()
}

// Invalidate drops the snapshots for one shop and the all-shops snapshot.
func (s *Store) Invalidate(shopID string) {
	s.dropInvoices(shopID)
	s.dropCustomers(shopID)
}

// InvalidateAll drops every snapshot.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoicesGen++
	s.customerGen++
	s.invoices.Purge()
	s.customers.Purge()
}

func (s *Store) dropInvoices(shopID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoicesGen++
	s.invoices.Remove(shopID)
	s.invoices.Remove("")
}

func (s *Store) dropCustomers(shopID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customerGen++
	s.customers.Remove(shopID)
	s.customers.Remove("")
}

func (s *Store) ListInvoices(ctx context.Context, shopID string) ([]core.Invoice, error) {
	if cached, ok := s.invoices.Get(shopID); ok {
		s.observe("invoices", true)
		return cloneInvoices(cached), nil
	}
	s.observe("invoices", false)

	s.mu.Lock()
	gen := s.invoicesGen
	s.mu.Unlock()

	list, err := s.Store.ListInvoices(ctx, shopID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if gen == s.invoicesGen {
		s.invoices.Add(shopID, cloneInvoices(list))
	}
	s.mu.Unlock()
	return list, nil
}

func (s *Store) ListCustomers(ctx context.Context, shopID string) ([]core.Customer, error) {
	if cached, ok := s.customers.Get(shopID); ok {
		s.observe("customers", true)
		return cloneCustomers(cached), nil
	}
	s.observe("customers", false)

	s.mu.Lock()
	gen := s.customerGen
	s.mu.Unlock()

	list, err := s.Store.ListCustomers(ctx, shopID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if gen == s.customerGen {
		s.customers.Add(shopID, cloneCustomers(list))
	}
	s.mu.Unlock()
	return list, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv core.Invoice) (*core.Invoice, error) {
	out, err := s.Store.CreateInvoice(ctx, inv)
	if err == nil {
		s.Invalidate(out.ShopID)
	}
	return out, err
}

func (s *Store) UpdateInvoice(ctx context.Context, id string, patch core.EditPatch) (*core.Invoice, error) {
	out, err := s.Store.UpdateInvoice(ctx, id, patch)
	if err == nil {
		s.Invalidate(out.ShopID)
	}
	return out, err
}

// DeleteInvoice does not know the record's shop after the fact, so it drops every invoice
// snapshot.
func (s *Store) DeleteInvoice(ctx context.Context, id string) error {
	if err := s.Store.DeleteInvoice(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoicesGen++
	s.invoices.Purge()
	return nil
}

func (s *Store) AddPayment(ctx context.Context, id string, in core.PaymentInput) (*core.PaymentResult, error) {
	out, err := s.Store.AddPayment(ctx, id, in)
	if err == nil {
		s.Invalidate(out.Invoice.ShopID)
		if out.Customer != nil && out.Customer.ShopID != out.Invoice.ShopID {
			s.dropCustomers(out.Customer.ShopID)
		}
	}
	return out, err
}

func (s *Store) RecordReminder(ctx context.Context, id string, in core.ReminderInput) (*core.Invoice, error) {
	out, err := s.Store.RecordReminder(ctx, id, in)
	if err == nil {
		s.dropInvoices(out.ShopID)
	}
	return out, err
}

func (s *Store) CreateCustomer(ctx context.Context, c core.Customer) (*core.Customer, error) {
	out, err := s.Store.CreateCustomer(ctx, c)
	if err == nil {
		s.dropCustomers(out.ShopID)
	}
	return out, err
}

func cloneInvoices(in []core.Invoice) []core.Invoice {
	out := make([]core.Invoice, len(in))
	for i, inv := range in {
		out[i] = inv.Clone()
	}
	return out
}

func cloneCustomers(in []core.Customer) []core.Customer {
	out := make([]core.Customer, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
