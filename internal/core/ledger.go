package core

import (
	"slices"

	"github.com/shopspring/decimal"
)

// SortOrder is the direction for Sort.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// DefaultPageSize is used when a caller passes a page size below 1.
const DefaultPageSize = 10

// StatusFor is the single rule deriving an invoice status:
// fullpaid iff paid >= total, unpaid iff paid <= 0, halfpay otherwise.
func StatusFor(paid, total decimal.Decimal) InvoiceStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return StatusFullPaid
	case !paid.IsPositive():
		return StatusUnpaid
	default:
		return StatusHalfPay
	}
}

// Sort orders records by Date. It is stable in both directions: invoices sharing a timestamp keep
// their input order. The input slice is not modified.
func Sort(records []Invoice, order SortOrder) []Invoice {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b Invoice) int {
		c := a.Date.Compare(b.Date)
		if order == SortDescending {
			return -c
		}
		return c
	})
	return out
}

// Page is one page of a list view.
// DisplayStart and DisplayEnd are the literal 1-indexed positions shown; both are 0 when the page
// holds no items.
type Page[T any] struct {
	Items        []T `json:"items"`
	Page         int `json:"page"`
	PageSize     int `json:"page_size"`
	TotalCount   int `json:"total_count"`
	TotalPages   int `json:"total_pages"`
	DisplayStart int `json:"display_start"`
	DisplayEnd   int `json:"display_end"`
}

// Paginate slices items into 1-indexed pages. TotalPages is at least 1 even for empty input.
// A page outside 1..TotalPages yields an empty Items slice rather than an error; clamping is
// the caller's job.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	n := len(items)
	totalPages := (n + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   pageSize,
		TotalCount: n,
		TotalPages: totalPages,
	}
	if page < 1 {
		return p
	}
	start := (page - 1) * pageSize
	if start >= n {
		return p
	}
	end := min(page*pageSize, n)
	p.Items = slices.Clone(items[start:end])
	p.DisplayStart = start + 1
	p.DisplayEnd = end
	return p
}

// Stats are the aggregate figures shown above the invoice list.
type Stats struct {
	TotalCount    int `json:"total_count"`
	FullpaidCount int `json:"fullpaid_count"`
	HalfpayCount  int `json:"halfpay_count"`
	UnpaidCount   int `json:"unpaid_count"`
	// TotalRevenue is the sum of Total over fullpaid invoices.
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	// HalfpayOutstanding sums PaidAmount (not the remaining balance) over halfpay invoices.
	// This matches the figure the shop has always reported; see DESIGN.md before changing it.
	HalfpayOutstanding decimal.Decimal `json:"halfpay_outstanding"`
	// UnpaidTotal is the sum of Total over unpaid invoices.
	UnpaidTotal decimal.Decimal `json:"unpaid_total"`
}

// ComputeStatistics aggregates counts and totals by status.
func ComputeStatistics(records []Invoice) Stats {
	s := Stats{
		TotalCount:         len(records),
		TotalRevenue:       decimal.Zero,
		HalfpayOutstanding: decimal.Zero,
		UnpaidTotal:        decimal.Zero,
	}
	for _, inv := range records {
		switch inv.Status {
		case StatusFullPaid:
			s.FullpaidCount++
			s.TotalRevenue = s.TotalRevenue.Add(inv.Total)
		case StatusHalfPay:
			s.HalfpayCount++
			s.HalfpayOutstanding = s.HalfpayOutstanding.Add(inv.PaidAmount)
		case StatusUnpaid:
			s.UnpaidCount++
			s.UnpaidTotal = s.UnpaidTotal.Add(inv.Total)
		}
	}
	return s
}
