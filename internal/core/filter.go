package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateRange bounds an invoice date. Start is inclusive from midnight of its day, End is
// inclusive through 23:59:59.999 of its day. Nil bounds are open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// PriceRange bounds an invoice total. Min defaults to 0 and Max to +infinity.
type PriceRange struct {
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// FilterCriteria are AND-composed. Zero values impose no constraint: an empty Status or
// CustomerID (or the "all" sentinel), an empty SearchText, and nil range bounds never exclude
// anything.
type FilterCriteria struct {
	SearchText         string
	Status             InvoiceStatus
	CustomerID         string
	DateRange          DateRange
	PriceRange         PriceRange
	WarrantyIssuesOnly bool
	// AsOf is "today" for the warranty criterion; zero means time.Now().
	AsOf time.Time
}

// Filter returns the records matching every criterion, in input order. The input slice is not
// modified.
func Filter(records []Invoice, c FilterCriteria) []Invoice {
	search := strings.ToLower(strings.TrimSpace(c.SearchText))
	today := c.AsOf
	if today.IsZero() {
		today = time.Now()
	}

	var start, end time.Time
	if c.DateRange.Start != nil {
		start = startOfDay(*c.DateRange.Start)
	}
	if c.DateRange.End != nil {
		end = endOfDay(*c.DateRange.End)
	}

	out := make([]Invoice, 0, len(records))
	for _, inv := range records {
		if search != "" &&
			!strings.Contains(strings.ToLower(inv.ID), search) &&
			!strings.Contains(strings.ToLower(inv.CustomerName), search) {
			continue
		}
		if c.Status != "" && string(c.Status) != AllFilter && inv.Status != c.Status {
			continue
		}
		if c.CustomerID != "" && c.CustomerID != AllFilter && inv.CustomerID != c.CustomerID {
			continue
		}
		if c.DateRange.Start != nil && inv.Date.Before(start) {
			continue
		}
		if c.DateRange.End != nil && inv.Date.After(end) {
			continue
		}
		if c.PriceRange.Min != nil && inv.Total.LessThan(*c.PriceRange.Min) {
			continue
		}
		if c.PriceRange.Min == nil && inv.Total.IsNegative() {
			continue
		}
		if c.PriceRange.Max != nil && inv.Total.GreaterThan(*c.PriceRange.Max) {
			continue
		}
		if c.WarrantyIssuesOnly && !ClassifyWarranty(inv, today).HasIssues() {
			continue
		}
		out = append(out, inv)
	}
	return out
}
