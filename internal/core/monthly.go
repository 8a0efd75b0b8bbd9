package core

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// TopN bounds the customer and product rankings in a MonthSummary.
const TopN = 5

// RankedAmount is one row of a ranking.
type RankedAmount struct {
	Key    string          `json:"key"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// MonthSummary is the aggregated input to the monthly business narrative.
type MonthSummary struct {
	Year          int                        `json:"year"`
	Month         time.Month                 `json:"month"`
	InvoiceCount  int                        `json:"invoice_count"`
	Billed        decimal.Decimal            `json:"billed"`
	Collected     decimal.Decimal            `json:"collected"`
	Outstanding   decimal.Decimal            `json:"outstanding"`
	AverageTicket decimal.Decimal            `json:"average_ticket"`
	Stats         Stats                      `json:"stats"`
	TopCustomers  []RankedAmount             `json:"top_customers"`
	TopProducts   []RankedAmount             `json:"top_products"`
	ByMethod      map[string]decimal.Decimal `json:"by_method"`
	Warranty      WarrantySummary            `json:"warranty"`
}

// MonthlyMetrics aggregates the invoices dated in the given month. Collected counts payments dated
// in the month regardless of when the invoice was raised. Warranty issues are classified as of the
// last day of the month.
func MonthlyMetrics(records []Invoice, year int, month time.Month) MonthSummary {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)
	inMonth := func(t time.Time) bool {
		y, m, _ := t.Date()
		return y == year && m == month
	}

	s := MonthSummary{
		Year:          year,
		Month:         month,
		Billed:        decimal.Zero,
		Collected:     decimal.Zero,
		Outstanding:   decimal.Zero,
		AverageTicket: decimal.Zero,
		ByMethod:      map[string]decimal.Decimal{},
	}

	customers := map[string]*RankedAmount{}
	products := map[string]*RankedAmount{}
	var customerOrder, productOrder []string
	var dated []Invoice
	asOf := next.AddDate(0, 0, -1)

	for _, inv := range records {
		for _, p := range inv.Payments {
			if !inMonth(p.PaymentDate) {
				continue
			}
			s.Collected = s.Collected.Add(p.Amount)
			method := p.PaymentMethod
			if method == "" {
				method = "unspecified"
			}
			s.ByMethod[method] = s.ByMethod[method].Add(p.Amount)
		}

		if !inMonth(inv.Date) {
			continue
		}
		dated = append(dated, inv)
		s.Billed = s.Billed.Add(inv.Total)
		s.Outstanding = s.Outstanding.Add(inv.DueAmount())

		w := ClassifyWarranty(inv, asOf)
		s.Warranty.Expired += w.Expired
		s.Warranty.ExpiringSoon += w.ExpiringSoon

		c, ok := customers[inv.CustomerID]
		if !ok {
			c = &RankedAmount{Key: inv.CustomerID, Name: inv.CustomerName, Amount: decimal.Zero}
			customers[inv.CustomerID] = c
			customerOrder = append(customerOrder, inv.CustomerID)
		}
		c.Amount = c.Amount.Add(inv.Total)
		c.Count++

		for _, item := range inv.Items {
			key := item.ProductID
			if key == "" {
				key = item.ProductName
			}
			p, ok := products[key]
			if !ok {
				p = &RankedAmount{Key: key, Name: item.ProductName, Amount: decimal.Zero}
				products[key] = p
				productOrder = append(productOrder, key)
			}
			p.Amount = p.Amount.Add(item.Total)
			p.Count += item.Quantity
		}
	}

	s.InvoiceCount = len(dated)
	s.Stats = ComputeStatistics(dated)
	if s.InvoiceCount > 0 {
		s.AverageTicket = s.Billed.Div(decimal.NewFromInt(int64(s.InvoiceCount))).Round(2)
	}
	s.TopCustomers = rank(customers, customerOrder)
	s.TopProducts = rank(products, productOrder)
	return s
}

// rank orders by amount descending; ties keep first-seen order.
func rank(m map[string]*RankedAmount, order []string) []RankedAmount {
	out := make([]RankedAmount, 0, len(order))
	for _, k := range order {
		out = append(out, *m[k])
	}
	slices.SortStableFunc(out, func(a, b RankedAmount) int {
		return b.Amount.Cmp(a.Amount)
	})
	if len(out) > TopN {
		out = out[:TopN]
	}
	return out
}
