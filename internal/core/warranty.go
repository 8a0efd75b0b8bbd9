package core

import "time"

// WarrantyWindowDays is the look-ahead window, inclusive, for "expiring soon".
const WarrantyWindowDays = 30

// WarrantySummary counts the flagged warranty lines on one invoice.
type WarrantySummary struct {
	Expired      int `json:"expired"`
	ExpiringSoon int `json:"expiring_soon"`
}

// HasIssues reports whether any line is expired or expiring soon.
func (w WarrantySummary) HasIssues() bool {
	return w.Expired > 0 || w.ExpiringSoon > 0
}

// ClassifyWarranty counts expired and expiring-soon warranties on inv as of today.
// Comparison is by calendar day: a due date of today is expiring soon (0 days), yesterday is
// expired, and 31 days out is not flagged.
func ClassifyWarranty(inv Invoice, today time.Time) WarrantySummary {
	var s WarrantySummary
	for _, item := range inv.Items {
		if item.WarrantyDueDate == nil {
			continue
		}
		diff := DaysBetween(today, *item.WarrantyDueDate)
		switch {
		case diff < 0:
			s.Expired++
		case diff <= WarrantyWindowDays:
			s.ExpiringSoon++
		}
	}
	return s
}

// DaysBetween returns the number of calendar days from a to b (negative when b is earlier).
// Both instants are read as calendar dates in a's location, so a value stored in UTC lands on
// the day it falls on for the caller. Time of day and DST shifts never change the result.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// ParseDay reads a YYYY-MM-DD date as midnight in loc. Adapters pass time.Local so date-range
// bounds start at the shop's local midnight.
func ParseDay(v string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, v, loc)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
