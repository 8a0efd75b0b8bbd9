package cli

import (
	"fmt"
	"io"
	"strings"

	"shop-ledger/internal/app"
	"shop-ledger/internal/core"
)

func rule(w io.Writer, ch string, n int) {
	fmt.Fprintln(w, strings.Repeat(ch, n))
}

func printInvoiceList(w io.Writer, res *app.InvoiceListResult) {
	p := res.Page
	fmt.Fprintln(w)
	rule(w, "=", 86)
	fmt.Fprintf(w, "  INVOICES  %d-%d of %d (page %d/%d)\n", p.DisplayStart, p.DisplayEnd, p.TotalCount, p.Page, p.TotalPages)
	rule(w, "=", 86)
	if len(p.Items) == 0 {
		fmt.Fprintln(w, "  No invoices found.")
		rule(w, "=", 86)
		return
	}
	fmt.Fprintf(w, "  %-20s %-10s %-22s %12s %12s  %-8s %s\n", "ID", "DATE", "CUSTOMER", "TOTAL", "DUE", "STATUS", "")
	rule(w, "-", 86)
	for _, inv := range p.Items {
		badge := ""
		switch {
		case inv.Warranty.Expired > 0:
			badge = "warranty expired"
		case inv.Warranty.ExpiringSoon > 0:
			badge = "warranty expiring"
		}
		fmt.Fprintf(w, "  %-20s %-10s %-22s %12s %12s  %-8s %s\n",
			inv.ID, inv.Date.Format(core.DateLayout), truncate(inv.CustomerName, 22),
			inv.Total.StringFixed(2), inv.DueAmount.StringFixed(2), inv.Status, badge)
	}
	rule(w, "-", 86)
	printStats(w, res.Stats)
	rule(w, "=", 86)
}

func printStats(w io.Writer, s core.Stats) {
	fmt.Fprintf(w, "  Invoices %d  fullpaid %d  halfpay %d  unpaid %d\n",
		s.TotalCount, s.FullpaidCount, s.HalfpayCount, s.UnpaidCount)
	fmt.Fprintf(w, "  Revenue %s  half-paid received %s  unpaid %s\n",
		s.TotalRevenue.StringFixed(2), s.HalfpayOutstanding.StringFixed(2), s.UnpaidTotal.StringFixed(2))
}

func printDashboard(w io.Writer, res *app.DashboardResult) {
	fmt.Fprintln(w)
	rule(w, "=", 62)
	fmt.Fprintf(w, "  LEDGER AS OF %s\n", res.AsOf.Format(core.DateLayout))
	rule(w, "=", 62)
	printStats(w, res.Stats)
	fmt.Fprintf(w, "  Overdue %d invoices, %s due\n", res.OverdueCount, res.OverdueAmount.StringFixed(2))
	fmt.Fprintf(w, "  Warranties expired %d, expiring soon %d\n", res.WarrantyExpired, res.WarrantyExpiringSoon)
	if len(res.Recent) > 0 {
		rule(w, "-", 62)
		for _, inv := range res.Recent {
			fmt.Fprintf(w, "  %-20s %-22s %12s  %s\n",
				inv.ID, truncate(inv.CustomerName, 22), inv.Total.StringFixed(2), inv.Status)
		}
	}
	rule(w, "=", 62)
}

func printSummary(w io.Writer, res *app.MonthlySummaryResult) {
	m := res.Metrics
	fmt.Fprintln(w)
	rule(w, "=", 62)
	fmt.Fprintf(w, "  %s %d\n", strings.ToUpper(m.Month.String()), m.Year)
	rule(w, "=", 62)
	fmt.Fprintf(w, "  Invoices     %d\n", m.InvoiceCount)
	fmt.Fprintf(w, "  Billed       %s\n", m.Billed.StringFixed(2))
	fmt.Fprintf(w, "  Collected    %s\n", m.Collected.StringFixed(2))
	fmt.Fprintf(w, "  Outstanding  %s\n", m.Outstanding.StringFixed(2))
	fmt.Fprintf(w, "  Avg ticket   %s\n", m.AverageTicket.StringFixed(2))
	for _, c := range m.TopCustomers {
		fmt.Fprintf(w, "  top customer %-22s %12s\n", truncate(c.Name, 22), c.Amount.StringFixed(2))
	}

	switch {
	case res.Narrative != nil:
		n := res.Narrative
		rule(w, "-", 62)
		fmt.Fprintf(w, "  %s\n", n.Headline)
		for _, group := range []struct {
			title string
			lines []string
		}{{"Highlights", n.Highlights}, {"Concerns", n.Concerns}, {"Recommendations", n.Recommendations}} {
			if len(group.lines) == 0 {
				continue
			}
			fmt.Fprintf(w, "  %s:\n", group.title)
			for _, l := range group.lines {
				fmt.Fprintf(w, "    - %s\n", l)
			}
		}
		fmt.Fprintf(w, "  Collection outlook: %s\n", n.CollectionOutlook)
	case res.NarrativeError != "":
		rule(w, "-", 62)
		fmt.Fprintf(w, "  Narrative unavailable: %s\n", res.NarrativeError)
	}
	rule(w, "=", 62)
}

func printCustomers(w io.Writer, customers []core.Customer) {
	fmt.Fprintln(w)
	rule(w, "=", 78)
	fmt.Fprintln(w, "  CUSTOMERS")
	rule(w, "=", 78)
	if len(customers) == 0 {
		fmt.Fprintln(w, "  No customers found.")
		rule(w, "=", 78)
		return
	}
	fmt.Fprintf(w, "  %-36s %-22s %-14s %12s\n", "ID", "NAME", "PHONE", "CREDIT")
	rule(w, "-", 78)
	for _, c := range customers {
		fmt.Fprintf(w, "  %-36s %-22s %-14s %12s %s\n",
			c.ID, truncate(c.Name, 22), c.Phone, c.CreditBalance.StringFixed(2), c.CreditStatus)
	}
	rule(w, "=", 78)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
