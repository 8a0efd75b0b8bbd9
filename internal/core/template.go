package core

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is how dates appear in rendered reminders and invoices.
const DateLayout = "2006-01-02"

// DefaultReminderTemplate is used when the shop has not configured its own.
const DefaultReminderTemplate = `Dear {{customerName}},

This is a friendly reminder that invoice {{invoiceId}} has an outstanding balance.

Total: {{totalAmount}}
Paid: {{paidAmount}}
Due: {{dueAmount}}
Due date: {{dueDate}} ({{daysOverdue}} days overdue)

Thank you,
{{shopName}}
{{shopPhone}}
{{shopAddress}}
{{shopWebsite}}`

// DefaultInvoiceTemplate is the plain-text print layout for an invoice header.
const DefaultInvoiceTemplate = `{{shopName}}
{{shopAddress}} | {{shopPhone}} | {{shopWebsite}}

INVOICE {{invoiceId}}
Bill to: {{customerName}}
Due date: {{dueDate}}

Total: {{totalAmount}}
Paid: {{paidAmount}}
Balance due: {{dueAmount}}`

// RenderTemplate substitutes the known placeholders in tmpl with values from inv and shop.
// Placeholders it does not know are left in place.
func RenderTemplate(tmpl string, inv Invoice, shop ShopProfile, now time.Time) string {
	overdue := max(0, -DaysBetween(now, inv.DueDate))
	r := strings.NewReplacer(
		"{{customerName}}", inv.CustomerName,
		"{{invoiceId}}", inv.ID,
		"{{totalAmount}}", inv.Total.StringFixed(2),
		"{{paidAmount}}", inv.PaidAmount.StringFixed(2),
		"{{dueAmount}}", inv.DueAmount().StringFixed(2),
		"{{dueDate}}", inv.DueDate.In(now.Location()).Format(DateLayout),
		"{{daysOverdue}}", strconv.Itoa(overdue),
		"{{shopName}}", shop.Name,
		"{{shopPhone}}", shop.Phone,
		"{{shopAddress}}", shop.Address,
		"{{shopWebsite}}", shop.Website,
	)
	return r.Replace(tmpl)
}

// RenderLines appends one line per item to a rendered invoice header.
func RenderLines(inv Invoice) string {
	var b strings.Builder
	for i, item := range inv.Items {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(item.ProductName)
		b.WriteString(" x")
		b.WriteString(strconv.Itoa(item.Quantity))
		b.WriteString(" @ ")
		b.WriteString(item.UnitPrice.StringFixed(2))
		b.WriteString(" = ")
		b.WriteString(item.Total.StringFixed(2))
		if item.WarrantyDueDate != nil {
			b.WriteString(" (warranty until ")
			b.WriteString(item.WarrantyDueDate.Format(DateLayout))
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return b.String()
}
