package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shop-ledger/internal/ai"
	"shop-ledger/internal/core"

	"github.com/shopspring/decimal"
)

type monthArgs struct {
	Year  int `json:"year" jsonschema:"minimum=2000"`
	Month int `json:"month" jsonschema:"minimum=1,maximum=12"`
}

type customerArgs struct {
	CustomerID string `json:"customer_id"`
}

type customerInvoiceLine struct {
	ID        string             `json:"id"`
	Date      string             `json:"date"`
	DueDate   string             `json:"due_date"`
	Total     decimal.Decimal    `json:"total"`
	DueAmount decimal.Decimal    `json:"due_amount"`
	Status    core.InvoiceStatus `json:"status"`
	Reminders int                `json:"reminders"`
}

// summaryTools exposes read-only lookups over the snapshot the summary was built from.
func (s *appService) summaryTools(records []core.Invoice) *ai.ToolRegistry {
	reg := ai.NewToolRegistry()

	if schema, err := ai.SchemaFor[monthArgs](); err == nil {
		reg.Register(ai.ToolDefinition{
			Name:        "get_month_metrics",
			Description: "Ledger metrics for another calendar month, for comparison.",
			InputSchema: schema,
			Handler: func(_ context.Context, raw json.RawMessage) (string, error) {
				var args monthArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				if args.Month < 1 || args.Month > 12 {
					return "", fmt.Errorf("month must be 1-12, got %d", args.Month)
				}
				return marshalTool(core.MonthlyMetrics(records, args.Year, time.Month(args.Month)))
			},
		})
	}

	if schema, err := ai.SchemaFor[customerArgs](); err == nil {
		reg.Register(ai.ToolDefinition{
			Name:        "get_customer_invoices",
			Description: "Invoices of one customer, newest first, with remaining balances.",
			InputSchema: schema,
			Handler: func(_ context.Context, raw json.RawMessage) (string, error) {
				var args customerArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return "", fmt.Errorf("invalid arguments: %w", err)
				}
				invoices := customerInvoices(records, args.CustomerID)
				out := make([]customerInvoiceLine, len(invoices))
				for i, inv := range invoices {
					out[i] = customerInvoiceLine{
						ID:        inv.ID,
						Date:      inv.Date.Format(core.DateLayout),
						DueDate:   inv.DueDate.Format(core.DateLayout),
						Total:     inv.Total,
						DueAmount: inv.DueAmount(),
						Status:    inv.Status,
						Reminders: inv.ReminderCount,
					}
				}
				return marshalTool(out)
			},
		})
	}

	return reg
}

func marshalTool(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
