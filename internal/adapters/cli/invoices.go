package cli

import (
	"fmt"
	"strings"

	"shop-ledger/internal/app"
	"shop-ledger/internal/core"

	"github.com/spf13/cobra"
)

func (r *runner) invoicesCmd() *cobra.Command {
	invoices := &cobra.Command{
		Use:     "invoices",
		Aliases: []string{"inv"},
		Short:   "List, pay, remind and print invoices",
	}
	invoices.AddCommand(
		r.invoicesListCmd(),
		r.invoicesPayCmd(),
		r.invoicesRemindCmd(),
		r.invoicesRenderCmd(),
	)
	return invoices
}

func (r *runner) invoicesListCmd() *cobra.Command {
	var (
		q          app.InvoiceQuery
		status     string
		sort       string
		from, to   string
		minT, maxT string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices with filters and paging",
		Example: `  shop-ledger invoices list --search acm
  shop-ledger invoices list --status halfpay --from 2026-01-10 --sort asc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if status != "" && status != core.AllFilter {
				q.Status = core.InvoiceStatus(strings.ToLower(status))
				if !q.Status.Valid() {
					return fmt.Errorf("--status must be unpaid, halfpay, fullpaid or all (got %q)", status)
				}
			}
			switch s := core.SortOrder(strings.ToLower(sort)); s {
			case core.SortAscending, core.SortDescending:
				q.Sort = s
			default:
				return fmt.Errorf("--sort must be asc or desc (got %q)", sort)
			}
			if q.From, err = parseDate("from", from); err != nil {
				return err
			}
			if q.To, err = parseDate("to", to); err != nil {
				return err
			}
			if q.MinTotal, err = parseAmount("min", minT); err != nil {
				return err
			}
			if q.MaxTotal, err = parseAmount("max", maxT); err != nil {
				return err
			}
			q.ShopID = r.shopID

			svc, err := r.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.ListInvoices(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if r.asJSON {
				return r.printJSON(out, res)
			}
			printInvoiceList(out, res)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.Search, "search", "", "match invoice id or customer name")
	f.StringVar(&status, "status", "", "unpaid, halfpay, fullpaid or all")
	f.StringVar(&q.CustomerID, "customer", "", "customer id")
	f.StringVar(&from, "from", "", "earliest invoice date (YYYY-MM-DD)")
	f.StringVar(&to, "to", "", "latest invoice date (YYYY-MM-DD)")
	f.StringVar(&minT, "min", "", "minimum total")
	f.StringVar(&maxT, "max", "", "maximum total")
	f.BoolVar(&q.WarrantyIssuesOnly, "warranty-issues", false, "only invoices with expired or expiring warranties")
	f.StringVar(&sort, "sort", string(core.SortDescending), "asc or desc by invoice date")
	f.IntVar(&q.Page, "page", 1, "page number")
	f.IntVar(&q.PageSize, "page-size", core.DefaultPageSize, "rows per page")
	return cmd
}

func (r *runner) invoicesPayCmd() *cobra.Command {
	var (
		in     core.PaymentInput
		amount string
		date   string
	)
	cmd := &cobra.Command{
		Use:   "pay <invoice-id>",
		Short: "Record a payment against an invoice",
		Long: `Record a payment. An amount above the remaining balance is accepted; only the
balance is applied and the tendered amount is kept on the payment.`,
		Example: `  shop-ledger invoices pay INV-20260315-0001 --amount 400 --method cash`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := parseAmount("amount", amount)
			if err != nil {
				return err
			}
			if amt == nil {
				return fmt.Errorf("--amount is required")
			}
			in.Amount = *amt
			if in.Date, err = parseDate("date", date); err != nil {
				return err
			}
			svc, err := r.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.RecordPayment(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if r.asJSON {
				return r.printJSON(out, res)
			}
			fmt.Fprintf(out, "Applied %s to %s. Paid %s of %s, due %s (%s).\n",
				res.Applied.StringFixed(2), res.Invoice.ID,
				res.Invoice.PaidAmount.StringFixed(2), res.Invoice.Total.StringFixed(2),
				res.Invoice.DueAmount.StringFixed(2), res.Invoice.Status)
			if res.Customer != nil {
				fmt.Fprintf(out, "Customer %s credit balance: %s (%s).\n",
					res.Customer.Name, res.Customer.CreditBalance.StringFixed(2), res.Customer.CreditStatus)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "amount paid")
	cmd.Flags().StringVar(&in.Method, "method", "cash", "payment method")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "free-text notes")
	cmd.Flags().StringVar(&date, "date", "", "payment date (YYYY-MM-DD, default now)")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (r *runner) invoicesRemindCmd() *cobra.Command {
	var req app.SendReminderRequest
	cmd := &cobra.Command{
		Use:   "remind <invoice-id>",
		Short: "Record a payment reminder and hand it to a delivery channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.InvoiceID = args[0]
			svc, err := r.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.SendReminder(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if r.asJSON {
				return r.printJSON(out, res)
			}
			fmt.Fprintf(out, "Reminder %d recorded for %s.\n", res.Invoice.ReminderCount, res.Invoice.ID)
			switch {
			case res.DeliveryError != "":
				fmt.Fprintf(out, "Delivery failed: %s\n", res.DeliveryError)
			case res.Receipt != nil && res.Receipt.URL != "":
				fmt.Fprintf(out, "Open to send: %s\n", res.Receipt.URL)
			case res.Receipt != nil && res.Receipt.Queued:
				fmt.Fprintf(out, "Queued on %s.\n", res.Receipt.Channel)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Channel, "channel", "whatsapp", "delivery channel")
	cmd.Flags().StringVar(&req.Message, "message", "", "message text (default: rendered template)")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "override the customer's phone")
	cmd.Flags().BoolVar(&req.Deliver, "deliver", true, "hand the reminder to the channel after recording it")
	return cmd
}

func (r *runner) invoicesRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render <invoice-id>",
		Short: "Print the invoice as text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.RenderInvoice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if r.asJSON {
				return r.printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}
}
