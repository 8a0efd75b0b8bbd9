// Package cli is the operator command line. Every command calls the ApplicationService; nothing
// here touches a store directly.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"shop-ledger/internal/app"
	"shop-ledger/internal/core"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// Deps are resolved lazily so that commands such as migrate run without a full service.
type Deps struct {
	Service func(ctx context.Context) (app.ApplicationService, error)
	Migrate func(ctx context.Context) error
	// ShopID scopes list commands when --shop is not given.
	ShopID string
}

type runner struct {
	deps   Deps
	shopID string
	asJSON bool
}

func (r *runner) service(cmd *cobra.Command) (app.ApplicationService, error) {
	return r.deps.Service(cmd.Context())
}

// NewRootCmd builds the command tree.
func NewRootCmd(deps Deps) *cobra.Command {
	r := &runner{deps: deps}

	root := &cobra.Command{
		Use:   "shop-ledger",
		Short: "Invoices, payments and reminders for a computer shop",
		Long: `shop-ledger manages a shop's invoices, customer credit and payment reminders.

It runs against a local SQLite file, a Postgres database or a running shop-ledger
server, chosen with STORE_BACKEND.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&r.shopID, "shop", deps.ShopID, "shop id to scope lists to")
	root.PersistentFlags().BoolVar(&r.asJSON, "json", false, "print JSON instead of tables")

	root.AddCommand(
		r.invoicesCmd(),
		r.customersCmd(),
		r.statsCmd(),
		r.summaryCmd(),
		r.migrateCmd(),
		r.usersCmd(),
	)
	return root
}

func (r *runner) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *runner) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.deps.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
			return nil
		},
	}
}

func (r *runner) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ledger statistics and overdue totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := r.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.GetDashboard(cmd.Context(), r.shopID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if r.asJSON {
				return r.printJSON(out, res)
			}
			printDashboard(out, res)
			return nil
		},
	}
}

func (r *runner) summaryCmd() *cobra.Command {
	var year, month int
	var narrative bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Aggregate one calendar month, optionally with an AI narrative",
		Example: `  shop-ledger summary --year 2026 --month 3
  shop-ledger summary --narrative`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if month < 1 || month > 12 {
				return fmt.Errorf("--month must be 1-12 (got %d)", month)
			}
			svc, err := r.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.GetMonthlySummary(cmd.Context(), app.MonthlySummaryRequest{
				ShopID:        r.shopID,
				Year:          year,
				Month:         time.Month(month),
				WithNarrative: narrative,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if r.asJSON {
				return r.printJSON(out, res)
			}
			printSummary(out, res)
			return nil
		},
	}
	now := time.Now()
	cmd.Flags().IntVar(&year, "year", now.Year(), "calendar year")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "calendar month (1-12)")
	cmd.Flags().BoolVar(&narrative, "narrative", false, "ask the AI agent for a written summary")
	return cmd
}

func (r *runner) usersCmd() *cobra.Command {
	users := &cobra.Command{Use: "users", Short: "Manage back-office users"}

	var req app.CreateUserRequest
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := r.service(cmd)
			if err != nil {
				return err
			}
			if req.ShopID == "" {
				req.ShopID = r.shopID
			}
			u, err := svc.CreateUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if r.asJSON {
				return r.printJSON(out, u)
			}
			fmt.Fprintf(out, "Created %s user %q (id %d).\n", u.Role, u.Username, u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&req.Username, "username", "", "login name")
	add.Flags().StringVar(&req.Email, "email", "", "email address")
	add.Flags().StringVar(&req.Password, "password", "", "password (at least 8 characters)")
	add.Flags().StringVar(&req.Role, "role", core.RoleStaff, "admin or staff")
	add.Flags().StringVar(&req.ShopID, "user-shop", "", "shop the user belongs to (defaults to --shop)")
	_ = add.MarkFlagRequired("username")
	_ = add.MarkFlagRequired("password")

	users.AddCommand(add)
	return users
}

func parseDate(flag, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := core.ParseDay(v, time.Local)
	if err != nil {
		return nil, fmt.Errorf("--%s must be YYYY-MM-DD (got %q)", flag, v)
	}
	return &t, nil
}

func parseAmount(flag, v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return nil, fmt.Errorf("--%s must be a number (got %q)", flag, v)
	}
	return &d, nil
}
