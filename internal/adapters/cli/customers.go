package cli

import (
	"fmt"

	"shop-ledger/internal/core"

	"github.com/spf13/cobra"
)

func (r *runner) customersCmd() *cobra.Command {
	customers := &cobra.Command{Use: "customers", Short: "List and add customers"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List customers with their credit standing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := r.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.ListCustomers(cmd.Context(), r.shopID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if r.asJSON {
				return r.printJSON(out, res)
			}
			printCustomers(out, res.Customers)
			return nil
		},
	}

	var c core.Customer
	var credit string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a customer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bal, err := parseAmount("credit", credit)
			if err != nil {
				return err
			}
			if bal != nil {
				c.CreditBalance = *bal
			}
			c.ShopID = r.shopID
			svc, err := r.service(cmd)
			if err != nil {
				return err
			}
			res, err := svc.CreateCustomer(cmd.Context(), c)
			if err != nil {
				return err
			}
			if r.asJSON {
				return r.printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created customer %s (%s).\n", res.Customer.Name, res.Customer.ID)
			return nil
		},
	}
	add.Flags().StringVar(&c.Name, "name", "", "customer name")
	add.Flags().StringVar(&c.Phone, "phone", "", "phone number")
	add.Flags().StringVar(&c.Email, "email", "", "email address")
	add.Flags().StringVar(&c.Address, "address", "", "postal address")
	add.Flags().StringVar(&credit, "credit", "", "opening credit balance")
	_ = add.MarkFlagRequired("name")

	customers.AddCommand(list, add)
	return customers
}
