package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"moneytrace/internal/core"

	"github.com/spf13/cobra"
)

func billCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bill",
		Short: "Pay and list recurring bills",
	}
	cmd.AddCommand(payBillCmd(s))
	cmd.AddCommand(listBillsCmd(s))
	return cmd
}

func payBillCmd(s *session) *cobra.Command {
	var (
		userID, billID int64
		date, amount   string
		comments       string
	)
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Pay a bill, recording the operation from its template",
		RunE: func(cmd *cobra.Command, _ []string) error {
			paid, err := core.ParseAmount(amount)
			if err != nil {
				return err
			}
			day := core.DateOnly(time.Now())
			if date != "" {
				if day, err = parseDay(date); err != nil {
					return err
				}
			}

			app, err := s.open()
			if err != nil {
				return err
			}
			bill, op, err := app.Service.PayBill(cmd.Context(), userID, billID, day, paid, comments)
			if err != nil {
				return fmt.Errorf("failed to pay bill %d: %w", billID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bill %q paid with operation %d; next due %s for %s\n",
				bill.Name, op.ID, bill.NextDueDate.Format(time.DateOnly), core.FormatAmount(bill.NextDueAmount))
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "User ID")
	cmd.Flags().Int64Var(&billID, "bill", 0, "Bill ID")
	cmd.Flags().StringVar(&date, "date", "", "Payment date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount paid")
	cmd.Flags().StringVar(&comments, "comments", "", "Comments for the payment operation")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("bill")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func listBillsCmd(s *session) *cobra.Command {
	var (
		userID int64
		dueBy  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List enabled bills, optionally only those due by a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var until *time.Time
			if dueBy != "" {
				d, err := parseDay(dueBy)
				if err != nil {
					return err
				}
				until = &d
			}

			app, err := s.open()
			if err != nil {
				return err
			}
			bills, err := app.Service.ListBills(cmd.Context(), userID, until)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tFREQUENCY\tNEXT DUE\tAMOUNT")
			for _, b := range bills {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					b.ID, b.Name, b.PaymentFrequency, b.NextDueDate.Format(time.DateOnly), core.FormatAmount(b.NextDueAmount))
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "User ID")
	cmd.Flags().StringVar(&dueBy, "due-by", "", "Only bills due on or before YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
