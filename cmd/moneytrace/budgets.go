package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"moneytrace/internal/cli"
	"moneytrace/internal/core"
	"moneytrace/internal/worker"

	"github.com/spf13/cobra"
)

func budgetCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Create budgets and compare them with actual spending",
	}
	cmd.AddCommand(createBudgetCmd(s))
	cmd.AddCommand(budgetReportCmd(s))
	cmd.AddCommand(nextBudgetCmd(s))
	return cmd
}

func createBudgetCmd(s *session) *cobra.Command {
	var (
		b          core.Budget
		amount     string
		start, end string
		frequency  string
		envelopes  []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a budget window with per-category envelopes",
		Example: `  moneytrace budget create --user 1 --name March --amount 500 \
    --start 2024-03-01 --end 2024-03-31 --envelope 3=300 --envelope 4=200`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if b.Amount, err = core.ParseAmount(amount); err != nil {
				return err
			}
			if b.StartDate, err = parseDay(start); err != nil {
				return err
			}
			if b.EndDate, err = parseDay(end); err != nil {
				return err
			}
			b.Frequency = core.Frequency(frequency)
			if b.Categories, err = parseEnvelopes(envelopes); err != nil {
				return err
			}

			app, err := s.open()
			if err != nil {
				return err
			}
			created, err := app.Service.CreateBudget(cmd.Context(), b)
			if err != nil {
				return fmt.Errorf("failed to create budget: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "budget %d created: %s %s..%s\n", created.ID, created.Name,
				created.StartDate.Format(time.DateOnly), created.EndDate.Format(time.DateOnly))
			return nil
		},
	}
	cmd.Flags().Int64Var(&b.UserID, "user", 0, "User ID")
	cmd.Flags().StringVar(&b.Name, "name", "", "Budget name")
	cmd.Flags().StringVar(&amount, "amount", "", "Total budgeted amount")
	cmd.Flags().StringVar(&start, "start", "", "First day YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "Last day YYYY-MM-DD")
	cmd.Flags().StringVar(&frequency, "frequency", string(core.Monthly), "Period of the successor budget")
	cmd.Flags().StringArrayVar(&envelopes, "envelope", nil, "Envelope as categoryID=amount (repeatable)")
	for _, name := range []string{"user", "name", "amount", "start", "end", "envelope"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func parseEnvelopes(in []string) ([]core.BudgetCategory, error) {
	out := make([]core.BudgetCategory, 0, len(in))
	for _, e := range in {
		id, amount, ok := strings.Cut(e, "=")
		if !ok {
			return nil, fmt.Errorf("invalid envelope %q, expected categoryID=amount", e)
		}
		categoryID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid envelope category %q", id)
		}
		a, err := core.ParseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("envelope %q: %w", e, err)
		}
		out = append(out, core.BudgetCategory{CategoryID: categoryID, Amount: a})
	}
	return out, nil
}

func budgetReportCmd(s *session) *cobra.Command {
	var (
		userID, budgetID int64
		date             string
		export, exported bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compare a budget with actual spending",
		Long: `Print budgeted, spent and remaining amounts per envelope. Without --budget
the budget covering --date (default today) is used. --export also writes the
report to the configured report backend, unless the stored copy already shows
the same figures. --exported tells whether the stored copy is current.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := s.open()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if budgetID == 0 {
				day := core.DateOnly(time.Now())
				if date != "" {
					if day, err = parseDay(date); err != nil {
						return err
					}
				}
				current, err := app.Service.GetCurrentBudget(ctx, userID, day)
				if err != nil {
					return fmt.Errorf("no budget covers %s: %w", day.Format(time.DateOnly), err)
				}
				budgetID = current.ID
			}

			report, err := app.Service.BudgetReport(ctx, userID, budgetID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s..%s)\n", report.BudgetName,
				report.StartDate.Format(time.DateOnly), report.EndDate.Format(time.DateOnly))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tBUDGETED\tSPENT\tREMAINING")
			for _, c := range report.Categories {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.CategoryName,
					core.FormatAmount(c.BudgetedAmount), core.FormatAmount(c.SpentAmount), core.FormatAmount(c.RemainingAmount))
			}
			fmt.Fprintf(w, "TOTAL\t\t%s\t\n", core.FormatAmount(report.TotalSpent()))
			if err := w.Flush(); err != nil {
				return err
			}

			if !export && !exported {
				return nil
			}
			sink, err := cli.NewReportSink(ctx, s.cfg, s.logger)
			if err != nil {
				return err
			}

			if exported {
				stored, found, err := sink.ReadReport(ctx, report.StartDate.Year(), report.BudgetID)
				if err != nil {
					return fmt.Errorf("failed to read exported report: %w", err)
				}
				switch {
				case !found:
					fmt.Fprintln(out, "exported copy: none")
				case stored.SameFigures(report):
					fmt.Fprintln(out, "exported copy: up to date")
				default:
					fmt.Fprintf(out, "exported copy: stale (spent %s, now %s)\n",
						core.FormatAmount(stored.TotalSpent()), core.FormatAmount(report.TotalSpent()))
				}
			}

			if export {
				ref, err := worker.NewLedgerWorker(app.Service, sink, s.logger).ExportBudget(ctx, userID, report.BudgetID)
				if err != nil {
					return fmt.Errorf("failed to export report: %w", err)
				}
				if ref == "" {
					fmt.Fprintln(out, "export already up to date")
				} else {
					fmt.Fprintf(out, "exported to %s\n", ref)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "User ID")
	cmd.Flags().Int64Var(&budgetID, "budget", 0, "Budget ID")
	cmd.Flags().StringVar(&date, "date", "", "Pick the budget covering this day YYYY-MM-DD")
	cmd.Flags().BoolVar(&export, "export", false, "Write the report to the report backend")
	cmd.Flags().BoolVar(&exported, "exported", false, "Compare with the copy stored in the report backend")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func nextBudgetCmd(s *session) *cobra.Command {
	var userID, budgetID int64
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Create the budget for the period following a budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := s.open()
			if err != nil {
				return err
			}
			next, err := app.Service.CreateNextBudget(cmd.Context(), userID, budgetID)
			if err != nil {
				return fmt.Errorf("failed to create next budget: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "budget %d created: %s %s..%s\n", next.ID, next.Name,
				next.StartDate.Format(time.DateOnly), next.EndDate.Format(time.DateOnly))
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "User ID")
	cmd.Flags().Int64Var(&budgetID, "budget", 0, "Budget ID")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("budget")
	return cmd
}
