package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"moneytrace/internal/core"
	"moneytrace/internal/ledger"
	"moneytrace/internal/storage"

	"github.com/spf13/cobra"
)

func operationCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "operation",
		Aliases: []string{"op"},
		Short:   "Record and list operations",
	}
	cmd.AddCommand(createOperationCmd(s))
	cmd.AddCommand(listOperationsCmd(s))
	return cmd
}

type operationFlags struct {
	userID        int64
	accountID     int64
	destinationID int64
	templateID    int64
	categoryID    int64
	subCategoryID int64
	date          string
	title         string
	amount        string
	comments      string
}

func createOperationCmd(s *session) *cobra.Command {
	var f operationFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record an operation, directly or from a template",
		Long: `Record an operation. With --template the operation starts from the
template and the other flags override its date, title, amount and comments.
Without it, --destination makes a transfer; otherwise the whole amount goes
to --category/--subcategory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := s.open()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var op core.Operation
			if f.templateID > 0 {
				overrides, err := f.overrides(cmd)
				if err != nil {
					return err
				}
				if op, err = app.Service.NewOperationFromTemplate(ctx, f.userID, f.templateID, overrides); err != nil {
					return fmt.Errorf("failed to materialize template %d: %w", f.templateID, err)
				}
			} else if op, err = f.operation(); err != nil {
				return err
			}

			created, err := app.Service.CreateOperation(ctx, op)
			if err != nil {
				return fmt.Errorf("failed to create operation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "operation %d recorded: %s %s on %s\n",
				created.ID, created.Title, core.FormatAmount(created.TotalAmount), created.Date.Format(time.DateOnly))
			return nil
		},
	}
	cmd.Flags().Int64Var(&f.userID, "user", 0, "User ID")
	cmd.Flags().Int64Var(&f.accountID, "account", 0, "Source account ID")
	cmd.Flags().Int64Var(&f.destinationID, "destination", 0, "Destination account ID (makes a transfer)")
	cmd.Flags().Int64Var(&f.templateID, "template", 0, "Template ID to start from")
	cmd.Flags().Int64Var(&f.categoryID, "category", 0, "Category ID")
	cmd.Flags().Int64Var(&f.subCategoryID, "subcategory", 0, "Subcategory ID")
	cmd.Flags().StringVar(&f.date, "date", "", "Operation date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.title, "title", "", "Title")
	cmd.Flags().StringVar(&f.amount, "amount", "", "Total amount")
	cmd.Flags().StringVar(&f.comments, "comments", "", "Comments")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func (f operationFlags) overrides(cmd *cobra.Command) (ledger.Overrides, error) {
	var o ledger.Overrides
	if cmd.Flags().Changed("date") {
		d, err := parseDay(f.date)
		if err != nil {
			return o, err
		}
		o.Date = &d
	}
	if cmd.Flags().Changed("title") {
		o.Title = &f.title
	}
	if cmd.Flags().Changed("amount") {
		a, err := core.ParseAmount(f.amount)
		if err != nil {
			return o, err
		}
		o.TotalAmount = &a
	}
	if cmd.Flags().Changed("comments") {
		o.Comments = &f.comments
	}
	return o, nil
}

func (f operationFlags) operation() (core.Operation, error) {
	amount, err := core.ParseAmount(f.amount)
	if err != nil {
		return core.Operation{}, err
	}
	date := core.DateOnly(time.Now())
	if f.date != "" {
		if date, err = parseDay(f.date); err != nil {
			return core.Operation{}, err
		}
	}

	op := core.Operation{
		UserID:      f.userID,
		Date:        date,
		Title:       f.title,
		Type:        core.Simple,
		AccountID:   f.accountID,
		TotalAmount: amount,
		Comments:    f.comments,
	}
	if f.destinationID > 0 {
		dest := f.destinationID
		op.Type = core.Transfer
		op.DestinationAccountID = &dest
		return op, nil
	}
	op.Allocation = []core.Allocation{{CategoryID: f.categoryID, SubCategoryID: f.subCategoryID, Amount: amount}}
	return op, nil
}

func listOperationsCmd(s *session) *cobra.Command {
	var (
		userID    int64
		accountID int64
		from, to  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List operations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := storage.OperationFilter{AccountID: accountID}
			if from != "" {
				d, err := parseDay(from)
				if err != nil {
					return err
				}
				filter.From = &d
			}
			if to != "" {
				d, err := parseDay(to)
				if err != nil {
					return err
				}
				filter.To = &d
			}

			app, err := s.open()
			if err != nil {
				return err
			}
			ops, err := app.Service.QueryOperations(cmd.Context(), userID, filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tTYPE\tTITLE\tAMOUNT")
			for _, op := range ops {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					op.ID, op.Date.Format(time.DateOnly), op.Type, op.Title, core.FormatAmount(op.TotalAmount))
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "User ID")
	cmd.Flags().Int64Var(&accountID, "account", 0, "Only operations touching this account")
	cmd.Flags().StringVar(&from, "from", "", "First day YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Last day YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
