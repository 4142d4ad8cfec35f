package main

import (
	"fmt"
	"text/tabwriter"

	"moneytrace/internal/core"

	"github.com/spf13/cobra"
)

func userCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(createUserCmd(s))
	return cmd
}

func createUserCmd(s *session) *cobra.Command {
	var u core.User
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with default accounts and categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := s.open()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			u.IsEnabled = true
			created, err := app.Service.CreateUser(ctx, u)
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
			accounts, err := app.Service.ListAccounts(ctx, created.ID, false)
			if err != nil {
				return err
			}
			categories, err := app.Service.ListCategories(ctx, created.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user %d created (%s)\n", created.ID, created.Email)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tID\tNAME\tTYPE")
			for _, a := range accounts {
				fmt.Fprintf(w, "account\t%d\t%s\t%s\n", a.ID, a.Name, a.Type)
			}
			for _, c := range categories {
				fmt.Fprintf(w, "category\t%d\t%s\t%s\n", c.ID, c.Name, c.Type)
				for _, sub := range c.SubCategories {
					fmt.Fprintf(w, "subcategory\t%d\t%s/%s\t%s\n", sub.ID, c.Name, sub.Name, c.Type)
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&u.Name, "name", "", "User name")
	cmd.Flags().StringVar(&u.Email, "email", "", "User email")
	cmd.Flags().StringVar(&u.TimeZone, "time-zone", "", "IANA time zone (default UTC)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
