package main

import (
	"fmt"

	"moneytrace/internal/storage"

	"github.com/spf13/cobra"
)

func migrateCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Create or update the database schema to the latest version.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetBool("status")
			dbPath := s.cfg.SQLiteDBPath

			if !status {
				s.logger.Info("Running database migrations", "database", dbPath)
				if err := storage.RunMigrations(dbPath); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
			}

			version, dirty, err := storage.MigrationVersion(dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
	cmd.Flags().Bool("status", false, "Show the current schema version without applying changes")
	return cmd
}
