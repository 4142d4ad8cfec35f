package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moneytrace/internal/cli"
	"moneytrace/internal/config"
	"moneytrace/internal/log"

	"github.com/spf13/cobra"
)

var version = "dev"

// session carries the configuration and the lazily opened ledger of one
// command invocation.
type session struct {
	cfg    *config.Config
	logger *log.Logger
	app    *cli.App
}

func (s *session) open() (*cli.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	app, err := cli.Bootstrap(s.cfg, s.logger)
	if err != nil {
		return nil, err
	}
	s.app = app
	return app, nil
}

func (s *session) close() error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	return err
}

func newRootCmd() *cobra.Command {
	s := &session{}
	cmd := &cobra.Command{
		Use:     "moneytrace",
		Short:   "Personal ledger: operations, bills and budgets",
		Version: version,
		Long: `moneytrace records operations against accounts, keeps account balances
consistent with them, pays recurring bills from templates and compares
budgets with actual spending.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cli.LoadEnvFile()
			cfg, err := cli.LoadConfig()
			if err != nil {
				return err
			}
			s.cfg = cfg
			s.logger = log.New(log.Config{
				Level:     log.ParseLevel(cfg.LogLevel),
				Format:    cfg.LogFormat,
				Component: log.ComponentCLI,
				Output:    cmd.ErrOrStderr(),
			})
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return s.close()
		},
	}

	cmd.AddCommand(migrateCmd(s))
	cmd.AddCommand(userCmd(s))
	cmd.AddCommand(operationCmd(s))
	cmd.AddCommand(billCmd(s))
	cmd.AddCommand(budgetCmd(s))

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
