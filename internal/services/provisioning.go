package services

import (
	"context"
	"errors"
	"fmt"

	"moneytrace/internal/core"
	"moneytrace/internal/events"
	"moneytrace/internal/log"
	"moneytrace/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type defaultCategory struct {
	name string
	typ  core.CategoryType
	subs []string
}

var (
	defaultAccounts = []core.Account{
		{Name: "Cash", Type: core.Debit},
		{Name: "Chequing", Type: core.Debit},
		{Name: "Credit Card", Type: core.Credit},
		{Name: "Savings", Type: core.Debit},
	}

	defaultCategories = []defaultCategory{
		{"Food", core.Expense, []string{"Groceries", "Restaurants"}},
		{"Entertainment", core.Expense, []string{"Movies", "Games"}},
		{"Salary", core.Income, []string{"Salary"}},
		{"Utilities", core.Expense, []string{"Electricity", "Water"}},
		{"Rent", core.Expense, []string{"Rent"}},
		{"Other", core.Expense, []string{"Other"}},
		{"Other Income", core.Income, []string{"Other"}},
	}
)

// provisionConcurrency bounds parallel inserts; SQLite serializes writers anyway.
const provisionConcurrency = 4

// Provisioner seeds a new user with default accounts and categories.
type Provisioner struct {
	repo   *storage.SQLiteRepository
	logger *log.Logger
}

// OnUserCreated creates every default entity concurrently. Entities that
// already exist are skipped, so a repeated event is harmless.
func (p *Provisioner) OnUserCreated(ctx context.Context, env *events.Envelope, e events.UserCreated) error {
	st := p.repo.Store()
	userID := e.User.ID

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(provisionConcurrency)

	for _, a := range defaultAccounts {
		a.UserID, a.IsEnabled, a.Balance = userID, true, decimal.Zero
		g.Go(func() error {
			_, err := st.AddAccount(gctx, a)
			return p.skipExisting(gctx, "account", a.Name, err)
		})
	}
	for _, c := range defaultCategories {
		cat := core.Category{UserID: userID, Name: c.name, Type: c.typ, IsEnabled: true}
		for _, sub := range c.subs {
			cat.SubCategories = append(cat.SubCategories, core.SubCategory{Name: sub, IsEnabled: true})
		}
		g.Go(func() error {
			err := p.repo.InTx(gctx, func(tx *storage.Store) error {
				_, err := tx.AddCategory(gctx, cat)
				return err
			})
			return p.skipExisting(gctx, "category", cat.Name, err)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("provision user %d: %w", userID, err)
	}

	p.logger.InfoContext(ctx, "User provisioned",
		log.FieldUserID, userID,
		log.FieldEventID, env.ID,
		"accounts", len(defaultAccounts),
		"categories", len(defaultCategories))
	return nil
}

func (p *Provisioner) skipExisting(ctx context.Context, kind, name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrValidation) {
		p.logger.DebugContext(ctx, "Default entity already present", "kind", kind, "name", name)
		return nil
	}
	return fmt.Errorf("create %s %q: %w", kind, name, err)
}
