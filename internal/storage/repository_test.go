package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"moneytrace/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.Store().AddUser(context.Background(), core.User{Name: "Test", Email: email, IsEnabled: true})
	require.NoError(t, err)
	return u
}

func seedAccount(t *testing.T, repo *SQLiteRepository, userID int64, name string, typ core.AccountType, balance string) core.Account {
	t.Helper()
	a, err := repo.Store().AddAccount(context.Background(), core.Account{
		UserID: userID, Name: name, Type: typ, Balance: amt(balance), IsEnabled: true,
	})
	require.NoError(t, err)
	return a
}

func TestConstraintErrorsMapToValidation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "ada@example.com")
	seedAccount(t, repo, u.ID, "Wallet", core.Debit, "0")

	tests := []struct {
		name    string
		run     func() error
		wantMsg string
	}{
		{
			name: "unique email",
			run: func() error {
				_, err := repo.Store().AddUser(ctx, core.User{Name: "Other", Email: "ada@example.com"})
				return err
			},
			wantMsg: "user already exists",
		},
		{
			name: "unique account name per user",
			run: func() error {
				_, err := repo.Store().AddAccount(ctx, core.Account{UserID: u.ID, Name: "Wallet", Type: core.Debit})
				return err
			},
			wantMsg: "account already exists",
		},
		{
			name: "missing owner",
			run: func() error {
				_, err := repo.Store().AddAccount(ctx, core.Account{UserID: 9999, Name: "Ghost", Type: core.Debit})
				return err
			},
			wantMsg: "account references missing or in-use data",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()

			require.ErrorIs(t, err, core.ErrValidation)
			var e *core.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.wantMsg, e.Message)
		})
	}
}

func TestMapErrIgnoresLookalikeMessages(t *testing.T) {
	err := mapErr(errors.New("UNIQUE constraint failed: users.email"), "user")

	assert.ErrorIs(t, err, core.ErrFailure)
	assert.NotErrorIs(t, err, core.ErrValidation)
	assert.ErrorIs(t, mapErr(sql.ErrNoRows, "user"), core.ErrNotFound)
	assert.NoError(t, mapErr(nil, "user"))
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path), "second run is a no-op")

	v, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)
}

func TestAccountsScopedByUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := seedUser(t, repo, "alice@example.com")
	bob := seedUser(t, repo, "bob@example.com")
	acc := seedAccount(t, repo, alice.ID, "Cash", core.Debit, "100")

	got, err := repo.Store().FindAccount(ctx, alice.ID, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", core.FormatAmount(got.Balance))

	_, err = repo.Store().FindAccount(ctx, bob.ID, acc.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = repo.Store().AddAccount(ctx, core.Account{UserID: alice.ID, Name: "Cash", Type: core.Debit})
	assert.ErrorIs(t, err, core.ErrValidation, "duplicate name")
}

func TestAddToBalanceIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "a@example.com")
	acc := seedAccount(t, repo, u.ID, "Cash", core.Debit, "100.00")

	for i := 0; i < 3; i++ {
		err := repo.InTx(ctx, func(s *Store) error {
			applied, err := s.AddToBalance(ctx, acc.ID, amt("-25.00"), "evt-1/0")
			assert.Equal(t, i == 0, applied)
			return err
		})
		require.NoError(t, err)
	}

	got, err := repo.Store().FindAccount(ctx, u.ID, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "75.00", core.FormatAmount(got.Balance))
	assert.Equal(t, int64(1), got.Version)
}

func TestAddToBalanceRequiresTx(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Store().AddToBalance(context.Background(), 1, amt("1"), "k")
	assert.Error(t, err)
}

func TestAddToBalanceMissingAccountRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.InTx(ctx, func(s *Store) error {
		_, err := s.AddToBalance(ctx, 999, amt("5"), "evt-x/0")
		return err
	})
	require.ErrorIs(t, err, core.ErrNotFound)

	// the posting must not survive the rollback
	var n int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM balance_postings`).Scan(&n))
	assert.Zero(t, n)
}

func TestAddToBalanceConcurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "c@example.com")
	acc := seedAccount(t, repo, u.ID, "Cash", core.Debit, "0")

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.InTx(ctx, func(s *Store) error {
				_, err := s.AddToBalance(ctx, acc.ID, amt("1.50"), fmt.Sprintf("evt-%d/0", i))
				return err
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.Store().FindAccount(ctx, u.ID, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", core.FormatAmount(got.Balance))
	assert.Equal(t, int64(workers), got.Version)
}

func TestInTxCancelledBeforeCommit(t *testing.T) {
	repo := newTestRepo(t)
	u := seedUser(t, repo, "cancel@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	err := repo.InTx(ctx, func(s *Store) error {
		if _, err := s.AddAccount(ctx, core.Account{UserID: u.ID, Name: "Ghost", Type: core.Debit}); err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.Error(t, err)

	accounts, err := repo.Store().QueryAccounts(context.Background(), u.ID, false)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestOperationsRoundTripAndFilter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "ops@example.com")
	cash := seedAccount(t, repo, u.ID, "Cash", core.Debit, "0")
	bank := seedAccount(t, repo, u.ID, "Bank", core.Debit, "0")
	food, err := repo.Store().AddCategory(ctx, core.Category{UserID: u.ID, Name: "Food", Type: core.Expense,
		SubCategories: []core.SubCategory{{Name: "Groceries"}, {Name: "Restaurants"}}})
	require.NoError(t, err)

	simple := core.Operation{
		UserID: u.ID, Date: core.NewDate(2024, 3, 4), Title: "Market", Type: core.Simple,
		AccountID: cash.ID, TotalAmount: amt("75"), CategoryType: core.Expense,
		Allocation: []core.Allocation{
			{CategoryID: food.ID, SubCategoryID: food.SubCategories[0].ID, Amount: amt("45")},
			{CategoryID: food.ID, SubCategoryID: food.SubCategories[1].ID, Amount: amt("30")},
		},
	}
	simple, err = repo.Store().AddOperation(ctx, simple)
	require.NoError(t, err)

	dest := bank.ID
	_, err = repo.Store().AddOperation(ctx, core.Operation{
		UserID: u.ID, Date: core.NewDate(2024, 4, 1), Title: "Move", Type: core.Transfer,
		AccountID: cash.ID, DestinationAccountID: &dest, TotalAmount: amt("10"),
	})
	require.NoError(t, err)

	got, err := repo.Store().FindOperation(ctx, u.ID, simple.ID)
	require.NoError(t, err)
	require.Len(t, got.Allocation, 2)
	assert.Equal(t, 1, got.Allocation[1].Order)
	assert.Equal(t, core.NewDate(2024, 3, 4), got.Date)
	assert.Nil(t, got.VendorID)

	from, to := core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31)
	march, err := repo.Store().QueryOperations(ctx, u.ID, OperationFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, march, 1)

	byBank, err := repo.Store().QueryOperations(ctx, u.ID, OperationFilter{AccountID: bank.ID})
	require.NoError(t, err)
	require.Len(t, byBank, 1)
	assert.Equal(t, core.Transfer, byBank[0].Type)

	byCat, err := repo.Store().QueryOperations(ctx, u.ID, OperationFilter{CategoryID: food.ID})
	require.NoError(t, err)
	assert.Len(t, byCat, 1)

	got.Allocation = got.Allocation[:1]
	got.Allocation[0].Amount = amt("75")
	_, err = repo.Store().UpdateOperation(ctx, got)
	require.NoError(t, err)
	got, err = repo.Store().FindOperation(ctx, u.ID, simple.ID)
	require.NoError(t, err)
	assert.Len(t, got.Allocation, 1)

	require.NoError(t, repo.Store().RemoveOperation(ctx, u.ID, simple.ID))
	_, err = repo.Store().FindOperation(ctx, u.ID, simple.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCategoryLookups(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "cat@example.com")
	other := seedUser(t, repo, "other@example.com")

	food, err := repo.Store().AddCategory(ctx, core.Category{UserID: u.ID, Name: "Food", Type: core.Expense,
		SubCategories: []core.SubCategory{{Name: "Groceries"}}})
	require.NoError(t, err)
	salary, err := repo.Store().AddCategory(ctx, core.Category{UserID: u.ID, Name: "Salary", Type: core.Income})
	require.NoError(t, err)
	foreign, err := repo.Store().AddCategory(ctx, core.Category{UserID: other.ID, Name: "Food", Type: core.Expense})
	require.NoError(t, err)

	types, err := repo.Store().CategoryTypes(ctx, u.ID, []int64{food.ID, salary.ID, foreign.ID})
	require.NoError(t, err)
	assert.Equal(t, map[int64]core.CategoryType{food.ID: core.Expense, salary.ID: core.Income}, types)

	parents, err := repo.Store().SubCategoryParents(ctx, u.ID, []int64{food.SubCategories[0].ID})
	require.NoError(t, err)
	assert.Equal(t, food.ID, parents[food.SubCategories[0].ID])

	cats, err := repo.Store().QueryCategories(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Len(t, cats[0].SubCategories, 1)
}

func TestBillsAndBudgets(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, repo, "bills@example.com")
	acc := seedAccount(t, repo, u.ID, "Cash", core.Debit, "0")
	tpl, err := repo.Store().AddTemplate(ctx, core.Template{UserID: u.ID, Title: "Rent", Type: core.Simple,
		AccountID: acc.ID, TotalAmount: amt("1000"), IsEnabled: true})
	require.NoError(t, err)

	month := 6
	bill, err := repo.Store().AddBill(ctx, core.Bill{UserID: u.ID, Name: "Insurance", TemplateID: tpl.ID,
		PaymentFrequency: core.Yearly, NextDueDate: core.NewDate(2024, 6, 1), NextDueAmount: amt("300"),
		PaymentDay: 1, PaymentMonth: &month, IsEnabled: true})
	require.NoError(t, err)

	paid := core.NewDate(2024, 5, 30)
	bill.LastPaidDate = &paid
	bill.LastPaidAmount = amt("300")
	bill.NextDueAmount = decimal.Zero
	require.NoError(t, repo.Store().UpdateBill(ctx, bill))

	got, err := repo.Store().FindBill(ctx, u.ID, bill.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastPaidDate)
	assert.Equal(t, paid, *got.LastPaidDate)
	assert.Equal(t, 6, *got.PaymentMonth)

	err = repo.Store().RemoveTemplate(ctx, u.ID, tpl.ID)
	assert.ErrorIs(t, err, core.ErrValidation, "template still used by a bill")

	march, err := repo.Store().AddBudget(ctx, core.Budget{UserID: u.ID, Name: "March", Amount: amt("500"),
		StartDate: core.NewDate(2024, 3, 1), EndDate: core.NewDate(2024, 3, 31), Frequency: core.Monthly,
		Categories: []core.BudgetCategory{{CategoryID: 1, Amount: amt("500")}}})
	require.NoError(t, err)

	covering, err := repo.Store().FindBudgetCovering(ctx, u.ID, core.NewDate(2024, 3, 31))
	require.NoError(t, err)
	assert.Equal(t, march.ID, covering.ID)
	assert.Len(t, covering.Categories, 1)

	ended, err := repo.Store().QueryBudgetsEndedBefore(ctx, core.NewDate(2024, 4, 2))
	require.NoError(t, err)
	assert.Len(t, ended, 1)

	_, err = repo.Store().AddBudget(ctx, core.Budget{UserID: u.ID, Name: "April", Amount: amt("500"),
		StartDate: core.NewDate(2024, 4, 1), EndDate: core.NewDate(2024, 5, 1), Frequency: core.Monthly})
	require.NoError(t, err)
	ended, err = repo.Store().QueryBudgetsEndedBefore(ctx, core.NewDate(2024, 4, 2))
	require.NoError(t, err)
	assert.Empty(t, ended, "march already has a successor")
}
