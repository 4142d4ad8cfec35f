package services

import (
	"context"
	"fmt"
	"time"

	"moneytrace/internal/budget"
	"moneytrace/internal/core"
	"moneytrace/internal/events"
	"moneytrace/internal/log"
	"moneytrace/internal/storage"
)

func (s *Service) normalizeBudget(b core.Budget) (core.Budget, error) {
	b.StartDate = core.DateOnly(b.StartDate)
	b.EndDate = core.DateOnly(b.EndDate)
	b.Amount = core.Round(b.Amount)
	for i := range b.Categories {
		b.Categories[i].Amount = core.Round(b.Categories[i].Amount)
	}
	if b.Frequency == "" {
		b.Frequency = core.Monthly
	}
	if err := b.Validate(); err != nil {
		return b, validation("budget", err)
	}
	return b, nil
}

// checkBudgetWindow rejects b when it overlaps another budget of the user or
// references a foreign category.
func checkBudgetWindow(ctx context.Context, st *storage.Store, b core.Budget) error {
	existing, err := st.QueryBudgets(ctx, b.UserID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID != b.ID && budget.Overlaps(b, other) {
			return core.Validation("invalid budget",
				fmt.Sprintf("window %s..%s overlaps budget %q", b.StartDate.Format(time.DateOnly), b.EndDate.Format(time.DateOnly), other.Name))
		}
	}
	ids := make([]int64, 0, len(b.Categories))
	for _, c := range b.Categories {
		ids = append(ids, c.CategoryID)
	}
	types, err := st.CategoryTypes(ctx, b.UserID, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := types[id]; !ok {
			return core.NotFound(fmt.Sprintf("category %d not found", id))
		}
	}
	return nil
}

func (s *Service) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b, err := s.normalizeBudget(b)
	if err != nil {
		return b, err
	}
	err = s.uow.Execute(ctx, func(st *storage.Store) ([]events.Event, error) {
		if err := checkBudgetWindow(ctx, st, b); err != nil {
			return nil, err
		}
		var err error
		if b, err = st.AddBudget(ctx, b); err != nil {
			return nil, err
		}
		return []events.Event{events.BudgetCreated{Budget: b}}, nil
	})
	if err != nil {
		return b, err
	}
	s.logger.InfoContext(ctx, "Budget created", log.FieldUserID, b.UserID, log.FieldBudgetID, b.ID)
	return b, nil
}

func (s *Service) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID <= 0 {
		return b, core.Validation("invalid budget", "budget not identified")
	}
	b, err := s.normalizeBudget(b)
	if err != nil {
		return b, err
	}
	err = s.repo.InTx(ctx, func(st *storage.Store) error {
		if err := checkBudgetWindow(ctx, st, b); err != nil {
			return err
		}
		return st.UpdateBudget(ctx, b)
	})
	return b, err
}

func (s *Service) DeleteBudget(ctx context.Context, userID, id int64) error {
	return s.store().RemoveBudget(ctx, userID, id)
}

func (s *Service) GetBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	return s.store().FindBudget(ctx, userID, id)
}

func (s *Service) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.store().QueryBudgets(ctx, userID)
}

// GetCurrentBudget returns the budget whose window contains date.
func (s *Service) GetCurrentBudget(ctx context.Context, userID int64, date time.Time) (core.Budget, error) {
	return s.store().FindBudgetCovering(ctx, userID, core.DateOnly(date))
}

// BudgetReport compares each envelope of the budget with the simple
// operations dated inside its window.
func (s *Service) BudgetReport(ctx context.Context, userID, budgetID int64) (core.BudgetReport, error) {
	st := s.store()
	b, err := st.FindBudget(ctx, userID, budgetID)
	if err != nil {
		return core.BudgetReport{}, err
	}
	from, to := b.StartDate, b.EndDate
	ops, err := st.QueryOperations(ctx, userID, storage.OperationFilter{From: &from, To: &to, Type: core.Simple})
	if err != nil {
		return core.BudgetReport{}, err
	}
	names, err := st.CategoryNames(ctx, userID)
	if err != nil {
		return core.BudgetReport{}, err
	}
	return budget.ComputeReport(b, ops, names), nil
}

// CreateNextBudget stores the successor period of a budget.
func (s *Service) CreateNextBudget(ctx context.Context, userID, budgetID int64) (core.Budget, error) {
	var next core.Budget
	err := s.uow.Execute(ctx, func(st *storage.Store) ([]events.Event, error) {
		b, err := st.FindBudget(ctx, userID, budgetID)
		if err != nil {
			return nil, err
		}
		next = budget.NextPeriod(b)
		if err := checkBudgetWindow(ctx, st, next); err != nil {
			return nil, err
		}
		if next, err = st.AddBudget(ctx, next); err != nil {
			return nil, err
		}
		return []events.Event{events.BudgetCreated{Budget: next}}, nil
	})
	if err != nil {
		return next, err
	}
	s.logger.InfoContext(ctx, "Next budget created",
		log.FieldUserID, userID, log.FieldBudgetID, next.ID, "previous", budgetID, "name", next.Name)
	return next, nil
}

// RolloverExpired creates the successor of every budget, across users, that
// ended before today and has none yet. Failures are logged and skipped.
func (s *Service) RolloverExpired(ctx context.Context) (int, error) {
	expired, err := s.store().QueryBudgetsEndedBefore(ctx, s.today())
	if err != nil {
		return 0, err
	}
	created := 0
	for _, b := range expired {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		if _, err := s.CreateNextBudget(ctx, b.UserID, b.ID); err != nil {
			s.logger.ErrorContext(ctx, "Budget rollover failed",
				log.FieldUserID, b.UserID, log.FieldBudgetID, b.ID, log.FieldError, err)
			continue
		}
		created++
	}
	return created, nil
}
