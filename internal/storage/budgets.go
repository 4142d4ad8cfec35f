package storage

import (
	"context"
	"time"

	"moneytrace/internal/core"
)

const budgetColumns = `id, user_id, name, amount, start_date, end_date, frequency`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var (
		b          core.Budget
		start, end string
		freq       string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Amount, &start, &end, &freq); err != nil {
		return b, err
	}
	var err error
	if b.StartDate, err = parseDate(start); err != nil {
		return b, err
	}
	if b.EndDate, err = parseDate(end); err != nil {
		return b, err
	}
	b.Frequency = core.Frequency(freq)
	return b, nil
}

func (s *Store) AddBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO budgets (user_id, name, amount, start_date, end_date, frequency) VALUES (?, ?, ?, ?, ?, ?)`,
		b.UserID, b.Name, b.Amount, fmtDate(b.StartDate), fmtDate(b.EndDate), string(b.Frequency))
	if err != nil {
		return b, mapErr(err, "budget")
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return b, core.Failure("budget id", err)
	}
	return b, s.insertEnvelopes(ctx, b)
}

func (s *Store) insertEnvelopes(ctx context.Context, b core.Budget) error {
	for _, c := range b.Categories {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO budget_categories (budget_id, category_id, amount) VALUES (?, ?, ?)`,
			b.ID, c.CategoryID, c.Amount); err != nil {
			return mapErr(err, "budget category")
		}
	}
	return nil
}

func (s *Store) envelopes(ctx context.Context, budgetID int64) ([]core.BudgetCategory, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT category_id, amount FROM budget_categories WHERE budget_id = ? ORDER BY category_id`, budgetID)
	if err != nil {
		return nil, mapErr(err, "budget categories")
	}
	defer rows.Close()
	var out []core.BudgetCategory
	for rows.Next() {
		var c core.BudgetCategory
		if err := rows.Scan(&c.CategoryID, &c.Amount); err != nil {
			return nil, mapErr(err, "budget categories")
		}
		out = append(out, c)
	}
	return out, mapErr(rows.Err(), "budget categories")
}

func (s *Store) FindBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	b, err := scanBudget(s.q.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return b, mapErr(err, "budget")
	}
	b.Categories, err = s.envelopes(ctx, b.ID)
	return b, err
}

// FindBudgetCovering returns the user's budget whose window contains date.
func (s *Store) FindBudgetCovering(ctx context.Context, userID int64, date time.Time) (core.Budget, error) {
	d := fmtDate(date)
	b, err := scanBudget(s.q.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND start_date <= ? AND end_date >= ?
		 ORDER BY start_date DESC LIMIT 1`, userID, d, d))
	if err != nil {
		return b, mapErr(err, "budget")
	}
	b.Categories, err = s.envelopes(ctx, b.ID)
	return b, err
}

func (s *Store) QueryBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.queryBudgets(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY start_date`, userID)
}

// QueryBudgetsEndedBefore returns, across all users, budgets whose window
// ended before date and that no other budget of the same user follows.
func (s *Store) QueryBudgetsEndedBefore(ctx context.Context, date time.Time) ([]core.Budget, error) {
	return s.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets b WHERE b.end_date < ?
		 AND NOT EXISTS (SELECT 1 FROM budgets n WHERE n.user_id = b.user_id AND n.start_date > b.end_date)
		 ORDER BY b.user_id, b.end_date`, fmtDate(date))
}

func (s *Store) queryBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "budgets")
	}
	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			rows.Close()
			return nil, mapErr(err, "budgets")
		}
		out = append(out, b)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, mapErr(err, "budgets")
	}
	for i := range out {
		if out[i].Categories, err = s.envelopes(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE budgets SET name = ?, amount = ?, start_date = ?, end_date = ?, frequency = ? WHERE id = ? AND user_id = ?`,
		b.Name, b.Amount, fmtDate(b.StartDate), fmtDate(b.EndDate), string(b.Frequency), b.ID, b.UserID)
	if err != nil {
		return mapErr(err, "budget")
	}
	if err := requireRow(res, "budget"); err != nil {
		return err
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM budget_categories WHERE budget_id = ?`, b.ID); err != nil {
		return mapErr(err, "budget category")
	}
	return s.insertEnvelopes(ctx, b)
}

func (s *Store) RemoveBudget(ctx context.Context, userID, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return mapErr(err, "budget")
	}
	return requireRow(res, "budget")
}
