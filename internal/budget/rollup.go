// Package budget computes budget-vs-actual reports and successor periods.
package budget

import (
	"fmt"
	"strings"
	"time"

	"moneytrace/internal/core"

	"github.com/shopspring/decimal"
)

// ComputeReport sums, per envelope, the allocation amounts of the user's
// simple operations dated inside the budget window. Amounts are added as is,
// whatever the category type. Operations outside the window, of another user,
// or transfers are ignored, so callers may pass a superset.
func ComputeReport(b core.Budget, ops []core.Operation, categoryNames map[int64]string) core.BudgetReport {
	spent := make(map[int64]decimal.Decimal, len(b.Categories))
	for _, c := range b.Categories {
		spent[c.CategoryID] = decimal.Zero
	}

	for _, op := range ops {
		if op.UserID != b.UserID || op.Type != core.Simple || !b.Covers(op.Date) {
			continue
		}
		for _, a := range op.Allocation {
			if s, ok := spent[a.CategoryID]; ok {
				spent[a.CategoryID] = s.Add(a.Amount)
			}
		}
	}

	report := core.BudgetReport{
		UserID:     b.UserID,
		BudgetID:   b.ID,
		BudgetName: b.Name,
		StartDate:  b.StartDate,
		EndDate:    b.EndDate,
		Categories: make([]core.BudgetCategoryReport, 0, len(b.Categories)),
	}
	for _, c := range b.Categories {
		s := spent[c.CategoryID]
		report.Categories = append(report.Categories, core.BudgetCategoryReport{
			CategoryID:      c.CategoryID,
			CategoryName:    categoryNames[c.CategoryID],
			BudgetedAmount:  c.Amount,
			SpentAmount:     s,
			RemainingAmount: c.Amount.Sub(s),
		})
	}
	return report
}

// NextPeriod returns the unsaved successor of b: it starts the day after b
// ends, spans one month, and copies the amount and envelopes. The name gets
// the month and year of the new start date appended.
func NextPeriod(b core.Budget) core.Budget {
	start := core.DateOnly(b.EndDate).AddDate(0, 0, 1)
	end := start.AddDate(0, 1, 0)

	cats := make([]core.BudgetCategory, len(b.Categories))
	copy(cats, b.Categories)

	return core.Budget{
		UserID:     b.UserID,
		Name:       PeriodName(b.Name, start),
		Amount:     b.Amount,
		StartDate:  start,
		EndDate:    end,
		Frequency:  b.Frequency,
		Categories: cats,
	}
}

// PeriodName appends "Mon-YYYY" of start to name, replacing a period suffix
// left by an earlier rollover.
func PeriodName(name string, start time.Time) string {
	if i := strings.LastIndex(name, " - "); i >= 0 {
		if _, err := time.Parse("Jan-2006", name[i+3:]); err == nil {
			name = name[:i]
		}
	}
	return fmt.Sprintf("%s - %s", name, start.Format("Jan-2006"))
}

// Overlaps reports whether the inclusive windows of a and b intersect.
func Overlaps(a, b core.Budget) bool {
	return !core.DateOnly(a.StartDate).After(core.DateOnly(b.EndDate)) &&
		!core.DateOnly(b.StartDate).After(core.DateOnly(a.EndDate))
}

// Expired reports whether the budget window ended before now.
func Expired(b core.Budget, now time.Time) bool {
	return core.DateOnly(b.EndDate).Before(core.DateOnly(now))
}
