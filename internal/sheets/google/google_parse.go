package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"moneytrace/internal/core"

	"github.com/shopspring/decimal"
)

// parseReport rebuilds the report of budgetID from a values matrix as
// returned by the Sheets API. Rows of other budgets and a header row are
// skipped.
func parseReport(values [][]any, budgetID int64) (core.BudgetReport, bool, error) {
	id := strconv.FormatInt(budgetID, 10)
	var (
		r     core.BudgetReport
		found bool
	)
	for i, raw := range values {
		row := toStrings(raw)
		if len(row) == 0 || row[0] != id {
			continue
		}
		if len(row) < 9 {
			return core.BudgetReport{}, false, fmt.Errorf("row %d: expected 9 columns, got %d", i+1, len(row))
		}
		if !found {
			start, err := time.Parse("2006-01-02", row[2])
			if err != nil {
				return core.BudgetReport{}, false, fmt.Errorf("row %d: start date: %w", i+1, err)
			}
			end, err := time.Parse("2006-01-02", row[3])
			if err != nil {
				return core.BudgetReport{}, false, fmt.Errorf("row %d: end date: %w", i+1, err)
			}
			r = core.BudgetReport{BudgetID: budgetID, BudgetName: row[1], StartDate: start, EndDate: end}
			found = true
		}
		cat, err := parseCategoryRow(row)
		if err != nil {
			return core.BudgetReport{}, false, fmt.Errorf("row %d: %w", i+1, err)
		}
		r.Categories = append(r.Categories, cat)
	}
	return r, found, nil
}

func parseCategoryRow(row []string) (core.BudgetCategoryReport, error) {
	catID, err := strconv.ParseInt(row[4], 10, 64)
	if err != nil {
		return core.BudgetCategoryReport{}, fmt.Errorf("category id %q: %w", row[4], err)
	}
	amounts := make([]decimal.Decimal, 3)
	for i, s := range row[6:9] {
		d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
		if err != nil {
			return core.BudgetCategoryReport{}, fmt.Errorf("amount %q: %w", s, err)
		}
		amounts[i] = d
	}
	return core.BudgetCategoryReport{
		CategoryID:      catID,
		CategoryName:    row[5],
		BudgetedAmount:  amounts[0],
		SpentAmount:     amounts[1],
		RemainingAmount: amounts[2],
	}, nil
}
