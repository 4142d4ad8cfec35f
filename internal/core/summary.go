package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetCategoryReport compares one envelope against actual spending.
type BudgetCategoryReport struct {
	CategoryID      int64
	CategoryName    string
	BudgetedAmount  decimal.Decimal
	SpentAmount     decimal.Decimal
	RemainingAmount decimal.Decimal
}

// BudgetReport is the budget-vs-actual rollup for one budget window.
type BudgetReport struct {
	UserID     int64
	BudgetID   int64
	BudgetName string
	StartDate  time.Time
	EndDate    time.Time
	Categories []BudgetCategoryReport
}

// TotalSpent sums spending across every envelope of the report.
func (r BudgetReport) TotalSpent() decimal.Decimal {
	total := decimal.Zero
	for _, c := range r.Categories {
		total = total.Add(c.SpentAmount)
	}
	return total
}

// SameFigures reports whether o shows the same budget window and envelope
// figures as r. Amounts are compared at currency precision, so a report read
// back from a sheet matches the one it was written from.
func (r BudgetReport) SameFigures(o BudgetReport) bool {
	if r.BudgetID != o.BudgetID || r.BudgetName != o.BudgetName ||
		!DateOnly(r.StartDate).Equal(DateOnly(o.StartDate)) || !DateOnly(r.EndDate).Equal(DateOnly(o.EndDate)) ||
		len(r.Categories) != len(o.Categories) {
		return false
	}
	for i, c := range r.Categories {
		oc := o.Categories[i]
		if c.CategoryID != oc.CategoryID || c.CategoryName != oc.CategoryName ||
			!Round(c.BudgetedAmount).Equal(Round(oc.BudgetedAmount)) ||
			!Round(c.SpentAmount).Equal(Round(oc.SpentAmount)) ||
			!Round(c.RemainingAmount).Equal(Round(oc.RemainingAmount)) {
			return false
		}
	}
	return true
}
