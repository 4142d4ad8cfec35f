// Package sheets defines where budget reports are exported.
package sheets

import (
	"context"

	"moneytrace/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter stores a budget report, replacing any earlier export of
	// the same budget.
	ReportWriter interface {
		WriteReport(ctx context.Context, r core.BudgetReport) (ref string, err error)
	}

	// ReportReader returns a previously exported report. found is false when
	// the budget was never exported.
	ReportReader interface {
		ReadReport(ctx context.Context, year int, budgetID int64) (r core.BudgetReport, found bool, err error)
	}
)
