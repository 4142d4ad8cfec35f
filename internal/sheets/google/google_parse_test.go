package google

import (
	"testing"

	"moneytrace/internal/core"
)

func TestParseReport(t *testing.T) {
	values := [][]any{
		{"Budget ID", "Budget", "Start", "End", "Category ID", "Category", "Budgeted", "Spent", "Remaining"},
		{"4", "Feb", "2024-02-01", "2024-02-29", "1", "Food", "100.00", "10.00", "90.00"},
		{"5", "March", "2024-03-01", "2024-03-31", "1", "Food", "300.00", "75.00", "225.00"},
		{"5", "March", "2024-03-01", "2024-03-31", "2", "Utilities", "200,00", "0", "200"},
	}

	r, found, err := parseReport(values, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected budget 5 to be found")
	}
	if r.BudgetName != "March" || !r.StartDate.Equal(core.NewDate(2024, 3, 1)) {
		t.Fatalf("unexpected header fields: %+v", r)
	}
	if len(r.Categories) != 2 {
		t.Fatalf("expected 2 envelopes, got %d", len(r.Categories))
	}
	if got := core.FormatAmount(r.Categories[0].SpentAmount); got != "75.00" {
		t.Errorf("spent = %s, want 75.00", got)
	}
	if got := core.FormatAmount(r.Categories[1].BudgetedAmount); got != "200.00" {
		t.Errorf("budgeted = %s, want 200.00", got)
	}
}

func TestParseReportMissingAndMalformed(t *testing.T) {
	_, found, err := parseReport([][]any{{"1", "x"}}, 2)
	if err != nil || found {
		t.Fatalf("expected not found, got found=%v err=%v", found, err)
	}

	_, _, err = parseReport([][]any{{"2", "x", "2024-01-01"}}, 2)
	if err == nil {
		t.Fatal("expected error for short row")
	}

	_, _, err = parseReport([][]any{{"2", "x", "bad", "2024-01-31", "1", "Food", "1", "1", "0"}}, 2)
	if err == nil {
		t.Fatal("expected error for bad date")
	}
}
