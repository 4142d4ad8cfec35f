package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"moneytrace/internal/core"
	ports "moneytrace/internal/sheets"
)

var (
	_ ports.ReportWriter = (*Store)(nil)
	_ ports.ReportReader = (*Store)(nil)
)

// Store keeps exported reports in memory, for local runs and tests.
type Store struct {
	mu      sync.Mutex
	reports map[int64]core.BudgetReport
	writes  int
}

func New() *Store {
	return &Store{reports: make(map[int64]core.BudgetReport)}
}

// WriteReport stores the report and returns a synthetic reference.
func (s *Store) WriteReport(_ context.Context, r core.BudgetReport) (string, error) {
	if r.BudgetID <= 0 {
		return "", fmt.Errorf("report without budget id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Categories = append([]core.BudgetCategoryReport(nil), r.Categories...)
	s.reports[r.BudgetID] = r
	s.writes++
	return fmt.Sprintf("mem:budget:%d", r.BudgetID), nil
}

func (s *Store) ReadReport(_ context.Context, year int, budgetID int64) (core.BudgetReport, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[budgetID]
	if !ok || r.StartDate.Year() != year {
		return core.BudgetReport{}, false, nil
	}
	return r, true, nil
}

// Reports returns every stored report ordered by budget id.
func (s *Store) Reports() []core.BudgetReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.BudgetReport, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BudgetID < out[j].BudgetID })
	return out
}

// Writes counts calls to WriteReport.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
