package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"moneytrace/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the three values endpoints the client uses from one grid.
type fakeSheets struct {
	mu    sync.Mutex
	rows  [][]any
	calls []string
	paths []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
		f.calls = append(f.calls, "get")
		_ = json.NewEncoder(w).Encode(gsheet.ValueRange{Values: f.rows})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		f.calls = append(f.calls, "clear")
		f.rows = nil
		_ = json.NewEncoder(w).Encode(gsheet.ClearValuesResponse{})
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update")
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.rows = vr.Values
		_ = json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{UpdatedRows: int64(len(vr.Values))})
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), "sheet-id", "Budgets",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func report(id int64, spent string) core.BudgetReport {
	return core.BudgetReport{
		UserID: 1, BudgetID: id, BudgetName: "March",
		StartDate: core.NewDate(2024, 3, 1), EndDate: core.NewDate(2024, 3, 31),
		Categories: []core.BudgetCategoryReport{{
			CategoryID: 1, CategoryName: "Food",
			BudgetedAmount:  decimal.RequireFromString("300"),
			SpentAmount:     decimal.RequireFromString(spent),
			RemainingAmount: decimal.RequireFromString("300").Sub(decimal.RequireFromString(spent)),
		}},
	}
}

func TestWriteReportReplacesBudgetRows(t *testing.T) {
	fake := &fakeSheets{rows: [][]any{
		{"Budget ID", "Budget", "Start", "End", "Category ID", "Category", "Budgeted", "Spent", "Remaining"},
		{"4", "Feb", "2024-02-01", "2024-02-29", "1", "Food", "100.00", "10.00", "90.00"},
		{"5", "March", "2024-03-01", "2024-03-31", "1", "Food", "300.00", "1.00", "299.00"},
	}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	ref, err := c.WriteReport(ctx, report(5, "75"))
	require.NoError(t, err)
	assert.Equal(t, "2024 Budgets!A3:I3", ref)
	assert.Equal(t, []string{"get", "clear", "update"}, fake.calls)
	assert.Contains(t, fake.paths[0], "2024 Budgets!A:I")
	require.Len(t, fake.rows, 3)
	assert.Equal(t, "4", fake.rows[1][0], "other budgets are kept")

	got, found, err := c.ReadReport(ctx, 2024, 5)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got.Categories, 1)
	assert.Equal(t, "75.00", core.FormatAmount(got.Categories[0].SpentAmount))
	assert.Equal(t, "225.00", core.FormatAmount(got.Categories[0].RemainingAmount))
}

func TestWriteReportOnEmptySheet(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	_, err := c.WriteReport(context.Background(), report(9, "0"))
	require.NoError(t, err)
	require.Len(t, fake.rows, 2)
	assert.Equal(t, "Budget ID", fake.rows[0][0])
}

func TestWriteReportRequiresBudgetID(t *testing.T) {
	c := newTestClient(t, &fakeSheets{})
	_, err := c.WriteReport(context.Background(), core.BudgetReport{})
	assert.Error(t, err)
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), " ", "Budgets", goption.WithoutAuthentication())
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestNewFromServiceAccountMissingCredentials(t *testing.T) {
	_, err := NewFromServiceAccount(context.Background(), "sheet-id", "Budgets", " ", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing service account credentials")
}

func TestNewFromServiceAccountUnreadableFile(t *testing.T) {
	_, err := NewFromServiceAccount(context.Background(), "sheet-id", "Budgets", "/non/existent/key.json", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read service account file")
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Budgets", 2024, "2024 Budgets"},
		{"2023 Budgets", 2024, "2023 Budgets"},
		{"  Reports ", 2025, "2025 Reports"},
		{"", 2024, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}
