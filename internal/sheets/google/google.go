package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"moneytrace/internal/core"
	ports "moneytrace/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client exports budget reports to a spreadsheet, one sheet per year.
// Each report occupies one row per envelope, keyed by budget id in column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// base name without year (e.g. "Budgets"); the report year is prefixed
	reportBase string
}

var (
	_ ports.ReportWriter = (*Client)(nil)
	_ ports.ReportReader = (*Client)(nil)
)

var reportHeader = []any{"Budget ID", "Budget", "Start", "End", "Category ID", "Category", "Budgeted", "Spent", "Remaining"}

// New creates a client with explicit options, used by tests and NewFromServiceAccount.
func New(ctx context.Context, spreadsheetID, reportBase string, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(reportBase) == "" {
		reportBase = "Budgets"
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, reportBase: reportBase}, nil
}

// NewFromServiceAccount creates a client authenticated with a service
// account, given either the inline JSON key or the path to it.
func NewFromServiceAccount(ctx context.Context, spreadsheetID, reportBase, credentialsFile, credentialsJSON string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	key, err := serviceAccountCredentials(ctx, credentialsFile, credentialsJSON)
	if err != nil {
		return nil, err
	}
	return New(ctx, spreadsheetID, reportBase,
		goption.WithCredentialsJSON(key),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

func serviceAccountCredentials(ctx context.Context, file, inline string) ([]byte, error) {
	inline, file = strings.TrimSpace(inline), strings.TrimSpace(file)
	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

// WriteReport replaces the rows of r.BudgetID in the sheet of the report's
// start year, keeping every other budget's rows in place.
func (c *Client) WriteReport(ctx context.Context, r core.BudgetReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if r.BudgetID <= 0 {
		return "", errors.New("report without budget id")
	}

	sheet := yearPrefixedName(c.reportBase, r.StartDate.Year())
	rng := fmt.Sprintf("%s!A:I", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rng, err)
	}

	rows := [][]any{reportHeader}
	id := strconv.FormatInt(r.BudgetID, 10)
	for i, row := range resp.Values {
		cols := toStrings(row)
		if i == 0 && len(cols) > 0 && strings.EqualFold(cols[0], "Budget ID") {
			continue
		}
		if len(cols) == 0 || cols[0] == id {
			continue
		}
		rows = append(rows, row)
	}
	first := len(rows) + 1
	rows = append(rows, reportRows(r)...)

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", rng, err)
	}

	target := fmt.Sprintf("%s!A1:I%d", sheet, len(rows))
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, target, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", target, err)
	}

	return fmt.Sprintf("%s!A%d:I%d", sheet, first, len(rows)), nil
}

// ReadReport parses the rows of budgetID from the sheet of year.
func (c *Client) ReadReport(ctx context.Context, year int, budgetID int64) (core.BudgetReport, bool, error) {
	if c.svc == nil {
		return core.BudgetReport{}, false, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:I", yearPrefixedName(c.reportBase, year))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return core.BudgetReport{}, false, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseReport(resp.Values, budgetID)
}

func reportRows(r core.BudgetReport) [][]any {
	rows := make([][]any, 0, len(r.Categories))
	for _, c := range r.Categories {
		rows = append(rows, []any{
			strconv.FormatInt(r.BudgetID, 10),
			r.BudgetName,
			r.StartDate.Format("2006-01-02"),
			r.EndDate.Format("2006-01-02"),
			strconv.FormatInt(c.CategoryID, 10),
			c.CategoryName,
			core.FormatAmount(c.BudgetedAmount),
			core.FormatAmount(c.SpentAmount),
			core.FormatAmount(c.RemainingAmount),
		})
	}
	return rows
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
