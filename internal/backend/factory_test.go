package backend

import (
	"context"
	"testing"

	"moneytrace/internal/config"
	"moneytrace/internal/core"
	"moneytrace/internal/sheets/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMemoryBackend(t *testing.T) {
	f := NewFactory(nil)

	b, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	require.IsType(t, &memory.Store{}, b)

	ref, err := b.WriteReport(context.Background(), core.BudgetReport{BudgetID: 7, StartDate: core.NewDate(2024, 1, 1)})
	require.NoError(t, err)
	assert.NotEmpty(t, ref)

	_, found, err := b.ReadReport(context.Background(), 2024, 7)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"unknown type", Config{Type: "sqlite"}, "invalid backend type"},
		{"sheets without spreadsheet", Config{Type: SheetsBackend, GoogleServiceAccountJSON: "{}"}, "Spreadsheet ID is required"},
		{"sheets without credentials", Config{Type: SheetsBackend, GoogleSpreadsheetID: "abc"}, "GoogleServiceAccountFile or GoogleServiceAccountJSON"},
		{"sheets complete", Config{Type: SheetsBackend, GoogleSpreadsheetID: "abc", GoogleServiceAccountFile: "sa.json"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SheetsBackend})
	assert.Error(t, err)
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{ReportBackend: "sqlite"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		ReportBackend:         "sheets",
		GoogleSpreadsheetID:   "abc",
		GoogleReportSheetName: "Budgets",
	})
	require.NoError(t, err)
	assert.Equal(t, SheetsBackend, cfg.Type)
	assert.Equal(t, "Budgets", cfg.GoogleReportSheetName)
}
