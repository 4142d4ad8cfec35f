// Package backend selects where budget reports are exported.
package backend

import (
	"context"
	"fmt"

	"moneytrace/internal/log"
	gsheet "moneytrace/internal/sheets/google"
	"moneytrace/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentSheets)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (Backend, error) {
	cli, err := gsheet.NewFromServiceAccount(ctx, config.GoogleSpreadsheetID, config.GoogleReportSheetName,
		config.GoogleServiceAccountFile, config.GoogleServiceAccountJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleReportSheetName)

	return cli, nil
}

func (f *DefaultFactory) createMemoryBackend() (Backend, error) {
	f.logger.Info("Initialized memory backend, reports are kept in process only")
	return memory.New(), nil
}
