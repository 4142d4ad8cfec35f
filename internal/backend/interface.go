package backend

import (
	"context"

	"moneytrace/internal/sheets"
)

// Backend is a budget report sink that can read its reports back.
type Backend interface {
	sheets.ReportWriter
	sheets.ReportReader
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (Backend, error)
}
