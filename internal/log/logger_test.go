package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentBalance, Output: &buf})

	fields := NewFields().
		WithAdjustment(7, decimal.RequireFromString("-25"), "op:1:account:7").
		WithError(errors.New("boom"))
	l.Warn("adjustment skipped", fields.ToSlice()...)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, ComponentBalance, rec[FieldComponent])
	assert.Equal(t, "-25.00", rec[FieldDelta])
	assert.Equal(t, "boom", rec[FieldError])
	assert.Equal(t, "WARN", rec["level"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Component: ComponentApp, Output: &buf})

	l.Info("hidden")
	l.Error("shown")

	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.True(t, strings.Contains(out, "shown"))
	assert.True(t, strings.Contains(out, "component=app"))
}

func TestWithComponentKeepsAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentApp, Output: &buf}).With(FieldUserID, 3)

	l.WithComponent(ComponentWorker).Info("tick")

	out := buf.String()
	assert.Contains(t, out, "user_id=3")
	assert.Contains(t, out, "component=worker")
	assert.Equal(t, ComponentWorker, l.WithComponent(ComponentWorker).Component())
}
