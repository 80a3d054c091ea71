package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestJSONLoggerCarriesComponentAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentLedger, Output: &buf})

	ctx := WithRequestID(context.Background(), "req-1")
	e := core.Entry{Date: core.NewDate(2024, 1, 2), Kind: core.Expense, Amount: decimal.NewFromInt(3), Category: "Food"}
	logger.WithContext(ctx).InfoContext(ctx, "Entry appended", NewFields().WithEntry(e).WithRevision(1).ToSlice()...)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "ledger", rec[FieldComponent])
	assert.Equal(t, "req-1", rec[FieldRequestID])
	assert.Equal(t, "2024-01-02", rec[FieldEntryDate])
	assert.Equal(t, "3", rec[FieldAmount])
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, ComponentApp, FromContext(context.Background()).Component())

	l := New(Config{Component: ComponentHTTP, Output: &bytes.Buffer{}})
	ctx := IntoContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}
