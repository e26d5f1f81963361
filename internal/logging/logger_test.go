package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{name: "debug", want: slog.LevelDebug},
		{name: "", want: slog.LevelInfo},
		{name: "WARN", want: slog.LevelWarn},
		{name: "warning", want: slog.LevelWarn},
		{name: "error", want: slog.LevelError},
		{name: "loud", want: slog.LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestNewLoggerJSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "warn", Format: "json", Output: &buf})

	logger.Info("hidden")
	logger.WithTable("users").Warn("shown", slog.Int("rows", 2))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "users", entry["table"])
	assert.Equal(t, float64(2), entry["rows"])
}

func TestMultiHandlerFansOut(t *testing.T) {
	var debug, warn bytes.Buffer
	h := newMultiHandler(
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h).With("component", "test")

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	logger.Debug("detail")
	logger.Warn("problem")

	assert.Contains(t, debug.String(), "detail")
	assert.Contains(t, debug.String(), "problem")
	assert.NotContains(t, warn.String(), "detail")
	assert.Contains(t, warn.String(), "component=test")
}
