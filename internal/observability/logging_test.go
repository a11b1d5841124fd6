package observability_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nrwl-labs/nxcore/internal/observability"
)

func TestParseNativeLoggingLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"trace":   observability.LevelTrace,
		"debug":   slog.LevelDebug,
		"Debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}

	for spec, want := range cases {
		assert.Equal(t, want, observability.ParseNativeLoggingLevel(spec), "spec %q", spec)
	}
}

func TestLevelTrace_IsFinerThanDebug(t *testing.T) {
	t.Parallel()

	assert.Less(t, int(observability.LevelTrace), int(slog.LevelDebug))
}

func TestNewLogger_RespectsConfiguredLevel(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.LogLevel = slog.LevelWarn

	logger := observability.NewLogger(cfg)

	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}
