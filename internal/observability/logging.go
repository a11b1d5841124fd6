package observability

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the package-level *slog.Logger every ambient component
// (walker, hasher, cache store, pty pool, process killer) is constructed
// with: JSON or text output per cfg.LogJSON, filtered at cfg.LogLevel, with
// service/env/mode attributes and OTel trace context injected via
// TracingHandler. Callers inject the result at construction time; nothing
// in this package keeps a logger in a package-level variable.
func NewLogger(cfg Config) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		inner = slog.NewTextHandler(os.Stderr, handlerOpts)
	}

	return slog.New(NewTracingHandler(inner, cfg.ServiceName, cfg.Environment, cfg.Mode))
}

// ParseNativeLoggingLevel parses an NX_NATIVE_LOGGING filter spec
// ("trace", "debug", "info", "warn", "error") into a slog.Level, mirroring
// the native logging filter's level names. "trace" has no slog.Level
// equivalent in the standard library, so it maps to slog.LevelDebug - 4,
// one step finer than Debug, matching the native filter's "trace is finer
// than debug" ordering. An empty or unrecognized spec defaults to Info.
func ParseNativeLoggingLevel(spec string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(spec)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelTrace is one step finer than slog.LevelDebug. It is the level a
// "trace" NX_NATIVE_LOGGING spec selects; the walker, hasher, cache store,
// pty pool, and process killer log their swallowed-error and fallback
// records at Debug, so a trace filter admits them as well.
const LevelTrace = slog.LevelDebug - 4
