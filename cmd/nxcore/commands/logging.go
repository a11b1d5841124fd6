package commands

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"

	"github.com/nrwl-labs/nxcore/internal/config"
	"github.com/nrwl-labs/nxcore/internal/observability"
)

// loggerFromConfig builds the ambient *slog.Logger every command injects
// into the walker, hasher, cache store, pty pool, and process killer it
// constructs, filtered by cfg.NativeLogging (NX_NATIVE_LOGGING).
func loggerFromConfig(cfg *config.Config) *slog.Logger {
	obsCfg := observability.DefaultConfig()
	obsCfg.Mode = observability.ModeCLI
	obsCfg.LogLevel = observability.ParseNativeLoggingLevel(cfg.NativeLogging)

	return observability.NewLogger(obsCfg)
}

// noopMeter returns a no-op OTel meter: short-lived CLI invocations have no
// collector to export to, so metric instruments created against it are
// real but inert, matching the ambient stack's CLI-mode metrics policy.
func noopMeter() metric.Meter {
	return noopmetric.NewMeterProvider().Meter("nxcore")
}
