// Package observability provides OpenTelemetry-based tracing, metrics, and
// structured logging for all nxcore application modes (CLI, daemon,
// TUI-embedded).
package observability

import "log/slog"

// AppMode identifies the application execution mode.
type AppMode string

const (
	// ModeCLI is a one-shot CLI command invocation.
	ModeCLI AppMode = "cli"
	// ModeDaemon is the long-running background daemon process.
	ModeDaemon AppMode = "daemon"
	// ModeTUI is the interactive terminal UI, embedded inside a CLI run.
	ModeTUI AppMode = "tui"
)

const (
	// defaultServiceName is the default OTel service name.
	defaultServiceName = "nxcore"

	// defaultShutdownTimeoutSec is the default shutdown timeout in seconds.
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration. NewLogger reads
// ServiceName, Environment, Mode, LogLevel and LogJSON. No function in this
// package reads ServiceVersion, the OTLP fields, DebugTrace, SampleRatio,
// TraceVerbose or ShutdownTimeoutSec, and no tracer or meter provider is
// built from this struct.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "production", "staging", "dev").
	Environment string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporter.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// DebugTrace selects 100% trace sampling.
	DebugTrace bool

	// SampleRatio is the trace sampling ratio (0.0 to 1.0) when DebugTrace is false.
	SampleRatio float64

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// TraceVerbose selects hot-path spans. NewFilteringTracerProvider does
	// not consult it and suppresses the hot-path tracers and spans whatever
	// its value.
	TraceVerbose bool

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
