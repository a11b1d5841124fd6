// Package config loads nxcore's runtime settings - cache location, daemon
// socket directory, native logging filter - the same layered way the
// teacher loads its own settings: defaults, then a config file, then
// environment variables, with environment variables always winning.
package config

import "errors"

// Config is nxcore's runtime configuration. Field tags use mapstructure
// for viper unmarshalling.
type Config struct {
	// CacheDirectory overrides the default <workspaceRoot>/.nx/cache
	// location for the SQL cache store and task output archives.
	CacheDirectory string `mapstructure:"cache_directory"`

	// WorkspaceRoot is the monorepo root nxcore operates against. Empty
	// means "resolve from the current working directory."
	WorkspaceRoot string `mapstructure:"workspace_root"`

	// SocketDir overrides the directory the daemon's unix socket is
	// created under (NX_SOCKET_DIR takes precedence, then
	// NX_DAEMON_SOCKET_DIR, then the OS temp directory).
	SocketDir string `mapstructure:"socket_dir"`

	// NativeLogging is a slog level filter spec (e.g. "debug", "warn")
	// applied to the ambient logger, mirroring NX_NATIVE_LOGGING.
	NativeLogging string `mapstructure:"native_logging"`

	// SkipVSCodeExtensionInstall disables the editor-integration install
	// step some callers perform on first run.
	SkipVSCodeExtensionInstall bool `mapstructure:"skip_vscode_extension_install"`

	// UseDotfileVFS selects the SQLite unix-dotfile VFS for the cache
	// database, the behavior CI environments need when the workspace
	// lives on a filesystem without reliable POSIX advisory locks.
	UseDotfileVFS bool `mapstructure:"use_dotfile_vfs"`

	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

// PipelineConfig holds the task-execution concurrency knobs.
type PipelineConfig struct {
	// Workers is the configured task concurrency; zero stands for
	// "use runtime.NumCPU()". It is loaded and validated only: no package
	// in this module reads it.
	Workers int `mapstructure:"workers"`

	// BusyRetries is the configured SQLITE_BUSY retry count for cache
	// writes. It is loaded and validated only: the cache store does not
	// read it and uses its own fixed count of five.
	BusyRetries int `mapstructure:"busy_retries"`
}

// Sentinel errors for configuration validation.
var (
	ErrInvalidWorkers     = errors.New("pipeline.workers must be non-negative")
	ErrInvalidBusyRetries = errors.New("pipeline.busy_retries must be non-negative")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Pipeline.Workers < 0 {
		return ErrInvalidWorkers
	}
	if c.Pipeline.BusyRetries < 0 {
		return ErrInvalidBusyRetries
	}
	return nil
}

const (
	// DefaultPipelineWorkers of 0 defers concurrency to runtime.NumCPU().
	DefaultPipelineWorkers = 0
	// DefaultBusyRetries matches the SQL cache store's own retry loop.
	DefaultBusyRetries = 5
)
