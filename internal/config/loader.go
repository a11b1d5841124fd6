package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".nxcorerc"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for nxcore settings,
// matching the upstream tool's own NX_-prefixed environment variables.
const envPrefix = "NX"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	bindEnv(viperCfg)

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	if cfg.WorkspaceRoot == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.WorkspaceRoot = cwd
		}
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("cache_directory", "")
	viperCfg.SetDefault("workspace_root", "")
	viperCfg.SetDefault("socket_dir", "")
	viperCfg.SetDefault("native_logging", "")
	viperCfg.SetDefault("skip_vscode_extension_install", false)
	viperCfg.SetDefault("use_dotfile_vfs", false)
	viperCfg.SetDefault("pipeline.workers", DefaultPipelineWorkers)
	viperCfg.SetDefault("pipeline.busy_retries", DefaultBusyRetries)
}

// bindEnv maps each of spec §6's observed environment variables onto its
// mapstructure key explicitly, since their names (NX_CACHE_DIRECTORY,
// NX_SOCKET_DIR) don't all follow the automatic NX_<SECTION>_<FIELD>
// convention AutomaticEnv alone would derive.
func bindEnv(viperCfg *viper.Viper) {
	_ = viperCfg.BindEnv("cache_directory", "NX_CACHE_DIRECTORY")
	_ = viperCfg.BindEnv("workspace_root", "NX_WORKSPACE_ROOT")
	_ = viperCfg.BindEnv("socket_dir", "NX_SOCKET_DIR", "NX_DAEMON_SOCKET_DIR")
	_ = viperCfg.BindEnv("native_logging", "NX_NATIVE_LOGGING")
	_ = viperCfg.BindEnv("skip_vscode_extension_install", "NX_SKIP_VSCODE_EXTENSION_INSTALL")
	_ = viperCfg.BindEnv("use_dotfile_vfs", "NX_USE_DOTFILE_VFS")
}

// IsCI reports whether the process is running under a recognized CI
// provider, the same signal the upstream tool uses to pick the SQLite
// unix-dotfile VFS by default.
func IsCI() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	for _, v := range []string{"GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI", "TRAVIS", "BUILDKITE", "JENKINS_URL", "TEAMCITY_VERSION"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}
