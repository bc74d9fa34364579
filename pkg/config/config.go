// Package config loads the configuration for the rlockctl CLI harness and
// any other process embedding the regionlock core: where segments live,
// how eagerly dead owners are swept, and logging behaviour. The table
// capacity constants are compile-time values of the regionlock package,
// baked into the segment layout, and deliberately not configurable here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the static configuration for a process that attaches shared
// segments and issues lock requests.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (applied by the caller after Load)
//  2. Environment variables (RLOCK_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// SegmentDir is the directory shared segments and their companion
	// lock files live in. Defaults to /dev/shm so segments never
	// survive a reboot.
	SegmentDir string `mapstructure:"segment_dir" yaml:"segment_dir"`

	// SweepOnEveryOp controls whether the liveness sweeper runs before
	// every table operation (the default) or only on unlock and close.
	// Disabling it trades crash-reclaim latency for fewer kill(pid, 0)
	// syscalls on the acquire hot path.
	SweepOnEveryOp bool `mapstructure:"sweep_on_every_op" yaml:"sweep_on_every_op"`

	// Logging controls the CLI harness's structured log output.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a path.
	Output string `mapstructure:"output" yaml:"output"`
}

// GetDefaultConfig returns a Config populated entirely with defaults.
func GetDefaultConfig() *Config {
	// SweepOnEveryOp defaults to true but cannot live in ApplyDefaults:
	// a false loaded from file or environment must survive, and a bool's
	// zero value is indistinguishable from "unset" there. setupViper's
	// SetDefault handles the loaded path.
	cfg := &Config{SweepOnEveryOp: true}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in any zero-valued fields with their defaults.
// Explicit values from file/environment are preserved.
func ApplyDefaults(cfg *Config) {
	if cfg.SegmentDir == "" {
		cfg.SegmentDir = "/dev/shm"
	}
	applyLoggingDefaults(&cfg.Logging)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// Validate checks cfg for internally inconsistent values. The surface
// is small enough (a path and one enum pair) that plain checks read
// more clearly than struct-tag validation.
func Validate(cfg *Config) error {
	if cfg.SegmentDir == "" {
		return fmt.Errorf("segment_dir must not be empty")
	}
	switch strings.ToUpper(cfg.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("logging.level must be one of DEBUG, INFO, WARN, ERROR, got %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format)
	}
	return nil
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: path to a config file (empty string uses the default
//     location under $XDG_CONFIG_HOME/rlockctl/config.yaml)
//
// Environment variables override only keys that the config file sets,
// plus sweep_on_every_op, which has a viper default. When no config file
// is found, Load returns GetDefaultConfig() and does not read the
// environment at all.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Watch loads configuration the same way Load does, then keeps watching
// the backing file for changes (via viper's fsnotify-based WatchConfig)
// and invokes onChange with the freshly reloaded, validated config every
// time it's rewritten. A reload that fails validation is logged to the
// returned error channel and the previous config stays in effect.
//
// Watch returns immediately after the first successful load; onChange
// keeps firing until the process exits, since viper's file watcher has
// no stop signal.
func Watch(configPath string, onChange func(*Config)) (*Config, <-chan error, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, nil, err
	}

	cfg := GetDefaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		ApplyDefaults(cfg)
		if err := Validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	errs := make(chan error, 1)
	if found {
		v.OnConfigChange(func(fsnotify.Event) {
			reloaded := GetDefaultConfig()
			if err := v.Unmarshal(reloaded, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())); err != nil {
				nonBlockingSend(errs, fmt.Errorf("reload: failed to unmarshal config: %w", err))
				return
			}
			ApplyDefaults(reloaded)
			if err := Validate(reloaded); err != nil {
				nonBlockingSend(errs, fmt.Errorf("reload: configuration validation failed: %w", err))
				return
			}
			onChange(reloaded)
		})
		v.WatchConfig()
	}

	return cfg, errs, nil
}

func nonBlockingSend(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
	}
}

// SaveConfig writes cfg to path in YAML, using yaml.Marshal directly so
// the on-disk keys follow the yaml struct tags rather than mapstructure's.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetDefaultConfigPath returns the default config file location.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

func getConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "rlockctl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rlockctl"
	}
	return filepath.Join(home, ".config", "rlockctl")
}

// setupViper configures environment variable and config file lookup.
// Environment variables use the RLOCK_ prefix: RLOCK_LOGGING_LEVEL=DEBUG,
// RLOCK_SEGMENT_DIR=/run/locks, and so on.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("RLOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("sweep_on_every_op", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}
