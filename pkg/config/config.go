package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	httpadapter "github.com/marmos91/wex/pkg/adapter/http"
	"github.com/spf13/viper"
)

// Config represents the complete wex configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority, applied by the caller)
//  2. Environment variables (WEX_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own option struct decoded from the
// type-specific section (e.g. store.filesystem); only the section matching
// store.type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Store selects the file store serving the root directory
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Dispatch tunes request dispatching
	Dispatch DispatchConfig `mapstructure:"dispatch" yaml:"dispatch"`

	// Adapters contains transport adapter configurations
	Adapters AdaptersConfig `mapstructure:"adapters" yaml:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// MetricsConfig controls the metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port for the /metrics endpoint
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`
}

// StoreConfig specifies the file store.
type StoreConfig struct {
	// Type specifies which store implementation to use
	// Valid values: filesystem
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem"`

	// Filesystem contains filesystem-specific options
	// Keys: path (directory to serve), create (create it if missing)
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem"`
}

// DispatchConfig tunes the request dispatcher.
type DispatchConfig struct {
	// SerializeWrites serializes mutations per path (reads share the lock).
	// Defaults to true.
	SerializeWrites bool `mapstructure:"serialize_writes" yaml:"serialize_writes"`
}

// AdaptersConfig contains all transport adapter configurations.
type AdaptersConfig struct {
	// HTTP uses the adapter's own config type to avoid duplication.
	HTTP httpadapter.Config `mapstructure:"http" yaml:"http"`
}

// Load loads configuration from file, environment, and defaults.
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// envKeys are bound explicitly so environment overrides work even when the
// config file does not mention them.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"server.shutdown_timeout",
	"server.metrics.enabled",
	"server.metrics.port",
	"store.type",
	"store.filesystem.path",
	"store.filesystem.create",
	"dispatch.serialize_writes",
	"adapters.http.enabled",
	"adapters.http.bind",
	"adapters.http.port",
	"adapters.http.max_upload_size",
	"adapters.http.tls.enabled",
	"adapters.http.tls.cert_file",
	"adapters.http.tls.key_file",
	"adapters.http.tls.auto_generate",
}

// setupViper configures viper with environment variables, defaults for
// booleans that default to true, and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: WEX_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("WEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// A zero bool cannot be told apart from an explicit false after
	// unmarshalling, so true-by-default switches live in viper.
	v.SetDefault("dispatch.serialize_writes", true)
	v.SetDefault("adapters.http.enabled", true)
	v.SetDefault("adapters.http.tls.auto_generate", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// $XDG_CONFIG_HOME/wex/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			// Missing config is fine: defaults apply
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "wex")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "wex")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
