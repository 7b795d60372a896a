package config

import (
	"strings"
	"time"

	"github.com/marmos91/wex/internal/tlsutil"
	httpadapter "github.com/marmos91/wex/pkg/adapter/http"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Booleans that default to true are set by viper in Load and by
//     GetDefaultConfig, since a zero bool is indistinguishable from false
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyHTTPDefaults(&cfg.Adapters.HTTP)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// applyStoreDefaults sets store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	// The working directory, resolved when the store is created
	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = "."
	}
	if _, ok := cfg.Filesystem["create"]; !ok {
		cfg.Filesystem["create"] = false
	}
}

// applyHTTPDefaults sets HTTP adapter defaults.
//
// Mirrors the adapter's own defaults so generated config files show them.
func applyHTTPDefaults(cfg *httpadapter.Config) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = 1 << 30 // 1 GiB
	}
	if cfg.TLS.Hosts == nil {
		cfg.TLS.Hosts = append([]string(nil), tlsutil.DefaultHosts...)
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{
		Store: StoreConfig{
			Filesystem: make(map[string]any),
		},
		Dispatch: DispatchConfig{
			SerializeWrites: true,
		},
		Adapters: AdaptersConfig{
			HTTP: httpadapter.Config{
				Enabled: true,
				TLS: httpadapter.TLSConfig{
					AutoGenerate: true,
				},
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
