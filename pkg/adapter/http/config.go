package http

import (
	"fmt"
	"time"
)

// Config holds configuration parameters for the HTTP adapter.
//
// Default values (applied by New if zero):
//   - Bind: "" (all interfaces)
//   - Port: 8080
//   - ReadTimeout: 5m (uploads can be large)
//   - WriteTimeout: 5m
//   - IdleTimeout: 2m
//   - ShutdownTimeout: 30s
//   - MaxUploadSize: 1 GiB
type Config struct {
	// Enabled controls whether the HTTP adapter is active.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Bind is the address to listen on. Empty means all interfaces.
	Bind string `mapstructure:"bind" yaml:"bind"`

	// Port is the TCP port to listen on. If 0, defaults to 8080.
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// ReadTimeout bounds reading a complete request including the body.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds writing the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`

	// IdleTimeout closes keep-alive connections idle for longer than this.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests during graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`

	// MaxUploadSize limits request bodies in bytes (PUT, uploads, moves).
	// Larger requests are refused with 413.
	MaxUploadSize int64 `mapstructure:"max_upload_size" yaml:"max_upload_size" validate:"min=0"`

	TLS TLSConfig `mapstructure:"tls" yaml:"tls"`
}

// TLSConfig configures HTTPS.
//
// With Enabled set, either CertFile and KeyFile name an existing key pair,
// or AutoGenerate creates a self-signed one in CertDir.
type TLSConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	CertFile string `mapstructure:"cert_file" yaml:"cert_file"`
	KeyFile  string `mapstructure:"key_file" yaml:"key_file"`

	// AutoGenerate creates (and renews once expired) a self-signed
	// certificate when no key pair is configured.
	AutoGenerate bool `mapstructure:"auto_generate" yaml:"auto_generate"`

	// CertDir holds generated certificates. Empty means tlsutil.DefaultDir().
	CertDir string `mapstructure:"cert_dir" yaml:"cert_dir"`

	// Hosts are the names and addresses the generated certificate covers.
	Hosts []string `mapstructure:"hosts" yaml:"hosts"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = 1 << 30
	}
}

// validate checks that the configuration is usable.
func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid ReadTimeout %v: must be >= 0", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("invalid WriteTimeout %v: must be >= 0", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("invalid IdleTimeout %v: must be >= 0", c.IdleTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("invalid MaxUploadSize %d: must be > 0", c.MaxUploadSize)
	}

	if c.TLS.Enabled {
		if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
			return fmt.Errorf("tls: cert_file and key_file must be set together")
		}
		if c.TLS.CertFile == "" && !c.TLS.AutoGenerate {
			return fmt.Errorf("tls: enabled without cert_file/key_file and auto_generate is off")
		}
	}
	return nil
}
