package config

import (
	"github.com/marmos91/wex/pkg/metrics"
	promMetrics "github.com/marmos91/wex/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Dispatch records dispatcher operations (never nil, noop if disabled)
	Dispatch metrics.DispatchMetrics

	// HTTP records adapter requests (never nil, noop if disabled)
	HTTP metrics.HTTPMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			Dispatch: metrics.NewNoopDispatchMetrics(),
			HTTP:     metrics.NewNoopHTTPMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Server.Metrics.Port,
	})

	return &MetricsResult{
		Server:   server,
		Dispatch: promMetrics.NewDispatchMetrics(),
		HTTP:     promMetrics.NewHTTPMetrics(),
	}
}
