package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/wex/internal/logger"
	"github.com/marmos91/wex/pkg/adapter"
	"github.com/marmos91/wex/pkg/dispatch"
	"github.com/marmos91/wex/pkg/metrics"
)

// ErrAlreadyServed is returned when Serve is called a second time.
var ErrAlreadyServed = errors.New("Serve() has already been called on this server instance")

// Config tunes the server lifecycle.
type Config struct {
	// ShutdownTimeout bounds the Stop() calls issued to adapters.
	// Default: 30s
	ShutdownTimeout time.Duration

	// Metrics, when set, is started alongside the adapters and stopped
	// with them.
	Metrics *metrics.Server
}

// WexServer manages the lifecycle of transport adapters that share one
// dispatcher.
//
// Lifecycle:
//  1. Creation: New() with the dispatcher
//  2. Registration: AddAdapter() for each transport
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: Context cancellation triggers graceful shutdown of all adapters
//
// Thread safety:
// WexServer is safe for concurrent use. AddAdapter() may be called concurrently
// with other methods. Serve() should only be called once per server instance.
//
// Example usage:
//
//	srv := server.New(dispatcher, server.Config{})
//	if err := srv.AddAdapter(http.New(httpConfig, nil)); err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && err != context.Canceled {
//	    log.Fatal(err)
//	}
type WexServer struct {
	dispatcher *dispatch.Dispatcher
	config     Config

	// adapters contains all registered adapters in registration order
	adapters []adapter.Adapter

	// mu protects adapters and served
	mu     sync.RWMutex
	served bool
}

// New creates a WexServer around the shared dispatcher.
//
// Panics if the dispatcher is nil (programmer error).
func New(d *dispatch.Dispatcher, config Config) *WexServer {
	if d == nil {
		panic("dispatcher cannot be nil")
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}

	return &WexServer{
		dispatcher: d,
		config:     config,
		adapters:   make([]adapter.Adapter, 0, 2),
	}
}

// AddAdapter injects the dispatcher into a and registers it for Serve().
//
// Duplicate protocols or port conflicts are detected and return an error.
//
// Panics if:
//   - adapter is nil (programmer error)
//   - Serve() has already been called (server is running)
func (s *WexServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}
	if s.config.Metrics != nil && s.config.Metrics.Port() == port {
		return fmt.Errorf("port %d already in use by the metrics server", port)
	}

	a.SetDispatcher(s.dispatcher)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Serve starts all registered adapters (and the metrics server, if
// configured) and blocks until the context is cancelled or an adapter fails.
//
// Shutdown behavior:
// When the context is cancelled or an adapter fails, all adapters receive
// Stop() calls in reverse registration order sharing one ShutdownTimeout
// deadline, and Serve() waits for every adapter goroutine to return.
//
// Returns:
//   - context.Canceled (or the context's error) on graceful shutdown
//   - error if no adapter is registered or an adapter failed
//   - ErrAlreadyServed on a second call
func (s *WexServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrAlreadyServed
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting wex server with %d adapter(s), root %s", len(adapters), s.dispatcher.Root().Path())

	// Buffered so failing adapters never block
	errChan := make(chan adapterError, len(adapters)+1)

	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			if err := a.Serve(ctx); err != nil {
				if !errors.Is(err, context.Canceled) && ctx.Err() == nil {
					logger.Error("%s adapter failed: %v", protocol, err)
					errChan <- adapterError{protocol: protocol, err: err}
				} else {
					logger.Debug("%s adapter stopped gracefully", protocol)
				}
			} else {
				logger.Info("%s adapter stopped", protocol)
			}
		}(adp)
	}

	// The metrics server gets its own context so it outlives a failing
	// adapter until the shutdown below.
	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	defer stopMetrics()
	if s.config.Metrics != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.config.Metrics.Start(metricsCtx); err != nil {
				logger.Error("Metrics server failed: %v", err)
				errChan <- adapterError{protocol: "metrics", err: err}
			}
		}()
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		s.stopAllAdapters(adapters)
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		s.stopAllAdapters(adapters)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}
	stopMetrics()

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	logger.Info("wex server stopped")
	return shutdownErr
}

// adapterError pairs an adapter protocol name with its error.
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters stops adapters in reverse registration order. Errors are
// logged and do not prevent stopping the remaining adapters.
func (s *WexServer) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		protocol := adp.Protocol()

		logger.Debug("Stopping %s adapter (port %d)", protocol, adp.Port())
		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		} else {
			logger.Debug("%s adapter stop signal sent", protocol)
		}
	}
}

// Adapters returns a snapshot of currently registered adapters.
func (s *WexServer) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
