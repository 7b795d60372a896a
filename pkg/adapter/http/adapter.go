// Package http exposes the dispatcher over HTTP(S) using echo.
//
// Request mapping:
//   - GET    /<path>            read a file or list a directory
//   - PUT    /<path>            replace a file with the request body
//   - POST   /<dir>             multipart upload of the "files" field
//   - POST   /<path>?op=mkdir   create a directory and its parents
//   - PATCH  /<path>            move to the path given in the body
//   - DELETE /<path>            delete a file or directory tree
package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/marmos91/wex/internal/logger"
	"github.com/marmos91/wex/internal/tlsutil"
	"github.com/marmos91/wex/pkg/dispatch"
	"github.com/marmos91/wex/pkg/metrics"
)

// Adapter serves the file browser over HTTP.
type Adapter struct {
	config Config

	echo *echo.Echo

	// dispatcher executes every request; set by SetDispatcher before Serve
	dispatcher *dispatch.Dispatcher

	metrics metrics.HTTPMetrics

	// server and boundPort are set once Serve has bound its listener;
	// closed records a Stop that arrived before that
	mu        sync.Mutex
	server    *http.Server
	closed    bool
	boundPort atomic.Int32

	// shutdownOnce guards the server shutdown
	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates an HTTP adapter with the specified configuration.
//
// Zero values in config are replaced with defaults. Invalid configurations
// cause a panic (programmer error; pkg/config validates user input first).
//
// Parameters:
//   - config: Listener, timeout, upload and TLS settings
//   - httpMetrics: Optional metrics collector (nil for no metrics)
func New(config Config, httpMetrics metrics.HTTPMetrics) *Adapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}

	if httpMetrics == nil {
		httpMetrics = metrics.NewNoopHTTPMetrics()
	}

	a := &Adapter{
		config:  config,
		metrics: httpMetrics,
	}
	a.echo = a.newEcho()
	return a
}

func (a *Adapter) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: dispatch.NewRequestID,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(dispatch.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(a.metricsMiddleware)
	e.Use(middleware.BodyLimit(strconv.FormatInt(a.config.MaxUploadSize, 10)))

	h := &handlers{adapter: a}
	e.GET("/*", h.get)
	e.HEAD("/*", h.get)
	e.PUT("/*", h.put)
	e.POST("/*", h.post)
	e.PATCH("/*", h.patch)
	e.DELETE("/*", h.delete)

	return e
}

// Handler returns the request handler, for embedding or httptest.
func (a *Adapter) Handler() http.Handler {
	return a.echo
}

// SetDispatcher injects the shared dispatcher.
func (a *Adapter) SetDispatcher(d *dispatch.Dispatcher) {
	a.dispatcher = d
}

// Serve binds the listener and serves requests until ctx is cancelled or
// Stop is called.
func (a *Adapter) Serve(ctx context.Context) error {
	if a.dispatcher == nil {
		return errors.New("HTTP adapter has no dispatcher")
	}

	addr := net.JoinHostPort(a.config.Bind, strconv.Itoa(a.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create %s listener on %s: %w", a.Protocol(), addr, err)
	}

	if a.config.TLS.Enabled {
		tlsConfig, err := a.tlsConfig()
		if err != nil {
			_ = listener.Close()
			return err
		}
		listener = tls.NewListener(listener, tlsConfig)
	}

	if tcp, ok := listener.Addr().(*net.TCPAddr); ok {
		a.boundPort.Store(int32(tcp.Port))
	}

	server := &http.Server{
		Handler:      a.echo,
		ReadTimeout:  a.config.ReadTimeout,
		WriteTimeout: a.config.WriteTimeout,
		IdleTimeout:  a.config.IdleTimeout,
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	a.server = server
	a.mu.Unlock()

	logger.Info("%s server listening on %s", a.Protocol(), listener.Addr())
	logger.Debug("%s config: read_timeout=%v write_timeout=%v idle_timeout=%v max_upload_size=%d",
		a.Protocol(), a.config.ReadTimeout, a.config.WriteTimeout, a.config.IdleTimeout, a.config.MaxUploadSize)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s server failed: %w", a.Protocol(), err)

	case <-ctx.Done():
		logger.Info("%s shutdown signal received: %v", a.Protocol(), ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
		defer cancel()
		err := a.Stop(shutdownCtx)
		<-serveErr
		return err
	}
}

func (a *Adapter) tlsConfig() (*tls.Config, error) {
	var (
		pair tls.Certificate
		err  error
	)

	if a.config.TLS.CertFile != "" {
		pair, err = tls.LoadX509KeyPair(a.config.TLS.CertFile, a.config.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
		}
	} else {
		dir := a.config.TLS.CertDir
		if dir == "" {
			if dir, err = tlsutil.DefaultDir(); err != nil {
				return nil, err
			}
		}
		pair, err = tlsutil.LoadOrCreate(dir, a.config.TLS.Hosts)
		if err != nil {
			return nil, err
		}
	}

	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Stop gracefully shuts the server down, waiting for in-flight requests
// until ctx expires. Safe to call multiple times and before Serve.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	server := a.server
	a.closed = true
	a.mu.Unlock()

	if server == nil {
		return nil
	}

	a.shutdownOnce.Do(func() {
		if ctx == nil {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(context.Background(), a.config.ShutdownTimeout)
			defer cancel()
		}

		logger.Info("%s graceful shutdown: waiting for in-flight requests", a.Protocol())
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("%s shutdown incomplete, closing remaining connections: %v", a.Protocol(), err)
			_ = server.Close()
			a.shutdownErr = err
			return
		}
		logger.Info("%s graceful shutdown complete", a.Protocol())
	})
	return a.shutdownErr
}

// Port returns the bound port once serving, the configured port before.
func (a *Adapter) Port() int {
	if p := a.boundPort.Load(); p != 0 {
		return int(p)
	}
	return a.config.Port
}

// Protocol returns "HTTPS" when TLS is enabled, "HTTP" otherwise.
func (a *Adapter) Protocol() string {
	if a.config.TLS.Enabled {
		return "HTTPS"
	}
	return "HTTP"
}
