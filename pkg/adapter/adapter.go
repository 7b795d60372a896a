package adapter

import (
	"context"

	"github.com/marmos91/wex/pkg/dispatch"
)

// Adapter represents a transport-specific server adapter managed by WexServer.
//
// Each adapter exposes the shared dispatcher over one transport (HTTP today)
// and provides a unified interface for lifecycle management. All adapters
// share the same dispatcher, and therefore the same sandbox root and lock
// table.
//
// Lifecycle:
//  1. Creation: Adapter is created with transport-specific configuration
//  2. Injection: SetDispatcher() provides the shared dispatcher
//  3. Startup: Serve() starts the server and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetDispatcher() is called
// once before Serve(), but Stop() may be called concurrently with Serve().
type Adapter interface {
	// Serve starts the server and blocks until the context is cancelled
	// or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must initiate graceful shutdown:
	//   - Stop accepting new connections
	//   - Wait for in-flight requests to complete (with timeout)
	//   - Release the listener
	//
	// If Serve returns before context cancellation, WexServer treats it as
	// a fatal error and stops all other adapters.
	//
	// Returns:
	//   - nil on graceful shutdown
	//   - error if startup fails or shutdown is not graceful
	Serve(ctx context.Context) error

	// SetDispatcher injects the shared dispatcher.
	//
	// Called exactly once by WexServer before Serve(); no synchronization
	// needed.
	SetDispatcher(d *dispatch.Dispatcher)

	// Stop initiates graceful shutdown.
	//
	// Implementations must be idempotent, safe to call concurrently with
	// Serve(), and must respect the context deadline.
	Stop(ctx context.Context) error

	// Protocol returns the human-readable protocol name for logging and metrics.
	//
	// Examples: "HTTP", "HTTPS"
	Protocol() string

	// Port returns the TCP port the adapter is listening on.
	//
	// Returns the configured port before Serve() binds, and the bound port
	// afterwards.
	Port() int
}
