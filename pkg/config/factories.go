package config

import (
	"context"
	"fmt"
	"os"

	"github.com/marmos91/wex/internal/logger"
	contentFs "github.com/marmos91/wex/pkg/content/fs"
	"github.com/marmos91/wex/pkg/dispatch"
	"github.com/marmos91/wex/pkg/metrics"
	"github.com/marmos91/wex/pkg/sandbox"
	"github.com/mitchellh/mapstructure"
)

// FilesystemStoreConfig holds the options of the "filesystem" store,
// decoded from store.filesystem.
type FilesystemStoreConfig struct {
	// Path is the directory served as the sandbox root
	Path string `mapstructure:"path"`

	// Create makes the directory (and missing parents) when absent
	Create bool `mapstructure:"create"`
}

// CreateStore creates the file store and its sandbox root from configuration.
//
// This factory function uses the Type field to determine which store
// implementation to create, then decodes the type-specific configuration from
// the corresponding map and passes it to the store's constructor.
//
// Supported types:
//   - "filesystem": Uses pkg/content/fs (local directory served through os.Root)
//
// The caller owns the returned store and must Close it.
func CreateStore(ctx context.Context, cfg *StoreConfig) (*contentFs.Store, *sandbox.Root, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemStore(ctx, cfg.Filesystem)
	default:
		return nil, nil, fmt.Errorf("unknown store type: %q", cfg.Type)
	}
}

// createFilesystemStore creates a filesystem-backed store.
func createFilesystemStore(ctx context.Context, options map[string]any) (*contentFs.Store, *sandbox.Root, error) {
	var storeCfg FilesystemStoreConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true, // env overrides arrive as strings
		Result:           &storeCfg,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, nil, fmt.Errorf("failed to decode filesystem store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, nil, fmt.Errorf("filesystem store: path is required")
	}

	if storeCfg.Create {
		if err := os.MkdirAll(storeCfg.Path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create root directory %s: %w", storeCfg.Path, err)
		}
	}

	root, err := sandbox.NewRoot(storeCfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid root directory: %w", err)
	}

	store, err := contentFs.New(ctx, root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create filesystem store: %w", err)
	}

	logger.Debug("Filesystem store ready at %s", root.Path())
	return store, root, nil
}

// CreateDispatcher builds the request dispatcher over an open store.
func CreateDispatcher(cfg *Config, root *sandbox.Root, store *contentFs.Store, m metrics.DispatchMetrics) *dispatch.Dispatcher {
	return dispatch.New(root, store, dispatch.Config{
		SerializeWrites: cfg.Dispatch.SerializeWrites,
	}, m)
}
