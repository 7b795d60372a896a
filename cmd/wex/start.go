package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/wex/internal/logger"
	"github.com/marmos91/wex/pkg/config"
	"github.com/marmos91/wex/pkg/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type startOptions struct {
	configPath string
	root       string
	bind       string
	port       int
	logLevel   string
	tls        bool
}

func newStartCommand() *cobra.Command {
	opts := &startOptions{}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve a directory over HTTP",
		Long: `Serve a directory over HTTP.

Configuration is read from --config, or $XDG_CONFIG_HOME/wex/config.yaml when
present, then WEX_* environment variables, then the flags below.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadStartConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			return runStart(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to the config file")
	cmd.Flags().StringVarP(&opts.root, "root", "r", "", "Directory to serve (default: current directory)")
	cmd.Flags().StringVar(&opts.bind, "bind", "", "Address to listen on (default: all interfaces)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default: 8080)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	cmd.Flags().BoolVar(&opts.tls, "tls", false, "Serve HTTPS with a self-signed certificate unless one is configured")

	return cmd
}

// loadStartConfig loads the configuration and applies the flags that were
// set explicitly on the command line.
func loadStartConfig(opts *startOptions, flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if flags.Changed("root") {
		cfg.Store.Filesystem["path"] = opts.root
	}
	if flags.Changed("bind") {
		cfg.Adapters.HTTP.Bind = opts.bind
	}
	if flags.Changed("port") {
		cfg.Adapters.HTTP.Port = opts.port
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("tls") {
		cfg.Adapters.HTTP.TLS.Enabled = opts.tls
	}

	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// runStart wires the store, dispatcher and adapters and serves until ctx is
// cancelled.
func runStart(ctx context.Context, cfg *config.Config) error {
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	logger.Info("wex %s (%s)", version, commit)

	m := config.InitializeMetrics(cfg)

	store, root, err := config.CreateStore(ctx, &cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close store: %v", err)
		}
	}()

	dispatcher := config.CreateDispatcher(cfg, root, store, m.Dispatch)

	srv := server.New(dispatcher, server.Config{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Metrics:         m.Server,
	})

	adapters, err := config.CreateAdapters(cfg, m.HTTP)
	if err != nil {
		return err
	}
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return fmt.Errorf("failed to register %s adapter: %w", a.Protocol(), err)
		}
	}

	logger.Info("Serving %s", root.Path())
	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
