package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dyike/BondCortex/config"
	"github.com/dyike/BondCortex/internal/debug"
	"github.com/dyike/BondCortex/internal/logger"
	"github.com/dyike/BondCortex/internal/server"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve POST /chat, GET /bonds and GET /ping.
With --config the settings come from a JSON file, and --watch reloads the
advisor whenever that file changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			watch, _ := cmd.Flags().GetBool("watch")
			if watch && configPath == "" {
				return fmt.Errorf("--watch requires --config")
			}
			return runServe(cmd.Context(), cfg, configPath, watch)
		},
	}

	cmd.Flags().String("config", "", "Configuration file path")
	cmd.Flags().Bool("watch", false, "Reload when the configuration file changes")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, configPath string, watch bool) error {
	log := logger.New(cfg.Debug)
	defer log.Sync()

	var manager *config.Manager
	if configPath != "" {
		var err error
		manager, err = config.Open(configPath, config.WithLogger(log))
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w (create it with: bondcortex config init --config %s)", err, configPath)
		}
		if err != nil {
			return err
		}
		loaded := manager.Get()
		loaded.Debug = loaded.Debug || cfg.Debug
		cfg = &loaded
		log.Info("loaded configuration", zap.String("path", manager.Path()))
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The debugger only sees chains compiled after it starts.
	if err := debug.NewEinoDebugger(cfg, log).Initialize(ctx); err != nil {
		log.Warn("eino debug server unavailable", zap.Error(err))
	}

	rt, err := buildRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}

	srv := server.NewServer(server.Config{
		ListenAddr:     cfg.ListenAddr,
		AllowOrigins:   cfg.AllowOrigins,
		RequestTimeout: cfg.RequestTimeout,
	}, rt.advisor, rt.dataset, log.Named("http"))

	if watch {
		listenAddr := cfg.ListenAddr
		err := manager.Watch(ctx, func(next config.Config, changed []string) {
			reloaded, err := buildRuntime(ctx, &next, log)
			if err != nil {
				log.Error("reload failed, keeping current advisor", zap.Error(err))
				return
			}
			srv.Swap(reloaded.advisor, reloaded.dataset)
			if slices.Contains(changed, "listen_addr") && next.ListenAddr != listenAddr {
				log.Warn("listen address changes need a restart", zap.String("listen", next.ListenAddr))
			}
			log.Info("advisor rebuilt", zap.Strings("changed", changed))
		})
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Shutdown()
	}
}
