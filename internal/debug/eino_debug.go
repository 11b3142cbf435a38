// Package debug starts eino's visual debug server, which lists the compiled
// search chain, and logs advisor model calls through eino callbacks.
package debug

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/devops"
	"go.uber.org/zap"

	"github.com/dyike/BondCortex/config"
)

// DefaultPort is the port the eino devops server listens on.
const DefaultPort = 52538

type initFunc func(ctx context.Context) error

type EinoDebugger struct {
	config *config.Config
	logger *zap.Logger
	init   initFunc
}

func NewEinoDebugger(cfg *config.Config, logger *zap.Logger) *EinoDebugger {
	return &EinoDebugger{
		config: cfg,
		logger: logger,
		init: func(ctx context.Context) error {
			return devops.Init(ctx)
		},
	}
}

// Initialize starts the debug server when it is enabled in the config.
func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.config.EinoDebugEnabled {
		return nil
	}

	d.logger.Debug("initializing eino debug server", zap.Int("port", DefaultPort))
	if err := d.init(ctx); err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}
	d.logger.Info("eino debug server ready", zap.String("url", d.URL()))
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.config.EinoDebugEnabled
}

func (d *EinoDebugger) URL() string {
	if !d.config.EinoDebugEnabled {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", DefaultPort)
}
