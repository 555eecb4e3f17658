// Package app provides the top-level application lifecycle: it wires the
// stores, caches, object storage, and services together and runs the
// configured operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/misionbonos/bondgame/internal/config"
)

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, selects the operating mode, and blocks until
// the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	mode := strings.ToLower(a.cfg.Mode)
	switch mode {
	case "server":
		deps, cleanup, err := Wire(ctx, a.cfg)
		if err != nil {
			return fmt.Errorf("app: wire dependencies: %w", err)
		}
		a.closers = append(a.closers, cleanup)
		return a.ServerMode(ctx, deps)
	case "sim":
		return a.SimMode(ctx)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. Safe to
// call multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
