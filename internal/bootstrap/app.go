package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/config"
)

// Sweeper drops expired cache entries.
type Sweeper interface {
	Sweep() int
}

// App encapsulates the HTTP server lifecycle and the cache janitor.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *http.Server
	sweeper Sweeper
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, sweeper Sweeper) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, sweeper: sweeper}
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		a.runJanitor(janitorCtx, a.cfg.Cache.SweepInterval)
	}()

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		stopJanitor()
		<-janitorDone
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		stopJanitor()
		<-janitorDone
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// runJanitor sweeps every interval until ctx ends. A non-positive interval
// disables it and expired entries are then only evicted on access.
func (a *App) runJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || a.sweeper == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.sweeper.Sweep(); removed > 0 {
				a.logger.Info("cache sweep", "removed", removed)
			}
		}
	}
}
