package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/briefing"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/calendar"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/fetcher"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/config"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/menu/menuapi"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/sharedcache"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/weather/nws"
	"github.com/Skobyn/alexaLunchDad-sub000/pkg/logger"
)

// components is the CLI's hand-built slice of the service graph.
type components struct {
	cfg      *config.Config
	calendar *calendar.Calendar
	fetcher  *fetcher.Fetcher
	briefing briefing.Service
	close    func()
}

func loadComponents(opts *rootOptions) (*components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.Discard()
	if opts.verbose {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	calCfg, err := cfg.School.Calendar()
	if err != nil {
		return nil, err
	}
	cal := calendar.New(calCfg)

	c := &components{cfg: cfg, calendar: cal, close: func() {}}
	var shared fetcher.SharedCache
	if store := openSharedCache(cfg, log); store != nil {
		shared = store
		c.close = store.Close
	}

	c.fetcher = fetcher.New(cfg.FetchPolicy(), fetcher.Deps{
		Menu:    menuapi.NewClient(cfg.Menu.APIBaseURL),
		Weather: nws.NewClient(cfg.Weather.APIBaseURL, cfg.Weather.UserAgent),
		Shared:  shared,
		Logger:  log,
	})
	c.briefing = briefing.NewService(briefing.Config{MaxMainItems: cfg.School.MaxMainItems}, cal, c.fetcher, c.fetcher, log)
	return c, nil
}

// openSharedCache lets the CLI reuse results the service already cached.
func openSharedCache(cfg *config.Config, log *slog.Logger) *sharedcache.ValkeyStore {
	if !cfg.SharedCache.Enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	store, err := sharedcache.Open(ctx, cfg.SharedCache.Addr, cfg.SharedCache.Prefix)
	if err != nil {
		log.Warn("shared cache unavailable", "error", err)
		return nil
	}
	return store
}
