package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/briefing"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/calendar"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/fetcher"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/config"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/menu/menuapi"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/sharedcache"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/ttlcache"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/weather/nws"
	httpiface "github.com/Skobyn/alexaLunchDad-sub000/internal/interface/http"
	"github.com/Skobyn/alexaLunchDad-sub000/pkg/metrics"
)

func provideCalendar(cfg *config.Config) (*calendar.Calendar, error) {
	calCfg, err := cfg.School.Calendar()
	if err != nil {
		return nil, err
	}
	return calendar.New(calCfg), nil
}

func provideCache() *ttlcache.Cache[any] {
	return ttlcache.New[any]()
}

func provideMetrics(cache *ttlcache.Cache[any]) *metrics.Prometheus {
	return metrics.NewPrometheus(func() (int64, int64, int) {
		stats := cache.Stats()
		return stats.Hits, stats.Misses, cache.Len()
	})
}

func provideMenuClient(cfg *config.Config) *menuapi.Client {
	return menuapi.NewClient(cfg.Menu.APIBaseURL)
}

func provideWeatherClient(cfg *config.Config) *nws.Client {
	return nws.NewClient(cfg.Weather.APIBaseURL, cfg.Weather.UserAgent)
}

func provideSharedCache(cfg *config.Config, logger *slog.Logger) fetcher.SharedCache {
	if !cfg.SharedCache.Enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	store, err := sharedcache.Open(ctx, cfg.SharedCache.Addr, cfg.SharedCache.Prefix)
	if err != nil {
		logger.Error("shared cache disabled", "error", err)
		return nil
	}
	logger.Info("shared valkey cache enabled", "addr", cfg.SharedCache.Addr)
	return store
}

func provideFetcherConfig(cfg *config.Config) fetcher.Config {
	return cfg.FetchPolicy()
}

func provideFetcher(
	cfg fetcher.Config,
	cache *ttlcache.Cache[any],
	menuClient *menuapi.Client,
	weatherClient *nws.Client,
	shared fetcher.SharedCache,
	recorder *metrics.Prometheus,
	logger *slog.Logger,
) *fetcher.Fetcher {
	return fetcher.New(cfg, fetcher.Deps{
		Cache:   cache,
		Menu:    menuClient,
		Weather: weatherClient,
		Shared:  shared,
		Metrics: recorder,
		Logger:  logger,
	})
}

func provideBriefingConfig(cfg *config.Config) briefing.Config {
	return briefing.Config{MaxMainItems: cfg.School.MaxMainItems}
}

func provideHandlerConfig(cfg *config.Config) httpiface.HandlerConfig {
	return httpiface.HandlerConfig{MaxMainItems: cfg.School.MaxMainItems}
}
