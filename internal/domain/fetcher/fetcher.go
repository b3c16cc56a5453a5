package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/menu"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/weather"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/ttlcache"
	"github.com/Skobyn/alexaLunchDad-sub000/pkg/logger"
)

const (
	DefaultMaxAttempts    = 3
	DefaultBaseBackoff    = 100 * time.Millisecond
	DefaultAttemptTimeout = 5 * time.Second
)

// MenuSource loads one day's menu from the provider.
type MenuSource interface {
	FetchMenu(ctx context.Context, sourceID, date string) (menu.Record, error)
}

// WeatherSource talks to the forecast provider.
type WeatherSource interface {
	ResolveGrid(ctx context.Context, loc weather.Location) (weather.GridCoordinate, error)
	HourlyForecast(ctx context.Context, grid weather.GridCoordinate) (weather.Record, error)
}

// SharedCache is an optional second cache tier shared between processes.
type SharedCache interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// Recorder receives fetch telemetry.
type Recorder interface {
	Attempt(source, outcome string)
	Fallback(source string)
	CacheLookup(source string, hit bool)
}

// Config holds the fetch policy and the deployment's fixed school/location.
type Config struct {
	SourceID       string
	Location       weather.Location
	MaxAttempts    int
	BaseBackoff    time.Duration
	AttemptTimeout time.Duration
	MenuTTL        time.Duration
	GridTTL        time.Duration
	ForecastTTL    time.Duration
}

// Deps are the collaborators of a Fetcher. Menu and Weather are required;
// the rest fall back to in-process defaults when nil.
type Deps struct {
	Cache   *ttlcache.Cache[any]
	Menu    MenuSource
	Weather WeatherSource
	Shared  SharedCache
	Metrics Recorder
	Logger  *slog.Logger
}

// Fetcher retrieves menus and weather cache-first, retrying transient
// upstream failures.
type Fetcher struct {
	cfg     Config
	cache   *ttlcache.Cache[any]
	menu    MenuSource
	weather WeatherSource
	shared  SharedCache
	metrics Recorder
	logger  *slog.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// New wires a Fetcher.
func New(cfg Config, deps Deps) *Fetcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultBaseBackoff
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}

	f := &Fetcher{
		cfg:     cfg,
		cache:   deps.Cache,
		menu:    deps.Menu,
		weather: deps.Weather,
		shared:  deps.Shared,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     time.Now,
		sleep:   sleepContext,
	}
	if f.cache == nil {
		f.cache = ttlcache.New[any]()
	}
	if f.shared == nil {
		f.shared = noopShared{}
	}
	if f.metrics == nil {
		f.metrics = noopRecorder{}
	}
	if f.logger == nil {
		f.logger = logger.Discard()
	}
	f.logger = f.logger.With("component", "fetcher")
	return f
}

// Cache exposes the local cache for housekeeping and stats.
func (f *Fetcher) Cache() *ttlcache.Cache[any] {
	return f.cache
}

// MenuKey is the cache key of a menu record.
func MenuKey(sourceID, date string) string {
	return fmt.Sprintf("menu:%s:%s", sourceID, date)
}

// GridKey is the cache key of the grid cell for a location.
func GridKey(loc weather.Location) string {
	return fmt.Sprintf("weather:grid:%s:%s", weather.FormatCoordinate(loc.Latitude), weather.FormatCoordinate(loc.Longitude))
}

// HourlyKey is the cache key of the hourly forecast for a grid cell.
func HourlyKey(grid weather.GridCoordinate) string {
	return fmt.Sprintf("weather:hourly:%s:%d:%d", grid.GridID, grid.GridX, grid.GridY)
}

func lookup[T any](ctx context.Context, f *Fetcher, source, key string, ttl time.Duration) (T, bool) {
	var zero T
	if cached, ok := f.cache.Get(key); ok {
		if v, ok := cached.(T); ok {
			f.metrics.CacheLookup(source, true)
			f.logger.Debug("cache hit", "key", key)
			return v, true
		}
	}

	payload, ok, err := f.shared.Load(ctx, key)
	if err != nil {
		f.logger.Warn("shared cache load failed", "key", key, "error", err)
	}
	if ok {
		var v T
		if err := json.Unmarshal(payload, &v); err == nil {
			f.cache.Set(key, v, ttlSeconds(ttl))
			f.metrics.CacheLookup(source, true)
			f.logger.Debug("shared cache hit", "key", key)
			return v, true
		}
		f.logger.Warn("shared cache payload undecodable", "key", key)
	}

	f.metrics.CacheLookup(source, false)
	return zero, false
}

func store[T any](ctx context.Context, f *Fetcher, key string, v T, ttl time.Duration) {
	secs := ttlSeconds(ttl)
	if !f.cache.Set(key, v, secs) {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		f.logger.Warn("shared cache encode failed", "key", key, "error", err)
		return
	}
	if err := f.shared.Store(ctx, key, payload, time.Duration(secs)*time.Second); err != nil {
		f.logger.Warn("shared cache store failed", "key", key, "error", err)
	}
}

func ttlSeconds(ttl time.Duration) int {
	return int(ttl / time.Second)
}

type noopShared struct{}

func (noopShared) Load(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (noopShared) Store(context.Context, string, []byte, time.Duration) error { return nil }

type noopRecorder struct{}

func (noopRecorder) Attempt(string, string) {}

func (noopRecorder) Fallback(string) {}

func (noopRecorder) CacheLookup(string, bool) {}
