package fetcher

import (
	"context"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/weather"
)

const (
	sourceWeather  = "weather"
	sourceGrid     = "weather_grid"
	sourceForecast = "weather_forecast"
)

// FetchTodayWeather returns the current-hour forecast for the configured
// location. It never fails: any problem yields weather.Fallback.
func (f *Fetcher) FetchTodayWeather(ctx context.Context) weather.Record {
	grid, err := f.resolveGrid(ctx)
	if err != nil {
		return f.weatherFallback("grid lookup failed", err)
	}
	rec, err := f.hourlyForecast(ctx, grid)
	if err != nil {
		return f.weatherFallback("forecast lookup failed", err)
	}
	return rec
}

func (f *Fetcher) resolveGrid(ctx context.Context) (weather.GridCoordinate, error) {
	key := GridKey(f.cfg.Location)
	if grid, ok := lookup[weather.GridCoordinate](ctx, f, sourceGrid, key, f.cfg.GridTTL); ok {
		return grid, nil
	}

	var grid weather.GridCoordinate
	err := f.retry(ctx, sourceGrid, func(ctx context.Context) error {
		resolved, err := f.weather.ResolveGrid(ctx, f.cfg.Location)
		if err != nil {
			return err
		}
		grid = resolved
		return nil
	})
	if err != nil {
		return weather.GridCoordinate{}, err
	}
	store(ctx, f, key, grid, f.cfg.GridTTL)
	return grid, nil
}

func (f *Fetcher) hourlyForecast(ctx context.Context, grid weather.GridCoordinate) (weather.Record, error) {
	key := HourlyKey(grid)
	if rec, ok := lookup[weather.Record](ctx, f, sourceForecast, key, f.cfg.ForecastTTL); ok {
		return rec, nil
	}

	var rec weather.Record
	err := f.retry(ctx, sourceForecast, func(ctx context.Context) error {
		fetched, err := f.weather.HourlyForecast(ctx, grid)
		if err != nil {
			return err
		}
		rec = fetched
		return nil
	})
	if err != nil {
		return weather.Record{}, err
	}
	rec.IsFallback = false
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = f.now()
	}
	store(ctx, f, key, rec, f.cfg.ForecastTTL)
	return rec, nil
}

func (f *Fetcher) weatherFallback(reason string, err error) weather.Record {
	f.metrics.Fallback(sourceWeather)
	f.logger.Warn("serving fallback weather", "reason", reason, "error", err)
	return weather.Fallback(f.now())
}
