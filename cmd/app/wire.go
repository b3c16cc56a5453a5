//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/bootstrap"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/briefing"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/calendar"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/fetcher"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/config"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/ttlcache"
	httpiface "github.com/Skobyn/alexaLunchDad-sub000/internal/interface/http"
	"github.com/Skobyn/alexaLunchDad-sub000/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideCalendar,
		provideCache,
		provideMetrics,
		provideMenuClient,
		provideWeatherClient,
		provideSharedCache,
		provideFetcherConfig,
		provideFetcher,
		provideBriefingConfig,
		provideHandlerConfig,
		briefing.NewService,
		wire.Bind(new(briefing.DayResolver), new(*calendar.Calendar)),
		wire.Bind(new(briefing.MenuFetcher), new(*fetcher.Fetcher)),
		wire.Bind(new(briefing.WeatherFetcher), new(*fetcher.Fetcher)),
		wire.Bind(new(httpiface.MenuFetcher), new(*fetcher.Fetcher)),
		wire.Bind(new(httpiface.WeatherFetcher), new(*fetcher.Fetcher)),
		wire.Bind(new(httpiface.SchoolCalendar), new(*calendar.Calendar)),
		wire.Bind(new(httpiface.CacheAdmin), new(*ttlcache.Cache[any])),
		wire.Bind(new(bootstrap.Sweeper), new(*ttlcache.Cache[any])),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
