package briefing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/menu"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/weather"
	apperrors "github.com/Skobyn/alexaLunchDad-sub000/pkg/errors"
	"github.com/Skobyn/alexaLunchDad-sub000/pkg/util"
)

const unavailableSpeech = "Sorry, I'm having trouble reaching the lunch menu right now. Please try again later."

// Service builds spoken lunch briefings.
type Service interface {
	Lunch(ctx context.Context, req Request) (Response, error)
}

type MenuFetcher interface {
	FetchMenu(ctx context.Context, date string) (menu.Record, error)
}

type WeatherFetcher interface {
	FetchTodayWeather(ctx context.Context) weather.Record
}

type DayResolver interface {
	ResolveDay(now time.Time, day string) (string, error)
}

type service struct {
	cfg      Config
	calendar DayResolver
	menus    MenuFetcher
	weather  WeatherFetcher
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the briefing domain.
func NewService(cfg Config, calendar DayResolver, menus MenuFetcher, weather WeatherFetcher, logger *slog.Logger) Service {
	if cfg.MaxMainItems <= 0 {
		cfg.MaxMainItems = menu.DefaultMaxItems
	}
	return &service{
		cfg:      cfg,
		calendar: calendar,
		menus:    menus,
		weather:  weather,
		logger:   logger.With("component", "briefing.service"),
		now:      time.Now,
	}
}

func (s *service) Lunch(ctx context.Context, req Request) (Response, error) {
	date, err := s.resolveDate(req)
	if err != nil {
		return Response{}, err
	}

	var (
		rec     menu.Record
		menuErr error
		current weather.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, menuErr = s.menus.FetchMenu(gctx, date)
		if menuErr != nil && !upstreamFailure(menuErr) {
			return menuErr
		}
		return nil
	})
	g.Go(func() error {
		current = s.weather.FetchTodayWeather(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Response{}, err
	}

	resp := Response{Date: date, Weather: current, MainItems: []menu.Item{}}
	if menuErr != nil {
		s.logger.Warn("briefing without menu", "date", date, "error", menuErr)
		resp.MenuError = apperrors.CodeOf(menuErr)
		resp.Speech = unavailableSpeech
		return resp, nil
	}

	resp.Menu = &rec
	resp.MainItems = menu.RankMainItems(rec.Items, s.cfg.MaxMainItems)
	resp.Speech = joinSentences(menuSentence(date, resp.MainItems), weatherSentence(current))
	s.logger.Info("briefing built", "date", date, "mainItems", len(resp.MainItems), "weatherFallback", current.IsFallback)
	return resp, nil
}

func (s *service) resolveDate(req Request) (string, error) {
	if date := strings.TrimSpace(req.Date); date != "" {
		if _, err := util.ParseDate(date); err != nil {
			return "", apperrors.Wrap(apperrors.CodeInvalidInput, "date must be formatted as YYYY-MM-DD", err)
		}
		return date, nil
	}
	return s.calendar.ResolveDay(s.now(), req.Day)
}

func upstreamFailure(err error) bool {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeExhaustedRetries, apperrors.CodeDataContract, apperrors.CodeUpstreamRejected:
		return true
	}
	return false
}

func menuSentence(date string, items []menu.Item) string {
	spoken := date
	if day, err := util.ParseDate(date); err == nil {
		spoken = day.Format("Monday, January 2")
	}
	if len(items) == 0 {
		return fmt.Sprintf("There's no lunch menu posted for %s.", spoken)
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return fmt.Sprintf("On %s, lunch is %s.", spoken, joinNames(names))
}

func weatherSentence(rec weather.Record) string {
	if rec.IsFallback || rec.Temperature == nil {
		return ""
	}
	temp := fmt.Sprintf("%.0f°%s", *rec.Temperature, rec.TemperatureUnit)
	if rec.Conditions == "" {
		return fmt.Sprintf("Right now it's %s.", temp)
	}
	return fmt.Sprintf("Right now it's %s and %s.", temp, rec.Conditions)
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
}

func joinSentences(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
