package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/briefing"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/menu"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/weather"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/ttlcache"
	apperrors "github.com/Skobyn/alexaLunchDad-sub000/pkg/errors"
)

type MenuFetcher interface {
	FetchMenu(ctx context.Context, date string) (menu.Record, error)
}

type WeatherFetcher interface {
	FetchTodayWeather(ctx context.Context) weather.Record
}

type SchoolCalendar interface {
	IsSchoolDay(date string) (bool, error)
	NextSchoolDay(date string, count int) (string, error)
	Today(now time.Time) string
}

// CacheAdmin is the housekeeping surface of the local cache.
type CacheAdmin interface {
	Stats() ttlcache.Stats
	Len() int
	Sweep() int
	Clear()
}

// HandlerConfig tunes response shaping.
type HandlerConfig struct {
	MaxMainItems int
}

// Handler wires the HTTP transport to domain services.
type Handler struct {
	cfg      HandlerConfig
	menus    MenuFetcher
	weather  WeatherFetcher
	calendar SchoolCalendar
	briefing briefing.Service
	cache    CacheAdmin
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler constructs the root HTTP handler.
func NewHandler(cfg HandlerConfig, menus MenuFetcher, weather WeatherFetcher, calendar SchoolCalendar, briefingSvc briefing.Service, cache CacheAdmin, logger *slog.Logger) *Handler {
	if cfg.MaxMainItems <= 0 {
		cfg.MaxMainItems = menu.DefaultMaxItems
	}
	return &Handler{
		cfg:      cfg,
		menus:    menus,
		weather:  weather,
		calendar: calendar,
		briefing: briefingSvc,
		cache:    cache,
		logger:   logger.With("component", "http.handler"),
		now:      time.Now,
	}
}

type menuResponse struct {
	Record    menu.Record `json:"record"`
	MainItems []menu.Item `json:"mainItems"`
}

type nextSchoolDayResponse struct {
	From  string `json:"from"`
	Count int    `json:"count"`
	Date  string `json:"date"`
}

type schoolDayResponse struct {
	Date      string `json:"date"`
	SchoolDay bool   `json:"schoolDay"`
}

type cacheStatsResponse struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
	Entries int     `json:"entries"`
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Menu returns the menu for ?date= (default: today) with its ranked main items.
func (h *Handler) Menu(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		date = h.calendar.Today(h.now())
	}

	rec, err := h.menus.FetchMenu(c.Request.Context(), date)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, menuResponse{
		Record:    rec,
		MainItems: menu.RankMainItems(rec.Items, h.cfg.MaxMainItems),
	})
}

// Weather returns the current-hour forecast, or the fallback record.
func (h *Handler) Weather(c *gin.Context) {
	c.JSON(http.StatusOK, h.weather.FetchTodayWeather(c.Request.Context()))
}

// NextSchoolDay advances ?from= by ?count= school days.
func (h *Handler) NextSchoolDay(c *gin.Context) {
	from := strings.TrimSpace(c.Query("from"))
	if from == "" {
		from = h.calendar.Today(h.now())
	}
	count := 1
	if raw := strings.TrimSpace(c.Query("count")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			abortWithDomainError(c, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("count %q is not an integer", raw), err))
			return
		}
		count = parsed
	}

	date, err := h.calendar.NextSchoolDay(from, count)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, nextSchoolDayResponse{From: from, Count: count, Date: date})
}

// SchoolDay reports whether :date is a school day.
func (h *Handler) SchoolDay(c *gin.Context) {
	date := c.Param("date")
	ok, err := h.calendar.IsSchoolDay(date)
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, schoolDayResponse{Date: date, SchoolDay: ok})
}

// Lunch builds the spoken lunch briefing.
func (h *Handler) Lunch(c *gin.Context) {
	resp, err := h.briefing.Lunch(c.Request.Context(), briefing.Request{
		Day:  c.Query("day"),
		Date: c.Query("date"),
	})
	if err != nil {
		abortWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CacheStats reports local cache counters.
func (h *Handler) CacheStats(c *gin.Context) {
	stats := h.cache.Stats()
	c.JSON(http.StatusOK, cacheStatsResponse{
		Hits:    stats.Hits,
		Misses:  stats.Misses,
		HitRate: stats.HitRate(),
		Entries: h.cache.Len(),
	})
}

// SweepCache drops expired entries now.
func (h *Handler) SweepCache(c *gin.Context) {
	removed := h.cache.Sweep()
	h.logger.Info("cache swept", "removed", removed)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// ClearCache drops every entry and resets the counters.
func (h *Handler) ClearCache(c *gin.Context) {
	h.cache.Clear()
	h.logger.Info("cache cleared")
	c.Status(http.StatusNoContent)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
