package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/config"
	"github.com/Skobyn/alexaLunchDad-sub000/pkg/metrics"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, recorder *metrics.Prometheus, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	logger = logger.With("component", "http.router")

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		recorder.GinMiddleware(),
		errorHandlingMiddleware(logger),
	)

	router.GET("/healthz", handler.Health)
	router.GET("/metrics", gin.WrapH(recorder.Handler()))

	api := router.Group("/api/v1", rateLimitMiddleware(cfg.HTTP.RateLimit, logger))
	{
		api.GET("/menu", handler.Menu)
		api.GET("/weather", handler.Weather)
		api.GET("/lunch", handler.Lunch)
		api.GET("/school-days/next", handler.NextSchoolDay)
		api.GET("/school-days/:date", handler.SchoolDay)

		admin := api.Group("/cache")
		admin.GET("/stats", handler.CacheStats)
		admin.POST("/sweep", handler.SweepCache)
		admin.DELETE("", handler.ClearCache)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
