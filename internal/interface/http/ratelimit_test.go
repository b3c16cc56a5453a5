package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/config"
)

func TestClientLimiterRefillsOverTime(t *testing.T) {
	clock := time.Date(2025, 10, 22, 8, 0, 0, 0, time.UTC)
	limiter := newClientLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 30, Burst: 2})
	limiter.now = func() time.Time { return clock }

	for i := 0; i < 2; i++ {
		_, ok := limiter.take("10.0.0.1")
		require.True(t, ok)
	}
	wait, ok := limiter.take("10.0.0.1")
	require.False(t, ok)
	require.Equal(t, 2*time.Second, wait)

	_, ok = limiter.take("10.0.0.2")
	require.True(t, ok, "buckets are per client")

	clock = clock.Add(3 * time.Second)
	_, ok = limiter.take("10.0.0.1")
	require.True(t, ok)
}

func TestClientLimiterPrunesIdleBuckets(t *testing.T) {
	clock := time.Date(2025, 10, 22, 8, 0, 0, 0, time.UTC)
	limiter := newClientLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 0})
	limiter.now = func() time.Time { return clock }

	_, ok := limiter.take("10.0.0.1")
	require.True(t, ok, "zero burst still admits one request")
	require.Len(t, limiter.buckets, 1)

	clock = clock.Add(bucketIdleTTL + time.Second)
	_, _ = limiter.take("10.0.0.2")
	require.Len(t, limiter.buckets, 1)
	require.Contains(t, limiter.buckets, "10.0.0.2")
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newEngine := func(allowed []string) *gin.Engine {
		engine := gin.New()
		engine.Use(corsMiddleware(allowed))
		engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
		return engine
	}
	call := func(engine *gin.Engine, method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/ping", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec
	}

	rec := call(newEngine(nil), http.MethodGet, "https://any.example")
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	restricted := newEngine([]string{"https://Dashboard.example"})
	rec = call(restricted, http.MethodGet, "https://dashboard.example")
	require.Equal(t, "https://dashboard.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", rec.Header().Get("Vary"))

	rec = call(restricted, http.MethodGet, "https://evil.example")
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = call(restricted, http.MethodOptions, "https://dashboard.example")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
}
