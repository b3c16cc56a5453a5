package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/menu"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/weather"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/ttlcache"
	apperrors "github.com/Skobyn/alexaLunchDad-sub000/pkg/errors"
)

var testNow = time.Date(2025, 10, 22, 7, 30, 0, 0, time.UTC)

type stubMenuSource struct {
	mu        sync.Mutex
	responses []func(ctx context.Context) (menu.Record, error)
	calls     int
	lastDate  string
	lastID    string
}

func (s *stubMenuSource) FetchMenu(ctx context.Context, sourceID, date string) (menu.Record, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	s.lastDate, s.lastID = date, sourceID
	s.mu.Unlock()
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx](ctx)
}

func respondMenu(rec menu.Record) func(context.Context) (menu.Record, error) {
	return func(context.Context) (menu.Record, error) { return rec, nil }
}

func failMenu(err error) func(context.Context) (menu.Record, error) {
	return func(context.Context) (menu.Record, error) { return menu.Record{}, err }
}

type stubWeatherSource struct {
	gridErr      error
	forecastErr  error
	grid         weather.GridCoordinate
	forecast     weather.Record
	gridCalls    int
	forecastCall int
}

func (s *stubWeatherSource) ResolveGrid(ctx context.Context, loc weather.Location) (weather.GridCoordinate, error) {
	s.gridCalls++
	if s.gridErr != nil {
		return weather.GridCoordinate{}, s.gridErr
	}
	return s.grid, nil
}

func (s *stubWeatherSource) HourlyForecast(ctx context.Context, grid weather.GridCoordinate) (weather.Record, error) {
	s.forecastCall++
	if s.forecastErr != nil {
		return weather.Record{}, s.forecastErr
	}
	return s.forecast, nil
}

type memoryShared struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newMemoryShared() *memoryShared {
	return &memoryShared{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryShared) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memoryShared) Store(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = payload
	m.ttls[key] = ttl
	return nil
}

type countingRecorder struct {
	attempts  map[string]int
	fallbacks int
	hits      int
	misses    int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{attempts: map[string]int{}}
}

func (r *countingRecorder) Attempt(source, outcome string) { r.attempts[source+":"+outcome]++ }

func (r *countingRecorder) Fallback(string) { r.fallbacks++ }

func (r *countingRecorder) CacheLookup(_ string, hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

type harness struct {
	fetcher *Fetcher
	menu    *stubMenuSource
	weather *stubWeatherSource
	shared  *memoryShared
	metrics *countingRecorder
	sleeps  []time.Duration
}

func newHarness(t *testing.T, menuResponses ...func(context.Context) (menu.Record, error)) *harness {
	t.Helper()
	h := &harness{
		menu: &stubMenuSource{responses: menuResponses},
		weather: &stubWeatherSource{
			grid: weather.GridCoordinate{GridID: "OKX", GridX: 33, GridY: 35},
			forecast: weather.Record{
				Temperature:     floatPtr(61),
				TemperatureUnit: "F",
				Conditions:      "Sunny",
			},
		},
		shared:  newMemoryShared(),
		metrics: newCountingRecorder(),
	}
	h.fetcher = New(Config{
		SourceID:       "school-1",
		Location:       weather.Location{Latitude: 40.7128, Longitude: -74.006},
		MaxAttempts:    3,
		BaseBackoff:    100 * time.Millisecond,
		AttemptTimeout: time.Second,
		MenuTTL:        4 * time.Hour,
		GridTTL:        30 * 24 * time.Hour,
		ForecastTTL:    15 * time.Minute,
	}, Deps{
		Cache:   ttlcache.New[any](),
		Menu:    h.menu,
		Weather: h.weather,
		Shared:  h.shared,
		Metrics: h.metrics,
	})
	h.fetcher.now = func() time.Time { return testNow }
	h.fetcher.sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	return h
}

func floatPtr(v float64) *float64 { return &v }

func sampleMenu() menu.Record {
	return menu.Record{
		Date: "2025-10-22",
		Items: []menu.Item{
			{Name: "Chicken Nuggets", Category: "Entree", Nutrients: &menu.Nutrients{Calories: 380, ProteinGrams: 20}},
			{Name: "Milk", Category: "Beverage"},
		},
	}
}

func TestClassify(t *testing.T) {
	netErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"server error", &StatusError{StatusCode: http.StatusBadGateway}, KindTransient},
		{"service unavailable wrapped", fmt.Errorf("menu: %w", &StatusError{StatusCode: 503}), KindTransient},
		{"not found", &StatusError{StatusCode: http.StatusNotFound}, KindNotFound},
		{"bad request", &StatusError{StatusCode: http.StatusBadRequest}, KindRejected},
		{"forbidden", &StatusError{StatusCode: http.StatusForbidden}, KindRejected},
		{"contract", Contract("decode menu", errors.New("unexpected EOF")), KindDataContract},
		{"deadline", fmt.Errorf("do: %w", context.DeadlineExceeded), KindTransient},
		{"deadline while reading body", Contract("read menu response", context.DeadlineExceeded), KindTransient},
		{"network timeout while reading body", Contract("read menu response", timeoutErr{}), KindTransient},
		{"reset while reading body", Contract("read menu response", &net.OpError{Op: "read", Err: errors.New("connection reset")}), KindDataContract},
		{"network", netErr, KindTransient},
		{"canceled", fmt.Errorf("do: %w", context.Canceled), KindCanceled},
		{"other", errors.New("boom"), KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }
func (timeoutErr) Temporary() bool { return true }

func TestKindRetryable(t *testing.T) {
	require.True(t, KindTransient.Retryable())
	for _, k := range []Kind{KindUnknown, KindNotFound, KindRejected, KindDataContract, KindCanceled} {
		require.False(t, k.Retryable(), k.String())
	}
}

func TestFetchMenuSuccessIsCached(t *testing.T) {
	h := newHarness(t, respondMenu(sampleMenu()))
	ctx := context.Background()

	rec, err := h.fetcher.FetchMenu(ctx, "2025-10-22")
	require.NoError(t, err)
	require.Equal(t, "2025-10-22", rec.Date)
	require.Len(t, rec.Items, 2)
	require.Equal(t, testNow, rec.FetchedAt)
	require.Equal(t, "school-1", h.menu.lastID)

	again, err := h.fetcher.FetchMenu(ctx, "2025-10-22")
	require.NoError(t, err)
	require.Equal(t, rec, again)
	require.Equal(t, 1, h.menu.calls)
	require.True(t, h.fetcher.Cache().Has("menu:school-1:2025-10-22"))
	require.Equal(t, 4*time.Hour, h.shared.ttls["menu:school-1:2025-10-22"])
}

func TestFetchMenuRetryCeiling(t *testing.T) {
	h := newHarness(t, failMenu(&StatusError{StatusCode: http.StatusServiceUnavailable}))

	_, err := h.fetcher.FetchMenu(context.Background(), "2025-10-22")
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeExhaustedRetries))
	require.Equal(t, 3, h.menu.calls)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, h.sleeps)
	require.Equal(t, 3, h.metrics.attempts["menu:transient"])
	require.False(t, h.fetcher.Cache().Has("menu:school-1:2025-10-22"))
}

func TestFetchMenuRecoversAfterTransientFailure(t *testing.T) {
	h := newHarness(t,
		failMenu(&net.OpError{Op: "read", Err: errors.New("connection reset")}),
		respondMenu(sampleMenu()),
	)

	rec, err := h.fetcher.FetchMenu(context.Background(), "2025-10-22")
	require.NoError(t, err)
	require.Len(t, rec.Items, 2)
	require.Equal(t, 2, h.menu.calls)
	require.Equal(t, []time.Duration{100 * time.Millisecond}, h.sleeps)
}

func TestFetchMenuClientErrorIsFatal(t *testing.T) {
	h := newHarness(t, failMenu(&StatusError{StatusCode: http.StatusUnauthorized}))

	_, err := h.fetcher.FetchMenu(context.Background(), "2025-10-22")
	require.True(t, apperrors.IsCode(err, apperrors.CodeUpstreamRejected))
	require.Equal(t, 1, h.menu.calls)
	require.Empty(t, h.sleeps)
}

func TestFetchMenuDataContractIsFatal(t *testing.T) {
	h := newHarness(t, failMenu(Contract("decode menu response", errors.New("unexpected EOF"))))

	_, err := h.fetcher.FetchMenu(context.Background(), "2025-10-22")
	require.True(t, apperrors.IsCode(err, apperrors.CodeDataContract))
	require.Equal(t, 1, h.menu.calls)
}

func TestFetchMenuNotFoundIsNotCached(t *testing.T) {
	h := newHarness(t,
		failMenu(&StatusError{StatusCode: http.StatusNotFound}),
		respondMenu(sampleMenu()),
	)
	ctx := context.Background()

	first, err := h.fetcher.FetchMenu(ctx, "2025-10-22")
	require.NoError(t, err)
	require.Equal(t, "2025-10-22", first.Date)
	require.Empty(t, first.Items)
	require.NotNil(t, first.Items)
	require.Equal(t, menu.NoMenuMessage, first.Message)
	require.Equal(t, 1, h.menu.calls)

	_, cached := h.fetcher.Cache().Get(MenuKey("school-1", "2025-10-22"))
	require.False(t, cached)
	require.Empty(t, h.shared.entries)

	second, err := h.fetcher.FetchMenu(ctx, "2025-10-22")
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	require.Equal(t, 2, h.menu.calls)
}

func TestFetchMenuEmptyResponseGetsMessage(t *testing.T) {
	h := newHarness(t, respondMenu(menu.Record{}))

	rec, err := h.fetcher.FetchMenu(context.Background(), "2025-10-24")
	require.NoError(t, err)
	require.Equal(t, "2025-10-24", rec.Date)
	require.NotNil(t, rec.Items)
	require.Equal(t, menu.NoMenuMessage, rec.Message)
}

func TestFetchMenuInvalidDate(t *testing.T) {
	h := newHarness(t, respondMenu(sampleMenu()))

	_, err := h.fetcher.FetchMenu(context.Background(), "10/22/2025")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	require.Zero(t, h.menu.calls)
}

func TestFetchMenuSharedCacheHit(t *testing.T) {
	h := newHarness(t, respondMenu(sampleMenu()))
	ctx := context.Background()
	_, err := h.fetcher.FetchMenu(ctx, "2025-10-22")
	require.NoError(t, err)

	h.fetcher.Cache().Clear()
	rec, err := h.fetcher.FetchMenu(ctx, "2025-10-22")
	require.NoError(t, err)
	require.Equal(t, "Chicken Nuggets", rec.Items[0].Name)
	require.Equal(t, 1, h.menu.calls)
	require.True(t, h.fetcher.Cache().Has("menu:school-1:2025-10-22"))
}

func TestFetchMenuAttemptTimeoutIsRetried(t *testing.T) {
	h := newHarness(t, func(ctx context.Context) (menu.Record, error) {
		<-ctx.Done()
		return menu.Record{}, fmt.Errorf("menu request failed: %w", ctx.Err())
	})
	h.fetcher.cfg.AttemptTimeout = 5 * time.Millisecond

	_, err := h.fetcher.FetchMenu(context.Background(), "2025-10-22")
	require.True(t, apperrors.IsCode(err, apperrors.CodeExhaustedRetries))
	require.Equal(t, 3, h.menu.calls)
}

func TestFetchMenuCanceledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHarness(t, func(context.Context) (menu.Record, error) {
		cancel()
		return menu.Record{}, &StatusError{StatusCode: http.StatusBadGateway}
	})

	_, err := h.fetcher.FetchMenu(ctx, "2025-10-22")
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, apperrors.IsCode(err, apperrors.CodeExhaustedRetries))
	require.Equal(t, 1, h.menu.calls)
}

func TestFetchTodayWeatherSuccessIsCached(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec := h.fetcher.FetchTodayWeather(ctx)
	require.False(t, rec.IsFallback)
	require.Equal(t, 61.0, *rec.Temperature)
	require.Equal(t, "Sunny", rec.Conditions)

	again := h.fetcher.FetchTodayWeather(ctx)
	require.Equal(t, rec, again)
	require.Equal(t, 1, h.weather.gridCalls)
	require.Equal(t, 1, h.weather.forecastCall)

	cache := h.fetcher.Cache()
	require.True(t, cache.Has("weather:grid:40.7128:-74.006"))
	require.True(t, cache.Has("weather:hourly:OKX:33:35"))
	require.Equal(t, 30*24*time.Hour, h.shared.ttls["weather:grid:40.7128:-74.006"])
	require.Equal(t, 15*time.Minute, h.shared.ttls["weather:hourly:OKX:33:35"])
}

func TestFetchTodayWeatherRetryCeilingFallsBack(t *testing.T) {
	h := newHarness(t)
	h.weather.gridErr = &StatusError{StatusCode: http.StatusInternalServerError}

	rec := h.fetcher.FetchTodayWeather(context.Background())
	require.True(t, rec.IsFallback)
	require.Nil(t, rec.Temperature)
	require.Equal(t, weather.UnavailableConditions, rec.Conditions)
	require.Equal(t, 3, h.weather.gridCalls)
	require.Zero(t, h.weather.forecastCall)
	require.Equal(t, 1, h.metrics.fallbacks)
}

func TestFetchTodayWeatherForecastFailureKeepsGrid(t *testing.T) {
	h := newHarness(t)
	h.weather.forecastErr = Contract("decode forecast", errors.New("periods missing"))

	rec := h.fetcher.FetchTodayWeather(context.Background())
	require.True(t, rec.IsFallback)
	require.Equal(t, 1, h.weather.forecastCall)
	require.True(t, h.fetcher.Cache().Has("weather:grid:40.7128:-74.006"))
	require.False(t, h.fetcher.Cache().Has("weather:hourly:OKX:33:35"))

	h.weather.forecastErr = nil
	rec = h.fetcher.FetchTodayWeather(context.Background())
	require.False(t, rec.IsFallback)
	require.Equal(t, 1, h.weather.gridCalls)
}

func TestCacheKeys(t *testing.T) {
	require.Equal(t, "menu:abc:2025-10-22", MenuKey("abc", "2025-10-22"))
	require.Equal(t, "weather:grid:39.7456:-97.0892", GridKey(weather.Location{Latitude: 39.7456, Longitude: -97.0892}))
	require.Equal(t, "weather:grid:40:-75", GridKey(weather.Location{Latitude: 40, Longitude: -75}))
	require.Equal(t, "weather:hourly:TOP:31:80", HourlyKey(weather.GridCoordinate{GridID: "TOP", GridX: 31, GridY: 80}))
}

func TestNewAppliesDefaults(t *testing.T) {
	f := New(Config{}, Deps{Menu: &stubMenuSource{}, Weather: &stubWeatherSource{}})
	require.Equal(t, DefaultMaxAttempts, f.cfg.MaxAttempts)
	require.Equal(t, DefaultBaseBackoff, f.cfg.BaseBackoff)
	require.Equal(t, DefaultAttemptTimeout, f.cfg.AttemptTimeout)
	require.NotNil(t, f.Cache())
}
