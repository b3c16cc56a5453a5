package briefing

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/calendar"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/menu"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/weather"
	apperrors "github.com/Skobyn/alexaLunchDad-sub000/pkg/errors"
	"github.com/Skobyn/alexaLunchDad-sub000/pkg/logger"
)

type stubMenus struct {
	rec   menu.Record
	err   error
	dates []string
}

func (s *stubMenus) FetchMenu(_ context.Context, date string) (menu.Record, error) {
	s.dates = append(s.dates, date)
	if s.err != nil {
		return menu.Record{}, s.err
	}
	rec := s.rec
	rec.Date = date
	return rec, nil
}

type stubWeather struct {
	rec   weather.Record
	calls atomic.Int32
}

func (s *stubWeather) FetchTodayWeather(context.Context) weather.Record {
	s.calls.Add(1)
	return s.rec
}

func floatPtr(v float64) *float64 { return &v }

func lunchMenu() menu.Record {
	return menu.Record{Items: []menu.Item{
		{Name: "Chicken Nuggets", Category: "Entree"},
		{Name: "Pizza", Category: "Pizza"},
		{Name: "Milk", Category: "Beverage"},
	}}
}

func sunny() weather.Record {
	return weather.Record{Temperature: floatPtr(72), TemperatureUnit: "F", Conditions: "Sunny"}
}

// The clock reads Wednesday 2025-10-22 in the default UTC calendar.
func newTestService(t *testing.T, menus *stubMenus, current *stubWeather) *service {
	t.Helper()
	cal := calendar.New(calendar.Config{Holidays: []string{"2025-11-27", "2025-11-28"}})
	svc := NewService(Config{}, cal, menus, current, logger.Discard()).(*service)
	svc.now = func() time.Time { return time.Date(2025, 10, 22, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestLunchTomorrow(t *testing.T) {
	menus := &stubMenus{rec: lunchMenu()}
	svc := newTestService(t, menus, &stubWeather{rec: sunny()})

	resp, err := svc.Lunch(context.Background(), Request{Day: "tomorrow"})
	require.NoError(t, err)
	require.Equal(t, "2025-10-23", resp.Date)
	require.Equal(t, []string{"2025-10-23"}, menus.dates)
	require.Len(t, resp.MainItems, 2)
	require.Equal(t, "On Thursday, October 23, lunch is Chicken Nuggets and Pizza. Right now it's 72°F and Sunny.", resp.Speech)
	require.Empty(t, resp.MenuError)
}

func TestLunchExplicitDateSkipsCalendar(t *testing.T) {
	menus := &stubMenus{rec: lunchMenu()}
	svc := newTestService(t, menus, &stubWeather{rec: weather.Fallback(time.Now())})

	resp, err := svc.Lunch(context.Background(), Request{Day: "tomorrow", Date: "2025-11-27"})
	require.NoError(t, err)
	require.Equal(t, "2025-11-27", resp.Date)
	require.Equal(t, "On Thursday, November 27, lunch is Chicken Nuggets and Pizza.", resp.Speech)
}

func TestLunchEmptyMenu(t *testing.T) {
	menus := &stubMenus{rec: menu.Record{Items: []menu.Item{}, Message: menu.NoMenuMessage}}
	svc := newTestService(t, menus, &stubWeather{rec: weather.Fallback(time.Now())})

	resp, err := svc.Lunch(context.Background(), Request{Day: "today"})
	require.NoError(t, err)
	require.Equal(t, "2025-10-22", resp.Date)
	require.NotNil(t, resp.Menu)
	require.Equal(t, "There's no lunch menu posted for Wednesday, October 22.", resp.Speech)
}

func TestLunchUpstreamFailureDegrades(t *testing.T) {
	for _, code := range []string{apperrors.CodeExhaustedRetries, apperrors.CodeDataContract, apperrors.CodeUpstreamRejected} {
		t.Run(code, func(t *testing.T) {
			current := &stubWeather{rec: sunny()}
			svc := newTestService(t, &stubMenus{err: apperrors.Wrap(code, "menu provider failed", errors.New("boom"))}, current)

			resp, err := svc.Lunch(context.Background(), Request{})
			require.NoError(t, err)
			require.Equal(t, unavailableSpeech, resp.Speech)
			require.Equal(t, code, resp.MenuError)
			require.Nil(t, resp.Menu)
			require.Empty(t, resp.MainItems)
			require.EqualValues(t, 1, current.calls.Load())
		})
	}
}

func TestLunchInvalidInputPropagates(t *testing.T) {
	menus := &stubMenus{rec: lunchMenu()}
	svc := newTestService(t, menus, &stubWeather{rec: sunny()})

	_, err := svc.Lunch(context.Background(), Request{Date: "10/23/2025"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Lunch(context.Background(), Request{Day: "someday"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
	require.Empty(t, menus.dates)
}

func TestLunchCanceledContextPropagates(t *testing.T) {
	svc := newTestService(t, &stubMenus{err: context.Canceled}, &stubWeather{rec: sunny()})

	_, err := svc.Lunch(context.Background(), Request{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestJoinNames(t *testing.T) {
	require.Equal(t, "", joinNames(nil))
	require.Equal(t, "Tacos", joinNames([]string{"Tacos"}))
	require.Equal(t, "Tacos and Rice", joinNames([]string{"Tacos", "Rice"}))
	require.Equal(t, "Tacos, Rice, and Beans", joinNames([]string{"Tacos", "Rice", "Beans"}))
}

func TestWeatherSentence(t *testing.T) {
	require.Equal(t, "", weatherSentence(weather.Fallback(time.Now())))
	require.Equal(t, "Right now it's 68°F.", weatherSentence(weather.Record{Temperature: floatPtr(67.6), TemperatureUnit: "F"}))
}
