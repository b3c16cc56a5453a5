package nws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/fetcher"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/weather"
)

const (
	defaultBaseURL   = "https://api.weather.gov"
	defaultUserAgent = "lunch-helper (ops@example.org)"
)

// Client talks to the National Weather Service API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient builds an API client. NWS rejects requests without a
// User-Agent, so an empty userAgent gets a default.
func NewClient(baseURL, userAgent string) *Client {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultBaseURL
	}
	ua := strings.TrimSpace(userAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		baseURL:   strings.TrimRight(u, "/"),
		userAgent: ua,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// ResolveGrid maps a location onto its forecast grid cell.
func (c *Client) ResolveGrid(ctx context.Context, loc weather.Location) (weather.GridCoordinate, error) {
	endpoint := fmt.Sprintf("%s/points/%s,%s", c.baseURL,
		weather.FormatCoordinate(loc.Latitude), weather.FormatCoordinate(loc.Longitude))

	var raw pointsResponse
	if err := c.getJSON(ctx, endpoint, "points", &raw); err != nil {
		return weather.GridCoordinate{}, err
	}
	p := raw.Properties
	if p.GridID == "" || p.GridX == nil || p.GridY == nil {
		return weather.GridCoordinate{}, fetcher.Contract("validate points response", errors.New("grid properties missing"))
	}
	return weather.GridCoordinate{GridID: p.GridID, GridX: *p.GridX, GridY: *p.GridY}, nil
}

// HourlyForecast returns the forecast period covering the current hour.
func (c *Client) HourlyForecast(ctx context.Context, grid weather.GridCoordinate) (weather.Record, error) {
	endpoint := fmt.Sprintf("%s/gridpoints/%s/%d,%d/forecast/hourly", c.baseURL, grid.GridID, grid.GridX, grid.GridY)

	var raw forecastResponse
	if err := c.getJSON(ctx, endpoint, "forecast", &raw); err != nil {
		return weather.Record{}, err
	}
	period, ok := currentPeriod(raw.Properties.Periods, c.now())
	if !ok {
		return weather.Record{}, fetcher.Contract("validate forecast response", errors.New("no forecast periods"))
	}
	if period.Temperature == nil {
		return weather.Record{}, fetcher.Contract("validate forecast response", errors.New("temperature missing"))
	}
	return period.toRecord(), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, op string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/geo+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &fetcher.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetcher.Contract("read "+op+" response", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fetcher.Contract("decode "+op+" response", err)
	}
	return nil
}

type pointsResponse struct {
	Properties struct {
		GridID string `json:"gridId"`
		GridX  *int   `json:"gridX"`
		GridY  *int   `json:"gridY"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []period `json:"periods"`
	} `json:"properties"`
}

type period struct {
	StartTime        string   `json:"startTime"`
	EndTime          string   `json:"endTime"`
	IsDaytime        bool     `json:"isDaytime"`
	Temperature      *float64 `json:"temperature"`
	TemperatureUnit  string   `json:"temperatureUnit"`
	WindSpeed        string   `json:"windSpeed"`
	WindDirection    string   `json:"windDirection"`
	ShortForecast    string   `json:"shortForecast"`
	DetailedForecast string   `json:"detailedForecast"`
	Precipitation    struct {
		Value *int `json:"value"`
	} `json:"probabilityOfPrecipitation"`
}

func (p period) toRecord() weather.Record {
	return weather.Record{
		Temperature:         p.Temperature,
		TemperatureUnit:     p.TemperatureUnit,
		Conditions:          p.ShortForecast,
		DetailedForecast:    p.DetailedForecast,
		WindSpeed:           p.WindSpeed,
		WindDirection:       p.WindDirection,
		PrecipitationChance: p.Precipitation.Value,
		IsDaytime:           p.IsDaytime,
		StartTime:           parseTime(p.StartTime),
	}
}

// currentPeriod picks the first period that has not ended yet, or the first
// period when every end time is in the past or unparseable.
func currentPeriod(periods []period, now time.Time) (period, bool) {
	if len(periods) == 0 {
		return period{}, false
	}
	for _, p := range periods {
		if end := parseTime(p.EndTime); !end.IsZero() && end.After(now) {
			return p, true
		}
	}
	return periods[0], true
}

func parseTime(value string) time.Time {
	if strings.TrimSpace(value) == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}
