package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/calendar"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/fetcher"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/weather"
	"github.com/Skobyn/alexaLunchDad-sub000/pkg/util"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	School      SchoolConfig      `yaml:"school"`
	Menu        MenuConfig        `yaml:"menu"`
	Weather     WeatherConfig     `yaml:"weather"`
	Fetch       FetchConfig       `yaml:"fetch"`
	Cache       CacheConfig       `yaml:"cache"`
	SharedCache SharedCacheConfig `yaml:"sharedCache"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// SchoolConfig describes the one school this deployment serves.
type SchoolConfig struct {
	SourceID     string   `yaml:"sourceId"`
	Timezone     string   `yaml:"timezone"`
	Holidays     []string `yaml:"holidays"`
	WeekendDays  []string `yaml:"weekendDays"`
	MaxMainItems int      `yaml:"maxMainItems"`
}

// MenuConfig points at the menu provider.
type MenuConfig struct {
	APIBaseURL string        `yaml:"apiBaseUrl"`
	CacheTTL   time.Duration `yaml:"cacheTtl"`
}

// WeatherConfig points at the NWS API and the school's coordinates.
type WeatherConfig struct {
	APIBaseURL       string        `yaml:"apiBaseUrl"`
	Latitude         float64       `yaml:"latitude"`
	Longitude        float64       `yaml:"longitude"`
	UserAgent        string        `yaml:"userAgent"`
	GridCacheTTL     time.Duration `yaml:"gridCacheTtl"`
	ForecastCacheTTL time.Duration `yaml:"forecastCacheTtl"`
}

// FetchConfig is the upstream retry policy.
type FetchConfig struct {
	MaxAttempts    int           `yaml:"maxAttempts"`
	BaseBackoff    time.Duration `yaml:"baseBackoff"`
	AttemptTimeout time.Duration `yaml:"attemptTimeout"`
}

// CacheConfig tunes the in-process cache.
type CacheConfig struct {
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

// SharedCacheConfig contains connection information for the Valkey tier.
type SharedCacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// Load reads configuration from a YAML file and environment variables. A
// .env file in the working directory, when present, seeds the environment.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("SCHOOL_SOURCE_ID"); v != "" {
		cfg.School.SourceID = v
	}
	if v := os.Getenv("SCHOOL_TIMEZONE"); v != "" {
		cfg.School.Timezone = v
	}
	if v := os.Getenv("SCHOOL_HOLIDAYS"); v != "" {
		cfg.School.Holidays = splitList(v)
	}
	if v := os.Getenv("MENU_API_BASE_URL"); v != "" {
		cfg.Menu.APIBaseURL = v
	}
	if v := os.Getenv("MENU_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Menu.CacheTTL = parsed
		}
	}
	if v := os.Getenv("WEATHER_API_BASE_URL"); v != "" {
		cfg.Weather.APIBaseURL = v
	}
	if v := os.Getenv("WEATHER_LATITUDE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Weather.Latitude = parsed
		}
	}
	if v := os.Getenv("WEATHER_LONGITUDE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Weather.Longitude = parsed
		}
	}
	if v := os.Getenv("WEATHER_USER_AGENT"); v != "" {
		cfg.Weather.UserAgent = v
	}
	if v := os.Getenv("FETCH_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Fetch.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("FETCH_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Fetch.BaseBackoff = parsed
		}
	}
	if v := os.Getenv("FETCH_ATTEMPT_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Fetch.AttemptTimeout = parsed
		}
	}
	if v := os.Getenv("CACHE_SWEEP_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Cache.SweepInterval = parsed
		}
	}
	if v := os.Getenv("SHARED_CACHE_ENABLED"); v != "" {
		cfg.SharedCache.Enabled = parseBool(v)
	}
	if v := os.Getenv("SHARED_CACHE_ADDR"); v != "" {
		cfg.SharedCache.Addr = v
	}
	if v := os.Getenv("SHARED_CACHE_PREFIX"); v != "" {
		cfg.SharedCache.Prefix = v
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 20 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		School: SchoolConfig{
			SourceID:     "default",
			Timezone:     "America/New_York",
			WeekendDays:  []string{"saturday", "sunday"},
			MaxMainItems: 5,
		},
		Menu: MenuConfig{
			APIBaseURL: "https://menus.example-schools.org/api/v1",
			CacheTTL:   time.Hour,
		},
		Weather: WeatherConfig{
			APIBaseURL:       "https://api.weather.gov",
			UserAgent:        "lunch-helper (ops@example.org)",
			GridCacheTTL:     24 * time.Hour,
			ForecastCacheTTL: 15 * time.Minute,
		},
		Fetch: FetchConfig{
			MaxAttempts:    3,
			BaseBackoff:    100 * time.Millisecond,
			AttemptTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			SweepInterval: 10 * time.Minute,
		},
		SharedCache: SharedCacheConfig{
			Prefix: "lunch",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if strings.TrimSpace(c.School.SourceID) == "" {
		return errors.New("school.sourceId cannot be empty")
	}
	if _, err := c.School.Location(); err != nil {
		return err
	}
	if _, err := c.School.Weekend(); err != nil {
		return err
	}
	for _, h := range c.School.Holidays {
		if _, err := util.ParseDate(h); err != nil {
			return fmt.Errorf("school.holidays: %q is not YYYY-MM-DD", h)
		}
	}
	if c.School.MaxMainItems <= 0 {
		return errors.New("school.maxMainItems must be positive")
	}
	if strings.TrimSpace(c.Menu.APIBaseURL) == "" {
		return errors.New("menu.apiBaseUrl cannot be empty")
	}
	if c.Menu.CacheTTL < time.Second {
		return errors.New("menu.cacheTtl must be at least 1s")
	}
	if strings.TrimSpace(c.Weather.APIBaseURL) == "" {
		return errors.New("weather.apiBaseUrl cannot be empty")
	}
	if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 {
		return errors.New("weather.latitude must be within [-90, 90]")
	}
	if c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
		return errors.New("weather.longitude must be within [-180, 180]")
	}
	if strings.TrimSpace(c.Weather.UserAgent) == "" {
		return errors.New("weather.userAgent cannot be empty")
	}
	if c.Weather.GridCacheTTL < time.Second || c.Weather.ForecastCacheTTL < time.Second {
		return errors.New("weather cache TTLs must be at least 1s")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return errors.New("fetch.maxAttempts must be positive")
	}
	if c.Fetch.BaseBackoff < 0 {
		return errors.New("fetch.baseBackoff cannot be negative")
	}
	if c.Fetch.AttemptTimeout <= 0 {
		return errors.New("fetch.attemptTimeout must be positive")
	}
	if c.Cache.SweepInterval < 0 {
		return errors.New("cache.sweepInterval cannot be negative")
	}
	if c.SharedCache.Enabled && strings.TrimSpace(c.SharedCache.Addr) == "" {
		return errors.New("sharedCache.addr cannot be empty when the shared cache is enabled")
	}
	return nil
}

// Location loads the school's time zone.
func (s SchoolConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(s.Timezone))
	if err != nil {
		return nil, fmt.Errorf("school.timezone: %w", err)
	}
	return loc, nil
}

// Weekend parses the two weekend day names.
func (s SchoolConfig) Weekend() ([2]time.Weekday, error) {
	var out [2]time.Weekday
	if len(s.WeekendDays) != 2 {
		return out, errors.New("school.weekendDays must name exactly two days")
	}
	for i, name := range s.WeekendDays {
		day, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return out, fmt.Errorf("school.weekendDays: unknown day %q", name)
		}
		out[i] = day
	}
	return out, nil
}

// Calendar builds the school calendar settings.
func (s SchoolConfig) Calendar() (calendar.Config, error) {
	loc, err := s.Location()
	if err != nil {
		return calendar.Config{}, err
	}
	weekend, err := s.Weekend()
	if err != nil {
		return calendar.Config{}, err
	}
	return calendar.Config{WeekendDays: weekend, Holidays: s.Holidays, Location: loc}, nil
}

// FetchPolicy collects the fetcher settings spread across sections.
func (c *Config) FetchPolicy() fetcher.Config {
	return fetcher.Config{
		SourceID: c.School.SourceID,
		Location: weather.Location{
			Latitude:  c.Weather.Latitude,
			Longitude: c.Weather.Longitude,
		},
		MaxAttempts:    c.Fetch.MaxAttempts,
		BaseBackoff:    c.Fetch.BaseBackoff,
		AttemptTimeout: c.Fetch.AttemptTimeout,
		MenuTTL:        c.Menu.CacheTTL,
		GridTTL:        c.Weather.GridCacheTTL,
		ForecastTTL:    c.Weather.ForecastCacheTTL,
	}
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
