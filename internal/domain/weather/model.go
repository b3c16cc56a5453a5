package weather

import (
	"strconv"
	"time"
)

// UnavailableConditions is the Conditions text of the fallback record.
const UnavailableConditions = "Weather unavailable"

// Record is the current-hour forecast for the school's location. Callers must
// check IsFallback before reading any other field.
type Record struct {
	Temperature         *float64  `json:"temperature"`
	TemperatureUnit     string    `json:"temperatureUnit,omitempty"`
	Conditions          string    `json:"conditions"`
	DetailedForecast    string    `json:"detailedForecast,omitempty"`
	WindSpeed           string    `json:"windSpeed,omitempty"`
	WindDirection       string    `json:"windDirection,omitempty"`
	PrecipitationChance *int      `json:"precipitationChance,omitempty"`
	IsDaytime           bool      `json:"isDaytime"`
	StartTime           time.Time `json:"startTime,omitempty"`
	FetchedAt           time.Time `json:"fetchedAt"`
	IsFallback          bool      `json:"isFallback"`
}

// Fallback is the sentinel returned whenever live weather cannot be fetched.
func Fallback(now time.Time) Record {
	return Record{
		Conditions: UnavailableConditions,
		FetchedAt:  now,
		IsFallback: true,
	}
}

// GridCoordinate identifies an NWS forecast grid cell.
type GridCoordinate struct {
	GridID string `json:"gridId"`
	GridX  int    `json:"gridX"`
	GridY  int    `json:"gridY"`
}

// Location is a latitude/longitude pair.
type Location struct {
	Latitude  float64
	Longitude float64
}

// FormatCoordinate renders a coordinate the way it appears in cache keys and
// NWS URLs: shortest decimal form, no exponent.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
