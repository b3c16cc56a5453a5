package briefing

import (
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/menu"
	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/weather"
)

// Request selects the school day to brief. Date, when set, wins over Day.
type Request struct {
	Day  string `json:"day"`
	Date string `json:"date"`
}

// Response is the assembled lunch briefing.
type Response struct {
	Date      string         `json:"date"`
	Menu      *menu.Record   `json:"menu,omitempty"`
	MainItems []menu.Item    `json:"mainItems"`
	Weather   weather.Record `json:"weather"`
	Speech    string         `json:"speech"`
	MenuError string         `json:"menuError,omitempty"`
}

// Config tunes the briefing.
type Config struct {
	MaxMainItems int
}
