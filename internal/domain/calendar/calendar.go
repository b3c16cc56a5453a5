package calendar

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Skobyn/alexaLunchDad-sub000/pkg/errors"
	"github.com/Skobyn/alexaLunchDad-sub000/pkg/util"
)

// MaxSearchDays bounds the forward scan in NextSchoolDay. Tripping it means
// the holiday set is misconfigured.
const MaxSearchDays = 365

// Config describes the school's week and closures.
type Config struct {
	WeekendDays [2]time.Weekday
	// Holidays are YYYY-MM-DD strings matched by exact string equality.
	Holidays []string
	Location *time.Location
}

// Calendar answers school-day questions for a single school.
type Calendar struct {
	weekend  [2]time.Weekday
	holidays map[string]struct{}
	location *time.Location
}

// New builds a Calendar. A zero WeekendDays means Saturday and Sunday; a nil
// Location means UTC.
func New(cfg Config) *Calendar {
	weekend := cfg.WeekendDays
	if weekend == [2]time.Weekday{} {
		weekend = [2]time.Weekday{time.Saturday, time.Sunday}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	holidays := make(map[string]struct{}, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		holidays[h] = struct{}{}
	}
	return &Calendar{weekend: weekend, holidays: holidays, location: loc}
}

// IsSchoolDay reports whether date is neither a weekend day nor a holiday.
func (c *Calendar) IsSchoolDay(date string) (bool, error) {
	day, err := parse(date)
	if err != nil {
		return false, err
	}
	return c.isSchoolDay(day), nil
}

// NextSchoolDay walks forward from date until count school days have been
// seen and returns the last one. count == 0 returns date itself.
func (c *Calendar) NextSchoolDay(date string, count int) (string, error) {
	day, err := parse(date)
	if err != nil {
		return "", err
	}
	if count < 0 {
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("count must be non-negative, got %d", count), nil)
	}
	if count == 0 {
		return date, nil
	}

	found := 0
	for step := 1; step <= MaxSearchDays; step++ {
		day = day.AddDate(0, 0, 1)
		if c.isSchoolDay(day) {
			found++
			if found == count {
				return util.FormatDate(day), nil
			}
		}
	}
	return "", apperrors.Wrap(apperrors.CodeExhaustedSearch,
		fmt.Sprintf("found %d of %d school days within %d days of %s", found, count, MaxSearchDays, date), nil)
}

// Today returns the local calendar date of now in the school's time zone.
func (c *Calendar) Today(now time.Time) string {
	return util.FormatDate(now.In(c.location))
}

// ResolveDay maps a spoken day onto a calendar date. "today" (or "") is
// today when school is in session, otherwise the next school day; "tomorrow"
// and "next" are the next school day after today.
func (c *Calendar) ResolveDay(now time.Time, day string) (string, error) {
	today := c.Today(now)
	switch strings.ToLower(strings.TrimSpace(day)) {
	case "", "today":
		ok, err := c.IsSchoolDay(today)
		if err != nil {
			return "", err
		}
		if ok {
			return today, nil
		}
		return c.NextSchoolDay(today, 1)
	case "tomorrow", "next":
		return c.NextSchoolDay(today, 1)
	default:
		return "", apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("unsupported day %q", day), nil)
	}
}

// Location returns the school's time zone.
func (c *Calendar) Location() *time.Location {
	return c.location
}

func (c *Calendar) isSchoolDay(day time.Time) bool {
	wd := day.Weekday()
	if wd == c.weekend[0] || wd == c.weekend[1] {
		return false
	}
	_, holiday := c.holidays[util.FormatDate(day)]
	return !holiday
}

func parse(date string) (time.Time, error) {
	day, err := util.ParseDate(date)
	if err != nil {
		return time.Time{}, apperrors.Wrap(apperrors.CodeInvalidInput, "date must be formatted as YYYY-MM-DD", err)
	}
	return day, nil
}
