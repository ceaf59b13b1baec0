package scc

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/noa-react/polly-scc/internal/locations"
)

// Fallback day period used when a station defines no sunrise/sunset rules.
const (
	fixedDayStartHour = 4
	fixedDayEndHour   = 16
)

var (
	reClockRule  = regexp.MustCompile(`^[012]\d:[0-5]\d$`)
	reOffsetRule = regexp.MustCompile(`^[+-]\d+$`)
)

// dayPeriod holds the resolved daytime boundaries for one station and day.
type dayPeriod struct {
	start time.Time
	end   time.Time

	// astronomical is set when the boundaries were derived from computed
	// sunrise/sunset rather than fixed wall clock rules.
	astronomical bool
}

func (p dayPeriod) contains(t time.Time) bool {
	return p.start.Before(t) && t.Before(p.end)
}

// resolveDayPeriod computes the daytime window for the day containing t.
// Each of the station's sunrise/sunset rule strings is either a wall clock
// time ("HH:MM"), a signed offset in minutes from the astronomical event
// ("+30", "-15"), or empty for the fixed 04:00-16:00 rule.
func resolveDayPeriod(loc *locations.Location, t time.Time) (dayPeriod, error) {
	t = t.UTC()

	rise, set := sunrise.SunriseSunset(loc.Lat, loc.Lon, t.Year(), t.Month(), t.Day())

	start, astStart, err := resolveRule(loc.Sunrise, t, rise, fixedDayStartHour)
	if err != nil {
		return dayPeriod{}, fmt.Errorf("location %s: sunrise rule: %w", loc.Name, err)
	}
	end, astEnd, err := resolveRule(loc.Sunset, t, set, fixedDayEndHour)
	if err != nil {
		return dayPeriod{}, fmt.Errorf("location %s: sunset rule: %w", loc.Name, err)
	}

	return dayPeriod{start: start, end: end, astronomical: astStart || astEnd}, nil
}

func resolveRule(rule string, day, event time.Time, fixedHour int) (time.Time, bool, error) {
	atClock := func(hour, minute int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
	}

	switch {
	case rule == "":
		return atClock(fixedHour, 0), false, nil

	case reClockRule.MatchString(rule):
		parsed, err := time.Parse("15:04", rule)
		if err != nil {
			return time.Time{}, false, err
		}
		return atClock(parsed.Hour(), parsed.Minute()), false, nil

	case reOffsetRule.MatchString(rule):
		// Polar day/night: no event to offset from, use the fixed rule.
		if event.IsZero() {
			return atClock(fixedHour, 0), false, nil
		}
		minutes, err := strconv.Atoi(rule)
		if err != nil {
			return time.Time{}, false, err
		}
		return event.Add(time.Duration(minutes) * time.Minute).UTC(), true, nil
	}

	return time.Time{}, false, fmt.Errorf("rule %q is neither HH:MM nor a signed minute offset", rule)
}

// selectConfigurationID picks the SCC configuration ID for a measurement
// starting at t, using the station's day period rules.
func selectConfigurationID(loc *locations.Location, t time.Time) (int32, dayPeriod, error) {
	period, err := resolveDayPeriod(loc, t)
	if err != nil {
		return 0, dayPeriod{}, err
	}
	if period.contains(t.UTC()) {
		return int32(loc.DaytimeConfiguration), period, nil
	}
	return int32(loc.NighttimeConfiguration), period, nil
}
