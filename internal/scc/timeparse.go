package scc

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// CLI time options come in several shapes, from a full timestamp down to a
// bare minutes value that snaps to its next occurrence.
var (
	reDateTimeSeconds = regexp.MustCompile(`^\d{4}-[01]\d-[0123]\d_[012]\d:[0-5]\d:[0-5]\d$`)
	reDateTime        = regexp.MustCompile(`^\d{4}-[01]\d-[0123]\d_[012]\d:[0-5]\d$`)
	reTimeSeconds     = regexp.MustCompile(`^[012]\d:[0-5]\d:[0-5]\d$`)
	reTime            = regexp.MustCompile(`^[012]\d:[0-5]\d$`)
	reMinutesOnly     = regexp.MustCompile(`^XX:[0-5]\d$`)
)

// ParseTimeOption parses a user-supplied time option relative to a reference
// time. Accepted formats:
//
//   - YYYY-mm-DD_HH:MM[:SS] is an absolute timestamp, ref is ignored
//   - HH:MM[:SS] is that wall clock time on ref's day
//   - XX:MM is the nearest occurrence of minute MM at or after ref
func ParseTimeOption(ref time.Time, s string) (time.Time, error) {
	ref = ref.UTC()

	switch {
	case reDateTimeSeconds.MatchString(s):
		return time.ParseInLocation("2006-01-02_15:04:05", s, time.UTC)

	case reDateTime.MatchString(s):
		return time.ParseInLocation("2006-01-02_15:04", s, time.UTC)

	case reTimeSeconds.MatchString(s):
		t, err := time.Parse("15:04:05", s)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(ref.Year(), ref.Month(), ref.Day(),
			t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil

	case reTime.MatchString(s):
		t, err := time.Parse("15:04", s)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(ref.Year(), ref.Month(), ref.Day(),
			t.Hour(), t.Minute(), 0, 0, time.UTC), nil

	case reMinutesOnly.MatchString(s):
		minute, err := strconv.Atoi(s[3:])
		if err != nil {
			return time.Time{}, err
		}
		at := time.Date(ref.Year(), ref.Month(), ref.Day(),
			ref.Hour(), minute, 0, 0, time.UTC)
		if at.Before(ref) {
			at = at.Add(time.Hour)
		}
		return at, nil
	}

	return time.Time{}, fmt.Errorf("time %q is not in XX:MM, HH:MM[:SS] or YYYY-mm-DD_HH:MM[:SS] format", s)
}
