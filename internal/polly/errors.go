package polly

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFiles is returned when a repository path contains no raw files
	ErrNoFiles = errors.New("no PollyXT files found")

	// ErrNoMeasurements is returned when a requested window contains no
	// samples. Callers iterating over intervals treat this as a gap, not
	// as a failure.
	ErrNoMeasurements = errors.New("no measurements in the requested period")
)

// MalformedTime is returned when a raw file contains a measurement_time
// value that does not decode to a calendar date. It carries the offending
// file and raw values so the failing file can be reported and removed.
type MalformedTime struct {
	File    string
	Day     int64
	Seconds int64
}

func (e *MalformedTime) Error() string {
	return fmt.Sprintf("file %s contains a malformed measurement time (day=%d, seconds=%d)",
		e.File, e.Day, e.Seconds)
}
