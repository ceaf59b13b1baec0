package scc

import (
	"errors"
	"fmt"
	"time"
)

// ErrEndWithoutStart is returned when an end override is supplied without a
// start override.
var ErrEndWithoutStart = errors.New("an end time cannot be used without a start time")

// ErrEndBeforeStart is returned when an end override resolves at or before
// the effective start time.
var ErrEndBeforeStart = errors.New("the end time must be after the start time")

// ErrNoCalibrationCycles is returned when a calibration window does not
// contain the two expected polarization cycles. The planner treats it as a
// skip, in the same way it skips empty windows.
var ErrNoCalibrationCycles = errors.New("window does not contain two calibration cycles")

// TimeOutsideRange is returned when an explicit start or end override falls
// outside the repository's actual time span. It aborts the conversion before
// any file is written.
type TimeOutsideRange struct {
	Start     time.Time
	End       time.Time
	Requested time.Time
}

func (e *TimeOutsideRange) Error() string {
	return fmt.Sprintf("the requested time %s is outside the available range (%s - %s)",
		e.Requested.Format(time.DateTime),
		e.Start.Format(time.DateTime),
		e.End.Format(time.DateTime))
}
