package scc

import (
	"errors"
	"fmt"
	"time"

	"github.com/noa-react/polly-scc/internal/locations"
	"github.com/noa-react/polly-scc/internal/polly"
)

// CalibrationStrategy selects how depolarization calibration windows are
// located inside the available data.
type CalibrationStrategy int

const (
	// CalibrationFromSignal derives calibration windows from the recorded
	// calibration angle signal.
	CalibrationFromSignal CalibrationStrategy = iota

	// CalibrationFixedPeriods uses fixed wall clock periods, for instruments
	// whose operators schedule calibration at known times of day.
	CalibrationFixedPeriods
)

// ClockPeriod is a daily recurring wall clock interval in UTC.
type ClockPeriod struct {
	StartHour, StartMinute int
	EndHour, EndMinute     int
}

func (p ClockPeriod) on(day time.Time) polly.Window {
	day = day.UTC()
	return polly.Window{
		Start: time.Date(day.Year(), day.Month(), day.Day(), p.StartHour, p.StartMinute, 0, 0, time.UTC),
		End:   time.Date(day.Year(), day.Month(), day.Day(), p.EndHour, p.EndMinute, 0, 0, time.UTC),
	}
}

// DefaultCalibrationTimes are the clock periods PollyXT instruments commonly
// run their automatic depolarization calibration in.
var DefaultCalibrationTimes = []ClockPeriod{
	{2, 31, 2, 41},
	{17, 31, 17, 41},
	{21, 31, 21, 41},
}

// Source provides indexed raw data to a Converter. *polly.Repository is the
// production implementation.
type Source interface {
	TimeSpan() (start, end time.Time)
	FetchWindow(start, end time.Time) (*polly.File, error)
	CalibrationPeriods() []polly.Window
}

// Options control a conversion run. The zero value converts the whole
// available range into hourly files with signal-derived calibration.
type Options struct {
	// OutputDir receives the created SCC files
	OutputDir string

	// Interval is the length of each regular file. Defaults to one hour.
	Interval time.Duration

	// Round aligns the first window down to an Interval boundary
	Round bool

	// StartTime optionally overrides where conversion starts. Accepts
	// "YYYY-MM-DD_HH:MM[:SS]", "HH:MM[:SS]" on the first day of data, or
	// "XX:MM" for the next occurrence of that minute.
	StartTime string

	// EndTime optionally ends conversion after a single window. Requires
	// StartTime. Same formats, resolved relative to the start.
	EndTime string

	Atmosphere      Atmosphere
	SkipCalibration bool
	Strategy        CalibrationStrategy

	// CalibrationTimes are the clock periods used by CalibrationFixedPeriods.
	// Defaults to DefaultCalibrationTimes.
	CalibrationTimes []ClockPeriod
}

// Result describes one SCC file produced by a Converter.
type Result struct {
	ID          string
	Path        string
	Start, End  time.Time
	Calibration bool

	// Wavelength is set on calibration results only
	Wavelength Wavelength
}

// Converter walks the available data window by window and emits one SCC file
// per iteration. Usage follows the usual iterator shape:
//
//	for conv.Next() {
//	    res := conv.Current()
//	    ...
//	}
//	if err := conv.Err(); err != nil { ... }
type Converter struct {
	src Source
	loc *locations.Location
	opt Options

	cursor  time.Time
	spanEnd time.Time
	single  bool
	done    bool

	calibration []polly.Window

	pending []Result
	current Result
	skipped []polly.Window
	err     error
}

// NewConverter validates the options against the source's available time
// range and prepares an iterator. Option errors are reported here, before
// any file is written.
func NewConverter(src Source, loc *locations.Location, opt Options) (*Converter, error) {
	if opt.Interval <= 0 {
		opt.Interval = time.Hour
	}
	if len(opt.CalibrationTimes) == 0 {
		opt.CalibrationTimes = DefaultCalibrationTimes
	}

	first, last := src.TimeSpan()

	c := &Converter{
		src:     src,
		loc:     loc,
		opt:     opt,
		cursor:  first,
		spanEnd: last,
	}

	if opt.EndTime != "" && opt.StartTime == "" {
		return nil, ErrEndWithoutStart
	}
	if opt.StartTime != "" {
		start, err := ParseTimeOption(first, opt.StartTime)
		if err != nil {
			return nil, fmt.Errorf("invalid start time: %w", err)
		}
		if start.Before(first) || start.After(last) {
			return nil, &TimeOutsideRange{Start: first, End: last, Requested: start}
		}
		c.cursor = start
	}
	if opt.Round {
		c.cursor = c.cursor.Truncate(opt.Interval)
	}
	if opt.EndTime != "" {
		end, err := ParseTimeOption(c.cursor, opt.EndTime)
		if err != nil {
			return nil, fmt.Errorf("invalid end time: %w", err)
		}
		if end.After(last) {
			return nil, &TimeOutsideRange{Start: first, End: last, Requested: end}
		}
		if !end.After(c.cursor) {
			return nil, fmt.Errorf("%w (%s - %s)", ErrEndBeforeStart,
				c.cursor.Format(time.DateTime), end.Format(time.DateTime))
		}
		c.spanEnd = end
		c.single = true
	}

	if !opt.SkipCalibration {
		c.calibration = c.calibrationWindows(c.cursor, c.spanEnd)
	}
	return c, nil
}

// calibrationWindows lists the calibration periods intersecting [from, to],
// either read off the angle signal or instantiated from the configured clock
// periods for every day in the range.
func (c *Converter) calibrationWindows(from, to time.Time) []polly.Window {
	var kept []polly.Window
	switch c.opt.Strategy {
	case CalibrationFixedPeriods:
		// A clock period only counts when the data fully covers it; a
		// calibration cut short by the edge of the range is unusable.
		day := from.UTC().Truncate(24 * time.Hour)
		for !day.After(to) {
			for _, p := range c.opt.CalibrationTimes {
				w := p.on(day)
				if w.Start.After(from) && w.End.Before(to) {
					kept = append(kept, w)
				}
			}
			day = day.AddDate(0, 0, 1)
		}
	default:
		for _, w := range c.src.CalibrationPeriods() {
			if !w.End.Before(from) && !w.Start.After(to) {
				kept = append(kept, w)
			}
		}
	}
	return kept
}

// Next advances to the next produced file. It returns false when the
// available range is exhausted or an error occurred; check Err afterwards.
func (c *Converter) Next() bool {
	if c.err != nil {
		return false
	}
	if len(c.pending) > 0 {
		c.current, c.pending = c.pending[0], c.pending[1:]
		return true
	}

	for !c.done {
		var start, end time.Time
		if c.single {
			start, end = c.cursor, c.spanEnd
			c.done = true
		} else {
			if !c.cursor.Before(c.spanEnd) {
				c.done = true
				break
			}
			// Windows are half open so consecutive ones never share a sample.
			start, end = c.cursor, c.cursor.Add(c.opt.Interval-time.Nanosecond)
			c.cursor = c.cursor.Add(c.opt.Interval)
		}

		if err := c.convertWindow(start, end); err != nil {
			if errors.Is(err, polly.ErrNoMeasurements) {
				c.skipped = append(c.skipped, polly.Window{Start: start, End: end})
				continue
			}
			c.err = err
			return false
		}
		if len(c.pending) > 0 {
			c.current, c.pending = c.pending[0], c.pending[1:]
			return true
		}
	}
	return false
}

// convertWindow assembles one window and queues its regular file plus any
// calibration sub-files as pending results.
func (c *Converter) convertWindow(start, end time.Time) error {
	f, err := c.src.FetchWindow(start, end)
	if err != nil {
		return err
	}

	id, path, err := WriteMeasurement(f, c.opt.OutputDir, c.loc, c.opt.Atmosphere)
	if err != nil {
		// A window made up entirely of calibration samples has no regular
		// content. Still worth the calibration pass below.
		if !errors.Is(err, polly.ErrNoMeasurements) {
			return err
		}
	} else {
		c.pending = append(c.pending, Result{
			ID:    id,
			Path:  path,
			Start: f.Start,
			End:   f.End,
		})
	}

	for _, w := range c.calibration {
		if w.Start.Before(start) || !w.Start.Before(end.Add(time.Nanosecond)) {
			continue
		}
		if err := c.convertCalibration(w); err != nil {
			return err
		}
	}
	return nil
}

func (c *Converter) convertCalibration(w polly.Window) error {
	f, err := c.src.FetchWindow(w.Start, w.End)
	if err != nil {
		if errors.Is(err, polly.ErrNoMeasurements) {
			return nil
		}
		return err
	}

	for _, wl := range calibrationWavelengths {
		if _, ok := wl.channels(c.loc); !ok {
			continue
		}
		id, path, err := WriteCalibration(f, c.opt.OutputDir, c.loc, wl)
		if err != nil {
			if errors.Is(err, ErrNoCalibrationCycles) {
				continue
			}
			return err
		}
		c.pending = append(c.pending, Result{
			ID:          id,
			Path:        path,
			Start:       f.Start,
			End:         f.End,
			Calibration: true,
			Wavelength:  wl,
		})
	}
	return nil
}

// Current returns the result produced by the last successful Next call.
func (c *Converter) Current() Result { return c.current }

// Err returns the first error encountered during iteration, if any.
func (c *Converter) Err() error { return c.err }

// SkippedWindows lists the windows that contained no measurements and were
// passed over.
func (c *Converter) SkippedWindows() []polly.Window { return c.skipped }
