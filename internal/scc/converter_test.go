package scc

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/noa-react/polly-scc/internal/locations"
	"github.com/noa-react/polly-scc/internal/polly"
)

func converterLocation() *locations.Location {
	total, cross := 0, 1
	return &locations.Location{
		Name:                        "TestStation",
		SCCCode:                     "tst",
		Lat:                         35.8612,
		Lon:                         23.3100,
		DaytimeConfiguration:        100,
		NighttimeConfiguration:      200,
		ChannelID:                   []int32{501, 502},
		BackgroundLow:               []float64{0, 0},
		BackgroundHigh:              []float64{249, 249},
		LRInput:                     []int32{40, 40},
		Temperature:                 20,
		Pressure:                    1010,
		CalibrationConfiguration532: 300,
		Calibration532: locations.CalibrationChannels{
			Total:    &total,
			Cross:    &cross,
			PlusIDs:  []int32{601, 602},
			MinusIDs: []int32{603, 604},
		},
	}
}

// stubSource synthesizes a sample every 30 seconds across its span, except
// inside declared gaps. Samples inside calibration windows carry +45/-45
// angles, split halfway through the window.
type stubSource struct {
	start, end time.Time
	gaps       []polly.Window
	cal        []polly.Window
}

func (s *stubSource) TimeSpan() (time.Time, time.Time) { return s.start, s.end }

func (s *stubSource) CalibrationPeriods() []polly.Window { return s.cal }

func (s *stubSource) angleAt(t time.Time) float64 {
	for _, w := range s.cal {
		if !w.Contains(t) {
			continue
		}
		if t.Sub(w.Start) < w.End.Sub(t) {
			return 45
		}
		return -45
	}
	return 0
}

func (s *stubSource) FetchWindow(start, end time.Time) (*polly.File, error) {
	w := polly.Window{Start: start, End: end}

	f := &polly.File{ZenithAngle: 5}
	for t := s.start; !t.After(s.end); t = t.Add(30 * time.Second) {
		if !w.Contains(t) {
			continue
		}
		inGap := false
		for _, g := range s.gaps {
			if g.Contains(t) {
				inGap = true
				break
			}
		}
		if inGap {
			continue
		}

		dayCode, seconds := polly.EncodeTime(t)
		angle := s.angleAt(t)

		f.TimeTable = append(f.TimeTable, [2]int64{dayCode, seconds})
		f.Signal = append(f.Signal, [][]float64{{1, 2}, {3, 4}})
		f.SignalSwap = append(f.SignalSwap, [][]float64{{1, 3}, {2, 4}})
		f.Shots = append(f.Shots, []int32{600, 600})
		f.CalAngle = append(f.CalAngle, angle)
		f.CalMask = append(f.CalMask, angle != 0)
	}
	if len(f.TimeTable) == 0 {
		return nil, polly.ErrNoMeasurements
	}

	var err error
	f.Start, f.End, err = polly.SpanOfTable(f.TimeTable)
	return f, err
}

func collect(t *testing.T, conv *Converter) []Result {
	t.Helper()
	var results []Result
	for conv.Next() {
		results = append(results, conv.Current())
	}
	if err := conv.Err(); err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	return results
}

func TestConverterHourlyWindows(t *testing.T) {
	src := &stubSource{
		start: time.Date(2020, 5, 22, 0, 0, 0, 0, time.UTC),
		end:   time.Date(2020, 5, 22, 2, 59, 30, 0, time.UTC),
	}

	conv, err := NewConverter(src, converterLocation(), Options{
		OutputDir:       t.TempDir(),
		SkipCalibration: true,
	})
	if err != nil {
		t.Fatalf("NewConverter failed: %v", err)
	}

	results := collect(t, conv)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	wantIDs := []string{"20200522tst0000", "20200522tst0100", "20200522tst0200"}
	for i, want := range wantIDs {
		if results[i].ID != want {
			t.Errorf("result %d ID = %q, want %q", i, results[i].ID, want)
		}
		if results[i].Calibration {
			t.Errorf("result %d unexpectedly flagged as calibration", i)
		}
		if _, err := os.Stat(results[i].Path); err != nil {
			t.Errorf("result %d file missing: %v", i, err)
		}
	}
}

func TestConverterSkipsGaps(t *testing.T) {
	src := &stubSource{
		start: time.Date(2020, 5, 22, 0, 0, 0, 0, time.UTC),
		end:   time.Date(2020, 5, 22, 2, 59, 30, 0, time.UTC),
		gaps: []polly.Window{{
			Start: time.Date(2020, 5, 22, 1, 0, 0, 0, time.UTC),
			End:   time.Date(2020, 5, 22, 1, 59, 59, 0, time.UTC),
		}},
	}

	conv, err := NewConverter(src, converterLocation(), Options{
		OutputDir:       t.TempDir(),
		SkipCalibration: true,
	})
	if err != nil {
		t.Fatalf("NewConverter failed: %v", err)
	}

	results := collect(t, conv)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[1].ID != "20200522tst0200" {
		t.Errorf("second result ID = %q, want 20200522tst0200", results[1].ID)
	}

	skipped := conv.SkippedWindows()
	if len(skipped) != 1 {
		t.Fatalf("got %d skipped windows, want 1", len(skipped))
	}
	if want := time.Date(2020, 5, 22, 1, 0, 0, 0, time.UTC); !skipped[0].Start.Equal(want) {
		t.Errorf("skipped window starts %v, want %v", skipped[0].Start, want)
	}
}

func TestConverterRounding(t *testing.T) {
	src := &stubSource{
		start: time.Date(2020, 5, 22, 1, 50, 0, 0, time.UTC),
		end:   time.Date(2020, 5, 22, 2, 59, 30, 0, time.UTC),
	}

	conv, err := NewConverter(src, converterLocation(), Options{
		OutputDir:       t.TempDir(),
		Round:           true,
		SkipCalibration: true,
	})
	if err != nil {
		t.Fatalf("NewConverter failed: %v", err)
	}

	results := collect(t, conv)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// First window is aligned to 01:00 but its first sample is at 01:50.
	if results[0].ID != "20200522tst0150" {
		t.Errorf("first result ID = %q, want 20200522tst0150", results[0].ID)
	}
	if results[1].ID != "20200522tst0200" {
		t.Errorf("second result ID = %q, want 20200522tst0200", results[1].ID)
	}
}

func TestConverterStartEndOverride(t *testing.T) {
	src := &stubSource{
		start: time.Date(2020, 5, 22, 0, 0, 0, 0, time.UTC),
		end:   time.Date(2020, 5, 22, 5, 59, 30, 0, time.UTC),
	}

	conv, err := NewConverter(src, converterLocation(), Options{
		OutputDir:       t.TempDir(),
		StartTime:       "02:00",
		EndTime:         "04:30",
		SkipCalibration: true,
	})
	if err != nil {
		t.Fatalf("NewConverter failed: %v", err)
	}

	results := collect(t, conv)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ID != "20200522tst0200" {
		t.Errorf("result ID = %q, want 20200522tst0200", results[0].ID)
	}
	if want := time.Date(2020, 5, 22, 4, 30, 0, 0, time.UTC); !results[0].End.Equal(want) {
		t.Errorf("result End = %v, want %v", results[0].End, want)
	}
}

func TestConverterEndWithoutStart(t *testing.T) {
	src := &stubSource{
		start: time.Date(2020, 5, 22, 0, 0, 0, 0, time.UTC),
		end:   time.Date(2020, 5, 22, 5, 0, 0, 0, time.UTC),
	}

	_, err := NewConverter(src, converterLocation(), Options{EndTime: "04:00"})
	if !errors.Is(err, ErrEndWithoutStart) {
		t.Errorf("expected ErrEndWithoutStart, got %v", err)
	}
}

func TestConverterEndBeforeStart(t *testing.T) {
	src := &stubSource{
		start: time.Date(2020, 5, 22, 0, 0, 0, 0, time.UTC),
		end:   time.Date(2020, 5, 22, 5, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name       string
		start, end string
	}{
		{"end before start", "04:00", "02:00"},
		{"end equals start", "04:00", "04:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConverter(src, converterLocation(), Options{
				StartTime: tt.start,
				EndTime:   tt.end,
			})
			if !errors.Is(err, ErrEndBeforeStart) {
				t.Errorf("expected ErrEndBeforeStart, got %v", err)
			}
		})
	}
}

func TestConverterStartOutsideRange(t *testing.T) {
	src := &stubSource{
		start: time.Date(2020, 5, 22, 0, 0, 0, 0, time.UTC),
		end:   time.Date(2020, 5, 22, 5, 0, 0, 0, time.UTC),
	}

	_, err := NewConverter(src, converterLocation(), Options{StartTime: "2020-06-01_00:00"})
	var outside *TimeOutsideRange
	if !errors.As(err, &outside) {
		t.Fatalf("expected TimeOutsideRange, got %v", err)
	}
	if want := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC); !outside.Requested.Equal(want) {
		t.Errorf("TimeOutsideRange.Requested = %v, want %v", outside.Requested, want)
	}
}

func TestConverterCalibration(t *testing.T) {
	src := &stubSource{
		start: time.Date(2020, 5, 22, 2, 0, 0, 0, time.UTC),
		end:   time.Date(2020, 5, 22, 2, 59, 30, 0, time.UTC),
		cal: []polly.Window{{
			Start: time.Date(2020, 5, 22, 2, 31, 0, 0, time.UTC),
			End:   time.Date(2020, 5, 22, 2, 41, 0, 0, time.UTC),
		}},
	}

	conv, err := NewConverter(src, converterLocation(), Options{OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewConverter failed: %v", err)
	}

	results := collect(t, conv)

	var regular, calibration []Result
	for _, r := range results {
		if r.Calibration {
			calibration = append(calibration, r)
		} else {
			regular = append(regular, r)
		}
	}

	if len(regular) != 1 {
		t.Fatalf("got %d regular results, want 1", len(regular))
	}
	// Only the 532nm setup is complete on this station.
	if len(calibration) != 1 {
		t.Fatalf("got %d calibration results, want 1", len(calibration))
	}

	c := calibration[0]
	if c.Wavelength != NM532 {
		t.Errorf("calibration wavelength = %v, want 532", c.Wavelength)
	}
	if c.ID != "20200522tst0253" {
		t.Errorf("calibration ID = %q, want 20200522tst0253", c.ID)
	}
	if !strings.HasSuffix(c.Path, "calibration_20200522tst02_532.nc") {
		t.Errorf("calibration path = %q, want calibration_20200522tst02_532.nc name", c.Path)
	}
	if _, err := os.Stat(c.Path); err != nil {
		t.Errorf("calibration file missing: %v", err)
	}
}

func TestConverterFixedCalibrationWindows(t *testing.T) {
	// Fixed clock periods only count when the data fully covers them.
	t.Run("period starting before the data", func(t *testing.T) {
		src := &stubSource{
			start: time.Date(2020, 5, 22, 2, 35, 0, 0, time.UTC),
			end:   time.Date(2020, 5, 22, 23, 59, 30, 0, time.UTC),
		}

		conv, err := NewConverter(src, converterLocation(), Options{
			Strategy: CalibrationFixedPeriods,
		})
		if err != nil {
			t.Fatalf("NewConverter failed: %v", err)
		}

		// The 02:31-02:41 period is already running when the data begins.
		if len(conv.calibration) != 2 {
			t.Fatalf("kept %d calibration windows, want 2", len(conv.calibration))
		}
		if want := time.Date(2020, 5, 22, 17, 31, 0, 0, time.UTC); !conv.calibration[0].Start.Equal(want) {
			t.Errorf("first kept window starts %v, want %v", conv.calibration[0].Start, want)
		}
	})

	t.Run("period cut short by the range end", func(t *testing.T) {
		src := &stubSource{
			start: time.Date(2020, 5, 22, 2, 35, 0, 0, time.UTC),
			end:   time.Date(2020, 5, 22, 21, 35, 0, 0, time.UTC),
		}

		conv, err := NewConverter(src, converterLocation(), Options{
			Strategy: CalibrationFixedPeriods,
		})
		if err != nil {
			t.Fatalf("NewConverter failed: %v", err)
		}

		if len(conv.calibration) != 1 {
			t.Fatalf("kept %d calibration windows, want 1", len(conv.calibration))
		}
		if want := time.Date(2020, 5, 22, 17, 31, 0, 0, time.UTC); !conv.calibration[0].Start.Equal(want) {
			t.Errorf("kept window starts %v, want %v", conv.calibration[0].Start, want)
		}
	})
}

func TestConverterCalibrationDisabled(t *testing.T) {
	src := &stubSource{
		start: time.Date(2020, 5, 22, 2, 0, 0, 0, time.UTC),
		end:   time.Date(2020, 5, 22, 2, 59, 30, 0, time.UTC),
		cal: []polly.Window{{
			Start: time.Date(2020, 5, 22, 2, 31, 0, 0, time.UTC),
			End:   time.Date(2020, 5, 22, 2, 41, 0, 0, time.UTC),
		}},
	}

	conv, err := NewConverter(src, converterLocation(), Options{
		OutputDir:       t.TempDir(),
		SkipCalibration: true,
	})
	if err != nil {
		t.Fatalf("NewConverter failed: %v", err)
	}

	for _, r := range collect(t, conv) {
		if r.Calibration {
			t.Errorf("calibration result %q produced with calibration disabled", r.ID)
		}
	}
}
