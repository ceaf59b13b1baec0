package app

import (
	"math"
	"testing"
)

func TestLogCounts(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{-5, 0},
		{0.5, 0},
		{1, 0},
		{10, 1},
		{1000, 3},
	}

	for _, tt := range tests {
		if got := logCounts(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("logCounts(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPercentileBoundsDefaults(t *testing.T) {
	h := newSignalHistogram()
	for i := 0; i < 5; i++ {
		h.update(100)
	}

	// Too few samples to be meaningful, fall back to the defaults.
	if got, want := h.percentileBounds(), defaultSignalBounds(); got != want {
		t.Errorf("percentileBounds = %+v, want defaults %+v", got, want)
	}
}

func TestPercentileBounds(t *testing.T) {
	h := newSignalHistogram()

	// Bulk of the signal sits between 10 and 1000 counts, with a few
	// outliers well above.
	for i := 0; i < 500; i++ {
		h.update(10)
		h.update(1000)
	}
	for i := 0; i < 5; i++ {
		h.update(1e9)
	}

	bounds := h.percentileBounds()
	if bounds.Min < 0.5 || bounds.Min > 1.5 {
		t.Errorf("bounds.Min = %v, want about 1 (log10 of 10)", bounds.Min)
	}
	if bounds.Max > 4 {
		t.Errorf("bounds.Max = %v, outliers should not dominate", bounds.Max)
	}
	if bounds.Max-bounds.Min < minimumRange {
		t.Errorf("bounds span %v, want at least %v", bounds.Max-bounds.Min, minimumRange)
	}
}
