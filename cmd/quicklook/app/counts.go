package app

import "math"

const (
	// For 20 samples the 5% percentile is one sample off each end.
	minimumSampleCount = 20

	minimumRange = 1.0 // decades
)

// SignalBounds are the display boundaries of log-scaled photon counts.
type SignalBounds struct {
	Min float64 // 5th percentile, log10 counts
	Max float64 // 95th percentile, log10 counts
}

func defaultSignalBounds() SignalBounds {
	return SignalBounds{Min: 0, Max: 4}
}

// signalHistogram tracks the distribution of log10 photon counts in tenth
// of a decade bins, to pick display bounds robust against outliers such as
// cloud returns.
type signalHistogram struct {
	bins       map[int]uint32
	totalCount uint64
	minBin     int
	maxBin     int
}

func newSignalHistogram() *signalHistogram {
	return &signalHistogram{
		bins:   make(map[int]uint32),
		minBin: math.MaxInt32,
		maxBin: math.MinInt32,
	}
}

// logCounts maps a raw photon count to its log scale display value. Zero and
// negative counts clamp to zero.
func logCounts(v float64) float64 {
	if v < 1 {
		return 0
	}
	return math.Log10(v)
}

func (h *signalHistogram) update(value float64) {
	bin := int(math.Floor(logCounts(value) * 10))

	h.bins[bin]++
	h.totalCount++

	if bin < h.minBin {
		h.minBin = bin
	}
	if bin > h.maxBin {
		h.maxBin = bin
	}
}

// percentileBounds returns the 5th and 95th percentile of the observed
// distribution, widened to at least one decade.
func (h *signalHistogram) percentileBounds() SignalBounds {
	if h.totalCount < minimumSampleCount {
		return defaultSignalBounds()
	}

	target := h.totalCount * 5 / 100

	var count uint64
	low := h.minBin
	for bin := h.minBin; bin <= h.maxBin; bin++ {
		count += uint64(h.bins[bin])
		if count >= target {
			low = bin
			break
		}
	}

	count = 0
	high := h.maxBin
	for bin := h.maxBin; bin >= h.minBin; bin-- {
		count += uint64(h.bins[bin])
		if count >= target {
			high = bin
			break
		}
	}

	bounds := SignalBounds{Min: float64(low) / 10, Max: float64(high) / 10}
	if bounds.Max-bounds.Min < minimumRange {
		center := (bounds.Max + bounds.Min) / 2
		bounds.Min = center - minimumRange/2
		bounds.Max = center + minimumRange/2
	}
	return bounds
}
