package scc

import (
	"fmt"

	"github.com/noa-react/polly-scc/internal/locations"
)

// Wavelength identifies a laser wavelength with a depolarization
// calibration channel setup.
type Wavelength int

const (
	NM355 Wavelength = 355
	NM532 Wavelength = 532
)

// calibrationWavelengths lists wavelengths in the order their calibration
// sub-files are emitted.
var calibrationWavelengths = []Wavelength{NM532, NM355}

func (w Wavelength) String() string {
	return fmt.Sprintf("%d", int(w))
}

// IDSuffix returns the two-character measurement ID suffix for calibration
// files at this wavelength.
func (w Wavelength) IDSuffix() string {
	switch w {
	case NM355:
		return "35"
	case NM532:
		return "53"
	}
	return "00"
}

// channels returns the calibration channel setup for this wavelength at the
// given station, and whether the setup is complete enough to emit files.
func (w Wavelength) channels(loc *locations.Location) (locations.CalibrationChannels, bool) {
	var c locations.CalibrationChannels
	switch w {
	case NM355:
		c = loc.Calibration355
	case NM532:
		c = loc.Calibration532
	default:
		return c, false
	}
	return c, c.Complete()
}

// configurationID returns the SCC configuration ID used for calibration
// files at this wavelength.
func (w Wavelength) configurationID(loc *locations.Location) int32 {
	switch w {
	case NM355:
		return int32(loc.CalibrationConfiguration355)
	case NM532:
		return int32(loc.CalibrationConfiguration532)
	}
	return 0
}
