// Package sounding fetches atmospheric profiles (radiosondes or model
// output) and writes them as SCC sounding files to accompany lidar
// measurements.
package sounding

import (
	"errors"
	"fmt"
	"time"

	"github.com/noa-react/polly-scc/internal/locations"
)

// ErrNoProfile indicates that the provider has no profile covering the
// requested period.
var ErrNoProfile = errors.New("no sounding profile available")

// Profile is one vertical atmospheric profile. All slices have the same
// length, one entry per altitude level.
type Profile struct {
	// Time is the sounding timestamp
	Time time.Time

	Altitude         []float64
	Temperature      []float64
	Pressure         []float64
	RelativeHumidity []float64
}

// Provider fetches the profile covering [start, end) for a station.
type Provider interface {
	Profile(loc *locations.Location, start, end time.Time) (*Profile, error)
}

// New returns the provider registered under the given name. dataDir points
// to the provider's local data storage.
func New(name, dataDir string) (Provider, error) {
	switch name {
	case "noa_wrf", "wrf_noa":
		return &WRFProvider{Dir: dataDir}, nil
	default:
		return nil, fmt.Errorf("unknown sounding provider %q", name)
	}
}
