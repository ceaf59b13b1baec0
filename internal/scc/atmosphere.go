// Package scc converts assembled PollyXT windows into SCC-format netCDF
// files: regular measurement files, depolarization calibration sub-files and
// the accompanying radiosonde references. It also contains the interval
// planner that drives a whole-repository conversion.
package scc

import (
	"fmt"
	"strings"
)

// Atmosphere selects which atmospheric reference data SCC uses during
// processing. The values are written to the Molecular_Calc variable.
type Atmosphere int32

const (
	AtmosphereAutomatic  Atmosphere = 0
	AtmosphereRadiosonde Atmosphere = 1
	AtmosphereCloudnet   Atmosphere = 2
	AtmosphereStandard   Atmosphere = 4
)

// ParseAtmosphere converts a CLI option value into an Atmosphere.
func ParseAtmosphere(s string) (Atmosphere, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "automatic":
		return AtmosphereAutomatic, nil
	case "radiosonde":
		return AtmosphereRadiosonde, nil
	case "cloudnet":
		return AtmosphereCloudnet, nil
	case "standard":
		return AtmosphereStandard, nil
	}
	return 0, fmt.Errorf("unknown atmosphere %q", s)
}

func (a Atmosphere) String() string {
	switch a {
	case AtmosphereAutomatic:
		return "automatic"
	case AtmosphereRadiosonde:
		return "radiosonde"
	case AtmosphereCloudnet:
		return "cloudnet"
	case AtmosphereStandard:
		return "standard"
	}
	return fmt.Sprintf("atmosphere(%d)", int32(a))
}
