// Package locations holds the static per-station metadata required to turn
// raw PollyXT files into SCC uploads: channel mappings, SCC configuration
// IDs, geographic coordinates and depolarization calibration channel setups.
//
// Stations are defined in YAML. A set of known stations is embedded into the
// binary and additional stations (or overrides of the built-in ones) can be
// loaded from user-supplied files.
package locations

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed locations.yml
var builtinLocations []byte

// CalibrationChannels describes the channel setup used for depolarization
// calibration at one wavelength. Total and Cross are indices into the raw
// signal's channel dimension, the ID slices are SCC channel IDs for the
// +45° and -45° polarization states (transmitted, reflected).
type CalibrationChannels struct {
	Total    *int    `yaml:"total_channel"`
	Cross    *int    `yaml:"cross_channel"`
	PlusIDs  []int32 `yaml:"plus_45_channel_ids"`
	MinusIDs []int32 `yaml:"minus_45_channel_ids"`
}

// Complete reports whether this wavelength can produce calibration files:
// both channel indices and both channel ID pairs must be present.
func (c CalibrationChannels) Complete() bool {
	return c.Total != nil && c.Cross != nil && len(c.PlusIDs) == 2 && len(c.MinusIDs) == 2
}

// Location represents a physical station where a PollyXT instrument is
// installed. Values are read once at startup and treated as immutable.
type Location struct {
	Name string `yaml:"-"`

	// ProfileName prefixes WRF radiosonde profile filenames
	ProfileName string `yaml:"profile_name"`

	// SoundingProvider names the radiosonde provider used for this station
	SoundingProvider string `yaml:"sounding_provider"`

	// SCCCode is the three letter SCC station code used in measurement IDs
	SCCCode string `yaml:"scc_code"`

	Lat         float64 `yaml:"lat"`
	Lon         float64 `yaml:"lon"`
	AltitudeASL float64 `yaml:"altitude_asl"`

	// SCC lidar configuration IDs
	DaytimeConfiguration   int `yaml:"daytime_configuration"`
	NighttimeConfiguration int `yaml:"nighttime_configuration"`

	// Value of the calibration angle signal when no calibration is running
	DepolCalibrationZeroState float64 `yaml:"depol_calibration_zero_state"`

	ChannelID      []int32   `yaml:"channel_id"`
	BackgroundLow  []float64 `yaml:"background_low"`
	BackgroundHigh []float64 `yaml:"background_high"`
	LRInput        []int32   `yaml:"lr_input"`

	Temperature float64 `yaml:"temperature"`
	Pressure    float64 `yaml:"pressure"`

	CalibrationConfiguration355 int                 `yaml:"calibration_configuration_355nm"`
	CalibrationConfiguration532 int                 `yaml:"calibration_configuration_532nm"`
	Calibration355              CalibrationChannels `yaml:"calibration_355nm"`
	Calibration532              CalibrationChannels `yaml:"calibration_532nm"`

	// Day period rules. Each is either empty (fall back to the fixed
	// 04:00-16:00 UTC rule), a wall clock time in HH:MM, or a signed offset
	// in minutes from the astronomically computed event (e.g. "+30", "-15").
	Sunrise string `yaml:"sunrise"`
	Sunset  string `yaml:"sunset"`
}

// Validate checks the profile for internal consistency.
func (l *Location) Validate() error {
	if l.SCCCode == "" {
		return fmt.Errorf("location %s: scc_code is required", l.Name)
	}
	if len(l.ChannelID) == 0 {
		return fmt.Errorf("location %s: channel_id is required", l.Name)
	}
	if len(l.BackgroundLow) != len(l.ChannelID) ||
		len(l.BackgroundHigh) != len(l.ChannelID) ||
		len(l.LRInput) != len(l.ChannelID) {
		return fmt.Errorf("location %s: background_low, background_high and lr_input must match channel_id length (%d)",
			l.Name, len(l.ChannelID))
	}
	for _, c := range []CalibrationChannels{l.Calibration355, l.Calibration532} {
		if c.Total != nil && *c.Total >= len(l.ChannelID) {
			return fmt.Errorf("location %s: calibration total channel index %d out of range", l.Name, *c.Total)
		}
		if c.Cross != nil && *c.Cross >= len(l.ChannelID) {
			return fmt.Errorf("location %s: calibration cross channel index %d out of range", l.Name, *c.Cross)
		}
	}
	return nil
}

// Map holds all known locations keyed by station name.
type Map map[string]*Location

// Names returns the known station names in sorted order.
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads the embedded station profiles and merges any user-supplied
// profile files on top of them. Later files override earlier ones, so a user
// file may redefine a built-in station.
func Load(userPaths ...string) (Map, error) {
	m := make(Map)

	if err := mergeYAML(m, builtinLocations); err != nil {
		return nil, fmt.Errorf("parsing built-in locations: %w", err)
	}

	for _, path := range userPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading locations file: %w", err)
		}
		if err = mergeYAML(m, data); err != nil {
			return nil, fmt.Errorf("parsing locations file %s: %w", path, err)
		}
	}

	for _, loc := range m {
		if err := loc.Validate(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func mergeYAML(m Map, data []byte) error {
	var parsed map[string]*Location
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return err
	}
	for name, loc := range parsed {
		loc.Name = name
		m[name] = loc
	}
	return nil
}
