package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/noa-react/polly-scc/internal/scc"
)

type Config struct {
	InputPath  string
	OutputPath string
	Location   string

	Interval         time.Duration
	Round            bool
	StartTime        string
	EndTime          string
	Atmosphere       scc.Atmosphere
	NoCalibration    bool
	FixedCalibration bool

	// SCC configuration ID overrides, zero means keep the station default
	SystemIDDay   int
	SystemIDNight int

	// Extra location files merged over the built-in stations
	LocationFiles []string

	// WRFPath is the directory holding WRF profile files
	WRFPath string

	JournalPath string
	NoJournal   bool

	History       bool
	ListLocations bool
	Verbose       bool
}

func NewConfig() *Config {
	return &Config{
		Interval:    time.Hour,
		JournalPath: "polly2scc.db",
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var interval int
	var atmosphere, locationFiles string
	flag.StringVar(&c.InputPath, "in", "", "Directory with raw PollyXT netCDF files")
	flag.StringVar(&c.OutputPath, "out", "", "Directory to write SCC files into")
	flag.StringVar(&c.Location, "location", "", "Station name (see -list-locations)")
	flag.IntVar(&interval, "interval", 60, "Length of each output file in minutes")
	flag.BoolVar(&c.Round, "round", false, "Align the first file to an interval boundary")
	flag.StringVar(&c.StartTime, "start", "", "Trim data before this time (YYYY-MM-DD_HH:MM, HH:MM or XX:MM)")
	flag.StringVar(&c.EndTime, "end", "", "Produce a single file ending at this time (requires -start)")
	flag.StringVar(&atmosphere, "atmosphere", "standard", "Molecular calculation source [automatic, radiosonde, cloudnet, standard]")
	flag.BoolVar(&c.NoCalibration, "no-calibration", false, "Skip generation of calibration files")
	flag.BoolVar(&c.FixedCalibration, "fixed-calibration", false, "Locate calibration at fixed clock times instead of reading the angle signal")
	flag.IntVar(&c.SystemIDDay, "system-id-day", 0, "Override the station's daytime SCC configuration ID")
	flag.IntVar(&c.SystemIDNight, "system-id-night", 0, "Override the station's nighttime SCC configuration ID")
	flag.StringVar(&locationFiles, "locations", "", "Comma separated list of extra location files")
	flag.StringVar(&c.WRFPath, "wrf", "", "Directory with WRF profile files (required with -atmosphere radiosonde)")
	flag.StringVar(&c.JournalPath, "journal", c.JournalPath, "Path to the journal database")
	flag.BoolVar(&c.NoJournal, "no-journal", false, "Do not record this run in the journal")
	flag.BoolVar(&c.History, "history", false, "List previous runs from the journal and exit")
	flag.BoolVar(&c.ListLocations, "list-locations", false, "List known stations and exit")
	flag.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")
	flag.Parse()

	if locationFiles != "" {
		for _, p := range strings.Split(locationFiles, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.LocationFiles = append(c.LocationFiles, p)
			}
		}
	}

	if c.History || c.ListLocations {
		return c, nil
	}

	var err error
	c.Atmosphere, err = scc.ParseAtmosphere(atmosphere)

	if err == nil {
		switch {
		case c.InputPath == "":
			err = errors.New("input directory is required")
		case c.OutputPath == "":
			err = errors.New("output directory is required")
		case c.Location == "":
			err = errors.New("location is required")
		case interval <= 0:
			err = fmt.Errorf("invalid interval: %d", interval)
		case c.EndTime != "" && c.StartTime == "":
			err = scc.ErrEndWithoutStart
		case c.Atmosphere == scc.AtmosphereRadiosonde && c.WRFPath == "":
			err = errors.New("-wrf is required with -atmosphere radiosonde")
		}
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Interval = time.Duration(interval) * time.Minute
	return c, nil
}
