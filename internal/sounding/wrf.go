package sounding

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/noa-react/polly-scc/internal/locations"
)

// wrfTimeLayout matches the timestamp column of NOA WRF profile files.
const wrfTimeLayout = "2006-01-02_15:04:05"

// WRFProvider reads daily profile files produced by NOA's WRF model runs.
// Files are named <PROFILE_NAME>_<DDMMYYYY> and contain CSV rows of
// timestamp, pressure, temperature, dew point, relative humidity and
// altitude. One file holds several profiles, one per model output step.
type WRFProvider struct {
	// Dir is the directory holding the daily profile files
	Dir string
}

// Profile returns the first profile inside [start, end). The start time is
// floored to the hour first, matching the model's hourly output steps.
func (p *WRFProvider) Profile(loc *locations.Location, start, end time.Time) (*Profile, error) {
	start = start.UTC().Truncate(time.Hour)

	name := strings.ToUpper(loc.ProfileName) + "_" + start.Format("02012006")
	path := filepath.Join(p.Dir, name)

	rows, err := readWRFFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for %s at %s (looked for %s)",
				ErrNoProfile, loc.Name, start.Format(time.RFC3339), path)
		}
		return nil, err
	}

	var profile *Profile
	for _, r := range rows {
		if r.time.Before(start) || !r.time.Before(end.UTC()) {
			continue
		}
		if profile == nil {
			profile = &Profile{Time: r.time}
		}
		if !r.time.Equal(profile.Time) {
			break
		}
		profile.Altitude = append(profile.Altitude, r.altitude)
		profile.Temperature = append(profile.Temperature, r.temperature)
		profile.Pressure = append(profile.Pressure, r.pressure)
		profile.RelativeHumidity = append(profile.RelativeHumidity, r.rh)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w for %s between %s and %s",
			ErrNoProfile, loc.Name, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return profile, nil
}

type wrfRow struct {
	time        time.Time
	pressure    float64
	temperature float64
	rh          float64
	altitude    float64
}

func readWRFFile(path string) (rows []wrfRow, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("profile file %s has no data rows", path)
	}

	// First record is the header. Columns are timestamp, pressure,
	// temperature, dew point, relative humidity, altitude.
	for i, rec := range records[1:] {
		if len(rec) < 6 {
			return nil, fmt.Errorf("profile file %s: row %d has %d columns, want 6", path, i+2, len(rec))
		}
		ts, err := time.ParseInLocation(wrfTimeLayout, strings.TrimSpace(rec[0]), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("profile file %s: row %d: %w", path, i+2, err)
		}
		row := wrfRow{time: ts}
		for _, c := range []struct {
			idx int
			dst *float64
		}{
			{1, &row.pressure},
			{2, &row.temperature},
			{4, &row.rh},
			{5, &row.altitude},
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[c.idx]), 64)
			if err != nil {
				return nil, fmt.Errorf("profile file %s: row %d column %d: %w", path, i+2, c.idx+1, err)
			}
			*c.dst = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
