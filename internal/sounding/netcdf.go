package sounding

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/noa-react/polly-scc/internal/locations"
)

// WriteProfile persists a profile as an SCC sounding netCDF file.
func WriteProfile(p *Profile, loc *locations.Location, path string) (err error) {
	keys := []string{
		"Latitude_degrees_north",
		"Longitude_degrees_east",
		"Altitude_meter_asl",
		"Sounding_Start_Date",
		"Sounding_Start_Time_UT",
	}
	attrs, err := util.NewOrderedMap(keys, map[string]any{
		"Latitude_degrees_north": loc.Lat,
		"Longitude_degrees_east": loc.Lon,
		"Altitude_meter_asl":     loc.AltitudeASL,
		"Sounding_Start_Date":    p.Time.UTC().Format("20060102"),
		"Sounding_Start_Time_UT": p.Time.UTC().Format("150405"),
	})
	if err != nil {
		return fmt.Errorf("building attributes: %w", err)
	}
	empty, err := util.NewOrderedMap(nil, nil)
	if err != nil {
		return fmt.Errorf("building attributes: %w", err)
	}

	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cErr := cw.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cErr)
		}
	}()

	if err = cw.AddAttributes(attrs); err != nil {
		return fmt.Errorf("writing global attributes: %w", err)
	}

	for _, v := range []struct {
		name   string
		values []float64
	}{
		{"Altitude", p.Altitude},
		{"Temperature", p.Temperature},
		{"Pressure", p.Pressure},
		{"RelativeHumidity", p.RelativeHumidity},
	} {
		err = cw.AddVar(v.name, api.Variable{
			Values:     v.values,
			Dimensions: []string{"points"},
			Attributes: empty,
		})
		if err != nil {
			return fmt.Errorf("writing variable %s: %w", v.name, err)
		}
	}
	return nil
}
