package scc

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/noa-react/polly-scc/internal/locations"
	"github.com/noa-react/polly-scc/internal/polly"
)

// sampleSeconds is the duration of a single instrument sample. Stop time
// offsets are start offsets shifted by one sample.
const sampleSeconds = 30

// Fixed constants written to calibration sub-files.
const (
	calibrationShots         = 600
	calibrationBackgroundLow = 0.0
	calibrationBackgroundHi  = 249.0
	calibrationPointingAngle = 5.0
	polCalibRangeMin         = 1200.0
	polCalibRangeMax         = 2500.0
)

// MeasurementID derives the SCC measurement ID for a regular file starting
// at the given time: date, station code and zero-padded hour/minute.
func MeasurementID(loc *locations.Location, start time.Time) string {
	start = start.UTC()
	return start.Format("20060102") + loc.SCCCode + start.Format("1504")
}

// CalibrationID derives the measurement ID for a calibration file: date,
// station code, hour and a wavelength-specific suffix.
func CalibrationID(loc *locations.Location, start time.Time, w Wavelength) string {
	start = start.UTC()
	return start.Format("20060102") + loc.SCCCode + start.Format("15") + w.IDSuffix()
}

// SoundingFileName returns the filename of the radiosonde file accompanying
// a measurement, as referenced by the Sounding_File_Name attribute.
func SoundingFileName(measurementID string) string {
	return fmt.Sprintf("rs_%s.nc", measurementID[:len(measurementID)-2])
}

type attribute struct {
	key   string
	value any
}

func newAttributes(attrs []attribute) (api.AttributeMap, error) {
	keys := make([]string, len(attrs))
	values := make(map[string]any, len(attrs))
	for i, a := range attrs {
		keys[i] = a.key
		values[a.key] = a.value
	}
	return util.NewOrderedMap(keys, values)
}

type ncVar struct {
	name   string
	values any
	dims   []string
}

// writeFile persists one SCC netCDF file. Existing files at the same path
// are overwritten: outputs are deterministic reconstructions of their input
// window, so a rerun produces the same content.
func writeFile(path string, attrs []attribute, vars []ncVar) (err error) {
	am, err := newAttributes(attrs)
	if err != nil {
		return fmt.Errorf("building attributes: %w", err)
	}
	empty, err := newAttributes(nil)
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

	if err = cw.AddAttributes(am); err != nil {
		return fmt.Errorf("writing global attributes: %w", err)
	}
	for _, v := range vars {
		err = cw.AddVar(v.name, api.Variable{
			Values:     v.values,
			Dimensions: v.dims,
			Attributes: empty,
		})
		if err != nil {
			return fmt.Errorf("writing variable %s: %w", v.name, err)
		}
	}
	return nil
}

func timeOffsets(f *polly.File, rows []int) (start, stop [][]int32, err error) {
	start = make([][]int32, len(rows))
	stop = make([][]int32, len(rows))
	for i, row := range rows {
		ts, err := f.SampleTime(row)
		if err != nil {
			return nil, nil, err
		}
		offset := int32(ts.Sub(f.Start) / time.Second)
		start[i] = []int32{offset}
		stop[i] = []int32{offset + sampleSeconds}
	}
	return start, stop, nil
}

func zeroVector32(n int) []int32 {
	return make([]int32, n)
}

func repeatVector(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// WriteMeasurement converts one assembled window into a regular SCC file in
// outputDir. Samples taken while a calibration cycle was running are
// excluded. Returns the measurement ID and the path of the created file.
func WriteMeasurement(f *polly.File, outputDir string, loc *locations.Location, atmosphere Atmosphere) (id string, path string, err error) {
	if len(loc.ChannelID) != f.Channels() {
		return "", "", fmt.Errorf("location %s defines %d channels but the raw data has %d",
			loc.Name, len(loc.ChannelID), f.Channels())
	}

	id = MeasurementID(loc, f.Start)
	path = filepath.Join(outputDir, id+".nc")

	// Keep only samples taken outside calibration cycles.
	var rows []int
	for i := 0; i < f.Samples(); i++ {
		if len(f.CalMask) == 0 || !f.CalMask[i] {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return "", "", fmt.Errorf("%w (%s)", polly.ErrNoMeasurements, id)
	}

	startOffsets, stopOffsets, err := timeOffsets(f, rows)
	if err != nil {
		return "", "", err
	}

	signal := make([][][]float64, len(rows))
	shots := make([][]int32, len(rows))
	profileAngles := make([][]int32, len(rows))
	for i, row := range rows {
		signal[i] = f.SignalSwap[row]
		shots[i] = f.Shots[row]
		profileAngles[i] = []int32{0}
	}

	configuration, period, err := selectConfigurationID(loc, f.Start)
	if err != nil {
		return "", "", err
	}

	attrs := []attribute{
		{"Measurement_ID", id},
		{"RawData_Start_Date", f.Start.UTC().Format("20060102")},
		{"RawData_Start_Time_UT", f.Start.UTC().Format("150405")},
		{"RawData_Stop_Time_UT", f.End.UTC().Format("150405")},
		{"RawBck_Start_Date", f.Start.UTC().Format("20060102")},
		{"RawBck_Start_Time_UT", f.Start.UTC().Format("150405")},
		{"RawBck_Stop_Time_UT", f.End.UTC().Format("150405")},
	}
	if atmosphere == AtmosphereRadiosonde {
		attrs = append(attrs, attribute{"Sounding_File_Name", SoundingFileName(id)})
	}
	attrs = append(attrs, attribute{"X_PollyXTPipelines_Configuration_ID", configuration})
	if configuration == int32(loc.DaytimeConfiguration) {
		attrs = append(attrs, attribute{"X_PollyXTPipelines_DayNight", "day"})
	} else {
		attrs = append(attrs, attribute{"X_PollyXTPipelines_DayNight", "night"})
	}
	if period.astronomical {
		attrs = append(attrs,
			attribute{"X_PollyXTPipelines_Sunrise_UT", period.start.Format("1504")},
			attribute{"X_PollyXTPipelines_Sunset_UT", period.end.Format("1504")})
	}

	vars := []ncVar{
		{"Raw_Data_Start_Time", startOffsets, []string{"time", "nb_of_time_scales"}},
		{"Raw_Data_Stop_Time", stopOffsets, []string{"time", "nb_of_time_scales"}},
		{"Raw_Lidar_Data", signal, []string{"time", "channels", "points"}},
		{"channel_ID", loc.ChannelID, []string{"channels"}},
		{"id_timescale", zeroVector32(f.Channels()), []string{"channels"}},
		{"Laser_Pointing_Angle", []float64{f.ZenithAngle}, []string{"scan_angles"}},
		{"Laser_Pointing_Angle_of_Profiles", profileAngles, []string{"time", "nb_of_time_scales"}},
		{"Laser_Shots", shots, []string{"time", "channels"}},
		{"Background_Low", loc.BackgroundLow, []string{"channels"}},
		{"Background_High", loc.BackgroundHigh, []string{"channels"}},
		{"Molecular_Calc", int32(atmosphere), nil},
		{"Pol_Calib_Range_Min", repeatVector(0, f.Channels()), []string{"channels"}},
		{"Pol_Calib_Range_Max", repeatVector(0, f.Channels()), []string{"channels"}},
		{"Pressure_at_Lidar_Station", loc.Pressure, nil},
		{"Temperature_at_Lidar_Station", loc.Temperature, nil},
		{"LR_Input", loc.LRInput, []string{"channels"}},
	}

	if err = writeFile(path, attrs, vars); err != nil {
		return "", "", err
	}
	return id, path, nil
}

// calRun is a contiguous half-open row range [start, end) sharing one
// calibration angle value.
type calRun struct {
	start int
	end   int
	angle float64
}

func (r calRun) length() int { return r.end - r.start }

// trim shortens the run to the target length, removing the excess
// symmetrically from both ends.
func (r calRun) trim(length int) calRun {
	front := (r.length() - length) / 2
	return calRun{start: r.start + front, end: r.start + front + length, angle: r.angle}
}

// calibrationRuns locates the +45° and -45° polarization cycles inside an
// assembled calibration window: the first two contiguous runs of samples
// whose calibration angle is away from the zero state. Both runs are trimmed
// to the shorter one's length.
func calibrationRuns(f *polly.File) (plus, minus calRun, err error) {
	var runs []calRun
	for i := 0; i < f.Samples(); i++ {
		if len(f.CalMask) <= i || !f.CalMask[i] {
			continue
		}
		angle := f.CalAngle[i]
		if n := len(runs); n > 0 && runs[n-1].end == i && runs[n-1].angle == angle {
			runs[n-1].end = i + 1
			continue
		}
		runs = append(runs, calRun{start: i, end: i + 1, angle: angle})
	}
	if len(runs) < 2 {
		return calRun{}, calRun{}, ErrNoCalibrationCycles
	}

	plus, minus = runs[0], runs[1]
	length := min(plus.length(), minus.length())
	return plus.trim(length), minus.trim(length), nil
}

// WriteCalibration converts the calibration cycles inside an assembled
// window into a 4-channel SCC calibration sub-file for one wavelength.
func WriteCalibration(f *polly.File, outputDir string, loc *locations.Location, w Wavelength) (id string, path string, err error) {
	cc, ok := w.channels(loc)
	if !ok {
		return "", "", fmt.Errorf("location %s has no complete %snm calibration setup", loc.Name, w)
	}
	if *cc.Total >= f.Channels() || *cc.Cross >= f.Channels() {
		return "", "", fmt.Errorf("location %s: %snm calibration channel index out of range (%d channels)",
			loc.Name, w, f.Channels())
	}

	plus, minus, err := calibrationRuns(f)
	if err != nil {
		return "", "", err
	}

	id = CalibrationID(loc, f.Start, w)
	base := id[:len(id)-2]
	path = filepath.Join(outputDir, fmt.Sprintf("calibration_%s_%s.nc", base, w))

	rows := make([]int, 0, plus.length()+minus.length())
	for i := plus.start; i < plus.end; i++ {
		rows = append(rows, i)
	}
	for i := minus.start; i < minus.end; i++ {
		rows = append(rows, i)
	}

	startOffsets, stopOffsets, err := timeOffsets(f, rows)
	if err != nil {
		return "", "", err
	}

	// Channel layout: total +45°, total -45°, cross +45°, cross -45°.
	bins := f.Bins()
	n := len(rows)
	signal := make([][][]float64, n)
	shots := make([][]int32, n)
	profileAngles := make([][]int32, n)
	for i := range signal {
		signal[i] = make([][]float64, 4)
		for c := range signal[i] {
			signal[i][c] = make([]float64, bins)
		}
		shots[i] = []int32{calibrationShots, calibrationShots, calibrationShots, calibrationShots}
		profileAngles[i] = []int32{0}
	}
	for i := 0; i < plus.length(); i++ {
		copy(signal[i][0], f.SignalSwap[plus.start+i][*cc.Total])
		copy(signal[i][2], f.SignalSwap[plus.start+i][*cc.Cross])
	}
	for i := 0; i < minus.length(); i++ {
		copy(signal[plus.length()+i][1], f.SignalSwap[minus.start+i][*cc.Total])
		copy(signal[plus.length()+i][3], f.SignalSwap[minus.start+i][*cc.Cross])
	}

	channelIDs := []int32{cc.PlusIDs[0], cc.MinusIDs[0], cc.PlusIDs[1], cc.MinusIDs[1]}

	attrs := []attribute{
		{"Measurement_ID", id},
		{"RawData_Start_Date", f.Start.UTC().Format("20060102")},
		{"RawData_Start_Time_UT", f.Start.UTC().Format("150405")},
		{"RawData_Stop_Time_UT", f.End.UTC().Format("150405")},
		{"RawBck_Start_Date", f.Start.UTC().Format("20060102")},
		{"RawBck_Start_Time_UT", f.Start.UTC().Format("150405")},
		{"RawBck_Stop_Time_UT", f.End.UTC().Format("150405")},
		{"X_PollyXTPipelines_Configuration_ID", w.configurationID(loc)},
	}

	vars := []ncVar{
		{"Raw_Data_Start_Time", startOffsets, []string{"time", "nb_of_time_scales"}},
		{"Raw_Data_Stop_Time", stopOffsets, []string{"time", "nb_of_time_scales"}},
		{"Raw_Lidar_Data", signal, []string{"time", "channels", "points"}},
		{"channel_ID", channelIDs, []string{"channels"}},
		{"id_timescale", zeroVector32(4), []string{"channels"}},
		{"Laser_Pointing_Angle", []float64{calibrationPointingAngle}, []string{"scan_angles"}},
		{"Laser_Pointing_Angle_of_Profiles", profileAngles, []string{"time", "nb_of_time_scales"}},
		{"Laser_Shots", shots, []string{"time", "channels"}},
		{"Background_Low", repeatVector(calibrationBackgroundLow, 4), []string{"channels"}},
		{"Background_High", repeatVector(calibrationBackgroundHi, 4), []string{"channels"}},
		{"Molecular_Calc", int32(AtmosphereAutomatic), nil},
		{"Pol_Calib_Range_Min", repeatVector(polCalibRangeMin, 4), []string{"channels"}},
		{"Pol_Calib_Range_Max", repeatVector(polCalibRangeMax, 4), []string{"channels"}},
		{"Pressure_at_Lidar_Station", loc.Pressure, nil},
		{"Temperature_at_Lidar_Station", loc.Temperature, nil},
	}

	if err = writeFile(path, attrs, vars); err != nil {
		return "", "", err
	}
	return id, path, nil
}
