package polly

import (
	"fmt"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
)

// File holds the variables of interest from a raw PollyXT file, optionally
// trimmed to a row range. A File produced by Repository.FetchWindow may span
// several physical files; it is owned exclusively by the caller and is never
// retained by the repository.
type File struct {
	Path string

	Start time.Time
	End   time.Time

	// StartIndex and EndIndex are the inclusive row range this File covers
	// within its source file. Zero to row count for a full read.
	StartIndex int
	EndIndex   int

	// Signal is the raw per-channel signal, sample × range-bin × channel,
	// in the order stored on disk. SignalSwap is the same data transposed
	// to sample × channel × range-bin, the layout SCC files use.
	Signal     [][][]float64
	SignalSwap [][][]float64

	// TimeTable is the raw two-column day-code/seconds table.
	TimeTable [][2]int64

	// Shots holds the laser shot counts, sample × channel.
	Shots [][]int32

	// CalAngle is the per-sample depolarization calibration angle. CalMask
	// is true wherever the angle differs from the station's zero state,
	// i.e. while a calibration cycle is running. CalMask is populated by
	// the repository, which knows the zero state.
	CalAngle []float64
	CalMask  []bool

	// ZenithAngle and Coordinates are per-file constants. For a fetched
	// window that spans several files they are taken from the first
	// contributing file.
	ZenithAngle float64
	Coordinates []float64
}

// Samples returns the number of samples (rows) in the file.
func (f *File) Samples() int { return len(f.TimeTable) }

// Bins returns the number of range bins per channel.
func (f *File) Bins() int {
	if len(f.Signal) == 0 {
		return 0
	}
	return len(f.Signal[0])
}

// Channels returns the number of instrument channels.
func (f *File) Channels() int {
	if len(f.Signal) == 0 || len(f.Signal[0]) == 0 {
		return 0
	}
	return len(f.Signal[0][0])
}

// SampleTime decodes the timestamp of row i.
func (f *File) SampleTime(i int) (time.Time, error) {
	return DecodeTime(f.TimeTable[i][0], f.TimeTable[i][1])
}

func swapAxes(signal [][][]float64) [][][]float64 {
	out := make([][][]float64, len(signal))
	for s, plane := range signal {
		if len(plane) == 0 {
			continue
		}
		bins, channels := len(plane), len(plane[0])
		swapped := make([][]float64, channels)
		for c := 0; c < channels; c++ {
			swapped[c] = make([]float64, bins)
			for b := 0; b < bins; b++ {
				swapped[c][b] = plane[b][c]
			}
		}
		out[s] = swapped
	}
	return out
}

// ReadFile reads a raw PollyXT file, trimmed to the inclusive row range
// [start, end]. Pass start 0 and end -1 to read the whole file.
func ReadFile(path string, start, end int) (f *File, err error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer nc.Close()

	table, err := readTimeTable(nc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if end < 0 || end >= len(table) {
		end = len(table) - 1
	}
	if start < 0 || start > end {
		return nil, fmt.Errorf("%s: invalid row range [%d, %d]", path, start, end)
	}

	values, err := getVariable(nc, "raw_signal")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	signal, err := floatCube(values)
	if err != nil {
		return nil, fmt.Errorf("%s: raw_signal: %w", path, err)
	}

	values, err = getVariable(nc, "measurement_shots")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	shots, err := int32Matrix(values)
	if err != nil {
		return nil, fmt.Errorf("%s: measurement_shots: %w", path, err)
	}

	values, err = getVariable(nc, "depol_cal_angle")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	calAngle, err := floatVector(values)
	if err != nil {
		return nil, fmt.Errorf("%s: depol_cal_angle: %w", path, err)
	}

	values, err = getVariable(nc, "zenithangle")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	zenith, err := floatScalar(values)
	if err != nil {
		return nil, fmt.Errorf("%s: zenithangle: %w", path, err)
	}

	// Coordinates are metadata; files without them are still usable.
	var coords []float64
	if values, err = getVariable(nc, "location_coordinates"); err == nil {
		coords, _ = floatVector(values)
	}

	f = &File{
		Path:       path,
		StartIndex: start,
		EndIndex:   end,
		TimeTable:  table[start : end+1],
		Signal:     signal[start : end+1],
		Shots:      shots[start : end+1],
		CalAngle:   calAngle[start : end+1],

		ZenithAngle: zenith,
		Coordinates: coords,
	}
	f.SignalSwap = swapAxes(f.Signal)

	if f.Start, f.End, err = SpanOfTable(f.TimeTable); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
