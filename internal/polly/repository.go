package polly

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
)

// rawExtension is the fixed extension used to enumerate raw files in a
// repository directory. The search is not recursive.
const rawExtension = "*.nc"

// Window is a closed time interval [Start, End] selecting a contiguous
// subset of raw samples.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window (bounds included).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// loader abstracts access to physical raw files so the repository can be
// exercised against in-memory fixtures.
type loader interface {
	// scan reads the full time table and calibration angle vector of a file
	scan(path string) (table [][2]int64, calAngle []float64, err error)

	// load reads the inclusive row range [start, end] of a file
	load(path string, start, end int) (*File, error)
}

type ncLoader struct{}

func (ncLoader) scan(path string) (table [][2]int64, calAngle []float64, err error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer nc.Close()

	if table, err = readTimeTable(nc); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	values, err := getVariable(nc, "depol_cal_angle")
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if calAngle, err = floatVector(values); err != nil {
		return nil, nil, fmt.Errorf("%s: depol_cal_angle: %w", path, err)
	}
	return table, calAngle, nil
}

func (ncLoader) load(path string, start, end int) (*File, error) {
	return ReadFile(path, start, end)
}

type indexEntry struct {
	timestamp time.Time
	path      string
	row       int
	calAngle  float64
}

// Repository presents a unified, time-ordered view over a set of raw PollyXT
// files. The index is built once at construction and is read-only afterwards.
//
// Files with overlapping time ranges are merged as-is: all their rows land in
// the index in sort order and duplicate timestamps are preserved, so a window
// fetched over the overlap contains samples from every contributing file.
type Repository struct {
	path      string
	files     []string
	zeroState float64
	entries   []indexEntry
	loader    loader
}

// NewRepository builds a repository over the given path, which may be a
// single raw file or a directory of raw files. zeroState is the calibration
// angle value meaning "no calibration running" for this station.
func NewRepository(path string, zeroState float64) (*Repository, error) {
	return newRepository(path, zeroState, ncLoader{})
}

func newRepository(path string, zeroState float64, l loader) (*Repository, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("inspecting input path: %w", err)
	}

	var files []string
	if stat.IsDir() {
		if files, err = filepath.Glob(filepath.Join(path, rawExtension)); err != nil {
			return nil, fmt.Errorf("listing %s: %w", path, err)
		}
	} else {
		files = []string{path}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, path)
	}
	sort.Strings(files)

	r := &Repository{
		path:      path,
		files:     files,
		zeroState: zeroState,
		loader:    l,
	}

	for _, file := range files {
		table, calAngle, err := l.scan(file)
		if err != nil {
			return nil, err
		}
		for row, raw := range table {
			ts, err := DecodeTime(raw[0], raw[1])
			if err != nil {
				return nil, &MalformedTime{File: file, Day: raw[0], Seconds: raw[1]}
			}

			var angle float64
			if row < len(calAngle) {
				angle = calAngle[row]
			}
			r.entries = append(r.entries, indexEntry{
				timestamp: ts,
				path:      file,
				row:       row,
				calAngle:  angle,
			})
		}
	}

	if len(r.entries) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoMeasurements, path)
	}

	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].timestamp.Before(r.entries[j].timestamp)
	})
	return r, nil
}

// Files returns the physical files backing this repository.
func (r *Repository) Files() []string { return r.files }

// Len returns the number of indexed samples.
func (r *Repository) Len() int { return len(r.entries) }

// TimeSpan returns the first and last available timestamps.
func (r *Repository) TimeSpan() (start, end time.Time) {
	return r.entries[0].timestamp, r.entries[len(r.entries)-1].timestamp
}

// FetchWindow assembles all samples with start <= timestamp <= end into a
// single File, reading only the contiguous row ranges that contribute to the
// window from each physical file. Returns ErrNoMeasurements when the window
// is empty.
func (r *Repository) FetchWindow(start, end time.Time) (*File, error) {
	w := Window{Start: start, End: end}

	var selected []indexEntry
	for _, e := range r.entries {
		if w.Contains(e.timestamp) {
			selected = append(selected, e)
		}
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w (%s - %s)",
			ErrNoMeasurements, start.Format(time.DateTime), end.Format(time.DateTime))
	}

	// Group the selection by source file, keeping the order in which files
	// first appear in the time-sorted selection.
	type rowRange struct{ min, max int }
	ranges := make(map[string]*rowRange)
	var order []string
	for _, e := range selected {
		rr, ok := ranges[e.path]
		if !ok {
			ranges[e.path] = &rowRange{min: e.row, max: e.row}
			order = append(order, e.path)
			continue
		}
		rr.min = min(rr.min, e.row)
		rr.max = max(rr.max, e.row)
	}

	parts := make([]*File, 0, len(order))
	for _, path := range order {
		rr := ranges[path]
		part, err := r.loader.load(path, rr.min, rr.max)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}

	assembled := concat(parts)
	assembled.CalMask = make([]bool, len(assembled.CalAngle))
	for i, angle := range assembled.CalAngle {
		assembled.CalMask[i] = angle != r.zeroState
	}
	return assembled, nil
}

// concat merges the per-sample arrays of several file parts, in order, into a
// fresh File that shares no slice headers with its parts. The per-file
// constants (zenith angle, coordinates) come from the first part.
func concat(parts []*File) *File {
	first := parts[0]
	out := &File{
		Path:        first.Path,
		Start:       first.Start,
		End:         parts[len(parts)-1].End,
		StartIndex:  first.StartIndex,
		EndIndex:    first.EndIndex,
		ZenithAngle: first.ZenithAngle,
		Coordinates: first.Coordinates,
	}
	for _, part := range parts {
		out.Signal = append(out.Signal, part.Signal...)
		out.SignalSwap = append(out.SignalSwap, part.SignalSwap...)
		out.TimeTable = append(out.TimeTable, part.TimeTable...)
		out.Shots = append(out.Shots, part.Shots...)
		out.CalAngle = append(out.CalAngle, part.CalAngle...)
	}
	return out
}

// CalibrationPeriods returns the time windows during which the instrument's
// depolarization calibration mechanism was active, detected as contiguous
// index runs where the calibration angle differs from the zero state.
func (r *Repository) CalibrationPeriods() []Window {
	var periods []Window

	inRun := false
	var runStart, runEnd time.Time
	for _, e := range r.entries {
		if e.calAngle != r.zeroState {
			if !inRun {
				runStart = e.timestamp
				inRun = true
			}
			runEnd = e.timestamp
			continue
		}
		if inRun {
			periods = append(periods, Window{Start: runStart, End: runEnd})
			inRun = false
		}
	}
	if inRun {
		periods = append(periods, Window{Start: runStart, End: runEnd})
	}
	return periods
}
