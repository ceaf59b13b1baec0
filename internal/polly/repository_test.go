package polly

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeFile struct {
	table    [][2]int64
	calAngle []float64
}

// fakeLoader serves synthetic raw files keyed by base name. The signal of
// each sample is a single bin and channel holding the sample's seconds of
// day, which makes assembly order visible in assertions.
type fakeLoader struct {
	files map[string]fakeFile
}

func (l fakeLoader) scan(path string) ([][2]int64, []float64, error) {
	ff, ok := l.files[filepath.Base(path)]
	if !ok {
		return nil, nil, errors.New("unknown fixture " + path)
	}
	return ff.table, ff.calAngle, nil
}

func (l fakeLoader) load(path string, start, end int) (*File, error) {
	ff, ok := l.files[filepath.Base(path)]
	if !ok {
		return nil, errors.New("unknown fixture " + path)
	}

	f := &File{
		Path:       path,
		StartIndex: start,
		EndIndex:   end,
		TimeTable:  ff.table[start : end+1],
		CalAngle:   ff.calAngle[start : end+1],
	}
	for _, row := range f.TimeTable {
		f.Signal = append(f.Signal, [][]float64{{float64(row[1])}})
		f.Shots = append(f.Shots, []int32{600})
	}
	f.SignalSwap = swapAxes(f.Signal)

	var err error
	if f.Start, f.End, err = SpanOfTable(f.TimeTable); err != nil {
		return nil, err
	}
	return f, nil
}

// fixtureDir creates a directory with empty placeholder files so the
// repository's directory scan finds them; content comes from the fake loader.
func fixtureDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("creating fixture %s: %v", name, err)
		}
	}
	return dir
}

func table(dayCode int64, seconds ...int64) [][2]int64 {
	out := make([][2]int64, len(seconds))
	for i, s := range seconds {
		out[i] = [2]int64{dayCode, s}
	}
	return out
}

func TestRepositoryIndex(t *testing.T) {
	l := fakeLoader{files: map[string]fakeFile{
		"a.nc": {table: table(20200101, 3600, 3630, 3660), calAngle: []float64{0, 0, 0}},
		"b.nc": {table: table(20200101, 3690, 3720), calAngle: []float64{0, 0}},
	}}

	repo, err := newRepository(fixtureDir(t, "a.nc", "b.nc"), 0, l)
	if err != nil {
		t.Fatalf("newRepository failed: %v", err)
	}

	if got := repo.Len(); got != 5 {
		t.Errorf("Len() = %d, want 5", got)
	}
	if got := len(repo.Files()); got != 2 {
		t.Errorf("Files() has %d entries, want 2", got)
	}

	start, end := repo.TimeSpan()
	wantStart := time.Date(2020, 1, 1, 1, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2020, 1, 1, 1, 2, 0, 0, time.UTC)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Errorf("TimeSpan = (%v, %v), want (%v, %v)", start, end, wantStart, wantEnd)
	}
}

func TestRepositoryIndexSortsAcrossFiles(t *testing.T) {
	// b.nc holds the earlier samples despite sorting after a.nc by name.
	l := fakeLoader{files: map[string]fakeFile{
		"a.nc": {table: table(20200101, 7200, 7230), calAngle: []float64{0, 0}},
		"b.nc": {table: table(20200101, 3600, 3630), calAngle: []float64{0, 0}},
	}}

	repo, err := newRepository(fixtureDir(t, "a.nc", "b.nc"), 0, l)
	if err != nil {
		t.Fatalf("newRepository failed: %v", err)
	}

	start, _ := repo.TimeSpan()
	if want := time.Date(2020, 1, 1, 1, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Errorf("TimeSpan start = %v, want %v", start, want)
	}
}

func TestRepositoryNoFiles(t *testing.T) {
	_, err := newRepository(t.TempDir(), 0, fakeLoader{})
	if !errors.Is(err, ErrNoFiles) {
		t.Errorf("expected ErrNoFiles, got %v", err)
	}
}

func TestRepositoryEmptyFiles(t *testing.T) {
	// Files exist but hold no samples; the index ends up empty.
	l := fakeLoader{files: map[string]fakeFile{
		"a.nc": {},
		"b.nc": {},
	}}

	_, err := newRepository(fixtureDir(t, "a.nc", "b.nc"), 0, l)
	if !errors.Is(err, ErrNoMeasurements) {
		t.Errorf("expected ErrNoMeasurements, got %v", err)
	}
}

func TestRepositoryMalformedTime(t *testing.T) {
	l := fakeLoader{files: map[string]fakeFile{
		"a.nc": {table: table(20201399, 0), calAngle: []float64{0}},
	}}

	_, err := newRepository(fixtureDir(t, "a.nc"), 0, l)
	var malformed *MalformedTime
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedTime, got %v", err)
	}
	if malformed.Day != 20201399 {
		t.Errorf("MalformedTime.Day = %d, want 20201399", malformed.Day)
	}
	if malformed.File == "" {
		t.Error("MalformedTime.File is empty, want offending file name")
	}
}

func TestFetchWindowAcrossFiles(t *testing.T) {
	l := fakeLoader{files: map[string]fakeFile{
		"a.nc": {table: table(20200101, 3600, 3630, 3660), calAngle: []float64{0, 0, 0}},
		"b.nc": {table: table(20200101, 3690, 3720, 3750), calAngle: []float64{0, 0, 0}},
	}}

	repo, err := newRepository(fixtureDir(t, "a.nc", "b.nc"), 0, l)
	if err != nil {
		t.Fatalf("newRepository failed: %v", err)
	}

	// 01:00:30 - 01:01:30 covers two samples of each file.
	start := time.Date(2020, 1, 1, 1, 0, 30, 0, time.UTC)
	end := time.Date(2020, 1, 1, 1, 1, 30, 0, time.UTC)

	f, err := repo.FetchWindow(start, end)
	if err != nil {
		t.Fatalf("FetchWindow failed: %v", err)
	}

	if got := f.Samples(); got != 4 {
		t.Fatalf("Samples() = %d, want 4", got)
	}

	wantSeconds := []float64{3630, 3660, 3690, 3720}
	for i, want := range wantSeconds {
		if got := f.Signal[i][0][0]; got != want {
			t.Errorf("sample %d signal = %v, want %v", i, got, want)
		}
	}

	if !f.Start.Equal(start) {
		t.Errorf("assembled Start = %v, want %v", f.Start, start)
	}
	if want := time.Date(2020, 1, 1, 1, 2, 0, 0, time.UTC); !f.End.Equal(want) {
		t.Errorf("assembled End = %v, want %v", f.End, want)
	}
	if len(f.CalMask) != f.Samples() {
		t.Errorf("CalMask has %d entries, want %d", len(f.CalMask), f.Samples())
	}
}

func TestConcatBuildsFreshFile(t *testing.T) {
	// The first part has spare slice capacity; assembling must not grow
	// into it or hand its backing arrays to the caller.
	a := &File{
		TimeTable: append(make([][2]int64, 0, 8), [2]int64{20200101, 3600}),
		Signal:    append(make([][][]float64, 0, 8), [][]float64{{1}}),
		Shots:     append(make([][]int32, 0, 8), []int32{600}),
		CalAngle:  append(make([]float64, 0, 8), 0),
	}
	a.SignalSwap = swapAxes(a.Signal)
	b := &File{
		TimeTable: [][2]int64{{20200101, 3630}},
		Signal:    [][][]float64{{{2}}},
		Shots:     [][]int32{{600}},
		CalAngle:  []float64{0},
	}
	b.SignalSwap = swapAxes(b.Signal)

	out := concat([]*File{a, b})
	if out == a {
		t.Fatal("concat returned its first part instead of a fresh File")
	}
	if got := out.Samples(); got != 2 {
		t.Fatalf("assembled file has %d samples, want 2", got)
	}
	if len(a.TimeTable) != 1 || len(a.Signal) != 1 {
		t.Fatalf("concat grew its first part to %d samples", len(a.TimeTable))
	}

	out.TimeTable[0][1] = 0
	out.CalAngle[0] = 99
	if a.TimeTable[0][1] != 3600 || a.CalAngle[0] != 0 {
		t.Error("assembled file shares backing arrays with its first part")
	}
}

func TestFetchWindowEmpty(t *testing.T) {
	l := fakeLoader{files: map[string]fakeFile{
		"a.nc": {table: table(20200101, 3600), calAngle: []float64{0}},
	}}

	repo, err := newRepository(fixtureDir(t, "a.nc"), 0, l)
	if err != nil {
		t.Fatalf("newRepository failed: %v", err)
	}

	_, err = repo.FetchWindow(
		time.Date(2020, 1, 1, 5, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 1, 6, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrNoMeasurements) {
		t.Errorf("expected ErrNoMeasurements, got %v", err)
	}
}

func TestFetchWindowCalMask(t *testing.T) {
	l := fakeLoader{files: map[string]fakeFile{
		"a.nc": {
			table:    table(20200101, 3600, 3630, 3660, 3690),
			calAngle: []float64{0, 45, -45, 0},
		},
	}}

	repo, err := newRepository(fixtureDir(t, "a.nc"), 0, l)
	if err != nil {
		t.Fatalf("newRepository failed: %v", err)
	}

	start, end := repo.TimeSpan()
	f, err := repo.FetchWindow(start, end)
	if err != nil {
		t.Fatalf("FetchWindow failed: %v", err)
	}

	want := []bool{false, true, true, false}
	for i, w := range want {
		if f.CalMask[i] != w {
			t.Errorf("CalMask[%d] = %v, want %v", i, f.CalMask[i], w)
		}
	}
}

func TestCalibrationPeriods(t *testing.T) {
	l := fakeLoader{files: map[string]fakeFile{
		"a.nc": {
			table:    table(20200101, 3600, 3630, 3660, 3690, 3720, 3750),
			calAngle: []float64{0, 45, 45, 0, -45, -45},
		},
	}}

	repo, err := newRepository(fixtureDir(t, "a.nc"), 0, l)
	if err != nil {
		t.Fatalf("newRepository failed: %v", err)
	}

	periods := repo.CalibrationPeriods()
	if len(periods) != 2 {
		t.Fatalf("got %d calibration periods, want 2", len(periods))
	}

	if want := time.Date(2020, 1, 1, 1, 0, 30, 0, time.UTC); !periods[0].Start.Equal(want) {
		t.Errorf("first period starts %v, want %v", periods[0].Start, want)
	}
	if want := time.Date(2020, 1, 1, 1, 1, 0, 0, time.UTC); !periods[0].End.Equal(want) {
		t.Errorf("first period ends %v, want %v", periods[0].End, want)
	}
	if want := time.Date(2020, 1, 1, 1, 2, 0, 0, time.UTC); !periods[1].Start.Equal(want) {
		t.Errorf("second period starts %v, want %v", periods[1].Start, want)
	}
}

func TestCalibrationPeriodsNonZeroState(t *testing.T) {
	// Some instruments idle at a non-zero angle.
	l := fakeLoader{files: map[string]fakeFile{
		"a.nc": {
			table:    table(20200101, 3600, 3630, 3660),
			calAngle: []float64{-999, 45, -999},
		},
	}}

	repo, err := newRepository(fixtureDir(t, "a.nc"), -999, l)
	if err != nil {
		t.Fatalf("newRepository failed: %v", err)
	}

	periods := repo.CalibrationPeriods()
	if len(periods) != 1 {
		t.Fatalf("got %d calibration periods, want 1", len(periods))
	}
}
