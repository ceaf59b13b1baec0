package polly

import (
	"fmt"
	"strconv"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

const dayCodeLayout = "20060102"

// DecodeTime converts a PollyXT two-integer timestamp (date as YYYYMMDD plus
// seconds since start of day) into a time.Time in UTC.
func DecodeTime(dayCode, secondsOfDay int64) (time.Time, error) {
	day, err := time.Parse(dayCodeLayout, strconv.FormatInt(dayCode, 10))
	if err != nil {
		return time.Time{}, fmt.Errorf("day code %d is not a calendar date", dayCode)
	}
	return day.UTC().Add(time.Duration(secondsOfDay) * time.Second), nil
}

// EncodeTime converts a time.Time back into the raw day code / seconds of
// day pair. It is the inverse of DecodeTime.
func EncodeTime(t time.Time) (dayCode, secondsOfDay int64) {
	t = t.UTC()
	dayCode, _ = strconv.ParseInt(t.Format(dayCodeLayout), 10, 64)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return dayCode, int64(t.Sub(midnight) / time.Second)
}

// SpanOfTable returns the time span covered by a raw measurement_time table.
// Only the first and last rows are decoded.
func SpanOfTable(table [][2]int64) (start, end time.Time, err error) {
	if len(table) == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("measurement time table is empty")
	}

	first, last := table[0], table[len(table)-1]
	if start, err = DecodeTime(first[0], first[1]); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = DecodeTime(last[0], last[1]); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// SpanOfDataset returns the time span of an already opened raw dataset.
func SpanOfDataset(nc api.Group) (time.Time, time.Time, error) {
	table, err := readTimeTable(nc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return SpanOfTable(table)
}

// SpanOfFile returns the time span of the raw file at path.
func SpanOfFile(path string) (start, end time.Time, err error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer nc.Close()

	if start, end, err = SpanOfDataset(nc); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%s: %w", path, err)
	}
	return start, end, nil
}
