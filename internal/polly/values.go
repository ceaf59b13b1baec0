package polly

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// Raw PollyXT files are produced by several instrument software versions and
// the exact on-disk types of the variables vary (short vs int counts, float
// vs double angles). The helpers below normalize the decoded values into the
// widest type used internally.

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int16:
		return float64(x), true
	case uint8:
		return float64(x), true
	}
	return 0, false
}

func floatScalar(v any) (float64, error) {
	if f, ok := asFloat(v); ok {
		return f, nil
	}
	// A scalar stored as a one-element vector is also accepted.
	vec, err := floatVector(v)
	if err == nil && len(vec) > 0 {
		return vec[0], nil
	}
	return 0, fmt.Errorf("value %T is not numeric", v)
}

func floatVector(v any) ([]float64, error) {
	switch x := v.(type) {
	case []float64:
		return x, nil
	case []float32:
		out := make([]float64, len(x))
		for i, f := range x {
			out[i] = float64(f)
		}
		return out, nil
	case []int64:
		out := make([]float64, len(x))
		for i, f := range x {
			out[i] = float64(f)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(x))
		for i, f := range x {
			out[i] = float64(f)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(x))
		for i, f := range x {
			out[i] = float64(f)
		}
		return out, nil
	}
	return nil, fmt.Errorf("value %T is not a numeric vector", v)
}

func intMatrix(v any) ([][]int64, error) {
	switch x := v.(type) {
	case [][]int64:
		return x, nil
	case [][]int32:
		out := make([][]int64, len(x))
		for i, row := range x {
			out[i] = make([]int64, len(row))
			for j, n := range row {
				out[i][j] = int64(n)
			}
		}
		return out, nil
	case [][]int16:
		out := make([][]int64, len(x))
		for i, row := range x {
			out[i] = make([]int64, len(row))
			for j, n := range row {
				out[i][j] = int64(n)
			}
		}
		return out, nil
	case [][]float64:
		out := make([][]int64, len(x))
		for i, row := range x {
			out[i] = make([]int64, len(row))
			for j, n := range row {
				out[i][j] = int64(n)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("value %T is not an integer matrix", v)
}

func int32Matrix(v any) ([][]int32, error) {
	m, err := intMatrix(v)
	if err != nil {
		return nil, err
	}
	out := make([][]int32, len(m))
	for i, row := range m {
		out[i] = make([]int32, len(row))
		for j, n := range row {
			out[i][j] = int32(n)
		}
	}
	return out, nil
}

func floatCube(v any) ([][][]float64, error) {
	switch x := v.(type) {
	case [][][]float64:
		return x, nil
	case [][][]float32:
		out := make([][][]float64, len(x))
		for i, plane := range x {
			out[i] = make([][]float64, len(plane))
			for j, row := range plane {
				out[i][j] = make([]float64, len(row))
				for k, f := range row {
					out[i][j][k] = float64(f)
				}
			}
		}
		return out, nil
	case [][][]int32:
		out := make([][][]float64, len(x))
		for i, plane := range x {
			out[i] = make([][]float64, len(plane))
			for j, row := range plane {
				out[i][j] = make([]float64, len(row))
				for k, f := range row {
					out[i][j][k] = float64(f)
				}
			}
		}
		return out, nil
	case [][][]int64:
		out := make([][][]float64, len(x))
		for i, plane := range x {
			out[i] = make([][]float64, len(plane))
			for j, row := range plane {
				out[i][j] = make([]float64, len(row))
				for k, f := range row {
					out[i][j][k] = float64(f)
				}
			}
		}
		return out, nil
	case [][][]int16:
		out := make([][][]float64, len(x))
		for i, plane := range x {
			out[i] = make([][]float64, len(plane))
			for j, row := range plane {
				out[i][j] = make([]float64, len(row))
				for k, f := range row {
					out[i][j][k] = float64(f)
				}
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("value %T is not a numeric cube", v)
}

func getVariable(nc api.Group, name string) (any, error) {
	vr, err := nc.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("reading variable %s: %w", name, err)
	}
	return vr.Values, nil
}

// readTimeTable reads and normalizes the two-column measurement_time table.
func readTimeTable(nc api.Group) ([][2]int64, error) {
	values, err := getVariable(nc, "measurement_time")
	if err != nil {
		return nil, err
	}
	m, err := intMatrix(values)
	if err != nil {
		return nil, fmt.Errorf("measurement_time: %w", err)
	}

	table := make([][2]int64, len(m))
	for i, row := range m {
		if len(row) != 2 {
			return nil, fmt.Errorf("measurement_time row %d has %d columns, want 2", i, len(row))
		}
		table[i] = [2]int64{row[0], row[1]}
	}
	return table, nil
}
