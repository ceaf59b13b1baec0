package scc

import (
	"testing"
	"time"
)

func TestParseTimeOption(t *testing.T) {
	ref := time.Date(2020, 5, 22, 1, 50, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"absolute", "2020-06-01_14:30", time.Date(2020, 6, 1, 14, 30, 0, 0, time.UTC)},
		{"absolute with seconds", "2020-06-01_14:30:45", time.Date(2020, 6, 1, 14, 30, 45, 0, time.UTC)},
		{"wall clock", "09:15", time.Date(2020, 5, 22, 9, 15, 0, 0, time.UTC)},
		{"wall clock with seconds", "09:15:30", time.Date(2020, 5, 22, 9, 15, 30, 0, time.UTC)},
		{"minutes ahead in hour", "XX:55", time.Date(2020, 5, 22, 1, 55, 0, 0, time.UTC)},
		{"minutes passed, next hour", "XX:30", time.Date(2020, 5, 22, 2, 30, 0, 0, time.UTC)},
		{"minutes equal to ref", "XX:50", time.Date(2020, 5, 22, 1, 50, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeOption(ref, tt.input)
			if err != nil {
				t.Fatalf("ParseTimeOption(%q) failed: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimeOption(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTimeOptionInvalid(t *testing.T) {
	ref := time.Date(2020, 5, 22, 1, 50, 0, 0, time.UTC)

	for _, input := range []string{"", "banana", "25:99", "XX:99", "2020-13-01_10:00", "10.30"} {
		if _, err := ParseTimeOption(ref, input); err == nil {
			t.Errorf("ParseTimeOption(%q) expected error, got none", input)
		}
	}
}
