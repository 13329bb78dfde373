package engine

import (
	"testing"
	"time"
)

// TestBucketOf covers the season/day-type/hour encoding including the
// hour-ending convention and the UTC offset shift.
func TestBucketOf(t *testing.T) {
	tests := []struct {
		name       string
		timestamp  time.Time
		offset     int
		wantSeason int
		wantDay    int
		wantHour   int
		wantLabel  string
	}{
		{
			name:       "winter weekday first hour",
			timestamp:  time.Date(2023, 1, 2, 1, 0, 0, 0, time.UTC), // Monday
			offset:     0,
			wantSeason: 0,
			wantDay:    0,
			wantHour:   0,
			wantLabel:  "win_wd_0h",
		},
		{
			name:       "midnight wraps to hour 23",
			timestamp:  time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
			offset:     0,
			wantSeason: 0,
			wantDay:    0,
			wantHour:   23,
			wantLabel:  "win_wd_23h",
		},
		{
			name:       "negative offset shifts the local hour",
			timestamp:  time.Date(2023, 1, 2, 6, 0, 0, 0, time.UTC),
			offset:     -5,
			wantSeason: 0,
			wantDay:    0,
			wantHour:   0,
			wantLabel:  "win_wd_0h",
		},
		{
			name:       "offset wrap stays in range",
			timestamp:  time.Date(2023, 1, 2, 2, 0, 0, 0, time.UTC),
			offset:     -8,
			wantSeason: 0,
			wantDay:    0,
			wantHour:   17,
			wantLabel:  "win_wd_17h",
		},
		{
			name:       "saturday is a weekend",
			timestamp:  time.Date(2023, 1, 7, 13, 0, 0, 0, time.UTC),
			offset:     0,
			wantSeason: 0,
			wantDay:    1,
			wantHour:   12,
			wantLabel:  "win_we_12h",
		},
		{
			name:       "sunday is a weekend",
			timestamp:  time.Date(2023, 1, 8, 13, 0, 0, 0, time.UTC),
			offset:     0,
			wantSeason: 0,
			wantDay:    1,
			wantHour:   12,
			wantLabel:  "win_we_12h",
		},
		{
			name:       "friday is a weekday",
			timestamp:  time.Date(2023, 1, 6, 13, 0, 0, 0, time.UTC),
			offset:     0,
			wantSeason: 0,
			wantDay:    0,
			wantHour:   12,
			wantLabel:  "win_wd_12h",
		},
		{
			name:       "april is spring",
			timestamp:  time.Date(2023, 4, 3, 13, 0, 0, 0, time.UTC),
			offset:     0,
			wantSeason: 1,
			wantDay:    0,
			wantHour:   12,
			wantLabel:  "spr_wd_12h",
		},
		{
			name:       "july is summer",
			timestamp:  time.Date(2023, 7, 3, 13, 0, 0, 0, time.UTC),
			offset:     0,
			wantSeason: 2,
			wantDay:    0,
			wantHour:   12,
			wantLabel:  "sum_wd_12h",
		},
		{
			name:       "december is fall",
			timestamp:  time.Date(2023, 12, 4, 13, 0, 0, 0, time.UTC),
			offset:     0,
			wantSeason: 3,
			wantDay:    0,
			wantHour:   12,
			wantLabel:  "fal_wd_12h",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := BucketOf(tt.timestamp, tt.offset)
			if b < 0 || int(b) >= NumBuckets {
				t.Fatalf("BucketOf() = %d, out of range [0,%d)", b, NumBuckets)
			}
			if b.Season() != tt.wantSeason {
				t.Errorf("Season() = %d, want %d", b.Season(), tt.wantSeason)
			}
			if b.DayType() != tt.wantDay {
				t.Errorf("DayType() = %d, want %d", b.DayType(), tt.wantDay)
			}
			if b.Hour() != tt.wantHour {
				t.Errorf("Hour() = %d, want %d", b.Hour(), tt.wantHour)
			}
			if b.Label() != tt.wantLabel {
				t.Errorf("Label() = %q, want %q", b.Label(), tt.wantLabel)
			}
			want := Bucket(tt.wantSeason*NumDayTypes*NumHours + tt.wantDay*NumHours + tt.wantHour)
			if b != want {
				t.Errorf("BucketOf() = %d, want %d", b, want)
			}
		})
	}
}

// TestBucketOf_Pure verifies the mapping is deterministic for repeated calls.
func TestBucketOf_Pure(t *testing.T) {
	ts := time.Date(2023, 6, 15, 9, 30, 0, 0, time.UTC)
	first := BucketOf(ts, -6)
	for i := 0; i < 10; i++ {
		if got := BucketOf(ts, -6); got != first {
			t.Fatalf("BucketOf() = %d on call %d, want %d", got, i, first)
		}
	}
}

func TestLabels(t *testing.T) {
	labels := Labels()
	if len(labels) != NumBuckets {
		t.Fatalf("Labels() returned %d entries, want %d", len(labels), NumBuckets)
	}
	if labels[0] != "win_wd_0h" {
		t.Errorf("labels[0] = %q, want %q", labels[0], "win_wd_0h")
	}
	if labels[47] != "win_we_23h" {
		t.Errorf("labels[47] = %q, want %q", labels[47], "win_we_23h")
	}
	if labels[NumBuckets-1] != "fal_we_23h" {
		t.Errorf("labels[191] = %q, want %q", labels[NumBuckets-1], "fal_we_23h")
	}

	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if seen[l] {
			t.Errorf("duplicate label %q", l)
		}
		seen[l] = true
	}
}
