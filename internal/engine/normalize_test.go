package engine

import (
	"testing"
)

func TestMinMaxScale(t *testing.T) {
	m := &FeatureMatrix{Profiles: map[string][]float64{
		"b": repeatRow(10),
		"a": repeatRow(0),
		"c": repeatRow(5),
	}}

	meters, rows := MinMaxScale(m)

	if len(meters) != 3 || meters[0] != "a" || meters[1] != "b" || meters[2] != "c" {
		t.Fatalf("meters = %v, want [a b c]", meters)
	}
	for j := 0; j < NumBuckets; j++ {
		if rows[0][j] != 0 {
			t.Fatalf("min row col %d = %v, want 0", j, rows[0][j])
		}
		if rows[1][j] != 1 {
			t.Fatalf("max row col %d = %v, want 1", j, rows[1][j])
		}
		if rows[2][j] != 0.5 {
			t.Fatalf("mid row col %d = %v, want 0.5", j, rows[2][j])
		}
	}
}

// TestMinMaxScale_DegenerateColumn checks a constant column maps to zero
// instead of dividing by zero.
func TestMinMaxScale_DegenerateColumn(t *testing.T) {
	m := &FeatureMatrix{Profiles: map[string][]float64{
		"a": repeatRow(7),
		"b": repeatRow(7),
	}}

	_, rows := MinMaxScale(m)
	for i := range rows {
		for j, v := range rows[i] {
			if v != 0 {
				t.Fatalf("row %d col %d = %v, want 0 for a constant column", i, j, v)
			}
		}
	}
}

// TestMinMaxScale_RawRetained verifies scaling copies rather than mutating
// the matrix the shapes are later computed from.
func TestMinMaxScale_RawRetained(t *testing.T) {
	m := &FeatureMatrix{Profiles: map[string][]float64{
		"a": repeatRow(0),
		"b": repeatRow(10),
	}}
	MinMaxScale(m)
	if m.Profiles["b"][0] != 10 {
		t.Errorf("matrix mutated by scaling: %v", m.Profiles["b"][0])
	}
}

func repeatRow(v float64) []float64 {
	row := make([]float64, NumBuckets)
	for i := range row {
		row[i] = v
	}
	return row
}
