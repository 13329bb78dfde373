package engine

import (
	"gonum.org/v1/gonum/floats"
)

// MinMaxScale rescales every bucket column independently to [0,1] using that
// column's observed min/max across all meters. Used only as clustering
// input; raw values are retained in the matrix for shape and calibration
// work. A degenerate column (constant across meters) maps to 0 rather than
// dividing by zero.
//
// Returns the sorted meter ids and the scaled rows aligned to that order.
func MinMaxScale(m *FeatureMatrix) ([]string, [][]float64) {
	meters := m.Meters()
	n := len(meters)

	rows := make([][]float64, n)
	for i, id := range meters {
		rows[i] = append([]float64(nil), m.Profiles[id]...)
	}
	if n == 0 {
		return meters, rows
	}

	col := make([]float64, n)
	for j := 0; j < NumBuckets; j++ {
		for i := range rows {
			col[i] = rows[i][j]
		}
		lo, hi := floats.Min(col), floats.Max(col)
		span := hi - lo
		for i := range rows {
			if span == 0 {
				rows[i][j] = 0
				continue
			}
			rows[i][j] = (rows[i][j] - lo) / span
		}
	}
	return meters, rows
}
