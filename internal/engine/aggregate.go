package engine

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"loadshape-platform/internal/models"
)

// AggregateFunc reduces a non-empty sample to a single value. All registered
// reductions are associative and commutative over merged contributions, so
// per-(meter,bucket) accumulation order never matters.
type AggregateFunc func([]float64) float64

// aggregations is the closed registry of reduction directives. Directive
// dispatch is by name only; unknown names are an INVALID configuration error.
var aggregations = map[string]AggregateFunc{
	"mean":   func(xs []float64) float64 { return stat.Mean(xs, nil) },
	"median": median,
	"sum":    floats.Sum,
	"min":    floats.Min,
	"max":    floats.Max,
}

// AggregationByName resolves an aggregation directive. The empty name
// selects the default (mean).
func AggregationByName(name string) (AggregateFunc, error) {
	if name == "" {
		name = "mean"
	}
	fn, ok := aggregations[name]
	if !ok {
		return nil, models.Invalidf("aggregation %q is not a valid directive", name)
	}
	return fn, nil
}

// median averages the two middle order statistics for even-length samples.
// gonum's stat.Quantile interpolation schemes do not match this convention,
// so it is computed directly.
func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// FillFunc rewrites the power series of one meter's chronologically ordered
// readings in place to repair missing (NaN) observations.
type FillFunc func([]models.Reading)

// fills is the closed registry of fill directives.
var fills = map[string]FillFunc{
	"ffill": forwardFill,
	"none":  func([]models.Reading) {},
}

// FillByName resolves a fill directive. The empty name selects the default
// forward fill.
func FillByName(name string) (FillFunc, error) {
	if name == "" {
		name = "ffill"
	}
	fn, ok := fills[name]
	if !ok {
		return nil, models.Invalidf("fill method %q is not a valid directive", name)
	}
	return fn, nil
}

// forwardFill carries the last observed power value forward over NaN gaps.
// Leading NaNs have nothing to inherit and survive; they simply never
// contribute to a bucket.
func forwardFill(rs []models.Reading) {
	last := math.NaN()
	for i := range rs {
		if math.IsNaN(rs[i].Power) {
			rs[i].Power = last
		} else {
			last = rs[i].Power
		}
	}
}
