package engine

import (
	"math"
	"sort"
	"time"

	"loadshape-platform/internal/models"
)

// FeatureMatrix is the dense meter x 192 grid of aggregated power per
// bucket. Invariant: every row has exactly 192 defined values; meters with
// incomplete bucket coverage never appear.
type FeatureMatrix struct {
	Profiles map[string][]float64
}

// Meters returns the meter ids in sorted order. The ordering is an
// iteration convenience only; rows are a mapping, not a sequence.
func (m *FeatureMatrix) Meters() []string {
	meters := make([]string, 0, len(m.Profiles))
	for id := range m.Profiles {
		meters = append(meters, id)
	}
	sort.Strings(meters)
	return meters
}

// CoverageInfo is the only state carried outside the matrix: the observed
// UTC offset range and timestamp range, consumed by the clock writer.
type CoverageInfo struct {
	MinOffset int
	MaxOffset int
	Start     time.Time
	End       time.Time
}

// FeatureBuilder aggregates raw readings into the feature matrix.
type FeatureBuilder struct {
	// Resample groups sub-hourly readings to the top of the hour before
	// filling and bucketing.
	Resample bool
	// Aggregate reduces resample groups and (meter,bucket) cells. Defaults
	// to mean when nil.
	Aggregate AggregateFunc
	// Fill repairs missing power values per meter in chronological order.
	// Defaults to forward fill when nil.
	Fill FillFunc
}

// BuildResult bundles the matrix with the post-fill readings the calibrator
// consumes and the clock-range side information.
type BuildResult struct {
	Matrix   *FeatureMatrix
	Readings map[string][]models.Reading
	Coverage CoverageInfo
	Dropped  []string
}

// Build runs the aggregation steps in order: per-meter chronological sort,
// optional hourly resample, missing-value fill, bucket assignment,
// (meter,bucket) group-reduce, pivot to dense form, and the drop of any
// meter with an undefined cell. An empty resulting matrix is an INVALID
// condition: no meter covers all 192 buckets.
func (b *FeatureBuilder) Build(readings []models.Reading) (*BuildResult, error) {
	if len(readings) == 0 {
		return nil, models.Invalidf("no input readings to aggregate")
	}

	agg := b.Aggregate
	if agg == nil {
		agg, _ = AggregationByName("mean")
	}
	fill := b.Fill
	if fill == nil {
		fill, _ = FillByName("ffill")
	}

	perMeter := make(map[string][]models.Reading)
	for _, r := range readings {
		perMeter[r.MeterID] = append(perMeter[r.MeterID], r)
	}

	cov := CoverageInfo{}
	first := true
	for meter, rs := range perMeter {
		sort.Slice(rs, func(i, j int) bool { return rs[i].Timestamp.Before(rs[j].Timestamp) })
		if b.Resample {
			rs = resampleHourly(rs, agg)
		}
		fill(rs)
		perMeter[meter] = rs

		for _, r := range rs {
			if first {
				cov.MinOffset, cov.MaxOffset = r.UTCOffsetHours, r.UTCOffsetHours
				cov.Start, cov.End = r.Timestamp, r.Timestamp
				first = false
				continue
			}
			if r.UTCOffsetHours < cov.MinOffset {
				cov.MinOffset = r.UTCOffsetHours
			}
			if r.UTCOffsetHours > cov.MaxOffset {
				cov.MaxOffset = r.UTCOffsetHours
			}
			if r.Timestamp.Before(cov.Start) {
				cov.Start = r.Timestamp
			}
			if r.Timestamp.After(cov.End) {
				cov.End = r.Timestamp
			}
		}
	}

	profiles := make(map[string][]float64)
	var dropped []string
	for meter, rs := range perMeter {
		samples := make([][]float64, NumBuckets)
		for _, r := range rs {
			if !r.HasPower() {
				continue
			}
			bkt := BucketOf(r.Timestamp, r.UTCOffsetHours)
			samples[bkt] = append(samples[bkt], r.Power)
		}

		row := make([]float64, NumBuckets)
		complete := true
		for i, s := range samples {
			if len(s) == 0 {
				complete = false
				break
			}
			row[i] = agg(s)
		}
		if complete {
			profiles[meter] = row
		} else {
			dropped = append(dropped, meter)
		}
	}
	sort.Strings(dropped)

	if len(profiles) == 0 {
		return nil, models.Invalidf("no meter has complete coverage of all %d buckets", NumBuckets)
	}

	return &BuildResult{
		Matrix:   &FeatureMatrix{Profiles: profiles},
		Readings: perMeter,
		Coverage: cov,
		Dropped:  dropped,
	}, nil
}

// resampleHourly reduces consecutive readings within the same clock hour to
// a single reading stamped at the top of the hour. A group with no usable
// power values yields NaN, left to the fill step.
func resampleHourly(rs []models.Reading, agg AggregateFunc) []models.Reading {
	if len(rs) == 0 {
		return rs
	}

	out := make([]models.Reading, 0, len(rs))
	var group []float64
	cur := rs[0]
	cur.Timestamp = cur.Timestamp.Truncate(time.Hour)

	flush := func() {
		if len(group) > 0 {
			cur.Power = agg(group)
		} else {
			cur.Power = math.NaN()
		}
		out = append(out, cur)
		group = group[:0]
	}

	for _, r := range rs {
		key := r.Timestamp.Truncate(time.Hour)
		if !key.Equal(cur.Timestamp) {
			flush()
			cur = r
			cur.Timestamp = key
		}
		if r.HasPower() {
			group = append(group, r.Power)
		}
	}
	flush()
	return out
}
