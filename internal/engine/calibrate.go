package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"loadshape-platform/internal/models"
)

// Calibration is the per-meter affine transform aligning a canonical shape
// to the meter's own magnitude: scale = stdev(readings)/stdev(shape values
// at the readings' buckets), offset = (1-scale)*mean(readings). Derived,
// never independently mutated.
type Calibration struct {
	Scale  float64
	Offset float64
}

// Calibrate fits the transform from the meter's raw per-reading power
// observations (the same post-fill series the matrix was built from, not
// the 192 bucket means) against its canonical shape sampled at the matching
// buckets. Closed-form moment match, no iteration.
//
// A canonical shape with zero relevant variance leaves the scale undefined;
// the meter falls back to the identity transform and the anomaly is
// reported as a warning.
func Calibrate(meterID string, readings []models.Reading, shape []float64) (Calibration, *models.Warning) {
	var powers, ref []float64
	for _, r := range readings {
		if !r.HasPower() {
			continue
		}
		powers = append(powers, r.Power)
		ref = append(ref, shape[BucketOf(r.Timestamp, r.UTCOffsetHours)])
	}

	sd := stat.StdDev(ref, nil)
	if sd == 0 || math.IsNaN(sd) {
		return Calibration{Scale: 1, Offset: 0}, &models.Warning{
			Type:    models.WarnFlatShape,
			MeterID: meterID,
			Message: "canonical shape has zero variance at this meter's buckets, using scale=1 offset=0",
		}
	}

	scale := stat.StdDev(powers, nil) / sd
	offset := (1 - scale) * stat.Mean(powers, nil)
	return Calibration{Scale: scale, Offset: offset}, nil
}
