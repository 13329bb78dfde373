package models

import (
	"math"
	"time"
)

// Reading represents a single AMI observation for one meter.
// Immutable once ingested; Power may be NaN, which is a valid-but-missing
// observation (the fill step may replace it before bucketing).
type Reading struct {
	MeterID        string
	Timestamp      time.Time
	Power          float64
	UTCOffsetHours int
}

// HasPower reports whether the observation carries a usable power value.
func (r Reading) HasPower() bool {
	return !math.IsNaN(r.Power)
}

// LoadMetadata is the per-meter physical description from the loads table.
// All values are kept as strings; Properties preserves the source column
// order so pass-through emission is stable.
type LoadMetadata struct {
	MeterID    string
	Class      string
	Phases     string
	Properties []Property
}

// Property is a free-form key/value physical property.
type Property struct {
	Name  string
	Value string
}
