package engine

import (
	"fmt"
	"time"
)

// Grid dimensions for the season/day-type/hour bucketing.
const (
	NumSeasons  = 4
	NumDayTypes = 2
	NumHours    = 24
	NumBuckets  = NumSeasons * NumDayTypes * NumHours
)

var (
	seasonNames  = [NumSeasons]string{"win", "spr", "sum", "fal"}
	dayTypeNames = [NumDayTypes]string{"wd", "we"}
)

// Bucket identifies one of the 192 canonical time-of-use cells, encoded as
// season*48 + dayType*24 + hour.
type Bucket int

// BucketOf maps a timestamp plus UTC offset to its bucket. Pure function,
// total over valid inputs.
//
// The hour follows the hour-ending convention: a reading stamped 01:00
// covers the hour beginning at 00:00 local, hence the -1 applied before the
// offset shift. This is a fixed convention of the output schema, not
// negotiable per call.
func BucketOf(t time.Time, utcOffsetHours int) Bucket {
	season := (int(t.Month()) - 1) / 3

	// time.Weekday puts Sunday first; shift to Monday=0 so Sat/Sun are 5/6.
	dayType := 0
	if wd := (int(t.Weekday()) + 6) % 7; wd >= 5 {
		dayType = 1
	}

	hour := t.Hour() - 1 + utcOffsetHours
	hour = ((hour % NumHours) + NumHours) % NumHours

	return Bucket(season*NumDayTypes*NumHours + dayType*NumHours + hour)
}

// Season returns the 0-indexed calendar quarter.
func (b Bucket) Season() int { return int(b) / (NumDayTypes * NumHours) }

// DayType returns 0 for weekdays and 1 for weekends.
func (b Bucket) DayType() int { return int(b) % (NumDayTypes * NumHours) / NumHours }

// Hour returns the local hour in [0,24).
func (b Bucket) Hour() int { return int(b) % NumHours }

// Label returns the canonical column name, e.g. "win_wd_0h".
func (b Bucket) Label() string {
	return fmt.Sprintf("%s_%s_%dh", seasonNames[b.Season()], dayTypeNames[b.DayType()], b.Hour())
}

// Labels returns all 192 column names in the fixed season-major order.
// This ordering is the externally visible schema.
func Labels() []string {
	labels := make([]string, 0, NumBuckets)
	for b := Bucket(0); b < NumBuckets; b++ {
		labels = append(labels, b.Label())
	}
	return labels
}
