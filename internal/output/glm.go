package output

import (
	"bufio"
	"fmt"
	"os"

	"loadshape-platform/internal/engine"
	"loadshape-platform/internal/models"
)

// timezoneLetters maps a standard UTC offset to its US timezone letter for
// the clock directive.
var timezoneLetters = map[int]string{
	-4:  "A",
	-5:  "E",
	-6:  "C",
	-7:  "M",
	-8:  "P",
	-9:  "AK",
	-10: "H",
}

// glmTimeLayout renders timestamps in clock directives.
const glmTimeLayout = "2006-01-02 15:04:05"

// writeClock emits the clock directive from the observed offset and
// timestamp ranges. When the offset range is a single value the zone has no
// daylight rule; otherwise the min offset is standard and the max daylight.
func (w *Writer) writeClock(path string, cov engine.CoverageInfo) error {
	letter, ok := timezoneLetters[cov.MinOffset]
	if !ok {
		return models.Invalidf("utc offset %+d has no timezone mapping", cov.MinOffset)
	}
	tzspec := letter + "ST"
	if cov.MinOffset != cov.MaxOffset {
		tzspec = fmt.Sprintf("%sST%+d%sDT", letter, -cov.MinOffset, letter)
	}

	f, err := os.Create(path)
	if err != nil {
		return models.Failedf(err, "cannot create clock output")
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	fmt.Fprintln(buf, "clock {")
	fmt.Fprintf(buf, "  timezone \"%s\";\n", tzspec)
	fmt.Fprintf(buf, "  starttime \"%s\";\n", cov.Start.Format(glmTimeLayout))
	fmt.Fprintf(buf, "  stoptime \"%s\";\n", cov.End.Format(glmTimeLayout))
	fmt.Fprintln(buf, "}")
	return buf.Flush()
}

// writeSchedules emits one schedule block per cluster, seasons in calendar
// order with the month and weekday selectors the scheduler expects.
func (w *Writer) writeSchedules(path string, shapes *engine.CanonicalShapes) error {
	f, err := os.Create(path)
	if err != nil {
		return models.Failedf(err, "cannot create schedules output")
	}
	defer f.Close()

	months := [engine.NumSeasons]string{"1,2,3", "4,5,6", "7,8,9", "10,11,12"}
	weekdays := [engine.NumDayTypes]string{"1,2,3,4,5", "0,6"}
	seasonBlocks := [engine.NumSeasons]string{"winter", "spring", "summer", "fall"}

	buf := bufio.NewWriter(f)
	for _, group := range sortedGroups(shapes) {
		profile := shapes.Profiles[group]
		fmt.Fprintf(buf, "schedule loadshape_%d {\n", group)
		for season := 0; season < engine.NumSeasons; season++ {
			fmt.Fprintf(buf, "  %s {\n", seasonBlocks[season])
			for dayType := 0; dayType < engine.NumDayTypes; dayType++ {
				for hour := 0; hour < engine.NumHours; hour++ {
					bucket := season*engine.NumDayTypes*engine.NumHours + dayType*engine.NumHours + hour
					fmt.Fprintf(buf, "    * %d * %s %s %.4g;\n", hour, months[season], weekdays[dayType], profile[bucket])
				}
			}
			fmt.Fprintln(buf, "  }")
		}
		fmt.Fprintln(buf, "}")
	}
	return buf.Flush()
}

// writeLoads emits the powerflow module with one object per synthesized
// model: pass-through properties, per-phase base-power terms referencing
// the assigned load shape, and defaulted power fractions.
func (w *Writer) writeLoads(path string, loadModels []engine.LoadModel) error {
	f, err := os.Create(path)
	if err != nil {
		return models.Failedf(err, "cannot create loads output")
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	fmt.Fprintln(buf, "module powerflow;")
	for _, m := range loadModels {
		fmt.Fprintf(buf, "object %s {\n", m.Class)
		if m.Name != "" {
			fmt.Fprintf(buf, "  name \"%s\";\n", m.Name)
		}
		for _, p := range m.Properties {
			fmt.Fprintf(buf, "  %s %s;\n", p.Name, p.Value)
		}
		for _, t := range m.Terms {
			fmt.Fprintf(buf, "  base_power_%s loadshape_%d*%.4g%+.4g;\n", t.Phase, m.Group, t.Scale, t.Offset)
		}
		for _, frac := range m.Fractions {
			fmt.Fprintf(buf, "  power_fraction_%s %.1f;\n", frac.Phase, frac.Value)
		}
		fmt.Fprintln(buf, "}")
	}
	return buf.Flush()
}
