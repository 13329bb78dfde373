package engine

import (
	"strconv"
	"strings"

	"loadshape-platform/internal/models"
)

// PowerTerm is one per-phase base-power expression referencing the meter's
// canonical shape: shape * Scale + Offset, both already multiplied by the
// load-scale factor and split across active phases.
type PowerTerm struct {
	Phase  string
	Scale  float64
	Offset float64
}

// PowerFraction is a defaulted power_fraction property for one phase.
type PowerFraction struct {
	Phase string
	Value float64
}

// LoadModel is the synthesized per-meter model: calibration combined with
// the meter's physical metadata. Computed once at the end of the pipeline.
type LoadModel struct {
	MeterID    string
	Name       string
	Class      string
	Group      int
	Properties []models.Property
	Terms      []PowerTerm
	Fractions  []PowerFraction
}

// Synthesizer derives load models from calibration parameters and external
// physical metadata.
type Synthesizer struct {
	// LoadScale multiplies every power term (kW to W by default).
	LoadScale float64
	// NamePrefix, when set, names each model NamePrefix+meterID.
	NamePrefix string
}

// Synthesize builds the model for one meter. The phase string is parsed for
// the single-phase "S" variant versus a combination of "A","B","C"; a meter
// with no recognizable phase characters is a recoverable warning and
// contributes no power terms, with other properties still passed through.
func (s *Synthesizer) Synthesize(meterID string, group int, cal Calibration, meta models.LoadMetadata) (LoadModel, *models.Warning) {
	model := LoadModel{
		MeterID:    meterID,
		Class:      meta.Class,
		Group:      group,
		Properties: meta.Properties,
	}
	if s.NamePrefix != "" {
		model.Name = s.NamePrefix + meterID
	}

	hasFraction := false
	for _, p := range meta.Properties {
		for _, part := range strings.Split(p.Name, "_") {
			if part == "fraction" {
				hasFraction = true
			}
		}
	}

	phases := meta.Phases
	if !strings.ContainsAny(phases, "ABC") {
		return model, &models.Warning{
			Type:    models.WarnNoPhases,
			MeterID: meterID,
			Message: "no recognizable phases in " + strconv.Quote(phases) + ", no power terms synthesized",
		}
	}

	if strings.Contains(phases, "S") {
		// Single-phase (triplex) service: one combined term on phase 12,
		// undivided.
		model.Terms = append(model.Terms, PowerTerm{
			Phase:  "12",
			Scale:  cal.Scale * s.LoadScale,
			Offset: cal.Offset * s.LoadScale,
		})
	} else {
		n := 0
		for _, ph := range "ABC" {
			if strings.ContainsRune(phases, ph) {
				n++
			}
		}
		for _, ph := range "ABC" {
			if strings.ContainsRune(phases, ph) {
				model.Terms = append(model.Terms, PowerTerm{
					Phase:  string(ph),
					Scale:  cal.Scale / float64(n) * s.LoadScale,
					Offset: cal.Offset / float64(n) * s.LoadScale,
				})
			}
		}
	}

	// Default fractions would conflict with an explicit fraction property,
	// so they are only emitted when the metadata has none.
	if !hasFraction {
		for _, t := range model.Terms {
			model.Fractions = append(model.Fractions, PowerFraction{Phase: t.Phase, Value: 1.0})
		}
	}

	return model, nil
}
