package services

import (
	"context"
	"math"
	"testing"
	"time"

	"loadshape-platform/internal/config"
	"loadshape-platform/internal/engine"
	"loadshape-platform/internal/models"
	"loadshape-platform/pkg/logging"
	"loadshape-platform/pkg/metrics"
)

func newTestPipeline(cfg config.Config) *PipelineService {
	logger := logging.NewStructuredLogger("test", "test", logging.FatalLevel)
	return NewPipelineService(cfg, logger, metrics.NewCollector("test_pipeline"))
}

// syntheticYear generates hourly readings for all of 2023 so every bucket is
// covered.
func syntheticYear(meterID string, power func(engine.Bucket) float64) []models.Reading {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var rs []models.Reading
	for ts := start; ts.Before(end); ts = ts.Add(time.Hour) {
		rs = append(rs, models.Reading{
			MeterID:   meterID,
			Timestamp: ts,
			Power:     power(engine.BucketOf(ts, 0)),
		})
	}
	return rs
}

func TestPipelineService_Run(t *testing.T) {
	cfg := config.Default()
	cfg.InputCSV = "readings.csv"
	cfg.GroupCount = 2
	cfg.GroupSeed = 1

	// Two small residential-looking meters and two larger commercial-looking
	// ones; k=2 must recover that split.
	low := func(b engine.Bucket) float64 { return 1 + 0.1*float64(b.Hour()) }
	lowAlt := func(b engine.Bucket) float64 { return 1.1 + 0.1*float64(b.Hour()) }
	high := func(b engine.Bucket) float64 { return 20 + 2*float64(b.Hour()) }
	highAlt := func(b engine.Bucket) float64 { return 21 + 2*float64(b.Hour()) }

	var readings []models.Reading
	readings = append(readings, syntheticYear("res1", low)...)
	readings = append(readings, syntheticYear("res2", lowAlt)...)
	readings = append(readings, syntheticYear("com1", high)...)
	readings = append(readings, syntheticYear("com2", highAlt)...)

	svc := newTestPipeline(cfg)
	res, err := svc.Run(context.Background(), readings, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Assignments) != 4 {
		t.Fatalf("got %d assignments, want 4", len(res.Assignments))
	}
	for id, g := range res.Assignments {
		if g < 0 || g >= 2 {
			t.Fatalf("meter %s assigned to group %d, out of range [0,2)", id, g)
		}
	}
	if res.Assignments["res1"] != res.Assignments["res2"] {
		t.Error("residential meters split across groups")
	}
	if res.Assignments["com1"] != res.Assignments["com2"] {
		t.Error("commercial meters split across groups")
	}
	if res.Assignments["res1"] == res.Assignments["com1"] {
		t.Error("residential and commercial meters share a group")
	}

	if res.Shapes.K != 2 {
		t.Fatalf("Shapes.K = %d, want 2", res.Shapes.K)
	}
	for g, profile := range res.Shapes.Profiles {
		if len(profile) != engine.NumBuckets {
			t.Fatalf("group %d profile has %d cells, want %d", g, len(profile), engine.NumBuckets)
		}
	}

	// The shapes vary by hour, so no calibration falls back to the identity
	// transform with a warning.
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}
	for _, id := range []string{"res1", "res2", "com1", "com2"} {
		cal, ok := res.Calibrations[id]
		if !ok {
			t.Fatalf("no calibration for %s", id)
		}
		if math.IsNaN(cal.Scale) || cal.Scale <= 0 {
			t.Errorf("calibration scale for %s = %v", id, cal.Scale)
		}
	}

	// No metadata supplied, no models synthesized.
	if len(res.Models) != 0 {
		t.Errorf("got %d models, want none without metadata", len(res.Models))
	}
}

func TestPipelineService_Run_WithMetadata(t *testing.T) {
	cfg := config.Default()
	cfg.InputCSV = "readings.csv"
	cfg.GroupCount = 1
	cfg.LoadScale = 1000
	cfg.LoadnamePrefix = "ld_"

	readings := append(
		syntheticYear("m1", func(b engine.Bucket) float64 { return 1 + float64(b.Hour()) }),
		syntheticYear("m2", func(b engine.Bucket) float64 { return 2 + float64(b.Hour()) })...)

	loads := []models.LoadMetadata{
		{MeterID: "m1", Class: "triplex_load", Phases: "AS", Properties: []models.Property{
			{Name: "phases", Value: "AS"},
		}},
		// m2 has no metadata row; synthesis warns and skips it.
	}

	svc := newTestPipeline(cfg)
	res, err := svc.Run(context.Background(), readings, loads)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Models) != 1 {
		t.Fatalf("got %d models, want 1", len(res.Models))
	}
	model := res.Models[0]
	if model.MeterID != "m1" || model.Name != "ld_m1" || model.Class != "triplex_load" {
		t.Errorf("model = %+v", model)
	}
	if len(model.Terms) != 1 || model.Terms[0].Phase != "12" {
		t.Fatalf("terms = %+v, want one phase-12 term", model.Terms)
	}

	foundMissing := false
	for _, w := range res.Warnings {
		if w.Type == models.WarnNoMetadata && w.MeterID == "m2" {
			foundMissing = true
		}
	}
	if !foundMissing {
		t.Errorf("missing-metadata warning not recorded: %v", res.Warnings)
	}
}

func TestPipelineService_Run_InvalidGroupCount(t *testing.T) {
	cfg := config.Default()
	cfg.GroupCount = 5 // only one meter available

	readings := syntheticYear("m1", func(b engine.Bucket) float64 { return float64(b.Hour()) })

	svc := newTestPipeline(cfg)
	_, err := svc.Run(context.Background(), readings, nil)
	if err == nil {
		t.Fatal("Run() expected an error for k greater than the meter count")
	}
	if models.ExitCodeFor(err) != models.ExitInvalid {
		t.Errorf("exit code = %d, want %d", models.ExitCodeFor(err), models.ExitInvalid)
	}
}

func TestPipelineService_Run_DroppedMeters(t *testing.T) {
	cfg := config.Default()
	cfg.GroupCount = 1

	readings := syntheticYear("full", func(b engine.Bucket) float64 { return float64(b.Hour()) })
	readings = append(readings, models.Reading{
		MeterID:   "sparse",
		Timestamp: time.Date(2023, 1, 2, 1, 0, 0, 0, time.UTC),
		Power:     1,
	})

	svc := newTestPipeline(cfg)
	res, err := svc.Run(context.Background(), readings, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.DroppedMeters) != 1 || res.DroppedMeters[0] != "sparse" {
		t.Errorf("DroppedMeters = %v, want [sparse]", res.DroppedMeters)
	}
	if _, ok := res.Assignments["sparse"]; ok {
		t.Error("dropped meter must not be assigned a group")
	}
}
