package services

import (
	"context"
	"time"

	"loadshape-platform/internal/config"
	"loadshape-platform/internal/engine"
	"loadshape-platform/internal/models"
	"loadshape-platform/pkg/logging"
	"loadshape-platform/pkg/metrics"
)

// PipelineService runs the load-shape analysis end to end: feature matrix,
// normalization, clustering, canonical shapes, calibration, and model
// synthesis. Single pass; each stage owns its inputs and returns a new
// immutable artifact.
type PipelineService struct {
	cfg     config.Config
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// PipelineResult is everything the output writers consume.
type PipelineResult struct {
	Matrix        *engine.FeatureMatrix
	Coverage      engine.CoverageInfo
	Assignments   engine.Assignments
	Shapes        *engine.CanonicalShapes
	Calibrations  map[string]engine.Calibration
	Models        []engine.LoadModel
	Warnings      []models.Warning
	DroppedMeters []string
	Duration      time.Duration
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(cfg config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PipelineService {
	return &PipelineService{
		cfg:     cfg,
		logger:  logger.WithFields(logging.Fields{"component": "pipeline"}),
		metrics: metricsCollector,
	}
}

// Run executes the pipeline over the full reading set. Data-wide failures
// (unknown directive, bad group count, empty matrix) abort immediately;
// per-meter anomalies become warnings with documented fallbacks and the run
// continues. loads may be nil, in which case no models are synthesized.
func (s *PipelineService) Run(ctx context.Context, readings []models.Reading, loads []models.LoadMetadata) (*PipelineResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[PIPELINE_START] Starting load-shape analysis", logging.Fields{
		"readings":     len(readings),
		"group_method": s.cfg.GroupMethod,
		"group_count":  s.cfg.GroupCount,
		"stage":        "INITIALIZATION",
	})

	agg, err := engine.AggregationByName(s.cfg.Aggregation)
	if err != nil {
		return nil, err
	}
	fill, err := engine.FillByName(s.cfg.FillMethod)
	if err != nil {
		return nil, err
	}
	clusterer, err := engine.NewClusterer(s.cfg.GroupMethod, s.cfg.GroupSeed)
	if err != nil {
		return nil, err
	}

	// Feature matrix
	timer := s.metrics.NewStageTimer("features")
	builder := &engine.FeatureBuilder{
		Resample:  s.cfg.Resample != "",
		Aggregate: agg,
		Fill:      fill,
	}
	built, err := builder.Build(readings)
	if err != nil {
		return nil, err
	}
	timer.ObserveDuration()

	s.metrics.MetersDroppedTotal.Add(float64(len(built.Dropped)))
	s.logger.Info(ctx, "[MATRIX_BUILT] Feature matrix constructed", logging.Fields{
		"meters":         len(built.Matrix.Profiles),
		"dropped_meters": len(built.Dropped),
		"stage":          "FEATURES",
	})

	// Clustering over the normalized matrix
	timer = s.metrics.NewStageTimer("cluster")
	meters, rows := engine.MinMaxScale(built.Matrix)
	labels, err := clusterer.Cluster(rows, s.cfg.GroupCount)
	if err != nil {
		return nil, err
	}
	timer.ObserveDuration()
	s.metrics.ClusterCount.Set(float64(s.cfg.GroupCount))

	assignments := make(engine.Assignments, len(meters))
	for i, id := range meters {
		assignments[id] = labels[i]
	}

	s.logger.Info(ctx, "[CLUSTERED] Meters assigned to load shapes", logging.Fields{
		"meters": len(meters),
		"groups": s.cfg.GroupCount,
		"stage":  "CLUSTERING",
	})

	// Canonical shapes from the raw (unnormalized) profiles
	shapes := engine.AggregateShapes(built.Matrix, assignments, s.cfg.GroupCount)

	result := &PipelineResult{
		Matrix:        built.Matrix,
		Coverage:      built.Coverage,
		Assignments:   assignments,
		Shapes:        shapes,
		Calibrations:  make(map[string]engine.Calibration, len(meters)),
		DroppedMeters: built.Dropped,
	}

	// Per-meter calibration against the assigned canonical shape
	timer = s.metrics.NewStageTimer("calibrate")
	for _, id := range meters {
		cal, warn := engine.Calibrate(id, built.Readings[id], shapes.Profiles[assignments[id]])
		result.Calibrations[id] = cal
		if warn != nil {
			s.recordWarning(ctx, result, *warn)
		}
	}
	timer.ObserveDuration()

	// Model synthesis needs the external physical metadata
	if loads != nil {
		metaByID := make(map[string]models.LoadMetadata, len(loads))
		for _, m := range loads {
			metaByID[m.MeterID] = m
		}

		synth := &engine.Synthesizer{
			LoadScale:  s.cfg.LoadScale,
			NamePrefix: s.cfg.LoadnamePrefix,
		}
		for _, id := range meters {
			meta, ok := metaByID[id]
			if !ok {
				s.recordWarning(ctx, result, models.Warning{
					Type:    models.WarnNoMetadata,
					MeterID: id,
					Message: "meter has no loads metadata, no model synthesized",
				})
				continue
			}
			model, warn := synth.Synthesize(id, assignments[id], result.Calibrations[id], meta)
			if warn != nil {
				s.recordWarning(ctx, result, *warn)
			}
			result.Models = append(result.Models, model)
		}
	}

	result.Duration = time.Since(startTime)

	s.logger.Info(ctx, "[PIPELINE_COMPLETE] Load-shape analysis completed", logging.Fields{
		"meters":           len(meters),
		"groups":           s.cfg.GroupCount,
		"models":           len(result.Models),
		"warnings":         len(result.Warnings),
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

// recordWarning captures a per-meter anomaly: accumulated for the caller,
// logged, and counted. Never silent.
func (s *PipelineService) recordWarning(ctx context.Context, result *PipelineResult, warn models.Warning) {
	result.Warnings = append(result.Warnings, warn)
	s.metrics.RecordWarning(warn.Type)
	s.logger.Warn(ctx, "[PIPELINE_WARNING] "+warn.Message, logging.Fields{
		"warning_type": warn.Type,
		"meter_id":     warn.MeterID,
	})
}
