package output

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"loadshape-platform/internal/config"
	"loadshape-platform/internal/engine"
	"loadshape-platform/internal/models"
	"loadshape-platform/internal/services"
	"loadshape-platform/pkg/logging"
	"loadshape-platform/pkg/metrics"
)

// Writer emits the pipeline artifacts into the output directory. Which
// artifacts are produced is driven entirely by the configuration; the
// archive, when requested, is always written last so it captures the rest.
type Writer struct {
	cfg     config.Config
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWriter creates a new artifact writer
func NewWriter(cfg config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Writer {
	return &Writer{
		cfg:     cfg,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// WriteAll emits every configured artifact from the pipeline result.
func (w *Writer) WriteAll(ctx context.Context, dir string, res *services.PipelineResult) error {
	type artifact struct {
		kind string
		name string
		emit func(path string) error
	}

	artifacts := []artifact{
		{"loadshapes_csv", w.cfg.LoadshapesCSV, func(p string) error { return w.writeLoadshapes(p, res.Shapes) }},
		{"groups_csv", w.cfg.GroupsCSV, func(p string) error { return w.writeGroups(p, res.Assignments) }},
		{"clock_glm", w.cfg.ClockGLM, func(p string) error { return w.writeClock(p, res.Coverage) }},
		{"schedules_glm", w.cfg.SchedulesGLM, func(p string) error { return w.writeSchedules(p, res.Shapes) }},
		{"loads_glm", w.cfg.LoadsGLM, func(p string) error { return w.writeLoads(p, res.Models) }},
		{"loadshapes_png", w.cfg.OutputPNG, func(p string) error { return w.writePlot(p, res) }},
		{"archive", w.cfg.ArchiveFile, func(p string) error { return w.writeArchive(dir, w.cfg.ArchiveFile) }},
	}

	for _, a := range artifacts {
		if a.name == "" {
			continue
		}
		path := filepath.Join(dir, a.name)
		if err := a.emit(path); err != nil {
			return fmt.Errorf("writing %s: %w", a.name, err)
		}
		w.metrics.RecordArtifact(a.kind)
		w.logger.Info(ctx, "[ARTIFACT_WRITTEN] Output artifact saved", logging.Fields{
			"kind":  a.kind,
			"path":  path,
			"stage": "OUTPUT",
		})
	}
	return nil
}

// writeLoadshapes emits the canonical shapes table: one row per cluster
// label, 192 named columns in the fixed season-major order.
func (w *Writer) writeLoadshapes(path string, shapes *engine.CanonicalShapes) error {
	f, err := os.Create(path)
	if err != nil {
		return models.Failedf(err, "cannot create loadshapes output")
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	fmt.Fprint(buf, "group")
	for _, label := range engine.Labels() {
		fmt.Fprintf(buf, ",%s", label)
	}
	fmt.Fprintln(buf)

	for _, group := range sortedGroups(shapes) {
		fmt.Fprintf(buf, "%d", group)
		for _, v := range shapes.Profiles[group] {
			fmt.Fprintf(buf, ","+w.cfg.FloatFormat, v)
		}
		fmt.Fprintln(buf)
	}
	return buf.Flush()
}

// writeGroups emits the meter to cluster-label mapping.
func (w *Writer) writeGroups(path string, assign engine.Assignments) error {
	f, err := os.Create(path)
	if err != nil {
		return models.Failedf(err, "cannot create groups output")
	}
	defer f.Close()

	meters := make([]string, 0, len(assign))
	for id := range assign {
		meters = append(meters, id)
	}
	sort.Strings(meters)

	buf := bufio.NewWriter(f)
	fmt.Fprintln(buf, "meter_id,group")
	for _, id := range meters {
		fmt.Fprintf(buf, "%s,%d\n", id, assign[id])
	}
	return buf.Flush()
}

func sortedGroups(shapes *engine.CanonicalShapes) []int {
	groups := make([]int, 0, len(shapes.Profiles))
	for g := range shapes.Profiles {
		groups = append(groups, g)
	}
	sort.Ints(groups)
	return groups
}
