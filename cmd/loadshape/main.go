package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loadshape-platform/internal/config"
	"loadshape-platform/internal/models"
	"loadshape-platform/internal/output"
	"loadshape-platform/internal/services"
	"loadshape-platform/pkg/logging"
	"loadshape-platform/pkg/metrics"
)

const version = "1.0.0"

func main() {
	os.Exit(run())
}

func run() int {
	inputDir := flag.String("input-dir", "", "Directory containing config.csv and the AMI data (defaults to $LOADSHAPE_INPUT)")
	outputDir := flag.String("output-dir", "", "Directory artifacts are written to (defaults to $LOADSHAPE_OUTPUT)")
	seed := flag.Int64("seed", 0, "Override the clustering random seed (0 keeps the configured seed)")
	metricsAddr := flag.String("metrics-addr", "", "Optional address to serve /metrics on while the pipeline runs")
	flag.Parse()

	// .env support for containerized runs; absence is not an error.
	_ = godotenv.Load()

	in := *inputDir
	if in == "" {
		in = os.Getenv("LOADSHAPE_INPUT")
	}
	out := *outputDir
	if out == "" {
		out = os.Getenv("LOADSHAPE_OUTPUT")
	}
	if in == "" {
		fmt.Fprintln(os.Stderr, "input directory not set (use -input-dir or $LOADSHAPE_INPUT)")
		return models.ExitInvalid
	}
	if out == "" {
		fmt.Fprintln(os.Stderr, "output directory not set (use -output-dir or $LOADSHAPE_OUTPUT)")
		return models.ExitInvalid
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "cannot prepare output directory: %v\n", err)
		return models.ExitFailed
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read output directory: %v\n", err)
		return models.ExitFailed
	}
	if len(entries) > 0 {
		fmt.Fprintln(os.Stderr, "output folder is not empty")
		return models.ExitFailed
	}

	// Load configuration; a missing config.csv leaves a filled-in template
	// behind so the next run can start from it.
	cfgPath := filepath.Join(in, "config.csv")
	cfg := config.Default()
	templated := false
	if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
		if err := config.WriteTemplate(filepath.Join(out, "config.csv")); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return models.ExitCodeFor(err)
		}
		templated = true
	} else {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return models.ExitCodeFor(err)
		}
	}
	if *seed != 0 {
		cfg.GroupSeed = *seed
	}

	logLevel := logging.InfoLevel
	if cfg.Verbose {
		logLevel = logging.DebugLevel
	}
	if cfg.Quiet {
		logLevel = logging.ErrorLevel
	}
	logger := logging.NewStructuredLogger("loadshape", version, logLevel)
	ctx := context.Background()

	logger.Info(ctx, "[STARTUP] Starting load-shape analysis", logging.Fields{
		"version":    version,
		"input_dir":  in,
		"output_dir": out,
	})

	if templated {
		logger.Warn(ctx, "[CONFIG_TEMPLATE] config.csv not found in input folder, a template has been provided in the output folder", logging.Fields{})
	}

	metricsCollector := metrics.NewCollector("loadshape")

	if *metricsAddr != "" {
		router := mux.NewRouter()
		router.Handle("/metrics", promhttp.HandlerFor(metricsCollector.Registry(), promhttp.HandlerOpts{}))
		router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		go func() {
			logger.Info(ctx, "[METRICS_START] Metrics listener running", logging.Fields{
				"address": *metricsAddr,
			})
			if err := http.ListenAndServe(*metricsAddr, router); err != nil {
				logger.Error(ctx, "[METRICS_ERROR] Metrics listener failed", logging.Fields{}, err)
			}
		}()
	}

	if cfg.InputCSV == "" {
		logger.Warn(ctx, "[NO_INPUT] INPUT_CSV not specified, no input data", logging.Fields{})
		return models.ExitOK
	}
	if err := cfg.Validate(); err != nil {
		logger.Error(ctx, "[CONFIG_ERROR] Invalid configuration", logging.Fields{}, err)
		return models.ExitCodeFor(err)
	}

	startTime := time.Now()

	ingestion := services.NewIngestionService(cfg, logger, metricsCollector)
	ingested, err := ingestion.LoadReadings(ctx, filepath.Join(in, cfg.InputCSV))
	if err != nil {
		logger.Error(ctx, "[INGEST_ERROR] Failed to load AMI data", logging.Fields{}, err)
		return models.ExitCodeFor(err)
	}

	var loads []models.LoadMetadata
	if cfg.LoadsCSV != "" {
		loads, err = ingestion.LoadMetadata(ctx, filepath.Join(in, cfg.LoadsCSV))
		if err != nil {
			logger.Error(ctx, "[INGEST_ERROR] Failed to load meter metadata", logging.Fields{}, err)
			return models.ExitCodeFor(err)
		}
	}

	pipeline := services.NewPipelineService(cfg, logger, metricsCollector)
	result, err := pipeline.Run(ctx, ingested.Readings, loads)
	if err != nil {
		logger.Error(ctx, "[PIPELINE_ERROR] Analysis failed", logging.Fields{}, err)
		return models.ExitCodeFor(err)
	}

	writer := output.NewWriter(cfg, logger, metricsCollector)
	if err := writer.WriteAll(ctx, out, result); err != nil {
		logger.Error(ctx, "[OUTPUT_ERROR] Failed to write artifacts", logging.Fields{}, err)
		return models.ExitCodeFor(err)
	}

	duration := time.Since(startTime)

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("LOAD-SHAPE ANALYSIS COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Readings Parsed:    %d\n", ingested.ParsedRows)
	fmt.Printf("Rejected Rows:      %d\n", ingested.FailedRows)
	fmt.Printf("Meters Clustered:   %d\n", len(result.Assignments))
	fmt.Printf("Meters Dropped:     %d\n", len(result.DroppedMeters))
	fmt.Printf("Load Shapes:        %d\n", result.Shapes.K)
	fmt.Printf("Models Synthesized: %d\n", len(result.Models))
	fmt.Printf("Duration:           %v\n", duration)

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(result.Warnings))
		for i, warn := range result.Warnings {
			if i < 10 {
				fmt.Printf("  - %s\n", warn)
			}
		}
		if len(result.Warnings) > 10 {
			fmt.Printf("  ... and %d more warnings\n", len(result.Warnings)-10)
		}
	}

	logger.Info(ctx, "[COMPLETE] Load-shape analysis finished", logging.Fields{
		"meters":           len(result.Assignments),
		"groups":           result.Shapes.K,
		"models":           len(result.Models),
		"warnings":         len(result.Warnings),
		"duration_seconds": duration.Seconds(),
	})
	return models.ExitOK
}
