package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"loadshape-platform/internal/engine"
	"loadshape-platform/internal/models"
)

// Config carries every scalar the pipeline consumes. It is an explicit
// value passed into services and engine components at construction; no
// component reads ambient process-wide state.
type Config struct {
	// Input selection
	InputCSV       string
	DatetimeColumn string
	IDColumn       string
	DataColumn     string
	TimezoneColumn string
	DatetimeFormat string

	// CSV artifacts
	LoadshapesCSV string
	GroupsCSV     string
	FloatFormat   string

	// Engine directives
	Resample    string
	FillMethod  string
	Aggregation string
	GroupMethod string
	GroupCount  int
	GroupSeed   int64

	// Plot artifact
	OutputPNG   string
	PNGFigsize  string
	PNGFontsize int

	// GLM artifacts
	LoadsCSV       string
	ClockGLM       string
	SchedulesGLM   string
	LoadsGLM       string
	LoadScale      float64
	LoadnamePrefix string

	ArchiveFile string

	Verbose bool
	Quiet   bool
}

// Default returns the configuration the pipeline runs with when config.csv
// supplies nothing. Column specs default to positional 0..3; the timestamp
// layout matches the common AMI export format.
func Default() Config {
	return Config{
		DatetimeColumn: "0",
		IDColumn:       "1",
		DataColumn:     "2",
		TimezoneColumn: "3",
		DatetimeFormat: "2006-01-02 15:04:05",

		LoadshapesCSV: "loadshapes.csv",
		GroupsCSV:     "groups.csv",
		FloatFormat:   "%.4g",

		FillMethod:  "ffill",
		Aggregation: "mean",
		GroupMethod: "kmeans",
		GroupSeed:   1,

		PNGFigsize:  "10x7",
		PNGFontsize: 14,

		LoadScale: 1000.0,
	}
}

// setter applies one configuration value onto the config under construction.
type setter func(*Config, string) error

func stringKey(dst func(*Config) *string) setter {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func intKey(dst func(*Config) *int) setter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%q is not an integer", v)
		}
		*dst(c) = n
		return nil
	}
}

func int64Key(dst func(*Config) *int64) setter {
	return func(c *Config, v string) error {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%q is not an integer", v)
		}
		*dst(c) = n
		return nil
	}
}

func floatKey(dst func(*Config) *float64) setter {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", v)
		}
		*dst(c) = f
		return nil
	}
}

func boolKey(dst func(*Config) *bool) setter {
	return func(c *Config, v string) error {
		b, err := ParseBoolString(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

// setters is the closed registry of valid configuration keys. Any key not
// listed here is an INVALID configuration error.
var setters = map[string]setter{
	"INPUT_CSV":       stringKey(func(c *Config) *string { return &c.InputCSV }),
	"DATETIME_COLUMN": stringKey(func(c *Config) *string { return &c.DatetimeColumn }),
	"ID_COLUMN":       stringKey(func(c *Config) *string { return &c.IDColumn }),
	"DATA_COLUMN":     stringKey(func(c *Config) *string { return &c.DataColumn }),
	"TIMEZONE_COLUMN": stringKey(func(c *Config) *string { return &c.TimezoneColumn }),
	"DATETIME_FORMAT": stringKey(func(c *Config) *string { return &c.DatetimeFormat }),

	"LOADSHAPES_CSV": stringKey(func(c *Config) *string { return &c.LoadshapesCSV }),
	"GROUPS_CSV":     stringKey(func(c *Config) *string { return &c.GroupsCSV }),
	"FLOAT_FORMAT":   stringKey(func(c *Config) *string { return &c.FloatFormat }),

	"RESAMPLE":     stringKey(func(c *Config) *string { return &c.Resample }),
	"FILL_METHOD":  stringKey(func(c *Config) *string { return &c.FillMethod }),
	"AGGREGATION":  stringKey(func(c *Config) *string { return &c.Aggregation }),
	"GROUP_METHOD": stringKey(func(c *Config) *string { return &c.GroupMethod }),
	"GROUP_COUNT":  intKey(func(c *Config) *int { return &c.GroupCount }),
	"GROUP_SEED":   int64Key(func(c *Config) *int64 { return &c.GroupSeed }),

	"OUTPUT_PNG":   stringKey(func(c *Config) *string { return &c.OutputPNG }),
	"PNG_FIGSIZE":  stringKey(func(c *Config) *string { return &c.PNGFigsize }),
	"PNG_FONTSIZE": intKey(func(c *Config) *int { return &c.PNGFontsize }),

	"LOADS_CSV":       stringKey(func(c *Config) *string { return &c.LoadsCSV }),
	"CLOCK_GLM":       stringKey(func(c *Config) *string { return &c.ClockGLM }),
	"SCHEDULES_GLM":   stringKey(func(c *Config) *string { return &c.SchedulesGLM }),
	"LOADS_GLM":       stringKey(func(c *Config) *string { return &c.LoadsGLM }),
	"LOAD_SCALE":      floatKey(func(c *Config) *float64 { return &c.LoadScale }),
	"LOADNAME_PREFIX": stringKey(func(c *Config) *string { return &c.LoadnamePrefix }),

	"ARCHIVE_FILE": stringKey(func(c *Config) *string { return &c.ArchiveFile }),

	"VERBOSE": boolKey(func(c *Config) *bool { return &c.Verbose }),
	"QUIET":   boolKey(func(c *Config) *bool { return &c.Quiet }),
}

// templateOrder lists the keys the template writer emits, grouped the way
// the registry is declared (maps do not preserve order).
var templateOrder = []string{
	"INPUT_CSV", "DATETIME_COLUMN", "ID_COLUMN", "DATA_COLUMN", "TIMEZONE_COLUMN", "DATETIME_FORMAT",
	"LOADSHAPES_CSV", "GROUPS_CSV", "FLOAT_FORMAT",
	"RESAMPLE", "FILL_METHOD", "AGGREGATION", "GROUP_METHOD", "GROUP_COUNT", "GROUP_SEED",
	"OUTPUT_PNG", "PNG_FIGSIZE", "PNG_FONTSIZE",
	"LOADS_CSV", "CLOCK_GLM", "SCHEDULES_GLM", "LOADS_GLM", "LOAD_SCALE", "LOADNAME_PREFIX",
	"ARCHIVE_FILE", "VERBOSE", "QUIET",
}

// ParseBoolString accepts integers and the yes/no/true/false words in any
// case.
func ParseBoolString(v string) (bool, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return n != 0, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true":
		return true, nil
	case "no", "false":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean string value", v)
}

// Load reads key,value rows from a config.csv file onto the defaults.
// Rows with only a key clear the value; extra fields beyond the first value
// are rejected.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, models.Failedf(err, "cannot read configuration")
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads configuration rows from r. See Load.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return Config{}, models.Invalidf("config.csv: %v", err)
	}

	for _, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		key := strings.TrimSpace(row[0])
		set, ok := setters[key]
		if !ok {
			return Config{}, models.Invalidf("config.csv: %s is not a valid configuration parameter", key)
		}
		value := ""
		if len(row) > 1 {
			value = row[1]
		}
		if len(row) > 2 {
			return Config{}, models.Invalidf("config.csv: %s has %d values, expected one", key, len(row)-1)
		}
		if err := set(&cfg, value); err != nil {
			return Config{}, models.Invalidf("config.csv: %s: %v", key, err)
		}
	}
	return cfg, nil
}

// Validate checks the cross-field and registry constraints that must hold
// before any computation starts.
func (c Config) Validate() error {
	if c.InputCSV == "" {
		return models.Invalidf("INPUT_CSV is required")
	}
	if c.GroupCount <= 0 {
		return models.Invalidf("group count must be a positive integer")
	}
	if _, err := engine.NewClusterer(c.GroupMethod, c.GroupSeed); err != nil {
		return err
	}
	if _, err := engine.AggregationByName(c.Aggregation); err != nil {
		return err
	}
	if _, err := engine.FillByName(c.FillMethod); err != nil {
		return err
	}
	switch c.Resample {
	case "", "1h":
	default:
		return models.Invalidf("resample directive %q is invalid (only hourly resampling is supported)", c.Resample)
	}
	if c.LoadsGLM != "" && c.LoadsCSV == "" {
		return models.Invalidf("cannot output GLM loads without LOADS_CSV defined")
	}
	return nil
}

// WriteTemplate writes a config.csv template populated with the defaults,
// used when the input folder carries no configuration.
func WriteTemplate(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return models.Failedf(err, "cannot write configuration template")
	}
	defer f.Close()

	def := Default()
	values := map[string]string{
		"INPUT_CSV":       def.InputCSV,
		"DATETIME_COLUMN": def.DatetimeColumn,
		"ID_COLUMN":       def.IDColumn,
		"DATA_COLUMN":     def.DataColumn,
		"TIMEZONE_COLUMN": def.TimezoneColumn,
		"DATETIME_FORMAT": def.DatetimeFormat,
		"LOADSHAPES_CSV":  def.LoadshapesCSV,
		"GROUPS_CSV":      def.GroupsCSV,
		"FLOAT_FORMAT":    def.FloatFormat,
		"RESAMPLE":        def.Resample,
		"FILL_METHOD":     def.FillMethod,
		"AGGREGATION":     def.Aggregation,
		"GROUP_METHOD":    def.GroupMethod,
		"GROUP_COUNT":     strconv.Itoa(def.GroupCount),
		"GROUP_SEED":      strconv.FormatInt(def.GroupSeed, 10),
		"OUTPUT_PNG":      def.OutputPNG,
		"PNG_FIGSIZE":     def.PNGFigsize,
		"PNG_FONTSIZE":    strconv.Itoa(def.PNGFontsize),
		"LOADS_CSV":       def.LoadsCSV,
		"CLOCK_GLM":       def.ClockGLM,
		"SCHEDULES_GLM":   def.SchedulesGLM,
		"LOADS_GLM":       def.LoadsGLM,
		"LOAD_SCALE":      strconv.FormatFloat(def.LoadScale, 'g', -1, 64),
		"LOADNAME_PREFIX": def.LoadnamePrefix,
		"ARCHIVE_FILE":    def.ArchiveFile,
		"VERBOSE":         "false",
		"QUIET":           "false",
	}
	for _, key := range templateOrder {
		if _, err := fmt.Fprintf(f, "%s,%s\n", key, values[key]); err != nil {
			return models.Failedf(err, "cannot write configuration template")
		}
	}
	return nil
}
