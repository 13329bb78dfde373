package config

import (
	"strings"
	"testing"

	"loadshape-platform/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		csv         string
		wantErr     bool
		checkValues func(*testing.T, Config)
	}{
		{
			name: "full configuration",
			csv: "INPUT_CSV,readings.csv\n" +
				"GROUP_COUNT,4\n" +
				"GROUP_SEED,7\n" +
				"AGGREGATION,median\n" +
				"RESAMPLE,1h\n" +
				"LOAD_SCALE,500\n" +
				"VERBOSE,yes\n",
			checkValues: func(t *testing.T, c Config) {
				if c.InputCSV != "readings.csv" {
					t.Errorf("InputCSV = %q, want readings.csv", c.InputCSV)
				}
				if c.GroupCount != 4 {
					t.Errorf("GroupCount = %d, want 4", c.GroupCount)
				}
				if c.GroupSeed != 7 {
					t.Errorf("GroupSeed = %d, want 7", c.GroupSeed)
				}
				if c.Aggregation != "median" {
					t.Errorf("Aggregation = %q, want median", c.Aggregation)
				}
				if c.Resample != "1h" {
					t.Errorf("Resample = %q, want 1h", c.Resample)
				}
				if c.LoadScale != 500 {
					t.Errorf("LoadScale = %v, want 500", c.LoadScale)
				}
				if !c.Verbose {
					t.Error("Verbose = false, want true")
				}
			},
		},
		{
			name: "defaults survive an empty file",
			csv:  "",
			checkValues: func(t *testing.T, c Config) {
				def := Default()
				if c.LoadshapesCSV != def.LoadshapesCSV {
					t.Errorf("LoadshapesCSV = %q, want %q", c.LoadshapesCSV, def.LoadshapesCSV)
				}
				if c.FillMethod != "ffill" {
					t.Errorf("FillMethod = %q, want ffill", c.FillMethod)
				}
				if c.GroupSeed != 1 {
					t.Errorf("GroupSeed = %d, want 1", c.GroupSeed)
				}
			},
		},
		{
			name: "key with no value clears the default",
			csv:  "LOADSHAPES_CSV\n",
			checkValues: func(t *testing.T, c Config) {
				if c.LoadshapesCSV != "" {
					t.Errorf("LoadshapesCSV = %q, want empty", c.LoadshapesCSV)
				}
			},
		},
		{
			name:    "unknown key is invalid",
			csv:     "NOT_A_KEY,value\n",
			wantErr: true,
		},
		{
			name:    "extra fields are invalid",
			csv:     "INPUT_CSV,a.csv,b.csv\n",
			wantErr: true,
		},
		{
			name:    "non-integer group count is invalid",
			csv:     "GROUP_COUNT,four\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(strings.NewReader(tt.csv))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if models.ExitCodeFor(err) != models.ExitInvalid {
					t.Errorf("exit code = %d, want %d", models.ExitCodeFor(err), models.ExitInvalid)
				}
				return
			}
			if tt.checkValues != nil {
				tt.checkValues(t, cfg)
			}
		})
	}
}

func TestParseBoolString(t *testing.T) {
	tests := []struct {
		value   string
		want    bool
		wantErr bool
	}{
		{value: "1", want: true},
		{value: "0", want: false},
		{value: "-1", want: true},
		{value: "yes", want: true},
		{value: "No", want: false},
		{value: "TRUE", want: true},
		{value: "false", want: false},
		{value: "maybe", wantErr: true},
		{value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseBoolString(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBoolString(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseBoolString(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.InputCSV = "readings.csv"
	valid.GroupCount = 3

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing input", mutate: func(c *Config) { c.InputCSV = "" }, wantErr: true},
		{name: "zero group count", mutate: func(c *Config) { c.GroupCount = 0 }, wantErr: true},
		{name: "negative group count", mutate: func(c *Config) { c.GroupCount = -1 }, wantErr: true},
		{name: "unknown group method", mutate: func(c *Config) { c.GroupMethod = "spectral" }, wantErr: true},
		{name: "unknown aggregation", mutate: func(c *Config) { c.Aggregation = "mode" }, wantErr: true},
		{name: "unknown fill method", mutate: func(c *Config) { c.FillMethod = "bfill" }, wantErr: true},
		{name: "unsupported resample", mutate: func(c *Config) { c.Resample = "15m" }, wantErr: true},
		{name: "hourly resample accepted", mutate: func(c *Config) { c.Resample = "1h" }},
		{name: "loads glm without loads csv", mutate: func(c *Config) { c.LoadsGLM = "loads.glm" }, wantErr: true},
		{name: "loads glm with loads csv", mutate: func(c *Config) {
			c.LoadsGLM = "loads.glm"
			c.LoadsCSV = "loads.csv"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && models.ExitCodeFor(err) != models.ExitInvalid {
				t.Errorf("exit code = %d, want %d", models.ExitCodeFor(err), models.ExitInvalid)
			}
		})
	}
}
