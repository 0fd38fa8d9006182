package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/ecg-tools-mcp/internal/diagnosis"
	"github.com/ironsheep/ecg-tools-mcp/internal/digitize"
)

// writeConfig writes content to a temp YAML file and points ECG_MCP_CONFIG
// at it.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecg-mcp.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(EnvConfigFile, path)
	return path
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDefault_PipelineOptions(t *testing.T) {
	opts, err := Default().PipelineOptions()
	if err != nil {
		t.Fatalf("PipelineOptions failed: %v", err)
	}
	if diff := cmp.Diff(digitize.DefaultOptions(), opts); diff != "" {
		t.Errorf("options differ from digitizer defaults (-want +got):\n%s", diff)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	writeConfig(t, `
paper:
  speed_mm_per_sec: 50
extract:
  layout: 3x4
  baseline: center
  sampling_rate: 250
diagnosis:
  criterion: a
`)
	t.Setenv("ECG_MCP_EXTRACT_SAMPLING_RATE", "1000")
	t.Setenv("ECG_MCP_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"paper speed from file", cfg.Paper.SpeedMMPerSec, 50.0},
		{"gain default", cfg.Paper.GainMMPerMV, 10.0},
		{"layout from file", cfg.Extract.Layout, "3x4"},
		{"baseline from file", cfg.Extract.Baseline, "center"},
		{"sampling rate from env", cfg.Extract.SamplingRate, 1000.0},
		{"log level from env", cfg.Log.Level, "debug"},
		{"criterion from file", cfg.Diagnosis.Criterion, "a"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	opts, err := cfg.PipelineOptions()
	if err != nil {
		t.Fatalf("PipelineOptions failed: %v", err)
	}
	if opts.Extract.Layout.Name != "3x4" || opts.Extract.PaperSpeed != 50 || opts.Extract.Baseline != digitize.BaselineCenter {
		t.Errorf("PipelineOptions: got %+v", opts.Extract)
	}

	c, err := cfg.Criterion()
	if err != nil || c.Name != diagnosis.CriterionA.Name {
		t.Errorf("Criterion: got %+v, %v", c, err)
	}
}

func TestLoad_CustomRegions(t *testing.T) {
	writeConfig(t, `
extract:
  regions:
    - lead: II
      left: 0
      top: 0
      right: 1
      bottom: 0.5
    - lead: V5
      left: 0
      top: 0.5
      right: 1
      bottom: 1
`)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	layout, err := cfg.Layout()
	if err != nil {
		t.Fatalf("Layout failed: %v", err)
	}
	if diff := cmp.Diff([]string{"II", "V5"}, layout.Leads()); diff != "" {
		t.Errorf("leads (-want +got):\n%s", diff)
	}
	if layout.Regions[1].Top != 0.5 {
		t.Errorf("V5 region: got %+v", layout.Regions[1])
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantField string
	}{
		{"unknown baseline", "extract:\n  baseline: mean\n", "extract.baseline"},
		{"negative speed", "paper:\n  speed_mm_per_sec: -25\n", "paper.speedmmpersec"},
		{"unknown criterion", "diagnosis:\n  criterion: c\n", "diagnosis.criterion"},
		{"fine step above coarse", "orientation:\n  fine_step: 1\n", "orientation.finestep"},
		{"bad overlay color", "server:\n  overlay_color: blue\n", "server.overlaycolor"},
		{"unknown layout", "extract:\n  layout: 4x3\n", "extract.layout"},
		{"region without lead", "extract:\n  regions:\n    - right: 1\n      bottom: 1\n", "extract.regions[0].lead"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, tt.content)
			_, err := Load()
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("got %v, want ValidationErrors", err)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error %q does not name %s", err, tt.wantField)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDefault(&buf); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}
	if !strings.Contains(buf.String(), "sampling_rate: 500") {
		t.Errorf("YAML lacks sampling_rate:\n%s", buf.String())
	}

	path := writeConfig(t, "")
	if err := Save(path, Default()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestModelThreshold(t *testing.T) {
	cfg := Default()
	cfg.Diagnosis.STEThreshold = 0.6

	tests := []struct {
		condition diagnosis.Diagnosis
		want      float64
	}{
		{diagnosis.BenignEarlyRepolarization, 0.7},
		{diagnosis.MyocardialInfarction, 0.5},
		{diagnosis.STElevation, 0.6},
	}
	for _, tt := range tests {
		if got := cfg.ModelThreshold(tt.condition); got != tt.want {
			t.Errorf("%v: got %v, want %v", tt.condition, got, tt.want)
		}
	}
}

func TestCriterion_Unset(t *testing.T) {
	if _, err := Default().Criterion(); !errors.Is(err, diagnosis.ErrNoCriterion) {
		t.Errorf("got %v, want ErrNoCriterion", err)
	}
}
