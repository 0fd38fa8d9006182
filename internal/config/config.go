package config

import (
	"fmt"

	"github.com/ironsheep/ecg-tools-mcp/internal/diagnosis"
	"github.com/ironsheep/ecg-tools-mcp/internal/digitize"
)

// Config holds all configuration of the ECG tools server.
type Config struct {
	Paper       PaperConfig       `mapstructure:"paper" yaml:"paper"`
	Orientation OrientationConfig `mapstructure:"orientation" yaml:"orientation"`
	Grid        GridConfig        `mapstructure:"grid" yaml:"grid"`
	Binarize    BinarizeConfig    `mapstructure:"binarize" yaml:"binarize"`
	Extract     ExtractConfig     `mapstructure:"extract" yaml:"extract"`
	Diagnosis   DiagnosisConfig   `mapstructure:"diagnosis" yaml:"diagnosis"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// PaperConfig describes the physical recording settings of the strip.
type PaperConfig struct {
	SpeedMMPerSec float64 `mapstructure:"speed_mm_per_sec" yaml:"speed_mm_per_sec" validate:"gt=0"`
	GainMMPerMV   float64 `mapstructure:"gain_mm_per_mv" yaml:"gain_mm_per_mv" validate:"gt=0"`
	GridSpacingMM float64 `mapstructure:"grid_spacing_mm" yaml:"grid_spacing_mm" validate:"gt=0"`
}

// OrientationConfig tunes skew detection.
type OrientationConfig struct {
	MaxSkewDegrees float64 `mapstructure:"max_skew_degrees" yaml:"max_skew_degrees" validate:"gte=0,lte=45"`
	CoarseStep     float64 `mapstructure:"coarse_step" yaml:"coarse_step" validate:"gt=0"`
	FineStep       float64 `mapstructure:"fine_step" yaml:"fine_step" validate:"gt=0,ltefield=CoarseStep"`
	EdgeThreshold  float64 `mapstructure:"edge_threshold" yaml:"edge_threshold" validate:"gt=0"`
	MinEdgePixels  int     `mapstructure:"min_edge_pixels" yaml:"min_edge_pixels" validate:"gte=1"`
	MinPeakRatio   float64 `mapstructure:"min_peak_ratio" yaml:"min_peak_ratio" validate:"gte=1"`
	MinRotation    float64 `mapstructure:"min_rotation" yaml:"min_rotation" validate:"gte=0"`
}

// GridConfig tunes grid detection.
type GridConfig struct {
	ChromaThreshold   float64 `mapstructure:"chroma_threshold" yaml:"chroma_threshold" validate:"gt=0,lte=1"`
	MinChromaFraction float64 `mapstructure:"min_chroma_fraction" yaml:"min_chroma_fraction" validate:"gt=0,lt=1"`
	InkLevel          float64 `mapstructure:"ink_level" yaml:"ink_level" validate:"gt=0,lt=1"`
	MinPeriod         int     `mapstructure:"min_period" yaml:"min_period" validate:"gte=2"`
	PeakThreshold     float64 `mapstructure:"peak_threshold" yaml:"peak_threshold" validate:"gt=0,lt=1"`
	MinCandidates     int     `mapstructure:"min_candidates" yaml:"min_candidates" validate:"gte=1"`
	MaxSpread         float64 `mapstructure:"max_spread" yaml:"max_spread" validate:"gt=0"`
}

// BinarizeConfig tunes ink separation.
type BinarizeConfig struct {
	BlurRadius  float64 `mapstructure:"blur_radius" yaml:"blur_radius" validate:"gt=0"`
	InkRatio    float64 `mapstructure:"ink_ratio" yaml:"ink_ratio" validate:"gt=0,lte=1"`
	MaxInkLevel float64 `mapstructure:"max_ink_level" yaml:"max_ink_level" validate:"gt=0,lte=1"`
}

// ExtractConfig tunes trace extraction. Regions, when set, replace the
// named Layout.
type ExtractConfig struct {
	Layout        string                `mapstructure:"layout" yaml:"layout"`
	Regions       []digitize.LeadRegion `mapstructure:"regions" yaml:"regions,omitempty" validate:"dive"`
	Baseline      string                `mapstructure:"baseline" yaml:"baseline" validate:"oneof=median center"`
	MaxGapColumns int                   `mapstructure:"max_gap_columns" yaml:"max_gap_columns" validate:"gte=0"`
	SamplingRate  float64               `mapstructure:"sampling_rate" yaml:"sampling_rate" validate:"gt=0"`
}

// DiagnosisConfig selects the STEMI criterion and network thresholds.
type DiagnosisConfig struct {
	// Criterion names a diagnosis.LinearCriterion preset. Empty disables the
	// criterion-based diagnosis.
	Criterion string `mapstructure:"criterion" yaml:"criterion" validate:"omitempty,oneof=a b"`

	BERThreshold float64 `mapstructure:"ber_threshold" yaml:"ber_threshold" validate:"gt=0,lte=1"`
	MIThreshold  float64 `mapstructure:"mi_threshold" yaml:"mi_threshold" validate:"gt=0,lte=1"`
	STEThreshold float64 `mapstructure:"ste_threshold" yaml:"ste_threshold" validate:"gt=0,lte=1"`
}

// ServerConfig tunes the MCP tool outputs.
type ServerConfig struct {
	PlotWidth    int    `mapstructure:"plot_width" yaml:"plot_width" validate:"gte=100,lte=8000"`
	PlotHeight   int    `mapstructure:"plot_height" yaml:"plot_height" validate:"gte=100,lte=8000"`
	OverlayColor string `mapstructure:"overlay_color" yaml:"overlay_color" validate:"hexcolor"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json console"`
}

// Default returns the configuration for standard 25 mm/s, 10 mm/mV paper.
func Default() *Config {
	d := digitize.DefaultOptions()
	return &Config{
		Paper: PaperConfig{
			SpeedMMPerSec: d.Extract.PaperSpeed,
			GainMMPerMV:   d.Extract.Gain,
			GridSpacingMM: d.Grid.GridSpacingMM,
		},
		Orientation: OrientationConfig{
			MaxSkewDegrees: d.Orientation.MaxSkewDegrees,
			CoarseStep:     d.Orientation.CoarseStep,
			FineStep:       d.Orientation.FineStep,
			EdgeThreshold:  d.Orientation.EdgeThreshold,
			MinEdgePixels:  d.Orientation.MinEdgePixels,
			MinPeakRatio:   d.Orientation.MinPeakRatio,
			MinRotation:    d.Orientation.MinRotation,
		},
		Grid: GridConfig{
			ChromaThreshold:   d.Grid.ChromaThreshold,
			MinChromaFraction: d.Grid.MinChromaFraction,
			InkLevel:          d.Grid.InkLevel,
			MinPeriod:         d.Grid.MinPeriod,
			PeakThreshold:     d.Grid.PeakThreshold,
			MinCandidates:     d.Grid.MinCandidates,
			MaxSpread:         d.Grid.MaxSpread,
		},
		Binarize: BinarizeConfig{
			BlurRadius:  d.Binarize.BlurRadius,
			InkRatio:    d.Binarize.InkRatio,
			MaxInkLevel: d.Binarize.MaxInkLevel,
		},
		Extract: ExtractConfig{
			Layout:        d.Extract.Layout.Name,
			Baseline:      string(d.Extract.Baseline),
			MaxGapColumns: d.Extract.MaxGapColumns,
			SamplingRate:  d.Extract.SamplingRate,
		},
		Diagnosis: DiagnosisConfig{
			BERThreshold: diagnosis.DefaultThreshold(diagnosis.BenignEarlyRepolarization),
			MIThreshold:  diagnosis.DefaultThreshold(diagnosis.MyocardialInfarction),
			STEThreshold: diagnosis.DefaultThreshold(diagnosis.STElevation),
		},
		Server: ServerConfig{
			PlotWidth:    1200,
			PlotHeight:   800,
			OverlayColor: "#0000ff",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Layout resolves the configured lead layout.
func (c *Config) Layout() (digitize.Layout, error) {
	if len(c.Extract.Regions) > 0 {
		l := digitize.Layout{Name: "custom", Regions: c.Extract.Regions}
		return l, l.Validate()
	}
	return digitize.LayoutByName(c.Extract.Layout)
}

// PipelineOptions converts the configuration to digitizer options.
func (c *Config) PipelineOptions() (digitize.Options, error) {
	layout, err := c.Layout()
	if err != nil {
		return digitize.Options{}, err
	}

	opts := digitize.Options{
		Orientation: digitize.OrientationOptions{
			MaxSkewDegrees: c.Orientation.MaxSkewDegrees,
			CoarseStep:     c.Orientation.CoarseStep,
			FineStep:       c.Orientation.FineStep,
			EdgeThreshold:  c.Orientation.EdgeThreshold,
			MinEdgePixels:  c.Orientation.MinEdgePixels,
			MinPeakRatio:   c.Orientation.MinPeakRatio,
			MinRotation:    c.Orientation.MinRotation,
		},
		Grid: digitize.GridOptions{
			GridSpacingMM:     c.Paper.GridSpacingMM,
			ChromaThreshold:   c.Grid.ChromaThreshold,
			MinChromaFraction: c.Grid.MinChromaFraction,
			InkLevel:          c.Grid.InkLevel,
			MinPeriod:         c.Grid.MinPeriod,
			PeakThreshold:     c.Grid.PeakThreshold,
			MinCandidates:     c.Grid.MinCandidates,
			MaxSpread:         c.Grid.MaxSpread,
		},
		Binarize: digitize.BinarizeOptions{
			BlurRadius:        c.Binarize.BlurRadius,
			InkRatio:          c.Binarize.InkRatio,
			MaxInkLevel:       c.Binarize.MaxInkLevel,
			ChromaThreshold:   c.Grid.ChromaThreshold,
			MinChromaFraction: c.Grid.MinChromaFraction,
		},
		Extract: digitize.ExtractOptions{
			Layout:        layout,
			Baseline:      digitize.BaselineMode(c.Extract.Baseline),
			MaxGapColumns: c.Extract.MaxGapColumns,
			SamplingRate:  c.Extract.SamplingRate,
			PaperSpeed:    c.Paper.SpeedMMPerSec,
			Gain:          c.Paper.GainMMPerMV,
		},
	}
	if err := opts.Validate(); err != nil {
		return digitize.Options{}, fmt.Errorf("invalid pipeline options: %w", err)
	}
	return opts, nil
}

// Criterion returns the selected STEMI criterion, or diagnosis.ErrNoCriterion
// when none is configured.
func (c *Config) Criterion() (diagnosis.LinearCriterion, error) {
	return diagnosis.CriterionByName(c.Diagnosis.Criterion)
}

// ModelThreshold returns the configured probability threshold of a
// network-diagnosed condition.
func (c *Config) ModelThreshold(condition diagnosis.Diagnosis) float64 {
	switch condition {
	case diagnosis.BenignEarlyRepolarization:
		return c.Diagnosis.BERThreshold
	case diagnosis.MyocardialInfarction:
		return c.Diagnosis.MIThreshold
	case diagnosis.STElevation:
		return c.Diagnosis.STEThreshold
	default:
		return diagnosis.DefaultThreshold(condition)
	}
}
