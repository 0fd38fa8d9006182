package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// ECG_MCP_EXTRACT_SAMPLING_RATE.
	EnvPrefix = "ECG_MCP"

	// EnvConfigFile names an explicit configuration file.
	EnvConfigFile = "ECG_MCP_CONFIG"

	// DefaultFileName is looked up in the working directory when
	// EnvConfigFile is unset.
	DefaultFileName = "ecg-mcp"
)

var validate = validator.New()

// Load reads the configuration: defaults, then the YAML file, then
// environment overrides. The result is validated.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := os.Getenv(EnvConfigFile)
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(DefaultFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	// Paper
	v.SetDefault("paper.speed_mm_per_sec", d.Paper.SpeedMMPerSec)
	v.SetDefault("paper.gain_mm_per_mv", d.Paper.GainMMPerMV)
	v.SetDefault("paper.grid_spacing_mm", d.Paper.GridSpacingMM)

	// Orientation
	v.SetDefault("orientation.max_skew_degrees", d.Orientation.MaxSkewDegrees)
	v.SetDefault("orientation.coarse_step", d.Orientation.CoarseStep)
	v.SetDefault("orientation.fine_step", d.Orientation.FineStep)
	v.SetDefault("orientation.edge_threshold", d.Orientation.EdgeThreshold)
	v.SetDefault("orientation.min_edge_pixels", d.Orientation.MinEdgePixels)
	v.SetDefault("orientation.min_peak_ratio", d.Orientation.MinPeakRatio)
	v.SetDefault("orientation.min_rotation", d.Orientation.MinRotation)

	// Grid
	v.SetDefault("grid.chroma_threshold", d.Grid.ChromaThreshold)
	v.SetDefault("grid.min_chroma_fraction", d.Grid.MinChromaFraction)
	v.SetDefault("grid.ink_level", d.Grid.InkLevel)
	v.SetDefault("grid.min_period", d.Grid.MinPeriod)
	v.SetDefault("grid.peak_threshold", d.Grid.PeakThreshold)
	v.SetDefault("grid.min_candidates", d.Grid.MinCandidates)
	v.SetDefault("grid.max_spread", d.Grid.MaxSpread)

	// Binarize
	v.SetDefault("binarize.blur_radius", d.Binarize.BlurRadius)
	v.SetDefault("binarize.ink_ratio", d.Binarize.InkRatio)
	v.SetDefault("binarize.max_ink_level", d.Binarize.MaxInkLevel)

	// Extract
	v.SetDefault("extract.layout", d.Extract.Layout)
	v.SetDefault("extract.baseline", d.Extract.Baseline)
	v.SetDefault("extract.max_gap_columns", d.Extract.MaxGapColumns)
	v.SetDefault("extract.sampling_rate", d.Extract.SamplingRate)

	// Diagnosis
	v.SetDefault("diagnosis.criterion", d.Diagnosis.Criterion)
	v.SetDefault("diagnosis.ber_threshold", d.Diagnosis.BERThreshold)
	v.SetDefault("diagnosis.mi_threshold", d.Diagnosis.MIThreshold)
	v.SetDefault("diagnosis.ste_threshold", d.Diagnosis.STEThreshold)

	// Server
	v.SetDefault("server.plot_width", d.Server.PlotWidth)
	v.SetDefault("server.plot_height", d.Server.PlotHeight)
	v.SetDefault("server.overlay_color", d.Server.OverlayColor)

	// Logging
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// ValidationErrors lists every field that failed validation.
type ValidationErrors []FieldError

// FieldError is one failed field, named by its config key.
type FieldError struct {
	Field   string
	Message string
}

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Validate checks field constraints and that the layout resolves.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate config: %w", err)
		}
		out := make(ValidationErrors, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{Field: fieldKey(fe.Namespace()), Message: message(fe)})
		}
		return out
	}
	if _, err := c.Layout(); err != nil {
		return ValidationErrors{{Field: "extract.layout", Message: err.Error()}}
	}
	return nil
}

// fieldKey turns "Config.Extract.SamplingRate" into "extract.samplingrate".
// Close enough to the config key to find the offending line.
func fieldKey(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	}
	return strings.ToLower(namespace)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "ltefield":
		return fmt.Sprintf("must not exceed %s", strings.ToLower(fe.Param()))
	case "hexcolor":
		return "must be a hex color such as #0000ff"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

// Write encodes cfg as YAML.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// WriteDefault writes the default configuration as YAML.
func WriteDefault(w io.Writer) error {
	return Write(w, Default())
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if err := Write(f, cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
