package digitize

import "fmt"

// OrientationOptions configures HoughOrientation.
type OrientationOptions struct {
	// MaxSkewDegrees bounds the angle search. Strips are assumed cropped and
	// roughly level; larger tilts are not searched.
	MaxSkewDegrees float64
	CoarseStep     float64
	FineStep       float64

	// EdgeThreshold is the minimum Sobel magnitude (luminance units) of an
	// edge pixel.
	EdgeThreshold float64

	// MinEdgePixels is the fewest near-horizontal edge pixels that make an
	// estimate.
	MinEdgePixels int

	// MinPeakRatio is the lowest acceptable peak-to-median energy ratio.
	MinPeakRatio float64

	// MinRotation is the smallest |skew| that triggers a resample.
	MinRotation float64
}

// GridOptions configures AutocorrelationGrid.
type GridOptions struct {
	// GridSpacingMM is the physical pitch of the finest printed grid.
	GridSpacingMM float64

	// ChromaThreshold and MinChromaFraction decide whether the grid is
	// printed in color: at least MinChromaFraction of the pixels must have
	// HSV saturation >= ChromaThreshold.
	ChromaThreshold   float64
	MinChromaFraction float64

	// InkLevel is the luminance below which a pixel of a grayscale strip is
	// treated as trace ink and excluded from the grid profiles.
	InkLevel float64

	// MinPeriod is the smallest grid period in pixels.
	MinPeriod int

	// PeakThreshold is the lowest normalised autocorrelation of a peak.
	PeakThreshold float64

	// MinCandidates is the fewest agreeing peaks per axis.
	MinCandidates int

	// MaxSpread is the largest accepted median absolute deviation of the
	// candidates, relative to the period.
	MaxSpread float64
}

// BinarizeOptions configures AdaptiveBinarizer.
type BinarizeOptions struct {
	// BlurRadius is the Gaussian radius, in pixels, of the local background
	// estimate.
	BlurRadius float64

	// InkRatio: a pixel is ink when it is at most InkRatio times its local
	// background.
	InkRatio float64

	// MaxInkLevel is the brightest value (0-1) a pixel may have and still be
	// ink.
	MaxInkLevel float64

	ChromaThreshold   float64
	MinChromaFraction float64
}

// BaselineMode chooses how the 0 mV row of a lead is found.
type BaselineMode string

const (
	// BaselineMedian uses the median trace row of the lead.
	BaselineMedian BaselineMode = "median"

	// BaselineCenter uses the vertical centre of the lead region.
	BaselineCenter BaselineMode = "center"
)

// ExtractOptions configures ColumnTraceExtractor.
type ExtractOptions struct {
	Layout   Layout
	Baseline BaselineMode

	// MaxGapColumns is the longest run of empty columns that is bridged by
	// interpolation.
	MaxGapColumns int

	// SamplingRate is the output rate in Hz.
	SamplingRate float64

	// PaperSpeed is in mm/s, Gain in mm/mV.
	PaperSpeed float64
	Gain       float64
}

// Options groups the configuration of every stage.
type Options struct {
	Orientation OrientationOptions
	Grid        GridOptions
	Binarize    BinarizeOptions
	Extract     ExtractOptions
}

// DefaultOptions returns the settings for standard 25 mm/s, 10 mm/mV paper
// with a 1 mm grid, extracted as a single lead.
func DefaultOptions() Options {
	return Options{
		Orientation: OrientationOptions{
			MaxSkewDegrees: 15,
			CoarseStep:     0.5,
			FineStep:       0.02,
			EdgeThreshold:  0.1,
			MinEdgePixels:  64,
			MinPeakRatio:   1.5,
			MinRotation:    0.05,
		},
		Grid: GridOptions{
			GridSpacingMM:     1,
			ChromaThreshold:   0.15,
			MinChromaFraction: 0.005,
			InkLevel:          0.35,
			MinPeriod:         3,
			PeakThreshold:     0.1,
			MinCandidates:     2,
			MaxSpread:         0.1,
		},
		Binarize: BinarizeOptions{
			BlurRadius:        12,
			InkRatio:          0.5,
			MaxInkLevel:       0.6,
			ChromaThreshold:   0.15,
			MinChromaFraction: 0.005,
		},
		Extract: ExtractOptions{
			Layout:        SingleLead,
			Baseline:      BaselineMedian,
			MaxGapColumns: 20,
			SamplingRate:  500,
			PaperSpeed:    25,
			Gain:          10,
		},
	}
}

// Validate checks the options for values no stage can work with.
func (o Options) Validate() error {
	switch {
	case o.Orientation.CoarseStep <= 0 || o.Orientation.FineStep <= 0:
		return fmt.Errorf("orientation steps must be positive")
	case o.Orientation.MaxSkewDegrees < 0 || o.Orientation.MaxSkewDegrees > 45:
		return fmt.Errorf("orientation max skew %.2f outside [0, 45]", o.Orientation.MaxSkewDegrees)
	case o.Grid.GridSpacingMM <= 0:
		return fmt.Errorf("grid spacing must be positive")
	case o.Grid.MinCandidates < 1:
		return fmt.Errorf("grid min candidates must be at least 1")
	case o.Binarize.BlurRadius <= 0:
		return fmt.Errorf("binarize blur radius must be positive")
	case o.Binarize.InkRatio <= 0 || o.Binarize.InkRatio > 1:
		return fmt.Errorf("binarize ink ratio %.2f outside (0, 1]", o.Binarize.InkRatio)
	}
	return o.Extract.Validate()
}

// Validate checks the extraction options.
func (o ExtractOptions) Validate() error {
	switch {
	case !(o.SamplingRate > 0):
		return fmt.Errorf("sampling rate must be positive")
	case !(o.PaperSpeed > 0):
		return fmt.Errorf("paper speed must be positive")
	case !(o.Gain > 0):
		return fmt.Errorf("gain must be positive")
	case o.MaxGapColumns < 0:
		return fmt.Errorf("max gap columns must not be negative")
	case o.Baseline != BaselineMedian && o.Baseline != BaselineCenter:
		return fmt.Errorf("unknown baseline mode %q", o.Baseline)
	}
	return o.Layout.Validate()
}
