package digitize

import (
	"fmt"
	"image"

	"github.com/ironsheep/ecg-tools-mcp/internal/detection"
	ecgimaging "github.com/ironsheep/ecg-tools-mcp/internal/imaging"
)

// GridDetector measures the physical scale of an oriented strip.
type GridDetector interface {
	DetectGrid(img image.Image) (GridScale, error)
}

// GridAnalysis is the full result of grid detection, for diagnostics.
type GridAnalysis struct {
	Scale GridScale `json:"scale"`

	// Chromatic reports whether the grid was located by color.
	Chromatic bool `json:"chromatic"`

	// Horizontal is the period estimate of the column profile (vertical grid
	// lines), Vertical that of the row profile.
	Horizontal *detection.PeriodEstimate `json:"horizontal"`
	Vertical   *detection.PeriodEstimate `json:"vertical"`
}

// AutocorrelationGrid finds the grid pitch from the autocorrelation of
// row and column profiles.
type AutocorrelationGrid struct {
	opts GridOptions
}

// NewAutocorrelationGrid returns a grid detector with the given options.
func NewAutocorrelationGrid(opts GridOptions) *AutocorrelationGrid {
	return &AutocorrelationGrid{opts: opts}
}

// DetectGrid returns pixels per millimetre on both axes.
func (g *AutocorrelationGrid) DetectGrid(img image.Image) (GridScale, error) {
	a, err := g.Analyze(img)
	if err != nil {
		return GridScale{}, err
	}
	return a.Scale, nil
}

// Analyze runs grid detection and keeps the intermediate estimates.
//
// Only grid evidence enters the profiles: on a color strip the weight of a
// pixel is its saturation, on a grayscale strip its darkness, with pixels dark
// enough to be trace ink excluded. Trace ink therefore never biases the scale.
func (g *AutocorrelationGrid) Analyze(img image.Image) (*GridAnalysis, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}

	chroma := ecgimaging.AnalyzeChroma(img, g.opts.ChromaThreshold, minChromaValue)
	chromatic := chroma.Fraction >= g.opts.MinChromaFraction
	cols, rows := g.profiles(img, chromatic)

	horizontal, err := g.axisPeriod(cols, "horizontal")
	if err != nil {
		return nil, err
	}
	vertical, err := g.axisPeriod(rows, "vertical")
	if err != nil {
		return nil, err
	}

	scale := GridScale{
		PixelsPerMMX: horizontal.Period / g.opts.GridSpacingMM,
		PixelsPerMMY: vertical.Period / g.opts.GridSpacingMM,
	}
	if err := scale.Validate(); err != nil {
		return nil, err
	}

	return &GridAnalysis{
		Scale:      scale,
		Chromatic:  chromatic,
		Horizontal: horizontal,
		Vertical:   vertical,
	}, nil
}

// minChromaValue keeps dark saturated ink (blue pens) out of the grid weight.
const minChromaValue = 0.3

// profiles sums the grid weight map over rows (giving one value per column)
// and over columns (one value per row).
func (g *AutocorrelationGrid) profiles(img image.Image, chromatic bool) (cols, rows []float64) {
	b := img.Bounds()
	cols = make([]float64, b.Dx())
	rows = make([]float64, b.Dy())

	var lum [][]float64
	if !chromatic {
		lum = ecgimaging.Luminance(img)
	}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			var w float64
			if chromatic {
				s, v := ecgimaging.HSV(img.At(b.Min.X+x, b.Min.Y+y))
				if v >= minChromaValue {
					w = s
				}
			} else if l := lum[y][x]; l >= g.opts.InkLevel {
				w = 1 - l
			}
			cols[x] += w
			rows[y] += w
		}
	}
	return cols, rows
}

func (g *AutocorrelationGrid) axisPeriod(profile []float64, axis string) (*detection.PeriodEstimate, error) {
	est, err := detection.EstimatePeriod(profile, g.opts.MinPeriod, g.opts.PeakThreshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %s grid: %v", ErrCalibration, axis, err)
	}
	if len(est.Candidates) < g.opts.MinCandidates {
		return nil, fmt.Errorf("%w: %s grid: %d consistent peaks, need %d",
			ErrCalibration, axis, len(est.Candidates), g.opts.MinCandidates)
	}
	if est.Spread > g.opts.MaxSpread {
		return nil, fmt.Errorf("%w: %s grid: period spread %.3f exceeds %.3f",
			ErrCalibration, axis, est.Spread, g.opts.MaxSpread)
	}
	return est, nil
}
