package digitize

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/ecg-tools-mcp/internal/detection"
	ecgimaging "github.com/ironsheep/ecg-tools-mcp/internal/imaging"
)

// OrientationCorrector levels a strip image.
type OrientationCorrector interface {
	CorrectOrientation(img image.Image) (image.Image, Orientation, error)
}

// HoughOrientation estimates skew from near-horizontal edges and removes it
// by rotation.
type HoughOrientation struct {
	opts OrientationOptions
}

// NewHoughOrientation returns a corrector with the given options.
func NewHoughOrientation(opts OrientationOptions) *HoughOrientation {
	return &HoughOrientation{opts: opts}
}

// Estimate measures the skew of img without rotating it.
func (h *HoughOrientation) Estimate(img image.Image) (Orientation, error) {
	if err := checkImage(img); err != nil {
		return Orientation{}, err
	}

	edges := ecgimaging.DirectionalEdges(img, h.opts.EdgeThreshold, ecgimaging.HorizontalStructures)
	points := detection.EdgePoints(edges)
	if len(points) < h.opts.MinEdgePixels {
		return Orientation{}, fmt.Errorf("%w: %d near-horizontal edge pixels, need %d",
			ErrCalibration, len(points), h.opts.MinEdgePixels)
	}

	b := img.Bounds()
	skew, err := detection.DetectSkew(points, b.Dx(), b.Dy(), detection.SkewScan{
		MaxDegrees: h.opts.MaxSkewDegrees,
		CoarseStep: h.opts.CoarseStep,
		FineStep:   h.opts.FineStep,
	})
	if err != nil {
		return Orientation{}, fmt.Errorf("%w: %v", ErrCalibration, err)
	}
	if skew.Confidence < h.opts.MinPeakRatio {
		return Orientation{}, fmt.Errorf("%w: no dominant line direction (peak ratio %.2f < %.2f)",
			ErrCalibration, skew.Confidence, h.opts.MinPeakRatio)
	}

	return Orientation{SkewDegrees: skew.AngleDegrees, Confidence: skew.Confidence}, nil
}

// CorrectOrientation returns a levelled copy of img.
//
// The rotation uses bilinear interpolation, so output intensities stay within
// the input range. The rotated canvas is cropped about its centre back to the
// input size, so the mask and lead regions keep the strip's dimensions;
// uncovered corners are white paper. Skews below MinRotation are not
// resampled, which keeps an already level image pixel-identical.
func (h *HoughOrientation) CorrectOrientation(img image.Image) (image.Image, Orientation, error) {
	o, err := h.Estimate(img)
	if err != nil {
		return nil, Orientation{}, err
	}
	if math.Abs(o.SkewDegrees) < h.opts.MinRotation {
		return imaging.Clone(img), o, nil
	}
	o.Applied = true
	b := img.Bounds()
	rotated := imaging.Rotate(img, -o.SkewDegrees, color.White)
	return imaging.CropCenter(rotated, b.Dx(), b.Dy()), o, nil
}

// minImageSize is the smallest strip side in pixels that can hold a grid.
const minImageSize = 16

func checkImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrImageFormat)
	}
	b := img.Bounds()
	if b.Dx() < minImageSize || b.Dy() < minImageSize {
		return fmt.Errorf("%w: image %dx%d smaller than %dx%d",
			ErrImageFormat, b.Dx(), b.Dy(), minImageSize, minImageSize)
	}
	return nil
}
