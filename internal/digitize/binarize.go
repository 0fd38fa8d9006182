package digitize

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/channel"
	"github.com/anthonynsimon/bild/effect"

	ecgimaging "github.com/ironsheep/ecg-tools-mcp/internal/imaging"
)

// Binarizer separates trace ink from paper and grid.
type Binarizer interface {
	Binarize(img image.Image) (*Mask, error)
}

// AdaptiveBinarizer thresholds each pixel against a blurred estimate of its
// surroundings, after choosing the channel that hides a colored grid.
type AdaptiveBinarizer struct {
	opts BinarizeOptions
}

// NewAdaptiveBinarizer returns a binarizer with the given options.
func NewAdaptiveBinarizer(opts BinarizeOptions) *AdaptiveBinarizer {
	return &AdaptiveBinarizer{opts: opts}
}

// Intensity returns the single-channel image that is thresholded and the
// name of the channel used.
//
// A red grid is bright in the red channel while black or blue ink is dark in
// every channel, so for a colored grid the channel in which the grid is
// brightest is used. Grayscale strips use luminance.
func (b *AdaptiveBinarizer) Intensity(img image.Image) (*image.Gray, string) {
	chroma := ecgimaging.AnalyzeChroma(img, b.opts.ChromaThreshold, minChromaValue)
	if chroma.Fraction < b.opts.MinChromaFraction {
		// Grayscale sets R = G = B, so any channel is the luminance.
		return channel.Extract(effect.Grayscale(img), channel.Red), "luminance"
	}

	ch := chroma.BrightestChannel()
	var bc channel.Channel
	switch ch {
	case ecgimaging.ChannelGreen:
		bc = channel.Green
	case ecgimaging.ChannelBlue:
		bc = channel.Blue
	default:
		bc = channel.Red
	}
	return channel.Extract(img, bc), ch.String()
}

// Binarize returns the ink mask of img.
//
// A pixel is ink when its value is at most InkRatio times the Gaussian-blurred
// local background and at most MaxInkLevel. The local comparison follows
// uneven lighting across a photographed page; the absolute cap stops faint
// smudges on clean paper from counting as ink.
func (b *AdaptiveBinarizer) Binarize(img image.Image) (*Mask, error) {
	if err := checkImage(img); err != nil {
		return nil, err
	}

	gray, _ := b.Intensity(img)
	// blur.Gaussian returns RGBA with R = G = B; PixOffset indexes the R byte.
	local := blur.Gaussian(gray, b.opts.BlurRadius)

	gb := gray.Bounds()
	lb := local.Bounds()
	mask := NewMask(gb.Dx(), gb.Dy())
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			v := float64(gray.Pix[gray.PixOffset(gb.Min.X+x, gb.Min.Y+y)]) / 255.0
			bg := float64(local.Pix[local.PixOffset(lb.Min.X+x, lb.Min.Y+y)]) / 255.0
			mask.Pix[y*mask.Width+x] = v <= b.opts.InkRatio*bg && v <= b.opts.MaxInkLevel
		}
	}

	switch ink := mask.InkPixels(); {
	case ink == 0:
		return nil, fmt.Errorf("%w: no ink found", ErrBinarization)
	case ink == len(mask.Pix):
		return nil, fmt.Errorf("%w: every pixel classified as ink", ErrBinarization)
	}
	return mask, nil
}
