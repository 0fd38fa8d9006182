package imaging

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Channel identifies one RGB component.
type Channel int

const (
	ChannelRed Channel = iota
	ChannelGreen
	ChannelBlue
)

// String returns the lowercase channel name.
func (c Channel) String() string {
	switch c {
	case ChannelRed:
		return "red"
	case ChannelGreen:
		return "green"
	case ChannelBlue:
		return "blue"
	default:
		return "unknown"
	}
}

// HSV returns the saturation and value of a color, both in [0, 1].
//
// Fully transparent pixels report zero saturation and full value so they are
// treated as blank paper.
func HSV(c color.Color) (s, v float64) {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		return 0, 1
	}
	_, s, v = cf.Hsv()
	return s, v
}

// ChromaStats summarises the chromatic (colored) pixels of an image.
//
// ECG paper is usually printed with a red, orange or green grid while the
// trace is drawn in black or dark blue ink. Chromatic pixels therefore belong
// almost exclusively to the grid, which lets calibration and binarization
// separate grid from ink by color alone.
type ChromaStats struct {
	// TotalPixels is the number of pixels inspected.
	TotalPixels int `json:"total_pixels"`

	// ChromaticPixels is the number of pixels with saturation >= the
	// requested minimum and value >= the requested minimum.
	ChromaticPixels int `json:"chromatic_pixels"`

	// Fraction is ChromaticPixels / TotalPixels (0 for empty images).
	Fraction float64 `json:"fraction"`

	// Mean is the mean 8-bit RGB of the chromatic pixels.
	Mean RGBColor `json:"mean"`
}

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex returns the color as "#RRGGBB".
func (c RGBColor) Hex() string {
	return colorful.Color{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
	}.Hex()
}

// AnalyzeChroma counts chromatic pixels and averages their color.
//
// Parameters:
//   - img: Source image.
//   - minSaturation: HSV saturation (0-1) at or above which a pixel counts as
//     chromatic. 0.15 separates printed grid color from gray paper noise.
//   - minValue: HSV value (0-1) below which a pixel is treated as ink
//     regardless of hue. Dark blue ink is saturated but very dark.
func AnalyzeChroma(img image.Image, minSaturation, minValue float64) ChromaStats {
	bounds := img.Bounds()
	stats := ChromaStats{TotalPixels: bounds.Dx() * bounds.Dy()}

	var sumR, sumG, sumB int64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.At(x, y)
			s, v := HSV(c)
			if s < minSaturation || v < minValue {
				continue
			}
			r, g, b, _ := c.RGBA()
			sumR += int64(r >> 8)
			sumG += int64(g >> 8)
			sumB += int64(b >> 8)
			stats.ChromaticPixels++
		}
	}

	if stats.TotalPixels > 0 {
		stats.Fraction = float64(stats.ChromaticPixels) / float64(stats.TotalPixels)
	}
	if n := int64(stats.ChromaticPixels); n > 0 {
		stats.Mean = RGBColor{
			R: uint8(sumR / n),
			G: uint8(sumG / n),
			B: uint8(sumB / n),
		}
	}
	return stats
}

// BrightestChannel returns the channel in which the mean chromatic color is
// brightest. Extracting that channel makes grid printing look like blank paper
// while black ink stays dark. Ties resolve in red, green, blue order.
func (s ChromaStats) BrightestChannel() Channel {
	best := ChannelRed
	bestVal := s.Mean.R
	if s.Mean.G > bestVal {
		best, bestVal = ChannelGreen, s.Mean.G
	}
	if s.Mean.B > bestVal {
		best = ChannelBlue
	}
	return best
}
