package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultOverlayColor is used when an overlay color cannot be parsed.
var DefaultOverlayColor = color.RGBA{0, 120, 255, 160}

// OverlayGrid draws a calibrated grid over an image.
//
// Lines are placed every stepX pixels horizontally and stepY pixels vertically,
// starting at the image origin. Steps are fractional because a calibrated
// millimeter is rarely a whole number of pixels; each line is drawn at the
// rounded position of its exact offset so rounding error never accumulates.
//
// Parameters:
//   - img: Source image. It is copied, never modified.
//   - stepX, stepY: Line spacing in pixels. Must be >= 1.
//   - lineColor: Line color as "#RRGGBB" or "#RRGGBBAA". Invalid values fall
//     back to DefaultOverlayColor.
//
// Lines are alpha-blended over the source so the printed grid stays visible,
// making misregistration between the printed and detected grid easy to spot.
func OverlayGrid(img image.Image, stepX, stepY float64, lineColor string) (*image.RGBA, error) {
	if stepX < 1 || stepY < 1 || math.IsNaN(stepX) || math.IsNaN(stepY) {
		return nil, fmt.Errorf("invalid grid step %.3fx%.3f: must be >= 1 pixel", stepX, stepY)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	c, err := parseHexColor(lineColor)
	if err != nil {
		c = DefaultOverlayColor
	}
	src := image.NewUniform(c)

	result := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)

	for i := 1; ; i++ {
		x := int(math.Round(float64(i) * stepX))
		if x >= width {
			break
		}
		draw.Draw(result, image.Rect(x, 0, x+1, height), src, image.Point{}, draw.Over)
	}

	for i := 1; ; i++ {
		y := int(math.Round(float64(i) * stepY))
		if y >= height {
			break
		}
		draw.Draw(result, image.Rect(0, y, width, y+1), src, image.Point{}, draw.Over)
	}

	return result, nil
}

// parseHexColor parses "#RRGGBB" or "#RRGGBBAA" into an RGBA color.
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}

	alpha := uint8(255)
	switch len(hex) {
	case 7:
	case 9:
		var a uint8
		if _, err := fmt.Sscanf(hex[7:], "%02x", &a); err != nil {
			return color.RGBA{}, fmt.Errorf("invalid alpha in %q: %w", hex, err)
		}
		alpha = a
		hex = hex[:7]
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	cf, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := cf.RGB255()

	// image.Uniform expects alpha-premultiplied components.
	return color.RGBA{
		R: uint8(uint16(r) * uint16(alpha) / 255),
		G: uint8(uint16(g) * uint16(alpha) / 255),
		B: uint8(uint16(b) * uint16(alpha) / 255),
		A: alpha,
	}, nil
}
