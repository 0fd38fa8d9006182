package digitize

import (
	"image"
	"image/color"
	"math"
)

var (
	white    = color.RGBA{255, 255, 255, 255}
	black    = color.RGBA{0, 0, 0, 255}
	pinkGrid = color.RGBA{240, 120, 120, 255}
	grayGrid = color.RGBA{170, 170, 170, 255}
)

// trace describes a sinusoidal test trace: row(x) = Center - Amplitude*sin(2πx/Period).
type trace struct {
	Center    float64
	Amplitude float64
	Period    float64
}

func (t trace) row(x int) int {
	return int(math.Round(t.Center - t.Amplitude*math.Sin(2*math.Pi*float64(x)/t.Period)))
}

// newStrip draws a white strip with one-pixel grid lines every period pixels
// (none when period is 0) and one-pixel black traces.
func newStrip(width, height int, period float64, grid color.Color, traces ...trace) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, white)
		}
	}

	if period > 0 {
		for k := 0; ; k++ {
			x := int(math.Round(float64(k) * period))
			if x >= width {
				break
			}
			for y := 0; y < height; y++ {
				img.Set(x, y, grid)
			}
		}
		for k := 0; ; k++ {
			y := int(math.Round(float64(k) * period))
			if y >= height {
				break
			}
			for x := 0; x < width; x++ {
				img.Set(x, y, grid)
			}
		}
	}

	for _, t := range traces {
		for x := 0; x < width; x++ {
			if y := t.row(x); y >= 0 && y < height {
				img.Set(x, y, black)
			}
		}
	}
	return img
}

// maskFromRows builds a mask with one ink run per column, rows[x] ± half
// (inclusive). A negative row leaves the column empty.
func maskFromRows(width, height int, rows []int, half int) *Mask {
	m := NewMask(width, height)
	for x, r := range rows {
		if r < 0 {
			continue
		}
		for y := r - half; y <= r+half; y++ {
			if y >= 0 && y < height {
				m.Set(x, y, true)
			}
		}
	}
	return m
}

func singleRegion(name string) Layout {
	return Layout{Name: "test", Regions: []LeadRegion{{Lead: name, Left: 0, Top: 0, Right: 1, Bottom: 1}}}
}

func testExtractOptions(layout Layout) ExtractOptions {
	opts := DefaultOptions().Extract
	opts.Layout = layout
	opts.Baseline = BaselineCenter
	return opts
}
