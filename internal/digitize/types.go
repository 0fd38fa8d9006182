package digitize

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Orientation is the skew found on a strip image.
type Orientation struct {
	// SkewDegrees is the counter-clockwise tilt of the strip content. The
	// corrector rotates by -SkewDegrees.
	SkewDegrees float64 `json:"skew_degrees"`

	// Confidence is the peak-to-median ratio of the angle scan.
	Confidence float64 `json:"confidence"`

	// Applied is false when the skew was too small to be worth a resample
	// and the image was only copied.
	Applied bool `json:"applied"`
}

// GridScale is the physical scale of an oriented strip image.
type GridScale struct {
	PixelsPerMMX float64 `json:"pixels_per_mm_x"`
	PixelsPerMMY float64 `json:"pixels_per_mm_y"`
}

// Validate reports whether both factors are strictly positive and finite.
func (g GridScale) Validate() error {
	for _, v := range []float64{g.PixelsPerMMX, g.PixelsPerMMY} {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: invalid grid scale %.4fx%.4f px/mm", ErrCalibration, g.PixelsPerMMX, g.PixelsPerMMY)
		}
	}
	return nil
}

// Mask is a binary foreground (ink) mask stored row-major.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask returns an all-background mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]bool, width*height)}
}

// At reports whether (x, y) is ink. Out-of-range coordinates are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set marks (x, y) as ink or background.
func (m *Mask) Set(x, y int, ink bool) {
	m.Pix[y*m.Width+x] = ink
}

// InkPixels counts foreground pixels.
func (m *Mask) InkPixels() int {
	n := 0
	for _, ink := range m.Pix {
		if ink {
			n++
		}
	}
	return n
}

// InkFraction is InkPixels divided by the mask area.
func (m *Mask) InkFraction() float64 {
	if len(m.Pix) == 0 {
		return 0
	}
	return float64(m.InkPixels()) / float64(len(m.Pix))
}

// Image renders the mask with black ink on white paper.
func (m *Mask) Image() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, ink := range m.Pix {
		if ink {
			out.Pix[i] = 0
		} else {
			out.Pix[i] = 255
		}
	}
	return out
}

// MaskFromImage treats dark pixels (luminance below half scale) as ink.
func MaskFromImage(img image.Image) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			m.Pix[y*m.Width+x] = g.Y < 128
		}
	}
	return m
}

// SignalMatrix holds one resampled signal per lead, in millivolts.
//
// Leads and Samples are parallel; every row of Samples has the same length.
type SignalMatrix struct {
	Leads        []string    `json:"leads"`
	Samples      [][]float64 `json:"samples"`
	SamplingRate float64     `json:"sampling_rate"`
}

// Lead returns the samples of the named lead.
func (m *SignalMatrix) Lead(name string) ([]float64, bool) {
	for i, l := range m.Leads {
		if l == name {
			return m.Samples[i], true
		}
	}
	return nil, false
}

// Len is the number of samples per lead.
func (m *SignalMatrix) Len() int {
	if len(m.Samples) == 0 {
		return 0
	}
	return len(m.Samples[0])
}

// Duration is the signal length in seconds.
func (m *SignalMatrix) Duration() float64 {
	if m.SamplingRate <= 0 {
		return 0
	}
	return float64(m.Len()) / m.SamplingRate
}
