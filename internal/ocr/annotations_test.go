package ocr

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func TestParseAnnotations(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantSpeed float64
		wantGain  float64
	}{
		{"standard", "25 mm/s  10 mm/mV", 25, 10},
		{"compact", "50mm/sec 5mm/mv", 50, 5},
		{"spaced slash", "25 mm / s   10 mm / mV", 25, 10},
		{"upper case", "SPEED 25 MM/S GAIN 20 MM/MV", 25, 20},
		{"decimal comma", "12,5 mm/s 2,5 mm/mV", 12.5, 2.5},
		{"decimal point", "12.5 mm/s", 12.5, 0},
		{"gain only", "10 mm/mV", 0, 10},
		{"first match wins", "25 mm/s 50 mm/s", 25, 0},
		{"with noise", "Chest: 10.0 mm/mV  Speed: 25 mm/sec  F 0.05-150 Hz", 25, 10},
		{"zero rejected", "0 mm/s", 0, 0},
		{"no units", "25 10 0.5", 0, 0},
		{"empty", "", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAnnotations(tt.text)
			if got.PaperSpeed != tt.wantSpeed {
				t.Errorf("PaperSpeed = %v, want %v", got.PaperSpeed, tt.wantSpeed)
			}
			if got.Gain != tt.wantGain {
				t.Errorf("Gain = %v, want %v", got.Gain, tt.wantGain)
			}
			if got.HasSpeed() != (tt.wantSpeed > 0) {
				t.Errorf("HasSpeed = %v, want %v", got.HasSpeed(), tt.wantSpeed > 0)
			}
			if got.HasGain() != (tt.wantGain > 0) {
				t.Errorf("HasGain = %v, want %v", got.HasGain(), tt.wantGain > 0)
			}
			if got.Text != tt.text {
				t.Errorf("Text = %q, want %q", got.Text, tt.text)
			}
		})
	}
}

func blankImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

// drawGlyphs draws a row of small solid blocks that mimic a line of print.
func drawGlyphs(img *image.RGBA, x0, y0, count int) {
	black := image.NewUniform(color.Black)
	for i := 0; i < count; i++ {
		x := x0 + i*8
		draw.Draw(img, image.Rect(x, y0, x+2, y0+9), black, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(x+2, y0+4, x+5, y0+6), black, image.Point{}, draw.Src)
	}
}

func TestLocateAnnotationsBlank(t *testing.T) {
	regions := LocateAnnotations(blankImage(200, 100), 0.1)
	if len(regions) != 0 {
		t.Errorf("got %d regions on a blank image, want 0", len(regions))
	}
}

func TestLocateAnnotationsRegions(t *testing.T) {
	img := blankImage(320, 120)
	drawGlyphs(img, 20, 90, 20)

	regions := LocateAnnotations(img, 0)
	bounds := img.Bounds()
	for i, r := range regions {
		if r.Bounds.X1 < 0 || r.Bounds.Y1 < 0 || r.Bounds.X2 > bounds.Dx() || r.Bounds.Y2 > bounds.Dy() {
			t.Errorf("region %d %+v outside image %v", i, r.Bounds, bounds)
		}
		if r.Bounds.X2 <= r.Bounds.X1 || r.Bounds.Y2 <= r.Bounds.Y1 {
			t.Errorf("region %d %+v is empty", i, r.Bounds)
		}
		if i > 0 && r.Confidence > regions[i-1].Confidence {
			t.Errorf("region %d confidence %v above previous %v", i, r.Confidence, regions[i-1].Confidence)
		}
	}
}
