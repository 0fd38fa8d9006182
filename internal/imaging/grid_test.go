package imaging

import (
	"image"
	"image/color"
	"testing"
)

func whiteImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func TestOverlayGrid(t *testing.T) {
	result, err := OverlayGrid(whiteImage(50, 40), 10, 10, "#FF0000")
	if err != nil {
		t.Fatalf("OverlayGrid failed: %v", err)
	}
	if result.Bounds().Dx() != 50 || result.Bounds().Dy() != 40 {
		t.Fatalf("unexpected size %v", result.Bounds())
	}

	lineColor := color.RGBA{255, 0, 0, 255}
	if got := result.RGBAAt(10, 5); got != lineColor {
		t.Errorf("vertical line pixel: got %v, want %v", got, lineColor)
	}
	if got := result.RGBAAt(5, 20); got != lineColor {
		t.Errorf("horizontal line pixel: got %v, want %v", got, lineColor)
	}
	if got := result.RGBAAt(5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("background pixel: got %v, want white", got)
	}
}

func TestOverlayGrid_FractionalStep(t *testing.T) {
	result, err := OverlayGrid(whiteImage(40, 10), 7.5, 100, "#000000")
	if err != nil {
		t.Fatalf("OverlayGrid failed: %v", err)
	}
	// Lines at 7.5, 15, 22.5, 30, 37.5 round to 8, 15, 23, 30, 38.
	for _, x := range []int{8, 15, 23, 30, 38} {
		if got := result.RGBAAt(x, 3); got.R != 0 {
			t.Errorf("expected line at x=%d, got %v", x, got)
		}
	}
	for _, x := range []int{7, 16, 22, 31} {
		if got := result.RGBAAt(x, 3); got.R != 255 {
			t.Errorf("unexpected line at x=%d, got %v", x, got)
		}
	}
}

func TestOverlayGrid_DoesNotModifySource(t *testing.T) {
	src := whiteImage(20, 20)
	if _, err := OverlayGrid(src, 5, 5, "#000000"); err != nil {
		t.Fatalf("OverlayGrid failed: %v", err)
	}
	for i, p := range src.Pix {
		if p != 255 {
			t.Fatalf("source modified at byte %d", i)
		}
	}
}

func TestOverlayGrid_InvalidStep(t *testing.T) {
	tests := []struct {
		name         string
		stepX, stepY float64
	}{
		{"zero x", 0, 10},
		{"sub-pixel y", 10, 0.5},
		{"negative", -3, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OverlayGrid(whiteImage(10, 10), tt.stepX, tt.stepY, ""); err == nil {
				t.Error("expected error for invalid step")
			}
		})
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input   string
		want    color.RGBA
		wantErr bool
	}{
		{"#FF0000", color.RGBA{255, 0, 0, 255}, false},
		{"00FF00", color.RGBA{0, 255, 0, 255}, false},
		{"#0000FF80", color.RGBA{0, 0, 128, 128}, false},
		{"", color.RGBA{}, true},
		{"#FFF", color.RGBA{}, true},
		{"#GGGGGG", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseHexColor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
