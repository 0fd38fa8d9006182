package render

import (
	"bytes"
	"image/png"
	"math"
	"testing"

	"github.com/ironsheep/ecg-tools-mcp/internal/digitize"
)

func sineMatrix() *digitize.SignalMatrix {
	const n = 500
	m := &digitize.SignalMatrix{
		Leads:        []string{"I", "II", "V1"},
		Samples:      make([][]float64, 3),
		SamplingRate: 250,
	}
	for i := range m.Samples {
		m.Samples[i] = make([]float64, n)
		for j := range m.Samples[i] {
			m.Samples[i][j] = float64(i+1) * 0.5 * math.Sin(2*math.Pi*float64(j)/125)
		}
	}
	return m
}

func TestPlotLeads(t *testing.T) {
	tests := []struct {
		name          string
		leads         []string
		width, height int
	}{
		{"all leads", nil, 480, 384},
		{"subset", []string{"V1", "I"}, 384, 288},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := PlotLeads(sineMatrix(), tt.leads, tt.width, tt.height)
			if err != nil {
				t.Fatalf("PlotLeads failed: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("output is not a PNG: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != tt.width || b.Dy() != tt.height {
				t.Errorf("size: got %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.width, tt.height)
			}
		})
	}
}

func TestPlotLeads_Errors(t *testing.T) {
	tests := []struct {
		name  string
		m     *digitize.SignalMatrix
		leads []string
		w, h  int
	}{
		{"nil signal", nil, nil, 100, 100},
		{"empty signal", &digitize.SignalMatrix{}, nil, 100, 100},
		{"unknown lead", sineMatrix(), []string{"aVR"}, 100, 100},
		{"zero width", sineMatrix(), nil, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PlotLeads(tt.m, tt.leads, tt.w, tt.h); err == nil {
				t.Error("expected error")
			}
		})
	}
}
