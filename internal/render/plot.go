// Package render draws digitized ECG signals as PNG charts.
package render

import (
	"bytes"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/ironsheep/ecg-tools-mcp/internal/digitize"
)

// dpi is the resolution the image backend renders at by default, so a
// width of n pixels is n/dpi inches.
const dpi = 96

// leadGapMV separates stacked leads.
const leadGapMV = 0.5

// PlotLeads renders the named leads of m, or all leads when names is empty,
// as a PNG of width x height pixels. Time runs along x in seconds. Leads are
// stacked top to bottom in the given order, each shifted so its traces do
// not overlap, and labelled in the legend with their shift.
func PlotLeads(m *digitize.SignalMatrix, names []string, width, height int) ([]byte, error) {
	if m == nil || m.Len() == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid plot size %dx%d", width, height)
	}
	if len(names) == 0 {
		names = m.Leads
	}

	series := make([][]float64, len(names))
	step := 0.0
	for i, name := range names {
		s, ok := m.Lead(name)
		if !ok {
			return nil, fmt.Errorf("lead %q not in signal (have %v)", name, m.Leads)
		}
		series[i] = s
		step = max(step, floats.Max(s)-floats.Min(s))
	}
	step += leadGapMV

	p := plot.New()
	p.Title.Text = fmt.Sprintf("ECG, %g Hz", m.SamplingRate)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Amplitude (mV, stacked)"
	p.Add(plotter.NewGrid())

	for i, s := range series {
		offset := -float64(i) * step
		pts := make(plotter.XYs, len(s))
		for j, v := range s {
			pts[j].X = float64(j) / m.SamplingRate
			pts[j].Y = v + offset
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to plot lead %s: %w", names[i], err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)

		label := names[i]
		if offset != 0 {
			label = fmt.Sprintf("%s (%+.2f mV)", names[i], offset)
		}
		p.Legend.Add(label, line)
	}
	p.Legend.Top = true
	p.Legend.Left = false

	w := vg.Length(width) * vg.Inch / dpi
	h := vg.Length(height) * vg.Inch / dpi
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode plot: %w", err)
	}
	return buf.Bytes(), nil
}
