package digitize

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func twoLeadLayout() Layout {
	return Layout{Name: "two", Regions: []LeadRegion{
		{Lead: "II", Left: 0, Top: 0, Right: 1, Bottom: 0.5},
		{Lead: "V2", Left: 0, Top: 0.5, Right: 1, Bottom: 1},
	}}
}

// expectedSamples reproduces extraction at the nominal scale: millivolts per
// column from the drawn rows, then linear resampling.
func expectedSamples(tr trace, width int, baseline, ppm float64, opts ExtractOptions) []float64 {
	mv := make([]float64, width)
	for x := range mv {
		mv[x] = (baseline - float64(tr.row(x))) / ppm / opts.Gain
	}
	columnRate := ppm * opts.PaperSpeed
	n := resampledLength(width, columnRate, opts.SamplingRate)
	out := make([]float64, n)
	for j := range out {
		u := float64(j) / opts.SamplingRate * columnRate
		i := int(u)
		if i >= width-1 {
			out[j] = mv[width-1]
			continue
		}
		f := u - float64(i)
		out[j] = mv[i] + (mv[i+1]-mv[i])*f
	}
	return out
}

func TestPipeline_EndToEnd(t *testing.T) {
	const width, height, period = 400, 300, 10
	top := trace{Center: 75, Amplitude: 20, Period: 100}
	bottom := trace{Center: 225, Amplitude: 15, Period: 80}
	img := newStrip(width, height, period, pinkGrid, top, bottom)

	opts := DefaultOptions()
	opts.Extract.Layout = twoLeadLayout()
	opts.Extract.Baseline = BaselineCenter

	res, err := New(opts).Run(img)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Orientation.Applied {
		t.Errorf("level strip was rotated by %.3f", res.Orientation.SkewDegrees)
	}
	if math.Abs(res.Scale.PixelsPerMMX-period) > 0.05 || math.Abs(res.Scale.PixelsPerMMY-period) > 0.05 {
		t.Errorf("scale: got %+v, want %d px/mm", res.Scale, period)
	}
	if diff := cmp.Diff([]string{"II", "V2"}, res.Signal.Leads); diff != "" {
		t.Errorf("leads (-want +got):\n%s", diff)
	}

	// Regions are rows 0-149 and 150-299.
	want := map[string][]float64{
		"II": expectedSamples(top, width, 74.5, period, opts.Extract),
		"V2": expectedSamples(bottom, width, 224.5, period, opts.Extract),
	}
	for lead, exp := range want {
		got, ok := res.Signal.Lead(lead)
		if !ok {
			t.Fatalf("lead %s missing", lead)
		}
		if d := len(got) - len(exp); d < -2 || d > 2 {
			t.Fatalf("lead %s: %d samples, want about %d", lead, len(got), len(exp))
		}
		n := min(len(got), len(exp))
		for j := 0; j < n; j++ {
			if math.Abs(got[j]-exp[j]) > 0.05 {
				t.Fatalf("lead %s sample %d: got %.4f mV, want %.4f ± 0.05", lead, j, got[j], exp[j])
			}
		}
	}
}

func TestPipeline_RotatedStrip(t *testing.T) {
	const width, height, period = 800, 400, 8
	// Three stacked one-pixel traces make a stroke three pixels thick.
	level := newStrip(width, height, period, pinkGrid,
		trace{Center: 199, Amplitude: 60, Period: 150},
		trace{Center: 200, Amplitude: 60, Period: 150},
		trace{Center: 201, Amplitude: 60, Period: 150},
	)

	opts := DefaultOptions()
	opts.Extract.Layout = singleRegion("II")
	// Nominal recording: 800 columns at 8 px/mm and 25 mm/s is 4 s.
	nominal := int(float64(width) / (period * opts.Extract.PaperSpeed) * opts.Extract.SamplingRate)
	peak := 60.0 / period / opts.Extract.Gain

	for _, angle := range []float64{4, -7, 12} {
		t.Run(fmt.Sprintf("%+g degrees", angle), func(t *testing.T) {
			rotated := imaging.Rotate(level, angle, color.White)

			res, err := New(opts).Run(rotated)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if math.Abs(res.Orientation.SkewDegrees-angle) > 0.25 {
				t.Errorf("SkewDegrees: got %.3f, want %g ± 0.25", res.Orientation.SkewDegrees, angle)
			}
			if b := res.Oriented.Bounds(); b.Size() != rotated.Bounds().Size() {
				t.Errorf("oriented size %v, want input size %v", b.Size(), rotated.Bounds().Size())
			}
			for _, got := range []float64{res.Scale.PixelsPerMMX, res.Scale.PixelsPerMMY} {
				if math.Abs(got-period) > 0.03*period {
					t.Errorf("scale: got %+v, want %d px/mm ± 3%%", res.Scale, period)
				}
			}
			if n := res.Signal.Len(); n < nominal*8/10 || n > nominal*11/10 {
				t.Errorf("length: got %d samples, want about %d", n, nominal)
			}
			ii, _ := res.Signal.Lead("II")
			var hi float64
			for _, v := range ii {
				hi = math.Max(hi, math.Abs(v))
			}
			if math.Abs(hi-peak) > 0.1 {
				t.Errorf("peak amplitude: got %.3f mV, want %.3f ± 0.1", hi, peak)
			}
		})
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	img := newStrip(300, 200, 10, pinkGrid, trace{Center: 100, Amplitude: 30, Period: 70})
	p := New(DefaultOptions())

	first, err := p.Digitize(img)
	if err != nil {
		t.Fatalf("Digitize failed: %v", err)
	}
	second, err := p.Digitize(img)
	if err != nil {
		t.Fatalf("Digitize failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated runs differ (-first +second):\n%s", diff)
	}
}

// Fake stages record the order they run in.

type fakeStages struct {
	calls     []string
	gridErr   error
	zeroScale bool
	maskSize  image.Point
	nilMask   bool
	nilSignal bool
	signal    *SignalMatrix
}

func (f *fakeStages) CorrectOrientation(img image.Image) (image.Image, Orientation, error) {
	f.calls = append(f.calls, "orientation")
	return img, Orientation{SkewDegrees: 1.5, Confidence: 9}, nil
}

func (f *fakeStages) DetectGrid(image.Image) (GridScale, error) {
	f.calls = append(f.calls, "grid")
	if f.gridErr != nil {
		return GridScale{}, f.gridErr
	}
	if f.zeroScale {
		return GridScale{}, nil
	}
	return GridScale{PixelsPerMMX: 4, PixelsPerMMY: 5}, nil
}

func (f *fakeStages) Binarize(img image.Image) (*Mask, error) {
	f.calls = append(f.calls, "binarize")
	if f.nilMask {
		return nil, nil
	}
	size := f.maskSize
	if size == (image.Point{}) {
		size = img.Bounds().Size()
	}
	return NewMask(size.X, size.Y), nil
}

func (f *fakeStages) ExtractSignal(mask *Mask, scale GridScale) (*SignalMatrix, error) {
	f.calls = append(f.calls, fmt.Sprintf("extract %dx%d @%gx%g", mask.Width, mask.Height, scale.PixelsPerMMX, scale.PixelsPerMMY))
	if f.nilSignal {
		return nil, nil
	}
	return f.signal, nil
}

func newFakePipeline(f *fakeStages, options ...Option) *Pipeline {
	options = append([]Option{
		WithOrientationCorrector(f),
		WithGridDetector(f),
		WithBinarizer(f),
		WithTraceExtractor(f),
	}, options...)
	return New(DefaultOptions(), options...)
}

func TestPipeline_StageSubstitution(t *testing.T) {
	f := &fakeStages{signal: &SignalMatrix{Leads: []string{"II"}, Samples: [][]float64{{1, 2, 3}}, SamplingRate: 500}}
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))

	res, err := newFakePipeline(f).Run(img)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	wantCalls := []string{"orientation", "grid", "binarize", "extract 20x10 @4x5"}
	if diff := cmp.Diff(wantCalls, f.calls); diff != "" {
		t.Errorf("stage calls (-want +got):\n%s", diff)
	}
	if res.Signal != f.signal {
		t.Error("Run did not return the extractor's signal")
	}
	if res.Orientation.SkewDegrees != 1.5 {
		t.Errorf("Orientation: got %+v", res.Orientation)
	}
}

func TestPipeline_StageErrors(t *testing.T) {
	tests := []struct {
		name     string
		stages   *fakeStages
		wantErr  error
		wantKind string
	}{
		{
			name:     "grid failure",
			stages:   &fakeStages{gridErr: fmt.Errorf("%w: flat profile", ErrCalibration)},
			wantErr:  ErrCalibration,
			wantKind: "calibration",
		},
		{
			name:     "invalid scale from grid",
			stages:   &fakeStages{zeroScale: true},
			wantErr:  ErrCalibration,
			wantKind: "calibration",
		},
		{
			name:     "mask size mismatch",
			stages:   &fakeStages{maskSize: image.Pt(3, 3)},
			wantErr:  ErrBinarization,
			wantKind: "binarization",
		},
		{
			name:     "binarizer returns no mask",
			stages:   &fakeStages{nilMask: true},
			wantErr:  ErrBinarization,
			wantKind: "binarization",
		},
		{
			name:     "extractor returns no signal",
			stages:   &fakeStages{nilSignal: true},
			wantErr:  ErrExtraction,
			wantKind: "extraction",
		},
	}

	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.stages.signal = &SignalMatrix{}
			_, err := newFakePipeline(tt.stages).Digitize(img)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if got := Kind(err); got != tt.wantKind {
				t.Errorf("Kind: got %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestPipeline_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	f := &fakeStages{signal: &SignalMatrix{Leads: []string{"II"}, Samples: [][]float64{{0}}, SamplingRate: 500}}

	if _, err := newFakePipeline(f, WithLogger(zap.New(core))).Digitize(image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("Digitize failed: %v", err)
	}

	for _, msg := range []string{"orientation corrected", "grid detected", "binarized", "signal extracted"} {
		if n := logs.FilterMessage(msg).Len(); n != 1 {
			t.Errorf("%q logged %d times, want 1", msg, n)
		}
	}
	grid := logs.FilterMessage("grid detected").All()
	if len(grid) == 1 && grid[0].ContextMap()["px_per_mm_x"] != 4.0 {
		t.Errorf("px_per_mm_x field: got %v", grid[0].ContextMap()["px_per_mm_x"])
	}
}
