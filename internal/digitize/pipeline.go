package digitize

import (
	"fmt"
	"image"

	"go.uber.org/zap"
)

// Pipeline runs the four digitizing stages in order.
//
// A Pipeline holds only configuration and stage implementations. It keeps no
// state between calls and may be shared by goroutines.
type Pipeline struct {
	orientation OrientationCorrector
	grid        GridDetector
	binarizer   Binarizer
	extractor   TraceExtractor
	logger      *zap.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for stage diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithOrientationCorrector replaces the orientation stage.
func WithOrientationCorrector(c OrientationCorrector) Option {
	return func(p *Pipeline) { p.orientation = c }
}

// WithGridDetector replaces the grid stage.
func WithGridDetector(d GridDetector) Option {
	return func(p *Pipeline) { p.grid = d }
}

// WithBinarizer replaces the binarization stage.
func WithBinarizer(b Binarizer) Option {
	return func(p *Pipeline) { p.binarizer = b }
}

// WithTraceExtractor replaces the extraction stage.
func WithTraceExtractor(e TraceExtractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// New builds a pipeline from the default stage implementations configured
// with opts.
func New(opts Options, options ...Option) *Pipeline {
	p := &Pipeline{
		orientation: NewHoughOrientation(opts.Orientation),
		grid:        NewAutocorrelationGrid(opts.Grid),
		binarizer:   NewAdaptiveBinarizer(opts.Binarize),
		extractor:   NewColumnTraceExtractor(opts.Extract),
		logger:      zap.NewNop(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Result carries the signal together with every intermediate product.
type Result struct {
	Signal      *SignalMatrix
	Orientation Orientation
	Scale       GridScale
	Oriented    image.Image
	Mask        *Mask
}

// Digitize converts a strip image into a signal matrix.
func (p *Pipeline) Digitize(img image.Image) (*SignalMatrix, error) {
	r, err := p.Run(img)
	if err != nil {
		return nil, err
	}
	return r.Signal, nil
}

// Run is Digitize keeping the intermediate results. Grid detection and
// binarization both work on the oriented image; neither sees the other's
// output.
func (p *Pipeline) Run(img image.Image) (*Result, error) {
	oriented, o, err := p.CorrectOrientation(img)
	if err != nil {
		return nil, err
	}
	scale, err := p.DetectGrid(oriented)
	if err != nil {
		return nil, err
	}
	mask, err := p.Binarize(oriented)
	if err != nil {
		return nil, err
	}
	signal, err := p.ExtractSignal(mask, scale)
	if err != nil {
		return nil, err
	}

	return &Result{
		Signal:      signal,
		Orientation: o,
		Scale:       scale,
		Oriented:    oriented,
		Mask:        mask,
	}, nil
}

// CorrectOrientation runs the orientation stage alone.
func (p *Pipeline) CorrectOrientation(img image.Image) (image.Image, Orientation, error) {
	oriented, o, err := p.orientation.CorrectOrientation(img)
	if err != nil {
		p.logger.Debug("orientation failed", zap.Error(err))
		return nil, Orientation{}, fmt.Errorf("orientation: %w", err)
	}
	p.logger.Debug("orientation corrected",
		zap.Float64("skew_degrees", o.SkewDegrees),
		zap.Float64("confidence", o.Confidence),
		zap.Bool("applied", o.Applied))
	return oriented, o, nil
}

// DetectGrid runs the grid stage alone.
func (p *Pipeline) DetectGrid(oriented image.Image) (GridScale, error) {
	scale, err := p.grid.DetectGrid(oriented)
	if err != nil {
		p.logger.Debug("grid detection failed", zap.Error(err))
		return GridScale{}, fmt.Errorf("grid: %w", err)
	}
	if err := scale.Validate(); err != nil {
		return GridScale{}, fmt.Errorf("grid: %w", err)
	}
	p.logger.Debug("grid detected",
		zap.Float64("px_per_mm_x", scale.PixelsPerMMX),
		zap.Float64("px_per_mm_y", scale.PixelsPerMMY))
	return scale, nil
}

// Binarize runs the binarization stage alone.
func (p *Pipeline) Binarize(oriented image.Image) (*Mask, error) {
	mask, err := p.binarizer.Binarize(oriented)
	if err != nil {
		p.logger.Debug("binarization failed", zap.Error(err))
		return nil, fmt.Errorf("binarize: %w", err)
	}
	if mask == nil {
		return nil, fmt.Errorf("binarize: %w: no mask returned", ErrBinarization)
	}
	b := oriented.Bounds()
	if mask.Width != b.Dx() || mask.Height != b.Dy() {
		return nil, fmt.Errorf("binarize: %w: mask %dx%d does not match image %dx%d",
			ErrBinarization, mask.Width, mask.Height, b.Dx(), b.Dy())
	}
	p.logger.Debug("binarized", zap.Float64("ink_fraction", mask.InkFraction()))
	return mask, nil
}

// ExtractSignal runs the extraction stage alone.
func (p *Pipeline) ExtractSignal(mask *Mask, scale GridScale) (*SignalMatrix, error) {
	signal, err := p.extractor.ExtractSignal(mask, scale)
	if err != nil {
		p.logger.Debug("extraction failed", zap.Error(err))
		return nil, fmt.Errorf("extract: %w", err)
	}
	if signal == nil {
		return nil, fmt.Errorf("extract: %w: no signal returned", ErrExtraction)
	}
	p.logger.Debug("signal extracted",
		zap.Int("leads", len(signal.Leads)),
		zap.Int("samples", signal.Len()),
		zap.Float64("sampling_rate", signal.SamplingRate))
	return signal, nil
}
