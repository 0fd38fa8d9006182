package digitize

import (
	"fmt"
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"
)

// TraceExtractor turns an ink mask into calibrated lead signals.
type TraceExtractor interface {
	ExtractSignal(mask *Mask, scale GridScale) (*SignalMatrix, error)
}

// ColumnTraceExtractor follows the trace column by column inside each lead
// region of a layout.
//
// All loops are sequential and reductions run in a fixed order, so the same
// mask and scale always give bit-identical samples.
type ColumnTraceExtractor struct {
	opts ExtractOptions
}

// NewColumnTraceExtractor returns an extractor with the given options.
func NewColumnTraceExtractor(opts ExtractOptions) *ColumnTraceExtractor {
	return &ColumnTraceExtractor{opts: opts}
}

// LeadTrace is the column-rate trace of one lead before resampling.
type LeadTrace struct {
	Lead string

	// Region is the lead's rectangle in mask pixels.
	Region image.Rectangle

	// Baseline is the mask row taken as 0 mV.
	Baseline float64

	// FirstColumn is the offset within Region of Millivolts[0]. It is
	// non-zero when the trace starts more than MaxGapColumns in.
	FirstColumn int

	// Millivolts holds one sample per column of the traced span.
	Millivolts []float64

	// Interpolated counts the columns filled across gaps.
	Interpolated int
}

// ExtractSignal reconstructs every lead of the layout and resamples them to a
// common length at the configured sampling rate.
//
// Column c of a lead's traced span is at time c / (PixelsPerMMX * PaperSpeed).
// The common length is set by the shortest span, so every row of the result
// covers the same duration.
func (e *ColumnTraceExtractor) ExtractSignal(mask *Mask, scale GridScale) (*SignalMatrix, error) {
	traces, err := e.Traces(mask, scale)
	if err != nil {
		return nil, err
	}

	columnRate := scale.PixelsPerMMX * e.opts.PaperSpeed
	shortest := len(traces[0].Millivolts)
	for _, t := range traces[1:] {
		shortest = min(shortest, len(t.Millivolts))
	}
	n := resampledLength(shortest, columnRate, e.opts.SamplingRate)

	m := &SignalMatrix{
		Leads:        make([]string, len(traces)),
		Samples:      make([][]float64, len(traces)),
		SamplingRate: e.opts.SamplingRate,
	}
	for i, t := range traces {
		samples, err := resample(t.Millivolts, columnRate, e.opts.SamplingRate, n)
		if err != nil {
			return nil, &ExtractionError{Lead: t.Lead, FromColumn: 0, ToColumn: len(t.Millivolts) - 1, Reason: err.Error()}
		}
		m.Leads[i] = t.Lead
		m.Samples[i] = samples
	}
	return m, nil
}

// Traces extracts the column-rate trace of every lead, in layout order.
func (e *ColumnTraceExtractor) Traces(mask *Mask, scale GridScale) ([]LeadTrace, error) {
	if mask == nil || mask.Width <= 0 || mask.Height <= 0 || len(mask.Pix) != mask.Width*mask.Height {
		return nil, fmt.Errorf("%w: malformed mask", ErrImageFormat)
	}
	if err := scale.Validate(); err != nil {
		return nil, err
	}
	if err := e.opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	traces := make([]LeadTrace, 0, len(e.opts.Layout.Regions))
	for _, region := range e.opts.Layout.Regions {
		t, err := e.traceLead(mask, region, scale)
		if err != nil {
			return nil, err
		}
		traces = append(traces, *t)
	}
	return traces, nil
}

func (e *ColumnTraceExtractor) traceLead(mask *Mask, region LeadRegion, scale GridScale) (*LeadTrace, error) {
	rect := region.Rect(mask.Width, mask.Height)
	width := rect.Dx()
	if width < 2 || rect.Dy() < 1 {
		return nil, &ExtractionError{Lead: region.Lead, FromColumn: 0, ToColumn: max(width-1, 0),
			Reason: fmt.Sprintf("region %v too small", rect)}
	}

	rows := make([]float64, width)
	valid := make([]bool, width)
	prev := math.NaN()
	found := 0
	for c := 0; c < width; c++ {
		runs := columnRuns(mask, rect.Min.X+c, rect.Min.Y, rect.Max.Y)
		if len(runs) == 0 {
			continue
		}
		rows[c] = pickRun(runs, prev).mid()
		valid[c] = true
		prev = rows[c]
		found++
	}
	if found == 0 {
		return nil, &ExtractionError{Lead: region.Lead, FromColumn: 0, ToColumn: width - 1, Reason: "no trace in region"}
	}

	baseline := float64(rect.Min.Y+rect.Max.Y-1) / 2
	if e.opts.Baseline == BaselineMedian {
		baseline = medianOfValid(rows, valid)
	}

	lo, hi := traceSpan(valid, e.opts.MaxGapColumns)
	if hi-lo < 1 {
		return nil, &ExtractionError{Lead: region.Lead, FromColumn: 0, ToColumn: width - 1,
			Reason: fmt.Sprintf("trace spans only %d column", hi-lo+1)}
	}
	rows, valid = rows[lo:hi+1], valid[lo:hi+1]

	filled, err := fillGaps(rows, valid, e.opts.MaxGapColumns)
	if err != nil {
		err.Lead = region.Lead
		err.FromColumn += lo
		err.ToColumn += lo
		return nil, err
	}

	mv := make([]float64, len(rows))
	for c, y := range rows {
		mv[c] = (baseline - y) / scale.PixelsPerMMY / e.opts.Gain
	}

	return &LeadTrace{
		Lead:         region.Lead,
		Region:       rect,
		Baseline:     baseline,
		FirstColumn:  lo,
		Millivolts:   mv,
		Interpolated: filled,
	}, nil
}

// traceSpan returns the first and last columns of a lead that belong to the
// recorded trace. Blank margins up to maxGap wide stay in the span and are
// filled from the nearest valid column. Wider blank margins lie outside the
// paper or the recording, such as the fill left by a rotation, and are cut.
func traceSpan(valid []bool, maxGap int) (lo, hi int) {
	lo, hi = 0, len(valid)-1
	first, last := -1, -1
	for c, ok := range valid {
		if ok {
			if first < 0 {
				first = c
			}
			last = c
		}
	}
	if first > maxGap {
		lo = first
	}
	if hi-last > maxGap {
		hi = last
	}
	return lo, hi
}

// run is a vertical stretch of ink, first and last rows inclusive.
type run struct {
	first, last int
}

func (r run) length() int { return r.last - r.first + 1 }
func (r run) mid() float64 { return float64(r.first+r.last) / 2 }
func (r run) dist(y float64) float64 { return math.Abs(r.mid() - y) }

// columnRuns lists the ink runs of column x between rows top and bottom
// (exclusive), top to bottom.
func columnRuns(mask *Mask, x, top, bottom int) []run {
	var runs []run
	start := -1
	for y := top; y < bottom; y++ {
		if mask.Pix[y*mask.Width+x] {
			if start < 0 {
				start = y
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, run{start, y - 1})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, run{start, bottom - 1})
	}
	return runs
}

// pickRun chooses the trace among the runs of one column: the longest run,
// then the one closest to the previous column's position, then the topmost.
// A single run is its own centroid.
func pickRun(runs []run, prev float64) run {
	best := runs[0]
	for _, r := range runs[1:] {
		switch {
		case r.length() > best.length():
			best = r
		case r.length() < best.length():
		case !math.IsNaN(prev) && r.dist(prev) < best.dist(prev):
			best = r
		}
	}
	return best
}

// medianOfValid returns the median of values[i] where valid[i]. With an even
// count the lower middle value is used, so the baseline is always a row that
// the trace actually visits.
func medianOfValid(values []float64, valid []bool) float64 {
	picked := make([]float64, 0, len(values))
	for i, v := range values {
		if valid[i] {
			picked = append(picked, v)
		}
	}
	sort.Float64s(picked)
	return stat.Quantile(0.5, stat.Empirical, picked, nil)
}

// fillGaps interpolates runs of invalid entries no longer than maxGap and
// returns how many entries it filled. Interior gaps are bridged linearly;
// gaps touching either end repeat the nearest valid value. A longer gap is an
// error carrying its column range.
func fillGaps(values []float64, valid []bool, maxGap int) (int, *ExtractionError) {
	n := len(values)
	filled := 0
	for c := 0; c < n; {
		if valid[c] {
			c++
			continue
		}
		start := c
		for c < n && !valid[c] {
			c++
		}
		end := c - 1
		if gap := end - start + 1; gap > maxGap {
			return filled, &ExtractionError{
				FromColumn: start,
				ToColumn:   end,
				Reason:     fmt.Sprintf("gap of %d columns exceeds limit of %d", gap, maxGap),
			}
		}

		switch {
		case start == 0:
			for k := start; k <= end; k++ {
				values[k] = values[end+1]
			}
		case end == n-1:
			for k := start; k <= end; k++ {
				values[k] = values[start-1]
			}
		default:
			y0, y1 := values[start-1], values[end+1]
			span := float64(end + 2 - start)
			for k := start; k <= end; k++ {
				values[k] = y0 + (y1-y0)*float64(k-start+1)/span
			}
		}
		filled += end - start + 1
	}
	return filled, nil
}

// resampledLength is the number of output samples whose times fall within a
// column-rate trace of n columns. The small tolerance absorbs rounding when
// the duration is an exact multiple of the output period.
func resampledLength(n int, columnRate, rate float64) int {
	duration := float64(n-1) / columnRate
	return int(math.Floor(duration*rate+1e-9)) + 1
}

// resample evaluates the piecewise linear interpolant of a column-rate trace
// at n instants spaced 1/rate apart, starting at 0.
func resample(values []float64, columnRate, rate float64, n int) ([]float64, error) {
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i) / columnRate
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, values); err != nil {
		return nil, fmt.Errorf("failed to fit trace: %w", err)
	}

	out := make([]float64, n)
	for j := range out {
		out[j] = pl.Predict(float64(j) / rate)
	}
	return out, nil
}
