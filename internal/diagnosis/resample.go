package diagnosis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// Resample converts every lead of signal from rate `from` to rate `to` by
// linear interpolation. The output covers the same time span: sample j sits
// at j/to seconds and the last sample is no later than the last input.
func Resample(signal [][]float64, from, to float64) ([][]float64, error) {
	if !(from > 0) || !(to > 0) {
		return nil, fmt.Errorf("invalid sampling rates %g -> %g", from, to)
	}
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	out := make([][]float64, len(signal))
	for i, lead := range signal {
		if len(lead) < 2 {
			return nil, fmt.Errorf("lead %d has %d samples, need at least 2", i, len(lead))
		}
		xs := make([]float64, len(lead))
		for k := range xs {
			xs[k] = float64(k) / from
		}

		var pl interp.PiecewiseLinear
		if err := pl.Fit(xs, lead); err != nil {
			return nil, fmt.Errorf("failed to fit lead %d: %w", i, err)
		}

		n := int(math.Floor(float64(len(lead)-1)/from*to+1e-9)) + 1
		row := make([]float64, n)
		for j := range row {
			row[j] = pl.Predict(float64(j) / to)
		}
		out[i] = row
	}
	return out, nil
}
