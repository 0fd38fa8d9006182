package detection

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// ErrNoPeriod is returned when a profile shows no repeating structure.
var ErrNoPeriod = errors.New("no periodic structure")

// Autocorrelation returns the normalised autocorrelation of a profile.
//
// The profile mean is removed first, then the autocorrelation is computed as
// the inverse transform of the power spectrum (Wiener-Khinchin). The input is
// zero-padded to twice its length so the result is the linear, not circular,
// autocorrelation. r[0] is 1; a flat profile has no variance and returns nil.
func Autocorrelation(profile []float64) []float64 {
	n := len(profile)
	if n < 2 {
		return nil
	}

	mean := stat.Mean(profile, nil)
	padded := make([]float64, 2*n)
	for i, v := range profile {
		padded[i] = v - mean
	}

	fft := fourier.NewFFT(len(padded))
	coeffs := fft.Coefficients(nil, padded)
	for i, c := range coeffs {
		coeffs[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	seq := fft.Sequence(nil, coeffs)

	r0 := seq[0]
	if r0 <= 0 || math.IsNaN(r0) {
		return nil
	}
	r := make([]float64, n)
	for i := range r {
		r[i] = seq[i] / r0
	}
	return r
}

// Peak is a local maximum of an autocorrelation.
type Peak struct {
	// Lag is the sub-pixel lag of the maximum.
	Lag float64 `json:"lag"`

	// Value is the autocorrelation at the integer lag.
	Value float64 `json:"value"`
}

// AutocorrelationPeaks finds the local maxima of r that can be grid periods.
//
// The search starts past the central lobe (after the first lag where r drops
// to zero or below) and never before minLag. It stops at half the length,
// beyond which too few samples overlap. Peaks below threshold are ignored.
// Each lag is refined by fitting a parabola through its neighbours.
func AutocorrelationPeaks(r []float64, minLag int, threshold float64) []Peak {
	n := len(r)
	start := -1
	for k := 1; k < n; k++ {
		if r[k] <= 0 {
			start = k
			break
		}
	}
	if start < 0 {
		return nil
	}
	if start < minLag {
		start = minLag
	}
	if start < 1 {
		start = 1
	}

	peaks := make([]Peak, 0)
	for k := start; k < n/2 && k+1 < n; k++ {
		if r[k] < threshold || r[k] < r[k-1] || r[k] <= r[k+1] {
			continue
		}
		lag := float64(k)
		denom := r[k-1] - 2*r[k] + r[k+1]
		if denom != 0 {
			delta := 0.5 * (r[k-1] - r[k+1]) / denom
			if math.Abs(delta) <= 0.5 {
				lag += delta
			}
		}
		peaks = append(peaks, Peak{Lag: lag, Value: r[k]})
	}
	return peaks
}

// PeriodEstimate is the result of EstimatePeriod.
type PeriodEstimate struct {
	// Period is the median of the candidate periods in pixels.
	Period float64 `json:"period"`

	// Spread is the median absolute deviation of the candidates divided by
	// Period. Clean grids score well below 0.05.
	Spread float64 `json:"spread"`

	// Candidates are the per-peak period estimates, in peak order.
	Candidates []float64 `json:"candidates"`

	// Peaks are the autocorrelation peaks that were considered.
	Peaks []Peak `json:"peaks"`
}

// candidateTolerance is how far, as a fraction of the first peak lag, a later
// peak may sit from a whole multiple of it and still count.
const candidateTolerance = 0.25

// EstimatePeriod estimates the repeat distance of a 1-D profile.
//
// The first autocorrelation peak L1 anchors the estimate. Every peak Lj whose
// lag is close to a whole multiple n*L1 contributes the candidate Lj/n; peaks
// far from any multiple (for example the echo of a trace) are discarded.
// Averaging over harmonics is what gives sub-pixel accuracy: the fifth peak of
// a 10.2 px grid sits at lag 51.
//
// Returns ErrNoPeriod when the profile is flat or has no usable peak.
func EstimatePeriod(profile []float64, minLag int, threshold float64) (*PeriodEstimate, error) {
	r := Autocorrelation(profile)
	if r == nil {
		return nil, ErrNoPeriod
	}
	peaks := AutocorrelationPeaks(r, minLag, threshold)
	if len(peaks) == 0 {
		return nil, ErrNoPeriod
	}

	first := peaks[0].Lag
	candidates := make([]float64, 0, len(peaks))
	for _, p := range peaks {
		mult := math.Round(p.Lag / first)
		if mult < 1 {
			continue
		}
		if math.Abs(p.Lag-mult*first) <= candidateTolerance*first {
			candidates = append(candidates, p.Lag/mult)
		}
	}

	sorted := append([]float64(nil), candidates...)
	sort.Float64s(sorted)
	period := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	deviations := make([]float64, len(sorted))
	for i, c := range sorted {
		deviations[i] = math.Abs(c - period)
	}
	sort.Float64s(deviations)
	mad := stat.Quantile(0.5, stat.Empirical, deviations, nil)

	return &PeriodEstimate{
		Period:     period,
		Spread:     mad / period,
		Candidates: candidates,
		Peaks:      peaks,
	}, nil
}
