package detection

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

// pulseProfile puts a unit pulse at the rounded position of every multiple of
// period.
func pulseProfile(n int, period float64) []float64 {
	p := make([]float64, n)
	for k := 0; ; k++ {
		i := int(math.Round(float64(k) * period))
		if i >= n {
			break
		}
		p[i] = 1
	}
	return p
}

func TestAutocorrelation(t *testing.T) {
	profile := make([]float64, 400)
	for i := range profile {
		profile[i] = math.Sin(2 * math.Pi * float64(i) / 20)
	}

	r := Autocorrelation(profile)
	if len(r) != len(profile) {
		t.Fatalf("length: got %d, want %d", len(r), len(profile))
	}
	if math.Abs(r[0]-1) > 1e-12 {
		t.Errorf("r[0]: got %v, want 1", r[0])
	}
	if r[20] < 0.9 {
		t.Errorf("r[period]: got %v, want > 0.9", r[20])
	}
	if r[10] > -0.9 {
		t.Errorf("r[period/2]: got %v, want < -0.9", r[10])
	}
}

func TestAutocorrelation_Flat(t *testing.T) {
	flat := make([]float64, 64)
	for i := range flat {
		flat[i] = 3
	}
	if r := Autocorrelation(flat); r != nil {
		t.Errorf("flat profile: got %v, want nil", r[:4])
	}
	if r := Autocorrelation([]float64{1}); r != nil {
		t.Error("single sample should return nil")
	}
}

func TestAutocorrelationPeaks(t *testing.T) {
	r := make([]float64, 20)
	copy(r, []float64{1, 0.5, -0.2, 0.1, 0.6, 0.1, -0.1, 0.3, 0.5, 0.3})

	tests := []struct {
		name      string
		minLag    int
		threshold float64
		want      []float64
	}{
		{"both", 3, 0.1, []float64{4, 8}},
		{"threshold", 3, 0.55, []float64{4}},
		{"min lag", 5, 0.1, []float64{8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peaks := AutocorrelationPeaks(r, tt.minLag, tt.threshold)
			if len(peaks) != len(tt.want) {
				t.Fatalf("got %d peaks (%v), want %v", len(peaks), peaks, tt.want)
			}
			for i, p := range peaks {
				if math.Abs(p.Lag-tt.want[i]) > 1e-12 {
					t.Errorf("peak %d lag: got %v, want %v", i, p.Lag, tt.want[i])
				}
			}
		})
	}
}

func TestAutocorrelationPeaks_NoZeroCrossing(t *testing.T) {
	r := []float64{1, 0.9, 0.8, 0.9, 0.7, 0.6}
	if peaks := AutocorrelationPeaks(r, 1, 0.1); peaks != nil {
		t.Errorf("got %v, want nil", peaks)
	}
}

func TestEstimatePeriod(t *testing.T) {
	tests := []struct {
		name   string
		period float64
		tol    float64
	}{
		{"integer", 10, 0.01},
		{"fractional", 10.4, 0.15},
		{"coarse", 16, 0.01},
		{"fine", 8, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := EstimatePeriod(pulseProfile(600, tt.period), 3, 0.1)
			if err != nil {
				t.Fatalf("EstimatePeriod failed: %v", err)
			}
			if math.Abs(est.Period-tt.period) > tt.tol {
				t.Errorf("period: got %.3f, want %.3f", est.Period, tt.period)
			}
			if len(est.Candidates) < 2 {
				t.Errorf("expected several candidates, got %v", est.Candidates)
			}
			if est.Spread > 0.1 {
				t.Errorf("spread: got %.3f, want <= 0.1", est.Spread)
			}
		})
	}
}

func TestEstimatePeriod_Flat(t *testing.T) {
	if _, err := EstimatePeriod(make([]float64, 100), 3, 0.1); !errors.Is(err, ErrNoPeriod) {
		t.Errorf("got %v, want ErrNoPeriod", err)
	}
}

func TestEstimatePeriod_Noise(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	noise := make([]float64, 4000)
	for i := range noise {
		noise[i] = rng.Float64()
	}

	est, err := EstimatePeriod(noise, 3, 0.1)
	if err == nil && len(est.Candidates) >= 2 && est.Spread <= 0.1 {
		t.Errorf("noise produced a confident period: %+v", est)
	}
}
