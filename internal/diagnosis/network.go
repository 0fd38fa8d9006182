package diagnosis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	// ErrNoModel is returned when the registry holds no model for a
	// condition.
	ErrNoModel = errors.New("no model registered")

	// ErrInvalidProbability is returned when a model scores outside [0, 1].
	ErrInvalidProbability = errors.New("model returned an invalid probability")
)

// Model scores a signal matrix (leads x samples, millivolts) sampled at rate
// Hz and returns the probability of the condition it was trained for.
type Model interface {
	Predict(signal [][]float64, rate float64) (float64, error)
}

// RateModel is a Model that only accepts signals at one sampling rate.
// ClassifyWithModel resamples other signals before calling Predict.
type RateModel interface {
	Model
	SamplingRate() float64
}

// ModelFunc adapts a function to Model.
type ModelFunc func(signal [][]float64, rate float64) (float64, error)

// Predict calls f.
func (f ModelFunc) Predict(signal [][]float64, rate float64) (float64, error) {
	return f(signal, rate)
}

// DefaultThreshold is the probability at or above which a condition is
// diagnosed when no threshold is registered with its model.
func DefaultThreshold(condition Diagnosis) float64 {
	if condition == BenignEarlyRepolarization {
		return 0.7
	}
	return 0.5
}

// Entry is a registered model.
type Entry struct {
	Condition Diagnosis
	Name      string
	Model     Model

	// Threshold in (0, 1]. Zero selects DefaultThreshold.
	Threshold float64
}

// Registry holds pre-loaded models by condition. Models are loaded once by
// the caller and passed in; nothing is constructed per classification.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[Diagnosis]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Diagnosis]Entry)}
}

// Register adds or replaces the model of e.Condition.
func (r *Registry) Register(e Entry) error {
	switch e.Condition {
	case MyocardialInfarction, BenignEarlyRepolarization, STElevation:
	default:
		return fmt.Errorf("cannot register a model for %v", e.Condition)
	}
	if e.Model == nil {
		return fmt.Errorf("nil model for %v", e.Condition)
	}
	if e.Threshold == 0 {
		e.Threshold = DefaultThreshold(e.Condition)
	}
	if e.Threshold < 0 || e.Threshold > 1 {
		return fmt.Errorf("threshold %g for %v outside (0, 1]", e.Threshold, e.Condition)
	}
	if e.Name == "" {
		e.Name = e.Condition.Abbrev()
	}

	r.mu.Lock()
	r.entries[e.Condition] = e
	r.mu.Unlock()
	return nil
}

// Lookup returns the entry registered for condition.
func (r *Registry) Lookup(condition Diagnosis) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[condition]
	return e, ok
}

// Conditions lists the conditions with a registered model.
func (r *Registry) Conditions() []Diagnosis {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Diagnosis, 0, len(r.entries))
	for d := range r.entries {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ClassifyWithModel scores signal with the model registered for condition.
// The result is condition when the probability reaches the threshold and
// Unknown otherwise.
func ClassifyWithModel(reg *Registry, condition Diagnosis, signal [][]float64, rate float64) (*Result, error) {
	e, ok := reg.Lookup(condition)
	if !ok {
		return nil, fmt.Errorf("%w for %v", ErrNoModel, condition)
	}

	input, inputRate := signal, rate
	if rm, ok := e.Model.(RateModel); ok && rm.SamplingRate() != rate {
		resampled, err := Resample(signal, rate, rm.SamplingRate())
		if err != nil {
			return nil, fmt.Errorf("failed to resample for model %s: %w", e.Name, err)
		}
		input, inputRate = resampled, rm.SamplingRate()
	}

	p, err := e.Model.Predict(input, inputRate)
	if err != nil {
		return nil, fmt.Errorf("model %s failed: %w", e.Name, err)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, fmt.Errorf("%w: %s returned %g", ErrInvalidProbability, e.Name, p)
	}

	d := Unknown
	if p >= e.Threshold {
		d = condition
	}
	return &Result{
		Diagnosis: d,
		Network: &NetworkExplanation{
			Condition:   condition,
			Model:       e.Name,
			Probability: p,
			Threshold:   e.Threshold,
		},
	}, nil
}
