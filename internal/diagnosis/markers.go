package diagnosis

import (
	"fmt"
	"math"
)

// RiskMarkers are the measurements the STEMI criteria are built on.
type RiskMarkers struct {
	// STE60V3 is the ST elevation 60 ms after the J point in lead V3, in mm.
	STE60V3 float64 `json:"ste60_v3_mm"`

	// QTc is the heart-rate-corrected QT interval in ms.
	QTc float64 `json:"qtc_ms"`

	// RAV4 is the R-wave amplitude in lead V4, in mm.
	RAV4 float64 `json:"ra_v4_mm"`
}

// Validate rejects non-finite markers and a non-positive QTc.
func (m RiskMarkers) Validate() error {
	markers := []struct {
		name string
		v    float64
	}{{"STE60 V3", m.STE60V3}, {"QTc", m.QTc}, {"RA V4", m.RAV4}}
	for _, mk := range markers {
		if math.IsNaN(mk.v) || math.IsInf(mk.v, 0) {
			return fmt.Errorf("risk marker %s is not finite", mk.name)
		}
	}
	if m.QTc <= 0 {
		return fmt.Errorf("QTc must be positive, got %g", m.QTc)
	}
	return nil
}

// RiskMarkerEvaluator measures risk markers on a signal matrix (leads x
// samples, millivolts) sampled at rate Hz.
type RiskMarkerEvaluator interface {
	Evaluate(signal [][]float64, rate float64) (RiskMarkers, error)
}

// EvaluatorFunc adapts a function to RiskMarkerEvaluator.
type EvaluatorFunc func(signal [][]float64, rate float64) (RiskMarkers, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(signal [][]float64, rate float64) (RiskMarkers, error) {
	return f(signal, rate)
}
