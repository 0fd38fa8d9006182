package diagnosis

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrNoCriterion is returned when no criterion was selected.
	ErrNoCriterion = errors.New("no STEMI criterion selected")

	// ErrUnknownCriterion is returned for a criterion name that is not a
	// preset.
	ErrUnknownCriterion = errors.New("unknown STEMI criterion")
)

// Comparison is the direction in which a criterion score indicates MI.
type Comparison int

const (
	// Above: MI when the score is strictly greater than the threshold.
	Above Comparison = iota
	// Below: MI when the score is strictly less than the threshold.
	Below
)

func (c Comparison) String() string {
	if c == Below {
		return "below"
	}
	return "above"
}

// MarshalText encodes the comparison as "above" or "below".
func (c Comparison) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// LinearCriterion scores risk markers as
//
//	STE*STE60V3 + QTc*QTc + RAV4*min(RAV4, RAV4Cap)
//
// and compares the score with Threshold.
type LinearCriterion struct {
	Name string `json:"name"`

	STE  float64 `json:"ste_coefficient"`
	QTc  float64 `json:"qtc_coefficient"`
	RAV4 float64 `json:"ra_v4_coefficient"`

	// RAV4Cap limits the R-wave amplitude entering the score, in mm.
	RAV4Cap float64 `json:"ra_v4_cap"`

	Threshold float64    `json:"threshold"`
	MIWhen    Comparison `json:"mi_when"`
}

// The two formulations in circulation.
var (
	CriterionA = LinearCriterion{
		Name: "a", STE: 1.196, QTc: 0.059, RAV4: -0.326, RAV4Cap: 15,
		Threshold: 28.13, MIWhen: Above,
	}
	CriterionB = LinearCriterion{
		Name: "b", STE: 2.9, QTc: 0.3, RAV4: -1.7, RAV4Cap: 15,
		Threshold: 126.9, MIWhen: Below,
	}
)

var criteria = map[string]LinearCriterion{
	CriterionA.Name: CriterionA,
	CriterionB.Name: CriterionB,
}

// CriterionByName returns a preset. There is no default: an empty name is
// ErrNoCriterion.
func CriterionByName(name string) (LinearCriterion, error) {
	if name == "" {
		return LinearCriterion{}, ErrNoCriterion
	}
	c, ok := criteria[name]
	if !ok {
		return LinearCriterion{}, fmt.Errorf("%w %q (known: %v)", ErrUnknownCriterion, name, CriterionNames())
	}
	return c, nil
}

// CriterionNames lists the presets in sorted order.
func CriterionNames() []string {
	names := make([]string, 0, len(criteria))
	for n := range criteria {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Score evaluates the linear combination.
func (c LinearCriterion) Score(m RiskMarkers) float64 {
	return c.STE*m.STE60V3 + c.QTc*m.QTc + c.RAV4*math.Min(m.RAV4, c.RAV4Cap)
}

// Met reports whether score indicates MI.
func (c LinearCriterion) Met(score float64) bool {
	if c.MIWhen == Below {
		return score < c.Threshold
	}
	return score > c.Threshold
}

// Classify applies the criterion: MI when it is met, BER otherwise.
func (c LinearCriterion) Classify(m RiskMarkers) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	score := c.Score(m)
	met := c.Met(score)

	d := BenignEarlyRepolarization
	if met {
		d = MyocardialInfarction
	}
	return &Result{
		Diagnosis: d,
		Criterion: &CriterionExplanation{
			Criterion: c,
			Markers:   m,
			Score:     score,
			Met:       met,
		},
	}, nil
}

// DiagnoseSTEMI measures risk markers on signal and applies criterion.
func DiagnoseSTEMI(evaluator RiskMarkerEvaluator, criterion LinearCriterion, signal [][]float64, rate float64) (*Result, error) {
	if criterion.Name == "" {
		return nil, ErrNoCriterion
	}
	markers, err := evaluator.Evaluate(signal, rate)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate risk markers: %w", err)
	}
	return criterion.Classify(markers)
}
