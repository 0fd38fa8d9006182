package diagnosis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Result is a diagnosis with the evidence behind it. Exactly one of
// Criterion and Network is set.
type Result struct {
	Diagnosis Diagnosis             `json:"diagnosis"`
	Criterion *CriterionExplanation `json:"criterion,omitempty"`
	Network   *NetworkExplanation   `json:"network,omitempty"`
}

// CriterionExplanation records a linear criterion evaluation.
type CriterionExplanation struct {
	Criterion LinearCriterion `json:"criterion"`
	Markers   RiskMarkers     `json:"markers"`
	Score     float64         `json:"score"`
	Met       bool            `json:"met"`
}

// NetworkExplanation records a model evaluation.
type NetworkExplanation struct {
	Condition   Diagnosis `json:"condition"`
	Model       string    `json:"model"`
	Probability float64   `json:"probability"`
	Threshold   float64   `json:"threshold"`
}

// Explain renders the result as one sentence.
func (r *Result) Explain() string {
	switch {
	case r.Criterion != nil:
		return r.Criterion.explain(r.Diagnosis)
	case r.Network != nil:
		return fmt.Sprintf("Neural network calculated: the probability of %s is %s",
			r.Network.Condition.Abbrev(), formatNumber(r.Network.Probability))
	default:
		return "Diagnosis: " + r.Diagnosis.String()
	}
}

func (e *CriterionExplanation) explain(d Diagnosis) string {
	verb := "did not exceed"
	if e.Score > e.Criterion.Threshold {
		verb = "exceeded"
	}
	return fmt.Sprintf("Criterion value calculated as follows: %s = %s %s the threshold %s, therefore the diagnosis is %s",
		e.Criterion.Formula(), formatNumber(e.Score), verb, formatNumber(e.Criterion.Threshold), d)
}

// Formula renders the criterion with its coefficients, e.g.
// "(1.196 * [STE60 V3 in mm]) + (0.059 * [QTc in ms]) - (0.326 * min([RA V4 in mm], 15))".
func (c LinearCriterion) Formula() string {
	var b strings.Builder
	terms := []struct {
		coeff float64
		name  string
	}{
		{c.STE, "[STE60 V3 in mm]"},
		{c.QTc, "[QTc in ms]"},
		{c.RAV4, "min([RA V4 in mm], " + formatNumber(c.RAV4Cap) + ")"},
	}
	for i, t := range terms {
		switch {
		case i == 0 && t.coeff < 0:
			b.WriteString("-")
		case i > 0 && t.coeff < 0:
			b.WriteString(" - ")
		case i > 0:
			b.WriteString(" + ")
		}
		fmt.Fprintf(&b, "(%s * %s)", formatNumber(math.Abs(t.coeff)), t.name)
	}
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
