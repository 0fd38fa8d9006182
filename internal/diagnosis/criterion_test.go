package diagnosis

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestCriterionByName(t *testing.T) {
	if _, err := CriterionByName(""); !errors.Is(err, ErrNoCriterion) {
		t.Errorf("empty name: got %v, want ErrNoCriterion", err)
	}
	if _, err := CriterionByName("smith"); !errors.Is(err, ErrUnknownCriterion) {
		t.Errorf("unknown name: got %v, want ErrUnknownCriterion", err)
	}
	for _, name := range CriterionNames() {
		c, err := CriterionByName(name)
		if err != nil || c.Name != name {
			t.Errorf("CriterionByName(%q) = %+v, %v", name, c, err)
		}
	}
}

func TestLinearCriterion_Score(t *testing.T) {
	m := RiskMarkers{STE60V3: 2, QTc: 400, RAV4: 20}

	// min(RA V4, 15) caps the last term.
	wantA := 1.196*2 + 0.059*400 - 0.326*15
	if got := CriterionA.Score(m); math.Abs(got-wantA) > 1e-12 {
		t.Errorf("A: got %v, want %v", got, wantA)
	}
	wantB := 2.9*2 + 0.3*400 - 1.7*15
	if got := CriterionB.Score(m); math.Abs(got-wantB) > 1e-12 {
		t.Errorf("B: got %v, want %v", got, wantB)
	}
}

func TestLinearCriterion_Classify(t *testing.T) {
	tests := []struct {
		name      string
		criterion LinearCriterion
		markers   RiskMarkers
		want      Diagnosis
	}{
		{"A above threshold", CriterionA, RiskMarkers{STE60V3: 4, QTc: 450, RAV4: 5}, MyocardialInfarction},
		{"A below threshold", CriterionA, RiskMarkers{STE60V3: 1, QTc: 400, RAV4: 12}, BenignEarlyRepolarization},
		{"B below threshold", CriterionB, RiskMarkers{STE60V3: 1, QTc: 400, RAV4: 10}, MyocardialInfarction},
		{"B above threshold", CriterionB, RiskMarkers{STE60V3: 4, QTc: 450, RAV4: 2}, BenignEarlyRepolarization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.criterion.Classify(tt.markers)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if r.Diagnosis != tt.want {
				t.Errorf("got %v, want %v (score %v)", r.Diagnosis, tt.want, r.Criterion.Score)
			}
			if r.Criterion == nil || r.Network != nil {
				t.Fatal("expected a criterion explanation only")
			}
			if r.Criterion.Met != (tt.want == MyocardialInfarction) {
				t.Errorf("Met: got %v", r.Criterion.Met)
			}
		})
	}
}

func TestLinearCriterion_ThresholdIsStrict(t *testing.T) {
	c := LinearCriterion{Name: "unit", STE: 1, Threshold: 10, RAV4Cap: 15}
	if c.Met(10) {
		t.Error("score equal to threshold must not be met")
	}
	c.MIWhen = Below
	if c.Met(10) {
		t.Error("score equal to threshold must not be met when comparing below")
	}
}

func TestLinearCriterion_RejectsBadMarkers(t *testing.T) {
	for _, m := range []RiskMarkers{
		{STE60V3: math.NaN(), QTc: 400},
		{STE60V3: 1, QTc: 0},
		{STE60V3: 1, QTc: 400, RAV4: math.Inf(1)},
	} {
		if _, err := CriterionA.Classify(m); err == nil {
			t.Errorf("%+v: expected error", m)
		}
	}
}

func TestDiagnoseSTEMI(t *testing.T) {
	signal := [][]float64{{0, 0.1, 0.2}}
	var gotRate float64
	evaluator := EvaluatorFunc(func(s [][]float64, rate float64) (RiskMarkers, error) {
		gotRate = rate
		return RiskMarkers{STE60V3: 4, QTc: 450, RAV4: 5}, nil
	})

	r, err := DiagnoseSTEMI(evaluator, CriterionA, signal, 500)
	if err != nil {
		t.Fatalf("DiagnoseSTEMI failed: %v", err)
	}
	if r.Diagnosis != MyocardialInfarction || gotRate != 500 {
		t.Errorf("got %v at rate %v", r.Diagnosis, gotRate)
	}

	if _, err := DiagnoseSTEMI(evaluator, LinearCriterion{}, signal, 500); !errors.Is(err, ErrNoCriterion) {
		t.Errorf("zero criterion: got %v, want ErrNoCriterion", err)
	}

	boom := errors.New("lead V3 missing")
	failing := EvaluatorFunc(func([][]float64, float64) (RiskMarkers, error) { return RiskMarkers{}, boom })
	if _, err := DiagnoseSTEMI(failing, CriterionA, signal, 500); !errors.Is(err, boom) {
		t.Errorf("evaluator failure: got %v", err)
	}
}

func TestResult_ExplainCriterion(t *testing.T) {
	r := &Result{
		Diagnosis: MyocardialInfarction,
		Criterion: &CriterionExplanation{Criterion: CriterionA, Score: 31.2231, Met: true},
	}
	want := "Criterion value calculated as follows: " +
		"(1.196 * [STE60 V3 in mm]) + (0.059 * [QTc in ms]) - (0.326 * min([RA V4 in mm], 15)) = 31.2231 " +
		"exceeded the threshold 28.13, therefore the diagnosis is Myocardial Infarction"
	if got := r.Explain(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	r = &Result{
		Diagnosis: BenignEarlyRepolarization,
		Criterion: &CriterionExplanation{Criterion: CriterionA, Score: 26.3252135133801},
	}
	if got := r.Explain(); !strings.Contains(got, "= 26.3252135133801 did not exceed the threshold 28.13") ||
		!strings.HasSuffix(got, "Benign Early Repolarization") {
		t.Errorf("got %q", got)
	}
}

func TestLinearCriterion_Formula(t *testing.T) {
	want := "(2.9 * [STE60 V3 in mm]) + (0.3 * [QTc in ms]) - (1.7 * min([RA V4 in mm], 15))"
	if got := CriterionB.Formula(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
