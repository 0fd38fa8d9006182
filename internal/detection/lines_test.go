package detection

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

// tiltedLinePoints returns points on parallel lines rotated counter-clockwise
// by angleDeg, one per column, starting at the given rows.
func tiltedLinePoints(width int, rows []int, angleDeg float64) []Point {
	slope := math.Tan(angleDeg * math.Pi / 180)
	points := make([]Point, 0, width*len(rows))
	for _, y0 := range rows {
		for x := 0; x < width; x++ {
			y := int(math.Round(float64(y0) - float64(x)*slope))
			points = append(points, Point{X: x, Y: y})
		}
	}
	return points
}

func TestDetectSkew(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
	}{
		{"level", 0},
		{"counter-clockwise", 3},
		{"clockwise", -2.5},
		{"steep", 11.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := tiltedLinePoints(300, []int{100, 140, 180, 220}, tt.angle)
			result, err := DetectSkew(points, 300, 300, DefaultSkewScan)
			if err != nil {
				t.Fatalf("DetectSkew failed: %v", err)
			}
			if math.Abs(result.AngleDegrees-tt.angle) > 0.1 {
				t.Errorf("angle: got %.3f, want %.3f", result.AngleDegrees, tt.angle)
			}
			if result.Confidence < 1.5 {
				t.Errorf("confidence: got %.3f, want >= 1.5", result.Confidence)
			}
			if result.EdgePoints != len(points) {
				t.Errorf("EdgePoints: got %d, want %d", result.EdgePoints, len(points))
			}
		})
	}
}

func TestDetectSkew_ScatterHasLowConfidence(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	points := make([]Point, 3000)
	for i := range points {
		points[i] = Point{X: rng.IntN(300), Y: rng.IntN(250)}
	}

	result, err := DetectSkew(points, 300, 250, DefaultSkewScan)
	if err != nil {
		t.Fatalf("DetectSkew failed: %v", err)
	}
	if result.Confidence >= 1.5 {
		t.Errorf("confidence of random scatter: got %.3f, want < 1.5", result.Confidence)
	}
}

func TestDetectSkew_Errors(t *testing.T) {
	if _, err := DetectSkew(nil, 10, 10, DefaultSkewScan); !errors.Is(err, ErrNoEdges) {
		t.Errorf("empty points: got %v, want ErrNoEdges", err)
	}
	points := []Point{{1, 1}}
	if _, err := DetectSkew(points, 10, 10, SkewScan{MaxDegrees: 5}); err == nil {
		t.Error("zero steps should be rejected")
	}
}

func TestDetectSkew_SinglePoint(t *testing.T) {
	// Only the level angle puts a lone point exactly on a bin.
	result, err := DetectSkew([]Point{{0, 5}}, 10, 10, DefaultSkewScan)
	if err != nil {
		t.Fatalf("DetectSkew failed: %v", err)
	}
	if result.AngleDegrees != 0 {
		t.Errorf("got %.3f, want 0", result.AngleDegrees)
	}
}

func TestEdgePoints(t *testing.T) {
	edges := [][]bool{
		{false, true, false},
		{true, false, true},
	}
	got := EdgePoints(edges)
	want := []Point{{1, 0}, {0, 1}, {2, 1}}
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: got %v, want %v", i, got[i], want[i])
		}
	}
}
