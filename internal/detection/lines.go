package detection

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrNoEdges is returned when there are no edge points to analyse.
var ErrNoEdges = errors.New("no edge points")

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// SkewScan controls the angle search of DetectSkew. All values are degrees.
type SkewScan struct {
	// MaxDegrees bounds the coarse scan to [-MaxDegrees, +MaxDegrees].
	MaxDegrees float64

	// CoarseStep is the spacing of the coarse scan.
	CoarseStep float64

	// FineStep is the spacing of the fine scan around the best coarse angle.
	// The fine scan covers ±CoarseStep.
	FineStep float64
}

// DefaultSkewScan covers the tilt of a hand-held phone photo of a strip.
var DefaultSkewScan = SkewScan{MaxDegrees: 15, CoarseStep: 0.5, FineStep: 0.02}

// SkewResult is the dominant orientation of near-horizontal line structures.
type SkewResult struct {
	// AngleDegrees is the counter-clockwise tilt of the content. Rotating the
	// image by -AngleDegrees levels it.
	AngleDegrees float64 `json:"angle_degrees"`

	// Confidence is the peak projection energy divided by the median energy of
	// the coarse scan. Values near 1 mean no angle stands out.
	Confidence float64 `json:"confidence"`

	// EdgePoints is the number of points that voted.
	EdgePoints int `json:"edge_points"`
}

// EdgePoints collects the coordinates of set pixels in an edge grid, row by
// row.
func EdgePoints(edges [][]bool) []Point {
	points := make([]Point, 0)
	for y, row := range edges {
		for x, e := range row {
			if e {
				points = append(points, Point{X: x, Y: y})
			}
		}
	}
	return points
}

// DetectSkew finds the dominant angle of near-horizontal lines among points.
//
// # Algorithm
//
// This is a Hough transform restricted to one family of lines. For a candidate
// angle a every point is projected onto rho = y*cos(a) + x*sin(a). Points on a
// line tilted counter-clockwise by a share one rho, so the projection histogram
// of a correctly chosen angle is made of a few tall spikes. Each vote is split
// linearly between the two nearest integer bins and the angle is scored by the
// sum of squared bin weights, which rewards concentration rather than count.
//
//  1. Coarse scan over [-MaxDegrees, +MaxDegrees] in CoarseStep
//  2. Fine scan of ±CoarseStep around the best coarse angle in FineStep
//  3. Ties go to the smallest |angle|
//
// width and height are the dimensions of the grid the points came from; they
// size the histogram.
func DetectSkew(points []Point, width, height int, scan SkewScan) (*SkewResult, error) {
	if len(points) == 0 {
		return nil, ErrNoEdges
	}
	if scan.CoarseStep <= 0 || scan.FineStep <= 0 || scan.MaxDegrees < 0 {
		return nil, errors.New("invalid skew scan parameters")
	}

	proj := newProjector(width, height)

	coarseCount := int(math.Round(scan.MaxDegrees / scan.CoarseStep))
	coarse := make([]float64, 0, 2*coarseCount+1)
	bestAngle, bestEnergy := 0.0, -1.0
	for k := -coarseCount; k <= coarseCount; k++ {
		angle := float64(k) * scan.CoarseStep
		e := proj.energy(points, angle)
		coarse = append(coarse, e)
		if better(angle, e, bestAngle, bestEnergy) {
			bestAngle, bestEnergy = angle, e
		}
	}

	center := bestAngle
	fineCount := int(math.Round(scan.CoarseStep / scan.FineStep))
	for k := -fineCount; k <= fineCount; k++ {
		if k == 0 {
			continue
		}
		angle := center + float64(k)*scan.FineStep
		if math.Abs(angle) > scan.MaxDegrees+scan.CoarseStep {
			continue
		}
		e := proj.energy(points, angle)
		if better(angle, e, bestAngle, bestEnergy) {
			bestAngle, bestEnergy = angle, e
		}
	}

	sort.Float64s(coarse)
	median := stat.Quantile(0.5, stat.Empirical, coarse, nil)
	confidence := math.Inf(1)
	if median > 0 {
		confidence = bestEnergy / median
	}

	return &SkewResult{
		AngleDegrees: bestAngle,
		Confidence:   confidence,
		EdgePoints:   len(points),
	}, nil
}

// better reports whether (angle, energy) beats the current best.
func better(angle, energy, bestAngle, bestEnergy float64) bool {
	if energy > bestEnergy {
		return true
	}
	return energy == bestEnergy && math.Abs(angle) < math.Abs(bestAngle)
}

// projector owns the histogram reused across candidate angles.
type projector struct {
	offset float64
	bins   []float64
}

func newProjector(width, height int) *projector {
	// x*sin(a) can be as low as -width; y*cos(a) is never negative.
	return &projector{
		offset: float64(width),
		bins:   make([]float64, height+2*width+2),
	}
}

// energy projects points at angleDeg and returns the sum of squared bin
// weights.
func (p *projector) energy(points []Point, angleDeg float64) float64 {
	for i := range p.bins {
		p.bins[i] = 0
	}

	rad := angleDeg * math.Pi / 180.0
	cosA := math.Cos(rad)
	sinA := math.Sin(rad)
	last := len(p.bins) - 1

	for _, pt := range points {
		r := float64(pt.Y)*cosA + float64(pt.X)*sinA + p.offset
		if r < 0 {
			r = 0
		}
		i := int(r)
		if i >= last {
			p.bins[last]++
			continue
		}
		f := r - float64(i)
		p.bins[i] += 1 - f
		p.bins[i+1] += f
	}

	var sum float64
	for _, w := range p.bins {
		sum += w * w
	}
	return sum
}
