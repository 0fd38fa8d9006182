package detection

import (
	"math"
	"sort"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
// (X1, Y1) is inclusive, (X2, Y2) exclusive.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// TextRegion is an area likely to hold printed annotation text such as
// "25 mm/s  10 mm/mV" or a lead label.
type TextRegion struct {
	Bounds     Bounds  `json:"bounds"`
	Confidence float64 `json:"confidence"`
	Area       int     `json:"area"`
}

// textWindows are the sliding window sizes, from lead labels up to the
// settings line printed along the bottom margin.
var textWindows = []struct{ w, h int }{
	{40, 16},
	{80, 24},
	{160, 32},
}

// DetectTextRegions finds regions of an edge grid that look like text.
//
// Text has a medium edge density (around 20%) and, unlike the trace or the
// grid, is built from short strokes. A window scores
// stroke * (1 - |density-0.2|/0.2), where stroke is the fraction of its edge
// pixels that lie on short runs in both directions. Overlapping hits are
// merged and the result is sorted by confidence, highest first.
func DetectTextRegions(edges [][]bool, minConfidence float64) []TextRegion {
	height := len(edges)
	if height == 0 {
		return nil
	}
	width := len(edges[0])

	candidates := make([]TextRegion, 0)
	for _, ws := range textWindows {
		stepX := ws.w / 2
		stepY := ws.h / 2

		for y := 0; y <= height-ws.h; y += stepY {
			for x := 0; x <= width-ws.w; x += stepX {
				edgeCount := 0
				for wy := 0; wy < ws.h; wy++ {
					for wx := 0; wx < ws.w; wx++ {
						if edges[y+wy][x+wx] {
							edgeCount++
						}
					}
				}

				area := ws.w * ws.h
				density := float64(edgeCount) / float64(area)
				if density < 0.05 || density > 0.4 {
					continue
				}

				confidence := strokeScore(edges, x, y, ws.w, ws.h) * (1.0 - math.Abs(density-0.2)/0.2)
				if confidence >= minConfidence {
					candidates = append(candidates, TextRegion{
						Bounds:     Bounds{X1: x, Y1: y, X2: x + ws.w, Y2: y + ws.h},
						Confidence: math.Round(confidence*1000) / 1000,
						Area:       area,
					})
				}
			}
		}
	}

	merged := mergeOverlappingRegions(candidates)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

// strokeScore returns the fraction of edge pixels in a window that sit on a
// short horizontal run (under a third of the width) and a short vertical run
// (under half the height). Letters are made of such strokes; grid lines and
// the trace are not.
func strokeScore(edges [][]bool, x, y, w, h int) float64 {
	hrun := make([]int, w*h)
	vrun := make([]int, w*h)

	for row := 0; row < h; row++ {
		start := 0
		for col := 0; col <= w; col++ {
			if col < w && edges[y+row][x+col] {
				continue
			}
			for c := start; c < col; c++ {
				hrun[row*w+c] = col - start
			}
			start = col + 1
		}
	}
	for col := 0; col < w; col++ {
		start := 0
		for row := 0; row <= h; row++ {
			if row < h && edges[y+row][x+col] {
				continue
			}
			for r := start; r < row; r++ {
				vrun[r*w+col] = row - start
			}
			start = row + 1
		}
	}

	stroke, total := 0, 0
	for i := range hrun {
		if hrun[i] == 0 {
			continue
		}
		total++
		if hrun[i] < w/3 && vrun[i] < h/2 {
			stroke++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(stroke) / float64(total)
}

// mergeOverlappingRegions combines overlapping text regions.
func mergeOverlappingRegions(regions []TextRegion) []TextRegion {
	if len(regions) == 0 {
		return regions
	}

	merged := make([]TextRegion, 0)
	for _, r := range regions {
		foundMerge := false
		for i := range merged {
			if regionsOverlap(r.Bounds, merged[i].Bounds) {
				merged[i].Bounds = mergeBounds(r.Bounds, merged[i].Bounds)
				merged[i].Confidence = math.Max(r.Confidence, merged[i].Confidence)
				merged[i].Area = (merged[i].Bounds.X2 - merged[i].Bounds.X1) *
					(merged[i].Bounds.Y2 - merged[i].Bounds.Y1)
				foundMerge = true
				break
			}
		}
		if !foundMerge {
			merged = append(merged, r)
		}
	}
	return merged
}

func regionsOverlap(a, b Bounds) bool {
	return a.X1 < b.X2 && a.X2 > b.X1 && a.Y1 < b.Y2 && a.Y2 > b.Y1
}

func mergeBounds(a, b Bounds) Bounds {
	return Bounds{
		X1: min(a.X1, b.X1),
		Y1: min(a.Y1, b.Y1),
		X2: max(a.X2, b.X2),
		Y2: max(a.Y2, b.Y2),
	}
}
