// Package imaging provides the pixel-level building blocks used to digitize
// ECG strips: luminance and gradient computation, directional edge maps, color
// statistics, crops, calibrated grid overlays and image loading.
//
// All functions treat their input images as read-only and return freshly
// allocated results. Grids of values ([][]float64, [][]bool) are indexed
// [y][x] relative to the image bounds origin, with (0,0) at the top-left
// corner, X increasing rightward and Y increasing downward.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Every other function is stateless
// and can be called concurrently.
//
// # Luminance
//
// Luminance uses ITU-R BT.601 weights on 8-bit components and maps to [0, 1]
// with 0 = black. Gradients are expressed in the same units.
package imaging
