// Package detection finds the geometric structure of a scanned ECG strip.
//
// The functions here work on plain data (edge grids, point lists, 1-D
// profiles) rather than images, so they can be tested without pixels and
// reused by both the digitizing pipeline and the MCP tools.
//
// # Skew
//
// DetectSkew runs a Hough transform restricted to near-horizontal lines. Grid
// rows and the trace baselines dominate the edge map of a strip, so the angle
// that concentrates their projection is the tilt of the paper.
//
// # Grid period
//
// EstimatePeriod measures the repeat distance of a column or row profile from
// its autocorrelation. The printed millimetre grid is the strongest periodic
// structure on the paper; the trace is not periodic at the grid scale.
//
// # Text
//
// DetectTextRegions locates printed annotations (lead labels, the
// "25 mm/s 10 mm/mV" settings line) so OCR can be aimed at them.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Angles are counter-clockwise as seen on screen
package detection
