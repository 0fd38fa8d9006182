// Package digitize converts a photographed or scanned paper ECG strip into a
// calibrated multi-lead signal.
//
// # Pipeline
//
// Four stages run strictly forward, each behind its own interface so tests
// and callers can swap any of them:
//
//  1. OrientationCorrector (HoughOrientation) levels the strip using the
//     dominant angle of near-horizontal grid lines and trace baselines.
//  2. GridDetector (AutocorrelationGrid) measures pixels per millimetre from
//     the periodicity of the printed grid.
//  3. Binarizer (AdaptiveBinarizer) separates trace ink from paper and grid.
//  4. TraceExtractor (ColumnTraceExtractor) follows the trace column by
//     column in each lead region, converts rows to millivolts and resamples
//     to a fixed rate.
//
// Grid detection and binarization both read the oriented image; the extractor
// combines the mask with the scale.
//
// # Units
//
// Time per column is 1 / (PixelsPerMMX * PaperSpeed) seconds and one pixel of
// height is 1 / (PixelsPerMMY * Gain) millivolts. Standard paper runs at
// 25 mm/s with 10 mm/mV.
//
// # Errors
//
// Failures wrap one of ErrImageFormat, ErrCalibration, ErrBinarization or
// ErrExtraction. Stages never guess: an image without a dominant line
// direction or a consistent grid fails rather than being rotated or scaled
// arbitrarily, and trace gaps wider than MaxGapColumns fail with an
// *ExtractionError naming the columns.
//
// # Determinism
//
// Every stage is a pure function of its input and options. Extraction uses
// only sequential loops, so repeated runs give bit-identical samples.
package digitize
