package digitize

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a stage wraps exactly one of them, so
// callers can branch with errors.Is.
var (
	// ErrImageFormat means the input cannot be interpreted as a strip image.
	ErrImageFormat = errors.New("image format error")

	// ErrCalibration means orientation or grid detection found no confident
	// estimate.
	ErrCalibration = errors.New("calibration error")

	// ErrBinarization means thresholding produced an empty or full mask.
	ErrBinarization = errors.New("binarization error")

	// ErrExtraction means a lead could not be reconstructed within the gap
	// limit.
	ErrExtraction = errors.New("extraction error")
)

// ExtractionError reports the column range of a lead that could not be
// reconstructed. Columns are relative to the lead region's left edge,
// ToColumn inclusive.
type ExtractionError struct {
	Lead       string
	FromColumn int
	ToColumn   int
	Reason     string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%v: lead %s columns %d-%d: %s", ErrExtraction, e.Lead, e.FromColumn, e.ToColumn, e.Reason)
}

// Unwrap makes errors.Is(err, ErrExtraction) hold.
func (e *ExtractionError) Unwrap() error {
	return ErrExtraction
}

// Kind returns a short machine-readable name for the kind of err, or
// "internal" when err wraps none of the package kinds.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrImageFormat):
		return "image_format"
	case errors.Is(err, ErrCalibration):
		return "calibration"
	case errors.Is(err, ErrBinarization):
		return "binarization"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	default:
		return "internal"
	}
}
