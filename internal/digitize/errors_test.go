package digitize

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("orientation: %w", ErrImageFormat), "image_format"},
		{fmt.Errorf("grid: %w", ErrCalibration), "calibration"},
		{fmt.Errorf("binarize: %w", ErrBinarization), "binarization"},
		{fmt.Errorf("extract: %w", &ExtractionError{Lead: "II"}), "extraction"},
		{errors.New("disk on fire"), "internal"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestExtractionError(t *testing.T) {
	err := error(&ExtractionError{Lead: "V3", FromColumn: 12, ToColumn: 40, Reason: "gap too long"})

	if !errors.Is(err, ErrExtraction) {
		t.Error("ExtractionError does not match ErrExtraction")
	}
	if errors.Is(err, ErrCalibration) {
		t.Error("ExtractionError matches ErrCalibration")
	}
	for _, part := range []string{"V3", "12-40", "gap too long"} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("message %q lacks %q", err.Error(), part)
		}
	}
}
