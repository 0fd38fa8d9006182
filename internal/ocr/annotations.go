package ocr

import (
	"errors"
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"

	"github.com/ironsheep/ecg-tools-mcp/internal/detection"
	ecgimaging "github.com/ironsheep/ecg-tools-mcp/internal/imaging"
)

// ErrOCRUnavailable is returned when the binary was built without Tesseract.
var ErrOCRUnavailable = errors.New("OCR unavailable: built without the tesseract tag")

// DefaultLanguage is the Tesseract language used for labels.
const DefaultLanguage = "eng"

// Annotations are the recording settings found in label text.
type Annotations struct {
	// PaperSpeed is in mm/s, zero when not found.
	PaperSpeed float64 `json:"paper_speed_mm_per_sec,omitempty"`

	// Gain is in mm/mV, zero when not found.
	Gain float64 `json:"gain_mm_per_mv,omitempty"`

	// Text is the raw text that was parsed.
	Text string `json:"text"`
}

// HasSpeed reports whether a paper speed was found.
func (a Annotations) HasSpeed() bool { return a.PaperSpeed > 0 }

// HasGain reports whether a gain was found.
func (a Annotations) HasGain() bool { return a.Gain > 0 }

var (
	speedPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*mm\s*/\s*s(?:ec)?\b`)
	gainPattern  = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*mm\s*/\s*mv\b`)
)

// ParseAnnotations extracts paper speed and gain from free text such as
// "25 mm/s 10 mm/mV", "50mm/sec" or "5 mm / mV". The first match of each
// wins; a comma decimal separator is accepted.
func ParseAnnotations(text string) Annotations {
	a := Annotations{Text: text}
	if v, ok := firstNumber(speedPattern, text); ok {
		a.PaperSpeed = v
	}
	if v, ok := firstNumber(gainPattern, text); ok {
		a.Gain = v
	}
	return a
}

func firstNumber(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// labelEdgeThreshold is the Sobel magnitude of glyph edges. Labels are
// printed in solid black, well above grid contrast.
const labelEdgeThreshold = 0.25

// LocateAnnotations finds regions of img that look like printed text,
// highest confidence first.
func LocateAnnotations(img image.Image, minConfidence float64) []detection.TextRegion {
	edges := ecgimaging.DirectionalEdges(img, labelEdgeThreshold, ecgimaging.AllStructures)
	return detection.DetectTextRegions(edges, minConfidence)
}

// Result is the outcome of ReadAnnotations.
type Result struct {
	Annotations Annotations            `json:"annotations"`
	Regions     []detection.TextRegion `json:"regions"`
}

const (
	// maxLabelRegions bounds the number of regions sent to Tesseract.
	maxLabelRegions = 8

	labelPadding = 4
	labelScale   = 2.0
)

// ReadAnnotations recognises the label text of a strip and parses it.
//
// Candidate label regions are located first and each is recognised on its
// own, padded and upscaled; when none is found the whole image is read.
func ReadAnnotations(img image.Image, language string, minConfidence float64) (*Result, error) {
	if language == "" {
		language = DefaultLanguage
	}
	regions := LocateAnnotations(img, minConfidence)
	if len(regions) > maxLabelRegions {
		regions = regions[:maxLabelRegions]
	}

	var texts []string
	if len(regions) == 0 {
		text, err := recognize(img, language)
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	for _, r := range regions {
		rect := image.Rect(r.Bounds.X1, r.Bounds.Y1, r.Bounds.X2, r.Bounds.Y2).Inset(-labelPadding)
		crop, err := ecgimaging.Crop(img, rect, labelScale)
		if err != nil {
			return nil, fmt.Errorf("failed to crop label region: %w", err)
		}
		text, err := recognize(crop, language)
		if err != nil {
			return nil, err
		}
		texts = append(texts, strings.TrimSpace(text))
	}

	return &Result{
		Annotations: ParseAnnotations(strings.Join(texts, "\n")),
		Regions:     regions,
	}, nil
}
