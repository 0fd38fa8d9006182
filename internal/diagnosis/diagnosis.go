package diagnosis

import (
	"fmt"
	"strings"
)

// Diagnosis is the outcome of a classification.
type Diagnosis int

const (
	// Unknown means a network score fell below its threshold. It is not a
	// failure.
	Unknown Diagnosis = iota
	Normal
	MyocardialInfarction
	BenignEarlyRepolarization
	STElevation
)

var diagnosisNames = [...]struct{ long, short string }{
	Unknown:                   {"Unknown", "unknown"},
	Normal:                    {"Normal", "normal"},
	MyocardialInfarction:      {"Myocardial Infarction", "MI"},
	BenignEarlyRepolarization: {"Benign Early Repolarization", "BER"},
	STElevation:               {"ST Elevation", "STE"},
}

func (d Diagnosis) valid() bool {
	return d >= Unknown && d <= STElevation
}

// String returns the clinical name, e.g. "Myocardial Infarction".
func (d Diagnosis) String() string {
	if !d.valid() {
		return fmt.Sprintf("Diagnosis(%d)", int(d))
	}
	return diagnosisNames[d].long
}

// Abbrev returns the short code used in tool arguments: MI, BER, STE,
// normal or unknown.
func (d Diagnosis) Abbrev() string {
	if !d.valid() {
		return fmt.Sprintf("diagnosis%d", int(d))
	}
	return diagnosisNames[d].short
}

// MarshalText encodes the diagnosis as its short code.
func (d Diagnosis) MarshalText() ([]byte, error) {
	if !d.valid() {
		return nil, fmt.Errorf("invalid diagnosis %d", int(d))
	}
	return []byte(d.Abbrev()), nil
}

// UnmarshalText accepts a short code or clinical name, case-insensitively.
func (d *Diagnosis) UnmarshalText(text []byte) error {
	parsed, err := ParseDiagnosis(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDiagnosis maps a short code or clinical name to a Diagnosis.
func ParseDiagnosis(s string) (Diagnosis, error) {
	s = strings.TrimSpace(s)
	for d := Unknown; d <= STElevation; d++ {
		if strings.EqualFold(s, diagnosisNames[d].short) || strings.EqualFold(s, diagnosisNames[d].long) {
			return d, nil
		}
	}
	return Unknown, fmt.Errorf("unknown diagnosis %q", s)
}
