package digitize

import (
	"fmt"
	"image"
	"math"
	"sort"
)

// LeadRegion locates one lead on the strip. Coordinates are fractions of the
// oriented image width and height.
type LeadRegion struct {
	Lead   string  `json:"lead" yaml:"lead" mapstructure:"lead" validate:"required"`
	Left   float64 `json:"left" yaml:"left" mapstructure:"left" validate:"gte=0,lt=1"`
	Top    float64 `json:"top" yaml:"top" mapstructure:"top" validate:"gte=0,lt=1"`
	Right  float64 `json:"right" yaml:"right" mapstructure:"right" validate:"gt=0,lte=1"`
	Bottom float64 `json:"bottom" yaml:"bottom" mapstructure:"bottom" validate:"gt=0,lte=1"`
}

// Rect converts the region to pixel coordinates for a width x height image.
func (r LeadRegion) Rect(width, height int) image.Rectangle {
	return image.Rect(
		int(math.Round(r.Left*float64(width))),
		int(math.Round(r.Top*float64(height))),
		int(math.Round(r.Right*float64(width))),
		int(math.Round(r.Bottom*float64(height))),
	).Intersect(image.Rect(0, 0, width, height))
}

// Layout is an ordered set of lead regions. The order is the row order of the
// resulting SignalMatrix.
type Layout struct {
	Name    string       `json:"name" yaml:"name"`
	Regions []LeadRegion `json:"regions" yaml:"regions"`
}

// Validate checks that the layout has regions with unique names and sane
// fractional bounds.
func (l Layout) Validate() error {
	if len(l.Regions) == 0 {
		return fmt.Errorf("layout %q has no lead regions", l.Name)
	}
	seen := make(map[string]bool, len(l.Regions))
	for _, r := range l.Regions {
		if r.Lead == "" {
			return fmt.Errorf("layout %q has a region without a lead name", l.Name)
		}
		if seen[r.Lead] {
			return fmt.Errorf("layout %q lists lead %s twice", l.Name, r.Lead)
		}
		seen[r.Lead] = true
		if r.Left < 0 || r.Top < 0 || r.Right > 1 || r.Bottom > 1 || r.Left >= r.Right || r.Top >= r.Bottom {
			return fmt.Errorf("layout %q lead %s has invalid bounds [%g,%g]-[%g,%g]",
				l.Name, r.Lead, r.Left, r.Top, r.Right, r.Bottom)
		}
	}
	return nil
}

// Leads returns the lead names in layout order.
func (l Layout) Leads() []string {
	names := make([]string, len(l.Regions))
	for i, r := range l.Regions {
		names[i] = r.Lead
	}
	return names
}

// GridLayout splits the strip into equal cells, rows[i][j] naming the lead in
// row i, column j.
func GridLayout(name string, rows [][]string) Layout {
	l := Layout{Name: name}
	for i, row := range rows {
		for j, lead := range row {
			l.Regions = append(l.Regions, LeadRegion{
				Lead:   lead,
				Left:   float64(j) / float64(len(row)),
				Top:    float64(i) / float64(len(rows)),
				Right:  float64(j+1) / float64(len(row)),
				Bottom: float64(i+1) / float64(len(rows)),
			})
		}
	}
	return l
}

// Built-in layouts of common printouts.
var (
	SingleLead = GridLayout("single", [][]string{{"II"}})

	Layout3x4 = GridLayout("3x4", [][]string{
		{"I", "aVR", "V1", "V4"},
		{"II", "aVL", "V2", "V5"},
		{"III", "aVF", "V3", "V6"},
	})

	Layout6x2 = GridLayout("6x2", [][]string{
		{"I", "V1"},
		{"II", "V2"},
		{"III", "V3"},
		{"aVR", "V4"},
		{"aVL", "V5"},
		{"aVF", "V6"},
	})

	Layout12x1 = GridLayout("12x1", [][]string{
		{"I"}, {"II"}, {"III"}, {"aVR"}, {"aVL"}, {"aVF"},
		{"V1"}, {"V2"}, {"V3"}, {"V4"}, {"V5"}, {"V6"},
	})
)

var builtinLayouts = map[string]Layout{
	SingleLead.Name: SingleLead,
	Layout3x4.Name:  Layout3x4,
	Layout6x2.Name:  Layout6x2,
	Layout12x1.Name: Layout12x1,
}

// LayoutByName returns a built-in layout.
func LayoutByName(name string) (Layout, error) {
	l, ok := builtinLayouts[name]
	if !ok {
		return Layout{}, fmt.Errorf("unknown layout %q (known: %v)", name, LayoutNames())
	}
	return l, nil
}

// LayoutNames lists the built-in layouts in sorted order.
func LayoutNames() []string {
	names := make([]string, 0, len(builtinLayouts))
	for n := range builtinLayouts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
