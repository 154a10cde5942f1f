// Package landuse is the single lookup for land-use/land-cover categories. Each
// category carries its emissions sector weights and its remediation efficiency
// factor.
package landuse

import "fmt"

// Sector is an emissions sector. Sectors enumerates them in tie-break order.
type Sector string

const (
	Transport Sector = "transport"
	Industry  Sector = "industry"
	Power     Sector = "power"
)

var Sectors = []Sector{Transport, Industry, Power}

// SectorWeights are non-negative and need not sum to 1.
type SectorWeights struct {
	Transport float64 `json:"transport"`
	Industry  float64 `json:"industry"`
	Power     float64 `json:"power"`
}

func (w SectorWeights) Get(s Sector) float64 {
	switch s {
	case Transport:
		return w.Transport
	case Industry:
		return w.Industry
	case Power:
		return w.Power
	}
	return 0
}

func (w SectorWeights) Scale(f float64) SectorWeights {
	return SectorWeights{Transport: w.Transport * f, Industry: w.Industry * f, Power: w.Power * f}
}

func (w SectorWeights) Add(o SectorWeights) SectorWeights {
	return SectorWeights{Transport: w.Transport + o.Transport, Industry: w.Industry + o.Industry, Power: w.Power + o.Power}
}

// Normalized returns the weights scaled to sum to 1, or zero weights when the sum is 0.
func (w SectorWeights) Normalized() SectorWeights {
	total := w.Transport + w.Industry + w.Power
	if total <= 0 {
		return SectorWeights{}
	}
	return w.Scale(1 / total)
}

// Category is the record kept for each land-use class.
type Category struct {
	Name             string
	SectorWeights    SectorWeights
	EfficiencyFactor float64
}

// DefaultEfficiencyFactor applies to categories missing from the table.
const DefaultEfficiencyFactor = 1.5

var categories = map[string]Category{
	"Urban":                  {"Urban", SectorWeights{0.6, 0.3, 0.1}, 2.0},
	"Industrial":             {"Industrial", SectorWeights{0.15, 0.7, 0.15}, 2.5},
	"Industrial/Residential": {"Industrial/Residential", SectorWeights{0.3, 0.5, 0.2}, 2.2},
	"Residential":            {"Residential", SectorWeights{0.5, 0.2, 0.3}, 1.8},
	"Mixed Urban":            {"Mixed Urban", SectorWeights{0.5, 0.35, 0.15}, 2.0},
	"Campus":                 {"Campus", SectorWeights{0.4, 0.1, 0.5}, 1.5},
	"Government":             {"Government", SectorWeights{0.4, 0.2, 0.4}, 1.8},
	"Airport":                {"Airport", SectorWeights{0.85, 0.1, 0.05}, 2.5},
	"Sports Complex":         {"Sports Complex", SectorWeights{0.6, 0.1, 0.3}, 1.5},
	"Urban Vegetation":       {"Urban Vegetation", SectorWeights{0.4, 0.1, 0.5}, 1.3},
	"Mixed Forest":           {"Mixed Forest", SectorWeights{0.1, 0.05, 0.05}, 1.0},
	"Rural":                  {"Rural", SectorWeights{0.3, 0.1, 0.6}, 1.0},
}

// Lookup finds a category by its exact name.
func Lookup(name string) (Category, bool) {
	c, ok := categories[name]
	return c, ok
}

// EfficiencyFactor returns the category factor, or the default with a warning.
func EfficiencyFactor(name string) (float64, error) {
	if c, ok := categories[name]; ok {
		return c.EfficiencyFactor, nil
	}
	return DefaultEfficiencyFactor, &UnknownCategoryWarning{Category: name}
}

// Names lists every known category.
func Names() []string {
	names := make([]string, 0, len(categories))
	for n := range categories {
		names = append(names, n)
	}
	return names
}

// UnknownCategoryWarning is informational: callers fall back to defaults.
type UnknownCategoryWarning struct {
	Category string
}

func (w *UnknownCategoryWarning) Error() string {
	if w.Category == "" {
		return "land-use category missing"
	}
	return fmt.Sprintf("unknown land-use category %q", w.Category)
}
