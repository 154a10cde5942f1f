package efficiency

import (
	"math"

	"github.com/lox/co2twin/internal/landuse"
	"github.com/lox/co2twin/internal/models"
	"github.com/lox/co2twin/internal/seasonal"
)

// Method is a remediation technique.
type Method string

const (
	RoadsideCaptureUnit Method = "Roadside Capture Unit"
	Biofilter           Method = "Biofilter"
	VerticalGarden      Method = "Vertical Garden"
)

const (
	Fallback = 20
	Min      = 5
	Max      = 50

	defaultNDVI   = 0.3
	defaultAlbedo = 0.18
)

func (m Method) Boost() float64 {
	switch m {
	case RoadsideCaptureUnit:
		return 8
	case Biofilter:
		return 6
	case VerticalGarden:
		return 4
	}
	return 0
}

// Overrides replace station-derived inputs, for what-if exploration.
type Overrides struct {
	LULC   *string
	NDVI   *float64
	Albedo *float64
}

// Breakdown records every term of a suggestion.
type Breakdown struct {
	CO2         float64 `json:"co2"`
	Severity    int     `json:"severity"`
	NDVI        float64 `json:"ndvi"`
	LULC        string  `json:"lulc"`
	LULCFactor  float64 `json:"lulc_factor"`
	Albedo      float64 `json:"albedo"`
	MethodBoost float64 `json:"method_boost"`
	Base        float64 `json:"base"`

	WindAdjust       float64 `json:"wind_adjust"`
	MixingAdjust     float64 `json:"mixing_adjust"`
	StagnationAdjust float64 `json:"stagnation_adjust"`

	Final    int     `json:"final"`
	Fallback bool    `json:"fallback"`
	Warnings []error `json:"-"`
}

// Suggest scores a recommended efficiency percentage in [5,50].
// scenario and overrides may be nil.
func Suggest(st *models.Station, method Method, scenario *seasonal.Scenario, overrides *Overrides) int {
	return Explain(st, method, scenario, overrides).Final
}

// Explain is Suggest with the intermediate terms.
func Explain(st *models.Station, method Method, scenario *seasonal.Scenario, overrides *Overrides) Breakdown {
	if st == nil {
		return Breakdown{Final: Fallback, Fallback: true}
	}
	co2 := st.CO2
	if !co2.Valid {
		co2 = st.CO2Estimated
	}
	if !models.Finite(co2) {
		return Breakdown{Final: Fallback, Fallback: true}
	}

	b := Breakdown{CO2: co2.Float64}
	switch {
	case co2.Float64 > 450:
		b.Severity = 2
	case co2.Float64 >= 430:
		b.Severity = 1
	}

	b.NDVI = defaultNDVI
	if models.Finite(st.NDVI) {
		b.NDVI = clamp(st.NDVI.Float64, 0, 1)
	}
	b.Albedo = defaultAlbedo
	if models.Finite(st.Albedo) {
		b.Albedo = clamp(st.Albedo.Float64, 0.05, 0.5)
	}
	b.LULC = st.LULC

	if overrides != nil {
		if overrides.LULC != nil {
			b.LULC = *overrides.LULC
		}
		if v := overrides.NDVI; v != nil && finite(*v) {
			b.NDVI = clamp(*v, 0, 1)
		}
		if v := overrides.Albedo; v != nil && finite(*v) {
			b.Albedo = clamp(*v, 0.05, 0.5)
		}
	}

	factor, warn := landuse.EfficiencyFactor(b.LULC)
	if warn != nil {
		b.Warnings = append(b.Warnings, warn)
	}
	b.LULCFactor = factor
	b.MethodBoost = method.Boost()

	b.Base = 10 +
		float64(b.Severity)*7 +
		(1-b.NDVI)*8 +
		(b.LULCFactor-1)*3 +
		b.MethodBoost +
		(0.18-b.Albedo)*40

	score := b.Base
	if scenario != nil {
		b.WindAdjust, b.MixingAdjust, b.StagnationAdjust = weatherAdjust(scenario)
		score += b.WindAdjust + b.MixingAdjust + b.StagnationAdjust
	}

	b.Final = int(clamp(math.Round(score), Min, Max))
	return b
}

func weatherAdjust(sc *seasonal.Scenario) (wind, mixing, stagnation float64) {
	if sc.WindMs.Valid {
		switch w := sc.WindMs.Float64; {
		case w < 1.5:
			wind = 3
		case w > 5.0:
			wind = -4
		}
	}

	switch {
	case sc.MixingHeight < 500:
		mixing = 2
	case sc.MixingHeight > 900:
		mixing = -3
	}

	switch sc.StagnationRisk {
	case seasonal.RiskHigh:
		stagnation = 4
	case seasonal.RiskElevated:
		stagnation = 2
	case seasonal.RiskLow:
		stagnation = -4
	}
	return wind, mixing, stagnation
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
