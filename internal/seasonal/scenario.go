package seasonal

import (
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/lox/co2twin/internal/models"
)

// StagnationRisk classifies how poorly the air disperses.
type StagnationRisk string

const (
	RiskHigh     StagnationRisk = "High"
	RiskElevated StagnationRisk = "Elevated"
	RiskLow      StagnationRisk = "Low"
	RiskModerate StagnationRisk = "Moderate"
)

var ErrNegativeWind = errors.New("wind speed must not be negative")

// Scenario is the weather picture for one city and month selection.
type Scenario struct {
	City           string          `json:"city,omitempty"`
	Month          int             `json:"month"`
	Profile        Profile         `json:"profile"`
	DisplayTemp    sql.NullFloat64 `json:"-"`
	WindMs         sql.NullFloat64 `json:"-"`
	MixingHeight   float64         `json:"mixing_height"`
	StagnationRisk StagnationRisk  `json:"stagnation_risk"`
}

// BuildScenario derives a scenario from a city observation. now resolves an auto
// month selector. A missing wind speed yields Moderate risk.
func BuildScenario(obs models.WeatherObservation, sel MonthSelector, now time.Time) (Scenario, error) {
	month := sel.Resolve(now)
	p := ProfileFor(month)

	sc := Scenario{
		City:    obs.City,
		Month:   month,
		Profile: p,
	}

	if models.Finite(obs.Temperature) {
		sc.DisplayTemp = models.Float(obs.Temperature.Float64 + p.TempDelta)
	}

	windOK := models.Finite(obs.WindSpeed)
	if windOK {
		if obs.WindSpeed.Float64 < 0 {
			return Scenario{}, ErrNegativeWind
		}
		sc.WindMs = models.Float(obs.WindSpeed.Float64 / 3.6)
	}

	sc.MixingHeight = p.MixingBase
	if windOK {
		sc.MixingHeight += math.Max(0, sc.WindMs.Float64) * 20
	}

	sc.StagnationRisk = classifyStagnation(p.CO2Factor, sc.WindMs)
	return sc, nil
}

func classifyStagnation(co2Factor float64, wind sql.NullFloat64) StagnationRisk {
	if !wind.Valid {
		return RiskModerate
	}
	w := wind.Float64

	// First match wins. The Elevated band includes 3.0 m/s (10.8 km/h) itself.
	switch {
	case co2Factor >= 1.2 && w < 1.5:
		return RiskHigh
	case co2Factor >= 1.1 && w <= 3:
		return RiskElevated
	case w > 4 && co2Factor <= 1.0:
		return RiskLow
	}
	return RiskModerate
}
