package display

import (
	"fmt"
	"strings"

	"github.com/lox/co2twin/internal/models"
)

// Mode selects which CO2 reading is treated as current.
type Mode string

const (
	ModeBaseline Mode = "baseline"
	ModeLive     Mode = "live"
	ModeBoth     Mode = "both"
)

// ParseMode accepts "baseline", "live" or "both". Empty means baseline.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeBaseline:
		return ModeBaseline, nil
	case ModeLive:
		return ModeLive, nil
	case ModeBoth:
		return ModeBoth, nil
	}
	return "", fmt.Errorf("unknown display mode %q", s)
}

// Resolve returns the current value for the mode. Baseline wins in ModeBoth.
func Resolve(s *models.Station, mode Mode) (float64, bool) {
	if s == nil {
		return 0, false
	}
	switch mode {
	case ModeBaseline:
		if models.Finite(s.CO2) {
			return s.CO2.Float64, true
		}
	case ModeLive:
		if models.Finite(s.CO2Estimated) {
			return s.CO2Estimated.Float64, true
		}
	case ModeBoth:
		if models.Finite(s.CO2) {
			return s.CO2.Float64, true
		}
		if models.Finite(s.CO2Estimated) {
			return s.CO2Estimated.Float64, true
		}
	}
	return 0, false
}

// HasValueForMode agrees with Resolve: true exactly when Resolve finds a value.
func HasValueForMode(s *models.Station, mode Mode) bool {
	if s == nil {
		return false
	}
	hasBase := models.Finite(s.CO2)
	hasLive := models.Finite(s.CO2Estimated)
	switch mode {
	case ModeBaseline:
		return hasBase
	case ModeLive:
		return hasLive
	case ModeBoth:
		return hasBase || hasLive
	}
	return false
}
