package seasonal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Profile is the seasonal build-up profile for a calendar month.
type Profile struct {
	CO2Factor  float64 `json:"co2_factor"`
	TempDelta  float64 `json:"temp_delta"`
	MixingBase float64 `json:"mixing_base"`
}

// ProfileFor returns the fixed profile for month 1-12. Other values get the neutral profile.
func ProfileFor(month int) Profile {
	switch month {
	case 12, 1:
		return Profile{CO2Factor: 1.25, TempDelta: -4, MixingBase: 350}
	case 11:
		return Profile{CO2Factor: 1.25, TempDelta: -2, MixingBase: 350}
	case 2:
		return Profile{CO2Factor: 1.15, TempDelta: -2, MixingBase: 450}
	case 10:
		return Profile{CO2Factor: 1.15, TempDelta: 0, MixingBase: 450}
	case 3:
		return Profile{CO2Factor: 1.00, TempDelta: 1, MixingBase: 550}
	case 4:
		return Profile{CO2Factor: 0.90, TempDelta: 2, MixingBase: 900}
	case 5, 6:
		return Profile{CO2Factor: 0.90, TempDelta: 4, MixingBase: 900}
	case 7, 8, 9:
		return Profile{CO2Factor: 0.95, TempDelta: 1, MixingBase: 750}
	}
	return Profile{CO2Factor: 1.00, TempDelta: 0, MixingBase: 600}
}

// MonthSelector is either "auto" (zero value) or an explicit month 1-12.
type MonthSelector struct {
	month int
}

var Auto = MonthSelector{}

// Month returns an explicit selector. Values outside 1-12 are rejected.
func Month(m int) (MonthSelector, error) {
	if m < 1 || m > 12 {
		return MonthSelector{}, fmt.Errorf("month %d out of range 1-12", m)
	}
	return MonthSelector{month: m}, nil
}

// ParseMonthSelector accepts "auto", "" or a number 1-12.
func ParseMonthSelector(s string) (MonthSelector, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "auto" {
		return Auto, nil
	}
	m, err := strconv.Atoi(s)
	if err != nil {
		return MonthSelector{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return Month(m)
}

// Resolve returns the selected month, using now for auto.
func (m MonthSelector) Resolve(now time.Time) int {
	if m.month == 0 {
		return int(now.Month())
	}
	return m.month
}

func (m MonthSelector) String() string {
	if m.month == 0 {
		return "auto"
	}
	return strconv.Itoa(m.month)
}
