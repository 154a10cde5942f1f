package display

import (
	"sort"

	"github.com/lox/co2twin/internal/models"
)

// Band is a coarse CO2 severity used for point colouring.
type Band string

const (
	BandUnknown  Band = "unknown"
	BandGood     Band = "good"
	BandModerate Band = "moderate"
	BandHigh     Band = "high"
)

func BandFor(co2 float64, ok bool) Band {
	switch {
	case !ok:
		return BandUnknown
	case co2 <= 420:
		return BandGood
	case co2 <= 450:
		return BandModerate
	default:
		return BandHigh
	}
}

// Summary holds the KPI figures for a set of stations.
type Summary struct {
	Count          int     `json:"count"`
	Average        float64 `json:"average"`
	Max            float64 `json:"max"`
	MaxStation     string  `json:"max_station,omitempty"`
	MaxCity        string  `json:"max_city,omitempty"`
	TotalReduction float64 `json:"total_reduction"`
}

func Summarize(stations []models.Station, mode Mode) Summary {
	var sum Summary
	var total float64
	for i := range stations {
		st := &stations[i]
		v, ok := Resolve(st, mode)
		if !ok {
			continue
		}
		sum.Count++
		total += v
		// Strict comparison keeps the first of equal maxima.
		if sum.Count == 1 || v > sum.Max {
			sum.Max = v
			sum.MaxStation = st.Name
			sum.MaxCity = st.City
		}
		if models.Finite(st.BaselineCO2) {
			if diff := st.BaselineCO2.Float64 - v; diff > 0 {
				sum.TotalReduction += diff
			}
		}
	}
	if sum.Count > 0 {
		sum.Average = total / float64(sum.Count)
	}
	return sum
}

// RecommendCities ranks cities by their worst station, highest first.
func RecommendCities(stations []models.Station, mode Mode, n int) []string {
	if n <= 0 {
		n = 5
	}
	worst := make(map[string]float64)
	for i := range stations {
		st := &stations[i]
		if st.City == "" {
			continue
		}
		v, ok := Resolve(st, mode)
		if !ok {
			v, ok = Resolve(st, ModeBoth)
		}
		if !ok {
			continue
		}
		if cur, seen := worst[st.City]; !seen || v > cur {
			worst[st.City] = v
		}
	}

	cities := make([]string, 0, len(worst))
	for c := range worst {
		cities = append(cities, c)
	}
	sort.Slice(cities, func(i, j int) bool {
		if worst[cities[i]] != worst[cities[j]] {
			return worst[cities[i]] > worst[cities[j]]
		}
		return cities[i] < cities[j]
	})
	if len(cities) > n {
		cities = cities[:n]
	}
	return cities
}

// Visible returns the stations of a city that can be placed on the map for the mode.
func Visible(stations []models.Station, city string, mode Mode) []models.Station {
	var out []models.Station
	for i := range stations {
		st := &stations[i]
		if st.City != city || !st.HasLocation() || !HasValueForMode(st, mode) {
			continue
		}
		out = append(out, *st)
	}
	return out
}
