package sector

import (
	"math"

	"github.com/lox/co2twin/internal/display"
	"github.com/lox/co2twin/internal/landuse"
	"github.com/lox/co2twin/internal/models"
)

// WeightsFor returns the sector triple for a category. Unknown categories have none.
func WeightsFor(lulc string) (landuse.SectorWeights, bool) {
	c, ok := landuse.Lookup(lulc)
	if !ok {
		return landuse.SectorWeights{}, false
	}
	return c.SectorWeights, true
}

// Dominant returns the sector with the strictly largest weight for the station's
// category. Ties go to the earlier sector in landuse.Sectors.
func Dominant(s *models.Station) (landuse.Sector, bool) {
	if s == nil {
		return "", false
	}
	w, ok := WeightsFor(s.LULC)
	if !ok {
		return "", false
	}
	return Top(w), true
}

// Top returns the sector with the strictly largest weight, ties going to the
// earlier sector in landuse.Sectors.
func Top(w landuse.SectorWeights) landuse.Sector {
	best := landuse.Sector("")
	bestVal := math.Inf(-1)
	for _, sec := range landuse.Sectors {
		if v := w.Get(sec); v > bestVal {
			best, bestVal = sec, v
		}
	}
	return best
}

// AggregateCity sums the sector weights of every categorised station in the city,
// each weighted by max(current value, 1). A station without a current value
// still contributes with weight 1.
func AggregateCity(city string, stations []models.Station, mode display.Mode) (landuse.SectorWeights, bool) {
	var total landuse.SectorWeights
	found := false
	for i := range stations {
		st := &stations[i]
		if st.City != city {
			continue
		}
		w, ok := WeightsFor(st.LULC)
		if !ok {
			continue
		}
		weight := 1.0
		if v, ok := display.Resolve(st, mode); ok {
			weight = math.Max(v, 1)
		}
		total = total.Add(w.Scale(weight))
		found = true
	}
	if !found {
		return landuse.SectorWeights{}, false
	}
	return total, true
}
