package dispersion

import (
	"database/sql"
	"math"
	"sort"

	"github.com/lox/co2twin/internal/display"
	"github.com/lox/co2twin/internal/models"
)

// Cell is one tile of the dispersion grid. Any of the signals may be absent.
type Cell struct {
	Row      int             `json:"row"`
	Col      int             `json:"col"`
	Lat      float64         `json:"lat"`
	Lon      float64         `json:"lon"`
	Strength sql.NullFloat64 `json:"-"`
	Score    sql.NullFloat64 `json:"-"`
	CO2      sql.NullFloat64 `json:"-"`
	Stations int             `json:"stations"`
}

// Normalize maps a cell's signal into [0,1]. Strength is preferred, then score,
// then CO2 scaled as (co2-400)/200.
func Normalize(c Cell) float64 {
	var v float64
	switch {
	case models.Finite(c.Strength):
		v = c.Strength.Float64
	case models.Finite(c.Score):
		v = c.Score.Float64
	case models.Finite(c.CO2):
		v = (c.CO2.Float64 - 400) / 200
	}
	return math.Max(0, math.Min(1, v))
}

// BinStations groups located stations into cells of cellDeg degrees, carrying the
// mean current value of each cell as its CO2 signal.
func BinStations(stations []models.Station, mode display.Mode, cellDeg float64) []Cell {
	if cellDeg <= 0 || math.IsNaN(cellDeg) {
		cellDeg = 0.1
	}

	type key struct{ row, col int }
	type acc struct {
		sum   float64
		count int
	}
	bins := make(map[key]*acc)

	for i := range stations {
		st := &stations[i]
		if !st.HasLocation() {
			continue
		}
		v, ok := display.Resolve(st, mode)
		if !ok {
			continue
		}
		k := key{
			row: int(math.Floor(st.Latitude.Float64 / cellDeg)),
			col: int(math.Floor(st.Longitude.Float64 / cellDeg)),
		}
		a := bins[k]
		if a == nil {
			a = &acc{}
			bins[k] = a
		}
		a.sum += v
		a.count++
	}

	cells := make([]Cell, 0, len(bins))
	for k, a := range bins {
		cells = append(cells, Cell{
			Row:      k.row,
			Col:      k.col,
			Lat:      (float64(k.row) + 0.5) * cellDeg,
			Lon:      (float64(k.col) + 0.5) * cellDeg,
			CO2:      models.Float(a.sum / float64(a.count)),
			Stations: a.count,
		})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})
	return cells
}
