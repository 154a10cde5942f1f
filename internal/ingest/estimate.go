package ingest

import (
	"database/sql"
	"math"
)

const (
	minEstimatedCO2 = 350
	maxEstimatedCO2 = 1200
	earthRadiusM    = 6371000.0
)

// EstimateCO2 converts pollutant averages into a CO2-like ppm figure for
// planning. Missing pollutants count as zero.
func EstimateCO2(pm25, pm10, no2, co sql.NullFloat64) float64 {
	v := func(n sql.NullFloat64) float64 {
		if !n.Valid || math.IsNaN(n.Float64) || math.IsInf(n.Float64, 0) {
			return 0
		}
		return n.Float64
	}
	factor := 1.8*v(pm25) + 0.4*v(pm10) + 1.2*v(no2) + 50*v(co)
	est := 400 + factor/20
	est = math.Max(minEstimatedCO2, math.Min(maxEstimatedCO2, est))
	return math.Round(est*100) / 100
}

// HaversineM is the great-circle distance between two points in metres.
func HaversineM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dphi := (lat2 - lat1) * math.Pi / 180
	dlambda := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dphi/2)*math.Sin(dphi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dlambda/2)*math.Sin(dlambda/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
