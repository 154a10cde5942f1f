package models

import (
	"database/sql"
	"math"
	"time"
)

// Station is a CO2 monitoring point. Name is the unique key.
type Station struct {
	Name      string
	City      string
	State     string
	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64

	CO2          sql.NullFloat64 // recorded baseline, ppm
	CO2Estimated sql.NullFloat64 // live estimate, ppm
	LiveTS       sql.NullString

	LULC   string
	NDVI   sql.NullFloat64
	Albedo sql.NullFloat64

	IntegrityToken string

	// BaselineCO2 is snapshotted from CO2 once when the session loads.
	BaselineCO2 sql.NullFloat64
}

// HasLocation reports whether the station can appear in spatial outputs.
func (s *Station) HasLocation() bool {
	return Finite(s.Latitude) && Finite(s.Longitude) &&
		math.Abs(s.Latitude.Float64) <= 90 && math.Abs(s.Longitude.Float64) <= 180
}

// Inert reports whether neither reading is usable.
func (s *Station) Inert() bool {
	return !Finite(s.CO2) && !Finite(s.CO2Estimated)
}

// Finite reports whether v is present and a real number.
func Finite(v sql.NullFloat64) bool {
	return v.Valid && !math.IsNaN(v.Float64) && !math.IsInf(v.Float64, 0)
}

// Float wraps a value as present.
func Float(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

// WeatherObservation is the current weather reported for a city.
type WeatherObservation struct {
	City          string
	Temperature   sql.NullFloat64 // °C
	WindSpeed     sql.NullFloat64 // km/h
	WindDirection sql.NullInt64   // degrees
	Season        string          // informational only
	MonthFactor   sql.NullFloat64 // informational only
	ObservedAt    time.Time
}

// EnvSnapshot captures the factors in effect when an intervention was applied.
type EnvSnapshot struct {
	LULC             string   `json:"lulc"`
	NDVI             *float64 `json:"ndvi,omitempty"`
	Albedo           *float64 `json:"albedo,omitempty"`
	EfficiencyFactor float64  `json:"efficiency_factor"`
	Month            int      `json:"month,omitempty"`
	DisplayTemp      *float64 `json:"display_temp,omitempty"`
	WindMs           *float64 `json:"wind_ms,omitempty"`
	MixingHeight     *float64 `json:"mixing_height,omitempty"`
	StagnationRisk   string   `json:"stagnation_risk,omitempty"`
}

// ReportLogEntry is an immutable record of one applied intervention.
type ReportLogEntry struct {
	ID         string      `json:"id"`
	AppliedAt  time.Time   `json:"applied_at"`
	Station    string      `json:"station"`
	City       string      `json:"city"`
	Method     string      `json:"method"`
	Efficiency float64     `json:"efficiency"`
	AppliedTo  string      `json:"applied_to"`
	CO2Before  float64     `json:"co2_before"`
	CO2After   float64     `json:"co2_after"`
	Reduction  float64     `json:"reduction"`
	Snapshot   EnvSnapshot `json:"snapshot"`
}

// Target names which reading an intervention replaces.
type Target string

const (
	TargetBaseline Target = "baseline"
	TargetLive     Target = "live"
)

// Reading returns the station's value for the target.
func (s *Station) Reading(t Target) sql.NullFloat64 {
	switch t {
	case TargetBaseline:
		return s.CO2
	case TargetLive:
		return s.CO2Estimated
	}
	return sql.NullFloat64{}
}
