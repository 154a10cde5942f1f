package api

import (
	"database/sql"

	"github.com/lox/co2twin/internal/display"
	"github.com/lox/co2twin/internal/dispersion"
	"github.com/lox/co2twin/internal/efficiency"
	"github.com/lox/co2twin/internal/landuse"
	"github.com/lox/co2twin/internal/models"
	"github.com/lox/co2twin/internal/report"
	"github.com/lox/co2twin/internal/seasonal"
	"github.com/lox/co2twin/internal/session"
)

func ptr(v sql.NullFloat64) *float64 {
	if !models.Finite(v) {
		return nil
	}
	f := v.Float64
	return &f
}

type StationView struct {
	Name           string             `json:"name"`
	City           string             `json:"city"`
	State          string             `json:"state,omitempty"`
	Lat            *float64           `json:"lat,omitempty"`
	Lon            *float64           `json:"lon,omitempty"`
	CO2            *float64           `json:"co2,omitempty"`
	CO2Estimated   *float64           `json:"co2_estimated,omitempty"`
	LiveTS         string             `json:"live_ts,omitempty"`
	BaselineCO2    *float64           `json:"baseline_co2,omitempty"`
	LULC           string             `json:"lulc"`
	NDVI           *float64           `json:"ndvi,omitempty"`
	Albedo         *float64           `json:"albedo,omitempty"`
	IntegrityToken string             `json:"integrity_token"`
	Style          session.PointStyle `json:"style"`
}

func newStationView(st *models.Station, sess *session.Session) StationView {
	return StationView{
		Name:           st.Name,
		City:           st.City,
		State:          st.State,
		Lat:            ptr(st.Latitude),
		Lon:            ptr(st.Longitude),
		CO2:            ptr(st.CO2),
		CO2Estimated:   ptr(st.CO2Estimated),
		LiveTS:         st.LiveTS.String,
		BaselineCO2:    ptr(st.BaselineCO2),
		LULC:           st.LULC,
		NDVI:           ptr(st.NDVI),
		Albedo:         ptr(st.Albedo),
		IntegrityToken: st.IntegrityToken,
		Style:          sess.PointStyle(st),
	}
}

type DisplayView struct {
	Station  string       `json:"station"`
	Mode     display.Mode `json:"mode"`
	Value    *float64     `json:"value"`
	HasValue bool         `json:"has_value"`
	Band     display.Band `json:"band"`
}

type ScenarioView struct {
	seasonal.Scenario
	DisplayTemp *float64 `json:"display_temp"`
	WindMs      *float64 `json:"wind_ms"`
}

func newScenarioView(sc seasonal.Scenario) ScenarioView {
	return ScenarioView{Scenario: sc, DisplayTemp: ptr(sc.DisplayTemp), WindMs: ptr(sc.WindMs)}
}

type SuggestionView struct {
	Station    string               `json:"station"`
	Method     efficiency.Method    `json:"method"`
	Efficiency int                  `json:"efficiency"`
	Breakdown  efficiency.Breakdown `json:"breakdown"`
	Warnings   []string             `json:"warnings,omitempty"`
	Scenario   *ScenarioView        `json:"scenario,omitempty"`
}

type SectorsView struct {
	City     string                `json:"city"`
	Mode     display.Mode          `json:"mode"`
	Weights  landuse.SectorWeights `json:"weights"`
	Shares   landuse.SectorWeights `json:"shares"`
	Dominant landuse.Sector        `json:"dominant,omitempty"`
}

type CellView struct {
	dispersion.Cell
	CO2      *float64 `json:"co2,omitempty"`
	Strength float64  `json:"strength"`
	Color    string   `json:"color"`
	Opacity  float64  `json:"opacity"`
}

type ReportView struct {
	Totals  report.Totals           `json:"totals"`
	Entries []models.ReportLogEntry `json:"entries"`
}

type HealthStatus struct {
	Status    string `json:"status"`
	Stations  int    `json:"stations"`
	Reporting bool   `json:"reporting"`
	Error     string `json:"error,omitempty"`
}
