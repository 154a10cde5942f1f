// Package session carries the dashboard state that used to live in globals:
// display mode, colour mode and the active report log.
package session

import (
	"fmt"
	"time"

	"github.com/lox/co2twin/internal/display"
	"github.com/lox/co2twin/internal/landuse"
	"github.com/lox/co2twin/internal/models"
	"github.com/lox/co2twin/internal/report"
	"github.com/lox/co2twin/internal/sector"
)

type ColorMode string

const (
	ColorByCO2    ColorMode = "co2"
	ColorBySector ColorMode = "sector"
)

func ParseColorMode(s string) (ColorMode, error) {
	switch ColorMode(s) {
	case "", ColorByCO2:
		return ColorByCO2, nil
	case ColorBySector:
		return ColorBySector, nil
	}
	return "", fmt.Errorf("unknown colour mode %q", s)
}

type Session struct {
	DisplayMode display.Mode
	ColorMode   ColorMode
	// Report is nil or inactive when no report is being recorded.
	Report *report.Log
	Now    func() time.Time
}

func (s *Session) Clock() time.Time {
	if s == nil || s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Session) Mode() display.Mode {
	if s == nil || s.DisplayMode == "" {
		return display.ModeBaseline
	}
	return s.DisplayMode
}

// WithMode returns a copy of the session using mode for display. The report
// log is shared.
func (s *Session) WithMode(mode display.Mode) *Session {
	c := Session{}
	if s != nil {
		c = *s
	}
	c.DisplayMode = mode
	return &c
}

// ReportingActive is the gate for appending report entries.
func (s *Session) ReportingActive() bool {
	return s != nil && s.Report.Active()
}

// PointStyle is how a station is drawn for the current session.
type PointStyle struct {
	Value    *float64       `json:"value,omitempty"`
	Band     display.Band   `json:"band"`
	Sector   landuse.Sector `json:"sector,omitempty"`
	Color    string         `json:"color"`
	Estimate bool           `json:"estimate"`
}

var (
	bandColors = map[display.Band]string{
		display.BandGood:     "#22c55e",
		display.BandModerate: "#fbbf24",
		display.BandHigh:     "#f87171",
		display.BandUnknown:  "#94a3b8",
	}
	sectorColors = map[landuse.Sector]string{
		landuse.Transport: "#3b82f6",
		landuse.Industry:  "#ef4444",
		landuse.Power:     "#eab308",
	}
)

func (s *Session) PointStyle(st *models.Station) PointStyle {
	v, ok := display.Resolve(st, s.Mode())
	ps := PointStyle{Band: display.BandFor(v, ok)}
	if ok {
		ps.Value = &v
		ps.Estimate = !models.Finite(st.CO2)
	}
	ps.Color = bandColors[ps.Band]
	if dom, ok := sector.Dominant(st); ok {
		ps.Sector = dom
		if s != nil && s.ColorMode == ColorBySector {
			ps.Color = sectorColors[dom]
		}
	}
	return ps
}
