package session

import (
	"testing"
	"time"

	"github.com/lox/co2twin/internal/display"
	"github.com/lox/co2twin/internal/landuse"
	"github.com/lox/co2twin/internal/models"
	"github.com/lox/co2twin/internal/report"
)

func TestPointStyle(t *testing.T) {
	st := &models.Station{Name: "a", LULC: "Industrial", CO2Estimated: models.Float(455)}

	tests := []struct {
		name      string
		sess      *Session
		wantBand  display.Band
		wantColor string
		wantEst   bool
	}{
		{"baseline has no value", &Session{DisplayMode: display.ModeBaseline}, display.BandUnknown, "#94a3b8", false},
		{"live is high", &Session{DisplayMode: display.ModeLive}, display.BandHigh, "#f87171", true},
		{"sector colouring", &Session{DisplayMode: display.ModeBoth, ColorMode: ColorBySector}, display.BandHigh, "#ef4444", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := tt.sess.PointStyle(st)
			if ps.Band != tt.wantBand || ps.Color != tt.wantColor || ps.Estimate != tt.wantEst {
				t.Errorf("PointStyle() = %+v", ps)
			}
			if ps.Sector != landuse.Industry {
				t.Errorf("Sector = %q, want industry", ps.Sector)
			}
		})
	}
}

func TestReportingActive(t *testing.T) {
	var nilSess *Session
	if nilSess.ReportingActive() {
		t.Error("nil session must not report")
	}
	s := &Session{}
	if s.ReportingActive() {
		t.Error("session without log must not report")
	}
	s.Report = report.NewLog()
	if s.ReportingActive() {
		t.Error("unstarted log must not report")
	}
	s.Report.Start(time.Now())
	if !s.ReportingActive() {
		t.Error("started log must report")
	}
}

func TestParseColorMode(t *testing.T) {
	if m, err := ParseColorMode(""); err != nil || m != ColorByCO2 {
		t.Errorf("ParseColorMode(\"\") = %q, %v", m, err)
	}
	if _, err := ParseColorMode("rainbow"); err == nil {
		t.Error("expected error")
	}
}
