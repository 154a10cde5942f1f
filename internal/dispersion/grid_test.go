package dispersion

import (
	"database/sql"
	"image/color"
	"math"
	"testing"

	"github.com/lox/co2twin/internal/display"
	"github.com/lox/co2twin/internal/models"
)

func TestNormalize(t *testing.T) {
	nan := sql.NullFloat64{Float64: math.NaN(), Valid: true}

	tests := []struct {
		name string
		cell Cell
		want float64
	}{
		{"strength wins", Cell{Strength: models.Float(0.3), Score: models.Float(0.9), CO2: models.Float(600)}, 0.3},
		{"score when no strength", Cell{Score: models.Float(0.7), CO2: models.Float(600)}, 0.7},
		{"NaN strength falls through", Cell{Strength: nan, Score: models.Float(0.4)}, 0.4},
		{"co2 derived", Cell{CO2: models.Float(500)}, 0.5},
		{"co2 below 400 clamps", Cell{CO2: models.Float(350)}, 0},
		{"co2 above 600 clamps", Cell{CO2: models.Float(900)}, 1},
		{"strength above 1 clamps", Cell{Strength: models.Float(3)}, 1},
		{"negative score clamps", Cell{Score: models.Float(-2)}, 0},
		{"empty cell", Cell{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.cell); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBinStations(t *testing.T) {
	stations := []models.Station{
		{Name: "a", Latitude: models.Float(28.61), Longitude: models.Float(77.21), CO2: models.Float(420)},
		{Name: "b", Latitude: models.Float(28.65), Longitude: models.Float(77.25), CO2: models.Float(480)},
		{Name: "c", Latitude: models.Float(19.07), Longitude: models.Float(72.87), CO2: models.Float(500)},
		{Name: "nolocation", CO2: models.Float(900)},
		{Name: "novalue", Latitude: models.Float(19.07), Longitude: models.Float(72.87)},
	}

	cells := BinStations(stations, display.ModeBaseline, 0.1)
	if len(cells) != 2 {
		t.Fatalf("len(cells) = %d, want 2", len(cells))
	}
	// sorted by row: Mumbai (19.0x) before Delhi (28.6x)
	if cells[0].Stations != 1 || cells[0].CO2.Float64 != 500 {
		t.Errorf("cells[0] = %+v", cells[0])
	}
	if cells[1].Stations != 2 || cells[1].CO2.Float64 != 450 {
		t.Errorf("cells[1] = %+v", cells[1])
	}
	if got := Normalize(cells[1]); got != 0.25 {
		t.Errorf("Normalize(delhi) = %v, want 0.25", got)
	}
}

func TestColorFor(t *testing.T) {
	r := Ramp{Low: "#000000", Mid: "#808080", High: "#ff0000"}

	tests := []struct {
		strength float64
		want     color.RGBA
		opacity  float64
	}{
		{0, color.RGBA{0, 0, 0, 255}, 0.25},
		{0.25, color.RGBA{64, 64, 64, 255}, 0.3875},
		{0.5, color.RGBA{128, 128, 128, 255}, 0.525},
		{0.75, color.RGBA{192, 64, 64, 255}, 0.6625},
		{1, color.RGBA{255, 0, 0, 255}, 0.8},
		{-1, color.RGBA{0, 0, 0, 255}, 0.25},
		{7, color.RGBA{255, 0, 0, 255}, 0.8},
	}
	for _, tt := range tests {
		sh, err := r.ColorFor(tt.strength)
		if err != nil {
			t.Fatalf("ColorFor(%v): %v", tt.strength, err)
		}
		if sh.Color != tt.want {
			t.Errorf("ColorFor(%v) = %v, want %v", tt.strength, sh.Color, tt.want)
		}
		if math.Abs(sh.Opacity-tt.opacity) > 1e-9 {
			t.Errorf("ColorFor(%v) opacity = %v, want %v", tt.strength, sh.Opacity, tt.opacity)
		}
	}

	if _, err := (Ramp{Low: "green", Mid: "#808080", High: "#ff0000"}).ColorFor(0.1); err == nil {
		t.Error("expected error for invalid anchor")
	}
	if sh := ColorFor(0); sh.Hex != DefaultRamp.Low {
		t.Errorf("ColorFor(0).Hex = %s, want %s", sh.Hex, DefaultRamp.Low)
	}
}
