package display

import (
	"math"
	"reflect"
	"testing"

	"github.com/lox/co2twin/internal/models"
)

func TestBandFor(t *testing.T) {
	tests := []struct {
		co2  float64
		ok   bool
		want Band
	}{
		{0, false, BandUnknown},
		{400, true, BandGood},
		{420, true, BandGood},
		{420.1, true, BandModerate},
		{450, true, BandModerate},
		{450.5, true, BandHigh},
	}
	for _, tt := range tests {
		if got := BandFor(tt.co2, tt.ok); got != tt.want {
			t.Errorf("BandFor(%v, %v) = %s, want %s", tt.co2, tt.ok, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	stations := []models.Station{
		{Name: "A", City: "Delhi", CO2: models.Float(400), BaselineCO2: models.Float(440)},
		{Name: "B", City: "Delhi", CO2: models.Float(480), BaselineCO2: models.Float(480)},
		{Name: "C", City: "Delhi", CO2Estimated: models.Float(600)},
		{Name: "D", City: "Delhi", CO2: models.Float(500), BaselineCO2: models.Float(450)},
	}

	got := Summarize(stations, ModeBaseline)
	if got.Count != 3 {
		t.Fatalf("Count = %d, want 3", got.Count)
	}
	if math.Abs(got.Average-460) > 1e-9 {
		t.Errorf("Average = %v, want 460", got.Average)
	}
	if got.Max != 500 || got.MaxStation != "D" {
		t.Errorf("Max = %v (%s), want 500 (D)", got.Max, got.MaxStation)
	}
	// Only A dropped below its baseline; D rose and must not count.
	if got.TotalReduction != 40 {
		t.Errorf("TotalReduction = %v, want 40", got.TotalReduction)
	}

	empty := Summarize(nil, ModeLive)
	if empty.Count != 0 || empty.Average != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestRecommendCities(t *testing.T) {
	stations := []models.Station{
		{Name: "a1", City: "Agra", CO2: models.Float(430)},
		{Name: "a2", City: "Agra", CO2: models.Float(470)},
		{Name: "b1", City: "Bhopal", CO2Estimated: models.Float(520)},
		{Name: "c1", City: "Chennai", CO2: models.Float(470)},
		{Name: "d1", City: "Delhi"},
		{Name: "x", City: "", CO2: models.Float(900)},
	}

	got := RecommendCities(stations, ModeBaseline, 3)
	want := []string{"Bhopal", "Agra", "Chennai"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RecommendCities() = %v, want %v", got, want)
	}

	if got := RecommendCities(stations, ModeBaseline, 0); len(got) != 3 {
		t.Errorf("default n returned %d cities, want 3 available", len(got))
	}
}

func TestVisible(t *testing.T) {
	stations := []models.Station{
		{Name: "ok", City: "Pune", Latitude: models.Float(18.5), Longitude: models.Float(73.8), CO2: models.Float(420)},
		{Name: "nolat", City: "Pune", Longitude: models.Float(73.8), CO2: models.Float(420)},
		{Name: "badlat", City: "Pune", Latitude: models.Float(120), Longitude: models.Float(73.8), CO2: models.Float(420)},
		{Name: "livesonly", City: "Pune", Latitude: models.Float(18.5), Longitude: models.Float(73.8), CO2Estimated: models.Float(450)},
		{Name: "other", City: "Mumbai", Latitude: models.Float(19), Longitude: models.Float(72.8), CO2: models.Float(420)},
	}

	got := Visible(stations, "Pune", ModeBaseline)
	if len(got) != 1 || got[0].Name != "ok" {
		t.Errorf("Visible(baseline) = %v", got)
	}
	if got := Visible(stations, "Pune", ModeBoth); len(got) != 2 {
		t.Errorf("Visible(both) returned %d stations, want 2", len(got))
	}
}
