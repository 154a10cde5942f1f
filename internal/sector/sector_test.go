package sector

import (
	"math"
	"math/rand"
	"testing"

	"github.com/lox/co2twin/internal/display"
	"github.com/lox/co2twin/internal/landuse"
	"github.com/lox/co2twin/internal/models"
)

func TestWeightsFor(t *testing.T) {
	w, ok := WeightsFor("Airport")
	if !ok || w.Transport != 0.85 {
		t.Errorf("WeightsFor(Airport) = %+v, %v", w, ok)
	}
	if _, ok := WeightsFor("Glacier"); ok {
		t.Error("unknown category must be absent")
	}
}

func TestDominant(t *testing.T) {
	tests := []struct {
		lulc   string
		want   landuse.Sector
		wantOK bool
	}{
		{"Residential", landuse.Transport, true},
		{"Industrial", landuse.Industry, true},
		{"Rural", landuse.Power, true},
		{"Campus", landuse.Power, true},
		// transport 0.4 ties power 0.4; transport comes first
		{"Government", landuse.Transport, true},
		{"Unknown", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.lulc, func(t *testing.T) {
			got, ok := Dominant(&models.Station{LULC: tt.lulc})
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Dominant(%q) = (%q, %v), want (%q, %v)", tt.lulc, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAggregateCity(t *testing.T) {
	stations := []models.Station{
		{Name: "a", City: "Delhi", LULC: "Urban", CO2: models.Float(400)},
		{Name: "b", City: "Delhi", LULC: "Industrial", CO2: models.Float(0.2)},
		{Name: "c", City: "Delhi", LULC: "Residential"},
		{Name: "d", City: "Delhi", LULC: "Moonbase", CO2: models.Float(900)},
		{Name: "e", City: "Agra", LULC: "Urban", CO2: models.Float(999)},
	}

	got, ok := AggregateCity("Delhi", stations, display.ModeBaseline)
	if !ok {
		t.Fatal("expected aggregate for Delhi")
	}
	// a: 400 * Urban, b: floored to 1 * Industrial, c: no value so weight 1 * Residential
	want := landuse.SectorWeights{
		Transport: 0.6*400 + 0.15 + 0.5,
		Industry:  0.3*400 + 0.7 + 0.2,
		Power:     0.1*400 + 0.15 + 0.3,
	}
	if !approxEqual(got, want) {
		t.Errorf("AggregateCity = %+v, want %+v", got, want)
	}

	if _, ok := AggregateCity("Nowhere", stations, display.ModeBaseline); ok {
		t.Error("city without categorised stations must be absent")
	}
	if _, ok := AggregateCity("Delhi", []models.Station{{City: "Delhi", LULC: "Moonbase"}}, display.ModeBoth); ok {
		t.Error("city with only unknown categories must be absent")
	}
}

func TestAggregateCityOrderInvariant(t *testing.T) {
	lulcs := landuse.Names()
	var stations []models.Station
	for i := 0; i < 40; i++ {
		st := models.Station{City: "Pune", LULC: lulcs[i%len(lulcs)]}
		if i%3 != 0 {
			st.CO2 = models.Float(380 + float64(i)*3.7)
		}
		if i%4 == 0 {
			st.CO2Estimated = models.Float(420 + float64(i))
		}
		stations = append(stations, st)
	}

	want, _ := AggregateCity("Pune", stations, display.ModeBoth)
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 10; round++ {
		shuffled := append([]models.Station(nil), stations...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, _ := AggregateCity("Pune", shuffled, display.ModeBoth)
		if !approxEqual(got, want) {
			t.Fatalf("round %d: %+v != %+v", round, got, want)
		}
	}
}

func approxEqual(a, b landuse.SectorWeights) bool {
	const eps = 1e-6
	return math.Abs(a.Transport-b.Transport) < eps &&
		math.Abs(a.Industry-b.Industry) < eps &&
		math.Abs(a.Power-b.Power) < eps
}
