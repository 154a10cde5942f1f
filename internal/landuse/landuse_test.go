package landuse

import (
	"errors"
	"math"
	"testing"
)

func TestLookup(t *testing.T) {
	c, ok := Lookup("Residential")
	if !ok {
		t.Fatal("Residential not found")
	}
	want := SectorWeights{Transport: 0.5, Industry: 0.2, Power: 0.3}
	if c.SectorWeights != want {
		t.Errorf("weights = %+v, want %+v", c.SectorWeights, want)
	}
	if c.EfficiencyFactor != 1.8 {
		t.Errorf("factor = %v, want 1.8", c.EfficiencyFactor)
	}

	if _, ok := Lookup("residential"); ok {
		t.Error("lookup must be case sensitive")
	}
}

func TestEfficiencyFactor(t *testing.T) {
	tests := []struct {
		name     string
		want     float64
		wantWarn bool
	}{
		{"Urban", 2.0, false},
		{"Industrial", 2.5, false},
		{"Mixed Urban", 2.0, false},
		{"Industrial/Residential", 2.2, false},
		{"Urban Vegetation", 1.3, false},
		{"Airport", 2.5, false},
		{"Mixed Forest", 1.0, false},
		{"Wetland", 1.5, true},
		{"", 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EfficiencyFactor(tt.name)
			if got != tt.want {
				t.Errorf("EfficiencyFactor(%q) = %v, want %v", tt.name, got, tt.want)
			}
			var warn *UnknownCategoryWarning
			if errors.As(err, &warn) != tt.wantWarn {
				t.Errorf("warning = %v, wantWarn %v", err, tt.wantWarn)
			}
		})
	}
}

func TestEveryCategoryHasNonNegativeWeights(t *testing.T) {
	names := Names()
	if len(names) != 12 {
		t.Fatalf("len(Names()) = %d, want 12", len(names))
	}
	for _, n := range names {
		c, _ := Lookup(n)
		for _, s := range Sectors {
			if c.SectorWeights.Get(s) < 0 {
				t.Errorf("%s has negative %s weight", n, s)
			}
		}
	}
}

func TestNormalized(t *testing.T) {
	w := SectorWeights{Transport: 0.1, Industry: 0.05, Power: 0.05}.Normalized()
	if math.Abs(w.Transport-0.5) > 1e-9 || math.Abs(w.Industry-0.25) > 1e-9 || math.Abs(w.Power-0.25) > 1e-9 {
		t.Errorf("Normalized() = %+v", w)
	}
	if z := (SectorWeights{}).Normalized(); z != (SectorWeights{}) {
		t.Errorf("zero Normalized() = %+v", z)
	}
}
