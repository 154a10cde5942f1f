package display

import (
	"database/sql"
	"math"
	"testing"

	"github.com/lox/co2twin/internal/models"
)

func TestResolve(t *testing.T) {
	nan := sql.NullFloat64{Float64: math.NaN(), Valid: true}

	tests := []struct {
		name    string
		station models.Station
		mode    Mode
		want    float64
		wantOK  bool
	}{
		{"baseline present", models.Station{CO2: models.Float(410)}, ModeBaseline, 410, true},
		{"baseline absent", models.Station{CO2Estimated: models.Float(500)}, ModeBaseline, 0, false},
		{"baseline NaN", models.Station{CO2: nan}, ModeBaseline, 0, false},
		{"live present", models.Station{CO2Estimated: models.Float(455)}, ModeLive, 455, true},
		{"live absent", models.Station{CO2: models.Float(410)}, ModeLive, 0, false},
		{"both prefers baseline", models.Station{CO2: models.Float(410), CO2Estimated: models.Float(455)}, ModeBoth, 410, true},
		{"both falls back to live", models.Station{CO2: nan, CO2Estimated: models.Float(455)}, ModeBoth, 455, true},
		{"both absent", models.Station{}, ModeBoth, 0, false},
		{"unknown mode", models.Station{CO2: models.Float(410)}, Mode("other"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(&tt.station, tt.mode)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Resolve() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestHasValueForModeAgreesWithResolve(t *testing.T) {
	values := []sql.NullFloat64{
		{},
		models.Float(0),
		models.Float(420),
		{Float64: math.NaN(), Valid: true},
		{Float64: math.Inf(1), Valid: true},
		{Float64: 430, Valid: false},
	}
	modes := []Mode{ModeBaseline, ModeLive, ModeBoth}

	for _, co2 := range values {
		for _, est := range values {
			st := models.Station{CO2: co2, CO2Estimated: est}
			for _, mode := range modes {
				_, ok := Resolve(&st, mode)
				if has := HasValueForMode(&st, mode); has != ok {
					t.Errorf("mode %s co2=%v est=%v: HasValueForMode=%v, Resolve ok=%v", mode, co2, est, has, ok)
				}
			}
			_, ok := Resolve(&st, ModeBoth)
			if ok == st.Inert() {
				t.Errorf("co2=%v est=%v: both-mode resolution %v disagrees with Inert %v", co2, est, ok, st.Inert())
			}
		}
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeBaseline, false},
		{"baseline", ModeBaseline, false},
		{"LIVE", ModeLive, false},
		{" both ", ModeBoth, false},
		{"auto", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = (%q, %v), want (%q, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
