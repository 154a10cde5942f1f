package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lox/co2twin/internal/seasonal"
	"github.com/lox/co2twin/internal/store"
)

func TestBuildScenario(t *testing.T) {
	tests := []struct {
		name     string
		month    string
		temp     string
		wind     string
		wantRisk seasonal.StagnationRisk
		wantErr  bool
	}{
		{"december moderate wind", "12", "18", "10.8", seasonal.RiskElevated, false},
		{"december calm", "12", "", "3.6", seasonal.RiskHigh, false},
		{"no wind", "6", "30", "", seasonal.RiskModerate, false},
		{"bad month", "13", "", "", "", true},
		{"bad wind", "1", "", "fast", "", true},
		{"negative wind", "1", "", "-2", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := buildScenario("Delhi", tt.month, tt.temp, tt.wind)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("buildScenario: %v", err)
			}
			if sc.StagnationRisk != tt.wantRisk {
				t.Errorf("risk = %s, want %s", sc.StagnationRisk, tt.wantRisk)
			}
		})
	}
}

func TestEnsureSeeded(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "stations.csv")
	data := "name,city,state,lat,lon,co2,lulc\nAnand Vihar,Delhi,Delhi,28.65,77.31,455,Industrial\nBandra,Mumbai,Maharashtra,19.06,72.84,410,\n"
	if err := os.WriteFile(csvPath, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	g := &Globals{StationsCSV: csvPath, Seed: "test"}
	repo := store.NewMemory()
	ctx := context.Background()

	if err := ensureSeeded(ctx, g, repo); err != nil {
		t.Fatalf("ensureSeeded: %v", err)
	}
	stations, err := repo.ListStations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stations) != 2 {
		t.Fatalf("got %d stations, want 2", len(stations))
	}
	st, err := repo.GetStation(ctx, "Anand Vihar")
	if err != nil {
		t.Fatal(err)
	}
	if st.IntegrityToken == "" || !st.BaselineCO2.Valid || st.BaselineCO2.Float64 != 455 {
		t.Errorf("station not seeded: %+v", st)
	}

	// A seeded repository is left alone.
	token := st.IntegrityToken
	if err := ensureSeeded(ctx, g, repo); err != nil {
		t.Fatal(err)
	}
	again, _ := repo.GetStation(ctx, "Anand Vihar")
	if again.IntegrityToken != token {
		t.Error("ensureSeeded reseeded a populated repository")
	}
}

func TestOptionalFloat(t *testing.T) {
	if v, err := optionalFloat("ndvi", nil); v != nil || err != nil {
		t.Errorf("nil input = %v, %v", v, err)
	}
	s := "0.4"
	if v, err := optionalFloat("ndvi", &s); err != nil || *v != 0.4 {
		t.Errorf("optionalFloat(0.4) = %v, %v", v, err)
	}
	bad := "x"
	if _, err := optionalFloat("ndvi", &bad); err == nil {
		t.Error("expected error")
	}
}
