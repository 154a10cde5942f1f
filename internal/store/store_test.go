package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/co2twin/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func testStations() []models.Station {
	return []models.Station{
		{
			Name: "Anand Vihar", City: "Delhi", State: "Delhi",
			Latitude: models.Float(28.647), Longitude: models.Float(77.316),
			CO2: models.Float(455), LULC: "Industrial", NDVI: models.Float(0.25),
			IntegrityToken: "t1", BaselineCO2: models.Float(455),
		},
		{
			Name: "Bandra", City: "Mumbai", State: "Maharashtra",
			CO2Estimated: models.Float(430), LULC: "Residential", IntegrityToken: "t2",
		},
	}
}

// repository is what the intervention engine needs from either backend.
type repository interface {
	ReplaceStations(ctx context.Context, stations []models.Station) error
	GetStation(ctx context.Context, name string) (*models.Station, error)
	ListStations(ctx context.Context) ([]models.Station, error)
	CompareAndSwapReading(ctx context.Context, name string, target models.Target, expected string, value float64, token string) error
}

func backends(t *testing.T) map[string]repository {
	return map[string]repository{
		"sqlite": setupTestStore(t),
		"memory": NewMemory(),
	}
}

func TestReplaceAndList(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := repo.ReplaceStations(ctx, testStations()); err != nil {
				t.Fatalf("ReplaceStations: %v", err)
			}
			stations, err := repo.ListStations(ctx)
			if err != nil {
				t.Fatalf("ListStations: %v", err)
			}
			if len(stations) != 2 {
				t.Fatalf("len(stations) = %d, want 2", len(stations))
			}
			if stations[0].Name != "Anand Vihar" || stations[1].Name != "Bandra" {
				t.Errorf("order = %q, %q", stations[0].Name, stations[1].Name)
			}
			if stations[1].CO2.Valid {
				t.Error("Bandra baseline should be absent")
			}
			if stations[0].NDVI.Float64 != 0.25 {
				t.Errorf("NDVI = %v, want 0.25", stations[0].NDVI.Float64)
			}

			if err := repo.ReplaceStations(ctx, testStations()[:1]); err != nil {
				t.Fatalf("ReplaceStations: %v", err)
			}
			stations, _ = repo.ListStations(ctx)
			if len(stations) != 1 {
				t.Errorf("after replace len = %d, want 1", len(stations))
			}
		})
	}
}

func TestGetStationNotFound(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.GetStation(context.Background(), "nowhere")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestCompareAndSwapReading(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := repo.ReplaceStations(ctx, testStations()); err != nil {
				t.Fatal(err)
			}

			if err := repo.CompareAndSwapReading(ctx, "Anand Vihar", models.TargetBaseline, "t1", 400, "t1b"); err != nil {
				t.Fatalf("first swap: %v", err)
			}
			// Replaying the old token must not overwrite.
			err := repo.CompareAndSwapReading(ctx, "Anand Vihar", models.TargetBaseline, "t1", 300, "t1c")
			if !errors.Is(err, ErrTokenMismatch) {
				t.Fatalf("stale swap err = %v, want ErrTokenMismatch", err)
			}

			st, err := repo.GetStation(ctx, "Anand Vihar")
			if err != nil {
				t.Fatal(err)
			}
			if st.CO2.Float64 != 400 || st.IntegrityToken != "t1b" {
				t.Errorf("station = co2 %v token %q, want 400 t1b", st.CO2.Float64, st.IntegrityToken)
			}
			if st.BaselineCO2.Float64 != 455 {
				t.Errorf("baseline snapshot changed to %v", st.BaselineCO2.Float64)
			}

			if err := repo.CompareAndSwapReading(ctx, "Bandra", models.TargetLive, "t2", 410, "t2b"); err != nil {
				t.Fatalf("live swap: %v", err)
			}
			st, _ = repo.GetStation(ctx, "Bandra")
			if st.CO2Estimated.Float64 != 410 || st.CO2.Valid {
				t.Errorf("Bandra = %+v", st)
			}

			err = repo.CompareAndSwapReading(ctx, "ghost", models.TargetLive, "x", 1, "y")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("missing station err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestReportEntries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ndvi := 0.3
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"e1", "e2"} {
		e := models.ReportLogEntry{
			ID: id, AppliedAt: base.Add(time.Duration(i) * time.Minute),
			Station: "Anand Vihar", City: "Delhi", Method: "Biofilter",
			Efficiency: 20, AppliedTo: "baseline", CO2Before: 455, CO2After: 364, Reduction: 91,
			Snapshot: models.EnvSnapshot{LULC: "Industrial", NDVI: &ndvi, EfficiencyFactor: 1.35},
		}
		if err := store.PublishEntry(ctx, e); err != nil {
			t.Fatalf("PublishEntry: %v", err)
		}
	}
	// Duplicate IDs are ignored.
	if err := store.PublishEntry(ctx, models.ReportLogEntry{ID: "e1", AppliedAt: base, Method: "x", AppliedTo: "live"}); err != nil {
		t.Fatalf("duplicate PublishEntry: %v", err)
	}

	entries, err := store.ListReportEntries(ctx, base)
	if err != nil {
		t.Fatalf("ListReportEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].ID != "e1" || entries[0].Method != "Biofilter" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[0].Snapshot.NDVI == nil || *entries[0].Snapshot.NDVI != 0.3 {
		t.Errorf("snapshot NDVI not round-tripped: %+v", entries[0].Snapshot)
	}

	later, _ := store.ListReportEntries(ctx, base.Add(30*time.Second))
	if len(later) != 1 || later[0].ID != "e2" {
		t.Errorf("since filter = %+v", later)
	}
}

func TestWeather(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	got, err := store.LatestWeather(ctx, "Delhi")
	if err != nil || got != nil {
		t.Fatalf("LatestWeather on empty = %v, %v", got, err)
	}

	t0 := time.Date(2026, 12, 1, 6, 0, 0, 0, time.UTC)
	for i, wind := range []float64{5, 10.8} {
		obs := models.WeatherObservation{
			City: "Delhi", ObservedAt: t0.Add(time.Duration(i) * time.Hour),
			Temperature: models.Float(14), WindSpeed: models.Float(wind),
			WindDirection: sql.NullInt64{Int64: 270, Valid: true},
		}
		if err := store.InsertWeather(ctx, obs); err != nil {
			t.Fatalf("InsertWeather: %v", err)
		}
	}

	got, err = store.LatestWeather(ctx, "Delhi")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.WindSpeed.Float64 != 10.8 {
		t.Errorf("LatestWeather = %+v, want wind 10.8", got)
	}
}

func TestArchivePayload(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	payload := []byte(`{"delhi":{"pm25":120}}`)

	wrote, err := store.ArchivePayload(ctx, "cpcb", "/feed", "", payload)
	if err != nil || !wrote {
		t.Fatalf("ArchivePayload = %v, %v", wrote, err)
	}
	wrote, err = store.ArchivePayload(ctx, "cpcb", "/feed", "", payload)
	if err != nil || wrote {
		t.Errorf("duplicate ArchivePayload = %v, %v; want false, nil", wrote, err)
	}

	got, err := store.LatestPayload(ctx, "cpcb")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Errorf("LatestPayload = %s", got)
	}

	counts, err := store.PayloadCounts(ctx)
	if err != nil || counts["cpcb"] != 1 {
		t.Errorf("PayloadCounts = %v, %v", counts, err)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	v, err := store.MigrationVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != len(migrations) {
		t.Errorf("MigrationVersion = %d, want %d", v, len(migrations))
	}
}
