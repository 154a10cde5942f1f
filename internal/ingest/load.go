package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/lox/co2twin/internal/metrics"
	"github.com/lox/co2twin/internal/models"
)

// Seeder receives the station set for a new session.
type Seeder interface {
	ReplaceStations(ctx context.Context, stations []models.Station) error
}

// LoadSession merges live readings into the baseline stations, snapshots
// baseline_co2, mints a token per station and seeds the repository. It is
// the only place live readings reach station records.
func LoadSession(ctx context.Context, repo Seeder, stations []models.Station, live map[string]LiveReading) ([]models.Station, error) {
	out := make([]models.Station, len(stations))
	seen := make(map[string]bool, len(stations))
	applied := 0
	for i, st := range stations {
		if seen[st.Name] {
			return nil, fmt.Errorf("duplicate station %q", st.Name)
		}
		seen[st.Name] = true

		if r, ok := live[st.Name]; ok {
			st.CO2Estimated = models.Float(r.CO2)
			st.LiveTS = sql.NullString{String: r.Timestamp, Valid: r.Timestamp != ""}
			applied++
		}
		st.BaselineCO2 = st.CO2
		st.IntegrityToken = uuid.NewString()
		out[i] = st
	}

	if err := repo.ReplaceStations(ctx, out); err != nil {
		return nil, fmt.Errorf("seed stations: %w", err)
	}
	metrics.StationsLoaded.Set(float64(len(out)))
	log.Printf("ingest: loaded %d stations, %d with live estimates", len(out), applied)
	return out, nil
}
