package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lox/co2twin/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const stationColumns = `name, city, state, latitude, longitude, co2, co2_estimated, live_ts, lulc, ndvi, albedo, integrity_token, baseline_co2`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertStation(ctx context.Context, db execer, st models.Station) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO stations (`+stationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			city = excluded.city,
			state = excluded.state,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			co2 = excluded.co2,
			co2_estimated = excluded.co2_estimated,
			live_ts = excluded.live_ts,
			lulc = excluded.lulc,
			ndvi = excluded.ndvi,
			albedo = excluded.albedo,
			integrity_token = excluded.integrity_token,
			baseline_co2 = excluded.baseline_co2
	`, st.Name, st.City, st.State, st.Latitude, st.Longitude, st.CO2, st.CO2Estimated, st.LiveTS,
		st.LULC, st.NDVI, st.Albedo, st.IntegrityToken, st.BaselineCO2)
	return err
}

// ReplaceStations swaps the whole station set in one transaction.
func (s *Store) ReplaceStations(ctx context.Context, stations []models.Station) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stations`); err != nil {
		return fmt.Errorf("clear stations: %w", err)
	}
	for _, st := range stations {
		if st.Name == "" {
			return fmt.Errorf("replace stations: station without name")
		}
		if err := upsertStation(ctx, tx, st); err != nil {
			return fmt.Errorf("insert station %s: %w", st.Name, err)
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStation(row scanner) (models.Station, error) {
	var st models.Station
	err := row.Scan(&st.Name, &st.City, &st.State, &st.Latitude, &st.Longitude, &st.CO2, &st.CO2Estimated,
		&st.LiveTS, &st.LULC, &st.NDVI, &st.Albedo, &st.IntegrityToken, &st.BaselineCO2)
	return st, err
}

func (s *Store) GetStation(ctx context.Context, name string) (*models.Station, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+stationColumns+` FROM stations WHERE name = ?`, name)
	st, err := scanStation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+stationColumns+` FROM stations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// CompareAndSwapReading writes value into the target column and rotates the
// token in a single conditional UPDATE.
func (s *Store) CompareAndSwapReading(ctx context.Context, name string, target models.Target, expected string, value float64, token string) error {
	var column string
	switch target {
	case models.TargetBaseline:
		column = "co2"
	case models.TargetLive:
		column = "co2_estimated"
	default:
		return fmt.Errorf("unknown target %q", target)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE stations SET `+column+` = ?, integrity_token = ? WHERE name = ? AND integrity_token = ?`,
		value, token, name, expected)
	if err != nil {
		return fmt.Errorf("update %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM stations WHERE name = ?`, name).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrTokenMismatch
}

// PublishEntry persists a report entry. It lets the store act as a report sink.
func (s *Store) PublishEntry(ctx context.Context, e models.ReportLogEntry) error {
	snap, err := json.Marshal(e.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO report_entries (id, applied_at, station, city, method, efficiency, applied_to, co2_before, co2_after, reduction, snapshot_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.ID, e.AppliedAt.UTC(), e.Station, e.City, e.Method, e.Efficiency, e.AppliedTo,
		e.CO2Before, e.CO2After, e.Reduction, string(snap))
	if err != nil {
		return fmt.Errorf("insert report entry: %w", err)
	}
	return nil
}

// ListReportEntries returns entries applied at or after since, oldest first.
func (s *Store) ListReportEntries(ctx context.Context, since time.Time) ([]models.ReportLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, applied_at, station, city, method, efficiency, applied_to, co2_before, co2_after, reduction, snapshot_json
		FROM report_entries
		WHERE applied_at >= ?
		ORDER BY applied_at, id
	`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ReportLogEntry
	for rows.Next() {
		var e models.ReportLogEntry
		var snap sql.NullString
		if err := rows.Scan(&e.ID, &e.AppliedAt, &e.Station, &e.City, &e.Method, &e.Efficiency, &e.AppliedTo,
			&e.CO2Before, &e.CO2After, &e.Reduction, &snap); err != nil {
			return nil, err
		}
		if snap.Valid && snap.String != "" {
			if err := json.Unmarshal([]byte(snap.String), &e.Snapshot); err != nil {
				return nil, fmt.Errorf("decode snapshot for %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) InsertWeather(ctx context.Context, obs models.WeatherObservation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weather_observations (city, observed_at, temperature, wind_speed, wind_direction)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(city, observed_at) DO NOTHING
	`, obs.City, obs.ObservedAt.UTC(), obs.Temperature, obs.WindSpeed, obs.WindDirection)
	return err
}

// LatestWeather returns the newest stored observation for a city, or nil.
func (s *Store) LatestWeather(ctx context.Context, city string) (*models.WeatherObservation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT city, observed_at, temperature, wind_speed, wind_direction
		FROM weather_observations
		WHERE city = ?
		ORDER BY observed_at DESC
		LIMIT 1
	`, city)

	var obs models.WeatherObservation
	err := row.Scan(&obs.City, &obs.ObservedAt, &obs.Temperature, &obs.WindSpeed, &obs.WindDirection)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &obs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
