// Package redisstore keeps the station set in Redis so several dashboard
// processes can share one view. Readings are replaced with WATCH/MULTI so a
// token check and the write commit together.
package redisstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lox/co2twin/internal/models"
	"github.com/lox/co2twin/internal/store"
)

const (
	defaultPrefix = "co2twin"
	maxWatchTries = 5
)

// Store is a station repository backed by Redis.
type Store struct {
	rdb    *redis.Client
	prefix string
}

func New(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) stationKey(name string) string {
	return fmt.Sprintf("%s:station:%s", s.prefix, name)
}

func (s *Store) indexKey() string {
	return s.prefix + ":stations"
}

type record struct {
	Name           string   `json:"name"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	Latitude       *float64 `json:"lat,omitempty"`
	Longitude      *float64 `json:"lon,omitempty"`
	CO2            *float64 `json:"co2,omitempty"`
	CO2Estimated   *float64 `json:"co2_estimated,omitempty"`
	LiveTS         string   `json:"live_ts,omitempty"`
	LULC           string   `json:"lulc"`
	NDVI           *float64 `json:"ndvi,omitempty"`
	Albedo         *float64 `json:"albedo,omitempty"`
	IntegrityToken string   `json:"integrity_token"`
	BaselineCO2    *float64 `json:"baseline_co2,omitempty"`
}

func ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func null(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return models.Float(*p)
}

func toRecord(st models.Station) record {
	return record{
		Name: st.Name, City: st.City, State: st.State,
		Latitude: ptr(st.Latitude), Longitude: ptr(st.Longitude),
		CO2: ptr(st.CO2), CO2Estimated: ptr(st.CO2Estimated), LiveTS: st.LiveTS.String,
		LULC: st.LULC, NDVI: ptr(st.NDVI), Albedo: ptr(st.Albedo),
		IntegrityToken: st.IntegrityToken, BaselineCO2: ptr(st.BaselineCO2),
	}
}

func (r record) station() models.Station {
	return models.Station{
		Name: r.Name, City: r.City, State: r.State,
		Latitude: null(r.Latitude), Longitude: null(r.Longitude),
		CO2: null(r.CO2), CO2Estimated: null(r.CO2Estimated),
		LiveTS: sql.NullString{String: r.LiveTS, Valid: r.LiveTS != ""},
		LULC:   r.LULC, NDVI: null(r.NDVI), Albedo: null(r.Albedo),
		IntegrityToken: r.IntegrityToken, BaselineCO2: null(r.BaselineCO2),
	}
}

func decode(data string) (models.Station, error) {
	var r record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return models.Station{}, fmt.Errorf("failed to unmarshal station: %w", err)
	}
	return r.station(), nil
}

// ReplaceStations drops the previous set and writes the new one atomically.
func (s *Store) ReplaceStations(ctx context.Context, stations []models.Station) error {
	old, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to list stations: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, name := range old {
			pipe.Del(ctx, s.stationKey(name))
		}
		pipe.Del(ctx, s.indexKey())
		for _, st := range stations {
			if st.Name == "" {
				return fmt.Errorf("replace stations: station without name")
			}
			data, err := json.Marshal(toRecord(st))
			if err != nil {
				return fmt.Errorf("failed to marshal station: %w", err)
			}
			pipe.Set(ctx, s.stationKey(st.Name), data, 0)
			pipe.SAdd(ctx, s.indexKey(), st.Name)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace stations in Redis: %w", err)
	}
	return nil
}

func (s *Store) GetStation(ctx context.Context, name string) (*models.Station, error) {
	data, err := s.rdb.Get(ctx, s.stationKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station from Redis: %w", err)
	}
	st, err := decode(data)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListStations(ctx context.Context) ([]models.Station, error) {
	names, err := s.rdb.Sort(ctx, s.indexKey(), &redis.Sort{Alpha: true}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	if len(names) == 0 {
		return nil, nil
	}

	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = s.stationKey(n)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}

	stations := make([]models.Station, 0, len(vals))
	for _, v := range vals {
		data, ok := v.(string)
		if !ok {
			continue
		}
		st, err := decode(data)
		if err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, nil
}

// CompareAndSwapReading writes the reading and the new token only if the
// stored token equals expected when the transaction commits.
func (s *Store) CompareAndSwapReading(ctx context.Context, name string, target models.Target, expected string, value float64, token string) error {
	key := s.stationKey(name)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		st, err := decode(data)
		if err != nil {
			return err
		}
		if st.IntegrityToken != expected {
			return store.ErrTokenMismatch
		}
		switch target {
		case models.TargetBaseline:
			st.CO2 = models.Float(value)
		case models.TargetLive:
			st.CO2Estimated = models.Float(value)
		default:
			return fmt.Errorf("unknown target %q", target)
		}
		st.IntegrityToken = token

		out, err := json.Marshal(toRecord(st))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchTries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			// The key changed under us; re-read. A real token change then
			// surfaces as ErrTokenMismatch.
			continue
		}
		return err
	}
	return store.ErrTokenMismatch
}
