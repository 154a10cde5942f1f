package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/lox/co2twin/internal/models"
)

var (
	ErrNotFound      = errors.New("station not found")
	ErrTokenMismatch = errors.New("integrity token mismatch")
)

// Memory is an in-process station repository.
type Memory struct {
	mu       sync.RWMutex
	stations map[string]models.Station
}

func NewMemory() *Memory {
	return &Memory{stations: make(map[string]models.Station)}
}

// ReplaceStations swaps the whole station set, as done when a session loads.
func (m *Memory) ReplaceStations(_ context.Context, stations []models.Station) error {
	next := make(map[string]models.Station, len(stations))
	for _, st := range stations {
		if st.Name == "" {
			return fmt.Errorf("replace stations: station without name")
		}
		next[st.Name] = st
	}
	m.mu.Lock()
	m.stations = next
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetStation(_ context.Context, name string) (*models.Station, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stations[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &st, nil
}

func (m *Memory) ListStations(_ context.Context) ([]models.Station, error) {
	m.mu.RLock()
	out := make([]models.Station, 0, len(m.stations))
	for _, st := range m.stations {
		out = append(out, st)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CompareAndSwapReading replaces the target reading and the token together,
// provided the stored token still equals expected.
func (m *Memory) CompareAndSwapReading(_ context.Context, name string, target models.Target, expected string, value float64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stations[name]
	if !ok {
		return ErrNotFound
	}
	if st.IntegrityToken != expected {
		return ErrTokenMismatch
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
	m.stations[name] = st
	return nil
}
