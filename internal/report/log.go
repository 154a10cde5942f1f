package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lox/co2twin/internal/models"
)

// Sink receives entries as they are appended.
type Sink interface {
	PublishEntry(ctx context.Context, entry models.ReportLogEntry) error
}

// Log collects intervention entries while reporting is active.
type Log struct {
	mu        sync.Mutex
	active    bool
	startedAt time.Time
	entries   []models.ReportLogEntry
	sinks     []Sink
}

func NewLog(sinks ...Sink) *Log {
	return &Log{sinks: sinks}
}

// Start begins a report, discarding entries from any earlier one.
func (l *Log) Start(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = true
	l.startedAt = now
	l.entries = nil
}

// Stop ends the report. Entries remain readable.
func (l *Log) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = false
}

func (l *Log) Active() bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Append records the entry if the log is active and forwards it to every sink.
// It reports whether the entry was recorded. Sink failures do not undo the append.
func (l *Log) Append(ctx context.Context, entry models.ReportLogEntry) (bool, error) {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return false, nil
	}
	l.entries = append(l.entries, entry)
	sinks := l.sinks
	l.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		if err := s.PublishEntry(ctx, entry); err != nil {
			errs = append(errs, fmt.Errorf("publish entry %s: %w", entry.ID, err))
		}
	}
	return true, errors.Join(errs...)
}

// Entries returns a copy of the recorded entries in append order.
func (l *Log) Entries() []models.ReportLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.ReportLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Totals summarises a report.
type Totals struct {
	Active          bool               `json:"active"`
	StartedAt       time.Time          `json:"started_at,omitempty"`
	Count           int                `json:"count"`
	TotalReduction  float64            `json:"total_reduction"`
	ByMethod        map[string]float64 `json:"by_method"`
	StationsTouched int                `json:"stations_touched"`
}

func (l *Log) Totals() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := Totals{
		Active:    l.active,
		StartedAt: l.startedAt,
		Count:     len(l.entries),
		ByMethod:  make(map[string]float64),
	}
	seen := make(map[string]bool)
	for _, e := range l.entries {
		t.TotalReduction += e.Reduction
		t.ByMethod[e.Method] += e.Reduction
		seen[e.Station] = true
	}
	t.StationsTouched = len(seen)
	return t
}
