package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lox/co2twin/internal/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishEntry(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}
	at := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	e := models.ReportLogEntry{ID: "abc", AppliedAt: at, Station: "Anand Vihar", Method: "Biofilter", AppliedTo: "baseline", CO2Before: 455, CO2After: 364, Reduction: 91}
	if err := p.PublishEntry(context.Background(), e); err != nil {
		t.Fatalf("PublishEntry: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "Anand Vihar" {
		t.Errorf("Key = %q", msg.Key)
	}
	if !msg.Time.Equal(at) {
		t.Errorf("Time = %v", msg.Time)
	}
	var got models.ReportLogEntry
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "abc" || got.Reduction != 91 {
		t.Errorf("decoded = %+v", got)
	}

	p.Close()
	if !w.closed {
		t.Error("Close not forwarded")
	}
}

func TestPublishEntryError(t *testing.T) {
	boom := errors.New("no brokers")
	p := &Producer{writer: &fakeWriter{err: boom}}
	err := p.PublishEntry(context.Background(), models.ReportLogEntry{ID: "x"})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}
