// Package queue publishes report log entries to Kafka so downstream
// consumers see every applied intervention.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lox/co2twin/internal/models"
)

// DefaultTopic receives report entries when no topic is configured.
const DefaultTopic = "co2twin.interventions"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes report entries keyed by station, so one station's
// interventions stay ordered within a partition.
type Producer struct {
	writer messageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// PublishEntry implements report.Sink.
func (p *Producer) PublishEntry(ctx context.Context, e models.ReportLogEntry) error {
	msg, err := entryMessage(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func entryMessage(e models.ReportLogEntry) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal entry: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.Station),
		Value: value,
		Time:  e.AppliedAt,
		Headers: []kafka.Header{
			{Key: "entry_id", Value: []byte(e.ID)},
			{Key: "applied_to", Value: []byte(e.AppliedTo)},
		},
	}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
