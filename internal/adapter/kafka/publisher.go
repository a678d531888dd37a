package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/pkg/logger"
)

// RecordPublisher publishes finalized records as JSON events keyed by record id.
// It is a RecordSink, so downstream consumers see exactly what was persisted.
type RecordPublisher struct {
	writer *kafka.Writer
	log    *slog.Logger
}

func NewRecordPublisher(brokers []string, topic string) *RecordPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &RecordPublisher{
		writer: w,
		log:    logger.WithComponent("kafka-publisher").With("topic", topic),
	}
}

// SaveAll writes every record in a single batch.
func (p *RecordPublisher) SaveAll(ctx context.Context, records []entity.Record) error {
	if len(records) == 0 {
		return nil
	}
	messages, err := encode(records)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.log.Error("Failed to publish records", "count", len(messages), "error", err)
		return fmt.Errorf("publishing records to kafka: %w", err)
	}
	p.log.Debug("Records published", "count", len(messages))
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *RecordPublisher) Close() error {
	return p.writer.Close()
}

func encode(records []entity.Record) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, len(records))
	for _, rec := range records {
		value, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshaling record %s: %w", rec.ID, err)
		}
		messages = append(messages, kafka.Message{Key: []byte(rec.ID), Value: value})
	}
	return messages, nil
}
