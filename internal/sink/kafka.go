package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes one JSON message per record, keyed by person ID so a
// person's intervals stay ordered within a partition.
type KafkaSink struct {
	writer    messageWriter
	batchSize int
	logger    *slog.Logger
}

// NewKafkaSink creates a sink writing to topic on brokers
func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	if logger == nil {
		logger = slog.Default()
	}
	return newKafkaSink(w, logger.With("topic", topic))
}

func newKafkaSink(w messageWriter, logger *slog.Logger) *KafkaSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaSink{writer: w, batchSize: 500, logger: logger.With("component", "kafka_sink")}
}

// Write publishes records in batches
func (s *KafkaSink) Write(ctx context.Context, records []models.ClassifiedInterval) error {
	now := time.Now()
	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}

		msgs := make([]kafka.Message, 0, end-start)
		for _, rec := range records[start:end] {
			b, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to encode interval: %w", err)
			}
			msgs = append(msgs, kafka.Message{Key: []byte(rec.PersonID), Value: b, Time: now})
		}
		if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("failed to publish intervals: %w", err)
		}
	}
	s.logger.Info("published intervals", "count", len(records))
	return nil
}

// Close flushes pending messages
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
