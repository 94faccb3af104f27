package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/internal/config"
)

// Batch lifecycle event types published to the batch topic.
const (
	EventBatchQueued    = "batch.queued"
	EventBatchCompleted = "batch.completed"
	EventBatchFailed    = "batch.failed"
)

// BatchEvent is one lifecycle notification for a recommendation batch.
type BatchEvent struct {
	Type           string    `json:"type"`
	JobID          uuid.UUID `json:"job_id"`
	BatchID        string    `json:"batch_id"`
	ResultFilePath string    `json:"result_file_path,omitempty"`
	UserCount      int       `json:"user_count,omitempty"`
	ErrorCode      string    `json:"error_code,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// EventBus publishes batch lifecycle events. Construction is optional;
// a nil *EventBus is a no-op publisher so callers never branch on
// whether Kafka is configured.
type EventBus struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

func NewEventBus(cfg config.KafkaConfig, logger *logrus.Logger) *EventBus {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		return nil
	}

	return &EventBus{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{}, // Key by batch ID so one batch stays on one partition
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
			BatchSize:    100,
		},
		logger: logger,
	}
}

func (b *EventBus) Publish(ctx context.Context, event BatchEvent) error {
	if b == nil {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling batch event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.BatchID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "job_id", Value: []byte(event.JobID.String())},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := b.writer.WriteMessages(writeCtx, message); err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"batch_id": event.BatchID,
			"type":     event.Type,
		}).Error("Failed to publish batch event")
		return fmt.Errorf("writing batch event: %w", err)
	}

	b.logger.WithFields(logrus.Fields{
		"batch_id": event.BatchID,
		"type":     event.Type,
	}).Info("Batch event published")
	return nil
}

func (b *EventBus) Close() error {
	if b == nil {
		return nil
	}
	return b.writer.Close()
}
