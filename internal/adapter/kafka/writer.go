package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/quake-dashboard/internal/config"
	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

// Writer produces notification messages to a Kafka topic.
// It implements domain.NotificationPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured notification topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes a notification and writes it keyed by the event ID, so
// notifications about one event land on one partition.
func (w *Writer) Publish(ctx context.Context, n domain.Notification) error {
	msg, err := serializeToMessage(n)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write notification %s: %w", n.ID, err)
	}
	w.logger.Debug("notification published", "topic", w.writer.Topic, "id", n.ID, "event_id", n.EventID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Notification into a Kafka message.
func serializeToMessage(n domain.Notification) (kafkago.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	key := n.EventID
	if key == "" {
		key = n.ID
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Time:  n.CreatedAt,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(n.Source)},
			{Key: "level", Value: []byte(n.Level)},
			{Key: "created_at", Value: []byte(n.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
