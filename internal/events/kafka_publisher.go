// Package events publishes driver notifications to Kafka so other processes
// can follow the ride lifecycle without polling the API.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/driver-rides/internal/models"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  MessageWriter
	logger  *slog.Logger
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return NewPublisherWithWriter(w, logger)
}

func NewPublisherWithWriter(w MessageWriter, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, logger: logger, timeout: 2 * time.Second}
}

// Publish writes n keyed by ride id so one ride's events stay ordered on a partition.
func (k *KafkaPublisher) Publish(ctx context.Context, n models.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := n.RideID
	if key == "" {
		key = string(n.Kind)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: b,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	})
}

// Notify makes the publisher a dispatch.Notifier.
func (k *KafkaPublisher) Notify(ctx context.Context, n models.Notification) {
	if err := k.Publish(ctx, n); err != nil {
		k.logger.WarnContext(ctx, "kafka publish failed", "kind", n.Kind, "ride_id", n.RideID, "error", err)
	}
}

func (k *KafkaPublisher) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}

// Decode parses a message written by Publish.
func Decode(m kafka.Message) (models.Notification, error) {
	var n models.Notification
	err := json.Unmarshal(m.Value, &n)
	return n, err
}
