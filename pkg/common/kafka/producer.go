package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/maternal-risk/pkg/common/config"
	"github.com/synaptica-ai/maternal-risk/pkg/common/logger"
	"github.com/synaptica-ai/maternal-risk/pkg/common/models"
	"github.com/synaptica-ai/maternal-risk/pkg/common/retry"
)

const (
	publishAttempts = 3
	publishBackoff  = 100 * time.Millisecond
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg *config.Config, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{writer: writer}
}

// NewEvent wraps data in an envelope with a fresh id.
func NewEvent(eventType, source string, data interface{}) (models.Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	}, nil
}

// PublishEvent writes data as one event keyed by key. An empty key falls back
// to the event id.
func (p *Producer) PublishEvent(ctx context.Context, eventType, source, key string, data interface{}) error {
	event, err := NewEvent(eventType, source, data)
	if err != nil {
		return err
	}
	if key == "" {
		key = event.ID
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "source", Value: []byte(source)},
		},
	}

	err = retry.Do(ctx, publishAttempts, publishBackoff, func() error {
		return p.writer.WriteMessages(ctx, message)
	})
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": eventType,
		}).Error("Failed to publish event")
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": eventType,
		"topic":      p.writer.Topic,
	}).Debug("Event published")

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
