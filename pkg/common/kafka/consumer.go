package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/synaptica-ai/maternal-risk/pkg/common/config"
	"github.com/synaptica-ai/maternal-risk/pkg/common/logger"
	"github.com/synaptica-ai/maternal-risk/pkg/common/models"
	"github.com/synaptica-ai/maternal-risk/pkg/common/retry"
)

const (
	fetchAttempts   = 5
	handlerAttempts = 3
	defaultBackoff  = 200 * time.Millisecond
)

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  messageReader
	backoff time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

func NewConsumer(cfg *config.Config, topic string, groupID string) *Consumer {
	if groupID == "" {
		groupID = cfg.KafkaGroupID
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: reader, backoff: defaultBackoff}
}

// Consume feeds events to handler until ctx is cancelled. Undecodable
// messages are committed and skipped. Fetch and handler failures are retried
// with backoff; when they persist Consume returns the error without
// committing, since any later commit would move the group offset past the
// failed message.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		var message kafka.Message
		err := retry.Do(ctx, fetchAttempts, c.backoff, func() error {
			var fetchErr error
			message, fetchErr = c.reader.FetchMessage(ctx)
			if fetchErr != nil && ctx.Err() == nil {
				logger.Log.WithError(fetchErr).Warn("Failed to fetch message")
			}
			return fetchErr
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Log.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal event")
			c.commit(ctx, message)
			continue
		}

		err = retry.Do(ctx, handlerAttempts, c.backoff, func() error {
			return handler(ctx, event)
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"event_id":   event.ID,
				"event_type": event.Type,
				"offset":     message.Offset,
			}).Error("Failed to process event")
			return fmt.Errorf("process event %s at offset %d: %w", event.ID, message.Offset, err)
		}

		c.commit(ctx, message)
	}
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).Error("Failed to commit message")
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
