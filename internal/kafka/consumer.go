package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads reservation lifecycle messages. Each service instance uses its
// own group so every instance sees every message.
type Consumer struct {
	reader       messageReader
	logger       *logger.Logger
	retryBackoff time.Duration
}

const defaultRetryBackoff = time.Second

func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{reader: reader, logger: log, retryBackoff: defaultRetryBackoff}
}

// Start delivers decoded messages to handler until ctx is done or the reader
// is closed. Undecodable messages are logged and skipped; read failures are
// retried after retryBackoff.
func (c *Consumer) Start(ctx context.Context, handler func(evt models.ReservationEvent)) {
	c.logger.Info("KAFKA", "🔄 Reservation consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.logger.Info("KAFKA", "Reservation consumer stopped")
				return
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			select {
			case <-ctx.Done():
				c.logger.Info("KAFKA", "Reservation consumer stopped")
				return
			case <-time.After(c.retryBackoff):
			}
			continue
		}

		var evt models.ReservationEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal message at offset %d: %v", msg.Offset, err))
			continue
		}

		c.logger.LogKafka("RECEIVED", msg.Topic, fmt.Sprintf("%s for %s", evt.Type, evt.ReservationID))
		handler(evt)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
