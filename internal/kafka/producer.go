package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
)

type Topics struct {
	Reservations string
	Events       string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes lifecycle messages keyed by event id, so the hash balancer
// keeps every message about one event on one partition, in order.
type Producer struct {
	writer messageWriter
	topics Topics
	logger *logger.Logger
}

func NewProducer(brokers []string, topics Topics, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer, topics: topics, logger: log}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) PublishReservationEvent(ctx context.Context, evt models.ReservationEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := p.Publish(ctx, p.topics.Reservations, evt.EventID, payload); err != nil {
		return err
	}
	p.logger.LogKafka(evt.Type, p.topics.Reservations, evt.ReservationID)
	return nil
}

func (p *Producer) PublishEventLifecycle(ctx context.Context, evt models.EventLifecycle) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := p.Publish(ctx, p.topics.Events, evt.EventID, payload); err != nil {
		return err
	}
	p.logger.LogKafka(evt.Type, p.topics.Events, evt.EventID)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NopPublisher stands in for the producer when Kafka is disabled.
type NopPublisher struct {
	Logger *logger.Logger
}

func (n NopPublisher) PublishReservationEvent(_ context.Context, evt models.ReservationEvent) error {
	n.Logger.Debug("KAFKA", fmt.Sprintf("kafka disabled, dropping %s for %s", evt.Type, evt.ReservationID))
	return nil
}

func (n NopPublisher) PublishEventLifecycle(_ context.Context, evt models.EventLifecycle) error {
	n.Logger.Debug("KAFKA", fmt.Sprintf("kafka disabled, dropping %s for %s", evt.Type, evt.EventID))
	return nil
}

func (n NopPublisher) Close() error { return nil }
