package kafka

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"ms-reservations/internal/logger"
)

// EnsureTopicsExist creates the given topics through the cluster controller,
// skipping the ones that already exist.
func EnsureTopicsExist(brokers []string, topics []string, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find kafka controller: %w", err)
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	existing, err := ListTopics(conn)
	if err != nil {
		return err
	}

	var configs []kafka.TopicConfig
	for _, topic := range topics {
		if existing[topic] {
			log.LogKafka("EXISTS", topic, "topic already exists")
			continue
		}
		configs = append(configs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		})
	}
	if len(configs) == 0 {
		return nil
	}

	if err := controllerConn.CreateTopics(configs...); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, c := range configs {
		log.LogKafka("CREATED", c.Topic, "topic created")
	}
	return nil
}

// ListTopics returns the set of topics visible through conn.
func ListTopics(conn *kafka.Conn) (map[string]bool, error) {
	partitions, err := conn.ReadPartitions()
	if err != nil {
		return nil, fmt.Errorf("read partitions: %w", err)
	}
	topics := make(map[string]bool)
	for _, p := range partitions {
		topics[p.Topic] = true
	}
	return topics, nil
}
