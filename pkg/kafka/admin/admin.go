// Package admin creates kafka topics through the cluster controller.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// CreateTopics creates every topic that does not exist yet. Existing
// topics are left untouched.
func CreateTopics(ctx context.Context, broker string, partitions, replication int, topics ...string) error {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("Kafka Admin - CreateTopics - kafka.DialContext: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("Kafka Admin - CreateTopics - conn.Controller: %w", err)
	}

	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))

	ctrlConn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("Kafka Admin - CreateTopics - kafka.DialContext controller: %w", err)
	}
	defer ctrlConn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: replication,
		})
	}

	err = ctrlConn.CreateTopics(configs...)
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("Kafka Admin - CreateTopics - ctrlConn.CreateTopics: %w", err)
	}

	return nil
}
