// Package queuefactory builds the configured job queue
package queuefactory

import (
	"fmt"
	"strings"

	"github.com/toolsascode/shift/internal/queue"
	"github.com/toolsascode/shift/internal/queue/kafka"
	"github.com/toolsascode/shift/internal/queue/memory"
	"github.com/toolsascode/shift/internal/queue/pulsar"
)

// DefaultGroup is the consumer group / subscription shared by workers
const DefaultGroup = "shift-migration-workers"

// QueueConfig holds configuration for creating a queue
type QueueConfig struct {
	Type               string   `yaml:"type"`                // "kafka", "pulsar" or "memory"
	KafkaBrokers       []string `yaml:"kafka_brokers"`       // Kafka broker addresses
	KafkaTopic         string   `yaml:"kafka_topic"`         // Kafka topic name
	KafkaGroupID       string   `yaml:"kafka_group_id"`      // Kafka consumer group ID
	PulsarURL          string   `yaml:"pulsar_url"`          // Pulsar service URL
	PulsarTopic        string   `yaml:"pulsar_topic"`        // Pulsar topic name
	PulsarSubscription string   `yaml:"pulsar_subscription"` // Pulsar subscription name
	MemoryCapacity     int      `yaml:"memory_capacity"`
}

// Validate checks the fields the selected type needs
func (c *QueueConfig) Validate() error {
	switch strings.ToLower(c.Type) {
	case "", "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka brokers are required")
		}
		if c.KafkaTopic == "" {
			return fmt.Errorf("kafka topic is required")
		}
	case "pulsar":
		if c.PulsarURL == "" {
			return fmt.Errorf("pulsar URL is required")
		}
		if c.PulsarTopic == "" {
			return fmt.Errorf("pulsar topic is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported queue type: %s (supported: kafka, pulsar, memory)", c.Type)
	}
	return nil
}

// NewQueue creates a new queue based on the configuration
func NewQueue(config *QueueConfig) (queue.Queue, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch strings.ToLower(config.Type) {
	case "pulsar":
		subscription := config.PulsarSubscription
		if subscription == "" {
			subscription = DefaultGroup
		}
		return pulsar.NewQueue(config.PulsarURL, config.PulsarTopic, subscription)

	case "memory":
		return memory.NewQueue(config.MemoryCapacity), nil

	default:
		groupID := config.KafkaGroupID
		if groupID == "" {
			groupID = DefaultGroup
		}
		return kafka.NewQueue(config.KafkaBrokers, config.KafkaTopic, groupID), nil
	}
}
