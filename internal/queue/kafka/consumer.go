package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/toolsascode/shift/internal/logger"
	"github.com/toolsascode/shift/internal/queue"
)

// Consumer implements queue.Consumer using Kafka
type Consumer struct {
	reader *kafka.Reader
	topic  string
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{
		reader: reader,
		topic:  topic,
	}
}

// decodeMessage deserializes a job, taking the ID from the headers when the
// body lacks one
func decodeMessage(msg kafka.Message) (*queue.Job, error) {
	var job queue.Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.ID == "" {
		for _, header := range msg.Headers {
			if header.Key == "job-id" {
				job.ID = string(header.Value)
				break
			}
		}
	}
	if job.ID == "" {
		job.ID = string(msg.Key)
	}
	return &job, nil
}

// Consume reads jobs until ctx is done. Failed jobs are logged and not
// redelivered; migrations are never retried automatically.
func (c *Consumer) Consume(ctx context.Context, handler queue.JobHandler) error {
	logger.Infof("Starting Kafka consumer for topic %s", c.topic)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Kafka consumer context cancelled")
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("failed to read message from Kafka: %w", err)
			}

			job, err := decodeMessage(msg)
			if err != nil {
				logger.Errorf("Skipping Kafka message at offset %d: %v", msg.Offset, err)
				continue
			}

			logger.Infof("Processing migration job %s from Kafka", job.ID)

			result, err := handler(ctx, job)
			if err != nil {
				logger.Errorf("Failed to process migration job %s: %v", job.ID, err)
				continue
			}

			if result != nil {
				if result.Success {
					logger.Infof("Successfully processed migration job %s: %d applied, %d reverted",
						job.ID, len(result.Applied), len(result.Reverted))
				} else {
					logger.Warnf("Migration job %s completed with errors: %v", job.ID, result.Errors)
				}
			}
		}
	}
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
