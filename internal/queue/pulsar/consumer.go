package pulsar

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apache/pulsar-client-go/pulsar"

	"github.com/toolsascode/shift/internal/logger"
	"github.com/toolsascode/shift/internal/queue"
)

// Consumer implements queue.Consumer using Pulsar
type Consumer struct {
	client   pulsar.Client
	consumer pulsar.Consumer
	topic    string
}

// NewConsumer creates a new Pulsar consumer on a shared subscription
func NewConsumer(url, topic, subscriptionName string) (*Consumer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pulsar client: %w", err)
	}

	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:            topic,
		SubscriptionName: subscriptionName,
		Type:             pulsar.Shared,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create Pulsar consumer: %w", err)
	}

	return &Consumer{
		client:   client,
		consumer: consumer,
		topic:    topic,
	}, nil
}

// decodeJob deserializes a payload. The ID falls back to the job-id
// property, then the message key.
func decodeJob(payload []byte, properties map[string]string, key string) (*queue.Job, error) {
	var job queue.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.ID == "" {
		if jobID, ok := properties["job-id"]; ok {
			job.ID = jobID
		} else {
			job.ID = key
		}
	}
	return &job, nil
}

// Consume receives jobs until ctx is done. Every message is acknowledged,
// failed jobs included; migrations are never retried automatically.
func (c *Consumer) Consume(ctx context.Context, handler queue.JobHandler) error {
	logger.Infof("Starting Pulsar consumer for topic %s", c.topic)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Pulsar consumer context cancelled")
			return ctx.Err()
		default:
			msg, err := c.consumer.Receive(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("failed to receive message from Pulsar: %w", err)
			}

			job, err := decodeJob(msg.Payload(), msg.Properties(), msg.Key())
			if err != nil {
				logger.Errorf("Skipping Pulsar message %v: %v", msg.ID(), err)
				c.ack(msg, "")
				continue
			}

			logger.Infof("Processing migration job %s from Pulsar", job.ID)

			result, err := handler(ctx, job)
			c.ack(msg, job.ID)
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

func (c *Consumer) ack(msg pulsar.Message, jobID string) {
	if err := c.consumer.Ack(msg); err != nil {
		logger.Errorf("Failed to acknowledge message for job %s: %v", jobID, err)
	}
}

// Close closes the Pulsar consumer
func (c *Consumer) Close() error {
	c.consumer.Close()
	c.client.Close()
	return nil
}
