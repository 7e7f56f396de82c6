package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// ConsumerConfig tunes the group membership of a Consumer. Zero
// durations fall back to defaults suited to the notification volume of
// a single booking cluster.
type ConsumerConfig struct {
	Brokers           []string
	GroupID           string
	Topic             string
	HeartbeatInterval time.Duration
	SessionTimeout    time.Duration
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 3 * time.Second
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = 30 * time.Second
	}
	return c
}

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	cfg = cfg.withDefaults()
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           cfg.Brokers,
			GroupID:           cfg.GroupID,
			Topic:             cfg.Topic,
			HeartbeatInterval: cfg.HeartbeatInterval,
			SessionTimeout:    cfg.SessionTimeout,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume delivers messages to handler one at a time, in partition
// order, and returns on context cancellation or the first handler
// error. Handlers that want to keep the loop alive swallow their own
// failures and return nil.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		if err := handler(ctx, msg); err != nil {
			return err
		}
	}
}
