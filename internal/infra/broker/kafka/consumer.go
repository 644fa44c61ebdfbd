package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	appoutbox "equiprent/internal/app/outbox"
	"equiprent/internal/infra/outbox"
)

// Inbox records processed event ids per consumer.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// Consumer runs a consumer group over the events topic. An event is handled at most
// once per inbox; a handler failure ends the session so the offset is retried.
type Consumer struct {
	group      sarama.ConsumerGroup
	topics     []string
	subscriber outbox.Subscriber
	inbox      Inbox
	logger     *slog.Logger
}

func NewConsumer(brokers []string, groupID string, topics []string, cfg *sarama.Config, sub outbox.Subscriber, inbox Inbox, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = NewConfig(groupID)
	}
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{group: g, topics: topics, subscriber: sub, inbox: inbox, logger: logger}, nil
}

func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := c.group.Consume(ctx, c.topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("kafka consume failed", "topics", c.topics, "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (c *Consumer) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := c.handle(sess.Context(), msg); err != nil {
			c.logger.Error("kafka message failed", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var env outbox.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil || env.ID == "" {
		// Poison messages are skipped; retrying cannot fix them.
		c.logger.Warn("kafka message is not a cloudevent", "topic", msg.Topic, "offset", msg.Offset)
		return nil
	}
	if c.inbox != nil {
		seen, err := c.inbox.Seen(ctx, env.ID)
		if err != nil {
			return fmt.Errorf("kafka: inbox lookup %s: %w", env.ID, err)
		}
		if seen {
			c.logger.Debug("kafka duplicate skipped", "event_id", env.ID)
			return nil
		}
	}
	rec := appoutbox.EventRecord{
		ID:         env.ID,
		Name:       env.EventName(),
		Payload:    env.Data,
		OccurredAt: env.Time,
		Aggregate:  env.Subject,
		Headers:    headersOf(msg),
	}
	if err := c.subscriber.HandleEvent(ctx, rec); err != nil {
		return err
	}
	if c.inbox != nil {
		return c.inbox.Mark(ctx, env.ID)
	}
	return nil
}

func headersOf(msg *sarama.ConsumerMessage) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		if h == nil {
			continue
		}
		out[string(h.Key)] = string(h.Value)
	}
	return out
}
