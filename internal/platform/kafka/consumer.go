package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// HandlerFunc processes one record. A returned error stops the consumer
// before the record's offset is committed.
type HandlerFunc func(ctx context.Context, topic string, key, value []byte) error

// Consumer reads a topic as a member of a consumer group and commits offsets
// after each successfully handled poll.
type Consumer struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewConsumer joins group on topic. fromStart makes a new group begin at the
// oldest retained record instead of the newest.
func NewConsumer(brokers []string, topic, group string, fromStart bool, logger *slog.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(group),
		kgo.DisableAutoCommit(),
	}
	if fromStart {
		opts = append(opts, kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	}
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Consumer{client: client, logger: logger}, nil
}

// Run polls until ctx is cancelled or handle fails.
func (c *Consumer) Run(ctx context.Context, handle HandlerFunc) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Warn("fetch error", "topic", topic, "partition", partition, "error", err)
		})

		var handleErr error
		fetches.EachRecord(func(r *kgo.Record) {
			if handleErr != nil {
				return
			}
			handleErr = handle(ctx, r.Topic, r.Key, r.Value)
		})
		if handleErr != nil {
			return fmt.Errorf("handle record: %w", handleErr)
		}
		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			return fmt.Errorf("commit offsets: %w", err)
		}
	}
}

func (c *Consumer) Close() {
	c.client.Close()
}
