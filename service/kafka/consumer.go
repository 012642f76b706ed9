package kafka

import (
	"context"
	"errors"

	errs "FeedNotify/tools/errs"
	"FeedNotify/tools/safe"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// MessageHandler processes one record. Kafka has no per-message nak, so an
// error is logged and the offset is still marked.
type MessageHandler func(ctx context.Context, topic string, key, value []byte) error

type groupHandler struct {
	handle MessageHandler
	log    *zap.Logger
}

func (h *groupHandler) Setup(s sarama.ConsumerGroupSession) error {
	h.log.Info("consumer group setup", zap.String("member", s.MemberID()))
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Info("consumer group cleanup")
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		h.process(session.Context(), msg)
		session.MarkMessage(msg, "")
	}
	return nil
}

func (h *groupHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) {
	defer safe.Recover(h.log, "kafka-handler")
	if err := h.handle(ctx, msg.Topic, msg.Key, msg.Value); err != nil {
		h.log.Warn("kafka handler failed",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
	}
}

// Consumer runs one consumer group over a fixed topic list.
type Consumer struct {
	group  sarama.ConsumerGroup
	topics []string
	log    *zap.Logger
}

func NewConsumer(c Config, topics []string, log *zap.Logger) (*Consumer, error) {
	if len(c.Brokers) == 0 || c.GroupID == "" {
		return nil, errs.ErrValidation.WrapMsg("kafka consumer needs brokers and group id")
	}
	group, err := sarama.NewConsumerGroup(c.Brokers, c.GroupID, BuildSaramaConfig(c))
	if err != nil {
		return nil, errs.ErrInternal.WrapErr(err, "kafka consumer group", "group", c.GroupID)
	}
	return &Consumer{group: group, topics: topics, log: log}, nil
}

// Run consumes until ctx is done. It rejoins the group after every
// rebalance.
func (c *Consumer) Run(ctx context.Context, h MessageHandler) error {
	safe.Go(c.log, "kafka-group-errors", func() {
		for err := range c.group.Errors() {
			c.log.Warn("consumer group error", zap.Error(err))
		}
	})

	handler := &groupHandler{handle: h, log: c.log}
	for {
		if err := c.group.Consume(ctx, c.topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.log.Warn("consume error", zap.Error(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}
