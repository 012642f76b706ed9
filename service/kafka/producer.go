package kafka

import (
	"context"

	errs "FeedNotify/tools/errs"

	"github.com/Shopify/sarama"
)

// Producer is a synchronous producer bound to one topic.
type Producer struct {
	sp    sarama.SyncProducer
	topic string
}

func NewProducer(c Config, topic string) (*Producer, error) {
	sp, err := sarama.NewSyncProducer(c.Brokers, BuildSaramaConfig(c))
	if err != nil {
		return nil, errs.ErrInternal.WrapErr(err, "kafka producer")
	}
	return NewProducerFrom(sp, topic), nil
}

// NewProducerFrom wraps an existing SyncProducer.
func NewProducerFrom(sp sarama.SyncProducer, topic string) *Producer {
	return &Producer{sp: sp, topic: topic}
}

// Publish sends data keyed by key, so all records for one key share a
// partition.
func (p *Producer) Publish(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(data),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}
	if _, _, err := p.sp.SendMessage(msg); err != nil {
		return errs.ErrInternal.WrapErr(err, "kafka send", "topic", p.topic)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.sp.Close()
}
