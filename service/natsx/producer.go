package natsx

import (
	"context"

	errs "FeedNotify/tools/errs"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Producer publishes to one route. Every message carries a Nats-Msg-Id so
// JetStream can de-duplicate retries.
type Producer struct {
	c     *Client
	route Route
}

func NewProducer(c *Client, r Route) *Producer {
	return &Producer{c: c, route: r.withDefaults()}
}

// Publish sends data with key as the X-Key header.
func (p *Producer) Publish(ctx context.Context, key string, data []byte) error {
	msg := nats.NewMsg(p.route.Subject)
	msg.Data = data
	msg.Header.Set(MsgIDHeader, uuid.NewString())
	if key != "" {
		msg.Header.Set("X-Key", key)
	}

	switch p.route.Mode {
	case JetStreamPush:
		js, err := p.c.jetStream()
		if err != nil {
			return err
		}
		if _, err := js.PublishMsg(msg, nats.Context(ctx)); err != nil {
			return errs.ErrInternal.WrapErr(err, "jetstream publish", "subject", p.route.Subject)
		}
	default:
		if err := p.c.nc.PublishMsg(msg); err != nil {
			return errs.ErrInternal.WrapErr(err, "nats publish", "subject", p.route.Subject)
		}
	}
	return nil
}
