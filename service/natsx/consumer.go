package natsx

import (
	"context"

	errs "FeedNotify/tools/errs"

	"github.com/nats-io/nats.go"
)

// Consumer 消费端
type Consumer struct {
	c   *Client
	mws []Middleware
}

func NewConsumer(c *Client, mws ...Middleware) *Consumer {
	return &Consumer{c: c, mws: mws}
}

// Subscribe Core / JetStream Push 订阅. JetStream messages are acked when h
// returns nil and naked otherwise; Core has no redelivery.
func (cs *Consumer) Subscribe(r Route, h Handler) error {
	if r.Subject == "" {
		return errs.ErrValidation.WrapMsg("nats route without subject")
	}
	r = r.withDefaults()
	h = Chain(h, cs.mws...)

	switch r.Mode {
	case Core:
		cb := func(m *nats.Msg) {
			_ = h(context.Background(), toMessage(m))
		}
		var (
			sub *nats.Subscription
			err error
		)
		if r.Queue == "" {
			sub, err = cs.c.nc.Subscribe(r.Subject, cb)
		} else {
			sub, err = cs.c.nc.QueueSubscribe(r.Subject, r.Queue, cb)
		}
		if err != nil {
			return errs.ErrInternal.WrapErr(err, "nats subscribe", "subject", r.Subject)
		}
		_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)
		cs.c.track(sub)
		return nil

	case JetStreamPush:
		js, err := cs.c.jetStream()
		if err != nil {
			return err
		}
		opts := []nats.SubOpt{
			nats.ManualAck(),
			nats.AckWait(r.AckWait),
			nats.MaxAckPending(r.MaxAckPending),
		}
		if r.Durable != "" {
			opts = append(opts, nats.Durable(r.Durable))
		}
		cb := func(m *nats.Msg) {
			if err := h(context.Background(), toMessage(m)); err == nil {
				_ = m.Ack()
			} else {
				_ = m.Nak()
			}
		}
		var sub *nats.Subscription
		if r.Queue == "" {
			sub, err = js.Subscribe(r.Subject, cb, opts...)
		} else {
			sub, err = js.QueueSubscribe(r.Subject, r.Queue, cb, opts...)
		}
		if err != nil {
			return errs.ErrInternal.WrapErr(err, "jetstream subscribe", "subject", r.Subject)
		}
		cs.c.track(sub)
		return nil

	default:
		return errs.ErrValidation.WrapMsg("nats mode not supported", "mode", r.Mode)
	}
}

func toMessage(m *nats.Msg) Message {
	return Message{
		Subject: m.Subject,
		Data:    append([]byte(nil), m.Data...),
		Header:  headerToMap(m.Header),
	}
}
