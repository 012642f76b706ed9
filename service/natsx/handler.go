package natsx

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Message 统一消息对象
type Message struct {
	Subject string
	Data    []byte
	Header  map[string]string
}

// Handler 业务处理函数. A nil error acks a JetStream message, an error naks it.
type Handler func(ctx context.Context, msg Message) error

// Middleware 中间件（日志、幂等等）
type Middleware func(Handler) Handler

// Chain 组合中间件; the first middleware is the outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Logging logs failed deliveries and slow handlers.
func Logging(log *zap.Logger, slow time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) error {
			start := time.Now()
			err := next(ctx, msg)
			cost := time.Since(start)
			switch {
			case err != nil:
				log.Warn("nats handler failed", zap.String("subject", msg.Subject), zap.Duration("cost", cost), zap.Error(err))
			case slow > 0 && cost > slow:
				log.Info("nats handler slow", zap.String("subject", msg.Subject), zap.Duration("cost", cost))
			}
			return err
		}
	}
}

// Timeout bounds each handler call.
func Timeout(d time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg Message) error {
			if d <= 0 {
				return next(ctx, msg)
			}
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, msg)
		}
	}
}
