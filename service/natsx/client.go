package natsx

import (
	"strings"
	"sync"
	"time"

	errs "FeedNotify/tools/errs"

	"github.com/nats-io/nats.go"
)

// Mode 工作模式
type Mode int

const (
	Core          Mode = iota // 无持久化
	JetStreamPush             // JS 推送订阅
)

// ParseMode maps "core" / "jetstream" to a Mode; anything else is Core.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jetstream", "js", "jetstream-push":
		return JetStreamPush
	default:
		return Core
	}
}

// Route describes one subject and how it is consumed or published.
type Route struct {
	Subject       string
	Mode          Mode
	Queue         string // 队列组（Core/JS Push）
	Durable       string // JS durable 名
	AckWait       time.Duration
	MaxAckPending int
}

func (r Route) withDefaults() Route {
	if r.AckWait == 0 {
		r.AckWait = 30 * time.Second
	}
	if r.MaxAckPending == 0 {
		r.MaxAckPending = 1024
	}
	return r
}

type Config struct {
	Servers       []string
	Name          string
	User          string
	Password      string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Client wraps one connection and the subscriptions made through it.
type Client struct {
	cfg Config
	nc  *nats.Conn

	mu   sync.Mutex
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewClient 连接 NATS
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errs.ErrValidation.WrapMsg("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errs.ErrInternal.WrapErr(err, "nats connect", "servers", strings.Join(cfg.Servers, ","))
	}
	return &Client{cfg: cfg, nc: nc}, nil
}

// Close 优雅关闭: drains subscriptions, then the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, sub := range subs {
		_ = sub.Drain()
	}
	if c.nc != nil {
		return c.nc.Drain()
	}
	return nil
}

func (c *Client) jetStream() (nats.JetStreamContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.js != nil {
		return c.js, nil
	}
	js, err := c.nc.JetStream()
	if err != nil {
		return nil, errs.ErrInternal.WrapErr(err, "init jetstream")
	}
	c.js = js
	return js, nil
}

func (c *Client) track(sub *nats.Subscription) {
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
}

func headerToMap(h nats.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
