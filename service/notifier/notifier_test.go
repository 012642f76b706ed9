package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"FeedNotify/module/notify/model"

	"go.uber.org/zap"
)

type capture struct {
	key  string
	data []byte
	err  error
}

func (c *capture) Publish(_ context.Context, key string, data []byte) error {
	c.key, c.data = key, data
	return c.err
}

func TestPublishSink(t *testing.T) {
	pub := &capture{}
	s := NewPublishSink(pub, false)
	s.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }

	user := model.UserStatus{User: model.User{User: "u1", Username: "alice"}, Notifications: 1}
	err := s.Notify(context.Background(), user, []model.Notification{{Item: "i1", Type: "post", Data: map[string]any{"n": 1.0}}})
	if err != nil {
		t.Fatal(err)
	}
	if pub.key != "u1" {
		t.Fatalf("key = %q", pub.key)
	}

	var got struct {
		User struct {
			User     string `json:"user"`
			Username string `json:"username"`
		} `json:"user"`
		Notifications []model.Notification `json:"notifications"`
		SentAt        string               `json:"sent_at"`
	}
	if err := json.Unmarshal(pub.data, &got); err != nil {
		t.Fatalf("payload %s: %v", pub.data, err)
	}
	if got.User.Username != "alice" || len(got.Notifications) != 1 || got.Notifications[0].Item != "i1" || got.SentAt != "2026-10-15T09:00:00Z" {
		t.Fatalf("payload = %s", pub.data)
	}
}

func TestPublishSinkEmpty(t *testing.T) {
	pub := &capture{}
	if err := NewPublishSink(pub, true).Notify(context.Background(), model.UserStatus{}, nil); err != nil || pub.data != nil {
		t.Fatalf("empty digest published: %s %v", pub.data, err)
	}
	if err := NewPublishSink(pub, false).Notify(context.Background(), model.UserStatus{User: model.User{User: "u1"}}, nil); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	_ = json.Unmarshal(pub.data, &got)
	if ns, ok := got["notifications"].([]any); !ok || len(ns) != 0 {
		t.Fatalf("notifications = %#v", got["notifications"])
	}
}

func TestPublishSinkError(t *testing.T) {
	pub := &capture{err: errors.New("down")}
	if err := NewPublishSink(pub, false).Notify(context.Background(), model.UserStatus{}, nil); err == nil {
		t.Fatal("want error")
	}
}

func TestLogSink(t *testing.T) {
	if err := NewLogSink(zap.NewNop()).Notify(context.Background(), model.UserStatus{}, nil); err != nil {
		t.Fatal(err)
	}
}
