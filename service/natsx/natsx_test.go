package natsx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, msg Message) error {
				order = append(order, name)
				return next(ctx, msg)
			}
		}
	}
	h := Chain(func(context.Context, Message) error {
		order = append(order, "handler")
		return nil
	}, mw("a"), mw("b"), Logging(zap.NewNop(), 0), Timeout(time.Second))

	if err := h(context.Background(), Message{}); err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v", order)
		}
	}
}

func TestIdempotent(t *testing.T) {
	store := NewMemIdem(time.Minute)
	calls := 0
	fail := true
	h := Chain(func(context.Context, Message) error {
		calls++
		if fail {
			return errors.New("boom")
		}
		return nil
	}, Idempotent(store, 0))

	msg := Message{Header: map[string]string{MsgIDHeader: "m1"}}
	if err := h(context.Background(), msg); err == nil {
		t.Fatal("want error")
	}
	fail = false
	if err := h(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if err := h(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	_ = h(context.Background(), Message{})
	_ = h(context.Background(), Message{})
	if calls != 4 {
		t.Fatalf("messages without id deduplicated: calls = %d", calls)
	}
}

func TestMemIdemExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemIdem(time.Minute)
	store.now = func() time.Time { return now }
	if seen, _ := store.SeenOnce("k", 0); seen {
		t.Fatal("new key seen")
	}
	if seen, _ := store.SeenOnce("k", 0); !seen {
		t.Fatal("key not remembered")
	}
	now = now.Add(2 * time.Minute)
	if seen, _ := store.SeenOnce("k", 0); seen {
		t.Fatal("expired key still seen")
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("JetStream") != JetStreamPush || ParseMode("core") != Core || ParseMode("") != Core {
		t.Fatal("ParseMode")
	}
}

func TestHeaderToMap(t *testing.T) {
	if headerToMap(nil) != nil {
		t.Fatal("nil header")
	}
	h := nats.Header{}
	h.Add(MsgIDHeader, "a")
	h.Add(MsgIDHeader, "b")
	if got := headerToMap(h)[MsgIDHeader]; got != "a" {
		t.Fatalf("got %q", got)
	}
}
