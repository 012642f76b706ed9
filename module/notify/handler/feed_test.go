package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"FeedNotify/module/notify/model"
	"FeedNotify/module/notify/service"
	"FeedNotify/service/storage"
	errs "FeedNotify/tools/errs"
)

func newFeed(t *testing.T) (*Feed, *service.Service, *storage.MemStore) {
	t.Helper()
	store := storage.NewMemStore()
	opts := service.DefaultOptions()
	opts.Now = func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC) }
	svc, err := service.New(store, opts, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewFeed(svc, nil), svc, store
}

func dispatch(t *testing.T, f *Feed, raw string) {
	t.Helper()
	if err := f.Dispatch(context.Background(), []byte(raw)); err != nil {
		t.Fatalf("Dispatch(%s): %v", raw, err)
	}
}

func pendingItems(t *testing.T, svc *service.Service, user string) []string {
	t.Helper()
	ns, err := svc.Ledger.List(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Item)
	}
	return out
}

func TestFeedFlow(t *testing.T) {
	f, svc, store := newFeed(t)
	ctx := context.Background()

	dispatch(t, f, `{"action":"feed-add","user":{"user":"u1"},"item":{"item":"i0","type":"post"},"data":{"n":0}}`)
	if store.Exists(model.ItemKey("i0")) {
		t.Fatalf("item stored for never-viewed user")
	}

	dispatch(t, f, `{"action":"feed-view","user":{"user":"u1","username":"alice","userdata":{"lang":"en"}}}`)
	u, err := svc.Directory.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if u.UserData["lang"] != "en" {
		t.Fatalf("userdata = %v", u.UserData)
	}
	if ok, _ := svc.States.IsActive(ctx, "u1"); !ok {
		t.Fatalf("user not active after view")
	}

	dispatch(t, f, `{"action":"feed-add","user":{"user":"u1"},"item":{"item":"i1","type":"post"},"data":{"n":1}}`)
	dispatch(t, f, `{"action":"feed-add","user":{"user":"u1"},"item":{"item":"i2","type":"like"},"data":{"n":2}}`)
	if got := pendingItems(t, svc, "u1"); len(got) != 2 || got[0] != "i2" || got[1] != "i1" {
		t.Fatalf("pending = %v", got)
	}

	dispatch(t, f, `{"action":"feed-remove","user":{"user":"u1"},"item":{"item":"i2"}}`)
	if got := pendingItems(t, svc, "u1"); len(got) != 1 || got[0] != "i1" {
		t.Fatalf("pending after remove = %v", got)
	}

	dispatch(t, f, `{"action":"feed-view","user":{"user":"u1"}}`)
	if got := pendingItems(t, svc, "u1"); len(got) != 0 {
		t.Fatalf("view did not clear: %v", got)
	}
	if u, _ := svc.Directory.Get(ctx, "u1"); u.Username != "alice" {
		t.Fatalf("partial view event dropped username: %+v", u)
	}
}

func TestDispatchDropsInvalid(t *testing.T) {
	f, _, store := newFeed(t)
	for _, raw := range []string{
		`not json`,
		`{"action":"feed-view","user":{}}`,
		`{"action":"feed-add","user":{"user":"u1"}}`,
		`{"action":"feed-view","user":{"user":"a:b"}}`,
		`{"action":"something-else","user":{"user":"u1"}}`,
	} {
		dispatch(t, f, raw)
	}
	if keys := store.Keys(""); len(keys) != 0 {
		t.Fatalf("invalid events wrote %v", keys)
	}
}

func TestHandleReturnsValidation(t *testing.T) {
	f, _, _ := newFeed(t)
	err := f.Handle(context.Background(), Event{Action: ActionRemove, User: EventUser{User: "u1"}})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

type brokenStore struct{ *storage.MemStore }

func (brokenStore) HGet(context.Context, string, string) (string, bool, error) {
	return "", false, errs.ErrStore.WrapMsg("redis", "op", "HGET")
}

func TestDispatchReturnsStoreError(t *testing.T) {
	svc, err := service.New(brokenStore{storage.NewMemStore()}, service.DefaultOptions(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	f := NewFeed(svc, nil)
	err = f.Dispatch(context.Background(), []byte(`{"action":"feed-add","user":{"user":"u1"},"item":{"item":"i1"}}`))
	if !errors.Is(err, errs.ErrStore) {
		t.Fatalf("want store error, got %v", err)
	}
}
