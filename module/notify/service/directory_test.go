package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"FeedNotify/module/notify/model"
	"FeedNotify/service/storage"
	errs "FeedNotify/tools/errs"
)

func TestUpsertIdempotent(t *testing.T) {
	svc, _, clk := newTestService(t, nil)
	ctx := context.Background()
	u := model.User{User: "u1", Username: "alice", Altid: "a-1", UserData: map[string]any{"lang": "en"}}

	if err := svc.Directory.Upsert(ctx, u); err != nil {
		t.Fatal(err)
	}
	once, err := svc.Directory.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	clk.Add(time.Hour)
	if err := svc.Directory.Upsert(ctx, u); err != nil {
		t.Fatal(err)
	}
	twice, err := svc.Directory.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("upsert not idempotent:\n%+v\n%+v", once, twice)
	}
	if !once.Created.Equal(t0) {
		t.Fatalf("created = %v", once.Created)
	}
}

func TestUpsertKeepsOmittedFields(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	_ = svc.Directory.Upsert(ctx, model.User{User: "u1", Username: "alice", Altid: "a-1", UserData: map[string]any{"lang": "en"}})
	_ = svc.Directory.Upsert(ctx, model.User{User: "u1"})

	u, err := svc.Directory.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if u.User != "u1" || u.Altid != "a-1" || u.UserData["lang"] != "en" {
		t.Fatalf("user = %+v", u)
	}
	if _, err := svc.Directory.GetByAltid(ctx, "a-1"); err != nil {
		t.Fatal(err)
	}

	_ = svc.Directory.Upsert(ctx, model.User{User: "u1", UserData: map[string]any{}})
	u, _ = svc.Directory.Get(ctx, "u1")
	if len(u.UserData) != 0 || u.Username != "alice" {
		t.Fatalf("explicit empty userdata: %+v", u)
	}
}

func TestFreshUserDefaultsUserData(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()
	if err := svc.Directory.Upsert(ctx, model.User{User: "u2"}); err != nil {
		t.Fatal(err)
	}
	u, err := svc.Directory.Get(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if u.UserData == nil || len(u.UserData) != 0 {
		t.Fatalf("userdata = %#v", u.UserData)
	}
}

func TestLookupNotFound(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	ctx := context.Background()
	_ = store.Tx(ctx, func(tx storage.Tx) { tx.Set(model.UsernameKey("dangling"), "gone") })

	lookups := map[string]func() error{
		"id":               func() error { _, err := svc.Directory.Get(ctx, "nobody"); return err },
		"username":         func() error { _, err := svc.Directory.GetByUsername(ctx, "nobody"); return err },
		"altid":            func() error { _, err := svc.Directory.GetByAltid(ctx, "nobody"); return err },
		"dangling pointer": func() error { _, err := svc.Directory.GetByUsername(ctx, "dangling"); return err },
		"status":           func() error { _, err := svc.Directory.Status(ctx, "nobody"); return err },
	}
	for name, fn := range lookups {
		t.Run(name, func(t *testing.T) {
			if err := fn(); !errors.Is(err, errs.ErrNotFound) {
				t.Fatalf("want not found, got %v", err)
			}
		})
	}
}

func TestUserDataBadJSON(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	ctx := context.Background()
	_ = store.HSet(ctx, model.UserKey("u1"), map[string]string{"user": "u1", "userdata": "{not json"})
	u, err := svc.Directory.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if u.UserData == nil || len(u.UserData) != 0 {
		t.Fatalf("userdata = %#v", u.UserData)
	}
}

func TestStatusAndListPending(t *testing.T) {
	svc, store, _ := newTestService(t, nil)
	ctx := context.Background()
	upsertAndView(t, svc, "u1")
	addItem(t, svc, "u1", "i1")
	addItem(t, svc, "u1", "i2")
	_ = store.SAdd(ctx, model.PendingUsersKey, "orphan")

	st, err := svc.Directory.StatusByUsername(ctx, "name-u1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Notifications != 2 || st.State.BucketKey() == "" {
		t.Fatalf("status = %+v", st)
	}

	pending, err := svc.Directory.ListPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].User.User != "u1" {
		t.Fatalf("pending = %+v", pending)
	}
}
