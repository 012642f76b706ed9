package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	errs "FeedNotify/tools/errs"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
)

func newMockStore(t *testing.T) (*RedisStore, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
	return NewRedisStore(db, time.Second), mock
}

func TestRedisGetMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectGet("username:alice").RedisNil()
	mock.ExpectGet("username:bob").SetVal("u2")

	if _, ok, err := s.Get(context.Background(), "username:alice"); ok || err != nil {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	v, ok, err := s.Get(context.Background(), "username:bob")
	if !ok || err != nil || v != "u2" {
		t.Fatalf("got %q ok=%v err=%v", v, ok, err)
	}
}

func TestRedisErrorsAreStoreErrors(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectSMembers("notify:bucket:20261014:09").SetErr(errors.New("connection refused"))

	_, err := s.SMembers(context.Background(), "notify:bucket:20261014:09")
	if !errors.Is(err, errs.ErrStore) {
		t.Fatalf("err = %v, want ErrStore", err)
	}
}

func TestRedisListJoin(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectSort("notify:u1", &redis.Sort{
		By:  "nosort",
		Get: []string{"item:*->item", "item:*->type", "item:*->data"},
	}).SetVal([]string{"i2", "post", "{}", "", "", "", "i1", "post", "{\"a\":1}"})

	rows, err := s.ListJoin(context.Background(), "notify:u1", "item:*", []string{"item", "type", "data"})
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"i2", "post", "{}"}, {"", "", ""}, {"i1", "post", "{\"a\":1}"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestRedisTx(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectTxPipeline()
	mock.ExpectLPush("notify:u1", "i1").SetVal(1)
	mock.ExpectLTrim("notify:u1", 0, 19).SetVal("OK")
	mock.ExpectSAdd("users", "u1").SetVal(1)
	mock.ExpectTxPipelineExec()

	err := s.Tx(context.Background(), func(tx Tx) {
		tx.LPush("notify:u1", "i1")
		tx.LTrim("notify:u1", 0, 19)
		tx.SAdd("users", "u1")
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRedisEmptyTxSkipsExec(t *testing.T) {
	s, _ := newMockStore(t)
	err := s.Tx(context.Background(), func(tx Tx) {
		tx.HSet("user:u1", nil)
		tx.SAdd("users")
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRedisHSetOrdersFields(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectHSet("user:state:u1", "first_view", "a", "last_view", "b").SetVal(2)

	err := s.HSet(context.Background(), "user:state:u1", map[string]string{"last_view": "b", "first_view": "a"})
	if err != nil {
		t.Fatal(err)
	}
}
