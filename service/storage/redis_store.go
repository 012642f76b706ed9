package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	errs "FeedNotify/tools/errs"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a go-redis client. Each call runs under
// opTimeout when it is positive.
type RedisStore struct {
	rdb       redis.Cmdable
	opTimeout time.Duration
}

func NewRedisStore(rdb redis.Cmdable, opTimeout time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, opTimeout: opTimeout}
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func storeErr(err error, op, key string) error {
	return errs.ErrStore.WrapErr(err, "redis", "op", op, "key", key)
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeErr(err, "GET", key)
	}
	return val, true, nil
}

func (s *RedisStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	val, err := s.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeErr(err, "HGET", key)
	}
	return val, true, nil
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	m, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, storeErr(err, "HGETALL", key)
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

func (s *RedisStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.rdb.HSet(ctx, key, flatten(fields)...).Err(); err != nil {
		return storeErr(err, "HSET", key)
	}
	return nil
}

func (s *RedisStore) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.rdb.HDel(ctx, key, fields...).Err(); err != nil {
		return storeErr(err, "HDEL", key)
	}
	return nil
}

func (s *RedisStore) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.rdb.SAdd(ctx, key, toAny(members)...).Err(); err != nil {
		return storeErr(err, "SADD", key)
	}
	return nil
}

func (s *RedisStore) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.rdb.SRem(ctx, key, toAny(members)...).Err(); err != nil {
		return storeErr(err, "SREM", key)
	}
	return nil
}

func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	vals, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, storeErr(err, "SMEMBERS", key)
	}
	if vals == nil {
		vals = []string{}
	}
	return vals, nil
}

func (s *RedisStore) LLen(ctx context.Context, key string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, storeErr(err, "LLEN", key)
	}
	return n, nil
}

// ListJoin uses SORT <list> BY nosort GET <pattern>-><field> ... so the list
// order is kept and the join happens server side in one round trip.
func (s *RedisStore) ListJoin(ctx context.Context, listKey, hashPattern string, fields []string) ([][]string, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	gets := make([]string, 0, len(fields))
	for _, f := range fields {
		gets = append(gets, hashPattern+"->"+f)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	vals, err := s.rdb.Sort(ctx, listKey, &redis.Sort{By: "nosort", Get: gets}).Result()
	if err != nil {
		return nil, storeErr(err, "SORT", listKey)
	}

	rows := make([][]string, 0, len(vals)/len(fields))
	for len(vals) >= len(fields) {
		rows = append(rows, vals[:len(fields):len(fields)])
		vals = vals[len(fields):]
	}
	return rows, nil
}

func (s *RedisStore) Tx(ctx context.Context, fn func(tx Tx)) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pipe := s.rdb.TxPipeline()
	tx := &redisTx{ctx: ctx, pipe: pipe}
	fn(tx)
	if tx.n == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr(err, "MULTI", tx.first)
	}
	return nil
}

type redisTx struct {
	ctx   context.Context
	pipe  redis.Pipeliner
	n     int
	first string
}

func (t *redisTx) queued(key string) {
	if t.n == 0 {
		t.first = key
	}
	t.n++
}

func (t *redisTx) Set(key, value string) {
	t.pipe.Set(t.ctx, key, value, 0)
	t.queued(key)
}

func (t *redisTx) HSet(key string, fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	t.pipe.HSet(t.ctx, key, flatten(fields)...)
	t.queued(key)
}

func (t *redisTx) HSetNX(key, field, value string) {
	t.pipe.HSetNX(t.ctx, key, field, value)
	t.queued(key)
}

func (t *redisTx) HDel(key string, fields ...string) {
	if len(fields) == 0 {
		return
	}
	t.pipe.HDel(t.ctx, key, fields...)
	t.queued(key)
}

func (t *redisTx) Del(keys ...string) {
	if len(keys) == 0 {
		return
	}
	t.pipe.Del(t.ctx, keys...)
	t.queued(keys[0])
}

func (t *redisTx) LPush(key string, values ...string) {
	if len(values) == 0 {
		return
	}
	t.pipe.LPush(t.ctx, key, toAny(values)...)
	t.queued(key)
}

func (t *redisTx) LTrim(key string, start, stop int64) {
	t.pipe.LTrim(t.ctx, key, start, stop)
	t.queued(key)
}

func (t *redisTx) LRem(key string, count int64, value string) {
	t.pipe.LRem(t.ctx, key, count, value)
	t.queued(key)
}

func (t *redisTx) SAdd(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	t.pipe.SAdd(t.ctx, key, toAny(members)...)
	t.queued(key)
}

func (t *redisTx) SRem(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	t.pipe.SRem(t.ctx, key, toAny(members)...)
	t.queued(key)
}

// flatten emits field/value pairs in key order.
func flatten(fields map[string]string) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
