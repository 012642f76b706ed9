package storage

import "context"

// Store is the key-value capability set the notification core relies on:
// strings, hashes, sets, lists, atomic batches and a joined list read.
// Every backend failure surfaces as errs.ErrStore.
type Store interface {
	Get(ctx context.Context, key string) (val string, ok bool, err error)
	HGet(ctx context.Context, key, field string) (val string, ok bool, err error)
	// HGetAll returns an empty map when the key does not exist.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HDel(ctx context.Context, key string, fields ...string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	// SMembers returns an empty slice when the set does not exist.
	SMembers(ctx context.Context, key string) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)
	// ListJoin walks the list at listKey in stored order and resolves each
	// element e to the given fields of the hash named by hashPattern with
	// "*" replaced by e. Missing hashes or fields come back as "".
	ListJoin(ctx context.Context, listKey, hashPattern string, fields []string) ([][]string, error)
	// Tx queues the commands issued by fn and applies them as one atomic
	// batch.
	Tx(ctx context.Context, fn func(tx Tx)) error
}

// Tx collects write commands for Store.Tx.
type Tx interface {
	Set(key, value string)
	HSet(key string, fields map[string]string)
	HSetNX(key, field, value string)
	HDel(key string, fields ...string)
	Del(keys ...string)
	LPush(key string, values ...string)
	LTrim(key string, start, stop int64)
	// LRem with count 0 removes every occurrence of value.
	LRem(key string, count int64, value string)
	SAdd(key string, members ...string)
	SRem(key string, members ...string)
}
