package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-process Store. Tx batches are applied under a single
// lock so they are atomic with respect to every other call.
type MemStore struct {
	mu      sync.RWMutex
	strings map[string]string
	hashes  map[string]map[string]string
	sets    map[string]map[string]struct{}
	lists   map[string][]string
}

func NewMemStore() *MemStore {
	return &MemStore{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
		sets:    make(map[string]map[string]struct{}),
		lists:   make(map[string][]string),
	}
}

func (s *MemStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.strings[key]
	return v, ok, nil
}

func (s *MemStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.hashes[key][field]
	return v, ok, nil
}

func (s *MemStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (s *MemStore) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hset(key, fields)
	return nil
}

func (s *MemStore) HDel(_ context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hdel(key, fields...)
	return nil
}

func (s *MemStore) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sadd(key, members...)
	return nil
}

func (s *MemStore) SRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.srem(key, members...)
	return nil
}

// SMembers returns members sorted, which keeps tests deterministic.
func (s *MemStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemStore) LLen(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.lists[key])), nil
}

func (s *MemStore) ListJoin(_ context.Context, listKey, hashPattern string, fields []string) ([][]string, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.lists[listKey]
	rows := make([][]string, 0, len(list))
	for _, e := range list {
		h := s.hashes[strings.Replace(hashPattern, "*", e, 1)]
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = h[f]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *MemStore) Tx(_ context.Context, fn func(tx Tx)) error {
	tx := &memTx{}
	fn(tx)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range tx.ops {
		op(s)
	}
	return nil
}

// Exists reports whether key holds any value. Test helper.
func (s *MemStore) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.strings[key]; ok {
		return true
	}
	return len(s.hashes[key]) > 0 || len(s.sets[key]) > 0 || len(s.lists[key]) > 0
}

// Keys returns every key with the given prefix, sorted.
func (s *MemStore) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	add := func(k string) {
		if strings.HasPrefix(k, prefix) {
			seen[k] = struct{}{}
		}
	}
	for k := range s.strings {
		add(k)
	}
	for k, v := range s.hashes {
		if len(v) > 0 {
			add(k)
		}
	}
	for k, v := range s.sets {
		if len(v) > 0 {
			add(k)
		}
	}
	for k, v := range s.lists {
		if len(v) > 0 {
			add(k)
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ---- unlocked primitives ----

func (s *MemStore) hset(key string, fields map[string]string) {
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
}

func (s *MemStore) hdel(key string, fields ...string) {
	h := s.hashes[key]
	for _, f := range fields {
		delete(h, f)
	}
	if len(h) == 0 {
		delete(s.hashes, key)
	}
}

func (s *MemStore) sadd(key string, members ...string) {
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{}, len(members))
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
}

func (s *MemStore) srem(key string, members ...string) {
	set := s.sets[key]
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
}

type memTx struct {
	ops []func(s *MemStore)
}

func (t *memTx) Set(key, value string) {
	t.ops = append(t.ops, func(s *MemStore) { s.strings[key] = value })
}

func (t *memTx) HSet(key string, fields map[string]string) {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	t.ops = append(t.ops, func(s *MemStore) { s.hset(key, cp) })
}

func (t *memTx) HSetNX(key, field, value string) {
	t.ops = append(t.ops, func(s *MemStore) {
		if _, ok := s.hashes[key][field]; !ok {
			s.hset(key, map[string]string{field: value})
		}
	})
}

func (t *memTx) HDel(key string, fields ...string) {
	t.ops = append(t.ops, func(s *MemStore) { s.hdel(key, fields...) })
}

func (t *memTx) Del(keys ...string) {
	t.ops = append(t.ops, func(s *MemStore) {
		for _, k := range keys {
			delete(s.strings, k)
			delete(s.hashes, k)
			delete(s.sets, k)
			delete(s.lists, k)
		}
	})
}

func (t *memTx) LPush(key string, values ...string) {
	t.ops = append(t.ops, func(s *MemStore) {
		l := s.lists[key]
		for _, v := range values {
			l = append([]string{v}, l...)
		}
		s.lists[key] = l
	})
}

// LTrim follows Redis semantics: negative indexes count from the tail and
// an empty range deletes the key.
func (t *memTx) LTrim(key string, start, stop int64) {
	t.ops = append(t.ops, func(s *MemStore) {
		l := s.lists[key]
		n := int64(len(l))
		if start < 0 {
			start += n
		}
		if stop < 0 {
			stop += n
		}
		if start < 0 {
			start = 0
		}
		if stop >= n {
			stop = n - 1
		}
		if start > stop || start >= n {
			delete(s.lists, key)
			return
		}
		s.lists[key] = append([]string(nil), l[start:stop+1]...)
	})
}

func (t *memTx) LRem(key string, count int64, value string) {
	t.ops = append(t.ops, func(s *MemStore) {
		l := s.lists[key]
		out := l[:0:0]
		removed := int64(0)
		for _, v := range l {
			if v == value && (count == 0 || removed < count) {
				removed++
				continue
			}
			out = append(out, v)
		}
		if len(out) == 0 {
			delete(s.lists, key)
			return
		}
		s.lists[key] = out
	})
}

func (t *memTx) SAdd(key string, members ...string) {
	t.ops = append(t.ops, func(s *MemStore) { s.sadd(key, members...) })
}

func (t *memTx) SRem(key string, members ...string) {
	t.ops = append(t.ops, func(s *MemStore) { s.srem(key, members...) })
}
