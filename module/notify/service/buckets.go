package service

import (
	"context"
	"time"

	"FeedNotify/module/notify/model"
	"FeedNotify/service/storage"
)

// Buckets indexes users by the hour slot they are due in.
type Buckets struct {
	store storage.Store
	loc   *time.Location
}

func NewBuckets(store storage.Store, loc *time.Location) *Buckets {
	if loc == nil {
		loc = time.UTC
	}
	return &Buckets{store: store, loc: loc}
}

// Members returns the users assigned to slot. slot may be bare
// ("20261014:09") or a full bucket key. A bucket that never existed is
// empty, not an error.
func (b *Buckets) Members(ctx context.Context, slot string) ([]string, error) {
	return b.store.SMembers(ctx, model.BucketKey(slot))
}

// SlotFor truncates t to its day+hour slot.
func (b *Buckets) SlotFor(t time.Time) string {
	return t.In(b.loc).Format(SlotLayout)
}

// KeyFor is the bucket key due periodDays after from. Pure.
func (b *Buckets) KeyFor(periodDays int, from time.Time) string {
	return model.BucketKey(b.SlotFor(from.AddDate(0, 0, periodDays)))
}
