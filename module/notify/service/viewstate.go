package service

import (
	"context"
	"time"

	"FeedNotify/module/notify/model"
	"FeedNotify/service/storage"
	errs "FeedNotify/tools/errs"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ViewStates runs the escalation state machine: a view resets a user to
// Active(0); every drain advances one step until Paused.
type ViewStates struct {
	store   storage.Store
	buckets *Buckets
	periods []int
	now     func() time.Time
	log     *zap.Logger
}

func NewViewStates(store storage.Store, buckets *Buckets, periods []int, now func() time.Time, log *zap.Logger) *ViewStates {
	if now == nil {
		now = time.Now
	}
	return &ViewStates{
		store:   store,
		buckets: buckets,
		periods: append([]int(nil), periods...),
		now:     now,
		log:     log,
	}
}

// State loads the stored state. ok is false for a user that never viewed.
func (v *ViewStates) State(ctx context.Context, userID string) (model.ViewState, bool, error) {
	m, err := v.store.HGetAll(ctx, model.ViewStateKey(userID))
	if err != nil {
		return model.ViewState{}, false, err
	}
	st, ok := model.ViewStateFromFields(m)
	return st, ok, nil
}

// IsActive reports whether new notifications may be recorded for userID.
func (v *ViewStates) IsActive(ctx context.Context, userID string) (bool, error) {
	bucket, ok, err := v.store.HGet(ctx, model.ViewStateKey(userID), model.FieldBucketKey)
	if err != nil {
		return false, err
	}
	return ok && bucket != "" && bucket != model.PausedPeriod, nil
}

// View records a feed view and unconditionally resets escalation to the
// first period.
func (v *ViewStates) View(ctx context.Context, userID string) (model.ViewState, error) {
	if err := validateID("user", userID); err != nil {
		return model.ViewState{}, err
	}
	old, ok, err := v.State(ctx, userID)
	if err != nil {
		return model.ViewState{}, err
	}

	now := v.now()
	st := old
	if !ok || st.FirstView.IsZero() {
		st.FirstView = now
	}
	st.PreviousView = st.LastView
	st.LastView = now

	next := model.Active{
		PeriodIndex: 0,
		Period:      v.periods[0],
		BucketKey:   v.buckets.KeyFor(v.periods[0], now),
	}

	v.log.Debug("view", zap.String("user", userID), zap.String("bucket", next.BucketKey))
	if err := v.store.HSet(ctx, model.ViewStateKey(userID), st.ViewFields()); err != nil {
		return model.ViewState{}, err
	}
	if err := v.Migrate(ctx, userID, old.Escalation, next); err != nil {
		return model.ViewState{}, err
	}
	st.Escalation = next
	return st, nil
}

// Advance moves userID one step along the period sequence after a drain,
// pausing it past the last period. Slots stay anchored to the last view.
func (v *ViewStates) Advance(ctx context.Context, userID string) (model.ViewState, error) {
	st, ok, err := v.State(ctx, userID)
	if err != nil {
		return model.ViewState{}, err
	}
	if !ok {
		return model.ViewState{}, errs.ErrNotFound.WrapMsg("no view state for user", "user", userID)
	}
	if _, paused := st.Escalation.(model.Paused); paused {
		return st, nil
	}

	idx := 1
	if st.Escalation != nil {
		idx = st.Escalation.Index() + 1
	}
	anchor := st.LastView
	if anchor.IsZero() {
		anchor = v.now()
	}

	var next model.Escalation
	if idx < len(v.periods) {
		now := v.now()
		key := v.buckets.KeyFor(v.periods[idx], anchor)
		// A late drain can compute a slot that already passed; nothing
		// would ever drain it, so count from now instead.
		if model.BucketSlot(key) <= v.buckets.SlotFor(now) {
			key = v.buckets.KeyFor(v.periods[idx], now)
		}
		next = model.Active{
			PeriodIndex: idx,
			Period:      v.periods[idx],
			BucketKey:   key,
		}
	} else {
		next = model.Paused{PeriodIndex: idx}
	}

	if err := v.Migrate(ctx, userID, st.Escalation, next); err != nil {
		return model.ViewState{}, err
	}
	st.Escalation = next
	return st, nil
}

// Migrate moves userID from the bucket of old to the bucket of next and
// persists next. The set moves run concurrently and are not atomic with each
// other; the state write is issued last so the stored state stays the source
// of truth when a move fails.
func (v *ViewStates) Migrate(ctx context.Context, userID string, old, next model.Escalation) error {
	oldKey := bucketOf(old)
	nextKey := bucketOf(next)
	if oldKey == nextKey && sameEscalation(old, next) {
		return nil
	}

	if oldKey != nextKey {
		v.log.Debug("move bucket", zap.String("user", userID), zap.String("from", oldKey), zap.String("to", nextKey))
		g, gctx := errgroup.WithContext(ctx)
		if oldKey != "" {
			g.Go(func() error { return v.store.SRem(gctx, oldKey, userID) })
		}
		if nextKey != "" {
			g.Go(func() error { return v.store.SAdd(gctx, nextKey, userID) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	set, del := model.EscalationFields(next)
	return v.store.Tx(ctx, func(tx storage.Tx) {
		tx.HSet(model.ViewStateKey(userID), set)
		tx.HDel(model.ViewStateKey(userID), del...)
	})
}

func bucketOf(e model.Escalation) string {
	if a, ok := e.(model.Active); ok {
		return a.BucketKey
	}
	return ""
}

func sameEscalation(a, b model.Escalation) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}
