package service

import (
	"context"
	"sort"
	"sync"

	"FeedNotify/module/notify/model"
	"FeedNotify/tools/safe"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sink receives one user's pending notifications during a drain. It may
// deliver synchronously or hand off and return at once.
type Sink interface {
	Notify(ctx context.Context, user model.UserStatus, notifications []model.Notification) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, user model.UserStatus, notifications []model.Notification) error

func (f SinkFunc) Notify(ctx context.Context, user model.UserStatus, notifications []model.Notification) error {
	return f(ctx, user, notifications)
}

// Drain failure stages.
const (
	StageLookup  = "lookup"
	StageList    = "list"
	StageNotify  = "notify"
	StageClear   = "clear"
	StageAdvance = "advance"
)

// Digest drains buckets: it notifies every member, then advances every
// member's escalation.
type Digest struct {
	dir         *Directory
	states      *ViewStates
	ledger      *Ledger
	buckets     *Buckets
	sink        Sink
	concurrency int
	log         *zap.Logger
}

func NewDigest(dir *Directory, states *ViewStates, ledger *Ledger, buckets *Buckets, sink Sink, concurrency int, log *zap.Logger) *Digest {
	if concurrency <= 0 {
		concurrency = DefaultDrainConcurrency
	}
	return &Digest{
		dir:         dir,
		states:      states,
		ledger:      ledger,
		buckets:     buckets,
		sink:        sink,
		concurrency: concurrency,
		log:         log,
	}
}

// Drain notifies every user in slot and then advances each of them. Advance
// only starts once every delivery has finished, so it acts on the member
// snapshot taken at the start rather than on a bucket a concurrent view may
// be changing. Per-user failures are collected in the result; only a failure
// to read the bucket itself is returned as an error.
func (d *Digest) Drain(ctx context.Context, slot string) (model.DrainResult, error) {
	slot = model.BucketSlot(slot)
	res := model.DrainResult{RunID: uuid.NewString(), Bucket: slot}

	users, err := d.buckets.Members(ctx, slot)
	if err != nil {
		return res, err
	}
	res.Users = len(users)
	res.Notifications = make([]int, len(users))
	d.log.Info("drain bucket", zap.String("run", res.RunID), zap.String("bucket", slot), zap.Int("users", len(users)))

	var (
		mu       sync.Mutex
		failures []model.DrainFailure
	)
	fail := func(user, stage string, err error) {
		d.log.Warn("drain user failed", zap.String("run", res.RunID), zap.String("user", user), zap.String("stage", stage), zap.Error(err))
		mu.Lock()
		failures = append(failures, model.DrainFailure{User: user, Stage: stage, Error: err.Error()})
		mu.Unlock()
	}

	g := new(errgroup.Group)
	g.SetLimit(d.concurrency)
	for i, user := range users {
		g.Go(func() error {
			n, stage, err := d.notifyUser(ctx, user)
			res.Notifications[i] = n
			if err != nil {
				fail(user, stage, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	g = new(errgroup.Group)
	g.SetLimit(d.concurrency)
	for _, user := range users {
		g.Go(func() error {
			if _, err := d.states.Advance(ctx, user); err != nil {
				fail(user, StageAdvance, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool {
		if failures[i].User != failures[j].User {
			return failures[i].User < failures[j].User
		}
		return failures[i].Stage < failures[j].Stage
	})
	res.Failures = failures
	return res, nil
}

// DrainCurrent drains the slot of the current hour.
func (d *Digest) DrainCurrent(ctx context.Context) (model.DrainResult, error) {
	return d.Drain(ctx, d.buckets.SlotFor(d.states.now()))
}

// notifyUser delivers and clears one user's list. The list is only cleared
// after the sink accepted it, so a failed delivery is retried by the next
// bucket the user advances into.
func (d *Digest) notifyUser(ctx context.Context, user string) (int, string, error) {
	status, err := d.dir.Status(ctx, user)
	if err != nil {
		return 0, StageLookup, err
	}
	notifications, err := d.ledger.List(ctx, user)
	if err != nil {
		return 0, StageList, err
	}
	if d.sink != nil {
		if err := d.deliver(ctx, status, notifications); err != nil {
			return len(notifications), StageNotify, err
		}
	}
	if err := d.ledger.Clear(ctx, user); err != nil {
		return len(notifications), StageClear, err
	}
	return len(notifications), "", nil
}

// deliver calls the sink and turns a panic into an error so one user's
// delivery cannot abort the drain.
func (d *Digest) deliver(ctx context.Context, status model.UserStatus, notifications []model.Notification) (err error) {
	defer safe.Catch(d.log, "sink:"+status.User.User, &err)
	return d.sink.Notify(ctx, status, notifications)
}
