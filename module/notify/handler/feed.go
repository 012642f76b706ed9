package handler

import (
	"context"

	"FeedNotify/module/notify/service"
	errs "FeedNotify/tools/errs"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Feed applies feed events to the notification core.
type Feed struct {
	svc *service.Service
	log *zap.Logger
}

func NewFeed(svc *service.Service, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{svc: svc, log: log}
}

// View records the user, resets their escalation and drops whatever was
// pending: they have just seen their feed.
func (f *Feed) View(ctx context.Context, ev Event) error {
	uid := ev.User.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return f.svc.Directory.Upsert(gctx, ev.model()) })
	g.Go(func() error {
		_, err := f.svc.States.View(gctx, uid)
		return err
	})
	g.Go(func() error { return f.svc.Ledger.Clear(gctx, uid) })
	return g.Wait()
}

// Add stores the item and queues it, but only for active users.
func (f *Feed) Add(ctx context.Context, ev Event) error {
	uid := ev.User.User
	active, err := f.svc.States.IsActive(ctx, uid)
	if err != nil {
		return err
	}
	if !active {
		f.log.Debug("drop feed-add for inactive user", zap.String("user", uid))
		return nil
	}
	item := ev.item()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return f.svc.Ledger.AddItem(gctx, item) })
	g.Go(func() error {
		_, err := f.svc.Ledger.AddNotification(gctx, uid, item.Item)
		return err
	})
	return g.Wait()
}

func (f *Feed) Remove(ctx context.Context, ev Event) error {
	return f.svc.Ledger.RemoveNotification(ctx, ev.User.User, ev.item().Item)
}

// Handle routes ev by action. Unknown actions are ignored.
func (f *Feed) Handle(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	switch ev.Action {
	case ActionView:
		return f.View(ctx, ev)
	case ActionAdd:
		return f.Add(ctx, ev)
	case ActionRemove:
		return f.Remove(ctx, ev)
	default:
		f.log.Debug("ignore feed event", zap.String("action", ev.Action))
		return nil
	}
}

// Dispatch decodes and handles one raw message for a transport. Malformed
// events are logged and swallowed so the transport acknowledges them; any
// other error is returned so it can redeliver.
func (f *Feed) Dispatch(ctx context.Context, raw []byte) error {
	ev, err := DecodeEvent(raw)
	if err == nil {
		err = f.Handle(ctx, ev)
	}
	if err != nil && errs.Code(err) == errs.ValidationError {
		f.log.Warn("drop invalid feed event", zap.Error(err), zap.ByteString("payload", raw))
		return nil
	}
	if err != nil {
		f.log.Error("feed event failed", zap.String("action", ev.Action), zap.String("user", ev.User.User), zap.Error(err))
	}
	return err
}
