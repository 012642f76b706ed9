package service

import (
	"context"

	"FeedNotify/module/notify/model"
	"FeedNotify/service/storage"

	"go.uber.org/zap"
)

// Ledger owns items, the per-user pending lists and the pending-users set.
// Nothing else writes to those keys.
type Ledger struct {
	store  storage.Store
	states *ViewStates
	limit  int
	log    *zap.Logger
}

func NewLedger(store storage.Store, states *ViewStates, limit int, log *zap.Logger) *Ledger {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Ledger{store: store, states: states, limit: limit, log: log}
}

// AddItem stores item, replacing any previous record with the same id.
func (l *Ledger) AddItem(ctx context.Context, item model.Item) error {
	if err := validateID("item", item.Item); err != nil {
		return err
	}
	l.log.Debug("add item", zap.String("item", item.Item))
	key := model.ItemKey(item.Item)
	return l.store.Tx(ctx, func(tx storage.Tx) {
		tx.Del(key)
		tx.HSet(key, item.Fields())
	})
}

// AddNotification queues itemID for userID. It is a silent no-op returning
// false when the user has never viewed or is paused.
func (l *Ledger) AddNotification(ctx context.Context, userID, itemID string) (bool, error) {
	if err := validateID("user", userID); err != nil {
		return false, err
	}
	if err := validateID("item", itemID); err != nil {
		return false, err
	}
	active, err := l.states.IsActive(ctx, userID)
	if err != nil {
		return false, err
	}
	if !active {
		l.log.Debug("skip notification for inactive user", zap.String("user", userID), zap.String("item", itemID))
		return false, nil
	}

	key := model.NotifyKey(userID)
	err = l.store.Tx(ctx, func(tx storage.Tx) {
		tx.LPush(key, itemID)
		tx.LTrim(key, 0, int64(l.limit-1))
		tx.SAdd(model.PendingUsersKey, userID)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RemoveNotification deletes the item and every reference to it in the
// user's list.
func (l *Ledger) RemoveNotification(ctx context.Context, userID, itemID string) error {
	if err := validateID("user", userID); err != nil {
		return err
	}
	if err := validateID("item", itemID); err != nil {
		return err
	}
	l.log.Debug("remove notification", zap.String("user", userID), zap.String("item", itemID))
	return l.store.Tx(ctx, func(tx storage.Tx) {
		tx.Del(model.ItemKey(itemID))
		tx.LRem(model.NotifyKey(userID), 0, itemID)
	})
}

// Clear drops the user's whole list and takes them out of the pending set.
func (l *Ledger) Clear(ctx context.Context, userID string) error {
	if err := validateID("user", userID); err != nil {
		return err
	}
	l.log.Debug("clear notifications", zap.String("user", userID))
	return l.store.Tx(ctx, func(tx storage.Tx) {
		tx.Del(model.NotifyKey(userID))
		tx.SRem(model.PendingUsersKey, userID)
	})
}

// List returns a point-in-time snapshot of the user's notifications, newest
// first. Entries whose item record is gone are skipped.
func (l *Ledger) List(ctx context.Context, userID string) ([]model.Notification, error) {
	rows, err := l.store.ListJoin(ctx, model.NotifyKey(userID), model.ItemPattern, model.ItemFields)
	if err != nil {
		return nil, err
	}
	out := make([]model.Notification, 0, len(rows))
	for _, row := range rows {
		if n, ok := model.NotificationFromRow(row); ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (l *Ledger) Count(ctx context.Context, userID string) (int64, error) {
	return l.store.LLen(ctx, model.NotifyKey(userID))
}

// PendingUsers lists users with at least one queued notification.
func (l *Ledger) PendingUsers(ctx context.Context) ([]string, error) {
	return l.store.SMembers(ctx, model.PendingUsersKey)
}
