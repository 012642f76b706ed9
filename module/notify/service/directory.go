package service

import (
	"context"
	"time"

	"FeedNotify/module/notify/model"
	"FeedNotify/service/storage"
	errs "FeedNotify/tools/errs"

	"go.uber.org/zap"
)

// Directory stores user records and their username / altid indexes.
type Directory struct {
	store  storage.Store
	states *ViewStates
	ledger *Ledger
	now    func() time.Time
	log    *zap.Logger
}

func NewDirectory(store storage.Store, states *ViewStates, ledger *Ledger, now func() time.Time, log *zap.Logger) *Directory {
	if now == nil {
		now = time.Now
	}
	return &Directory{store: store, states: states, ledger: ledger, now: now, log: log}
}

// Upsert merges u into the stored record. Fields and index pointers that u
// leaves empty are kept as they are.
func (d *Directory) Upsert(ctx context.Context, u model.User) error {
	if err := validateID("user", u.User); err != nil {
		return err
	}
	d.log.Debug("upsert user", zap.String("user", u.User))

	key := model.UserKey(u.User)
	fields := u.Fields()
	created := d.now().UTC().Format(time.RFC3339)
	return d.store.Tx(ctx, func(tx storage.Tx) {
		tx.HSet(key, fields)
		tx.HSetNX(key, model.FieldCreated, created)
		if u.Username != "" {
			tx.Set(model.UsernameKey(u.Username), u.User)
		}
		if u.Altid != "" {
			tx.Set(model.UserAltidKey(u.Altid), u.User)
		}
	})
}

func (d *Directory) Get(ctx context.Context, id string) (model.User, error) {
	m, err := d.store.HGetAll(ctx, model.UserKey(id))
	if err != nil {
		return model.User{}, err
	}
	if len(m) == 0 {
		return model.User{}, errs.ErrNotFound.WrapMsg("user with id '" + id + "' not found")
	}
	return model.UserFromFields(m), nil
}

func (d *Directory) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return d.resolve(ctx, model.UsernameKey(username), "username", username)
}

func (d *Directory) GetByAltid(ctx context.Context, altid string) (model.User, error) {
	return d.resolve(ctx, model.UserAltidKey(altid), "altid", altid)
}

// resolve follows an index pointer to the record. A dangling pointer is
// reported like a missing one.
func (d *Directory) resolve(ctx context.Context, indexKey, kind, value string) (model.User, error) {
	id, ok, err := d.store.Get(ctx, indexKey)
	if err != nil {
		return model.User{}, err
	}
	if !ok || id == "" {
		return model.User{}, errs.ErrNotFound.WrapMsg("user with " + kind + " '" + value + "' not found")
	}
	u, err := d.Get(ctx, id)
	if err != nil {
		if errs.Code(err) == errs.NotFoundError {
			return model.User{}, errs.ErrNotFound.WrapMsg("user with "+kind+" '"+value+"' not found", "user", id)
		}
		return model.User{}, err
	}
	return u, nil
}

// Status summarises a user: record, view state and pending count.
func (d *Directory) Status(ctx context.Context, id string) (model.UserStatus, error) {
	u, err := d.Get(ctx, id)
	if err != nil {
		return model.UserStatus{}, err
	}
	st, _, err := d.states.State(ctx, id)
	if err != nil {
		return model.UserStatus{}, err
	}
	n, err := d.ledger.Count(ctx, id)
	if err != nil {
		return model.UserStatus{}, err
	}
	return model.UserStatus{User: u, State: st, Notifications: n}, nil
}

// StatusByUsername and StatusByAltid resolve the index before summarising.
func (d *Directory) StatusByUsername(ctx context.Context, username string) (model.UserStatus, error) {
	u, err := d.GetByUsername(ctx, username)
	if err != nil {
		return model.UserStatus{}, err
	}
	return d.Status(ctx, u.User)
}

func (d *Directory) StatusByAltid(ctx context.Context, altid string) (model.UserStatus, error) {
	u, err := d.GetByAltid(ctx, altid)
	if err != nil {
		return model.UserStatus{}, err
	}
	return d.Status(ctx, u.User)
}

// ListPending returns a status for every user with pending notifications.
// Ids without a user record are logged and skipped.
func (d *Directory) ListPending(ctx context.Context) ([]model.UserStatus, error) {
	ids, err := d.ledger.PendingUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserStatus, 0, len(ids))
	for _, id := range ids {
		st, err := d.Status(ctx, id)
		if err != nil {
			if errs.Code(err) == errs.NotFoundError {
				d.log.Warn("pending user without record", zap.String("user", id))
				continue
			}
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}
