package notifier

import (
	"context"
	"encoding/json"
	"time"

	"FeedNotify/module/notify/model"
	"FeedNotify/module/notify/service"
	errs "FeedNotify/tools/errs"

	"go.uber.org/zap"
)

var (
	_ service.Sink = (*LogSink)(nil)
	_ service.Sink = (*PublishSink)(nil)
)

// LogSink only logs what would have been sent.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(_ context.Context, user model.UserStatus, notifications []model.Notification) error {
	name := user.Username
	if name == "" {
		name = user.User.User
	}
	s.log.Info("notify", zap.String("user", user.User.User), zap.String("username", name), zap.Int("notifications", len(notifications)))
	return nil
}

// Publisher is a message bus producer: natsx.Producer or kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, data []byte) error
}

// Digest is the payload published for one user per drain.
type Digest struct {
	User          model.UserStatus     `json:"user"`
	Notifications []model.Notification `json:"notifications"`
	SentAt        time.Time            `json:"sent_at"`
}

// PublishSink encodes a Digest and hands it to a Publisher keyed by user id.
type PublishSink struct {
	pub Publisher
	now func() time.Time
	// SkipEmpty drops digests without notifications.
	SkipEmpty bool
}

func NewPublishSink(pub Publisher, skipEmpty bool) *PublishSink {
	return &PublishSink{pub: pub, now: time.Now, SkipEmpty: skipEmpty}
}

func (s *PublishSink) Notify(ctx context.Context, user model.UserStatus, notifications []model.Notification) error {
	if s.SkipEmpty && len(notifications) == 0 {
		return nil
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	data, err := json.Marshal(Digest{User: user, Notifications: notifications, SentAt: s.now().UTC()})
	if err != nil {
		return errs.ErrInternal.WrapErr(err, "encode digest", "user", user.User.User)
	}
	return s.pub.Publish(ctx, user.User.User, data)
}
