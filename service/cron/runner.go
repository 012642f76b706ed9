package cron

import (
	"context"
	"sync"
	"time"

	"FeedNotify/module/notify/model"
	errs "FeedNotify/tools/errs"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultSpec    = "0 * * * *"
	DefaultTimeout = 5 * time.Minute
)

// Drainer drains the bucket of the current hour.
type Drainer interface {
	DrainCurrent(ctx context.Context) (model.DrainResult, error)
}

type Config struct {
	Spec     string
	Timeout  time.Duration
	Location *time.Location
}

// Runner triggers a drain on a cron schedule. A tick that fires while the
// previous drain is still running is skipped.
type Runner struct {
	cfg    Config
	d      Drainer
	log    *zap.Logger
	parser cron.Parser

	mu     sync.Mutex
	c      *cron.Cron
	entry  cron.EntryID
	cancel context.CancelFunc
}

func New(cfg Config, d Drainer, log *zap.Logger) (*Runner, error) {
	if cfg.Spec == "" {
		cfg.Spec = DefaultSpec
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	r := &Runner{
		cfg:    cfg,
		d:      d,
		log:    log,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
	if _, err := r.parser.Parse(cfg.Spec); err != nil {
		return nil, errs.ErrValidation.WrapErr(err, "scheduler spec", "spec", cfg.Spec)
	}
	return r, nil
}

// Start registers the schedule and returns. Drains run with a context
// derived from ctx.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.c != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	c := cron.New(
		cron.WithParser(r.parser),
		cron.WithLocation(r.cfg.Location),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	id, err := c.AddFunc(r.cfg.Spec, func() { r.RunOnce(ctx) })
	if err != nil {
		cancel()
		return errs.ErrValidation.WrapErr(err, "scheduler spec", "spec", r.cfg.Spec)
	}
	r.c, r.entry, r.cancel = c, id, cancel
	c.Start()
	r.log.Info("scheduler started", zap.String("spec", r.cfg.Spec), zap.String("tz", r.cfg.Location.String()))
	return nil
}

// Stop waits for a running drain to finish or ctx to expire.
func (r *Runner) Stop(ctx context.Context) {
	r.mu.Lock()
	c, cancel := r.c, r.cancel
	r.c, r.cancel = nil, nil
	r.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	cancel()
}

// Next is the next scheduled run, zero when stopped.
func (r *Runner) Next() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.c == nil {
		return time.Time{}
	}
	return r.c.Entry(r.entry).Next
}

// RunOnce drains the current slot with the configured timeout.
func (r *Runner) RunOnce(ctx context.Context) (model.DrainResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	start := time.Now()
	res, err := r.d.DrainCurrent(ctx)
	if err != nil {
		r.log.Error("scheduled drain failed", zap.String("bucket", res.Bucket), zap.Error(err))
		return res, err
	}
	r.log.Info("scheduled drain done",
		zap.String("run", res.RunID),
		zap.String("bucket", res.Bucket),
		zap.Int("users", res.Users),
		zap.Int("failures", len(res.Failures)),
		zap.Duration("cost", time.Since(start)))
	return res, nil
}
