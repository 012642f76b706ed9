package service

import (
	"strings"
	"time"

	errs "FeedNotify/tools/errs"
)

const (
	DefaultLimit            = 20
	DefaultDrainConcurrency = 8

	// SlotLayout truncates a timestamp to day and hour.
	SlotLayout = "20060102:15"
)

// DefaultPeriods is the escalation sequence in days.
var DefaultPeriods = []int{1, 3, 5}

// Options configures the notification core.
type Options struct {
	// Periods is the escalation sequence in days, e.g. [1, 3, 5].
	Periods []int
	// Limit caps each user's pending list.
	Limit int
	// Location is the time zone bucket slots are computed in.
	Location *time.Location
	// DrainConcurrency bounds the users processed in parallel by a drain.
	DrainConcurrency int
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Periods:          append([]int(nil), DefaultPeriods...),
		Limit:            DefaultLimit,
		Location:         time.UTC,
		DrainConcurrency: DefaultDrainConcurrency,
		Now:              time.Now,
	}
}

// withDefaults fills zero values. Periods are only defaulted when nil so an
// explicit empty list still fails validation.
func (o Options) withDefaults() Options {
	if o.Periods == nil {
		o.Periods = append([]int(nil), DefaultPeriods...)
	}
	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.DrainConcurrency <= 0 {
		o.DrainConcurrency = DefaultDrainConcurrency
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) Validate() error {
	if len(o.Periods) == 0 {
		return errs.ErrValidation.WrapMsg("notify periods must not be empty")
	}
	for i, p := range o.Periods {
		if p <= 0 {
			return errs.ErrValidation.WrapMsg("notify period must be positive", "index", i, "period", p)
		}
		if i > 0 && p <= o.Periods[i-1] {
			return errs.ErrValidation.WrapMsg("notify periods must be strictly increasing", "index", i, "period", p)
		}
	}
	if o.Limit < 1 {
		return errs.ErrValidation.WrapMsg("notify limit must be at least 1", "limit", o.Limit)
	}
	return nil
}

// validateID rejects ids that would break the key layout.
func validateID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return errs.ErrValidation.WrapMsg(kind + " id is required")
	}
	if strings.Contains(id, ":") {
		return errs.ErrValidation.WrapMsg(kind+" id must not contain ':'", kind, id)
	}
	return nil
}
