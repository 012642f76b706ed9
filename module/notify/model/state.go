package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// PausedPeriod is the stored bucket_period of a paused user.
const PausedPeriod = "_PAUSED_"

// Escalation is either Active or Paused.
type Escalation interface {
	Index() int
	isEscalation()
}

// Active users sit in BucketKey and will be notified when it is drained.
type Active struct {
	PeriodIndex int
	Period      int
	BucketKey   string
}

// Paused users ran off the end of the period sequence; only a view brings
// them back.
type Paused struct {
	PeriodIndex int
}

func (a Active) Index() int  { return a.PeriodIndex }
func (Active) isEscalation() {}
func (p Paused) Index() int  { return p.PeriodIndex }
func (Paused) isEscalation() {}

// ViewState tracks one user's view history and escalation. Escalation is nil
// for a user that has never viewed.
type ViewState struct {
	LastView     time.Time
	PreviousView time.Time
	FirstView    time.Time
	Escalation   Escalation
}

// BucketKey returns the occupied bucket, or "" when paused or unknown.
func (s ViewState) BucketKey() string {
	if a, ok := s.Escalation.(Active); ok {
		return a.BucketKey
	}
	return ""
}

// IsActive is the write gate for new notifications.
func (s ViewState) IsActive() bool {
	return s.BucketKey() != ""
}

// ViewFields are the timestamp fields written on every view.
func (s ViewState) ViewFields() map[string]string {
	out := map[string]string{
		FieldLastView:  formatTime(s.LastView),
		FieldFirstView: formatTime(s.FirstView),
	}
	if !s.PreviousView.IsZero() {
		out[FieldPreviousView] = formatTime(s.PreviousView)
	}
	return out
}

// EscalationFields returns the fields to set and the fields to delete so the
// stored hash matches e. Paused clears bucket_key.
func EscalationFields(e Escalation) (set map[string]string, del []string) {
	switch v := e.(type) {
	case Active:
		return map[string]string{
			FieldBucketPeriodIndex: strconv.Itoa(v.PeriodIndex),
			FieldBucketPeriod:      strconv.Itoa(v.Period),
			FieldBucketKey:         v.BucketKey,
		}, nil
	case Paused:
		return map[string]string{
			FieldBucketPeriodIndex: strconv.Itoa(v.PeriodIndex),
			FieldBucketPeriod:      PausedPeriod,
		}, []string{FieldBucketKey}
	default:
		return nil, nil
	}
}

// ViewStateFromFields parses a stored hash. ok is false for an empty hash.
func ViewStateFromFields(m map[string]string) (s ViewState, ok bool) {
	if len(m) == 0 {
		return ViewState{}, false
	}
	s.LastView = parseTime(m[FieldLastView])
	s.PreviousView = parseTime(m[FieldPreviousView])
	s.FirstView = parseTime(m[FieldFirstView])

	idx, _ := strconv.Atoi(m[FieldBucketPeriodIndex])
	switch period := m[FieldBucketPeriod]; period {
	case "":
	case PausedPeriod:
		s.Escalation = Paused{PeriodIndex: idx}
	default:
		days, err := strconv.Atoi(period)
		if err == nil {
			s.Escalation = Active{PeriodIndex: idx, Period: days, BucketKey: m[FieldBucketKey]}
		}
	}
	return s, true
}

type viewStateJSON struct {
	LastView          string `json:"last_view,omitempty"`
	PreviousView      string `json:"previous_view,omitempty"`
	FirstView         string `json:"first_view,omitempty"`
	BucketPeriodIndex *int   `json:"bucket_period_index,omitempty"`
	BucketPeriod      string `json:"bucket_period,omitempty"`
	BucketKey         string `json:"bucket_key,omitempty"`
}

func (s ViewState) MarshalJSON() ([]byte, error) {
	out := viewStateJSON{
		LastView:     formatTime(s.LastView),
		PreviousView: formatTime(s.PreviousView),
		FirstView:    formatTime(s.FirstView),
	}
	if s.Escalation != nil {
		idx := s.Escalation.Index()
		out.BucketPeriodIndex = &idx
	}
	switch v := s.Escalation.(type) {
	case Active:
		out.BucketPeriod = strconv.Itoa(v.Period)
		out.BucketKey = v.BucketKey
	case Paused:
		out.BucketPeriod = PausedPeriod
	}
	return json.Marshal(out)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
