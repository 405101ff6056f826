package tracking

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-tracking/core"
)

// Source tells how a user landed on a path.
type Source string

const (
	SourcePageLoad   Source = "pageload"
	SourceNavigation Source = "navigation"
)

func (s Source) IsValid() bool {
	return s == SourcePageLoad || s == SourceNavigation
}

// PageView records that a user landed on, or navigated to, a path.
type PageView struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"userId" validate:"required,max=64"`
	Path      string    `json:"path" validate:"required,urlpath"`
	Timestamp time.Time `json:"timestamp" validate:"required"` // UTC
	Source    Source    `json:"source" validate:"required,source"`
}

func (pv *PageView) Validate(validate *validator.Validate) error {
	pv.UserID = core.CleanString(pv.UserID)
	pv.Path = core.CleanString(pv.Path)
	pv.Timestamp = pv.Timestamp.UTC()
	return validate.Struct(pv)
}

// Heartbeat is a liveness signal emitted while a session is active.
type Heartbeat struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"userId" validate:"required,max=64"`
	Timestamp time.Time `json:"timestamp" validate:"required"` // UTC
}

func (hb *Heartbeat) Validate(validate *validator.Validate) error {
	hb.UserID = core.CleanString(hb.UserID)
	hb.Timestamp = hb.Timestamp.UTC()
	return validate.Struct(hb)
}

// SessionSummary closes a period of active engagement.
type SessionSummary struct {
	ID       string    `json:"id,omitempty"`
	UserID   string    `json:"userId" validate:"required,max=64"`
	Duration int64     `json:"duration" validate:"min=0"` // whole seconds
	EndTime  time.Time `json:"endTime" validate:"required"` // UTC
}

func (ss *SessionSummary) Validate(validate *validator.Validate) error {
	ss.UserID = core.CleanString(ss.UserID)
	ss.EndTime = ss.EndTime.UTC()
	return validate.Struct(ss)
}

// StartTime derives when the summarized period began.
func (ss SessionSummary) StartTime() time.Time {
	return ss.EndTime.Add(-time.Duration(ss.Duration) * time.Second)
}

type QueryFilter struct {
	UserID string
	From   time.Time
	To     time.Time
}

func (qf *QueryFilter) Clean() {
	qf.UserID = core.CleanString(qf.UserID)
	if !qf.From.IsZero() {
		qf.From = qf.From.UTC()
	}
	if !qf.To.IsZero() {
		qf.To = qf.To.UTC()
	}
}

// Contains tells whether `t` falls within the filter's time window (bounds included).
func (qf QueryFilter) Contains(t time.Time) bool {
	if !qf.From.IsZero() && t.Before(qf.From) {
		return false
	}
	if !qf.To.IsZero() && t.After(qf.To) {
		return false
	}
	return true
}

// Usage aggregates a user's tracked activity.
type Usage struct {
	UserID       string    `json:"userId"`
	Sessions     int       `json:"sessions"`
	TotalSeconds int64     `json:"totalSeconds"`
	PageViews    int       `json:"pageViews"`
	Heartbeats   int       `json:"heartbeats"`
	LastSeen     time.Time `json:"lastSeen"` // UTC
}
