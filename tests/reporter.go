package testutil

import (
	"context"
	"sync"

	"github.com/trezcool/masomo-tracking/core/tracking"
)

// Recorder is a tracking.Reporter recording every event it is given.
// Events are recorded even when Err is set, to assert on attempted deliveries.
type Recorder struct {
	mu         sync.Mutex
	pageViews  []tracking.PageView
	heartbeats []tracking.Heartbeat
	sessions   []tracking.SessionSummary

	Err   error // returned by every Report call when set
	Panic bool  // panic in every Report call
}

var _ tracking.Reporter = (*Recorder)(nil)

func (r *Recorder) result() error {
	if r.Panic {
		panic("collector exploded")
	}
	return r.Err
}

func (r *Recorder) ReportPageView(_ context.Context, pv tracking.PageView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pageViews = append(r.pageViews, pv)
	return r.result()
}

func (r *Recorder) ReportHeartbeat(_ context.Context, hb tracking.Heartbeat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heartbeats = append(r.heartbeats, hb)
	return r.result()
}

func (r *Recorder) ReportSession(_ context.Context, ss tracking.SessionSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, ss)
	return r.result()
}

func (r *Recorder) PageViews() []tracking.PageView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tracking.PageView(nil), r.pageViews...)
}

func (r *Recorder) Heartbeats() []tracking.Heartbeat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tracking.Heartbeat(nil), r.heartbeats...)
}

func (r *Recorder) Sessions() []tracking.SessionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tracking.SessionSummary(nil), r.sessions...)
}
