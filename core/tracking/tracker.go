package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
)

const (
	DefaultHeartbeatInterval  = 60 * time.Second
	DefaultMinSessionDuration = 5 * time.Second
	DefaultReportTimeout      = 10 * time.Second
)

var (
	// errors
	ErrUserRequired  = errors.New("user ID is required")
	ErrInvalidSource = errors.New("invalid page view source")
)

// State of a Tracker.
type State int

const (
	StateIdle     State = iota // no user bound
	StateTracking              // user bound, heartbeats running
	StatePaused                // user bound, heartbeats stopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTracking:
		return "tracking"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config tunes a Tracker. Zero values fall back to the defaults.
type Config struct {
	HeartbeatInterval  time.Duration
	MinSessionDuration time.Duration
	ReportTimeout      time.Duration
	Clock              Clock
}

// NewConfig reads the tracker settings from the app configuration.
func NewConfig(conf *core.Config) Config {
	return Config{
		HeartbeatInterval:  conf.Tracking.HeartbeatInterval,
		MinSessionDuration: conf.Tracking.MinSessionDuration,
		ReportTimeout:      conf.Tracking.ReportTimeout,
	}
}

func (c *Config) setDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.MinSessionDuration <= 0 {
		c.MinSessionDuration = DefaultMinSessionDuration
	}
	if c.ReportTimeout <= 0 {
		c.ReportTimeout = DefaultReportTimeout
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
}

// Tracker tracks one user's engagement session and reports page views, heartbeats and
// session durations. Reporting is fire-and-forget: failures are logged and dropped.
type Tracker struct {
	reporter Reporter
	env      Environment
	logger   core.Logger
	conf     Config

	mu            sync.Mutex
	state         State
	userID        string
	startedAt     time.Time
	gen           uint64 // bumped whenever the heartbeat loop stops
	stopHeartbeat func()
	removeVisFn   func()
	removeNavFn   func()

	inflight sync.WaitGroup
}

func NewTracker(reporter Reporter, env Environment, logger core.Logger, conf Config) *Tracker {
	conf.setDefaults()
	return &Tracker{
		reporter: reporter,
		env:      env,
		logger:   logger,
		conf:     conf,
	}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) UserID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.userID
}

// Init binds the user and starts tracking. It is a no-op if a user is already bound.
func (t *Tracker) Init(userID string) error {
	userID = core.CleanString(userID)
	if userID == "" {
		return ErrUserRequired
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle {
		return nil
	}
	t.userID = userID
	t.startedAt = t.conf.Clock.Now()
	t.state = StateTracking

	t.removeVisFn = t.env.OnVisibilityChange(t.handleVisibility)
	t.removeNavFn = t.env.OnNavigation(t.handleNavigation)

	t.emitPageView(SourcePageLoad)
	t.startHeartbeat()
	return nil
}

// TrackPageView reports a page view for the current path. It is a no-op if no user is bound.
func (t *Tracker) TrackPageView(source Source) error {
	if !source.IsValid() {
		return ErrInvalidSource
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == StateIdle {
		return nil
	}
	t.emitPageView(source)
	return nil
}

// Cleanup flushes the current session, stops tracking and unbinds the user.
// It is safe to call at any time, any number of times.
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateIdle:
		return
	case StateTracking:
		t.stopLoop()
		t.flushSession()
	case StatePaused:
		// flushed on pause
	}

	if t.removeVisFn != nil {
		t.removeVisFn()
		t.removeVisFn = nil
	}
	if t.removeNavFn != nil {
		t.removeNavFn()
		t.removeNavFn = nil
	}
	t.userID = ""
	t.startedAt = time.Time{}
	t.state = StateIdle
}

// Wait blocks until all in-flight reports are done.
func (t *Tracker) Wait() {
	t.inflight.Wait()
}

func (t *Tracker) handleVisibility(v Visibility) {
	switch v {
	case Hidden:
		t.pause()
	case Visible:
		t.resume()
	}
}

func (t *Tracker) handleNavigation() {
	_ = t.TrackPageView(SourceNavigation)
}

func (t *Tracker) pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateTracking {
		return
	}
	t.stopLoop()
	t.flushSession()
	t.state = StatePaused
}

func (t *Tracker) resume() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePaused {
		return
	}
	t.startedAt = t.conf.Clock.Now()
	t.state = StateTracking
	t.startHeartbeat()
}

// startHeartbeat must be called with t.mu held.
func (t *Tracker) startHeartbeat() {
	gen := t.gen
	t.stopHeartbeat = t.conf.Clock.Every(t.conf.HeartbeatInterval, func() { t.heartbeat(gen) })
}

// stopLoop must be called with t.mu held. Ticks already in flight see a stale generation.
func (t *Tracker) stopLoop() {
	if t.stopHeartbeat != nil {
		t.stopHeartbeat()
		t.stopHeartbeat = nil
	}
	t.gen++
}

func (t *Tracker) heartbeat(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || t.state != StateTracking {
		return
	}
	hb := Heartbeat{UserID: t.userID, Timestamp: t.conf.Clock.Now()}
	t.report("heartbeat", func(ctx context.Context) error {
		return t.reporter.ReportHeartbeat(ctx, hb)
	})
}

// emitPageView must be called with t.mu held.
func (t *Tracker) emitPageView(source Source) {
	pv := PageView{
		UserID:    t.userID,
		Path:      t.env.Path(),
		Timestamp: t.conf.Clock.Now(),
		Source:    source,
	}
	t.report("page view", func(ctx context.Context) error {
		return t.reporter.ReportPageView(ctx, pv)
	})
}

// flushSession must be called with t.mu held. Sessions shorter than MinSessionDuration are dropped.
func (t *Tracker) flushSession() {
	now := t.conf.Clock.Now()
	duration := int64(now.Sub(t.startedAt) / time.Second)
	if time.Duration(duration)*time.Second < t.conf.MinSessionDuration {
		return
	}
	ss := SessionSummary{UserID: t.userID, Duration: duration, EndTime: now}
	t.report("session", func(ctx context.Context) error {
		return t.reporter.ReportSession(ctx, ss)
	})
}

func (t *Tracker) report(event string, send func(ctx context.Context) error) {
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), t.conf.ReportTimeout)
		defer cancel()

		if err := safeSend(ctx, send); err != nil {
			rerr := &ReportingError{Event: event, Err: err}
			t.logger.Warn(rerr.Error(), rerr)
		}
	}()
}

func safeSend(ctx context.Context, send func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return send(ctx)
}
