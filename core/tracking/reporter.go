package tracking

import "context"

// Reporter is any service that can submit tracking events to the collector.
type Reporter interface {
	ReportPageView(ctx context.Context, pv PageView) error
	ReportHeartbeat(ctx context.Context, hb Heartbeat) error
	ReportSession(ctx context.Context, ss SessionSummary) error
}

// ReportingError wraps a failed event submission. It is logged, never returned to callers.
type ReportingError struct {
	Event string
	Err   error
}

func (e *ReportingError) Error() string {
	return "reporting " + e.Event + ": " + e.Err.Error()
}

func (e *ReportingError) Cause() error  { return e.Err } // github.com/pkg/errors
func (e *ReportingError) Unwrap() error { return e.Err }
