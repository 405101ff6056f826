package collectorsvc

import (
	"context"
	"encoding/json"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

// consoleReporter logs the events instead of sending them; used in DEV.
type consoleReporter struct {
	logger core.Logger
}

var _ tracking.Reporter = (*consoleReporter)(nil)

func NewConsoleReporter(logger core.Logger) tracking.Reporter {
	return &consoleReporter{logger: logger}
}

func (r *consoleReporter) print(endpoint string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.logger.Debug("POST " + endpoint + " " + string(body))
	return nil
}

func (r *consoleReporter) ReportPageView(_ context.Context, pv tracking.PageView) error {
	return r.print(pageViewsEndpoint, pv)
}

func (r *consoleReporter) ReportHeartbeat(_ context.Context, hb tracking.Heartbeat) error {
	return r.print(heartbeatsEndpoint, hb)
}

func (r *consoleReporter) ReportSession(_ context.Context, ss tracking.SessionSummary) error {
	return r.print(sessionsEndpoint, ss)
}
