package collectorsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

var (
	pageViewsEndpoint  = "/page-views"
	heartbeatsEndpoint = "/heartbeats"
	sessionsEndpoint   = "/sessions"
)

// StatusError is returned when the collector answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collector %s: %d %s", e.Endpoint, e.StatusCode, strings.TrimSpace(e.Body))
}

type httpReporter struct {
	client  *rest.Client
	baseURL string
	token   string
}

var _ tracking.Reporter = (*httpReporter)(nil)

// NewHTTPReporter returns a tracking.Reporter posting JSON events to the collector API.
func NewHTTPReporter(conf *core.Config, client ...*http.Client) tracking.Reporter {
	hc := &http.Client{Timeout: conf.Tracking.ReportTimeout}
	if len(client) > 0 && client[0] != nil {
		hc = client[0]
	}
	return &httpReporter{
		client:  &rest.Client{HTTPClient: hc},
		baseURL: strings.TrimRight(conf.Tracking.CollectorURL, "/"),
		token:   conf.Tracking.CollectorToken,
	}
}

func (r *httpReporter) ReportPageView(ctx context.Context, pv tracking.PageView) error {
	return r.post(ctx, pageViewsEndpoint, pv)
}

func (r *httpReporter) ReportHeartbeat(ctx context.Context, hb tracking.Heartbeat) error {
	return r.post(ctx, heartbeatsEndpoint, hb)
}

func (r *httpReporter) ReportSession(ctx context.Context, ss tracking.SessionSummary) error {
	return r.post(ctx, sessionsEndpoint, ss)
}

func (r *httpReporter) post(ctx context.Context, endpoint string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding payload")
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
	if r.token != "" {
		headers["Authorization"] = "Bearer " + r.token
	}

	req, err := rest.BuildRequestObject(rest.Request{
		Method:  rest.Post,
		BaseURL: r.baseURL + endpoint,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	res, err := r.client.MakeRequest(req.WithContext(ctx))
	if err != nil {
		return errors.Wrap(err, "posting to "+endpoint)
	}
	resp, err := rest.BuildResponse(res)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return nil
}
