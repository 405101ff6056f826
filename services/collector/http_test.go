package collectorsvc

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
	"github.com/trezcool/masomo-tracking/tests"
)

type received struct {
	method, path, auth, contentType string
	body                            map[string]interface{}
}

func newCollector(t *testing.T, status int) (*httptest.Server, func() []received) {
	var mu sync.Mutex
	var reqs []received
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := ioutil.ReadAll(r.Body)
		require.NoError(t, err)
		body := make(map[string]interface{})
		require.NoError(t, json.Unmarshal(data, &body))

		mu.Lock()
		reqs = append(reqs, received{
			method:      r.Method,
			path:        r.URL.Path,
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		mu.Unlock()

		w.WriteHeader(status)
		if status >= 400 {
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []received {
		mu.Lock()
		defer mu.Unlock()
		return append([]received(nil), reqs...)
	}
}

func newConf(url string) *core.Config {
	conf := new(core.Config)
	conf.Tracking.CollectorURL = url + "/v1/tracking/"
	conf.Tracking.CollectorToken = "s3cr3t"
	conf.Tracking.ReportTimeout = time.Second
	return conf
}

func Test_httpReporter(t *testing.T) {
	srv, requests := newCollector(t, http.StatusNoContent)
	reporter := NewHTTPReporter(newConf(srv.URL))
	ctx := context.Background()
	ts := time.Date(2021, 1, 11, 8, 1, 5, 0, time.UTC)

	require.NoError(t, reporter.ReportPageView(ctx, tracking.PageView{UserID: "u1", Path: "/courses", Timestamp: ts, Source: tracking.SourcePageLoad}))
	require.NoError(t, reporter.ReportHeartbeat(ctx, tracking.Heartbeat{UserID: "u1", Timestamp: ts}))
	require.NoError(t, reporter.ReportSession(ctx, tracking.SessionSummary{UserID: "u1", Duration: 65, EndTime: ts}))

	reqs := requests()
	require.Len(t, reqs, 3)
	for _, r := range reqs {
		assert.Equal(t, http.MethodPost, r.method)
		assert.Equal(t, "Bearer s3cr3t", r.auth)
		assert.Equal(t, "application/json", r.contentType)
	}

	assert.Equal(t, "/v1/tracking/page-views", reqs[0].path)
	assert.Equal(t, map[string]interface{}{
		"userId": "u1", "path": "/courses", "timestamp": "2021-01-11T08:01:05Z", "source": "pageload",
	}, reqs[0].body)

	assert.Equal(t, "/v1/tracking/heartbeats", reqs[1].path)
	assert.Equal(t, map[string]interface{}{"userId": "u1", "timestamp": "2021-01-11T08:01:05Z"}, reqs[1].body)

	assert.Equal(t, "/v1/tracking/sessions", reqs[2].path)
	assert.Equal(t, map[string]interface{}{"userId": "u1", "duration": float64(65), "endTime": "2021-01-11T08:01:05Z"}, reqs[2].body)
}

func Test_httpReporter_errors(t *testing.T) {
	srv, _ := newCollector(t, http.StatusForbidden)
	reporter := NewHTTPReporter(newConf(srv.URL))

	err := reporter.ReportHeartbeat(context.Background(), tracking.Heartbeat{UserID: "u1", Timestamp: time.Now()})
	var sErr *StatusError
	require.True(t, errors.As(err, &sErr), "want *StatusError, got %v", err)
	assert.Equal(t, http.StatusForbidden, sErr.StatusCode)
	assert.Equal(t, heartbeatsEndpoint, sErr.Endpoint)

	// collector down
	down := NewHTTPReporter(newConf("http://127.0.0.1:1"))
	assert.Error(t, down.ReportHeartbeat(context.Background(), tracking.Heartbeat{UserID: "u1", Timestamp: time.Now()}))
}

func Test_httpReporter_contextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	defer close(release)

	reporter := NewHTTPReporter(newConf(srv.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := reporter.ReportSession(ctx, tracking.SessionSummary{UserID: "u1", Duration: 5, EndTime: time.Now()})
	require.Error(t, err)
	assert.Less(t, int64(time.Since(start)), int64(time.Second))
}

func Test_consoleReporter(t *testing.T) {
	logger := new(testutil.Logger)
	reporter := NewConsoleReporter(logger)

	require.NoError(t, reporter.ReportSession(context.Background(), tracking.SessionSummary{UserID: "u1", Duration: 5, EndTime: time.Date(2021, 1, 11, 8, 1, 15, 0, time.UTC)}))

	entries := logger.Entries("debug")
	require.Len(t, entries, 1)
	assert.Equal(t, `POST /sessions {"userId":"u1","duration":5,"endTime":"2021-01-11T08:01:15Z"}`, entries[0].Msg)
}
