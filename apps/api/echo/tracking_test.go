package echoapi_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/masomo-tracking/apps/api/echo"
	"github.com/trezcool/masomo-tracking/core/tracking"
	"github.com/trezcool/masomo-tracking/tests"
)

var epoch = time.Date(2021, 1, 11, 8, 0, 0, 0, time.UTC)

func TestHome(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo Tracking API!", rec.Body.String())
}

func TestTrackingAPI_record(t *testing.T) {
	app := setup(t)
	student := app.token(t, "u1", RoleStudent)
	admin := app.token(t, "boss", RoleAdmin)

	tests := []httpTest{
		{
			name:     "page view: no token",
			method:   http.MethodPost,
			path:     "/v1/tracking/page-views",
			body:     []byte(`{"userId":"u1","path":"/courses","timestamp":"2021-01-11T08:00:00Z","source":"pageload"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "page view: bad token",
			method:   http.MethodPost,
			path:     "/v1/tracking/page-views",
			body:     []byte(`{"userId":"u1","path":"/courses","timestamp":"2021-01-11T08:00:00Z","source":"pageload"}`),
			token:    "not-a-jwt",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name:     "page view: invalid payload",
			method:   http.MethodPost,
			path:     "/v1/tracking/page-views",
			body:     []byte(`{"userId":"u1","path":"courses","timestamp":"2021-01-11T08:00:00Z","source":"reload"}`),
			token:    student,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"path":   "path must be an absolute path",
				"source": "source must be one of: pageload, navigation",
			}),
		},
		{
			name:     "page view: someone else's",
			method:   http.MethodPost,
			path:     "/v1/tracking/page-views",
			body:     []byte(`{"userId":"u2","path":"/courses","timestamp":"2021-01-11T08:00:00Z","source":"pageload"}`),
			token:    student,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "page view",
			method:   http.MethodPost,
			path:     "/v1/tracking/page-views",
			body:     []byte(`{"userId":"u1","path":"/courses","timestamp":"2021-01-11T08:00:00Z","source":"pageload"}`),
			token:    student,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "heartbeat: missing user",
			method:   http.MethodPost,
			path:     "/v1/tracking/heartbeats",
			body:     []byte(`{"timestamp":"2021-01-11T08:01:00Z"}`),
			token:    student,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"userId": "this field is required"}),
		},
		{
			name:     "heartbeat: user ID too long",
			method:   http.MethodPost,
			path:     "/v1/tracking/heartbeats",
			body:     []byte(`{"userId":"` + strings.Repeat("u", 65) + `","timestamp":"2021-01-11T08:01:00Z"}`),
			token:    admin,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"userId": "userId must be a maximum of 64 characters in length"}),
		},
		{
			name:     "heartbeat",
			method:   http.MethodPost,
			path:     "/v1/tracking/heartbeats",
			body:     []byte(`{"userId":"u1","timestamp":"2021-01-11T08:01:00Z"}`),
			token:    student,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "session: malformed json",
			method:   http.MethodPost,
			path:     "/v1/tracking/sessions",
			body:     []byte(`{"userId":`),
			token:    student,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "unexpected EOF"}),
		},
		{
			name:     "session: admin on behalf of a user",
			method:   http.MethodPost,
			path:     "/v1/tracking/sessions",
			body:     []byte(`{"userId":"u1","duration":65,"endTime":"2021-01-11T08:01:05Z"}`),
			token:    admin,
			wantCode: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	ctx := context.Background()
	pvs, err := app.repo.QueryPageViews(ctx, tracking.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, pvs, 1)
	assert.NotEmpty(t, pvs[0].ID)
	assert.Equal(t, tracking.SourcePageLoad, pvs[0].Source)

	hbs, err := app.repo.QueryHeartbeats(ctx, tracking.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, hbs, 1)

	sessions, err := app.repo.QuerySessions(ctx, tracking.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(65), sessions[0].Duration)
	assert.Equal(t, epoch, sessions[0].StartTime())
}

func seed(t *testing.T, repo tracking.Repository) []tracking.SessionSummary {
	s1 := testutil.CreateSession(t, repo, "s1", "u1", 65, epoch.Add(65*time.Second))
	s2 := testutil.CreateSession(t, repo, "s2", "u1", 5, epoch.Add(2*time.Hour))
	s3 := testutil.CreateSession(t, repo, "s3", "u2", 120, epoch.Add(time.Hour))
	testutil.CreatePageView(t, repo, "p1", "u1", "/courses", tracking.SourcePageLoad, epoch)
	testutil.CreatePageView(t, repo, "p2", "u2", "/quiz", tracking.SourceNavigation, epoch.Add(58*time.Minute))
	testutil.CreateHeartbeat(t, repo, "h1", "u1", epoch.Add(time.Minute))
	return []tracking.SessionSummary{s1, s2, s3}
}

func TestTrackingAPI_querySessions(t *testing.T) {
	app := setup(t)
	ss := seed(t, app.repo)
	s1, s2, s3 := ss[0], ss[1], ss[2]

	student := app.token(t, "u1", RoleStudent)
	teacher := app.token(t, "t1", RoleTeacher)

	tests := []httpTest{
		{
			name:     "student",
			path:     "/v1/tracking/sessions",
			token:    student,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "default ordering",
			path:     "/v1/tracking/sessions",
			token:    teacher,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []tracking.SessionSummary{s2, s3, s1}),
		},
		{
			name:     "by user, duration desc",
			path:     "/v1/tracking/sessions?user_id=u1&ordering=-duration",
			token:    teacher,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []tracking.SessionSummary{s1, s2}),
		},
		{
			name:     "time window",
			path:     "/v1/tracking/sessions?from=2021-01-11T08:30:00Z&to=2021-01-11T09:30:00Z",
			token:    teacher,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []tracking.SessionSummary{s3}),
		},
		{
			name:     "bad time",
			path:     "/v1/tracking/sessions?from=yesterday",
			token:    teacher,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"from": "must be an RFC3339 date-time"}),
		},
		{
			name:     "unknown ordering",
			path:     "/v1/tracking/sessions?ordering=password",
			token:    teacher,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"ordering": "unknown field: password"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestTrackingAPI_usage(t *testing.T) {
	app := setup(t)
	seed(t, app.repo)

	u1 := tracking.Usage{UserID: "u1", Sessions: 2, TotalSeconds: 70, PageViews: 1, Heartbeats: 1, LastSeen: epoch.Add(2 * time.Hour)}
	u2 := tracking.Usage{UserID: "u2", Sessions: 1, TotalSeconds: 120, PageViews: 1, LastSeen: epoch.Add(time.Hour)}

	tests := []httpTest{
		{
			name:     "student only sees themself",
			path:     "/v1/tracking/usage?user_id=u2",
			token:    app.token(t, "u1", RoleStudent),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []tracking.Usage{u1}),
		},
		{
			name:     "admin sees everyone",
			path:     "/v1/tracking/usage",
			token:    app.token(t, "boss", RoleAdmin),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []tracking.Usage{u1, u2}),
		},
		{
			name:     "teacher filters",
			path:     "/v1/tracking/usage?user_id=u2",
			token:    app.token(t, "t1", RoleTeacher),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []tracking.Usage{u2}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestTrackingAPI_purge(t *testing.T) {
	app := setup(t)
	seed(t, app.repo)

	tests := []httpTest{
		{
			name:     "teacher",
			path:     "/v1/tracking/events?before=2021-01-11T08:30:00Z",
			token:    app.token(t, "t1", RoleTeacher),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "missing before",
			path:     "/v1/tracking/events",
			token:    app.token(t, "boss", RoleAdmin),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"before": "this field is required"}),
		},
		{
			name:     "admin",
			path:     "/v1/tracking/events?before=2021-01-11T08:30:00Z",
			token:    app.token(t, "boss", RoleAdmin),
			wantCode: http.StatusOK,
			wantData: []byte(`{"deleted":3,"before":"2021-01-11T08:30:00Z"}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodDelete, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	sessions, err := app.repo.QuerySessions(context.Background(), tracking.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}
