package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/masomo-tracking/apps/api/echo"
	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
	"github.com/trezcool/masomo-tracking/storage/database/inmem"
	"github.com/trezcool/masomo-tracking/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type testApp struct {
	*Server
	conf   *core.Config
	repo   tracking.Repository
	logger *testutil.Logger
}

func newTestConfig() *core.Config {
	conf := &core.Config{AppName: "Masomo", Env: "TEST", TestMode: true}
	conf.Server.DisableReqLogs = true
	conf.Auth.SecretKey = "test-secret"
	conf.Auth.JWTExpirationDelta = time.Hour
	return conf
}

func setup(t *testing.T) *testApp {
	conf := newTestConfig()
	repo := inmemdb.NewTrackingRepository(inmemdb.Open())
	logger := new(testutil.Logger)

	validate, translator := testutil.NewValidatorAndTranslator()
	server := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		TrackingSvc: tracking.NewService(repo, validate),
		Validate:    validate,
		Translator:  translator,
	})
	return &testApp{Server: server, conf: conf, repo: repo, logger: logger}
}

func (app *testApp) token(t *testing.T, userID string, roles ...string) string {
	token, err := GenerateToken(NewClaims(app.conf, userID, userID, userID+"@masomo.cd", roles...), app.conf.Auth.SecretKey)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		assert.Empty(t, rec.Body.String())
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
