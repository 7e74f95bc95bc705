package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoatman/electron-ng2seed/internal/config"
	"github.com/shoatman/electron-ng2seed/internal/handler"
	"github.com/shoatman/electron-ng2seed/internal/service/metrics"
)

const testConfig = `
server:
  open_browser: false
auth:
  client_id: 11111111-2222-3333-4444-555555555555
  tenant: contoso.onmicrosoft.com
resilience:
  rate_limit:
    enabled: false
`

func newTestDeps(t *testing.T, yaml string) *RouterDeps {
	t.Helper()

	cfg, err := config.LoadFromString(yaml)
	require.NoError(t, err)
	require.NoError(t, config.Validate(cfg))

	deps, err := createDependencies(cfg, metrics.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Store.Close() })
	return deps
}

func doRequest(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func TestSetupRouter_Health(t *testing.T) {
	deps := newTestDeps(t, testConfig)
	r := SetupRouter(deps)

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/health").Code)

	rr := doRequest(r, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code, "not ready before startup completes")

	deps.HealthHandler.SetReady(true)
	rr = doRequest(r, http.MethodGet, "/ready")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp handler.HealthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Checks["store"])
}

func TestSetupRouter_TokenRequiresLogin(t *testing.T) {
	r := SetupRouter(newTestDeps(t, testConfig))

	rr := doRequest(r, http.MethodGet, "/api/token?resource=https%3A%2F%2Fgraph.microsoft.com")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "LOGIN_REQUIRED", resp.Error)
}

func TestSetupRouter_Login(t *testing.T) {
	r := SetupRouter(newTestDeps(t, testConfig))

	rr := doRequest(r, http.MethodPost, "/login")
	require.Equal(t, http.StatusAccepted, rr.Code)

	rr = doRequest(r, http.MethodGet, "/api/login-error")
	require.Equal(t, http.StatusOK, rr.Code)

	var status handler.LoginStatusResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&status))
	assert.True(t, status.LoginInProgress)
}

func TestSetupRouter_CallbackWithUnknownState(t *testing.T) {
	r := SetupRouter(newTestDeps(t, testConfig))

	req := httptest.NewRequest(http.MethodPost, "/callback",
		strings.NewReader("response="+"%23access_token%3Dabc%26state%3Dforeign"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/callback").Code)
}

func TestSetupRouter_MetricsAndSchema(t *testing.T) {
	r := SetupRouter(newTestDeps(t, testConfig))

	_ = doRequest(r, http.MethodGet, "/api/user")

	rr := doRequest(r, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "token_broker_http_requests_total")

	rr = doRequest(r, http.MethodGet, "/admin/schema")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Token Broker Configuration")
}

func TestSetupRouter_DevOnlyRoutes(t *testing.T) {
	r := SetupRouter(newTestDeps(t, testConfig))
	assert.Equal(t, http.StatusNotFound, doRequest(r, http.MethodGet, "/admin/info").Code)

	r = SetupRouter(newTestDeps(t, testConfig+"log:\n  development: true\n"))
	rr := doRequest(r, http.MethodGet, "/admin/info")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"environment":"development"`)
}

func TestSetupRouter_RateLimit(t *testing.T) {
	yaml := strings.Replace(testConfig, "enabled: false", "enabled: true\n    rate: 2-M", 1)
	r := SetupRouter(newTestDeps(t, yaml))

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/api/login-error").Code)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/api/login-error").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(r, http.MethodGet, "/api/login-error").Code)

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/health").Code, "probes are not limited")
}

func TestSetupRouter_CORS(t *testing.T) {
	yaml := strings.Replace(testConfig, "  open_browser: false\n",
		"  open_browser: false\n  cors:\n    enabled: true\n    allowed_origins: [\"http://localhost:4200\"]\n", 1)
	r := SetupRouter(newTestDeps(t, yaml))

	req := httptest.NewRequest(http.MethodOptions, "/api/token", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:4200", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/login-error", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateStore(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Type = "memory"
	s, err := createStore(cfg)
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())

	cfg.Store.Type = "etcd"
	_, err = createStore(cfg)
	assert.Error(t, err)
}
