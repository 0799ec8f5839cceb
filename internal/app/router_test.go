package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/permission"
	"github.com/gatehouse/gatehouse/internal/rbac"
	"github.com/gatehouse/gatehouse/internal/session"
)

type noSessions struct{}

func (noSessions) Validate(context.Context, string) (session.Session, error) {
	return session.Session{}, session.ErrNotFoundOrExpired
}

type acceptAll struct{}

func (acceptAll) Authorize(context.Context, string, string, string) (permission.Decision, error) {
	return permission.Accept, nil
}

func testRouter(ready func(context.Context) error) http.Handler {
	return NewRouter(RouterParams{
		Config:             &Config{AppEnv: "test", AppRateLimit: 0},
		Gate:               rbac.NewGate(nil, noSessions{}, acceptAll{}, rbac.GateConfig{}),
		PermissionsHandler: rbac.NewPermissionsHandler(nil, nil),
		Metrics:            observability.NewMetrics(),
		Ready:              ready,
	})
}

func TestHealthzAndSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestReadyzReportsBackendFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(func(context.Context) error { return errors.New("pg down") }).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	testRouter(func(context.Context) error { return nil }).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestGateRoutesRequireSession(t *testing.T) {
	router := testRouter(nil)
	for _, target := range []string{
		"/api/v2/auth/api/v2/tasty_endpoint",
		"/api/v2/auth",
		"/api/v2/admin/permissions",
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusUnauthorized, rr.Code, target)
		assert.JSONEq(t, `{"errors":["authz.invalid_session"]}`, rr.Body.String(), target)
	}
}

func TestMetricsEndpointMounted(t *testing.T) {
	router := testRouter(nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `gatehouse_http_requests_total{code="200",route="/healthz"} 1`)
}
