package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tareqmamari/elastic-otel-mcp/internal/esql"
	"github.com/tareqmamari/elastic-otel-mcp/internal/metrics"
)

type probeRunner struct {
	result *esql.Result
	seen   []esql.Spec
}

func (p *probeRunner) Execute(_ context.Context, spec esql.Spec) *esql.Result {
	p.seen = append(p.seen, spec)
	return p.result
}

type validatorFunc func() error

func (f validatorFunc) Validate() error { return f() }

func okValidator() validatorFunc { return func() error { return nil } }

func TestCheckAll(t *testing.T) {
	tests := []struct {
		name      string
		result    *esql.Result
		validator validatorFunc
		want      Status
	}{
		{
			name:      "healthy",
			result:    &esql.Result{Rows: [][]any{}},
			validator: okValidator(),
			want:      StatusHealthy,
		},
		{
			name:      "backend failure",
			result:    &esql.Result{Error: "HTTP 401: authentication required"},
			validator: okValidator(),
			want:      StatusUnhealthy,
		},
		{
			name:      "bad credentials",
			result:    &esql.Result{Rows: [][]any{}},
			validator: func() error { return errors.New("api key is empty") },
			want:      StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &probeRunner{result: tt.result}
			checker := New(runner, tt.validator, zap.NewNop())

			status, checks := checker.CheckAll(context.Background())

			assert.Equal(t, tt.want, status)
			require.Len(t, checks, 2)
			assert.Equal(t, "credentials", checks[0].Name)
			assert.Equal(t, "esql_backend", checks[1].Name)
			require.Len(t, runner.seen, 1)
			assert.Equal(t, esql.KindProbe, runner.seen[0].Kind)
		})
	}
}

func newTestServer(result *esql.Result) *Server {
	checker := New(&probeRunner{result: result}, okValidator(), zap.NewNop())
	return NewServer(checker, zap.NewNop(), 0, "", nil)
}

func serve(s *Server, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&esql.Result{Rows: [][]any{}})
	rec := serve(s, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.WithinDuration(t, time.Now(), resp.Timestamp, time.Minute)

	s = newTestServer(&esql.Result{Error: "connection refused"})
	rec = serve(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(s, http.MethodPost, "/health")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReadyAndLive(t *testing.T) {
	s := newTestServer(&esql.Result{Rows: [][]any{}})

	rec := serve(s, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"not_ready"}`, rec.Body.String())

	s.SetReady(true)
	rec = serve(s, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, http.MethodGet, "/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(StatusHealthy))
	assert.Equal(t, http.StatusOK, HTTPStatus(StatusDegraded))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(StatusUnhealthy))
}

func TestShutdownClearsReady(t *testing.T) {
	s := newTestServer(&esql.Result{Rows: [][]any{}})
	s.SetReady(true)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, http.StatusServiceUnavailable, serve(s, http.MethodGet, "/ready").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	checker := New(&probeRunner{result: &esql.Result{}}, okValidator(), zap.NewNop())

	disabled := NewServer(checker, zap.NewNop(), 0, "", nil)
	assert.Equal(t, http.StatusNotFound, serve(disabled, http.MethodGet, "/metrics").Code)

	m := metrics.New(zap.NewNop())
	m.RecordToolExecution("get_application_health", true, 20*time.Millisecond)
	enabled := NewServer(checker, zap.NewNop(), 0, "", m.Registry())

	rec := serve(enabled, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `elastic_otel_mcp_tool_calls_total{tool="get_application_health"} 1`)
}
