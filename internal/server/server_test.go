package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tareqmamari/elastic-otel-mcp/internal/config"
)

type capturedQuery struct {
	Auth  string
	XSRF  string
	Query string `json:"query"`
	Index string `json:"index"`
}

// fakeElastic answers every ES|QL query with the same body.
func fakeElastic(t *testing.T, body string) (*httptest.Server, func() []capturedQuery) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []capturedQuery
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/_query", r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var q capturedQuery
		require.NoError(t, json.Unmarshal(raw, &q))
		q.Auth = r.Header.Get("Authorization")
		q.XSRF = r.Header.Get("kbn-xsrf")

		mu.Lock()
		seen = append(seen, q)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedQuery {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedQuery(nil), seen...)
	}
}

func newTestServer(t *testing.T, endpoint string) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Endpoint = endpoint
	cfg.APIKey = "test-api-key-123456"
	cfg.EnableRateLimit = false

	s, err := New(cfg, zap.NewNop(), "test")
	require.NoError(t, err)
	return s
}

func call(t *testing.T, s *Server, name, args string) string {
	t.Helper()
	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Name: name, Arguments: json.RawMessage(args)}}
	result, err := s.toolHandler(name)(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewRegistersEveryTool(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	assert.Len(t, s.Dispatcher().Tools(), 7)
	assert.NotNil(t, s.GetMetrics())
}

func TestNewRejectsBadAuthMode(t *testing.T) {
	cfg := config.Default()
	cfg.Endpoint = "http://127.0.0.1:1"
	cfg.APIKey = "user-without-password"
	cfg.AuthMode = config.AuthModeBasic

	_, err := New(cfg, zap.NewNop(), "test")
	require.Error(t, err)
}

func TestToolCallEndToEnd(t *testing.T) {
	srv, seen := fakeElastic(t, `{
		"columns": [{"name": "service.name", "type": "keyword"}, {"name": "error_rate", "type": "double"}],
		"values": [],
		"rows": [["checkout", 0.5], ["cart", 0.02]]
	}`)
	s := newTestServer(t, srv.URL)

	text := call(t, s, "get_application_health", `{"time_range": "1h"}`)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &report), text)
	assert.Equal(t, "critical", report["overall_status"])
	assert.Equal(t, []interface{}{"High error rate for checkout: 50.00%"}, report["alerts"])

	queries := seen()
	require.Len(t, queries, 2, "error-rate and response-time queries")
	for _, q := range queries {
		assert.Equal(t, "ApiKey test-api-key-123456", q.Auth)
		assert.Equal(t, "true", q.XSRF)
		assert.Equal(t, "traces-*", q.Index)
		assert.Contains(t, q.Query, "NOW() - 1h")
	}

	stats := s.GetMetrics().GetStats()
	assert.Equal(t, uint64(2), stats.TotalQueries)
	assert.Equal(t, uint64(1), stats.ToolUsage["get_application_health"])
}

func TestToolCallBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"type": "boom", "reason": "shard failure"}}`)
	}))
	t.Cleanup(srv.Close)
	s := newTestServer(t, srv.URL)

	text := call(t, s, "get_error_analysis", `{}`)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &report), text)
	assert.Equal(t, "ERROR", report["severity"])
	assert.Equal(t, []interface{}{}, report["errors"])
	assert.Equal(t, uint64(1), s.GetMetrics().GetStats().FailedQueries)
}

func TestToolCallInvalidArguments(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")

	text := call(t, s, "get_application_health", `{"time_range": `)
	assert.True(t, strings.HasPrefix(text, "Error: invalid arguments:"), text)
}

func TestToolCallMissingParameter(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")

	text := call(t, s, "get_service_metrics", ``)
	assert.Equal(t, "Error: missing required argument: service_name", text)
}

// connect serves s over in-memory transports and returns a client session.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func sessionText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestSessionListsTools(t *testing.T) {
	cs := connect(t, newTestServer(t, "http://127.0.0.1:1"))

	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, res.Tools, 7)
	assert.Equal(t, "get_application_health", res.Tools[0].Name)
}

func TestSessionUnknownToolIsResult(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:1")
	cs := connect(t, s)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "no_such_tool"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.JSONEq(t, `{"error": "Unknown tool: no_such_tool"}`, sessionText(t, res))

	entries := s.audit.GetRecentEntries(1)
	require.Len(t, entries, 1)
	assert.Equal(t, "UNKNOWN_TOOL", entries[0].ErrorCode)
}

func TestSessionToolCall(t *testing.T) {
	srv, seen := fakeElastic(t, `{"columns": [], "rows": []}`)
	cs := connect(t, newTestServer(t, srv.URL))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "get_service_metrics"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Error: missing required argument: service_name", sessionText(t, res))
	assert.Empty(t, seen())

	res, err = cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_application_health",
		Arguments: map[string]interface{}{"time_range": "15m"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(sessionText(t, res)), &report))
	assert.Equal(t, "unknown", report["overall_status"], "no rows means no services")
	assert.Len(t, seen(), 2)
}
