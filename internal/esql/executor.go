package esql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tareqmamari/elastic-otel-mcp/internal/client"
	mcperrors "github.com/tareqmamari/elastic-otel-mcp/internal/errors"
	"github.com/tareqmamari/elastic-otel-mcp/internal/security"
	"github.com/tareqmamari/elastic-otel-mcp/internal/tracing"
)

// QueryPath is the ES|QL endpoint relative to the configured base URL.
const QueryPath = "/_query"

// ResponseFormat is sent as the format parameter on every _query call.
const ResponseFormat = "json"

// maxErrorBody bounds how much of a failed response is echoed into a result.
const maxErrorBody = 512

// Doer sends a request to the backend.
type Doer interface {
	Do(ctx context.Context, req *client.Request) (*client.Response, error)
}

// Recorder receives one observation per executed query.
type Recorder interface {
	RecordQuery(kind, dataset string, success bool, latency time.Duration, rows, statusCode int)
}

// Runner executes a query spec. Reports depend on this rather than on
// Executor so they can be tested without a backend.
type Runner interface {
	Execute(ctx context.Context, spec Spec) *Result
}

// Column is one column header of a tabular result.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Result is a tabular query result. Either Error is set or Rows holds the
// (possibly empty) data; never both.
type Result struct {
	Columns []Column
	Rows    [][]any
	Error   string
}

// Failed reports whether the query produced an error instead of rows.
func (r *Result) Failed() bool {
	return r.Error != ""
}

// Empty reports whether there is nothing to map into a report. Failed
// results count as empty.
func (r *Result) Empty() bool {
	return r.Failed() || len(r.Rows) == 0
}

type queryRequest struct {
	Query string `json:"query"`
	Index string `json:"index"`
}

type queryResponse struct {
	Columns []Column        `json:"columns"`
	Rows    [][]any         `json:"rows"`
	Error   json.RawMessage `json:"error"`
}

// Executor runs ES|QL queries. It holds no per-call state and is safe for
// concurrent use.
type Executor struct {
	doer     Doer
	recorder Recorder
	logger   *zap.Logger
}

// NewExecutor creates an executor. recorder may be nil.
func NewExecutor(doer Doer, recorder Recorder, logger *zap.Logger) *Executor {
	return &Executor{doer: doer, recorder: recorder, logger: logger}
}

// Execute sends spec to the backend. Failures of any kind are returned as a
// Result with Error set; Execute never returns a nil Result.
func (e *Executor) Execute(ctx context.Context, spec Spec) *Result {
	ctx, span := tracing.QuerySpan(ctx, string(spec.Kind), string(spec.Dataset))
	defer span.End()

	start := time.Now()
	result, status := e.execute(ctx, spec)
	latency := time.Since(start)

	if result.Failed() {
		tracing.RecordErrorMessage(span, result.Error)
		e.logger.Error("ES|QL query failed",
			zap.String("kind", string(spec.Kind)),
			zap.String("dataset", string(spec.Dataset)),
			zap.Int("status", status),
			zap.String("error", result.Error),
			zap.Duration("duration", latency),
		)
	} else {
		tracing.SetResultRows(span, len(result.Rows))
		e.logger.Debug("ES|QL query completed",
			zap.String("kind", string(spec.Kind)),
			zap.Int("rows", len(result.Rows)),
			zap.Duration("duration", latency),
		)
	}

	if e.recorder != nil {
		e.recorder.RecordQuery(string(spec.Kind), string(spec.Dataset), !result.Failed(), latency, len(result.Rows), status)
	}

	return result
}

func (e *Executor) execute(ctx context.Context, spec Spec) (*Result, int) {
	resp, err := e.doer.Do(ctx, &client.Request{
		Method: http.MethodPost,
		Path:   QueryPath,
		Query:  map[string]string{"format": ResponseFormat},
		Body:   queryRequest{Query: spec.Query, Index: string(spec.Dataset)},
	})
	if err != nil {
		return &Result{Error: mcperrors.NewNetworkError(security.SanitizeError(err)).Error()}, 0
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := mcperrors.FromHTTPStatus(resp.StatusCode, truncate(string(resp.Body), maxErrorBody))
		e.logger.Debug("ES|QL error response",
			zap.String("query_kind", string(spec.Kind)),
			zap.String("error", security.MaskSensitiveData(se.ToJSON())),
		)
		return &Result{Error: security.MaskSensitiveData(se.Error())}, resp.StatusCode
	}

	var parsed queryResponse
	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return &Result{Error: fmt.Sprintf("failed to decode query response: %v", err)}, resp.StatusCode
	}

	if len(parsed.Error) > 0 && string(parsed.Error) != "null" {
		return &Result{Error: describeBackendError(parsed.Error)}, resp.StatusCode
	}

	rows := parsed.Rows
	if rows == nil {
		rows = [][]any{}
	}
	return &Result{Columns: parsed.Columns, Rows: rows}, resp.StatusCode
}

// describeBackendError extracts the reason from an Elasticsearch error
// object, falling back to the raw JSON.
func describeBackendError(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var obj struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Reason != "" {
		if obj.Type != "" {
			return obj.Type + ": " + obj.Reason
		}
		return obj.Reason
	}

	return truncate(string(raw), maxErrorBody)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
