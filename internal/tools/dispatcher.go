package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tareqmamari/elastic-otel-mcp/internal/audit"
	mcperrors "github.com/tareqmamari/elastic-otel-mcp/internal/errors"
	"github.com/tareqmamari/elastic-otel-mcp/internal/security"
	"github.com/tareqmamari/elastic-otel-mcp/internal/tracing"
)

// ExecutionRecorder receives one observation per tool call.
type ExecutionRecorder interface {
	RecordToolExecution(toolName string, success bool, latency time.Duration)
}

// Dispatcher routes tool calls by name and renders every outcome as a
// single text result. It is the only place tool errors and panics are
// turned into responses.
type Dispatcher struct {
	tools    []Tool
	byName   map[string]Tool
	recorder ExecutionRecorder
	audit    *audit.Logger
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher over ts. recorder and auditLog may be nil.
func NewDispatcher(ts []Tool, recorder ExecutionRecorder, auditLog *audit.Logger, logger *zap.Logger) *Dispatcher {
	byName := make(map[string]Tool, len(ts))
	for _, t := range ts {
		byName[t.Name()] = t
	}
	return &Dispatcher{
		tools:    ts,
		byName:   byName,
		recorder: recorder,
		audit:    auditLog,
		logger:   logger,
	}
}

// Has reports whether a tool is registered under name.
func (d *Dispatcher) Has(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// Tools returns the registered tools in catalog order.
func (d *Dispatcher) Tools() []Tool {
	return d.tools
}

// Call runs the named tool. It never returns nil.
func (d *Dispatcher) Call(ctx context.Context, name string, arguments map[string]interface{}) (result *mcp.CallToolResult) {
	start := time.Now()
	ctx, span := tracing.ToolSpan(ctx, name)
	defer span.End()
	tracing.AddToolAttributes(span, arguments)

	var callErr error
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Tool panicked",
				zap.String("tool", name),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			callErr = mcperrors.NewInternalError(fmt.Sprintf("internal error while running %s: %v", name, r))
			result = NewToolResultError(callErr.Error())
		}
		d.finish(ctx, span, name, arguments, start, callErr)
	}()

	tool, ok := d.byName[name]
	if !ok {
		callErr = mcperrors.NewUnknownTool(name)
		return NewUnknownToolResult(name)
	}

	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	value, err := tool.Run(ctx, arguments)
	if err != nil {
		callErr = err
		return NewToolResultError(security.SanitizeError(err))
	}

	text, err := FormatJSON(value)
	if err != nil {
		callErr = mcperrors.NewInternalError(err.Error())
		return NewToolResultError(callErr.Error())
	}
	return NewToolResultText(text)
}

func (d *Dispatcher) finish(ctx context.Context, span trace.Span, name string, arguments map[string]interface{}, start time.Time, callErr error) {
	duration := time.Since(start)
	success := callErr == nil

	if d.recorder != nil {
		d.recorder.RecordToolExecution(name, success, duration)
	}

	entry := audit.Entry{
		Tool:      name,
		InputHash: hashArguments(arguments),
		Success:   success,
		Duration:  duration,
	}

	if success {
		d.logger.Debug("Tool call completed",
			zap.String("tool", name),
			zap.Duration("duration", duration),
		)
	} else {
		tracing.RecordError(span, callErr)
		entry.ErrorCode = string(mcperrors.CodeOf(callErr))
		entry.ErrorMsg = security.SanitizeError(callErr)
		d.logger.Warn("Tool call failed",
			zap.String("tool", name),
			zap.String("code", entry.ErrorCode),
			zap.String("error", entry.ErrorMsg),
			zap.Duration("duration", duration),
		)
	}

	if d.audit != nil {
		d.audit.Log(ctx, entry)
	}
}

// hashArguments digests the canonical JSON form of the arguments. Map keys
// are marshaled in sorted order, so equal arguments hash equally.
func hashArguments(arguments map[string]interface{}) string {
	if len(arguments) == 0 {
		return ""
	}
	raw, err := json.Marshal(arguments)
	if err != nil {
		return ""
	}
	return audit.HashInput(raw)
}
