// Package mcperrors defines the coded errors surfaced by tool dispatch and
// the query backend.
package mcperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory says whose fault an error is.
type ErrorCategory string

const (
	ClientError   ErrorCategory = "CLIENT_ERROR"
	ServerError   ErrorCategory = "SERVER_ERROR"
	ExternalError ErrorCategory = "EXTERNAL_ERROR"
)

// ErrorCode identifies an error kind in metrics labels and audit entries.
type ErrorCode string

const (
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeMissingParameter  ErrorCode = "MISSING_PARAMETER"
	CodeUnknownTool       ErrorCode = "UNKNOWN_TOOL"
	CodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	CodeForbidden         ErrorCode = "FORBIDDEN"
	CodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeInternalError     ErrorCode = "INTERNAL_ERROR"
	CodeQueryFailed       ErrorCode = "QUERY_FAILED"
	CodeNetworkError      ErrorCode = "NETWORK_ERROR"
)

var categories = map[ErrorCode]ErrorCategory{
	CodeInvalidInput:      ClientError,
	CodeMissingParameter:  ClientError,
	CodeUnknownTool:       ClientError,
	CodeUnauthorized:      ClientError,
	CodeForbidden:         ClientError,
	CodeRateLimitExceeded: ClientError,
	CodeInternalError:     ServerError,
	CodeQueryFailed:       ExternalError,
	CodeNetworkError:      ExternalError,
}

// CategoryOf returns the category a code belongs to. Unknown codes count
// as server errors.
func CategoryOf(code ErrorCode) ErrorCategory {
	if cat, ok := categories[code]; ok {
		return cat
	}
	return ServerError
}

// StructuredError is an error with a code and an optional hint for the
// caller. Error() is the bare message, shown to callers as is.
type StructuredError struct {
	Code       ErrorCode     `json:"code"`
	Category   ErrorCategory `json:"category"`
	Message    string        `json:"message"`
	Details    interface{}   `json:"details,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
}

func (e *StructuredError) Error() string {
	return e.Message
}

// ToJSON renders the error for logs. Unencodable details are dropped.
func (e *StructuredError) ToJSON() string {
	if b, err := json.Marshal(e); err == nil {
		return string(b)
	}
	plain := *e
	plain.Details = nil
	b, _ := json.Marshal(&plain)
	return string(b)
}

// New creates an error whose category follows from code.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{Code: code, Category: CategoryOf(code), Message: message}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...interface{}) *StructuredError {
	return New(code, fmt.Sprintf(format, args...))
}

func (e *StructuredError) WithDetails(details interface{}) *StructuredError {
	e.Details = details
	return e
}

func (e *StructuredError) WithSuggestion(suggestion string) *StructuredError {
	e.Suggestion = suggestion
	return e
}

func NewInvalidInput(message string) *StructuredError {
	return New(CodeInvalidInput, message).WithSuggestion("Check the input parameters and try again")
}

func NewMissingParameter(param string) *StructuredError {
	return Newf(CodeMissingParameter, "missing required argument: %s", param).
		WithSuggestion(fmt.Sprintf("Provide the '%s' parameter", param))
}

// NewUnknownTool is returned for a tool name nothing is registered under.
func NewUnknownTool(name string) *StructuredError {
	return Newf(CodeUnknownTool, "Unknown tool: %s", name)
}

func NewInternalError(message string) *StructuredError {
	return New(CodeInternalError, message)
}

func NewNetworkError(message string) *StructuredError {
	return New(CodeNetworkError, message).
		WithSuggestion("Check the Elastic endpoint and your network connection")
}

// HTTPDetails is attached to errors built from a backend response.
type HTTPDetails struct {
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
	BodySize   int    `json:"body_size"`
}

// FromHTTPStatus maps a non-2xx _query response to an error carrying
// HTTPDetails. The body enters the message only where Elasticsearch explains
// the failure in it.
func FromHTTPStatus(statusCode int, responseBody string) *StructuredError {
	return fromHTTPStatus(statusCode, responseBody).WithDetails(HTTPDetails{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		BodySize:   len(responseBody),
	})
}

func fromHTTPStatus(statusCode int, responseBody string) *StructuredError {
	switch statusCode {
	case http.StatusBadRequest:
		return Newf(CodeQueryFailed, "query rejected (HTTP 400): %s", responseBody).
			WithSuggestion("Check the time range and field names used by the query")
	case http.StatusUnauthorized:
		return New(CodeUnauthorized, "authentication required or credentials invalid (HTTP 401)").
			WithSuggestion("Check ELASTIC_API_KEY")
	case http.StatusForbidden:
		return New(CodeForbidden, "access forbidden (HTTP 403)").
			WithSuggestion("Check the API key privileges for the metrics-*, logs-* and traces-* indices")
	case http.StatusTooManyRequests:
		return New(CodeRateLimitExceeded, "rate limit exceeded (HTTP 429)").
			WithSuggestion("Wait a moment and try again")
	}
	return Newf(CodeQueryFailed, "HTTP %d: %s", statusCode, responseBody)
}

// CodeOf finds the StructuredError in err's chain. Plain errors are
// internal errors.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternalError
}
