package mcperrors

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestStructuredError(t *testing.T) {
	tests := []struct {
		name     string
		error    *StructuredError
		wantCode ErrorCode
		wantCat  ErrorCategory
	}{
		{
			name:     "invalid input error",
			error:    NewInvalidInput("bad resource_type"),
			wantCode: CodeInvalidInput,
			wantCat:  ClientError,
		},
		{
			name:     "missing parameter error",
			error:    NewMissingParameter("service_name"),
			wantCode: CodeMissingParameter,
			wantCat:  ClientError,
		},
		{
			name:     "unknown tool error",
			error:    NewUnknownTool("get_everything"),
			wantCode: CodeUnknownTool,
			wantCat:  ClientError,
		},
		{
			name:     "internal error",
			error:    NewInternalError("boom"),
			wantCode: CodeInternalError,
			wantCat:  ServerError,
		},
		{
			name:     "network error",
			error:    NewNetworkError("connection refused"),
			wantCode: CodeNetworkError,
			wantCat:  ExternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.error.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.error.Code, tt.wantCode)
			}
			if tt.error.Category != tt.wantCat {
				t.Errorf("Category = %v, want %v", tt.error.Category, tt.wantCat)
			}
			if tt.error.Error() != tt.error.Message {
				t.Errorf("Error() = %q, want message %q", tt.error.Error(), tt.error.Message)
			}
		})
	}
}

func TestMessages(t *testing.T) {
	if got := NewUnknownTool("foo").Error(); got != "Unknown tool: foo" {
		t.Errorf("NewUnknownTool() = %q", got)
	}
	if got := NewMissingParameter("service_name").Error(); got != "missing required argument: service_name" {
		t.Errorf("NewMissingParameter() = %q", got)
	}
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status   int
		wantCode ErrorCode
	}{
		{400, CodeQueryFailed},
		{401, CodeUnauthorized},
		{403, CodeForbidden},
		{429, CodeRateLimitExceeded},
		{500, CodeQueryFailed},
		{503, CodeQueryFailed},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("HTTP %d", tt.status), func(t *testing.T) {
			err := FromHTTPStatus(tt.status, "body")
			if err.Code != tt.wantCode {
				t.Errorf("FromHTTPStatus(%d).Code = %v, want %v", tt.status, err.Code, tt.wantCode)
			}
		})
	}
}

func TestToJSON(t *testing.T) {
	err := NewInvalidInput("bad").WithDetails(map[string]interface{}{"field": "resource_type"})

	var decoded map[string]interface{}
	if jerr := json.Unmarshal([]byte(err.ToJSON()), &decoded); jerr != nil {
		t.Fatalf("ToJSON() produced invalid JSON: %v", jerr)
	}
	if decoded["code"] != string(CodeInvalidInput) {
		t.Errorf("code = %v", decoded["code"])
	}
	if decoded["suggestion"] == "" {
		t.Error("expected suggestion to be set")
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("tool failed: %w", NewMissingParameter("analysis_type"))
	if got := CodeOf(wrapped); got != CodeMissingParameter {
		t.Errorf("CodeOf(wrapped) = %v", got)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != CodeInternalError {
		t.Errorf("CodeOf(plain) = %v", got)
	}
}

func TestCategoryOf(t *testing.T) {
	if got := CategoryOf(CodeQueryFailed); got != ExternalError {
		t.Errorf("CategoryOf(QUERY_FAILED) = %v", got)
	}
	if got := CategoryOf(ErrorCode("SOMETHING_NEW")); got != ServerError {
		t.Errorf("CategoryOf(unknown) = %v", got)
	}
	if got := Newf(CodeForbidden, "no access to %s", "logs-*"); got.Category != ClientError || got.Message != "no access to logs-*" {
		t.Errorf("Newf() = %+v", got)
	}
}

func TestToJSONDropsUnencodableDetails(t *testing.T) {
	err := NewInternalError("boom").WithDetails(func() {})

	var decoded map[string]interface{}
	if jerr := json.Unmarshal([]byte(err.ToJSON()), &decoded); jerr != nil {
		t.Fatalf("ToJSON() produced invalid JSON: %v", jerr)
	}
	if _, ok := decoded["details"]; ok {
		t.Error("expected details to be dropped")
	}
	if decoded["message"] != "boom" {
		t.Errorf("message = %v", decoded["message"])
	}
}

func TestFromHTTPStatusDetails(t *testing.T) {
	err := FromHTTPStatus(403, `{"error":"no privileges"}`)

	details, ok := err.Details.(HTTPDetails)
	if !ok {
		t.Fatalf("Details = %T, want HTTPDetails", err.Details)
	}
	if details.StatusCode != 403 || details.Status != "Forbidden" || details.BodySize != 25 {
		t.Errorf("Details = %+v", details)
	}

	var decoded map[string]interface{}
	if jerr := json.Unmarshal([]byte(err.ToJSON()), &decoded); jerr != nil {
		t.Fatalf("ToJSON() produced invalid JSON: %v", jerr)
	}
	got, _ := decoded["details"].(map[string]interface{})
	if got["status_code"] != float64(403) {
		t.Errorf("details = %v", decoded["details"])
	}
}
