package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewToolResultText wraps text as the single content item of a result.
func NewToolResultText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// NewToolResultError creates a failed tool result with the text
// "Error: <message>".
func NewToolResultError(message string) *mcp.CallToolResult {
	if message == "" {
		message = "An unknown error occurred"
	}
	result := NewToolResultText("Error: " + message)
	result.IsError = true
	return result
}

// NewUnknownToolResult renders the unknown tool payload.
func NewUnknownToolResult(name string) *mcp.CallToolResult {
	text, err := FormatJSON(map[string]string{"error": fmt.Sprintf("Unknown tool: %s", name)})
	if err != nil {
		return NewToolResultError(err.Error())
	}
	result := NewToolResultText(text)
	result.IsError = true
	return result
}

// FormatJSON renders v with two-space indentation and without HTML escaping.
func FormatJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to format response: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
