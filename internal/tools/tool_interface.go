// Package tools provides the MCP diagnostic tools over Elastic OTEL data.
package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool defines the interface that all MCP tools must implement.
type Tool interface {
	// Name returns the unique identifier for this tool
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// InputSchema returns the JSON Schema for the tool's input parameters
	InputSchema() interface{}

	// Annotations returns hints about tool behavior for LLMs.
	Annotations() *mcp.ToolAnnotations

	// Run executes the tool. The returned value is serialized as the tool
	// result; a non-nil error is rendered as the failure text instead.
	Run(ctx context.Context, arguments map[string]interface{}) (interface{}, error)
}

// CatalogEntry describes a tool for listings outside the MCP handshake.
type CatalogEntry struct {
	Name        string      `json:"name" yaml:"name"`
	Title       string      `json:"title,omitempty" yaml:"title,omitempty"`
	Description string      `json:"description" yaml:"description"`
	InputSchema interface{} `json:"input_schema" yaml:"input_schema"`
}

// Catalog lists ts in order.
func Catalog(ts []Tool) []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(ts))
	for _, t := range ts {
		entry := CatalogEntry{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		}
		if a := t.Annotations(); a != nil {
			entry.Title = a.Title
		}
		entries = append(entries, entry)
	}
	return entries
}
