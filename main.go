// Package main implements the Elastic OTEL diagnostics MCP (Model Context
// Protocol) server.
//
// The server answers diagnostic questions about applications instrumented
// with OpenTelemetry whose traces, logs and metrics are stored in Elastic.
// It communicates over stdio, making it usable from Claude Desktop and
// other MCP clients.
//
// Credentials come from the environment first, then from two positional
// arguments:
//   - ELASTIC_ENDPOINT: Elastic base URL exposing the ES|QL _query API
//   - ELASTIC_API_KEY: API key sent as "Authorization: ApiKey <key>"  // pragma: allowlist secret
//
// Example usage:
//
//	export ELASTIC_ENDPOINT="https://<deployment>.es.<region>.cloud.es.io"
//	export ELASTIC_API_KEY="<your-api-key>"
//	./elastic-otel-mcp
//
//	./elastic-otel-mcp https://localhost:9200 <your-api-key>
package main

import (
	"os"

	"github.com/tareqmamari/elastic-otel-mcp/cmd"
)

// Build information - set at build time via ldflags
// -X main.version={{.Version}} -X main.commit={{.Commit}} -X main.builtBy=goreleaser
var (
	version = "dev"
	commit  = "unknown"
	builtBy = "manual"
)

func main() {
	if err := cmd.Execute(cmd.BuildInfo{
		Version: version,
		Commit:  commit,
		BuiltBy: builtBy,
	}); err != nil {
		os.Exit(1)
	}
}
