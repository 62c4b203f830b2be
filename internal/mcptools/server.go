package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with scopetest's four tools registered.
func NewServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "scopetest",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "affected",
		Description: "Compute the minimal set of test files that must re-run after a changeset, via reverse dependency reachability.",
	}, svc.Affected)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "why",
		Description: "Explain why a given test file is affected by the current changeset, as a chain of import edges back to a changed file.",
	}, svc.Why)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "coverage",
		Description: "Report the affected non-test source files for a changeset, for scoping a coverage run.",
	}, svc.Coverage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_graph",
		Description: "Rebuild and persist the dependency graph cache for a repository.",
	}, svc.BuildGraph)

	return server
}

// RunStdio runs the scopetest MCP server on stdio until ctx is cancelled or
// the client disconnects.
func RunStdio(ctx context.Context, svc *Service) error {
	server := NewServer(svc)
	return server.Run(ctx, &mcp.StdioTransport{})
}
