package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/scopetest-dev/scopetest/internal/mcptools"
)

func runServeMCP(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve-mcp", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return usageErr("%w", err)
	}

	svc := mcptools.NewService()
	fmt.Fprintf(os.Stderr, "scopetest MCP server v%s starting on stdio\n", version)
	err := mcptools.RunStdio(ctx, svc)
	fmt.Fprintln(os.Stderr, "scopetest MCP server stopped")
	return err
}
