package main

import (
	"context"
	"flag"
	"os"

	"github.com/scopetest-dev/scopetest/internal/affected"
	"github.com/scopetest-dev/scopetest/internal/logging"
	"github.com/scopetest-dev/scopetest/internal/output"
)

// runCoverage emits the affected *source* files (not tests) as a list
// suitable for scoping a coverage run.
func runCoverage(ctx context.Context, log *logging.Logger, args []string) error {
	fs := flag.NewFlagSet("coverage", flag.ContinueOnError)
	root := fs.String("root", "", "project root (default: current directory)")
	base := fs.String("base", "", "base ref to diff against")
	format := fs.String("format", "list", "output format: list|json")

	if err := fs.Parse(args); err != nil {
		return usageErr("%w", err)
	}

	projectRoot, err := resolveRoot(*root)
	if err != nil {
		return err
	}

	built, err := setupGraph(ctx, log, projectRoot, false)
	if err != nil {
		return err
	}

	changeset, err := resolveChangeset(ctx, projectRoot, *base, "")
	if err != nil {
		return err
	}

	result := affected.Compute(built.g, built.prevNodes, changeset, affected.Options{Sources: true})

	return output.WriteCoverage(os.Stdout, output.ParseFormat(*format), result.AffectedSource, log.Diagnostics())
}
