package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/scopetest-dev/scopetest/internal/affected"
	"github.com/scopetest-dev/scopetest/internal/execrun"
	"github.com/scopetest-dev/scopetest/internal/logging"
	"github.com/scopetest-dev/scopetest/internal/model"
	"github.com/scopetest-dev/scopetest/internal/output"
)

func runAffected(ctx context.Context, log *logging.Logger, args []string) error {
	fs := flag.NewFlagSet("affected", flag.ContinueOnError)
	root := fs.String("root", "", "project root (default: current directory)")
	base := fs.String("base", "", "base ref to diff against")
	since := fs.String("since", "", "compare ref (default: working tree)")
	format := fs.String("format", "paths", "output format: paths|list|json|jest|vitest")
	exec := fs.String("exec", "", "run this command with the affected test paths substituted at {}")
	fs.StringVar(exec, "x", "", "shorthand for --exec")
	failFast := fs.Bool("fail-fast", false, "stop at the first failing --exec invocation")
	threshold := fs.Int("threshold", 0, "fall back to running everything above this many affected tests")
	sources := fs.Bool("sources", false, "also report affected non-test files")
	noCache := fs.Bool("no-cache", false, "ignore and do not write the persisted graph cache")

	if err := fs.Parse(args); err != nil {
		return usageErr("%w", err)
	}

	projectRoot, err := resolveRoot(*root)
	if err != nil {
		return err
	}

	built, err := setupGraph(ctx, log, projectRoot, *noCache)
	if err != nil {
		return err
	}

	changeset, err := resolveChangeset(ctx, projectRoot, *base, *since)
	if err != nil {
		return err
	}

	result := affected.Compute(built.g, built.prevNodes, changeset, affected.Options{
		Threshold: *threshold,
		Sources:   *sources,
	})

	stats := output.Stats{
		ChangedFiles:  len(result.ChangedFiles),
		AffectedFiles: len(result.AffectedFiles),
		AffectedTests: len(result.AffectedTests),
		GraphNodes:    built.g.Len(),
		DurationMs:    built.duration.Milliseconds(),
		CacheHit:      built.cacheHit,
	}

	if *exec != "" {
		return runExecAdapter(ctx, projectRoot, result, *exec, *failFast)
	}

	return output.WriteImpact(os.Stdout, output.ParseFormat(*format), result, stats, log.Diagnostics())
}

func runExecAdapter(ctx context.Context, root string, result model.ImpactResult, cmdTemplate string, failFast bool) error {
	if result.FallbackAll {
		fmt.Fprintln(os.Stderr, "threshold exceeded: running exec against the full test suite is the caller's responsibility")
		return nil
	}
	results, err := execrun.Run(ctx, result.AffectedTests, execrun.Options{
		Template: cmdTemplate,
		PerFile:  false,
		FailFast: failFast,
		Dir:      root,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errExecFailed, err)
	}
	for _, r := range results {
		if r.ExitCode != 0 {
			return fmt.Errorf("%w: %q exited %d", errExecFailed, r.Command, r.ExitCode)
		}
	}
	return nil
}
