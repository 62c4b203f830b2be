package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/scopetest-dev/scopetest/internal/affected"
	"github.com/scopetest-dev/scopetest/internal/logging"
	"github.com/scopetest-dev/scopetest/internal/output"
)

func runWhy(ctx context.Context, log *logging.Logger, args []string) error {
	fs := flag.NewFlagSet("why", flag.ContinueOnError)
	root := fs.String("root", "", "project root (default: current directory)")
	base := fs.String("base", "", "base ref to diff against")
	since := fs.String("since", "", "compare ref (default: working tree)")
	all := fs.Bool("all", false, "report every path to a changed seed, not just the shortest")
	noCache := fs.Bool("no-cache", false, "ignore and do not write the persisted graph cache")
	diagram := fs.Bool("diagram", false, "also print a Mermaid diagram of the explanation path(s)")

	if err := fs.Parse(args); err != nil {
		return usageErr("%w", err)
	}
	positional := fs.Args()
	if len(positional) < 1 {
		return usageErr("why requires a target test path")
	}
	target := filepath.ToSlash(positional[0])

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

	seeds := make(map[string]bool)
	for _, p := range changeset.AllPaths() {
		seeds[p] = true
	}

	paths := affected.Why(built.g, target, seeds, *all, built.g.Len())

	if err := output.WriteExplanation(os.Stdout, output.ParseFormat("list"), target, paths); err != nil {
		return err
	}
	if *diagram {
		os.Stdout.WriteString("\n")
		os.Stdout.WriteString(output.Mermaid(target, paths))
	}
	return nil
}
