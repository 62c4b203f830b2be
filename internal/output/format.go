// Package output implements the external formatters: paths, list, and json,
// the three sinks a run's result can be handed to before the exec adapter
// or the shell takes over. Every formatter sorts its input first: the
// affected engine's own output is already sorted, but this package does
// not trust that invariant from its caller, since "deterministic output
// regardless of traversal order" is a contract on the formatter, not just
// the engine that happens to feed it.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/scopetest-dev/scopetest/internal/logging"
	"github.com/scopetest-dev/scopetest/internal/model"
)

// Format names an output formatter.
type Format string

const (
	FormatPaths Format = "paths"
	FormatList  Format = "list"
	FormatJSON  Format = "json"
)

// ParseFormat normalizes a --format flag value. "jest" and "vitest" are
// accepted as aliases for "paths", since both runners take a bare
// space-separated file list on their own command line.
func ParseFormat(s string) Format {
	switch s {
	case "list":
		return FormatList
	case "json":
		return FormatJSON
	case "paths", "jest", "vitest", "":
		return FormatPaths
	default:
		return FormatPaths
	}
}

// Stats accompanies a json-formatted result with run metadata that has no
// home on model.ImpactResult itself, since ImpactResult is also the type
// the affected engine returns internally, before a duration or cache
// verdict exists to attach to it.
type Stats struct {
	ChangedFiles  int   `json:"changedFiles"`
	AffectedFiles int   `json:"affectedFiles"`
	AffectedTests int   `json:"affectedTests"`
	GraphNodes    int   `json:"graphNodes"`
	DurationMs    int64 `json:"durationMs"`
	CacheHit      bool  `json:"cacheHit"`
}

type impactEnvelope struct {
	Tests       []string             `json:"tests"`
	Sources     []string             `json:"sources,omitempty"`
	Stats       Stats                `json:"stats"`
	Fallback    string               `json:"fallback,omitempty"`
	Diagnostics []logging.Diagnostic `json:"diagnostics,omitempty"`
}

// WriteImpact renders an affected-set result in format to w. When
// result.FallbackAll is set the threshold was exceeded and the caller
// should treat the whole suite as affected: paths/list emit the single
// token "ALL", json emits {"fallback":"all"} alongside stats.
func WriteImpact(w io.Writer, format Format, result model.ImpactResult, stats Stats, diags []logging.Diagnostic) error {
	if result.FallbackAll {
		if format == FormatJSON {
			return writeJSON(w, impactEnvelope{Stats: stats, Fallback: "all", Diagnostics: diags})
		}
		_, err := fmt.Fprintln(w, "ALL")
		return err
	}

	tests := sortedCopy(result.AffectedTests)

	switch format {
	case FormatPaths:
		_, err := fmt.Fprintln(w, strings.Join(tests, " "))
		return err
	case FormatList:
		for _, t := range tests {
			if _, err := fmt.Fprintln(w, t); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		return writeJSON(w, impactEnvelope{
			Tests:       tests,
			Sources:     sortedCopy(result.AffectedSource),
			Stats:       stats,
			Diagnostics: diags,
		})
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

type coverageEnvelope struct {
	Sources     []string             `json:"sources"`
	Diagnostics []logging.Diagnostic `json:"diagnostics,omitempty"`
}

// WriteCoverage renders the affected-source list the coverage subcommand
// produces, in list or json form.
func WriteCoverage(w io.Writer, format Format, sources []string, diags []logging.Diagnostic) error {
	sorted := sortedCopy(sources)
	switch format {
	case FormatJSON:
		return writeJSON(w, coverageEnvelope{Sources: sorted, Diagnostics: diags})
	default:
		for _, s := range sorted {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
		}
		return nil
	}
}

type explanationEnvelope struct {
	Target string                  `json:"target"`
	Paths  []model.ExplanationPath `json:"paths"`
}

// WriteExplanation renders the why subcommand's result. paths/list render
// one line per hop, blank-line separated between alternate paths; json
// renders the full structured step list.
func WriteExplanation(w io.Writer, format Format, target string, paths []model.ExplanationPath) error {
	if format == FormatJSON {
		return writeJSON(w, explanationEnvelope{Target: target, Paths: paths})
	}
	for i, p := range paths {
		if i > 0 {
			fmt.Fprintln(w)
		}
		for _, step := range p.Steps {
			if _, err := fmt.Fprintf(w, "%s -> %s (%s)\n", step.From, step.To, step.Kind); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
