// Package mcptools exposes scopetest's affected-set engine over MCP
// (Model Context Protocol) on stdio, so an editor-integrated agent can ask
// "what tests does this change affect" without shelling out to the CLI and
// parsing its stdout.
package mcptools

import "github.com/scopetest-dev/scopetest/internal/model"

// AffectedInput is the input for the affected MCP tool.
type AffectedInput struct {
	RepoRoot  string   `json:"repoRoot" jsonschema:"absolute path to the project root"`
	Base      string   `json:"base,omitempty" jsonschema:"base ref to diff against"`
	Since     string   `json:"since,omitempty" jsonschema:"compare ref; omit to diff the working tree"`
	Threshold int      `json:"threshold,omitempty" jsonschema:"fall back to running everything above this many affected tests"`
	Sources   bool     `json:"sources,omitempty" jsonschema:"also report affected non-test source files"`
	NoCache   bool     `json:"noCache,omitempty" jsonschema:"ignore and do not write the persisted graph cache"`
}

// AffectedOutput is the result of the affected MCP tool.
type AffectedOutput struct {
	Impact model.ImpactResult `json:"impact"`
}

// WhyInput is the input for the why MCP tool.
type WhyInput struct {
	RepoRoot string `json:"repoRoot" jsonschema:"absolute path to the project root"`
	Target   string `json:"target" jsonschema:"root-relative path of the test file to explain"`
	Base     string `json:"base,omitempty" jsonschema:"base ref to diff against"`
	Since    string `json:"since,omitempty" jsonschema:"compare ref; omit to diff the working tree"`
	All      bool   `json:"all,omitempty" jsonschema:"report every path to a changed seed, not just the shortest"`
	NoCache  bool   `json:"noCache,omitempty" jsonschema:"ignore and do not write the persisted graph cache"`
}

// WhyOutput is the result of the why MCP tool.
type WhyOutput struct {
	Paths []model.ExplanationPath `json:"paths"`
}

// CoverageInput is the input for the coverage MCP tool.
type CoverageInput struct {
	RepoRoot string `json:"repoRoot" jsonschema:"absolute path to the project root"`
	Base     string `json:"base,omitempty" jsonschema:"base ref to diff against"`
}

// CoverageOutput is the result of the coverage MCP tool.
type CoverageOutput struct {
	Sources []string `json:"sources"`
}

// BuildGraphInput is the input for the build_graph MCP tool.
type BuildGraphInput struct {
	RepoRoot string `json:"repoRoot" jsonschema:"absolute path to the project root"`
}

// BuildGraphOutput is the result of the build_graph MCP tool.
type BuildGraphOutput struct {
	NodeCount  int   `json:"nodeCount"`
	DurationMs int64 `json:"durationMs"`
	CacheHit   bool  `json:"cacheHit"`
}
