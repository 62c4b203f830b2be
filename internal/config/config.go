// Package config loads the .scopetestrc.json project configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// fileName is the config file scopetest looks for at the project root.
const fileName = ".scopetestrc.json"

// Config holds project-level settings loaded from .scopetestrc.json.
// Zero-value fields are replaced by Defaults() before use.
type Config struct {
	TestPatterns   []string `json:"testPatterns,omitempty"`
	IgnorePatterns []string `json:"ignorePatterns,omitempty"`
	Extensions     []string `json:"extensions,omitempty"`
	TSConfig       string   `json:"tsconfig,omitempty"`
	ExtraRoots     []string `json:"extraRoots,omitempty"`

	// WarnNonLiteralRequire emits a diagnostic for each require() call with
	// a non-literal argument. Such calls are always ignored by the graph
	// builder (a variable argument names no resolvable file); the warning is
	// opt-in because large repos can carry thousands of them.
	WarnNonLiteralRequire bool `json:"warnNonLiteralRequire,omitempty"`
}

// Defaults returns the configuration applied when no .scopetestrc.json is
// present, or to fill in fields the file left empty.
func Defaults() *Config {
	return &Config{
		TestPatterns: []string{"**/*.{spec,test}.{ts,tsx,js,jsx}"},
		IgnorePatterns: []string{
			"**/node_modules/**",
			"**/.git/**",
			"**/dist/**",
			"**/build/**",
			"**/.scopetest/**",
		},
		Extensions: []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".json"},
	}
}

// Load reads .scopetestrc.json from dir, if present, and merges it over
// Defaults(). A missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Defaults()

	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var override Config
	if err := json.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if len(override.TestPatterns) > 0 {
		cfg.TestPatterns = override.TestPatterns
	}
	if len(override.IgnorePatterns) > 0 {
		cfg.IgnorePatterns = override.IgnorePatterns
	}
	if len(override.Extensions) > 0 {
		cfg.Extensions = override.Extensions
	}
	if override.TSConfig != "" {
		cfg.TSConfig = override.TSConfig
	}
	if len(override.ExtraRoots) > 0 {
		cfg.ExtraRoots = override.ExtraRoots
	}
	if override.WarnNonLiteralRequire {
		cfg.WarnNonLiteralRequire = true
	}

	return cfg, nil
}

// Hash returns a value that changes whenever any field that participates in
// resolution changes, used by the cache store to decide whether a prior
// cache is still valid for this config. It is computed over the JSON
// encoding rather than hand-rolled field concatenation so that adding a new
// config field is automatically covered.
func (c *Config) Hash() (uint64, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}
