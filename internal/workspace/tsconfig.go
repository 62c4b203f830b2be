package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// TSConfig is one parsed tsconfig.json, with `extends` already resolved into
// a flattened baseUrl/paths pair.
type TSConfig struct {
	Dir     string              // root-relative directory this tsconfig governs
	BaseURL string              // root-relative, resolved against Dir
	Paths   map[string][]string // alias pattern -> ordered target templates, root-relative
}

// TSConfigIndex maps a root-relative directory to the nearest governing
// tsconfig, the way the resolver ascends from an importer's directory to
// find the tsconfig that applies to it.
type TSConfigIndex struct {
	byDir map[string]*TSConfig
}

// rawTSConfig mirrors the subset of tsconfig.json this system reads.
// tsconfig.json is JSONC in practice; the bytes pass through stripJSONC,
// which removes comments, before this unmarshal. Trailing commas are not
// removed, so a file containing them fails to unmarshal and contributes no
// baseUrl or paths.
type rawTSConfig struct {
	Extends         string `json:"extends"`
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// LoadTSConfigIndex walks the workspace looking for tsconfig.json files
// (optionally starting from an explicit override path) and builds a
// directory-indexed map of resolved baseUrl/paths, following `extends`
// chains.
func LoadTSConfigIndex(root, override string) (*TSConfigIndex, error) {
	idx := &TSConfigIndex{byDir: make(map[string]*TSConfig)}

	var candidates []string
	if override != "" {
		candidates = append(candidates, filepath.Join(root, override))
	} else {
		found, err := findTSConfigs(root)
		if err != nil {
			return nil, err
		}
		candidates = found
	}

	for _, path := range candidates {
		cfg, err := loadTSConfigChain(path, root)
		if err != nil {
			continue // unreadable/invalid tsconfig does not fail the whole run
		}
		dir, relErr := filepath.Rel(root, filepath.Dir(path))
		if relErr != nil {
			continue
		}
		cfg.Dir = filepath.ToSlash(dir)
		idx.byDir[cfg.Dir] = cfg
	}

	return idx, nil
}

// findTSConfigs finds every tsconfig.json under root, skipping
// node_modules, so that per-package tsconfigs in a monorepo are all
// discovered.
func findTSConfigs(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == "node_modules" || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == "tsconfig.json" {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// loadTSConfigChain reads path and follows its `extends` field (relative to
// path's own directory, Node-resolution style for the common `./base.json`
// case) until the chain terminates, merging baseUrl/paths with the child
// taking precedence.
func loadTSConfigChain(path, root string) (*TSConfig, error) {
	visited := make(map[string]bool)
	baseURL := ""
	paths := make(map[string][]string)

	cur := path
	for cur != "" && !visited[cur] {
		visited[cur] = true

		data, err := os.ReadFile(cur)
		if err != nil {
			break
		}
		var raw rawTSConfig
		if err := json.Unmarshal(stripJSONC(data), &raw); err != nil {
			break
		}

		// The child is read first; each parent only fills in keys that are
		// still unset, so the child wins on conflicting keys.
		if baseURL == "" && raw.CompilerOptions.BaseURL != "" {
			baseURL = filepath.Join(filepath.Dir(cur), raw.CompilerOptions.BaseURL)
		}
		for k, v := range raw.CompilerOptions.Paths {
			if _, exists := paths[k]; !exists {
				paths[k] = v
			}
		}

		if raw.Extends == "" {
			break
		}
		next := raw.Extends
		if !filepath.IsAbs(next) {
			next = filepath.Join(filepath.Dir(cur), next)
		}
		if filepath.Ext(next) != ".json" {
			next += ".json"
		}
		cur = next
	}

	if baseURL == "" {
		baseURL = filepath.Dir(path)
	}
	relBase, err := filepath.Rel(root, baseURL)
	if err != nil {
		relBase = "."
	}

	// Paths targets are declared relative to baseUrl; normalize them to
	// root-relative so the resolver can probe the file set directly.
	resolvedPaths := make(map[string][]string, len(paths))
	for pattern, targets := range paths {
		resolved := make([]string, len(targets))
		for i, t := range targets {
			resolved[i] = filepath.ToSlash(filepath.Clean(filepath.Join(relBase, t)))
		}
		resolvedPaths[pattern] = resolved
	}

	return &TSConfig{
		BaseURL: filepath.ToSlash(relBase),
		Paths:   resolvedPaths,
	}, nil
}

// Lookup returns the nearest governing tsconfig by ascending from dir
// (root-relative, slash-separated), or nil if none was found.
func (idx *TSConfigIndex) Lookup(dir string) *TSConfig {
	if idx == nil {
		return nil
	}
	for {
		if cfg, ok := idx.byDir[dir]; ok {
			return cfg
		}
		if dir == "." || dir == "" {
			return nil
		}
		parent := filepath.ToSlash(filepath.Dir(dir))
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

// stripJSONC strips `//` line comments and `/* */` block comments from a
// JSONC byte slice so it can be fed to encoding/json. It is a minimal,
// string-literal-aware pass, not a full tokenizer.
func stripJSONC(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString := false
	var escaped bool
	for i := 0; i < len(data); i++ {
		c := data[i]

		if inString {
			out = append(out, c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
			i--
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			i += 2
			for i+1 < len(data) && !(data[i] == '*' && data[i+1] == '/') {
				i++
			}
			i++
		default:
			out = append(out, c)
		}
	}
	return out
}
