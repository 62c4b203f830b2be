// Package resolve implements the JS/TS module resolver: mapping an
// importer's directory and a raw specifier to a Resolved file path, an
// External package classification, or Unresolved.
//
// The resolver is kept close to a pure function of (importer dir, specifier,
// workspace snapshot): the file set is captured once in the
// Workspace/fileSet at construction time, and extension probing only
// touches in-memory maps. The one disk access is reading package.json
// manifests (a bare directory's `main`, a workspace package's
// `exports`/`main`), whose results are memoized with everything else.
package resolve

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/scopetest-dev/scopetest/internal/model"
	"github.com/scopetest-dev/scopetest/internal/workspace"
)

// Resolution is the outcome of resolving one specifier.
type Resolution struct {
	Status model.EdgeStatus
	Target string // resolved root-relative path, or the external package name
}

// packageManifest is the lazily-loaded, lazily-cached export surface of one
// workspace package.
type packageManifest struct {
	mainFile       string
	subpathExports map[string]string
	loaded         bool
}

// Resolver resolves import specifiers against a fixed workspace snapshot.
// It is safe for concurrent use: a single mutex guards the memo and manifest
// caches, which is cheap relative to the parse work dominating each worker.
type Resolver struct {
	root       string
	ws         *workspace.Workspace
	fileSet    map[string]bool
	extensions []string

	mu        sync.Mutex
	manifests map[string]*packageManifest // package name -> lazily loaded manifest
	memo      map[string]Resolution       // "dir\x00specifier" -> result
}

// New builds a Resolver over ws's file list and config.
func New(ws *workspace.Workspace) *Resolver {
	fileSet := make(map[string]bool, len(ws.Files))
	for _, f := range ws.Files {
		fileSet[f] = true
	}

	exts := ws.Config.Extensions
	if len(exts) == 0 {
		exts = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}
	}

	manifests := make(map[string]*packageManifest, len(ws.Packages))
	for name := range ws.Packages {
		manifests[name] = &packageManifest{}
	}

	return &Resolver{
		root:       ws.Root,
		ws:         ws,
		fileSet:    fileSet,
		extensions: exts,
		manifests:  manifests,
		memo:       make(map[string]Resolution),
	}
}

// Resolve resolves specifier as imported from importerPath (a root-relative
// file path). Results are memoized per (importer directory, specifier) for
// the lifetime of the Resolver.
func (r *Resolver) Resolve(importerPath, specifier string) Resolution {
	dir := filepath.ToSlash(filepath.Dir(importerPath))
	key := dir + "\x00" + specifier

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.memo[key]; ok {
		return cached
	}

	res := r.resolve(dir, specifier)
	r.memo[key] = res
	return res
}

func (r *Resolver) resolve(dir, specifier string) Resolution {
	switch {
	case strings.HasPrefix(specifier, "."):
		return r.resolveRelative(dir, specifier)
	case strings.HasPrefix(specifier, "node:"):
		return Resolution{Status: model.StatusExternal, Target: specifier}
	}

	if res, ok := r.resolveViaTSConfigPaths(dir, specifier); ok {
		return res
	}
	if res, ok := r.resolveWorkspacePackage(specifier); ok {
		return res
	}

	// Not relative, no alias match, not a known workspace package: treat as
	// an external (node_modules or builtin) dependency. This deliberately
	// collapses "known bare package" (External) and "unknown bare
	// specifier" (Unresolved) into External: telling them apart needs a
	// node_modules inventory that isn't always present (fresh clones, CI),
	// and both classifications terminate traversal identically. See
	// DESIGN.md for the recorded deviation.
	return Resolution{Status: model.StatusExternal, Target: specifier}
}

// resolveRelative joins a relative specifier against the importer's
// directory and applies extension probing: exact path, then each configured
// extension, then `<path>/index.<ext>` for each extension, then (for a bare
// directory reference) the directory's package.json `main`.
func (r *Resolver) resolveRelative(dir, specifier string) Resolution {
	base := filepath.ToSlash(filepath.Clean(filepath.Join(dir, specifier)))
	if resolved, ok := r.probe(base); ok {
		return Resolution{Status: model.StatusResolved, Target: resolved}
	}
	if main, ok := r.directoryMain(base); ok {
		return Resolution{Status: model.StatusResolved, Target: main}
	}
	return Resolution{Status: model.StatusUnresolved}
}

// probe checks basePath itself, then basePath+ext and basePath/index+ext for
// every configured extension, in declared order. Declared order is the
// tie-break.
func (r *Resolver) probe(basePath string) (string, bool) {
	if r.fileSet[basePath] {
		return basePath, true
	}
	for _, ext := range r.extensions {
		candidate := basePath + ext
		if r.fileSet[candidate] {
			return candidate, true
		}
	}
	for _, ext := range r.extensions {
		candidate := basePath + "/index" + ext
		if r.fileSet[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// directoryMain resolves a bare directory reference (no index file present)
// via that directory's package.json `main` field.
func (r *Resolver) directoryMain(dir string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(r.root, dir, "package.json"))
	if err != nil {
		return "", false
	}
	var pkg struct {
		Main string `json:"main"`
	}
	if json.Unmarshal(data, &pkg) != nil || pkg.Main == "" {
		return "", false
	}
	candidate := filepath.ToSlash(filepath.Clean(filepath.Join(dir, pkg.Main)))
	if r.fileSet[candidate] {
		return candidate, true
	}
	return r.probe(candidate)
}

// resolveViaTSConfigPaths applies the nearest governing tsconfig's `paths`
// aliases. Each pattern supports one trailing `*` wildcard; substitution
// happens into every target template in declared order, and the first
// candidate that probes successfully wins.
func (r *Resolver) resolveViaTSConfigPaths(dir, specifier string) (Resolution, bool) {
	cfg := r.ws.TSConfig.Lookup(dir)
	if cfg == nil {
		return Resolution{}, false
	}

	// cfg.Paths is a map; iterating it directly would make the match order
	// (and therefore the result, when more than one pattern matches the same
	// specifier) depend on Go's randomized map iteration. Sort candidate
	// patterns by pattern length, longest first, matching how a longer, more
	// specific alias is expected to win over a shorter catch-all one;
	// lexicographic order breaks any remaining tie deterministically.
	patterns := make([]string, 0, len(cfg.Paths))
	for pattern := range cfg.Paths {
		patterns = append(patterns, pattern)
	}
	sort.Slice(patterns, func(i, j int) bool {
		pi, pj := patterns[i], patterns[j]
		if len(pi) != len(pj) {
			return len(pi) > len(pj)
		}
		return pi < pj
	})

	for _, pattern := range patterns {
		suffix, ok := matchPathPattern(pattern, specifier)
		if !ok {
			continue
		}
		for _, target := range cfg.Paths[pattern] {
			candidate := strings.Replace(target, "*", suffix, 1)
			candidate = filepath.ToSlash(filepath.Clean(candidate))
			if resolved, ok := r.probe(candidate); ok {
				return Resolution{Status: model.StatusResolved, Target: resolved}, true
			}
		}
	}
	return Resolution{}, false
}

// matchPathPattern matches specifier against a tsconfig `paths` pattern with
// at most one trailing `*`, returning the captured suffix.
func matchPathPattern(pattern, specifier string) (string, bool) {
	if !strings.Contains(pattern, "*") {
		if pattern == specifier {
			return "", true
		}
		return "", false
	}
	prefix, _, _ := strings.Cut(pattern, "*")
	if !strings.HasPrefix(specifier, prefix) {
		return "", false
	}
	return strings.TrimPrefix(specifier, prefix), true
}

// resolveWorkspacePackage rewrites a bare specifier whose first path segment
// names a workspace package into that package's directory, honoring
// package.json `exports` (preferred) or `main`, and subpath exports.
func (r *Resolver) resolveWorkspacePackage(specifier string) (Resolution, bool) {
	pkgName, subpath := splitPackageSpecifier(specifier)
	dir, ok := r.ws.Packages[pkgName]
	if !ok {
		return Resolution{}, false
	}

	manifest := r.loadManifest(pkgName, dir)

	if subpath == "" {
		if manifest.mainFile != "" {
			return Resolution{Status: model.StatusResolved, Target: manifest.mainFile}, true
		}
		return Resolution{}, false
	}

	if target, ok := manifest.subpathExports["./"+subpath]; ok {
		return Resolution{Status: model.StatusResolved, Target: target}, true
	}

	candidate := filepath.ToSlash(filepath.Join(dir, subpath))
	if resolved, ok := r.probe(candidate); ok {
		return Resolution{Status: model.StatusResolved, Target: resolved}, true
	}
	return Resolution{}, false
}

// splitPackageSpecifier splits a bare specifier into its package name (the
// first segment, or first two segments for a scoped @scope/name package)
// and the remaining subpath, if any.
func splitPackageSpecifier(specifier string) (pkgName, subpath string) {
	if strings.HasPrefix(specifier, "@") {
		afterScope := strings.Index(specifier[1:], "/")
		if afterScope == -1 {
			return specifier, ""
		}
		scopeEnd := afterScope + 1
		secondSlash := strings.Index(specifier[scopeEnd+1:], "/")
		if secondSlash == -1 {
			return specifier, ""
		}
		splitAt := scopeEnd + 1 + secondSlash
		return specifier[:splitAt], specifier[splitAt+1:]
	}

	slash := strings.Index(specifier, "/")
	if slash == -1 {
		return specifier, ""
	}
	return specifier[:slash], specifier[slash+1:]
}

// loadManifest reads and caches a workspace package's export surface on
// first use.
func (r *Resolver) loadManifest(pkgName, dir string) *packageManifest {
	m, ok := r.manifests[pkgName]
	if !ok {
		m = &packageManifest{}
		r.manifests[pkgName] = m
	}
	if m.loaded {
		return m
	}
	m.loaded = true
	m.subpathExports = make(map[string]string)

	data, err := os.ReadFile(filepath.Join(r.root, dir, "package.json"))
	if err != nil {
		return m
	}
	var pkg struct {
		Main    string          `json:"main"`
		Exports json.RawMessage `json:"exports"`
	}
	if json.Unmarshal(data, &pkg) != nil {
		return m
	}

	r.applyExports(m, dir, pkg.Exports)

	if m.mainFile == "" && pkg.Main != "" {
		candidate := filepath.ToSlash(filepath.Clean(filepath.Join(dir, pkg.Main)))
		if resolved, ok := r.probe(candidate); ok {
			m.mainFile = resolved
		}
	}
	if m.mainFile == "" {
		for _, try := range []string{filepath.Join(dir, "src", "index"), filepath.Join(dir, "index")} {
			if resolved, ok := r.probe(filepath.ToSlash(try)); ok {
				m.mainFile = resolved
				break
			}
		}
	}

	return m
}

func (r *Resolver) applyExports(m *packageManifest, dir string, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}

	var str string
	if json.Unmarshal(raw, &str) == nil {
		if resolved, ok := r.probe(filepath.ToSlash(filepath.Clean(filepath.Join(dir, str)))); ok {
			m.mainFile = resolved
		}
		return
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return
	}
	for key, val := range obj {
		target := resolveExportCondition(val)
		if target == "" {
			continue
		}
		resolved, ok := r.probe(filepath.ToSlash(filepath.Clean(filepath.Join(dir, target))))
		if !ok {
			continue
		}
		if key == "." {
			m.mainFile = resolved
		} else {
			m.subpathExports[key] = resolved
		}
	}
}

// resolveExportCondition extracts a target path from an `exports` value,
// which is either a plain string or a conditional object. Conditions are
// preferred in order: import, default, require — matching Node's own
// preference for ESM resolution.
func resolveExportCondition(raw json.RawMessage) string {
	var str string
	if json.Unmarshal(raw, &str) == nil {
		return str
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return ""
	}
	for _, key := range []string{"import", "default", "require"} {
		if v, ok := obj[key]; ok {
			return resolveExportCondition(v)
		}
	}
	return ""
}
