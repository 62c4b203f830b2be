// Package workspace locates the project root, enumerates source files, and
// builds the tsconfig and workspace-package maps the resolver consumes.
package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/scopetest-dev/scopetest/internal/config"
)

// markerFiles are checked, in order, while ascending from the working
// directory to locate the project root.
var markerFiles = []string{
	".scopetestrc.json",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"package.json",
}

// skipDirNames are pruned outright during the walk regardless of ignore
// patterns; re-checking them through doublestar on every file would be
// wasted work for directories that are never source.
var skipDirNames = map[string]bool{
	".git": true,
}

// Workspace is the union of the resolved project root, its configuration,
// the parsed tsconfig chain keyed by directory, and the workspace-package
// name-to-directory map.
type Workspace struct {
	Root     string
	Config   *config.Config
	TSConfig *TSConfigIndex
	Packages map[string]string // package name -> root-relative directory
	Files    []string          // root-relative paths, extension-filtered, ignore-filtered
}

// FindRoot ascends from start until it finds a directory containing one of
// markerFiles, or reaches the filesystem root. If nothing is found, start
// itself (absolute) is returned.
func FindRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		for _, marker := range markerFiles {
			if fileExists(filepath.Join(dir, marker)) {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		dir = parent
	}
}

// Discover builds a Workspace rooted at root from the caller-supplied cfg:
// it enumerates matching files, parses the tsconfig chain, and derives the
// workspace package map.
func Discover(root string, cfg *config.Config) (*Workspace, error) {
	ws := &Workspace{
		Root:     root,
		Config:   cfg,
		Packages: make(map[string]string),
	}

	files, err := enumerateFiles(root, cfg)
	if err != nil {
		return nil, err
	}
	ws.Files = files

	ws.TSConfig, err = LoadTSConfigIndex(root, cfg.TSConfig)
	if err != nil {
		return nil, err
	}

	ws.Packages, err = scanWorkspacePackages(root)
	if err != nil {
		return nil, err
	}

	return ws, nil
}

// enumerateFiles walks root, collecting root-relative paths whose extension
// is in cfg.Extensions and which do not match any of cfg.IgnorePatterns or
// the project's own .gitignore, if present. `**`-bearing ignore patterns are
// matched with doublestar, since path/filepath.Match cannot express them;
// .gitignore's own precedence and negation rules are left to go-gitignore
// rather than reimplemented here. cfg.ExtraRoots are additional directories
// walked the same way, for packages that live outside root's own tree (a
// sibling checkout, a shared-libs directory one level up); their files are
// recorded relative to root too, so a specifier crossing that boundary
// resolves the same as any other relative import.
func enumerateFiles(root string, cfg *config.Config) ([]string, error) {
	gi := loadGitignore(root)

	var out []string
	seen := make(map[string]bool)

	walkRoot := func(dir string) error {
		return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if path == dir {
				return nil
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				name := d.Name()
				if skipDirNames[name] || strings.HasPrefix(name, ".") {
					return fs.SkipDir
				}
				if matchesAny(cfg.IgnorePatterns, rel+"/") || (gi != nil && gi.MatchesPath(rel)) {
					return fs.SkipDir
				}
				return nil
			}

			if matchesAny(cfg.IgnorePatterns, rel) {
				return nil
			}
			if gi != nil && gi.MatchesPath(rel) {
				return nil
			}

			ext := filepath.Ext(rel)
			if !containsString(cfg.Extensions, ext) {
				return nil
			}

			if !seen[rel] {
				seen[rel] = true
				out = append(out, rel)
			}
			return nil
		})
	}

	if err := walkRoot(root); err != nil {
		return nil, err
	}
	for _, extra := range cfg.ExtraRoots {
		dir := extra
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		if !fileIsDir(dir) {
			continue
		}
		if err := walkRoot(dir); err != nil {
			return nil, err
		}
	}

	sort.Strings(out)
	return out, nil
}

func fileIsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// loadGitignore compiles root's .gitignore, if one exists. A missing or
// unparseable file yields nil rather than an error: .gitignore is an
// additional filter on top of cfg.IgnorePatterns, not a required input.
func loadGitignore(root string) *gitignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	if !fileExists(path) {
		return nil
	}
	gi, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
