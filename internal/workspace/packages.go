package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// packageJSON is a minimal representation of the fields scopetest reads from
// a package.json manifest.
type packageJSON struct {
	Name       string          `json:"name"`
	Main       string          `json:"main"`
	Workspaces json.RawMessage `json:"workspaces"`
}

// scanWorkspacePackages finds every workspace member declared by the root
// package.json's `workspaces` field (array-of-globs or {"packages": [...]}
// form) and, for robustness against manifests scopetest didn't parse,
// every symlink directly under node_modules that points back inside the
// repository. It returns a map of package name to root-relative directory.
func scanWorkspacePackages(root string) (map[string]string, error) {
	out := make(map[string]string)

	rootPkgPath := filepath.Join(root, "package.json")
	data, err := os.ReadFile(rootPkgPath)
	if err == nil {
		var pkg packageJSON
		if json.Unmarshal(data, &pkg) == nil {
			for _, pattern := range parseWorkspacePatterns(pkg.Workspaces) {
				matches, _ := doublestar.Glob(os.DirFS(root), pattern)
				for _, m := range matches {
					info, statErr := os.Stat(filepath.Join(root, m))
					if statErr != nil || !info.IsDir() {
						continue
					}
					if name, ok := readPackageName(filepath.Join(root, m)); ok {
						out[name] = filepath.ToSlash(m)
					}
				}
			}
		}
	}

	scanNodeModulesSymlinks(root, out)

	return out, nil
}

func parseWorkspacePatterns(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var arr []string
	if json.Unmarshal(raw, &arr) == nil {
		return arr
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Packages
	}
	return nil
}

func readPackageName(dir string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return "", false
	}
	var pkg packageJSON
	if json.Unmarshal(data, &pkg) != nil || pkg.Name == "" {
		return "", false
	}
	return pkg.Name, true
}

// scanNodeModulesSymlinks inspects top-level node_modules (and its scoped
// subdirectories) for symlinks pointing back inside root, the package
// manager's mechanism for making a workspace member importable by name. This
// is a robustness fallback when the root manifest's `workspaces` field is
// absent, unusual, or managed by a tool scopetest doesn't special-case.
func scanNodeModulesSymlinks(root string, out map[string]string) {
	nm := filepath.Join(root, "node_modules")
	entries, err := os.ReadDir(nm)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.Name()[0] == '@' && e.IsDir() {
			scoped, err := os.ReadDir(filepath.Join(nm, e.Name()))
			if err != nil {
				continue
			}
			for _, se := range scoped {
				addSymlinkTarget(root, nm, e.Name()+"/"+se.Name(), se, out)
			}
			continue
		}
		addSymlinkTarget(root, nm, e.Name(), e, out)
	}
}

func addSymlinkTarget(root, nm, pkgName string, e os.DirEntry, out map[string]string) {
	info, err := e.Info()
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return
	}
	linkPath := filepath.Join(nm, pkgName)
	target, err := filepath.EvalSymlinks(linkPath)
	if err != nil {
		return
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || len(rel) >= 2 && rel[:2] == ".." {
		// The symlink leaves the project root. Keep the package addressable
		// at its in-root path so its files stay inside the workspace.
		rel = filepath.Join("node_modules", pkgName)
	}
	if _, exists := out[pkgName]; !exists {
		out[pkgName] = filepath.ToSlash(rel)
	}
}
