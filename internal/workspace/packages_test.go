package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWorkspacePatternsArrayForm(t *testing.T) {
	raw := json.RawMessage(`["packages/*", "apps/*"]`)
	assert.Equal(t, []string{"packages/*", "apps/*"}, parseWorkspacePatterns(raw))
}

func TestParseWorkspacePatternsObjectForm(t *testing.T) {
	raw := json.RawMessage(`{"packages": ["packages/*"]}`)
	assert.Equal(t, []string{"packages/*"}, parseWorkspacePatterns(raw))
}

func TestParseWorkspacePatternsEmpty(t *testing.T) {
	assert.Nil(t, parseWorkspacePatterns(nil))
	assert.Nil(t, parseWorkspacePatterns(json.RawMessage(`not json`)))
}

func TestReadPackageName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name": "@scope/widget"}`)
	name, ok := readPackageName(dir)
	require.True(t, ok)
	assert.Equal(t, "@scope/widget", name)
}

func TestReadPackageNameMissingOrUnnamed(t *testing.T) {
	dir := t.TempDir()
	_, ok := readPackageName(dir)
	assert.False(t, ok)

	writeFile(t, dir, "package.json", `{}`)
	_, ok = readPackageName(dir)
	assert.False(t, ok)
}

func TestScanWorkspacePackagesFromRootManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"name": "root", "workspaces": ["packages/*"]}`)
	writeFile(t, root, "packages/widget/package.json", `{"name": "@acme/widget"}`)
	writeFile(t, root, "packages/widget/index.ts", "export {}")

	pkgs, err := scanWorkspacePackages(root)
	require.NoError(t, err)
	assert.Equal(t, "packages/widget", pkgs["@acme/widget"])
}

func TestScanNodeModulesSymlinksFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "packages/widget/package.json", `{"name": "widget"}`)

	nm := filepath.Join(root, "node_modules")
	require.NoError(t, os.MkdirAll(nm, 0o755))
	linkPath := filepath.Join(nm, "widget")
	target := filepath.Join(root, "packages", "widget")
	if err := os.Symlink(target, linkPath); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	out := make(map[string]string)
	scanNodeModulesSymlinks(root, out)
	assert.Equal(t, "packages/widget", out["widget"])
}

func TestScanNodeModulesSymlinkLeavingRootKeepsInRootPath(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, outside, "shared/package.json", `{"name": "shared"}`)

	nm := filepath.Join(root, "node_modules")
	require.NoError(t, os.MkdirAll(nm, 0o755))
	if err := os.Symlink(filepath.Join(outside, "shared"), filepath.Join(nm, "shared")); err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	out := make(map[string]string)
	scanNodeModulesSymlinks(root, out)

	// The target lies outside the project root, so the package keeps its
	// in-root symlink path rather than vanishing from the map.
	assert.Equal(t, "node_modules/shared", out["shared"])
}
