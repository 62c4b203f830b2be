package vcsdiff

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available in this environment")
	}
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func initRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "test")
	return dir
}

func writeAndCommit(t *testing.T, dir, rel, content, message string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	runGit(t, dir, "add", rel)
	runGit(t, dir, "commit", "-q", "-m", message)
}

func TestDiffDetectsModifiedAddedDeleted(t *testing.T) {
	dir := initRepo(t)
	writeAndCommit(t, dir, "a.ts", "export const a = 1;", "base")
	writeAndCommit(t, dir, "b.ts", "export const b = 1;", "base2")
	base := headRev(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ts"), []byte("export const a = 2;"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "b.ts")))
	writeAndCommit(t, dir, "c.ts", "export const c = 1;", "add c")
	runGit(t, dir, "add", "-A")
	runGit(t, dir, "commit", "-q", "-m", "modify and delete")

	g := New(dir)
	cs, err := g.Diff(context.Background(), base, "")
	require.NoError(t, err)

	assert.Contains(t, cs.Modified, "a.ts")
	assert.Contains(t, cs.Deleted, "b.ts")
	assert.Contains(t, cs.Added, "c.ts")
}

func TestDiffDetectsRename(t *testing.T) {
	dir := initRepo(t)
	writeAndCommit(t, dir, "old.ts", "export const a = 1;\nexport const b = 2;\nexport const c = 3;\n", "base")
	base := headRev(t, dir)

	runGit(t, dir, "mv", "old.ts", "new.ts")
	runGit(t, dir, "commit", "-q", "-m", "rename")

	g := New(dir)
	cs, err := g.Diff(context.Background(), base, "")
	require.NoError(t, err)

	require.Len(t, cs.Renamed, 1)
	assert.Equal(t, "old.ts", cs.Renamed[0].Old)
	assert.Equal(t, "new.ts", cs.Renamed[0].New)
}

func TestUncommittedIncludesUntrackedAsAdded(t *testing.T) {
	dir := initRepo(t)
	writeAndCommit(t, dir, "a.ts", "export const a = 1;", "base")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ts"), []byte("export const a = 2;"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.ts"), []byte("export const n = 1;"), 0o644))

	g := New(dir)
	cs, err := g.Uncommitted(context.Background())
	require.NoError(t, err)

	assert.Contains(t, cs.Modified, "a.ts")
	assert.Contains(t, cs.Added, "new.ts")
}

func TestMergeBaseResolvesCommonAncestor(t *testing.T) {
	dir := initRepo(t)
	writeAndCommit(t, dir, "a.ts", "1", "base")
	base := headRev(t, dir)
	runGit(t, dir, "checkout", "-b", "feature")
	writeAndCommit(t, dir, "b.ts", "2", "feature commit")

	g := New(dir)
	mb, err := g.MergeBase(context.Background(), "master")
	if err != nil {
		// default branch name may be "main" depending on git config.
		mb, err = g.MergeBase(context.Background(), "main")
	}
	require.NoError(t, err)
	assert.Equal(t, base, mb)
}

func headRev(t *testing.T, dir string) string {
	t.Helper()
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	require.NoError(t, err)
	return string(out[:len(out)-1])
}

func TestParseNameStatusHandlesAllStatusKinds(t *testing.T) {
	out := "M\ta.ts\nA\tb.ts\nD\tc.ts\nR90\told.ts\tnew.ts\n"
	cs := parseNameStatus(out)
	assert.Equal(t, []string{"a.ts"}, cs.Modified)
	assert.Equal(t, []string{"b.ts"}, cs.Added)
	assert.Equal(t, []string{"c.ts"}, cs.Deleted)
	require.Len(t, cs.Renamed, 1)
	assert.Equal(t, "old.ts", cs.Renamed[0].Old)
	assert.Equal(t, "new.ts", cs.Renamed[0].New)
}
