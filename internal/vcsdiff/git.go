// Package vcsdiff turns a git working-tree or ref comparison into a
// model.Changeset by shelling out to the git binary rather than carrying a
// Go git library, so the tool never needs its own pack/ref implementation
// and always matches whatever git the user has installed.
package vcsdiff

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/scopetest-dev/scopetest/internal/model"
)

// Git resolves changesets against a repository rooted at Dir.
type Git struct {
	Dir string
}

// New returns a Git adapter rooted at dir.
func New(dir string) *Git {
	return &Git{Dir: dir}
}

// Diff computes the changeset between base and the working tree (if since
// is empty) or between base and since (two fixed refs). Rename detection is
// requested explicitly via -M so a file moved without content changes
// surfaces as a RenamePair instead of a delete+add.
func (g *Git) Diff(ctx context.Context, base, since string) (model.Changeset, error) {
	args := []string{"diff", "--name-status", "-M", base}
	if since != "" {
		args = append(args, since)
	}
	out, err := g.run(ctx, args...)
	if err != nil {
		return model.Changeset{}, fmt.Errorf("git diff: %w", err)
	}
	return parseNameStatus(out), nil
}

// MergeBase resolves the common ancestor of the current HEAD and ref, the
// usual base for a "what changed on this branch" comparison.
func (g *Git) MergeBase(ctx context.Context, ref string) (string, error) {
	out, err := g.run(ctx, "merge-base", "HEAD", ref)
	if err != nil {
		return "", fmt.Errorf("git merge-base: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Uncommitted reports the changeset of unstaged and staged working-tree
// modifications plus untracked files, for the no-argument "what did I just
// touch" case.
func (g *Git) Uncommitted(ctx context.Context) (model.Changeset, error) {
	tracked, err := g.run(ctx, "diff", "--name-status", "-M", "HEAD")
	if err != nil {
		return model.Changeset{}, fmt.Errorf("git diff HEAD: %w", err)
	}
	cs := parseNameStatus(tracked)

	untracked, err := g.run(ctx, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return model.Changeset{}, fmt.Errorf("git ls-files: %w", err)
	}
	for _, line := range strings.Split(strings.TrimRight(untracked, "\n"), "\n") {
		if line != "" {
			cs.Added = append(cs.Added, line)
		}
	}
	return cs, nil
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// parseNameStatus reads `git diff --name-status -M` output: one line per
// changed path, a status letter (A/M/D/Rnn) followed by a tab and one or
// (for renames) two paths.
func parseNameStatus(out string) model.Changeset {
	var cs model.Changeset
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		status := fields[0]
		switch {
		case strings.HasPrefix(status, "R"):
			if len(fields) >= 3 {
				cs.Renamed = append(cs.Renamed, model.RenamePair{Old: fields[1], New: fields[2]})
			}
		case status == "A":
			cs.Added = append(cs.Added, fields[1])
		case status == "D":
			cs.Deleted = append(cs.Deleted, fields[1])
		default: // M, T, etc. all treated as a content modification
			cs.Modified = append(cs.Modified, fields[1])
		}
	}
	return cs
}
