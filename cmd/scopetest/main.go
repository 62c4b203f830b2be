package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/scopetest-dev/scopetest/internal/logging"
	"github.com/scopetest-dev/scopetest/internal/workspace"
)

// version is set by goreleaser at build time.
var version = "dev"

// Exit codes per the external interface contract: 0 success (including "no
// affected tests"), 1 test-runner failure via -x, 2 usage/config error,
// 3 VCS error, 4 unreadable project root.
const (
	exitOK             = 0
	exitExecFailure    = 1
	exitUsage          = 2
	exitVCS            = 3
	exitRootUnreadable = 4
)

// cliError pins a specific exit code to a user-facing error message.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func usageErr(format string, args ...any) error {
	return &cliError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

func rootErr(format string, args ...any) error {
	return &cliError{code: exitRootUnreadable, err: fmt.Errorf(format, args...)}
}

func vcsErr(format string, args ...any) error {
	return &cliError{code: exitVCS, err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return exitUsage
	}

	log := logging.New()

	// An interrupt cancels the context, which the parallel build stages check
	// between work items; the cache is only written after a stage completes.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch args[0] {
	case "affected":
		err = runAffected(ctx, log, args[1:])
	case "build":
		err = runBuild(ctx, log, args[1:])
	case "why":
		err = runWhy(ctx, log, args[1:])
	case "coverage":
		err = runCoverage(ctx, log, args[1:])
	case "--serve-mcp", "serve-mcp":
		err = runServeMCP(ctx, args[1:])
	case "-h", "--help", "help":
		printUsage()
		return exitOK
	case "--version", "version":
		fmt.Println(version)
		return exitOK
	default:
		printUsage()
		return exitUsage
	}

	if err == nil {
		return exitOK
	}
	if errors.Is(err, errExecFailed) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitExecFailure
	}
	var cliErr *cliError
	if errors.As(err, &cliErr) {
		fmt.Fprintf(os.Stderr, "error: %v\n", cliErr.err)
		return cliErr.code
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return exitUsage
}

// resolveRoot turns a --root flag value (possibly empty, meaning cwd) into
// the project root: it ascends from the given (or current) directory until
// it finds a workspace marker, and verifies the result is a
// readable directory before any further work begins, since an unreadable
// root gets its own dedicated exit code.
func resolveRoot(flagRoot string) (string, error) {
	start := flagRoot
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", rootErr("resolving current directory: %w", err)
		}
		start = cwd
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", rootErr("resolving root %q: %w", flagRoot, err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return "", rootErr("project root %q is not a readable directory", abs)
	}
	root, err := workspace.FindRoot(abs)
	if err != nil {
		return "", rootErr("locating project root from %q: %w", abs, err)
	}
	return root, nil
}

func printUsage() {
	w := os.Stderr
	fmt.Fprintf(w, "scopetest v%s — minimal test selection for JS/TS monorepos\n\n", version)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  scopetest affected [--base <ref>] [--since <ref>] [--format paths|list|json|jest|vitest]")
	fmt.Fprintln(w, "                     [--exec <cmd>] [--fail-fast] [--threshold <N>] [--sources]")
	fmt.Fprintln(w, "                     [--no-cache] [--root <path>]")
	fmt.Fprintln(w, "  scopetest build    [--root <path>]")
	fmt.Fprintln(w, "  scopetest why <test-path> [--base <ref>] [--since <ref>] [--all] [--root <path>] [--no-cache]")
	fmt.Fprintln(w, "  scopetest coverage [--base <ref>] [--format list|json] [--root <path>]")
	fmt.Fprintln(w, "  scopetest --serve-mcp")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  scopetest affected --base main --format jest | xargs npx jest")
	fmt.Fprintln(w, "  scopetest affected --exec 'npx vitest run {}'")
	fmt.Fprintln(w, "  scopetest why src/api/client.test.ts --since HEAD~5")
}
