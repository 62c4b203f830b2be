package execrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureFile(t *testing.T) (*os.File, func() string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.txt")
	f, err := os.Create(path)
	require.NoError(t, err)
	return f, func() string {
		f.Close()
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return string(data)
	}
}

func TestRunEmptyFileListIsNoop(t *testing.T) {
	results, err := Run(context.Background(), nil, Options{Template: "true"})
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestRunSubstitutesBraceToken(t *testing.T) {
	out, read := captureFile(t)
	results, err := Run(context.Background(), []string{"a.test.ts", "b.test.ts"}, Options{
		Template: "echo {}",
		Stdout:   out,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].ExitCode)
	assert.Equal(t, "echo a.test.ts b.test.ts", results[0].Command)
	assert.Equal(t, "a.test.ts b.test.ts\n", read())
}

func TestRunAppendsFilesWhenNoBraceToken(t *testing.T) {
	results, err := Run(context.Background(), []string{"a.test.ts"}, Options{Template: "echo"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "echo a.test.ts", results[0].Command)
}

func TestRunReportsNonZeroExitCode(t *testing.T) {
	results, err := Run(context.Background(), []string{"a.test.ts"}, Options{Template: "exit 3 #"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].ExitCode)
}

func TestRunPerFileStopsOnFailFast(t *testing.T) {
	results, err := Run(context.Background(), []string{"a.test.ts", "b.test.ts", "c.test.ts"}, Options{
		Template: "test {} != b.test.ts",
		PerFile:  true,
		FailFast: true,
	})
	require.NoError(t, err)
	// "a.test.ts" passes (exit 0), "b.test.ts" fails (exit 1) and stops the run.
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].ExitCode)
	assert.Equal(t, 1, results[1].ExitCode)
}

func TestRunPerFileContinuesWithoutFailFast(t *testing.T) {
	results, err := Run(context.Background(), []string{"a.test.ts", "b.test.ts", "c.test.ts"}, Options{
		Template: "test {} != b.test.ts",
		PerFile:  true,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 1, results[1].ExitCode)
}
