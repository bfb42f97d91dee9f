package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvtools/regtest/internal/normalize"
	"github.com/hvtools/regtest/internal/suite"
)

// writeFile writes content to a file inside dir and returns the full path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// makeCase builds a TestCase for a script written into its own temp dir.
func makeCase(t *testing.T, script string) suite.TestCase {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "sample.test", script)
	return suite.New(filepath.Join(dir, "sample.test"), t.TempDir())
}

// readArtifact returns the normalized lines of an output artifact.
func readArtifact(t *testing.T, path string) []string {
	t.Helper()
	lines, err := normalize.ReadAll(path)
	require.NoError(t, err)
	return lines
}

// --- BuildEnv ---------------------------------------------------------------

func TestBuildEnv_IsPureAndOrdered(t *testing.T) {
	t.Parallel()

	base := []string{"PATH=/usr/bin", "HOME=/home/u"}
	san := []string{"ASAN_OPTIONS=detect_leaks=1"}

	env := BuildEnv(base, "/bin/prog", "sample", san)
	assert.Equal(t, []string{
		"PATH=/usr/bin",
		"HOME=/home/u",
		"PROGRAM=/bin/prog",
		"TESTNAME=sample",
		"LC_ALL=C",
		"ASAN_OPTIONS=detect_leaks=1",
	}, env)

	// Inputs are not mutated.
	assert.Equal(t, []string{"PATH=/usr/bin", "HOME=/home/u"}, base)
}

func TestBuildEnv_ContractOverridesBase(t *testing.T) {
	t.Parallel()

	env := BuildEnv([]string{"LC_ALL=en_US.UTF-8"}, "/bin/prog", "x", nil)
	// Later entries win on duplicate keys for exec.Cmd.
	assert.Equal(t, "LC_ALL=en_US.UTF-8", env[0])
	assert.Equal(t, "LC_ALL=C", env[len(env)-1])
}

// --- SanitizerEnv -----------------------------------------------------------

func TestSanitizerEnv_FiltersSanitizerVariables(t *testing.T) {
	t.Parallel()

	environ := []string{
		"PATH=/usr/bin",
		"ASAN_OPTIONS=detect_leaks=1",
		"UBSAN_OPTIONS=halt_on_error=1",
		"TSAN_OPTIONS=history_size=4",
		"NOT_SAN=1",
		"MALFORMED",
	}
	assert.Equal(t, []string{
		"ASAN_OPTIONS=detect_leaks=1",
		"UBSAN_OPTIONS=halt_on_error=1",
		"TSAN_OPTIONS=history_size=4",
	}, SanitizerEnv(environ))
}

func TestSanitizerEnv_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, SanitizerEnv([]string{"PATH=/usr/bin"}))
}

// --- Run --------------------------------------------------------------------

func TestRun_CapturesCombinedOutput(t *testing.T) {
	t.Parallel()

	tc := makeCase(t, "echo to-stdout\necho to-stderr 1>&2\n")
	r := NewRunner(Options{})

	elapsed, err := r.Run(context.Background(), "/bin/true", tc)
	require.NoError(t, err)
	assert.Greater(t, elapsed.Nanoseconds(), int64(0))
	assert.Equal(t, []string{"to-stdout", "to-stderr"}, readArtifact(t, tc.OutputPath))
}

func TestRun_ExposesEnvContract(t *testing.T) {
	t.Parallel()

	tc := makeCase(t, "echo program=$PROGRAM\necho testname=$TESTNAME\necho lc=$LC_ALL\n")
	r := NewRunner(Options{})

	_, err := r.Run(context.Background(), "/opt/bin/prog", tc)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"program=/opt/bin/prog",
		"testname=sample",
		"lc=c",
	}, readArtifact(t, tc.OutputPath))
}

func TestRun_PassesSanitizerEnv(t *testing.T) {
	t.Parallel()

	tc := makeCase(t, "echo asan=$ASAN_OPTIONS\n")
	r := NewRunner(Options{SanitizerEnv: []string{"ASAN_OPTIONS=detect_leaks=1"}})

	_, err := r.Run(context.Background(), "/bin/true", tc)
	require.NoError(t, err)
	assert.Equal(t, []string{"asan=detect_leaks=1"}, readArtifact(t, tc.OutputPath))
}

// TestRun_SourcedInOwnDirectory proves the script runs with its containing
// directory as working directory: it can read a sibling file by relative
// name.
func TestRun_SourcedInOwnDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "data.txt", "sibling payload\n")
	writeFile(t, dir, "sample.test", "cat data.txt\n")
	tc := suite.New(filepath.Join(dir, "sample.test"), t.TempDir())

	r := NewRunner(Options{})
	_, err := r.Run(context.Background(), "/bin/true", tc)
	require.NoError(t, err)
	assert.Equal(t, []string{"sibling payload"}, readArtifact(t, tc.OutputPath))
}

// TestRun_NonZeroExitIsNotAnError pins the contract that a failing script is
// content to diff, not an executor failure.
func TestRun_NonZeroExitIsNotAnError(t *testing.T) {
	t.Parallel()

	tc := makeCase(t, "echo before exit\nexit 3\n")
	r := NewRunner(Options{})

	_, err := r.Run(context.Background(), "/bin/true", tc)
	require.NoError(t, err)
	assert.Equal(t, []string{"before exit"}, readArtifact(t, tc.OutputPath))
}

func TestRun_MissingInterpreterIsFatal(t *testing.T) {
	t.Parallel()

	tc := makeCase(t, "echo hi\n")
	r := NewRunner(Options{Interpreter: "definitely-not-a-real-shell"})

	_, err := r.Run(context.Background(), "/bin/true", tc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launching")
}

func TestRun_CompressedArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "sample.test", "echo Compressed Run\n")
	// Only an xz golden file: the captured output must be xz-marked too.
	writeFile(t, dir, "sample.exp.xz", "placeholder")
	tc := suite.New(filepath.Join(dir, "sample.test"), t.TempDir())
	require.True(t, tc.Compressed)

	r := NewRunner(Options{})
	_, err := r.Run(context.Background(), "/bin/true", tc)
	require.NoError(t, err)

	require.True(t, normalize.IsCompressed(tc.OutputPath))
	assert.Equal(t, []string{"compressed run"}, readArtifact(t, tc.OutputPath))
}

// TestRun_NoTemporaryLeftovers verifies the atomic write: after Run only the
// final artifact remains in the output directory.
func TestRun_NoTemporaryLeftovers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outDir := t.TempDir()
	writeFile(t, dir, "sample.test", "echo hi\n")
	tc := suite.New(filepath.Join(dir, "sample.test"), outDir)

	r := NewRunner(Options{})
	_, err := r.Run(context.Background(), "/bin/true", tc)
	require.NoError(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.Contains(entries[0].Name(), ".tmp-"))
}
