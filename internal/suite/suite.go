// Package suite models test cases and their on-disk layout.
//
// A test is a shell-driven script with the ".test" suffix. Its golden
// expected output lives next to it with the suffix swapped for ".exp", and
// either file may additionally carry the ".xz" compression marker. The
// captured-output artifact for a run is placed in a shared output directory
// under a name derived from the full test path, so tests with identical base
// names in different directories can never collide.
package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"

	"github.com/hvtools/regtest/internal/normalize"
)

const (
	// TestSuffix is the conventional suffix of a test script.
	TestSuffix = ".test"
	// ExpectedSuffix replaces TestSuffix to name the golden sibling.
	ExpectedSuffix = ".exp"
	// OutputSuffix names a captured-output artifact.
	OutputSuffix = ".out"
)

// TestCase identifies one test script and its derived artifact paths.
// It is constructed once at discovery time and immutable thereafter.
type TestCase struct {
	// Path is the test script path as given on the command line or found
	// by discovery.
	Path string
	// Name is the test's logical name: its base name without TestSuffix.
	Name string
	// ExpectedPath is the golden expected-output file, possibly carrying
	// the compression marker.
	ExpectedPath string
	// OutputPath is where the captured output for this run is written.
	// It carries the compression marker exactly when ExpectedPath does.
	OutputPath string
	// Compressed reports whether both artifacts use the xz container.
	Compressed bool
}

// New derives the TestCase for testPath, placing its output artifact in
// outDir.
//
// The expected sibling is testPath with ".test" replaced by ".exp". The
// compressed ".exp.xz" variant is consulted only when the plain ".exp" is
// absent or unreadable; when it wins, the output artifact is xz-marked too
// so suffix-based codec selection lines up on both sides of the comparison.
func New(testPath, outDir string) TestCase {
	name := strings.TrimSuffix(filepath.Base(testPath), TestSuffix)

	expected := strings.TrimSuffix(testPath, TestSuffix) + ExpectedSuffix
	compressed := false
	if !readable(expected) && readable(expected+normalize.CompressedSuffix) {
		expected += normalize.CompressedSuffix
		compressed = true
	}

	// The hash of the full test path keeps artifact names unique even when
	// two tests share a base name in different directories.
	output := filepath.Join(outDir, fmt.Sprintf("%016x-%s%s", xxhash.Sum64String(testPath), name, OutputSuffix))
	if compressed {
		output += normalize.CompressedSuffix
	}

	return TestCase{
		Path:         testPath,
		Name:         name,
		ExpectedPath: expected,
		OutputPath:   output,
		Compressed:   compressed,
	}
}

// Discover returns every file matching **/*.test under root, recursively,
// in sorted order. Paths are reported relative to root when root is ".".
func Discover(root string) ([]string, error) {
	pattern := filepath.Join(root, "**", "*"+TestSuffix)
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("discovering tests under %s: %w", root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Validate checks explicitly given test paths: each must carry the test
// suffix and name an existing readable file. The first offending path is
// reported; validation happens before any test runs.
func Validate(paths []string) error {
	for _, p := range paths {
		if !strings.HasSuffix(p, TestSuffix) {
			return fmt.Errorf("%s is not a test file", p)
		}
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() || !readable(p) {
			return fmt.Errorf("%s not found or not readable", p)
		}
	}
	return nil
}

// IsExecutable reports whether path names an existing, executable,
// non-empty regular file.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil &&
		info.Mode().IsRegular() &&
		info.Mode().Perm()&0o111 != 0 &&
		info.Size() > 0
}

// ExpandUser replaces a leading "~" in path with the current user's home
// directory. Paths without the prefix are returned unchanged.
func ExpandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// readable reports whether path can be opened for reading.
func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
