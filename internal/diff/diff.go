// Package diff decides whether a captured output file matches its golden
// expected file and, on mismatch, renders a human-readable unified diff.
package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/hvtools/regtest/internal/match"
	"github.com/hvtools/regtest/internal/normalize"
)

// DefaultMaxLines is the default cap on rendered diff lines.
const DefaultMaxLines = 200

// TruncationMarker is appended whenever a rendered diff is cut to the
// configured maximum; a diff is never cut silently.
const TruncationMarker = "... (diff truncated)"

// diffContext is the number of unchanged context lines around each hunk.
const diffContext = 3

// Result is the outcome of comparing an expected file to an actual file.
type Result struct {
	// Equal is the pass/fail verdict under ellipsis-aware matching.
	Equal bool
	// Diff holds the rendered (possibly truncated) unified diff when Equal
	// is false; empty otherwise.
	Diff string
}

// Option configures a Compare call.
type Option func(*options)

type options struct {
	maxLines int
}

// WithMaxLines caps the rendered diff at n lines. Values below 1 keep the
// default.
func WithMaxLines(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.maxLines = n
		}
	}
}

// Compare runs the two-phase comparison of the normalized contents of
// expectedPath and actualPath.
//
// Phase one streams both normalized sequences in lockstep, padding the
// shorter side with empty strings, and hands each pair to match.Matches
// with the expected line as the pattern. The first non-matching pair
// short-circuits the scan; the common all-pass case never materializes
// either file.
//
// Phase two, entered only on mismatch, materializes both sequences and
// renders a unified diff with the two paths as context headers.
//
// The two phases deliberately use different matching semantics: the verdict
// is position-paired and ellipsis-aware, while the rendered diff is a plain
// textual alignment of the normalized sequences. A wildcard-matched region
// may therefore still show up as a difference in a rendered diff that some
// other line triggered. Wildcard matching is not expressible in a standard
// diff algorithm, so the asymmetry is a contract, not a bug.
//
// Decode and I/O errors from either side are returned to the caller, never
// folded into the verdict.
func Compare(expectedPath, actualPath string, opts ...Option) (Result, error) {
	o := options{maxLines: DefaultMaxLines}
	for _, opt := range opts {
		opt(&o)
	}

	equal, err := probe(expectedPath, actualPath)
	if err != nil {
		return Result{}, err
	}
	if equal {
		return Result{Equal: true}, nil
	}

	rendered, err := render(expectedPath, actualPath, o.maxLines)
	if err != nil {
		return Result{}, err
	}
	return Result{Equal: false, Diff: rendered}, nil
}

// probe streams both files and reports whether every position-paired
// normalized line matches under ellipsis semantics.
func probe(expectedPath, actualPath string) (bool, error) {
	want, err := normalize.Open(expectedPath)
	if err != nil {
		return false, err
	}
	defer want.Close()

	got, err := normalize.Open(actualPath)
	if err != nil {
		return false, err
	}
	defer got.Close()

	for {
		moreWant := want.Scan()
		moreGot := got.Scan()
		if !moreWant {
			if err := want.Err(); err != nil {
				return false, err
			}
		}
		if !moreGot {
			if err := got.Err(); err != nil {
				return false, err
			}
		}
		if !moreWant && !moreGot {
			return true, nil
		}

		// The shorter sequence is padded with empty lines, so a trailing
		// extra line surfaces as a content mismatch, not a length error.
		var w, g string
		if moreWant {
			w = want.Text()
		}
		if moreGot {
			g = got.Text()
		}
		if !match.Matches(w, g) {
			return false, nil
		}
	}
}

// render materializes both normalized sequences and produces the truncated
// unified diff text.
func render(expectedPath, actualPath string, maxLines int) (string, error) {
	wantLines, err := normalize.ReadAll(expectedPath)
	if err != nil {
		return "", err
	}
	gotLines, err := normalize.ReadAll(actualPath)
	if err != nil {
		return "", err
	}

	ud := difflib.UnifiedDiff{
		A:        terminateLines(wantLines),
		B:        terminateLines(gotLines),
		FromFile: expectedPath,
		ToFile:   actualPath,
		Context:  diffContext,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("rendering diff for %s: %w", actualPath, err)
	}

	return truncate(strings.TrimRight(text, "\n"), maxLines), nil
}

// terminateLines appends the newline terminator difflib expects on every
// input line.
func terminateLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}

// truncate cuts text to at most maxLines lines, appending the explicit
// truncation marker when anything was dropped.
func truncate(text string, maxLines int) string {
	if text == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	return strings.Join(lines[:maxLines], "\n") + "\n" + TruncationMarker
}
