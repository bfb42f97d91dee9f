// Package normalize streams normalized lines from test artifacts.
//
// Both golden expected files and captured output files pass through the same
// normalization before comparison: every maximal whitespace run collapses to
// a single space, leading and trailing whitespace is stripped, the line is
// lower-cased, and lines that normalize to the empty string are dropped.
// Because blank lines are elided, positions in the normalized sequence do not
// correspond to physical line numbers in the source file.
//
// Files whose path ends in the ".xz" compression marker are decompressed
// transparently while streaming; the decompressed content is never held in
// memory as a single buffer.
package normalize

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ulikunitz/xz"
)

// CompressedSuffix is the path marker for xz-compressed artifacts.
const CompressedSuffix = ".xz"

// maxLineBytes bounds a single physical line. Normalized comparison operates
// line-by-line, so this is the only per-line memory bound while streaming.
const maxLineBytes = 4 * 1024 * 1024

var reWhitespace = regexp.MustCompile(`\s+`)

// DecodeError reports non-UTF-8 content in a file expected to be text.
type DecodeError struct {
	// Path is the file containing the offending bytes.
	Path string
	// PhysicalLine is the 1-based physical line number before normalization.
	PhysicalLine int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: line %d is not valid UTF-8", e.Path, e.PhysicalLine)
}

// IsCompressed reports whether path carries the compression marker suffix.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, CompressedSuffix)
}

// Line normalizes a single raw line: whitespace runs collapse to one space,
// the result is trimmed and lower-cased. Normalization is idempotent.
func Line(raw string) string {
	return strings.ToLower(strings.TrimSpace(reWhitespace.ReplaceAllString(raw, " ")))
}

// Scanner lazily yields normalized lines from a text or xz-compressed text
// file, in the style of bufio.Scanner. A Scanner is not resumable mid-stream;
// to restart from the beginning, Open the path again.
type Scanner struct {
	path     string
	file     *os.File
	scan     *bufio.Scanner
	text     string
	physical int
	err      error
}

// Open prepares a Scanner for the given path, transparently selecting the
// xz decompression path when the compression marker is present.
func Open(path string) (*Scanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	var r io.Reader = f
	if IsCompressed(path) {
		xr, err := xz.NewReader(bufio.NewReader(f))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("opening xz stream %s: %w", path, err)
		}
		r = xr
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Scanner{path: path, file: f, scan: sc}, nil
}

// Scan advances to the next non-blank normalized line. It returns false when
// the input is exhausted or an error occurred; Err distinguishes the two.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for s.scan.Scan() {
		s.physical++
		raw := s.scan.Text()
		if !utf8.ValidString(raw) {
			s.err = &DecodeError{Path: s.path, PhysicalLine: s.physical}
			return false
		}
		line := Line(raw)
		if line == "" {
			continue
		}
		s.text = line
		return true
	}
	if err := s.scan.Err(); err != nil {
		s.err = fmt.Errorf("reading %s: %w", s.path, err)
	}
	return false
}

// Text returns the normalized line produced by the last successful Scan.
func (s *Scanner) Text() string { return s.text }

// Err returns the first error encountered while scanning, if any.
// A *DecodeError is returned as-is and can be recovered with errors.As.
func (s *Scanner) Err() error { return s.err }

// Close releases the underlying file.
func (s *Scanner) Close() error { return s.file.Close() }

// ReadAll materializes the full normalized line sequence of path. Only the
// diff-rendering path needs this; the equality probe streams instead.
func ReadAll(path string) ([]string, error) {
	sc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer sc.Close()

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
