package match

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches_NoMarkerIsExactEquality(t *testing.T) {
	t.Parallel()

	cases := []struct {
		want, got string
	}{
		{"", ""},
		{"a", "a"},
		{"a", "b"},
		{"hello world", "hello world"},
		{"hello world", "hello  world"},
		{"abc", "ab"},
		{"..", "anything"}, // two dots are not a marker
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want == tc.got, Matches(tc.want, tc.got),
			"Matches(%q, %q) must equal plain equality", tc.want, tc.got)
	}
}

func TestMatches_Wildcard(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		want, got string
		expected  bool
	}{
		{"middle wildcard", "a...b", "axxxb", true},
		{"empty middle", "a...b", "ab", true},
		{"prefix anchored", "a...b", "zaxxxb", false},
		{"suffix anchored", "a...b", "axxxbz", false},
		{"unanchored both ends", "...b...a...", "zbqqa7", true},
		{"leading wildcard only", "...end", "the end", true},
		{"trailing wildcard only", "start...", "start of it", true},
		{"bare wildcard", "...", "", true},
		{"bare wildcard nonempty", "...", "anything at all", true},
		{"segments out of order", "a...b...c", "acb", false},
		{"segments in order", "a...b...c", "a1b2c", true},
		{"consecutive markers", "a......c", "abc", true},
		{"segment missing", "a...q...c", "a1b2c", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, Matches(tc.want, tc.got),
				"Matches(%q, %q)", tc.want, tc.got)
		})
	}
}

// TestMatches_InsufficientRoom covers the case where the anchored ends need
// more characters than got provides.
func TestMatches_InsufficientRoom(t *testing.T) {
	t.Parallel()

	assert.False(t, Matches("a...a...a", "aa"))
	assert.False(t, Matches("aa...aa", "aaa"))
	assert.True(t, Matches("a...a", "aa"))
}

// TestMatches_NonOverlapping verifies that segment occurrences never reuse
// characters consumed by an earlier segment.
func TestMatches_NonOverlapping(t *testing.T) {
	t.Parallel()

	// "ab" then "ba" cannot overlap on the middle "b".
	assert.False(t, Matches("ab...ba", "aba"))
	assert.True(t, Matches("ab...ba", "abba"))
}

func TestMatches_SelfMatch(t *testing.T) {
	t.Parallel()

	// A pattern always matches its own literal text: every segment appears
	// in order, markers match the marker characters themselves.
	for _, want := range []string{"a...b", "...x...", "plain"} {
		assert.True(t, Matches(want, want), "Matches(%q, %q)", want, want)
	}
}

func TestMatches_LongLine(t *testing.T) {
	t.Parallel()

	got := strings.Repeat("x", 10000) + " needle " + strings.Repeat("y", 10000)
	assert.True(t, Matches("...needle...", got))
	assert.False(t, Matches("...nodle...", got))
}

func ExampleMatches() {
	fmt.Println(Matches("loaded ... entries in ... ms", "loaded 941 entries in 3 ms"))
	fmt.Println(Matches("loaded ... entries in ... ms", "loaded 941 entries"))
	// Output:
	// true
	// false
}
