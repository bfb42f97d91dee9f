// Package match implements the wildcard line matcher used when comparing a
// golden expected line against a captured output line.
//
// An expected line may contain the literal marker "..." standing for any
// substring of the actual line. The marker never spans line boundaries; by
// the time Matches is called, both sides are single normalized lines.
package match

import "strings"

// Marker is the wildcard token recognized in expected lines.
const Marker = "..."

// Matches reports whether got satisfies want, treating each occurrence of
// Marker in want as a wildcard for an arbitrary (possibly empty) substring
// of got.
//
// Without a marker this is plain string equality. With markers, the literal
// segments of want must appear in got in order, non-overlapping, using the
// leftmost occurrence of each; a non-empty leading segment is anchored to
// the start of got and a non-empty trailing segment to its end. There is no
// partial or fuzzy fallback: any unresolved segment fails the whole match.
func Matches(want, got string) bool {
	if !strings.Contains(want, Marker) {
		return want == got
	}

	segs := strings.Split(want, Marker)

	// Exact matches possibly required at one or both ends.
	start, end := 0, len(got)
	if s := segs[0]; s != "" {
		if !strings.HasPrefix(got, s) {
			return false
		}
		start = len(s)
		segs = segs[1:]
	}
	if s := segs[len(segs)-1]; s != "" {
		if !strings.HasSuffix(got, s) {
			return false
		}
		end -= len(s)
		segs = segs[:len(segs)-1]
	}

	if start > end {
		// The anchored ends need more characters than got has,
		// as in Matches("aa...aa", "aaa").
		return false
	}

	// The rest only needs the leftmost non-overlapping occurrence of each
	// segment inside the remaining window. A segment may be empty when
	// want holds consecutive markers or a marker at either edge; searching
	// for "" succeeds at the cursor without advancing it.
	window := got[:end]
	for _, s := range segs {
		i := strings.Index(window[start:], s)
		if i < 0 {
			return false
		}
		start += i + len(s)
	}

	return true
}
