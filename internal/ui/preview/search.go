package preview

import (
	"bytes"
	"sort"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/zjrosen/sheen/internal/syntax"
	"github.com/zjrosen/sheen/internal/theme"
)

// match is one occurrence of the search query, addressed by byte range and
// by the line containing it.
type match struct {
	start int
	end   int
	line  int
}

// lineIndex holds the start offset of every line so byte offsets can be
// translated to line numbers without rescanning the source.
type lineIndex []int

func newLineIndex(source []byte) lineIndex {
	idx := lineIndex{0}
	for i, b := range source {
		if b == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

// lineFor returns the zero-based line containing the byte offset.
func (ix lineIndex) lineFor(offset int) int {
	return sort.Search(len(ix), func(i int) bool { return ix[i] > offset }) - 1
}

// findMatches locates every non-overlapping occurrence of query in source,
// in order. Matching is case-insensitive unless the query contains an
// upper-case letter.
func findMatches(source []byte, ix lineIndex, query string) []match {
	if query == "" {
		return nil
	}

	haystack := source
	needle := []byte(query)
	if strings.ToLower(query) == query {
		// ASCII-only folding keeps byte offsets stable
		haystack = lowerASCII(source)
	}

	var matches []match
	offset := 0
	for {
		i := bytes.Index(haystack[offset:], needle)
		if i < 0 {
			return matches
		}
		start := offset + i
		matches = append(matches, match{
			start: start,
			end:   start + len(needle),
			line:  ix.lineFor(start),
		})
		offset = start + len(needle)
	}
}

func lowerASCII(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

// matchSpans converts matches into overlay spans that merge with the
// syntax spans of the document.
func matchSpans(matches []match) []syntax.Span {
	spans := make([]syntax.Span, len(matches))
	for i, mt := range matches {
		spans[i] = syntax.Span{Scope: theme.HighlightSearch, Start: mt.start, End: mt.end}
	}
	return spans
}

// displayColumn converts a byte offset into a zero-based terminal column on
// its line, measured in grapheme cluster widths so wide runes and combining
// marks report where the terminal actually draws them.
func displayColumn(source []byte, ix lineIndex, offset int) int {
	line := ix.lineFor(offset)
	start := ix[line]
	if offset < start {
		return 0
	}
	if offset > len(source) {
		offset = len(source)
	}
	return uniseg.StringWidth(string(source[start:offset]))
}
