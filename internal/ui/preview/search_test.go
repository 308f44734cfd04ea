package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/sheen/internal/theme"
)

func TestNewLineIndex(t *testing.T) {
	ix := newLineIndex([]byte("ab\ncd\n\nef"))
	assert.Equal(t, lineIndex{0, 3, 6, 7}, ix)
}

func TestLineIndex_EmptySource(t *testing.T) {
	ix := newLineIndex(nil)
	assert.Equal(t, lineIndex{0}, ix)
	assert.Equal(t, 0, ix.lineFor(0))
}

func TestLineFor(t *testing.T) {
	src := []byte("ab\ncd\n\nef")
	ix := newLineIndex(src)

	tests := []struct {
		offset, line int
	}{
		{0, 0},
		{2, 0}, // the newline itself belongs to its line
		{3, 1},
		{5, 1},
		{6, 2}, // empty line
		{7, 3},
		{8, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.line, ix.lineFor(tt.offset), "offset %d", tt.offset)
	}
}

func TestFindMatches_Basic(t *testing.T) {
	src := []byte("one two one\ntwo one\n")
	ix := newLineIndex(src)

	matches := findMatches(src, ix, "one")
	require.Len(t, matches, 3)
	assert.Equal(t, match{start: 0, end: 3, line: 0}, matches[0])
	assert.Equal(t, match{start: 8, end: 11, line: 0}, matches[1])
	assert.Equal(t, match{start: 16, end: 19, line: 1}, matches[2])
}

func TestFindMatches_EmptyQuery(t *testing.T) {
	src := []byte("anything")
	assert.Nil(t, findMatches(src, newLineIndex(src), ""))
}

func TestFindMatches_Smartcase(t *testing.T) {
	src := []byte("Total total TOTAL")
	ix := newLineIndex(src)

	// All lower-case query matches any casing
	assert.Len(t, findMatches(src, ix, "total"), 3)

	// An upper-case letter makes the query exact
	matches := findMatches(src, ix, "Total")
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].start)
}

func TestFindMatches_NonOverlapping(t *testing.T) {
	src := []byte("aaaa")
	matches := findMatches(src, newLineIndex(src), "aa")
	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].start)
	assert.Equal(t, 2, matches[1].start)
}

func TestFindMatches_OffsetsIndexOriginalSource(t *testing.T) {
	// Case folding must not shift byte offsets
	src := []byte("XY\nABCD")
	matches := findMatches(src, newLineIndex(src), "abc")
	require.Len(t, matches, 1)
	assert.Equal(t, "ABC", string(src[matches[0].start:matches[0].end]))
	assert.Equal(t, 1, matches[0].line)
}

func TestMatchSpans(t *testing.T) {
	spans := matchSpans([]match{
		{start: 2, end: 5, line: 0},
		{start: 9, end: 12, line: 1},
	})
	require.Len(t, spans, 2)
	for _, sp := range spans {
		assert.Equal(t, theme.HighlightSearch, sp.Scope)
	}
	assert.Equal(t, 2, spans[0].Start)
	assert.Equal(t, 5, spans[0].End)
}

func TestDisplayColumn(t *testing.T) {
	src := []byte("ab\ncdef")
	ix := newLineIndex(src)

	assert.Equal(t, 0, displayColumn(src, ix, 0))
	assert.Equal(t, 1, displayColumn(src, ix, 1))
	assert.Equal(t, 0, displayColumn(src, ix, 3))
	assert.Equal(t, 2, displayColumn(src, ix, 5))
}

func TestDisplayColumn_WideRunes(t *testing.T) {
	src := []byte("日本語x")
	ix := newLineIndex(src)

	// Each CJK rune is 3 bytes wide in UTF-8 and 2 cells wide on screen
	assert.Equal(t, 6, displayColumn(src, ix, 9))
}

func TestDisplayColumn_ClampsPastEnd(t *testing.T) {
	src := []byte("ab")
	ix := newLineIndex(src)
	assert.Equal(t, 2, displayColumn(src, ix, 99))
}
