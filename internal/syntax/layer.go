package syntax

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"slices"
	"sync/atomic"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

const (
	// maxUint stands in for "to the end of the file" in ranges and cursors.
	maxUint = ^uint(0)
	maxInt  = int(maxUint >> 1)

	// defaultParseTimeout bounds a single tree-sitter parse. Grammars with
	// pathological error recovery can otherwise stall the update.
	defaultParseTimeout = 500 * time.Millisecond
)

var parseTimeoutNanos atomic.Int64

// SetParseTimeout adjusts the per-parse budget for every Syntax in the
// process. Zero or negative restores the default.
func SetParseTimeout(d time.Duration) {
	if d <= 0 {
		d = defaultParseTimeout
	}
	parseTimeoutNanos.Store(int64(d))
}

func parseTimeout() time.Duration {
	if n := parseTimeoutNanos.Load(); n > 0 {
		return time.Duration(n)
	}
	return defaultParseTimeout
}

// LayerID addresses a layer inside a Syntax arena. IDs are stable across
// updates for as long as the layer survives, and may be recycled after the
// layer is collected.
type LayerID int

const noLayer LayerID = -1

// layerFlags records what an edit batch did to a layer. Flags are
// transient: Update sets them while remapping ranges and clears them after
// the walk.
type layerFlags uint8

const (
	// layerModified means the layer's ranges changed shape, so its tree
	// must be reparsed.
	layerModified layerFlags = 1 << iota
	// layerMoved means the layer's ranges shifted without changing shape.
	// The tree is still valid once its positions are edited.
	layerMoved
	// layerTouched marks layers reached by the injection walk. Unreached
	// layers belong to injections that no longer exist and are collected.
	layerTouched
)

// LanguageLayer is one grammar parsing one slice of the document. The root
// layer covers everything; each injection adds a child layer restricted to
// the ranges its content nodes span.
type LanguageLayer struct {
	// Config is shared with every other layer of the same language.
	Config *HighlightConfiguration
	// Depth is the injection nesting depth, zero for the root.
	Depth int
	// Ranges is the subset of the document this layer parses, ascending
	// and non-overlapping.
	Ranges []tree_sitter.Range

	parent LayerID
	tree   *tree_sitter.Tree
	flags  layerFlags
}

// Tree returns the layer's current parse tree. It is nil only before the
// layer's first successful parse.
func (l *LanguageLayer) Tree() *tree_sitter.Tree {
	return l.tree
}

// Parent returns the layer that injected this one, or false for the root.
func (l *LanguageLayer) Parent() (LayerID, bool) {
	return l.parent, l.parent != noLayer
}

// parse reparses the layer's ranges, reusing the previous tree for
// incremental speedup when one exists.
func (l *LanguageLayer) parse(parser *tree_sitter.Parser, source []byte) error {
	if err := parser.SetIncludedRanges(l.Ranges); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRanges, err)
	}
	if err := parser.SetLanguage(l.Config.Language); err != nil {
		return fmt.Errorf("%w (%s): %v", ErrInvalidLanguage, l.Config.Name, err)
	}

	deadline := time.Now().Add(parseTimeout())
	options := &tree_sitter.ParseOptions{
		ProgressCallback: func(tree_sitter.ParseState) bool {
			return time.Now().After(deadline)
		},
	}
	tree := parser.ParseWithOptions(func(offset int, _ tree_sitter.Point) []byte {
		if offset < len(source) {
			return source[offset:]
		}
		return nil
	}, l.tree, options)
	if tree == nil {
		// A parser abandoned mid-parse must be reset before reuse.
		parser.Reset()
		return ErrCancelled
	}

	if l.tree != nil {
		l.tree.Close()
	}
	l.tree = tree
	return nil
}

// containsByteRange reports whether the byte range falls inside this
// layer's document slice. The span must start and end within the layer's
// outer bounds and touch at least one of its ranges.
func (l *LanguageLayer) containsByteRange(start, end uint) bool {
	if len(l.Ranges) == 0 {
		return false
	}
	if l.Ranges[0].StartByte > start || l.Ranges[len(l.Ranges)-1].EndByte < end {
		return false
	}
	for _, r := range l.Ranges {
		if (r.StartByte <= start && start < r.EndByte) || (r.StartByte < end && end <= r.EndByte) {
			return true
		}
	}
	return false
}

// layersEqual is the identity used to reuse layers across updates: same
// nesting depth, same grammar, same remapped ranges.
func layersEqual(a, b *LanguageLayer) bool {
	return a.Depth == b.Depth &&
		a.Config.Language == b.Config.Language &&
		slices.Equal(a.Ranges, b.Ranges)
}

// reuseKey hashes the fields layersEqual compares. Collisions are resolved
// by layersEqual, so hashing the language name instead of its pointer is
// fine.
func (l *LanguageLayer) reuseKey() uint64 {
	h := fnv.New64a()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(l.Depth))
	h.Write(buf[:])
	io.WriteString(h, l.Config.Name)
	for _, r := range l.Ranges {
		binary.LittleEndian.PutUint64(buf[:], uint64(r.StartByte))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(r.EndByte))
		h.Write(buf[:])
	}
	return h.Sum64()
}
