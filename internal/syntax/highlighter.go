package syntax

import (
	"sort"
	"sync/atomic"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// captureIter wraps a layer's capture stream with one element of lookahead.
type captureIter struct {
	captures tree_sitter.QueryCaptures
	peeked   bool
	match    *tree_sitter.QueryMatch
	index    uint
}

func newCaptureIter(cursor *tree_sitter.QueryCursor, query *tree_sitter.Query, node *tree_sitter.Node, source []byte) *captureIter {
	return &captureIter{captures: cursor.Captures(query, node, source)}
}

func (ci *captureIter) peek() (*tree_sitter.QueryMatch, uint, bool) {
	if !ci.peeked {
		ci.match, ci.index = ci.captures.Next()
		ci.peeked = true
	}
	return ci.match, ci.index, ci.match != nil
}

func (ci *captureIter) next() (*tree_sitter.QueryMatch, uint, bool) {
	if ci.peeked {
		ci.peeked = false
		return ci.match, ci.index, ci.match != nil
	}
	m, i := ci.captures.Next()
	return m, i, m != nil
}

// localDef is a definition tracked inside a local scope. Its highlight is
// filled in when the definition node reaches the highlight phase, and
// references that resolve to it inherit that value.
type localDef struct {
	name      string
	valueEnd  int
	highlight Highlight
}

// localScope is one `@local.scope` region. The stack always carries a
// non-inheriting sentinel covering the whole document at the bottom.
type localScope struct {
	inherits bool
	start    int
	end      int
	defs     []localDef
}

// highlightIterLayer is one syntax layer's cursor state during a highlight
// pass.
type highlightIterLayer struct {
	cursor            *tree_sitter.QueryCursor
	captures          *captureIter
	config            *HighlightConfiguration
	highlightEndStack []int
	scopeStack        []localScope
	depth             int
}

// layerSortKey orders layers by their next pending boundary. Ends sort
// before starts at the same offset, and deeper layers before shallower
// ones, so nesting stays balanced when layers touch.
type layerSortKey struct {
	offset  int
	isStart bool
	depth   int
	ok      bool
}

func (l *highlightIterLayer) sortKey() layerSortKey {
	hasStart := false
	nextStart := 0
	if m, idx, ok := l.captures.peek(); ok {
		nextStart = int(m.Captures[idx].Node.StartByte())
		hasStart = true
	}

	hasEnd := false
	nextEnd := 0
	if n := len(l.highlightEndStack); n > 0 {
		nextEnd = l.highlightEndStack[n-1]
		hasEnd = true
	}

	switch {
	case hasStart && hasEnd:
		if nextStart < nextEnd {
			return layerSortKey{offset: nextStart, isStart: true, depth: l.depth, ok: true}
		}
		return layerSortKey{offset: nextEnd, isStart: false, depth: l.depth, ok: true}
	case hasStart:
		return layerSortKey{offset: nextStart, isStart: true, depth: l.depth, ok: true}
	case hasEnd:
		return layerSortKey{offset: nextEnd, isStart: false, depth: l.depth, ok: true}
	default:
		return layerSortKey{}
	}
}

func keyLess(a, b layerSortKey) bool {
	if a.offset != b.offset {
		return a.offset < b.offset
	}
	if a.isStart != b.isStart {
		return !a.isStart
	}
	return a.depth > b.depth
}

// HighlightIter merges the captures of every live layer into one ordered,
// well nested stream of highlight events. Use it like bufio.Scanner:
//
//	iter := syn.Highlight(source, nil)
//	for iter.Scan() {
//		ev := iter.Event()
//		...
//	}
//	if err := iter.Err(); err != nil { ... }
type HighlightIter struct {
	source       []byte
	byteOffset   int
	cancellation *atomic.Bool
	layers       []*highlightIterLayer
	iterCount    int
	nextEvent    HighlightEvent
	current      HighlightEvent
	err          error

	lastRangeValid bool
	lastStart      int
	lastEnd        int
	lastDepth      int
}

// Highlight returns a highlight event iterator over the whole source. A
// non-nil cancellation flag is polled during iteration; setting it makes
// Scan stop with ErrCancelled.
func (s *Syntax) Highlight(source []byte, cancellation *atomic.Bool) *HighlightIter {
	return s.HighlightRange(source, 0, len(source), cancellation)
}

// HighlightRange returns a highlight event iterator for the byte range
// [start, end). Captures whose nodes intersect the range are included; the
// trailing source event runs to the end of source, so callers rendering a
// window should stop consuming at end.
func (s *Syntax) HighlightRange(source []byte, start, end int, cancellation *atomic.Bool) *HighlightIter {
	h := &HighlightIter{
		source:       source,
		byteOffset:   start,
		cancellation: cancellation,
	}

	for _, layer := range s.layers {
		if layer == nil {
			continue
		}
		cursor := acquireCursor()
		cursor.SetByteRange(uint(start), uint(end))
		captures := newCaptureIter(cursor, layer.Config.query, layer.tree.RootNode(), source)
		if _, _, ok := captures.peek(); !ok {
			// Layer has nothing to say about this range.
			releaseCursor(cursor)
			continue
		}
		h.layers = append(h.layers, &highlightIterLayer{
			cursor:   cursor,
			captures: captures,
			config:   layer.Config,
			depth:    layer.Depth,
			scopeStack: []localScope{{
				inherits: false,
				start:    0,
				end:      maxInt,
			}},
		})
	}

	sort.SliceStable(h.layers, func(i, j int) bool {
		return keyLess(h.layers[i].sortKey(), h.layers[j].sortKey())
	})
	h.sortLayers()
	return h
}

// Scan advances to the next event. It returns false when the stream is
// exhausted or cancelled; Err tells the two apart.
func (h *HighlightIter) Scan() bool {
	ev, err := h.next()
	if err != nil {
		h.err = err
		h.release()
		return false
	}
	if ev == nil {
		h.release()
		return false
	}
	h.current = ev
	return true
}

// Event returns the event Scan stopped on.
func (h *HighlightIter) Event() HighlightEvent {
	return h.current
}

// Err returns ErrCancelled when iteration was cut short, nil otherwise.
func (h *HighlightIter) Err() error {
	return h.err
}

// Close releases the iterator's cursors. It is only needed when abandoning
// iteration before Scan has returned false.
func (h *HighlightIter) Close() {
	h.release()
}

func (h *HighlightIter) release() {
	for _, layer := range h.layers {
		releaseCursor(layer.cursor)
	}
	h.layers = nil
}

func (h *HighlightIter) removeLayer(i int) {
	releaseCursor(h.layers[i].cursor)
	h.layers = append(h.layers[:i], h.layers[i+1:]...)
}

// sortLayers restores the layer order invariant: the layer with the
// smallest pending boundary sits at the front. Layers with nothing pending
// are dropped on the way.
func (h *HighlightIter) sortLayers() {
	for len(h.layers) > 0 {
		key := h.layers[0].sortKey()
		if !key.ok {
			h.removeLayer(0)
			continue
		}
		i := 0
		for i+1 < len(h.layers) {
			next := h.layers[i+1].sortKey()
			if next.ok {
				if keyLess(next, key) {
					i++
					continue
				}
			} else {
				h.removeLayer(i + 1)
			}
			break
		}
		if i > 0 {
			first := h.layers[0]
			copy(h.layers[0:i], h.layers[1:i+1])
			h.layers[i] = first
		}
		break
	}
}

// emitEvent hands out an event at offset, first flushing the source run
// between the cursor and the offset. A flushed event is stashed and
// returned by the next call.
func (h *HighlightIter) emitEvent(offset int, event HighlightEvent) HighlightEvent {
	var result HighlightEvent
	if h.byteOffset < offset {
		result = EventSource{Start: h.byteOffset, End: offset}
		h.byteOffset = offset
		h.nextEvent = event
	} else {
		result = event
	}
	h.sortLayers()
	return result
}

// next produces the next event of the merged stream, nil when exhausted.
func (h *HighlightIter) next() (HighlightEvent, error) {
main:
	for {
		// An event stashed by emitEvent goes out first.
		if h.nextEvent != nil {
			ev := h.nextEvent
			h.nextEvent = nil
			return ev, nil
		}

		if h.cancellation != nil {
			h.iterCount++
			if h.iterCount >= cancellationCheckInterval {
				h.iterCount = 0
				if h.cancellation.Load() {
					return nil, ErrCancelled
				}
			}
		}

		// All layers drained: emit whatever source remains.
		if len(h.layers) == 0 {
			if h.byteOffset < len(h.source) {
				ev := EventSource{Start: h.byteOffset, End: len(h.source)}
				h.byteOffset = len(h.source)
				return ev, nil
			}
			return nil, nil
		}

		layer := h.layers[0]

		var rangeStart, rangeEnd int
		if m, idx, ok := layer.captures.peek(); ok {
			capture := m.Captures[idx]
			rangeStart = int(capture.Node.StartByte())
			rangeEnd = int(capture.Node.EndByte())

			// A pending highlight that ends before the next capture starts
			// is closed first.
			if n := len(layer.highlightEndStack); n > 0 {
				endByte := layer.highlightEndStack[n-1]
				if endByte <= rangeStart {
					layer.highlightEndStack = layer.highlightEndStack[:n-1]
					return h.emitEvent(endByte, EventHighlightEnd{}), nil
				}
			}
		} else {
			// This layer is out of captures: drain its end stack, then
			// flush the remaining source.
			if n := len(layer.highlightEndStack); n > 0 {
				endByte := layer.highlightEndStack[n-1]
				layer.highlightEndStack = layer.highlightEndStack[:n-1]
				return h.emitEvent(endByte, EventHighlightEnd{}), nil
			}
			if ev := h.emitEvent(len(h.source), nil); ev != nil {
				return ev, nil
			}
			return nil, nil
		}

		match, captureIndex, _ := layer.captures.next()
		capture := match.Captures[captureIndex]

		// Leave local scopes the cursor has moved past. The sentinel at the
		// bottom never pops.
		for rangeStart > layer.scopeStack[len(layer.scopeStack)-1].end {
			layer.scopeStack = layer.scopeStack[:len(layer.scopeStack)-1]
		}

		// Patterns below highlightsPatternIndex come from the locals query:
		// track scopes, definitions, and references before any highlighting
		// decision for this node.
		refHighlight := HighlightNone
		defScope, defIndex := -1, -1

		for uint(match.PatternIndex) < layer.config.highlightsPatternIndex {
			switch int(capture.Index) {
			case layer.config.localScopeCapture:
				defScope, defIndex = -1, -1
				scope := localScope{
					inherits: true,
					start:    rangeStart,
					end:      rangeEnd,
				}
				for _, prop := range layer.config.query.PropertySettings(uint(match.PatternIndex)) {
					if prop.Key == "local.scope-inherits" {
						scope.inherits = prop.Value == nil || *prop.Value == "true"
					}
				}
				layer.scopeStack = append(layer.scopeStack, scope)

			case layer.config.localDefCapture:
				refHighlight = HighlightNone
				si := len(layer.scopeStack) - 1
				valueEnd := 0
				for i := range match.Captures {
					c := &match.Captures[i]
					if int(c.Index) == layer.config.localDefValueCapture {
						valueEnd = int(c.Node.EndByte())
					}
				}
				layer.scopeStack[si].defs = append(layer.scopeStack[si].defs, localDef{
					name:      string(h.source[rangeStart:rangeEnd]),
					valueEnd:  valueEnd,
					highlight: HighlightNone,
				})
				defScope, defIndex = si, len(layer.scopeStack[si].defs)-1

			case layer.config.localRefCapture:
				if defIndex < 0 {
					name := string(h.source[rangeStart:rangeEnd])
					for si := len(layer.scopeStack) - 1; si >= 0; si-- {
						scope := &layer.scopeStack[si]
						found := false
						for di := len(scope.defs) - 1; di >= 0; di-- {
							def := &scope.defs[di]
							// A reference only sees definitions whose value
							// ended before it.
							if def.name == name && rangeStart >= def.valueEnd {
								refHighlight = def.highlight
								found = true
								break
							}
						}
						if found || !scope.inherits {
							break
						}
					}
				}
			}

			// Further captures of the same node continue the locals pass.
			if nm, nci, ok := layer.captures.peek(); ok {
				nextCapture := nm.Captures[nci]
				if nextCapture.Node.Id() == capture.Node.Id() {
					capture = nextCapture
					match, _, _ = layer.captures.next()
					continue
				}
			}
			h.sortLayers()
			continue main
		}

		// A node a deeper layer already highlighted keeps that highlight.
		if h.lastRangeValid && rangeStart == h.lastStart && rangeEnd == h.lastEnd && layer.depth < h.lastDepth {
			h.sortLayers()
			continue main
		}

		// Local variables skip highlight patterns marked `#is-not? local`.
		if defIndex >= 0 || refHighlight != HighlightNone {
			for layer.config.nonLocalVariablePatterns[match.PatternIndex] {
				match.Remove()
				advanced := false
				if nm, nci, ok := layer.captures.peek(); ok {
					nextCapture := nm.Captures[nci]
					if nextCapture.Node.Id() == capture.Node.Id() {
						capture = nextCapture
						match, _, _ = layer.captures.next()
						advanced = true
					}
				}
				if !advanced {
					h.sortLayers()
					continue main
				}
			}
		}

		// The first highlight pattern for a node wins; skip the rest.
		for {
			nm, nci, ok := layer.captures.peek()
			if !ok || nm.Captures[nci].Node.Id() != capture.Node.Id() {
				break
			}
			layer.captures.next()
		}

		current := HighlightNone
		if idx := int(capture.Index); idx < len(layer.config.highlightIndices) {
			current = layer.config.highlightIndices[idx]
		}

		// A definition node's highlight carries over to its references.
		if defScope >= 0 && defIndex >= 0 {
			layer.scopeStack[defScope].defs[defIndex].highlight = current
		}

		resolved := refHighlight
		if resolved == HighlightNone {
			resolved = current
		}
		if resolved != HighlightNone {
			h.lastRangeValid = true
			h.lastStart, h.lastEnd, h.lastDepth = rangeStart, rangeEnd, layer.depth
			layer.highlightEndStack = append(layer.highlightEndStack, rangeEnd)
			return h.emitEvent(rangeStart, EventHighlightStart{Highlight: resolved}), nil
		}

		h.sortLayers()
	}
}
