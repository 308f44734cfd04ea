package syntax

import (
	"slices"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/zjrosen/sheen/internal/log"
)

// Syntax is the parsed state of one document: an arena of language layers
// rooted at the document's own language, with one layer per discovered
// injection. Methods are not safe for concurrent use, and a Syntax must not
// be updated while a HighlightIter built from it is live.
type Syntax struct {
	layers []*LanguageLayer
	free   []LayerID
	root   LayerID
}

// New parses source from scratch and resolves all injections. The injection
// callback maps language markers found by injection queries to their
// configurations; it may be nil when injections should be ignored.
func New(source []byte, config *HighlightConfiguration, injectionCallback InjectionCallback) (*Syntax, error) {
	root := &LanguageLayer{
		Config: config,
		Depth:  0,
		Ranges: []tree_sitter.Range{{
			StartByte:  0,
			StartPoint: tree_sitter.Point{Row: 0, Column: 0},
			EndByte:    maxUint,
			EndPoint:   tree_sitter.Point{Row: maxUint, Column: maxUint},
		}},
		parent: noLayer,
	}

	s := &Syntax{}
	s.root = s.insertLayer(root)
	if err := s.Update(source, nil, injectionCallback); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Root returns the id of the root layer.
func (s *Syntax) Root() LayerID {
	return s.root
}

// Layer resolves a layer id. It returns nil for ids whose layer has been
// collected.
func (s *Syntax) Layer(id LayerID) *LanguageLayer {
	if id < 0 || int(id) >= len(s.layers) {
		return nil
	}
	return s.layers[id]
}

// RootLayer returns the layer covering the whole document.
func (s *Syntax) RootLayer() *LanguageLayer {
	return s.layers[s.root]
}

// Tree returns the root layer's parse tree.
func (s *Syntax) Tree() *tree_sitter.Tree {
	return s.layers[s.root].tree
}

// LayerCount reports how many layers are currently live.
func (s *Syntax) LayerCount() int {
	n := 0
	for _, layer := range s.layers {
		if layer != nil {
			n++
		}
	}
	return n
}

// LayerForByteRange returns the deepest layer whose ranges contain the byte
// range. The root layer contains everything, so there is always an answer.
func (s *Syntax) LayerForByteRange(start, end uint) LayerID {
	container := s.root
	for id, layer := range s.layers {
		if layer == nil {
			continue
		}
		if layer.Depth > s.layers[container].Depth && layer.containsByteRange(start, end) {
			container = LayerID(id)
		}
	}
	return container
}

// TreeForByteRange returns the parse tree of the deepest layer containing
// the byte range.
func (s *Syntax) TreeForByteRange(start, end uint) *tree_sitter.Tree {
	return s.layers[s.LayerForByteRange(start, end)].tree
}

// DescendantForByteRange returns the smallest node spanning the byte range,
// looked up in the deepest layer containing it.
func (s *Syntax) DescendantForByteRange(start, end uint) *tree_sitter.Node {
	return s.TreeForByteRange(start, end).RootNode().DescendantForByteRange(start, end)
}

// NamedDescendantForByteRange is DescendantForByteRange restricted to named
// nodes.
func (s *Syntax) NamedDescendantForByteRange(start, end uint) *tree_sitter.Node {
	return s.TreeForByteRange(start, end).RootNode().NamedDescendantForByteRange(start, end)
}

// Close releases every layer's parse tree. The Syntax must not be used
// afterwards.
func (s *Syntax) Close() {
	for id, layer := range s.layers {
		if layer != nil {
			s.removeLayer(LayerID(id))
		}
	}
}

func (s *Syntax) insertLayer(layer *LanguageLayer) LayerID {
	if n := len(s.free); n > 0 {
		id := s.free[n-1]
		s.free = s.free[:n-1]
		s.layers[id] = layer
		return id
	}
	s.layers = append(s.layers, layer)
	return LayerID(len(s.layers) - 1)
}

func (s *Syntax) removeLayer(id LayerID) {
	layer := s.layers[id]
	if layer.tree != nil {
		layer.tree.Close()
		layer.tree = nil
	}
	s.layers[id] = nil
	s.free = append(s.free, id)
}

// Update applies an edit batch and reconciles the layer tree with it.
//
// Every layer's ranges are first remapped through the edits, which decides
// whether the layer merely moved or must be reparsed. The tree is then
// walked from the root: stale trees are edited and reparsed, injection
// queries re-run, and each discovered injection either adopts an identical
// surviving layer or creates a fresh one. Layers the walk does not reach
// belong to injections the edits destroyed and are collected at the end.
//
// edits must be sorted ascending by StartByte and must not overlap. An empty
// batch still reparses the root and re-resolves injections, which is how New
// bootstraps. On error the update is abandoned partway through; callers
// should rebuild with New rather than keep using the Syntax.
func (s *Syntax) Update(source []byte, edits []tree_sitter.InputEdit, injectionCallback InjectionCallback) error {
	queue := []LayerID{s.root}

	// Layers whose identity survives remapping can be reused by the walk
	// below instead of being reparsed from scratch. Queued layers are never
	// removed from the table.
	reuse := make(map[uint64][]LayerID, len(s.layers))

	for id, layer := range s.layers {
		if layer == nil {
			continue
		}
		// The root layer always covers the whole document.
		if layer.Depth == 0 {
			layer.flags = layerModified
			continue
		}
		if len(edits) > 0 {
			remapLayerRanges(layer, edits)
		}
		key := layer.reuseKey()
		reuse[key] = append(reuse[key], LayerID(id))
	}

	parser := acquireParser()
	defer releaseParser(parser)
	cursor := acquireCursor()
	defer releaseCursor(cursor)

	var reparsed, reused, created int

	for head := 0; head < len(queue); head++ {
		id := queue[head]
		layer := s.layers[id]

		layer.flags |= layerTouched

		if layer.tree != nil {
			if layer.flags&(layerModified|layerMoved) != 0 {
				// Apply in reverse so an earlier edit cannot disturb the
				// positions consumed by a later one.
				for i := len(edits) - 1; i >= 0; i-- {
					layer.tree.Edit(&edits[i])
				}
			}
			if layer.flags&layerModified != 0 {
				if err := layer.parse(parser, source); err != nil {
					return err
				}
				reparsed++
			}
		} else {
			if err := layer.parse(parser, source); err != nil {
				return err
			}
			reparsed++
		}

		injections := collectInjections(cursor, layer, source, injectionCallback)

		depth := layer.Depth + 1
		for _, inj := range injections {
			newLayer := &LanguageLayer{
				Config: inj.config,
				Depth:  depth,
				Ranges: inj.ranges,
				parent: noLayer,
			}

			childID := noLayer
			for _, candidate := range reuse[newLayer.reuseKey()] {
				if layersEqual(s.layers[candidate], newLayer) {
					childID = candidate
					reused++
					break
				}
			}
			if childID == noLayer {
				childID = s.insertLayer(newLayer)
				created++
			}
			s.layers[childID].parent = id
			queue = append(queue, childID)
		}
	}

	// Reset flags and collect layers the walk never reached.
	removed := 0
	for id, layer := range s.layers {
		if layer == nil {
			continue
		}
		flags := layer.flags
		layer.flags = 0
		if flags&layerTouched == 0 {
			s.removeLayer(LayerID(id))
			removed++
		}
	}

	log.Debug(log.CatParse, "syntax updated",
		"edits", len(edits),
		"reparsed", reparsed,
		"reused", reused,
		"created", created,
		"removed", removed)
	return nil
}

// pendingInjection is an injection site resolved to a configuration, ready
// to become (or adopt) a layer.
type pendingInjection struct {
	config *HighlightConfiguration
	ranges []tree_sitter.Range
}

// collectInjections runs the layer's injection query and resolves every
// site to a pending injection. Combined injections accumulate content nodes
// across matches and resolve to a single multi-range injection afterwards.
func collectInjections(cursor *tree_sitter.QueryCursor, layer *LanguageLayer, source []byte, injectionCallback InjectionCallback) []pendingInjection {
	type combinedInjection struct {
		marker   *InjectionLanguageMarker
		nodes    []tree_sitter.Node
		children includedChildren
	}
	combined := make([]combinedInjection, len(layer.Config.combinedInjectionsPatterns))

	var injections []pendingInjection
	lastInjectionEnd := uint(0)

	matches := cursor.Matches(layer.Config.injectionsQuery, layer.tree.RootNode(), source)
	for match := matches.Next(); match != nil; match = matches.Next() {
		marker, contentNode, children := layer.Config.injectionForMatch(match, source)

		if ci := slices.Index(layer.Config.combinedInjectionsPatterns, uint(match.PatternIndex)); ci >= 0 {
			entry := &combined[ci]
			if marker != nil {
				entry.marker = marker
			}
			if contentNode != nil && contentNode.StartByte() >= lastInjectionEnd {
				entry.nodes = append(entry.nodes, *contentNode)
				lastInjectionEnd = contentNode.EndByte()
			}
			entry.children = children
			continue
		}

		// Drop the rest of this match's captures from the stream.
		match.Remove()

		if marker == nil || contentNode == nil {
			continue
		}
		if injectionCallback == nil {
			continue
		}
		config := injectionCallback(*marker)
		if config == nil {
			continue
		}
		ranges := intersectRanges(layer.Ranges, []tree_sitter.Node{*contentNode}, children)
		if len(ranges) == 0 {
			continue
		}
		// Overlapping injections keep the first site and drop the rest.
		if contentNode.StartByte() < lastInjectionEnd {
			continue
		}
		lastInjectionEnd = contentNode.EndByte()
		injections = append(injections, pendingInjection{config, ranges})
	}

	for _, entry := range combined {
		if entry.marker == nil || len(entry.nodes) == 0 {
			continue
		}
		if injectionCallback == nil {
			continue
		}
		config := injectionCallback(*entry.marker)
		if config == nil {
			continue
		}
		ranges := intersectRanges(layer.Ranges, entry.nodes, entry.children)
		if len(ranges) > 0 {
			injections = append(injections, pendingInjection{config, ranges})
		}
	}

	if n := len(injections); n > 0 {
		log.Debug(log.CatInjection, "injections collected",
			"language", layer.Config.Name,
			"depth", layer.Depth,
			"count", n)
	}
	return injections
}

// remapLayerRanges shifts a layer's ranges through an edit batch, newest
// edit first, and records on the layer whether it moved or must reparse.
func remapLayerRanges(layer *LanguageLayer, edits []tree_sitter.InputEdit) {
	for i := range layer.Ranges {
		r := &layer.Ranges[i]
		for j := len(edits) - 1; j >= 0; j-- {
			edit := &edits[j]
			isPureInsertion := edit.OldEndByte == edit.StartByte

			switch {
			case edit.StartByte > r.EndByte:
				// Edit is entirely behind this range.

			case edit.OldEndByte < r.StartByte:
				// Edit is entirely in front: shift the whole range.
				r.StartByte = edit.NewEndByte + (r.StartByte - edit.OldEndByte)
				r.StartPoint = pointAdd(edit.NewEndPosition, pointSub(r.StartPoint, edit.OldEndPosition))
				r.EndByte = edit.NewEndByte + (r.EndByte - edit.OldEndByte)
				r.EndPoint = pointAdd(edit.NewEndPosition, pointSub(r.EndPoint, edit.OldEndPosition))
				layer.flags |= layerMoved

			case edit.StartByte < r.StartByte:
				// Edit starts in front and reaches into the range.
				r.StartByte = edit.NewEndByte
				r.StartPoint = edit.NewEndPosition
				r.EndByte = satSub(r.EndByte, edit.OldEndByte) + edit.NewEndByte
				r.EndPoint = pointAdd(edit.NewEndPosition, pointSub(r.EndPoint, edit.OldEndPosition))
				layer.flags = layerModified

			case edit.StartByte == r.StartByte && isPureInsertion:
				// Insertion exactly at the start leaves the content intact.
				r.StartByte = edit.NewEndByte
				r.StartPoint = edit.NewEndPosition
				layer.flags |= layerMoved

			default:
				// Edit lands inside the range.
				r.EndByte = satSub(r.EndByte, edit.OldEndByte) + edit.NewEndByte
				r.EndPoint = pointAdd(edit.NewEndPosition, pointSub(r.EndPoint, edit.OldEndPosition))
				layer.flags = layerModified
			}
		}
	}
}

// pointAdd and pointSub treat b as a relative offset.
func pointAdd(a, b tree_sitter.Point) tree_sitter.Point {
	if b.Row > 0 {
		return tree_sitter.Point{Row: a.Row + b.Row, Column: b.Column}
	}
	return tree_sitter.Point{Row: 0, Column: a.Column + b.Column}
}

func pointSub(a, b tree_sitter.Point) tree_sitter.Point {
	if a.Row > b.Row {
		return tree_sitter.Point{Row: a.Row - b.Row, Column: a.Column}
	}
	return tree_sitter.Point{Row: 0, Column: satSub(a.Column, b.Column)}
}

func satSub(a, b uint) uint {
	if a < b {
		return 0
	}
	return a - b
}

// intersectRanges computes the document ranges an injection should parse:
// the content nodes' ranges, minus excluded children, clipped to the parent
// layer's own ranges.
func intersectRanges(parentRanges []tree_sitter.Range, nodes []tree_sitter.Node, children includedChildren) []tree_sitter.Range {
	var result []tree_sitter.Range

	// Layers are only ever constructed with non-empty range lists.
	parentIndex := 0
	parentRange := parentRanges[parentIndex]
	parentIndex++

	for ni := range nodes {
		node := &nodes[ni]
		precedingRange := tree_sitter.Range{
			StartByte:  0,
			StartPoint: tree_sitter.Point{Row: 0, Column: 0},
			EndByte:    node.StartByte(),
			EndPoint:   node.StartPosition(),
		}
		followingRange := tree_sitter.Range{
			StartByte:  node.EndByte(),
			StartPoint: node.EndPosition(),
			EndByte:    maxUint,
			EndPoint:   tree_sitter.Point{Row: maxUint, Column: maxUint},
		}

		excluded := excludedChildRanges(node, children)
		excluded = append(excluded, followingRange)

		for _, excludedRange := range excluded {
			rng := tree_sitter.Range{
				StartByte:  precedingRange.EndByte,
				StartPoint: precedingRange.EndPoint,
				EndByte:    excludedRange.StartByte,
				EndPoint:   excludedRange.StartPoint,
			}
			precedingRange = excludedRange

			if rng.EndByte < parentRange.StartByte {
				continue
			}

			for parentRange.StartByte <= rng.EndByte {
				if parentRange.EndByte > rng.StartByte {
					if rng.StartByte < parentRange.StartByte {
						rng.StartByte = parentRange.StartByte
						rng.StartPoint = parentRange.StartPoint
					}

					if parentRange.EndByte < rng.EndByte {
						if rng.StartByte < parentRange.EndByte {
							result = append(result, tree_sitter.Range{
								StartByte:  rng.StartByte,
								StartPoint: rng.StartPoint,
								EndByte:    parentRange.EndByte,
								EndPoint:   parentRange.EndPoint,
							})
						}
						rng.StartByte = parentRange.EndByte
						rng.StartPoint = parentRange.EndPoint
					} else {
						if rng.StartByte < rng.EndByte {
							result = append(result, rng)
						}
						break
					}
				}

				if parentIndex < len(parentRanges) {
					parentRange = parentRanges[parentIndex]
					parentIndex++
				} else {
					return result
				}
			}
		}
	}
	return result
}

// excludedChildRanges lists the child ranges an injection must not parse.
func excludedChildRanges(node *tree_sitter.Node, children includedChildren) []tree_sitter.Range {
	if children == includedAll {
		return nil
	}
	var ranges []tree_sitter.Range
	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		child := node.Child(i)
		if children == includedUnnamed && !child.IsNamed() {
			continue
		}
		ranges = append(ranges, tree_sitter.Range{
			StartByte:  child.StartByte(),
			StartPoint: child.StartPosition(),
			EndByte:    child.EndByte(),
			EndPoint:   child.EndPosition(),
		})
	}
	return ranges
}
