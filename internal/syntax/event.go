package syntax

// Highlight is an index into the capture names a theme recognized via
// HighlightConfiguration.Configure. Renderers map it to a style.
type Highlight int

// HighlightNone marks a capture no recognized name matched.
const HighlightNone Highlight = -1

// HighlightEvent is one element of the flattened highlight stream.
//
// Streams are well nested: EventHighlightStart and EventHighlightEnd form a
// balanced bracket sequence, and an EventHighlightEnd always closes the most
// recently opened highlight. EventSource ranges appear in order, never
// overlap, and cover the requested byte range exactly once.
type HighlightEvent interface {
	highlightEvent()
}

// EventSource is a run of source text, addressed as half-open byte offsets.
type EventSource struct {
	Start int
	End   int
}

// EventHighlightStart opens a highlight that applies to every EventSource
// until the matching EventHighlightEnd.
type EventHighlightStart struct {
	Highlight Highlight
}

// EventHighlightEnd closes the most recently opened highlight.
type EventHighlightEnd struct{}

func (EventSource) highlightEvent()         {}
func (EventHighlightStart) highlightEvent() {}
func (EventHighlightEnd) highlightEvent()   {}
