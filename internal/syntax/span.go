package syntax

import "sort"

// ==================== Spans ====================

// Span is a byte range tagged with a highlight scope. It is a simpler way
// to describe a highlighted region than a HighlightEvent stream and is the
// input format for overlay layers such as search matches or diagnostics.
type Span struct {
	Scope Highlight
	Start int
	End   int
}

// SpanLess orders spans by start ascending, then end descending for ties,
// so that an enclosing span sorts before the spans it contains.
func SpanLess(a, b Span) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End > b.End
}

// SortSpans sorts spans into the order NewSpanIter requires.
func SortSpans(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		return SpanLess(spans[i], spans[j])
	})
}

// ==================== Overlap-resolving iterator ====================

// SpanIter converts a sorted span list into a HighlightEvent stream.
//
// Input spans may overlap arbitrarily. The produced stream is well nested:
// when two spans overlap, the one extending further is split at the point
// where the shorter one ends, so every EventHighlightEnd closes the most
// recently opened highlight and EventSource ranges never overlap.
//
// The iterator takes ownership of the span slice and rewrites it in place.
type SpanIter struct {
	spans     []Span
	index     int
	queue     []HighlightEvent
	head      int
	rangeEnds []int
	cursor    int
	current   HighlightEvent
}

// NewSpanIter returns an iterator over the events described by spans.
// Spans must be sorted by start ascending and end descending for ties
// (see SortSpans); NewSpanIter panics otherwise.
func NewSpanIter(spans []Span) *SpanIter {
	for i := 1; i < len(spans); i++ {
		if SpanLess(spans[i], spans[i-1]) {
			panic("syntax: spans must be sorted by start ascending, end descending")
		}
	}
	return &SpanIter{spans: spans}
}

// NewFlatSpanIter returns an iterator over spans that are already disjoint,
// such as selection or search-match ranges. No overlap resolution is done;
// zero-width spans are dropped. Panics if consecutive spans overlap.
func NewFlatSpanIter(spans []Span) *SpanIter {
	for i := 1; i < len(spans); i++ {
		if spans[i].Start < spans[i-1].End {
			panic("syntax: flat spans must be disjoint and sorted")
		}
	}
	queue := make([]HighlightEvent, 0, 3*len(spans))
	for _, sp := range spans {
		if sp.Start == sp.End {
			continue
		}
		queue = append(queue,
			EventHighlightStart{Highlight: sp.Scope},
			EventSource{Start: sp.Start, End: sp.End},
			EventHighlightEnd{},
		)
	}
	return &SpanIter{queue: queue}
}

// Scan advances to the next event. It returns false when the stream is done.
func (it *SpanIter) Scan() bool {
	ev, ok := it.next()
	if !ok {
		return false
	}
	it.current = ev
	return true
}

// Event returns the event produced by the last call to Scan.
func (it *SpanIter) Event() HighlightEvent { return it.current }

func (it *SpanIter) push(ev HighlightEvent) {
	it.queue = append(it.queue, ev)
}

func (it *SpanIter) pop() (HighlightEvent, bool) {
	if it.head == len(it.queue) {
		it.queue = it.queue[:0]
		it.head = 0
		return nil, false
	}
	ev := it.queue[it.head]
	it.head++
	return ev, true
}

func (it *SpanIter) next() (HighlightEvent, bool) {
	if ev, ok := it.pop(); ok {
		return ev, true
	}

	if it.index == len(it.spans) {
		// No spans left. Emit Sources and HighlightEnds for any ranges
		// that have not been terminated yet.
		for _, end := range it.rangeEnds {
			if it.cursor != end {
				it.push(EventSource{Start: it.cursor, End: end})
				it.cursor = end
			}
			it.push(EventHighlightEnd{})
		}
		it.rangeEnds = it.rangeEnds[:0]
		return it.pop()
	}

	span := it.spans[it.index]
	intersect := -1

	// Complete the in-progress ranges that end at or before this span
	// starts. If the span extends past a range that stays open, record the
	// smallest such end as the intersect point: the span and everything
	// sharing its start must be split there to keep the stream nested.
	kept := it.rangeEnds[:0]
	for _, end := range it.rangeEnds {
		if span.Start >= end {
			if it.cursor != end {
				it.push(EventSource{Start: it.cursor, End: end})
				it.cursor = end
			}
			it.push(EventHighlightEnd{})
			continue
		}
		if span.End > end && intersect < 0 {
			intersect = end
		}
		kept = append(kept, end)
	}
	it.rangeEnds = kept

	// Cover the gap up to this span, but only while inside an open range.
	if span.Start != it.cursor && len(it.rangeEnds) > 0 {
		it.push(EventSource{Start: it.cursor, End: span.Start})
	}
	it.cursor = span.Start

	// Open every span sharing this start. A span reaching past the
	// intersect point gives up its left part and is rewritten to start at
	// the intersect; a span contained before the intersect is consumed
	// whole. Ends are descending within the group, so the rewritten spans
	// form a prefix.
	i := it.index
	subsliced := 0
	for i < len(it.spans) && it.spans[i].Start == it.cursor {
		sp := &it.spans[i]
		it.push(EventHighlightStart{Highlight: sp.Scope})
		i++
		if intersect >= 0 && sp.End > intersect {
			it.rangeEnds = append(it.rangeEnds, intersect)
			sp.Start = intersect
			subsliced++
		} else {
			it.rangeEnds = append(it.rangeEnds, sp.End)
			if intersect < 0 {
				it.index = i
			}
		}
	}

	// Ranges sharing a start were pushed with descending ends.
	sort.Ints(it.rangeEnds)

	if intersect >= 0 {
		consumed := i - it.index - subsliced
		if consumed > 0 {
			// Park the consumed spans behind the index, keeping the
			// rewritten ones ahead of it.
			rotateSpans(it.spans[it.index:i], subsliced)
			it.index += consumed
		}
		// The rewritten spans now start at the intersect point and may
		// belong after spans further along. Merge them back into order.
		it.mergeRewritten(subsliced)
	}

	return it.pop()
}

// mergeRewritten restores sort order after a subslice: spans[index:index+k]
// share a start and descend by end, and spans beyond them are still sorted.
// Spans that order before the rewritten block are shifted across it one at
// a time. The scan stops at the first span that belongs after the block, so
// the cost is bounded by how far the block actually moves.
func (it *SpanIter) mergeRewritten(k int) {
	lo, mid := it.index, it.index+k
	for lo < mid && mid < len(it.spans) {
		if SpanLess(it.spans[mid], it.spans[lo]) {
			sp := it.spans[mid]
			copy(it.spans[lo+1:mid+1], it.spans[lo:mid])
			it.spans[lo] = sp
			mid++
		}
		lo++
	}
}

// CollectSpans drains a highlight event stream into span form, sorted for
// NewSpanIter, and closes the iterator. Overlay producers append their own
// spans to the result, sort again, and re-iterate to get a combined stream.
//
// Spans are recorded in open order, so when two spans cover identical
// ranges the enclosing one sorts first and re-iterating reproduces the
// original nesting.
func CollectSpans(it *HighlightIter) ([]Span, error) {
	defer it.Close()
	var (
		spans   []Span
		stack   []int // indexes of open spans
		pending []int // open spans not yet anchored to a source run
		pos     int
	)
	for it.Scan() {
		switch ev := it.Event().(type) {
		case EventSource:
			for _, idx := range pending {
				spans[idx].Start = ev.Start
			}
			pending = pending[:0]
			pos = ev.End

		case EventHighlightStart:
			spans = append(spans, Span{Scope: ev.Highlight, Start: -1})
			stack = append(stack, len(spans)-1)
			pending = append(pending, len(spans)-1)

		case EventHighlightEnd:
			if len(stack) == 0 {
				continue
			}
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			// Still pending means no source arrived inside the span
			if len(pending) > 0 && pending[len(pending)-1] == idx {
				pending = pending[:len(pending)-1]
				continue
			}
			spans[idx].End = pos
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	kept := spans[:0]
	for _, sp := range spans {
		if sp.Start >= 0 && sp.End > sp.Start {
			kept = append(kept, sp)
		}
	}
	spans = kept
	SortSpans(spans)
	return spans, nil
}

func rotateSpans(spans []Span, n int) {
	reverseSpans(spans[:n])
	reverseSpans(spans[n:])
	reverseSpans(spans)
}

func reverseSpans(spans []Span) {
	for i, j := 0, len(spans)-1; i < j; i, j = i+1, j-1 {
		spans[i], spans[j] = spans[j], spans[i]
	}
}
