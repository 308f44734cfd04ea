package syntax

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func collectSpanEvents(it *SpanIter) []HighlightEvent {
	var events []HighlightEvent
	for it.Scan() {
		events = append(events, it.Event())
	}
	return events
}

func TestSpanIter_NonOverlapping(t *testing.T) {
	spans := []Span{
		{Scope: 1, Start: 0, End: 5},
		{Scope: 2, Start: 6, End: 10},
	}

	events := collectSpanEvents(NewSpanIter(spans))

	require.Equal(t, []HighlightEvent{
		EventHighlightStart{Highlight: 1},
		EventSource{Start: 0, End: 5},
		EventHighlightEnd{},
		EventHighlightStart{Highlight: 2},
		EventSource{Start: 6, End: 10},
		EventHighlightEnd{},
	}, events)
}

func TestSpanIter_SimpleOverlapping(t *testing.T) {
	spans := []Span{
		{Scope: 1, Start: 0, End: 10},
		{Scope: 2, Start: 3, End: 6},
	}

	events := collectSpanEvents(NewSpanIter(spans))

	require.Equal(t, []HighlightEvent{
		EventHighlightStart{Highlight: 1},
		EventSource{Start: 0, End: 3},
		EventHighlightStart{Highlight: 2},
		EventSource{Start: 3, End: 6},
		EventHighlightEnd{},
		EventSource{Start: 6, End: 10},
		EventHighlightEnd{},
	}, events)
}

func TestSpanIter_ManyOverlapping(t *testing.T) {
	// Span 3 crosses the end of span 1 and span 4 crosses the end of
	// span 3, so both are split at the crossing point and reopened.
	spans := []Span{
		{Scope: 1, Start: 0, End: 10},
		{Scope: 2, Start: 1, End: 5},
		{Scope: 3, Start: 6, End: 13},
		{Scope: 4, Start: 12, End: 15},
		{Scope: 5, Start: 13, End: 15},
	}

	events := collectSpanEvents(NewSpanIter(spans))

	require.Equal(t, []HighlightEvent{
		EventHighlightStart{Highlight: 1},
		EventSource{Start: 0, End: 1},
		EventHighlightStart{Highlight: 2},
		EventSource{Start: 1, End: 5},
		EventHighlightEnd{}, // ends 2
		EventSource{Start: 5, End: 6},
		EventHighlightStart{Highlight: 3},
		EventSource{Start: 6, End: 10},
		EventHighlightEnd{}, // ends 3
		EventHighlightEnd{}, // ends 1
		EventHighlightStart{Highlight: 3},
		EventSource{Start: 10, End: 12},
		EventHighlightStart{Highlight: 4},
		EventSource{Start: 12, End: 13},
		EventHighlightEnd{}, // ends 4
		EventHighlightEnd{}, // ends 3
		EventHighlightStart{Highlight: 4},
		EventHighlightStart{Highlight: 5},
		EventSource{Start: 13, End: 15},
		EventHighlightEnd{}, // ends 5
		EventHighlightEnd{}, // ends 4
	}, events)
}

func TestSpanIter_DuplicateSpans(t *testing.T) {
	spans := []Span{
		{Scope: 1, Start: 0, End: 6},
		{Scope: 2, Start: 0, End: 6},
	}

	events := collectSpanEvents(NewSpanIter(spans))

	require.Equal(t, []HighlightEvent{
		EventHighlightStart{Highlight: 1},
		EventHighlightStart{Highlight: 2},
		EventSource{Start: 0, End: 6},
		EventHighlightEnd{},
		EventHighlightEnd{},
	}, events)
}

func TestSpanIter_DuplicateOverlapping(t *testing.T) {
	// Based on a realistic diagnostics case: spans both duplicate and
	// overlap one another. Spans 4 and 5 outlive span 3, so span 3 ends
	// first after the split at offset 6.
	spans := []Span{
		{Scope: 1, Start: 0, End: 6},
		{Scope: 2, Start: 0, End: 6},
		{Scope: 4, Start: 4, End: 10},
		{Scope: 5, Start: 4, End: 10},
		{Scope: 3, Start: 4, End: 8},
	}

	events := collectSpanEvents(NewSpanIter(spans))

	require.Equal(t, []HighlightEvent{
		EventHighlightStart{Highlight: 1},
		EventHighlightStart{Highlight: 2},
		EventSource{Start: 0, End: 4},
		EventHighlightStart{Highlight: 4},
		EventHighlightStart{Highlight: 5},
		EventHighlightStart{Highlight: 3},
		EventSource{Start: 4, End: 6},
		EventHighlightEnd{}, // ends 3
		EventHighlightEnd{}, // ends 5
		EventHighlightEnd{}, // ends 4
		EventHighlightEnd{}, // ends 2
		EventHighlightEnd{}, // ends 1
		EventHighlightStart{Highlight: 4},
		EventHighlightStart{Highlight: 5},
		EventHighlightStart{Highlight: 3},
		EventSource{Start: 6, End: 8},
		EventHighlightEnd{}, // ends 3
		EventSource{Start: 8, End: 10},
		EventHighlightEnd{}, // ends 5
		EventHighlightEnd{}, // ends 4
	}, events)
}

func TestSpanIter_RangesResorted(t *testing.T) {
	// Span 3 is split to 9..10, which must be re-ordered after spans 4
	// and 5 before they are processed.
	spans := []Span{
		{Scope: 1, Start: 0, End: 9},
		{Scope: 2, Start: 1, End: 5},
		{Scope: 3, Start: 6, End: 10},
		{Scope: 4, Start: 7, End: 8},
		{Scope: 5, Start: 8, End: 9},
	}

	events := collectSpanEvents(NewSpanIter(spans))

	require.Equal(t, []HighlightEvent{
		EventHighlightStart{Highlight: 1},
		EventSource{Start: 0, End: 1},
		EventHighlightStart{Highlight: 2},
		EventSource{Start: 1, End: 5},
		EventHighlightEnd{}, // ends 2
		EventSource{Start: 5, End: 6},
		EventHighlightStart{Highlight: 3},
		EventSource{Start: 6, End: 7},
		EventHighlightStart{Highlight: 4},
		EventSource{Start: 7, End: 8},
		EventHighlightEnd{}, // ends 4
		EventHighlightStart{Highlight: 5},
		EventSource{Start: 8, End: 9},
		EventHighlightEnd{}, // ends 5
		EventHighlightEnd{}, // ends 3
		EventHighlightEnd{}, // ends 1
		EventHighlightStart{Highlight: 3},
		EventSource{Start: 9, End: 10},
		EventHighlightEnd{}, // ends 3
	}, events)
}

func TestSpanIter_PanicsOnUnsortedSpans(t *testing.T) {
	require.Panics(t, func() {
		NewSpanIter([]Span{
			{Scope: 1, Start: 5, End: 8},
			{Scope: 2, Start: 0, End: 3},
		})
	})
	require.Panics(t, func() {
		NewSpanIter([]Span{
			{Scope: 1, Start: 0, End: 3},
			{Scope: 2, Start: 0, End: 8},
		})
	})
}

func TestFlatSpanIter_EmitsTriples(t *testing.T) {
	spans := []Span{
		{Scope: 7, Start: 2, End: 4},
		{Scope: 8, Start: 4, End: 9},
	}

	events := collectSpanEvents(NewFlatSpanIter(spans))

	require.Equal(t, []HighlightEvent{
		EventHighlightStart{Highlight: 7},
		EventSource{Start: 2, End: 4},
		EventHighlightEnd{},
		EventHighlightStart{Highlight: 8},
		EventSource{Start: 4, End: 9},
		EventHighlightEnd{},
	}, events)
}

func TestFlatSpanIter_DropsZeroWidthSpans(t *testing.T) {
	spans := []Span{
		{Scope: 1, Start: 2, End: 2},
		{Scope: 2, Start: 3, End: 5},
		{Scope: 3, Start: 5, End: 5},
	}

	events := collectSpanEvents(NewFlatSpanIter(spans))

	require.Equal(t, []HighlightEvent{
		EventHighlightStart{Highlight: 2},
		EventSource{Start: 3, End: 5},
		EventHighlightEnd{},
	}, events)
}

func TestFlatSpanIter_PanicsOnOverlap(t *testing.T) {
	require.Panics(t, func() {
		NewFlatSpanIter([]Span{
			{Scope: 1, Start: 0, End: 5},
			{Scope: 2, Start: 3, End: 8},
		})
	})
}

func TestCollectSpans_SortedForReiteration(t *testing.T) {
	src := []byte("func add(x int) { return }")
	syn, err := New(src, newGoConfig(t), nil)
	require.NoError(t, err)
	defer syn.Close()

	spans, err := CollectSpans(syn.Highlight(src, nil))
	require.NoError(t, err)
	require.NotEmpty(t, spans)

	for i := 1; i < len(spans); i++ {
		require.False(t, SpanLess(spans[i], spans[i-1]), "span %d out of order", i)
	}
	for _, sp := range spans {
		require.Less(t, sp.Start, sp.End)
	}
}

func TestCollectSpans_RoundTripPreservesInnermost(t *testing.T) {
	src := []byte("func add(x int) { return x }")
	syn, err := New(src, newGoConfig(t), nil)
	require.NoError(t, err)
	defer syn.Close()

	direct := innermostHighlights(collectHighlightEvents(t, syn.Highlight(src, nil)))

	spans, err := CollectSpans(syn.Highlight(src, nil))
	require.NoError(t, err)
	reiterated := innermostHighlights(collectSpanEvents(NewSpanIter(spans)))

	require.Equal(t, direct, reiterated)
}

func TestCollectSpans_MergesWithOverlaySpans(t *testing.T) {
	src := []byte("var total = 10")
	syn, err := New(src, newGoConfig(t), nil)
	require.NoError(t, err)
	defer syn.Close()

	spans, err := CollectSpans(syn.Highlight(src, nil))
	require.NoError(t, err)

	// Overlay the "total" range with an out-of-table scope, the way a
	// search match is layered over capture highlights
	overlay := Highlight(99)
	spans = append(spans, Span{Scope: overlay, Start: 4, End: 9})
	SortSpans(spans)

	events := collectSpanEvents(NewSpanIter(spans))
	byByte := innermostHighlights(events)
	for b := 4; b < 9; b++ {
		require.Equal(t, overlay, byByte[b], "byte %d should carry the overlay scope", b)
	}

	// Bytes outside the overlay keep their capture highlight
	require.Equal(t, hl("keyword"), byByte[0])
}

func drawSortedSpans(rt *rapid.T) []Span {
	count := rapid.IntRange(0, 8).Draw(rt, "count")
	spans := make([]Span, 0, count)
	for i := 0; i < count; i++ {
		start := rapid.IntRange(0, 48).Draw(rt, "start")
		length := rapid.IntRange(0, 16).Draw(rt, "length")
		scope := Highlight(rapid.IntRange(0, 4).Draw(rt, "scope"))
		spans = append(spans, Span{Scope: scope, Start: start, End: start + length})
	}
	SortSpans(spans)
	return spans
}

func TestSpanIter_Property_WellNested(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		spans := drawSortedSpans(rt)

		depth := 0
		lastEnd := -1
		for it := NewSpanIter(append([]Span(nil), spans...)); it.Scan(); {
			switch ev := it.Event().(type) {
			case EventHighlightStart:
				depth++
			case EventHighlightEnd:
				depth--
				require.GreaterOrEqual(rt, depth, 0)
			case EventSource:
				require.Less(rt, ev.Start, ev.End)
				require.GreaterOrEqual(rt, ev.Start, lastEnd)
				require.Positive(rt, depth)
				lastEnd = ev.End
			}
		}
		require.Zero(rt, depth)
	})
}

func TestSpanIter_Property_ScopeCoverageMatchesInput(t *testing.T) {
	// Every byte of every input span must be reported under that span's
	// scope exactly as many times as spans of that scope cover it, no
	// matter how the spans overlap.
	rapid.Check(t, func(rt *rapid.T) {
		spans := drawSortedSpans(rt)

		want := map[[2]int]int{}
		for _, sp := range spans {
			for b := sp.Start; b < sp.End; b++ {
				want[[2]int{b, int(sp.Scope)}]++
			}
		}

		got := map[[2]int]int{}
		var stack []Highlight
		for it := NewSpanIter(append([]Span(nil), spans...)); it.Scan(); {
			switch ev := it.Event().(type) {
			case EventHighlightStart:
				stack = append(stack, ev.Highlight)
			case EventHighlightEnd:
				stack = stack[:len(stack)-1]
			case EventSource:
				for _, scope := range stack {
					for b := ev.Start; b < ev.End; b++ {
						got[[2]int{b, int(scope)}]++
					}
				}
			}
		}

		require.Equal(rt, want, got)
	})
}

func TestFlatSpanIter_Property_RoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(0, 8).Draw(rt, "count")
		spans := make([]Span, 0, count)
		cursor := 0
		for i := 0; i < count; i++ {
			cursor += rapid.IntRange(0, 4).Draw(rt, "gap")
			length := rapid.IntRange(0, 6).Draw(rt, "length")
			spans = append(spans, Span{
				Scope: Highlight(rapid.IntRange(0, 4).Draw(rt, "scope")),
				Start: cursor,
				End:   cursor + length,
			})
			cursor += length
		}

		var got []Span
		var open *Span
		for it := NewFlatSpanIter(spans); it.Scan(); {
			switch ev := it.Event().(type) {
			case EventHighlightStart:
				open = &Span{Scope: ev.Highlight}
			case EventSource:
				open.Start, open.End = ev.Start, ev.End
			case EventHighlightEnd:
				got = append(got, *open)
			}
		}

		var want []Span
		for _, sp := range spans {
			if sp.Start != sp.End {
				want = append(want, sp)
			}
		}
		require.Equal(rt, want, got)
	})
}
