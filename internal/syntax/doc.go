// Package syntax maintains incrementally parsed, multi-language views of
// documents using tree-sitter.
//
// A Syntax is a tree of language layers: the root layer parses the whole
// document, and injection queries spawn child layers that parse embedded
// languages (a script tag inside HTML, a code fence inside Markdown) over
// just the ranges they occupy. Update applies edit batches incrementally,
// remapping layer ranges, reparsing only layers an edit actually touched,
// and reusing or collecting injection layers as their sites move, survive,
// or disappear.
//
// Highlighting is consumed as a flat event stream. HighlightIter merges the
// captures of every layer into globally ordered, well nested
// HighlightStart, Source, and HighlightEnd events, resolving local
// variable definitions and references along the way. SpanIter and
// FlatSpanIter produce the same event shape from plain byte ranges, so
// renderers can merge query-driven highlights with overlays like selections
// or search matches using one code path.
package syntax
