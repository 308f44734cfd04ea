package tracing

// Span attribute keys for highlight tracing.
const (
	// File attributes
	AttrFilePath = "file.path"

	// Syntax attributes
	AttrLanguage    = "syntax.language"
	AttrSourceBytes = "syntax.source.bytes"
	AttrEditCount   = "syntax.edit.count"
	AttrLayerCount  = "syntax.layer.count"

	// Highlight attributes
	AttrEventCount = "highlight.event.count"
	AttrThemeName  = "highlight.theme"

	// Watch attributes
	AttrSessionID = "watch.session.id"
)

// Span names for consistent naming across commands.
const (
	SpanParse     = "syntax.parse"
	SpanUpdate    = "syntax.update"
	SpanHighlight = "syntax.highlight"
	SpanRender    = "render.write"
)

// Event names for span events.
const (
	EventFileChanged  = "watch.file.changed"
	EventLayersPruned = "syntax.layers.pruned"
)
