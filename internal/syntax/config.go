package syntax

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// shebangRegex extracts the interpreter name from a shebang line, looking
// through an optional env wrapper (`#!/usr/bin/env -S bash`).
var shebangRegex = regexp.MustCompile(`#!\s*(?:\S*[/\\](?:env\s+(?:-\S+\s+)*)?)?([^\s.\d]+)`)

// ==================== Injection Markers ====================

// InjectionMarkerKind discriminates how an injected language was named by
// the injection query that produced it.
type InjectionMarkerKind uint8

const (
	// MarkerName carries a language name, from `@injection.language` or the
	// `injection.language` property.
	MarkerName InjectionMarkerKind = iota
	// MarkerFilename carries a file name or path, from `@injection.filename`.
	MarkerFilename
	// MarkerShebang carries an interpreter name extracted from a shebang
	// line captured by `@injection.shebang`.
	MarkerShebang
)

// InjectionLanguageMarker describes the language requested by an injection
// site. Resolving a marker to a grammar is the caller's job; the update
// engine only forwards it through the InjectionCallback.
type InjectionLanguageMarker struct {
	Kind  InjectionMarkerKind
	Value string
}

func (m InjectionLanguageMarker) String() string {
	switch m.Kind {
	case MarkerFilename:
		return "filename:" + m.Value
	case MarkerShebang:
		return "shebang:" + m.Value
	default:
		return "name:" + m.Value
	}
}

// InjectionCallback resolves an injection marker to the configuration of the
// injected language. Returning nil skips the injection.
type InjectionCallback func(marker InjectionLanguageMarker) *HighlightConfiguration

// includedChildren selects which child nodes of an injection content node
// remain part of the injected document.
type includedChildren uint8

const (
	includedNone includedChildren = iota
	includedAll
	includedUnnamed
)

// ==================== Highlight Configuration ====================

// HighlightConfiguration bundles a grammar with its compiled highlight,
// injection, and locals queries. One configuration is shared by every layer
// of that language, so it must not be mutated while iterators are live;
// Configure is the only sanctioned mutation and belongs to setup or theme
// switches.
type HighlightConfiguration struct {
	// Language is the grammar the queries were compiled against.
	Language *tree_sitter.Language
	// Name identifies the language, e.g. "javascript".
	Name string

	// query holds the locals query and the highlights query compiled
	// together, so captures of both share one pattern index space.
	query           *tree_sitter.Query
	injectionsQuery *tree_sitter.Query

	// highlightsPatternIndex is the index of the first highlights pattern;
	// everything below it came from the locals query.
	highlightsPatternIndex uint
	// combinedInjectionsPatterns lists injection patterns marked with the
	// `injection.combined` property.
	combinedInjectionsPatterns []uint
	// nonLocalVariablePatterns marks patterns guarded by `#is-not? local`.
	nonLocalVariablePatterns []bool

	captureNames     []string
	highlightIndices []Highlight

	injectionContentCapture  int
	injectionLanguageCapture int
	injectionFilenameCapture int
	injectionShebangCapture  int
	localScopeCapture        int
	localDefCapture          int
	localDefValueCapture     int
	localRefCapture          int
}

// NewHighlightConfiguration compiles the three query sources for a grammar.
// Any of the query strings may be empty. The locals query is prepended to
// the highlights query so that locals patterns are matched first.
func NewHighlightConfiguration(language *tree_sitter.Language, name, highlightsQuery, injectionQuery, localsQuery string) (*HighlightConfiguration, error) {
	querySource := localsQuery + highlightsQuery

	query, err := tree_sitter.NewQuery(language, querySource)
	if err != nil {
		return nil, fmt.Errorf("compiling highlights query for %s: %w", name, err)
	}
	injectionsQuery, err := tree_sitter.NewQuery(language, injectionQuery)
	if err != nil {
		query.Close()
		return nil, fmt.Errorf("compiling injections query for %s: %w", name, err)
	}

	localsOffset := uint(len(localsQuery))
	highlightsPatternIndex := uint(0)
	for i := uint(0); i < query.PatternCount(); i++ {
		if query.StartByteForPattern(i) < localsOffset {
			highlightsPatternIndex++
		}
	}

	var combined []uint
	for i := uint(0); i < injectionsQuery.PatternCount(); i++ {
		for _, setting := range injectionsQuery.PropertySettings(i) {
			if setting.Key == "injection.combined" {
				combined = append(combined, i)
				break
			}
		}
	}

	nonLocal := make([]bool, query.PatternCount())
	for i := uint(0); i < query.PatternCount(); i++ {
		for _, pred := range query.PropertyPredicates(i) {
			if !pred.Positive && pred.Property.Key == "local" {
				nonLocal[i] = true
				break
			}
		}
	}

	captureNames := query.CaptureNames()
	indices := make([]Highlight, len(captureNames))
	for i := range indices {
		indices[i] = HighlightNone
	}

	return &HighlightConfiguration{
		Language:                   language,
		Name:                       name,
		query:                      query,
		injectionsQuery:            injectionsQuery,
		highlightsPatternIndex:     highlightsPatternIndex,
		combinedInjectionsPatterns: combined,
		nonLocalVariablePatterns:   nonLocal,
		captureNames:               captureNames,
		highlightIndices:           indices,
		injectionContentCapture:    captureIndex(injectionsQuery, "injection.content"),
		injectionLanguageCapture:   captureIndex(injectionsQuery, "injection.language"),
		injectionFilenameCapture:   captureIndex(injectionsQuery, "injection.filename"),
		injectionShebangCapture:    captureIndex(injectionsQuery, "injection.shebang"),
		localScopeCapture:          captureIndex(query, "local.scope"),
		localDefCapture:            captureIndex(query, "local.definition"),
		localDefValueCapture:       captureIndex(query, "local.definition-value"),
		localRefCapture:            captureIndex(query, "local.reference"),
	}, nil
}

// captureIndex resolves a capture name to its index, or -1 when the query
// never uses that capture.
func captureIndex(query *tree_sitter.Query, name string) int {
	idx, ok := query.CaptureIndexForName(name)
	if !ok {
		return -1
	}
	return int(idx)
}

// CaptureNames returns the capture names of the combined locals and
// highlights query, in capture index order.
func (c *HighlightConfiguration) CaptureNames() []string {
	return c.captureNames
}

// Configure maps this grammar's capture names onto the caller's recognized
// highlight names. For each capture the longest recognized name whose
// dot-separated parts prefix the capture's parts wins: given the capture
// "function.builtin.static", "function.builtin" beats "function". Captures
// nothing matches are dropped from highlighting until the next Configure.
func (c *HighlightConfiguration) Configure(recognizedNames []string) {
	indices := make([]Highlight, len(c.captureNames))
	for i, captureName := range c.captureNames {
		captureParts := strings.Split(captureName, ".")

		best := HighlightNone
		bestLen := 0
		for j, recognized := range recognizedNames {
			parts := strings.Split(recognized, ".")
			if len(parts) <= bestLen || len(parts) > len(captureParts) {
				continue
			}
			matches := true
			for k, part := range parts {
				if captureParts[k] != part {
					matches = false
					break
				}
			}
			if matches {
				best = Highlight(j)
				bestLen = len(parts)
			}
		}
		indices[i] = best
	}
	c.highlightIndices = indices
}

// injectionPair extracts the language marker and content node of a single
// injection match. Either may be missing.
func (c *HighlightConfiguration) injectionPair(match *tree_sitter.QueryMatch, source []byte) (*InjectionLanguageMarker, *tree_sitter.Node) {
	var marker *InjectionLanguageMarker
	var contentNode *tree_sitter.Node

	for i := range match.Captures {
		capture := &match.Captures[i]
		index := int(capture.Index)
		switch index {
		case c.injectionLanguageCapture:
			value := string(source[capture.Node.StartByte():capture.Node.EndByte()])
			marker = &InjectionLanguageMarker{Kind: MarkerName, Value: value}
		case c.injectionFilenameCapture:
			value := string(source[capture.Node.StartByte():capture.Node.EndByte()])
			marker = &InjectionLanguageMarker{Kind: MarkerFilename, Value: value}
		case c.injectionShebangCapture:
			text := source[capture.Node.StartByte():capture.Node.EndByte()]
			if m := shebangRegex.FindSubmatch(truncateToTwoLines(text)); m != nil {
				marker = &InjectionLanguageMarker{Kind: MarkerShebang, Value: string(m[1])}
			}
		case c.injectionContentCapture:
			node := capture.Node
			contentNode = &node
		}
	}
	return marker, contentNode
}

// injectionForMatch combines the match's captures with the pattern's
// property settings into the final injection description.
func (c *HighlightConfiguration) injectionForMatch(match *tree_sitter.QueryMatch, source []byte) (*InjectionLanguageMarker, *tree_sitter.Node, includedChildren) {
	marker, contentNode := c.injectionPair(match, source)

	children := includedNone
	for _, setting := range c.injectionsQuery.PropertySettings(uint(match.PatternIndex)) {
		switch setting.Key {
		case "injection.language":
			if marker == nil && setting.Value != nil {
				marker = &InjectionLanguageMarker{Kind: MarkerName, Value: *setting.Value}
			}
		case "injection.include-children":
			children = includedAll
		case "injection.include-unnamed-children":
			children = includedUnnamed
		}
	}
	return marker, contentNode, children
}

// truncateToTwoLines bounds shebang scanning to the first two lines of the
// captured node.
func truncateToTwoLines(b []byte) []byte {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		if j := bytes.IndexByte(b[i+1:], '\n'); j >= 0 {
			return b[:i+1+j+1]
		}
	}
	return b
}

// InterpreterFromShebang extracts the interpreter name from a shebang on the
// first line of source, or returns "" when there is none. "#!/usr/bin/env
// python3" yields "python".
func InterpreterFromShebang(source []byte) string {
	line := source
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if !bytes.HasPrefix(line, []byte("#!")) {
		return ""
	}
	m := shebangRegex.FindSubmatch(line)
	if m == nil {
		return ""
	}
	return string(m[1])
}
