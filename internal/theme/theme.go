// Package theme maps highlight scopes onto terminal styles. A Theme is
// compiled from a preset plus per-scope color overrides; its scope list is
// what highlight configurations are built against, so a scope's position is
// the highlight index the renderer looks up.
package theme

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/sheen/internal/syntax"
)

var (
	ErrUnknownPreset = errors.New("unknown theme preset")
	ErrUnknownScope  = errors.New("unknown highlight scope")
)

// Highlight scopes users can color in their config. Capture names resolve to
// the longest scope that prefix-matches on dot boundaries, so a scope like
// "constant.numeric" also covers "constant.numeric.integer" captures.
const (
	ScopeAttribute            = "attribute"
	ScopeComment              = "comment"
	ScopeConstant             = "constant"
	ScopeConstantBuiltin      = "constant.builtin"
	ScopeConstantCharacter    = "constant.character"
	ScopeEscape               = "constant.character.escape"
	ScopeConstantNumeric      = "constant.numeric"
	ScopeFunction             = "function"
	ScopeFunctionMacro        = "function.macro"
	ScopeFunctionMethod       = "function.method"
	ScopeKeyword              = "keyword"
	ScopeKeywordDirective     = "keyword.directive"
	ScopeLabel                = "label"
	ScopeNamespace            = "namespace"
	ScopePunctuation          = "punctuation"
	ScopePunctuationBracket   = "punctuation.bracket"
	ScopePunctuationDelimiter = "punctuation.delimiter"
	ScopeString               = "string"
	ScopeStringRegexp         = "string.regexp"
	ScopeTag                  = "tag"
	ScopeType                 = "type"
	ScopeTypeBuiltin          = "type.builtin"
	ScopeVariable             = "variable"
	ScopeVariableBuiltin      = "variable.builtin"
	ScopeVariableMember       = "variable.other.member"
	ScopeVariableParameter    = "variable.parameter"
)

// AllScopes returns every scope in a fixed order. The order is the highlight
// index space: themes hand this slice to configurations, and Style resolves
// a highlight by indexing into it.
func AllScopes() []string {
	return []string{
		ScopeAttribute,
		ScopeComment,
		ScopeConstant,
		ScopeConstantBuiltin,
		ScopeConstantCharacter,
		ScopeEscape,
		ScopeConstantNumeric,
		ScopeFunction,
		ScopeFunctionMacro,
		ScopeFunctionMethod,
		ScopeKeyword,
		ScopeKeywordDirective,
		ScopeLabel,
		ScopeNamespace,
		ScopePunctuation,
		ScopePunctuationBracket,
		ScopePunctuationDelimiter,
		ScopeString,
		ScopeStringRegexp,
		ScopeTag,
		ScopeType,
		ScopeTypeBuiltin,
		ScopeVariable,
		ScopeVariableBuiltin,
		ScopeVariableMember,
		ScopeVariableParameter,
	}
}

// HighlightSearch is the overlay highlight for search matches. It sits just
// past the scope table so overlay spans never collide with capture
// highlights.
var HighlightSearch = syntax.Highlight(len(AllScopes()))

var searchStyle = lipgloss.NewStyle().Reverse(true)

// Theme is an immutable scope-to-style mapping compiled by Load.
type Theme struct {
	name   string
	scopes []string
	styles []lipgloss.Style
}

// Load compiles a theme. Order of application:
// 1. Start with the default preset's colors
// 2. Apply the named preset (if not "" or "default")
// 3. Apply individual scope color overrides
func Load(preset string, overrides map[string]string) (*Theme, error) {
	name := "default"
	colors := maps.Clone(DefaultPreset.Colors)

	if preset != "" && preset != "default" {
		p, ok := Presets[preset]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, preset)
		}
		maps.Copy(colors, p.Colors)
		name = preset
	}

	for scope, value := range overrides {
		if !isValidScope(scope) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownScope, scope)
		}
		if !isValidHexColor(value) {
			return nil, fmt.Errorf("invalid hex color for %s: %s", scope, value)
		}
		colors[scope] = value
	}

	scopes := AllScopes()
	styles := make([]lipgloss.Style, len(scopes))
	for i, scope := range scopes {
		style := lipgloss.NewStyle()
		if hex, ok := colors[scope]; ok {
			style = style.Foreground(lipgloss.Color(hex))
		}
		switch scope {
		case ScopeKeyword, ScopeKeywordDirective:
			style = style.Bold(true)
		case ScopeComment:
			style = style.Italic(true)
		}
		styles[i] = style
	}

	return &Theme{name: name, scopes: scopes, styles: styles}, nil
}

// Name returns the preset the theme was loaded from.
func (t *Theme) Name() string {
	return t.name
}

// Scopes returns the recognized highlight names, in highlight index order.
// Pass this to HighlightConfiguration.Configure.
func (t *Theme) Scopes() []string {
	return t.scopes
}

// Style resolves a highlight to its terminal style. Out-of-range highlights
// and HighlightNone get the zero style, which renders text unchanged.
func (t *Theme) Style(h syntax.Highlight) lipgloss.Style {
	if h == HighlightSearch {
		return searchStyle
	}
	if h == syntax.HighlightNone || int(h) < 0 || int(h) >= len(t.styles) {
		return lipgloss.NewStyle()
	}
	return t.styles[h]
}

func isValidScope(scope string) bool {
	for _, s := range AllScopes() {
		if s == scope {
			return true
		}
	}
	return false
}

func isValidHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	hex := s[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return false
	}
	_, err := strconv.ParseUint(hex, 16, 64)
	return err == nil
}
