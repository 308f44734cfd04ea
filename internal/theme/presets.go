package theme

// Preset is a complete named color scheme.
type Preset struct {
	Name        string
	Description string
	Colors      map[string]string
}

// Presets contains all built-in theme presets.
var Presets = map[string]Preset{
	"default":          DefaultPreset,
	"catppuccin-latte": CatppuccinLattePreset,
	"dracula":          DraculaPreset,
	"nord":             NordPreset,
}

// Names returns the built-in preset names in a stable order.
func Names() []string {
	return []string{"default", "catppuccin-latte", "dracula", "nord"}
}

// DefaultPreset is the default dark scheme, Catppuccin Mocha inspired.
// Colors from: https://catppuccin.com/palette
var DefaultPreset = Preset{
	Name:        "default",
	Description: "Default dark theme",
	Colors: map[string]string{
		ScopeAttribute:            "#F9E2AF", // yellow
		ScopeComment:              "#6C7086", // overlay0
		ScopeConstant:             "#FAB387", // peach
		ScopeConstantBuiltin:      "#FAB387", // peach
		ScopeConstantCharacter:    "#94E2D5", // teal
		ScopeEscape:               "#F5C2E7", // pink
		ScopeConstantNumeric:      "#FAB387", // peach
		ScopeFunction:             "#89B4FA", // blue
		ScopeFunctionMacro:        "#94E2D5", // teal
		ScopeFunctionMethod:       "#89B4FA", // blue
		ScopeKeyword:              "#CBA6F7", // mauve
		ScopeKeywordDirective:     "#F5C2E7", // pink
		ScopeLabel:                "#74C7EC", // sapphire
		ScopeNamespace:            "#B4BEFE", // lavender
		ScopePunctuation:          "#9399B2", // overlay2
		ScopePunctuationBracket:   "#9399B2", // overlay2
		ScopePunctuationDelimiter: "#9399B2", // overlay2
		ScopeString:               "#A6E3A1", // green
		ScopeStringRegexp:         "#FAB387", // peach
		ScopeTag:                  "#89B4FA", // blue
		ScopeType:                 "#F9E2AF", // yellow
		ScopeTypeBuiltin:          "#F9E2AF", // yellow
		ScopeVariable:             "#CDD6F4", // text
		ScopeVariableBuiltin:      "#F38BA8", // red
		ScopeVariableMember:       "#94E2D5", // teal
		ScopeVariableParameter:    "#EBA0AC", // maroon
	},
}

// CatppuccinLattePreset is the Catppuccin Latte (light) scheme.
// Colors from: https://catppuccin.com/palette
var CatppuccinLattePreset = Preset{
	Name:        "catppuccin-latte",
	Description: "Catppuccin Latte - light theme",
	Colors: map[string]string{
		ScopeAttribute:            "#DF8E1D", // yellow
		ScopeComment:              "#9CA0B0", // overlay0
		ScopeConstant:             "#FE640B", // peach
		ScopeConstantBuiltin:      "#FE640B", // peach
		ScopeConstantCharacter:    "#179299", // teal
		ScopeEscape:               "#EA76CB", // pink
		ScopeConstantNumeric:      "#FE640B", // peach
		ScopeFunction:             "#1E66F5", // blue
		ScopeFunctionMacro:        "#179299", // teal
		ScopeFunctionMethod:       "#1E66F5", // blue
		ScopeKeyword:              "#8839EF", // mauve
		ScopeKeywordDirective:     "#EA76CB", // pink
		ScopeLabel:                "#209FB5", // sapphire
		ScopeNamespace:            "#7287FD", // lavender
		ScopePunctuation:          "#7C7F93", // overlay2
		ScopePunctuationBracket:   "#7C7F93", // overlay2
		ScopePunctuationDelimiter: "#7C7F93", // overlay2
		ScopeString:               "#40A02B", // green
		ScopeStringRegexp:         "#FE640B", // peach
		ScopeTag:                  "#1E66F5", // blue
		ScopeType:                 "#DF8E1D", // yellow
		ScopeTypeBuiltin:          "#DF8E1D", // yellow
		ScopeVariable:             "#4C4F69", // text
		ScopeVariableBuiltin:      "#D20F39", // red
		ScopeVariableMember:       "#179299", // teal
		ScopeVariableParameter:    "#E64553", // maroon
	},
}

// DraculaPreset is the Dracula scheme.
// Colors from: https://draculatheme.com/contribute
var DraculaPreset = Preset{
	Name:        "dracula",
	Description: "Dracula - dark theme with vibrant colors",
	Colors: map[string]string{
		ScopeAttribute:            "#50FA7B", // green
		ScopeComment:              "#6272A4", // comment
		ScopeConstant:             "#BD93F9", // purple
		ScopeConstantBuiltin:      "#BD93F9", // purple
		ScopeConstantCharacter:    "#F1FA8C", // yellow
		ScopeEscape:               "#FF79C6", // pink
		ScopeConstantNumeric:      "#BD93F9", // purple
		ScopeFunction:             "#50FA7B", // green
		ScopeFunctionMacro:        "#50FA7B", // green
		ScopeFunctionMethod:       "#50FA7B", // green
		ScopeKeyword:              "#FF79C6", // pink
		ScopeKeywordDirective:     "#FF79C6", // pink
		ScopeLabel:                "#8BE9FD", // cyan
		ScopeNamespace:            "#8BE9FD", // cyan
		ScopePunctuation:          "#F8F8F2", // foreground
		ScopePunctuationBracket:   "#F8F8F2", // foreground
		ScopePunctuationDelimiter: "#F8F8F2", // foreground
		ScopeString:               "#F1FA8C", // yellow
		ScopeStringRegexp:         "#FF5555", // red
		ScopeTag:                  "#FF79C6", // pink
		ScopeType:                 "#8BE9FD", // cyan
		ScopeTypeBuiltin:          "#8BE9FD", // cyan
		ScopeVariable:             "#F8F8F2", // foreground
		ScopeVariableBuiltin:      "#BD93F9", // purple
		ScopeVariableMember:       "#FFB86C", // orange
		ScopeVariableParameter:    "#FFB86C", // orange
	},
}

// NordPreset is the Nord scheme.
// Colors from: https://www.nordtheme.com/docs/colors-and-palettes
var NordPreset = Preset{
	Name:        "nord",
	Description: "Nord - arctic, north-bluish palette",
	Colors: map[string]string{
		ScopeAttribute:            "#88C0D0", // frost 2
		ScopeComment:              "#4C566A", // polar night 4
		ScopeConstant:             "#81A1C1", // frost 3
		ScopeConstantBuiltin:      "#81A1C1", // frost 3
		ScopeConstantCharacter:    "#A3BE8C", // aurora green
		ScopeEscape:               "#EBCB8B", // aurora yellow
		ScopeConstantNumeric:      "#B48EAD", // aurora purple
		ScopeFunction:             "#88C0D0", // frost 2
		ScopeFunctionMacro:        "#88C0D0", // frost 2
		ScopeFunctionMethod:       "#88C0D0", // frost 2
		ScopeKeyword:              "#81A1C1", // frost 3
		ScopeKeywordDirective:     "#5E81AC", // frost 4
		ScopeLabel:                "#8FBCBB", // frost 1
		ScopeNamespace:            "#8FBCBB", // frost 1
		ScopePunctuation:          "#ECEFF4", // snow storm 3
		ScopePunctuationBracket:   "#ECEFF4", // snow storm 3
		ScopePunctuationDelimiter: "#ECEFF4", // snow storm 3
		ScopeString:               "#A3BE8C", // aurora green
		ScopeStringRegexp:         "#EBCB8B", // aurora yellow
		ScopeTag:                  "#81A1C1", // frost 3
		ScopeType:                 "#8FBCBB", // frost 1
		ScopeTypeBuiltin:          "#8FBCBB", // frost 1
		ScopeVariable:             "#D8DEE9", // snow storm 1
		ScopeVariableBuiltin:      "#81A1C1", // frost 3
		ScopeVariableMember:       "#D8DEE9", // snow storm 1
		ScopeVariableParameter:    "#D8DEE9", // snow storm 1
	},
}
