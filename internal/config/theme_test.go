package config

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/sheen/internal/syntax"
	"github.com/zjrosen/sheen/internal/theme"
)

// loadConfigFromYAML parses a YAML string through viper, the same decode
// path the CLI uses for config files.
func loadConfigFromYAML(t *testing.T, yamlContent string) Config {
	t.Helper()

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yamlContent)))

	cfg := Defaults()
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg
}

func scopeStyle(t *testing.T, th *theme.Theme, scope string) lipgloss.Style {
	t.Helper()
	for i, s := range theme.AllScopes() {
		if s == scope {
			return th.Style(syntax.Highlight(i))
		}
	}
	t.Fatalf("unknown scope %q", scope)
	return lipgloss.Style{}
}

func TestThemeConfig_WithPreset(t *testing.T) {
	cfg := loadConfigFromYAML(t, `
theme:
  preset: dracula
`)

	require.Equal(t, "dracula", cfg.Theme.Preset)

	th, err := theme.Load(cfg.Theme.Preset, cfg.Theme.FlattenedColors())
	require.NoError(t, err)

	// Dracula keywords are pink
	st := scopeStyle(t, th, "keyword")
	require.Equal(t, lipgloss.Color("#FF79C6"), st.GetForeground())
}

func TestThemeConfig_WithColorOverrides(t *testing.T) {
	cfg := loadConfigFromYAML(t, `
theme:
  colors:
    keyword: "#FF0000"
    constant:
      numeric: "#00FF00"
`)

	th, err := theme.Load(cfg.Theme.Preset, cfg.Theme.FlattenedColors())
	require.NoError(t, err)

	require.Equal(t, lipgloss.Color("#FF0000"), scopeStyle(t, th, "keyword").GetForeground())
	require.Equal(t, lipgloss.Color("#00FF00"), scopeStyle(t, th, "constant.numeric").GetForeground())
}

func TestThemeConfig_PresetWithOverrides(t *testing.T) {
	cfg := loadConfigFromYAML(t, `
theme:
  preset: nord
  colors:
    string: "#123456"
`)

	th, err := theme.Load(cfg.Theme.Preset, cfg.Theme.FlattenedColors())
	require.NoError(t, err)

	// Override wins over the preset, untouched scopes keep preset colors
	require.Equal(t, lipgloss.Color("#123456"), scopeStyle(t, th, "string").GetForeground())
	require.Equal(t, lipgloss.Color("#81A1C1"), scopeStyle(t, th, "keyword").GetForeground())
}

func TestThemeConfig_UnknownPresetRejected(t *testing.T) {
	cfg := loadConfigFromYAML(t, `
theme:
  preset: solarized
`)

	_, err := theme.Load(cfg.Theme.Preset, cfg.Theme.FlattenedColors())
	require.ErrorIs(t, err, theme.ErrUnknownPreset)
}

func TestThemeConfig_InvalidOverrideRejected(t *testing.T) {
	cfg := loadConfigFromYAML(t, `
theme:
  colors:
    keyword: purple
`)

	_, err := theme.Load(cfg.Theme.Preset, cfg.Theme.FlattenedColors())
	require.Error(t, err)
}
