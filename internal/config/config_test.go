package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.Empty(t, cfg.Theme.Preset)
	require.False(t, cfg.Render.LineNumbers)
	require.Equal(t, 4, cfg.Render.TabWidth)
	require.Equal(t, 500, cfg.Parse.TimeoutMS)
	require.Equal(t, 100, cfg.Watch.DebounceMS)
	require.False(t, cfg.Tracing.Enabled)
	require.Equal(t, "stdout", cfg.Tracing.Exporter)
	require.Equal(t, "localhost:4317", cfg.Tracing.OTLPEndpoint)
	require.Equal(t, 1.0, cfg.Tracing.SampleRate)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestDefaults_Validate(t *testing.T) {
	require.NoError(t, Validate(Defaults()))
}

func TestParseConfig_Timeout(t *testing.T) {
	require.Equal(t, 250*time.Millisecond, ParseConfig{TimeoutMS: 250}.Timeout())
	require.Equal(t, time.Duration(0), ParseConfig{}.Timeout())
}

func TestWatchConfig_Debounce(t *testing.T) {
	require.Equal(t, 100*time.Millisecond, WatchConfig{DebounceMS: 100}.Debounce())
}

func TestFlattenedColors_FlatKeys(t *testing.T) {
	tc := ThemeConfig{
		Colors: map[string]any{
			"keyword":          "#CBA6F7",
			"constant.numeric": "#FAB387",
		},
	}

	flat := tc.FlattenedColors()
	require.Equal(t, "#CBA6F7", flat["keyword"])
	require.Equal(t, "#FAB387", flat["constant.numeric"])
}

func TestFlattenedColors_Nested(t *testing.T) {
	tc := ThemeConfig{
		Colors: map[string]any{
			"constant": map[string]any{
				"numeric": "#FAB387",
				"builtin": "#F38BA8",
			},
		},
	}

	flat := tc.FlattenedColors()
	require.Equal(t, "#FAB387", flat["constant.numeric"])
	require.Equal(t, "#F38BA8", flat["constant.builtin"])
}

func TestFlattenedColors_MapAnyAny(t *testing.T) {
	// YAML decoders sometimes hand back map[any]any for nested maps
	tc := ThemeConfig{
		Colors: map[string]any{
			"variable": map[any]any{
				"builtin": "#F38BA8",
				42:        "#000000", // non-string keys dropped
			},
		},
	}

	flat := tc.FlattenedColors()
	require.Equal(t, "#F38BA8", flat["variable.builtin"])
	require.Len(t, flat, 1)
}

func TestFlattenedColors_DeepNesting(t *testing.T) {
	tc := ThemeConfig{
		Colors: map[string]any{
			"variable": map[string]any{
				"other": map[string]any{
					"member": "#94E2D5",
				},
			},
		},
	}

	flat := tc.FlattenedColors()
	require.Equal(t, "#94E2D5", flat["variable.other.member"])
}

func TestFlattenedColors_Empty(t *testing.T) {
	require.Empty(t, ThemeConfig{}.FlattenedColors())
}

func TestValidateLanguages_Valid(t *testing.T) {
	langs := LanguagesConfig{
		QueryDir:        "/tmp/queries",
		ExtraExtensions: map[string]string{"gohtml": "html"},
	}
	require.NoError(t, ValidateLanguages(langs))
}

func TestValidateLanguages_EmptyExtension(t *testing.T) {
	err := ValidateLanguages(LanguagesConfig{
		ExtraExtensions: map[string]string{"": "html"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "extension must not be empty")
}

func TestValidateLanguages_EmptyLanguage(t *testing.T) {
	err := ValidateLanguages(LanguagesConfig{
		ExtraExtensions: map[string]string{"gohtml": ""},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "language name must not be empty")
}

func TestValidateRender_Valid(t *testing.T) {
	require.NoError(t, ValidateRender(RenderConfig{TabWidth: 0}))
	require.NoError(t, ValidateRender(RenderConfig{TabWidth: 16}))
}

func TestValidateRender_TabWidthOutOfRange(t *testing.T) {
	err := ValidateRender(RenderConfig{TabWidth: 17})
	require.Error(t, err)
	require.Contains(t, err.Error(), "render.tab_width")

	err = ValidateRender(RenderConfig{TabWidth: -1})
	require.Error(t, err)
}

func TestValidateParse_Negative(t *testing.T) {
	err := ValidateParse(ParseConfig{TimeoutMS: -1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse.timeout_ms")
}

func TestValidateWatch_Negative(t *testing.T) {
	err := ValidateWatch(WatchConfig{DebounceMS: -1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "watch.debounce_ms")
}

func TestValidateTracing_Defaults(t *testing.T) {
	err := ValidateTracing(TracingConfig{SampleRate: 1.0})
	require.NoError(t, err)
}

func TestValidateTracing_SampleRateOutOfRange(t *testing.T) {
	err := ValidateTracing(TracingConfig{SampleRate: 1.5})
	require.Error(t, err)
	require.Contains(t, err.Error(), "sample_rate must be between")

	err = ValidateTracing(TracingConfig{SampleRate: -0.1})
	require.Error(t, err)
}

func TestValidateTracing_InvalidExporter(t *testing.T) {
	err := ValidateTracing(TracingConfig{Exporter: "jaeger"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "tracing.exporter")
}

func TestValidateTracing_FileRequiresPath(t *testing.T) {
	cfg := TracingConfig{Enabled: true, Exporter: "file", SampleRate: 1.0}
	err := ValidateTracing(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "file_path is required")

	cfg.FilePath = "/tmp/traces.jsonl"
	require.NoError(t, ValidateTracing(cfg))
}

func TestValidateTracing_OTLPRequiresEndpoint(t *testing.T) {
	cfg := TracingConfig{Enabled: true, Exporter: "otlp", SampleRate: 1.0}
	err := ValidateTracing(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "otlp_endpoint is required")

	cfg.OTLPEndpoint = "localhost:4317"
	require.NoError(t, ValidateTracing(cfg))
}

func TestValidateTracing_DisabledSkipsPathChecks(t *testing.T) {
	// Paths are only required once tracing is switched on
	cfg := TracingConfig{Enabled: false, Exporter: "file", SampleRate: 1.0}
	require.NoError(t, ValidateTracing(cfg))
}

func TestValidateLog_Levels(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		require.NoError(t, ValidateLog(LogConfig{Level: level}))
	}

	err := ValidateLog(LogConfig{Level: "trace"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "log.level")
}

func TestValidate_ReportsFirstError(t *testing.T) {
	cfg := Defaults()
	cfg.Render.TabWidth = 99
	cfg.Tracing.SampleRate = 2.0

	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "render.tab_width")
}

func TestDefaultConfigTemplate_ParsesAsYAML(t *testing.T) {
	var cfg map[string]any
	err := yaml.Unmarshal([]byte(DefaultConfigTemplate()), &cfg)
	require.NoError(t, err)

	// Uncommented sections carry the shipped defaults
	render, ok := cfg["render"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, 4, render["tab_width"])
	require.Equal(t, false, render["line_numbers"])
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	err := WriteDefaultConfig(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "Sheen Configuration")
}
