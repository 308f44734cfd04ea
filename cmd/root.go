package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/sheen/internal/config"
	"github.com/zjrosen/sheen/internal/grammar"
	"github.com/zjrosen/sheen/internal/log"
	"github.com/zjrosen/sheen/internal/render"
	"github.com/zjrosen/sheen/internal/syntax"
	"github.com/zjrosen/sheen/internal/theme"
	"github.com/zjrosen/sheen/internal/tracing"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sheen [file]",
	Short: "Tree-sitter syntax highlighting for the terminal",
	Long: `Sheen renders source files with tree-sitter syntax highlighting,
following language injections across nested layers: JavaScript inside
HTML script tags, CSS inside style attributes, and so on.

Run it once to print a highlighted file, or use 'sheen watch' for a
live preview that reparses only the edited regions as the file changes.

Examples:
  # Highlight a file to stdout
  sheen main.go

  # With a number gutter and a specific theme
  sheen --line-numbers --theme dracula main.go

  # Force the language when detection cannot see it
  sheen --language html template.tpl

  # Inspect what the parser sees
  sheen --debug-tree main.go`,
	Version: version,
	Args:    cobra.ExactArgs(1),
	RunE:    runHighlight,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/sheen/config.yaml)")
	rootCmd.Flags().BoolP("line-numbers", "n", false,
		"prefix each line with a number gutter")
	rootCmd.Flags().StringP("theme", "t", "",
		"theme preset, overriding the config file")
	rootCmd.Flags().StringP("language", "l", "",
		"language name, overriding detection")
	rootCmd.Flags().Bool("debug-tree", false,
		"print the parse tree instead of highlighting")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("render.line_numbers", defaults.Render.LineNumbers)
	viper.SetDefault("render.tab_width", defaults.Render.TabWidth)
	viper.SetDefault("parse.timeout_ms", defaults.Parse.TimeoutMS)
	viper.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMS)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("log.level", defaults.Log.Level)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .sheen/config.yaml (current directory)
		// 2. ~/.config/sheen/config.yaml (user config)
		if _, err := os.Stat(".sheen/config.yaml"); err == nil {
			viper.SetConfigFile(".sheen/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "sheen"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create a commented default
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if home, homeErr := os.UserHomeDir(); homeErr == nil {
				defaultPath := filepath.Join(home, ".config", "sheen", "config.yaml")
				if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
					viper.SetConfigFile(defaultPath)
					_ = viper.ReadInConfig()
				}
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func runHighlight(cmd *cobra.Command, args []string) error {
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cleanup, err := setupLogging()
	if err != nil {
		return err
	}
	defer cleanup()

	path := args[0]
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	provider, err := tracing.NewProvider(tracingConfig())
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer shutdownTracing(provider)

	th, err := loadTheme(cmd)
	if err != nil {
		return err
	}
	reg, err := newRegistry(th)
	if err != nil {
		return err
	}
	lang, err := resolveLanguage(cmd, reg, path, source)
	if err != nil {
		return err
	}
	if lang == nil {
		// No grammar for this file: pass the text through untouched
		_, err = os.Stdout.Write(source)
		return err
	}

	if cfg.Parse.TimeoutMS > 0 {
		syntax.SetParseTimeout(cfg.Parse.Timeout())
	}

	ctx := context.Background()
	tracer := provider.Tracer()

	hcfg, err := reg.Config(ctx, lang)
	if err != nil {
		return fmt.Errorf("compiling %s configuration: %w", lang.Name, err)
	}

	ctx, parseSpan := tracer.Start(ctx, tracing.SpanParse, trace.WithAttributes(
		attribute.String(tracing.AttrFilePath, path),
		attribute.String(tracing.AttrLanguage, lang.Name),
		attribute.Int(tracing.AttrSourceBytes, len(source)),
	))
	syn, err := syntax.New(source, hcfg, reg.InjectionCallback(ctx))
	if syn != nil {
		parseSpan.SetAttributes(attribute.Int(tracing.AttrLayerCount, syn.LayerCount()))
	}
	tracing.RecordOutcome(parseSpan, err)
	parseSpan.End()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	defer syn.Close()

	if debugTree, _ := cmd.Flags().GetBool("debug-tree"); debugTree {
		fmt.Fprint(os.Stdout, syntax.TreeString(syn.Tree().RootNode()))
		return nil
	}

	_, renderSpan := tracer.Start(ctx, tracing.SpanRender, trace.WithAttributes(
		attribute.String(tracing.AttrThemeName, th.Name()),
	))
	r := render.New(th, render.Options{
		LineNumbers: lineNumbersEnabled(cmd),
		TabWidth:    cfg.Render.TabWidth,
	})
	err = r.Write(os.Stdout, source, syn.Highlight(source, nil))
	tracing.RecordOutcome(renderSpan, err)
	renderSpan.End()
	if err != nil {
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	return nil
}

// setupLogging starts file logging when the config asks for it. The returned
// cleanup is safe to call either way.
func setupLogging() (func(), error) {
	if cfg.Log.File == "" {
		return func() {}, nil
	}
	cleanup, err := log.Init(expandHome(cfg.Log.File))
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	log.SetMinLevel(log.LevelFromString(cfg.Log.Level))
	return cleanup, nil
}

// tracingConfig maps the user config onto the tracing subsystem, filling in
// the default trace file location.
func tracingConfig() tracing.Config {
	tc := tracing.DefaultConfig()
	tc.Enabled = cfg.Tracing.Enabled
	if cfg.Tracing.Exporter != "" {
		tc.Exporter = cfg.Tracing.Exporter
	}
	tc.FilePath = expandHome(cfg.Tracing.FilePath)
	if tc.FilePath == "" {
		tc.FilePath = config.DefaultTracesFilePath()
	}
	if cfg.Tracing.OTLPEndpoint != "" {
		tc.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	}
	tc.SampleRate = cfg.Tracing.SampleRate
	return tc
}

func shutdownTracing(provider *tracing.Provider) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = provider.Shutdown(ctx)
}

// loadTheme builds the theme from the config, with the --theme flag taking
// precedence over the configured preset.
func loadTheme(cmd *cobra.Command) (*theme.Theme, error) {
	preset := cfg.Theme.Preset
	if cmd.Flags().Changed("theme") {
		preset, _ = cmd.Flags().GetString("theme")
	}
	th, err := theme.Load(preset, cfg.Theme.FlattenedColors())
	if err != nil {
		return nil, fmt.Errorf("loading theme: %w (run 'sheen themes')", err)
	}
	return th, nil
}

func newRegistry(th *theme.Theme) (*grammar.Registry, error) {
	reg, err := grammar.New(grammar.Options{
		Scopes:          th.Scopes(),
		QueryDir:        expandHome(cfg.Languages.QueryDir),
		ExtraExtensions: cfg.Languages.ExtraExtensions,
	})
	if err != nil {
		return nil, fmt.Errorf("building language registry: %w", err)
	}
	return reg, nil
}

// resolveLanguage detects the file's language, with the --language flag
// taking precedence. A nil language with nil error means no grammar covers
// the file.
func resolveLanguage(cmd *cobra.Command, reg *grammar.Registry, path string, source []byte) (*grammar.Language, error) {
	if cmd.Flags().Changed("language") {
		name, _ := cmd.Flags().GetString("language")
		lang := reg.LanguageByName(name)
		if lang == nil {
			return nil, fmt.Errorf("unknown language %q (run 'sheen languages')", name)
		}
		return lang, nil
	}
	return reg.Detect(path, source), nil
}

func lineNumbersEnabled(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("line-numbers") {
		on, _ := cmd.Flags().GetBool("line-numbers")
		return on
	}
	return cfg.Render.LineNumbers
}

// expandHome resolves a leading ~ so config values like
// ~/.config/sheen/queries work.
func expandHome(p string) string {
	if p == "" || !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
