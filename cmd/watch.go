package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/sheen/internal/config"
	"github.com/zjrosen/sheen/internal/log"
	"github.com/zjrosen/sheen/internal/syntax"
	"github.com/zjrosen/sheen/internal/tracing"
	"github.com/zjrosen/sheen/internal/ui/preview"
	"github.com/zjrosen/sheen/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Live highlighted preview that follows file changes",
	Long: `Watch opens a full-screen preview of the file and reparses it whenever
it changes on disk. Edits are diffed against the previous content, so
only the changed regions are reparsed and untouched injection layers
are reused.

Keys:
  j/k, pgup/pgdn   scroll (g/G for top/bottom)
  /                search, then n/N to jump between matches
  t                cycle theme (persisted to the config file)
  L                toggle line numbers
  r                reload by hand
  ctrl+l           show recent log entries
  ?                keybinding help
  q                quit

Examples:
  # Preview a file while editing it elsewhere
  sheen watch main.go

  # Start with the number gutter and a specific theme
  sheen watch --line-numbers --theme nord main.go`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolP("line-numbers", "n", false,
		"prefix each line with a number gutter")
	watchCmd.Flags().StringP("theme", "t", "",
		"theme preset, overriding the config file")
	watchCmd.Flags().StringP("language", "l", "",
		"language name, overriding detection")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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
	tracer := provider.Tracer()

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

	if cfg.Parse.TimeoutMS > 0 {
		syntax.SetParseTimeout(cfg.Parse.Timeout())
	}

	// One session ID ties this run's parse and reload spans together.
	sessionID := uuid.NewString()

	var (
		syn      *syntax.Syntax
		parseDur time.Duration
	)
	if lang != nil {
		hcfg, err := reg.Config(context.Background(), lang)
		if err != nil {
			return fmt.Errorf("compiling %s configuration: %w", lang.Name, err)
		}
		ctx, parseSpan := tracer.Start(context.Background(), tracing.SpanParse, trace.WithAttributes(
			attribute.String(tracing.AttrFilePath, path),
			attribute.String(tracing.AttrLanguage, lang.Name),
			attribute.Int(tracing.AttrSourceBytes, len(source)),
			attribute.String(tracing.AttrSessionID, sessionID),
		))
		start := time.Now()
		syn, err = syntax.New(source, hcfg, reg.InjectionCallback(ctx))
		parseDur = time.Since(start)
		if syn != nil {
			parseSpan.SetAttributes(attribute.Int(tracing.AttrLayerCount, syn.LayerCount()))
		}
		tracing.RecordOutcome(parseSpan, err)
		parseSpan.End()
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	// No syn.Close here: a background reload may still hold the tree when
	// Run returns, so parser memory is left to process exit.

	w, err := watcher.New(watcher.Config{
		Path:        path,
		DebounceDur: cfg.Watch.Debounce(),
	})
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	changes, err := w.Start()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	langName := "plain"
	if lang != nil {
		langName = lang.Name
	}
	log.Info(log.CatWatch, "Watch session started",
		"path", path, "language", langName, "session_id", sessionID)

	model := preview.New(preview.Config{
		Path:        path,
		Source:      source,
		Registry:    reg,
		Language:    lang,
		Syntax:      syn,
		Theme:       th,
		ConfigPath:  configFilePath(),
		LineNumbers: lineNumbersEnabled(cmd),
		TabWidth:    cfg.Render.TabWidth,
		ParseTime:   parseDur,
		Changes:     changes,
		Tracer:      tracer,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("running preview: %w", err)
	}
	if m, ok := finalModel.(preview.Model); ok {
		m.Close()
	}
	return nil
}

// configFilePath is where in-app toggles (theme cycling, the number gutter)
// persist. Falls back to the user config location when no file was loaded.
func configFilePath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "sheen", "config.yaml")
}
