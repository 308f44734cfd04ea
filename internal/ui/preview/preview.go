// Package preview implements the watch-mode TUI: a scrolling view of the
// highlighted file that reparses on disk writes and overlays search matches
// on top of the capture highlights.
package preview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/sheen/internal/config"
	"github.com/zjrosen/sheen/internal/grammar"
	"github.com/zjrosen/sheen/internal/log"
	"github.com/zjrosen/sheen/internal/render"
	"github.com/zjrosen/sheen/internal/syntax"
	"github.com/zjrosen/sheen/internal/theme"
	"github.com/zjrosen/sheen/internal/tracing"
	"github.com/zjrosen/sheen/internal/ui/logoverlay"
	"github.com/zjrosen/sheen/internal/ui/overlay"
	"github.com/zjrosen/sheen/internal/ui/styles"
)

const statusBarHeight = 1

// Config carries everything the preview needs from the command layer.
type Config struct {
	// Path is the file being previewed.
	Path string
	// Source is the file content at startup.
	Source []byte
	// Registry resolves injection callbacks on reload.
	Registry *grammar.Registry
	// Language is the detected language; nil renders the file unstyled.
	Language *grammar.Language
	// Syntax is the parsed layer tree for Source; nil when Language is nil.
	Syntax *syntax.Syntax
	// Theme styles the capture highlights; nil falls back to the default.
	Theme *theme.Theme
	// ConfigPath is where theme and display choices are persisted.
	// Empty disables persistence.
	ConfigPath string
	// LineNumbers starts the preview with the number gutter on.
	LineNumbers bool
	// TabWidth expands tabs when rendering.
	TabWidth int
	// ParseTime is the duration of the initial parse, for the status bar.
	ParseTime time.Duration
	// Changes delivers debounced file-change notifications.
	Changes <-chan struct{}
	// Tracer records reload spans; nil disables tracing.
	Tracer trace.Tracer
}

// fileChangedMsg reports a debounced write to the previewed file.
type fileChangedMsg struct{}

// reloadedMsg carries the outcome of a background reload.
type reloadedMsg struct {
	source      []byte
	spans       []syntax.Span
	lineOffsets lineIndex
	parse       time.Duration
	layers      int
	err         error
}

// configSavedMsg reports a background config write.
type configSavedMsg struct{ err error }

// Model is the preview program state.
type Model struct {
	path       string
	configPath string

	registry *grammar.Registry
	lang     *grammar.Language
	syn      *syntax.Syntax
	tracer   trace.Tracer
	changes  <-chan struct{}

	theme     *theme.Theme
	themeName string

	source      []byte
	spans       []syntax.Span
	lineOffsets lineIndex
	lines       []string

	lineNumbers bool
	tabWidth    int
	parseDur    time.Duration
	layerCount  int

	reloading     bool
	pendingReload bool
	reloadErr     error

	searching   bool
	searchInput textinput.Model
	query       string
	matches     []match
	matchIdx    int

	showHelp bool
	logs     logoverlay.Model

	keys         KeyMap
	width        int
	height       int
	ready        bool
	viewport     viewport.Model
	logListenCmd tea.Cmd
}

// New builds the preview model and renders the initial highlight pass.
func New(cfg Config) Model {
	ti := textinput.New()
	ti.Placeholder = "search"
	ti.Prompt = "/"
	ti.Width = 40

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("sheen")
	}

	th := cfg.Theme
	if th == nil {
		th, _ = theme.Load("", nil)
	}

	logs := logoverlay.New()
	logListenCmd := logs.StartListening()

	m := Model{
		path:         cfg.Path,
		configPath:   cfg.ConfigPath,
		registry:     cfg.Registry,
		lang:         cfg.Language,
		syn:          cfg.Syntax,
		tracer:       tracer,
		changes:      cfg.Changes,
		theme:        th,
		themeName:    th.Name(),
		source:       cfg.Source,
		lineOffsets:  newLineIndex(cfg.Source),
		lineNumbers:  cfg.LineNumbers,
		tabWidth:     cfg.TabWidth,
		parseDur:     cfg.ParseTime,
		searchInput:  ti,
		logs:         logs,
		keys:         DefaultKeyMap(),
		logListenCmd: logListenCmd,
	}

	if m.syn != nil {
		m.layerCount = m.syn.LayerCount()
		var cancel atomic.Bool
		spans, err := syntax.CollectSpans(m.syn.Highlight(m.source, &cancel))
		if err != nil {
			m.reloadErr = err
			log.ErrorErr(log.CatHighlight, "initial highlight failed", err, "path", m.path)
		} else {
			m.spans = spans
		}
	}
	m.rebuildLines()
	return m
}

// Init starts the log subscription and the file watch loop.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.logListenCmd != nil {
		cmds = append(cmds, m.logListenCmd)
	}
	if cmd := waitForChange(m.changes); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// waitForChange blocks on the watcher channel and surfaces the next change
// as a message. Each fileChangedMsg re-arms it.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return fileChangedMsg{}
	}
}

// Update routes messages. Log events go to the overlay before anything
// else so the subscription stays armed while it is hidden.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case log.LogEvent:
		logs, cmd := m.logs.Update(msg)
		m.logs = logs
		return m, cmd

	case logoverlay.CloseMsg:
		m.logs.Hide()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logs.SetSize(msg.Width, msg.Height)
		m.layout()
		return m, nil

	case fileChangedMsg:
		cmds = append(cmds, waitForChange(m.changes))
		if m.reloading {
			m.pendingReload = true
		} else {
			m.reloading = true
			cmds = append(cmds, m.reloadCmd())
		}
		return m, tea.Batch(cmds...)

	case reloadedMsg:
		m.reloading = false
		if msg.err != nil {
			m.reloadErr = msg.err
			log.ErrorErr(log.CatWatch, "reload failed", msg.err, "path", m.path)
		} else {
			m.reloadErr = nil
			m.source = msg.source
			m.spans = msg.spans
			m.lineOffsets = msg.lineOffsets
			m.parseDur = msg.parse
			m.layerCount = msg.layers
			m.refreshMatches()
			m.rebuildLines()
		}
		m.layout()
		if m.pendingReload {
			m.pendingReload = false
			m.reloading = true
			cmds = append(cmds, m.reloadCmd())
		}
		return m, tea.Batch(cmds...)

	case configSavedMsg:
		if msg.err != nil {
			log.Warn(log.CatConfig, "persisting display choice failed", "error", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The log overlay owns the keyboard while visible.
	if m.logs.Visible() {
		logs, cmd := m.logs.Update(msg)
		m.logs = logs
		return m, cmd
	}

	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Quit) {
			m.showHelp = false
		}
		return m, nil
	}

	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.viewport.ScrollUp(1)

	case key.Matches(msg, m.keys.Down):
		m.viewport.ScrollDown(1)

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfPageUp()

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfPageDown()

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.searchInput.SetValue(m.query)
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.NextMatch):
		m.advanceMatch(1)

	case key.Matches(msg, m.keys.PrevMatch):
		m.advanceMatch(-1)

	case key.Matches(msg, m.keys.CycleTheme):
		return m.cycleTheme()

	case key.Matches(msg, m.keys.LineNumbers):
		m.lineNumbers = !m.lineNumbers
		m.rebuildLines()
		return m, m.saveLineNumbersCmd()

	case key.Matches(msg, m.keys.Reload):
		if m.reloading {
			m.pendingReload = true
			return m, nil
		}
		m.reloading = true
		return m, m.reloadCmd()

	case key.Matches(msg, m.keys.Logs):
		m.logs.Toggle()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.Escape):
		m.clearSearch()
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		if len(m.matches) > 0 {
			m.scrollToMatch()
		}
		return m, nil
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		m.clearSearch()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if q := m.searchInput.Value(); q != m.query {
		m.setQuery(q)
	}
	return m, cmd
}

// setQuery recomputes matches as the query is typed, so the overlay tracks
// the input live.
func (m *Model) setQuery(q string) {
	m.query = q
	m.matches = findMatches(m.source, m.lineOffsets, q)
	m.matchIdx = 0
	m.rebuildLines()
	if len(m.matches) > 0 {
		m.scrollToMatch()
	}
}

func (m *Model) clearSearch() {
	if m.query == "" {
		return
	}
	m.query = ""
	m.matches = nil
	m.matchIdx = 0
	m.searchInput.SetValue("")
	m.rebuildLines()
}

func (m *Model) advanceMatch(delta int) {
	if len(m.matches) == 0 {
		return
	}
	m.matchIdx = (m.matchIdx + delta + len(m.matches)) % len(m.matches)
	m.scrollToMatch()
}

// scrollToMatch centers the viewport on the active match.
func (m *Model) scrollToMatch() {
	line := m.matches[m.matchIdx].line
	m.viewport.SetYOffset(line - m.viewport.Height/2)
}

// refreshMatches recomputes match positions after the source changes.
func (m *Model) refreshMatches() {
	if m.query == "" {
		return
	}
	m.matches = findMatches(m.source, m.lineOffsets, m.query)
	if m.matchIdx >= len(m.matches) {
		m.matchIdx = 0
	}
}

func (m Model) cycleTheme() (tea.Model, tea.Cmd) {
	names := theme.Names()
	if len(names) == 0 {
		return m, nil
	}
	next := names[(slices.Index(names, m.themeName)+1)%len(names)]
	th, err := theme.Load(next, nil)
	if err != nil {
		log.ErrorErr(log.CatTheme, "loading theme failed", err, "preset", next)
		return m, nil
	}
	m.theme = th
	m.themeName = next
	m.rebuildLines()
	log.Info(log.CatTheme, "theme switched", "preset", next)
	return m, m.saveThemeCmd(next)
}

func (m Model) saveThemeCmd(preset string) tea.Cmd {
	path := m.configPath
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		return configSavedMsg{err: config.SaveThemePreset(path, preset)}
	}
}

func (m Model) saveLineNumbersCmd() tea.Cmd {
	path := m.configPath
	on := m.lineNumbers
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		return configSavedMsg{err: config.SaveLineNumbers(path, on)}
	}
}

// reloadCmd reads the file again and applies the difference to the layer
// tree off the UI goroutine. The reloading flag in Update keeps at most one
// of these in flight, so the closure owns the tree until its message lands.
func (m Model) reloadCmd() tea.Cmd {
	var (
		syn        = m.syn
		old        = m.source
		path       = m.path
		reg        = m.registry
		tracer     = m.tracer
		prevLayers = m.layerCount
	)
	return func() tea.Msg {
		ctx, span := tracer.Start(context.Background(), tracing.SpanUpdate,
			trace.WithAttributes(attribute.String(tracing.AttrFilePath, path)))
		defer span.End()
		span.AddEvent(tracing.EventFileChanged)

		data, err := os.ReadFile(path)
		if err != nil {
			tracing.RecordOutcome(span, err)
			return reloadedMsg{err: fmt.Errorf("reading %s: %w", path, err)}
		}

		start := time.Now()
		var (
			spans  []syntax.Span
			layers int
		)
		if syn != nil {
			edits := syntax.ComputeEdits(old, data)
			span.SetAttributes(attribute.Int(tracing.AttrEditCount, len(edits)))
			if len(edits) > 0 {
				if err := syn.Update(data, edits, reg.InjectionCallback(ctx)); err != nil {
					tracing.RecordOutcome(span, err)
					return reloadedMsg{err: fmt.Errorf("updating layer tree: %w", err)}
				}
			}
			layers = syn.LayerCount()
			span.SetAttributes(attribute.Int(tracing.AttrLayerCount, layers))
			if layers < prevLayers {
				span.AddEvent(tracing.EventLayersPruned)
			}

			var cancel atomic.Bool
			_, hlSpan := tracer.Start(ctx, tracing.SpanHighlight)
			spans, err = syntax.CollectSpans(syn.Highlight(data, &cancel))
			hlSpan.SetAttributes(attribute.Int(tracing.AttrEventCount, len(spans)))
			tracing.RecordOutcome(hlSpan, err)
			hlSpan.End()
			if err != nil {
				tracing.RecordOutcome(span, err)
				return reloadedMsg{err: fmt.Errorf("highlighting: %w", err)}
			}
			log.Debug(log.CatWatch, "reloaded", "path", path, "edits", len(edits), "layers", layers)
		}
		tracing.RecordOutcome(span, nil)
		return reloadedMsg{
			source:      data,
			spans:       spans,
			lineOffsets: newLineIndex(data),
			parse:       time.Since(start),
			layers:      layers,
		}
	}
}

// rebuildLines renders the source through the span path. A base span over
// the whole document keeps unhighlighted text flowing through the renderer,
// and search matches merge in as overlay spans.
func (m *Model) rebuildLines() {
	all := make([]syntax.Span, 0, len(m.spans)+len(m.matches)+1)
	all = append(all, syntax.Span{Scope: syntax.HighlightNone, Start: 0, End: len(m.source)})
	all = append(all, m.spans...)
	all = append(all, matchSpans(m.matches)...)
	syntax.SortSpans(all)

	r := render.New(m.theme, render.Options{TabWidth: m.tabWidth})
	var (
		lines []string
		err   error
	)
	if m.lineNumbers {
		lines, err = r.NumberedLines(m.source, syntax.NewSpanIter(all))
	} else {
		lines, err = r.Lines(m.source, syntax.NewSpanIter(all))
	}
	if err != nil {
		log.ErrorErr(log.CatRender, "rendering failed", err)
		lines = strings.Split(string(m.source), "\n")
	}
	m.lines = lines
	m.refreshViewport()
}

// layout resizes the viewport to what the frame, the error banner, and the
// status bar leave over.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	contentHeight := m.boxHeight() - 2
	if contentHeight < 1 {
		contentHeight = 1
	}
	contentWidth := m.width - 2
	if contentWidth < 1 {
		contentWidth = 1
	}
	if !m.ready {
		m.viewport = viewport.New(contentWidth, contentHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = contentHeight
	}
	m.refreshViewport()
}

// refreshViewport clips rendered lines to the viewport width. The full
// lines stay in the model so a resize can re-clip them.
func (m *Model) refreshViewport() {
	if m.viewport.Width <= 0 {
		return
	}
	display := make([]string, len(m.lines))
	for i, l := range m.lines {
		display[i] = ansi.Truncate(l, m.viewport.Width, "")
	}
	m.viewport.SetContent(strings.Join(display, "\n"))
}

func (m Model) boxHeight() int {
	h := m.height - statusBarHeight
	if banner := m.renderErrorBanner(); banner != "" {
		h -= lipgloss.Height(banner)
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) focused() bool {
	return !m.showHelp && !m.logs.Visible() && !m.searching
}

// View stacks the frame, the optional error banner, the status bar, and
// any active overlay.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	view := styles.RenderTitledBox(m.viewport.View(), filepath.Base(m.path), m.width, m.boxHeight(), m.focused())
	if banner := m.renderErrorBanner(); banner != "" {
		view += "\n" + banner
	}
	view += "\n" + m.renderStatusBar()

	if m.showHelp {
		view = overlay.Center(m.renderHelp(), view, m.width, m.height)
	}
	return m.logs.Overlay(view)
}

var errorBannerStyle = lipgloss.NewStyle().
	Foreground(styles.StatusErrorColor).
	PaddingLeft(1)

// renderErrorBanner shows the last reload failure. The previous good render
// stays in the viewport above it.
func (m Model) renderErrorBanner() string {
	if m.reloadErr == nil {
		return ""
	}
	width := m.width - 2
	if width < 8 {
		width = 8
	}
	return errorBannerStyle.Render(wordwrap.String(m.reloadErr.Error(), width))
}

// Close releases the log subscription. Call after the program exits.
func (m Model) Close() {
	m.logs.StopListening()
}
