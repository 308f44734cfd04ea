package preview

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/sheen/internal/grammar"
	"github.com/zjrosen/sheen/internal/syntax"
	"github.com/zjrosen/sheen/internal/theme"
	"github.com/zjrosen/sheen/internal/ui/logoverlay"
)

func init() {
	// Force ANSI color output in tests (lipgloss disables colors when no TTY)
	lipgloss.SetColorProfile(termenv.ANSI256)
}

const goSource = "package main\n\nvar total = 10\n\nfunc main() {\n\tprintln(total)\n}\n"

// newTestModel builds a preview over a real parsed Go file in a temp dir.
func newTestModel(t *testing.T) Model {
	return resize(t, newUnsizedModel(t), 80, 24)
}

func newUnsizedModel(t *testing.T) Model {
	t.Helper()

	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte(goSource), 0o644))

	th, err := theme.Load("", nil)
	require.NoError(t, err)
	reg, err := grammar.New(grammar.Options{Scopes: th.Scopes()})
	require.NoError(t, err)

	ctx := context.Background()
	lang := reg.Detect(path, []byte(goSource))
	require.NotNil(t, lang)
	cfg, err := reg.Config(ctx, lang)
	require.NoError(t, err)
	syn, err := syntax.New([]byte(goSource), cfg, reg.InjectionCallback(ctx))
	require.NoError(t, err)
	t.Cleanup(syn.Close)

	return New(Config{
		Path:     path,
		Source:   []byte(goSource),
		Registry: reg,
		Language: lang,
		Syntax:   syn,
		Theme:    th,
	})
}

func newPlainModel(t *testing.T, path, content string) Model {
	t.Helper()
	return resize(t, New(Config{Path: path, Source: []byte(content)}), 60, 20)
}

func resize(t *testing.T, m Model, w, h int) Model {
	t.Helper()
	res, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return res.(Model)
}

func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	res, cmd := m.Update(msg)
	return res.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNew_RendersHighlightedSource(t *testing.T) {
	m := newTestModel(t)

	view := m.View()
	assert.Contains(t, view, "total")
	assert.Contains(t, view, "println")
	assert.Contains(t, view, "main.go")
	assert.Contains(t, view, "\x1b[", "highlighting should produce styled output")
}

func TestNew_PlainTextWhenNoLanguage(t *testing.T) {
	m := newPlainModel(t, "notes.txt", "just words\nmore words\n")

	view := m.View()
	assert.Contains(t, view, "just words")
	assert.Contains(t, view, "plain")
}

func TestStatusBar_ShowsLanguageThemeAndLayers(t *testing.T) {
	m := newTestModel(t)

	view := m.View()
	assert.Contains(t, view, "go · default")
	assert.Contains(t, view, "1 layers")
}

func TestSearch_OpenTypeCommit(t *testing.T) {
	m := newTestModel(t)

	m, cmd := press(t, m, runes("/"))
	require.True(t, m.searching)
	require.NotNil(t, cmd)

	m, _ = press(t, m, runes("total"))
	assert.Equal(t, "total", m.query)
	require.Len(t, m.matches, 2)
	assert.Contains(t, m.View(), "total")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)
	assert.Contains(t, m.View(), "1/2")
	assert.Contains(t, m.View(), "Ln 3")
}

func TestSearch_MatchesRenderReverseVideo(t *testing.T) {
	m := newTestModel(t)

	m, _ = press(t, m, runes("/"))
	m, _ = press(t, m, runes("total"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Contains(t, m.View(), "\x1b[7m")
}

func TestSearch_NextAndPrevWrap(t *testing.T) {
	m := newTestModel(t)

	m, _ = press(t, m, runes("/"))
	m, _ = press(t, m, runes("total"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, m.matches, 2)
	require.Equal(t, 0, m.matchIdx)

	m, _ = press(t, m, runes("n"))
	assert.Equal(t, 1, m.matchIdx)
	m, _ = press(t, m, runes("n"))
	assert.Equal(t, 0, m.matchIdx)
	m, _ = press(t, m, runes("N"))
	assert.Equal(t, 1, m.matchIdx)
}

func TestSearch_EscWhileTypingCancels(t *testing.T) {
	m := newTestModel(t)

	m, _ = press(t, m, runes("/"))
	m, _ = press(t, m, runes("total"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, m.searching)
	assert.Empty(t, m.query)
	assert.Empty(t, m.matches)
	assert.NotContains(t, m.View(), "\x1b[7m")
}

func TestSearch_EscAfterCommitClears(t *testing.T) {
	m := newTestModel(t)

	m, _ = press(t, m, runes("/"))
	m, _ = press(t, m, runes("total"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotEmpty(t, m.matches)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.query)
	assert.NotContains(t, m.View(), "\x1b[7m")
}

func TestSearch_NotFound(t *testing.T) {
	m := newTestModel(t)

	m, _ = press(t, m, runes("/"))
	m, _ = press(t, m, runes("zzz"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, m.matches)
	assert.Contains(t, m.View(), "not found")
}

func TestCycleTheme(t *testing.T) {
	m := newTestModel(t)
	require.Equal(t, "default", m.themeName)

	m, _ = press(t, m, runes("t"))
	assert.Equal(t, "catppuccin-latte", m.themeName)

	m, _ = press(t, m, runes("t"))
	assert.Equal(t, "dracula", m.themeName)
}

func TestLineNumbersToggle(t *testing.T) {
	m := newTestModel(t)
	require.False(t, m.lineNumbers)
	require.NotContains(t, m.View(), "│")

	m, _ = press(t, m, runes("L"))
	assert.True(t, m.lineNumbers)
	assert.Contains(t, m.View(), "│")

	m, _ = press(t, m, runes("L"))
	assert.False(t, m.lineNumbers)
}

func TestReload_AppliesEdits(t *testing.T) {
	m := newTestModel(t)
	changed := strings.Replace(goSource, "10", "1000", 1)
	require.NoError(t, os.WriteFile(m.path, []byte(changed), 0o644))

	m, cmd := press(t, m, fileChangedMsg{})
	require.True(t, m.reloading)
	require.NotNil(t, cmd)

	rel, ok := cmd().(reloadedMsg)
	require.True(t, ok)
	require.NoError(t, rel.err)
	assert.Equal(t, 1, rel.layers)

	m, _ = press(t, m, rel)
	assert.False(t, m.reloading)
	assert.Equal(t, changed, string(m.source))
	assert.Contains(t, m.View(), "1000")
}

func TestReload_KeepsSearchMatchesCurrent(t *testing.T) {
	m := newTestModel(t)
	m, _ = press(t, m, runes("/"))
	m, _ = press(t, m, runes("total"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, m.matches, 2)

	// Drop one occurrence of the query
	changed := strings.Replace(goSource, "println(total)", "println(1)", 1)
	require.NoError(t, os.WriteFile(m.path, []byte(changed), 0o644))

	m, cmd := press(t, m, fileChangedMsg{})
	rel := cmd().(reloadedMsg)
	require.NoError(t, rel.err)
	m, _ = press(t, m, rel)

	assert.Len(t, m.matches, 1)
	assert.Equal(t, 0, m.matchIdx)
}

func TestReload_MissingFileShowsError(t *testing.T) {
	m := newPlainModel(t, filepath.Join(t.TempDir(), "gone.txt"), "x\n")

	m, cmd := press(t, m, fileChangedMsg{})
	rel, ok := cmd().(reloadedMsg)
	require.True(t, ok)
	require.Error(t, rel.err)

	m, _ = press(t, m, rel)
	require.Error(t, m.reloadErr)
	assert.Contains(t, m.View(), "reload failed")
}

func TestReload_ErrorClearsOnNextSuccess(t *testing.T) {
	m := newTestModel(t)
	m.reloadErr = os.ErrNotExist
	require.Contains(t, m.View(), "reload failed")

	m, cmd := press(t, m, fileChangedMsg{})
	rel := cmd().(reloadedMsg)
	require.NoError(t, rel.err)
	m, _ = press(t, m, rel)

	assert.NoError(t, m.reloadErr)
	assert.NotContains(t, m.View(), "reload failed")
}

func TestReload_CoalescesWhileInFlight(t *testing.T) {
	m := newTestModel(t)

	m, _ = press(t, m, fileChangedMsg{})
	require.True(t, m.reloading)

	m, _ = press(t, m, fileChangedMsg{})
	require.True(t, m.pendingReload)

	rel := m.reloadCmd()().(reloadedMsg)
	require.NoError(t, rel.err)

	m, cmd := press(t, m, rel)
	assert.False(t, m.pendingReload)
	assert.True(t, m.reloading, "pending change should start another reload")
	assert.NotNil(t, cmd)
}

func TestManualReloadKey(t *testing.T) {
	m := newTestModel(t)

	m, cmd := press(t, m, runes("r"))
	assert.True(t, m.reloading)
	assert.NotNil(t, cmd)
}

func TestHelpOverlay(t *testing.T) {
	m := newTestModel(t)
	require.NotContains(t, m.View(), "Keybindings")

	m, _ = press(t, m, runes("?"))
	assert.True(t, m.showHelp)
	assert.Contains(t, m.View(), "Keybindings")
	assert.Contains(t, m.View(), "cycle theme")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.showHelp)
}

func TestHelpOverlay_SwallowsOtherKeys(t *testing.T) {
	m := newTestModel(t)
	m, _ = press(t, m, runes("?"))

	m, _ = press(t, m, runes("t"))
	assert.True(t, m.showHelp)
	assert.Equal(t, "default", m.themeName)
}

func TestLogOverlayToggle(t *testing.T) {
	m := newTestModel(t)
	require.False(t, m.logs.Visible())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.True(t, m.logs.Visible())
	assert.Contains(t, m.View(), "Logs")

	m, _ = press(t, m, logoverlay.CloseMsg{})
	assert.False(t, m.logs.Visible())
}

func TestScrollKeys(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString("line\n")
	}
	m := newPlainModel(t, "tall.txt", sb.String())
	require.True(t, m.viewport.AtTop())

	m, _ = press(t, m, runes("G"))
	assert.True(t, m.viewport.AtBottom())

	m, _ = press(t, m, runes("g"))
	assert.True(t, m.viewport.AtTop())

	m, _ = press(t, m, runes("j"))
	assert.Equal(t, 1, m.viewport.YOffset)
	m, _ = press(t, m, runes("k"))
	assert.Equal(t, 0, m.viewport.YOffset)
}

func TestResize_ReclipsLines(t *testing.T) {
	m := newTestModel(t)

	m = resize(t, m, 40, 12)
	view := m.View()
	for _, line := range strings.Split(view, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 40)
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t)

	_, cmd := press(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{900 * time.Microsecond, "900µs"},
		{3200 * time.Microsecond, "3.2ms"},
		{1500 * time.Millisecond, "1.50s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}

func TestPreviewProgram(t *testing.T) {
	m := newUnsizedModel(t)
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("total"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}
