package preview

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/zjrosen/sheen/internal/ui/styles"
)

var (
	statusBarStyle = lipgloss.NewStyle().
			Background(styles.StatusBarBgColor).
			Foreground(styles.StatusBarTextColor)

	statusAccentStyle = lipgloss.NewStyle().
				Background(styles.StatusBarAccentColor).
				Foreground(lipgloss.Color("#11111B")).
				Bold(true).
				Padding(0, 1)

	statusErrorStyle = lipgloss.NewStyle().
				Background(styles.StatusBarBgColor).
				Foreground(styles.StatusErrorColor).
				Bold(true)
)

// renderStatusBar lays out file and engine facts in one bar: the file cell
// and language on the left, parse facts and scroll position on the right,
// with the gap padded so the right block hugs the edge.
func (m Model) renderStatusBar() string {
	if m.searching {
		bar := statusBarStyle.Width(m.width).Render(m.searchInput.View())
		return ansi.Truncate(bar, m.width, "")
	}

	file := filepath.Base(m.path)
	if max := m.width / 3; max > 3 && runewidth.StringWidth(file) > max {
		file = runewidth.Truncate(file, max, "…")
	}

	left := []string{m.languageName(), m.themeName}

	var right []string
	if m.query != "" {
		right = append(right, m.searchStatus())
	}
	right = append(right,
		fmt.Sprintf("%d layers", m.layerCount),
		formatDuration(m.parseDur),
		m.scrollPosition(),
	)

	fileCell := statusAccentStyle.Render(file)
	leftCell := statusBarStyle.Render(" " + strings.Join(left, " · ") + " ")
	var rightCell string
	if m.reloadErr != nil {
		rightCell = statusErrorStyle.Render(" reload failed ")
	}
	rightCell += statusBarStyle.Render(" " + strings.Join(right, " · ") + " ")

	gap := m.width - lipgloss.Width(fileCell) - lipgloss.Width(leftCell) - lipgloss.Width(rightCell)
	if gap < 0 {
		gap = 0
	}
	bar := fileCell + leftCell + statusBarStyle.Render(strings.Repeat(" ", gap)) + rightCell
	return ansi.Truncate(bar, m.width, "")
}

func (m Model) languageName() string {
	if m.lang == nil {
		return "plain"
	}
	return m.lang.Name
}

// searchStatus reports the active match position as both an ordinal and a
// cursor location, so "n" jumps can be followed in the bar.
func (m Model) searchStatus() string {
	if len(m.matches) == 0 {
		return fmt.Sprintf("%q not found", m.query)
	}
	cur := m.matches[m.matchIdx]
	col := displayColumn(m.source, m.lineOffsets, cur.start) + 1
	return fmt.Sprintf("%d/%d · Ln %d, Col %d", m.matchIdx+1, len(m.matches), cur.line+1, col)
}

func (m Model) scrollPosition() string {
	switch {
	case m.viewport.AtTop():
		return "top"
	case m.viewport.AtBottom():
		return "bot"
	default:
		return fmt.Sprintf("%d%%", int(m.viewport.ScrollPercent()*100))
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	default:
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
}
