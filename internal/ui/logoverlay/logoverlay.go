// Package logoverlay provides an in-app log viewer overlay that shows
// recent log entries without leaving the preview.
package logoverlay

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/zjrosen/sheen/internal/log"
	"github.com/zjrosen/sheen/internal/ui/overlay"
	"github.com/zjrosen/sheen/internal/ui/styles"
)

const (
	viewportMaxHeight = 25  // Fixed viewport height in lines
	viewportMinHeight = 5   // Minimum viewport height for very small screens
	boxMaxWidth       = 160 // Maximum box width in characters
	boxMinWidth       = 40  // Minimum box width in characters
)

// CloseMsg is sent when the overlay should be closed.
type CloseMsg struct{}

// levelFilters maps filter keys to the level they select. Order matters:
// the footer hint renders them in this order.
var levelFilters = []struct {
	key   string
	label string
	level log.Level
}{
	{"d", "[d] Debug", log.LevelDebug},
	{"i", "[i] Info", log.LevelInfo},
	{"w", "[w] Warn", log.LevelWarn},
	{"e", "[e] Error", log.LevelError},
}

// Model is the log overlay component state.
type Model struct {
	visible    bool
	minLevel   log.Level
	width      int
	height     int
	viewport   viewport.Model
	listener   *log.LogListener
	listenStop context.CancelFunc
}

// New creates a new log overlay model.
func New() Model {
	return Model{
		visible:  false,
		minLevel: log.LevelDebug,
	}
}

// NewWithSize creates a new log overlay with the given dimensions.
func NewWithSize(width, height int) Model {
	return Model{
		visible:  false,
		minLevel: log.LevelDebug,
		width:    width,
		height:   height,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// StartListening subscribes to the log broker so new entries refresh the
// viewport while the overlay is open. Returns the first listen command;
// nil when the logger is not initialized.
func (m *Model) StartListening() tea.Cmd {
	if m.listener != nil {
		return m.listener.Listen()
	}
	ctx, cancel := context.WithCancel(context.Background())
	listener := log.NewListener(ctx)
	if listener == nil {
		cancel()
		return nil
	}
	m.listener = listener
	m.listenStop = cancel
	return listener.Listen()
}

// StopListening cancels the log subscription.
func (m *Model) StopListening() {
	if m.listenStop != nil {
		m.listenStop()
		m.listenStop = nil
		m.listener = nil
	}
}

// Update handles messages for the log overlay.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	// Log events re-arm the listener even while hidden so the
	// subscription survives the overlay being closed.
	if _, ok := msg.(log.LogEvent); ok {
		if m.visible {
			m.refreshViewport()
		}
		if m.listener != nil {
			return m, m.listener.Listen()
		}
		return m, nil
	}

	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		for _, f := range levelFilters {
			if key == f.key {
				m.minLevel = f.level
				m.refreshViewport()
				return m, nil
			}
		}

		switch key {
		case "c":
			log.ClearBuffer()
			m.refreshViewport()
			return m, nil

		case "j", "down":
			m.viewport.ScrollDown(1)
			return m, nil

		case "k", "up":
			m.viewport.ScrollUp(1)
			return m, nil

		case "g":
			m.viewport.GotoTop()
			return m, nil

		case "G":
			m.viewport.GotoBottom()
			return m, nil

		case "ctrl+c":
			return m, tea.Quit

		case "ctrl+l", "esc", "q":
			m.visible = false
			return m, func() tea.Msg { return CloseMsg{} }
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refreshViewport()
	}

	return m, nil
}

// View renders the log overlay content.
func (m Model) View() string {
	if !m.visible {
		return ""
	}

	boxWidth := m.boxWidth()

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.OverlayTitleColor).
		PaddingLeft(1)
	dividerStyle := lipgloss.NewStyle().
		Foreground(styles.OverlayBorderColor)
	divider := dividerStyle.Render(strings.Repeat("─", boxWidth))

	var result strings.Builder
	result.WriteString(titleStyle.Render("Logs"))
	result.WriteString("\n")
	result.WriteString(divider)
	result.WriteString("\n")
	result.WriteString(m.viewport.View())
	result.WriteString("\n")
	result.WriteString(divider)
	result.WriteString("\n")
	result.WriteString(m.buildFilterHint())

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.OverlayBorderColor).
		Width(boxWidth)

	return boxStyle.Render(result.String())
}

// Overlay renders the log overlay centered on the given background.
func (m Model) Overlay(bg string) string {
	if !m.visible {
		return bg
	}
	return overlay.Center(m.View(), bg, m.width, m.height)
}

// Visible returns whether the overlay is currently visible.
func (m Model) Visible() bool {
	return m.visible
}

// Toggle toggles the overlay visibility.
func (m *Model) Toggle() {
	m.visible = !m.visible
	if m.visible {
		m.refreshViewport()
	}
}

// Show makes the overlay visible.
func (m *Model) Show() {
	m.visible = true
	m.refreshViewport()
}

// Hide makes the overlay invisible.
func (m *Model) Hide() {
	m.visible = false
}

// SetSize updates the overlay's knowledge of the terminal size.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.refreshViewport()
}

// refreshViewport rebuilds the viewport with current buffer content.
func (m *Model) refreshViewport() {
	if m.width == 0 || m.height == 0 {
		return
	}

	contentWidth := m.contentWidth()

	// Header (2 lines), footer (2 lines) and borders (2 lines) sit around
	// the viewport, so subtract 6 from what the screen allows.
	viewportHeight := min(viewportMaxHeight, m.height-6)
	viewportHeight = max(viewportHeight, viewportMinHeight)

	m.viewport = viewport.New(contentWidth, viewportHeight)
	m.viewport.SetContent(m.buildLogContent(contentWidth))
	m.viewport.GotoBottom()
}

func (m Model) boxWidth() int {
	return max(min(m.width-4, boxMaxWidth), boxMinWidth)
}

func (m Model) contentWidth() int {
	return m.boxWidth() - 2
}

// buildLogContent renders the filtered buffer entries for display.
func (m Model) buildLogContent(contentWidth int) string {
	filtered := m.filteredLogs()
	if len(filtered) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(styles.TextMutedColor).
			Italic(true)
		return emptyStyle.Render("No logs to display")
	}

	lines := make([]string, len(filtered))
	for i, entry := range filtered {
		lines[i] = colorizeEntry(entry, contentWidth)
	}
	return strings.Join(lines, "\n")
}

// filteredLogs returns buffer entries at or above the current filter level.
func (m Model) filteredLogs() []string {
	var filtered []string
	for _, entry := range log.GetRecentLogs(10000) {
		if entryLevel(entry) >= m.minLevel {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// entryLevel recovers the level from a formatted entry. Entries without a
// recognizable level marker pass every filter.
func entryLevel(entry string) log.Level {
	switch {
	case strings.Contains(entry, "[ERROR]"):
		return log.LevelError
	case strings.Contains(entry, "[WARN]"):
		return log.LevelWarn
	case strings.Contains(entry, "[INFO]"):
		return log.LevelInfo
	case strings.Contains(entry, "[DEBUG]"):
		return log.LevelDebug
	default:
		return log.LevelError
	}
}

// colorizeEntry styles an entry by its level and truncates it to the
// content width. Truncation is ANSI-aware so wide runes survive.
func colorizeEntry(entry string, maxWidth int) string {
	entry = strings.TrimSuffix(entry, "\n")

	if ansi.StringWidth(entry) > maxWidth {
		entry = ansi.Truncate(entry, maxWidth-3, "...")
	}

	var color lipgloss.AdaptiveColor
	switch {
	case strings.Contains(entry, "[ERROR]"):
		color = styles.StatusErrorColor
	case strings.Contains(entry, "[WARN]"):
		color = styles.StatusWarningColor
	case strings.Contains(entry, "[INFO]"):
		color = styles.StatusInfoColor
	case strings.Contains(entry, "[DEBUG]"):
		color = styles.TextMutedColor
	default:
		color = styles.TextPrimaryColor
	}
	return lipgloss.NewStyle().Foreground(color).Render(entry)
}

// buildFilterHint creates the footer hint showing filter options, with the
// active level highlighted.
func (m Model) buildFilterHint() string {
	hintStyle := lipgloss.NewStyle().Foreground(styles.TextMutedColor)
	activeStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimaryColor).
		Bold(true)

	hints := []string{hintStyle.Render("[c] Clear")}
	for _, f := range levelFilters {
		if m.minLevel == f.level {
			hints = append(hints, activeStyle.Render(f.label))
		} else {
			hints = append(hints, hintStyle.Render(f.label))
		}
	}
	return strings.Join(hints, "  ")
}
