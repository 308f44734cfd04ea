package preview

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/sheen/internal/ui/styles"
)

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.OverlayTitleColor).
			PaddingLeft(2)

	helpDividerStyle = lipgloss.NewStyle().
				Foreground(styles.OverlayBorderColor)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(styles.OverlayTitleColor).
				MarginTop(1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondaryColor).
			Width(11)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(styles.TextDescriptionColor)

	helpBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.OverlayBorderColor)

	helpContentStyle = lipgloss.NewStyle().
				Padding(0, 2)

	helpFooterStyle = lipgloss.NewStyle().
			Foreground(styles.TextMutedColor).
			MarginTop(1)
)

// renderHelp builds the keybinding overlay box.
func (m Model) renderHelp() string {
	// Column style with right margin for spacing
	columnStyle := lipgloss.NewStyle().MarginRight(4)

	var navCol strings.Builder
	navCol.WriteString(helpSectionStyle.Render("Navigation"))
	navCol.WriteString("\n")
	navCol.WriteString(renderBinding(m.keys.Up))
	navCol.WriteString(renderBinding(m.keys.Down))
	navCol.WriteString(renderBinding(m.keys.PageUp))
	navCol.WriteString(renderBinding(m.keys.PageDown))
	navCol.WriteString(renderBinding(m.keys.Top))
	navCol.WriteString(renderBinding(m.keys.Bottom))

	var searchCol strings.Builder
	searchCol.WriteString(helpSectionStyle.Render("Search"))
	searchCol.WriteString("\n")
	searchCol.WriteString(renderBinding(m.keys.Search))
	searchCol.WriteString(renderBinding(m.keys.NextMatch))
	searchCol.WriteString(renderBinding(m.keys.PrevMatch))
	searchCol.WriteString(renderBinding(m.keys.Escape))

	var displayCol strings.Builder
	displayCol.WriteString(helpSectionStyle.Render("Display"))
	displayCol.WriteString("\n")
	displayCol.WriteString(renderBinding(m.keys.CycleTheme))
	displayCol.WriteString(renderBinding(m.keys.LineNumbers))
	displayCol.WriteString(renderBinding(m.keys.Reload))
	displayCol.WriteString(renderBinding(m.keys.Logs))

	var generalCol strings.Builder
	generalCol.WriteString(helpSectionStyle.Render("General"))
	generalCol.WriteString("\n")
	generalCol.WriteString(renderBinding(m.keys.Help))
	generalCol.WriteString(renderBinding(m.keys.Quit))

	// Join columns horizontally, aligned at top
	columns := lipgloss.JoinHorizontal(
		lipgloss.Top,
		columnStyle.Render(navCol.String()),
		columnStyle.Render(searchCol.String()),
		columnStyle.Render(displayCol.String()),
		generalCol.String(), // Last column doesn't need right margin
	)

	columnsWidth := lipgloss.Width(columns)
	boxWidth := columnsWidth + 4 // Add horizontal padding (2 each side)

	body := helpContentStyle.Render(columns + "\n" + helpFooterStyle.Render("Press ? or Esc to close"))

	divider := helpDividerStyle.Render(strings.Repeat("─", boxWidth))

	var content strings.Builder
	content.WriteString(helpTitleStyle.Render("Keybindings"))
	content.WriteString("\n")
	content.WriteString(divider)
	content.WriteString("\n")
	content.WriteString(body)

	return helpBoxStyle.Width(boxWidth).Render(content.String())
}

func renderBinding(b key.Binding) string {
	h := b.Help()
	return helpKeyStyle.Render(h.Key) + helpDescStyle.Render(h.Desc) + "\n"
}
