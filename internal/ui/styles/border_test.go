package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charmbracelet/lipgloss"
)

func TestRenderTitledBox_Basic(t *testing.T) {
	result := RenderTitledBox("content", "main.go", 20, 5, false)

	assert.Contains(t, result, "╭", "missing top-left corner")
	assert.Contains(t, result, "╮", "missing top-right corner")
	assert.Contains(t, result, "╰", "missing bottom-left corner")
	assert.Contains(t, result, "╯", "missing bottom-right corner")

	lines := strings.Split(result, "\n")
	require.NotEmpty(t, lines, "no lines in result")
	assert.Contains(t, lines[0], "main.go", "title not found in first line")
}

func TestRenderTitledBox_Focused(t *testing.T) {
	unfocused := RenderTitledBox("content", "main.go", 20, 5, false)
	focused := RenderTitledBox("content", "main.go", 20, 5, true)

	unfocusedLines := strings.Split(unfocused, "\n")
	focusedLines := strings.Split(focused, "\n")
	assert.Equal(t, len(unfocusedLines), len(focusedLines), "different line counts")

	assert.Contains(t, unfocused, "main.go", "unfocused missing title")
	assert.Contains(t, focused, "main.go", "focused missing title")
}

func TestRenderTitledBox_LongTitle(t *testing.T) {
	longTitle := "a/very/deeply/nested/path/to/some/file.go"
	result := RenderTitledBox("content", longTitle, 20, 5, false)

	lines := strings.Split(result, "\n")
	require.NotEmpty(t, lines, "no lines in result")

	firstLineWidth := lipgloss.Width(lines[0])
	assert.LessOrEqual(t, firstLineWidth, 20, "first line too wide: %d > 20", firstLineWidth)
	assert.Contains(t, lines[0], "...", "long title should be truncated with ellipsis")
}

func TestRenderTitledBox_EmptyContent(t *testing.T) {
	result := RenderTitledBox("", "main.go", 20, 5, false)

	assert.Contains(t, result, "╭", "missing top-left corner")
	assert.Contains(t, result, "main.go", "missing title")

	// 1 top border + 3 content lines + 1 bottom border
	lines := strings.Split(result, "\n")
	assert.Len(t, lines, 5, "expected 5 lines")
}

func TestRenderTitledBox_EmptyTitle(t *testing.T) {
	result := RenderTitledBox("content", "", 20, 5, false)

	lines := strings.Split(result, "\n")
	require.NotEmpty(t, lines, "no lines in result")
	assert.NotContains(t, lines[0], " ", "plain top border should have no title gap")
}

func TestRenderTitledBox_LinesPaddedToWidth(t *testing.T) {
	result := RenderTitledBox("short\na much longer line of content text", "t", 24, 6, false)

	for i, line := range strings.Split(result, "\n") {
		assert.Equal(t, 24, lipgloss.Width(line), "line %d not padded to box width", i)
	}
}

func TestRenderTitledBox_TinyDimensions(t *testing.T) {
	// Degenerate sizes must not panic or underflow
	result := RenderTitledBox("content", "title", 2, 2, false)
	assert.NotEmpty(t, result)

	result = RenderTitledBox("content", "title", 0, 0, true)
	assert.NotEmpty(t, result)
}
