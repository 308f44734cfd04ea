// Package render turns highlight event streams into ANSI-styled text.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/sheen/internal/syntax"
	"github.com/zjrosen/sheen/internal/theme"
)

// Options adjust renderer output.
type Options struct {
	// LineNumbers prefixes each line with a right-aligned number gutter.
	LineNumbers bool
	// TabWidth expands tabs to that many spaces. Zero keeps tabs as-is.
	TabWidth int
}

// Renderer applies a theme to highlight event streams. Highlights nest, and
// the innermost open highlight styles each run of source text.
type Renderer struct {
	theme       *theme.Theme
	lineNumbers bool
	tabWidth    int
}

func New(th *theme.Theme, opts Options) *Renderer {
	return &Renderer{
		theme:       th,
		lineNumbers: opts.LineNumbers,
		tabWidth:    opts.TabWidth,
	}
}

var gutterStyle = lipgloss.NewStyle().Faint(true)

// EventStream is the part of an iterator the renderer consumes. Both
// *syntax.HighlightIter and *syntax.SpanIter satisfy it, so overlay span
// streams render through the same path as capture streams.
type EventStream interface {
	Scan() bool
	Event() syntax.HighlightEvent
}

// Lines renders a highlight stream into one styled string per source line.
// Line strings never contain newlines; a trailing newline in the source does
// not produce a final empty line.
func (r *Renderer) Lines(source []byte, it EventStream) ([]string, error) {
	var (
		lines []string
		line  strings.Builder
		stack []syntax.Highlight
	)

	for it.Scan() {
		switch ev := it.Event().(type) {
		case syntax.EventHighlightStart:
			stack = append(stack, ev.Highlight)

		case syntax.EventHighlightEnd:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case syntax.EventSource:
			style := lipgloss.NewStyle()
			if len(stack) > 0 {
				style = r.theme.Style(stack[len(stack)-1])
			}
			text := string(source[ev.Start:ev.End])
			if r.tabWidth > 0 {
				text = strings.ReplaceAll(text, "\t", strings.Repeat(" ", r.tabWidth))
			}
			for {
				nl := strings.IndexByte(text, '\n')
				if nl < 0 {
					if text != "" {
						line.WriteString(style.Render(text))
					}
					break
				}
				if nl > 0 {
					line.WriteString(style.Render(text[:nl]))
				}
				lines = append(lines, line.String())
				line.Reset()
				text = text[nl+1:]
			}
		}
	}
	if fail, ok := it.(interface{ Err() error }); ok {
		if err := fail.Err(); err != nil {
			return nil, err
		}
	}

	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines, nil
}

// NumberedLines is Lines with the gutter prefixed to each line.
func (r *Renderer) NumberedLines(source []byte, it EventStream) ([]string, error) {
	lines, err := r.Lines(source, it)
	if err != nil {
		return nil, err
	}
	width := len(strconv.Itoa(len(lines)))
	for i, l := range lines {
		lines[i] = gutterStyle.Render(fmt.Sprintf("%*d │ ", width, i+1)) + l
	}
	return lines, nil
}

// Write streams the rendered source to w.
func (r *Renderer) Write(w io.Writer, source []byte, it EventStream) error {
	var (
		lines []string
		err   error
	)
	if r.lineNumbers {
		lines, err = r.NumberedLines(source, it)
	} else {
		lines, err = r.Lines(source, it)
	}
	if err != nil {
		return err
	}

	for _, l := range lines {
		if _, err := io.WriteString(w, l); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
