package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const progressWidth = 20

var (
	colorPrimary   = lipgloss.Color("39")
	colorSecondary = lipgloss.Color("86")
	colorSuccess   = lipgloss.Color("42")
	colorDim       = lipgloss.Color("241")
)

// Terminal renders to a writer using lipgloss boxes.
type Terminal struct {
	out   io.Writer
	stack [][]string

	box     lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	button  lipgloss.Style
	filled  lipgloss.Style
	pending lipgloss.Style
}

// NewTerminal creates a Terminal writing to out. Color support is detected
// from out, so plain buffers get no escape codes.
func NewTerminal(out io.Writer) *Terminal {
	r := lipgloss.NewRenderer(out)
	return &Terminal{
		out: out,
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1),
		title:   r.NewStyle().Bold(true).Foreground(colorPrimary),
		label:   r.NewStyle().Foreground(colorSecondary),
		button:  r.NewStyle().Bold(true).Foreground(colorPrimary),
		filled:  r.NewStyle().Foreground(colorSuccess),
		pending: r.NewStyle().Foreground(colorDim),
	}
}

func (t *Terminal) emit(block string) {
	if n := len(t.stack); n > 0 {
		t.stack[n-1] = append(t.stack[n-1], block)
		return
	}
	fmt.Fprintln(t.out, block)
}

// Container implements Surface.
func (t *Terminal) Container(title string, body func(Surface)) {
	t.stack = append(t.stack, nil)
	if body != nil {
		body(t)
	}
	parts := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]

	content := t.title.Render(title)
	if len(parts) > 0 {
		content = lipgloss.JoinVertical(lipgloss.Left, append([]string{content}, parts...)...)
	}
	t.emit(t.box.Render(content))
}

// Text implements Surface.
func (t *Terminal) Text(text string) {
	t.emit(text)
}

// Metric implements Surface.
func (t *Terminal) Metric(label, value string) {
	t.emit(t.label.Render(label+":") + " " + value)
}

// Button implements Surface.
func (t *Terminal) Button(label, actionID string) {
	t.emit(t.button.Render("["+label+"]") + " " + actionID)
}

// Progress implements Surface.
func (t *Terminal) Progress(label string, percent int) {
	percent = max(0, min(percent, 100))
	n := percent * progressWidth / 100
	bar := t.filled.Render(strings.Repeat("█", n)) + t.pending.Render(strings.Repeat("░", progressWidth-n))
	t.emit(fmt.Sprintf("%s %s %3d%%", label, bar, percent))
}
