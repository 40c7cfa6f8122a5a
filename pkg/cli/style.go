package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/funvibe/pybind/internal/diagnostics"
)

// palette colors CLI output. Every field is the identity when the output is
// not a terminal, so piped output and tests see plain text.
type palette struct {
	title func(string) string
	err   func(string) string
	warn  func(string) string
	info  func(string) string
	ok    func(string) string
	dim   func(string) string
}

func plain(s string) string { return s }

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newPalette(w io.Writer) palette {
	if !isTerminal(w) {
		return palette{title: plain, err: plain, warn: plain, info: plain, ok: plain, dim: plain}
	}
	r := lipgloss.NewRenderer(w)
	paint := func(s lipgloss.Style) func(string) string {
		return func(v string) string { return s.Render(v) }
	}
	return palette{
		title: paint(r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1)),
		err:   paint(r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))),
		warn:  paint(r.NewStyle().Foreground(lipgloss.Color("#FFD166"))),
		info:  paint(r.NewStyle().Foreground(lipgloss.Color("#87CEEB"))),
		ok:    paint(r.NewStyle().Foreground(lipgloss.Color("#90EE90"))),
		dim:   paint(r.NewStyle().Foreground(lipgloss.Color("#666666"))),
	}
}

// severity picks the color for a diagnostic.
func (p palette) severity(s diagnostics.Severity) func(string) string {
	switch s {
	case diagnostics.SeverityError:
		return p.err
	case diagnostics.SeverityWarning:
		return p.warn
	default:
		return p.info
	}
}
