package change

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes operator-facing diagnostics. All harness output goes
// through one of these so tests can capture the diagnostic stream.
type Printer struct {
	w      io.Writer
	header lipgloss.Style
	warn   lipgloss.Style
	fail   lipgloss.Style
	dim    lipgloss.Style
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		w:      w,
		header: lipgloss.NewStyle().Bold(true),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		fail:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		dim:    lipgloss.NewStyle().Faint(true),
	}
}

// Headerf prints a bold section line.
func (p *Printer) Headerf(format string, args ...any) {
	fmt.Fprintln(p.w, p.header.Render(fmt.Sprintf(format, args...)))
}

// Warnf prints a warning line.
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintln(p.w, p.warn.Render(fmt.Sprintf(format, args...)))
}

// Failf prints an error line.
func (p *Printer) Failf(format string, args ...any) {
	fmt.Fprintln(p.w, p.fail.Render(fmt.Sprintf(format, args...)))
}

// Dimf prints a de-emphasized status line.
func (p *Printer) Dimf(format string, args ...any) {
	fmt.Fprintln(p.w, p.dim.Render(fmt.Sprintf(format, args...)))
}

// Raw prints text verbatim, unstyled. Attempted file contents go through
// here so the operator sees exactly what the model proposed.
func (p *Printer) Raw(text string) {
	fmt.Fprintln(p.w, text)
}

// RejectedChange prints a rejected change with its full attempted contents.
func (p *Printer) RejectedChange(reason string, v Vetted) {
	p.Headerf("--- REJECTED (%s): %s %s ---", reason, v.Op, v.RepoPath)
	if v.Op == OpPut {
		p.Raw(string(v.Contents))
	} else {
		p.Raw(fmt.Sprintf("(requested deletion of %s)", v.RepoPath))
	}
	p.Headerf("--- END REJECTED: %s ---", v.RepoPath)
}
