// Package report writes the per-file progress lines a user reads on stdout.
package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Color palette.
const (
	ColorOK      = lipgloss.Color("42")
	ColorFailure = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("245")
	ColorAccent  = lipgloss.Color("39")
)

// Printer formats progress output. Styling is applied only when color is enabled.
type Printer struct {
	w     io.Writer
	color bool
	p     *message.Printer

	accent  lipgloss.Style
	failure lipgloss.Style
	ok      lipgloss.Style
	muted   lipgloss.Style
}

// New returns a Printer writing to w.
func New(w io.Writer, color bool) *Printer {
	return &Printer{
		w:       w,
		color:   color,
		p:       message.NewPrinter(language.English),
		accent:  lipgloss.NewStyle().Foreground(ColorAccent).Bold(true),
		failure: lipgloss.NewStyle().Foreground(ColorFailure).Bold(true),
		ok:      lipgloss.NewStyle().Foreground(ColorOK).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	}
}

func (pr *Printer) style(s lipgloss.Style, text string) string {
	if !pr.color {
		return text
	}
	return s.Render(text)
}

// Processing announces the file about to be rescaled.
func (pr *Printer) Processing(name, dst string, upm int) {
	_, _ = fmt.Fprintf(pr.w, "%s %s  →  %s  (UPM=%d)\n",
		pr.style(pr.accent, "Processing:"), name, dst, upm)
}

// Planned lists a file a dry run would rescale.
func (pr *Printer) Planned(name, dst string, upm int) {
	_, _ = fmt.Fprintf(pr.w, "%s %s  →  %s  (UPM=%d)\n",
		pr.style(pr.muted, "Would process:"), name, dst, upm)
}

// PlanSummary closes a dry run.
func (pr *Printer) PlanSummary(dstDir string, planned int) {
	_, _ = fmt.Fprintln(pr.w, pr.style(pr.muted,
		pr.p.Sprintf("Dry run: %d files would be written to %s", planned, dstDir)))
}

// Failed reports a file that could not be rescaled.
func (pr *Printer) Failed(name string, err error) {
	_, _ = fmt.Fprintf(pr.w, "  %s %s: %v\n", pr.style(pr.failure, "! Failed:"), name, err)
}

// Done prints the completion line and the outcome counts.
func (pr *Printer) Done(dstDir string, succeeded, failed int) {
	_, _ = fmt.Fprintf(pr.w, "%s Output in: %s\n", pr.style(pr.ok, "Done."), dstDir)

	summary := pr.p.Sprintf("%d converted, %d failed", succeeded, failed)
	if failed > 0 {
		summary = pr.style(pr.failure, summary)
	} else {
		summary = pr.style(pr.muted, summary)
	}
	_, _ = fmt.Fprintln(pr.w, summary)
}
