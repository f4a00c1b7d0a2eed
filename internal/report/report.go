// SPDX-License-Identifier: AGPL-3.0-or-later

// Package report renders per-file diffs and run-wide tallies for humans.
// Diffs go to the output writer; tallies and errors go to the error
// writer, so `nbfmt --diff > changes.patch` captures only the patch.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bartekus/nbfmt/internal/celldiff"
	"github.com/bartekus/nbfmt/internal/runner"
)

type styles struct {
	enabled bool
	header  lipgloss.Style
	added   lipgloss.Style
	removed lipgloss.Style
	hunk    lipgloss.Style
	path    lipgloss.Style
	good    lipgloss.Style
	warn    lipgloss.Style
	bad     lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	if !color {
		return styles{}
	}
	r := lipgloss.NewRenderer(w)
	base := r.NewStyle().TabWidth(lipgloss.NoTabConversion)
	return styles{
		enabled: true,
		header:  base.Bold(true),
		added:   base.Foreground(lipgloss.Color("78")),  // Green
		removed: base.Foreground(lipgloss.Color("197")), // Red
		hunk:    base.Foreground(lipgloss.Color("63")),  // Mauve
		path:    base.Bold(true),
		good:    base.Foreground(lipgloss.Color("78")),
		warn:    base.Foreground(lipgloss.Color("214")),
		bad:     base.Foreground(lipgloss.Color("197")).Bold(true),
	}
}

// paint styles a single line. Without color the text is returned as is.
func (s styles) paint(st lipgloss.Style, text string) string {
	if !s.enabled || text == "" {
		return text
	}
	return st.Render(text)
}

// Renderer writes reports as files are processed. It implements
// runner.Sink.
type Renderer struct {
	out  io.Writer
	err  io.Writer
	mode runner.Mode

	outStyles styles
	errStyles styles
}

// New creates a Renderer. color enables ANSI styling where the writers
// support it.
func New(out, errw io.Writer, mode runner.Mode, color bool) *Renderer {
	return &Renderer{
		out:       out,
		err:       errw,
		mode:      mode,
		outStyles: newStyles(out, color),
		errStyles: newStyles(errw, color),
	}
}

// File renders one notebook's report.
func (r *Renderer) File(rep runner.FileReport) error {
	es := r.errStyles

	if rep.Err != nil {
		_, err := fmt.Fprintf(r.err, "%s %s: %v\n", es.paint(es.bad, "error:"), rep.Path, rep.Err)
		return err
	}

	if r.mode == runner.ModeDiff {
		if err := r.diffs(rep); err != nil {
			return err
		}
	}

	var b strings.Builder
	for _, c := range rep.Cells {
		if c.Outcome == runner.OutcomeSyntaxError {
			fmt.Fprintf(&b, "%s %s: cell %d: %s\n", es.paint(es.bad, "error:"), rep.Path, c.CellIndex, c.Error)
		}
	}
	if rep.ExecutionOrderFailed() {
		fmt.Fprintf(&b, "%s %s: cell %d breaks the execution order (%s)\n",
			es.paint(es.warn, "order:"), rep.Path, rep.ExecutionOrder.Cell, rep.ExecutionOrder.Reason)
	}

	switch r.mode {
	case runner.ModeWrite:
		if rep.Written {
			fmt.Fprintf(&b, "reformatted %s\n", es.paint(es.path, rep.Path))
		}
	default:
		b.WriteString(es.paint(es.path, rep.Path) + "\n")
		writeTally(&b, es, rep.ErrorCount(), "cell(s) raised parsing errors 🤕", es.bad)
		writeTally(&b, es, rep.ChangedCount(), "cell(s) would be changed 😬", es.warn)
		writeTally(&b, es, rep.UnchangedCount(), "cell(s) would be left unchanged 🎉", es.good)
		b.WriteString("\n")
	}

	_, err := io.WriteString(r.err, b.String())
	return err
}

func (r *Renderer) diffs(rep runner.FileReport) error {
	for _, c := range rep.Cells {
		if c.Outcome != runner.OutcomeChanged {
			continue
		}
		var b strings.Builder
		from := fmt.Sprintf("%s - Cell %d (original)", rep.Path, c.CellIndex)
		to := fmt.Sprintf("%s - Cell %d (formatted)", rep.Path, c.CellIndex)
		if err := celldiff.Write(&b, from, to, c.Diff); err != nil {
			return err
		}
		if _, err := io.WriteString(r.out, r.colorDiff(b.String())+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// colorDiff styles a rendered unified diff line by line.
func (r *Renderer) colorDiff(diff string) string {
	s := r.outStyles
	if !s.enabled {
		return diff
	}
	lines := strings.SplitAfter(diff, "\n")
	var b strings.Builder
	for _, l := range lines {
		body := strings.TrimSuffix(l, "\n")
		nl := l[len(body):]
		switch {
		case strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"):
			body = s.paint(s.header, body)
		case strings.HasPrefix(body, "@@"):
			body = s.paint(s.hunk, body)
		case strings.HasPrefix(body, "+"):
			body = s.paint(s.added, body)
		case strings.HasPrefix(body, "-"):
			body = s.paint(s.removed, body)
		}
		b.WriteString(body + nl)
	}
	return b.String()
}

// Summary renders the run-wide tallies.
func (r *Renderer) Summary(sum runner.RunSummary) error {
	es := r.errStyles
	var b strings.Builder

	total := sum.FilesChanged + sum.FilesUnchanged + sum.FilesErrored
	if total == 0 {
		b.WriteString("No notebooks found.\n")
		_, err := io.WriteString(r.err, b.String())
		return err
	}

	if r.mode == runner.ModeWrite {
		writeTally(&b, es, sum.FilesWritten, "file(s) reformatted", es.good)
		writeTally(&b, es, sum.FilesUnchanged, "file(s) left unchanged", es.good)
		writeTally(&b, es, sum.FilesErrored, "file(s) raised parsing errors 🤕", es.bad)
	} else {
		writeTally(&b, es, sum.FilesErrored, "file(s) raised parsing errors 🤕", es.bad)
		writeTally(&b, es, sum.FilesChanged, "file(s) would be changed 😬", es.warn)
		writeTally(&b, es, sum.FilesUnchanged, "file(s) would be left unchanged 🎉", es.good)
	}
	writeTally(&b, es, sum.ExecutionOrderFailures, "file(s) failed the execution order check", es.warn)

	_, err := io.WriteString(r.err, b.String())
	return err
}

func writeTally(b *strings.Builder, s styles, n int, label string, st lipgloss.Style) {
	if n == 0 {
		return
	}
	b.WriteString(s.paint(st, fmt.Sprintf("%d %s", n, label)) + "\n")
}
