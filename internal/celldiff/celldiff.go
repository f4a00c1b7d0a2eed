// SPDX-License-Identifier: AGPL-3.0-or-later

// Package celldiff computes line-based unified diffs between a cell's
// original and formatted source, and applies them back.
package celldiff

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// FullContext asks Compute to keep every unchanged line in a single hunk.
const FullContext = -1

// DefaultCompactContext is the context window used for compact diffs.
const DefaultCompactContext = 3

// LineKind marks a diff line as context, removal or addition.
type LineKind byte

const (
	Context LineKind = ' '
	Removed LineKind = '-'
	Added   LineKind = '+'
)

// Line is one line of a hunk, without its trailing newline.
type Line struct {
	Kind LineKind `json:"kind"`
	Text string   `json:"text"`
}

// Hunk is a contiguous block of changes with surrounding context. Starts
// are 0-based line offsets.
type Hunk struct {
	OrigStart int    `json:"orig_start"`
	OrigLines int    `json:"orig_lines"`
	NewStart  int    `json:"new_start"`
	NewLines  int    `json:"new_lines"`
	Lines     []Line `json:"lines"`
}

// Header renders the hunk's "@@ -a,b +c,d @@" line.
func (h Hunk) Header() string {
	return fmt.Sprintf("@@ -%s +%s @@", formatRange(h.OrigStart, h.OrigLines), formatRange(h.NewStart, h.NewLines))
}

// formatRange follows the unified diff convention: 1-based start, length
// omitted when 1, start pointing before the position when empty.
func formatRange(start, length int) string {
	beginning := start + 1
	if length == 0 {
		beginning--
	}
	if length == 1 {
		return fmt.Sprintf("%d", beginning)
	}
	return fmt.Sprintf("%d,%d", beginning, length)
}

// SplitLines splits text on "\n". An empty text has no lines.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Compute returns the hunks turning original into formatted, with context
// unchanged lines around each change. Pass FullContext to keep all lines.
// Identical inputs produce no hunks.
func Compute(original, formatted string, context int) []Hunk {
	a, b := SplitLines(original), SplitLines(formatted)
	if context < 0 {
		context = max(len(a), len(b))
	}

	m := difflib.NewMatcherWithJunk(a, b, false, nil)
	var hunks []Hunk
	for _, group := range m.GetGroupedOpCodes(context) {
		if onlyEqual(group) {
			continue
		}
		first, last := group[0], group[len(group)-1]
		h := Hunk{
			OrigStart: first.I1,
			OrigLines: last.I2 - first.I1,
			NewStart:  first.J1,
			NewLines:  last.J2 - first.J1,
		}
		for _, op := range group {
			switch op.Tag {
			case 'e':
				for _, l := range a[op.I1:op.I2] {
					h.Lines = append(h.Lines, Line{Kind: Context, Text: l})
				}
			case 'r', 'd', 'i':
				for _, l := range a[op.I1:op.I2] {
					h.Lines = append(h.Lines, Line{Kind: Removed, Text: l})
				}
				for _, l := range b[op.J1:op.J2] {
					h.Lines = append(h.Lines, Line{Kind: Added, Text: l})
				}
			}
		}
		hunks = append(hunks, h)
	}
	return hunks
}

func onlyEqual(group []difflib.OpCode) bool {
	for _, op := range group {
		if op.Tag != 'e' {
			return false
		}
	}
	return true
}

// Apply replays hunks over original and returns the resulting text. It
// fails if a context or removed line does not match the original.
func Apply(original string, hunks []Hunk) (string, error) {
	src := SplitLines(original)
	var out []string
	pos := 0
	for i, h := range hunks {
		if h.OrigStart < pos || h.OrigStart > len(src) {
			return "", fmt.Errorf("hunk %d: start %d out of order", i+1, h.OrigStart)
		}
		out = append(out, src[pos:h.OrigStart]...)
		pos = h.OrigStart
		for _, l := range h.Lines {
			switch l.Kind {
			case Context, Removed:
				if pos >= len(src) || src[pos] != l.Text {
					return "", fmt.Errorf("hunk %d: line %d does not match", i+1, pos+1)
				}
				if l.Kind == Context {
					out = append(out, l.Text)
				}
				pos++
			case Added:
				out = append(out, l.Text)
			default:
				return "", fmt.Errorf("hunk %d: unknown line kind %q", i+1, l.Kind)
			}
		}
	}
	out = append(out, src[pos:]...)
	return strings.Join(out, "\n"), nil
}

// Write renders hunks as a unified diff with the given file labels. The
// output carries no timestamps, so identical inputs render identically.
func Write(w io.Writer, fromFile, toFile string, hunks []Hunk) error {
	var b strings.Builder
	b.WriteString("--- " + fromFile + "\n")
	b.WriteString("+++ " + toFile + "\n")
	for _, h := range hunks {
		b.WriteString(h.Header() + "\n")
		for _, l := range h.Lines {
			b.WriteByte(byte(l.Kind))
			b.WriteString(l.Text)
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
