// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fakefmt provides an in-process stand-in for black in tests. It
// applies two of black's rules, removing the space between a name and an
// opening parenthesis and adding a space after commas, and rejects sources
// with unbalanced brackets.
package fakefmt

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/bartekus/nbfmt/internal/formatter"
)

var (
	spaceBeforeParen = regexp.MustCompile(`(\w) +\(`)
	commaNoSpace     = regexp.MustCompile(`,(\S)`)
)

// Formatter is a deterministic, idempotent fake.
type Formatter struct {
	mu    sync.Mutex
	calls int
	opts  []formatter.Options
}

// New returns a fake formatter.
func New() *Formatter { return &Formatter{} }

func (f *Formatter) Name() string { return "fakefmt" }

// Calls returns how many times Format ran.
func (f *Formatter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastOptions returns the options of the most recent call.
func (f *Formatter) LastOptions() formatter.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.opts) == 0 {
		return formatter.Options{}
	}
	return f.opts[len(f.opts)-1]
}

func (f *Formatter) Format(_ context.Context, src string, opts formatter.Options) (string, error) {
	f.mu.Lock()
	f.calls++
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	if line, ok := unbalanced(src); ok {
		return "", &formatter.SyntaxError{Formatter: f.Name(), Line: line, Msg: "Cannot parse: unbalanced brackets"}
	}

	lines := strings.Split(src, "\n")
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "#") {
			continue
		}
		l = spaceBeforeParen.ReplaceAllString(l, "$1(")
		l = commaNoSpace.ReplaceAllString(l, ", $1")
		lines[i] = l
	}
	return strings.Join(lines, "\n"), nil
}

// unbalanced reports the line on which bracket balance is first violated,
// or the last line if brackets remain open.
func unbalanced(src string) (int, bool) {
	depth := 0
	line := 1
	for _, r := range src {
		switch r {
		case '\n':
			line++
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return line, true
			}
		}
	}
	return line, depth != 0
}
