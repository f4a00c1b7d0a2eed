// SPDX-License-Identifier: AGPL-3.0-or-later

// Package formatter wraps external code formatters behind a pure
// source-in, source-out contract.
package formatter

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultLineLength matches black's default.
const DefaultLineLength = 88

var (
	// ErrSyntax classifies sources a formatter could not parse.
	ErrSyntax = errors.New("cannot format source")
	// ErrFormatterNotFound is returned when a formatter binary is not on PATH.
	ErrFormatterNotFound = errors.New("formatter not found")
)

// Options are the style settings passed to every formatter.
type Options struct {
	LineLength              int
	SkipStringNormalization bool
}

// DefaultOptions returns black's defaults.
func DefaultOptions() Options {
	return Options{LineLength: DefaultLineLength}
}

// Formatter formats one piece of source text. Implementations return a
// *SyntaxError when the text cannot be parsed.
type Formatter interface {
	Name() string
	Format(ctx context.Context, src string, opts Options) (string, error)
}

// SyntaxError reports source a formatter refused.
type SyntaxError struct {
	Formatter string
	// Line is 1-based within the cell, or 0 if unknown.
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	msg := strings.TrimSpace(e.Msg)
	if msg == "" {
		msg = ErrSyntax.Error()
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Formatter, e.Line, msg)
	}
	return fmt.Sprintf("%s: %s", e.Formatter, msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Status is the outcome of formatting one cell.
type Status string

const (
	StatusUnchanged   Status = "unchanged"
	StatusFormatted   Status = "formatted"
	StatusSyntaxError Status = "syntax_error"
)

// Result is what the Adapter hands back for a cell.
type Result struct {
	Status Status
	// Text is the formatted source when Status is StatusFormatted, and the
	// original source otherwise.
	Text string
	// Err explains a StatusSyntaxError result.
	Err error
}
