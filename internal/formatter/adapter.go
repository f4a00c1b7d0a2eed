// SPDX-License-Identifier: AGPL-3.0-or-later
package formatter

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// SyntaxChecker rejects Python source that cannot be parsed.
type SyntaxChecker interface {
	Check(ctx context.Context, src string) error
}

// Adapter picks a formatter for a notebook cell, shields it from IPython
// magics, and translates its answer into a Result.
type Adapter struct {
	python  Formatter
	byMagic map[string]Formatter

	excludeNonKernel bool
	checker          SyntaxChecker
	log              *zap.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithCellMagicFormatter registers f for cells opening with "%%magic".
func WithCellMagicFormatter(magic string, f Formatter) AdapterOption {
	return func(a *Adapter) { a.byMagic[magic] = f }
}

// WithExcludeNonKernelLanguages skips cells in languages other than the
// kernel's instead of formatting them.
func WithExcludeNonKernelLanguages(exclude bool) AdapterOption {
	return func(a *Adapter) { a.excludeNonKernel = exclude }
}

// WithSyntaxChecker parses Python cells before invoking the formatter.
func WithSyntaxChecker(c SyntaxChecker) AdapterOption {
	return func(a *Adapter) { a.checker = c }
}

// WithLogger sets the adapter's logger.
func WithLogger(l *zap.Logger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAdapter returns an Adapter using python for ordinary cells.
func NewAdapter(python Formatter, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		python:  python,
		byMagic: map[string]Formatter{},
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// pick returns the formatter for src, or nil when the cell is skipped. The
// boolean reports whether the cell is in the kernel language.
func (a *Adapter) pick(src string) (Formatter, bool) {
	line, ok := firstNonEmptyLine(src)
	if !ok {
		return nil, false
	}

	skip := SkippableMagics
	if a.excludeNonKernel {
		skip = append(append([]string{}, SkippableMagics...), a.magicNames()...)
	}
	if hasMagicPrefix(line, skip) {
		return nil, false
	}

	if f, ok := a.byMagic[cellMagic(line)]; ok {
		return f, false
	}
	return a.python, true
}

func (a *Adapter) magicNames() []string {
	names := make([]string, 0, len(a.byMagic))
	for name := range a.byMagic {
		names = append(names, name)
	}
	return names
}

// Format runs the appropriate formatter over a cell's source. It never
// returns an error: failures are reported as StatusSyntaxError.
func (a *Adapter) Format(ctx context.Context, src string, opts Options) Result {
	f, isPython := a.pick(src)
	if f == nil {
		return Result{Status: StatusUnchanged, Text: src}
	}

	// Formatters expect a final newline; notebook cells carry none.
	in := mask(src + "\n")

	if isPython && a.checker != nil {
		if err := a.checker.Check(ctx, in); err != nil {
			a.log.Debug("syntax precheck rejected cell", zap.Error(err))
			return Result{Status: StatusSyntaxError, Text: src, Err: err}
		}
	}

	a.log.Debug("formatting cell", zap.String("formatter", f.Name()), zap.Int("bytes", len(src)))
	out, err := f.Format(ctx, in, opts)
	if err != nil {
		var se *SyntaxError
		if !errors.As(err, &se) {
			err = &SyntaxError{Formatter: f.Name(), Msg: err.Error()}
		}
		return Result{Status: StatusSyntaxError, Text: src, Err: err}
	}

	out = strings.TrimSuffix(unmask(out), "\n")
	if out == src {
		return Result{Status: StatusUnchanged, Text: src}
	}
	return Result{Status: StatusFormatted, Text: out}
}
