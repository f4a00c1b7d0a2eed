package runner

import (
	"context"

	"github.com/bartekus/nbfmt/internal/celldiff"
	"github.com/bartekus/nbfmt/internal/formatter"
)

// CellFormatter is the formatter adapter as seen by the runner.
type CellFormatter interface {
	Format(ctx context.Context, src string, opts formatter.Options) formatter.Result
}

// EvaluateCell formats one code cell and classifies the outcome. A
// changed cell carries its diff with diffContext lines of context
// (celldiff.FullContext for all of them). Failures are encoded in the
// outcome, never returned.
func EvaluateCell(ctx context.Context, f CellFormatter, index int, src string, opts formatter.Options, diffContext int) CellResult {
	res := CellResult{CellIndex: index, Original: src}

	out := f.Format(ctx, src, opts)
	switch out.Status {
	case formatter.StatusFormatted:
		text := out.Text
		if text == src {
			res.Formatted = &text
			res.Outcome = OutcomeUnchanged
			return res
		}
		res.Formatted = &text
		res.Outcome = OutcomeChanged
		res.Diff = celldiff.Compute(src, text, diffContext)
	case formatter.StatusSyntaxError:
		res.Outcome = OutcomeSyntaxError
		if out.Err != nil {
			res.Error = out.Err.Error()
		}
	default:
		res.Formatted = &src
		res.Outcome = OutcomeUnchanged
	}
	return res
}
