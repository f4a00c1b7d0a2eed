package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bartekus/nbfmt/cmd/nbfmt/internal/clierr"
	"github.com/bartekus/nbfmt/internal/celldiff"
	"github.com/bartekus/nbfmt/internal/formatter"
	"github.com/bartekus/nbfmt/internal/report"
	"github.com/bartekus/nbfmt/internal/runner"
	"github.com/bartekus/nbfmt/internal/scanner"
)

// pipeline is everything a run needs, wired from the resolved config.
type pipeline struct {
	scanner  *scanner.Scanner
	proc     *runner.Processor
	renderer *report.Renderer
	mode     runner.Mode
}

func (a *app) mode() runner.Mode {
	switch {
	case a.diff || a.compactDiff:
		return runner.ModeDiff
	case a.check:
		return runner.ModeCheck
	default:
		return runner.ModeWrite
	}
}

func (a *app) newPipeline(out, errw io.Writer) (*pipeline, error) {
	cfg := a.cfg
	if err := formatter.LookPath(cfg.Black); err != nil {
		return nil, clierr.Wrap(clierr.CodeError, "", err)
	}

	scn := scanner.New(cfg.FilterOptions(), a.log)
	scn.TrackedOnly = cfg.TrackedOnly

	adapterOpts := []formatter.AdapterOption{
		formatter.WithLogger(a.log),
		formatter.WithCellMagicFormatter("R", formatter.NewStyler(cfg.Rscript)),
		formatter.WithExcludeNonKernelLanguages(cfg.ExcludeNonKernelLanguages),
	}
	if cfg.SyntaxPrecheck {
		adapterOpts = append(adapterOpts, formatter.WithSyntaxChecker(formatter.NewTreeSitterChecker()))
	}
	adapter := formatter.NewAdapter(formatter.NewBlack(cfg.Black), adapterOpts...)

	mode := a.mode()
	opts := runner.Options{
		Mode:                mode,
		Format:              cfg.FormatOptions(),
		DiffContext:         celldiff.FullContext,
		CheckExecutionOrder: cfg.CheckExecutionOrder,
	}
	if a.compactDiff {
		opts.DiffContext = cfg.CompactContext
	}

	return &pipeline{
		scanner:  scn,
		proc:     runner.NewProcessor(adapter, opts, a.log),
		renderer: report.New(out, errw, mode, a.color()),
		mode:     mode,
	}, nil
}

// format discovers the notebooks under roots, processes them and renders
// the run summary.
func (a *app) format(ctx context.Context, p *pipeline, roots []string) (runner.RunSummary, error) {
	paths, err := p.scanner.Discover(ctx, roots)
	if err != nil {
		return runner.RunSummary{}, clierr.Wrap(clierr.CodeError, "discovering notebooks", err)
	}
	a.log.Debug("notebooks discovered", zap.Int("count", len(paths)))

	sum, err := runner.NewRunner(p.proc, a.cfg.Workers, p.renderer, a.log).Run(ctx, paths)
	if err != nil {
		return sum, clierr.Wrap(clierr.CodeError, "", err)
	}
	if err := p.renderer.Summary(sum); err != nil {
		return sum, err
	}
	if a.reportJSON != "" {
		if err := runner.NewSummaryStore(a.reportJSON).Write(sum); err != nil {
			return sum, clierr.Wrap(clierr.CodeError, "writing JSON report", err)
		}
	}
	return sum, nil
}

func (a *app) runFormat(cmd *cobra.Command, args []string) error {
	p, err := a.newPipeline(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	sum, err := a.format(cmd.Context(), p, args)
	if err != nil {
		return err
	}
	return clierr.Status(sum.ExitCode())
}
