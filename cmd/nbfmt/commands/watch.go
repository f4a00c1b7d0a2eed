package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bartekus/nbfmt/cmd/nbfmt/internal/clierr"
	"github.com/bartekus/nbfmt/internal/runner"
	"github.com/bartekus/nbfmt/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch PATH...",
		Short: "Format notebooks, then keep formatting them as they change",
		Long: `watch runs nbfmt once over PATH..., then watches those paths and
re-processes every notebook that is created or saved, until interrupted.
All formatting flags apply, so "nbfmt watch --check ." reports without
writing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd.Context(), cmd, args)
		},
	}
}

func (a *app) runWatch(ctx context.Context, cmd *cobra.Command, args []string) error {
	p, err := a.newPipeline(cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if _, err := a.format(ctx, p, args); err != nil {
		return err
	}

	handle := func(ctx context.Context, path string) {
		rep := p.proc.ProcessFile(ctx, path)
		if err := p.renderer.File(rep); err != nil {
			a.log.Warn("rendering report", zap.String("path", path), zap.Error(err))
		}
		if err := a.refreshReport(p.mode, rep); err != nil {
			a.log.Warn("updating JSON report", zap.String("path", a.reportJSON), zap.Error(err))
		}
	}
	w, err := watch.New(p.scanner.Accepts, handle,
		watch.WithSkipDir(p.scanner.ExcludesDir),
		watch.WithLogger(a.log),
	)
	if err != nil {
		return clierr.Wrap(clierr.CodeError, "", err)
	}
	if err := w.Add(args); err != nil {
		_ = w.Close()
		return clierr.Wrap(clierr.CodeError, "watching", err)
	}

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Watching %d director(ies) for changes. Press Ctrl+C to stop.\n", len(w.Dirs()))
	a.log.Info("watching", zap.Strings("dirs", w.Dirs()))
	return w.Run(ctx)
}

// refreshReport folds rep into the summary at --report-json, if set.
func (a *app) refreshReport(mode runner.Mode, rep runner.FileReport) error {
	if a.reportJSON == "" {
		return nil
	}
	store := runner.NewSummaryStore(a.reportJSON)
	prev, err := store.Read()
	if err != nil {
		return err
	}
	sum := runner.NewAggregator(mode).Summary()
	if prev != nil {
		sum = *prev
	}
	return store.Write(sum.WithFile(rep))
}
