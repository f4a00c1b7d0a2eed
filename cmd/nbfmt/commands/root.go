// SPDX-License-Identifier: AGPL-3.0-or-later

/*
nbfmt - format the code cells of Jupyter notebooks.

It runs black over every Python cell (and styler over %%R cells), rewrites
notebooks in place or reports what would change, and can check that cells
were executed in order.

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.
*/

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bartekus/nbfmt/cmd/nbfmt/internal/clierr"
	"github.com/bartekus/nbfmt/internal/config"
)

// app holds the state shared by the root command and its subcommands for
// one invocation.
type app struct {
	verbose     bool
	configPath  string
	noColor     bool
	check       bool
	diff        bool
	compactDiff bool
	reportJSON  string

	log *zap.Logger
	cfg config.Config
}

// NewRootCmd constructs the nbfmt root Cobra command.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("NBFMT_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	a := &app{log: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "nbfmt [flags] PATH...",
		Short: "Format the code cells of Jupyter notebooks",
		Long: `nbfmt formats the code cells of Jupyter notebooks with black.

Each PATH is a notebook or a directory searched recursively for notebooks.
By default notebooks are rewritten in place; --check and --diff only report
what would change and exit non-zero if anything would.`,
		Version:           version,
		Args:              cobra.MinimumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.teardown,
		RunE:              a.runFormat,
	}
	cmd.SetVersionTemplate("nbfmt version {{.Version}}\n")

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&a.configPath, "config", "", "path to a configuration file (default: nearest "+config.FileName+")")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	pf.BoolVar(&a.check, "check", false, "Don't write the files back, just return the status.")
	pf.BoolVarP(&a.diff, "diff", "d", false, "Don't write the files back, just output a diff for each file on stdout.")
	pf.BoolVar(&a.compactDiff, "compact-diff", false, "Same as --diff but only shows lines that would change plus a few lines of context.")
	pf.StringVar(&a.reportJSON, "report-json", "", "also write the run summary as JSON to this file")
	config.RegisterFlags(pf)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of nbfmt",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "nbfmt version %s\n", version)
		},
	})
	cmd.AddCommand(newWatchCmd(a))

	return cmd
}

// setup builds the logger and resolves the configuration.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if a.verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.log = logger

	if cmd.Name() == "version" {
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return clierr.Wrap(clierr.CodeError, "resolving working directory", err)
	}
	cfg, err := config.Load(wd, a.configPath)
	if err != nil {
		return clierr.Wrap(clierr.CodeError, "loading configuration", err)
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return clierr.Wrap(clierr.CodeError, "reading flags", err)
	}
	if err := cfg.Validate(); err != nil {
		return clierr.Wrap(clierr.CodeError, "invalid configuration", err)
	}
	a.cfg = cfg
	if cfg.Source != "" {
		a.log.Debug("configuration loaded", zap.String("file", cfg.Source))
	}
	return nil
}

func (a *app) teardown(cmd *cobra.Command, args []string) {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// color reports whether reports should be styled.
func (a *app) color() bool {
	if a.noColor {
		return false
	}
	_, set := os.LookupEnv("NO_COLOR")
	return !set
}
