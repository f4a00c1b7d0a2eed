package config

import (
	"github.com/spf13/pflag"
)

// Flag names shared by every command that formats notebooks.
const (
	FlagLineLength          = "line-length"
	FlagSkipStringNorm      = "skip-string-normalization"
	FlagExclude             = "exclude"
	FlagAcceptedLanguages   = "accepted-languages"
	FlagExcludeNonKernel    = "exclude-nonkernel-languages"
	FlagConsistentExecution = "assert-consistent-execution"
	FlagSyntaxPrecheck      = "syntax-precheck"
	FlagTrackedOnly         = "tracked-only"
	FlagCompactContext      = "compact-context"
	FlagBlack               = "black"
	FlagRscript             = "rscript"
	FlagWorkers             = "workers"
)

// RegisterFlags defines the configuration flags on fs, showing the
// built-in defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.IntP(FlagLineLength, "l", d.LineLength, "How many characters per line to allow.")
	fs.BoolP(FlagSkipStringNorm, "S", d.SkipStringNormalization, "Don't normalize string quotes or prefixes.")
	fs.String(FlagExclude, d.Exclude, "Regular expression to match paths which should be excluded when searching directories.")
	fs.String(FlagAcceptedLanguages, d.AcceptedLanguages, "Only format Jupyter notebooks in these comma-separated languages.")
	fs.Bool(FlagExcludeNonKernel, d.ExcludeNonKernelLanguages, "Only format code cells in the language of the notebook kernel.")
	fs.Bool(FlagConsistentExecution, d.CheckExecutionOrder, "Assert that all cells have been executed in order.")
	fs.Bool(FlagSyntaxPrecheck, d.SyntaxPrecheck, "Parse Python cells before formatting and report syntax errors without running the formatter.")
	fs.Bool(FlagTrackedOnly, d.TrackedOnly, "Only search files tracked by git when walking directories.")
	fs.Int(FlagCompactContext, d.CompactContext, "Lines of context around each change with --compact-diff.")
	fs.String(FlagBlack, d.Black, "Command used to run black.")
	fs.String(FlagRscript, d.Rscript, "Command used to run Rscript for %%R cells.")
	fs.Int(FlagWorkers, d.Workers, "Number of notebooks to format concurrently.")
}

// ApplyFlags overrides c with every flag the user set explicitly.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	setInt := func(name string, dst *int) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetInt(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetBool(name)
		}
	}
	setString := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}

	setInt(FlagLineLength, &c.LineLength)
	setBool(FlagSkipStringNorm, &c.SkipStringNormalization)
	setString(FlagExclude, &c.Exclude)
	setString(FlagAcceptedLanguages, &c.AcceptedLanguages)
	setBool(FlagExcludeNonKernel, &c.ExcludeNonKernelLanguages)
	setBool(FlagConsistentExecution, &c.CheckExecutionOrder)
	setBool(FlagSyntaxPrecheck, &c.SyntaxPrecheck)
	setBool(FlagTrackedOnly, &c.TrackedOnly)
	setInt(FlagCompactContext, &c.CompactContext)
	setString(FlagBlack, &c.Black)
	setString(FlagRscript, &c.Rscript)
	setInt(FlagWorkers, &c.Workers)
	return err
}
