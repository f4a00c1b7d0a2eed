package runner

import (
	"github.com/bartekus/nbfmt/internal/celldiff"
	"github.com/bartekus/nbfmt/internal/notebook"
)

// Mode selects what happens to a notebook after its cells are evaluated.
type Mode string

const (
	// ModeWrite rewrites notebooks whose cells changed.
	ModeWrite Mode = "write"
	// ModeCheck only reports.
	ModeCheck Mode = "check"
	// ModeDiff reports and renders the diff of each changed cell.
	ModeDiff Mode = "diff"
)

// Process exit codes.
const (
	ExitClean       = 0
	ExitWouldChange = 1
	ExitError       = 2
)

// CellOutcome represents the outcome of formatting one code cell.
type CellOutcome string

const (
	OutcomeUnchanged   CellOutcome = "unchanged"
	OutcomeChanged     CellOutcome = "changed"
	OutcomeSyntaxError CellOutcome = "syntax_error"
)

// CellResult is produced once per code cell per run.
type CellResult struct {
	// CellIndex is the 1-based position among all cells of the notebook.
	CellIndex int             `json:"cell_index"`
	Original  string          `json:"original_source"`
	Formatted *string         `json:"formatted_source,omitempty"`
	Outcome   CellOutcome     `json:"outcome"`
	Diff      []celldiff.Hunk `json:"diff,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// FileStatus buckets a file for run-wide tallies.
type FileStatus string

const (
	FileUnchanged FileStatus = "unchanged"
	FileChanged   FileStatus = "changed"
	FileError     FileStatus = "error"
)

// FileReport aggregates the cell results of one notebook.
type FileReport struct {
	Path  string       `json:"path"`
	Cells []CellResult `json:"cells"`
	// ExecutionOrder is nil when the check was not requested.
	ExecutionOrder *notebook.ExecutionOrder `json:"execution_order,omitempty"`
	// Err is a file-level failure: unreadable, not a notebook, or not
	// writable. Cells may be empty when it is set.
	Err     error `json:"-"`
	Written bool  `json:"written"`
}

// ChangedCount returns the number of cells that formatting changes.
func (r FileReport) ChangedCount() int { return r.count(OutcomeChanged) }

// UnchangedCount returns the number of cells left as they are.
func (r FileReport) UnchangedCount() int { return r.count(OutcomeUnchanged) }

// ErrorCount returns the number of cells that could not be formatted.
func (r FileReport) ErrorCount() int { return r.count(OutcomeSyntaxError) }

func (r FileReport) count(o CellOutcome) int {
	n := 0
	for _, c := range r.Cells {
		if c.Outcome == o {
			n++
		}
	}
	return n
}

// ExecutionOrderFailed reports whether the execution-order check ran and
// failed.
func (r FileReport) ExecutionOrderFailed() bool {
	return r.ExecutionOrder != nil && !r.ExecutionOrder.OK
}

// Status buckets the file: errors win over changes.
func (r FileReport) Status() FileStatus {
	switch {
	case r.Err != nil || r.ErrorCount() > 0:
		return FileError
	case r.ChangedCount() > 0:
		return FileChanged
	default:
		return FileUnchanged
	}
}

// Clean reports whether the file has no changed cells, no syntax errors,
// no file-level error and no failed execution-order check.
func (r FileReport) Clean() bool {
	return r.Status() == FileUnchanged && !r.ExecutionOrderFailed()
}

// FileSummary is the per-file line of a RunSummary.
type FileSummary struct {
	Path             string     `json:"path"`
	Status           FileStatus `json:"status"`
	CellsChanged     int        `json:"cells_changed"`
	CellsUnchanged   int        `json:"cells_unchanged"`
	CellsErrored     int        `json:"cells_errored"`
	ExecutionOrderOK *bool      `json:"execution_order_ok,omitempty"`
	Written          bool       `json:"written"`
	Error            string     `json:"error,omitempty"`
}

// RunSummary aggregates FileReports across all processed notebooks.
type RunSummary struct {
	Mode                   Mode          `json:"mode"`
	FilesChanged           int           `json:"files_changed"`
	FilesUnchanged         int           `json:"files_unchanged"`
	FilesErrored           int           `json:"files_errored"`
	FilesWritten           int           `json:"files_written"`
	CellsChanged           int           `json:"cells_changed"`
	CellsUnchanged         int           `json:"cells_unchanged"`
	CellsErrored           int           `json:"cells_errored"`
	ExecutionOrderFailures int           `json:"execution_order_failures"`
	Files                  []FileSummary `json:"files"`
}

// AllClean reports whether every processed file was clean.
func (s RunSummary) AllClean() bool {
	return s.FilesChanged == 0 && s.FilesErrored == 0 && s.ExecutionOrderFailures == 0
}

// ExitCode maps the summary onto the process exit status. Errors yield
// ExitError in every mode. Changed files yield ExitWouldChange except in
// write mode, where they have been fixed. Failed execution-order checks
// yield ExitWouldChange in every mode: rewriting cells never repairs the
// execution counts, so a write-mode run would otherwise pass CI with an
// out-of-order notebook.
func (s RunSummary) ExitCode() int {
	switch {
	case s.FilesErrored > 0:
		return ExitError
	case s.ExecutionOrderFailures > 0:
		return ExitWouldChange
	case s.FilesChanged > 0 && s.Mode != ModeWrite:
		return ExitWouldChange
	default:
		return ExitClean
	}
}
