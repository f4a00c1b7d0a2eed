package runner

import "iter"

// Aggregator folds FileReports into a RunSummary as they arrive.
type Aggregator struct {
	summary RunSummary
}

// NewAggregator starts an empty summary for mode.
func NewAggregator(mode Mode) *Aggregator {
	return &Aggregator{summary: RunSummary{Mode: mode, Files: []FileSummary{}}}
}

// Add accounts for one file.
func (a *Aggregator) Add(r FileReport) {
	a.add(summarize(r))
}

func summarize(r FileReport) FileSummary {
	fs := FileSummary{
		Path:           r.Path,
		Status:         r.Status(),
		CellsChanged:   r.ChangedCount(),
		CellsUnchanged: r.UnchangedCount(),
		CellsErrored:   r.ErrorCount(),
		Written:        r.Written,
	}
	if r.Err != nil {
		fs.Error = r.Err.Error()
	}
	if r.ExecutionOrder != nil {
		ok := r.ExecutionOrder.OK
		fs.ExecutionOrderOK = &ok
	}
	return fs
}

func (a *Aggregator) add(fs FileSummary) {
	s := &a.summary
	switch fs.Status {
	case FileError:
		s.FilesErrored++
	case FileChanged:
		s.FilesChanged++
	default:
		s.FilesUnchanged++
	}
	if fs.Written {
		s.FilesWritten++
	}
	if fs.ExecutionOrderOK != nil && !*fs.ExecutionOrderOK {
		s.ExecutionOrderFailures++
	}
	s.CellsChanged += fs.CellsChanged
	s.CellsUnchanged += fs.CellsUnchanged
	s.CellsErrored += fs.CellsErrored
	s.Files = append(s.Files, fs)
}

// Summary returns the summary so far.
func (a *Aggregator) Summary() RunSummary {
	s := a.summary
	s.Files = make([]FileSummary, len(a.summary.Files))
	copy(s.Files, a.summary.Files)
	return s
}

// Aggregate consumes reports lazily and returns their summary.
func Aggregate(mode Mode, reports iter.Seq[FileReport]) RunSummary {
	a := NewAggregator(mode)
	for r := range reports {
		a.Add(r)
	}
	return a.Summary()
}

// WithFile returns a copy of s in which r replaces the entry for the same
// path, or is appended when the path is new. Tallies are recomputed.
func (s RunSummary) WithFile(r FileReport) RunSummary {
	a := NewAggregator(s.Mode)
	next := summarize(r)
	replaced := false
	for _, fs := range s.Files {
		if fs.Path == next.Path {
			fs, replaced = next, true
		}
		a.add(fs)
	}
	if !replaced {
		a.add(next)
	}
	return a.Summary()
}
