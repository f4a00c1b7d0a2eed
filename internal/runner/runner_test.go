package runner

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bartekus/nbfmt/internal/celldiff"
	"github.com/bartekus/nbfmt/internal/formatter"
	"github.com/bartekus/nbfmt/internal/notebook"
	"github.com/bartekus/nbfmt/internal/testutil/fakefmt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type cellSpec struct {
	typ   string
	src   string
	count *int
}

func code(src string, count ...int) cellSpec {
	c := cellSpec{typ: "code", src: src}
	if len(count) > 0 {
		c.count = &count[0]
	}
	return c
}

func markdown(src string) cellSpec { return cellSpec{typ: "markdown", src: src} }

func notebookJSON(t *testing.T, cells ...cellSpec) []byte {
	t.Helper()
	var raw []map[string]any
	for _, c := range cells {
		m := map[string]any{
			"cell_type": c.typ,
			"metadata":  map[string]any{"tags": []string{"keep"}},
			"source":    notebook.SplitLines(c.src),
		}
		if c.typ == "code" {
			m["execution_count"] = c.count
			m["outputs"] = []any{}
		}
		raw = append(raw, m)
	}
	doc := map[string]any{
		"cells": raw,
		"metadata": map[string]any{
			"kernelspec": map[string]any{"language": "python", "name": "python3"},
		},
		"nbformat":       4,
		"nbformat_minor": 5,
	}
	data, err := json.MarshalIndent(doc, "", " ")
	require.NoError(t, err)
	return data
}

func writeNotebook(t *testing.T, dir, name string, cells ...cellSpec) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, notebookJSON(t, cells...), 0o644))
	return path
}

func newProcessor(mode Mode, checkOrder bool) *Processor {
	opts := DefaultOptions()
	opts.Mode = mode
	opts.CheckExecutionOrder = checkOrder
	return NewProcessor(formatter.NewAdapter(fakefmt.New()), opts, nil)
}

func TestEvaluateCell(t *testing.T) {
	ctx := context.Background()
	a := formatter.NewAdapter(fakefmt.New())
	opts := formatter.DefaultOptions()

	res := EvaluateCell(ctx, a, 3, "foo(1, 2, 3)", opts, celldiff.FullContext)
	assert.Equal(t, 3, res.CellIndex)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
	assert.Empty(t, res.Diff)

	res = EvaluateCell(ctx, a, 1, "foo(1, 2,3)", opts, celldiff.FullContext)
	assert.Equal(t, OutcomeChanged, res.Outcome)
	require.NotNil(t, res.Formatted)
	assert.Equal(t, "foo(1, 2, 3)", *res.Formatted)
	require.NotEmpty(t, res.Diff)
	applied, err := celldiff.Apply(res.Original, res.Diff)
	require.NoError(t, err)
	assert.Equal(t, *res.Formatted, applied)

	res = EvaluateCell(ctx, a, 2, "foo(1,", opts, celldiff.FullContext)
	assert.Equal(t, OutcomeSyntaxError, res.Outcome)
	assert.Nil(t, res.Formatted)
	assert.Empty(t, res.Diff)
	assert.NotEmpty(t, res.Error)
}

func TestProcessFile_WriteScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeNotebook(t, dir, "nb.ipynb",
		markdown("# Intro"),
		code("def foo (*args):\n    return sum(args)", 1),
		code("foo(1, 2,3)", 2),
	)

	rep := newProcessor(ModeWrite, false).ProcessFile(context.Background(), path)
	require.NoError(t, rep.Err)
	assert.Equal(t, 2, rep.ChangedCount())
	assert.Equal(t, 0, rep.UnchangedCount())
	assert.Equal(t, 0, rep.ErrorCount())
	assert.True(t, rep.Written)
	assert.Equal(t, []int{2, 3}, []int{rep.Cells[0].CellIndex, rep.Cells[1].CellIndex})

	nb, err := notebook.Read(path)
	require.NoError(t, err)
	require.Len(t, nb.Cells, 3)
	assert.Equal(t, "# Intro", nb.Cells[0].Source)
	assert.Equal(t, "def foo(*args):\n    return sum(args)", nb.Cells[1].Source)
	assert.Equal(t, "foo(1, 2, 3)", nb.Cells[2].Source)
	assert.Equal(t, 1, *nb.Cells[1].ExecutionCount)
	assert.Equal(t, 2, *nb.Cells[2].ExecutionCount)
	assert.Equal(t, "python", nb.Language())

	// A second pass finds nothing to do.
	again := newProcessor(ModeWrite, false).ProcessFile(context.Background(), path)
	assert.Equal(t, 2, again.UnchangedCount())
	assert.False(t, again.Written)
}

func TestProcessFile_SyntaxErrorCellStaysVerbatim(t *testing.T) {
	dir := t.TempDir()
	path := writeNotebook(t, dir, "nb.ipynb",
		code("x = f (1)"),
		code("broken(1,"),
		code("y = g(2,3)"),
	)

	rep := newProcessor(ModeWrite, false).ProcessFile(context.Background(), path)
	require.NoError(t, rep.Err)
	assert.Equal(t, 2, rep.ChangedCount())
	assert.Equal(t, 1, rep.ErrorCount())
	assert.True(t, rep.Written)
	assert.Equal(t, FileError, rep.Status())
	assert.False(t, rep.Clean())

	nb, err := notebook.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "x = f(1)", nb.Cells[0].Source)
	assert.Equal(t, "broken(1,", nb.Cells[1].Source)
	assert.Equal(t, "y = g(2, 3)", nb.Cells[2].Source)
}

func TestProcessFile_CheckAndDiffNeverWrite(t *testing.T) {
	for _, mode := range []Mode{ModeCheck, ModeDiff} {
		t.Run(string(mode), func(t *testing.T) {
			dir := t.TempDir()
			path := writeNotebook(t, dir, "nb.ipynb", code("foo(1, 2,3)"), code("bad(("))
			before, err := os.ReadFile(path)
			require.NoError(t, err)

			rep := newProcessor(mode, false).ProcessFile(context.Background(), path)
			assert.Equal(t, 1, rep.ChangedCount())
			assert.Equal(t, 1, rep.ErrorCount())
			assert.False(t, rep.Written)

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestProcessNotebook_InMemoryCheckDoesNotMutate(t *testing.T) {
	nb, err := notebook.Parse(notebookJSON(t, code("foo(1,2)")))
	require.NoError(t, err)

	rep := newProcessor(ModeCheck, false).ProcessNotebook(context.Background(), nb)
	assert.Equal(t, 1, rep.ChangedCount())
	assert.Equal(t, "foo(1,2)", nb.Cells[0].Source)
}

func TestProcessNotebook_NoCodeCells(t *testing.T) {
	nb, err := notebook.Parse(notebookJSON(t, markdown("only text")))
	require.NoError(t, err)

	rep := newProcessor(ModeCheck, true).ProcessNotebook(context.Background(), nb)
	assert.Empty(t, rep.Cells)
	require.NotNil(t, rep.ExecutionOrder)
	assert.True(t, rep.ExecutionOrder.OK)
	assert.True(t, rep.Clean())

	empty, err := notebook.Parse([]byte(`{"cells": []}`))
	require.NoError(t, err)
	assert.True(t, newProcessor(ModeCheck, false).ProcessNotebook(context.Background(), empty).Clean())
}

func TestProcessNotebook_ExecutionOrder(t *testing.T) {
	ordered, err := notebook.Parse(notebookJSON(t, code("a = 1", 1), markdown("x"), code("b = 2", 2)))
	require.NoError(t, err)
	rep := newProcessor(ModeCheck, true).ProcessNotebook(context.Background(), ordered)
	require.NotNil(t, rep.ExecutionOrder)
	assert.True(t, rep.ExecutionOrder.OK)
	assert.True(t, rep.Clean())

	gap, err := notebook.Parse(notebookJSON(t, code("a = 1", 1), code("b = 2", 3)))
	require.NoError(t, err)
	rep = newProcessor(ModeCheck, true).ProcessNotebook(context.Background(), gap)
	assert.True(t, rep.ExecutionOrderFailed())
	assert.Equal(t, 2, rep.ExecutionOrder.Cell)
	assert.Equal(t, FileUnchanged, rep.Status())
	assert.False(t, rep.Clean())

	unchecked := newProcessor(ModeCheck, false).ProcessNotebook(context.Background(), gap)
	assert.Nil(t, unchecked.ExecutionOrder)
	assert.True(t, unchecked.Clean())
}

func TestProcessFile_NotANotebook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.ipynb")
	require.NoError(t, os.WriteFile(path, []byte(`{"nope": true}`), 0o644))

	rep := newProcessor(ModeWrite, false).ProcessFile(context.Background(), path)
	require.Error(t, rep.Err)
	assert.ErrorIs(t, rep.Err, notebook.ErrNotANotebook)
	assert.Equal(t, FileError, rep.Status())
}

func TestProcessFile_CountsInvariant(t *testing.T) {
	dir := t.TempDir()
	path := writeNotebook(t, dir, "nb.ipynb",
		code("a = f (1)"), markdown("m"), code("b = 1"), code("c = (("), code(""), code("%%bash\nls"),
	)
	rep := newProcessor(ModeCheck, false).ProcessFile(context.Background(), path)
	assert.Equal(t, 5, rep.ChangedCount()+rep.UnchangedCount()+rep.ErrorCount())
	assert.Equal(t, 1, rep.ChangedCount())
	assert.Equal(t, 1, rep.ErrorCount())
}

func TestRunner_CleanAndBrokenDirectory(t *testing.T) {
	dir := t.TempDir()
	clean := writeNotebook(t, dir, "clean.ipynb", code("foo(1, 2)", 1))
	broken := writeNotebook(t, dir, "broken.ipynb", code("x = f (1,2)", 1), code("oops(", 2))
	paths := []string{broken, clean}

	check := NewRunner(newProcessor(ModeCheck, false), 1, nil, nil)
	sum, err := check.Run(context.Background(), paths)
	require.NoError(t, err)
	assert.False(t, sum.AllClean())
	assert.Equal(t, ExitError, sum.ExitCode())
	assert.Equal(t, 1, sum.FilesErrored)
	assert.Equal(t, 1, sum.FilesUnchanged)
	assert.Equal(t, 1, sum.CellsChanged)
	assert.Equal(t, 1, sum.CellsErrored)

	write := NewRunner(newProcessor(ModeWrite, false), 1, nil, nil)
	_, err = write.Run(context.Background(), paths)
	require.NoError(t, err)

	nb, err := notebook.Read(broken)
	require.NoError(t, err)
	assert.Equal(t, "x = f(1, 2)", nb.Cells[0].Source)
	assert.Equal(t, "oops(", nb.Cells[1].Source)
}

func TestRunner_ScenarioSummary(t *testing.T) {
	dir := t.TempDir()
	path := writeNotebook(t, dir, "nb.ipynb",
		code("def foo (*args):\n    return sum(args)"),
		code("foo(1, 2,3)"),
	)

	var seen []FileReport
	sink := SinkFunc(func(r FileReport) error {
		seen = append(seen, r)
		return nil
	})
	sum, err := NewRunner(newProcessor(ModeWrite, false), 1, sink, nil).Run(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.CellsChanged)
	assert.Equal(t, 0, sum.CellsUnchanged)
	assert.Equal(t, 1, sum.FilesChanged)
	assert.Equal(t, ExitClean, sum.ExitCode())
	require.Len(t, seen, 1)
	assert.True(t, seen[0].Written)
}

func TestRunner_ContinuesPastUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeNotebook(t, dir, "good.ipynb", code("a = 1"))
	missing := filepath.Join(dir, "missing.ipynb")

	sum, err := NewRunner(newProcessor(ModeWrite, false), 1, nil, nil).Run(context.Background(), []string{missing, good})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.FilesErrored)
	assert.Equal(t, 1, sum.FilesUnchanged)
	assert.Equal(t, ExitError, sum.ExitCode())
	assert.NotEmpty(t, sum.Files[0].Error)
}

func TestRunner_UnreadableDirectoryIsFileError(t *testing.T) {
	dir := t.TempDir()
	good := writeNotebook(t, dir, "good.ipynb", code("a = 1"))
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(locked, 0o755))

	sum, err := NewRunner(newProcessor(ModeCheck, false), 1, nil, nil).Run(context.Background(), []string{good, locked})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.FilesErrored)
	assert.Equal(t, 1, sum.FilesUnchanged)
	assert.Equal(t, FileError, sum.Files[1].Status)
}

func TestRunner_ParallelKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		paths = append(paths, writeNotebook(t, dir, name+".ipynb", code(name+" = f (1)")))
	}

	var order []string
	sink := SinkFunc(func(r FileReport) error {
		order = append(order, r.Path)
		return nil
	})
	sum, err := NewRunner(newProcessor(ModeCheck, false), 4, sink, nil).Run(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, paths, order)
	assert.Equal(t, 6, sum.FilesChanged)
	assert.Equal(t, ExitWouldChange, sum.ExitCode())
}

func TestRunner_Cancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeNotebook(t, dir, "nb.ipynb", code("a = 1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(newProcessor(ModeCheck, false), 1, nil, nil).Run(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregate_Lazy(t *testing.T) {
	order := notebook.ExecutionOrder{OK: false, Cell: 1}
	reports := []FileReport{
		{Path: "a", Cells: []CellResult{{Outcome: OutcomeChanged}, {Outcome: OutcomeUnchanged}}},
		{Path: "b", Cells: []CellResult{{Outcome: OutcomeUnchanged}}, ExecutionOrder: &order},
		{Path: "c", Err: notebook.ErrNotANotebook},
	}

	sum := Aggregate(ModeCheck, slices.Values(reports))
	assert.Equal(t, 1, sum.FilesChanged)
	assert.Equal(t, 1, sum.FilesUnchanged)
	assert.Equal(t, 1, sum.FilesErrored)
	assert.Equal(t, 1, sum.ExecutionOrderFailures)
	assert.Equal(t, 1, sum.CellsChanged)
	assert.Equal(t, 2, sum.CellsUnchanged)
	assert.False(t, sum.AllClean())
	require.Len(t, sum.Files, 3)
	require.NotNil(t, sum.Files[1].ExecutionOrderOK)
	assert.False(t, *sum.Files[1].ExecutionOrderOK)
}

func TestRunSummary_ExitCode(t *testing.T) {
	tests := []struct {
		name string
		sum  RunSummary
		want int
	}{
		{"clean check", RunSummary{Mode: ModeCheck, FilesUnchanged: 2}, ExitClean},
		{"changed check", RunSummary{Mode: ModeCheck, FilesChanged: 1}, ExitWouldChange},
		{"changed diff", RunSummary{Mode: ModeDiff, FilesChanged: 1}, ExitWouldChange},
		{"changed write", RunSummary{Mode: ModeWrite, FilesChanged: 1}, ExitClean},
		{"errored write", RunSummary{Mode: ModeWrite, FilesErrored: 1}, ExitError},
		{"errored beats changed", RunSummary{Mode: ModeCheck, FilesChanged: 3, FilesErrored: 1}, ExitError},
		{"order failure write", RunSummary{Mode: ModeWrite, ExecutionOrderFailures: 1}, ExitWouldChange},
		{"empty run", RunSummary{Mode: ModeCheck}, ExitClean},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sum.ExitCode())
		})
	}
}

func TestSummaryStore(t *testing.T) {
	store := NewSummaryStore(filepath.Join(t.TempDir(), "out", "summary.json"))

	got, err := store.Read()
	require.NoError(t, err)
	assert.Nil(t, got)

	agg := NewAggregator(ModeCheck)
	agg.Add(FileReport{Path: "a.ipynb", Cells: []CellResult{{Outcome: OutcomeChanged}}})
	require.NoError(t, store.Write(agg.Summary()))

	got, err = store.Read()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ModeCheck, got.Mode)
	assert.Equal(t, 1, got.FilesChanged)
	assert.Equal(t, "a.ipynb", got.Files[0].Path)
	assert.Equal(t, FileChanged, got.Files[0].Status)
}

func TestRunSummary_WithFile(t *testing.T) {
	agg := NewAggregator(ModeWrite)
	agg.Add(FileReport{Path: "a.ipynb", Cells: []CellResult{{Outcome: OutcomeSyntaxError}}})
	agg.Add(FileReport{Path: "b.ipynb", Cells: []CellResult{{Outcome: OutcomeUnchanged}}})
	sum := agg.Summary()

	fixed := sum.WithFile(FileReport{Path: "a.ipynb", Cells: []CellResult{{Outcome: OutcomeChanged}}, Written: true})
	assert.Equal(t, 0, fixed.FilesErrored)
	assert.Equal(t, 1, fixed.FilesChanged)
	assert.Equal(t, 1, fixed.FilesWritten)
	assert.Equal(t, 1, fixed.FilesUnchanged)
	assert.Equal(t, []string{"a.ipynb", "b.ipynb"}, []string{fixed.Files[0].Path, fixed.Files[1].Path})
	assert.Equal(t, 1, sum.FilesErrored, "the receiver is not modified")

	added := fixed.WithFile(FileReport{Path: "c.ipynb", Cells: []CellResult{{Outcome: OutcomeUnchanged}}})
	assert.Len(t, added.Files, 3)
	assert.Equal(t, 2, added.FilesUnchanged)
	assert.Equal(t, ExitClean, added.ExitCode())
}
