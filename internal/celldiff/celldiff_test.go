package celldiff

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_Identical(t *testing.T) {
	assert.Empty(t, Compute("a\nb", "a\nb", FullContext))
	assert.Empty(t, Compute("", "", DefaultCompactContext))
}

func TestCompute_FullContext(t *testing.T) {
	orig := "def foo (*args):\n    return sum(args)"
	fmted := "def foo(*args):\n    return sum(args)"

	hunks := Compute(orig, fmted, FullContext)
	require.Len(t, hunks, 1)

	h := hunks[0]
	assert.Equal(t, 0, h.OrigStart)
	assert.Equal(t, 2, h.OrigLines)
	assert.Equal(t, 2, h.NewLines)
	assert.Equal(t, []Line{
		{Removed, "def foo (*args):"},
		{Added, "def foo(*args):"},
		{Context, "    return sum(args)"},
	}, h.Lines)
	assert.Equal(t, "@@ -1,2 +1,2 @@", h.Header())
}

func TestCompute_CompactSplitsHunks(t *testing.T) {
	var a, b []string
	for i := 0; i < 20; i++ {
		line := "x = " + strings.Repeat("1", i+1)
		a = append(a, line)
		b = append(b, line)
	}
	a[1], b[1] = "y=1", "y = 1"
	a[18], b[18] = "z=2", "z = 2"
	orig, fmted := strings.Join(a, "\n"), strings.Join(b, "\n")

	compact := Compute(orig, fmted, DefaultCompactContext)
	require.Len(t, compact, 2)
	assert.Equal(t, "@@ -1,5 +1,5 @@", compact[0].Header())
	assert.Equal(t, "@@ -16,5 +16,5 @@", compact[1].Header())

	full := Compute(orig, fmted, FullContext)
	require.Len(t, full, 1)
	assert.Len(t, full[0].Lines, 22)
}

func TestApply_RoundTrip(t *testing.T) {
	cases := []struct{ orig, fmted string }{
		{"def foo (*args):\n    return sum(args)", "def foo(*args):\n    return sum(args)"},
		{"foo(1, 2,3)", "foo(1, 2, 3)"},
		{"", "x = 1"},
		{"x = 1", ""},
		{"a\nb\nc\nd\ne\nf\ng\nh\ni\nj", "a\nB\nc\nd\ne\nf\ng\nh\nI\nj\nk"},
		{"import os,sys\n\n\n\nprint( 'hi' )", "import os, sys\n\n\nprint(\"hi\")"},
		{"x=[1,\n2]", "x = [1, 2]"},
	}
	for _, c := range cases {
		for _, ctx := range []int{FullContext, DefaultCompactContext, 0} {
			hunks := Compute(c.orig, c.fmted, ctx)
			got, err := Apply(c.orig, hunks)
			require.NoError(t, err)
			assert.Equal(t, c.fmted, got, "context %d", ctx)
		}
	}
}

func TestApply_Mismatch(t *testing.T) {
	hunks := Compute("a\nb", "a\nc", FullContext)
	_, err := Apply("a\nz", hunks)
	require.Error(t, err)
}

func TestWrite_Deterministic(t *testing.T) {
	hunks := Compute("foo(1, 2,3)", "foo(1, 2, 3)", FullContext)

	var first, second bytes.Buffer
	require.NoError(t, Write(&first, "nb.ipynb - Cell 2 (original)", "nb.ipynb - Cell 2 (formatted)", hunks))
	require.NoError(t, Write(&second, "nb.ipynb - Cell 2 (original)", "nb.ipynb - Cell 2 (formatted)", hunks))

	want := "--- nb.ipynb - Cell 2 (original)\n" +
		"+++ nb.ipynb - Cell 2 (formatted)\n" +
		"@@ -1 +1 @@\n" +
		"-foo(1, 2,3)\n" +
		"+foo(1, 2, 3)\n"
	assert.Equal(t, want, first.String())
	assert.Equal(t, first.String(), second.String())
}

func TestHeader_EmptyRanges(t *testing.T) {
	hunks := Compute("", "x = 1", FullContext)
	require.Len(t, hunks, 1)
	assert.Equal(t, "@@ -0,0 +1 @@", hunks[0].Header())
}
