package formatter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeSitterChecker(t *testing.T) {
	c := NewTreeSitterChecker()
	ctx := context.Background()

	assert.NoError(t, c.Check(ctx, "def foo(*args):\n    return sum(args)\n"))
	assert.NoError(t, c.Check(ctx, mask("%matplotlib inline\nimport os\n")))
	assert.NoError(t, c.Check(ctx, ""))

	err := c.Check(ctx, "x = 1\ndef foo(:\n    pass\n")
	require.Error(t, err)
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "tree-sitter", se.Formatter)
	assert.Positive(t, se.Line)
}

func TestAdapter_WithTreeSitterChecker(t *testing.T) {
	py := &countingFormatter{}
	a := NewAdapter(py, WithSyntaxChecker(NewTreeSitterChecker()))

	res := a.Format(context.Background(), "print((1)", DefaultOptions())
	assert.Equal(t, StatusSyntaxError, res.Status)
	assert.Zero(t, py.calls)

	res = a.Format(context.Background(), "print(1)", DefaultOptions())
	assert.Equal(t, StatusUnchanged, res.Status)
	assert.Equal(t, 1, py.calls)
}

type countingFormatter struct{ calls int }

func (c *countingFormatter) Name() string { return "counting" }

func (c *countingFormatter) Format(_ context.Context, src string, _ Options) (string, error) {
	c.calls++
	return src, nil
}
