// SPDX-License-Identifier: AGPL-3.0-or-later
package formatter

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// TreeSitterChecker parses Python with tree-sitter so that cells which
// cannot parse are rejected without spawning a formatter process.
type TreeSitterChecker struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewTreeSitterChecker creates a checker for Python source.
func NewTreeSitterChecker() *TreeSitterChecker {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &TreeSitterChecker{parser: parser}
}

// Check returns a *SyntaxError locating the first parse error in src.
func (c *TreeSitterChecker) Check(ctx context.Context, src string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tree, err := c.parser.ParseCtx(ctx, nil, []byte(src))
	if err != nil {
		return fmt.Errorf("tree-sitter: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}
	line := 0
	if bad := firstErrorNode(root); bad != nil {
		line = int(bad.StartPoint().Row) + 1
	}
	return &SyntaxError{Formatter: "tree-sitter", Line: line, Msg: "invalid syntax"}
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if bad := firstErrorNode(child); bad != nil {
			return bad
		}
	}
	return nil
}
