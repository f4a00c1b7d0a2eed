// SPDX-License-Identifier: AGPL-3.0-or-later
package formatter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// blackSyntaxExit is black's exit status for sources it cannot parse.
const blackSyntaxExit = 123

// Black formats Python by piping the source through the black CLI.
type Black struct {
	// Command is the black invocation, e.g. "black" or "python -m black".
	Command string
}

// NewBlack returns a Black formatter, defaulting the command to "black".
func NewBlack(command string) *Black {
	if strings.TrimSpace(command) == "" {
		command = "black"
	}
	return &Black{Command: command}
}

func (b *Black) Name() string { return "black" }

func (b *Black) Format(ctx context.Context, src string, opts Options) (string, error) {
	lineLength := opts.LineLength
	if lineLength <= 0 {
		lineLength = DefaultLineLength
	}
	args := []string{"-q", "--line-length", strconv.Itoa(lineLength)}
	if opts.SkipStringNormalization {
		args = append(args, "--skip-string-normalization")
	}
	args = append(args, "-")

	res, err := run(ctx, b.Command, args, src)
	if err != nil {
		return "", err
	}
	switch res.exitCode {
	case 0:
		return res.stdout, nil
	case blackSyntaxExit:
		return "", &SyntaxError{Formatter: b.Name(), Msg: res.stderr}
	default:
		return "", fmt.Errorf("black exited with status %d: %s", res.exitCode, strings.TrimSpace(res.stderr))
	}
}
