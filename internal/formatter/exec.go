// SPDX-License-Identifier: AGPL-3.0-or-later
package formatter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// commandLine splits a configured command such as "python -m black" into
// the program and its leading arguments.
func commandLine(command string) (string, []string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil, errors.New("empty formatter command")
	}
	return fields[0], fields[1:], nil
}

// LookPath verifies that the program of command can be found.
func LookPath(command string) error {
	prog, _, err := commandLine(command)
	if err != nil {
		return err
	}
	if _, err := exec.LookPath(prog); err != nil {
		return fmt.Errorf("%w: %s", ErrFormatterNotFound, prog)
	}
	return nil
}

type procResult struct {
	stdout   string
	stderr   string
	exitCode int
}

// run executes command with extra args, feeding stdin. A non-zero exit is
// reported through exitCode rather than err.
func run(ctx context.Context, command string, args []string, stdin string) (procResult, error) {
	prog, pre, err := commandLine(command)
	if err != nil {
		return procResult{}, err
	}

	cmd := exec.CommandContext(ctx, prog, append(pre, args...)...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	res := procResult{stdout: stdout.String(), stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			res.exitCode = exitErr.ExitCode()
			return res, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return res, fmt.Errorf("%w: %s", ErrFormatterNotFound, prog)
		}
		return res, fmt.Errorf("running %s: %w", prog, err)
	}
	return res, nil
}
