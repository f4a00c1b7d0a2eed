// SPDX-License-Identifier: AGPL-3.0-or-later
package formatter

import (
	"context"
	"encoding/json"
	"strings"
)

// Styler formats R cells with the styler package through Rscript.
type Styler struct {
	Command string
}

// NewStyler returns a Styler, defaulting the command to "Rscript".
func NewStyler(command string) *Styler {
	if strings.TrimSpace(command) == "" {
		command = "Rscript"
	}
	return &Styler{Command: command}
}

func (s *Styler) Name() string { return "styler" }

// Format ignores opts: styler has no line-length or quote settings that
// map onto black's.
func (s *Styler) Format(ctx context.Context, src string, _ Options) (string, error) {
	// A JSON string literal is also a valid R string literal.
	lit, err := json.Marshal(src)
	if err != nil {
		return "", err
	}
	res, err := run(ctx, s.Command, []string{"-e", "styler::style_text(" + string(lit) + ")"}, "")
	if err != nil {
		return "", err
	}
	if res.exitCode != 0 {
		return "", &SyntaxError{Formatter: s.Name(), Msg: res.stderr}
	}
	// styler puts a space after the comment marker of masked magics.
	return spacedMasked.ReplaceAllLiteralString(res.stdout, magicMask), nil
}
