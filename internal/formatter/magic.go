// SPDX-License-Identifier: AGPL-3.0-or-later
package formatter

import (
	"regexp"
	"strings"
)

// SkippableMagics are cell magics whose body is not Python and has no
// formatter: the cell is left alone.
var SkippableMagics = []string{
	// non-python languages
	"bash",
	"html",
	"javascript",
	"js",
	"latex",
	"markdown",
	"perl",
	"ruby",
	"sh",
	"svg",
	// extra functionality
	"writefile",
}

const (
	magicMask = "#%#nbfmt#"
	shellMask = "#!#nbfmt#"
)

var (
	magicLine    = regexp.MustCompile(`(?m)^%`)
	shellLine    = regexp.MustCompile(`(?m)^!`)
	maskedMagic  = regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(magicMask))
	maskedShell  = regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(shellMask))
	spacedMasked = regexp.MustCompile(`(?m)^# %#nbfmt#`)
)

// mask turns IPython magics and shell escapes into comments so a Python
// parser accepts the cell.
func mask(src string) string {
	src = magicLine.ReplaceAllLiteralString(src, magicMask)
	return shellLine.ReplaceAllLiteralString(src, shellMask)
}

func unmask(src string) string {
	src = maskedMagic.ReplaceAllLiteralString(src, "%")
	return maskedShell.ReplaceAllLiteralString(src, "!")
}

// firstNonEmptyLine returns the first line with any content, and false if
// the text is blank.
func firstNonEmptyLine(src string) (string, bool) {
	for _, line := range strings.Split(src, "\n") {
		if line != "" {
			return line, true
		}
	}
	return "", false
}

// cellMagic returns the name of the cell magic ("%%name ...") opening the
// line, or "".
func cellMagic(line string) string {
	if !strings.HasPrefix(line, "%%") {
		return ""
	}
	fields := strings.Fields(line)
	return strings.TrimPrefix(fields[0], "%%")
}

func hasMagicPrefix(line string, names []string) bool {
	for _, name := range names {
		if strings.HasPrefix(line, "%%"+name) {
			return true
		}
	}
	return false
}
