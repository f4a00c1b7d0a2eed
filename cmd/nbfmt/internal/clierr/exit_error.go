package clierr

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	// CodeClean means every notebook was clean, or was fixed in write mode.
	CodeClean = 0
	// CodeChanged means a notebook would be changed, or failed the
	// execution-order check.
	CodeChanged = 1
	// CodeError covers syntax errors, unreadable or unwritable files and
	// misconfiguration.
	CodeError = 2
)

type ExitCoder interface {
	error
	ExitCode() int
}

// ExitError is an error that carries an explicit process exit code.
// It supports wrapping via Unwrap so errors.Is/As work as expected.
// An ExitError with an empty message is a bare status: the report has
// already told the user what happened.
type ExitError struct {
	code  int
	msg   string
	cause error
}

func (e *ExitError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	if e.msg == "" {
		return e.cause.Error()
	}
	return fmt.Sprintf("%s: %v", e.msg, e.cause)
}

func (e *ExitError) ExitCode() int { return e.code }

// Unwrap enables errors.Is/As to traverse the underlying cause.
func (e *ExitError) Unwrap() error { return e.cause }

// New creates an ExitError with a message.
func New(code int, msg string) error {
	return &ExitError{code: normalize(code), msg: msg}
}

// Status creates a message-less ExitError. A zero code yields nil.
func Status(code int) error {
	if code == CodeClean {
		return nil
	}
	return &ExitError{code: normalize(code)}
}

// Wrap creates an ExitError that wraps an underlying cause.
func Wrap(code int, msg string, cause error) error {
	if cause == nil {
		return New(code, msg)
	}
	return &ExitError{code: normalize(code), msg: msg, cause: cause}
}

// Wrapf is a formatted variant that wraps.
func Wrapf(code int, cause error, format string, args ...any) error {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

// ExitCodeOf extracts an exit code from any error. Errors without a code
// are usage or configuration failures and map to CodeError.
func ExitCodeOf(err error) int {
	if err == nil {
		return CodeClean
	}
	var ec ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return CodeError
}

// IsSilent reports whether err carries nothing to print.
func IsSilent(err error) bool {
	var ee *ExitError
	return errors.As(err, &ee) && ee.Error() == ""
}

func normalize(code int) int {
	// Exit code 0 means success; errors should never be 0.
	if code <= 0 {
		return CodeChanged
	}
	return code
}
