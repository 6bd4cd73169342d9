package cli

import (
	"errors"
	"fmt"
)

// Process exit codes
const (
	ExitOK            = 0
	ExitFailure       = 1 // malformed manifest or unusable output directory
	ExitUsage         = 2 // missing argument, unknown flag or manifest path not found
	ExitRecordsFailed = 3 // --strict and at least one record failed
)

// ErrUsage marks command line misuse
var ErrUsage = errors.New("usage error")

// exitError carries the exit code an error should end the process with
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func usageError(format string, args ...any) error {
	return withExitCode(ExitUsage, fmt.Errorf("%w: "+format, append([]any{ErrUsage}, args...)...))
}

// ExitCode maps an error returned by the root command to a process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitFailure
}
