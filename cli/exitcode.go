package cli

import (
	"errors"

	"github.com/zhubert/claude-headless/claude"
	"github.com/zhubert/claude-headless/pty"
	"github.com/zhubert/claude-headless/runner"
)

// errUnavailable marks a doctor run that found required tools missing.
var errUnavailable = errors.New("required tools missing")

// Exit codes for wrapper failures, from sysexits.h. A child's own exit
// code is passed through unchanged, so claude exiting 64, 69 or 70 looks
// the same; only wrapper failures print a message. The usage text says so.
const (
	ExitOK          = 0
	ExitUsage       = 64 // EX_USAGE: invalid request
	ExitUnavailable = 69 // EX_UNAVAILABLE: no pseudo-terminal or missing tools
	ExitSoftware    = 70 // EX_SOFTWARE: any other wrapper failure
)

// ExitCode maps an error returned by the root command to a process exit
// code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if exitErr, ok := runner.IsExitError(err); ok {
		if exitErr.Code > 0 {
			return exitErr.Code
		}
		return ExitSoftware
	}
	switch {
	case errors.Is(err, claude.ErrInvalidRequest), errors.Is(err, errUsage):
		return ExitUsage
	case errors.Is(err, pty.ErrAllocationFailed), errors.Is(err, errUnavailable):
		return ExitUnavailable
	default:
		return ExitSoftware
	}
}

// silent reports whether err should not be printed. A child's failure has
// already been shown on the terminal by the child itself.
func silent(err error) bool {
	exitErr, ok := runner.IsExitError(err)
	return ok && !exitErr.TimedOut
}
