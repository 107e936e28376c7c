// Package pty runs a command under a pseudo-terminal by wrapping it in the
// host's script(1) utility.
//
// BSD script (macOS) and util-linux script take incompatible arguments, so
// the invocation form is chosen once per process by probing the host:
//
//	BSD:  script -q /dev/null claude -p hello
//	GNU:  script -q -e -c 'claude -p hello' /dev/null
//
// Passing one form to the other implementation fails before the child
// runs. ClassifyExit recognizes that failure so it is reported as
// ErrAllocationFailed instead of as the child's own exit status.
package pty

import (
	"errors"
	"fmt"

	"github.com/zhubert/claude-headless/exec"
)

// ErrAllocationFailed is returned when no pseudo-terminal could be set up
// for the child. It is fatal and never retried.
var ErrAllocationFailed = errors.New("pty allocation failed")

func allocationFailed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAllocationFailed, fmt.Sprintf(format, args...))
}

// Strategy turns a command line into the helper invocation that runs it
// under a pseudo-terminal.
type Strategy interface {
	// Name identifies the strategy in logs and diagnostics.
	Name() string

	// Wrap returns the program and arguments that run argv under a PTY.
	Wrap(argv []string) (name string, args []string)
}

// BSDScript is the macOS and BSD form of script(1).
type BSDScript struct {
	Path string // script executable; "script" when empty
}

func (s BSDScript) Name() string { return "bsd" }

func (s BSDScript) Wrap(argv []string) (string, []string) {
	return scriptPath(s.Path), append([]string{"-q", "/dev/null"}, argv...)
}

// GNUScript is the util-linux form of script(1). The command is passed as
// a single shell string, so argv is quoted. -e makes script exit with the
// child's status.
type GNUScript struct {
	Path string // script executable; "script" when empty
}

func (s GNUScript) Name() string { return "gnu" }

func (s GNUScript) Wrap(argv []string) (string, []string) {
	return scriptPath(s.Path), []string{"-q", "-e", "-c", exec.QuoteArgs(argv), "/dev/null"}
}

// Passthrough runs the command without a PTY. It is only used when the
// configuration asks for it explicitly.
type Passthrough struct{}

func (Passthrough) Name() string { return "none" }

func (Passthrough) Wrap(argv []string) (string, []string) {
	if len(argv) == 0 {
		return "", nil
	}
	return argv[0], argv[1:]
}

func scriptPath(p string) string {
	if p == "" {
		return "script"
	}
	return p
}

var (
	_ Strategy = BSDScript{}
	_ Strategy = GNUScript{}
	_ Strategy = Passthrough{}
)
