// Package runner executes a claude.LaunchPlan in its resolved mode.
//
// Headless runs block until the child exits and mirror its exit code.
// Background runs return as soon as the child has started; a goroutine
// waits for it, finishes the run log and sends the completion
// notification. Interactive runs start claude inside a tmux session and
// return once the session is confirmed.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/zhubert/claude-headless/claude"
	"github.com/zhubert/claude-headless/config"
	"github.com/zhubert/claude-headless/exec"
	"github.com/zhubert/claude-headless/logger"
	"github.com/zhubert/claude-headless/notify"
	"github.com/zhubert/claude-headless/pty"
	"github.com/zhubert/claude-headless/registry"
)

// Multiplexer is the subset of tmux the interactive mode needs.
type Multiplexer interface {
	Available() error
	HasSession(ctx context.Context, name string) (bool, error)
	NewSession(ctx context.Context, name, window, dir string) error
	KillSession(ctx context.Context, name string) error
	SendLiteral(ctx context.Context, target, text string) error
	SendKey(ctx context.Context, target, key string) error
	SendEnter(ctx context.Context, target string) error
	CapturePane(ctx context.Context, target string, lines int) (string, error)
	WaitForText(ctx context.Context, target, text string, timeout time.Duration) (bool, error)
}

// ExitError reports a child that finished unsuccessfully.
type ExitError struct {
	Code     int
	Signal   string // set when the child was killed by a signal
	TimedOut bool
}

func (e *ExitError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("claude timed out and was killed (exit %d)", e.Code)
	case e.Signal != "":
		return fmt.Sprintf("claude terminated by %s", e.Signal)
	default:
		return fmt.Sprintf("claude exited with status %d", e.Code)
	}
}

// Result describes the outcome of Execute.
type Result struct {
	Mode     claude.Mode
	State    ExecState
	Handle   *RunHandle     // nil for interactive runs
	Entry    registry.Entry // zero for headless runs
	ExitCode int            // headless only
}

// Executor runs launch plans. One Executor can serve many runs; runs
// share no mutable state.
type Executor struct {
	launcher    *pty.Launcher
	mux         Multiplexer
	notifier    notify.Notifier
	notifyTitle string
	commands    exec.CommandExecutor

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	environ func() []string
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	log     *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithMultiplexer sets the tmux client used by interactive runs.
func WithMultiplexer(m Multiplexer) Option {
	return func(e *Executor) { e.mux = m }
}

// WithNotifier sets the completion notifier and its title.
func WithNotifier(n notify.Notifier, title string) Option {
	return func(e *Executor) {
		e.notifier = n
		if title != "" {
			e.notifyTitle = title
		}
	}
}

// WithCommandExecutor sets the executor for helper tools (clipboard).
func WithCommandExecutor(c exec.CommandExecutor) Option {
	return func(e *Executor) { e.commands = c }
}

// WithIO sets the streams headless runs are attached to and reports are
// written to.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(e *Executor) {
		e.stdin = stdin
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithEnviron sets the base environment the plan's overrides apply to.
func WithEnviron(environ func() []string) Option {
	return func(e *Executor) { e.environ = environ }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// New creates an Executor that launches children with launcher.
func New(launcher *pty.Launcher, opts ...Option) *Executor {
	e := &Executor{
		launcher:    launcher,
		notifier:    notify.Noop{},
		notifyTitle: config.DefaultNotifyTitle,
		commands:    exec.NewRealExecutor(),
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		environ:     os.Environ,
		now:         time.Now,
		sleep:       sleepContext,
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs plan in its mode. Headless runs return a *ExitError when the
// child fails. Background and interactive runs print their registry entry
// to the executor's stdout.
func (e *Executor) Execute(ctx context.Context, plan claude.LaunchPlan) (*Result, error) {
	log := e.log.With("mode", string(plan.Mode()))

	switch plan.Mode() {
	case claude.ModeHeadless:
		if plan.Notify() {
			log.Debug("--notify only applies to background runs; ignoring")
		}
		return e.RunHeadless(ctx, plan)
	case claude.ModeBackground:
		res, err := e.StartBackground(ctx, plan, nil)
		if err != nil {
			return res, err
		}
		if err := registry.Render(e.stdout, res.Entry); err != nil {
			log.Warn("failed to write report", "error", err)
		}
		return res, nil
	case claude.ModeInteractive:
		return e.StartInteractive(ctx, plan)
	default:
		return nil, fmt.Errorf("%w: unresolved mode %q", claude.ErrInvalidRequest, plan.Mode())
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// childEnv returns the full environment for the wrapped process.
func (e *Executor) childEnv(plan claude.LaunchPlan) []string {
	return plan.Env().Apply(e.environ())
}

// exitError converts a finished handle into the error Execute reports.
func exitError(h *RunHandle) error {
	st := h.Status()
	if h.State() == HandleTimedOut {
		return &ExitError{Code: st.Code, Signal: st.Signal, TimedOut: true}
	}
	if st.Code == 0 {
		return nil
	}
	return &ExitError{Code: st.Code, Signal: st.Signal}
}

// IsExitError reports whether err carries a child exit status.
func IsExitError(err error) (*ExitError, bool) {
	var exitErr *ExitError
	ok := errors.As(err, &exitErr)
	return exitErr, ok
}
