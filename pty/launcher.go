package pty

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	osexec "os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/zhubert/claude-headless/exec"
	"github.com/zhubert/claude-headless/process"
)

// headSize is how much of the helper's first output is kept for
// ClassifyExit.
const headSize = 512

// waitDelay bounds how long Wait keeps draining output after the helper
// exits or is cancelled.
const waitDelay = 2 * time.Second

// Spec describes one command to run under a PTY.
type Spec struct {
	Argv   []string  // the wrapped command, binary first
	Env    []string  // full child environment; nil inherits
	Dir    string    // working directory; empty inherits
	Stdin  io.Reader // nil reads from /dev/null
	Output io.Writer // receives combined stdout and stderr

	// Detach starts the helper in its own session, independent of the
	// caller's terminal and context.
	Detach bool
}

// Launcher starts helpers with a fixed strategy.
type Launcher struct {
	strategy Strategy
	log      *slog.Logger
	commands exec.CommandExecutor // lists the helper's descendants on cancel
}

// NewLauncher returns a Launcher using s.
func NewLauncher(s Strategy, log *slog.Logger) *Launcher {
	return &Launcher{strategy: s, log: log, commands: exec.NewRealExecutor()}
}

// Strategy returns the launcher's strategy.
func (l *Launcher) Strategy() Strategy { return l.strategy }

// Launch starts exactly one helper process running spec.Argv. Failure to
// start a script helper is reported as ErrAllocationFailed.
func (l *Launcher) Launch(ctx context.Context, spec Spec) (*Process, error) {
	if len(spec.Argv) == 0 {
		return nil, errors.New("launch: empty command")
	}

	name, args := l.strategy.Wrap(spec.Argv)

	var cmd *osexec.Cmd
	if spec.Detach {
		cmd = osexec.Command(name, args...)
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	} else {
		cmd = osexec.CommandContext(ctx, name, args...)
		cmd.Cancel = func() error { return l.cancel(ctx, cmd.Process.Pid) }
		cmd.WaitDelay = waitDelay
	}
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = spec.Stdin

	p := &Process{cmd: cmd, strategy: l.strategy}

	// A file is handed to the child directly so output keeps flowing even
	// if this process goes away. Its head is read back from disk instead.
	if f, ok := spec.Output.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
			p.outPath = f.Name()
			p.outOffset = info.Size()
		}
		cmd.Stdout = f
		cmd.Stderr = f
	} else {
		p.head = &headBuffer{}
		out := io.Writer(p.head)
		if spec.Output != nil {
			out = io.MultiWriter(spec.Output, p.head)
		}
		cmd.Stdout = out
		cmd.Stderr = out
	}

	if err := cmd.Start(); err != nil {
		if _, isPassthrough := l.strategy.(Passthrough); isPassthrough {
			return nil, fmt.Errorf("failed to start %s: %w", name, err)
		}
		return nil, allocationFailed("failed to start %s: %v", name, err)
	}
	p.started = time.Now()

	l.log.Debug("helper started",
		"strategy", l.strategy.Name(),
		"pid", cmd.Process.Pid,
		"detached", spec.Detach,
		"helper", name)
	return p, nil
}

// cancel stops a foreground helper and everything under it. The wrapped
// command runs in its own session on the pty, so signalling the helper
// alone would leave it running. A deadline kills; any other cancellation
// asks politely and leaves the rest to WaitDelay.
func (l *Launcher) cancel(ctx context.Context, pid int) error {
	tree := process.Tree(context.WithoutCancel(ctx), l.commands, pid)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		l.log.Debug("deadline reached, killing helper tree", "pid", pid, "processes", len(tree))
		return process.KillAll(tree)
	}
	l.log.Debug("cancelled, terminating helper tree", "pid", pid, "processes", len(tree))
	return process.TerminateAll(tree)
}

// Process is a running PTY helper.
type Process struct {
	cmd      *osexec.Cmd
	strategy Strategy
	started  time.Time

	head      *headBuffer
	outPath   string
	outOffset int64
}

// PID returns the helper's process ID.
func (p *Process) PID() int { return p.cmd.Process.Pid }

// StartedAt returns when the helper was started.
func (p *Process) StartedAt() time.Time { return p.started }

// Wait blocks until the helper exits and returns its decoded status. The
// error is non-nil only for wrapper-side failures: ErrAllocationFailed
// when the helper rejected its invocation, or an I/O error while draining
// output. A non-zero child status alone is not an error.
func (p *Process) Wait() (process.Status, error) {
	err := p.cmd.Wait()
	status := process.StatusFromState(p.cmd.ProcessState)

	var exitErr *osexec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return status, fmt.Errorf("wait for helper: %w", err)
	}

	if cerr := ClassifyExit(p.strategy, status, p.outputHead()); cerr != nil {
		return status, cerr
	}
	return status, nil
}

func (p *Process) outputHead() []byte {
	if p.head != nil {
		return p.head.Bytes()
	}
	if p.outPath == "" {
		return nil
	}
	f, err := os.Open(p.outPath)
	if err != nil {
		return nil
	}
	defer f.Close()
	buf := make([]byte, headSize)
	n, _ := f.ReadAt(buf, p.outOffset)
	return buf[:n]
}

// ClassifyExit reports ErrAllocationFailed when a script helper exited
// with its own usage error, meaning the wrapped command never ran.
func ClassifyExit(s Strategy, status process.Status, head []byte) error {
	if status.Code == 0 || status.Signaled {
		return nil
	}
	if _, isPassthrough := s.(Passthrough); isPassthrough {
		return nil
	}

	text := strings.ToLower(strings.TrimSpace(string(head)))
	if !strings.HasPrefix(text, "script:") && !strings.HasPrefix(text, "usage: script") {
		return nil
	}
	for _, marker := range []string{
		"usage",
		"illegal option",
		"invalid option",
		"unrecognized option",
		"unexpected number of arguments",
	} {
		if strings.Contains(text, marker) {
			line, _, _ := strings.Cut(strings.TrimSpace(string(head)), "\n")
			return allocationFailed("%s script rejected its arguments: %s", s.Name(), line)
		}
	}
	return nil
}

// headBuffer keeps the first headSize bytes written to it.
type headBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (h *headBuffer) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room := headSize - h.buf.Len(); room > 0 {
		h.buf.Write(p[:min(room, len(p))])
	}
	return len(p), nil
}

func (h *headBuffer) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return bytes.Clone(h.buf.Bytes())
}
