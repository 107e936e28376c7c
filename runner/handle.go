package runner

import (
	"context"
	"sync"
	"time"

	"github.com/zhubert/claude-headless/process"
)

// HandleState is the state of a launched child process.
type HandleState string

const (
	HandleStarting HandleState = "starting"
	HandleRunning  HandleState = "running"
	HandleExited   HandleState = "exited"
	HandleSignaled HandleState = "signaled"
	HandleTimedOut HandleState = "timed_out"
)

// Finished reports whether the child has stopped.
func (s HandleState) Finished() bool {
	return s == HandleExited || s == HandleSignaled || s == HandleTimedOut
}

// RunHandle tracks one launched child. It is safe for concurrent use.
type RunHandle struct {
	mu        sync.Mutex
	pid       int
	logPath   string
	startedAt time.Time
	state     HandleState
	status    process.Status
	err       error

	done     chan struct{}
	doneOnce sync.Once
}

func newHandle(logPath string) *RunHandle {
	return &RunHandle{
		logPath: logPath,
		state:   HandleStarting,
		done:    make(chan struct{}),
	}
}

func (h *RunHandle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}

func (h *RunHandle) LogPath() string { return h.logPath }

func (h *RunHandle) StartedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startedAt
}

func (h *RunHandle) State() HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// ExitCode returns the child's exit code, or -1 while it is running.
func (h *RunHandle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.state.Finished() {
		return -1
	}
	return h.status.Code
}

// Status returns the decoded exit status once the child has finished.
func (h *RunHandle) Status() process.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Err returns the wrapper-side error observed while waiting, if any.
func (h *RunHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Done is closed after the child has exited and every follow-up
// (log footer, notification) has run.
func (h *RunHandle) Done() <-chan struct{} { return h.done }

// Wait blocks until Done is closed or ctx ends.
func (h *RunHandle) Wait(ctx context.Context) (process.Status, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.status, h.err
	case <-ctx.Done():
		return process.Status{}, ctx.Err()
	}
}

func (h *RunHandle) markRunning(pid int, started time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pid = pid
	h.startedAt = started
	h.state = HandleRunning
}

func (h *RunHandle) finish(status process.Status, err error, timedOut bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
	h.err = err
	switch {
	case timedOut:
		h.state = HandleTimedOut
	case status.Signaled:
		h.state = HandleSignaled
	default:
		h.state = HandleExited
	}
}

func (h *RunHandle) close() {
	h.doneOnce.Do(func() { close(h.done) })
}
