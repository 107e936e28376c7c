package runner

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// ExecState is the lifecycle state of one Execute call.
type ExecState int

const (
	StateIdle ExecState = iota
	StateLaunching
	StateRunning
	StateCompleted
	StateFailed
	StateDetached
)

func (s ExecState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateDetached:
		return "detached"
	default:
		return fmt.Sprintf("ExecState(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s ExecState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateDetached
}

var validTransitions = map[ExecState][]ExecState{
	StateIdle:      {StateLaunching},
	StateLaunching: {StateRunning, StateFailed, StateDetached},
	StateRunning:   {StateCompleted, StateFailed, StateDetached},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s ExecState) CanTransitionTo(next ExecState) bool {
	return slices.Contains(validTransitions[s], next)
}

// TransitionError is returned for an illegal state change.
type TransitionError struct {
	From, To ExecState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid executor transition %s -> %s", e.From, e.To)
}

// lifecycle tracks the state of one run.
type lifecycle struct {
	mu    sync.Mutex
	state ExecState
	log   *slog.Logger
}

func newLifecycle(log *slog.Logger) *lifecycle {
	return &lifecycle{state: StateIdle, log: log}
}

func (l *lifecycle) current() ExecState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *lifecycle) transition(next ExecState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.CanTransitionTo(next) {
		return &TransitionError{From: l.state, To: next}
	}
	l.log.Debug("executor state", "from", l.state.String(), "to", next.String())
	l.state = next
	return nil
}

// fail moves to StateFailed when that is still possible and returns err
// so call sites can write `return nil, lc.fail(err)`.
func (l *lifecycle) fail(err error) error {
	if terr := l.transition(StateFailed); terr != nil {
		l.log.Debug("failure after terminal state", "error", err)
	}
	return err
}
