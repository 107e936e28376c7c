package runner

import (
	"context"

	"github.com/zhubert/claude-headless/claude"
	"github.com/zhubert/claude-headless/logs"
	"github.com/zhubert/claude-headless/notify"
	"github.com/zhubert/claude-headless/pty"
	"github.com/zhubert/claude-headless/registry"
)

// StartBackground launches plan detached from the caller and returns as
// soon as the child has started. The returned handle's Done channel closes
// after the child exits, its log footer is written and, when requested,
// the completion notification has been attempted.
//
// runLog may be a log the caller already opened (and wrote the header to);
// when nil a new one is created. The child writes to the log file
// directly, so output keeps flowing if this process exits first.
func (e *Executor) StartBackground(ctx context.Context, plan claude.LaunchPlan, runLog *logs.RunLog) (*Result, error) {
	lc := newLifecycle(e.log)
	res := &Result{Mode: claude.ModeBackground}

	if err := lc.transition(StateLaunching); err != nil {
		return nil, err
	}

	if runLog == nil {
		var err error
		if runLog, err = e.openLog(plan); err != nil {
			res.State = StateFailed
			return res, lc.fail(err)
		}
	}

	h := newHandle(runLog.Path())
	res.Handle = h

	proc, err := e.launcher.Launch(ctx, pty.Spec{
		Argv:   plan.Argv(),
		Env:    e.childEnv(plan),
		Dir:    plan.WorkDir(),
		Output: runLog.File(),
		Detach: true,
	})
	if err != nil {
		if rerr := runLog.Remove(); rerr != nil {
			e.log.Warn("failed to remove log after launch failure", "path", runLog.Path(), "error", rerr)
		}
		h.close()
		res.State = StateFailed
		return res, lc.fail(err)
	}

	h.markRunning(proc.PID(), proc.StartedAt())
	if err := lc.transition(StateRunning); err != nil {
		return res, err
	}
	e.log.Info("background run started", "pid", proc.PID(), "log", runLog.Path())

	go e.supervise(plan, proc, runLog, h)

	if err := lc.transition(StateDetached); err != nil {
		return res, err
	}
	res.State = StateDetached
	res.Entry = registry.ForBackground(proc.PID(), runLog.Path())
	return res, nil
}

// supervise waits for a detached child and runs its follow-ups. The
// notification is attempted exactly once, after the footer is written.
func (e *Executor) supervise(plan claude.LaunchPlan, proc *pty.Process, runLog *logs.RunLog, h *RunHandle) {
	defer h.close()

	status, waitErr := proc.Wait()
	h.finish(status, waitErr, false)

	log := e.log.With("pid", proc.PID())
	if waitErr != nil {
		log.Error("background run failed", "error", waitErr)
	}

	if err := runLog.WriteFooter(logs.Footer{Outcome: status.String(), Finished: e.now()}); err != nil {
		log.Warn("failed to write log footer", "path", runLog.Path(), "error", err)
	}
	if err := runLog.Close(); err != nil {
		log.Warn("failed to close log", "path", runLog.Path(), "error", err)
	}
	log.Info("background run finished", "outcome", status.String())

	if plan.Notify() {
		notify.Deliver(context.Background(), e.notifier, e.notifyTitle, notify.Summary(proc.PID(), status), log)
	}
}
