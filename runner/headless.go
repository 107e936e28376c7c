package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/zhubert/claude-headless/claude"
	"github.com/zhubert/claude-headless/clipboard"
	"github.com/zhubert/claude-headless/exec"
	"github.com/zhubert/claude-headless/logs"
	"github.com/zhubert/claude-headless/pty"
)

// RunHeadless runs plan under a PTY and blocks until it exits. Output goes
// to the executor's stdout and to a new run log. A non-zero child exit is
// returned as *ExitError; the result is still populated.
func (e *Executor) RunHeadless(ctx context.Context, plan claude.LaunchPlan) (*Result, error) {
	lc := newLifecycle(e.log)
	res := &Result{Mode: claude.ModeHeadless}

	if err := lc.transition(StateLaunching); err != nil {
		return nil, err
	}

	runLog, err := e.openLog(plan)
	if err != nil {
		res.State = StateFailed
		return res, lc.fail(err)
	}
	defer runLog.Close()

	h := newHandle(runLog.Path())
	res.Handle = h

	var captured *bytes.Buffer
	out := io.MultiWriter(e.stdout, runLog)
	if plan.Clipboard() {
		captured = &bytes.Buffer{}
		out = io.MultiWriter(e.stdout, runLog, captured)
	}

	proc, err := e.launcher.Launch(ctx, pty.Spec{
		Argv:   plan.Argv(),
		Env:    e.childEnv(plan),
		Dir:    plan.WorkDir(),
		Stdin:  e.stdin,
		Output: out,
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

	status, waitErr := proc.Wait()
	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
	h.finish(status, waitErr, timedOut)

	outcome := status.String()
	if timedOut {
		outcome = "timed out (" + outcome + ")"
	}
	if err := runLog.WriteFooter(logs.Footer{Outcome: outcome, Finished: e.now()}); err != nil {
		e.log.Warn("failed to write log footer", "path", runLog.Path(), "error", err)
	}
	h.close()

	e.log.Info("headless run finished", "pid", h.PID(), "outcome", outcome, "log", runLog.Path())

	if waitErr != nil {
		res.State = StateFailed
		return res, lc.fail(waitErr)
	}

	if captured != nil {
		e.copyToClipboard(ctx, captured.String())
	}

	res.ExitCode = status.Code
	if err := lc.transition(StateCompleted); err != nil {
		return res, err
	}
	res.State = StateCompleted
	return res, exitError(h)
}

// openLog creates the run log and writes its header.
func (e *Executor) openLog(plan claude.LaunchPlan) (*logs.RunLog, error) {
	runLog, err := logs.Open(plan.LogDir())
	if err != nil {
		return nil, err
	}
	if err := runLog.WriteHeader(LogHeader(plan, e.now())); err != nil {
		_ = runLog.Remove()
		return nil, fmt.Errorf("failed to write log header: %w", err)
	}
	return runLog, nil
}

// LogHeader describes plan for the top of its run log.
func LogHeader(plan claude.LaunchPlan, started time.Time) logs.Header {
	cwd := plan.WorkDir()
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	return logs.Header{
		Command: exec.QuoteArgs(plan.Argv()),
		CWD:     cwd,
		Started: started,
	}
}

func (e *Executor) copyToClipboard(ctx context.Context, text string) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if err := clipboard.Copy(ctx, e.commands, text); err != nil {
		e.log.Warn("clipboard copy failed", "error", err)
		fmt.Fprintf(e.stderr, "claude-headless: %v\n", err)
		return
	}
	e.log.Debug("output copied to clipboard", "bytes", len(text))
}
