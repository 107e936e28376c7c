package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zhubert/claude-headless/claude"
	"github.com/zhubert/claude-headless/config"
	"github.com/zhubert/claude-headless/registry"
	"github.com/zhubert/claude-headless/tmux"
)

const (
	// windowName names the session's first window.
	windowName = "claude"

	// trustPrompt appears when claude asks whether to trust the workspace.
	trustPrompt = "Yes, I trust this folder"

	trustSettle  = 800 * time.Millisecond
	trustRecheck = 2 * time.Second
)

// ErrSessionNotCreated is returned when tmux reports success creating a
// session that then cannot be found.
var ErrSessionNotCreated = errors.New("tmux session was not created")

var _ Multiplexer = (*tmux.Client)(nil)

// StartInteractive starts claude inside a detached tmux session. It returns
// once the session exists and the launch line has been typed into it. An
// existing session with the same name is an invalid request unless the plan
// asks to replace it.
func (e *Executor) StartInteractive(ctx context.Context, plan claude.LaunchPlan) (*Result, error) {
	lc := newLifecycle(e.log)
	res := &Result{Mode: claude.ModeInteractive}

	if err := lc.transition(StateLaunching); err != nil {
		return nil, err
	}
	fail := func(err error) (*Result, error) {
		res.State = StateFailed
		return res, lc.fail(err)
	}

	if e.mux == nil {
		return fail(errors.New("interactive mode needs a tmux client"))
	}
	if err := e.mux.Available(); err != nil {
		return fail(err)
	}

	session := plan.SessionName()
	log := e.log.With("session", session)

	exists, err := e.mux.HasSession(ctx, session)
	if err != nil {
		return fail(err)
	}
	if exists {
		if !plan.ReplaceSession() {
			return fail(fmt.Errorf("%w: tmux session %q already exists (use --replace-session to replace it)",
				claude.ErrInvalidRequest, session))
		}
		log.Info("replacing existing tmux session")
		if err := e.mux.KillSession(ctx, session); err != nil {
			return fail(err)
		}
	}

	if err := e.mux.NewSession(ctx, session, windowName, plan.WorkDir()); err != nil {
		return fail(err)
	}
	if ok, err := e.mux.HasSession(ctx, session); err != nil {
		return fail(err)
	} else if !ok {
		return fail(fmt.Errorf("%w: %s", ErrSessionNotCreated, session))
	}

	// From here on a failure must not leave the half-started session behind,
	// or the next run under the same name collides with it.
	abandon := func(err error) (*Result, error) {
		if kerr := e.mux.KillSession(context.WithoutCancel(ctx), session); kerr != nil {
			log.Warn("failed to remove tmux session", "error", kerr)
		}
		return fail(err)
	}

	target := tmux.Target(session)
	if err := e.mux.SendLiteral(ctx, target, claude.ShellCommand(plan)); err != nil {
		return abandon(err)
	}
	if err := e.mux.SendEnter(ctx, target); err != nil {
		return abandon(err)
	}

	if err := lc.transition(StateDetached); err != nil {
		return res, err
	}
	res.State = StateDetached
	res.Entry = registry.ForInteractive(session)
	log.Info("interactive session started", "target", target)

	if err := registry.Render(e.stdout, res.Entry); err != nil {
		log.Warn("failed to write report", "error", err)
	}

	// Follow-ups never change the outcome: the session already exists.
	if plan.AcceptTrust() {
		e.acceptTrust(ctx, target, plan)
	}
	if wait := plan.InteractiveWait(); wait > 0 {
		e.snapshot(ctx, target, wait)
	}
	return res, nil
}

// acceptTrust confirms claude's workspace trust prompt if it shows up.
// When the first Enter does not dismiss it, option 1 is chosen explicitly.
func (e *Executor) acceptTrust(ctx context.Context, target string, plan claude.LaunchPlan) {
	log := e.log.With("target", target)

	wait := plan.TrustWait()
	if wait <= 0 {
		wait = config.DefaultTrustWait
	}
	found, err := e.mux.WaitForText(ctx, target, trustPrompt, wait)
	if err != nil || !found {
		log.Debug("trust prompt not shown", "error", err)
		return
	}
	if err := e.mux.SendEnter(ctx, target); err != nil {
		log.Warn("failed to accept trust prompt", "error", err)
		return
	}
	if err := e.sleep(ctx, trustSettle); err != nil {
		return
	}

	if still, _ := e.mux.WaitForText(ctx, target, trustPrompt, trustRecheck); still {
		log.Debug("trust prompt still shown, selecting option 1")
		_ = e.mux.SendKey(ctx, target, "1")
		_ = e.mux.SendEnter(ctx, target)
	}
	log.Info("trust prompt accepted")
}

// snapshot waits, then prints the pane's recent history.
func (e *Executor) snapshot(ctx context.Context, target string, wait time.Duration) {
	if err := e.sleep(ctx, wait); err != nil {
		return
	}
	out, err := e.mux.CapturePane(ctx, target, tmux.DefaultScrollback)
	if err != nil {
		e.log.Warn("snapshot failed", "target", target, "error", err)
		return
	}
	fmt.Fprintf(e.stdout, "\n--- tmux snapshot (last %d lines) ---\n\n%s\n", tmux.DefaultScrollback, out)
}
