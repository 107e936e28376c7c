package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"syscall"
	"time"

	"github.com/zhubert/claude-headless/claude"
	"github.com/zhubert/claude-headless/config"
	"github.com/zhubert/claude-headless/logger"
	"github.com/zhubert/claude-headless/logs"
	"github.com/zhubert/claude-headless/pty"
	"github.com/zhubert/claude-headless/registry"
	"github.com/zhubert/claude-headless/runner"
)

// reportTimeout bounds how long the caller waits for the supervisor to
// start claude.
const reportTimeout = 30 * time.Second

// superviseReport is the single JSON line a supervisor writes to its
// report pipe (fd 3) once claude has started or failed to start.
type superviseReport struct {
	PID        int    `json:"pid,omitempty"`
	Error      string `json:"error,omitempty"`
	Allocation bool   `json:"allocation,omitempty"`
}

// detach starts a supervisor process in its own session and returns once
// it has launched claude. The supervisor outlives this process, waits for
// claude and writes the log footer and completion notification.
func (a *App) detach(ctx context.Context, plan claude.LaunchPlan, cfg *config.Config) error {
	log := logger.WithComponent("detach")

	// Probe here so a host without script(1) fails before anything detaches.
	strategy, err := pty.Select(ctx, a.Commands, cfg.PTY)
	if err != nil {
		return err
	}

	runLog, err := logs.Open(plan.LogDir())
	if err != nil {
		return err
	}
	if err := runLog.WriteHeader(runner.LogHeader(plan, time.Now())); err != nil {
		_ = runLog.Remove()
		return fmt.Errorf("failed to write log header: %w", err)
	}
	if err := runLog.Close(); err != nil {
		return err
	}
	path := runLog.Path()

	report, err := a.startSupervisor(plan, path, strategy.Name(), cfg.NotifyTitle)
	if err != nil {
		_ = runLog.Remove()
		return err
	}
	if report.Error != "" {
		_ = runLog.Remove()
		if report.Allocation {
			return fmt.Errorf("%w: %s", pty.ErrAllocationFailed, report.Error)
		}
		return errors.New(report.Error)
	}

	log.Info("background run detached", "pid", report.PID, "log", path)
	return registry.Render(a.Stdout, registry.ForBackground(report.PID, path))
}

// startSupervisor re-executes this binary as "supervise" and reads its
// report. The plan travels on the supervisor's stdin.
func (a *App) startSupervisor(plan claude.LaunchPlan, logPath, strategy, notifyTitle string) (*superviseReport, error) {
	self, err := a.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate own executable: %w", err)
	}

	payload, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to encode launch plan: %w", err)
	}

	reportRead, reportWrite, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create report pipe: %w", err)
	}
	defer reportRead.Close()

	cmd := osexec.Command(self, "supervise",
		"--log", logPath,
		"--pty", strategy,
		"--notify-title", notifyTitle,
	)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.ExtraFiles = []*os.File{reportWrite} // fd 3 in the supervisor
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		reportWrite.Close()
		return nil, fmt.Errorf("failed to start supervisor: %w", err)
	}
	// Close the write end here so a supervisor that dies unreported
	// produces EOF.
	reportWrite.Close()

	decoded := make(chan error, 1)
	var report superviseReport
	go func() {
		decoded <- json.NewDecoder(reportRead).Decode(&report)
	}()

	select {
	case err := <-decoded:
		if err != nil {
			_ = cmd.Wait()
			return nil, fmt.Errorf("supervisor exited before starting claude (%s)", cmd.ProcessState)
		}
	case <-time.After(reportTimeout):
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("supervisor did not start claude within %s", reportTimeout)
	}

	if report.Error != "" {
		// The supervisor exits right after reporting a failure.
		_ = cmd.Wait()
		return &report, nil
	}
	if err := cmd.Process.Release(); err != nil {
		logger.WithComponent("detach").Warn("failed to release supervisor", "error", err)
	}
	return &report, nil
}
