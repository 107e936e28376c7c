package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/zhubert/claude-headless/claude"
	"github.com/zhubert/claude-headless/config"
	"github.com/zhubert/claude-headless/logger"
	"github.com/zhubert/claude-headless/logs"
	"github.com/zhubert/claude-headless/pty"
)

// reportFD is the descriptor a supervisor reports on.
const reportFD = 3

func (a *App) newSuperviseCmd() *cobra.Command {
	var (
		logPath     string
		strategy    string
		notifyTitle string
	)

	cmd := &cobra.Command{
		Use:    "supervise",
		Short:  "Run one background claude to completion (internal)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := openReportPipe()
			if err != nil {
				return err
			}
			defer report.Close()

			a.setupLogging(false)
			log := logger.WithComponent("supervisor").With("log", logPath)

			fail := func(err error) error {
				writeReport(report, superviseReport{
					Error:      err.Error(),
					Allocation: errors.Is(err, pty.ErrAllocationFailed),
				})
				log.Error("background launch failed", "error", err)
				return err
			}

			var plan claude.LaunchPlan
			if err := json.NewDecoder(a.Stdin).Decode(&plan); err != nil {
				return fail(fmt.Errorf("failed to read launch plan: %w", err))
			}

			runLog, err := logs.Append(logPath)
			if err != nil {
				return fail(err)
			}

			s, err := pty.Select(cmd.Context(), a.Commands, strategy)
			if err != nil {
				_ = runLog.Remove()
				return fail(err)
			}

			cfg := config.Default()
			cfg.NotifyTitle = notifyTitle
			ex := a.newExecutor(pty.NewLauncher(s, log), cfg, log)

			res, err := ex.StartBackground(cmd.Context(), plan, runLog)
			if err != nil {
				return fail(err)
			}
			writeReport(report, superviseReport{PID: res.Handle.PID()})
			report.Close()

			<-res.Handle.Done()
			log.Debug("supervisor exiting", "pid", res.Handle.PID(), "status", res.Handle.Status())
			return nil
		},
	}

	cmd.Flags().StringVar(&logPath, "log", "", "run log to append to")
	cmd.Flags().StringVar(&strategy, "pty", pty.PreferAuto, "pty strategy")
	cmd.Flags().StringVar(&notifyTitle, "notify-title", config.DefaultNotifyTitle, "notification title")
	_ = cmd.MarkFlagRequired("log")
	return cmd
}

// openReportPipe adopts the report descriptor. It must be a pipe; anything
// else means the command was not started by detach.
func openReportPipe() (*os.File, error) {
	if !isPipe(reportFD) {
		return nil, errors.New("supervise is started by claude-headless --background")
	}
	// claude must not inherit the write end.
	unix.CloseOnExec(reportFD)
	return os.NewFile(reportFD, "report"), nil
}

func isPipe(fd int) bool {
	var st unix.Stat_t
	return unix.Fstat(fd, &st) == nil && st.Mode&unix.S_IFMT == unix.S_IFIFO
}

func writeReport(f *os.File, r superviseReport) {
	data, _ := json.Marshal(r)
	_, _ = f.Write(append(data, '\n'))
}
