// Package process provides helpers for inspecting and signalling the
// processes that claude-headless starts.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/zhubert/claude-headless/exec"
	"github.com/zhubert/claude-headless/logger"
)

// Status is the decoded termination status of a process.
type Status struct {
	Code     int    // exit code, or 128+signal when signaled
	Signaled bool   // true when the process was killed by a signal
	Signal   string // signal name such as SIGTERM when Signaled
}

func (s Status) String() string {
	if s.Signaled {
		return fmt.Sprintf("signal %s", s.Signal)
	}
	return fmt.Sprintf("exit %d", s.Code)
}

// StatusFromState decodes an *os.ProcessState. Signaled processes report
// the shell convention 128+signal as their code.
func StatusFromState(ps *os.ProcessState) Status {
	if ps == nil {
		return Status{Code: -1}
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		sig := ws.Signal()
		return Status{
			Code:     128 + int(sig),
			Signaled: true,
			Signal:   unix.SignalName(sig),
		}
	}
	return Status{Code: ps.ExitCode()}
}

// Alive reports whether a process with the given PID exists. A process
// owned by another user counts as alive.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Terminate sends SIGTERM to the process group led by pid, falling back to
// the single process when pid does not lead a group. Detached runs are
// started in their own session, so the group covers the pty helper and the
// claude child it supervises.
func Terminate(pid int) error {
	return signalGroup(pid, unix.SIGTERM)
}

// Kill sends SIGKILL to the process group led by pid.
func Kill(pid int) error {
	return signalGroup(pid, unix.SIGKILL)
}

func signalGroup(pid int, sig unix.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	log := logger.WithComponent("process")

	err := unix.Kill(-pid, sig)
	if err == nil {
		log.Debug("signalled process group", "pid", pid, "signal", unix.SignalName(sig))
		return nil
	}
	if !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("failed to signal process group %d: %w", pid, err)
	}

	if err := unix.Kill(pid, sig); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}
	log.Debug("signalled process", "pid", pid, "signal", unix.SignalName(sig))
	return nil
}

// Tree returns pid followed by every process descended from it, parents
// before children. A pty helper starts its child in a new session, so the
// child is only reachable through this parent chain. When the process table
// cannot be read the result is just pid.
func Tree(ctx context.Context, e exec.CommandExecutor, pid int) []int {
	out, err := exec.Output(ctx, e, exec.Command{Name: "ps", Args: []string{"-A", "-o", "pid=", "-o", "ppid="}})
	if err != nil {
		logger.WithComponent("process").Debug("failed to list processes", "error", err)
		return []int{pid}
	}
	return descendants(pid, parseProcessTable(out))
}

// parseProcessTable maps each parent pid to its children from "pid ppid"
// lines.
func parseProcessTable(out string) map[int][]int {
	children := make(map[int][]int)
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		children[ppid] = append(children[ppid], pid)
	}
	return children
}

func descendants(root int, children map[int][]int) []int {
	tree := []int{root}
	seen := map[int]bool{root: true}
	for i := 0; i < len(tree); i++ {
		for _, c := range children[tree[i]] {
			if !seen[c] {
				seen[c] = true
				tree = append(tree, c)
			}
		}
	}
	return tree
}

// TerminateAll sends SIGTERM to every live process in pids, and to the
// process groups they lead. The first error is returned.
func TerminateAll(pids []int) error {
	return signalAll(pids, Terminate)
}

// KillAll sends SIGKILL to every live process in pids, and to the process
// groups they lead.
func KillAll(pids []int) error {
	return signalAll(pids, Kill)
}

func signalAll(pids []int, send func(int) error) error {
	var first error
	// children first so none are reparented before they are signalled
	for i := len(pids) - 1; i >= 0; i-- {
		if !Alive(pids[i]) {
			continue
		}
		if err := send(pids[i]); err != nil && first == nil && !errors.Is(err, unix.ESRCH) {
			first = err
		}
	}
	return first
}
