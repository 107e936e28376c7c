// Package registry reports how to find a launched run again: its pid and
// log for background runs, its tmux session for interactive ones.
package registry

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zhubert/claude-headless/claude"
	"github.com/zhubert/claude-headless/exec"
	"github.com/zhubert/claude-headless/tmux"
)

var (
	colorPrimary = lipgloss.Color("39")  // blue
	colorMuted   = lipgloss.Color("242") // gray

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// Entry describes a launched run. Background entries carry PID and
// LogPath; interactive entries carry SessionName and Target.
type Entry struct {
	Mode        claude.Mode
	PID         int
	LogPath     string
	SessionName string
	Target      string // tmux pane target, e.g. "=claude-1a2b3c4d:"
}

// ForBackground builds the entry for a detached run.
func ForBackground(pid int, logPath string) Entry {
	return Entry{Mode: claude.ModeBackground, PID: pid, LogPath: logPath}
}

// ForInteractive builds the entry for a tmux-hosted run.
func ForInteractive(session string) Entry {
	return Entry{Mode: claude.ModeInteractive, SessionName: session, Target: tmux.Target(session)}
}

// TailCommand returns a shell command that follows the run's log.
func (e Entry) TailCommand() string {
	return "tail -f " + exec.Quote(e.LogPath)
}

// StopCommand returns a shell command that stops the background run.
func (e Entry) StopCommand() string {
	return fmt.Sprintf("kill %d", e.PID)
}

// AttachCommand returns a shell command that attaches to the session.
func (e Entry) AttachCommand() string {
	return "tmux attach -t " + exec.Quote(e.SessionName)
}

// SnapshotCommand returns a shell command that prints the session's
// recent scrollback.
func (e Entry) SnapshotCommand() string {
	return "tmux capture-pane -p -J -t " + exec.Quote(e.Target) + " -S -200"
}

// Render writes the human-readable report for e.
func Render(w io.Writer, e Entry) error {
	var b strings.Builder
	switch e.Mode {
	case claude.ModeBackground:
		b.WriteString(headingStyle.Render("Background process started:") + "\n")
		writeRow(&b, "PID:", fmt.Sprint(e.PID), 6)
		writeRow(&b, "Log:", e.LogPath, 6)
		writeRow(&b, "Tail:", e.TailCommand(), 6)
		writeRow(&b, "Stop:", e.StopCommand(), 6)
	case claude.ModeInteractive:
		b.WriteString(headingStyle.Render("Interactive Claude Code started in tmux session:") + " " + e.SessionName + "\n")
		writeRow(&b, "Attach:", e.AttachCommand(), 10)
		writeRow(&b, "Snapshot:", e.SnapshotCommand(), 10)
	default:
		return fmt.Errorf("no report for %s runs", e.Mode)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeRow pads the label to width visible columns so values line up.
func writeRow(b *strings.Builder, label, value string, width int) {
	pad := max(width-len(label), 1)
	b.WriteString("  " + labelStyle.Render(label) + strings.Repeat(" ", pad) + value + "\n")
}
