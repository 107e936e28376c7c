// Package notify sends desktop notifications when background runs finish.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zhubert/claude-headless/exec"
	"github.com/zhubert/claude-headless/process"
)

// ErrDeliveryFailed wraps every notification failure. Delivery is best
// effort, so callers log it and carry on.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// deliveryTimeout bounds a single notification attempt.
const deliveryTimeout = 5 * time.Second

// Notifier delivers a user-visible notification.
type Notifier interface {
	Notify(ctx context.Context, title, text string) error
}

// Desktop posts notifications through the host's notification tool.
type Desktop struct {
	executor exec.CommandExecutor
	tool     string // "osascript" or "notify-send"
	path     string
}

// Detect returns a Desktop notifier for the first available tool
// (osascript on macOS, notify-send elsewhere), or Noop when neither exists.
func Detect(e exec.CommandExecutor) Notifier {
	for _, tool := range []string{"osascript", "notify-send"} {
		if path, err := e.LookPath(tool); err == nil {
			return &Desktop{executor: e, tool: tool, path: path}
		}
	}
	return Noop{}
}

// Tool returns the name of the tool used for delivery.
func (d *Desktop) Tool() string { return d.tool }

// Notify posts one notification.
func (d *Desktop) Notify(ctx context.Context, title, text string) error {
	var cmd exec.Command
	switch d.tool {
	case "osascript":
		script := fmt.Sprintf("display notification %s with title %s", appleScriptString(text), appleScriptString(title))
		cmd = exec.Command{Name: d.path, Args: []string{"-e", script}}
	default:
		cmd = exec.Command{Name: d.path, Args: []string{"--app-name=claude-headless", title, text}}
	}

	if _, err := exec.Output(ctx, d.executor, cmd); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeliveryFailed, d.tool, err)
	}
	return nil
}

// appleScriptString quotes s as an AppleScript string literal.
func appleScriptString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// Noop discards notifications. It is used when the host has no
// notification tool.
type Noop struct{}

func (Noop) Notify(context.Context, string, string) error { return nil }

// Deliver sends a notification without letting failures escape. Errors
// are logged at warn level.
func Deliver(ctx context.Context, n Notifier, title, text string, log *slog.Logger) {
	if n == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	if err := n.Notify(ctx, title, text); err != nil {
		if !errors.Is(err, ErrDeliveryFailed) {
			err = fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		}
		log.Warn("notification not delivered", "error", err)
		return
	}
	log.Debug("notification delivered", "title", title)
}

// Summary renders the notification text for a finished background run.
func Summary(pid int, status process.Status) string {
	return fmt.Sprintf("Background task finished (PID %d): %s", pid, status)
}

var (
	_ Notifier = (*Desktop)(nil)
	_ Notifier = Noop{}
)
