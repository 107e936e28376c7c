// Package tmux drives the tmux terminal multiplexer for interactive runs.
//
// Every call shells out through exec.CommandExecutor so tests can replace
// tmux with a MockExecutor. Session lookups use tmux's exact-match target
// form ("=name") so a session named "claude" never matches "claude-1a2b".
package tmux

import (
	"context"
	"errors"
	"fmt"
	osexec "os/exec"
	"strings"
	"time"

	"github.com/zhubert/claude-headless/exec"
)

// ErrNotInstalled is returned when the tmux binary cannot be found.
var ErrNotInstalled = errors.New("tmux not found (install it with your package manager, e.g. brew install tmux)")

// DefaultPollInterval is how often WaitForText re-captures the pane.
const DefaultPollInterval = 500 * time.Millisecond

// DefaultScrollback is how many lines of history CapturePane reads.
const DefaultScrollback = 200

// Client wraps tmux operations for one tmux server.
type Client struct {
	executor     exec.CommandExecutor
	bin          string
	socket       string // -L socket name; empty uses the default server
	pollInterval time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBinary sets the tmux binary. Defaults to "tmux" on PATH.
func WithBinary(path string) ClientOption {
	return func(c *Client) {
		c.bin = path
	}
}

// WithSocket selects a named tmux server (tmux -L).
func WithSocket(name string) ClientOption {
	return func(c *Client) {
		c.socket = name
	}
}

// WithPollInterval sets the WaitForText polling interval.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// NewClient creates a tmux client.
func NewClient(e exec.CommandExecutor, opts ...ClientOption) *Client {
	c := &Client{
		executor:     e,
		bin:          "tmux",
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Target returns the active pane of a session. Window and pane indexes are
// left to tmux so base-index and pane-base-index settings do not matter.
func Target(session string) string {
	return exact(session) + ":"
}

func exact(session string) string {
	return "=" + session
}

func (c *Client) command(args ...string) exec.Command {
	if c.socket != "" {
		args = append([]string{"-L", c.socket}, args...)
	}
	return exec.Command{Name: c.bin, Args: args}
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	return exec.Output(ctx, c.executor, c.command(args...))
}

// Available reports whether the tmux binary can be found.
func (c *Client) Available() error {
	if _, err := c.executor.LookPath(c.bin); err != nil {
		return ErrNotInstalled
	}
	return nil
}

// HasSession checks if a session with exactly this name exists. A missing
// tmux server counts as "no session".
func (c *Client) HasSession(ctx context.Context, name string) (bool, error) {
	_, err := c.run(ctx, "has-session", "-t", exact(name))
	if err == nil {
		return true, nil
	}
	if isMissingSession(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check session %s: %w", name, err)
}

// isMissingSession recognizes tmux's "no such session" failures.
func isMissingSession(err error) bool {
	var cmdErr *exec.CommandError
	if errors.As(err, &cmdErr) {
		for _, marker := range []string{"can't find session", "no server running", "error connecting to"} {
			if strings.Contains(cmdErr.Stderr, marker) {
				return true
			}
		}
	}
	var exitErr *osexec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}

// NewSession creates a detached session whose first window is named
// window and starts in dir.
func (c *Client) NewSession(ctx context.Context, name, window, dir string) error {
	args := []string{"new-session", "-d", "-s", name}
	if window != "" {
		args = append(args, "-n", window)
	}
	if dir != "" {
		args = append(args, "-c", dir)
	}
	if _, err := c.run(ctx, args...); err != nil {
		return fmt.Errorf("failed to create session %s: %w", name, err)
	}
	return nil
}

// KillSession terminates a session.
func (c *Client) KillSession(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "kill-session", "-t", exact(name)); err != nil {
		return fmt.Errorf("failed to kill session %s: %w", name, err)
	}
	return nil
}

// SendLiteral types text into a pane without pressing Enter. The text is
// not interpreted as key names.
func (c *Client) SendLiteral(ctx context.Context, target, text string) error {
	if _, err := c.run(ctx, "send-keys", "-t", target, "-l", "--", text); err != nil {
		return fmt.Errorf("failed to send keys to %s: %w", target, err)
	}
	return nil
}

// SendKey presses a single named key (e.g. "Enter") in a pane.
func (c *Client) SendKey(ctx context.Context, target, key string) error {
	if _, err := c.run(ctx, "send-keys", "-t", target, key); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", key, target, err)
	}
	return nil
}

// SendEnter presses Enter in a pane.
func (c *Client) SendEnter(ctx context.Context, target string) error {
	return c.SendKey(ctx, target, "Enter")
}

// CapturePane returns the last lines of a pane's history with wrapped
// lines joined.
func (c *Client) CapturePane(ctx context.Context, target string, lines int) (string, error) {
	if lines <= 0 {
		lines = DefaultScrollback
	}
	out, err := c.run(ctx, "capture-pane", "-p", "-J", "-t", target, "-S", fmt.Sprintf("-%d", lines))
	if err != nil {
		return "", fmt.Errorf("failed to capture pane %s: %w", target, err)
	}
	return out, nil
}

// WaitForText polls the pane until text appears or timeout elapses.
// Capture errors are retried until the deadline. It returns false, not an
// error, when the text never shows up.
func (c *Client) WaitForText(ctx context.Context, target, text string, timeout time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if buf, err := c.CapturePane(ctx, target, DefaultScrollback); err == nil && strings.Contains(buf, text) {
			return true, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return false, nil
			}
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}
