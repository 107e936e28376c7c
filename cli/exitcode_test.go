package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/zhubert/claude-headless/claude"
	"github.com/zhubert/claude-headless/pty"
	"github.com/zhubert/claude-headless/runner"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		want       int
		wantSilent bool
	}{
		{"success", nil, ExitOK, false},
		{"child exit passes through", &runner.ExitError{Code: 2}, 2, true},
		{"wrapped child exit", fmt.Errorf("run: %w", &runner.ExitError{Code: 127}), 127, true},
		{"child signaled", &runner.ExitError{Code: -1, Signal: "SIGKILL"}, ExitSoftware, true},
		{"timeout is reported", &runner.ExitError{Code: 124, TimedOut: true}, 124, false},
		{"invalid request", fmt.Errorf("%w: no prompt", claude.ErrInvalidRequest), ExitUsage, false},
		{"usage", fmt.Errorf("%w: bad flag", errUsage), ExitUsage, false},
		{"no pty", fmt.Errorf("%w: script missing", pty.ErrAllocationFailed), ExitUnavailable, false},
		{"doctor failure", fmt.Errorf("%w: tmux", errUnavailable), ExitUnavailable, false},
		{"other", errors.New("disk full"), ExitSoftware, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
			if got := silent(tt.err); got != tt.wantSilent {
				t.Errorf("silent() = %v, want %v", got, tt.wantSilent)
			}
		})
	}
}
