package pty

import (
	"context"
	"strings"
	"time"

	"github.com/zhubert/claude-headless/exec"
	"github.com/zhubert/claude-headless/logger"
)

// probeTimeout bounds each helper invocation made while probing.
const probeTimeout = 5 * time.Second

// Preferences accepted by Select.
const (
	PreferAuto = "auto"
	PreferBSD  = "bsd"
	PreferGNU  = "gnu"
	PreferNone = "none"
)

// Probe detects which script(1) flavor the host provides. util-linux
// script identifies itself in --version output; BSD script rejects the
// option, so anything else is treated as BSD.
func Probe(ctx context.Context, e exec.CommandExecutor) (Strategy, error) {
	log := logger.WithComponent("pty")

	path, err := e.LookPath("script")
	if err != nil {
		return nil, allocationFailed("script(1) not found on PATH: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	// BSD script exits non-zero here; only the text matters.
	out, _ := e.CombinedOutput(ctx, exec.Command{Name: path, Args: []string{"--version"}})
	if strings.Contains(string(out), "util-linux") {
		log.Debug("detected util-linux script", "path", path)
		return GNUScript{Path: path}, nil
	}
	log.Debug("detected BSD script", "path", path)
	return BSDScript{Path: path}, nil
}

// Select returns the strategy for a configured preference. "auto" probes
// the host; an explicit "bsd" or "gnu" is checked with Verify so a form
// the host rejects fails here rather than after a run has been set up.
func Select(ctx context.Context, e exec.CommandExecutor, preference string) (Strategy, error) {
	switch preference {
	case "", PreferAuto:
		return Probe(ctx, e)
	case PreferNone:
		return Passthrough{}, nil
	case PreferBSD, PreferGNU:
		path, err := e.LookPath("script")
		if err != nil {
			return nil, allocationFailed("script(1) not found on PATH: %v", err)
		}
		var s Strategy = BSDScript{Path: path}
		if preference == PreferGNU {
			s = GNUScript{Path: path}
		}
		if err := Verify(ctx, e, s); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, allocationFailed("unknown pty strategy %q", preference)
	}
}

// Verify runs "true" through s and fails with ErrAllocationFailed when
// the host's script(1) rejects the invocation form.
func Verify(ctx context.Context, e exec.CommandExecutor, s Strategy) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	name, args := s.Wrap([]string{"true"})
	out, err := e.CombinedOutput(ctx, exec.Command{Name: name, Args: args})
	if err != nil {
		return allocationFailed("host script(1) rejected the %s invocation form: %s",
			s.Name(), firstLine(string(out), err))
	}
	return nil
}

func firstLine(out string, err error) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	if line == "" {
		return err.Error()
	}
	return line
}
