// Package paths provides centralized path resolution for claude-headless.
//
// Two layouts are supported:
//
//   - Legacy: config and wrapper logs under ~/.claude-headless/, run logs
//     under ~/.claude/logs/headless/ next to Claude's own state
//   - XDG: config under XDG_CONFIG_HOME, wrapper logs and run logs under
//     XDG_STATE_HOME
//
// Resolution order:
//  1. If ~/.claude-headless/ exists → use legacy layout
//  2. If XDG env vars are set → use XDG layout
//  3. Fresh install, no XDG vars → default to legacy
package paths

import (
	"os"
	"path/filepath"
	"sync"
)

const appName = "claude-headless"

var (
	mu       sync.Mutex
	resolved *resolvedPaths
)

type resolvedPaths struct {
	configDir  string
	stateDir   string
	runLogsDir string
	legacy     bool
}

// resolve computes the path layout once and caches it.
func resolve() (*resolvedPaths, error) {
	mu.Lock()
	defer mu.Unlock()

	if resolved != nil {
		return resolved, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	legacyDir := filepath.Join(home, "."+appName)
	legacy := &resolvedPaths{
		configDir:  legacyDir,
		stateDir:   legacyDir,
		runLogsDir: filepath.Join(home, ".claude", "logs", "headless"),
		legacy:     true,
	}

	if info, err := os.Stat(legacyDir); err == nil && info.IsDir() {
		resolved = legacy
		return resolved, nil
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	xdgState := os.Getenv("XDG_STATE_HOME")

	if xdgConfig != "" || xdgState != "" {
		if xdgConfig == "" {
			xdgConfig = filepath.Join(home, ".config")
		}
		if xdgState == "" {
			xdgState = filepath.Join(home, ".local", "state")
		}
		stateDir := filepath.Join(xdgState, appName)
		resolved = &resolvedPaths{
			configDir:  filepath.Join(xdgConfig, appName),
			stateDir:   stateDir,
			runLogsDir: filepath.Join(stateDir, "runs"),
		}
		return resolved, nil
	}

	resolved = legacy
	return resolved, nil
}

// ConfigDir returns the directory holding config.yaml.
func ConfigDir() (string, error) {
	r, err := resolve()
	if err != nil {
		return "", err
	}
	return r.configDir, nil
}

// StateDir returns the directory for wrapper state and diagnostics.
func StateDir() (string, error) {
	r, err := resolve()
	if err != nil {
		return "", err
	}
	return r.stateDir, nil
}

// ConfigFilePath returns the full path to config.yaml.
func ConfigFilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LogsDir returns the directory for the wrapper's own diagnostic log.
func LogsDir() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs"), nil
}

// RunLogsDir returns the default directory for per-run output logs.
func RunLogsDir() (string, error) {
	r, err := resolve()
	if err != nil {
		return "", err
	}
	return r.runLogsDir, nil
}

// IsLegacyLayout returns true if using the ~/.claude-headless/ layout.
func IsLegacyLayout() bool {
	r, err := resolve()
	if err != nil {
		return true // assume legacy on error
	}
	return r.legacy
}

// Reset clears the cached path resolution. This is intended for testing only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	resolved = nil
}
