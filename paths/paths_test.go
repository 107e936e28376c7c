package paths

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// setupTestHome creates a temp directory, sets HOME to it, and resets the path cache.
func setupTestHome(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")
	Reset()
	t.Cleanup(Reset)
	return tmpDir
}

func TestFreshInstallNoXDG(t *testing.T) {
	home := setupTestHome(t)
	expected := filepath.Join(home, ".claude-headless")

	configDir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir: %v", err)
	}
	if configDir != expected {
		t.Errorf("ConfigDir = %q, want %q", configDir, expected)
	}

	stateDir, err := StateDir()
	if err != nil {
		t.Fatalf("StateDir: %v", err)
	}
	if stateDir != expected {
		t.Errorf("StateDir = %q, want %q", stateDir, expected)
	}

	runLogs, err := RunLogsDir()
	if err != nil {
		t.Fatalf("RunLogsDir: %v", err)
	}
	if want := filepath.Join(home, ".claude", "logs", "headless"); runLogs != want {
		t.Errorf("RunLogsDir = %q, want %q", runLogs, want)
	}

	if !IsLegacyLayout() {
		t.Error("IsLegacyLayout should be true for fresh install without XDG")
	}
}

func TestLegacyTakesPrecedenceOverXDG(t *testing.T) {
	home := setupTestHome(t)
	legacyDir := filepath.Join(home, ".claude-headless")
	if err := os.MkdirAll(legacyDir, 0755); err != nil {
		t.Fatal(err)
	}

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, ".local", "state"))
	Reset()

	configDir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir: %v", err)
	}
	if configDir != legacyDir {
		t.Errorf("ConfigDir = %q, want %q (legacy should take precedence)", configDir, legacyDir)
	}

	if !IsLegacyLayout() {
		t.Error("IsLegacyLayout should be true when ~/.claude-headless/ exists, even with XDG vars")
	}
}

func TestXDGAllVarsSet(t *testing.T) {
	home := setupTestHome(t)
	xdgConfig := filepath.Join(home, "cfg")
	xdgState := filepath.Join(home, "state")
	t.Setenv("XDG_CONFIG_HOME", xdgConfig)
	t.Setenv("XDG_STATE_HOME", xdgState)
	Reset()

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"ConfigDir", ConfigDir, filepath.Join(xdgConfig, "claude-headless")},
		{"StateDir", StateDir, filepath.Join(xdgState, "claude-headless")},
		{"ConfigFilePath", ConfigFilePath, filepath.Join(xdgConfig, "claude-headless", "config.yaml")},
		{"LogsDir", LogsDir, filepath.Join(xdgState, "claude-headless", "logs")},
		{"RunLogsDir", RunLogsDir, filepath.Join(xdgState, "claude-headless", "runs")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, got, tt.want)
			}
		})
	}

	if IsLegacyLayout() {
		t.Error("IsLegacyLayout should be false with XDG vars and no legacy dir")
	}
}

func TestXDGPartialVarsUseDefaults(t *testing.T) {
	home := setupTestHome(t)
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))
	Reset()

	configDir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir: %v", err)
	}
	if want := filepath.Join(home, ".config", "claude-headless"); configDir != want {
		t.Errorf("ConfigDir = %q, want %q", configDir, want)
	}
}

func TestLegacyFileHelpers(t *testing.T) {
	home := setupTestHome(t)
	legacyDir := filepath.Join(home, ".claude-headless")

	cfg, err := ConfigFilePath()
	if err != nil {
		t.Fatalf("ConfigFilePath: %v", err)
	}
	if want := filepath.Join(legacyDir, "config.yaml"); cfg != want {
		t.Errorf("ConfigFilePath = %q, want %q", cfg, want)
	}

	logs, err := LogsDir()
	if err != nil {
		t.Fatalf("LogsDir: %v", err)
	}
	if want := filepath.Join(legacyDir, "logs"); logs != want {
		t.Errorf("LogsDir = %q, want %q", logs, want)
	}
}

func TestResolutionIsCached(t *testing.T) {
	home := setupTestHome(t)

	first, _ := ConfigDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "changed"))
	second, _ := ConfigDir()
	if first != second {
		t.Errorf("resolution should be cached until Reset: %q vs %q", first, second)
	}

	Reset()
	third, _ := ConfigDir()
	if third == first {
		t.Error("Reset should force re-resolution")
	}
}

func TestConcurrentResolve(t *testing.T) {
	setupTestHome(t)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := RunLogsDir(); err != nil {
				t.Errorf("RunLogsDir: %v", err)
			}
		}()
	}
	wg.Wait()
}
