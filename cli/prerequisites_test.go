package cli

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zhubert/claude-headless/exec"
)

func TestDefaultPrerequisites(t *testing.T) {
	prereqs := DefaultPrerequisites("/opt/claude/bin/claude")

	if len(prereqs) == 0 {
		t.Fatal("DefaultPrerequisites should return at least one prerequisite")
	}
	if prereqs[0].Name != "/opt/claude/bin/claude" {
		t.Errorf("first prerequisite = %q, want the resolved claude binary", prereqs[0].Name)
	}

	required := map[string]bool{}
	for _, p := range prereqs {
		required[p.Name] = p.Required
	}
	if !required["script"] {
		t.Error("script should be required")
	}
	if required["tmux"] {
		t.Error("tmux should be optional")
	}
	if required["osascript"] {
		t.Error("notifier should be optional")
	}
}

func TestDefaultPrerequisites_EmptyBinary(t *testing.T) {
	prereqs := DefaultPrerequisites("")
	if prereqs[0].Name != "claude" {
		t.Errorf("Name = %q, want claude", prereqs[0].Name)
	}
}

func TestCheck_Found(t *testing.T) {
	mock := exec.NewMockExecutor(nil)
	mock.AddPath("tmux", "/usr/bin/tmux")
	mock.AddExactMatch("/usr/bin/tmux", []string{"--version"}, exec.MockResponse{
		Stdout: []byte("tmux 3.4\n"),
	})

	result := Check(context.Background(), mock, Prerequisite{Name: "tmux"})

	if !result.Found {
		t.Fatal("expected tmux to be found")
	}
	if result.Path != "/usr/bin/tmux" {
		t.Errorf("Path = %q", result.Path)
	}
	if result.Version != "tmux 3.4" {
		t.Errorf("Version = %q, want %q", result.Version, "tmux 3.4")
	}
	if result.Error != nil {
		t.Errorf("unexpected error: %v", result.Error)
	}
}

func TestCheck_Alternative(t *testing.T) {
	mock := exec.NewMockExecutor(nil)
	mock.AddPath("notify-send", "/usr/bin/notify-send")

	result := Check(context.Background(), mock, Prerequisite{
		Name:         "osascript",
		Alternatives: []string{"notify-send"},
		SkipVersion:  true,
	})

	if !result.Found {
		t.Fatal("expected the alternative to satisfy the prerequisite")
	}
	if result.Command != "notify-send" {
		t.Errorf("Command = %q, want notify-send", result.Command)
	}
	if len(mock.GetCalls()) != 0 {
		t.Errorf("SkipVersion should not run the tool, got %v", mock.GetCalls())
	}
}

func TestCheck_NotFound(t *testing.T) {
	result := Check(context.Background(), exec.NewMockExecutor(nil), Prerequisite{
		Name:         "osascript",
		Alternatives: []string{"notify-send"},
	})

	if result.Found {
		t.Error("expected Found=false")
	}
	if result.Path != "" {
		t.Errorf("Path = %q, want empty", result.Path)
	}
	if result.Error == nil || !strings.Contains(result.Error.Error(), "osascript or notify-send") {
		t.Errorf("Error = %v, want mention of both candidates", result.Error)
	}
}

func TestCheck_VersionFailureIgnored(t *testing.T) {
	mock := exec.NewMockExecutor(nil)
	mock.AddPath("claude", "/usr/local/bin/claude")
	mock.AddPrefixMatch("/usr/local/bin/claude", []string{"--version"}, exec.MockResponse{
		Err: errors.New("exit status 1"),
	})

	result := Check(context.Background(), mock, Prerequisite{Name: "claude"})
	if !result.Found {
		t.Error("a failing --version should not hide the tool")
	}
	if result.Version != "" {
		t.Errorf("Version = %q, want empty", result.Version)
	}
}

func TestCheck_LongVersionTruncated(t *testing.T) {
	mock := exec.NewMockExecutor(nil)
	mock.AddPath("claude", "/usr/local/bin/claude")
	mock.AddPrefixMatch("/usr/local/bin/claude", []string{"--version"}, exec.MockResponse{
		Stdout: []byte(strings.Repeat("x", 150) + "\nsecond line\n"),
	})

	result := Check(context.Background(), mock, Prerequisite{Name: "claude"})
	if len(result.Version) != 103 || !strings.HasSuffix(result.Version, "...") {
		t.Errorf("Version = %q, want 100 chars plus ellipsis", result.Version)
	}
}

func TestCheckAll(t *testing.T) {
	mock := exec.NewMockExecutor(nil)
	mock.AddPath("script", "/usr/bin/script")

	results := CheckAll(context.Background(), mock, []Prerequisite{
		{Name: "script", Required: true, SkipVersion: true},
		{Name: "tmux"},
	})

	if len(results) != 2 {
		t.Fatalf("CheckAll returned %d results, want 2", len(results))
	}
	if !results[0].Found {
		t.Error("script should be found")
	}
	if results[1].Found {
		t.Error("tmux should not be found")
	}
}

func TestMissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		results []CheckResult
		want    string
	}{
		{
			name: "all present",
			results: []CheckResult{
				{Prerequisite: Prerequisite{Name: "claude", Required: true}, Found: true},
			},
		},
		{
			name: "optional missing",
			results: []CheckResult{
				{Prerequisite: Prerequisite{Name: "claude", Required: true}, Found: true},
				{Prerequisite: Prerequisite{Name: "tmux"}},
			},
		},
		{
			name: "required missing",
			results: []CheckResult{
				{Prerequisite: Prerequisite{Name: "script", Required: true, InstallHint: "apt install util-linux"}},
			},
			want: "apt install util-linux",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MissingRequired(tt.results)
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestFormatCheckResults(t *testing.T) {
	results := []CheckResult{
		{
			Prerequisite: Prerequisite{Name: "found-cmd", Required: true},
			Found:        true,
			Command:      "found-cmd",
			Path:         "/usr/bin/found-cmd",
			Version:      "1.0.0",
		},
		{
			Prerequisite: Prerequisite{Name: "found-no-version"},
			Found:        true,
			Command:      "found-no-version",
			Path:         "/usr/bin/found-no-version",
		},
		{
			Prerequisite: Prerequisite{Name: "missing-required", Required: true},
		},
		{
			Prerequisite: Prerequisite{Name: "missing-optional"},
		},
	}

	output := FormatCheckResults(results)

	for _, want := range []string{
		"CLI Prerequisites",
		"found-cmd", "1.0.0",
		"/usr/bin/found-no-version",
		"[REQUIRED]", "[optional]",
		"✓", "✗", "○",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestFormatCheckResults_Empty(t *testing.T) {
	output := FormatCheckResults([]CheckResult{})

	if !strings.Contains(output, "CLI Prerequisites") {
		t.Error("Empty results should still contain header")
	}
}
