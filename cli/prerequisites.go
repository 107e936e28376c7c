// Package cli implements the claude-headless command line.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zhubert/claude-headless/exec"
)

// versionTimeout bounds a single --version probe.
const versionTimeout = 3 * time.Second

// Prerequisite represents a CLI tool the wrapper shells out to
type Prerequisite struct {
	Name         string   // Command name (e.g., "claude", "tmux")
	Alternatives []string // Other commands that satisfy the same need
	Required     bool     // Whether headless runs need the tool
	Description  string   // Human-readable description
	InstallHint  string   // How to install it
	SkipVersion  bool     // Tool has no useful --version output
}

// DefaultPrerequisites returns the tools claude-headless uses. claudeBin
// is the resolved claude binary, or "claude" when unresolved.
func DefaultPrerequisites(claudeBin string) []Prerequisite {
	if claudeBin == "" {
		claudeBin = "claude"
	}
	return []Prerequisite{
		{
			Name:        claudeBin,
			Required:    true,
			Description: "Claude Code CLI",
			InstallHint: "npm install -g @anthropic-ai/claude-code (or set CLAUDE_CODE_BIN)",
		},
		{
			Name:        "script",
			Required:    true,
			Description: "script(1), provides the pseudo-terminal",
			InstallHint: "part of util-linux on Linux; preinstalled on macOS",
			SkipVersion: true,
		},
		{
			Name:        "tmux",
			Required:    false, // Only needed for interactive mode
			Description: "tmux (optional, for interactive mode)",
			InstallHint: "brew install tmux / apt install tmux",
		},
		{
			Name:         "osascript",
			Alternatives: []string{"notify-send"},
			Required:     false, // Only needed for --notify
			Description:  "desktop notifier (optional, for --notify)",
			InstallHint:  "preinstalled on macOS; libnotify-bin on Linux",
			SkipVersion:  true,
		},
	}
}

// CheckResult contains the result of checking a prerequisite
type CheckResult struct {
	Prerequisite Prerequisite
	Found        bool
	Command      string // Which of Name/Alternatives was found
	Path         string // Path to the executable if found
	Version      string // Version string if available
	Error        error
}

// Check verifies that a CLI tool (or one of its alternatives) is available
func Check(ctx context.Context, e exec.CommandExecutor, prereq Prerequisite) CheckResult {
	result := CheckResult{Prerequisite: prereq}

	candidates := append([]string{prereq.Name}, prereq.Alternatives...)
	for _, name := range candidates {
		path, err := e.LookPath(name)
		if err != nil {
			continue
		}
		result.Found = true
		result.Command = name
		result.Path = path
		break
	}
	if !result.Found {
		result.Error = fmt.Errorf("%s not found in PATH", strings.Join(candidates, " or "))
		return result
	}

	if !prereq.SkipVersion {
		result.Version = getVersion(ctx, e, result.Path)
	}
	return result
}

// CheckAll verifies all prerequisites and returns results
func CheckAll(ctx context.Context, e exec.CommandExecutor, prereqs []Prerequisite) []CheckResult {
	results := make([]CheckResult, len(prereqs))
	for i, prereq := range prereqs {
		results[i] = Check(ctx, e, prereq)
	}
	return results
}

// MissingRequired returns an error listing required tools that were not
// found, or nil.
func MissingRequired(results []CheckResult) error {
	var missing []string
	for _, r := range results {
		if r.Found || !r.Prerequisite.Required {
			continue
		}
		missing = append(missing, fmt.Sprintf("  - %s (%s)\n    Install: %s",
			r.Prerequisite.Name, r.Prerequisite.Description, r.Prerequisite.InstallHint))
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required CLI tools:\n%s", strings.Join(missing, "\n"))
	}
	return nil
}

// getVersion returns the first line of `path --version`, or "".
func getVersion(ctx context.Context, e exec.CommandExecutor, path string) string {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.Output(ctx, e, exec.Command{Name: path, Args: []string{"--version"}})
	if err != nil || out == "" {
		return ""
	}
	version, _, _ := strings.Cut(out, "\n")
	version = strings.TrimSpace(version)
	// Limit length to avoid overly long version strings
	if len(version) > 100 {
		version = version[:100] + "..."
	}
	return version
}

// FormatCheckResults formats check results for display
func FormatCheckResults(results []CheckResult) string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render("CLI Prerequisites:") + "\n")
	for _, r := range results {
		mark := okMark
		if !r.Found {
			if r.Prerequisite.Required {
				mark = missingMark
			} else {
				mark = optionalMark
			}
		}

		name := r.Prerequisite.Name
		if r.Found {
			name = r.Command
		}
		sb.WriteString(fmt.Sprintf("  %s %s", mark, name))
		switch {
		case r.Found && r.Version != "":
			sb.WriteString(mutedStyle.Render(fmt.Sprintf(" (%s)", r.Version)))
		case r.Found:
			sb.WriteString(mutedStyle.Render(fmt.Sprintf(" (%s)", r.Path)))
		case r.Prerequisite.Required:
			sb.WriteString(" [REQUIRED] " + mutedStyle.Render(r.Prerequisite.InstallHint))
		default:
			sb.WriteString(" [optional] " + mutedStyle.Render(r.Prerequisite.InstallHint))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
