package claude

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/zhubert/claude-headless/exec"
)

// NestingEnvVar is set by Claude Code inside its own sessions. A child
// claude refuses to start while it is present.
const NestingEnvVar = "CLAUDECODE"

// DefaultSessionPrefix is used for generated session names when the
// request carries no prefix.
const DefaultSessionPrefix = "claude"

// Translate validates req and resolves it into a LaunchPlan. env is the
// environment the wrapper was started with; it is only inspected.
func Translate(req InvocationRequest, env Environment) (LaunchPlan, error) {
	mode, err := resolveMode(req)
	if err != nil {
		return LaunchPlan{}, err
	}

	if strings.TrimSpace(req.Binary) == "" {
		return LaunchPlan{}, invalid("no claude binary resolved")
	}

	if strings.TrimSpace(req.Prompt) == "" && !hasPromptEquivalent(req.RawArgs) {
		return LaunchPlan{}, invalid("a prompt is required unless --print, --continue or --resume is passed through")
	}

	plan := LaunchPlan{
		mode:            mode,
		binary:          req.Binary,
		workDir:         req.WorkDir,
		prompt:          req.Prompt,
		clipboard:       req.Clipboard,
		replaceSession:  req.ReplaceSession,
		interactiveWait: req.InteractiveWait,
		acceptTrust:     req.AcceptTrust,
		trustWait:       req.TrustWait,
	}

	switch mode {
	case ModeInteractive:
		name, err := resolveSessionName(req.SessionName, req.SessionPrefix)
		if err != nil {
			return LaunchPlan{}, err
		}
		plan.sessionName = name
		plan.args = interactiveArgs(req)
	default:
		plan.logDir = req.LogDir
		plan.notify = req.Notify
		plan.args = printArgs(req)
	}

	if env[NestingEnvVar] != "" {
		plan.env.Unset = []string{NestingEnvVar}
	}

	return plan, nil
}

func resolveMode(req InvocationRequest) (Mode, error) {
	requested, err := ParseMode(string(req.Mode))
	if err != nil {
		return "", err
	}

	if req.Background {
		if requested == ModeInteractive {
			return "", invalid("--background cannot be combined with --mode interactive")
		}
		return ModeBackground, nil
	}

	switch requested {
	case "":
		return ModeHeadless, nil
	case ModeAuto:
		if HasSlashCommand(req.Prompt) {
			return ModeInteractive, nil
		}
		return ModeHeadless, nil
	default:
		return requested, nil
	}
}

// printArgs builds arguments for a non-interactive run: the managed flags
// first, then the caller's arguments untouched.
func printArgs(req InvocationRequest) []string {
	var args []string
	if !HasFlag(req.RawArgs, "-p", "--print") {
		args = append(args, "-p")
	}
	if req.Prompt != "" {
		args = append(args, req.Prompt)
	}
	if req.OutputFormat != "" && !HasFlag(req.RawArgs, "--output-format") {
		args = append(args, "--output-format", req.OutputFormat)
	}
	return append(args, req.RawArgs...)
}

// interactiveArgs forwards the caller's arguments and passes the prompt as
// the trailing positional argument, which claude submits as the first turn.
func interactiveArgs(req InvocationRequest) []string {
	args := append([]string{}, req.RawArgs...)
	if req.Prompt != "" {
		if !slices.Contains(args, "--") && strings.HasPrefix(req.Prompt, "-") {
			args = append(args, "--")
		}
		args = append(args, req.Prompt)
	}
	return args
}

func resolveSessionName(name, prefix string) (string, error) {
	if name == "" {
		return NewSessionName(prefix), nil
	}
	name = strings.TrimSpace(name)
	if err := ValidateSessionName(name); err != nil {
		return "", err
	}
	return name, nil
}

// ValidateSessionName rejects names tmux cannot address as a target.
func ValidateSessionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("tmux session name is empty")
	}
	if strings.ContainsAny(name, ":.") {
		return invalid("tmux session name %q must not contain ':' or '.'", name)
	}
	return nil
}

// NewSessionName returns a fresh session name such as claude-1a2b3c4d.
func NewSessionName(prefix string) string {
	if prefix == "" {
		prefix = DefaultSessionPrefix
	}
	return prefix + "-" + uuid.New().String()[:8]
}

// ShellCommand renders the plan as a single POSIX shell line, used when
// the command has to be typed into a terminal:
//
//	cd /repo && env -u CLAUDECODE /usr/local/bin/claude --model opus 'fix it'
func ShellCommand(plan LaunchPlan) string {
	var b strings.Builder
	if plan.workDir != "" {
		b.WriteString("cd ")
		b.WriteString(exec.Quote(plan.workDir))
		b.WriteString(" && ")
	}

	var envArgs []string
	for _, k := range plan.env.Unset {
		envArgs = append(envArgs, "-u", k)
	}
	envArgs = append(envArgs, EnvOverrides{Set: plan.env.Set}.Apply(nil)...)
	if len(envArgs) > 0 {
		b.WriteString("env ")
		b.WriteString(exec.QuoteArgs(envArgs))
		b.WriteString(" ")
	}

	b.WriteString(exec.QuoteArgs(plan.Argv()))
	return b.String()
}
