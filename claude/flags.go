package claude

import "strings"

// valueFlags are claude options that consume the following argument.
// Variadic options such as --allowedTools are treated as taking one value;
// callers that need several pass them after "--" or as one comma list.
var valueFlags = map[string]bool{
	"--add-dir":                true,
	"--agents":                 true,
	"--allowedTools":           true,
	"--allowed-tools":          true,
	"--append-system-prompt":   true,
	"--betas":                  true,
	"--disallowedTools":        true,
	"--disallowed-tools":       true,
	"--fallback-model":         true,
	"--input-format":           true,
	"--json-schema":            true,
	"--max-budget-usd":         true,
	"--max-turns":              true,
	"--mcp-config":             true,
	"--model":                  true,
	"--output-format":          true,
	"--permission-mode":        true,
	"--permission-prompt-tool": true,
	"--plugin-dir":             true,
	"--resume":                 true,
	"-r":                       true,
	"--session-id":             true,
	"--setting-sources":        true,
	"--settings":               true,
	"--system-prompt":          true,
	"--tools":                  true,
}

// TakesValue reports whether the claude option arg consumes the next
// argument. Options written as --name=value never do.
func TakesValue(arg string) bool {
	if strings.Contains(arg, "=") {
		return false
	}
	return valueFlags[arg]
}

// HasFlag reports whether args contain any of names, matching both the
// bare form and the --name=value form. Scanning stops at "--" and values
// of known options are skipped.
func HasFlag(args []string, names ...string) bool {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return false
		}
		for _, name := range names {
			if arg == name || (strings.HasPrefix(name, "--") && strings.HasPrefix(arg, name+"=")) {
				return true
			}
		}
		if TakesValue(arg) {
			i++
		}
	}
	return false
}

// hasPromptEquivalent reports whether the caller's own arguments already
// tell claude what to do without a wrapper prompt.
func hasPromptEquivalent(args []string) bool {
	return HasFlag(args, "-p", "--print", "-c", "--continue", "-r", "--resume")
}

// HasSlashCommand reports whether any line of prompt starts with a slash
// command such as /review.
func HasSlashCommand(prompt string) bool {
	for line := range strings.SplitSeq(prompt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "/") {
			return true
		}
	}
	return false
}
