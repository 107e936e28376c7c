// Package claude turns an invocation request into a launch plan for the
// Claude Code CLI.
//
// # Overview
//
// The package is pure: it never reads the process environment, the
// filesystem or the clock on its own. Callers pass everything in:
//
//	req := claude.InvocationRequest{
//	    Prompt:  "summarize the diff",
//	    RawArgs: []string{"--model", "opus"},
//	    Binary:  "/usr/local/bin/claude",
//	}
//	plan, err := claude.Translate(req, claude.ParseEnvironment(os.Environ()))
//	if errors.Is(err, claude.ErrInvalidRequest) {
//	    // report usage error
//	}
//
// # Arguments
//
// Caller arguments are forwarded verbatim and in order, after the flags the
// wrapper manages itself (-p and --output-format in headless and background
// runs). A managed flag is skipped when the caller already supplied it in
// any of its spellings.
//
// # Nesting
//
// Claude Code refuses to start inside another Claude Code session, which it
// detects through the CLAUDECODE variable. When that variable is set the
// plan carries an override that unsets it for the child only.
package claude
