package claude

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRequest is returned when a request is malformed before any
// resource has been acquired.
var ErrInvalidRequest = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Mode is how the wrapped CLI is run.
type Mode string

const (
	ModeHeadless    Mode = "headless"
	ModeInteractive Mode = "interactive"
	ModeBackground  Mode = "background"

	// ModeAuto is only valid in a request. It resolves to interactive when
	// the prompt contains slash commands and to headless otherwise.
	ModeAuto Mode = "auto"
)

// ParseMode parses a mode name. The empty string parses to "" so callers
// can distinguish "not requested" from an explicit mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeHeadless, ModeInteractive, ModeBackground, ModeAuto:
		return m, nil
	default:
		return "", invalid("unrecognized mode %q (want headless, interactive, background or auto)", s)
	}
}

// InvocationRequest is one call to the wrapper as the user expressed it.
type InvocationRequest struct {
	Prompt  string
	RawArgs []string // forwarded to claude verbatim

	Mode       Mode // requested mode; empty means headless
	Background bool // --background, conflicts with an explicit interactive mode

	SessionName string // tmux session for interactive runs; generated when empty
	LogDir      string // run log directory; empty uses the default
	Notify      bool
	WorkDir     string
	Binary      string // resolved claude executable

	OutputFormat  string // forwarded as --output-format in non-interactive runs
	SessionPrefix string // prefix for generated session names

	Clipboard       bool
	ReplaceSession  bool
	InteractiveWait time.Duration
	AcceptTrust     bool
	TrustWait       time.Duration
}

// Environment is a snapshot of environment variables.
type Environment map[string]string

// ParseEnvironment builds an Environment from KEY=VALUE pairs as returned
// by os.Environ. Later duplicates win.
func ParseEnvironment(kv []string) Environment {
	env := make(Environment, len(kv))
	for _, pair := range kv {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}
