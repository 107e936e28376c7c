package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/zhubert/claude-headless/claude"
)

// errUsage marks malformed wrapper flags.
var errUsage = errors.New("usage error")

// Invocation is the parsed command line of one wrapper call.
type Invocation struct {
	Prompt  string
	RawArgs []string // forwarded to claude in order

	Mode            claude.Mode
	Background      bool
	SessionName     string
	LogDir          string
	Notify          bool
	WorkDir         string
	ClaudeBin       string
	Clipboard       bool
	ReplaceSession  bool
	InteractiveWait time.Duration
	AcceptTrust     bool

	ConfigPath string
	Verbose    bool
	Help       bool
}

// secondsValue is a duration flag that also accepts a bare number of
// seconds ("30" means 30s).
type secondsValue time.Duration

func (s *secondsValue) String() string { return time.Duration(*s).String() }
func (s *secondsValue) Type() string   { return "duration" }

func (s *secondsValue) Set(v string) error {
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		if n < 0 {
			return fmt.Errorf("must not be negative")
		}
		*s = secondsValue(time.Duration(n * float64(time.Second)))
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("want seconds or a duration like 30s")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	*s = secondsValue(d)
	return nil
}

// modeValue parses --mode.
type modeValue claude.Mode

func (m *modeValue) String() string { return string(*m) }
func (m *modeValue) Type() string   { return "mode" }

func (m *modeValue) Set(v string) error {
	mode, err := claude.ParseMode(v)
	if err != nil {
		return fmt.Errorf("want headless, interactive, background or auto")
	}
	*m = modeValue(mode)
	return nil
}

// newFlagSet declares the wrapper's own flags. Everything else on the
// command line belongs to claude.
func newFlagSet(inv *Invocation) *pflag.FlagSet {
	fs := pflag.NewFlagSet("claude-headless", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.StringVarP(&inv.Prompt, "prompt", "p", "", "prompt text (alternative to positional words)")
	fs.Var((*modeValue)(&inv.Mode), "mode", "execution mode: headless, interactive, background or auto")
	fs.BoolVar(&inv.Background, "background", false, "run detached and return immediately with PID and log path")
	fs.BoolVar(&inv.Background, "bg", false, "alias for --background")
	fs.StringVar(&inv.SessionName, "tmux-session", "", "tmux session name for interactive mode (default: generated)")
	fs.StringVar(&inv.LogDir, "log-dir", "", "directory for run logs")
	fs.BoolVar(&inv.Notify, "notify", false, "send a desktop notification when a background run finishes")
	fs.StringVar(&inv.WorkDir, "cwd", "", "working directory for claude (default: current directory)")
	fs.StringVar(&inv.ClaudeBin, "claude-bin", "", "path to the claude binary (or set CLAUDE_CODE_BIN)")
	fs.BoolVar(&inv.Clipboard, "clipboard", false, "copy headless output to the clipboard")
	fs.BoolVar(&inv.ReplaceSession, "replace-session", false, "replace an existing tmux session with the same name")
	fs.Var((*secondsValue)(&inv.InteractiveWait), "interactive-wait", "wait this long, then print a tmux snapshot")
	fs.BoolVar(&inv.AcceptTrust, "accept-trust", false, "answer claude's folder trust prompt in interactive mode")
	fs.StringVar(&inv.ConfigPath, "config", "", "config file (default: $CLAUDE_HEADLESS_CONFIG or the standard location)")
	fs.BoolVar(&inv.Verbose, "wrapper-verbose", false, "mirror wrapper diagnostics to stderr")
	fs.BoolVarP(&inv.Help, "help", "h", false, "show this help")

	_ = fs.MarkHidden("bg")
	return fs
}

// ParseInvocation splits args into wrapper flags, claude flags and prompt
// words. Unknown flags are forwarded to claude in their original order,
// together with their values when claude expects one. Positional words are
// joined into the prompt. Everything after "--" is forwarded verbatim.
func ParseInvocation(args []string) (*Invocation, error) {
	inv := &Invocation{}
	fs := newFlagSet(inv)

	var own, words []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			inv.RawArgs = append(inv.RawArgs, args[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			words = append(words, arg)
			continue
		}

		flag := lookupFlag(fs, arg)
		if flag == nil {
			inv.RawArgs = append(inv.RawArgs, arg)
			if claude.TakesValue(arg) && !strings.Contains(arg, "=") && i+1 < len(args) {
				i++
				inv.RawArgs = append(inv.RawArgs, args[i])
			}
			continue
		}

		own = append(own, arg)
		if flag.NoOptDefVal == "" && !strings.Contains(arg, "=") {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%w: flag %s needs a value", errUsage, arg)
			}
			i++
			own = append(own, args[i])
		}
	}

	if err := fs.Parse(own); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	if len(words) > 0 {
		text := strings.Join(words, " ")
		if inv.Prompt != "" {
			inv.Prompt += " " + text
		} else {
			inv.Prompt = text
		}
	}
	return inv, nil
}

// lookupFlag returns the wrapper flag arg refers to, or nil when the flag
// belongs to claude. Only exact long names and single-letter shorthands
// are recognized.
func lookupFlag(fs *pflag.FlagSet, arg string) *pflag.Flag {
	if name, ok := strings.CutPrefix(arg, "--"); ok {
		name, _, _ = strings.Cut(name, "=")
		return fs.Lookup(name)
	}
	if len(arg) == 2 {
		return fs.ShorthandLookup(arg[1:])
	}
	return nil
}

// usage renders the wrapper's help text.
func usage(fs *pflag.FlagSet) string {
	var b strings.Builder
	b.WriteString(`Run Claude Code reliably from scripts: headless under a pseudo-terminal,
interactively inside tmux, or detached in the background.

Usage:
  claude-headless [flags] [prompt words...] [-- claude args...]
  claude-headless doctor

Unrecognized flags (--model, --permission-mode, --print, ...) are passed to
claude unchanged and in order.

Flags:
`)
	b.WriteString(fs.FlagUsages())
	b.WriteString(`
Exit status:
  claude's own exit status is passed through. Wrapper failures use
  64 (invalid request), 69 (no pseudo-terminal or missing tools) and
  70 (anything else), and always print a "claude-headless:" message on
  stderr. A 64, 69 or 70 without that message came from claude itself.
`)
	return b.String()
}
