package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zhubert/claude-headless/claude"
	"github.com/zhubert/claude-headless/config"
	"github.com/zhubert/claude-headless/exec"
	"github.com/zhubert/claude-headless/logger"
	"github.com/zhubert/claude-headless/notify"
	"github.com/zhubert/claude-headless/pty"
	"github.com/zhubert/claude-headless/runner"
	"github.com/zhubert/claude-headless/tmux"
)

// App carries the process-level dependencies of the command line so tests
// can substitute them.
type App struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Getenv  func(string) string
	Environ func() []string

	// Commands runs every helper tool (script probes, tmux, notifiers).
	Commands exec.CommandExecutor

	// Executable locates the running binary for the background supervisor.
	Executable func() (string, error)
}

// NewApp returns an App wired to the real process.
func NewApp() *App {
	return &App{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Getenv:     os.Getenv,
		Environ:    os.Environ,
		Commands:   exec.NewRealExecutor(),
		Executable: os.Executable,
	}
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	defer logger.Close()
	return NewApp().Run(context.Background(), os.Args[1:])
}

// Run executes args and returns the exit code. Errors are printed to the
// app's stderr unless the child already reported them.
func (a *App) Run(ctx context.Context, args []string) int {
	// SIGTERM cancels the run; the pty launcher passes it on to the whole
	// process tree under the helper.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	root := a.NewRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil && !silent(err) {
		fmt.Fprintf(a.Stderr, "claude-headless: %v\n", err)
	}
	return ExitCode(err)
}

// NewRootCmd builds the command tree. The root command parses its own
// flags so that claude's flags can be forwarded untouched.
func (a *App) NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "claude-headless [flags] [prompt words...] [-- claude args...]",
		Short: "Run Claude Code headless, interactively in tmux, or in the background",
		Args:  cobra.ArbitraryArgs,

		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWrapper(cmd.Context(), args)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	// Prompts such as "help me fix this" must reach claude, so the default
	// help subcommand is replaced by one no word can select.
	root.SetHelpCommand(&cobra.Command{Hidden: true})
	root.SetIn(a.Stdin)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)

	root.AddCommand(a.newDoctorCmd(), a.newSuperviseCmd())
	return root
}

func (a *App) runWrapper(ctx context.Context, args []string) error {
	inv, err := ParseInvocation(args)
	if err != nil {
		return err
	}
	if inv.Help {
		fmt.Fprint(a.Stdout, usage(newFlagSet(&Invocation{})))
		return nil
	}

	a.setupLogging(inv.Verbose)
	log := logger.WithRun(uuid.New().String()[:8])

	cfg, err := a.loadConfig(inv.ConfigPath)
	if err != nil {
		return err
	}

	req, err := a.buildRequest(inv, cfg)
	if err != nil {
		return err
	}
	plan, err := claude.Translate(req, claude.ParseEnvironment(a.Environ()))
	if err != nil {
		return err
	}
	log.Debug("plan resolved", "mode", plan.Mode(), "binary", plan.Binary(), "args", len(plan.Args()))

	switch plan.Mode() {
	case claude.ModeBackground:
		return a.detach(ctx, plan, cfg)
	case claude.ModeInteractive:
		_, err := a.newExecutor(nil, cfg, log).Execute(ctx, plan)
		return err
	default:
		strategy, err := pty.Select(ctx, a.Commands, cfg.PTY)
		if err != nil {
			return err
		}
		log.Debug("pty strategy selected", "strategy", strategy.Name())

		// The terminal delivers ^C to the child as well; keep waiting so
		// the child's exit status and the log footer are recorded.
		signal.Notify(make(chan os.Signal, 1), os.Interrupt)
		defer signal.Reset(os.Interrupt)

		_, err = a.newExecutor(pty.NewLauncher(strategy, logger.WithComponent("pty")), cfg, log).Execute(ctx, plan)
		return err
	}
}

func (a *App) newExecutor(launcher *pty.Launcher, cfg *config.Config, log *slog.Logger) *runner.Executor {
	return runner.New(launcher,
		runner.WithMultiplexer(tmux.NewClient(a.Commands)),
		runner.WithNotifier(notify.Detect(a.Commands), cfg.NotifyTitle),
		runner.WithCommandExecutor(a.Commands),
		runner.WithIO(a.Stdin, a.Stdout, a.Stderr),
		runner.WithEnviron(a.Environ),
		runner.WithLogger(log),
	)
}

// setupLogging opens the diagnostic log. Failure to open it is not fatal.
func (a *App) setupLogging(verbose bool) {
	if path, err := logger.DefaultLogPath(); err == nil {
		if err := logger.Init(path); err != nil {
			fmt.Fprintf(a.Stderr, "claude-headless: warning: %v\n", err)
		}
	}
	logger.SetDebug(verbose)
	if verbose {
		logger.Mirror(a.Stderr)
	}
}

// loadConfig reads the config file. Only an explicitly named file has to
// exist.
func (a *App) loadConfig(explicit string) (*config.Config, error) {
	path, isDefault, err := config.ResolvePath(explicit, a.Getenv)
	if err != nil {
		logger.Get().Warn("no config location, using defaults", "error", err)
		cfg := config.Default()
		cfg.ApplyEnv(a.Getenv)
		return cfg, nil
	}
	cfg, err := config.Load(path, !isDefault)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(a.Getenv)
	return cfg, nil
}

// buildRequest merges flags over the config. Flags always win.
func (a *App) buildRequest(inv *Invocation, cfg *config.Config) (claude.InvocationRequest, error) {
	req := claude.InvocationRequest{
		Prompt:          inv.Prompt,
		RawArgs:         inv.RawArgs,
		Mode:            inv.Mode,
		Background:      inv.Background,
		SessionName:     inv.SessionName,
		LogDir:          inv.LogDir,
		Notify:          inv.Notify || cfg.Notify,
		OutputFormat:    cfg.OutputFormat,
		SessionPrefix:   cfg.SessionPrefix,
		Clipboard:       inv.Clipboard,
		ReplaceSession:  inv.ReplaceSession,
		InteractiveWait: inv.InteractiveWait,
		AcceptTrust:     inv.AcceptTrust,
		TrustWait:       cfg.TrustWait,
	}
	if req.Mode == "" && !req.Background {
		req.Mode = claude.Mode(cfg.DefaultMode)
	}
	if req.LogDir == "" {
		req.LogDir = cfg.LogDir
	}
	if req.LogDir != "" {
		// Reports and the supervisor need a path that works from anywhere.
		abs, err := filepath.Abs(req.LogDir)
		if err != nil {
			return req, err
		}
		req.LogDir = abs
	}

	dir, err := resolveWorkDir(inv.WorkDir)
	if err != nil {
		return req, err
	}
	req.WorkDir = dir

	bin, err := a.resolveBinary(inv.ClaudeBin, cfg)
	if err != nil {
		return req, err
	}
	req.Binary = bin
	return req, nil
}

// resolveWorkDir returns dir as an absolute directory, defaulting to the
// current one.
func resolveWorkDir(dir string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: --cwd %s is not a directory", claude.ErrInvalidRequest, dir)
	}
	return abs, nil
}

// resolveBinary finds the claude executable: --claude-bin, then
// $CLAUDE_CODE_BIN or the config file, then ~/.local/bin/claude, then PATH.
// A configured path that does not exist falls back to PATH.
func (a *App) resolveBinary(flagValue string, cfg *config.Config) (string, error) {
	candidate := flagValue
	if candidate == "" {
		candidate = cfg.ClaudeBin
	}
	if candidate == "" {
		if home, err := os.UserHomeDir(); err == nil {
			local := filepath.Join(home, ".local", "bin", "claude")
			if isExecutable(local) {
				return local, nil
			}
		}
		candidate = "claude"
	}

	if strings.ContainsRune(candidate, os.PathSeparator) {
		if isExecutable(candidate) {
			return candidate, nil
		}
		path, err := a.Commands.LookPath("claude")
		if err != nil {
			return "", fmt.Errorf("%w: claude binary %s not found; install with npm install -g @anthropic-ai/claude-code or set CLAUDE_CODE_BIN",
				claude.ErrInvalidRequest, candidate)
		}
		logger.Get().Warn("configured claude binary missing, using PATH", "configured", candidate, "path", path)
		return path, nil
	}

	path, err := a.Commands.LookPath(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found on PATH; install with npm install -g @anthropic-ai/claude-code or set CLAUDE_CODE_BIN",
			claude.ErrInvalidRequest, candidate)
	}
	return path, nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode()&0o111 != 0
}
