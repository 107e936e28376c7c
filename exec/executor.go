// Package exec provides an abstraction over short-lived helper commands
// (tmux, script probes, notifiers, clipboard tools) for testability.
// Production code uses RealExecutor; tests inject a MockExecutor that
// returns pre-recorded responses and records every invocation.
//
// The wrapped claude process itself is not started through this package.
// Its lifecycle is owned by the pty launcher.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"
	"sync"
)

// Command describes one helper invocation.
type Command struct {
	Dir   string
	Name  string
	Args  []string
	Env   []string // nil inherits the caller's environment
	Stdin []byte
}

// String renders the command the way a user would type it.
func (c Command) String() string {
	return QuoteArgs(append([]string{c.Name}, c.Args...))
}

// CommandExecutor abstracts helper command execution.
type CommandExecutor interface {
	// Run executes a command and returns stdout, stderr, and any error.
	Run(ctx context.Context, cmd Command) (stdout, stderr []byte, err error)

	// CombinedOutput executes a command and returns combined stdout+stderr.
	CombinedOutput(ctx context.Context, cmd Command) ([]byte, error)

	// LookPath resolves an executable name against PATH.
	LookPath(name string) (string, error)
}

// RealExecutor executes commands using os/exec.
type RealExecutor struct{}

// NewRealExecutor returns a new RealExecutor.
func NewRealExecutor() *RealExecutor {
	return &RealExecutor{}
}

func (e *RealExecutor) command(ctx context.Context, c Command) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if c.Env != nil {
		cmd.Env = c.Env
	}
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}
	return cmd
}

// Run executes a command and returns stdout, stderr, and any error.
func (e *RealExecutor) Run(ctx context.Context, c Command) (stdout, stderr []byte, err error) {
	cmd := e.command(ctx, c)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err = cmd.Run()
	return stdoutBuf.Bytes(), stderrBuf.Bytes(), err
}

// CombinedOutput executes a command and returns combined stdout+stderr.
func (e *RealExecutor) CombinedOutput(ctx context.Context, c Command) ([]byte, error) {
	return e.command(ctx, c).CombinedOutput()
}

// LookPath resolves name using exec.LookPath.
func (e *RealExecutor) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// MockResponse defines the response for a mocked command.
type MockResponse struct {
	Stdout []byte
	Stderr []byte
	Err    error
}

// CommandMatcher is a function that determines if a command matches.
type CommandMatcher func(cmd Command) bool

// MockRule defines a matching rule and its response.
type MockRule struct {
	Match    CommandMatcher
	Response MockResponse
}

// MockExecutor returns pre-recorded responses for commands.
// Commands are matched in order of rule registration. LookPath only
// resolves names registered with AddPath.
type MockExecutor struct {
	mu       sync.RWMutex
	rules    []MockRule
	calls    []Command
	paths    map[string]string
	fallback CommandExecutor
}

// NewMockExecutor creates a new MockExecutor.
// If fallback is provided, unmatched commands will be delegated to it.
func NewMockExecutor(fallback CommandExecutor) *MockExecutor {
	return &MockExecutor{
		fallback: fallback,
		paths:    make(map[string]string),
	}
}

// AddRule adds a matching rule with its response.
func (e *MockExecutor) AddRule(match CommandMatcher, response MockResponse) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, MockRule{Match: match, Response: response})
}

// AddExactMatch adds a rule that matches a specific command exactly.
func (e *MockExecutor) AddExactMatch(name string, args []string, response MockResponse) {
	e.AddRule(func(c Command) bool {
		return c.Name == name && slices.Equal(c.Args, args)
	}, response)
}

// AddPrefixMatch adds a rule that matches commands starting with specific args.
func (e *MockExecutor) AddPrefixMatch(name string, prefixArgs []string, response MockResponse) {
	e.AddRule(func(c Command) bool {
		if c.Name != name || len(c.Args) < len(prefixArgs) {
			return false
		}
		return slices.Equal(c.Args[:len(prefixArgs)], prefixArgs)
	}, response)
}

// AddPath makes LookPath resolve name to path.
func (e *MockExecutor) AddPath(name, path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paths[name] = path
}

// GetCalls returns all recorded command invocations.
func (e *MockExecutor) GetCalls() []Command {
	e.mu.RLock()
	defer e.mu.RUnlock()
	calls := make([]Command, len(e.calls))
	copy(calls, e.calls)
	return calls
}

// ClearCalls clears the recorded command invocations.
func (e *MockExecutor) ClearCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}

func (e *MockExecutor) findMatch(c Command) *MockResponse {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, rule := range e.rules {
		if rule.Match(c) {
			resp := rule.Response
			return &resp
		}
	}
	return nil
}

func (e *MockExecutor) recordCall(c Command) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c.Args = slices.Clone(c.Args)
	e.calls = append(e.calls, c)
}

// Run executes a mocked command.
func (e *MockExecutor) Run(ctx context.Context, c Command) (stdout, stderr []byte, err error) {
	e.recordCall(c)

	if resp := e.findMatch(c); resp != nil {
		return resp.Stdout, resp.Stderr, resp.Err
	}

	if e.fallback != nil {
		return e.fallback.Run(ctx, c)
	}

	// Default: return empty success
	return nil, nil, nil
}

// CombinedOutput executes a mocked command.
func (e *MockExecutor) CombinedOutput(ctx context.Context, c Command) ([]byte, error) {
	e.recordCall(c)

	if resp := e.findMatch(c); resp != nil {
		combined := append(slices.Clone(resp.Stdout), resp.Stderr...)
		return combined, resp.Err
	}

	if e.fallback != nil {
		return e.fallback.CombinedOutput(ctx, c)
	}

	return nil, nil
}

// LookPath resolves names registered with AddPath, then the fallback.
func (e *MockExecutor) LookPath(name string) (string, error) {
	e.mu.RLock()
	path, ok := e.paths[name]
	e.mu.RUnlock()
	if ok {
		return path, nil
	}
	if e.fallback != nil {
		return e.fallback.LookPath(name)
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// Ensure implementations satisfy the interface.
var _ CommandExecutor = (*RealExecutor)(nil)
var _ CommandExecutor = (*MockExecutor)(nil)

// CommandError describes a helper command that exited unsuccessfully,
// carrying its trimmed stderr for diagnostics.
type CommandError struct {
	Command Command
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	name := e.Command.Name
	if len(e.Command.Args) > 0 {
		name += " " + e.Command.Args[0]
	}
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", name, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", name, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Output runs cmd and returns trimmed stdout, or a *CommandError carrying
// stderr when the command fails.
func Output(ctx context.Context, e CommandExecutor, cmd Command) (string, error) {
	stdout, stderr, err := e.Run(ctx, cmd)
	if err != nil {
		return "", &CommandError{
			Command: cmd,
			Stderr:  strings.TrimSpace(string(stderr)),
			Err:     err,
		}
	}
	return strings.TrimSpace(string(stdout)), nil
}
