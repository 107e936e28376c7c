// Package logs manages the per-run output files of claude-headless.
//
// Each headless or background run owns exactly one log file named
// claude-YYYYMMDD-HHMMSS.log. Files are never truncated or rotated; when
// two runs start within the same second the later one gets a -N suffix.
package logs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zhubert/claude-headless/paths"
)

const (
	filePrefix = "claude-"
	fileExt    = ".log"
	timeLayout = "20060102-150405"

	// maxCollisions bounds the -N suffix search within one second.
	maxCollisions = 1000
)

// RunLog is an append-only log file owned by a single run.
type RunLog struct {
	path string

	mu     sync.Mutex
	f      *os.File
	closed bool
}

// Open creates a new log file in dir, or in the default run log
// directory when dir is empty. The file exists when Open returns.
func Open(dir string) (*RunLog, error) {
	return OpenAt(dir, time.Now())
}

// OpenAt is Open with an explicit timestamp for the file name.
func OpenAt(dir string, now time.Time) (*RunLog, error) {
	if dir == "" {
		d, err := paths.RunLogsDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve run log directory: %w", err)
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	stamp := now.Format(timeLayout)
	for n := 1; n <= maxCollisions; n++ {
		name := filePrefix + stamp + fileExt
		if n > 1 {
			name = fmt.Sprintf("%s%s-%d%s", filePrefix, stamp, n, fileExt)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create log file %s: %w", path, err)
		}
		return &RunLog{path: path, f: f}, nil
	}
	return nil, fmt.Errorf("failed to create log file in %s: %d runs already started at %s", dir, maxCollisions, stamp)
}

// Append reopens an existing log file for appending. It is used by the
// background supervisor, which inherits a log created by its parent.
func Append(path string) (*RunLog, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen log file %s: %w", path, err)
	}
	return &RunLog{path: path, f: f}, nil
}

// Path returns the absolute or dir-relative path of the log file.
func (l *RunLog) Path() string { return l.path }

// File returns the underlying file so it can be handed to a child process
// as its stdout and stderr.
func (l *RunLog) File() *os.File { return l.f }

// Write appends p to the log.
func (l *RunLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, os.ErrClosed
	}
	return l.f.Write(p)
}

// Header is written before the child produces any output.
type Header struct {
	Command string
	CWD     string
	Started time.Time
}

// WriteHeader writes the run header:
//
//	# Command: claude -p 'hello'
//	# Started: 2026-01-02 15:04:05
//	# CWD: /repo
func (l *RunLog) WriteHeader(h Header) error {
	_, err := fmt.Fprintf(l, "# Command: %s\n# Started: %s\n# CWD: %s\n\n",
		h.Command, h.Started.Format(time.DateTime), h.CWD)
	return err
}

// Footer is written once the child has exited.
type Footer struct {
	Outcome  string // e.g. "exit 0" or "signal SIGTERM"
	Finished time.Time
}

// WriteFooter appends the run footer.
func (l *RunLog) WriteFooter(f Footer) error {
	_, err := fmt.Fprintf(l, "\n# Exit: %s\n# Finished: %s\n", f.Outcome, f.Finished.Format(time.DateTime))
	return err
}

// Close closes the file. It is safe to call more than once.
func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.f.Close()
}

// Remove closes and deletes the log. It is used when the run never
// started, so no empty log is left behind.
func (l *RunLog) Remove() error {
	if err := l.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove log file %s: %w", l.path, err)
	}
	return nil
}
