// Package clipboard copies text to the system clipboard through whichever
// clipboard tool the host provides.
package clipboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhubert/claude-headless/exec"
)

// ErrUnavailable is returned when no clipboard tool is installed.
var ErrUnavailable = errors.New("no clipboard tool found (pbcopy, wl-copy or xclip)")

// tools are tried in order; the first one on PATH wins.
var tools = []struct {
	name string
	args []string
}{
	{"pbcopy", nil},
	{"wl-copy", nil},
	{"xclip", []string{"-selection", "clipboard"}},
}

// Copy writes text to the clipboard.
func Copy(ctx context.Context, e exec.CommandExecutor, text string) error {
	for _, tool := range tools {
		path, err := e.LookPath(tool.name)
		if err != nil {
			continue
		}
		cmd := exec.Command{Name: path, Args: tool.args, Stdin: []byte(text)}
		if _, err := exec.Output(ctx, e, cmd); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		return nil
	}
	return ErrUnavailable
}
