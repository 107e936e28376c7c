// Command claude-headless runs the Claude Code CLI from scripts and
// terminals: headless under a pseudo-terminal, interactively inside tmux,
// or detached in the background.
package main

import (
	"os"

	"github.com/zhubert/claude-headless/cli"
)

func main() {
	os.Exit(cli.Execute())
}
