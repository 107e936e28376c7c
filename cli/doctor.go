package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhubert/claude-headless/pty"
)

func (a *App) newDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the tools claude-headless depends on",
		Long: `Check that claude, script(1) and the optional tools for interactive
mode and notifications are installed, and report which pseudo-terminal
strategy this host supports.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a.setupLogging(false)

			cfg, err := a.loadConfig(configPath)
			if err != nil {
				return err
			}

			bin, binErr := a.resolveBinary("", cfg)
			if binErr != nil {
				bin = "claude"
			}
			prereqs := DefaultPrerequisites(bin)
			if cfg.PTY == pty.PreferNone {
				for i := range prereqs {
					if prereqs[i].Name == "script" {
						prereqs[i].Required = false
					}
				}
			}

			results := CheckAll(ctx, a.Commands, prereqs)
			var sb strings.Builder
			sb.WriteString(FormatCheckResults(results))
			sb.WriteString("\n")

			sb.WriteString(headerStyle.Render("Pseudo-terminal:") + "\n")
			if strategy, err := pty.Select(ctx, a.Commands, cfg.PTY); err != nil {
				sb.WriteString(fmt.Sprintf("  %s %s\n", missingMark, err))
			} else {
				sb.WriteString(fmt.Sprintf("  %s %s\n", okMark, strategy.Name()))
			}

			if path := cfg.FilePath(); path != "" {
				sb.WriteString("\n" + mutedStyle.Render("Config: "+path) + "\n")
			}
			fmt.Fprint(a.Stdout, sb.String())

			if err := MissingRequired(results); err != nil {
				return fmt.Errorf("%w: %v", errUnavailable, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file")
	return cmd
}
