package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mpvkit/internal/deps"
	"mpvkit/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the mpv binary and the directories mpvkit writes into",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := isTerminal(cmd)

			statuses := preflight.CheckEngineDeps(cfg)
			fmt.Fprintln(out, renderSectionHeader("Dependencies", colorize))
			for _, s := range statuses {
				kind, message := statusOK, s.Path
				if !s.Available {
					kind, message = statusError, s.Detail
					if s.Optional {
						kind = statusWarn
						message = fmt.Sprintf("%s (optional: %s)", s.Detail, s.Description)
					}
				}
				fmt.Fprintln(out, renderStatusLine(s.Name, kind, message, colorize))
			}

			results := preflight.RunAll(cfg)
			fmt.Fprintln(out, renderSectionHeader("Directories", colorize))
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			missing := len(deps.Missing(statuses)) + len(preflight.Failed(results))
			if missing > 0 {
				return errors.New(pluralize(missing, "check failed", "checks failed"))
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
