package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mpvkit/internal/logging"
	"mpvkit/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var filter logs.Filter

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the mpvkit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := strings.TrimSpace(cfg.Logging.Dir)
			if dir == "" {
				return errors.New("logging.dir is not configured; no log file to read")
			}
			if err := filter.Validate(); err != nil {
				return err
			}
			path := filepath.Join(dir, logging.FileName)

			opts := logs.TailOptions{Offset: -1, Limit: max(lines, 0), Filter: filter}
			if opts.Limit == 0 {
				opts.Offset = 0
			}

			runCtx := cmd.Context()
			out := cmd.OutOrStdout()
			printed := false
			for {
				result, err := logs.Tail(runCtx, path, opts)
				if err != nil {
					if follow && runCtx.Err() != nil {
						return nil
					}
					return fmt.Errorf("tail logs: %w", err)
				}
				for _, rec := range result.Records {
					fmt.Fprintln(out, formatLogRecord(rec))
					printed = true
				}
				if !follow {
					if !printed {
						fmt.Fprintln(out, "No log entries available")
					}
					return nil
				}
				opts.Offset = result.Offset
				opts.Follow = true
				opts.Wait = time.Second
			}
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&filter.MinLevel, "level", "", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&filter.Component, "component", "", "Only show entries from this component")
	cmd.Flags().StringVar(&filter.Instance, "instance", "", "Only show entries from this engine instance")
	return cmd
}

func formatLogRecord(rec logs.Record) string {
	if rec.Level == "" && rec.Time.IsZero() {
		return rec.Raw
	}
	parts := make([]string, 0, 4)
	if !rec.Time.IsZero() {
		parts = append(parts, rec.Time.Local().Format("2006-01-02 15:04:05"))
	}
	level := strings.ToUpper(rec.Level)
	if level == "" {
		level = "INFO"
	}
	parts = append(parts, level)
	if rec.Component != "" {
		parts = append(parts, fmt.Sprintf("[%s]", rec.Component))
	}
	if rec.Instance != "" {
		parts = append(parts, fmt.Sprintf("(%s)", rec.Instance))
	}
	line := strings.Join(parts, " ")
	if message := strings.TrimSpace(rec.Message); message != "" {
		line += " - " + message
	}

	keys := rec.FieldKeys()
	if len(keys) == 0 {
		return line
	}
	var builder strings.Builder
	builder.WriteString(line)
	for _, key := range keys {
		builder.WriteString("\n    - ")
		builder.WriteString(key)
		builder.WriteString(": ")
		fmt.Fprint(&builder, rec.Fields[key])
	}
	return builder.String()
}
