package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mpvkit/internal/capture"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the preview cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show preview cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			files, size, err := capture.DiskUsage(cfg.Capture.CacheDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Directory: %s\n", cfg.Capture.CacheDir)
			fmt.Fprintf(out, "Frames:    %s\n", humanize.Comma(int64(files)))
			fmt.Fprintf(out, "Size:      %s\n", humanize.IBytes(uint64(size)))
			fmt.Fprintf(out, "Memory:    up to %d frames per session\n", cfg.Capture.MaxEntries)
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached preview frame",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			_, size, err := capture.DiskUsage(cfg.Capture.CacheDir)
			if err != nil {
				return err
			}
			removed, err := capture.ClearDisk(cfg.Capture.CacheDir)
			if err != nil {
				return err
			}
			if removed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Preview cache already empty")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached frames (%s)\n", removed, humanize.IBytes(uint64(size)))
			return nil
		},
	}
}
