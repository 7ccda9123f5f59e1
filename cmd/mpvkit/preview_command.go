package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mpvkit/internal/capture"
	"mpvkit/internal/config"
	"mpvkit/internal/fileutil"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var at float64
	var outPath string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "preview <media>",
		Short: "Capture a scrub-preview frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.session()
			if err != nil {
				return err
			}
			media, err := resolveMedia(args[0])
			if err != nil {
				return err
			}
			if at < 0 {
				return fmt.Errorf("--at must be zero or positive")
			}

			pipeline, err := capture.New(capture.OptionsFromConfig(cfg), logger, ctx.engineOpts...)
			if err != nil {
				return err
			}
			defer pipeline.Close()

			done := make(chan capture.Preview, 1)
			pipeline.GeneratePreview(media, at, func(p capture.Preview) {
				select {
				case done <- p:
				default:
				}
			})

			waitCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			var preview capture.Preview
			select {
			case preview = <-done:
			case <-waitCtx.Done():
				if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
					return fmt.Errorf("no preview for %s at %.1fs within %s (see log for capture errors)", media, at, timeout)
				}
				return waitCtx.Err()
			}

			out := cmd.OutOrStdout()
			target := strings.TrimSpace(outPath)
			if target == "" {
				fmt.Fprintf(out, "Preview at %.1fs: %s\n", preview.Time, preview.Path)
				return nil
			}
			size, err := copyPreview(preview.Path, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote preview at %.1fs to %s (%s)\n", preview.Time, target, humanize.IBytes(uint64(size)))
			return nil
		},
	}

	cmd.Flags().Float64Var(&at, "at", 0, "Timestamp in seconds; rounded to the nearest half second")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Copy the captured JPEG here instead of printing the cache path")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up if no frame arrives within this duration")
	return cmd
}

func copyPreview(src, dst string) (int64, error) {
	target, err := config.ExpandPath(dst)
	if err != nil {
		return 0, err
	}
	written, err := fileutil.CopyFile(src, target)
	if err != nil {
		return 0, fmt.Errorf("write preview: %w", err)
	}
	return written, nil
}
