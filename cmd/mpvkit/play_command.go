package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mpvkit/internal/engine"
	"mpvkit/internal/logging"
	"mpvkit/internal/relay"
)

type playbackEnd struct {
	reason string
	err    error
}

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var start float64
	var wid string
	var headless bool
	var loadTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "play <media>",
		Short: "Play media until it ends or the command is interrupted",
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

			opts := engine.OptionsFromConfig(cfg, "playback")
			opts.Target = strings.TrimSpace(wid)
			opts.Headless = headless
			inst := engine.New(opts, logger, ctx.engineOpts...)
			defer inst.Destroy()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ended := make(chan playbackEnd, 1)
			unsubscribe := inst.Subscribe(playbackWatcher(logger, ended))
			defer unsubscribe()
			unbind := relay.Bind(inst, nil, relay.OptionsFromConfig(cfg), logger)
			defer unbind()

			loadCtx, cancel := context.WithTimeout(runCtx, loadTimeout)
			err = startAndLoad(loadCtx, inst, media)
			cancel()
			if err != nil {
				return err
			}
			if start > 0 {
				if err := inst.Seek(runCtx, start, engine.SeekAbsolute); err != nil {
					return fmt.Errorf("seek to %.1fs: %w", start, err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Playing %s\n", media)
			select {
			case end := <-ended:
				if end.err != nil {
					return end.err
				}
				fmt.Fprintf(out, "Playback finished (%s)\n", end.reason)
			case <-runCtx.Done():
				fmt.Fprintln(out, "Interrupted; stopping engine")
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&start, "start", 0, "Seek to this many seconds after loading")
	cmd.Flags().StringVar(&wid, "wid", "", "Embed the video surface in this native window id")
	cmd.Flags().BoolVar(&headless, "headless", false, "Run without a video window")
	cmd.Flags().DurationVar(&loadTimeout, "load-timeout", 30*time.Second, "Give up if the media has not loaded within this duration")
	return cmd
}

// playbackWatcher logs session events and reports the first one that ends
// playback.
func playbackWatcher(logger *slog.Logger, ended chan<- playbackEnd) engine.Listener {
	finish := func(end playbackEnd) {
		select {
		case ended <- end:
		default:
		}
	}
	return engine.ListenerFuncs{
		Event: func(ev engine.Event) {
			switch e := ev.(type) {
			case engine.FileLoaded:
				logger.Info("media loaded")
			case engine.EndFile:
				if e.Reason == "redirect" {
					return
				}
				if e.Reason == "error" {
					finish(playbackEnd{err: fmt.Errorf("playback failed: %s", e.Error)})
					return
				}
				finish(playbackEnd{reason: e.Reason})
			case engine.Exit:
				finish(playbackEnd{err: fmt.Errorf("engine exited with code %d", e.Code)})
			case engine.Closed:
				finish(playbackEnd{reason: "engine closed"})
			case engine.Failed:
				finish(playbackEnd{err: e.Err})
			default:
				logger.Debug("engine event", logging.String("kind", string(ev.Kind())))
			}
		},
		Property: func(name string, value json.RawMessage) {
			if name == "pause" {
				logger.Info("pause changed", logging.String("paused", string(value)))
			}
		},
	}
}
