package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	textlanguage "golang.org/x/text/language"

	"mpvkit/internal/engine"
	"mpvkit/internal/language"
)

var probeProperties = []string{
	"filename",
	"file-format",
	"file-size",
	"duration",
	"width",
	"height",
	"video-codec",
	"container-fps",
	"audio-codec-name",
	"audio-params/channel-count",
	"chapters",
	"track-list/count",
}

type probeResult struct {
	Media      string                     `json:"media"`
	Properties map[string]json.RawMessage `json:"properties"`
	Tracks     []probeTrack               `json:"tracks,omitempty"`
}

// probeTrack is the subset of an mpv track-list entry worth reporting.
type probeTrack struct {
	ID       int    `json:"id"`
	Type     string `json:"type"`
	Lang     string `json:"lang,omitempty"`
	Title    string `json:"title,omitempty"`
	Codec    string `json:"codec,omitempty"`
	Default  bool   `json:"default"`
	Selected bool   `json:"selected"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var format string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "probe <media>",
		Short: "Load media headless and print its properties",
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

			opts := engine.OptionsFromConfig(cfg, "probe")
			opts.Headless = true
			opts.Target = ""
			opts.ObserveDefaults = false
			inst := engine.New(opts, logger, ctx.engineOpts...)
			defer inst.Destroy()

			runCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := startAndLoad(runCtx, inst, media); err != nil {
				return err
			}

			result := probeResult{Media: media, Properties: make(map[string]json.RawMessage, len(probeProperties))}
			for _, name := range probeProperties {
				raw, err := inst.GetProperty(runCtx, name)
				if err != nil {
					return fmt.Errorf("get %s: %w", name, err)
				}
				if raw != nil {
					result.Properties[name] = raw
				}
			}
			raw, err := inst.GetProperty(runCtx, "track-list")
			if err != nil {
				return fmt.Errorf("get track-list: %w", err)
			}
			if raw != nil {
				if err := json.Unmarshal(raw, &result.Tracks); err != nil {
					return fmt.Errorf("decode track-list: %w", err)
				}
			}

			switch strings.ToLower(strings.TrimSpace(format)) {
			case "json":
				return writeJSON(cmd, result)
			case "table":
			case "", "auto":
				if !isTerminal(cmd) {
					return writeJSON(cmd, result)
				}
			default:
				return fmt.Errorf("unsupported format %q (use auto, table or json)", format)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProbeTable(result))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "auto", "Output format: auto, table or json (auto picks json when stdout is not a terminal)")
	cmd.Flags().DurationVar(&timeout, "timeout", 20*time.Second, "Give up if the media has not loaded within this duration")
	return cmd
}

// startAndLoad spawns inst, waits for its socket, and loads media.
func startAndLoad(ctx context.Context, inst *engine.Instance, media string) error {
	if err := inst.Spawn(ctx); err != nil {
		return err
	}
	if err := inst.WaitReady(ctx); err != nil {
		return err
	}
	loaded := inst.Expect(engine.KindFileLoaded)
	defer loaded.Cancel()
	if err := inst.LoadFile(ctx, media, engine.LoadReplace); err != nil {
		return err
	}
	if _, err := loaded.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for %s to load: %w", media, err)
	}
	return nil
}

func renderProbeTable(result probeResult) string {
	title := cases.Title(textlanguage.English)
	rows := make([][]string, 0, len(probeProperties)+2)
	for _, name := range probeProperties {
		label := title.String(strings.NewReplacer("-", " ", "/", " ").Replace(name))
		rows = append(rows, []string{label, formatProbeValue(name, result.Properties[name])})
	}
	rows = append(rows,
		[]string{"Audio Tracks", trackLanguages(result.Tracks, "audio")},
		[]string{"Subtitle Tracks", trackLanguages(result.Tracks, "sub")},
	)
	return renderTable(result.Media, []string{"Property", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

// trackLanguages lists the languages of one track type, marking the selected
// track with an asterisk.
func trackLanguages(tracks []probeTrack, kind string) string {
	var names []string
	for _, track := range tracks {
		if track.Type != kind {
			continue
		}
		name := language.DisplayName(track.Lang)
		if track.Selected {
			name += "*"
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func formatProbeValue(name string, raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "-"
	}
	switch name {
	case "duration":
		var seconds float64
		if json.Unmarshal(raw, &seconds) == nil {
			return formatSeconds(seconds)
		}
	case "file-size":
		var size int64
		if json.Unmarshal(raw, &size) == nil && size >= 0 {
			return humanize.IBytes(uint64(size))
		}
	case "container-fps":
		var fps float64
		if json.Unmarshal(raw, &fps) == nil {
			return humanize.FtoaWithDigits(fps, 3)
		}
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func formatSeconds(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}
