package engine

import (
	"strings"

	"mpvkit/internal/language"
)

// buildArgs assembles the mpv command line for one launch.
func buildArgs(opts Options, socketPath, inputConfPath string) []string {
	args := []string{
		"--idle=yes",
		"--osc=no",
		"--input-ipc-server=" + socketPath,
		"--hwdec=" + opts.Hwdec,
		"--input-default-bindings=no",
		"--input-conf=" + inputConfPath,
	}
	if dir := strings.TrimSpace(opts.ScreenshotDir); dir != "" {
		args = append(args, "--screenshot-directory="+dir)
	}
	if alang := language.TrackSelector(opts.AudioLanguages); alang != "" {
		args = append(args, "--alang="+alang)
	}
	if slang := language.TrackSelector(opts.SubtitleLanguages); slang != "" {
		args = append(args, "--slang="+slang)
	}
	args = append(args, ytdlArgs(opts)...)

	if opts.Headless {
		args = append(args, "--force-window=no", "--mute=yes", "--pause=yes", "--audio=no")
	} else if target := strings.TrimSpace(opts.Target); target != "" {
		args = append(args, "--wid="+target)
	}

	for _, extra := range opts.ExtraArgs {
		if extra = strings.TrimSpace(extra); extra != "" {
			args = append(args, extra)
		}
	}
	return args
}

func ytdlArgs(opts Options) []string {
	var args []string
	if path := strings.TrimSpace(opts.YtdlPath); path != "" {
		args = append(args, "--script-opts=ytdl_hook-ytdl_path="+path)
	}

	cookies := strings.TrimSpace(opts.CookiesPath)
	agent := strings.TrimSpace(opts.YtdlUserAgent)
	if opts.EnableYtdlRawOptions {
		var raw []string
		if cookies != "" {
			raw = append(raw, "cookies="+cookies)
		}
		if agent != "" {
			raw = append(raw, "user-agent="+agent)
		}
		if len(raw) > 0 {
			args = append(args, "--ytdl-raw-options="+strings.Join(raw, ","))
		}
		return args
	}

	if cookies != "" {
		args = append(args, "--cookies=yes", "--cookies-file="+cookies)
	}
	if agent != "" {
		args = append(args, "--user-agent="+agent)
	}
	return args
}
