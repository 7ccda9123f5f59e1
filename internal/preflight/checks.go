package preflight

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"mpvkit/internal/config"
	"mpvkit/internal/deps"
	"mpvkit/internal/engine"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckEngineDeps resolves the binaries the engine launches. mpv goes through
// the same search order Spawn uses; yt-dlp is optional and only needed for
// stream URLs.
func CheckEngineDeps(cfg *config.Config) []deps.Status {
	opts := engine.OptionsFromConfig(cfg, "preflight")
	ytdl := strings.TrimSpace(opts.YtdlPath)
	if ytdl == "" {
		ytdl = "yt-dlp"
	}
	requirements := []deps.Requirement{
		{
			Name:        "mpv",
			Command:     opts.MpvPath,
			Description: "Required for playback and preview capture",
			Resolve: func(string) (string, error) {
				return engine.ResolveBinary(opts)
			},
		},
		{
			Name:        "yt-dlp",
			Command:     ytdl,
			Description: "Resolves stream URLs for the ytdl hook",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}
