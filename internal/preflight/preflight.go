package preflight

import (
	"os"
	"strings"

	"mpvkit/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll checks every directory the engine and capture pipeline write into.
// Optional directories are skipped when unset.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	socketDir := strings.TrimSpace(cfg.Engine.SocketDir)
	if socketDir == "" {
		socketDir = os.TempDir()
	}
	results := []Result{
		CheckDirectoryAccess("Socket directory", socketDir),
		CheckDirectoryAccess("Preview cache", cfg.Capture.CacheDir),
	}
	if dir := strings.TrimSpace(cfg.Engine.ScreenshotDir); dir != "" {
		results = append(results, CheckDirectoryAccess("Screenshot directory", dir))
	}
	if dir := strings.TrimSpace(cfg.Logging.Dir); dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", dir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
