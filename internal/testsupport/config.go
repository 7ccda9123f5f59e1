package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mpvkit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test
// and timings short enough for fake engines. It applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Engine.SocketDir = filepath.Join(base, "run")
	cfgVal.Engine.ScreenshotDir = filepath.Join(base, "screenshots")
	cfgVal.Capture.CacheDir = filepath.Join(base, "cache")
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.IPC.ConnectDelayMillis = 1
	cfgVal.IPC.RetryDelayMillis = 1
	cfgVal.IPC.ConnectRetries = 5
	cfgVal.IPC.RequestTimeoutSeconds = 2
	cfgVal.IPC.ReadyGraceMillis = 500
	cfgVal.Capture.DebounceMillis = 10
	cfgVal.Capture.SettleMillis = 1
	cfgVal.Capture.ReadyTimeoutSeconds = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := os.MkdirAll(builder.cfg.Engine.SocketDir, 0o755); err != nil {
		t.Fatalf("mkdir socket dir: %v", err)
	}
	return builder.cfg
}

// WithMaxEntries overrides the capture cache bound.
func WithMaxEntries(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.MaxEntries = n
	}
}

// WithDebounce overrides the capture debounce in milliseconds.
func WithDebounce(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.DebounceMillis = ms
	}
}

// WithDoubleClick overrides the relay double-click window in milliseconds.
func WithDoubleClick(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Relay.DoubleClickMillis = ms
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, mpv is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"mpv"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Engine.SocketDir)
}
