package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"mpvkit/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCache := filepath.Join(tempHome, ".cache", "mpvkit", "previews")
	if cfg.Capture.CacheDir != wantCache {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Capture.CacheDir, wantCache)
	}
	if cfg.Engine.ScreenshotDir != filepath.Join(tempHome, "Pictures", "mpvkit") {
		t.Fatalf("unexpected screenshot dir: %q", cfg.Engine.ScreenshotDir)
	}
	if cfg.Engine.Hwdec != "auto-safe" {
		t.Fatalf("unexpected hwdec: %q", cfg.Engine.Hwdec)
	}
	if cfg.Capture.MaxEntries != 180 {
		t.Fatalf("expected 180 cache entries, got %d", cfg.Capture.MaxEntries)
	}
	if cfg.RequestTimeout() != 10*time.Second {
		t.Fatalf("unexpected request timeout: %s", cfg.RequestTimeout())
	}
	if cfg.CaptureDebounce() != 120*time.Millisecond {
		t.Fatalf("unexpected debounce: %s", cfg.CaptureDebounce())
	}
}

func TestLoadReadsTOMLOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[engine]
mpv_path = "mpv-nightly"
ytdl_path = "~/bin/yt-dlp"
hwdec = "vaapi"
audio_languages = ["japanese", "jpn", "EN"]
extra_args = ["--keep-open=yes", "  "]

[ipc]
connect_retries = 3

[capture]
max_entries = 12

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to be used, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Engine.MpvPath != "mpv-nightly" {
		t.Fatalf("expected bare binary name preserved, got %q", cfg.Engine.MpvPath)
	}
	if cfg.Engine.YtdlPath != filepath.Join(tempHome, "bin", "yt-dlp") {
		t.Fatalf("expected ytdl path expanded, got %q", cfg.Engine.YtdlPath)
	}
	if cfg.Engine.Hwdec != "vaapi" {
		t.Fatalf("unexpected hwdec: %q", cfg.Engine.Hwdec)
	}
	if got := strings.Join(cfg.Engine.AudioLanguages, ","); got != "ja,en" {
		t.Fatalf("expected normalized audio languages, got %q", got)
	}
	if len(cfg.Engine.ExtraArgs) != 1 || cfg.Engine.ExtraArgs[0] != "--keep-open=yes" {
		t.Fatalf("unexpected extra args: %v", cfg.Engine.ExtraArgs)
	}
	if cfg.IPC.ConnectRetries != 3 {
		t.Fatalf("unexpected connect retries: %d", cfg.IPC.ConnectRetries)
	}
	if cfg.IPC.RequestTimeoutSeconds != 10 {
		t.Fatalf("expected untouched default request timeout, got %d", cfg.IPC.RequestTimeoutSeconds)
	}
	if cfg.Capture.MaxEntries != 12 {
		t.Fatalf("unexpected max entries: %d", cfg.Capture.MaxEntries)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected lowercase logging settings, got %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
}

func TestLoadUsesMpvPathFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MPVKIT_MPV_PATH", "/opt/mpv/bin/mpv")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Engine.MpvPath != "/opt/mpv/bin/mpv" {
		t.Fatalf("expected env override, got %q", cfg.Engine.MpvPath)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"retries", func(c *config.Config) { c.IPC.ConnectRetries = 0 }, "ipc.connect_retries"},
		{"timeout", func(c *config.Config) { c.IPC.RequestTimeoutSeconds = 0 }, "ipc.request_timeout_seconds"},
		{"entries", func(c *config.Config) { c.Capture.MaxEntries = -1 }, "capture.max_entries"},
		{"seek", func(c *config.Config) { c.Relay.SeekStepSeconds = 0 }, "relay.seek_step_seconds"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	cfg := config.Default()
	if err := toml.Unmarshal([]byte(config.SampleConfig()), &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config does not validate: %v", err)
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error when config already exists")
	}
}
