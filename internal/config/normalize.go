package config

import (
	"fmt"
	"os"
	"strings"

	"mpvkit/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizeEngine(); err != nil {
		return err
	}
	if err := c.normalizeCapture(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizeEngine() error {
	if strings.TrimSpace(c.Engine.MpvPath) == "" {
		if value, ok := os.LookupEnv("MPVKIT_MPV_PATH"); ok {
			c.Engine.MpvPath = value
		}
	}
	if strings.TrimSpace(c.Engine.YtdlPath) == "" {
		if value, ok := os.LookupEnv("MPVKIT_YTDL_PATH"); ok {
			c.Engine.YtdlPath = value
		}
	}

	var err error
	fields := []struct {
		name  string
		value *string
	}{
		{"engine.mpv_path", &c.Engine.MpvPath},
		{"engine.ytdl_path", &c.Engine.YtdlPath},
		{"engine.bundled_dir", &c.Engine.BundledDir},
		{"engine.project_dir", &c.Engine.ProjectDir},
		{"engine.socket_dir", &c.Engine.SocketDir},
		{"engine.screenshot_dir", &c.Engine.ScreenshotDir},
		{"engine.cookies_path", &c.Engine.CookiesPath},
	}
	for _, field := range fields {
		trimmed := strings.TrimSpace(*field.value)
		if trimmed == "" {
			*field.value = ""
			continue
		}
		// Bare binary names stay as-is so PATH lookup still applies.
		if (field.name == "engine.mpv_path" || field.name == "engine.ytdl_path") && !strings.ContainsAny(trimmed, `/\~`) {
			*field.value = trimmed
			continue
		}
		if *field.value, err = expandPath(trimmed); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}

	c.Engine.Hwdec = strings.TrimSpace(c.Engine.Hwdec)
	if c.Engine.Hwdec == "" {
		c.Engine.Hwdec = defaultHwdec
	}
	c.Engine.YtdlUserAgent = strings.TrimSpace(c.Engine.YtdlUserAgent)
	c.Engine.AudioLanguages = language.NormalizeList(c.Engine.AudioLanguages)
	c.Engine.SubtitleLanguages = language.NormalizeList(c.Engine.SubtitleLanguages)

	args := c.Engine.ExtraArgs[:0]
	for _, arg := range c.Engine.ExtraArgs {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	c.Engine.ExtraArgs = args
	return nil
}

func (c *Config) normalizeCapture() error {
	if strings.TrimSpace(c.Capture.CacheDir) == "" {
		c.Capture.CacheDir = defaultCacheDir()
	}
	var err error
	if c.Capture.CacheDir, err = expandPath(strings.TrimSpace(c.Capture.CacheDir)); err != nil {
		return fmt.Errorf("capture.cache_dir: %w", err)
	}
	c.Capture.Hwdec = strings.TrimSpace(c.Capture.Hwdec)
	if c.Capture.Hwdec == "" {
		c.Capture.Hwdec = defaultCaptureHwdec
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
