package config

import "time"

const (
	defaultConfigPath            = "~/.config/mpvkit/config.toml"
	defaultHwdec                 = "auto-safe"
	defaultCaptureHwdec          = "no"
	defaultScreenshotDir         = "~/Pictures/mpvkit"
	defaultLogDir                = "~/.local/share/mpvkit/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultConnectDelayMillis    = 250
	defaultConnectRetries        = 20
	defaultRetryDelayMillis      = 250
	defaultRequestTimeoutSeconds = 10
	defaultReadyGraceMillis      = 2000
	defaultCaptureMaxEntries     = 180
	defaultCaptureDebounceMillis = 120
	defaultCaptureMinDelta       = 0.25
	defaultCaptureSettleMillis   = 80
	defaultCaptureReadyTimeout   = 10
	defaultDoubleClickMillis     = 250
	defaultSeekStepSeconds       = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Engine: Engine{
			Hwdec:         defaultHwdec,
			ScreenshotDir: defaultScreenshotDir,
		},
		IPC: IPC{
			ConnectDelayMillis:    defaultConnectDelayMillis,
			ConnectRetries:        defaultConnectRetries,
			RetryDelayMillis:      defaultRetryDelayMillis,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			ReadyGraceMillis:      defaultReadyGraceMillis,
		},
		Capture: Capture{
			CacheDir:            defaultCacheDir(),
			MaxEntries:          defaultCaptureMaxEntries,
			DebounceMillis:      defaultCaptureDebounceMillis,
			MinDeltaSeconds:     defaultCaptureMinDelta,
			SettleMillis:        defaultCaptureSettleMillis,
			ReadyTimeoutSeconds: defaultCaptureReadyTimeout,
			Hwdec:               defaultCaptureHwdec,
		},
		Relay: Relay{
			DoubleClickMillis: defaultDoubleClickMillis,
			SeekStepSeconds:   defaultSeekStepSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
	}
}

// ConnectDelay is the wait between spawn and the first dial attempt.
func (c *Config) ConnectDelay() time.Duration {
	return millis(c.IPC.ConnectDelayMillis)
}

// RetryDelay is the wait between failed dial attempts.
func (c *Config) RetryDelay() time.Duration {
	return millis(c.IPC.RetryDelayMillis)
}

// RequestTimeout bounds a single command round-trip.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.IPC.RequestTimeoutSeconds) * time.Second
}

// ReadyGrace bounds how long a command waits for a not-yet-ready engine.
func (c *Config) ReadyGrace() time.Duration {
	return millis(c.IPC.ReadyGraceMillis)
}

// CaptureDebounce is the quiet period before a preview request is queued.
func (c *Config) CaptureDebounce() time.Duration {
	return millis(c.Capture.DebounceMillis)
}

// CaptureSettle is the pause between seeking and taking the screenshot.
func (c *Config) CaptureSettle() time.Duration {
	return millis(c.Capture.SettleMillis)
}

// CaptureReadyTimeout bounds engine startup for the capture instance.
func (c *Config) CaptureReadyTimeout() time.Duration {
	return time.Duration(c.Capture.ReadyTimeoutSeconds) * time.Second
}

// DoubleClickWindow is how long a click waits for a possible double-click.
func (c *Config) DoubleClickWindow() time.Duration {
	return millis(c.Relay.DoubleClickMillis)
}

func millis(value int) time.Duration {
	return time.Duration(value) * time.Millisecond
}
