package engine

import (
	"time"

	"mpvkit/internal/config"
)

const (
	defaultConnectDelay   = 250 * time.Millisecond
	defaultConnectRetries = 20
	defaultRetryDelay     = 250 * time.Millisecond
	defaultRequestTimeout = 10 * time.Second
	defaultReadyGrace     = 2 * time.Second
	defaultKillGrace      = 2 * time.Second
	defaultHwdec          = "auto-safe"
	defaultEngineLogLevel = "warn"
)

// Options describes how an Instance launches and talks to its engine process.
type Options struct {
	// Name labels the instance in logs ("playback", "capture").
	Name string
	// Target is the opaque render-target handle passed as --wid.
	Target string
	// Headless launches without a window: muted, paused, no audio output.
	Headless bool

	Hwdec                string
	ScreenshotDir        string
	MpvPath              string
	YtdlPath             string
	CookiesPath          string
	YtdlUserAgent        string
	EnableYtdlRawOptions bool
	// AudioLanguages and SubtitleLanguages rank track languages for --alang
	// and --slang.
	AudioLanguages    []string
	SubtitleLanguages []string

	// BundledDir and ProjectDir are extra search roots for the mpv binary.
	BundledDir string
	ProjectDir string
	// SocketDir is where control endpoints are created; empty means os.TempDir.
	SocketDir string

	// ObserveDefaults subscribes DefaultObservedProperties once connected.
	ObserveDefaults bool
	// EngineLogLevel is passed to request_log_messages; "no" disables it.
	EngineLogLevel string
	ExtraArgs      []string

	ConnectDelay   time.Duration
	ConnectRetries int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
	ReadyGrace     time.Duration
	KillGrace      time.Duration
}

// DefaultOptions returns the options used for a windowed playback instance.
func DefaultOptions() Options {
	return Options{
		Name:            "playback",
		Hwdec:           defaultHwdec,
		ObserveDefaults: true,
		EngineLogLevel:  defaultEngineLogLevel,
		ConnectDelay:    defaultConnectDelay,
		ConnectRetries:  defaultConnectRetries,
		RetryDelay:      defaultRetryDelay,
		RequestTimeout:  defaultRequestTimeout,
		ReadyGrace:      defaultReadyGrace,
		KillGrace:       defaultKillGrace,
	}
}

// OptionsFromConfig translates the [engine] and [ipc] sections into Options.
func OptionsFromConfig(cfg *config.Config, name string) Options {
	opts := DefaultOptions()
	if name != "" {
		opts.Name = name
	}
	if cfg == nil {
		return opts
	}
	opts.Hwdec = cfg.Engine.Hwdec
	opts.ScreenshotDir = cfg.Engine.ScreenshotDir
	opts.MpvPath = cfg.Engine.MpvPath
	opts.YtdlPath = cfg.Engine.YtdlPath
	opts.CookiesPath = cfg.Engine.CookiesPath
	opts.YtdlUserAgent = cfg.Engine.YtdlUserAgent
	opts.EnableYtdlRawOptions = cfg.Engine.EnableYtdlRawOptions
	opts.BundledDir = cfg.Engine.BundledDir
	opts.ProjectDir = cfg.Engine.ProjectDir
	opts.SocketDir = cfg.Engine.SocketDir
	opts.AudioLanguages = append([]string(nil), cfg.Engine.AudioLanguages...)
	opts.SubtitleLanguages = append([]string(nil), cfg.Engine.SubtitleLanguages...)
	opts.ExtraArgs = append([]string(nil), cfg.Engine.ExtraArgs...)
	opts.ConnectDelay = cfg.ConnectDelay()
	opts.ConnectRetries = cfg.IPC.ConnectRetries
	opts.RetryDelay = cfg.RetryDelay()
	opts.RequestTimeout = cfg.RequestTimeout()
	opts.ReadyGrace = cfg.ReadyGrace()
	return opts
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "engine"
	}
	if o.Hwdec == "" {
		o.Hwdec = defaultHwdec
	}
	if o.EngineLogLevel == "" {
		o.EngineLogLevel = defaultEngineLogLevel
	}
	if o.ConnectDelay < 0 {
		o.ConnectDelay = 0
	}
	if o.ConnectRetries < 0 {
		o.ConnectRetries = 0
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = defaultRequestTimeout
	}
	if o.ReadyGrace < 0 {
		o.ReadyGrace = 0
	}
	if o.KillGrace <= 0 {
		o.KillGrace = defaultKillGrace
	}
	return o
}
