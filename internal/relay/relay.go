package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"mpvkit/internal/config"
	"mpvkit/internal/engine"
	"mpvkit/internal/logging"
)

const (
	defaultDoubleClickWindow = 250 * time.Millisecond
	defaultSeekStep          = 5.0
	defaultCommandTimeout    = 5 * time.Second
)

// ActionKind names a host-level action derived from native input.
type ActionKind string

const (
	ToggleFullscreen ActionKind = "toggle-fullscreen"
	ExitFullscreen   ActionKind = "exit-fullscreen"
	TogglePlay       ActionKind = "toggle-play"
	Seek             ActionKind = "seek"
	ToggleMute       ActionKind = "toggle-mute"
	Click            ActionKind = "click"
	DoubleClick      ActionKind = "double-click"
)

// Action is one relayed input. Seconds is set for Seek only.
type Action struct {
	Kind    ActionKind
	Seconds float64
}

var verbs = map[string]ActionKind{
	engine.RelayToggleFullscreen: ToggleFullscreen,
	engine.RelayExitFullscreen:   ExitFullscreen,
	engine.RelayTogglePlay:       TogglePlay,
	engine.RelaySeek:             Seek,
	engine.RelayToggleMute:       ToggleMute,
	engine.RelayClick:            Click,
	engine.RelayDoubleClick:      DoubleClick,
}

// Handler receives actions. It runs on the engine dispatch goroutine, or on
// the click timer for single clicks.
type Handler func(Action)

// Options tunes click disambiguation and seek fallback.
type Options struct {
	DoubleClickWindow time.Duration
	// SeekStep is used when a seek message carries no offset.
	SeekStep float64
}

// OptionsFromConfig reads the [relay] section.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		DoubleClickWindow: cfg.DoubleClickWindow(),
		SeekStep:          cfg.Relay.SeekStepSeconds,
	}
}

func (o Options) withDefaults() Options {
	if o.DoubleClickWindow <= 0 {
		o.DoubleClickWindow = defaultDoubleClickWindow
	}
	if o.SeekStep <= 0 {
		o.SeekStep = defaultSeekStep
	}
	return o
}

// Relay turns client-message events addressed to mpvkit into Actions. A
// single click is held for the double-click window and dropped if a
// double-click arrives first.
type Relay struct {
	opts    Options
	handle  Handler
	logger  *slog.Logger
	mu      sync.Mutex
	click   *time.Timer
	clickID uint64
	closed  bool
}

// New returns a Relay that forwards actions to handle.
func New(handle Handler, opts Options, logger *slog.Logger) *Relay {
	return &Relay{
		opts:   opts.withDefaults(),
		handle: handle,
		logger: logging.NewComponentLogger(logger, "relay"),
	}
}

// OnEvent implements engine.Listener.
func (r *Relay) OnEvent(ev engine.Event) {
	msg, ok := ev.(engine.ClientMessage)
	if !ok || len(msg.Args) < 2 || msg.Args[0] != engine.RelayTarget {
		return
	}
	kind, ok := verbs[msg.Args[1]]
	if !ok {
		r.logger.Debug("ignoring unknown relay verb", logging.Strings("args", msg.Args))
		return
	}

	action := Action{Kind: kind}
	switch kind {
	case Seek:
		seconds, err := r.seekOffset(msg.Args[2:])
		if err != nil {
			r.logger.Debug("ignoring malformed seek", logging.Strings("args", msg.Args), logging.Error(err))
			return
		}
		action.Seconds = seconds
	case Click:
		r.holdClick()
		return
	case DoubleClick:
		r.cancelClick()
	}
	r.emit(action)
}

// OnPropertyChange implements engine.Listener; the relay has no use for
// property updates.
func (r *Relay) OnPropertyChange(string, json.RawMessage) {}

func (r *Relay) seekOffset(args []string) (float64, error) {
	if len(args) == 0 {
		return r.opts.SeekStep, nil
	}
	return strconv.ParseFloat(args[0], 64)
}

func (r *Relay) holdClick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.click != nil {
		r.click.Stop()
	}
	r.clickID++
	id := r.clickID
	r.click = time.AfterFunc(r.opts.DoubleClickWindow, func() {
		r.mu.Lock()
		current := !r.closed && id == r.clickID
		if current {
			r.click = nil
		}
		r.mu.Unlock()
		if current {
			r.emit(Action{Kind: Click})
		}
	})
}

func (r *Relay) cancelClick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clickID++
	if r.click != nil {
		r.click.Stop()
		r.click = nil
	}
}

func (r *Relay) emit(action Action) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed || r.handle == nil {
		return
	}
	r.logger.Debug("relay action", logging.String("action", string(action.Kind)), logging.Float64("seconds", action.Seconds))
	r.handle(action)
}

// Close drops any held click. Later events are ignored.
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.clickID++
	if r.click != nil {
		r.click.Stop()
		r.click = nil
	}
}

// Bind subscribes a Relay to inst and returns a function that detaches it.
// When host is nil the actions drive inst directly through EngineHandler.
func Bind(inst *engine.Instance, host Handler, opts Options, logger *slog.Logger) func() {
	if host == nil {
		host = EngineHandler(inst, logger)
	}
	r := New(host, opts, logger)
	unsubscribe := inst.Subscribe(r)
	return func() {
		unsubscribe()
		r.Close()
	}
}

// EngineHandler maps actions onto engine commands for hosts without a window
// layer of their own. A click toggles pause and a double-click toggles
// fullscreen.
func EngineHandler(inst *engine.Instance, logger *slog.Logger) Handler {
	logger = logging.NewComponentLogger(logger, "relay")
	timeout := inst.Options().RequestTimeout
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return func(action Action) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var err error
		switch action.Kind {
		case TogglePlay, Click:
			err = inst.TogglePause(ctx)
		case ToggleMute:
			err = inst.Cycle(ctx, "mute")
		case Seek:
			err = inst.Seek(ctx, action.Seconds, engine.SeekRelative)
		case ToggleFullscreen, DoubleClick:
			err = inst.Cycle(ctx, "fullscreen")
		case ExitFullscreen:
			err = inst.SetProperty(ctx, "fullscreen", false)
		}
		if err != nil {
			logging.WarnWithContext(logger, "relayed input failed", "relay_command_failed",
				logging.String("action", string(action.Kind)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "input had no effect on playback"),
			)
		}
	}
}
