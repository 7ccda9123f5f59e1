package relay_test

import (
	"context"
	"testing"
	"time"

	"mpvkit/internal/engine"
	"mpvkit/internal/ipc"
	"mpvkit/internal/logging"
	"mpvkit/internal/relay"
	"mpvkit/internal/testsupport"
)

const waitTimeout = 3 * time.Second

type recorder chan relay.Action

func (r recorder) handle(a relay.Action) { r <- a }

func (r recorder) next(t *testing.T) relay.Action {
	t.Helper()
	select {
	case a := <-r:
		return a
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for action")
		return relay.Action{}
	}
}

func (r recorder) none(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case a := <-r:
		t.Fatalf("unexpected action: %+v", a)
	case <-time.After(within):
	}
}

func message(args ...string) engine.ClientMessage {
	return engine.ClientMessage{Args: args}
}

func TestVerbsMapToActions(t *testing.T) {
	got := make(recorder, 8)
	r := relay.New(got.handle, relay.Options{}, logging.NewNop())
	t.Cleanup(r.Close)

	tests := []struct {
		verb string
		want relay.ActionKind
	}{
		{engine.RelayToggleFullscreen, relay.ToggleFullscreen},
		{engine.RelayExitFullscreen, relay.ExitFullscreen},
		{engine.RelayTogglePlay, relay.TogglePlay},
		{engine.RelayToggleMute, relay.ToggleMute},
		{engine.RelayDoubleClick, relay.DoubleClick},
	}
	for _, tt := range tests {
		r.OnEvent(message(engine.RelayTarget, tt.verb))
		if a := got.next(t); a.Kind != tt.want {
			t.Fatalf("verb %q: got %q, want %q", tt.verb, a.Kind, tt.want)
		}
	}
}

func TestForeignMessagesIgnored(t *testing.T) {
	got := make(recorder, 4)
	r := relay.New(got.handle, relay.Options{}, logging.NewNop())
	t.Cleanup(r.Close)

	r.OnEvent(message("uosc", engine.RelayTogglePlay))
	r.OnEvent(message(engine.RelayTarget))
	r.OnEvent(message(engine.RelayTarget, "self-destruct"))
	r.OnEvent(engine.FileLoaded{})
	r.OnPropertyChange("pause", []byte("true"))

	got.none(t, 30*time.Millisecond)
}

func TestSeekOffsets(t *testing.T) {
	got := make(recorder, 4)
	r := relay.New(got.handle, relay.Options{SeekStep: 10}, logging.NewNop())
	t.Cleanup(r.Close)

	r.OnEvent(message(engine.RelayTarget, engine.RelaySeek, "-5"))
	if a := got.next(t); a.Kind != relay.Seek || a.Seconds != -5 {
		t.Fatalf("unexpected seek action: %+v", a)
	}

	r.OnEvent(message(engine.RelayTarget, engine.RelaySeek))
	if a := got.next(t); a.Seconds != 10 {
		t.Fatalf("expected configured step for bare seek, got %+v", a)
	}

	r.OnEvent(message(engine.RelayTarget, engine.RelaySeek, "forward"))
	got.none(t, 30*time.Millisecond)
}

func TestClickHeldForDoubleClickWindow(t *testing.T) {
	got := make(recorder, 4)
	window := 40 * time.Millisecond
	r := relay.New(got.handle, relay.Options{DoubleClickWindow: window}, logging.NewNop())
	t.Cleanup(r.Close)

	start := time.Now()
	r.OnEvent(message(engine.RelayTarget, engine.RelayClick))
	if a := got.next(t); a.Kind != relay.Click {
		t.Fatalf("expected click, got %+v", a)
	}
	if elapsed := time.Since(start); elapsed < window {
		t.Fatalf("click delivered after %v, before the %v window", elapsed, window)
	}
}

func TestDoubleClickCancelsPendingClick(t *testing.T) {
	got := make(recorder, 4)
	r := relay.New(got.handle, relay.Options{DoubleClickWindow: 50 * time.Millisecond}, logging.NewNop())
	t.Cleanup(r.Close)

	// mpv reports both presses before the double-click
	r.OnEvent(message(engine.RelayTarget, engine.RelayClick))
	r.OnEvent(message(engine.RelayTarget, engine.RelayClick))
	r.OnEvent(message(engine.RelayTarget, engine.RelayDoubleClick))

	if a := got.next(t); a.Kind != relay.DoubleClick {
		t.Fatalf("expected double-click, got %+v", a)
	}
	got.none(t, 120*time.Millisecond)
}

func TestCloseDropsHeldClick(t *testing.T) {
	got := make(recorder, 2)
	r := relay.New(got.handle, relay.Options{DoubleClickWindow: 20 * time.Millisecond}, logging.NewNop())

	r.OnEvent(message(engine.RelayTarget, engine.RelayClick))
	r.Close()
	r.OnEvent(message(engine.RelayTarget, engine.RelayTogglePlay))

	got.none(t, 80*time.Millisecond)
}

func TestBindDrivesEngine(t *testing.T) {
	fake := testsupport.NewFakeEngine(t)
	cfg := testsupport.NewConfig(t, testsupport.WithDoubleClick(20))
	opts := engine.OptionsFromConfig(cfg, "playback")
	opts.ObserveDefaults = false
	opts.EngineLogLevel = "no"
	inst := engine.New(opts, logging.NewNop(), fake.Options()...)
	t.Cleanup(inst.Destroy)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	if err := inst.Spawn(ctx); err != nil {
		t.Fatalf("Spawn returned error: %v", err)
	}
	if err := inst.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady returned error: %v", err)
	}

	unbind := relay.Bind(inst, nil, relay.OptionsFromConfig(cfg), logging.NewNop())
	t.Cleanup(unbind)

	emit := func(args ...string) {
		fake.Emit(ipc.Frame{Event: string(engine.KindClientMessage), Args: args})
	}

	emit(engine.RelayTarget, engine.RelayTogglePlay)
	if cmds := fake.WaitForCommands("cycle", 1, waitTimeout); cmds[0].String(0) != "pause" {
		t.Fatalf("expected cycle pause, got %q", cmds[0].String(0))
	}

	emit(engine.RelayTarget, engine.RelayToggleMute)
	if cmds := fake.WaitForCommands("cycle", 2, waitTimeout); cmds[1].String(0) != "mute" {
		t.Fatalf("expected cycle mute, got %q", cmds[1].String(0))
	}

	emit(engine.RelayTarget, engine.RelaySeek, "-5")
	seek := fake.WaitForCommands("seek", 1, waitTimeout)[0]
	if seek.Float(0) != -5 || seek.String(1) != engine.SeekRelative {
		t.Fatalf("expected relative seek -5, got %v %q", seek.Float(0), seek.String(1))
	}

	emit(engine.RelayTarget, engine.RelayDoubleClick)
	if cmds := fake.WaitForCommands("cycle", 3, waitTimeout); cmds[2].String(0) != "fullscreen" {
		t.Fatalf("expected cycle fullscreen, got %q", cmds[2].String(0))
	}

	unbind()
	emit(engine.RelayTarget, engine.RelayToggleMute)
	time.Sleep(50 * time.Millisecond)
	if n := len(fake.CommandsNamed("cycle")); n != 3 {
		t.Fatalf("expected no commands after unbind, got %d cycles", n)
	}
}
