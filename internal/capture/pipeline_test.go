package capture_test

import (
	"encoding/base64"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"mpvkit/internal/capture"
	"mpvkit/internal/config"
	"mpvkit/internal/engine"
	"mpvkit/internal/logging"
	"mpvkit/internal/testsupport"
)

const waitTimeout = 3 * time.Second

func newPipeline(t *testing.T, fake *testsupport.FakeEngine, cfg *config.Config) *capture.Pipeline {
	t.Helper()
	p, err := capture.New(capture.OptionsFromConfig(cfg), logging.NewNop(), fake.Options()...)
	if err != nil {
		t.Fatalf("capture.New returned error: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

type deliveries chan capture.Preview

func (d deliveries) deliver(p capture.Preview) { d <- p }

func (d deliveries) next(t *testing.T) capture.Preview {
	t.Helper()
	select {
	case p := <-d:
		return p
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for preview")
		return capture.Preview{}
	}
}

func (d deliveries) none(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case p := <-d:
		t.Fatalf("unexpected preview delivered: %+v", p)
	case <-time.After(within):
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func seekTimes(fake *testsupport.FakeEngine) []float64 {
	var out []float64
	for _, cmd := range fake.CommandsNamed("seek") {
		out = append(out, cmd.Float(0))
	}
	return out
}

func holdFirstSeek(fake *testsupport.FakeEngine) {
	var seeks atomic.Int32
	fake.Handle(func(cmd testsupport.FakeCommand) (testsupport.FakeReply, bool) {
		if cmd.Name == "seek" && seeks.Add(1) == 1 {
			return testsupport.FakeReply{Hold: true}, true
		}
		return testsupport.FakeReply{}, false
	})
}

func TestBurstOfRequestsCapturesOnlyTheLast(t *testing.T) {
	fake := testsupport.NewFakeEngine(t)
	cfg := testsupport.NewConfig(t, testsupport.WithDebounce(40))
	p := newPipeline(t, fake, cfg)
	got := make(deliveries, 8)

	for _, ts := range []float64{10, 11, 12, 13, 14} {
		p.GeneratePreview("/media/a.mkv", ts, got.deliver)
	}

	preview := got.next(t)
	if preview.Time != 14 {
		t.Fatalf("expected capture at 14, got %v", preview.Time)
	}
	got.none(t, 100*time.Millisecond)
	if seeks := seekTimes(fake); len(seeks) != 1 || seeks[0] != 14 {
		t.Fatalf("expected a single seek to 14, got %v", seeks)
	}
	if cmds := fake.CommandsNamed("seek"); cmds[0].String(1) != "absolute+exact" {
		t.Fatalf("expected exact absolute seek, got %q", cmds[0].String(1))
	}
}

func TestSmallMovesAreDropped(t *testing.T) {
	fake := testsupport.NewFakeEngine(t)
	p := newPipeline(t, fake, testsupport.NewConfig(t))
	got := make(deliveries, 4)

	p.GeneratePreview("/media/a.mkv", 20, got.deliver)
	got.next(t)

	p.GeneratePreview("/media/a.mkv", 20.1, got.deliver)
	got.none(t, 80*time.Millisecond)

	p.GeneratePreview("/media/a.mkv", 21.3, got.deliver)
	if preview := got.next(t); preview.Time != 21.5 {
		t.Fatalf("expected rounded time 21.5, got %v", preview.Time)
	}
}

func TestDefaultOptionsDebounceAndDropSmallMoves(t *testing.T) {
	opts := capture.DefaultOptions()
	if opts.Debounce != 120*time.Millisecond || opts.MinDelta != 0.25 || opts.MaxEntries != 180 {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
	if want := engine.DefaultOptions().ConnectRetries; opts.Engine.ConnectRetries != want {
		t.Fatalf("expected engine connect retries %d, got %d", want, opts.Engine.ConnectRetries)
	}
	if got := capture.OptionsFromConfig(nil); got.Debounce != opts.Debounce || got.MinDelta != opts.MinDelta {
		t.Fatalf("expected nil config to yield defaults, got %+v", got)
	}

	fake := testsupport.NewFakeEngine(t)
	opts.CacheDir = t.TempDir()
	p, err := capture.New(opts, logging.NewNop(), fake.Options()...)
	if err != nil {
		t.Fatalf("capture.New returned error: %v", err)
	}
	t.Cleanup(p.Close)
	got := make(deliveries, 4)

	p.GeneratePreview("/media/a.mkv", 30, got.deliver)
	p.GeneratePreview("/media/a.mkv", 30.1, got.deliver)
	p.GeneratePreview("/media/a.mkv", 40, got.deliver)
	if preview := got.next(t); preview.Time != 40 {
		t.Fatalf("expected burst to collapse to 40, got %v", preview.Time)
	}
	p.GeneratePreview("/media/a.mkv", 40.2, got.deliver)
	got.none(t, 250*time.Millisecond)
	if seeks := seekTimes(fake); len(seeks) != 1 {
		t.Fatalf("expected a single capture, got seeks %v", seeks)
	}
}

func TestPreviewIsJPEGDataURL(t *testing.T) {
	fake := testsupport.NewFakeEngine(t)
	p := newPipeline(t, fake, testsupport.NewConfig(t))
	got := make(deliveries, 1)

	p.GeneratePreview("/media/a.mkv", 5, got.deliver)
	preview := got.next(t)

	encoded, ok := strings.CutPrefix(preview.DataURL, "data:image/jpeg;base64,")
	if !ok {
		t.Fatalf("unexpected data URL prefix: %.40s", preview.DataURL)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode data URL: %v", err)
	}
	if len(raw) < 2 || raw[0] != 0xff || raw[1] != 0xd8 {
		t.Fatalf("expected JPEG bytes, got % x", raw)
	}
	if preview.MediaPath != "/media/a.mkv" || !strings.HasSuffix(preview.Path, ".jpg") {
		t.Fatalf("unexpected preview metadata: %+v", preview)
	}

	stats, err := p.Stats()
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.MemoryEntries != 1 || stats.DiskFiles != 1 || stats.DiskBytes != int64(len(raw)) || stats.MaxEntries != 180 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestCancelPendingDiscardsInFlightResult(t *testing.T) {
	fake := testsupport.NewFakeEngine(t)
	holdFirstSeek(fake)
	p := newPipeline(t, fake, testsupport.NewConfig(t))
	got := make(deliveries, 4)

	p.GeneratePreview("/media/a.mkv", 30, got.deliver)
	waitFor(t, "held seek", func() bool { return len(fake.HeldIDs()) == 1 })

	p.CancelPending()
	fake.ReleaseHeld(fake.HeldIDs()...)
	waitFor(t, "screenshot", func() bool { return fake.Screenshots() == 1 })
	got.none(t, 80*time.Millisecond)

	// the finished frame is cached, so asking again needs no new screenshot
	p.GeneratePreview("/media/a.mkv", 30, got.deliver)
	if preview := got.next(t); preview.Time != 30 {
		t.Fatalf("expected cached capture at 30, got %v", preview.Time)
	}
	if n := fake.Screenshots(); n != 1 {
		t.Fatalf("expected cache hit, got %d screenshots", n)
	}
}

func TestNewerRequestOverwritesQueuedTask(t *testing.T) {
	fake := testsupport.NewFakeEngine(t)
	holdFirstSeek(fake)
	cfg := testsupport.NewConfig(t, testsupport.WithDebounce(10))
	p := newPipeline(t, fake, cfg)
	got := make(deliveries, 4)

	p.GeneratePreview("/media/a.mkv", 40, got.deliver)
	waitFor(t, "held seek", func() bool { return len(fake.HeldIDs()) == 1 })

	p.GeneratePreview("/media/a.mkv", 50, got.deliver)
	time.Sleep(60 * time.Millisecond)
	p.GeneratePreview("/media/a.mkv", 60, got.deliver)
	time.Sleep(60 * time.Millisecond)

	fake.ReleaseHeld(fake.HeldIDs()...)

	if preview := got.next(t); preview.Time != 60 {
		t.Fatalf("expected only the newest request to be delivered, got %v", preview.Time)
	}
	got.none(t, 80*time.Millisecond)
	if seeks := seekTimes(fake); len(seeks) != 2 || seeks[0] != 40 || seeks[1] != 60 {
		t.Fatalf("expected seeks [40 60], got %v", seeks)
	}
}

func TestFailedCaptureIsNotDelivered(t *testing.T) {
	fake := testsupport.NewFakeEngine(t)
	fake.Handle(func(cmd testsupport.FakeCommand) (testsupport.FakeReply, bool) {
		return testsupport.FakeReply{Error: "error running command"}, cmd.Name == "screenshot-to-file"
	})
	p := newPipeline(t, fake, testsupport.NewConfig(t))
	got := make(deliveries, 2)

	p.GeneratePreview("/media/a.mkv", 12, got.deliver)
	waitFor(t, "screenshot attempt", func() bool { return len(fake.CommandsNamed("screenshot-to-file")) == 1 })
	got.none(t, 80*time.Millisecond)

	fake.Handle(nil)
	p.GeneratePreview("/media/a.mkv", 13, got.deliver)
	if preview := got.next(t); preview.Time != 13 {
		t.Fatalf("expected pipeline to recover, got %v", preview.Time)
	}
}

func TestMediaLoadedOncePerPath(t *testing.T) {
	fake := testsupport.NewFakeEngine(t)
	p := newPipeline(t, fake, testsupport.NewConfig(t))
	got := make(deliveries, 4)

	p.GeneratePreview("/media/a.mkv", 1, got.deliver)
	got.next(t)
	p.GeneratePreview("/media/a.mkv", 2, got.deliver)
	got.next(t)
	p.GeneratePreview("/media/b.mkv", 2, got.deliver)
	got.next(t)

	loads := fake.CommandsNamed("loadfile")
	if len(loads) != 2 || loads[0].String(0) != "/media/a.mkv" || loads[1].String(0) != "/media/b.mkv" {
		t.Fatalf("unexpected loads: %+v", loads)
	}
	if n := len(fake.Launches()); n != 1 {
		t.Fatalf("expected a single capture engine, got %d launches", n)
	}
	args := fake.Launches()[0]
	if !strings.Contains(strings.Join(args, " "), "--pause=yes") || !strings.Contains(strings.Join(args, " "), "--hwdec=no") {
		t.Fatalf("expected headless capture engine with capture hwdec, got %v", args)
	}
}

func TestDiskFrameReusedAcrossPipelines(t *testing.T) {
	fake := testsupport.NewFakeEngine(t)
	cfg := testsupport.NewConfig(t)
	first := newPipeline(t, fake, cfg)
	got := make(deliveries, 2)

	first.GeneratePreview("/media/a.mkv", 70, got.deliver)
	original := got.next(t)
	first.Close()

	second := newPipeline(t, fake, cfg)
	second.GeneratePreview("/media/a.mkv", 70, got.deliver)
	reused := got.next(t)

	if reused.Path != original.Path || reused.DataURL != original.DataURL {
		t.Fatalf("expected identical frame, got %+v vs %+v", reused, original)
	}
	if n := fake.Screenshots(); n != 1 {
		t.Fatalf("expected existing frame on disk to be reused, got %d screenshots", n)
	}
}

func TestCloseStopsEngineAndGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := testsupport.NewFakeEngine(t)
	cfg := testsupport.NewConfig(t)
	p, err := capture.New(capture.OptionsFromConfig(cfg), logging.NewNop(), fake.Options()...)
	if err != nil {
		t.Fatalf("capture.New returned error: %v", err)
	}
	got := make(deliveries, 1)
	p.GeneratePreview("/media/a.mkv", 3, got.deliver)
	got.next(t)

	p.GeneratePreview("/media/a.mkv", 9, got.deliver)
	p.Close()
	p.GeneratePreview("/media/a.mkv", 15, got.deliver)

	if proc := fake.Process(); proc == nil || proc.Terminated() == 0 && len(fake.CommandsNamed("quit")) == 0 {
		t.Fatal("expected capture engine to be shut down")
	}
	got.none(t, 50*time.Millisecond)
}
