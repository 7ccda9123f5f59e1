package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"mpvkit/internal/config"
	"mpvkit/internal/engine"
	"mpvkit/internal/logging"
)

const (
	defaultMaxEntries   = 180
	defaultDebounce     = 120 * time.Millisecond
	defaultMinDelta     = 0.25
	defaultSettle       = 80 * time.Millisecond
	defaultReadyTimeout = 10 * time.Second
	lockRetryDelay      = 20 * time.Millisecond
	dataURLPrefix       = "data:image/jpeg;base64,"
)

// Options configures a capture Pipeline. Start from DefaultOptions or
// OptionsFromConfig; in a hand-built value a zero Debounce, MinDelta or
// Settle disables that step, and only negative values fall back to defaults.
type Options struct {
	CacheDir string
	// MaxEntries bounds the in-memory cache; zero or less means 180.
	MaxEntries int
	// Debounce delays a request so a burst collapses to its last time.
	Debounce time.Duration
	// MinDelta drops requests closer than this many seconds to the last one.
	MinDelta float64
	// Settle is the pause between the seek and the screenshot.
	Settle       time.Duration
	ReadyTimeout time.Duration
	// Engine configures the dedicated capture instance. Headless mode is forced.
	Engine engine.Options
}

// DefaultOptions returns the pipeline defaults: a 120 ms debounce, a 0.25 s
// minimum move, and a 180-entry cache, over default capture engine options.
func DefaultOptions() Options {
	return Options{
		MaxEntries:   defaultMaxEntries,
		Debounce:     defaultDebounce,
		MinDelta:     defaultMinDelta,
		Settle:       defaultSettle,
		ReadyTimeout: defaultReadyTimeout,
		Engine:       engine.OptionsFromConfig(nil, "capture"),
	}
}

// OptionsFromConfig translates the [capture] section plus the shared engine
// settings into pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return DefaultOptions()
	}
	engineOpts := engine.OptionsFromConfig(cfg, "capture")
	if hwdec := strings.TrimSpace(cfg.Capture.Hwdec); hwdec != "" {
		engineOpts.Hwdec = hwdec
	}
	return Options{
		CacheDir:     cfg.Capture.CacheDir,
		MaxEntries:   cfg.Capture.MaxEntries,
		Debounce:     cfg.CaptureDebounce(),
		MinDelta:     cfg.Capture.MinDeltaSeconds,
		Settle:       cfg.CaptureSettle(),
		ReadyTimeout: cfg.CaptureReadyTimeout(),
		Engine:       engineOpts,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxEntries <= 0 {
		o.MaxEntries = defaultMaxEntries
	}
	if o.Debounce < 0 {
		o.Debounce = defaultDebounce
	}
	if o.MinDelta < 0 {
		o.MinDelta = defaultMinDelta
	}
	if o.Settle < 0 {
		o.Settle = defaultSettle
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = defaultReadyTimeout
	}
	o.Engine.Name = "capture"
	o.Engine.Headless = true
	o.Engine.Target = ""
	o.Engine.ObserveDefaults = false
	return o
}

// Preview is a delivered capture.
type Preview struct {
	MediaPath string
	// Time is the rounded timestamp the frame was taken at.
	Time    float64
	Path    string
	DataURL string
}

type request struct {
	mediaPath string
	time      float64
	deliver   func(Preview)
}

type task struct {
	request
	token uint64
}

// Stats summarizes cache occupancy.
type Stats struct {
	MemoryEntries int
	MaxEntries    int
	DiskFiles     int
	DiskBytes     int64
}

// Pipeline turns scrub positions into preview frames using its own headless
// engine. Requests are debounced, at most one capture runs at a time, and a
// single mailbox slot holds the next task; a newer task overwrites it.
type Pipeline struct {
	opts        Options
	logger      *slog.Logger
	newInstance func() *engine.Instance
	cache       *memoryCache
	lock        *flock.Flock
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	mu            sync.Mutex
	lastRequested float64
	lastPath      string
	token         uint64
	debounceGen   uint64
	timer         *time.Timer
	debounced     *request
	inFlight      bool
	mailbox       *task
	closed        bool
	inst          *engine.Instance
}

// New builds an idle pipeline. engineOpts are passed to the capture engine
// instance when it is first needed.
func New(opts Options, logger *slog.Logger, engineOpts ...engine.Option) (*Pipeline, error) {
	opts = opts.withDefaults()
	if strings.TrimSpace(opts.CacheDir) == "" {
		return nil, errors.New("capture: cache directory is required")
	}
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("capture: create cache dir: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		opts:          opts,
		logger:        logging.NewComponentLogger(logger, "capture"),
		cache:         newMemoryCache(opts.MaxEntries),
		lock:          flock.New(filepath.Join(opts.CacheDir, lockFileName)),
		ctx:           ctx,
		cancel:        cancel,
		lastRequested: math.NaN(),
	}
	p.newInstance = func() *engine.Instance {
		return engine.New(opts.Engine, logger, engineOpts...)
	}
	return p, nil
}

// GeneratePreview asks for a frame of mediaPath at seconds. Requests within
// MinDelta of the previous one for the same media are dropped; otherwise the
// debounce timer is re-armed. deliver runs on a pipeline goroutine and only
// for results that are still current.
func (p *Pipeline) GeneratePreview(mediaPath string, seconds float64, deliver func(Preview)) {
	if deliver == nil || strings.TrimSpace(mediaPath) == "" || math.IsNaN(seconds) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if mediaPath == p.lastPath && !math.IsNaN(p.lastRequested) && math.Abs(seconds-p.lastRequested) < p.opts.MinDelta {
		return
	}
	p.lastRequested = seconds
	p.lastPath = mediaPath
	p.debounced = &request{mediaPath: mediaPath, time: seconds, deliver: deliver}

	if p.timer != nil {
		p.timer.Stop()
	}
	p.debounceGen++
	gen := p.debounceGen
	p.timer = time.AfterFunc(p.opts.Debounce, func() { p.fire(gen) })
}

// CancelPending invalidates every outstanding request. A capture already in
// flight finishes but its result is discarded.
func (p *Pipeline) CancelPending() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidateLocked()
}

func (p *Pipeline) invalidateLocked() {
	p.token++
	p.debounceGen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.debounced = nil
	p.mailbox = nil
	p.lastRequested = math.NaN()
	p.lastPath = ""
}

func (p *Pipeline) fire(gen uint64) {
	p.mu.Lock()
	if p.closed || gen != p.debounceGen || p.debounced == nil {
		p.mu.Unlock()
		return
	}
	req := *p.debounced
	p.debounced = nil
	p.timer = nil
	p.token++
	next := &task{request: req, token: p.token}
	if p.inFlight {
		p.mailbox = next
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	p.wg.Add(1)
	p.mu.Unlock()

	go p.work(next)
}

// work drains the mailbox one task at a time.
func (p *Pipeline) work(t *task) {
	defer p.wg.Done()
	for t != nil {
		p.run(t)

		p.mu.Lock()
		t = p.mailbox
		p.mailbox = nil
		if t == nil {
			p.inFlight = false
		}
		p.mu.Unlock()
	}
}

func (p *Pipeline) run(t *task) {
	preview, err := p.capture(p.ctx, t.request)
	if err != nil {
		if p.ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(p.logger, "preview capture failed", "capture_failed",
			logging.String("media", t.mediaPath),
			logging.Float64("time", t.time),
			logging.Error(err),
			logging.String(logging.FieldImpact, "no preview shown for this position"),
		)
		return
	}
	if !p.isCurrent(t.token) {
		p.logger.Debug("discarded stale preview", logging.Float64("time", preview.Time))
		return
	}
	t.deliver(preview)
}

func (p *Pipeline) isCurrent(token uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && token == p.token
}

func (p *Pipeline) capture(ctx context.Context, req request) (Preview, error) {
	rounded := roundTime(req.time)
	key := cacheKey(req.mediaPath, rounded)
	if preview, ok := p.cache.get(key); ok {
		return preview, nil
	}

	inst, err := p.engine(ctx)
	if err != nil {
		return Preview{}, err
	}
	if err := p.ensureLoaded(ctx, inst, req.mediaPath); err != nil {
		return Preview{}, err
	}
	if err := inst.Seek(ctx, rounded, engine.SeekAbsoluteExact); err != nil {
		return Preview{}, fmt.Errorf("seek %.1f: %w", rounded, err)
	}
	if !sleepCtx(ctx, p.opts.Settle) {
		return Preview{}, ctx.Err()
	}

	path := capturePath(p.opts.CacheDir, key)
	if err := p.screenshot(ctx, inst, path); err != nil {
		return Preview{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Preview{}, fmt.Errorf("read capture: %w", err)
	}
	preview := Preview{
		MediaPath: req.mediaPath,
		Time:      rounded,
		Path:      path,
		DataURL:   dataURLPrefix + base64.StdEncoding.EncodeToString(data),
	}
	p.cache.put(key, preview)
	return preview, nil
}

// engine returns the capture instance, spawning it headless on first use or
// after its process went away.
func (p *Pipeline) engine(ctx context.Context) (*engine.Instance, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("capture pipeline closed")
	}
	if p.inst == nil {
		p.inst = p.newInstance()
	}
	inst := p.inst
	p.mu.Unlock()

	if inst.Ready() {
		return inst, nil
	}
	if err := inst.Spawn(ctx); err != nil {
		return nil, fmt.Errorf("capture engine: %w", err)
	}
	readyCtx, cancel := context.WithTimeout(ctx, p.opts.ReadyTimeout)
	defer cancel()
	if err := inst.WaitReady(readyCtx); err != nil {
		return nil, fmt.Errorf("capture engine: %w", err)
	}
	return inst, nil
}

func (p *Pipeline) ensureLoaded(ctx context.Context, inst *engine.Instance, mediaPath string) error {
	if inst.LoadedPath() == mediaPath {
		return nil
	}
	loaded := inst.Expect(engine.KindFileLoaded)
	defer loaded.Cancel()
	if err := inst.LoadFile(ctx, mediaPath, engine.LoadReplace); err != nil {
		return fmt.Errorf("load %s: %w", mediaPath, err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, p.opts.ReadyTimeout)
	defer cancel()
	if _, err := loaded.Wait(waitCtx); err != nil {
		// forget the path so the next request retries the load
		_ = inst.Stop(ctx)
		return fmt.Errorf("load %s: %w", mediaPath, err)
	}
	if err := inst.Pause(ctx); err != nil {
		return fmt.Errorf("pause after load: %w", err)
	}
	return nil
}

// screenshot writes the frame unless another process already produced it.
// The directory lock serializes writers sharing the cache directory.
func (p *Pipeline) screenshot(ctx context.Context, inst *engine.Instance, path string) error {
	locked, err := p.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock capture dir: %w", err)
	}
	if !locked {
		return errors.New("lock capture dir: not acquired")
	}
	defer func() {
		_ = p.lock.Unlock()
	}()

	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := inst.ScreenshotToFile(ctx, path, "video"); err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	return nil
}

// Stats reports memory and disk cache occupancy.
func (p *Pipeline) Stats() (Stats, error) {
	files, size, err := DiskUsage(p.opts.CacheDir)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		MemoryEntries: p.cache.len(),
		MaxEntries:    p.opts.MaxEntries,
		DiskFiles:     files,
		DiskBytes:     size,
	}, nil
}

// Close cancels outstanding work, waits for the in-flight capture, and
// destroys the capture engine.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.invalidateLocked()
	inst := p.inst
	p.inst = nil
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	if inst != nil {
		inst.Destroy()
	}
	p.cache.clear()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
