package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mpvkit/internal/logging"
	"mpvkit/internal/textutil"
)

// endpointSequence mints unique control endpoint paths for one instance.
type endpointSequence struct {
	dir    string
	prefix string
	n      atomic.Uint64
}

// newEndpointSequence names endpoints after the instance so concurrent
// playback and capture engines are distinguishable in the socket directory.
func newEndpointSequence(dir, name string) *endpointSequence {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = os.TempDir()
	}
	prefix := fmt.Sprintf("mpvkit-%s-%s", textutil.SanitizeToken(name), uuid.NewString()[:8])
	return &endpointSequence{dir: dir, prefix: prefix}
}

func (s *endpointSequence) next() string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%d.sock", s.prefix, s.n.Add(1)))
}

// Spawn launches the engine process and starts connecting to it in the
// background. Calling Spawn while a process is held is a no-op. A spawn
// failure is also emitted as a Failed event; the instance stays not-ready.
func (i *Instance) Spawn(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return ErrDestroyed
	}
	if i.proc != nil {
		return nil
	}
	if err := i.spawnLocked(ctx); err != nil {
		i.connectErr = err
		i.notifyLocked()
		logging.ErrorWithContext(i.logger, "engine spawn failed", "engine_spawn_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install mpv or set engine.mpv_path"),
		)
		i.dispatcher.enqueue(Failed{Err: err})
		return err
	}
	return nil
}

func (i *Instance) spawnLocked(ctx context.Context) error {
	binary, err := i.resolveBinary(i.opts.MpvPath)
	if err != nil {
		return Wrap(ErrSpawn, "resolve binary", "", err)
	}
	if dir := strings.TrimSpace(i.opts.ScreenshotDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Wrap(ErrSpawn, "screenshot directory", dir, err)
		}
	}
	if err := checkSocketDir(i.endpoints.dir); err != nil {
		return Wrap(ErrSpawn, "control endpoint", "", err)
	}

	// artifacts from a previous process are no longer referenced
	removeArtifacts(i.socketPath, i.inputConfPath)

	socketPath := i.endpoints.next()
	_ = os.Remove(socketPath)
	inputConfPath, err := writeInputConfig(socketPath)
	if err != nil {
		return Wrap(ErrSpawn, "input config", "", err)
	}

	args := buildArgs(i.opts, socketPath, inputConfPath)
	proc, err := i.launcher.Launch(ctx, binary, args)
	if err != nil {
		removeArtifacts(inputConfPath)
		return Wrap(ErrSpawn, "launch", binary, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	i.proc = proc
	i.exited = exited
	i.runCancel = cancel
	i.socketPath = socketPath
	i.inputConfPath = inputConfPath
	i.connectErr = nil
	i.loadedPath = ""
	i.observers.clearValues()
	i.notifyLocked()

	i.wg.Add(2)
	go i.supervise(proc, exited, cancel)
	go i.connect(runCtx, proc, socketPath)

	i.logger.Info("engine spawned",
		logging.String(logging.FieldEventType, "engine_spawned"),
		logging.String("binary", binary),
		logging.String("socket", socketPath),
		logging.Bool("headless", i.opts.Headless),
	)
	i.logger.Debug("engine arguments", logging.Strings("args", args))
	return nil
}

// supervise drains the process output, then reaps the process and reports
// exits that Destroy did not cause.
func (i *Instance) supervise(proc Process, exited chan struct{}, cancel context.CancelFunc) {
	defer i.wg.Done()

	var g errgroup.Group
	g.Go(func() error { return i.scan(proc.Stdout(), "stdout") })
	g.Go(func() error { return i.scan(proc.Stderr(), "stderr") })
	if err := g.Wait(); err != nil {
		i.logger.Debug("engine output scan ended", logging.Error(err))
	}

	code, waitErr := proc.Wait()
	close(exited)
	cancel()

	i.mu.Lock()
	current := i.proc == proc
	conn := i.conn
	if current {
		i.proc = nil
		i.conn = nil
		i.ready = false
		i.runCancel = nil
		i.notifyLocked()
	}
	destroyed := i.destroyed
	i.mu.Unlock()

	if !current || destroyed {
		return
	}
	if conn != nil {
		_ = conn.Close()
	}
	i.pending.failAll(Wrap(ErrNotConnected, "engine exited", fmt.Sprintf("exit code %d", code), nil))

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "engine_exited"),
		logging.Int("exit_code", code),
	}
	if waitErr != nil {
		attrs = append(attrs, logging.Error(waitErr))
	}
	if code == 0 {
		i.logger.Info("engine exited", logging.Args(attrs...)...)
		i.dispatcher.enqueue(Closed{})
		return
	}
	logging.ErrorWithContext(i.logger, "engine exited unexpectedly", "engine_exited", attrs...)
	i.dispatcher.enqueue(Exit{Code: code})
}

func (i *Instance) scan(r io.Reader, stream string) error {
	if r == nil {
		return nil
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if stream == "stderr" {
			i.mpvLogger.Info(line, logging.String("stream", stream))
		} else {
			i.mpvLogger.Debug(line, logging.String("stream", stream))
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("%s: %w", stream, err)
	}
	return nil
}
