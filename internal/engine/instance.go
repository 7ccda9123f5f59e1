package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"mpvkit/internal/ipc"
	"mpvkit/internal/logging"
)

// Instance owns one mpv process and its control connection.
//
// An Instance starts its dispatch goroutine in New; callers must call Destroy
// when done with it.
type Instance struct {
	opts          Options
	logger        *slog.Logger
	mpvLogger     *slog.Logger
	launcher      Launcher
	dial          Dialer
	resolveBinary func(override string) (string, error)
	endpoints     *endpointSequence

	pending    *correlator
	observers  *observerRegistry
	dispatcher *dispatcher
	nextID     atomic.Int64
	writeMu    sync.Mutex
	wg         sync.WaitGroup

	mu            sync.Mutex
	proc          Process
	exited        chan struct{}
	runCancel     context.CancelFunc
	conn          net.Conn
	ready         bool
	destroyed     bool
	connectErr    error
	socketPath    string
	inputConfPath string
	loadedPath    string
	stateCh       chan struct{}
}

// New constructs an idle Instance. Nothing is launched until Spawn.
func New(opts Options, logger *slog.Logger, options ...Option) *Instance {
	opts = opts.withDefaults()
	base := logging.NewComponentLogger(logger, "engine").With(logging.String(logging.FieldInstance, opts.Name))
	locator := newBinaryLocator(opts.BundledDir, opts.ProjectDir)
	inst := &Instance{
		opts:          opts,
		logger:        base,
		mpvLogger:     logging.NewComponentLogger(logger, "mpv").With(logging.String(logging.FieldInstance, opts.Name)),
		launcher:      execLauncher{},
		dial:          dialUnix,
		resolveBinary: locator.resolve,
		endpoints:     newEndpointSequence(opts.SocketDir, opts.Name),
		pending:       newCorrelator(),
		observers:     newObserverRegistry(),
		dispatcher:    newDispatcher(),
		stateCh:       make(chan struct{}),
	}
	for _, opt := range options {
		if opt != nil {
			opt(inst)
		}
	}
	return inst
}

// Options returns the normalized options the instance was built with.
func (i *Instance) Options() Options {
	return i.opts
}

// Subscribe registers l for events and property changes. The returned func
// removes the subscription.
func (i *Instance) Subscribe(l Listener) func() {
	return i.dispatcher.subscribe(l)
}

// Expect registers a one-shot waiter for the next event of kind. Register it
// before issuing the command that triggers the event.
func (i *Instance) Expect(kind Kind) *Waiter {
	return i.dispatcher.expect(kind)
}

// Ready reports whether the control connection is up.
func (i *Instance) Ready() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.ready
}

// Running reports whether a process handle is held.
func (i *Instance) Running() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.proc != nil
}

// SocketPath returns the control endpoint of the current process.
func (i *Instance) SocketPath() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.socketPath
}

// LoadedPath returns the media path of the last successful LoadFile.
func (i *Instance) LoadedPath() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.loadedPath
}

// Snapshot returns the last value seen for every observed property.
func (i *Instance) Snapshot() map[string]json.RawMessage {
	return i.observers.snapshot()
}

// PendingRequests reports how many commands await a response.
func (i *Instance) PendingRequests() int {
	return i.pending.size()
}

// Observations reports how many property observations were registered.
func (i *Instance) Observations() int {
	return i.observers.count()
}

// WaitReady blocks until the connection is up, the connect attempt fails, or
// ctx ends.
func (i *Instance) WaitReady(ctx context.Context) error {
	for {
		i.mu.Lock()
		switch {
		case i.destroyed:
			i.mu.Unlock()
			return ErrDestroyed
		case i.ready:
			i.mu.Unlock()
			return nil
		case i.connectErr != nil:
			err := i.connectErr
			i.mu.Unlock()
			return err
		case i.proc == nil:
			i.mu.Unlock()
			return Wrap(ErrNotReady, "wait ready", "engine not running", nil)
		}
		ch := i.stateCh
		i.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return Wrap(ErrNotReady, "wait ready", "", ctx.Err())
		}
	}
}

// Command sends one command and blocks for its response. When the engine is
// not ready it waits up to ReadyGrace; if readiness never arrives the command
// is skipped and Response.Skipped is set with a nil error.
func (i *Instance) Command(ctx context.Context, args ...any) (Response, error) {
	if len(args) == 0 {
		return Response{}, errors.New("command: no arguments")
	}
	name := fmt.Sprint(args[0])

	conn, ok, err := i.awaitConn(ctx)
	if err != nil {
		return Response{}, err
	}
	if !ok {
		i.logger.Debug("command skipped; engine not ready", logging.String("command", name))
		return Response{Skipped: true}, nil
	}

	id := i.nextID.Add(1)
	line, err := ipc.EncodeCommand(id, args...)
	if err != nil {
		return Response{}, err
	}
	req, err := i.pending.register(id, name, i.opts.RequestTimeout)
	if err != nil {
		return Response{}, err
	}
	if err := i.write(conn, line); err != nil {
		i.pending.cancel(id)
		return Response{}, Wrap(ErrNotConnected, name, "write failed", err)
	}

	select {
	case res := <-req.done:
		return res.resp, res.err
	case <-ctx.Done():
		i.pending.cancel(id)
		return Response{}, ctx.Err()
	}
}

func (i *Instance) awaitConn(ctx context.Context) (net.Conn, bool, error) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		i.mu.Lock()
		if i.destroyed {
			i.mu.Unlock()
			return nil, false, ErrDestroyed
		}
		if i.ready && i.conn != nil {
			conn := i.conn
			i.mu.Unlock()
			return conn, true, nil
		}
		ch := i.stateCh
		i.mu.Unlock()

		if timer == nil {
			timer = time.NewTimer(i.opts.ReadyGrace)
		}
		select {
		case <-ch:
		case <-timer.C:
			return nil, false, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

func (i *Instance) write(conn net.Conn, line []byte) error {
	i.writeMu.Lock()
	defer i.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(i.opts.RequestTimeout))
	_, err := conn.Write(line)
	_ = conn.SetWriteDeadline(time.Time{})
	return err
}

// notifyLocked wakes everything waiting on a state change. Callers hold mu.
func (i *Instance) notifyLocked() {
	close(i.stateCh)
	i.stateCh = make(chan struct{})
}

// Destroy tears the instance down: a best-effort quit, pending requests
// rejected with ErrDestroyed, connection closed, process terminated, and
// every goroutine joined. It is safe to call more than once.
func (i *Instance) Destroy() {
	i.mu.Lock()
	if i.destroyed {
		i.mu.Unlock()
		return
	}
	i.destroyed = true
	conn, proc, exited, cancel := i.conn, i.proc, i.exited, i.runCancel
	socketPath, inputConfPath := i.socketPath, i.inputConfPath
	i.conn = nil
	i.ready = false
	i.loadedPath = ""
	i.notifyLocked()
	i.mu.Unlock()

	if conn != nil {
		i.sendQuit(conn)
	}
	if n := i.pending.close(Wrap(ErrDestroyed, "destroy", "request abandoned", nil)); n > 0 {
		i.logger.Debug("rejected pending requests", logging.Int("count", n))
	}
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if proc != nil {
		i.stopProcess(proc, exited)
	}
	i.wg.Wait()
	i.dispatcher.stop()
	i.observers.reset()
	removeArtifacts(socketPath, inputConfPath)
	i.logger.Info("engine destroyed")
}

func (i *Instance) sendQuit(conn net.Conn) {
	line, err := ipc.EncodeCommand(i.nextID.Add(1), "quit")
	if err != nil {
		return
	}
	i.writeMu.Lock()
	defer i.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(200 * time.Millisecond))
	_, _ = conn.Write(line)
}

func (i *Instance) stopProcess(proc Process, exited <-chan struct{}) {
	select {
	case <-exited:
		return
	default:
	}
	if err := proc.Terminate(); err != nil {
		i.logger.Debug("terminate failed", logging.Error(err))
	}
	timer := time.NewTimer(i.opts.KillGrace)
	defer timer.Stop()
	select {
	case <-exited:
	case <-timer.C:
		i.logger.Warn("engine ignored terminate; killing", logging.Duration("grace", i.opts.KillGrace))
		if err := proc.Kill(); err != nil {
			i.logger.Debug("kill failed", logging.Error(err))
		}
	}
}

func removeArtifacts(paths ...string) {
	for _, path := range paths {
		if path != "" {
			_ = os.Remove(path)
		}
	}
}
