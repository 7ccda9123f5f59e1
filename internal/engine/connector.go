package engine

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"mpvkit/internal/ipc"
	"mpvkit/internal/logging"
)

// connect dials the control endpoint with bounded retries. ConnectRetries
// counts attempts after the first one.
func (i *Instance) connect(ctx context.Context, proc Process, socketPath string) {
	defer i.wg.Done()

	if !sleepCtx(ctx, i.opts.ConnectDelay) {
		return
	}
	attempts := 1 + i.opts.ConnectRetries
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := i.dial(ctx, socketPath)
		if err == nil {
			if i.attach(proc, conn) {
				i.bootstrap(ctx)
			}
			return
		}
		lastErr = err
		if ctx.Err() != nil {
			return
		}
		i.logger.Debug("control endpoint not ready",
			logging.Int("attempt", attempt),
			logging.Int("attempts", attempts),
			logging.Error(err),
		)
		if attempt < attempts && !sleepCtx(ctx, i.opts.RetryDelay) {
			return
		}
	}

	err := Wrap(ErrConnect, "connect", fmt.Sprintf("%s unreachable after %d attempts", socketPath, attempts), lastErr)
	i.mu.Lock()
	stale := i.destroyed || i.proc != proc
	if !stale {
		i.connectErr = err
		i.notifyLocked()
	}
	i.mu.Unlock()
	if stale {
		return
	}
	logging.ErrorWithContext(i.logger, "engine connect failed", "engine_connect_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check engine stderr output above"),
	)
	i.dispatcher.enqueue(Failed{Err: err})
}

// attach installs a fresh connection and starts its reader. Ready is queued
// before the reader starts so it precedes every wire event.
func (i *Instance) attach(proc Process, conn net.Conn) bool {
	i.mu.Lock()
	if i.destroyed || i.proc != proc {
		i.mu.Unlock()
		_ = conn.Close()
		return false
	}
	i.conn = conn
	i.ready = true
	i.connectErr = nil
	i.notifyLocked()
	path := i.socketPath
	i.dispatcher.enqueue(Ready{SocketPath: path})
	i.wg.Add(1)
	i.mu.Unlock()

	go i.read(conn)
	i.logger.Info("engine connected",
		logging.String(logging.FieldEventType, "engine_ready"),
		logging.String("socket", path),
	)
	return true
}

// bootstrap enables engine log forwarding and the default observations.
func (i *Instance) bootstrap(ctx context.Context) {
	if level := strings.TrimSpace(i.opts.EngineLogLevel); level != "no" {
		if _, err := i.Command(ctx, "request_log_messages", level); err != nil && ctx.Err() == nil {
			i.logger.Debug("request_log_messages failed", logging.Error(err))
		}
	}
	if !i.opts.ObserveDefaults {
		return
	}
	for _, name := range DefaultObservedProperties {
		if _, err := i.ObserveProperty(ctx, name); err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.WarnWithContext(i.logger, "observe property failed", "observe_failed",
				logging.String("property", name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "host will not receive updates for this property"),
			)
		}
	}
}

func (i *Instance) read(conn net.Conn) {
	defer i.wg.Done()
	dec := ipc.Decoder{OnMalformed: func(line []byte, err error) {
		i.logger.Debug("dropped malformed frame", logging.Int("bytes", len(line)), logging.Error(err))
	}}
	err := dec.Pump(conn, i.route)
	i.detach(conn, err)
}

func (i *Instance) route(frame ipc.Frame) {
	if frame.IsResponse() {
		if !i.pending.resolve(frame) {
			i.logger.Debug("response for unknown request", logging.Int64(logging.FieldRequestID, frame.RequestID))
		}
		return
	}
	if frame.Event == "" {
		return
	}
	ev := classify(frame)
	switch e := ev.(type) {
	case PropertyChange:
		ev = i.observers.record(e)
	case LogMessage:
		i.logEngineMessage(e)
	}
	i.dispatcher.enqueue(ev)
}

func (i *Instance) logEngineMessage(msg LogMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	attrs := logging.Args(logging.String("prefix", msg.Prefix), logging.String("engine_level", msg.Level))
	if isErrorLevel(msg.Level) {
		i.mpvLogger.Error(text, attrs...)
		return
	}
	i.mpvLogger.Debug(text, attrs...)
}

// detach clears the connection after the reader stops. There is no implicit
// reconnect.
func (i *Instance) detach(conn net.Conn, readErr error) {
	i.mu.Lock()
	current := i.conn == conn
	if current {
		i.conn = nil
		i.ready = false
		i.notifyLocked()
	}
	destroyed := i.destroyed
	i.mu.Unlock()
	_ = conn.Close()

	if !current || destroyed {
		return
	}
	n := i.pending.failAll(Wrap(ErrNotConnected, "control connection", "closed", readErr))
	logging.WarnWithContext(i.logger, "engine connection closed", "engine_disconnected",
		logging.Int("failed_requests", n),
		logging.String(logging.FieldImpact, "commands are skipped until the engine is spawned again"),
	)
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
