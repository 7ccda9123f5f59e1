package testsupport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"slices"
	"sync"
	"syscall"
	"testing"
	"time"

	"mpvkit/internal/engine"
	"mpvkit/internal/ipc"
)

// FakeCommand is one command received by the fake engine.
type FakeCommand struct {
	ID   int64
	Name string
	Args []json.RawMessage
}

// String decodes argument i (after the command name) as a string.
func (c FakeCommand) String(i int) string {
	var s string
	if i < len(c.Args) {
		_ = json.Unmarshal(c.Args[i], &s)
	}
	return s
}

// Float decodes argument i (after the command name) as a number.
func (c FakeCommand) Float(i int) float64 {
	var f float64
	if i < len(c.Args) {
		_ = json.Unmarshal(c.Args[i], &f)
	}
	return f
}

// FakeReply describes how the fake answers a command.
type FakeReply struct {
	Data any
	// Error is sent as the response status; empty means success.
	Error string
	// Hold keeps the response back until ReleaseHeld.
	Hold bool
	// Silent sends no response at all.
	Silent bool
	// Events are written after the response.
	Events []ipc.Frame
}

// FakeHandler overrides the default reply for a command. Returning false
// falls through to the built-in behaviour.
type FakeHandler func(cmd FakeCommand) (FakeReply, bool)

type heldReply struct {
	conn  *fakeConn
	frame ipc.Frame
}

// FakeEngine plays the mpv side of the control protocol over net.Pipe. It
// implements engine.Launcher and supplies an engine.Dialer.
type FakeEngine struct {
	t testing.TB

	mu            sync.Mutex
	props         map[string]any
	observed      map[string]int64
	handler       FakeHandler
	commands      []FakeCommand
	conns         []*fakeConn
	procs         []*FakeProcess
	launches      [][]string
	launchErr     error
	dialFailures  int
	dialAttempts  int
	held          map[int64]heldReply
	screenshots   int
	duration      float64
	frameBytes    []byte
	ignoreTerm    bool
	commandSignal chan struct{}
}

// NewFakeEngine returns a fake with a loaded-file duration of 120 seconds.
func NewFakeEngine(t testing.TB) *FakeEngine {
	t.Helper()
	return &FakeEngine{
		t:             t,
		props:         map[string]any{"pause": false, "volume": 100.0, "mute": false, "speed": 1.0},
		observed:      make(map[string]int64),
		held:          make(map[int64]heldReply),
		duration:      120,
		frameBytes:    []byte{0xff, 0xd8, 0xff, 0xe0, 'f', 'a', 'k', 'e', 0xff, 0xd9},
		commandSignal: make(chan struct{}, 1),
	}
}

// Options wires the fake into engine.New.
func (f *FakeEngine) Options() []engine.Option {
	return []engine.Option{
		engine.WithLauncher(f),
		engine.WithDialer(f.Dial),
		engine.WithBinaryResolver(func(string) (string, error) { return "/usr/bin/mpv", nil }),
	}
}

// Handle installs a command override.
func (f *FakeEngine) Handle(h FakeHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

// SetProperty seeds a value returned by get_property.
func (f *FakeEngine) SetProperty(name string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.props[name] = value
}

// SetDuration sets the duration reported after loadfile.
func (f *FakeEngine) SetDuration(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duration = seconds
}

// FailDials makes the next n dial attempts fail with ECONNREFUSED.
func (f *FakeEngine) FailDials(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialFailures = n
}

// FailLaunch makes every launch fail with err.
func (f *FakeEngine) FailLaunch(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launchErr = err
}

// IgnoreTerminate makes processes survive Terminate so only Kill ends them.
func (f *FakeEngine) IgnoreTerminate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignoreTerm = true
}

// Launch implements engine.Launcher.
func (f *FakeEngine) Launch(_ context.Context, _ string, args []string) (engine.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launches = append(f.launches, slices.Clone(args))
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	proc := newFakeProcess(f)
	f.procs = append(f.procs, proc)
	return proc, nil
}

// Dial implements engine.Dialer against the most recent live process.
func (f *FakeEngine) Dial(_ context.Context, address string) (net.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialAttempts++
	if f.dialFailures > 0 {
		f.dialFailures--
		return nil, &net.OpError{Op: "dial", Net: "unix", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}
	}
	proc := f.liveProcessLocked()
	if proc == nil {
		return nil, &net.OpError{Op: "dial", Net: "unix", Err: fmt.Errorf("%s: %w", address, syscall.ENOENT)}
	}
	client, server := net.Pipe()
	conn := &fakeConn{Conn: server, proc: proc}
	f.conns = append(f.conns, conn)
	go f.serve(conn)
	return client, nil
}

func (f *FakeEngine) liveProcessLocked() *FakeProcess {
	for idx := len(f.procs) - 1; idx >= 0; idx-- {
		if !f.procs[idx].exitedFlag() {
			return f.procs[idx]
		}
	}
	return nil
}

// Process returns the most recently launched process.
func (f *FakeEngine) Process() *FakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.procs) == 0 {
		return nil
	}
	return f.procs[len(f.procs)-1]
}

// Launches returns the argument lists of every launch.
func (f *FakeEngine) Launches() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.launches)
}

// DialAttempts counts every dial, failed or not.
func (f *FakeEngine) DialAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dialAttempts
}

// Screenshots counts screenshot-to-file commands that wrote a file.
func (f *FakeEngine) Screenshots() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.screenshots
}

// Commands returns every command received so far.
func (f *FakeEngine) Commands() []FakeCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.commands)
}

// CommandsNamed filters Commands by name.
func (f *FakeEngine) CommandsNamed(name string) []FakeCommand {
	var out []FakeCommand
	for _, cmd := range f.Commands() {
		if cmd.Name == name {
			out = append(out, cmd)
		}
	}
	return out
}

// WaitForCommands blocks until at least n commands called name arrived.
func (f *FakeEngine) WaitForCommands(name string, n int, timeout time.Duration) []FakeCommand {
	f.t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if cmds := f.CommandsNamed(name); len(cmds) >= n {
			return cmds
		}
		select {
		case <-f.commandSignal:
		case <-time.After(10 * time.Millisecond):
		case <-deadline.C:
			f.t.Fatalf("timed out waiting for %d %q commands; got %d", n, name, len(f.CommandsNamed(name)))
			return nil
		}
	}
}

// HeldIDs lists request ids whose responses are being held back.
func (f *FakeEngine) HeldIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.held))
	for id := range f.held {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ReleaseHeld writes held responses in the given order.
func (f *FakeEngine) ReleaseHeld(ids ...int64) {
	f.t.Helper()
	for _, id := range ids {
		f.mu.Lock()
		reply, ok := f.held[id]
		delete(f.held, id)
		f.mu.Unlock()
		if !ok {
			f.t.Fatalf("no held response for request %d", id)
		}
		_ = reply.conn.send(reply.frame)
	}
}

// Emit writes an event frame to every open connection.
func (f *FakeEngine) Emit(frame ipc.Frame) {
	f.mu.Lock()
	conns := slices.Clone(f.conns)
	f.mu.Unlock()
	for _, conn := range conns {
		_ = conn.send(frame)
	}
}

// DropConnections closes the engine side of every connection without
// ending the process.
func (f *FakeEngine) DropConnections() {
	f.mu.Lock()
	conns := f.conns
	f.conns = nil
	f.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (f *FakeEngine) closeConnsFor(proc *FakeProcess) {
	f.mu.Lock()
	var keep, drop []*fakeConn
	for _, conn := range f.conns {
		if conn.proc == proc {
			drop = append(drop, conn)
		} else {
			keep = append(keep, conn)
		}
	}
	f.conns = keep
	f.mu.Unlock()
	for _, conn := range drop {
		_ = conn.Close()
	}
}

func (f *FakeEngine) serve(conn *fakeConn) {
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		id, raw, err := ipc.DecodeCommand(line)
		if err != nil || len(raw) == 0 {
			continue
		}
		cmd := FakeCommand{ID: id, Args: raw[1:]}
		_ = json.Unmarshal(raw[0], &cmd.Name)

		f.mu.Lock()
		f.commands = append(f.commands, cmd)
		handler := f.handler
		f.mu.Unlock()
		select {
		case f.commandSignal <- struct{}{}:
		default:
		}

		reply, handled := FakeReply{}, false
		if handler != nil {
			reply, handled = handler(cmd)
		}
		if !handled {
			reply = f.defaultReply(cmd)
		}
		f.respond(conn, cmd, reply)
		if !handled && cmd.Name == "quit" {
			conn.proc.Exit(0)
			return
		}
	}
}

func (f *FakeEngine) respond(conn *fakeConn, cmd FakeCommand, reply FakeReply) {
	if reply.Silent {
		return
	}
	frame := ipc.Frame{RequestID: cmd.ID, Error: ipc.SuccessMarker}
	if reply.Error != "" {
		frame.Error = reply.Error
	}
	if reply.Data != nil {
		data, err := json.Marshal(reply.Data)
		if err == nil {
			frame.Data = data
		}
	}
	if reply.Hold {
		f.mu.Lock()
		f.held[cmd.ID] = heldReply{conn: conn, frame: frame}
		f.mu.Unlock()
	} else if err := conn.send(frame); err != nil {
		return
	}
	for _, ev := range reply.Events {
		if err := conn.send(ev); err != nil {
			return
		}
	}
}

func (f *FakeEngine) defaultReply(cmd FakeCommand) FakeReply {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch cmd.Name {
	case "get_property":
		value, ok := f.props[cmd.String(0)]
		if !ok {
			return FakeReply{Error: "property unavailable"}
		}
		return FakeReply{Data: value}
	case "set_property":
		var value any
		if len(cmd.Args) > 1 {
			_ = json.Unmarshal(cmd.Args[1], &value)
		}
		name := cmd.String(0)
		f.props[name] = value
		return FakeReply{Events: f.changeLocked(name)}
	case "observe_property":
		name := cmd.String(1)
		f.observed[name] = int64(cmd.Float(0))
		return FakeReply{Events: f.changeLocked(name)}
	case "loadfile":
		f.props["path"] = cmd.String(0)
		f.props["duration"] = f.duration
		f.props["time-pos"] = 0.0
		events := []ipc.Frame{{Event: "start-file"}, {Event: "file-loaded"}}
		events = append(events, f.changeLocked("duration")...)
		return FakeReply{Events: events}
	case "seek":
		pos, _ := f.props["time-pos"].(float64)
		switch cmd.String(1) {
		case engine.SeekAbsolute, engine.SeekAbsoluteExact:
			pos = cmd.Float(0)
		default:
			pos += cmd.Float(0)
		}
		f.props["time-pos"] = pos
		events := []ipc.Frame{{Event: "seek"}, {Event: "playback-restart"}}
		events = append(events, f.changeLocked("time-pos")...)
		return FakeReply{Events: events}
	case "screenshot-to-file":
		if err := os.WriteFile(cmd.String(0), f.frameBytes, 0o644); err != nil {
			return FakeReply{Error: "error running command"}
		}
		f.screenshots++
		return FakeReply{}
	case "stop":
		delete(f.props, "path")
		delete(f.props, "duration")
		return FakeReply{Events: []ipc.Frame{{Event: "end-file", Reason: "stop"}}}
	default:
		return FakeReply{}
	}
}

func (f *FakeEngine) changeLocked(name string) []ipc.Frame {
	id, ok := f.observed[name]
	if !ok {
		return nil
	}
	data, err := json.Marshal(f.props[name])
	if err != nil {
		return nil
	}
	return []ipc.Frame{{Event: "property-change", ID: id, Name: name, Data: data}}
}

type fakeConn struct {
	net.Conn
	proc *FakeProcess
	mu   sync.Mutex
}

func (c *fakeConn) send(frame ipc.Frame) error {
	line, err := ipc.EncodeFrame(frame)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.Write(line)
	return err
}

// FakeProcess is the engine.Process handed out by FakeEngine.
type FakeProcess struct {
	engine    *FakeEngine
	stdoutR   *io.PipeReader
	stdoutW   *io.PipeWriter
	stderrR   *io.PipeReader
	stderrW   *io.PipeWriter
	done      chan struct{}
	once      sync.Once
	mu        sync.Mutex
	code      int
	exited    bool
	terminate int
	killed    bool
}

func newFakeProcess(f *FakeEngine) *FakeProcess {
	p := &FakeProcess{engine: f, done: make(chan struct{})}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *FakeProcess) Stdout() io.Reader { return p.stdoutR }

func (p *FakeProcess) Stderr() io.Reader { return p.stderrR }

// WriteStderr emits one line on the process stderr.
func (p *FakeProcess) WriteStderr(line string) {
	_, _ = io.WriteString(p.stderrW, line+"\n")
}

func (p *FakeProcess) Wait() (int, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code, nil
}

func (p *FakeProcess) Terminate() error {
	p.mu.Lock()
	p.terminate++
	p.mu.Unlock()
	p.engine.mu.Lock()
	ignore := p.engine.ignoreTerm
	p.engine.mu.Unlock()
	if !ignore {
		p.Exit(0)
	}
	return nil
}

func (p *FakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.Exit(-1)
	return nil
}

// Exit ends the process with code, closing its output and connections.
func (p *FakeProcess) Exit(code int) {
	p.once.Do(func() {
		p.mu.Lock()
		p.code = code
		p.exited = true
		p.mu.Unlock()
		p.engine.closeConnsFor(p)
		_ = p.stdoutW.Close()
		_ = p.stderrW.Close()
		close(p.done)
	})
}

// Killed reports whether Kill ended the process.
func (p *FakeProcess) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// Terminated counts Terminate calls.
func (p *FakeProcess) Terminated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminate
}

func (p *FakeProcess) exitedFlag() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

// ErrFakeLaunch is a convenience launch failure for tests.
var ErrFakeLaunch = errors.New("exec: \"mpv\": executable file not found in $PATH")
