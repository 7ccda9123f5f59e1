package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os/exec"
)

// Process is a running engine process.
type Process interface {
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until exit and reports the exit code (-1 when killed by a signal).
	Wait() (int, error)
	// Terminate asks the process to exit gracefully.
	Terminate() error
	Kill() error
}

// Launcher starts engine processes.
type Launcher interface {
	Launch(ctx context.Context, binary string, args []string) (Process, error)
}

// Dialer opens the control connection for a socket path.
type Dialer func(ctx context.Context, address string) (net.Conn, error)

// Option configures an Instance.
type Option func(*Instance)

// WithLauncher injects a custom launcher (primarily for tests).
func WithLauncher(l Launcher) Option {
	return func(i *Instance) {
		if l != nil {
			i.launcher = l
		}
	}
}

// WithDialer injects a custom control-channel dialer.
func WithDialer(d Dialer) Option {
	return func(i *Instance) {
		if d != nil {
			i.dial = d
		}
	}
}

// WithBinaryResolver replaces binary discovery; tests use it to skip the filesystem.
func WithBinaryResolver(resolve func(override string) (string, error)) Option {
	return func(i *Instance) {
		if resolve != nil {
			i.resolveBinary = resolve
		}
	}
}

func dialUnix(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", address)
}

type execLauncher struct{}

func (execLauncher) Launch(_ context.Context, binary string, args []string) (Process, error) {
	// The process outlives the spawning call, so it is not bound to ctx.
	cmd := exec.Command(binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}
	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }

func (p *execProcess) Stderr() io.Reader { return p.stderr }

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (p *execProcess) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	return terminateProcess(p.cmd.Process)
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}
