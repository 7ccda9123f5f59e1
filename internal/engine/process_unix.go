//go:build unix

package engine

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func terminateProcess(p *os.Process) error {
	if err := unix.Kill(p.Pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("sigterm %d: %w", p.Pid, err)
	}
	return nil
}

// checkSocketDir verifies the endpoint directory exists and is writable.
func checkSocketDir(dir string) error {
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("socket dir %s: %w", dir, err)
	}
	return nil
}
