//go:build !unix

package engine

import (
	"fmt"
	"os"
)

func terminateProcess(p *os.Process) error {
	return p.Kill()
}

func checkSocketDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("socket dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("socket dir %s: not a directory", dir)
	}
	return nil
}
