package engine

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// binaryLocator walks the mpv fallback chain. The function fields exist so
// tests can fake the filesystem and PATH.
type binaryLocator struct {
	bundledDir string
	projectDir string
	executable func() (string, error)
	lookPath   func(string) (string, error)
	stat       func(string) (fs.FileInfo, error)
}

func newBinaryLocator(bundledDir, projectDir string) binaryLocator {
	return binaryLocator{
		bundledDir: bundledDir,
		projectDir: projectDir,
		executable: os.Executable,
		lookPath:   exec.LookPath,
		stat:       os.Stat,
	}
}

// ResolveBinary reports which mpv executable Spawn would launch for opts.
func ResolveBinary(opts Options) (string, error) {
	return newBinaryLocator(opts.BundledDir, opts.ProjectDir).resolve(opts.MpvPath)
}

func binaryName() string {
	if runtime.GOOS == "windows" {
		return "mpv.exe"
	}
	return "mpv"
}

// resolve returns the first usable binary: explicit override, bundled copy,
// copy beside the host executable, project-local copy, then PATH.
func (l binaryLocator) resolve(override string) (string, error) {
	override = strings.TrimSpace(override)
	if override != "" {
		if !strings.ContainsAny(override, `/\`) {
			path, err := l.lookPath(override)
			if err != nil {
				return "", fmt.Errorf("%w: %q not on PATH: %w", ErrBinaryNotFound, override, err)
			}
			return path, nil
		}
		if l.isFile(override) {
			return override, nil
		}
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, override)
	}

	name := binaryName()
	var tried []string
	for _, candidate := range l.candidates(name) {
		tried = append(tried, candidate)
		if l.isFile(candidate) {
			return candidate, nil
		}
	}
	path, err := l.lookPath(name)
	if err == nil {
		return path, nil
	}
	tried = append(tried, "$PATH/"+name)
	return "", fmt.Errorf("%w: tried %s", ErrBinaryNotFound, strings.Join(tried, ", "))
}

func (l binaryLocator) candidates(name string) []string {
	var out []string
	if dir := strings.TrimSpace(l.bundledDir); dir != "" {
		out = append(out, filepath.Join(dir, "mpv", name), filepath.Join(dir, name))
	}
	if l.executable != nil {
		if exe, err := l.executable(); err == nil && exe != "" {
			out = append(out, filepath.Join(filepath.Dir(exe), name))
		}
	}
	projectDir := strings.TrimSpace(l.projectDir)
	if projectDir == "" {
		if wd, err := os.Getwd(); err == nil {
			projectDir = wd
		}
	}
	if projectDir != "" {
		out = append(out, filepath.Join(projectDir, "mpv", name))
	}
	return out
}

func (l binaryLocator) isFile(path string) bool {
	info, err := l.stat(path)
	return err == nil && !info.IsDir()
}
