package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"mpvkit/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAllCoversConfiguredDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := RunAll(cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 directory checks, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %#v", failed)
	}

	cfg.Logging.Dir = ""
	cfg.Capture.CacheDir = filepath.Join(t.TempDir(), "missing")
	results = RunAll(cfg)
	if len(results) != 3 {
		t.Fatalf("expected unset log dir to be skipped, got %d checks", len(results))
	}
	if failed := Failed(results); len(failed) != 1 || failed[0].Name != "Preview cache" {
		t.Fatalf("expected only the preview cache to fail, got %#v", failed)
	}
}

func TestCheckEngineDeps(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("mpv"))
	t.Setenv("PATH", filepath.Join(testsupport.BaseDir(cfg), "bin"))

	statuses := CheckEngineDeps(cfg)
	if len(statuses) != 2 {
		t.Fatalf("expected mpv and yt-dlp statuses, got %d", len(statuses))
	}
	mpv, ytdl := statuses[0], statuses[1]
	if !mpv.Available || filepath.Base(mpv.Path) != "mpv" {
		t.Fatalf("expected stubbed mpv to resolve, got %#v", mpv)
	}
	if ytdl.Available || !ytdl.Optional {
		t.Fatalf("expected optional yt-dlp to be missing, got %#v", ytdl)
	}

	cfg.Engine.MpvPath = filepath.Join(t.TempDir(), "nowhere", "mpv")
	if statuses := CheckEngineDeps(cfg); statuses[0].Available {
		t.Fatalf("expected explicit missing mpv path to fail, got %#v", statuses[0])
	}
}
