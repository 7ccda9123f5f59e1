package capture

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/text/unicode/norm"
)

const (
	captureExt   = ".jpg"
	lockFileName = ".capture.lock"
)

// roundTime snaps a timestamp to the half-second grid captures are keyed on.
func roundTime(seconds float64) float64 {
	return math.Round(seconds*2) / 2
}

// cacheKey identifies a capture of mediaPath at an already rounded time.
// Paths are NFC-normalized so differently composed names share entries.
func cacheKey(mediaPath string, rounded float64) string {
	h := blake3.New()
	_, _ = h.Write([]byte(norm.NFC.String(mediaPath)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatFloat(rounded, 'f', 1, 64)))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

func capturePath(dir, key string) string {
	return filepath.Join(dir, key+captureExt)
}

// DiskUsage reports the number and total size of capture files in dir.
// A missing directory counts as empty.
func DiskUsage(dir string) (int, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("read capture dir: %w", err)
	}
	var files int
	var size int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), captureExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files++
		size += info.Size()
	}
	return files, size, nil
}

// ClearDisk removes every capture file in dir and returns how many were deleted.
func ClearDisk(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read capture dir: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), captureExt) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("remove capture: %w", err)
		}
		removed++
	}
	return removed, nil
}
