package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Load modes accepted by LoadFile.
const (
	LoadReplace    = "replace"
	LoadAppend     = "append"
	LoadAppendPlay = "append-play"
)

// Seek modes accepted by Seek.
const (
	SeekRelative      = "relative"
	SeekAbsolute      = "absolute"
	SeekAbsoluteExact = "absolute+exact"
	SeekRelativeExact = "relative+exact"
	SeekPercent       = "absolute-percent"
)

// Track types accepted by SetTrack and Cycle.
const (
	TrackAudio    = "audio"
	TrackSubtitle = "sub"
	TrackVideo    = "video"
)

// LoadFile opens path and records it as the loaded media on success.
func (i *Instance) LoadFile(ctx context.Context, path, mode string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("loadfile: empty path")
	}
	if mode == "" {
		mode = LoadReplace
	}
	resp, err := i.Command(ctx, "loadfile", path, mode)
	if err != nil || resp.Skipped {
		return err
	}
	i.mu.Lock()
	i.loadedPath = path
	i.mu.Unlock()
	return nil
}

func (i *Instance) Play(ctx context.Context) error {
	return i.SetProperty(ctx, "pause", false)
}

func (i *Instance) Pause(ctx context.Context) error {
	return i.SetProperty(ctx, "pause", true)
}

func (i *Instance) TogglePause(ctx context.Context) error {
	return i.Cycle(ctx, "pause")
}

// Stop ends playback and forgets the loaded path.
func (i *Instance) Stop(ctx context.Context) error {
	if _, err := i.Command(ctx, "stop"); err != nil {
		return err
	}
	i.mu.Lock()
	i.loadedPath = ""
	i.mu.Unlock()
	return nil
}

// Seek moves the playhead; an empty mode means relative.
func (i *Instance) Seek(ctx context.Context, value float64, mode string) error {
	if mode == "" {
		mode = SeekRelative
	}
	_, err := i.Command(ctx, "seek", value, mode)
	return err
}

func (i *Instance) SetProperty(ctx context.Context, name string, value any) error {
	_, err := i.Command(ctx, "set_property", name, value)
	return err
}

// GetProperty returns the raw property value. A property the engine cannot
// currently provide, or a skipped command, yields nil with no error.
func (i *Instance) GetProperty(ctx context.Context, name string) (json.RawMessage, error) {
	resp, err := i.Command(ctx, "get_property", name)
	if err != nil {
		if IsPropertyUnavailable(err) {
			return nil, nil
		}
		return nil, err
	}
	if resp.Skipped {
		return nil, nil
	}
	return resp.Data, nil
}

// ObserveProperty subscribes to changes of name and returns the observation id.
func (i *Instance) ObserveProperty(ctx context.Context, name string) (int64, error) {
	id := i.observers.add(name)
	if _, err := i.Command(ctx, "observe_property", id, name); err != nil {
		return id, err
	}
	return id, nil
}

// Cycle advances a property to its next value, for example "sub" or "mute".
func (i *Instance) Cycle(ctx context.Context, property string) error {
	_, err := i.Command(ctx, "cycle", property)
	return err
}

// SetTrack selects a track by id for the given type. id may be a track
// number, "auto" or "no".
func (i *Instance) SetTrack(ctx context.Context, trackType string, id any) error {
	property, err := trackProperty(trackType)
	if err != nil {
		return err
	}
	return i.SetProperty(ctx, property, id)
}

func trackProperty(trackType string) (string, error) {
	switch trackType {
	case TrackAudio:
		return "aid", nil
	case TrackSubtitle:
		return "sid", nil
	case TrackVideo:
		return "vid", nil
	default:
		return "", fmt.Errorf("unknown track type %q", trackType)
	}
}

func (i *Instance) SetChapter(ctx context.Context, chapter int) error {
	return i.SetProperty(ctx, "chapter", chapter)
}

// StepChapter moves delta chapters forward or back.
func (i *Instance) StepChapter(ctx context.Context, delta int) error {
	_, err := i.Command(ctx, "add", "chapter", delta)
	return err
}

func (i *Instance) FrameStep(ctx context.Context) error {
	_, err := i.Command(ctx, "frame-step")
	return err
}

func (i *Instance) FrameBackStep(ctx context.Context) error {
	_, err := i.Command(ctx, "frame-back-step")
	return err
}

func (i *Instance) SetABLoopA(ctx context.Context, seconds float64) error {
	return i.SetProperty(ctx, "ab-loop-a", seconds)
}

func (i *Instance) SetABLoopB(ctx context.Context, seconds float64) error {
	return i.SetProperty(ctx, "ab-loop-b", seconds)
}

func (i *Instance) ClearABLoop(ctx context.Context) error {
	if err := i.SetProperty(ctx, "ab-loop-a", "no"); err != nil {
		return err
	}
	return i.SetProperty(ctx, "ab-loop-b", "no")
}

// ScreenshotToFile writes the current frame to path; an empty mode means "video".
func (i *Instance) ScreenshotToFile(ctx context.Context, path, mode string) error {
	if mode == "" {
		mode = "video"
	}
	_, err := i.Command(ctx, "screenshot-to-file", path, mode)
	return err
}

// Quit asks the engine to exit. The process exit is reported as an Exit event.
func (i *Instance) Quit(ctx context.Context) error {
	_, err := i.Command(ctx, "quit")
	return err
}
