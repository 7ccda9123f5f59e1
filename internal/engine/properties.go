package engine

import (
	"encoding/json"
	"maps"
	"sync"
)

// DefaultObservedProperties are subscribed on every connect when
// Options.ObserveDefaults is set.
var DefaultObservedProperties = []string{
	"time-pos",
	"duration",
	"pause",
	"volume",
	"mute",
	"speed",
	"eof-reached",
	"track-list",
	"chapter-list",
	"chapter",
	"media-title",
	"video-params",
	"dwidth",
	"dheight",
	"container-fps",
	"demuxer-cache-state",
	"sub-delay",
	"sub-visibility",
	"estimated-vf-fps",
	"video-bitrate",
	"audio-bitrate",
	"frame-drop-count",
	"paused-for-cache",
	"seeking",
}

// observerRegistry hands out observation ids and remembers the last value
// seen for every observed property.
type observerRegistry struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]string
	values map[string]json.RawMessage
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{
		byID:   make(map[int64]string),
		values: make(map[string]json.RawMessage),
	}
}

// add allocates the next observation id. Ids are never reused.
func (r *observerRegistry) add(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.byID[r.nextID] = name
	return r.nextID
}

// record stores a change and fills in the property name from the id when the
// engine omitted it.
func (r *observerRegistry) record(change PropertyChange) PropertyChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	if change.Property == "" {
		change.Property = r.byID[change.ID]
	}
	if change.Property != "" {
		r.values[change.Property] = change.Value
	}
	return change
}

func (r *observerRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *observerRegistry) snapshot() map[string]json.RawMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.values)
}

func (r *observerRegistry) clearValues() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.values)
}

// reset forgets every observation and value. nextID is kept so ids stay
// unique for the registry's lifetime.
func (r *observerRegistry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.byID)
	clear(r.values)
}
