package engine

import (
	"encoding/json"

	"mpvkit/internal/ipc"
)

// Kind names an event type. Wire-originated kinds use mpv's event names.
type Kind string

const (
	KindReady           Kind = "ready"
	KindExit            Kind = "exit"
	KindClosed          Kind = "closed"
	KindFailed          Kind = "error"
	KindPropertyChange  Kind = "property-change"
	KindFileLoaded      Kind = "file-loaded"
	KindEndFile         Kind = "end-file"
	KindSeek            Kind = "seek"
	KindPlaybackRestart Kind = "playback-restart"
	KindLogMessage      Kind = "log-message"
	KindClientMessage   Kind = "client-message"
	KindUnknown         Kind = "unknown"
)

// Event is the closed set of notifications an Instance delivers to listeners.
type Event interface {
	Kind() Kind
	event()
}

// Ready is emitted once the control connection is established.
type Ready struct {
	SocketPath string
}

// Exit is emitted when the engine process ends with a non-zero code without
// Destroy being called.
type Exit struct {
	Code int
}

// Closed is emitted when the engine process ends cleanly on its own, for
// example after a quit command or the user closing its window.
type Closed struct{}

// Failed carries spawn and connect failures.
type Failed struct {
	Err error
}

// PropertyChange reports a new value for an observed property.
type PropertyChange struct {
	ID       int64
	Property string
	Value    json.RawMessage
}

type FileLoaded struct{}

// EndFile reports why playback of the current file stopped.
type EndFile struct {
	Reason string
	Error  string
}

type Seek struct{}

type PlaybackRestart struct{}

// LogMessage is a line forwarded by request_log_messages.
type LogMessage struct {
	Prefix string
	Level  string
	Text   string
}

// ClientMessage carries script-message arguments.
type ClientMessage struct {
	Args []string
}

// Unknown wraps any event name mpvkit does not model.
type Unknown struct {
	Name string
}

func (Ready) Kind() Kind           { return KindReady }
func (Exit) Kind() Kind            { return KindExit }
func (Closed) Kind() Kind          { return KindClosed }
func (Failed) Kind() Kind          { return KindFailed }
func (PropertyChange) Kind() Kind  { return KindPropertyChange }
func (FileLoaded) Kind() Kind      { return KindFileLoaded }
func (EndFile) Kind() Kind         { return KindEndFile }
func (Seek) Kind() Kind            { return KindSeek }
func (PlaybackRestart) Kind() Kind { return KindPlaybackRestart }
func (LogMessage) Kind() Kind      { return KindLogMessage }
func (ClientMessage) Kind() Kind   { return KindClientMessage }
func (Unknown) Kind() Kind         { return KindUnknown }

func (Ready) event()           {}
func (Exit) event()            {}
func (Closed) event()          {}
func (Failed) event()          {}
func (PropertyChange) event()  {}
func (FileLoaded) event()      {}
func (EndFile) event()         {}
func (Seek) event()            {}
func (PlaybackRestart) event() {}
func (LogMessage) event()      {}
func (ClientMessage) event()   {}
func (Unknown) event()         {}

// classify maps an event frame onto the closed Event set.
func classify(frame ipc.Frame) Event {
	switch Kind(frame.Event) {
	case KindPropertyChange:
		return PropertyChange{ID: frame.ID, Property: frame.Name, Value: frame.Data}
	case KindFileLoaded:
		return FileLoaded{}
	case KindEndFile:
		return EndFile{Reason: frame.Reason, Error: frame.FileError}
	case KindSeek:
		return Seek{}
	case KindPlaybackRestart:
		return PlaybackRestart{}
	case KindLogMessage:
		return LogMessage{Prefix: frame.Prefix, Level: frame.Level, Text: frame.Text}
	case KindClientMessage:
		return ClientMessage{Args: frame.Args}
	default:
		return Unknown{Name: frame.Event}
	}
}

// isErrorLevel reports engine log levels routed to the error sink.
func isErrorLevel(level string) bool {
	switch level {
	case "fatal", "error", "warn":
		return true
	}
	return false
}
