package ipc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// SuccessMarker is the error field value mpv uses for a successful response.
const SuccessMarker = "success"

const readChunkSize = 4096

// Frame is one decoded line from the control channel. Responses carry a
// non-zero RequestID; everything else is an event.
type Frame struct {
	RequestID int64           `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`

	Event     string   `json:"event,omitempty"`
	ID        int64    `json:"id,omitempty"`
	Name      string   `json:"name,omitempty"`
	Reason    string   `json:"reason,omitempty"`
	FileError string   `json:"file_error,omitempty"`
	Prefix    string   `json:"prefix,omitempty"`
	Level     string   `json:"level,omitempty"`
	Text      string   `json:"text,omitempty"`
	Args      []string `json:"args,omitempty"`
}

// IsResponse reports whether the frame answers a command.
func (f Frame) IsResponse() bool {
	return f.RequestID != 0 && f.Event == ""
}

// Succeeded reports whether a response carries the success marker.
func (f Frame) Succeeded() bool {
	return f.Error == SuccessMarker
}

// Decoder turns a byte stream into frames. It is not safe for concurrent use.
type Decoder struct {
	buf []byte
	// OnMalformed, when set, observes lines that failed to parse.
	OnMalformed func(line []byte, err error)
}

// Feed appends chunk to the receive buffer and returns every complete frame.
func (d *Decoder) Feed(chunk []byte) []Frame {
	d.buf = append(d.buf, chunk...)

	var frames []Frame
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimSpace(d.buf[:idx])
		d.buf = d.buf[idx+1:]
		if len(line) == 0 {
			continue
		}
		var frame Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			if d.OnMalformed != nil {
				d.OnMalformed(append([]byte(nil), line...), err)
			}
			continue
		}
		frames = append(frames, frame)
	}

	if len(d.buf) == 0 {
		// release the backing array once fully drained
		d.buf = nil
	}
	return frames
}

// Pending returns the number of buffered bytes belonging to an incomplete line.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Reset discards any partial line.
func (d *Decoder) Reset() {
	d.buf = nil
}

// Pump reads r until it fails, handing every decoded frame to fn in wire
// order. A clean EOF returns nil.
func (d *Decoder) Pump(r io.Reader, fn func(Frame)) error {
	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			for _, frame := range d.Feed(chunk[:n]) {
				fn(frame)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

type commandEnvelope struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// EncodeCommand serializes a command with its request id as one newline-terminated line.
func EncodeCommand(requestID int64, args ...any) ([]byte, error) {
	if len(args) == 0 {
		return nil, errors.New("encode command: empty command")
	}
	payload, err := json.Marshal(commandEnvelope{Command: args, RequestID: requestID})
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}
	return append(payload, '\n'), nil
}

// EncodeFrame serializes an inbound-style frame; used by fakes that play the engine side.
func EncodeFrame(frame Frame) ([]byte, error) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return append(payload, '\n'), nil
}

// DecodeCommand parses an outbound command line; used by fakes that play the engine side.
func DecodeCommand(line []byte) (int64, []json.RawMessage, error) {
	var envelope struct {
		Command   []json.RawMessage `json:"command"`
		RequestID int64             `json:"request_id"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(line), &envelope); err != nil {
		return 0, nil, fmt.Errorf("decode command: %w", err)
	}
	return envelope.RequestID, envelope.Command, nil
}
