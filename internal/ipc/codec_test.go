package ipc_test

import (
	"bytes"
	"encoding/json"
	"io"
	"reflect"
	"strings"
	"testing"

	"mpvkit/internal/ipc"
)

const sampleStream = `{"event":"property-change","id":1,"name":"time-pos","data":12.5}
{"request_id":3,"error":"success","data":{"w":1920,"h":1080}}
{"event":"end-file","reason":"error","file_error":"loading failed"}
{"event":"client-message","args":["mpvkit","seek","-5"]}
`

func TestFeedSplitAtEveryOffsetMatchesSingleChunk(t *testing.T) {
	var whole ipc.Decoder
	want := whole.Feed([]byte(sampleStream))
	if len(want) != 4 {
		t.Fatalf("expected 4 frames from whole stream, got %d", len(want))
	}

	for offset := 1; offset < len(sampleStream); offset++ {
		var dec ipc.Decoder
		got := dec.Feed([]byte(sampleStream[:offset]))
		got = append(got, dec.Feed([]byte(sampleStream[offset:]))...)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("split at %d: got %+v want %+v", offset, got, want)
		}
		if dec.Pending() != 0 {
			t.Fatalf("split at %d: expected empty buffer, got %d bytes", offset, dec.Pending())
		}
	}
}

func TestFeedRetainsPartialLine(t *testing.T) {
	var dec ipc.Decoder
	frames := dec.Feed([]byte(`{"event":"seek"}` + "\n" + `{"event":"playback-`))
	if len(frames) != 1 || frames[0].Event != "seek" {
		t.Fatalf("unexpected frames: %+v", frames)
	}
	if dec.Pending() == 0 {
		t.Fatal("expected partial line to be buffered")
	}
	frames = dec.Feed([]byte("restart\"}\n"))
	if len(frames) != 1 || frames[0].Event != "playback-restart" {
		t.Fatalf("unexpected frames after completion: %+v", frames)
	}
}

func TestFeedDropsMalformedLines(t *testing.T) {
	var dropped [][]byte
	dec := ipc.Decoder{OnMalformed: func(line []byte, err error) {
		dropped = append(dropped, line)
	}}
	frames := dec.Feed([]byte("{not json}\n\n{\"event\":\"file-loaded\"}\r\n"))
	if len(frames) != 1 || frames[0].Event != "file-loaded" {
		t.Fatalf("expected only the valid frame, got %+v", frames)
	}
	if len(dropped) != 1 || string(dropped[0]) != "{not json}" {
		t.Fatalf("expected malformed line reported once, got %q", dropped)
	}
}

func TestFrameClassification(t *testing.T) {
	var dec ipc.Decoder
	frames := dec.Feed([]byte(sampleStream))
	if frames[0].IsResponse() {
		t.Fatal("property-change must be an event")
	}
	if !frames[1].IsResponse() || !frames[1].Succeeded() {
		t.Fatalf("expected successful response, got %+v", frames[1])
	}
	if frames[2].Reason != "error" || frames[2].FileError != "loading failed" {
		t.Fatalf("unexpected end-file fields: %+v", frames[2])
	}
	if !reflect.DeepEqual(frames[3].Args, []string{"mpvkit", "seek", "-5"}) {
		t.Fatalf("unexpected client-message args: %v", frames[3].Args)
	}
}

func TestEncodeCommand(t *testing.T) {
	line, err := ipc.EncodeCommand(7, "seek", 30, "absolute+exact")
	if err != nil {
		t.Fatalf("EncodeCommand returned error: %v", err)
	}
	if !bytes.HasSuffix(line, []byte("\n")) || bytes.Count(line, []byte("\n")) != 1 {
		t.Fatalf("expected exactly one trailing newline, got %q", line)
	}
	want := `{"command":["seek",30,"absolute+exact"],"request_id":7}`
	if strings.TrimSpace(string(line)) != want {
		t.Fatalf("unexpected encoding: got %s want %s", line, want)
	}

	id, args, err := ipc.DecodeCommand(line)
	if err != nil {
		t.Fatalf("DecodeCommand returned error: %v", err)
	}
	var verb string
	if err := json.Unmarshal(args[0], &verb); err != nil || verb != "seek" || id != 7 {
		t.Fatalf("round trip mismatch: id=%d verb=%q err=%v", id, verb, err)
	}

	if _, err := ipc.EncodeCommand(1); err == nil {
		t.Fatal("expected error for empty command")
	}
}

type trickleReader struct {
	data []byte
	step int
}

func (r *trickleReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.step
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func TestPumpDeliversFramesInOrder(t *testing.T) {
	var dec ipc.Decoder
	var events []string
	err := dec.Pump(&trickleReader{data: []byte(sampleStream), step: 7}, func(f ipc.Frame) {
		if f.IsResponse() {
			events = append(events, "response")
			return
		}
		events = append(events, f.Event)
	})
	if err != nil {
		t.Fatalf("Pump returned error: %v", err)
	}
	want := []string{"property-change", "response", "end-file", "client-message"}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("unexpected order: got %v want %v", events, want)
	}
}
