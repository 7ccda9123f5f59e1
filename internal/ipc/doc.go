// Package ipc implements the framing used on mpv's JSON control channel.
//
// Every message is a single JSON object terminated by a newline. The
// Decoder accepts arbitrary byte chunks, keeps any partial trailing line
// for the next chunk, and silently drops lines that fail to parse so a torn
// read can never poison the session. EncodeCommand produces the outbound
// form {"command": [...], "request_id": N}.
//
// The package is transport-agnostic: both the playback and the capture
// engine instances share it while owning separate Decoders.
package ipc
