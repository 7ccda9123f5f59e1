// Package capture produces scrub-preview frames from a dedicated headless
// engine instance.
//
// GeneratePreview calls arrive at pointer-move rate. The Pipeline drops
// requests that barely moved, debounces the rest, and stamps each surviving
// request with a token. One capture runs at a time; the next waits in a
// single-slot mailbox that newer requests overwrite, and results whose token
// is no longer current are thrown away rather than delivered.
//
// Frames are keyed by a BLAKE3 digest of the NFC-normalized media path and
// the half-second-rounded timestamp. They live on disk under the cache
// directory, guarded by a file lock so concurrent processes never write the
// same frame twice, and in a bounded FIFO memory cache of data URLs.
package capture
