// Package engine supervises an external mpv process and speaks its JSON
// control protocol.
//
// An Instance resolves the mpv binary, launches it with a generated input
// config and a unique control endpoint, and dials that endpoint with bounded
// retries. Once connected, a reader goroutine splits incoming frames: responses
// settle the matching pending request by id, everything else becomes a typed
// Event queued to a dispatch goroutine that feeds subscribed Listeners in
// arrival order.
//
// Commands wait briefly for readiness and are skipped rather than failed when
// the engine never comes up; Fallback and GetPropertyOr turn the remaining
// transient failures into caller-supplied defaults. Destroy rejects every
// pending request and joins all goroutines, so an Instance leaves nothing
// behind.
//
// Playback and capture each own a separate Instance; they share no state.
package engine
