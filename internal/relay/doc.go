// Package relay forwards native input captured by the engine surface back to
// the host.
//
// The engine loads a generated input config that turns keys and mouse
// buttons into script messages addressed to mpvkit. A Relay listens for
// those client-message events, maps each verb to an Action, and holds single
// clicks briefly so a double-click can supersede them. Bind wires a Relay to
// an instance and, for hosts with no UI of their own, drives playback
// directly.
package relay
