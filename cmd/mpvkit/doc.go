// Package main hosts the mpvkit CLI entrypoint and command graph.
//
// The Cobra command tree is a thin host around the engine, capture, and relay
// packages: it resolves configuration, builds the slog logger, and turns
// invocations into playback sessions, property probes, preview captures,
// cache maintenance, environment checks, and log viewing. Behavior belongs in the internal packages; commands here
// only wire them together and format output.
package main
