// Package logging assembles structured slog loggers and formatting helpers used
// across mpvkit.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and tags every line with the emitting component so engine
// process output, control-channel traffic and capture activity can be told
// apart. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape as the rest of the system.
package logging
