// Package config loads, normalizes, and validates mpvkit configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MPVKIT_MPV_PATH. The Config type centralizes every knob the engine,
// capture pipeline and CLI need, so binary overrides, socket placement and
// control-channel timing are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
