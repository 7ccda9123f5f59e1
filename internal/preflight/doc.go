// Package preflight checks the local environment before an engine starts:
// writable socket, cache, screenshot and log directories, and a resolvable
// mpv binary.
//
// The CLI "mpvkit doctor" command renders these results; nothing here starts
// a process.
package preflight
