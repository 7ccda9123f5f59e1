// Package logs reads back the JSON log that mpvkit writes under the
// configured log directory.
//
// Tail returns the last N records or everything after a saved offset, and in
// follow mode polls until new lines arrive or the wait expires. Records are
// decoded from the JSON handler's keys and can be filtered by level,
// component, and engine instance so `mpvkit logs` can isolate one engine's
// traffic.
package logs
