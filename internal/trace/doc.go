// Package trace records the states reactors publish.
//
// A Recorder implements reactor.Tracer and buffers one Entry per published
// state, with the state in canonical JSON and its domain-separated hash. Flush
// writes the buffer to a Store, a SQLite journal keyed by (reactor_id, seq).
//
// The journal is for audit and inspection (the CLI trace command and the
// scenario harness). Nothing in the engine reads it back: reactors are not
// persisted and never replayed from it.
package trace
