// Package engine runs chess engines as child processes and speaks their
// line protocol.
//
// An Engine moves through the states
//
//	stopped -> idle <-> searching -> stopped
//
// Start spawns the configured binary, starts a single reader goroutine for
// its output and runs the discovery handshake, which records the engine's
// identity and merges the options it reports into the EngineConfig. Values
// the user tuned earlier survive discovery whenever the option name recurs.
// A handshake that times out only adds or updates the options it saw and never
// removes stored ones.
//
// Every operation first checks whether the process has died and, if so,
// falls back to the stopped state. Operations that do not apply to the
// current state fail with a KindInvalidState error wrapping ErrNotRunning,
// ErrAlreadyRunning or ErrNotSearching, and have no side effect.
//
// # Output
//
// Output lines are pushed onto a bounded queue (QueueCapacity) that drops its
// oldest line when full, and handed synchronously to the registered Listener
// on the reader goroutine. Discovery consumes the queue; Receive exposes it
// to pull-style consumers.
//
// # Status
//
// Spawn failures and incomplete handshakes are reported to the StatusSink
// given with WithStatusSink, exactly once per occurrence.
package engine
