// Package room provides the in-memory room registry: the binding between
// participant identities, their live connections, and game instances.
//
// A Room moves through a strictly forward lifecycle
// (waiting → ready → playing → closing → closed); re-entering the current
// phase is a no-op so teardown paths can race safely. An identity is bound
// to at most one room at a time, but rejoining the same room with a fresh
// connection simply replaces the stored connection handle, which keeps
// reconnects cheap.
//
// The registry also owns the per-room game-loop watch: a 1-second poll of
// the engine's terminal predicate that fires exactly once.
package room
