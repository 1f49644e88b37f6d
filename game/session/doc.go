// Package session provides in-memory storage for live game sessions.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Player-to-session reverse indexing
//   - Unique 4-digit session code generation
//   - Idle-session cleanup
//
// Session Identifiers:
//
// Sessions use short numeric codes so one player can read the code to
// the other. Codes are unique among live sessions only; they are
// recycled after a session is deleted.
//
// Concurrency:
//
// The manager is safe for concurrent use. Note that it only guards its
// own maps; mutating a *engine.Session obtained from the manager is the
// game service's responsibility and happens under the service's lock.
//
// Lifecycle:
//
// Sessions are deleted when their last player leaves or when the
// periodic idle sweep finds them inactive beyond the configured
// threshold. Nothing survives a process restart.
package session
