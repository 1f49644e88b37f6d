// Package engine implements the core state machine for a two-player
// memory match session.
//
// The engine package implements the game mechanics including:
//   - Session lifecycle (waiting -> playing -> finished)
//   - Turn legality and the flip/resolve protocol
//   - Match resolution with pair scoring and turn handover
//   - Per-player deliberation-time tracking
//   - Winner determination with the time tie-break
//   - Redacted per-player state snapshots
//
// Core Types:
//
// Session is the authoritative aggregate for one match. Player carries
// the identity handed in by the gateway. Resolution reports the outcome
// of one evaluated pair of flips. View is the only representation ever
// sent to clients; hidden cards carry no symbol information.
//
// Usage:
//
//	sess := engine.NewSession(id, creator, deck.Generate(), time.Now())
//	sess.AddPlayer(joiner, time.Now())
//	sess.Start(rand.Intn(2), time.Now())
//
//	if sess.Flip(playerID, cardID, time.Now()) && sess.ProcessingMatch {
//		// schedule sess.Resolve after the flip delay
//	}
//
// Concurrency:
//
// Session methods are not safe for concurrent use. The game service
// serializes all operations, including the deferred Resolve call, so
// each operation runs to completion before the next one starts.
package engine
