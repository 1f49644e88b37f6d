// Package service orchestrates game sessions on behalf of the
// connection gateway.
//
// The service layer owns everything the pure engine does not:
//   - Session creation and the player-to-game binding
//   - Random first-player selection when the second player joins
//   - The resolution scheduler (one fire-once timer per completed pair)
//   - Lifecycle event emission to the events.Publisher capability
//   - Gateway notification after deferred resolutions
//
// Concurrency:
//
// One mutex serializes all operations across all sessions, including
// the timer callback. That gives the run-to-completion semantics the
// engine relies on: no operation on a session can observe another
// operation's partial mutation. Event publishing happens outside the
// lock and is fire-and-forget.
package service
