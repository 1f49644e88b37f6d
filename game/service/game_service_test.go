package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lorenzboss/m321-memory/events"
	"github.com/lorenzboss/m321-memory/game/engine"
	"github.com/lorenzboss/m321-memory/game/session"
)

var (
	testAlice = engine.Player{ID: "p1", Name: "alice"}
	testBob   = engine.Player{ID: "p2", Name: "bob"}
)

// capturePublisher records published events for assertions. Publishing
// is asynchronous, so tests poll via the wait helpers.
type capturePublisher struct {
	mu     sync.Mutex
	starts []events.GameStarted
	moves  []events.GameMove
	ends   []events.GameEnded
}

func (p *capturePublisher) PublishStart(_ context.Context, e events.GameStarted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts = append(p.starts, e)
	return nil
}

func (p *capturePublisher) PublishMove(_ context.Context, e events.GameMove) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moves = append(p.moves, e)
	return nil
}

func (p *capturePublisher) PublishEnd(_ context.Context, e events.GameEnded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ends = append(p.ends, e)
	return nil
}

func (p *capturePublisher) counts() (int, int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.starts), len(p.moves), len(p.ends)
}

// waitUntil polls cond for up to one second.
func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// newTestService wires a service with a fast resolution delay and a
// capture publisher, returning the backing store for inspection.
func newTestService(t *testing.T) (GameService, *session.Manager, *capturePublisher) {
	t.Helper()
	manager := session.NewManager()
	pub := &capturePublisher{}
	svc := NewGameService(manager, pub, Options{
		ResolutionDelay: 10 * time.Millisecond,
		IdleThreshold:   30 * time.Minute,
	})
	return svc, manager, pub
}

// startGame creates a game and joins both players.
func startGame(t *testing.T, svc GameService) string {
	t.Helper()
	gameID, _ := svc.CreateGame(context.Background(), testAlice)
	result := svc.JoinGame(context.Background(), gameID, testBob)
	if !result.Success {
		t.Fatalf("Failed to join game: %s", result.Reason)
	}
	return gameID
}

// matchingPair finds the board positions of one unmatched pair.
func matchingPair(t *testing.T, manager *session.Manager, gameID string) (string, string) {
	t.Helper()
	sess, err := manager.Get(gameID)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	bySymbol := make(map[string]string)
	for _, c := range sess.Cards {
		if c.Matched {
			continue
		}
		if other, ok := bySymbol[c.Symbol]; ok {
			return other, c.ID
		}
		bySymbol[c.Symbol] = c.ID
	}
	t.Fatal("No unmatched pair left")
	return "", ""
}

func currentPlayer(t *testing.T, manager *session.Manager, gameID string) engine.Player {
	t.Helper()
	sess, err := manager.Get(gameID)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	p, ok := sess.CurrentPlayer()
	if !ok {
		t.Fatal("Session has no current player")
	}
	return p
}

func TestCreateGame(t *testing.T) {
	svc, _, _ := newTestService(t)

	gameID, view := svc.CreateGame(context.Background(), testAlice)
	if len(gameID) != 4 {
		t.Errorf("Expected 4-digit game id, got %q", gameID)
	}
	if view == nil {
		t.Fatal("Expected creator view")
	}
	if view.Status != engine.StatusWaiting {
		t.Errorf("Expected waiting status, got %q", view.Status)
	}
	if len(view.Cards) == 0 {
		t.Error("Expected a dealt board")
	}
}

func TestJoinGame_StartsWhenFull(t *testing.T) {
	svc, _, pub := newTestService(t)

	gameID, _ := svc.CreateGame(context.Background(), testAlice)
	result := svc.JoinGame(context.Background(), gameID, testBob)

	if !result.Success || result.Reason != JoinOK {
		t.Fatalf("Expected successful join, got %+v", result)
	}
	if result.View.Status != engine.StatusPlaying {
		t.Errorf("Expected playing status after second join, got %q", result.View.Status)
	}

	waitUntil(t, func() bool {
		starts, _, _ := pub.counts()
		return starts == 1
	}, "Expected a game-start event")

	pub.mu.Lock()
	defer pub.mu.Unlock()
	start := pub.starts[0]
	if start.MatchID != gameID {
		t.Errorf("Expected start event for %q, got %q", gameID, start.MatchID)
	}
	if len(start.Players) != 2 {
		t.Errorf("Expected 2 players in start event, got %v", start.Players)
	}
}

func TestJoinGame_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	result := svc.JoinGame(context.Background(), "0000", testBob)
	if result.Success || result.Reason != JoinNotFound {
		t.Errorf("Expected not_found, got %+v", result)
	}
}

func TestJoinGame_AlreadyStarted(t *testing.T) {
	svc, _, _ := newTestService(t)
	gameID := startGame(t, svc)

	carol := engine.Player{ID: "p3", Name: "carol"}
	result := svc.JoinGame(context.Background(), gameID, carol)
	if result.Success || result.Reason != JoinAlreadyStarted {
		t.Errorf("Expected already_started, got %+v", result)
	}
}

func TestJoinGame_Rejoin(t *testing.T) {
	svc, _, _ := newTestService(t)
	gameID, _ := svc.CreateGame(context.Background(), testAlice)

	result := svc.JoinGame(context.Background(), gameID, testAlice)
	if !result.Success {
		t.Errorf("Expected creator re-join to succeed, got %+v", result)
	}
	if result.View.Status != engine.StatusWaiting {
		t.Errorf("Expected still waiting after re-join, got %q", result.View.Status)
	}
}

func TestFlipCard_ResolvesMatchAfterDelay(t *testing.T) {
	svc, manager, pub := newTestService(t)
	gameID := startGame(t, svc)

	actor := currentPlayer(t, manager, gameID)
	first, second := matchingPair(t, manager, gameID)

	if v := svc.FlipCard(context.Background(), actor.ID, first); v == nil {
		t.Fatal("Expected first flip to succeed")
	}
	v := svc.FlipCard(context.Background(), actor.ID, second)
	if v == nil {
		t.Fatal("Expected second flip to succeed")
	}
	if !v.ProcessingMatch {
		t.Error("Expected processing lock right after second flip")
	}

	// The pair resolves after the configured delay.
	waitUntil(t, func() bool {
		_, moves, _ := pub.counts()
		return moves == 1
	}, "Expected a move event after resolution")

	view := svc.GetView(context.Background(), gameID, actor.ID)
	if view.ProcessingMatch {
		t.Error("Expected processing lock released after resolution")
	}
	if view.Scores[actor.ID] != 1 {
		t.Errorf("Expected score 1 after match, got %d", view.Scores[actor.ID])
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	move := pub.moves[0]
	if !move.Match {
		t.Error("Expected move event to record a match")
	}
	if move.Player != actor.Name {
		t.Errorf("Expected move by %q, got %q", actor.Name, move.Player)
	}
}

func TestFlipCard_RejectedOutOfTurn(t *testing.T) {
	svc, manager, _ := newTestService(t)
	gameID := startGame(t, svc)

	actor := currentPlayer(t, manager, gameID)
	waiting := testAlice
	if actor.ID == testAlice.ID {
		waiting = testBob
	}
	first, _ := matchingPair(t, manager, gameID)

	if v := svc.FlipCard(context.Background(), waiting.ID, first); v != nil {
		t.Error("Expected flip out of turn to be rejected")
	}
}

func TestFlipCard_UnknownPlayer(t *testing.T) {
	svc, _, _ := newTestService(t)
	if v := svc.FlipCard(context.Background(), "stranger", "card"); v != nil {
		t.Error("Expected flip by unbound player to be rejected")
	}
}

func TestFlipCard_NotifiesAfterResolution(t *testing.T) {
	svc, manager, _ := newTestService(t)
	gameID := startGame(t, svc)

	notified := make(chan string, 4)
	SetNotifier(svc, notifierFunc(func(id string) { notified <- id }))

	actor := currentPlayer(t, manager, gameID)
	first, second := matchingPair(t, manager, gameID)
	svc.FlipCard(context.Background(), actor.ID, first)
	svc.FlipCard(context.Background(), actor.ID, second)

	select {
	case id := <-notified:
		if id != gameID {
			t.Errorf("Expected notification for %q, got %q", gameID, id)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a state-change notification")
	}
}

type notifierFunc func(gameID string)

func (f notifierFunc) GameStateChanged(gameID string) { f(gameID) }

func TestLeaveGame_DeletesEmptySession(t *testing.T) {
	svc, manager, _ := newTestService(t)
	gameID, _ := svc.CreateGame(context.Background(), testAlice)

	left, ok := svc.LeaveGame(context.Background(), testAlice.ID)
	if !ok || left != gameID {
		t.Fatalf("Expected to leave %q, got %q, %v", gameID, left, ok)
	}
	if _, err := manager.Get(gameID); err == nil {
		t.Error("Expected empty session to be deleted")
	}
}

func TestLeaveGame_ForfeitPublishesEnd(t *testing.T) {
	svc, manager, pub := newTestService(t)
	gameID := startGame(t, svc)

	if _, ok := svc.LeaveGame(context.Background(), testAlice.ID); !ok {
		t.Fatal("Expected leave to succeed")
	}

	sess, err := manager.Get(gameID)
	if err != nil {
		t.Fatalf("Expected session kept for remaining player: %v", err)
	}
	if sess.Status != engine.StatusFinished || sess.Winner != testBob.ID {
		t.Errorf("Expected bob to win by forfeit, got status=%q winner=%q", sess.Status, sess.Winner)
	}

	waitUntil(t, func() bool {
		_, _, ends := pub.counts()
		return ends == 1
	}, "Expected a game-end event on forfeit")

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.ends[0].Winner != testBob.Name {
		t.Errorf("Expected winner %q in end event, got %q", testBob.Name, pub.ends[0].Winner)
	}
}

func TestLeaveGame_DuringResolutionWindow(t *testing.T) {
	manager := session.NewManager()
	pub := &capturePublisher{}
	svc := NewGameService(manager, pub, Options{
		ResolutionDelay: 50 * time.Millisecond,
		IdleThreshold:   30 * time.Minute,
	})
	gameID := startGame(t, svc)

	actor := currentPlayer(t, manager, gameID)
	first, second := matchingPair(t, manager, gameID)
	svc.FlipCard(context.Background(), actor.ID, first)
	svc.FlipCard(context.Background(), actor.ID, second)

	// The actor leaves before the scheduled resolution fires.
	if _, ok := svc.LeaveGame(context.Background(), actor.ID); !ok {
		t.Fatal("Expected leave to succeed")
	}

	time.Sleep(150 * time.Millisecond)

	sess, err := manager.Get(gameID)
	if err != nil {
		t.Fatalf("Expected session kept for remaining player: %v", err)
	}
	remaining := sess.Players[0]
	if sess.Winner != remaining.ID {
		t.Errorf("Expected forfeit winner %q kept, got %q", remaining.ID, sess.Winner)
	}
	if sess.Scores[remaining.ID] != 0 {
		t.Errorf("Expected no score credited by the stray timer, got %d", sess.Scores[remaining.ID])
	}
	for _, c := range sess.Cards {
		if c.Matched {
			t.Errorf("Expected no card matched by the stray timer, got %+v", c)
		}
	}

	_, moves, ends := pub.counts()
	if moves != 0 {
		t.Errorf("Expected no move event for the finished game, got %d", moves)
	}
	if ends != 1 {
		t.Errorf("Expected exactly one end event, got %d", ends)
	}
}

func TestLeaveGame_UnknownPlayer(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, ok := svc.LeaveGame(context.Background(), "stranger"); ok {
		t.Error("Expected leave by unbound player to fail")
	}
}

func TestGameViews(t *testing.T) {
	svc, _, _ := newTestService(t)
	gameID := startGame(t, svc)

	views := svc.GameViews(context.Background(), gameID)
	if len(views) != 2 {
		t.Fatalf("Expected 2 per-player views, got %d", len(views))
	}
	if views[0].View.IsYourTurn == views[1].View.IsYourTurn {
		t.Error("Expected exactly one player to hold the turn")
	}
}

func TestCleanupIdleSessions(t *testing.T) {
	svc, _, _ := newTestService(t)
	gameID, _ := svc.CreateGame(context.Background(), testAlice)

	impl := svc.(*gameServiceImpl)
	impl.clock = func() time.Time { return time.Now().Add(31 * time.Minute) }

	removed := svc.CleanupIdleSessions(context.Background())
	if removed != 1 {
		t.Fatalf("Expected 1 idle session removed, got %d", removed)
	}
	if v := svc.GetView(context.Background(), gameID, testAlice.ID); v != nil {
		t.Error("Expected evicted session to be gone")
	}
}

func TestBuildGameEnded_NormalizesTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sess := engine.NewSession("1234", testAlice, nil, now)
	sess.AddPlayer(testBob, now)
	sess.Start(0, now)
	sess.StartTime = now
	sess.FinishTime = now.Add(60 * time.Second)
	sess.Status = engine.StatusFinished
	sess.Winner = testAlice.ID
	sess.Scores[testAlice.ID] = 6
	sess.Scores[testBob.ID] = 2
	sess.PlayerTotalTime[testAlice.ID] = 40 * time.Second
	sess.PlayerTotalTime[testBob.ID] = 0 // never accrued

	ended := buildGameEnded(sess, sess.FinishTime)
	if ended.Duration != 60 {
		t.Fatalf("Expected duration 60, got %d", ended.Duration)
	}
	if ended.Winner != testAlice.Name {
		t.Errorf("Expected winner %q, got %q", testAlice.Name, ended.Winner)
	}

	byName := make(map[string]events.PlayerStat)
	for _, st := range ended.PlayerStats {
		byName[st.Username] = st
	}

	// Alice's measured time is plausible and kept as-is.
	if got := byName[testAlice.Name].Time; got != 40 {
		t.Errorf("Expected alice's time 40, got %d", got)
	}
	// Bob's zero time is replaced by his share of the duration: 60*2/8.
	if got := byName[testBob.Name].Time; got != 15 {
		t.Errorf("Expected bob's time normalized to 15, got %d", got)
	}
}

func TestBuildGameEnded_NoMatches(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sess := engine.NewSession("1234", testAlice, nil, now)
	sess.AddPlayer(testBob, now)
	sess.Start(0, now)
	sess.FinishTime = now.Add(10 * time.Second)
	sess.Status = engine.StatusFinished

	ended := buildGameEnded(sess, sess.FinishTime)
	for _, st := range ended.PlayerStats {
		// No matches at all: half the duration, clamped into range.
		if st.Time != 5 {
			t.Errorf("Expected time 5 for %s, got %d", st.Username, st.Time)
		}
	}
}
