package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lorenzboss/m321-memory/events"
	"github.com/lorenzboss/m321-memory/game/deck"
	"github.com/lorenzboss/m321-memory/game/engine"
	"github.com/lorenzboss/m321-memory/game/session"
)

// Options tunes the game service.
type Options struct {
	// ResolutionDelay is how long two flipped cards stay face-up before
	// the match is evaluated. The delay is deliberate: clients need time
	// to render the second flip before the server reveals the outcome.
	ResolutionDelay time.Duration

	// IdleThreshold is the inactivity age after which sessions are
	// evicted by CleanupIdleSessions.
	IdleThreshold time.Duration
}

// DefaultOptions returns the production tuning.
func DefaultOptions() Options {
	return Options{
		ResolutionDelay: 800 * time.Millisecond,
		IdleThreshold:   30 * time.Minute,
	}
}

// gameServiceImpl implements the GameService interface. The single
// mutex serializes every engine operation, including the deferred
// resolution callback, so each operation runs to completion before the
// next one starts.
type gameServiceImpl struct {
	sessions  *session.Manager
	publisher events.Publisher
	notifier  Notifier
	opts      Options

	mu    sync.Mutex
	clock func() time.Time
}

// NewGameService creates a game service around the given store and
// event publisher.
func NewGameService(sessions *session.Manager, publisher events.Publisher, opts Options) GameService {
	if opts.ResolutionDelay <= 0 {
		opts.ResolutionDelay = DefaultOptions().ResolutionDelay
	}
	if opts.IdleThreshold <= 0 {
		opts.IdleThreshold = DefaultOptions().IdleThreshold
	}
	return &gameServiceImpl{
		sessions:  sessions,
		publisher: publisher,
		opts:      opts,
		clock:     time.Now,
	}
}

// SetNotifier wires the gateway in after construction. The gateway
// needs the service to exist first, hence the setter.
func SetNotifier(svc GameService, n Notifier) {
	if s, ok := svc.(*gameServiceImpl); ok {
		s.notifier = n
	}
}

func (s *gameServiceImpl) CreateGame(ctx context.Context, player engine.Player) (string, *engine.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.sessions.Create(player, deck.Generate(), s.clock())
	log.Info().
		Str("game_id", sess.ID).
		Str("player", player.Name).
		Msg("game created")
	return sess.ID, sess.ViewFor(player.ID)
}

func (s *gameServiceImpl) JoinGame(ctx context.Context, gameID string, player engine.Player) JoinResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(gameID)
	if err != nil {
		return JoinResult{Reason: JoinNotFound}
	}

	now := s.clock()
	if !sess.AddPlayer(player, now) {
		if sess.Status != engine.StatusWaiting {
			return JoinResult{Reason: JoinAlreadyStarted}
		}
		return JoinResult{Reason: JoinFull}
	}
	s.sessions.BindPlayer(player.ID, gameID)

	if sess.Status == engine.StatusWaiting && sess.Full() {
		sess.Start(rand.Intn(engine.MaxPlayers), now)
		log.Info().
			Str("game_id", gameID).
			Str("player", player.Name).
			Msg("game started")

		names := make([]string, len(sess.Players))
		for i, p := range sess.Players {
			names[i] = p.Name
		}
		s.publish(func(ctx context.Context) error {
			return s.publisher.PublishStart(ctx, events.GameStarted{
				MatchID:   gameID,
				Players:   names,
				Timestamp: now,
			})
		})
	}

	return JoinResult{Success: true, Reason: JoinOK, View: sess.ViewFor(player.ID)}
}

func (s *gameServiceImpl) FlipCard(ctx context.Context, playerID, cardID string) *engine.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.GetByPlayer(playerID)
	if err != nil {
		return nil
	}

	if !sess.Flip(playerID, cardID, s.clock()) {
		return nil
	}

	if sess.ProcessingMatch {
		// Second card of the round: evaluate after the flip delay.
		gameID := sess.ID
		time.AfterFunc(s.opts.ResolutionDelay, func() {
			s.resolveMatch(gameID)
		})
	}

	return sess.ViewFor(playerID)
}

// resolveMatch is the scheduler callback. It is a safe no-op when the
// session is gone by the time the timer fires.
func (s *gameServiceImpl) resolveMatch(gameID string) {
	s.mu.Lock()

	sess, err := s.sessions.Get(gameID)
	if err != nil {
		s.mu.Unlock()
		return
	}

	now := s.clock()
	res := sess.Resolve(now)
	if res == nil {
		s.mu.Unlock()
		return
	}

	move := events.GameMove{
		MatchID:        gameID,
		Player:         res.Player.Name,
		FlippedCard1:   res.CardPositions[0],
		FlippedCard2:   res.CardPositions[1],
		Match:          res.Match,
		RemainingPairs: res.RemainingPairs,
		Timestamp:      now,
	}

	var ended *events.GameEnded
	if res.Finished {
		e := buildGameEnded(sess, now)
		ended = &e
		log.Info().
			Str("game_id", gameID).
			Str("winner", sess.Winner).
			Msg("game finished")
	}
	s.mu.Unlock()

	s.publish(func(ctx context.Context) error {
		return s.publisher.PublishMove(ctx, move)
	})
	if ended != nil {
		s.publish(func(ctx context.Context) error {
			return s.publisher.PublishEnd(ctx, *ended)
		})
	}

	if s.notifier != nil {
		s.notifier.GameStateChanged(gameID)
	}
}

func (s *gameServiceImpl) LeaveGame(ctx context.Context, playerID string) (string, bool) {
	s.mu.Lock()

	sess, err := s.sessions.GetByPlayer(playerID)
	if err != nil {
		s.mu.Unlock()
		return "", false
	}

	gameID := sess.ID
	now := s.clock()
	wasPlaying := sess.Status == engine.StatusPlaying

	remaining := sess.RemovePlayer(playerID, now)
	s.sessions.UnbindPlayer(playerID)

	var ended *events.GameEnded
	if remaining == 0 {
		s.sessions.Delete(gameID)
		log.Info().Str("game_id", gameID).Msg("game deleted, all players left")
	} else if wasPlaying {
		// Forfeit: the remaining player wins.
		e := buildGameEnded(sess, now)
		ended = &e
		log.Info().
			Str("game_id", gameID).
			Str("winner", sess.Winner).
			Msg("game forfeited")
	}
	s.mu.Unlock()

	if ended != nil {
		s.publish(func(ctx context.Context) error {
			return s.publisher.PublishEnd(ctx, *ended)
		})
	}
	return gameID, true
}

func (s *gameServiceImpl) GetView(ctx context.Context, gameID, playerID string) *engine.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(gameID)
	if err != nil {
		return nil
	}
	return sess.ViewFor(playerID)
}

func (s *gameServiceImpl) GameViews(ctx context.Context, gameID string) []PlayerView {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(gameID)
	if err != nil {
		return nil
	}

	views := make([]PlayerView, 0, len(sess.Players))
	for _, p := range sess.Players {
		if v := sess.ViewFor(p.ID); v != nil {
			views = append(views, PlayerView{Player: p, View: v})
		}
	}
	return views
}

func (s *gameServiceImpl) CleanupIdleSessions(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.CleanupIdleSessions(s.clock(), s.opts.IdleThreshold)
}

// publish fires a lifecycle event without blocking the caller. Delivery
// failures are logged and never affect game state.
func (s *gameServiceImpl) publish(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to publish lifecycle event")
		}
	}()
}

// buildGameEnded assembles the end-of-game event. Per-player time is
// normalized: raw deliberation time outside [1, duration-1] is replaced
// by an estimate proportional to the player's share of matches, or half
// the duration when nobody scored.
func buildGameEnded(sess *engine.Session, now time.Time) events.GameEnded {
	start := sess.StartTime
	if start.IsZero() {
		start = sess.CreatedAt
	}
	finish := sess.FinishTime
	if finish.IsZero() {
		finish = now
	}
	duration := int(finish.Sub(start).Round(time.Second) / time.Second)

	totalMatches := 0
	for _, score := range sess.Scores {
		totalMatches += score
	}

	stats := make([]events.PlayerStat, 0, len(sess.Players))
	for _, p := range sess.Players {
		score := sess.Scores[p.ID]
		t := int(sess.PlayerTotalTime[p.ID].Round(time.Second) / time.Second)

		if t <= 0 || t > duration {
			if totalMatches > 0 {
				t = duration * score / totalMatches
			} else {
				t = duration / 2
			}
		}
		if t > duration-1 {
			t = duration - 1
		}
		if t < 1 {
			t = 1
		}

		stats = append(stats, events.PlayerStat{
			Username: p.Name,
			Score:    score,
			Time:     t,
		})
	}

	winnerName := ""
	if w, ok := sess.PlayerByID(sess.Winner); ok {
		winnerName = w.Name
	}

	return events.GameEnded{
		MatchID:     sess.ID,
		Winner:      winnerName,
		PlayerStats: stats,
		Duration:    duration,
		Timestamp:   now,
	}
}
