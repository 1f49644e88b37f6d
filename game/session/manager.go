package session

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/lorenzboss/m321-memory/game/deck"
	"github.com/lorenzboss/m321-memory/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrPlayerNotBound  = errors.New("player is not in a session")
)

// Manager owns the live sessions of one coordinator process. It keeps
// two maps: session id to session, and player id to session id, so a
// player's current game can be found without scanning.
type Manager struct {
	sessions map[string]*engine.Session
	players  map[string]string
	mu       sync.RWMutex
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*engine.Session),
		players:  make(map[string]string),
	}
}

// Create inserts a new waiting session for the given player and returns
// it. The id is a 4-digit numeric code, unique among live sessions.
func (m *Manager) Create(creator engine.Player, cards []*deck.Card, now time.Time) *engine.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.generateSessionID()
	sess := engine.NewSession(id, creator, cards, now)
	m.sessions[id] = sess
	m.players[creator.ID] = id
	return sess
}

// Get retrieves a session by id.
func (m *Manager) Get(id string) (*engine.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// GetByPlayer retrieves the session a player is currently bound to.
func (m *Manager) GetByPlayer(playerID string) (*engine.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.players[playerID]
	if !ok {
		return nil, ErrPlayerNotBound
	}
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// BindPlayer records which session a player belongs to.
func (m *Manager) BindPlayer(playerID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.players[playerID] = sessionID
}

// UnbindPlayer drops a player's reverse-index entry.
func (m *Manager) UnbindPlayer(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.players, playerID)
}

// Delete removes a session and all of its players' bindings.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	for _, p := range sess.Players {
		delete(m.players, p.ID)
	}
	delete(m.sessions, id)
	return nil
}

// List returns all live sessions.
func (m *Manager) List() []*engine.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*engine.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupIdleSessions removes sessions with no activity within maxAge,
// including their players' reverse-index entries. Returns how many were
// removed.
func (m *Manager) CleanupIdleSessions(now time.Time, maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if sess.Idle(now, maxAge) {
			for _, p := range sess.Players {
				delete(m.players, p.ID)
			}
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// generateSessionID returns a 4-digit code not used by any live
// session. Codes are recycled once a session is gone; they only need to
// be unique among concurrent games. Caller must hold m.mu.
func (m *Manager) generateSessionID() string {
	for {
		id := fmt.Sprintf("%04d", 1000+rand.Intn(9000))
		if _, taken := m.sessions[id]; !taken {
			return id
		}
	}
}
