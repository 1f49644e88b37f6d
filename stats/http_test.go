package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeReader struct {
	users   map[string]*UserStats
	entries []LeaderboardEntry
}

func (f *fakeReader) UserStats(_ context.Context, username string) (*UserStats, error) {
	if s, ok := f.users[username]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (f *fakeReader) AllStats(_ context.Context) ([]*UserStats, error) {
	var all []*UserStats
	for _, s := range f.users {
		all = append(all, s)
	}
	return all, nil
}

func (f *fakeReader) Leaderboard(_ context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[:limit], nil
}

func newTestHandler() *Handler {
	return NewHandler(&fakeReader{
		users: map[string]*UserStats{
			"alice": {Username: "alice", Wins: 3, Losses: 1, TotalGamesPlayed: 4},
		},
		entries: []LeaderboardEntry{
			{Username: "alice", Wins: 3},
			{Username: "bob", Wins: 1},
		},
	})
}

func get(t *testing.T, handler *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestStatsHealth(t *testing.T) {
	w := get(t, newTestHandler(), "/health")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestUserStatsEndpoint(t *testing.T) {
	w := get(t, newTestHandler(), "/api/stats/alice")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var stats UserStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if stats.Username != "alice" || stats.Wins != 3 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestUserStatsEndpoint_NotFound(t *testing.T) {
	w := get(t, newTestHandler(), "/api/stats/nobody")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestAllStatsEndpoint(t *testing.T) {
	w := get(t, newTestHandler(), "/api/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var all []UserStats
	if err := json.NewDecoder(w.Body).Decode(&all); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 record, got %d", len(all))
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	w := get(t, newTestHandler(), "/api/leaderboard?limit=1")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var entries []LeaderboardEntry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(entries) != 1 || entries[0].Username != "alice" {
		t.Errorf("Unexpected leaderboard: %+v", entries)
	}
}

func TestLeaderboardEndpoint_BadLimitIgnored(t *testing.T) {
	w := get(t, newTestHandler(), "/api/leaderboard?limit=banana")
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with default limit, got %d", w.Code)
	}
}
