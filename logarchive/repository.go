// Package logarchive persists the full per-match event history. It sits
// downstream of the event bus next to the stats aggregator: stats folds
// results into aggregates and forgets, the archive keeps every start,
// move, and end for later replay or inspection.
package logarchive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lorenzboss/m321-memory/events"
)

const logFileName = "game-logs.json"

// MatchLog is the archived record of one match: the start event, every
// move in order, and the end event once it arrives.
type MatchLog struct {
	Game  string              `json:"game"`
	Start *events.GameStarted `json:"start,omitempty"`
	Moves []events.GameMove   `json:"moves"`
	End   *events.GameEnded   `json:"end,omitempty"`
}

// Summary counts what the archive holds.
type Summary struct {
	TotalGames     int `json:"totalGames"`
	CompletedGames int `json:"completedGames"`
	TotalMoves     int `json:"totalMoves"`
}

// Repository stores match logs in a single JSON file, loaded on open
// and rewritten after every recorded event. Matches arrive interleaved
// from the bus, so records are keyed by match id and created on first
// sight regardless of event order.
type Repository struct {
	mu   sync.Mutex
	path string
	logs []*MatchLog
}

// Open loads (or initializes) the archive in the given directory.
func Open(dir string) (*Repository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	r := &Repository{path: filepath.Join(dir, logFileName)}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read log archive: %w", err)
	}
	if err := json.Unmarshal(data, &r.logs); err != nil {
		return nil, fmt.Errorf("failed to parse log archive: %w", err)
	}
	return r, nil
}

// RecordStart archives a game-start event.
func (r *Repository) RecordStart(event events.GameStarted) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.findOrCreate(event.MatchID)
	log.Start = &event
	return r.save()
}

// RecordMove appends one move to its match's history.
func (r *Repository) RecordMove(event events.GameMove) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.findOrCreate(event.MatchID)
	log.Moves = append(log.Moves, event)
	return r.save()
}

// RecordEnd archives a game-end event.
func (r *Repository) RecordEnd(event events.GameEnded) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.findOrCreate(event.MatchID)
	log.End = &event
	return r.save()
}

// MatchLog returns the archived record for one match, if present.
func (r *Repository) MatchLog(matchID string) (*MatchLog, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, log := range r.logs {
		if log.Game == matchID {
			return log, true
		}
	}
	return nil, false
}

// Summarize reports archive totals. A game counts as completed once
// both its start and end events have arrived.
func (r *Repository) Summarize() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{TotalGames: len(r.logs)}
	for _, log := range r.logs {
		if log.Start != nil && log.End != nil {
			s.CompletedGames++
		}
		s.TotalMoves += len(log.Moves)
	}
	return s
}

// findOrCreate returns the record for a match, creating it on first
// sight. Caller must hold r.mu.
func (r *Repository) findOrCreate(matchID string) *MatchLog {
	for _, log := range r.logs {
		if log.Game == matchID {
			return log
		}
	}
	log := &MatchLog{Game: matchID, Moves: []events.GameMove{}}
	r.logs = append(r.logs, log)
	return log
}

// save rewrites the archive file. Caller must hold r.mu.
func (r *Repository) save() error {
	data, err := json.MarshalIndent(r.logs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal log archive: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write log archive: %w", err)
	}
	return nil
}
