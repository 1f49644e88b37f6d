package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("no stats for user")

// PlayerMatchStats is one player's contribution from a single finished
// match, as extracted from a game-ended event.
type PlayerMatchStats struct {
	Username      string
	Score         int
	MatchDuration int
	IsWinner      bool
}

// UserStats is the read model for one user's aggregate record. WinRate
// and AverageGameDuration are computed at read time.
type UserStats struct {
	Username            string  `json:"username"`
	Wins                int     `json:"wins"`
	Losses              int     `json:"losses"`
	WinRate             float64 `json:"winRate"`
	TotalTimePlayed     int     `json:"totalTimePlayed"`
	TotalGamesPlayed    int     `json:"totalGamesPlayed"`
	AverageGameDuration float64 `json:"averageGameDuration"`
	HighestScore        int     `json:"highestScore"`
	TotalMatchedPairs   int     `json:"totalMatchedPairs"`
}

// LeaderboardEntry is one row of the wins leaderboard.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS user_stats (
	username            TEXT PRIMARY KEY,
	wins                INTEGER NOT NULL DEFAULT 0,
	losses              INTEGER NOT NULL DEFAULT 0,
	total_time_played   INTEGER NOT NULL DEFAULT 0,
	total_games_played  INTEGER NOT NULL DEFAULT 0,
	highest_score       INTEGER NOT NULL DEFAULT 0,
	total_matched_pairs INTEGER NOT NULL DEFAULT 0
)`

const upsertUserStatsSQL = `
INSERT INTO user_stats (
	username,
	wins,
	losses,
	total_time_played,
	total_games_played,
	highest_score,
	total_matched_pairs
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (username) DO UPDATE SET
	wins = user_stats.wins + EXCLUDED.wins,
	losses = user_stats.losses + EXCLUDED.losses,
	total_time_played = user_stats.total_time_played + EXCLUDED.total_time_played,
	total_games_played = user_stats.total_games_played + EXCLUDED.total_games_played,
	highest_score = GREATEST(user_stats.highest_score, EXCLUDED.highest_score),
	total_matched_pairs = user_stats.total_matched_pairs + EXCLUDED.total_matched_pairs`

const selectStatsSQL = `
SELECT username, wins, losses, total_time_played, total_games_played,
       highest_score, total_matched_pairs
  FROM user_stats`

// Repository persists per-user aggregates in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps a connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Init creates the schema if it does not exist.
func (r *Repository) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create user_stats table: %w", err)
	}
	return nil
}

// RecordMatch folds one finished match into every participant's
// aggregates. Each player's row is upserted in a single transaction so
// a match is either counted fully or not at all.
func (r *Repository) RecordMatch(ctx context.Context, players []PlayerMatchStats) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range players {
		wins, losses := 0, 1
		if p.IsWinner {
			wins, losses = 1, 0
		}
		if _, err := tx.Exec(ctx, upsertUserStatsSQL,
			p.Username, wins, losses, p.MatchDuration, 1, p.Score, p.Score,
		); err != nil {
			return fmt.Errorf("failed to upsert stats for %s: %w", p.Username, err)
		}
	}

	return tx.Commit(ctx)
}

// UserStats returns one user's aggregate record.
func (r *Repository) UserStats(ctx context.Context, username string) (*UserStats, error) {
	row := r.pool.QueryRow(ctx, selectStatsSQL+" WHERE username = $1", username)
	stats, err := scanUserStats(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return stats, nil
}

// AllStats returns every user's aggregates, best record first.
func (r *Repository) AllStats(ctx context.Context) ([]*UserStats, error) {
	rows, err := r.pool.Query(ctx, selectStatsSQL+" ORDER BY wins DESC, highest_score DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []*UserStats
	for rows.Next() {
		stats, err := scanUserStats(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, stats)
	}
	return all, rows.Err()
}

// Leaderboard returns the top players by wins.
func (r *Repository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT username, wins FROM user_stats ORDER BY wins DESC, highest_score DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Wins); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanUserStats(row pgx.Row) (*UserStats, error) {
	var s UserStats
	if err := row.Scan(&s.Username, &s.Wins, &s.Losses, &s.TotalTimePlayed,
		&s.TotalGamesPlayed, &s.HighestScore, &s.TotalMatchedPairs); err != nil {
		return nil, err
	}
	return derive(&s), nil
}

// derive fills in the computed read-model fields.
func derive(s *UserStats) *UserStats {
	if s.TotalGamesPlayed > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TotalGamesPlayed)
		s.AverageGameDuration = float64(s.TotalTimePlayed) / float64(s.TotalGamesPlayed)
	}
	return s
}
