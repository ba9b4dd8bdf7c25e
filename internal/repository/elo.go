package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"customs-league/internal/domain"

	"github.com/rs/zerolog"
)

type EloRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewEloRepository(db *sql.DB, logger zerolog.Logger) *EloRepository {
	return &EloRepository{db: db, logger: logger}
}

// ApplySeriesResult finalizes a decided series atomically: one ledger
// row per player, projection updates on the player profiles, and the
// match flipped to COMPLETED with its winner. Ledger rows are inserts
// only; prior history is never rewritten.
func (r *EloRepository) ApplySeriesResult(ctx context.Context, matchID, winnerTeamID string, entries []domain.EloHistory) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO elo_history (id, user_id, match_id, old_elo, new_elo, change, k_factor, won, series_type, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.UserID, e.MatchID, e.OldElo, e.NewElo, e.Change, e.KFactor, e.Won, e.SeriesType, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to append elo history: %w", err)
		}

		wins, losses := 0, 1
		if e.Won {
			wins, losses = 1, 0
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE players SET elo = ?, peak_elo = MAX(peak_elo, ?), matches_played = matches_played + 1,
			 wins = wins + ?, losses = losses + ?, updated_at = ? WHERE id = ?`,
			e.NewElo, e.NewElo, wins, losses, time.Now(), e.UserID)
		if err != nil {
			return fmt.Errorf("failed to update player projection: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE matches SET status = ?, winner_team_id = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		domain.StatusCompleted, winnerTeamID, time.Now(), matchID)
	if err != nil {
		return fmt.Errorf("failed to complete match: %w", err)
	}

	return tx.Commit()
}

func (r *EloRepository) HistoryFor(ctx context.Context, userID string) ([]domain.EloHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, match_id, old_elo, new_elo, change, k_factor, won, series_type, created_at
		 FROM elo_history WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load elo history: %w", err)
	}
	defer rows.Close()
	var out []domain.EloHistory
	for rows.Next() {
		var e domain.EloHistory
		if err := rows.Scan(&e.ID, &e.UserID, &e.MatchID, &e.OldElo, &e.NewElo, &e.Change, &e.KFactor, &e.Won, &e.SeriesType, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan elo history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// HasEntryForMatch guards against double finalization.
func (r *EloRepository) HasEntryForMatch(ctx context.Context, matchID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM elo_history WHERE match_id = ?`, matchID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check elo history: %w", err)
	}
	return n > 0, nil
}
