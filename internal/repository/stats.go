package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"customs-league/internal/domain"

	"github.com/rs/zerolog"
)

type StatsRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewStatsRepository(db *sql.DB, logger zerolog.Logger) *StatsRepository {
	return &StatsRepository{db: db, logger: logger}
}

func (r *StatsRepository) CreateSubmission(ctx context.Context, sub *domain.MatchStatsSubmission) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO match_stats_submissions (id, match_id, map_name, source, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.MatchID, sub.MapName, sub.Source, sub.Status, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}

	for _, row := range sub.Rows {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO submission_rows (id, submission_id, team, position, user_id, player_identity_hint, resolved_user_id,
			 acs, kills, deaths, assists, plus_minus, kd, damage_delta, adr, headshot_percent, kast, first_kills, first_deaths, multi_kills)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.ID, sub.ID, row.Team, row.Position, nullable(row.UserID), row.PlayerIdentityHint, row.ResolvedUserID,
			row.ACS, row.Kills, row.Deaths, row.Assists, row.PlusMinus, row.KD, row.DamageDelta,
			row.ADR, row.HeadshotPercent, row.Kast, row.FirstKills, row.FirstDeaths, row.MultiKills)
		if err != nil {
			return fmt.Errorf("failed to insert submission row: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE matches SET stats_status = ?, version = version + 1, updated_at = ? WHERE id = ? AND stats_status != ?`,
		domain.SubmissionPendingReview, time.Now(), sub.MatchID, domain.SubmissionConfirmed)
	if err != nil {
		return fmt.Errorf("failed to update match stats status: %w", err)
	}

	return tx.Commit()
}

func (r *StatsRepository) GetSubmission(ctx context.Context, id string) (*domain.MatchStatsSubmission, error) {
	sub := &domain.MatchStatsSubmission{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, match_id, map_name, source, status, created_at, updated_at
		 FROM match_stats_submissions WHERE id = ?`, id).
		Scan(&sub.ID, &sub.MatchID, &sub.MapName, &sub.Source, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, submission_id, team, position, user_id, player_identity_hint, resolved_user_id,
		 acs, kills, deaths, assists, plus_minus, kd, damage_delta, adr, headshot_percent, kast, first_kills, first_deaths, multi_kills
		 FROM submission_rows WHERE submission_id = ? ORDER BY team, position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load submission rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var row domain.SubmissionRow
		var userID sql.NullString
		if err := rows.Scan(&row.ID, &row.SubmissionID, &row.Team, &row.Position, &userID, &row.PlayerIdentityHint, &row.ResolvedUserID,
			&row.ACS, &row.Kills, &row.Deaths, &row.Assists, &row.PlusMinus, &row.KD, &row.DamageDelta,
			&row.ADR, &row.HeadshotPercent, &row.Kast, &row.FirstKills, &row.FirstDeaths, &row.MultiKills); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		row.UserID = userID.String
		sub.Rows = append(sub.Rows, row)
	}
	return sub, rows.Err()
}

// ConfirmSubmission applies a reviewed submission in one transaction:
// it writes the stats rows (overwrite, not append), flips the map to
// played with its winner, rejects sibling pending submissions for the
// same map and marks the submission confirmed. A map that already has
// a confirmed submission makes the whole transaction fail without
// touching existing stats.
func (r *StatsRepository) ConfirmSubmission(ctx context.Context, sub *domain.MatchStatsSubmission, stats []domain.PlayerMatchStats, mapWinnerTeamID *string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var confirmed int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_stats_submissions WHERE match_id = ? AND map_name = ? AND status = ?`,
		sub.MatchID, sub.MapName, domain.SubmissionConfirmed).Scan(&confirmed)
	if err != nil {
		return fmt.Errorf("failed to check confirmed submissions: %w", err)
	}
	if confirmed > 0 {
		return &domain.SubmissionConflictError{MapName: sub.MapName}
	}

	for _, row := range sub.Rows {
		_, err = tx.ExecContext(ctx,
			`UPDATE submission_rows SET resolved_user_id = ? WHERE id = ?`,
			row.ResolvedUserID, row.ID)
		if err != nil {
			return fmt.Errorf("failed to store resolved identity: %w", err)
		}
	}

	for _, st := range stats {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM player_match_stats WHERE match_id = ? AND map_name = ? AND user_id = ?`,
			st.MatchID, st.MapName, st.UserID)
		if err != nil {
			return fmt.Errorf("failed to clear stats row: %w", err)
		}
		if err := insertStats(ctx, tx, st); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE map_selections SET was_played = 1, winner_team_id = ? WHERE match_id = ? AND map_name = ?`,
		mapWinnerTeamID, sub.MatchID, sub.MapName)
	if err != nil {
		return fmt.Errorf("failed to mark map played: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE match_stats_submissions SET status = ?, updated_at = ? WHERE match_id = ? AND map_name = ? AND status = ? AND id != ?`,
		domain.SubmissionRejected, time.Now(), sub.MatchID, sub.MapName, domain.SubmissionPendingReview, sub.ID)
	if err != nil {
		return fmt.Errorf("failed to reject sibling submissions: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE match_stats_submissions SET status = ?, updated_at = ? WHERE id = ?`,
		domain.SubmissionConfirmed, time.Now(), sub.ID)
	if err != nil {
		return fmt.Errorf("failed to confirm submission: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE matches SET stats_status = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		domain.SubmissionConfirmed, time.Now(), sub.MatchID)
	if err != nil {
		return fmt.Errorf("failed to update match stats status: %w", err)
	}

	return tx.Commit()
}

func (r *StatsRepository) RejectSubmission(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE match_stats_submissions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		domain.SubmissionRejected, time.Now(), id, domain.SubmissionPendingReview)
	if err != nil {
		return fmt.Errorf("failed to reject submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// OverrideStats is the admin path: it rewrites the stats rows for a
// map idempotently without touching submission history.
func (r *StatsRepository) OverrideStats(ctx context.Context, stats []domain.PlayerMatchStats) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, st := range stats {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM player_match_stats WHERE match_id = ? AND map_name = ? AND user_id = ?`,
			st.MatchID, st.MapName, st.UserID)
		if err != nil {
			return fmt.Errorf("failed to clear stats row: %w", err)
		}
		if err := insertStats(ctx, tx, st); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *StatsRepository) StatsForMap(ctx context.Context, matchID, mapName string) ([]domain.PlayerMatchStats, error) {
	return r.queryStats(ctx,
		`SELECT id, match_id, map_name, user_id, kills, deaths, assists, acs, adr, plus_minus, damage_delta,
		 headshot_percent, kast, first_kills, first_deaths, multi_kills, kd, rating20, weight_profile_id, created_at
		 FROM player_match_stats WHERE match_id = ? AND map_name = ? ORDER BY acs DESC`, matchID, mapName)
}

func (r *StatsRepository) StatsForMatch(ctx context.Context, matchID string) ([]domain.PlayerMatchStats, error) {
	return r.queryStats(ctx,
		`SELECT id, match_id, map_name, user_id, kills, deaths, assists, acs, adr, plus_minus, damage_delta,
		 headshot_percent, kast, first_kills, first_deaths, multi_kills, kd, rating20, weight_profile_id, created_at
		 FROM player_match_stats WHERE match_id = ? ORDER BY map_name, acs DESC`, matchID)
}

// RecentRatings returns the latest per-map ratings for a player,
// newest first, for recent-form aggregation.
func (r *StatsRepository) RecentRatings(ctx context.Context, userID string, limit int) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rating20 FROM player_match_stats WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent ratings: %w", err)
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *StatsRepository) queryStats(ctx context.Context, query string, args ...any) ([]domain.PlayerMatchStats, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	defer rows.Close()
	var out []domain.PlayerMatchStats
	for rows.Next() {
		var st domain.PlayerMatchStats
		if err := rows.Scan(&st.ID, &st.MatchID, &st.MapName, &st.UserID, &st.Kills, &st.Deaths, &st.Assists,
			&st.ACS, &st.ADR, &st.PlusMinus, &st.DamageDelta, &st.HeadshotPercent, &st.Kast,
			&st.FirstKills, &st.FirstDeaths, &st.MultiKills, &st.KD, &st.Rating20, &st.WeightProfileID, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func insertStats(ctx context.Context, tx *sql.Tx, st domain.PlayerMatchStats) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO player_match_stats (id, match_id, map_name, user_id, kills, deaths, assists, acs, adr, plus_minus,
		 damage_delta, headshot_percent, kast, first_kills, first_deaths, multi_kills, kd, rating20, weight_profile_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.MatchID, st.MapName, st.UserID, st.Kills, st.Deaths, st.Assists, st.ACS, st.ADR, st.PlusMinus,
		st.DamageDelta, st.HeadshotPercent, st.Kast, st.FirstKills, st.FirstDeaths, st.MultiKills,
		st.KD, st.Rating20, st.WeightProfileID, st.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert stats row: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
