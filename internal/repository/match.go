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

type MatchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchRepository(db *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{db: db, logger: logger}
}

func (r *MatchRepository) Create(ctx context.Context, m *domain.Match) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO matches (id, host_id, series_type, status, stats_status, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		m.ID, m.HostID, m.SeriesType, m.Status, m.StatsStatus, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}

	for _, t := range m.Teams {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO teams (id, match_id, kind, side, captain_id) VALUES (?, ?, ?, ?, ?)`,
			t.ID, m.ID, t.Kind, t.Side, t.CaptainID)
		if err != nil {
			return fmt.Errorf("failed to insert team %s: %w", t.Kind, err)
		}
		for _, mem := range t.Members {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO team_members (team_id, user_id, joined_at) VALUES (?, ?, ?)`,
				t.ID, mem.UserID, mem.JoinedAt)
			if err != nil {
				return fmt.Errorf("failed to insert member: %w", err)
			}
		}
	}

	return tx.Commit()
}

func (r *MatchRepository) Get(ctx context.Context, id string) (*domain.Match, error) {
	m := &domain.Match{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, host_id, series_type, status, stats_status, winner_team_id, version, created_at, updated_at
		 FROM matches WHERE id = ?`, id).
		Scan(&m.ID, &m.HostID, &m.SeriesType, &m.Status, &m.StatsStatus, &m.WinnerTeamID, &m.Version, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match: %w", err)
	}

	teamRows, err := r.db.QueryContext(ctx,
		`SELECT id, match_id, kind, side, captain_id FROM teams WHERE match_id = ? ORDER BY kind`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}
	defer teamRows.Close()
	for teamRows.Next() {
		var t domain.Team
		if err := teamRows.Scan(&t.ID, &t.MatchID, &t.Kind, &t.Side, &t.CaptainID); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		m.Teams = append(m.Teams, t)
	}
	if err := teamRows.Err(); err != nil {
		return nil, err
	}

	for i := range m.Teams {
		memberRows, err := r.db.QueryContext(ctx,
			`SELECT team_id, user_id, joined_at FROM team_members WHERE team_id = ? ORDER BY joined_at`, m.Teams[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load members: %w", err)
		}
		for memberRows.Next() {
			var mem domain.TeamMember
			if err := memberRows.Scan(&mem.TeamID, &mem.UserID, &mem.JoinedAt); err != nil {
				memberRows.Close()
				return nil, fmt.Errorf("failed to scan member: %w", err)
			}
			m.Teams[i].Members = append(m.Teams[i].Members, mem)
		}
		memberRows.Close()
		if err := memberRows.Err(); err != nil {
			return nil, err
		}
	}

	selRows, err := r.db.QueryContext(ctx,
		`SELECT id, match_id, sort_order, map_name, action, team_id, was_played, winner_team_id
		 FROM map_selections WHERE match_id = ? ORDER BY sort_order`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load selections: %w", err)
	}
	defer selRows.Close()
	for selRows.Next() {
		var sel domain.MapSelection
		if err := selRows.Scan(&sel.ID, &sel.MatchID, &sel.Order, &sel.MapName, &sel.Action, &sel.TeamID, &sel.WasPlayed, &sel.WinnerTeamID); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		m.Selections = append(m.Selections, sel)
	}
	return m, selRows.Err()
}

func (r *MatchRepository) SetStatus(ctx context.Context, matchID string, status domain.MatchStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE matches SET status = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		status, time.Now(), matchID)
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	return nil
}

func (r *MatchRepository) AddMember(ctx context.Context, matchID, teamID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO team_members (team_id, user_id, joined_at) VALUES (?, ?, ?)`,
		teamID, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if err := touch(ctx, tx, matchID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveMember drops the user from whichever team of the match holds
// them and clears captaincy if they held it.
func (r *MatchRepository) RemoveMember(ctx context.Context, matchID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM team_members WHERE user_id = ? AND team_id IN (SELECT id FROM teams WHERE match_id = ?)`,
		userID, matchID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE teams SET captain_id = NULL WHERE match_id = ? AND captain_id = ?`,
		matchID, userID)
	if err != nil {
		return fmt.Errorf("failed to clear captaincy: %w", err)
	}
	if err := touch(ctx, tx, matchID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *MatchRepository) SetCaptain(ctx context.Context, matchID, teamID, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `UPDATE teams SET captain_id = ? WHERE id = ?`, userID, teamID)
	if err != nil {
		return fmt.Errorf("failed to set captain: %w", err)
	}
	if err := touch(ctx, tx, matchID); err != nil {
		return err
	}
	return tx.Commit()
}

// MoveMember shifts a user between teams of the same match, clearing
// captaincy on the team they leave.
func (r *MatchRepository) MoveMember(ctx context.Context, matchID, userID, toTeamID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM team_members WHERE user_id = ? AND team_id IN (SELECT id FROM teams WHERE match_id = ?)`,
		userID, matchID)
	if err != nil {
		return fmt.Errorf("failed to detach member: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE teams SET captain_id = NULL WHERE match_id = ? AND captain_id = ? AND id != ?`,
		matchID, userID, toTeamID)
	if err != nil {
		return fmt.Errorf("failed to clear captaincy: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO team_members (team_id, user_id, joined_at) VALUES (?, ?, ?)`,
		toTeamID, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to attach member: %w", err)
	}
	if err := touch(ctx, tx, matchID); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceRosters rewrites team membership wholesale, used by the admin
// team override. Rosters are keyed by team id.
func (r *MatchRepository) ReplaceRosters(ctx context.Context, matchID string, rosters map[string][]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for teamID, userIDs := range rosters {
		if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = ?`, teamID); err != nil {
			return fmt.Errorf("failed to clear team: %w", err)
		}
		for _, userID := range userIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO team_members (team_id, user_id, joined_at) VALUES (?, ?, ?)`,
				teamID, userID, now); err != nil {
				return fmt.Errorf("failed to assign member: %w", err)
			}
		}
		// Captaincy survives only if the captain is still on the team.
		if _, err := tx.ExecContext(ctx,
			`UPDATE teams SET captain_id = NULL
			 WHERE id = ? AND captain_id IS NOT NULL
			 AND captain_id NOT IN (SELECT user_id FROM team_members WHERE team_id = ?)`,
			teamID, teamID); err != nil {
			return fmt.Errorf("failed to reconcile captaincy: %w", err)
		}
	}
	if err := touch(ctx, tx, matchID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *MatchRepository) AppendSelections(ctx context.Context, matchID string, sels []domain.MapSelection) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertSelections(ctx, tx, matchID, sels); err != nil {
		return err
	}
	if err := touch(ctx, tx, matchID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *MatchRepository) ReplaceSelections(ctx context.Context, matchID string, sels []domain.MapSelection) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM map_selections WHERE match_id = ?`, matchID); err != nil {
		return fmt.Errorf("failed to clear selections: %w", err)
	}
	if err := insertSelections(ctx, tx, matchID, sels); err != nil {
		return err
	}
	if err := touch(ctx, tx, matchID); err != nil {
		return err
	}
	return tx.Commit()
}

func insertSelections(ctx context.Context, tx *sql.Tx, matchID string, sels []domain.MapSelection) error {
	for _, sel := range sels {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO map_selections (id, match_id, sort_order, map_name, action, team_id, was_played, winner_team_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sel.ID, matchID, sel.Order, sel.MapName, sel.Action, sel.TeamID, sel.WasPlayed, sel.WinnerTeamID)
		if err != nil {
			return fmt.Errorf("failed to insert selection %s: %w", sel.MapName, err)
		}
	}
	return nil
}

func touch(ctx context.Context, tx *sql.Tx, matchID string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE matches SET version = version + 1, updated_at = ? WHERE id = ?`,
		time.Now(), matchID)
	if err != nil {
		return fmt.Errorf("failed to bump match version: %w", err)
	}
	return nil
}
