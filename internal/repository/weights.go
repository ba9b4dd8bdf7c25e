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

type WeightRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewWeightRepository(db *sql.DB, logger zerolog.Logger) *WeightRepository {
	return &WeightRepository{db: db, logger: logger}
}

const weightColumns = `id, name, active, w_kill, w_death, w_assist, w_acs, w_adr, w_kast, w_first_kill, w_clutch, created_at`

// Active returns the single active profile. The schema seeds one, so a
// miss here means the data was tampered with.
func (r *WeightRepository) Active(ctx context.Context) (*domain.WeightProfile, error) {
	w := &domain.WeightProfile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+weightColumns+` FROM weight_profiles WHERE active = 1 LIMIT 1`).
		Scan(&w.ID, &w.Name, &w.Active, &w.Kill, &w.Death, &w.Assist, &w.ACS, &w.ADR, &w.Kast, &w.FirstKill, &w.Clutch, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active weight profile: %w", err)
	}
	return w, nil
}

func (r *WeightRepository) Create(ctx context.Context, w *domain.WeightProfile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO weight_profiles (id, name, active, w_kill, w_death, w_assist, w_acs, w_adr, w_kast, w_first_kill, w_clutch, created_at)
		 VALUES (?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Kill, w.Death, w.Assist, w.ACS, w.ADR, w.Kast, w.FirstKill, w.Clutch, time.Now())
	if err != nil {
		return fmt.Errorf("failed to create weight profile: %w", err)
	}
	return nil
}

// SetActive switches the active profile atomically. Historical
// ratings keep the profile they were computed with; nothing is
// recomputed.
func (r *WeightRepository) SetActive(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE weight_profiles SET active = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to activate profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	_, err = tx.ExecContext(ctx, `UPDATE weight_profiles SET active = 0 WHERE id != ?`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate profiles: %w", err)
	}
	return tx.Commit()
}

func (r *WeightRepository) List(ctx context.Context) ([]domain.WeightProfile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+weightColumns+` FROM weight_profiles ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list weight profiles: %w", err)
	}
	defer rows.Close()
	var out []domain.WeightProfile
	for rows.Next() {
		var w domain.WeightProfile
		if err := rows.Scan(&w.ID, &w.Name, &w.Active, &w.Kill, &w.Death, &w.Assist, &w.ACS, &w.ADR, &w.Kast, &w.FirstKill, &w.Clutch, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan weight profile: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
