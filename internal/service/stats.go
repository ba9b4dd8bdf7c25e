package service

import (
	"context"
	"time"

	"customs-league/internal/constants"
	"customs-league/internal/domain"
	"customs-league/internal/rating"
	"customs-league/internal/reconcile"
	"customs-league/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// StatsService ingests per-map stat rows, reconciles extracted
// identities against the roster and drives the submission review
// state. Confirmation is the only path that writes PlayerMatchStats.
type StatsService struct {
	matchRepo  *repository.MatchRepository
	statsRepo  *repository.StatsRepository
	playerRepo *repository.PlayerRepository
	weightRepo *repository.WeightRepository
	locks      *MatchLocks
	logger     zerolog.Logger
}

func NewStatsService(matchRepo *repository.MatchRepository, statsRepo *repository.StatsRepository, playerRepo *repository.PlayerRepository, weightRepo *repository.WeightRepository, locks *MatchLocks, logger zerolog.Logger) *StatsService {
	return &StatsService{matchRepo: matchRepo, statsRepo: statsRepo, playerRepo: playerRepo, weightRepo: weightRepo, locks: locks, logger: logger}
}

// Submit records a new submission for a played map. Identity hints are
// reconciled eagerly where possible; rows that stay unmatched keep the
// submission in PENDING_REVIEW for a human. Multiple submissions per
// map may coexist while none is confirmed.
func (s *StatsService) Submit(ctx context.Context, matchID, mapName string, source domain.SubmissionSource, rows []domain.StatRow) (*domain.MatchStatsSubmission, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	defer s.locks.Acquire(matchID)()

	m, err := s.matchRepo.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := statsOpen(m); err != nil {
		return nil, err
	}
	sel := m.SelectionFor(mapName)
	if sel == nil || sel.Action == domain.ActionBan {
		return nil, &domain.TurnOrderError{Reason: "map " + mapName + " is not part of the series"}
	}

	candidates, err := s.candidates(ctx, m)
	if err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	sub := &domain.MatchStatsSubmission{
		ID:        id,
		MatchID:   matchID,
		MapName:   mapName,
		Source:    source,
		Status:    domain.SubmissionPendingReview,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, row := range rows {
		rowID, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		sr := domain.SubmissionRow{ID: rowID, SubmissionID: id, StatRow: row}
		resolveRow(&sr, m, candidates)
		sub.Rows = append(sub.Rows, sr)
	}

	if err := s.statsRepo.CreateSubmission(ctx, sub); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("match_id", matchID).
		Str("map", mapName).
		Str("submission_id", id).
		Str("source", string(source)).
		Int("rows", len(sub.Rows)).
		Msg("stats submission recorded")
	return sub, nil
}

// Confirm applies a reviewed submission. Every row must be resolved to
// a roster member; the reviewer names the map winner since scoreboard
// rows do not carry the round score. Confirmation writes the stats
// rows, flips the map to played and terminates sibling pending
// submissions, all in one transaction.
func (s *StatsService) Confirm(ctx context.Context, submissionID string, winner domain.TeamKind) (*domain.MatchStatsSubmission, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	sub, err := s.statsRepo.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	defer s.locks.Acquire(sub.MatchID)()

	m, err := s.matchRepo.Get(ctx, sub.MatchID)
	if err != nil {
		return nil, err
	}
	if err := statsOpen(m); err != nil {
		return nil, err
	}
	if sub.Status != domain.SubmissionPendingReview {
		return nil, &domain.SubmissionConflictError{MapName: sub.MapName}
	}
	if winner != domain.TeamAlpha && winner != domain.TeamBravo {
		return nil, &domain.TurnOrderError{Reason: "map winner must be ALPHA or BRAVO"}
	}

	candidates, err := s.candidates(ctx, m)
	if err != nil {
		return nil, err
	}

	// Re-run reconciliation for rows still unresolved; refuse to
	// confirm while any row has no identity.
	var unmatched []string
	for i := range sub.Rows {
		if sub.Rows[i].ResolvedUserID == nil {
			resolveRow(&sub.Rows[i], m, candidates)
		}
		if sub.Rows[i].ResolvedUserID == nil {
			unmatched = append(unmatched, sub.Rows[i].PlayerIdentityHint)
		}
	}
	if len(unmatched) > 0 {
		return nil, &domain.ReconciliationAmbiguityError{Hints: unmatched}
	}

	profile, err := s.weightRepo.Active(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]domain.PlayerMatchStats, 0, len(sub.Rows))
	now := time.Now()
	for _, row := range sub.Rows {
		statID, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		stats = append(stats, domain.PlayerMatchStats{
			ID:              statID,
			MatchID:         sub.MatchID,
			MapName:         sub.MapName,
			UserID:          *row.ResolvedUserID,
			Kills:           row.Kills,
			Deaths:          row.Deaths,
			Assists:         row.Assists,
			ACS:             row.ACS,
			ADR:             row.ADR,
			PlusMinus:       row.PlusMinus,
			DamageDelta:     row.DamageDelta,
			HeadshotPercent: row.HeadshotPercent,
			Kast:            row.Kast,
			FirstKills:      row.FirstKills,
			FirstDeaths:     row.FirstDeaths,
			MultiKills:      row.MultiKills,
			KD:              rating.KD(row.Kills, row.Deaths),
			Rating20:        rating.Rating20(row.StatRow, *profile),
			WeightProfileID: profile.ID,
			CreatedAt:       now,
		})
	}

	winnerID := m.TeamOf(winner).ID
	if err := s.statsRepo.ConfirmSubmission(ctx, sub, stats, &winnerID); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("match_id", sub.MatchID).
		Str("map", sub.MapName).
		Str("submission_id", sub.ID).
		Str("winner_team", string(winner)).
		Msg("stats submission confirmed")
	sub.Status = domain.SubmissionConfirmed
	return sub, nil
}

// Reject discards a pending submission without touching match state.
func (s *StatsService) Reject(ctx context.Context, submissionID string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	sub, err := s.statsRepo.GetSubmission(ctx, submissionID)
	if err != nil {
		return err
	}
	defer s.locks.Acquire(sub.MatchID)()

	if err := s.statsRepo.RejectSubmission(ctx, submissionID); err != nil {
		return err
	}
	s.logger.Info().Str("submission_id", submissionID).Str("match_id", sub.MatchID).Msg("stats submission rejected")
	return nil
}

// AdminOverride rewrites the confirmed stats rows for a map. The
// overwrite is idempotent and recomputes derived fields with the
// active weight profile.
func (s *StatsService) AdminOverride(ctx context.Context, matchID, mapName string, rows []domain.StatRow) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	defer s.locks.Acquire(matchID)()

	m, err := s.matchRepo.Get(ctx, matchID)
	if err != nil {
		return err
	}
	if m.Status == domain.StatusCancelled {
		return &domain.StateTransitionError{From: m.Status, To: m.Status, Reason: "match is CANCELLED"}
	}

	profile, err := s.weightRepo.Active(ctx)
	if err != nil {
		return err
	}

	stats := make([]domain.PlayerMatchStats, 0, len(rows))
	now := time.Now()
	for _, row := range rows {
		if row.UserID == "" || m.MemberTeam(row.UserID) == nil {
			return &domain.ReconciliationAmbiguityError{Hints: []string{row.PlayerIdentityHint}}
		}
		statID, err := gonanoid.New()
		if err != nil {
			return err
		}
		stats = append(stats, domain.PlayerMatchStats{
			ID:              statID,
			MatchID:         matchID,
			MapName:         mapName,
			UserID:          row.UserID,
			Kills:           row.Kills,
			Deaths:          row.Deaths,
			Assists:         row.Assists,
			ACS:             row.ACS,
			ADR:             row.ADR,
			PlusMinus:       row.PlusMinus,
			DamageDelta:     row.DamageDelta,
			HeadshotPercent: row.HeadshotPercent,
			Kast:            row.Kast,
			FirstKills:      row.FirstKills,
			FirstDeaths:     row.FirstDeaths,
			MultiKills:      row.MultiKills,
			KD:              rating.KD(row.Kills, row.Deaths),
			Rating20:        rating.Rating20(row, *profile),
			WeightProfileID: profile.ID,
			CreatedAt:       now,
		})
	}

	if err := s.statsRepo.OverrideStats(ctx, stats); err != nil {
		return err
	}
	s.logger.Warn().Str("match_id", matchID).Str("map", mapName).Msg("stats overridden by admin")
	return nil
}

// WeightProfiles lists all rating weight profiles.
func (s *StatsService) WeightProfiles(ctx context.Context) ([]domain.WeightProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	return s.weightRepo.List(ctx)
}

// CreateWeightProfile registers an inactive profile. Weights should
// sum to 1.0; off-sum profiles are accepted and renormalized at
// computation time.
func (s *StatsService) CreateWeightProfile(ctx context.Context, w *domain.WeightProfile) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if w.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return err
		}
		w.ID = id
	}
	if err := s.weightRepo.Create(ctx, w); err != nil {
		return err
	}
	s.logger.Info().Str("profile_id", w.ID).Str("name", w.Name).Float64("sum", w.Sum()).Msg("weight profile created")
	return nil
}

// ActivateWeightProfile switches future rating computations to the
// named profile. Stored ratings keep the profile they were computed
// with.
func (s *StatsService) ActivateWeightProfile(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if err := s.weightRepo.SetActive(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("profile_id", id).Msg("weight profile activated")
	return nil
}

func (s *StatsService) Submission(ctx context.Context, id string) (*domain.MatchStatsSubmission, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	return s.statsRepo.GetSubmission(ctx, id)
}

func (s *StatsService) StatsForMap(ctx context.Context, matchID, mapName string) ([]domain.PlayerMatchStats, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	return s.statsRepo.StatsForMap(ctx, matchID, mapName)
}

// statsOpen guards the submission flow. A map result only exists once
// the match is being played, so submitting or confirming stats before
// IN_PROGRESS (or after the terminal states) is refused.
func statsOpen(m *domain.Match) error {
	if m.Status != domain.StatusInProgress && m.Status != domain.StatusVoting {
		return &domain.StateTransitionError{From: m.Status, To: m.Status, Reason: "match is " + string(m.Status) + ", stats need IN_PROGRESS or VOTING"}
	}
	return nil
}

// candidates builds the reconciliation candidate sets from the player
// profiles of the match roster.
func (s *StatsService) candidates(ctx context.Context, m *domain.Match) (map[string]reconcile.Candidate, error) {
	var ids []string
	for i := range m.Teams {
		for _, mem := range m.Teams[i].Members {
			ids = append(ids, mem.UserID)
		}
	}
	players, err := s.playerRepo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]reconcile.Candidate, len(players))
	for _, p := range players {
		out[p.ID] = reconcile.Candidate{UserID: p.ID, Name: p.Name, Tag: p.Tag}
	}
	return out, nil
}

// resolveRow fills ResolvedUserID for one submission row. Manual rows
// resolve through their explicit user id; extracted rows go through
// fuzzy matching scoped to the row's reported team with a full-roster
// fallback.
func resolveRow(row *domain.SubmissionRow, m *domain.Match, candidates map[string]reconcile.Candidate) {
	if row.UserID != "" {
		if m.MemberTeam(row.UserID) != nil {
			id := row.UserID
			row.ResolvedUserID = &id
		}
		return
	}

	var teamSet, rosterSet []reconcile.Candidate
	if t := m.TeamOf(row.Team); t != nil {
		for _, mem := range t.Members {
			if c, ok := candidates[mem.UserID]; ok {
				teamSet = append(teamSet, c)
			}
		}
	}
	for i := range m.Teams {
		for _, mem := range m.Teams[i].Members {
			if c, ok := candidates[mem.UserID]; ok {
				rosterSet = append(rosterSet, c)
			}
		}
	}

	if id, ok := reconcile.Resolve(row.PlayerIdentityHint, teamSet, rosterSet); ok {
		row.ResolvedUserID = &id
	}
}
