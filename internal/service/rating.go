package service

import (
	"context"
	"time"

	"customs-league/internal/config"
	"customs-league/internal/constants"
	"customs-league/internal/domain"
	"customs-league/internal/rating"
	"customs-league/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// RatingService finalizes decided series: it resolves the winner,
// computes Elo deltas, appends the ledger and completes the match as
// one atomic unit. It also serves the read-only rating projections.
type RatingService struct {
	matchRepo  *repository.MatchRepository
	playerRepo *repository.PlayerRepository
	statsRepo  *repository.StatsRepository
	eloRepo    *repository.EloRepository
	locks      *MatchLocks
	eloCfg     rating.EloConfig
	eloInitial int
	logger     zerolog.Logger
}

func NewRatingService(cfg *config.Config, matchRepo *repository.MatchRepository, playerRepo *repository.PlayerRepository, statsRepo *repository.StatsRepository, eloRepo *repository.EloRepository, locks *MatchLocks, logger zerolog.Logger) *RatingService {
	return &RatingService{
		matchRepo:  matchRepo,
		playerRepo: playerRepo,
		statsRepo:  statsRepo,
		eloRepo:    eloRepo,
		locks:      locks,
		eloCfg: rating.EloConfig{
			KCalibrating:       cfg.EloKCalibrating,
			KStable:            cfg.EloKStable,
			CalibrationMatches: cfg.EloCalibrationMatches,
		},
		eloInitial: cfg.EloInitial,
		logger:     logger,
	}
}

// Finalize resolves the series and applies the rating update. It
// refuses while the required map-win count is not reached and refuses
// to double-apply a match that already has ledger entries.
func (s *RatingService) Finalize(ctx context.Context, matchID string) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	defer s.locks.Acquire(matchID)()

	m, err := s.matchRepo.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := notTerminal(m); err != nil {
		return nil, err
	}
	if m.Status != domain.StatusInProgress && m.Status != domain.StatusVoting {
		return nil, &domain.StateTransitionError{From: m.Status, To: domain.StatusCompleted, Reason: "series can only be finalized from IN_PROGRESS or VOTING"}
	}

	applied, err := s.eloRepo.HasEntryForMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, &domain.StateTransitionError{From: m.Status, To: domain.StatusCompleted, Reason: "rating already applied for this match"}
	}

	alpha, bravo := m.Alpha(), m.Bravo()
	winnerID, err := rating.SeriesWinner(m.Selections, alpha.ID, bravo.ID, m.SeriesType)
	if err != nil {
		return nil, err
	}

	winnerTeam, loserTeam := alpha, bravo
	if winnerID == bravo.ID {
		winnerTeam, loserTeam = bravo, alpha
	}
	winners, err := s.playerRepo.GetMany(ctx, userIDs(winnerTeam))
	if err != nil {
		return nil, err
	}
	losers, err := s.playerRepo.GetMany(ctx, userIDs(loserTeam))
	if err != nil {
		return nil, err
	}

	updates := rating.ComputeSeries(s.eloCfg, winners, losers)
	entries := make([]domain.EloHistory, 0, len(updates))
	now := time.Now()
	for _, u := range updates {
		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.EloHistory{
			ID:         id,
			UserID:     u.UserID,
			MatchID:    matchID,
			OldElo:     u.OldElo,
			NewElo:     u.NewElo,
			Change:     u.Change,
			KFactor:    u.KFactor,
			Won:        u.Won,
			SeriesType: m.SeriesType,
			CreatedAt:  now,
		})
	}

	if err := s.eloRepo.ApplySeriesResult(ctx, matchID, winnerID, entries); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("match_id", matchID).
		Str("winner_team_id", winnerID).
		Int("players_rated", len(entries)).
		Msg("series finalized")
	return s.matchRepo.Get(ctx, matchID)
}

// RegisterPlayer creates or refreshes a player profile. New players
// start at the configured initial Elo; re-registering updates the
// display name and tag without touching ratings.
func (s *RatingService) RegisterPlayer(ctx context.Context, id, name, tag string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	p := &domain.Player{ID: id, Name: name, Tag: tag, Elo: s.eloInitial, PeakElo: s.eloInitial}
	if err := s.playerRepo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", id).Str("name", p.DisplayName()).Msg("player registered")
	return s.playerRepo.Get(ctx, id)
}

// Player is the profile lookup.
func (s *RatingService) Player(ctx context.Context, id string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	return s.playerRepo.Get(ctx, id)
}

// EloHistoryFor is the read-only ledger projection for profile views.
func (s *RatingService) EloHistoryFor(ctx context.Context, userID string) ([]domain.EloHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	return s.eloRepo.HistoryFor(ctx, userID)
}

func (s *RatingService) Leaderboard(ctx context.Context) ([]domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	return s.playerRepo.Leaderboard(ctx, constants.LeaderboardLimit)
}

// RecentForm is the mean of the player's latest per-map ratings.
func (s *RatingService) RecentForm(ctx context.Context, userID string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	ratings, err := s.statsRepo.RecentRatings(ctx, userID, constants.RecentFormMaps)
	if err != nil {
		return 0, err
	}
	return rating.RecentForm(ratings), nil
}

func userIDs(t *domain.Team) []string {
	out := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		out = append(out, m.UserID)
	}
	return out
}
