package service

import (
	"context"
	"time"

	"customs-league/internal/constants"
	"customs-league/internal/domain"
	"customs-league/internal/lifecycle"
	"customs-league/internal/pickban"
	"customs-league/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MatchService drives the match lifecycle: roster membership, state
// transitions, pick/ban turns and the admin override paths. Every
// mutating entry point serializes on the per-match lock and checks the
// terminal states first.
type MatchService struct {
	matchRepo *repository.MatchRepository
	locks     *MatchLocks
	logger    zerolog.Logger
}

func NewMatchService(matchRepo *repository.MatchRepository, locks *MatchLocks, logger zerolog.Logger) *MatchService {
	return &MatchService{matchRepo: matchRepo, locks: locks, logger: logger}
}

func (s *MatchService) Create(ctx context.Context, hostID string, seriesType domain.SeriesType) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	now := time.Now()
	m := &domain.Match{
		ID:          uuid.New().String(),
		HostID:      hostID,
		SeriesType:  seriesType,
		Status:      domain.StatusDraft,
		StatsStatus: domain.SubmissionNotStarted,
		CreatedAt:   now,
		UpdatedAt:   now,
		Teams: []domain.Team{
			{ID: uuid.New().String(), Kind: domain.TeamPool},
			{ID: uuid.New().String(), Kind: domain.TeamAlpha, Side: domain.SideAttacker},
			{ID: uuid.New().String(), Kind: domain.TeamBravo, Side: domain.SideDefender},
		},
	}
	// The host starts in the player pool like everyone else.
	m.Pool().Members = []domain.TeamMember{{TeamID: m.Pool().ID, UserID: hostID, JoinedAt: now}}

	if err := s.matchRepo.Create(ctx, m); err != nil {
		s.logger.Error().Err(err).Str("match_id", m.ID).Msg("failed to create match")
		return nil, err
	}

	s.logger.Info().Str("match_id", m.ID).Str("series_type", string(seriesType)).Str("host_id", hostID).Msg("match created")
	return s.matchRepo.Get(ctx, m.ID)
}

func (s *MatchService) Get(ctx context.Context, matchID string) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	return s.matchRepo.Get(ctx, matchID)
}

func (s *MatchService) Join(ctx context.Context, matchID, userID string) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	defer s.locks.Acquire(matchID)()

	m, err := s.matchRepo.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := rosterMutable(m); err != nil {
		return nil, err
	}
	if m.MemberTeam(userID) != nil {
		return nil, &domain.RosterCapacityError{Reason: "user already in match"}
	}
	if m.RosterCount() >= 2*domain.TeamSize {
		return nil, &domain.RosterCapacityError{Reason: "match is full"}
	}

	if err := s.matchRepo.AddMember(ctx, matchID, m.Pool().ID, userID); err != nil {
		return nil, err
	}
	s.logger.Info().Str("match_id", matchID).Str("user_id", userID).Msg("player joined")
	return s.matchRepo.Get(ctx, matchID)
}

func (s *MatchService) Leave(ctx context.Context, matchID, userID string) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	defer s.locks.Acquire(matchID)()

	m, err := s.matchRepo.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := rosterMutable(m); err != nil {
		return nil, err
	}
	if m.MemberTeam(userID) == nil {
		return nil, &domain.RosterCapacityError{Reason: "user not in match"}
	}

	if err := s.matchRepo.RemoveMember(ctx, matchID, userID); err != nil {
		return nil, err
	}
	s.logger.Info().Str("match_id", matchID).Str("user_id", userID).Msg("player left")
	return s.matchRepo.Get(ctx, matchID)
}

// AdminRemove drops a member regardless of the join/leave status gate.
// Terminal matches stay immutable even for admins.
func (s *MatchService) AdminRemove(ctx context.Context, matchID, userID string) (*domain.Match, error) {
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
	if m.MemberTeam(userID) == nil {
		return nil, &domain.RosterCapacityError{Reason: "user not in match"}
	}

	if err := s.matchRepo.RemoveMember(ctx, matchID, userID); err != nil {
		return nil, err
	}
	s.logger.Info().Str("match_id", matchID).Str("user_id", userID).Msg("player removed by admin")
	return s.matchRepo.Get(ctx, matchID)
}

// SetCaptain promotes a user to captain of a playing team. A user
// still in the pool is pulled onto the team first, so the
// captain-is-member invariant holds by construction.
func (s *MatchService) SetCaptain(ctx context.Context, matchID, teamID, userID string) (*domain.Match, error) {
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
	team := m.TeamByID(teamID)
	if team == nil || team.Kind == domain.TeamPool {
		return nil, &domain.RosterCapacityError{Reason: "no such playing team"}
	}

	switch {
	case team.HasMember(userID):
		// already seated
	case m.Pool().HasMember(userID):
		if len(team.Members) >= domain.TeamSize {
			return nil, &domain.RosterCapacityError{Reason: "team is full"}
		}
		if err := s.matchRepo.MoveMember(ctx, matchID, userID, teamID); err != nil {
			return nil, err
		}
	default:
		return nil, &domain.RosterCapacityError{Reason: "captain must be a match member"}
	}

	if err := s.matchRepo.SetCaptain(ctx, matchID, teamID, userID); err != nil {
		return nil, err
	}
	s.logger.Info().Str("match_id", matchID).Str("team_id", teamID).Str("user_id", userID).Msg("captain set")
	return s.matchRepo.Get(ctx, matchID)
}

// AssignToTeam moves a pool member onto a playing team during team
// selection.
func (s *MatchService) AssignToTeam(ctx context.Context, matchID, userID string, kind domain.TeamKind) (*domain.Match, error) {
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
	if m.Status != domain.StatusTeamSelection {
		return nil, &domain.StateTransitionError{From: m.Status, To: m.Status, Reason: "team assignment only during team selection"}
	}
	if kind == domain.TeamPool {
		return nil, &domain.RosterCapacityError{Reason: "cannot assign to the pool"}
	}
	if !m.Pool().HasMember(userID) {
		return nil, &domain.RosterCapacityError{Reason: "user not in player pool"}
	}
	target := m.TeamOf(kind)
	if len(target.Members) >= domain.TeamSize {
		return nil, &domain.RosterCapacityError{Reason: "team already has 5 members"}
	}

	if err := s.matchRepo.MoveMember(ctx, matchID, userID, target.ID); err != nil {
		return nil, err
	}
	return s.matchRepo.Get(ctx, matchID)
}

// Advance moves the match to the intended state, or the natural next
// state when none is given, after evaluating the transition guards.
func (s *MatchService) Advance(ctx context.Context, matchID string, intended *domain.MatchStatus) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	defer s.locks.Acquire(matchID)()

	m, err := s.matchRepo.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}

	to := domain.MatchStatus("")
	if intended != nil {
		to = *intended
	} else if next, ok := lifecycle.Next(m.Status); ok {
		to = next
	} else {
		return nil, &domain.StateTransitionError{From: m.Status, To: m.Status, Reason: "no successor state"}
	}

	applied, err := lifecycle.Advance(lifecycle.ViewOf(m), to)
	if err != nil {
		return nil, err
	}
	if err := s.matchRepo.SetStatus(ctx, matchID, applied); err != nil {
		return nil, err
	}
	s.logger.Info().Str("match_id", matchID).Str("from", string(m.Status)).Str("to", string(applied)).Msg("match advanced")
	return s.matchRepo.Get(ctx, matchID)
}

// Cancel moves the match to CANCELLED from any non-terminal state.
// Irreversible.
func (s *MatchService) Cancel(ctx context.Context, matchID string) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	defer s.locks.Acquire(matchID)()

	m, err := s.matchRepo.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	applied, err := lifecycle.Advance(lifecycle.ViewOf(m), domain.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if err := s.matchRepo.SetStatus(ctx, matchID, applied); err != nil {
		return nil, err
	}
	s.logger.Warn().Str("match_id", matchID).Msg("match cancelled")
	return s.matchRepo.Get(ctx, matchID)
}

// AdminSetStatus force-sets the status, skipping the workflow guards
// but not the data invariants or terminal-state immutability.
func (s *MatchService) AdminSetStatus(ctx context.Context, matchID string, status domain.MatchStatus) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()
	defer s.locks.Acquire(matchID)()

	m, err := s.matchRepo.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, &domain.StateTransitionError{From: m.Status, To: status, Reason: "unknown status"}
	}
	if err := notTerminal(m); err != nil {
		return nil, err
	}
	if err := lifecycle.CheckInvariants(m); err != nil {
		return nil, err
	}
	if err := s.matchRepo.SetStatus(ctx, matchID, status); err != nil {
		return nil, err
	}
	s.logger.Warn().Str("match_id", matchID).Str("status", string(status)).Msg("status force-set by admin")
	return s.matchRepo.Get(ctx, matchID)
}

// AdminOverrideTeams force-assigns rosters, keyed by team kind. The
// workflow preconditions are skipped; the data invariants are not.
func (s *MatchService) AdminOverrideTeams(ctx context.Context, matchID string, rosters map[domain.TeamKind][]string) (*domain.Match, error) {
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

	byID := make(map[string][]string, len(rosters))
	prospective := *m
	prospective.Teams = make([]domain.Team, len(m.Teams))
	copy(prospective.Teams, m.Teams)
	for kind, userIDs := range rosters {
		team := prospective.TeamOf(kind)
		if team == nil {
			return nil, &domain.RosterCapacityError{Reason: "no such team " + string(kind)}
		}
		members := make([]domain.TeamMember, 0, len(userIDs))
		for _, id := range userIDs {
			members = append(members, domain.TeamMember{TeamID: team.ID, UserID: id})
		}
		team.Members = members
		if team.CaptainID != nil && !team.HasMember(*team.CaptainID) {
			team.CaptainID = nil
		}
		byID[team.ID] = userIDs
	}
	if err := lifecycle.CheckInvariants(&prospective); err != nil {
		return nil, err
	}

	if err := s.matchRepo.ReplaceRosters(ctx, matchID, byID); err != nil {
		return nil, err
	}
	s.logger.Warn().Str("match_id", matchID).Msg("teams force-assigned by admin")
	return s.matchRepo.Get(ctx, matchID)
}

// AdminOverrideMaps force-sets the map list. Names and orders must
// still be unique.
func (s *MatchService) AdminOverrideMaps(ctx context.Context, matchID string, sels []domain.MapSelection) (*domain.Match, error) {
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

	for i := range sels {
		if sels[i].ID == "" {
			sels[i].ID = uuid.New().String()
		}
		sels[i].MatchID = matchID
	}
	prospective := *m
	prospective.Selections = sels
	if err := lifecycle.CheckInvariants(&prospective); err != nil {
		return nil, err
	}

	if err := s.matchRepo.ReplaceSelections(ctx, matchID, sels); err != nil {
		return nil, err
	}
	s.logger.Warn().Str("match_id", matchID).Int("maps", len(sels)).Msg("map list force-set by admin")
	return s.matchRepo.Get(ctx, matchID)
}

// SubmitPickBan applies one captain's turn. Team Alpha picks first by
// convention. When the applied action exhausts the sequence the match
// advances to IN_PROGRESS in the same critical section.
func (s *MatchService) SubmitPickBan(ctx context.Context, matchID, captainID, mapName string, action domain.MapAction) (*domain.Match, error) {
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
	if m.Status != domain.StatusMapPickBan {
		return nil, &domain.StateTransitionError{From: m.Status, To: m.Status, Reason: "pick/ban only runs in MAP_PICK_BAN"}
	}

	var acting domain.TeamKind
	switch {
	case m.Alpha().IsCaptain(captainID):
		acting = domain.TeamAlpha
	case m.Bravo().IsCaptain(captainID):
		acting = domain.TeamBravo
	default:
		return nil, &domain.TurnOrderError{Reason: "only team captains act in pick/ban"}
	}

	newSels, err := pickban.Apply(m.Selections, m.SeriesType, domain.TeamAlpha, pickban.DefaultPool, acting, mapName, action)
	if err != nil {
		return nil, err
	}
	for i := range newSels {
		newSels[i].ID = uuid.New().String()
		newSels[i].MatchID = matchID
		if newSels[i].Action != domain.ActionDecider {
			teamID := m.TeamOf(acting).ID
			newSels[i].TeamID = &teamID
		}
	}
	if err := s.matchRepo.AppendSelections(ctx, matchID, newSels); err != nil {
		return nil, err
	}

	turn := pickban.ComputeTurn(append(m.Selections, newSels...), m.SeriesType, domain.TeamAlpha, len(pickban.DefaultPool))
	if turn.Done {
		if err := s.matchRepo.SetStatus(ctx, matchID, domain.StatusInProgress); err != nil {
			return nil, err
		}
		s.logger.Info().Str("match_id", matchID).Msg("pick/ban finished, match in progress")
	}

	return s.matchRepo.Get(ctx, matchID)
}

func notTerminal(m *domain.Match) error {
	if m.Status.Terminal() {
		return &domain.StateTransitionError{From: m.Status, To: m.Status, Reason: "match is " + string(m.Status)}
	}
	return nil
}

func rosterMutable(m *domain.Match) error {
	if err := notTerminal(m); err != nil {
		return err
	}
	if m.Status != domain.StatusDraft && m.Status != domain.StatusTeamSelection {
		return &domain.StateTransitionError{From: m.Status, To: m.Status, Reason: "join/leave only in DRAFT or TEAM_SELECTION"}
	}
	return nil
}
