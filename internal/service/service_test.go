package service

import (
	"context"
	"path/filepath"
	"testing"

	"customs-league/internal/config"
	"customs-league/internal/database"
	"customs-league/internal/domain"
	"customs-league/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	matches *MatchService
	stats   *StatsService
	ratings *RatingService
	players *repository.PlayerRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		DBPath:                filepath.Join(t.TempDir(), "league.db"),
		EloKCalibrating:       32,
		EloKStable:            16,
		EloCalibrationMatches: 10,
	}
	log := zerolog.Nop()

	db, err := database.New(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	matchRepo := repository.NewMatchRepository(db, log)
	statsRepo := repository.NewStatsRepository(db, log)
	playerRepo := repository.NewPlayerRepository(db, log)
	weightRepo := repository.NewWeightRepository(db, log)
	eloRepo := repository.NewEloRepository(db, log)
	locks := NewMatchLocks()

	return &testEnv{
		matches: NewMatchService(matchRepo, locks, log),
		stats:   NewStatsService(matchRepo, statsRepo, playerRepo, weightRepo, locks, log),
		ratings: NewRatingService(cfg, matchRepo, playerRepo, statsRepo, eloRepo, locks, log),
		players: playerRepo,
	}
}

var testUsers = []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8", "u9", "u10"}

var testNames = []string{
	"PlayerOne", "PlayerTwo", "PlayerThree", "PlayerFour", "PlayerFive",
	"PlayerSix", "PlayerSeven", "PlayerEight", "PlayerNine", "PlayerTen",
}

func (e *testEnv) seedPlayers(t *testing.T, ctx context.Context) {
	t.Helper()
	for i, id := range testUsers {
		require.NoError(t, e.players.Upsert(ctx, &domain.Player{
			ID:      id,
			Name:    testNames[i],
			Tag:     "EU",
			Elo:     1000,
			PeakElo: 1000,
		}))
	}
}

// fillPool creates a match hosted by u1 and joins the other nine.
func (e *testEnv) fillPool(t *testing.T, ctx context.Context, series domain.SeriesType) *domain.Match {
	t.Helper()
	m, err := e.matches.Create(ctx, testUsers[0], series)
	require.NoError(t, err)
	for _, id := range testUsers[1:] {
		m, err = e.matches.Join(ctx, m.ID, id)
		require.NoError(t, err)
	}
	return m
}

func manualRows(m *domain.Match) []domain.StatRow {
	rows := make([]domain.StatRow, 0, 10)
	for _, team := range []domain.TeamKind{domain.TeamAlpha, domain.TeamBravo} {
		for i, mem := range m.TeamOf(team).Members {
			rows = append(rows, domain.StatRow{
				Team:       team,
				Position:   i,
				UserID:     mem.UserID,
				ACS:        200 + i*10,
				Kills:      15 + i,
				Deaths:     14,
				Assists:    5,
				ADR:        130,
				Kast:       70,
				FirstKills: 2,
				MultiKills: 1,
			})
		}
	}
	return rows
}

func TestJoinLeaveCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m := env.fillPool(t, ctx, domain.SeriesBO1)
	require.Equal(t, 10, m.RosterCount())

	var capErr *domain.RosterCapacityError
	_, err := env.matches.Join(ctx, m.ID, "u11")
	require.ErrorAs(t, err, &capErr)

	_, err = env.matches.Join(ctx, m.ID, "u5")
	require.ErrorAs(t, err, &capErr)

	m, err = env.matches.Leave(ctx, m.ID, "u10")
	require.NoError(t, err)
	require.Equal(t, 9, m.RosterCount())

	// Once past DRAFT the roster freezes for self-service join/leave.
	m, err = env.matches.Join(ctx, m.ID, "u10")
	require.NoError(t, err)
	_, err = env.matches.Advance(ctx, m.ID, nil)
	require.NoError(t, err)

	var stErr *domain.StateTransitionError
	_, err = env.matches.Leave(ctx, m.ID, "u10")
	require.ErrorAs(t, err, &stErr)
}

func TestAdvanceGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m, err := env.matches.Create(ctx, "u1", domain.SeriesBO3)
	require.NoError(t, err)

	// Nine players is one short of captain voting.
	for _, id := range testUsers[1:9] {
		_, err = env.matches.Join(ctx, m.ID, id)
		require.NoError(t, err)
	}
	var stErr *domain.StateTransitionError
	_, err = env.matches.Advance(ctx, m.ID, nil)
	require.ErrorAs(t, err, &stErr)

	_, err = env.matches.Join(ctx, m.ID, testUsers[9])
	require.NoError(t, err)
	m, err = env.matches.Advance(ctx, m.ID, nil)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCaptainVoting, m.Status)

	// No captains seated yet.
	_, err = env.matches.Advance(ctx, m.ID, nil)
	require.ErrorAs(t, err, &stErr)
}

func TestSetCaptainRefusesFullTeam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m := env.fillPool(t, ctx, domain.SeriesBO1)
	m, err := env.matches.Advance(ctx, m.ID, nil)
	require.NoError(t, err)

	m, err = env.matches.SetCaptain(ctx, m.ID, m.Alpha().ID, "u1")
	require.NoError(t, err)
	m, err = env.matches.SetCaptain(ctx, m.ID, m.Bravo().ID, "u2")
	require.NoError(t, err)
	m, err = env.matches.Advance(ctx, m.ID, nil)
	require.NoError(t, err)

	for _, id := range []string{"u3", "u4", "u5", "u6"} {
		m, err = env.matches.AssignToTeam(ctx, m.ID, id, domain.TeamAlpha)
		require.NoError(t, err)
	}

	// A sixth body cannot be seated by handing it the armband.
	var capErr *domain.RosterCapacityError
	_, err = env.matches.SetCaptain(ctx, m.ID, m.Alpha().ID, "u7")
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, "team is full", capErr.Reason)
}

func TestAdminSetStatusRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m, err := env.matches.Create(ctx, "u1", domain.SeriesBO1)
	require.NoError(t, err)

	var stErr *domain.StateTransitionError
	_, err = env.matches.AdminSetStatus(ctx, m.ID, domain.MatchStatus("IN_PROGRES"))
	require.ErrorAs(t, err, &stErr)

	got, err := env.matches.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDraft, got.Status)
}

func TestCancelFreezesMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m, err := env.matches.Create(ctx, "u1", domain.SeriesBO1)
	require.NoError(t, err)
	m, err = env.matches.Cancel(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, m.Status)

	var stErr *domain.StateTransitionError
	_, err = env.matches.Join(ctx, m.ID, "u2")
	require.ErrorAs(t, err, &stErr)
	_, err = env.matches.Cancel(ctx, m.ID)
	require.ErrorAs(t, err, &stErr)
	_, err = env.matches.AdminSetStatus(ctx, m.ID, domain.StatusDraft)
	require.ErrorAs(t, err, &stErr)
}

// runDraft walks a full pool through captain voting and team selection:
// u1 captains alpha, u2 captains bravo, odd seats go alpha, even bravo.
func runDraft(t *testing.T, ctx context.Context, env *testEnv, m *domain.Match) *domain.Match {
	t.Helper()

	m, err := env.matches.Advance(ctx, m.ID, nil)
	require.NoError(t, err)

	m, err = env.matches.SetCaptain(ctx, m.ID, m.Alpha().ID, "u1")
	require.NoError(t, err)
	m, err = env.matches.SetCaptain(ctx, m.ID, m.Bravo().ID, "u2")
	require.NoError(t, err)

	m, err = env.matches.Advance(ctx, m.ID, nil)
	require.NoError(t, err)
	require.Equal(t, domain.StatusTeamSelection, m.Status)

	for _, id := range []string{"u3", "u5", "u7", "u9"} {
		m, err = env.matches.AssignToTeam(ctx, m.ID, id, domain.TeamAlpha)
		require.NoError(t, err)
	}
	for _, id := range []string{"u4", "u6", "u8", "u10"} {
		m, err = env.matches.AssignToTeam(ctx, m.ID, id, domain.TeamBravo)
		require.NoError(t, err)
	}

	m, err = env.matches.Advance(ctx, m.ID, nil)
	require.NoError(t, err)
	require.Equal(t, domain.StatusMapPickBan, m.Status)
	return m
}

func TestFullBO1Flow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedPlayers(t, ctx)

	m := env.fillPool(t, ctx, domain.SeriesBO1)
	m = runDraft(t, ctx, env, m)

	// Captains alternate bans; the decider is appended automatically.
	bans := []struct {
		captain string
		mapName string
	}{
		{"u1", "Ascent"}, {"u2", "Bind"}, {"u1", "Haven"},
		{"u2", "Split"}, {"u1", "Icebox"}, {"u2", "Breeze"},
	}
	var err error
	var turnErr *domain.TurnOrderError
	for i, b := range bans {
		m, err = env.matches.SubmitPickBan(ctx, m.ID, b.captain, b.mapName, domain.ActionBan)
		require.NoError(t, err)
		if i == 0 {
			// Acting twice in a row and acting as a non-captain are
			// both turn violations.
			_, err = env.matches.SubmitPickBan(ctx, m.ID, "u1", "Bind", domain.ActionBan)
			require.ErrorAs(t, err, &turnErr)
			_, err = env.matches.SubmitPickBan(ctx, m.ID, "u3", "Bind", domain.ActionBan)
			require.ErrorAs(t, err, &turnErr)
		}
	}
	require.Equal(t, domain.StatusInProgress, m.Status)
	require.Len(t, m.Selections, 7)
	decider := m.SelectionFor("Lotus")
	require.NotNil(t, decider)
	require.Equal(t, domain.ActionDecider, decider.Action)

	// The sequence is finished and the match has moved on.
	var stateErr *domain.StateTransitionError
	_, err = env.matches.SubmitPickBan(ctx, m.ID, "u1", "Lotus", domain.ActionBan)
	require.ErrorAs(t, err, &stateErr)

	// Manual scoreboard for the decider, reviewed and confirmed.
	sub, err := env.stats.Submit(ctx, m.ID, "Lotus", domain.SourceManual, manualRows(m))
	require.NoError(t, err)
	require.Equal(t, domain.SubmissionPendingReview, sub.Status)
	for _, row := range sub.Rows {
		require.NotNil(t, row.ResolvedUserID)
	}

	sub, err = env.stats.Confirm(ctx, sub.ID, domain.TeamAlpha)
	require.NoError(t, err)
	require.Equal(t, domain.SubmissionConfirmed, sub.Status)

	m, err = env.matches.Get(ctx, m.ID)
	require.NoError(t, err)
	played := m.SelectionFor("Lotus")
	require.True(t, played.WasPlayed)
	require.Equal(t, m.Alpha().ID, *played.WinnerTeamID)
	require.Equal(t, domain.SubmissionConfirmed, m.StatsStatus)

	stats, err := env.stats.StatsForMap(ctx, m.ID, "Lotus")
	require.NoError(t, err)
	require.Len(t, stats, 10)
	for _, st := range stats {
		require.Equal(t, "wp_default", st.WeightProfileID)
		require.Greater(t, st.Rating20, 0.0)
	}

	// A second submission for the same map cannot be confirmed anymore.
	dup, err := env.stats.Submit(ctx, m.ID, "Lotus", domain.SourceManual, manualRows(m))
	require.NoError(t, err)
	var confErr *domain.SubmissionConflictError
	_, err = env.stats.Confirm(ctx, dup.ID, domain.TeamBravo)
	require.ErrorAs(t, err, &confErr)
	stats, err = env.stats.StatsForMap(ctx, m.ID, "Lotus")
	require.NoError(t, err)
	require.Len(t, stats, 10)

	// Finalization applies Elo and completes the match.
	m, err = env.ratings.Finalize(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, m.Status)
	require.Equal(t, m.Alpha().ID, *m.WinnerTeamID)

	winner, err := env.players.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1016, winner.Elo)
	require.Equal(t, 1016, winner.PeakElo)
	require.Equal(t, 1, winner.MatchesPlayed)
	require.Equal(t, 1, winner.Wins)

	loser, err := env.players.Get(ctx, "u2")
	require.NoError(t, err)
	require.Equal(t, 984, loser.Elo)
	require.Equal(t, 1000, loser.PeakElo)
	require.Equal(t, 1, loser.Losses)

	history, err := env.ratings.EloHistoryFor(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.True(t, history[0].Won)
	require.Equal(t, 16, history[0].Change)
	require.Equal(t, 32, history[0].KFactor)

	board, err := env.ratings.Leaderboard(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, board)
	require.Equal(t, 1016, board[0].Elo)

	// Finalize is not repeatable: the match is terminal now.
	var stErr *domain.StateTransitionError
	_, err = env.ratings.Finalize(ctx, m.ID)
	require.ErrorAs(t, err, &stErr)
}

func TestFinalizeRefusesIncompleteSeries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedPlayers(t, ctx)

	m := env.fillPool(t, ctx, domain.SeriesBO3)
	m, err := env.matches.AdminOverrideTeams(ctx, m.ID, map[domain.TeamKind][]string{
		domain.TeamPool:  {},
		domain.TeamAlpha: {"u1", "u3", "u5", "u7", "u9"},
		domain.TeamBravo: {"u2", "u4", "u6", "u8", "u10"},
	})
	require.NoError(t, err)
	m, err = env.matches.AdminOverrideMaps(ctx, m.ID, []domain.MapSelection{
		{Order: 0, MapName: "Haven", Action: domain.ActionPick},
		{Order: 1, MapName: "Split", Action: domain.ActionPick},
		{Order: 2, MapName: "Lotus", Action: domain.ActionDecider},
	})
	require.NoError(t, err)
	m, err = env.matches.AdminSetStatus(ctx, m.ID, domain.StatusInProgress)
	require.NoError(t, err)

	// One confirmed map out of two required wins.
	sub, err := env.stats.Submit(ctx, m.ID, "Haven", domain.SourceManual, manualRows(m))
	require.NoError(t, err)
	_, err = env.stats.Confirm(ctx, sub.ID, domain.TeamAlpha)
	require.NoError(t, err)

	var incErr *domain.SeriesIncompleteError
	_, err = env.ratings.Finalize(ctx, m.ID)
	require.ErrorAs(t, err, &incErr)

	// The second map win decides the series.
	sub, err = env.stats.Submit(ctx, m.ID, "Split", domain.SourceManual, manualRows(m))
	require.NoError(t, err)
	_, err = env.stats.Confirm(ctx, sub.ID, domain.TeamAlpha)
	require.NoError(t, err)

	m, err = env.ratings.Finalize(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, m.Status)
}

func TestSubmitRejectsMapsOutsideSeries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedPlayers(t, ctx)

	m := env.fillPool(t, ctx, domain.SeriesBO1)
	m, err := env.matches.AdminOverrideMaps(ctx, m.ID, []domain.MapSelection{
		{Order: 0, MapName: "Ascent", Action: domain.ActionBan},
		{Order: 1, MapName: "Lotus", Action: domain.ActionDecider},
	})
	require.NoError(t, err)
	m, err = env.matches.AdminSetStatus(ctx, m.ID, domain.StatusInProgress)
	require.NoError(t, err)

	var turnErr *domain.TurnOrderError
	_, err = env.stats.Submit(ctx, m.ID, "Breeze", domain.SourceManual, nil)
	require.ErrorAs(t, err, &turnErr)
	_, err = env.stats.Submit(ctx, m.ID, "Ascent", domain.SourceManual, nil)
	require.ErrorAs(t, err, &turnErr)
}

func TestStatsRequireMatchInProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedPlayers(t, ctx)

	m := env.fillPool(t, ctx, domain.SeriesBO1)
	m, err := env.matches.AdminOverrideTeams(ctx, m.ID, map[domain.TeamKind][]string{
		domain.TeamPool:  {},
		domain.TeamAlpha: {"u1", "u3", "u5", "u7", "u9"},
		domain.TeamBravo: {"u2", "u4", "u6", "u8", "u10"},
	})
	require.NoError(t, err)
	m, err = env.matches.AdminOverrideMaps(ctx, m.ID, []domain.MapSelection{
		{Order: 0, MapName: "Lotus", Action: domain.ActionDecider},
	})
	require.NoError(t, err)
	m, err = env.matches.AdminSetStatus(ctx, m.ID, domain.StatusMapPickBan)
	require.NoError(t, err)

	// The map is selected but the match is still picking, so results
	// cannot exist yet.
	var stErr *domain.StateTransitionError
	_, err = env.stats.Submit(ctx, m.ID, "Lotus", domain.SourceManual, manualRows(m))
	require.ErrorAs(t, err, &stErr)

	// A submission recorded while playing cannot be confirmed after the
	// match is forced back out of play.
	m, err = env.matches.AdminSetStatus(ctx, m.ID, domain.StatusInProgress)
	require.NoError(t, err)
	sub, err := env.stats.Submit(ctx, m.ID, "Lotus", domain.SourceManual, manualRows(m))
	require.NoError(t, err)
	m, err = env.matches.AdminSetStatus(ctx, m.ID, domain.StatusMapPickBan)
	require.NoError(t, err)
	_, err = env.stats.Confirm(ctx, sub.ID, domain.TeamAlpha)
	require.ErrorAs(t, err, &stErr)

	sel := m.SelectionFor("Lotus")
	require.NotNil(t, sel)
	require.False(t, sel.WasPlayed)
}

func TestOCRSubmissionReconciliation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedPlayers(t, ctx)

	m := env.fillPool(t, ctx, domain.SeriesBO1)
	m, err := env.matches.AdminOverrideTeams(ctx, m.ID, map[domain.TeamKind][]string{
		domain.TeamPool:  {},
		domain.TeamAlpha: {"u1", "u3", "u5", "u7", "u9"},
		domain.TeamBravo: {"u2", "u4", "u6", "u8", "u10"},
	})
	require.NoError(t, err)
	m, err = env.matches.AdminOverrideMaps(ctx, m.ID, []domain.MapSelection{
		{Order: 0, MapName: "Lotus", Action: domain.ActionDecider},
	})
	require.NoError(t, err)
	m, err = env.matches.AdminSetStatus(ctx, m.ID, domain.StatusInProgress)
	require.NoError(t, err)

	// The extracted name survives casing, spacing and @-tag noise.
	rows := []domain.StatRow{
		{Team: domain.TeamAlpha, PlayerIdentityHint: "Player One @EU", Kills: 20, Deaths: 10, ACS: 250},
		{Team: domain.TeamBravo, PlayerIdentityHint: "pLaYeR tWo @eu", Kills: 12, Deaths: 15, ACS: 180},
		{Team: domain.TeamAlpha, PlayerIdentityHint: "somebody else entirely", Kills: 5, Deaths: 18, ACS: 90},
	}
	sub, err := env.stats.Submit(ctx, m.ID, "Lotus", domain.SourceOCR, rows)
	require.NoError(t, err)
	require.NotNil(t, sub.Rows[0].ResolvedUserID)
	require.Equal(t, "u1", *sub.Rows[0].ResolvedUserID)
	require.NotNil(t, sub.Rows[1].ResolvedUserID)
	require.Equal(t, "u2", *sub.Rows[1].ResolvedUserID)
	require.Nil(t, sub.Rows[2].ResolvedUserID)

	// The unmatched row blocks confirmation.
	var ambErr *domain.ReconciliationAmbiguityError
	_, err = env.stats.Confirm(ctx, sub.ID, domain.TeamAlpha)
	require.ErrorAs(t, err, &ambErr)
	require.Contains(t, ambErr.Hints, "somebody else entirely")

	// Rejecting the submission leaves the map unplayed.
	require.NoError(t, env.stats.Reject(ctx, sub.ID))
	got, err := env.stats.Submission(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SubmissionRejected, got.Status)

	m, err = env.matches.Get(ctx, m.ID)
	require.NoError(t, err)
	require.False(t, m.SelectionFor("Lotus").WasPlayed)
}

func TestAdminOverrideStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedPlayers(t, ctx)

	m := env.fillPool(t, ctx, domain.SeriesBO1)
	m, err := env.matches.AdminOverrideTeams(ctx, m.ID, map[domain.TeamKind][]string{
		domain.TeamPool:  {},
		domain.TeamAlpha: {"u1", "u3", "u5", "u7", "u9"},
		domain.TeamBravo: {"u2", "u4", "u6", "u8", "u10"},
	})
	require.NoError(t, err)

	rows := []domain.StatRow{
		{Team: domain.TeamAlpha, UserID: "u1", Kills: 30, Deaths: 10, ACS: 320, ADR: 180, Kast: 80},
	}
	require.NoError(t, env.stats.AdminOverride(ctx, m.ID, "Lotus", rows))

	stats, err := env.stats.StatsForMap(ctx, m.ID, "Lotus")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, "u1", stats[0].UserID)
	require.InDelta(t, 3.0, stats[0].KD, 1e-9)

	// Overwriting the same map and player is idempotent.
	rows[0].Kills = 31
	require.NoError(t, env.stats.AdminOverride(ctx, m.ID, "Lotus", rows))
	stats, err = env.stats.StatsForMap(ctx, m.ID, "Lotus")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, 31, stats[0].Kills)

	// Rows naming a stranger are refused outright.
	var ambErr *domain.ReconciliationAmbiguityError
	err = env.stats.AdminOverride(ctx, m.ID, "Lotus", []domain.StatRow{{UserID: "nobody"}})
	require.ErrorAs(t, err, &ambErr)
}

func TestAdminOverrideTeamsKeepsInvariants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m := env.fillPool(t, ctx, domain.SeriesBO1)

	var capErr *domain.RosterCapacityError
	_, err := env.matches.AdminOverrideTeams(ctx, m.ID, map[domain.TeamKind][]string{
		domain.TeamAlpha: {"u1", "u2", "u3", "u4", "u5", "u6"},
	})
	require.ErrorAs(t, err, &capErr)

	_, err = env.matches.AdminOverrideTeams(ctx, m.ID, map[domain.TeamKind][]string{
		domain.TeamPool:  {},
		domain.TeamAlpha: {"u1", "u2"},
		domain.TeamBravo: {"u2", "u3"},
	})
	require.ErrorAs(t, err, &capErr)
}

func TestMatchVersionBumpsOnMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	m, err := env.matches.Create(ctx, "u1", domain.SeriesBO1)
	require.NoError(t, err)
	v0 := m.Version

	m, err = env.matches.Join(ctx, m.ID, "u2")
	require.NoError(t, err)
	require.Greater(t, m.Version, v0)

	v1 := m.Version
	m, err = env.matches.Leave(ctx, m.ID, "u2")
	require.NoError(t, err)
	require.Greater(t, m.Version, v1)
}
