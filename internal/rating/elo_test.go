package rating

import (
	"errors"
	"math"
	"testing"

	"customs-league/internal/domain"
)

func players(elo int, matchesPlayed int, ids ...string) []domain.Player {
	out := make([]domain.Player, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Player{ID: id, Elo: elo, MatchesPlayed: matchesPlayed})
	}
	return out
}

func TestExpected(t *testing.T) {
	if got := Expected(1000, 1000); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("Expected(1000, 1000) = %f, want 0.5", got)
	}
	// Complementary scores sum to one.
	for _, pair := range [][2]float64{{1000, 1200}, {800, 1600}, {1234, 987}} {
		sum := Expected(pair[0], pair[1]) + Expected(pair[1], pair[0])
		if math.Abs(sum-1.0) > 1e-9 {
			t.Fatalf("Expected(%v) + Expected(reversed) = %f, want 1", pair, sum)
		}
	}
	// A 400-point gap is the canonical 10:1 odds.
	if got := Expected(1400, 1000); math.Abs(got-10.0/11.0) > 1e-9 {
		t.Fatalf("Expected(1400, 1000) = %f, want %f", got, 10.0/11.0)
	}
}

func TestKFor_CalibrationStepping(t *testing.T) {
	cfg := DefaultEloConfig
	cases := []struct {
		matches int
		want    int
	}{
		{0, 32},
		{9, 32},
		{10, 16},
		{100, 16},
	}
	for _, tc := range cases {
		if got := cfg.KFor(tc.matches); got != tc.want {
			t.Errorf("KFor(%d) = %d, want %d", tc.matches, got, tc.want)
		}
	}
}

func TestComputeSeries_EvenMatchup(t *testing.T) {
	winners := players(1000, 0, "w1", "w2", "w3", "w4", "w5")
	losers := players(1000, 0, "l1", "l2", "l3", "l4", "l5")

	updates := ComputeSeries(DefaultEloConfig, winners, losers)
	if len(updates) != 10 {
		t.Fatalf("updates = %d, want 10", len(updates))
	}
	for _, u := range updates {
		if u.Won {
			if u.Change != 16 || u.NewElo != 1016 {
				t.Errorf("winner %s: change %d new %d, want +16 -> 1016", u.UserID, u.Change, u.NewElo)
			}
		} else {
			if u.Change != -16 || u.NewElo != 984 {
				t.Errorf("loser %s: change %d new %d, want -16 -> 984", u.UserID, u.Change, u.NewElo)
			}
		}
		if u.KFactor != 32 {
			t.Errorf("player %s: k = %d, want calibrating 32", u.UserID, u.KFactor)
		}
	}
}

func TestComputeSeries_TeamExpectedSharedByMixedRoster(t *testing.T) {
	// Both team means are 1000, so the whole series is even regardless
	// of how unevenly the Elo is spread inside a roster.
	winners := []domain.Player{
		{ID: "w1", Elo: 1200},
		{ID: "w2", Elo: 800},
	}
	losers := []domain.Player{
		{ID: "l1", Elo: 1000},
		{ID: "l2", Elo: 1000},
	}

	updates := ComputeSeries(DefaultEloConfig, winners, losers)
	for _, u := range updates {
		if u.Won && u.Change != 16 {
			t.Errorf("winner %s (elo %d): change = %d, want +16", u.UserID, u.OldElo, u.Change)
		}
		if !u.Won && u.Change != -16 {
			t.Errorf("loser %s: change = %d, want -16", u.UserID, u.Change)
		}
	}

	// The two team expected scores are complementary.
	winE := Expected(TeamAverage(winners), TeamAverage(losers))
	loseE := Expected(TeamAverage(losers), TeamAverage(winners))
	if math.Abs(winE+loseE-1.0) > 1e-9 {
		t.Fatalf("team expected scores sum to %f, want 1", winE+loseE)
	}

	// Equal-K teammates always share one delta, even against a lopsided
	// opponent.
	winners = []domain.Player{{ID: "w1", Elo: 1400}, {ID: "w2", Elo: 600}}
	losers = []domain.Player{{ID: "l1", Elo: 1300}, {ID: "l2", Elo: 1250}}
	updates = ComputeSeries(DefaultEloConfig, winners, losers)
	var winDeltas []int
	for _, u := range updates {
		if u.Won {
			winDeltas = append(winDeltas, u.Change)
		}
	}
	if len(winDeltas) != 2 || winDeltas[0] != winDeltas[1] {
		t.Fatalf("winner deltas = %v, want identical", winDeltas)
	}
}

func TestComputeSeries_FavoriteGainsLess(t *testing.T) {
	winners := players(1200, 20, "w1")
	losers := players(1000, 20, "l1")

	updates := ComputeSeries(DefaultEloConfig, winners, losers)
	var win, lose EloUpdate
	for _, u := range updates {
		if u.Won {
			win = u
		} else {
			lose = u
		}
	}
	if win.Change <= 0 || win.Change >= 8 {
		t.Errorf("favorite winner change = %d, want small positive", win.Change)
	}
	if lose.Change >= 0 {
		t.Errorf("underdog loser change = %d, want negative", lose.Change)
	}
	if win.KFactor != 16 || lose.KFactor != 16 {
		t.Errorf("established players should use stable k, got %d/%d", win.KFactor, lose.KFactor)
	}
}

func playedMap(winner string) domain.MapSelection {
	w := winner
	return domain.MapSelection{Action: domain.ActionPick, WasPlayed: true, WinnerTeamID: &w}
}

func TestSeriesWinner(t *testing.T) {
	const alpha, bravo = "team-a", "team-b"

	t.Run("bo3 decided two one", func(t *testing.T) {
		sels := []domain.MapSelection{playedMap(alpha), playedMap(bravo), playedMap(alpha)}
		got, err := SeriesWinner(sels, alpha, bravo, domain.SeriesBO3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != alpha {
			t.Fatalf("winner = %s, want %s", got, alpha)
		}
	})

	t.Run("bo1 single map", func(t *testing.T) {
		sels := []domain.MapSelection{playedMap(bravo)}
		got, err := SeriesWinner(sels, alpha, bravo, domain.SeriesBO1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != bravo {
			t.Fatalf("winner = %s, want %s", got, bravo)
		}
	})

	t.Run("incomplete series refused", func(t *testing.T) {
		sels := []domain.MapSelection{
			playedMap(alpha),
			{Action: domain.ActionPick, MapName: "Bind"},
			{Action: domain.ActionDecider, MapName: "Lotus"},
		}
		_, err := SeriesWinner(sels, alpha, bravo, domain.SeriesBO3)
		var incErr *domain.SeriesIncompleteError
		if !errors.As(err, &incErr) {
			t.Fatalf("expected SeriesIncompleteError, got %v", err)
		}
		if incErr.Required != 2 || incErr.Played != 1 {
			t.Fatalf("error detail = %+v", incErr)
		}
	})

	t.Run("unplayed maps do not count", func(t *testing.T) {
		sels := []domain.MapSelection{
			playedMap(alpha),
			{Action: domain.ActionPick, WinnerTeamID: &[]string{alpha}[0]},
		}
		if _, err := SeriesWinner(sels, alpha, bravo, domain.SeriesBO3); err == nil {
			t.Fatal("map without was_played must not count toward the series")
		}
	})
}

func TestTeamAverage(t *testing.T) {
	if got := TeamAverage(nil); got != 0 {
		t.Fatalf("empty roster average = %f, want 0", got)
	}
	team := []domain.Player{{Elo: 900}, {Elo: 1100}}
	if got := TeamAverage(team); math.Abs(got-1000) > 1e-9 {
		t.Fatalf("average = %f, want 1000", got)
	}
}
