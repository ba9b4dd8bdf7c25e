// Package rating computes Elo deltas for finalized series and the
// per-map weighted performance rating (Rating 2.0).
package rating

import (
	"math"

	"customs-league/internal/domain"
)

// EloConfig holds the K-factor stepping rule: players with fewer than
// CalibrationMatches results move with KCalibrating, established
// players with KStable.
type EloConfig struct {
	KCalibrating       int
	KStable            int
	CalibrationMatches int
}

// DefaultEloConfig mirrors the documented 32/16 stepping with a
// ten-match calibration window.
var DefaultEloConfig = EloConfig{
	KCalibrating:       32,
	KStable:            16,
	CalibrationMatches: 10,
}

// KFor selects the K-factor for a player by matches played.
func (c EloConfig) KFor(matchesPlayed int) int {
	if matchesPlayed < c.CalibrationMatches {
		return c.KCalibrating
	}
	return c.KStable
}

// Expected is the logistic expected score of a rating against an
// opponent rating. Expected(a, b) + Expected(b, a) == 1.
func Expected(own, opponent float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opponent-own)/400.0))
}

// TeamAverage is the mean Elo of a roster.
func TeamAverage(players []domain.Player) float64 {
	if len(players) == 0 {
		return 0
	}
	sum := 0
	for _, p := range players {
		sum += p.Elo
	}
	return float64(sum) / float64(len(players))
}

// EloUpdate is the computed delta for one player of a finished series.
type EloUpdate struct {
	UserID  string
	OldElo  int
	NewElo  int
	Change  int
	KFactor int
	Won     bool
}

// ComputeSeries produces the per-player Elo updates for a decided
// series. Team rating is the mean of member Elo; the expected score is
// computed once per team, so every member shares the same E and only
// the K-factor varies per player.
func ComputeSeries(cfg EloConfig, winners, losers []domain.Player) []EloUpdate {
	winAvg := TeamAverage(winners)
	loseAvg := TeamAverage(losers)
	winExpected := Expected(winAvg, loseAvg)
	loseExpected := Expected(loseAvg, winAvg)

	updates := make([]EloUpdate, 0, len(winners)+len(losers))
	for _, p := range winners {
		k := cfg.KFor(p.MatchesPlayed)
		delta := int(math.Round(float64(k) * (1.0 - winExpected)))
		updates = append(updates, EloUpdate{
			UserID:  p.ID,
			OldElo:  p.Elo,
			NewElo:  p.Elo + delta,
			Change:  delta,
			KFactor: k,
			Won:     true,
		})
	}
	for _, p := range losers {
		k := cfg.KFor(p.MatchesPlayed)
		delta := int(math.Round(float64(k) * (0.0 - loseExpected)))
		updates = append(updates, EloUpdate{
			UserID:  p.ID,
			OldElo:  p.Elo,
			NewElo:  p.Elo + delta,
			Change:  delta,
			KFactor: k,
			Won:     false,
		})
	}
	return updates
}

// SeriesWinner resolves the overall winner from played map results. It
// refuses to decide a series where neither team has reached the
// required map-win count.
func SeriesWinner(selections []domain.MapSelection, alphaID, bravoID string, st domain.SeriesType) (string, error) {
	alphaWins, bravoWins, played := 0, 0, 0
	for _, sel := range selections {
		if !sel.WasPlayed || sel.WinnerTeamID == nil {
			continue
		}
		played++
		switch *sel.WinnerTeamID {
		case alphaID:
			alphaWins++
		case bravoID:
			bravoWins++
		}
	}
	need := st.RequiredWins()
	if alphaWins >= need {
		return alphaID, nil
	}
	if bravoWins >= need {
		return bravoID, nil
	}
	return "", &domain.SeriesIncompleteError{Required: need, Played: played}
}
