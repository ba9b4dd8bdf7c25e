package rating

import (
	"customs-league/internal/domain"
)

// Per-map baselines representing an average performance. Each raw stat
// is turned into a ratio against its baseline so that weights summing
// to 1.0 yield a rating centered near 1.0.
const (
	BaselineKills      = 15.0
	BaselineDeaths     = 15.0
	BaselineAssists    = 5.0
	BaselineACS        = 200.0
	BaselineADR        = 130.0
	BaselineKAST       = 70.0
	BaselineFirstKills = 2.0
	BaselineMultiKills = 2.0
)

// Per-stat ratios are clamped so one pathological line cannot dominate
// the weighted sum; the final rating is clamped to the documented
// 0.70-1.30 band with a small allowance beyond.
const (
	StatRatioMin = 0.50
	StatRatioMax = 1.50
	RatingMin    = 0.60
	RatingMax    = 1.40
)

// Rating20 computes the weighted, normalized per-map performance
// rating from a raw stat row using the given weight profile. Deaths
// contribute inversely: fewer deaths than baseline push the rating up.
// The clutch weight is applied to multi-kill rounds, the closest
// per-map proxy for clutch impact available from scoreboard sources.
func Rating20(row domain.StatRow, w domain.WeightProfile) float64 {
	sum := w.Kill*ratio(float64(row.Kills), BaselineKills) +
		w.Death*inverseRatio(float64(row.Deaths), BaselineDeaths) +
		w.Assist*ratio(float64(row.Assists), BaselineAssists) +
		w.ACS*ratio(float64(row.ACS), BaselineACS) +
		w.ADR*ratio(row.ADR, BaselineADR) +
		w.Kast*ratio(row.Kast, BaselineKAST) +
		w.FirstKill*ratio(float64(row.FirstKills), BaselineFirstKills) +
		w.Clutch*ratio(float64(row.MultiKills), BaselineMultiKills)

	// Weights are intended to sum to 1.0; renormalize a profile that
	// does not, so the center stays at 1.0.
	if s := w.Sum(); s > 0 && s != 1.0 {
		sum /= s
	}
	return clamp(sum, RatingMin, RatingMax)
}

// KD is kills over deaths, with a zero-death line counting as kills.
func KD(kills, deaths int) float64 {
	if deaths == 0 {
		return float64(kills)
	}
	return float64(kills) / float64(deaths)
}

// RecentForm is the simple mean of per-map ratings, used by profile
// views. Zero when no maps were played.
func RecentForm(ratings []float64) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range ratings {
		sum += r
	}
	return sum / float64(len(ratings))
}

func ratio(v, baseline float64) float64 {
	return clamp(v/baseline, StatRatioMin, StatRatioMax)
}

// inverseRatio rewards staying under the baseline. A zero value maps
// to the upper clamp.
func inverseRatio(v, baseline float64) float64 {
	if v == 0 {
		return StatRatioMax
	}
	return clamp(baseline/v, StatRatioMin, StatRatioMax)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
