package scoring

import (
	"math"

	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/town"
)

// AdjacencyMap lists, per canonical label, the labels considered close enough
// for partial credit.
type AdjacencyMap map[string][]string

// QualityRequirement is the level of quality a user asks for.
type QualityRequirement string

const (
	RequireBasic      QualityRequirement = "basic"
	RequireFunctional QualityRequirement = "functional"
	RequireGood       QualityRequirement = "good"
)

// TaxKind selects a bracket table.
type TaxKind string

const (
	TaxIncome   TaxKind = "income"
	TaxProperty TaxKind = "property"
	TaxSales    TaxKind = "sales"
)

// ArrayOverlap awards maxPoints scaled by the fraction of the user's values
// found in the town's values. Either side empty scores 0.
func ArrayOverlap(user, townValues []string, maxPoints float64) float64 {
	u := profile.NewSet(user...)
	tv := profile.NewSet(townValues...)
	if u.Empty() || tv.Empty() {
		return 0
	}
	hits := 0
	for _, v := range u {
		if tv.Has(v) {
			hits++
		}
	}
	return maxPoints * float64(hits) / float64(len(u))
}

// DistanceDecay returns the percentage credit for actual against r: 100
// inside the range, then the first tier whose MaxDistance covers the
// distance to the nearest bound, else 0.
func DistanceDecay(actual float64, r Range, tiers []DecayTier) float64 {
	if math.IsNaN(actual) {
		return 0
	}
	if actual >= r.Min && actual <= r.Max {
		return 100
	}
	dist := r.Min - actual
	if actual > r.Max {
		dist = actual - r.Max
	}
	for _, tier := range tiers {
		if dist <= tier.MaxDistance {
			return tier.Percent
		}
	}
	return 0
}

// AdjacencyMatch awards maxPoints for an exact label match and 70% (rounded)
// for an adjacent one.
func AdjacencyMatch(pref, actual string, maxPoints float64, adj AdjacencyMap) float64 {
	pref, actual = profile.Canon(pref), profile.Canon(actual)
	if pref == "" || actual == "" {
		return 0
	}
	if pref == actual {
		return maxPoints
	}
	for _, near := range adj[pref] {
		if near == actual {
			return math.Round(0.7 * maxPoints)
		}
	}
	return 0
}

// bestAdjacency returns the best AdjacencyMatch over every preferred label.
func bestAdjacency(prefs profile.Set, actual string, maxPoints float64, adj AdjacencyMap) float64 {
	best := 0.0
	for _, p := range prefs {
		if pts := AdjacencyMatch(p, actual, maxPoints, adj); pts > best {
			best = pts
		}
	}
	return best
}

// TieredQuality converts a 0-10 rating into points using the ladder for the
// requested quality. Unknown requirements use the functional ladder.
func TieredQuality(actual float64, req QualityRequirement, maxPoints float64, ladders Ladders) float64 {
	var l Ladder
	switch req {
	case RequireBasic:
		l = ladders.Basic
	case RequireGood:
		l = ladders.Good
	default:
		l = ladders.Functional
	}
	return maxPoints * ladderPercent(l, clamp(actual, 0, 10)) / 100
}

func ladderPercent(l Ladder, rating float64) float64 {
	if l.Linear {
		return rating * 10
	}
	for _, s := range l.Steps {
		if rating >= s.Threshold {
			return s.Percent
		}
	}
	return l.Floor
}

// TaxBracket scores a tax rate from 5 (lowest bracket) to 1. A missing rate
// reports ok=false.
func TaxBracket(rate town.Number, kind TaxKind, brackets TaxBrackets) (int, bool) {
	v, ok := rate.Get()
	if !ok {
		return 0, false
	}
	var thresholds []float64
	switch kind {
	case TaxIncome:
		thresholds = brackets.Income
	case TaxProperty:
		thresholds = brackets.Property
	case TaxSales:
		thresholds = brackets.Sales
	}
	points := 5
	for _, t := range thresholds {
		if v <= t {
			return points, true
		}
		points--
	}
	if points < 1 {
		points = 1
	}
	return points, true
}
