package scoring

import (
	"sort"

	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/town"
)

// Engine runs the category scorers and aggregates them into a MatchResult.
// An Engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	cfg     Config
	scorers []Scorer
}

// NewEngine creates an engine. A nil cfg uses Defaults; with no scorers the
// six default category scorers are used.
func NewEngine(cfg *Config, scorers ...Scorer) *Engine {
	c := Defaults()
	if cfg != nil {
		c = cfg.withDefaults()
	}
	e := &Engine{cfg: c}
	if len(scorers) == 0 {
		scorers = DefaultScorers(&e.cfg)
	}
	e.scorers = scorers
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// ScoreTown scores one town for one profile. A nil cfg uses Defaults.
func ScoreTown(p *profile.Profile, t *town.Town, cfg *Config) MatchResult {
	return NewEngine(cfg).Score(p, t)
}

// Score produces the complete match for a town.
func (e *Engine) Score(p *profile.Profile, t *town.Town) MatchResult {
	if p == nil {
		p = &profile.Profile{}
	}
	if t == nil {
		t = &town.Town{}
	}

	weights, rules := ComputeWeights(p, &e.cfg)

	result := MatchResult{
		TownID:         t.ID,
		TownName:       t.Name,
		Country:        t.Country,
		CategoryScores: make(map[Category]float64, len(Categories)),
		Weights:        weights,
		AppliedRules:   rules,
	}

	byCategory := make(map[Category]CategoryResult, len(e.scorers))
	for _, s := range e.scorers {
		cr := s.Score(p, t)
		cr.Category = s.Category()
		cr.Score = clampScore(cr.Score)
		byCategory[cr.Category] = cr
	}

	// Aggregate in fixed category order so results are reproducible.
	weighted, weightUsed := 0.0, 0.0
	for _, c := range Categories {
		cr, ok := byCategory[c]
		if !ok {
			continue
		}
		result.Categories = append(result.Categories, cr)
		result.CategoryScores[c] = cr.Score
		weighted += cr.Score * weights[c]
		weightUsed += weights[c]
	}
	if weightUsed > 0 {
		weighted /= weightUsed
	}

	result.DataCompleteness = Completeness(t)
	result.CompletenessBonus = round1(result.DataCompleteness * e.cfg.CompletenessBonusMax)
	if e.cfg.Premium {
		result.PremiumBonus = premiumBonus(t, result.CategoryScores)
	}

	result.OverallScore = round1(clampScore(weighted + result.CompletenessBonus + result.PremiumBonus))
	result.QualityTier = TierFromScore(result.OverallScore, e.cfg.Quality)
	result.TopFactors = topFactors(result.Categories, e.cfg.TopFactorCount)
	result.ConfidenceTier = confidence(t)
	result.ValueTier = ValueTierFromBudget(result.CategoryScores[CategoryBudget])

	narrative := Explain(p, t, result.CategoryScores)
	result.Insights = narrative.Insights
	result.Highlights = narrative.Highlights
	result.AppealStatement = narrative.AppealStatement
	result.Warnings = collectWarnings(result.Categories, narrative.Warnings)

	if p.Coverage() < 0.4 && result.OverallScore >= 80 {
		result.PersonalizationNote = "Add more preferences to personalize this match"
	}
	return result
}

// topFactors returns the n highest-point positive factors. Ties keep
// category order.
func topFactors(results []CategoryResult, n int) []Factor {
	all := []Factor{}
	for _, cr := range results {
		for _, f := range cr.Factors {
			if f.Points > 0 {
				all = append(all, f)
			}
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Points > all[j].Points
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func collectWarnings(results []CategoryResult, extra []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	add := func(w string) {
		if w == "" || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}
	for _, cr := range results {
		for _, f := range cr.Factors {
			if f.Points < 0 {
				add(f.Label)
			}
		}
	}
	for _, w := range extra {
		add(w)
	}
	return out
}

func premiumBonus(t *town.Town, scores map[Category]float64) float64 {
	bonus := 0.0
	hc, okH := t.HealthcareScore.Get()
	sf, okS := t.SafetyScore.Get()
	if okH && okS && hc >= 9 && sf >= 9 {
		bonus += 5
	}
	if scores[CategoryClimate] >= 95 {
		bonus += 2
	}
	if t.UNESCOHeritage.IsTrue() {
		bonus += 2
	}
	if bonus > 5 {
		bonus = 5
	}
	return bonus
}

// Completeness is the fraction of the key descriptive fields present on the town.
func Completeness(t *town.Town) float64 {
	present := []bool{
		t.CostIndex.Valid,
		t.HealthcareScore.Valid,
		t.SafetyScore.Valid,
		t.ClimateDescription != "",
		t.SummerClimate != "",
		t.WinterClimate != "",
		t.HumidityLevel != "",
		t.SunshineLevel != "",
		t.PrimaryLanguage != "",
		t.EnglishProficiency != "",
		t.ExpatCommunitySize != "",
		t.PaceOfLife != "",
		len(t.ActivitiesAvailable) > 0,
		len(t.InterestsSupported) > 0,
		t.MonthlyLivingCost.Valid,
		t.IncomeTaxRatePct.Valid,
		len(t.VisaOnArrivalCountries) > 0,
		len(t.GeographicFeatures) > 0,
	}
	n := 0
	for _, ok := range present {
		if ok {
			n++
		}
	}
	return float64(n) / float64(len(present))
}

func confidence(t *town.Town) ConfidenceTier {
	present := []bool{
		t.CostIndex.Valid,
		t.HealthcareScore.Valid,
		t.SafetyScore.Valid,
		t.ClimateDescription != "",
		t.Population.Valid,
		t.ExpatCommunitySize != "",
	}
	n := 0
	for _, ok := range present {
		if ok {
			n++
		}
	}
	frac := float64(n) / float64(len(present))
	switch {
	case frac >= 0.9:
		return ConfidenceHigh
	case frac >= 0.7:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
