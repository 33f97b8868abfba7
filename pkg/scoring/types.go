// Package scoring implements the townscope matching engine.
// It scores a town against a preference profile across six categories,
// weights the categories adaptively, and produces an explainable match.
// Nothing in this package performs I/O.
package scoring

import "math"

// Category is one of the six scoring dimensions.
type Category string

const (
	CategoryRegion         Category = "region"
	CategoryClimate        Category = "climate"
	CategoryCulture        Category = "culture"
	CategoryHobbies        Category = "hobbies"
	CategoryAdministration Category = "administration"
	CategoryBudget         Category = "budget"
)

// Categories lists every category in the fixed order used for
// aggregation, factor ordering, and output.
var Categories = []Category{
	CategoryRegion,
	CategoryClimate,
	CategoryCulture,
	CategoryHobbies,
	CategoryAdministration,
	CategoryBudget,
}

// Title returns the display name of the category.
func (c Category) Title() string {
	switch c {
	case CategoryRegion:
		return "Region"
	case CategoryClimate:
		return "Climate"
	case CategoryCulture:
		return "Culture"
	case CategoryHobbies:
		return "Hobbies"
	case CategoryAdministration:
		return "Administration"
	case CategoryBudget:
		return "Budget"
	default:
		return string(c)
	}
}

// Factor is a single explanation unit. Negative points mark a warning.
type Factor struct {
	Label  string  `json:"label"`
	Points float64 `json:"points"`
}

// CategoryResult is the output of a single category scorer.
type CategoryResult struct {
	Category Category `json:"category"`
	Score    float64  `json:"score"` // always within [0,100]
	Factors  []Factor `json:"factors"`
}

// QualityTier is the human-readable band of an overall score.
type QualityTier string

const (
	TierExcellent QualityTier = "Excellent"
	TierVeryGood  QualityTier = "Very Good"
	TierGood      QualityTier = "Good"
	TierFair      QualityTier = "Fair"
	TierPoor      QualityTier = "Poor"
)

// ConfidenceTier reflects how much of the town record was available.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "High"
	ConfidenceMedium ConfidenceTier = "Medium"
	ConfidenceLow    ConfidenceTier = "Low"
)

// MatchResult is the complete, explainable match of one town for one profile.
// Immutable once computed.
type MatchResult struct {
	TownID              string               `json:"town_id"`
	TownName            string               `json:"town_name"`
	Country             string               `json:"country"`
	OverallScore        float64              `json:"overall_score"`
	QualityTier         QualityTier          `json:"quality_tier"`
	CategoryScores      map[Category]float64 `json:"category_scores"`
	Categories          []CategoryResult     `json:"categories"`
	Weights             Weights              `json:"weights"`
	AppliedRules        []string             `json:"applied_rules,omitempty"`
	TopFactors          []Factor             `json:"top_factors"`
	Warnings            []string             `json:"warnings"`
	Insights            []string             `json:"insights"`
	Highlights          []string             `json:"highlights"`
	ConfidenceTier      ConfidenceTier       `json:"confidence_tier"`
	ValueTier           int                  `json:"value_tier"`
	DataCompleteness    float64              `json:"data_completeness"`
	CompletenessBonus   float64              `json:"completeness_bonus"`
	PremiumBonus        float64              `json:"premium_bonus,omitempty"`
	AppealStatement     string               `json:"appeal_statement,omitempty"`
	PersonalizationNote string               `json:"personalization_note,omitempty"`
}

// TierFromScore maps an overall score to a quality tier.
func TierFromScore(score float64, q QualityThresholds) QualityTier {
	switch {
	case score >= q.Excellent:
		return TierExcellent
	case score >= q.VeryGood:
		return TierVeryGood
	case score >= q.Good:
		return TierGood
	case score >= q.Fair:
		return TierFair
	default:
		return TierPoor
	}
}

// ValueTierFromBudget maps the budget category score to a 2-5 value rating.
func ValueTierFromBudget(budgetScore float64) int {
	switch {
	case budgetScore >= 80:
		return 5
	case budgetScore >= 60:
		return 4
	case budgetScore >= 40:
		return 3
	default:
		return 2
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampScore(v float64) float64 {
	return clamp(v, 0, 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
