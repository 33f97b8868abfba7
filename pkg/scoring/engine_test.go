package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/scoring"
	"github.com/townscope/townscope/pkg/town"
)

// completeTown has every field counted by Completeness.
func completeTown(id string) town.Town {
	return town.Town{
		ID:                     id,
		Name:                   "Valencia",
		Country:                "Spain",
		CostIndex:              town.Num(70),
		HealthcareScore:        town.Num(8),
		SafetyScore:            town.Num(8),
		ClimateDescription:     "Mediterranean",
		SummerClimate:          "hot",
		WinterClimate:          "mild",
		HumidityLevel:          "balanced",
		SunshineLevel:          "often_sunny",
		PrimaryLanguage:        "Spanish",
		EnglishProficiency:     "moderate",
		ExpatCommunitySize:     "large",
		PaceOfLife:             "relaxed",
		ActivitiesAvailable:    town.List{"golf", "hiking"},
		InterestsSupported:     town.List{"cooking"},
		MonthlyLivingCost:      town.Num(1800),
		IncomeTaxRatePct:       town.Num(24),
		VisaOnArrivalCountries: town.List{"usa"},
		GeographicFeatures:     town.List{"coastal"},
		Population:             town.Num(800000),
	}
}

func TestScoreTownSpainScenario(t *testing.T) {
	p := &profile.Profile{Region: profile.Region{Countries: profile.NewSet("spain")}}
	tw := &town.Town{ID: "valencia", Name: "Valencia", Country: "Spain"}

	res := scoring.ScoreTown(p, tw, nil)

	assert.Equal(t, 100.0, res.CategoryScores[scoring.CategoryRegion])
	for _, c := range scoring.Categories[1:] {
		assert.Equal(t, 50.0, res.CategoryScores[c], "category %s", c)
	}
	// 0.10×100 + 0.90×50, no completeness bonus on a bare record
	assert.InDelta(t, 55.0, res.OverallScore, 1e-9)
	assert.Equal(t, scoring.TierGood, res.QualityTier)
	assert.Empty(t, res.AppliedRules)
	assert.Equal(t, "valencia", res.TownID)
	assert.Equal(t, scoring.ConfidenceLow, res.ConfidenceTier)
}

func TestScoreTownEmptyProfileIsNeutral(t *testing.T) {
	res := scoring.ScoreTown(&profile.Profile{}, &town.Town{ID: "x"}, nil)

	for _, c := range scoring.Categories {
		assert.Equal(t, 50.0, res.CategoryScores[c])
	}
	assert.InDelta(t, 50.0, res.OverallScore, 1e-9)
	assert.Empty(t, res.TopFactors, "neutral factors carry no points")
}

func TestScoreTownNilInputs(t *testing.T) {
	res := scoring.ScoreTown(nil, nil, nil)
	assert.InDelta(t, 50.0, res.OverallScore, 1e-9)
	assert.Len(t, res.Categories, len(scoring.Categories))
}

func TestCompletenessBonus(t *testing.T) {
	tw := completeTown("valencia")
	assert.Equal(t, 1.0, scoring.Completeness(&tw))

	res := scoring.ScoreTown(&profile.Profile{}, &tw, nil)
	assert.Equal(t, 5.0, res.CompletenessBonus)
	assert.InDelta(t, 55.0, res.OverallScore, 1e-9)
	assert.Equal(t, scoring.ConfidenceHigh, res.ConfidenceTier)
}

func TestScoreBoundsAcrossExtremes(t *testing.T) {
	rich := completeTown("rich")
	rich.UNESCOHeritage = town.Bool(true)
	rich.HealthcareScore = town.Num(10)
	rich.SafetyScore = town.Num(10)

	poor := town.Town{
		ID:                "poor",
		MonthlyLivingCost: town.Num(99999),
		HealthcareScore:   town.Num(-4),
		SafetyScore:       town.Num(42),
		AvgTempSummer:     town.Num(-80),
		AvgTempWinter:     town.Num(80),
		IncomeTaxRatePct:  town.Num(95),
	}

	profiles := []profile.Profile{
		{},
		profile.Normalize(map[string]any{
			"countries":                 []any{"Spain"},
			"geographic_features":       []any{"coastal"},
			"summer_climate_preference": []any{"hot"},
			"seasonal_preference":       "all_seasons",
			"language_comfort":          map[string]any{"preferences": []any{"english_only"}},
			"activities":                []any{"golf", "hiking", "sailing", "tennis", "yoga"},
			"lifestyle_importance":      map[string]any{"outdoor_activities": 5, "shopping": 4},
			"travel_frequency":          "frequent",
			"healthcare_quality":        []any{"good"},
			"health_considerations":     map[string]any{"healthcare_access": "full_access", "environmental_health": "sensitive"},
			"total_monthly_budget":      1000,
			"max_monthly_rent":          400,
			"income_tax_sensitive":      true,
			"sales_tax_sensitive":       true,
		}),
	}

	cfg := scoring.Defaults()
	cfg.Premium = true
	for _, p := range profiles {
		for _, tw := range []town.Town{rich, poor, {}} {
			res := scoring.ScoreTown(&p, &tw, &cfg)
			assert.GreaterOrEqual(t, res.OverallScore, 0.0)
			assert.LessOrEqual(t, res.OverallScore, 100.0)
			assert.LessOrEqual(t, len(res.TopFactors), 5)
			for _, cr := range res.Categories {
				assert.GreaterOrEqual(t, cr.Score, 0.0, "category %s", cr.Category)
				assert.LessOrEqual(t, cr.Score, 100.0, "category %s", cr.Category)
			}
			assert.InDelta(t, 1.0, res.Weights.Sum(), 1e-9)
		}
	}
}

func TestScoreCaseInvariance(t *testing.T) {
	lower := profile.Normalize(map[string]any{"countries": []any{"spain"}, "activities": []any{"golf"}})
	upper := profile.Normalize(map[string]any{"countries": []any{"SPAIN"}, "activities": []any{"GOLF"}})

	a := town.Town{ID: "a", Country: "Spain", ActivitiesAvailable: town.List{"Golf"}}
	b := town.Town{ID: "a", Country: "SPAIN", ActivitiesAvailable: town.List{"golf"}}

	want := scoring.ScoreTown(&lower, &a, nil).OverallScore
	assert.Equal(t, want, scoring.ScoreTown(&upper, &a, nil).OverallScore)
	assert.Equal(t, want, scoring.ScoreTown(&lower, &b, nil).OverallScore)
}

func TestScoreMonotonicInCategoryScore(t *testing.T) {
	p := &profile.Profile{Administration: profile.Administration{HealthcareQuality: profile.NewSet("good")}}
	worse := town.Town{ID: "a", HealthcareScore: town.Num(6)}
	better := town.Town{ID: "a", HealthcareScore: town.Num(9)}

	w := scoring.ScoreTown(p, &worse, nil)
	b := scoring.ScoreTown(p, &better, nil)

	require.Greater(t, b.CategoryScores[scoring.CategoryAdministration], w.CategoryScores[scoring.CategoryAdministration])
	assert.GreaterOrEqual(t, b.OverallScore, w.OverallScore)
}

func TestScoreDeterministic(t *testing.T) {
	p := profile.Normalize(map[string]any{
		"countries":  []any{"Spain", "Portugal"},
		"activities": []any{"golf", "hiking"},
	})
	tw := completeTown("valencia")

	first := scoring.ScoreTown(&p, &tw, nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, scoring.ScoreTown(&p, &tw, nil))
	}
}

func TestWarningsCollectNegativeFactorsAndInsights(t *testing.T) {
	p := &profile.Profile{
		Culture:        profile.Culture{LanguagePreference: profile.NewSet("english_only")},
		Administration: profile.Administration{SafetyQuality: profile.NewSet("good"), Citizenship: "usa"},
	}
	tw := &town.Town{ID: "x", PrimaryLanguage: "Portuguese", SafetyScore: town.Num(4)}

	res := scoring.ScoreTown(p, tw, nil)

	assert.Contains(t, res.Warnings, "Language barrier (English-only)")
	assert.Contains(t, res.Warnings, "Language barrier")
	assert.Contains(t, res.Warnings, "Complex visa process")
	assert.Contains(t, res.Warnings, "Safety concerns may need investigation")
}

func TestTopFactorsOrdered(t *testing.T) {
	p := profile.Normalize(map[string]any{
		"countries":            []any{"Spain"},
		"activities":           []any{"golf", "hiking"},
		"total_monthly_budget": 3000,
	})
	tw := completeTown("valencia")

	res := scoring.ScoreTown(&p, &tw, nil)

	require.Len(t, res.TopFactors, 5)
	for i := 1; i < len(res.TopFactors); i++ {
		assert.GreaterOrEqual(t, res.TopFactors[i-1].Points, res.TopFactors[i].Points)
	}
	assert.Equal(t, "Country match: Spain", res.TopFactors[0].Label)
}

func TestPremiumBonus(t *testing.T) {
	tw := town.Town{ID: "x", HealthcareScore: town.Num(9.5), SafetyScore: town.Num(9), UNESCOHeritage: town.Bool(true)}

	plain := scoring.ScoreTown(&profile.Profile{}, &tw, nil)
	assert.Zero(t, plain.PremiumBonus)

	cfg := scoring.Defaults()
	cfg.Premium = true
	premium := scoring.ScoreTown(&profile.Profile{}, &tw, &cfg)
	assert.Equal(t, 5.0, premium.PremiumBonus, "bonus is capped")
	assert.Greater(t, premium.OverallScore, plain.OverallScore)
}

func TestPersonalizationNote(t *testing.T) {
	cfg := scoring.Defaults()
	cfg.BaseWeights = scoring.Weights{
		scoring.CategoryRegion:         1,
		scoring.CategoryClimate:        0,
		scoring.CategoryCulture:        0,
		scoring.CategoryHobbies:        0,
		scoring.CategoryAdministration: 0,
		scoring.CategoryBudget:         0,
	}
	p := &profile.Profile{Region: profile.Region{Countries: profile.NewSet("spain")}}

	res := scoring.ScoreTown(p, &town.Town{ID: "x", Country: "Spain"}, &cfg)

	// region 0.8 after flooring the rest at 0.05 and renormalizing
	assert.InDelta(t, 90.0, res.OverallScore, 1e-9)
	assert.NotEmpty(t, res.PersonalizationNote)
	assert.Equal(t, scoring.TierExcellent, res.QualityTier)
}

func TestTierFromScore(t *testing.T) {
	q := scoring.Defaults().Quality
	tests := []struct {
		score float64
		want  scoring.QualityTier
	}{
		{100, scoring.TierExcellent},
		{85, scoring.TierExcellent},
		{84.9, scoring.TierVeryGood},
		{70, scoring.TierVeryGood},
		{55, scoring.TierGood},
		{40, scoring.TierFair},
		{39.9, scoring.TierPoor},
		{0, scoring.TierPoor},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, scoring.TierFromScore(tc.score, q), "score %v", tc.score)
	}
}

func TestValueTierFromBudget(t *testing.T) {
	assert.Equal(t, 5, scoring.ValueTierFromBudget(80))
	assert.Equal(t, 4, scoring.ValueTierFromBudget(60))
	assert.Equal(t, 3, scoring.ValueTierFromBudget(40))
	assert.Equal(t, 2, scoring.ValueTierFromBudget(39.9))
}
