package profile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townscope/townscope/pkg/profile"
)

func TestNewSetCanonicalizes(t *testing.T) {
	s := profile.NewSet("Coastal", "coastal", " Mountain ", "", "COASTAL")
	assert.Equal(t, profile.Set{"coastal", "mountain"}, s)
	assert.True(t, s.Has("MOUNTAIN"))
	assert.False(t, s.Has("desert"))
}

func TestNormalizeFlatLayout(t *testing.T) {
	raw := map[string]any{
		"countries":                 []any{"Spain", "spain", "Portugal"},
		"geographic_features":       "Coastal, Mountain",
		"summer_climate_preference": []any{"warm", "Optional"},
		"seasonal_preference":       "Summer_Focused",
		"language_comfort": map[string]any{
			"preferences":   []any{"willing_to_learn"},
			"already_speak": []any{"English", "French"},
		},
		"lifestyle_preferences": map[string]any{"pace_of_life": []any{"relaxed"}},
		"activities":            []any{"Hiking", "golf"},
		"custom_activities":     []any{"hiking", "Pickleball"},
		"lifestyle_importance":  map[string]any{"outdoor_activities": 9.0, "shopping": "2"},
		"health_considerations": map[string]any{"healthcare_access": "full_access"},
		"current_status":        map[string]any{"citizenship": "USA"},
		"total_monthly_cost":    []any{2000.0, "3000"},
		"income_tax_sensitive":  true,
	}

	p := profile.Normalize(raw)

	assert.Equal(t, profile.Set{"portugal", "spain"}, p.Region.Countries)
	assert.Equal(t, profile.Set{"coastal", "mountain"}, p.Region.GeographicFeatures)
	assert.Equal(t, profile.Set{"warm"}, p.Climate.Summer)
	assert.Equal(t, "summer_focused", p.Climate.Seasonal)
	assert.Equal(t, profile.Set{"willing_to_learn"}, p.Culture.LanguagePreference)
	assert.True(t, p.Culture.LanguagesSpoken.Has("french"))
	assert.Equal(t, profile.Set{"relaxed"}, p.Culture.PaceOfLife)
	assert.Equal(t, profile.Set{"golf", "hiking", "pickleball"}, p.Hobbies.Activities)
	assert.Equal(t, 5, p.Hobbies.LifestyleImportance["outdoor_activities"], "importance is clamped to 5")
	assert.Equal(t, 2, p.Hobbies.LifestyleImportance["shopping"])
	assert.Equal(t, "full_access", p.Administration.HealthcareAccess)
	assert.Equal(t, "usa", p.Administration.Citizenship)
	assert.Equal(t, 3000.0, p.Budget.MonthlyBudget)
	assert.True(t, p.Budget.TaxSensitive())
}

func TestNormalizeNestedWinsOverFlat(t *testing.T) {
	raw := map[string]any{
		"region_preferences": map[string]any{"countries": []any{"Italy"}},
		"countries":          []any{"France"},
		"regions":            []any{"Mediterranean"},
	}

	p := profile.Normalize(raw)

	assert.Equal(t, profile.Set{"italy"}, p.Region.Countries)
	assert.Equal(t, profile.Set{"mediterranean"}, p.Region.Regions, "flat keys fill gaps in the nested section")
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	nested := map[string]any{"countries": []any{"Italy"}}
	raw := map[string]any{
		"region_preferences": nested,
		"regions":            []any{"Europe"},
	}

	_ = profile.Normalize(raw)

	assert.Len(t, nested, 1)
	_, leaked := nested["regions"]
	assert.False(t, leaked, "normalizer must not write into the nested section")
}

func TestNormalizeEmpty(t *testing.T) {
	for _, raw := range []map[string]any{nil, {}} {
		p := profile.Normalize(raw)
		assert.False(t, p.Region.HasSignal())
		assert.False(t, p.Climate.HasSignal())
		assert.False(t, p.Culture.HasSignal())
		assert.False(t, p.Hobbies.HasSignal())
		assert.False(t, p.Administration.HasSignal())
		assert.False(t, p.Budget.HasSignal())
		assert.Zero(t, p.Coverage())
	}
}

func TestNormalizeIgnoresWrongTypes(t *testing.T) {
	raw := map[string]any{
		"countries":            42.0,
		"total_monthly_budget": "lots",
		"lifestyle_importance": "high",
		"seasonal_preference":  []any{7.0},
	}

	p := profile.Normalize(raw)

	assert.True(t, p.Region.Countries.Empty())
	assert.Zero(t, p.Budget.MonthlyBudget)
	assert.Nil(t, p.Hobbies.LifestyleImportance)
	assert.Empty(t, p.Climate.Seasonal)
}

func TestNormalizeSeasonalPreference(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Summer_Focused", "summer_focused"},
		{"prefer_warm_seasons", "summer_focused"},
		{"warm_seasons", "summer_focused"},
		{"prefer_cool_seasons", "winter_focused"},
		{"cool_seasons", "winter_focused"},
		{"all_seasons", "all_seasons"},
		{"Select Preference", ""},
		{"optional", ""},
		{"whenever_it_snows", ""},
	}
	for _, tc := range tests {
		p := profile.Normalize(map[string]any{"seasonal_preference": tc.in})
		assert.Equal(t, tc.want, p.Climate.Seasonal, tc.in)
		assert.Equal(t, tc.want != "", p.Climate.HasSignal(), tc.in)
	}
}

func TestImportanceClampsHugeValues(t *testing.T) {
	p := profile.Normalize(map[string]any{
		"lifestyle_importance": map[string]any{"outdoor_activities": 1e300, "shopping": -1e300},
	})
	assert.Equal(t, 5, p.Hobbies.LifestyleImportance["outdoor_activities"])
	assert.Equal(t, 1, p.Hobbies.LifestyleImportance["shopping"])
}

func TestParse(t *testing.T) {
	p, err := profile.Parse([]byte(`{"climate_preferences":{"humidity_level":["Dry"]},"max_monthly_rent":"900"}`))
	require.NoError(t, err)
	assert.Equal(t, profile.Set{"dry"}, p.Climate.Humidity)
	assert.Equal(t, 900.0, p.Budget.MaxRent)

	_, err = profile.Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestHashStable(t *testing.T) {
	a := profile.Normalize(map[string]any{"countries": []any{"Spain", "Italy"}})
	b := profile.Normalize(map[string]any{"countries": []any{"italy", "SPAIN"}})
	c := profile.Normalize(map[string]any{"countries": []any{"France"}})

	assert.Equal(t, a.Hash(), b.Hash(), "order and case must not change the hash")
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestCoverage(t *testing.T) {
	p := profile.Normalize(map[string]any{
		"countries":            []any{"Spain"},
		"income_tax_sensitive": true,
		"seasonal_preference":  "Optional",
	})
	assert.InDelta(t, 2.0/6.0, p.Coverage(), 1e-9)
}
