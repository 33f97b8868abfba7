package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/scoring"
	"github.com/townscope/townscope/pkg/town"
)

func scorerFor(t *testing.T, cfg *scoring.Config, c scoring.Category) scoring.Scorer {
	t.Helper()
	for _, s := range scoring.DefaultScorers(cfg) {
		if s.Category() == c {
			return s
		}
	}
	t.Fatalf("no scorer for %s", c)
	return nil
}

func defaultConfig() *scoring.Config {
	cfg := scoring.Defaults()
	return &cfg
}

func factor(t *testing.T, res scoring.CategoryResult, label string) scoring.Factor {
	t.Helper()
	for _, f := range res.Factors {
		if f.Label == label {
			return f
		}
	}
	require.Failf(t, "factor not found", "%q not in %+v", label, res.Factors)
	return scoring.Factor{}
}

func TestEmptySubProfilesScoreNeutral(t *testing.T) {
	cfg := defaultConfig()
	p := &profile.Profile{}
	tw := &town.Town{ID: "x", Country: "Spain", HealthcareScore: town.Num(9)}

	for _, s := range scoring.DefaultScorers(cfg) {
		res := s.Score(p, tw)
		assert.Equal(t, 50.0, res.Score, "category %s", s.Category())
		require.Len(t, res.Factors, 1)
		assert.Equal(t, "Open to any "+string(s.Category()), res.Factors[0].Label)
	}
}

func TestRegionCountryOnlyIsPerfect(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryRegion)
	p := &profile.Profile{Region: profile.Region{Countries: profile.NewSet("Spain")}}

	res := s.Score(p, &town.Town{ID: "valencia", Country: "Spain"})

	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, 40.0, factor(t, res, "Country match: Spain").Points)
}

func TestRegionRelatedFeatures(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryRegion)
	p := &profile.Profile{Region: profile.Region{GeographicFeatures: profile.NewSet("coastal")}}
	tw := &town.Town{GeographicFeatures: town.List{"Lake"}}

	res := s.Score(p, tw)

	// 20 (open country) + 15 (related) + 20 (open vegetation) = 55 of 90
	assert.Equal(t, 61.0, res.Score)
	assert.Equal(t, 15.0, factor(t, res, "Related geographic features").Points)
}

func TestRegionNoMatchAndMissingVegetation(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryRegion)
	p := &profile.Profile{Region: profile.Region{
		Countries:       profile.NewSet("Portugal"),
		VegetationTypes: profile.NewSet("mediterranean"),
	}}

	res := s.Score(p, &town.Town{Country: "Mexico"})

	assert.Zero(t, factor(t, res, "No location match").Points)
	assert.Zero(t, factor(t, res, "Vegetation data unavailable").Points)
	// only the open geography part scores: 30 of 90
	assert.Equal(t, 33.0, res.Score)
}

func TestRegionCoastalBonusIsClamped(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryRegion)
	p := &profile.Profile{Region: profile.Region{
		Countries:          profile.NewSet("Portugal"),
		GeographicFeatures: profile.NewSet("coastal"),
	}}
	tw := &town.Town{Country: "Portugal", GeographicFeatures: town.List{"coastal"}, WaterBodies: town.List{"Atlantic Ocean"}}

	res := s.Score(p, tw)

	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, 10.0, factor(t, res, "Coastal access").Points)
}

func TestClimateTemperatureFallbacks(t *testing.T) {
	cfg := defaultConfig()
	s := scorerFor(t, cfg, scoring.CategoryClimate)

	t.Run("numeric in range", func(t *testing.T) {
		p := &profile.Profile{Climate: profile.Climate{Summer: profile.NewSet("hot")}}
		res := s.Score(p, &town.Town{AvgTempSummer: town.Num(35)})
		assert.Equal(t, 25.0, factor(t, res, "Summer temperature in preferred range").Points)
	})

	t.Run("numeric near range", func(t *testing.T) {
		p := &profile.Profile{Climate: profile.Climate{Summer: profile.NewSet("mild")}}
		res := s.Score(p, &town.Town{AvgTempSummer: town.Num(26)})
		assert.Equal(t, 20.0, factor(t, res, "Summer temperature near preferred range").Points)
	})

	t.Run("categorical adjacent", func(t *testing.T) {
		p := &profile.Profile{Climate: profile.Climate{Summer: profile.NewSet("warm")}}
		res := s.Score(p, &town.Town{SummerClimate: "Hot"})
		assert.Equal(t, 18.0, factor(t, res, "Summer climate: hot").Points)
	})

	t.Run("sunshine inference", func(t *testing.T) {
		p := &profile.Profile{Climate: profile.Climate{Summer: profile.NewSet("warm")}}
		res := s.Score(p, &town.Town{SunshineHours: town.Num(3100)})
		assert.Equal(t, 13.0, factor(t, res, "Summer climate inferred from sunshine").Points)
	})

	t.Run("keyword inference", func(t *testing.T) {
		p := &profile.Profile{Climate: profile.Climate{Winter: profile.NewSet("mild")}}
		res := s.Score(p, &town.Town{ClimateDescription: "Mediterranean with mild winters"})
		assert.Equal(t, 10.0, factor(t, res, "Winter climate inferred from description").Points)
	})
}

func TestClimateKeywordInferenceToggle(t *testing.T) {
	p := &profile.Profile{Climate: profile.Climate{Humidity: profile.NewSet("dry")}}
	tw := &town.Town{ClimateDescription: "Arid desert climate"}

	on := scorerFor(t, defaultConfig(), scoring.CategoryClimate).Score(p, tw)
	assert.Equal(t, 10.0, factor(t, on, "Humidity inferred from description").Points)

	off := false
	cfg := defaultConfig()
	cfg.KeywordInference = &off
	res := scorerFor(t, cfg, scoring.CategoryClimate).Score(p, tw)
	assert.Zero(t, factor(t, res, "Humidity data unavailable").Points)
}

func TestClimateSeasonal(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryClimate)
	tw := &town.Town{AvgTempSummer: town.Num(30), AvgTempWinter: town.Num(8)}

	tests := []struct {
		seasonal string
		want     float64
	}{
		{"summer_focused", 8},
		{"winter_focused", 0},
		{"all_seasons", 15},
	}
	for _, tc := range tests {
		p := &profile.Profile{Climate: profile.Climate{Seasonal: tc.seasonal}}
		res := s.Score(p, tw)
		assert.Equal(t, tc.want, factor(t, res, "Seasonal fit").Points, tc.seasonal)
	}
}

func TestCultureLanguage(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryCulture)

	t.Run("english primary", func(t *testing.T) {
		p := &profile.Profile{Culture: profile.Culture{LanguagePreference: profile.NewSet("english_only")}}
		res := s.Score(p, &town.Town{PrimaryLanguage: "English"})
		assert.Equal(t, 25.0, factor(t, res, "English is the primary language").Points)
	})

	t.Run("english only barrier", func(t *testing.T) {
		p := &profile.Profile{Culture: profile.Culture{LanguagePreference: profile.NewSet("english_only")}}
		res := s.Score(p, &town.Town{PrimaryLanguage: "Spanish"})
		assert.Equal(t, -5.0, factor(t, res, "Language barrier (English-only)").Points)
	})

	t.Run("proficiency tier", func(t *testing.T) {
		p := &profile.Profile{Culture: profile.Culture{LanguagePreference: profile.NewSet("english_only")}}
		res := s.Score(p, &town.Town{PrimaryLanguage: "Dutch", EnglishProficiency: "High"})
		assert.Equal(t, 20.0, factor(t, res, "English proficiency: high").Points)
	})

	t.Run("romance bonus", func(t *testing.T) {
		p := &profile.Profile{Culture: profile.Culture{LanguagePreference: profile.NewSet("willing_to_learn")}}
		res := s.Score(p, &town.Town{PrimaryLanguage: "Portuguese"})
		assert.Equal(t, 15.0, factor(t, res, "Willing to learn Portuguese (Romance language)").Points)
	})

	t.Run("already speaks", func(t *testing.T) {
		p := &profile.Profile{Culture: profile.Culture{
			LanguagePreference: profile.NewSet("english_only"),
			LanguagesSpoken:    profile.NewSet("french"),
		}}
		res := s.Score(p, &town.Town{PrimaryLanguage: "French"})
		assert.Equal(t, 25.0, factor(t, res, "You speak French").Points)
	})
}

func TestCultureLifestyleAndAmenities(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryCulture)
	p := &profile.Profile{Culture: profile.Culture{
		ExpatCommunity:    profile.NewSet("large"),
		PaceOfLife:        profile.NewSet("relaxed"),
		AmenityImportance: map[string]int{"museums": 4, "dining_nightlife": 5},
	}}
	tw := &town.Town{
		ExpatCommunitySize: "moderate",
		RestaurantsRating:  town.Num(5),
		NightlifeRating:    town.Num(3),
	}

	res := s.Score(p, tw)

	assert.Equal(t, 14.0, factor(t, res, "Expat community close match").Points)
	assert.Equal(t, 8.0, factor(t, res, "Pace of life data unavailable").Points)
	// dining 4 vs importance 5 earns its full share, museums missing earns half
	assert.Equal(t, 15.0, factor(t, res, "Cultural amenities").Points)
}

func TestHobbies(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryHobbies)
	p := &profile.Profile{Hobbies: profile.Hobbies{
		Activities:          profile.NewSet("golf", "hiking"),
		LifestyleImportance: map[string]int{"outdoor_activities": 5, "shopping": 3, "wellness": 2},
		TravelFrequency:     "frequent",
	}}
	tw := &town.Town{
		ActivitiesAvailable:      town.List{"Golf", "Tennis"},
		OutdoorRating:            town.Num(8),
		ShoppingRating:           town.Num(4),
		TravelConnectivityRating: town.Num(2),
	}

	res := s.Score(p, tw)

	assert.Equal(t, 20.0, factor(t, res, "Activities available (1 of 2)").Points)
	assert.Equal(t, 15.0, factor(t, res, "Interests: open").Points)
	assert.Equal(t, 15.0, factor(t, res, "Lifestyle priorities met (1 of 2)").Points)
	assert.Equal(t, -5.0, factor(t, res, "Limited travel connectivity").Points)
	assert.Equal(t, 45.0, res.Score)
}

func TestAdministration(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryAdministration)
	p := &profile.Profile{Administration: profile.Administration{
		HealthcareQuality:   profile.NewSet("basic", "good"),
		EnvironmentalHealth: "sensitive",
		Citizenship:         "usa",
	}}
	tw := &town.Town{
		HealthcareScore:           town.Num(7),
		EnvironmentalHealthRating: town.Num(3),
		RetirementVisaAvailable:   town.Bool(true),
		PoliticalStabilityRating:  town.Num(80),
	}

	res := s.Score(p, tw)

	assert.Equal(t, 30.0, factor(t, res, "Healthcare meets good standard").Points)
	assert.Equal(t, 5.0, factor(t, res, "Safety data unavailable").Points)
	assert.Equal(t, 16.0, factor(t, res, "Retirement visa available").Points)
	assert.Equal(t, 8.0, factor(t, res, "Moderate environmental health").Points)
	assert.Equal(t, 8.0, factor(t, res, "Political stability meets functional standard").Points)
	assert.Equal(t, 67.0, res.Score)
}

func TestAdministrationVisa(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryAdministration)
	tw := &town.Town{VisaOnArrivalCountries: town.List{"USA", "Canada"}}

	easy := s.Score(&profile.Profile{Administration: profile.Administration{
		SafetyQuality: profile.NewSet("good"), Citizenship: "usa",
	}}, tw)
	assert.Equal(t, 20.0, factor(t, easy, "Easy visa access").Points)

	unknown := s.Score(&profile.Profile{Administration: profile.Administration{
		SafetyQuality: profile.NewSet("good"),
	}}, tw)
	assert.Equal(t, 10.0, factor(t, unknown, "Visa requirements unknown").Points)
}

func TestAdministrationVisaPreference(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryAdministration)

	tests := []struct {
		name  string
		want  profile.Set
		town  town.Town
		label string
		pts   float64
	}{
		{name: "no tier", town: town.Town{}, label: "Standard visa process", pts: 10},
		{name: "functional", want: profile.NewSet("functional"), town: town.Town{}, label: "Standard visa process", pts: 10},
		{name: "good wants easy access", want: profile.NewSet("good"), town: town.Town{}, label: "Standard visa process, easy access wanted", pts: 6},
		{name: "basic accepts paperwork", want: profile.NewSet("basic"), town: town.Town{}, label: "Standard visa process acceptable", pts: 14},
		{name: "most demanding tier wins", want: profile.NewSet("basic", "good"), town: town.Town{}, label: "Standard visa process, easy access wanted", pts: 6},
		{name: "easy access ignores tier", want: profile.NewSet("good"), town: town.Town{EasyResidencyCountries: town.List{"usa"}}, label: "Easy visa access", pts: 20},
		{name: "retirement visa ignores tier", want: profile.NewSet("good"), town: town.Town{RetirementVisaAvailable: town.Bool(true)}, label: "Retirement visa available", pts: 16},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &profile.Profile{Administration: profile.Administration{Citizenship: "usa", VisaPreference: tc.want}}
			res := s.Score(p, &tc.town)
			assert.Equal(t, tc.pts, factor(t, res, tc.label).Points)
		})
	}
}

func TestVisaPreferenceAloneIsASignal(t *testing.T) {
	p := profile.Normalize(map[string]any{"administration": map[string]any{"visa_preference": []any{"good"}}})
	require.True(t, p.Administration.HasSignal())

	res := scorerFor(t, defaultConfig(), scoring.CategoryAdministration).Score(&p, &town.Town{})
	assert.Equal(t, 10.0, factor(t, res, "Visa requirements unknown").Points)
}

func TestBudgetAffordability(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryBudget)

	tests := []struct {
		name   string
		budget float64
		tw     town.Town
		label  string
		want   float64
	}{
		{"comfortable", 3000, town.Town{MonthlyLivingCost: town.Num(2000)}, "Budget covers 150% of living costs", 40},
		{"cost index fallback", 3000, town.Town{CostIndex: town.Num(150)}, "Budget covers 100% of living costs", 28},
		{"over budget", 1000, town.Town{MonthlyLivingCost: town.Num(2000)}, "Over budget", -5},
		{"no data", 1000, town.Town{}, "Cost data unavailable", 20},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := &profile.Profile{Budget: profile.Budget{MonthlyBudget: tc.budget}}
			res := s.Score(p, &tc.tw)
			assert.Equal(t, tc.want, factor(t, res, tc.label).Points)
		})
	}
}

func TestBudgetRentAndHealthcare(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryBudget)
	p := &profile.Profile{Budget: profile.Budget{MaxRent: 800, HealthcareBudget: 200}}
	tw := &town.Town{RentOneBedroom: town.Num(950), HealthcareCostMonthly: town.Num(300)}

	res := s.Score(p, tw)

	assert.Equal(t, 15.0, factor(t, res, "Rent slightly over budget").Points)
	assert.Equal(t, 0.0, factor(t, res, "Healthcare cost over budget").Points)
}

func TestBudgetTaxNeutralWhenNotSensitive(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryBudget)
	p := &profile.Profile{Budget: profile.Budget{MonthlyBudget: 3000}}

	for _, tw := range []town.Town{{}, {IncomeTaxRatePct: town.Num(45)}, {IncomeTaxRatePct: town.Num(0)}} {
		res := s.Score(p, &tw)
		assert.Equal(t, 7.5, factor(t, res, "Tax not a priority").Points)
	}
}

func TestBudgetTaxSensitive(t *testing.T) {
	s := scorerFor(t, defaultConfig(), scoring.CategoryBudget)
	p := &profile.Profile{Budget: profile.Budget{IncomeTaxSensitive: true}}

	res := s.Score(p, &town.Town{IncomeTaxRatePct: town.Num(0), TaxTreatyUS: town.Bool(true)})
	assert.InDelta(t, 13.2, factor(t, res, "Tax burden").Points, 1e-9)

	res = s.Score(p, &town.Town{})
	assert.Equal(t, -1.0, factor(t, res, "Limited tax data").Points)
	assert.Zero(t, factor(t, res, "Income tax data unavailable").Points)
}
