package scoring

import (
	"github.com/townscope/townscope/pkg/profile"
)

// Weights maps each category to its share of the overall score.
type Weights map[Category]float64

// Sum returns the total weight across all categories.
func (w Weights) Sum() float64 {
	total := 0.0
	for _, c := range Categories {
		total += w[c]
	}
	return total
}

// Clone returns an independent copy.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// AdaptiveWeights is the base table the adaptive rules start from.
func AdaptiveWeights() Weights {
	return Weights{
		CategoryRegion:         0.10,
		CategoryClimate:        0.15,
		CategoryCulture:        0.15,
		CategoryHobbies:        0.15,
		CategoryAdministration: 0.20,
		CategoryBudget:         0.25,
	}
}

// SimpleWeights is the fixed table used before adaptive weighting existed.
// Set it as Config.BaseWeights to reproduce those rankings.
func SimpleWeights() Weights {
	return Weights{
		CategoryRegion:         0.20,
		CategoryClimate:        0.15,
		CategoryCulture:        0.15,
		CategoryHobbies:        0.10,
		CategoryAdministration: 0.20,
		CategoryBudget:         0.20,
	}
}

// WeightRule shifts weight between categories when a profile matches.
type WeightRule struct {
	Name    string
	Applies func(p *profile.Profile) bool
	Deltas  Weights
}

// WeightRules returns the adaptive rules in evaluation order.
func WeightRules() []WeightRule {
	return []WeightRule{
		{
			Name: "Healthcare Priority",
			Applies: func(p *profile.Profile) bool {
				access := p.Administration.HealthcareAccess
				return access == "full_access" || access == "hospital_specialists"
			},
			Deltas: Weights{
				CategoryAdministration: 0.10,
				CategoryHobbies:        -0.05,
				CategoryCulture:        -0.05,
			},
		},
		{
			Name: "Budget Conscious",
			Applies: func(p *profile.Profile) bool {
				return p.Budget.TaxSensitive()
			},
			Deltas: Weights{
				CategoryBudget:         0.05,
				CategoryAdministration: 0.05,
				CategoryHobbies:        -0.05,
				CategoryClimate:        -0.05,
			},
		},
		{
			Name: "Active Lifestyle",
			Applies: func(p *profile.Profile) bool {
				return len(p.Hobbies.Activities) >= 5 || len(p.Hobbies.Interests) >= 5
			},
			Deltas: Weights{
				CategoryHobbies:        0.05,
				CategoryCulture:        0.05,
				CategoryAdministration: -0.05,
				CategoryRegion:         -0.05,
			},
		},
		{
			Name: "Climate Sensitive",
			Applies: func(p *profile.Profile) bool {
				return profile.SeasonalPreference(p.Climate.Seasonal) != ""
			},
			Deltas: Weights{
				CategoryClimate: 0.05,
				CategoryHobbies: -0.05,
			},
		},
	}
}

// ComputeWeights derives the category weights for a profile. Deltas from
// every matching rule are summed onto the base table, each weight is
// floored, and the result is renormalized to sum to 1. The names of the
// rules that fired are returned in evaluation order.
func ComputeWeights(p *profile.Profile, cfg *Config) (Weights, []string) {
	if cfg == nil {
		d := Defaults()
		cfg = &d
	}
	base := cfg.BaseWeights
	if len(base) == 0 || base.Sum() <= 0 {
		base = AdaptiveWeights()
	}

	w := make(Weights, len(Categories))
	for _, c := range Categories {
		w[c] = base[c]
	}

	var fired []string
	if p != nil {
		for _, rule := range WeightRules() {
			if !rule.Applies(p) {
				continue
			}
			fired = append(fired, rule.Name)
			for _, c := range Categories {
				w[c] += rule.Deltas[c]
			}
		}
	}

	floor := cfg.WeightFloor
	for _, c := range Categories {
		if w[c] < floor {
			w[c] = floor
		}
	}

	total := w.Sum()
	for _, c := range Categories {
		w[c] /= total
	}
	return w, fired
}
