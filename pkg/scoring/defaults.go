package scoring

import (
	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/town"
)

// Scorer is the interface every category scorer implements.
type Scorer interface {
	// Category returns the category this scorer produces.
	Category() Category
	// Score rates the town for the profile. The result is always within [0,100].
	Score(p *profile.Profile, t *town.Town) CategoryResult
}

// DefaultScorers returns the six category scorers bound to cfg.
func DefaultScorers(cfg *Config) []Scorer {
	return []Scorer{
		&RegionScorer{cfg: cfg},
		&ClimateScorer{cfg: cfg, inferrer: cfg.Inferrer()},
		&CultureScorer{cfg: cfg},
		&HobbiesScorer{cfg: cfg},
		&AdministrationScorer{cfg: cfg},
		&BudgetScorer{cfg: cfg},
	}
}

// tally accumulates points and the factors that explain them.
type tally struct {
	points  float64
	factors []Factor
}

func (t *tally) add(label string, points float64) {
	t.points += points
	t.factors = append(t.factors, Factor{Label: label, Points: points})
}

func (t *tally) result(c Category) CategoryResult {
	return CategoryResult{Category: c, Score: clampScore(t.points), Factors: t.factors}
}

func neutralResult(c Category, cfg *Config) CategoryResult {
	return CategoryResult{
		Category: c,
		Score:    cfg.NeutralScore,
		Factors:  []Factor{{Label: "Open to any " + string(c), Points: 0}},
	}
}
