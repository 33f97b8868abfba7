package scoring

import (
	"fmt"
	"math"

	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/town"
)

const (
	budgetAffordPts     = 40.0
	budgetRentPts       = 30.0
	budgetHealthPts     = 20.0
	budgetTaxPts        = 15.0
	budgetTaxNeutral    = 7.5
	costIndexBaseline   = 2000.0 // USD per month at cost_index 100
	rentToleranceFactor = 0.8
)

// BudgetScorer rates affordability, rent, healthcare cost and tax burden.
type BudgetScorer struct {
	cfg *Config
}

func (s *BudgetScorer) Category() Category { return CategoryBudget }

func (s *BudgetScorer) Score(p *profile.Profile, t *town.Town) CategoryResult {
	pref := p.Budget
	if !pref.HasSignal() {
		return neutralResult(CategoryBudget, s.cfg)
	}

	var tl tally
	s.scoreAffordability(&tl, pref.MonthlyBudget, t)
	scoreLimit(&tl, "Rent", pref.MaxRent, t.RentOneBedroom, budgetRentPts, 1/rentToleranceFactor, 12)
	scoreLimit(&tl, "Healthcare cost", pref.HealthcareBudget, t.HealthcareCostMonthly, budgetHealthPts, 1.25, 8)
	s.scoreTax(&tl, pref, t)
	return tl.result(CategoryBudget)
}

// monthlyCost returns the town's typical monthly cost, estimated from the
// cost index when no direct figure exists.
func monthlyCost(t *town.Town) (float64, bool) {
	if c, ok := t.MonthlyLivingCost.Get(); ok && c > 0 {
		return c, true
	}
	if idx, ok := t.CostIndex.Get(); ok && idx > 0 {
		return idx / 100 * costIndexBaseline, true
	}
	return 0, false
}

func (s *BudgetScorer) scoreAffordability(tl *tally, budget float64, t *town.Town) {
	if budget <= 0 {
		tl.add("No budget limit set", budgetAffordPts)
		return
	}
	cost, ok := monthlyCost(t)
	if !ok {
		tl.add("Cost data unavailable", budgetAffordPts/2)
		return
	}
	ratio := budget / cost
	for _, band := range s.cfg.AffordabilityBands {
		if ratio >= band.MinRatio {
			tl.add(fmt.Sprintf("Budget covers %.0f%% of living costs", ratio*100), band.Points)
			return
		}
	}
	tl.add("Over budget", -5)
}

// scoreLimit awards full points when the town's cost is within the user's
// limit and half when within limit×tolerance.
func scoreLimit(tl *tally, name string, limit float64, actual town.Number, maxPts, tolerance, missingPts float64) {
	if limit <= 0 {
		tl.add(name+": flexible", maxPts)
		return
	}
	v, ok := actual.Get()
	if !ok {
		tl.add(name+" data unavailable", missingPts)
		return
	}
	switch {
	case v <= limit:
		tl.add(name+" within budget", maxPts)
	case v <= limit*tolerance:
		tl.add(name+" slightly over budget", maxPts/2)
	default:
		tl.add(name+" over budget", 0)
	}
}

func (s *BudgetScorer) scoreTax(tl *tally, pref profile.Budget, t *town.Town) {
	if !pref.TaxSensitive() {
		tl.add("Tax not a priority", budgetTaxNeutral)
		return
	}

	checks := []struct {
		sensitive bool
		kind      TaxKind
		rate      town.Number
		name      string
	}{
		{pref.IncomeTaxSensitive, TaxIncome, t.IncomeTaxRatePct, "Income tax"},
		{pref.PropertyTaxSensitive, TaxProperty, t.PropertyTaxRatePct, "Property tax"},
		{pref.SalesTaxSensitive, TaxSales, t.SalesTaxRatePct, "Sales tax"},
	}
	sum, n := 0, 0
	for _, c := range checks {
		if !c.sensitive {
			continue
		}
		pts, ok := TaxBracket(c.rate, c.kind, s.cfg.TaxBrackets)
		if !ok {
			tl.add(c.name+" data unavailable", 0)
			continue
		}
		sum += pts
		n++
	}

	base := 0.0
	if n > 0 {
		avg := float64(sum) / float64(n)
		base = avg / 5 * 0.8 * budgetTaxPts
	}

	pool := 0.2 * budgetTaxPts
	bonus := 0.0
	if t.TaxTreatyUS.IsTrue() {
		bonus += 0.4 * pool
	}
	if t.TaxHaven.IsTrue() {
		bonus += 0.5 * pool
	}
	if t.ForeignIncomeTaxed.IsFalse() {
		bonus += 0.3 * pool
	}

	total := math.Min(base+bonus, budgetTaxPts)
	if n > 0 || bonus > 0 {
		tl.add("Tax burden", round1(total))
	}
	if n == 0 {
		tl.add("Limited tax data", -1)
	}
}
