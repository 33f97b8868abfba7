package scoring

import (
	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/town"
)

const (
	adminHealthcarePts = 30.0
	adminSafetyPts     = 25.0
	adminVisaPts       = 20.0
	adminEnvPts        = 15.0
	adminStabilityPts  = 10.0
)

// AdministrationScorer rates healthcare, safety, visa access, environmental
// health and political stability against the quality the user asked for.
type AdministrationScorer struct {
	cfg *Config
}

func (s *AdministrationScorer) Category() Category { return CategoryAdministration }

func (s *AdministrationScorer) Score(p *profile.Profile, t *town.Town) CategoryResult {
	pref := p.Administration
	if !pref.HasSignal() {
		return neutralResult(CategoryAdministration, s.cfg)
	}

	var tl tally
	s.scoreQuality(&tl, "Healthcare", HealthcareIndex(t), requirement(pref.HealthcareQuality), adminHealthcarePts, 5)
	s.scoreQuality(&tl, "Safety", SafetyIndex(t), requirement(pref.SafetyQuality), adminSafetyPts, 5)
	s.scoreVisa(&tl, pref, t)
	s.scoreEnvironment(&tl, pref.EnvironmentalHealth, t)

	stability := t.PoliticalStabilityRating
	if v, ok := stability.Get(); ok {
		stability = town.Num(v / 10)
	}
	s.scoreQuality(&tl, "Political stability", stability, requirement(pref.PoliticalStability), adminStabilityPts, 2)
	return tl.result(CategoryAdministration)
}

// requirement picks the most demanding requested tier, defaulting to functional.
func requirement(requested profile.Set) QualityRequirement {
	switch {
	case requested.Has(string(RequireGood)):
		return RequireGood
	case requested.Has(string(RequireFunctional)):
		return RequireFunctional
	case requested.Has(string(RequireBasic)):
		return RequireBasic
	default:
		return RequireFunctional
	}
}

func (s *AdministrationScorer) scoreQuality(tl *tally, name string, rating town.Number, req QualityRequirement, maxPts, missingPts float64) {
	v, ok := rating.Get()
	if !ok {
		tl.add(name+" data unavailable", missingPts)
		return
	}
	pts := round1(TieredQuality(v, req, maxPts, s.cfg.Ladders))
	switch {
	case pts >= maxPts*0.8:
		tl.add(name+" meets "+string(req)+" standard", pts)
	case pts >= maxPts*0.4:
		tl.add(name+" partially meets "+string(req)+" standard", pts)
	default:
		tl.add(name+" below "+string(req)+" standard", pts)
	}
}

func (s *AdministrationScorer) scoreVisa(tl *tally, pref profile.Administration, t *town.Town) {
	if pref.Citizenship == "" {
		tl.add("Visa requirements unknown", 10)
		return
	}
	if t.VisaOnArrivalCountries.Has(pref.Citizenship) || t.EasyResidencyCountries.Has(pref.Citizenship) {
		tl.add("Easy visa access", adminVisaPts)
		return
	}
	if t.RetirementVisaAvailable.IsTrue() {
		tl.add("Retirement visa available", 16)
		return
	}
	// Without easy access, the stated visa tier decides how much the usual
	// paperwork costs.
	switch {
	case pref.VisaPreference.Has(string(RequireGood)):
		tl.add("Standard visa process, easy access wanted", 6)
	case pref.VisaPreference.Has(string(RequireBasic)):
		tl.add("Standard visa process acceptable", 14)
	default:
		tl.add("Standard visa process", 10)
	}
}

func (s *AdministrationScorer) scoreEnvironment(tl *tally, sensitivity string, t *town.Town) {
	if sensitivity != "sensitive" && sensitivity != "very_sensitive" {
		tl.add("Environmental health: flexible", adminEnvPts)
		return
	}
	rating, ok := t.EnvironmentalHealthRating.Get()
	switch {
	case !ok:
		tl.add("Environmental health data unavailable", 0)
	case rating >= 4:
		tl.add("Good environmental health", adminEnvPts)
	case rating >= 3:
		tl.add("Moderate environmental health", 8)
	default:
		tl.add("Poor environmental health", 0)
	}
}
