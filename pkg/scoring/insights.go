package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/town"
)

// Narrative is the human-facing explanation of a match. It never affects
// the overall score.
type Narrative struct {
	Insights        []string
	Highlights      []string
	Warnings        []string
	AppealStatement string
}

var categoryStrength = map[Category]string{
	CategoryRegion:         "location match",
	CategoryClimate:        "climate match",
	CategoryCulture:        "cultural fit",
	CategoryHobbies:        "match for your activities",
	CategoryAdministration: "healthcare and safety",
	CategoryBudget:         "value for your budget",
}

// Explain builds insights, highlights and warnings for a scored town.
func Explain(p *profile.Profile, t *town.Town, scores map[Category]float64) Narrative {
	var n Narrative
	n.Insights = insights(p, t, scores)
	n.Highlights = highlights(p, t, scores)
	n.Warnings = warnings(p, t)
	n.AppealStatement = appeal(t, scores)
	return n
}

func insights(p *profile.Profile, t *town.Town, scores map[Category]float64) []string {
	out := []string{}
	for _, c := range Categories {
		if scores[c] < 80 {
			continue
		}
		if c == CategoryRegion && t.Country != "" {
			out = append(out, "Excellent location match in "+t.Country)
			continue
		}
		out = append(out, "Excellent "+categoryStrength[c])
	}
	if profile.Canon(t.PrimaryLanguage) == "english" {
		out = append(out, "English is the primary language")
	}
	if c := p.Administration.Citizenship; c != "" && t.VisaOnArrivalCountries.Has(c) {
		out = append(out, "Visa on arrival for "+strings.ToUpper(c)+" citizens")
	}
	if rate, ok := t.IncomeTaxRatePct.Get(); ok {
		switch {
		case rate == 0:
			out = append(out, "No income tax")
		case rate > 30:
			out = append(out, fmt.Sprintf("High income tax (%.0f%%)", rate))
		}
	}
	if t.GeographicFeatures.Has("coastal") {
		out = append(out, "Coastal living")
	}
	if t.GeographicFeatures.Has("mountain") {
		out = append(out, "Mountain setting")
	}
	return out
}

func highlights(p *profile.Profile, t *town.Town, scores map[Category]float64) []string {
	out := []string{}
	if rate, ok := t.IncomeTaxRatePct.Get(); ok && rate == 0 {
		out = append(out, "Tax-free retirement income")
	}
	if profile.Canon(t.PrimaryLanguage) == "english" {
		out = append(out, "English-speaking country")
	}
	if len(t.VisaOnArrivalCountries) > 100 {
		out = append(out, fmt.Sprintf("Visa-free access for %d+ nationalities", len(t.VisaOnArrivalCountries)/10*10))
	}
	if t.GeographicFeatures.Has("coastal") && t.GeographicFeatures.Has("mountain") {
		out = append(out, "Beach and mountains")
	}
	if scores[CategoryBudget] >= 80 && visaEasy(p, t) {
		out = append(out, "Great value with easy residency")
	}

	type scored struct {
		cat   Category
		score float64
	}
	var strong []scored
	for _, c := range Categories {
		if scores[c] >= 70 {
			strong = append(strong, scored{c, scores[c]})
		}
	}
	sort.SliceStable(strong, func(i, j int) bool { return strong[i].score > strong[j].score })
	if len(strong) > 3 {
		strong = strong[:3]
	}
	for _, s := range strong {
		out = append(out, fmt.Sprintf("Strong %s match (%.0f%%)", strings.ToLower(s.cat.Title()), s.score))
	}
	return out
}

func visaEasy(p *profile.Profile, t *town.Town) bool {
	c := p.Administration.Citizenship
	if c != "" && (t.VisaOnArrivalCountries.Has(c) || t.EasyResidencyCountries.Has(c)) {
		return true
	}
	return t.RetirementVisaAvailable.IsTrue()
}

func warnings(p *profile.Profile, t *town.Town) []string {
	out := []string{}

	primary := profile.Canon(t.PrimaryLanguage)
	prof := vocabularyKey(t.EnglishProficiency)
	if p.Culture.LanguagePreference.Has("english_only") && primary != "" && primary != "english" &&
		(prof == "" || prof == "low" || prof == "very_low" || prof == "none") {
		out = append(out, "Language barrier")
	}

	c := p.Administration.Citizenship
	if c != "" && !t.VisaOnArrivalCountries.Has(c) && !t.EasyResidencyCountries.Has(c) &&
		!t.RetirementVisaAvailable.IsTrue() {
		out = append(out, "Complex visa process")
	}

	if rate, ok := t.IncomeTaxRatePct.Get(); ok && rate > 40 {
		out = append(out, "Very high income tax")
	}
	if v, ok := t.HealthcareScore.Get(); ok && v < 5 {
		out = append(out, "Healthcare may be limited")
	}
	if v, ok := t.SafetyScore.Get(); ok && v < 5 {
		out = append(out, "Safety concerns may need investigation")
	}
	if budget := p.Budget.MonthlyBudget; budget > 0 {
		if cost, ok := monthlyCost(t); ok && cost > budget*1.15 {
			out = append(out, fmt.Sprintf("Over budget by %.0f%%", (cost/budget-1)*100))
		}
	}
	if humidityVocab.canonSet(p.Climate.Humidity).Has("dry") && humidityVocab.canon(t.HumidityLevel) == "humid" {
		out = append(out, "Humid climate may affect comfort")
	}
	return out
}

// appeal describes the town by its strongest category.
func appeal(t *town.Town, scores map[Category]float64) string {
	best, bestScore := Category(""), -1.0
	for _, c := range Categories {
		if s, ok := scores[c]; ok && s > bestScore {
			best, bestScore = c, s
		}
	}
	if best == "" || bestScore < 60 {
		return ""
	}
	name := t.Name
	if name == "" {
		name = "This town"
	}
	return fmt.Sprintf("%s stands out for its %s.", name, categoryStrength[best])
}
