package scoring

import (
	"math"

	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/town"
)

const (
	cultureLanguagePts = 25.0
	cultureExpatPts    = 20.0
	culturePacePts     = 20.0
	cultureUrbanPts    = 15.0
	cultureAmenityPts  = 20.0
)

var englishProficiencyPts = map[string]float64{
	"native":    25,
	"very_high": 25,
	"high":      20,
	"moderate":  12,
	"medium":    12,
	"low":       5,
	"very_low":  5,
	"none":      0,
}

// CultureScorer rates language, expat community, pace of life, urban
// character and cultural amenities.
type CultureScorer struct {
	cfg *Config
}

func (s *CultureScorer) Category() Category { return CategoryCulture }

func (s *CultureScorer) Score(p *profile.Profile, t *town.Town) CategoryResult {
	pref := p.Culture
	if !pref.HasSignal() {
		return neutralResult(CategoryCulture, s.cfg)
	}

	var tl tally
	s.scoreLanguage(&tl, pref, t)
	scoreLifestyle(&tl, "Expat community", pref.ExpatCommunity, t.ExpatCommunitySize, cultureExpatPts, 8, expatVocab)
	scoreLifestyle(&tl, "Pace of life", pref.PaceOfLife, t.PaceOfLife, culturePacePts, 8, paceVocab)
	scoreLifestyle(&tl, "Urban/rural character", pref.UrbanRural, t.UrbanRural, cultureUrbanPts, 6, urbanVocab)
	s.scoreAmenities(&tl, pref.AmenityImportance, t)
	return tl.result(CategoryCulture)
}

func (s *CultureScorer) scoreLanguage(tl *tally, pref profile.Culture, t *town.Town) {
	wants := pref.LanguagePreference
	if wants.Empty() {
		tl.add("Flexible on language", cultureLanguagePts)
		return
	}

	primary := profile.Canon(t.PrimaryLanguage)
	if primary == "english" {
		tl.add("English is the primary language", cultureLanguagePts)
		return
	}

	spoken := pref.LanguagesSpoken
	if primary != "" && spoken.Has(primary) {
		tl.add("You speak "+t.PrimaryLanguage, cultureLanguagePts)
		return
	}
	for _, lang := range t.SecondaryLanguages {
		if spoken.Has(lang) {
			tl.add("You speak "+lang, cultureLanguagePts)
			return
		}
	}

	best, label := 0.0, ""
	prof, hasProf := englishProficiencyPts[vocabularyKey(t.EnglishProficiency)]
	if hasProf && prof > best {
		best, label = prof, "English proficiency: "+profile.Canon(t.EnglishProficiency)
	}
	if wants.Has("willing_to_learn") {
		pts := 10.0
		lbl := "Willing to learn the local language"
		if romanceLanguages[primary] {
			pts += 5
			lbl = "Willing to learn " + t.PrimaryLanguage + " (Romance language)"
		}
		if pts > best {
			best, label = pts, lbl
		}
	}
	if wants.Has("comfortable") && 15 > best {
		best, label = 15, "Comfortable with a foreign language"
	}

	if best > 0 {
		tl.add(label, best)
		return
	}
	if wants.Has("english_only") && !hasProf {
		tl.add("Language barrier (English-only)", -5)
		return
	}
	tl.add("Language mismatch", 0)
}

// scoreLifestyle scores a single-label preference with adjacency credit.
// missingPts applies when the town has no data.
func scoreLifestyle(tl *tally, name string, prefs profile.Set, actual string, maxPts, missingPts float64, vocab vocabulary) {
	if prefs.Empty() {
		tl.add(name+": flexible", maxPts)
		return
	}
	if actual == "" {
		tl.add(name+" data unavailable", missingPts)
		return
	}
	pts := vocab.match(prefs, actual, maxPts)
	switch {
	case pts >= maxPts:
		tl.add(name+" match", pts)
	case pts > 0:
		tl.add(name+" close match", pts)
	default:
		tl.add(name+" mismatch", 0)
	}
}

func (s *CultureScorer) scoreAmenities(tl *tally, importance map[string]int, t *town.Town) {
	ratings := map[string]town.Number{
		"dining_nightlife": mean(t.RestaurantsRating, t.NightlifeRating),
		"museums":          t.MuseumsRating,
		"cultural_events":  t.CulturalEventsRating,
	}
	var considered []string
	for _, key := range []string{"dining_nightlife", "museums", "cultural_events"} {
		if importance[key] > 1 {
			considered = append(considered, key)
		}
	}
	if len(considered) == 0 {
		tl.add("Cultural amenities: flexible", cultureAmenityPts)
		return
	}

	share := cultureAmenityPts / float64(len(considered))
	total := 0.0
	for _, key := range considered {
		rating, ok := ratings[key].Get()
		if !ok {
			total += share / 2
			continue
		}
		diff := math.Abs(float64(importance[key]) - rating)
		switch {
		case diff <= 1:
			total += share
		case diff <= 2:
			total += share * 0.4
		}
	}
	tl.add("Cultural amenities", math.Round(total*10)/10)
}

// mean averages the present values, or is absent when none are.
func mean(ns ...town.Number) town.Number {
	sum, n := 0.0, 0
	for _, x := range ns {
		if v, ok := x.Get(); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return town.Number{}
	}
	return town.Num(sum / float64(n))
}

func vocabularyKey(s string) string {
	return vocabulary{}.canon(s)
}
