package scoring

import (
	"fmt"
	"math"

	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/town"
)

const (
	hobbiesActivityPts  = 40.0
	hobbiesInterestPts  = 30.0
	hobbiesLifestylePts = 30.0
	hobbiesTravelBonus  = 10.0
)

// lifestyleRatings maps an importance key to the town rating it is checked against.
var lifestyleRatings = []struct {
	key    string
	rating func(t *town.Town) town.Number
}{
	{"outdoor_activities", func(t *town.Town) town.Number { return t.OutdoorRating }},
	{"cultural_events", func(t *town.Town) town.Number { return t.CulturalRating }},
	{"shopping", func(t *town.Town) town.Number { return t.ShoppingRating }},
	{"wellness", func(t *town.Town) town.Number { return t.WellnessRating }},
}

// HobbiesScorer rates activity and interest coverage plus lifestyle amenities.
type HobbiesScorer struct {
	cfg *Config
}

func (s *HobbiesScorer) Category() Category { return CategoryHobbies }

func (s *HobbiesScorer) Score(p *profile.Profile, t *town.Town) CategoryResult {
	pref := p.Hobbies
	if !pref.HasSignal() {
		return neutralResult(CategoryHobbies, s.cfg)
	}

	var tl tally
	scoreOverlap(&tl, "Activities", pref.Activities, t.ActivitiesAvailable, hobbiesActivityPts)
	scoreOverlap(&tl, "Interests", pref.Interests, t.InterestsSupported, hobbiesInterestPts)
	s.scoreLifestyle(&tl, pref.LifestyleImportance, t)
	s.scoreTravel(&tl, pref.TravelFrequency, t)
	return tl.result(CategoryHobbies)
}

func scoreOverlap(tl *tally, name string, want profile.Set, available town.List, maxPts float64) {
	if want.Empty() {
		tl.add(name+": open", maxPts/2)
		return
	}
	if len(available) == 0 {
		tl.add(name+" data unavailable", 0)
		return
	}
	pts := math.Round(ArrayOverlap(want, available, maxPts)*10) / 10
	if pts <= 0 {
		tl.add("No matching "+lowerFirst(name), 0)
		return
	}
	hits := int(math.Round(pts / maxPts * float64(len(want))))
	tl.add(fmt.Sprintf("%s available (%d of %d)", name, hits, len(want)), pts)
}

func (s *HobbiesScorer) scoreLifestyle(tl *tally, importance map[string]int, t *town.Town) {
	considered, matched := 0, 0
	for _, lr := range lifestyleRatings {
		imp := importance[lr.key]
		if imp < 3 {
			continue
		}
		considered++
		rating, ok := lr.rating(t).Get()
		if !ok {
			continue
		}
		need := 5.0
		if imp >= 4 {
			need = 7
		}
		if rating >= need {
			matched++
		}
	}
	if considered == 0 {
		tl.add("Lifestyle amenities: flexible", hobbiesLifestylePts)
		return
	}
	pts := math.Round(hobbiesLifestylePts*float64(matched)/float64(considered)*10) / 10
	tl.add(fmt.Sprintf("Lifestyle priorities met (%d of %d)", matched, considered), pts)
}

func (s *HobbiesScorer) scoreTravel(tl *tally, frequency string, t *town.Town) {
	if frequency != "frequent" {
		return
	}
	rating, ok := t.TravelConnectivityRating.Get()
	if !ok {
		return
	}
	switch {
	case rating >= 4:
		tl.add("Well connected for frequent travel", hobbiesTravelBonus)
	case rating <= 2:
		tl.add("Limited travel connectivity", -5)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}
