package scoring

import (
	"math"

	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/town"
)

const (
	regionRawMax       = 90.0
	regionCountryPts   = 40.0
	regionRegionPts    = 30.0
	regionOpenPts      = 20.0
	regionFeaturePts   = 30.0
	regionVegPts       = 20.0
	regionCoastalBonus = 10.0
)

// RegionScorer rates location fit: country or region, geography, vegetation.
type RegionScorer struct {
	cfg *Config
}

func (s *RegionScorer) Category() Category { return CategoryRegion }

func (s *RegionScorer) Score(p *profile.Profile, t *town.Town) CategoryResult {
	pref := p.Region
	if !pref.HasSignal() {
		return neutralResult(CategoryRegion, s.cfg)
	}

	var tl tally
	s.scoreLocation(&tl, pref, t)
	townFeatures := s.townFeatures(t)
	s.scoreFeatures(&tl, pref, townFeatures)
	s.scoreVegetation(&tl, pref, t)

	if pref.GeographicFeatures.Has("coastal") && isCoastal(t) {
		tl.add("Coastal access", regionCoastalBonus)
	}

	res := tl.result(CategoryRegion)
	res.Score = clampScore(math.Round(tl.points / regionRawMax * 100))
	return res
}

func (s *RegionScorer) scoreLocation(tl *tally, pref profile.Region, t *town.Town) {
	country := profile.Canon(t.Country)
	if pref.Countries.Empty() && pref.Regions.Empty() && pref.Provinces.Empty() {
		tl.add("Open to any country", regionOpenPts)
		return
	}
	if country != "" && pref.Countries.Has(country) {
		tl.add("Country match: "+t.Country, regionCountryPts)
		return
	}
	// US towns are often chosen by state rather than country.
	if t.StateCode != "" && pref.Countries.Has(t.StateCode) {
		tl.add("State match: "+t.StateCode, regionCountryPts)
		return
	}

	townRegions := profile.NewSet(append([]string{t.GeoRegion, t.StateCode}, t.Regions...)...)
	for _, want := range append(append(profile.Set{}, pref.Regions...), pref.Provinces...) {
		if townRegions.Has(want) {
			tl.add("Region match: "+want, regionRegionPts)
			return
		}
	}
	for _, want := range pref.Countries {
		if townRegions.Has(want) {
			tl.add("Region match: "+want, regionRegionPts)
			return
		}
	}
	tl.add("No location match", 0)
}

// townFeatures returns the town's geographic features, adding coastal when
// only the region names reveal it.
func (s *RegionScorer) townFeatures(t *town.Town) profile.Set {
	features := profile.NewSet(t.GeographicFeatures...)
	if !features.Has("coastal") && regionsLookCoastal(t) {
		features = profile.NewSet(append(features, "coastal")...)
	}
	return features
}

func (s *RegionScorer) scoreFeatures(tl *tally, pref profile.Region, townFeatures profile.Set) {
	want := pref.GeographicFeatures
	if want.Empty() || len(want) >= len(allGeographicFeatures) {
		tl.add("Open to any geography", regionFeaturePts)
		return
	}
	if townFeatures.Empty() {
		tl.add("Geography data unavailable", 0)
		return
	}
	if ArrayOverlap(want, townFeatures, regionFeaturePts) > 0 {
		tl.add("Geographic features match", regionFeaturePts)
		return
	}
	if related(want, townFeatures, relatedFeatures) {
		tl.add("Related geographic features", regionFeaturePts/2)
		return
	}
	tl.add("Geographic features differ", 0)
}

func (s *RegionScorer) scoreVegetation(tl *tally, pref profile.Region, t *town.Town) {
	want := pref.VegetationTypes
	if want.Empty() {
		tl.add("Open to any vegetation", regionVegPts)
		return
	}
	townVeg := profile.NewSet(t.VegetationTypes...)
	if townVeg.Empty() {
		tl.add("Vegetation data unavailable", 0)
		return
	}
	if ArrayOverlap(want, townVeg, regionVegPts) > 0 {
		tl.add("Vegetation match", regionVegPts)
		return
	}
	if related(want, townVeg, relatedVegetation) {
		tl.add("Related vegetation", regionVegPts/2)
		return
	}
	tl.add("Vegetation differs", 0)
}

func regionsLookCoastal(t *town.Town) bool {
	for _, r := range t.Regions {
		if containsAny(r, coastalKeywords...) {
			return true
		}
	}
	return containsAny(t.GeoRegion, coastalKeywords...)
}

func isCoastal(t *town.Town) bool {
	if len(t.WaterBodies) > 0 {
		return true
	}
	if d, ok := t.DistanceToOceanKm.Get(); ok && d <= 10 {
		return true
	}
	return t.GeographicFeatures.Has("coastal") || regionsLookCoastal(t)
}
