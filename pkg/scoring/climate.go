package scoring

import (
	"math"
	"strings"

	"github.com/townscope/townscope/pkg/profile"
	"github.com/townscope/townscope/pkg/town"
)

const (
	climateTempPts     = 25.0
	climateHumidityPts = 20.0
	climateSunPts      = 20.0
	climatePrecipPts   = 10.0
	climateSeasonalPts = 15.0

	// Credit caps for fallbacks, as a fraction of the part's maximum.
	numericInferenceShare = 0.65
	keywordShare          = 0.5
)

// ClimateScorer rates temperature, humidity, sunshine, precipitation and
// seasonal fit. Each part falls back from measured numbers to categorical
// labels to inference from the climate description.
type ClimateScorer struct {
	cfg      *Config
	inferrer ClimateInferrer
}

func (s *ClimateScorer) Category() Category { return CategoryClimate }

func (s *ClimateScorer) Score(p *profile.Profile, t *town.Town) CategoryResult {
	pref := p.Climate
	if !pref.HasSignal() {
		return neutralResult(CategoryClimate, s.cfg)
	}

	var tl tally
	s.scoreTemperature(&tl, "Summer", pref.Summer, t.AvgTempSummer, t.SummerClimate, s.cfg.SummerRanges, summerVocab, AttrSummer, t)
	s.scoreTemperature(&tl, "Winter", pref.Winter, t.AvgTempWinter, t.WinterClimate, s.cfg.WinterRanges, winterVocab, AttrWinter, t)
	s.scoreLabel(&tl, "Humidity", pref.Humidity, t.HumidityLevel, climateHumidityPts, humidityVocab, AttrHumidity, t, "")
	s.scoreLabel(&tl, "Sunshine", pref.Sunshine, t.SunshineLevel, climateSunPts, sunshineVocab, AttrSunshine, t, numericSunshine(t))
	s.scoreLabel(&tl, "Precipitation", pref.Precipitation, t.PrecipitationLevel, climatePrecipPts, precipitationVocab, AttrPrecipitation, t, numericPrecipitation(t))
	s.scoreSeasonal(&tl, pref.Seasonal, t)
	return tl.result(CategoryClimate)
}

func (s *ClimateScorer) scoreTemperature(tl *tally, season string, prefs profile.Set, temp town.Number,
	label string, ranges map[string]Range, vocab vocabulary, attr ClimateAttribute, t *town.Town) {
	prefs = vocab.canonSet(prefs)
	if prefs.Empty() {
		tl.add("Flexible on "+strings.ToLower(season)+" climate", climateTempPts)
		return
	}

	if v, ok := temp.Get(); ok {
		best, known := 0.0, false
		for _, want := range prefs {
			r, ok := ranges[want]
			if !ok {
				continue
			}
			known = true
			if pct := DistanceDecay(v, r, s.cfg.DecayTiers); pct > best {
				best = pct
			}
		}
		if known {
			pts := math.Round(best * climateTempPts / 100)
			switch {
			case best >= 100:
				tl.add(season+" temperature in preferred range", pts)
			case pts > 0:
				tl.add(season+" temperature near preferred range", pts)
			default:
				tl.add(season+" temperature outside preferred range", 0)
			}
			return
		}
	}

	if label != "" {
		pts := vocab.match(prefs, label, climateTempPts)
		tl.add(season+" climate: "+vocab.canon(label), pts)
		return
	}

	if attr == AttrSummer {
		if hours, ok := t.SunshineHours.Get(); ok {
			capPts := math.Round(climateTempPts * 0.52)
			pts := vocab.match(prefs, summerLabelFromSunshine(hours), capPts)
			tl.add(season+" climate inferred from sunshine", pts)
			return
		}
	}

	if inferred, ok := s.inferrer.Infer(attr, t.ClimateDescription); ok {
		pts := vocab.match(prefs, inferred, climateTempPts*0.4)
		tl.add(season+" climate inferred from description", pts)
		return
	}
	tl.add(season+" climate data unavailable", 0)
}

// scoreLabel handles the categorical parts. numericLabel is an inferred
// label from measured data, empty when none is available.
func (s *ClimateScorer) scoreLabel(tl *tally, name string, prefs profile.Set, label string, maxPts float64,
	vocab vocabulary, attr ClimateAttribute, t *town.Town, numericLabel string) {
	if prefs.Empty() {
		tl.add("Flexible on "+strings.ToLower(name), maxPts)
		return
	}
	if label != "" {
		pts := vocab.match(prefs, label, maxPts)
		if pts > 0 {
			tl.add(name+" match", pts)
		} else {
			tl.add(name+" differs from preference", 0)
		}
		return
	}
	if numericLabel != "" {
		pts := vocab.match(prefs, numericLabel, math.Round(maxPts*numericInferenceShare))
		tl.add(name+" inferred from measurements", pts)
		return
	}
	if inferred, ok := s.inferrer.Infer(attr, t.ClimateDescription); ok {
		pts := vocab.match(prefs, inferred, maxPts*keywordShare)
		tl.add(name+" inferred from description", pts)
		return
	}
	tl.add(name+" data unavailable", 0)
}

func (s *ClimateScorer) scoreSeasonal(tl *tally, seasonal string, t *town.Town) {
	seasonal = profile.SeasonalPreference(seasonal)
	if seasonal == "" {
		tl.add("Flexible on seasons", climateSeasonalPts)
		return
	}
	summer, okS := t.AvgTempSummer.Get()
	winter, okW := t.AvgTempWinter.Get()
	if !okS || !okW {
		tl.add("Seasonal data unavailable", 0)
		return
	}

	var pts float64
	switch seasonal {
	case profile.SeasonSummerFocused:
		pts = stepPoints(winter >= 12, winter >= 5)
	case profile.SeasonWinterFocused:
		pts = stepPoints(summer <= 24, summer <= 28)
	case profile.SeasonAll:
		spread := summer - winter
		pts = stepPoints(spread >= 15, spread >= 10)
	}
	tl.add("Seasonal fit", pts)
}

func stepPoints(full, partial bool) float64 {
	switch {
	case full:
		return climateSeasonalPts
	case partial:
		return 8
	default:
		return 0
	}
}

func numericSunshine(t *town.Town) string {
	if h, ok := t.SunshineHours.Get(); ok {
		return sunshineLabel(h)
	}
	return ""
}

func numericPrecipitation(t *town.Town) string {
	if mm, ok := t.AnnualRainfall.Get(); ok {
		return precipitationLabel(mm)
	}
	return ""
}
