package scoring

import (
	"strings"

	"github.com/townscope/townscope/pkg/profile"
)

// vocabulary canonicalizes the free-form labels found in town data and
// knows which canonical labels sit next to each other.
type vocabulary struct {
	aliases map[string]string
	adj     AdjacencyMap
}

func (v vocabulary) canon(label string) string {
	label = profile.Canon(label)
	label = strings.NewReplacer(" ", "_", "-", "_").Replace(label)
	if a, ok := v.aliases[label]; ok {
		return a
	}
	return label
}

func (v vocabulary) canonSet(s profile.Set) profile.Set {
	out := make([]string, 0, len(s))
	for _, label := range s {
		out = append(out, v.canon(label))
	}
	return profile.NewSet(out...)
}

// match scores the best preferred label against the town's label.
func (v vocabulary) match(prefs profile.Set, actual string, maxPoints float64) float64 {
	return bestAdjacency(v.canonSet(prefs), v.canon(actual), maxPoints, v.adj)
}

var (
	summerVocab = vocabulary{
		aliases: map[string]string{"cool": "mild", "very_hot": "hot", "moderate": "mild"},
		adj:     AdjacencyMap{"mild": {"warm"}, "warm": {"mild", "hot"}, "hot": {"warm"}},
	}
	winterVocab = vocabulary{
		aliases: map[string]string{"freezing": "cold", "snowy": "cold", "warm": "mild", "moderate": "cool"},
		adj:     AdjacencyMap{"cold": {"cool"}, "cool": {"cold", "mild"}, "mild": {"cool"}},
	}
	humidityVocab = vocabulary{
		aliases: map[string]string{"low": "dry", "arid": "dry", "moderate": "balanced", "high": "humid", "very_humid": "humid"},
		adj:     AdjacencyMap{"dry": {"balanced"}, "balanced": {"dry", "humid"}, "humid": {"balanced"}},
	}
	sunshineVocab = vocabulary{
		aliases: map[string]string{
			"sunny": "often_sunny", "mostly_sunny": "often_sunny", "abundant": "often_sunny", "very_sunny": "often_sunny",
			"moderate": "balanced", "partly_sunny": "balanced",
			"cloudy": "less_sunny", "often_cloudy": "less_sunny", "limited": "less_sunny",
		},
		adj: AdjacencyMap{"often_sunny": {"balanced"}, "balanced": {"often_sunny", "less_sunny"}, "less_sunny": {"balanced"}},
	}
	precipitationVocab = vocabulary{
		aliases: map[string]string{
			"dry": "mostly_dry", "low": "mostly_dry", "arid": "mostly_dry",
			"moderate": "balanced",
			"wet": "less_dry", "rainy": "less_dry", "often_rainy": "less_dry", "high": "less_dry",
		},
		adj: AdjacencyMap{"mostly_dry": {"balanced"}, "balanced": {"mostly_dry", "less_dry"}, "less_dry": {"balanced"}},
	}
	expatVocab = vocabulary{
		aliases: map[string]string{"very_large": "large", "medium": "moderate", "very_small": "small", "none": "small", "minimal": "small"},
		adj:     AdjacencyMap{"large": {"moderate"}, "moderate": {"large", "small"}, "small": {"moderate"}},
	}
	paceVocab = vocabulary{
		aliases: map[string]string{"slow": "relaxed", "laid_back": "relaxed", "busy": "fast", "medium": "moderate"},
		adj:     AdjacencyMap{"fast": {"moderate"}, "moderate": {"fast", "relaxed"}, "relaxed": {"moderate"}},
	}
	urbanVocab = vocabulary{
		aliases: map[string]string{"city": "urban", "town": "suburban", "countryside": "rural", "village": "rural"},
		adj:     AdjacencyMap{"urban": {"suburban"}, "suburban": {"urban", "rural"}, "rural": {"suburban"}},
	}
)

// relatedFeatures earn partial region credit when no exact feature matches.
var relatedFeatures = map[string][]string{
	"coastal":  {"island", "lake", "river"},
	"island":   {"coastal"},
	"lake":     {"coastal"},
	"river":    {"coastal", "valley"},
	"mountain": {"valley", "forest"},
	"valley":   {"mountain", "river", "forest", "plains"},
	"forest":   {"mountain", "valley"},
	"plains":   {"valley"},
}

var relatedVegetation = map[string][]string{
	"mediterranean": {"subtropical"},
	"subtropical":   {"mediterranean", "tropical"},
	"tropical":      {"subtropical"},
	"forest":        {"grassland"},
	"grassland":     {"forest"},
}

// allGeographicFeatures is the full onboarding list; selecting all of them
// is the same as having no preference.
var allGeographicFeatures = []string{
	"coastal", "mountain", "island", "lake", "river", "valley", "desert", "forest", "plains",
}

var romanceLanguages = map[string]bool{
	"spanish": true, "portuguese": true, "italian": true, "french": true, "catalan": true, "romanian": true,
}

var coastalKeywords = []string{"coast", "coastal", "beach", "seaside", "riviera", "ocean", "sea"}

// related reports whether any user value has a related town value.
func related(user, townValues profile.Set, rel map[string][]string) bool {
	for _, u := range user {
		for _, r := range rel[u] {
			if townValues.Has(r) {
				return true
			}
		}
	}
	return false
}

func containsAny(text string, words ...string) bool {
	text = strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
