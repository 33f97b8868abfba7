package scoring

import "strings"

// ClimateAttribute names a climate dimension that can be inferred.
type ClimateAttribute string

const (
	AttrSummer        ClimateAttribute = "summer"
	AttrWinter        ClimateAttribute = "winter"
	AttrHumidity      ClimateAttribute = "humidity"
	AttrSunshine      ClimateAttribute = "sunshine"
	AttrPrecipitation ClimateAttribute = "precipitation"
)

// ClimateInferrer guesses a categorical climate label from a free-text
// climate description. It is the last fallback and scores at reduced credit.
type ClimateInferrer interface {
	Infer(attr ClimateAttribute, description string) (string, bool)
}

// NoInference never infers anything.
type NoInference struct{}

func (NoInference) Infer(ClimateAttribute, string) (string, bool) { return "", false }

// KeywordInferrer matches well-known words in the description.
type KeywordInferrer struct{}

type keywordRule struct {
	words []string
	label string
}

// First matching rule wins, so more specific words come first.
var keywordRules = map[ClimateAttribute][]keywordRule{
	AttrSummer: {
		{[]string{"hot summer", "very hot", "scorching", "desert"}, "hot"},
		{[]string{"warm", "mediterranean", "subtropical", "tropical"}, "warm"},
		{[]string{"mild", "cool summer", "temperate", "oceanic", "maritime"}, "mild"},
	},
	AttrWinter: {
		{[]string{"cold", "snow", "freezing", "continental", "harsh winter"}, "cold"},
		{[]string{"mild winter", "mediterranean", "subtropical", "tropical", "warm winter"}, "mild"},
		{[]string{"cool", "temperate", "oceanic", "maritime"}, "cool"},
	},
	AttrHumidity: {
		{[]string{"arid", "desert", "dry", "semi-arid"}, "dry"},
		{[]string{"humid", "tropical", "muggy", "moist"}, "humid"},
		{[]string{"mediterranean", "temperate", "oceanic"}, "balanced"},
	},
	AttrSunshine: {
		{[]string{"sunny", "sunshine", "sun-drenched", "desert", "mediterranean"}, "often_sunny"},
		{[]string{"cloudy", "overcast", "grey", "gray", "foggy"}, "less_sunny"},
		{[]string{"temperate", "variable"}, "balanced"},
	},
	AttrPrecipitation: {
		{[]string{"arid", "desert", "dry"}, "mostly_dry"},
		{[]string{"rainy", "wet", "monsoon", "heavy rain"}, "less_dry"},
		{[]string{"moderate rain", "temperate", "mediterranean"}, "balanced"},
	},
}

func (KeywordInferrer) Infer(attr ClimateAttribute, description string) (string, bool) {
	desc := strings.ToLower(description)
	if strings.TrimSpace(desc) == "" {
		return "", false
	}
	for _, rule := range keywordRules[attr] {
		for _, w := range rule.words {
			if strings.Contains(desc, w) {
				return rule.label, true
			}
		}
	}
	return "", false
}

// sunshineLabel infers a sunshine level from annual sunshine hours.
func sunshineLabel(hours float64) string {
	switch {
	case hours > 2800:
		return "often_sunny"
	case hours > 2200:
		return "balanced"
	default:
		return "less_sunny"
	}
}

// precipitationLabel infers a precipitation level from annual rainfall in mm.
func precipitationLabel(mm float64) string {
	switch {
	case mm < 400:
		return "mostly_dry"
	case mm < 1000:
		return "balanced"
	default:
		return "less_dry"
	}
}

// summerLabelFromSunshine infers a summer character from sunshine hours.
func summerLabelFromSunshine(hours float64) string {
	if hours > 2800 {
		return "warm"
	}
	return "mild"
}
