// Package profile turns raw onboarding answers into the typed preference
// profile consumed by the scoring engine.
package profile

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Profile is the normalized preference profile. Every sub-profile is a
// value, so a missing section is simply an empty one.
type Profile struct {
	Region         Region         `json:"region"`
	Climate        Climate        `json:"climate"`
	Culture        Culture        `json:"culture"`
	Hobbies        Hobbies        `json:"hobbies"`
	Administration Administration `json:"administration"`
	Budget         Budget         `json:"budget"`
}

// Region holds location preferences.
type Region struct {
	Countries          Set `json:"countries,omitempty"`
	Regions            Set `json:"regions,omitempty"`
	Provinces          Set `json:"provinces,omitempty"`
	GeographicFeatures Set `json:"geographic_features,omitempty"`
	VegetationTypes    Set `json:"vegetation_types,omitempty"`
}

func (r Region) HasSignal() bool {
	return !r.Countries.Empty() || !r.Regions.Empty() || !r.Provinces.Empty() ||
		!r.GeographicFeatures.Empty() || !r.VegetationTypes.Empty()
}

// Climate holds climate preferences. Seasonal is one of the canonical
// seasonal values, or "" when the user has no usable preference.
type Climate struct {
	Summer        Set    `json:"summer,omitempty"`
	Winter        Set    `json:"winter,omitempty"`
	Humidity      Set    `json:"humidity,omitempty"`
	Sunshine      Set    `json:"sunshine,omitempty"`
	Precipitation Set    `json:"precipitation,omitempty"`
	Seasonal      string `json:"seasonal,omitempty"`
}

func (c Climate) HasSignal() bool {
	return !c.Summer.Empty() || !c.Winter.Empty() || !c.Humidity.Empty() ||
		!c.Sunshine.Empty() || !c.Precipitation.Empty() || SeasonalPreference(c.Seasonal) != ""
}

// Culture holds language and lifestyle preferences.
type Culture struct {
	LanguagePreference Set            `json:"language_preference,omitempty"`
	LanguagesSpoken    Set            `json:"languages_spoken,omitempty"`
	ExpatCommunity     Set            `json:"expat_community,omitempty"`
	PaceOfLife         Set            `json:"pace_of_life,omitempty"`
	UrbanRural         Set            `json:"urban_rural,omitempty"`
	AmenityImportance  map[string]int `json:"amenity_importance,omitempty"`
}

func (c Culture) HasSignal() bool {
	return !c.LanguagePreference.Empty() || !c.ExpatCommunity.Empty() ||
		!c.PaceOfLife.Empty() || !c.UrbanRural.Empty() || anyAbove(c.AmenityImportance, 1)
}

// Hobbies holds activity preferences.
type Hobbies struct {
	Activities          Set            `json:"activities,omitempty"`
	Interests           Set            `json:"interests,omitempty"`
	LifestyleImportance map[string]int `json:"lifestyle_importance,omitempty"`
	TravelFrequency     string         `json:"travel_frequency,omitempty"`
}

func (h Hobbies) HasSignal() bool {
	return !h.Activities.Empty() || !h.Interests.Empty() ||
		anyAbove(h.LifestyleImportance, 1) || h.TravelFrequency != ""
}

// Administration holds healthcare, safety, visa and stability preferences.
type Administration struct {
	HealthcareQuality   Set    `json:"healthcare_quality,omitempty"`
	SafetyQuality       Set    `json:"safety_quality,omitempty"`
	PoliticalStability  Set    `json:"political_stability,omitempty"`
	VisaPreference      Set    `json:"visa_preference,omitempty"`
	HealthcareAccess    string `json:"healthcare_access,omitempty"`
	EnvironmentalHealth string `json:"environmental_health,omitempty"`
	Citizenship         string `json:"citizenship,omitempty"`
}

// HasSignal ignores Citizenship: it is a fact about the user, not a wish.
func (a Administration) HasSignal() bool {
	return !a.HealthcareQuality.Empty() || !a.SafetyQuality.Empty() ||
		!a.PoliticalStability.Empty() || !a.VisaPreference.Empty() ||
		a.HealthcareAccess != "" || a.EnvironmentalHealth != ""
}

// Budget holds monetary limits in USD per month. Zero means unset.
type Budget struct {
	MonthlyBudget        float64 `json:"monthly_budget,omitempty"`
	MaxRent              float64 `json:"max_rent,omitempty"`
	HealthcareBudget     float64 `json:"healthcare_budget,omitempty"`
	IncomeTaxSensitive   bool    `json:"income_tax_sensitive,omitempty"`
	PropertyTaxSensitive bool    `json:"property_tax_sensitive,omitempty"`
	SalesTaxSensitive    bool    `json:"sales_tax_sensitive,omitempty"`
}

func (b Budget) HasSignal() bool {
	return b.MonthlyBudget > 0 || b.MaxRent > 0 || b.HealthcareBudget > 0 || b.TaxSensitive()
}

// TaxSensitive reports whether any tax-sensitivity flag is set.
func (b Budget) TaxSensitive() bool {
	return b.IncomeTaxSensitive || b.PropertyTaxSensitive || b.SalesTaxSensitive
}

// Coverage is the fraction of the six categories that carry any signal.
func (p *Profile) Coverage() float64 {
	n := 0
	for _, has := range []bool{
		p.Region.HasSignal(), p.Climate.HasSignal(), p.Culture.HasSignal(),
		p.Hobbies.HasSignal(), p.Administration.HasSignal(), p.Budget.HasSignal(),
	} {
		if has {
			n++
		}
	}
	return float64(n) / 6
}

// Hash returns a stable digest of the normalized profile for cache keys.
func (p *Profile) Hash() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:12])
}

// Set is a canonical string set: lowercased, trimmed, deduplicated, sorted.
type Set []string

// NewSet canonicalizes values into a Set.
func NewSet(values ...string) Set {
	seen := make(map[string]bool, len(values))
	var out Set
	for _, v := range values {
		v = Canon(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Canon lowercases and trims a single value.
func Canon(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func (s Set) Empty() bool { return len(s) == 0 }

// Has reports membership, ignoring case.
func (s Set) Has(v string) bool {
	v = Canon(v)
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// flexibleValues are onboarding placeholders meaning "no preference".
var flexibleValues = map[string]bool{
	"":                       true,
	"optional":               true,
	"no_specific_preference": true,
	"select_preference":      true,
	"no_preference":          true,
}

const (
	SeasonSummerFocused = "summer_focused"
	SeasonWinterFocused = "winter_focused"
	SeasonAll           = "all_seasons"
)

var seasonalAliases = map[string]string{
	"summer_focused":      SeasonSummerFocused,
	"warm_seasons":        SeasonSummerFocused,
	"prefer_warm_seasons": SeasonSummerFocused,
	"winter_focused":      SeasonWinterFocused,
	"cool_seasons":        SeasonWinterFocused,
	"prefer_cool_seasons": SeasonWinterFocused,
	"all_seasons":         SeasonAll,
}

// SeasonalPreference maps a seasonal value to its canonical form.
// Flexible and unrecognised values map to "".
func SeasonalPreference(v string) string {
	return seasonalAliases[Canon(v)]
}

// IsFlexible reports whether a scalar preference means "no preference".
func IsFlexible(v string) bool {
	return flexibleValues[Canon(v)]
}

func anyAbove(m map[string]int, floor int) bool {
	for _, v := range m {
		if v > floor {
			return true
		}
	}
	return false
}
