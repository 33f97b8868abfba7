package profile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Parse decodes a raw preference record and normalizes it.
func Parse(data []byte) (Profile, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Profile{}, fmt.Errorf("parsing preferences: %w", err)
	}
	return Normalize(raw), nil
}

// Normalize builds a Profile from a raw record in either the nested
// (per-category objects) or the legacy flat layout. Nested values win;
// flat top-level keys fill whatever the nested section leaves out.
// The input is never modified.
func Normalize(raw map[string]any) Profile {
	if raw == nil {
		return Profile{}
	}
	return Profile{
		Region:         normalizeRegion(raw),
		Climate:        normalizeClimate(raw),
		Culture:        normalizeCulture(raw),
		Hobbies:        normalizeHobbies(raw),
		Administration: normalizeAdministration(raw),
		Budget:         normalizeBudget(raw),
	}
}

// source resolves keys against a nested section first, then the flat record.
type source struct {
	nested map[string]any
	flat   map[string]any
}

func newSource(raw map[string]any, sectionKeys ...string) source {
	s := source{flat: raw}
	for _, k := range sectionKeys {
		if m, ok := raw[k].(map[string]any); ok {
			s.nested = m
			break
		}
	}
	return s
}

func (s source) get(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := s.nested[k]; ok && v != nil {
			return v, true
		}
	}
	for _, k := range keys {
		if v, ok := s.flat[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (s source) set(keys ...string) Set {
	v, _ := s.get(keys...)
	return toSet(v)
}

func (s source) str(keys ...string) string {
	v, _ := s.get(keys...)
	return toString(v)
}

func (s source) num(keys ...string) float64 {
	v, _ := s.get(keys...)
	n, _ := toNumber(v)
	return n
}

func (s source) flag(keys ...string) bool {
	v, _ := s.get(keys...)
	return toBool(v)
}

// sub returns a nested object found under key, searching like get.
func (s source) sub(key string) map[string]any {
	v, _ := s.get(key)
	m, _ := v.(map[string]any)
	return m
}

func normalizeRegion(raw map[string]any) Region {
	s := newSource(raw, "region_preferences", "region")
	return Region{
		Countries:          s.set("countries"),
		Regions:            s.set("regions"),
		Provinces:          s.set("provinces"),
		GeographicFeatures: s.set("geographic_features"),
		VegetationTypes:    s.set("vegetation_types"),
	}
}

func normalizeClimate(raw map[string]any) Climate {
	s := newSource(raw, "climate_preferences", "climate")
	return Climate{
		Summer:        dropFlexible(s.set("summer_climate_preference", "summer")),
		Winter:        dropFlexible(s.set("winter_climate_preference", "winter")),
		Humidity:      dropFlexible(s.set("humidity_level", "humidity")),
		Sunshine:      dropFlexible(s.set("sunshine")),
		Precipitation: dropFlexible(s.set("precipitation")),
		Seasonal:      SeasonalPreference(s.str("seasonal_preference")),
	}
}

func normalizeCulture(raw map[string]any) Culture {
	s := newSource(raw, "culture_preferences", "culture")
	c := Culture{
		ExpatCommunity: dropFlexible(s.set("expat_community_preference")),
	}

	if lang := s.sub("language_comfort"); lang != nil {
		c.LanguagePreference = toSet(lang["preferences"])
		c.LanguagesSpoken = toSet(lang["already_speak"])
	} else {
		c.LanguagePreference = s.set("language_preference")
		c.LanguagesSpoken = s.set("languages_spoken")
	}

	if life := s.sub("lifestyle_preferences"); life != nil {
		c.PaceOfLife = toSet(life["pace_of_life"])
		c.UrbanRural = toSet(life["urban_rural"])
	}
	if c.PaceOfLife.Empty() {
		c.PaceOfLife = s.set("pace_of_life_preference")
	}
	if c.UrbanRural.Empty() {
		c.UrbanRural = s.set("urban_rural_preference")
	}
	c.PaceOfLife = dropFlexible(c.PaceOfLife)
	c.UrbanRural = dropFlexible(c.UrbanRural)

	c.AmenityImportance = toImportance(s.sub("cultural_importance"))
	return c
}

func normalizeHobbies(raw map[string]any) Hobbies {
	s := newSource(raw, "hobbies_preferences", "hobbies")
	activities := append(Set{}, s.set("activities")...)
	activities = append(activities, s.set("custom_activities")...)
	activities = append(activities, s.set("custom_physical")...)
	freq := Canon(s.str("travel_frequency"))
	if IsFlexible(freq) {
		freq = ""
	}
	return Hobbies{
		Activities:          NewSet(activities...),
		Interests:           NewSet(append(s.set("interests"), s.set("custom_hobbies")...)...),
		LifestyleImportance: toImportance(s.sub("lifestyle_importance")),
		TravelFrequency:     freq,
	}
}

func normalizeAdministration(raw map[string]any) Administration {
	s := newSource(raw, "admin_preferences", "administration")
	a := Administration{
		HealthcareQuality:  dropFlexible(s.set("healthcare_quality")),
		SafetyQuality:      dropFlexible(s.set("safety_importance", "safety_quality")),
		PoliticalStability: dropFlexible(s.set("political_stability")),
		VisaPreference:     dropFlexible(s.set("visa_preference")),
	}
	if hc := s.sub("health_considerations"); hc != nil {
		a.HealthcareAccess = Canon(toString(hc["healthcare_access"]))
		a.EnvironmentalHealth = Canon(toString(hc["environmental_health"]))
	}
	if IsFlexible(a.HealthcareAccess) {
		a.HealthcareAccess = ""
	}
	if IsFlexible(a.EnvironmentalHealth) {
		a.EnvironmentalHealth = ""
	}

	if status, ok := raw["current_status"].(map[string]any); ok {
		a.Citizenship = Canon(toString(status["citizenship"]))
	}
	if a.Citizenship == "" {
		a.Citizenship = Canon(s.str("citizenship", "primary_citizenship"))
	}
	return a
}

func normalizeBudget(raw map[string]any) Budget {
	s := newSource(raw, "cost_preferences", "costs", "budget")
	return Budget{
		MonthlyBudget:        s.num("total_monthly_budget", "total_monthly_cost", "total_budget"),
		MaxRent:              s.num("max_monthly_rent"),
		HealthcareBudget:     s.num("monthly_healthcare_budget", "monthly_healthcare_cost"),
		IncomeTaxSensitive:   s.flag("income_tax_sensitive"),
		PropertyTaxSensitive: s.flag("property_tax_sensitive"),
		SalesTaxSensitive:    s.flag("sales_tax_sensitive"),
	}
}

// toSet accepts a string (optionally comma-separated), a list of strings,
// or anything else (ignored).
func toSet(v any) Set {
	switch x := v.(type) {
	case string:
		return NewSet(strings.Split(x, ",")...)
	case []string:
		return NewSet(x...)
	case []any:
		vals := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				vals = append(vals, s)
			}
		}
		return NewSet(vals...)
	default:
		return nil
	}
}

func dropFlexible(s Set) Set {
	var out Set
	for _, v := range s {
		if !IsFlexible(v) {
			out = append(out, v)
		}
	}
	return out
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	case []string:
		if len(x) > 0 {
			return strings.TrimSpace(x[0])
		}
	}
	return ""
}

// toNumber reads numbers, numeric strings, and lists of either (taking
// the largest, since onboarding stores budget ranges as multi-selects).
func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case []any:
		best, found := 0.0, false
		for _, item := range x {
			if f, ok := toNumber(item); ok && (!found || f > best) {
				best, found = f, true
			}
		}
		return best, found
	}
	return 0, false
}

func toBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch Canon(x) {
		case "true", "yes", "1":
			return true
		}
	case float64:
		return x != 0
	}
	return false
}

// toImportance reads a 1-5 importance map, clamping out-of-range values.
func toImportance(m map[string]any) map[string]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		f, ok := toNumber(v)
		if !ok {
			continue
		}
		out[Canon(k)] = int(math.Round(min(max(f, 1), 5)))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
