// Package town defines the read-only candidate record scored by townscope.
// Every field is optional; scorers treat an absent field as "no signal".
package town

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Town is a retirement destination candidate.
type Town struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Country   string `json:"country"`
	StateCode string `json:"state_code,omitempty"`

	// Geography
	Regions            List   `json:"regions,omitempty"`
	GeoRegion          string `json:"geo_region,omitempty"`
	GeographicFeatures List   `json:"geographic_features_actual,omitempty"`
	VegetationTypes    List   `json:"vegetation_type_actual,omitempty"`
	WaterBodies        List   `json:"water_bodies,omitempty"`
	DistanceToOceanKm  Number `json:"distance_to_ocean_km"`

	// Climate
	AvgTempSummer      Number `json:"avg_temp_summer"`
	AvgTempWinter      Number `json:"avg_temp_winter"`
	SummerClimate      string `json:"summer_climate_actual,omitempty"`
	WinterClimate      string `json:"winter_climate_actual,omitempty"`
	HumidityLevel      string `json:"humidity_level_actual,omitempty"`
	SunshineLevel      string `json:"sunshine_level_actual,omitempty"`
	PrecipitationLevel string `json:"precipitation_level_actual,omitempty"`
	SunshineHours      Number `json:"sunshine_hours"`
	AnnualRainfall     Number `json:"annual_rainfall"`
	ClimateDescription string `json:"climate_description,omitempty"`

	// Culture
	PrimaryLanguage      string `json:"primary_language,omitempty"`
	SecondaryLanguages   List   `json:"secondary_languages,omitempty"`
	EnglishProficiency   string `json:"english_proficiency_level,omitempty"`
	ExpatCommunitySize   string `json:"expat_community_size,omitempty"`
	PaceOfLife           string `json:"pace_of_life_actual,omitempty"`
	UrbanRural           string `json:"urban_rural_character,omitempty"`
	RestaurantsRating    Number `json:"restaurants_rating"`
	NightlifeRating      Number `json:"nightlife_rating"`
	MuseumsRating        Number `json:"museums_rating"`
	CulturalEventsRating Number `json:"cultural_events_rating"`
	Population           Number `json:"population"`

	// Hobbies
	ActivitiesAvailable      List   `json:"activities_available,omitempty"`
	InterestsSupported       List   `json:"interests_supported,omitempty"`
	OutdoorRating            Number `json:"outdoor_rating"`
	CulturalRating           Number `json:"cultural_rating"`
	ShoppingRating           Number `json:"shopping_rating"`
	WellnessRating           Number `json:"wellness_rating"`
	TravelConnectivityRating Number `json:"travel_connectivity_rating"`

	// Administration
	HealthcareScore           Number `json:"healthcare_score"`
	SafetyScore               Number `json:"safety_score"`
	VisaOnArrivalCountries    List   `json:"visa_on_arrival_countries,omitempty"`
	EasyResidencyCountries    List   `json:"easy_residency_countries,omitempty"`
	RetirementVisaAvailable   Flag   `json:"retirement_visa_available"`
	EnvironmentalHealthRating Number `json:"environmental_health_rating"`
	PoliticalStabilityRating  Number `json:"political_stability_rating"`
	UNESCOHeritage            Flag   `json:"unesco_heritage"`

	// Healthcare and safety detail, folded into the 0-10 indices when present.
	HospitalCount               Number `json:"hospital_count"`
	NearestMajorHospitalKm      Number `json:"nearest_major_hospital_km"`
	EmergencyServicesQuality    Number `json:"emergency_services_quality"`
	EnglishSpeakingDoctors      Flag   `json:"english_speaking_doctors_available"`
	InsuranceAvailabilityRating Number `json:"insurance_availability_rating"`
	InternationalInsurance      string `json:"international_insurance_acceptance,omitempty"`
	HealthcareCostLevel         string `json:"healthcare_cost_level,omitempty"`
	CrimeRate                   Number `json:"crime_rate"`
	NaturalDisasterRiskScore    Number `json:"natural_disaster_risk_score"`
	NaturalDisasterRisk         string `json:"natural_disaster_risk,omitempty"`

	// Budget
	MonthlyLivingCost     Number `json:"typical_monthly_living_cost"`
	CostIndex             Number `json:"cost_index"`
	RentOneBedroom        Number `json:"typical_rent_1bed"`
	HealthcareCostMonthly Number `json:"healthcare_cost_monthly"`
	IncomeTaxRatePct      Number `json:"income_tax_rate_pct"`
	PropertyTaxRatePct    Number `json:"property_tax_rate_pct"`
	SalesTaxRatePct       Number `json:"sales_tax_rate_pct"`
	TaxTreatyUS           Flag   `json:"tax_treaty_us"`
	TaxHaven              Flag   `json:"tax_haven_status"`
	ForeignIncomeTaxed    Flag   `json:"foreign_income_taxed"`
}

// Fingerprint returns a stable content hash of the town record.
// Two towns with the same ID but different data have different fingerprints.
func (t *Town) Fingerprint() string {
	data, err := json.Marshal(t)
	if err != nil {
		return t.ID
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Flag is an optional boolean field. It accepts JSON booleans, 0/1, and
// the strings true/false, yes/no, y/n, 1/0. Anything else is absent.
type Flag struct {
	Value bool
	Valid bool
}

// Bool returns a present Flag.
func Bool(v bool) Flag {
	return Flag{Value: v, Valid: true}
}

// IsTrue reports whether the flag is present and true.
func (f Flag) IsTrue() bool { return f.Valid && f.Value }

// IsFalse reports whether the flag is present and false.
func (f Flag) IsFalse() bool { return f.Valid && !f.Value }

func (f *Flag) UnmarshalJSON(b []byte) error {
	*f = Flag{}
	s := strings.TrimSpace(string(b))
	if len(s) > 1 && s[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return nil
		}
		s = strings.ToLower(strings.TrimSpace(unq))
	}
	switch s {
	case "true", "yes", "y", "1":
		*f = Bool(true)
	case "false", "no", "n", "0":
		*f = Bool(false)
	}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatBool(f.Value)), nil
}

// Number is an optional numeric field. Values that are not numbers
// (or numeric strings) decode as absent rather than failing the record.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a present Number.
func Num(v float64) Number {
	return Number{Value: v, Valid: true}
}

// Get returns the value and whether it is present.
func (n Number) Get() (float64, bool) {
	return n.Value, n.Valid
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return nil
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(unq), "%"))
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*n = Num(v)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
}

// List is a string set field. It accepts either a JSON array or a
// comma-separated string, which is how several dataset columns arrive.
type List []string

func (l *List) UnmarshalJSON(b []byte) error {
	*l = nil
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		*l = splitList(str)
		return nil
	}
	if s[0] != '[' {
		return nil
	}
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	out := make(List, 0, len(raw))
	for _, v := range raw {
		switch x := v.(type) {
		case string:
			if x = strings.TrimSpace(x); x != "" {
				out = append(out, x)
			}
		case float64:
			out = append(out, strconv.FormatFloat(x, 'f', -1, 64))
		}
	}
	*l = out
	return nil
}

func splitList(s string) List {
	var out List
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Has reports whether the list contains v, ignoring case.
func (l List) Has(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, s := range l {
		if strings.ToLower(s) == v {
			return true
		}
	}
	return false
}
