package scoring

import (
	"strings"

	"github.com/townscope/townscope/pkg/town"
)

// HealthcareIndex rates a town's healthcare on 0-10. With only a base
// healthcare_score it returns that score unchanged. When the record carries
// facility, access or insurance detail, the index is rebuilt from three
// parts: quality (0-4), accessibility (0-3) and cost (0-3).
func HealthcareIndex(t *town.Town) town.Number {
	base, ok := t.HealthcareScore.Get()
	if !ok || !hasHealthcareDetail(t) {
		return t.HealthcareScore
	}
	total := healthcareQuality(base, t) + healthcareAccess(t) + healthcareCost(t)
	return town.Num(round1(min(total, 10)))
}

func hasHealthcareDetail(t *town.Town) bool {
	return t.HospitalCount.Valid || t.NearestMajorHospitalKm.Valid ||
		t.EmergencyServicesQuality.Valid || t.EnglishSpeakingDoctors.Valid ||
		t.InsuranceAvailabilityRating.Valid || t.InternationalInsurance != "" ||
		t.HealthcareCostLevel != ""
}

func healthcareQuality(base float64, t *town.Town) float64 {
	pts := min(base/10*3, 3)
	if n, ok := t.HospitalCount.Get(); ok {
		switch {
		case n >= 10:
			pts += 1
		case n >= 5:
			pts += 0.7
		case n >= 2:
			pts += 0.5
		case n >= 1:
			pts += 0.3
		}
	}
	return min(round1(pts), 4)
}

func healthcareAccess(t *town.Town) float64 {
	var pts float64
	if km, ok := t.NearestMajorHospitalKm.Get(); ok && km > 0 {
		switch {
		case km <= 5:
			pts += 1.5
		case km <= 15:
			pts += 1
		case km <= 30:
			pts += 0.7
		case km <= 50:
			pts += 0.4
		}
	}
	if q, ok := t.EmergencyServicesQuality.Get(); ok {
		switch {
		case q >= 8:
			pts += 1
		case q >= 6:
			pts += 0.7
		case q >= 4:
			pts += 0.4
		case q >= 2:
			pts += 0.2
		}
	}
	if t.EnglishSpeakingDoctors.IsTrue() {
		pts += 0.5
	}
	return min(round1(pts), 3)
}

func healthcareCost(t *town.Town) float64 {
	var pts float64
	if r, ok := t.InsuranceAvailabilityRating.Get(); ok {
		pts += min(max(r, 0)/10*1.5, 1.5)
	} else {
		switch strings.ToLower(strings.TrimSpace(t.InternationalInsurance)) {
		case "widely_accepted", "universal":
			pts += 1.5
		case "commonly_accepted", "common":
			pts += 1
		case "limited", "some":
			pts += 0.5
		}
	}

	if cost, ok := t.HealthcareCostMonthly.Get(); ok && cost > 0 {
		switch {
		case cost <= 200:
			pts += 1.5
		case cost <= 400:
			pts += 1.2
		case cost <= 800:
			pts += 0.8
		case cost <= 1500:
			pts += 0.4
		}
	} else {
		switch strings.ToLower(strings.TrimSpace(t.HealthcareCostLevel)) {
		case "very_low", "minimal":
			pts += 1.5
		case "low", "cheap":
			pts += 1.2
		case "moderate", "medium":
			pts += 0.8
		case "high", "expensive":
			pts += 0.4
		}
	}
	return min(round1(pts), 3)
}

// SafetyIndex rates a town's safety on 0-10. With only a base safety_score
// it returns that score unchanged. When crime or natural-disaster data is
// present, the index is the base (capped at 7) plus a crime adjustment
// (-1 to +2) and an environmental part (0-1).
func SafetyIndex(t *town.Town) town.Number {
	base, ok := t.SafetyScore.Get()
	if !ok || !hasSafetyDetail(t) {
		return t.SafetyScore
	}
	total := min(round1(base), 7) + crimeAdjustment(t) + environmentalSafety(t)
	return town.Num(round1(clamp(total, 0, 10)))
}

func hasSafetyDetail(t *town.Town) bool {
	return t.CrimeRate.Valid || t.NaturalDisasterRiskScore.Valid || t.NaturalDisasterRisk != ""
}

// crimeAdjustment reads crime_rate on 0-100, lower being safer.
func crimeAdjustment(t *town.Town) float64 {
	rate, ok := t.CrimeRate.Get()
	switch {
	case !ok:
		return 0
	case rate <= 20:
		return 2
	case rate <= 40:
		return 1
	case rate <= 60:
		return 0
	case rate <= 80:
		return -0.5
	default:
		return -1
	}
}

func environmentalSafety(t *town.Town) float64 {
	var pts float64
	// environmental_health_rating is 1-5 here; the part is sized for 0-10.
	if r, ok := t.EnvironmentalHealthRating.Get(); ok {
		pts += min(max(r, 0)*2/10*0.6, 0.6)
	} else {
		pts += 0.3
	}

	if r, ok := t.NaturalDisasterRiskScore.Get(); ok {
		pts += min(max(r, 0)/10*0.4, 0.4)
	} else {
		switch strings.ToLower(strings.TrimSpace(t.NaturalDisasterRisk)) {
		case "low", "minimal":
			pts += 0.4
		case "high", "severe":
		default:
			pts += 0.2
		}
	}
	return min(round1(pts), 1)
}
