package scoring

import (
	"math"

	"github.com/saferoute/backend/internal/domain"
	"github.com/saferoute/backend/pkg/utils"
)

// Profile holds the weighting knobs for per-record severity magnitudes.
// Two call sites use different weights on purpose: a map-point click reads
// on a 1-6 scale, a route corridor on a heavier 1-10 scale.
type Profile struct {
	FatalWeight        float64
	MajorWeight        float64
	PartyBonus         float64
	PartyBonusCap      float64
	SpeedingMultiplier float64
	Floor              float64
	Cap                float64
}

// PointProfile is the weighting used for single-point ("map click") scoring
func PointProfile() Profile {
	return Profile{
		FatalWeight:        3,
		MajorWeight:        2,
		PartyBonus:         0.5,
		PartyBonusCap:      2,
		SpeedingMultiplier: 1.2,
		Floor:              1,
		Cap:                6,
	}
}

// CorridorProfile is the weighting used for route-corridor scoring
func CorridorProfile() Profile {
	return Profile{
		FatalWeight:        5,
		MajorWeight:        3,
		PartyBonus:         0.5,
		PartyBonusCap:      2,
		SpeedingMultiplier: 1.2,
		Floor:              1,
		Cap:                10,
	}
}

// Magnitude computes the clamped severity magnitude of a single incident
// under the given profile. Extra involved parties beyond the first earn a
// small capped bonus so a single ten-vehicle pileup cannot dominate.
func Magnitude(in domain.Incident, p Profile) float64 {
	m := 1.0
	m += float64(in.Fatalities()) * p.FatalWeight
	m += float64(in.MajorInjuries()) * p.MajorWeight

	if extra := in.InvolvedParties() - 1; extra > 0 {
		m += math.Min(float64(extra)*p.PartyBonus, p.PartyBonusCap)
	}

	if in.Circumstances.SpeedingInvolved {
		m *= p.SpeedingMultiplier
	}

	return utils.Clamp(m, p.Floor, p.Cap)
}

// DangerWeight is the uncapped per-incident weight used for corridor sums.
// Heavier than the display magnitude so severe corridors separate clearly.
// A property-only crash still registers as 1.
func DangerWeight(in domain.Incident) float64 {
	w := float64(in.Fatalities())*5 +
		float64(in.MajorInjuries())*3 +
		float64(in.MinorInjuries())
	if w == 0 {
		w = 1
	}
	return w
}

// Summary is the aggregate view over a set of incidents. Mean, Min and Max
// are meaningful only when Count > 0; zero incidents nearby is a valid
// outcome, not an error, and no score is fabricated for it.
type Summary struct {
	Count     int                     `json:"count"`
	Mean      float64                 `json:"mean,omitempty"`
	Min       float64                 `json:"min,omitempty"`
	Max       float64                 `json:"max,omitempty"`
	Breakdown map[domain.Severity]int `json:"breakdown,omitempty"`
}

// Aggregate scores every incident under the profile and folds the results
// into a Summary: mean/min/max magnitude plus a severity-class histogram.
func Aggregate(incidents []domain.Incident, p Profile) Summary {
	if len(incidents) == 0 {
		return Summary{}
	}

	s := Summary{
		Count:     len(incidents),
		Breakdown: make(map[domain.Severity]int, 4),
	}

	var sum float64
	for i, in := range incidents {
		m := Magnitude(in, p)
		sum += m
		if i == 0 || m < s.Min {
			s.Min = m
		}
		if m > s.Max {
			s.Max = m
		}
		s.Breakdown[in.Severity()]++
	}
	s.Mean = utils.RoundTo(sum/float64(len(incidents)), 2)

	return s
}

// TotalCasualties sums fatalities and injuries across a set of incidents
func TotalCasualties(incidents []domain.Incident) int {
	total := 0
	for _, in := range incidents {
		total += in.TotalCasualties()
	}
	return total
}

// RiskLevel maps an aggregate summary to the coarse label consumed by the
// narrative collaborator.
func RiskLevel(s Summary) string {
	switch {
	case s.Count == 0:
		return "Safe"
	case s.Breakdown[domain.SeverityFatal] > 0:
		return "Dangerous"
	case s.Breakdown[domain.SeverityMajorInjury] > 0 || s.Mean >= 3:
		return "High Risk"
	case s.Mean >= 1.5 || s.Count >= 10:
		return "Moderate Risk"
	default:
		return "Safe"
	}
}

// Summarize produces the risk summary structure exposed to external
// collaborators for a set of nearby incidents.
func Summarize(incidents []domain.Incident, p Profile) domain.RiskSummary {
	agg := Aggregate(incidents, p)
	return domain.RiskSummary{
		TotalIncidents:    agg.Count,
		TotalCasualties:   TotalCasualties(incidents),
		SeverityBreakdown: agg.Breakdown,
		RiskLevel:         RiskLevel(agg),
	}
}
