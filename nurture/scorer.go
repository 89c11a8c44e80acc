package nurture

import (
	"nurtureflow/models"
)

// Point rubric. Additive across dimensions; the per-dimension maxima sum to
// 100 so a fully qualified lead lands exactly at the top of the scale.
const (
	budgetHighThreshold = 10000
	budgetMidThreshold  = 5000
	budgetLowThreshold  = 2000

	pointsBudgetHigh = 30
	pointsBudgetMid  = 25
	pointsBudgetLow  = 15
	pointsBudgetAny  = 5

	pointsTimelineImmediate = 25
	pointsTimeline3Months   = 20
	pointsTimeline6Months   = 10
	pointsTimelineSomeday   = 2

	pointsUrgencyCritical   = 20
	pointsUrgencyImportant  = 12
	pointsUrgencyNiceToHave = 5

	pointsAuthoritySole       = 15
	pointsAuthorityPrimary    = 10
	pointsAuthorityInfluencer = 4

	pointsEngagementHigh   = 10
	pointsEngagementMedium = 5
)

// Tier cutoffs
const (
	tierHotCutoff      = 70
	tierWarmCutoff     = 50
	tierLukewarmCutoff = 30
)

// EngagementKind identifies a recorded engagement event for re-scoring
type EngagementKind string

const (
	EngagementOpened    EngagementKind = "opened"
	EngagementClicked   EngagementKind = "clicked"
	EngagementResponded EngagementKind = "responded"
	EngagementSocial    EngagementKind = "social"
)

// Re-scoring deltas: responded > clicked > opened > social
var engagementDeltas = map[EngagementKind]int{
	EngagementResponded: 15,
	EngagementClicked:   10,
	EngagementOpened:    5,
	EngagementSocial:    3,
}

// Readiness is the derived view of how likely a lead is to convert
type Readiness struct {
	Score     int              `json:"score"`
	Tier      string           `json:"tier"`
	Strengths []string         `json:"strengths"`
	Concerns  []models.Concern `json:"concerns"`
}

// Scorer turns a lead's attribute bag into a readiness score and tier using
// the fixed weighted-points rubric. It is a pure evaluator with no state;
// missing attributes contribute zero and it never fails.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score evaluates the lead's attributes without mutating the lead
func (s *Scorer) Score(lead *models.Lead) Readiness {
	score := 0

	if lead.Budget != nil {
		switch b := *lead.Budget; {
		case b >= budgetHighThreshold:
			score += pointsBudgetHigh
		case b >= budgetMidThreshold:
			score += pointsBudgetMid
		case b >= budgetLowThreshold:
			score += pointsBudgetLow
		case b > 0:
			score += pointsBudgetAny
		}
	}

	if lead.Timeline != nil {
		switch *lead.Timeline {
		case models.TimelineImmediate:
			score += pointsTimelineImmediate
		case models.TimelineWithin3Months:
			score += pointsTimeline3Months
		case models.TimelineWithin6Months:
			score += pointsTimeline6Months
		case models.TimelineSomeday:
			score += pointsTimelineSomeday
		}
	}

	if lead.Urgency != nil {
		switch *lead.Urgency {
		case models.UrgencyCritical:
			score += pointsUrgencyCritical
		case models.UrgencyImportant:
			score += pointsUrgencyImportant
		case models.UrgencyNiceToHave:
			score += pointsUrgencyNiceToHave
		}
	}

	if lead.DecisionAuthority != nil {
		switch *lead.DecisionAuthority {
		case models.AuthoritySole:
			score += pointsAuthoritySole
		case models.AuthorityPrimary:
			score += pointsAuthorityPrimary
		case models.AuthorityInfluencer:
			score += pointsAuthorityInfluencer
		}
	}

	if lead.EngagementLevel != nil {
		switch *lead.EngagementLevel {
		case models.EngagementHigh:
			score += pointsEngagementHigh
		case models.EngagementMedium:
			score += pointsEngagementMedium
		}
	}

	strengths, concerns := s.factors(lead)

	return Readiness{
		Score:     clampScore(score),
		Tier:      TierFor(clampScore(score)),
		Strengths: strengths,
		Concerns:  concerns,
	}
}

// Apply recomputes the lead's stored readiness fields from its attributes
func (s *Scorer) Apply(lead *models.Lead) {
	r := s.Score(lead)
	lead.ReadinessScore = r.Score
	lead.ReadinessTier = r.Tier
	lead.Strengths = r.Strengths
	lead.Concerns = r.Concerns
}

// ApplyEngagement adds the fixed delta for the event to the lead's current
// score, re-clamps and recomputes the tier. Returns the tier before and
// after so the caller can detect the first crossing into hot.
func (s *Scorer) ApplyEngagement(lead *models.Lead, kind EngagementKind) (before, after string) {
	before = lead.ReadinessTier
	lead.ReadinessScore = clampScore(lead.ReadinessScore + engagementDeltas[kind])
	lead.ReadinessTier = TierFor(lead.ReadinessScore)
	return before, lead.ReadinessTier
}

// TierFor maps a score to its categorical tier under the fixed cutoffs
func TierFor(score int) string {
	switch {
	case score >= tierHotCutoff:
		return models.TierHot
	case score >= tierWarmCutoff:
		return models.TierWarm
	case score >= tierLukewarmCutoff:
		return models.TierLukewarm
	default:
		return models.TierCold
	}
}

// factors builds the advisory strength/concern annotations. These inform the
// sales team; they have no effect on the score.
func (s *Scorer) factors(lead *models.Lead) ([]string, []models.Concern) {
	var strengths []string
	var concerns []models.Concern

	if lead.Budget != nil {
		if *lead.Budget >= budgetMidThreshold {
			strengths = append(strengths, "budget is in a strong range")
		} else if *lead.Budget < budgetLowThreshold {
			concerns = append(concerns, models.Concern{
				Note:           "budget below typical engagement range",
				Recommendation: "lead with a smaller starter package",
			})
		}
	}

	if lead.Timeline != nil {
		switch *lead.Timeline {
		case models.TimelineImmediate:
			strengths = append(strengths, "ready to start immediately")
		case models.TimelineSomeday:
			concerns = append(concerns, models.Concern{
				Note:           "no concrete timeline",
				Recommendation: "keep on a low-frequency nurture track",
			})
		}
	}

	if lead.Urgency != nil && *lead.Urgency == models.UrgencyCritical {
		strengths = append(strengths, "problem is business-critical")
	}

	if lead.DecisionAuthority != nil {
		switch *lead.DecisionAuthority {
		case models.AuthoritySole:
			strengths = append(strengths, "talking to the sole decision maker")
		case models.AuthorityInfluencer:
			concerns = append(concerns, models.Concern{
				Note:           "multiple decision makers involved",
				Recommendation: "ask for an intro to the economic buyer",
			})
		}
	}

	return strengths, concerns
}

func clampScore(score int) int {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}
