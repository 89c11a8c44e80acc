package nurture

import (
	"testing"

	"nurtureflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrF(v float64) *float64 { return &v }
func ptrS(v string) *string   { return &v }

func TestScoreEmptyAttributeBag(t *testing.T) {
	s := NewScorer()
	r := s.Score(&models.Lead{})

	assert.Equal(t, 0, r.Score)
	assert.Equal(t, models.TierCold, r.Tier)
}

func TestScoreExampleScenario(t *testing.T) {
	s := NewScorer()
	lead := &models.Lead{
		Budget:            ptrF(3000),
		Timeline:          ptrS(models.TimelineWithin6Months),
		Urgency:           ptrS(models.UrgencyImportant),
		DecisionAuthority: ptrS(models.AuthoritySole),
		EngagementLevel:   ptrS(models.EngagementMedium),
	}

	r := s.Score(lead)
	// 15 + 10 + 12 + 15 + 5
	assert.Equal(t, 57, r.Score)
	assert.Equal(t, models.TierWarm, r.Tier)

	// Three recorded opens strictly increase the score; tier never downgrades
	s.Apply(lead)
	prevScore := lead.ReadinessScore
	tiers := []string{lead.ReadinessTier}
	for i := 0; i < 3; i++ {
		s.ApplyEngagement(lead, EngagementOpened)
		assert.Greater(t, lead.ReadinessScore, prevScore)
		prevScore = lead.ReadinessScore
		tiers = append(tiers, lead.ReadinessTier)
	}
	rank := map[string]int{models.TierCold: 0, models.TierLukewarm: 1, models.TierWarm: 2, models.TierHot: 3}
	for i := 1; i < len(tiers); i++ {
		assert.GreaterOrEqual(t, rank[tiers[i]], rank[tiers[i-1]])
	}
}

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		score int
		tier  string
	}{
		{0, models.TierCold},
		{29, models.TierCold},
		{30, models.TierLukewarm},
		{49, models.TierLukewarm},
		{50, models.TierWarm},
		{69, models.TierWarm},
		{70, models.TierHot},
		{100, models.TierHot},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.tier, TierFor(tc.score), "score %d", tc.score)
	}
}

func TestScoreMonotonicityAcrossBudgetBands(t *testing.T) {
	s := NewScorer()
	budgets := []float64{500, 2000, 5000, 10000, 50000}

	prev := -1
	for _, b := range budgets {
		r := s.Score(&models.Lead{Budget: ptrF(b)})
		assert.GreaterOrEqual(t, r.Score, prev, "budget %v", b)
		prev = r.Score
	}
}

func TestScoreMonotonicityAcrossUrgency(t *testing.T) {
	s := NewScorer()
	base := models.Lead{Budget: ptrF(5000), Timeline: ptrS(models.TimelineWithin3Months)}

	urgencies := []string{models.UrgencyNiceToHave, models.UrgencyImportant, models.UrgencyCritical}
	prev := s.Score(&base).Score
	for _, u := range urgencies {
		lead := base
		lead.Urgency = ptrS(u)
		score := s.Score(&lead).Score
		assert.GreaterOrEqual(t, score, prev, "urgency %s", u)
		prev = score
	}
}

func TestEngagementDeltaOrdering(t *testing.T) {
	assert.Greater(t, engagementDeltas[EngagementResponded], engagementDeltas[EngagementClicked])
	assert.Greater(t, engagementDeltas[EngagementClicked], engagementDeltas[EngagementOpened])
	assert.Greater(t, engagementDeltas[EngagementOpened], engagementDeltas[EngagementSocial])
}

func TestEngagementScoreClamped(t *testing.T) {
	s := NewScorer()
	lead := &models.Lead{
		Budget:            ptrF(20000),
		Timeline:          ptrS(models.TimelineImmediate),
		Urgency:           ptrS(models.UrgencyCritical),
		DecisionAuthority: ptrS(models.AuthoritySole),
		EngagementLevel:   ptrS(models.EngagementHigh),
	}
	s.Apply(lead)
	require.Equal(t, 100, lead.ReadinessScore)

	for i := 0; i < 10; i++ {
		s.ApplyEngagement(lead, EngagementResponded)
		assert.LessOrEqual(t, lead.ReadinessScore, 100)
		assert.GreaterOrEqual(t, lead.ReadinessScore, 0)
	}
	assert.Equal(t, 100, lead.ReadinessScore)
}

func TestFactorsAreAdvisoryOnly(t *testing.T) {
	s := NewScorer()

	lowBudget := &models.Lead{
		Budget:            ptrF(800),
		Timeline:          ptrS(models.TimelineSomeday),
		DecisionAuthority: ptrS(models.AuthorityInfluencer),
	}
	r := s.Score(lowBudget)

	require.Len(t, r.Concerns, 3)
	assert.NotEmpty(t, r.Concerns[0].Recommendation)

	// Removing all annotations' causes does not change the score rule:
	// factors never feed back into points.
	withStrengths := &models.Lead{
		Budget:            ptrF(12000),
		Timeline:          ptrS(models.TimelineImmediate),
		Urgency:           ptrS(models.UrgencyCritical),
		DecisionAuthority: ptrS(models.AuthoritySole),
	}
	r2 := s.Score(withStrengths)
	assert.Equal(t, 30+25+20+15, r2.Score)
	assert.NotEmpty(t, r2.Strengths)
	assert.Empty(t, r2.Concerns)
}
