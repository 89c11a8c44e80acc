package nurture

import (
	"math/rand"
	"testing"
	"time"

	"nurtureflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDeliverer returns a fixed outcome per call, in order
type scriptedDeliverer struct {
	outcomes []bool
	calls    int
}

func (d *scriptedDeliverer) Deliver(_ *models.Lead, _ TouchpointRecord) (bool, error) {
	outcome := true
	if d.calls < len(d.outcomes) {
		outcome = d.outcomes[d.calls]
	}
	d.calls++
	return outcome, nil
}

func testExecutor(clock *time.Time, deliverer Deliverer) *Executor {
	sch := NewScheduler(DefaultLibrary(), rand.New(rand.NewSource(1)))
	e := NewExecutor(NewScorer(), sch, deliverer)
	e.Now = func() time.Time { return *clock }
	return e
}

func TestEnrollInitializesSequenceState(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	e := testExecutor(&now, &scriptedDeliverer{})
	lead := &models.Lead{UUID: "l-1", Email: "a@b.co"}

	require.NoError(t, e.Enroll(lead, "standard-nurture"))

	assert.Equal(t, models.LeadStatusActive, lead.Status)
	assert.Equal(t, 0, lead.Cursor)
	require.NotNil(t, lead.NextTouchAt)
	assert.Equal(t, now, *lead.NextTouchAt) // first step has a 0-day offset
}

func TestEnrollUnknownSequence(t *testing.T) {
	now := time.Now()
	e := testExecutor(&now, &scriptedDeliverer{})

	err := e.Enroll(&models.Lead{UUID: "l-1"}, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFireDueAdvancesCursorMonotonically(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	e := testExecutor(&now, &scriptedDeliverer{})
	lead := &models.Lead{UUID: "l-1"}
	require.NoError(t, e.Enroll(lead, "standard-nurture"))

	prev := 0
	for i := 0; i < 4; i++ {
		now = *lead.NextTouchAt
		_, err := e.FireDue(lead)
		require.NoError(t, err, "step %d", i)
		assert.Greater(t, lead.Cursor, prev)
		assert.LessOrEqual(t, lead.Cursor, 4)
		prev = lead.Cursor
	}

	assert.Equal(t, models.LeadStatusSequenceCompleted, lead.Status)
	assert.Nil(t, lead.NextTouchAt)

	// Firing past the end is rejected, cursor unchanged
	_, err := e.FireDue(lead)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 4, lead.Cursor)
}

func TestFireDueRequiresScheduledTime(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	e := testExecutor(&now, &scriptedDeliverer{})
	lead := &models.Lead{UUID: "l-1"}
	require.NoError(t, e.Enroll(lead, "standard-nurture"))

	// Fire the first (due immediately), then try the second early
	_, err := e.FireDue(lead)
	require.NoError(t, err)

	_, err = e.FireDue(lead)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFireDueReAnchorsToSendTime(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	e := testExecutor(&now, &scriptedDeliverer{})
	lead := &models.Lead{UUID: "l-1"}
	require.NoError(t, e.Enroll(lead, "standard-nurture"))

	// Fire the first touchpoint two days late; the next one is anchored to
	// the actual send time, not the enrollment date.
	now = now.AddDate(0, 0, 2)
	_, err := e.FireDue(lead)
	require.NoError(t, err)

	require.NotNil(t, lead.NextTouchAt)
	assert.Equal(t, now.AddDate(0, 0, 3), *lead.NextTouchAt)
}

func TestRecordEngagementPrecondition(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	e := testExecutor(&now, &scriptedDeliverer{})
	lead := &models.Lead{UUID: "l-1"}
	require.NoError(t, e.Enroll(lead, "standard-nurture"))

	// Nothing fired yet
	_, err := e.RecordEngagement(lead, 0, EngagementOpened)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = e.FireDue(lead)
	require.NoError(t, err)

	// Index 0 fired, index 1 has not
	_, err = e.RecordEngagement(lead, 0, EngagementOpened)
	require.NoError(t, err)
	_, err = e.RecordEngagement(lead, 1, EngagementOpened)
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.True(t, lead.Interactions[0].Opened)
	assert.Equal(t, 1, lead.Interactions[0].OpenCount)
}

func TestHotCrossingEmitsSingleAlert(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	e := testExecutor(&now, &scriptedDeliverer{})

	// 25 + 20 + 15 = 60: warm, 10 points shy of hot
	lead := &models.Lead{
		UUID:              "l-1",
		FirstName:         "Dana",
		Company:           "Harbor Coffee",
		Budget:            ptrF(6000),
		Timeline:          ptrS(models.TimelineWithin3Months),
		DecisionAuthority: ptrS(models.AuthoritySole),
	}
	require.NoError(t, e.Enroll(lead, "standard-nurture"))
	require.Equal(t, models.TierWarm, lead.ReadinessTier)

	_, err := e.FireDue(lead)
	require.NoError(t, err)

	// +10 for a click crosses 70
	alert, err := e.RecordEngagement(lead, 0, EngagementClicked)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, "high", alert.Severity)
	assert.Contains(t, alert.Message, "Dana")
	assert.Contains(t, alert.Message, "Harbor Coffee")

	// Staying hot never re-alerts
	alert, err = e.RecordEngagement(lead, 0, EngagementResponded)
	require.NoError(t, err)
	assert.Nil(t, alert)
}

func TestRepeatedReplyRecordedOnce(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	e := testExecutor(&now, &scriptedDeliverer{})
	lead := &models.Lead{UUID: "l-1"}
	require.NoError(t, e.Enroll(lead, "standard-nurture"))

	_, err := e.FireDue(lead)
	require.NoError(t, err)

	_, err = e.RecordEngagement(lead, 0, EngagementResponded)
	require.NoError(t, err)
	scoreAfterFirst := lead.ReadinessScore
	respondedAt := lead.Interactions[0].RespondedAt
	require.NotNil(t, respondedAt)

	// An inbox rescan reporting the same reply later is a no-op: the score
	// does not compound and the original timestamp survives
	now = now.Add(5 * time.Minute)
	alert, err := e.RecordEngagement(lead, 0, EngagementResponded)
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Equal(t, scoreAfterFirst, lead.ReadinessScore)
	assert.Equal(t, respondedAt, lead.Interactions[0].RespondedAt)

	// Other engagement kinds still accumulate
	_, err = e.RecordEngagement(lead, 0, EngagementOpened)
	require.NoError(t, err)
	assert.Greater(t, lead.ReadinessScore, scoreAfterFirst)
}

func TestRoutingFromEngagementHistory(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	// 2 of 4 delivered
	e := testExecutor(&now, &scriptedDeliverer{outcomes: []bool{true, true, false, false}})
	lead := &models.Lead{UUID: "l-1"}
	require.NoError(t, e.Enroll(lead, "standard-nurture"))

	for i := 0; i < 4; i++ {
		now = *lead.NextTouchAt
		_, err := e.FireDue(lead)
		require.NoError(t, err)
		if i == 0 {
			_, err = e.RecordEngagement(lead, 0, EngagementOpened)
			require.NoError(t, err)
		}
	}

	// (2·1 + 1·2) / (4·(1+2+3)) × 100 = 16.67 → quarterly check-in
	pct := EngagementPercent(lead.Interactions)
	assert.InDelta(t, 100.0*4.0/24.0, pct, 0.01)
	assert.Equal(t, models.LeadStatusSequenceCompleted, lead.Status)
	assert.Equal(t, models.RouteQuarterlyCheckin, lead.Route)
}

func TestRouteThresholds(t *testing.T) {
	assert.Equal(t, models.RouteSalesReengagement, RouteFor(70))
	assert.Equal(t, models.RouteSalesReengagement, RouteFor(93.5))
	assert.Equal(t, models.RouteMonthlyNewsletter, RouteFor(40))
	assert.Equal(t, models.RouteMonthlyNewsletter, RouteFor(69.9))
	assert.Equal(t, models.RouteQuarterlyCheckin, RouteFor(39.9))
	assert.Equal(t, models.RouteQuarterlyCheckin, RouteFor(0))
}

func TestEngagementPercentEmptyHistory(t *testing.T) {
	assert.Zero(t, EngagementPercent(nil))
}

func TestProcessDueIsolatesFailures(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	e := testExecutor(&now, &scriptedDeliverer{})

	healthy := &models.Lead{UUID: "ok"}
	require.NoError(t, e.Enroll(healthy, "standard-nurture"))

	// Sequence was removed from the library after this lead enrolled
	broken := &models.Lead{
		UUID:         "broken",
		Status:       models.LeadStatusActive,
		SequenceName: "deleted-sequence",
		NextTouchAt:  &now,
	}

	notDue := &models.Lead{UUID: "later"}
	require.NoError(t, e.Enroll(notDue, "fast-follow-up"))
	future := now.AddDate(0, 0, 1)
	notDue.NextTouchAt = &future

	results := e.ProcessDue([]*models.Lead{broken, healthy, notDue})
	require.Len(t, results, 3)

	assert.Equal(t, BatchStatusError, results[0].Status)
	assert.NotEmpty(t, results[0].Error)
	assert.Equal(t, BatchStatusSent, results[1].Status)
	assert.Equal(t, BatchStatusSkipped, results[2].Status)

	// The broken lead never aborted the healthy one
	assert.Equal(t, 1, healthy.Cursor)
}

func TestCompleteFlipsTerminalStatus(t *testing.T) {
	now := time.Now()
	e := testExecutor(&now, &scriptedDeliverer{})
	lead := &models.Lead{UUID: "l-1"}
	require.NoError(t, e.Enroll(lead, "standard-nurture"))

	require.NoError(t, e.Complete(lead, models.LeadStatusUnsubscribed))
	assert.Equal(t, models.LeadStatusUnsubscribed, lead.Status)
	assert.Nil(t, lead.NextTouchAt)

	// Terminal leads cannot advance or re-enroll
	_, err := e.FireDue(lead)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, e.Enroll(lead, "standard-nurture"), ErrInvalidState)
	assert.ErrorIs(t, e.Complete(lead, models.LeadStatusConverted), ErrInvalidState)
}

func TestSimulatorUsesChannelRates(t *testing.T) {
	sim := NewSimulator(rand.New(rand.NewSource(3)))

	delivered := 0
	const n = 2000
	for i := 0; i < n; i++ {
		ok, err := sim.Deliver(nil, TouchpointRecord{Channel: ChannelVoice})
		require.NoError(t, err)
		if ok {
			delivered++
		}
	}
	assert.InDelta(t, 0.80, float64(delivered)/n, 0.05)
}
