package nurture

import (
	"math/rand"
	"testing"
	"time"

	"nurtureflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededScheduler(seed int64, lib *Library) *Scheduler {
	return NewScheduler(lib, rand.New(rand.NewSource(seed)))
}

func TestScheduleDatesFromOffsets(t *testing.T) {
	sch := seededScheduler(1, DefaultLibrary())
	anchor := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	// standard-nurture offsets are 0, 3, 7, 14
	records, err := sch.Schedule("standard-nurture", &models.Lead{}, anchor)
	require.NoError(t, err)
	require.Len(t, records, 4)

	want := []time.Time{
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
	}
	for i, rec := range records {
		assert.Equal(t, want[i], rec.ScheduledAt, "step %d", i)
		assert.Equal(t, i, rec.Index)
	}
}

func TestScheduleUnknownSequence(t *testing.T) {
	sch := seededScheduler(1, DefaultLibrary())

	_, err := sch.Schedule("does-not-exist", &models.Lead{}, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScheduleNonMonotonicOffsetsPreserved(t *testing.T) {
	lib := NewLibrary(SequenceDefinition{
		Name: "odd-order",
		Steps: []TouchpointTemplate{
			{OffsetDays: 5, Channel: ChannelEmail, Body: "a"},
			{OffsetDays: 2, Channel: ChannelEmail, Body: "b"},
			{OffsetDays: 9, Channel: ChannelEmail, Body: "c"},
		},
	})
	sch := seededScheduler(1, lib)
	anchor := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	records, err := sch.Schedule("odd-order", &models.Lead{}, anchor)
	require.NoError(t, err)

	// Dates computed as-is, template order kept, no reordering
	assert.Equal(t, anchor.AddDate(0, 0, 5), records[0].ScheduledAt)
	assert.Equal(t, anchor.AddDate(0, 0, 2), records[1].ScheduledAt)
	assert.Equal(t, anchor.AddDate(0, 0, 9), records[2].ScheduledAt)
}

func TestPersonalizeSubstitutionAndFallbacks(t *testing.T) {
	sch := seededScheduler(1, DefaultLibrary())
	anchor := time.Now()

	named := &models.Lead{FirstName: "Dana", Company: "Harbor Coffee"}
	records, err := sch.Schedule("standard-nurture", named, anchor)
	require.NoError(t, err)
	assert.Contains(t, records[0].Body, "Hi Dana")
	assert.Contains(t, records[0].Subject, "Harbor Coffee")

	anon := &models.Lead{}
	records, err = sch.Schedule("standard-nurture", anon, anchor)
	require.NoError(t, err)
	assert.Contains(t, records[0].Body, "Hi there")
	assert.Contains(t, records[0].Subject, "your business")
}

func TestPersonalizeUnresolvedPlaceholderLeftVerbatim(t *testing.T) {
	out := Personalize("Hello {firstName}, about {unknownField} and {another_one}.",
		map[string]string{"firstName": "Sam"})

	assert.Equal(t, "Hello Sam, about {unknownField} and {another_one}.", out)
}

func TestPersonalizeCustomFields(t *testing.T) {
	lead := &models.Lead{
		FirstName: "Ira",
		CustomFields: []models.LeadCustomField{
			{Name: "challenge", Value: "slow lead response times"},
		},
	}
	sch := seededScheduler(1, DefaultLibrary())

	records, err := sch.Schedule("standard-nurture", lead, time.Now())
	require.NoError(t, err)
	assert.Contains(t, records[0].Body, "slow lead response times")
}

func TestScheduleIdempotentWithFixedSeed(t *testing.T) {
	lead := &models.Lead{FirstName: "Noa", Company: "Brightside", Niche: "nonexistent-niche"}
	anchor := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first, err := seededScheduler(42, DefaultLibrary()).Schedule("standard-nurture", lead, anchor)
	require.NoError(t, err)
	second, err := seededScheduler(42, DefaultLibrary()).Schedule("standard-nurture", lead, anchor)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Body, second[i].Body, "step %d", i)
		assert.Equal(t, first[i].Subject, second[i].Subject, "step %d", i)
	}
}

func TestContentSelectionPrefersNiche(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	item := pickContent("saas", "case_study", rng)
	assert.Equal(t, "saas", item.Niche)
	assert.Equal(t, "case_study", item.Kind)

	// Unknown niche falls back to some entry of the right kind
	fallback := pickContent("space-mining", "tip", rng)
	assert.Equal(t, "tip", fallback.Kind)
}
