package nurture

import (
	"fmt"
	"time"

	"nurtureflow/models"

	"github.com/google/uuid"
)

// Executor advances leads through their assigned sequences and applies
// engagement events. It mutates lead records in memory only; persistence is
// the caller's job.
type Executor struct {
	Scorer    *Scorer
	Scheduler *Scheduler
	Deliverer Deliverer

	// Now is injectable for tests; defaults to time.Now
	Now func() time.Time
}

func NewExecutor(scorer *Scorer, scheduler *Scheduler, deliverer Deliverer) *Executor {
	return &Executor{
		Scorer:    scorer,
		Scheduler: scheduler,
		Deliverer: deliverer,
		Now:       time.Now,
	}
}

// Enroll assigns a sequence to the lead and schedules its first touchpoint.
// The anchor date is the moment of enrollment.
func (e *Executor) Enroll(lead *models.Lead, sequenceName string) error {
	if lead.Terminal() {
		return fmt.Errorf("lead %s is %s: %w", lead.UUID, lead.Status, ErrInvalidState)
	}

	def, err := e.Scheduler.Library.Get(sequenceName)
	if err != nil {
		return err
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("sequence %q has no steps: %w", sequenceName, ErrInvalidState)
	}

	now := e.Now()
	first := now.AddDate(0, 0, def.Steps[0].OffsetDays)

	lead.Status = models.LeadStatusActive
	lead.SequenceName = sequenceName
	lead.Cursor = 0
	lead.Route = ""
	lead.EnrolledAt = &now
	lead.NextTouchAt = &first

	e.Scorer.Apply(lead)
	return nil
}

// FireDue sends the touchpoint at the cursor. Preconditions: the lead is
// active and the touchpoint's scheduled time has arrived. Delivery is
// reported by the configured Deliverer; a delivery failure is recorded as an
// undelivered interaction, not an error.
//
// The next touchpoint is re-anchored to "now" plus the next template's
// day-offset rather than to the original enrollment date, so pacing follows
// the last actual send.
func (e *Executor) FireDue(lead *models.Lead) (*models.Interaction, error) {
	if lead.Status != models.LeadStatusActive {
		return nil, fmt.Errorf("lead %s is %s, not active: %w", lead.UUID, lead.Status, ErrInvalidState)
	}

	def, err := e.Scheduler.Library.Get(lead.SequenceName)
	if err != nil {
		return nil, err
	}
	if lead.Cursor >= len(def.Steps) {
		return nil, fmt.Errorf("lead %s cursor %d beyond sequence end: %w", lead.UUID, lead.Cursor, ErrInvalidState)
	}

	now := e.Now()
	if lead.NextTouchAt == nil || now.Before(*lead.NextTouchAt) {
		return nil, fmt.Errorf("lead %s touchpoint %d not due yet: %w", lead.UUID, lead.Cursor, ErrInvalidState)
	}

	rec := e.Scheduler.Materialize(def, lead.Cursor, lead, now)
	rec.MessageID = uuid.New().String()

	delivered, derr := e.Deliverer.Deliver(lead, rec)
	if derr != nil {
		delivered = false
	}

	interaction := models.Interaction{
		LeadID:       lead.ID,
		StepIndex:    lead.Cursor,
		SequenceName: def.Name,
		Channel:      string(rec.Channel),
		MessageID:    rec.MessageID,
		Subject:      rec.Subject,
		SentAt:       now,
		Delivered:    delivered,
	}
	lead.Interactions = append(lead.Interactions, interaction)
	lead.Cursor++

	if lead.Cursor < len(def.Steps) {
		next := now.AddDate(0, 0, def.Steps[lead.Cursor].OffsetDays)
		lead.NextTouchAt = &next
	} else {
		lead.NextTouchAt = nil
		lead.Status = models.LeadStatusSequenceCompleted
		lead.Route = RouteFor(EngagementPercent(lead.Interactions))
	}

	return &lead.Interactions[len(lead.Interactions)-1], nil
}

// RecordEngagement marks the referenced interaction and re-scores the lead.
// Engagement can only be recorded for touchpoints that have already fired
// (index < cursor). Returns a SalesAlert when the lead first crosses into
// the hot tier, nil otherwise.
func (e *Executor) RecordEngagement(lead *models.Lead, stepIndex int, kind EngagementKind) (*models.SalesAlert, error) {
	if stepIndex >= lead.Cursor {
		return nil, fmt.Errorf("touchpoint %d has not fired (cursor %d): %w", stepIndex, lead.Cursor, ErrInvalidState)
	}

	var interaction *models.Interaction
	for i := range lead.Interactions {
		if lead.Interactions[i].StepIndex == stepIndex {
			interaction = &lead.Interactions[i]
			break
		}
	}
	if interaction == nil {
		return nil, fmt.Errorf("no interaction recorded for touchpoint %d: %w", stepIndex, ErrInvalidState)
	}

	now := e.Now()
	switch kind {
	case EngagementOpened:
		interaction.Opened = true
		interaction.OpenedAt = &now
		interaction.OpenCount++
	case EngagementClicked:
		interaction.Clicked = true
		interaction.ClickedAt = &now
		interaction.ClickCount++
	case EngagementResponded:
		// A reply is binary; re-reporting the same reply (inbox rescans,
		// duplicate webhooks) must not compound the score.
		if interaction.Responded {
			return nil, nil
		}
		interaction.Responded = true
		interaction.RespondedAt = &now
	case EngagementSocial:
		// scores only; no flag on the interaction record
	default:
		return nil, fmt.Errorf("unknown engagement kind %q: %w", kind, ErrInvalidState)
	}

	_, after := e.Scorer.ApplyEngagement(lead, kind)

	if after == models.TierHot && !lead.WasHot {
		lead.WasHot = true
		return e.buildAlert(lead), nil
	}
	return nil, nil
}

func (e *Executor) buildAlert(lead *models.Lead) *models.SalesAlert {
	name := lead.FullName()
	if name == "" {
		name = lead.Email
	}
	company := lead.Company
	if company == "" {
		company = "their business"
	}
	return &models.SalesAlert{
		UserID:   lead.UserID,
		LeadID:   lead.ID,
		Severity: "high",
		Tier:     lead.ReadinessTier,
		Score:    lead.ReadinessScore,
		Message: fmt.Sprintf("%s at %s just reached a readiness score of %d (hot). Reach out within 24 hours.",
			name, company, lead.ReadinessScore),
	}
}

// Complete marks the lead converted or unsubscribed. State flips, nothing is
// deleted.
func (e *Executor) Complete(lead *models.Lead, status string) error {
	if status != models.LeadStatusConverted && status != models.LeadStatusUnsubscribed {
		return fmt.Errorf("status %q is not terminal: %w", status, ErrInvalidState)
	}
	if lead.Terminal() {
		return fmt.Errorf("lead %s already %s: %w", lead.UUID, lead.Status, ErrInvalidState)
	}
	lead.Status = status
	lead.NextTouchAt = nil
	return nil
}

// Batch item statuses
const (
	BatchStatusSent      = "sent"
	BatchStatusCompleted = "completed"
	BatchStatusSkipped   = "skipped"
	BatchStatusError     = "error"
)

// BatchItem reports the outcome for one lead in a due-touchpoint batch
type BatchItem struct {
	LeadID   uint   `json:"lead_id"`
	LeadUUID string `json:"lead_uuid"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// ProcessDue fires the due touchpoint for each lead. Failures are isolated
// per lead: one bad lead never aborts the rest of the batch.
func (e *Executor) ProcessDue(leads []*models.Lead) []BatchItem {
	results := make([]BatchItem, 0, len(leads))
	for _, lead := range leads {
		results = append(results, e.processOne(lead))
	}
	return results
}

func (e *Executor) processOne(lead *models.Lead) (item BatchItem) {
	item = BatchItem{LeadID: lead.ID, LeadUUID: lead.UUID}

	defer func() {
		if r := recover(); r != nil {
			item.Status = BatchStatusError
			item.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	if lead.Status != models.LeadStatusActive ||
		lead.NextTouchAt == nil || e.Now().Before(*lead.NextTouchAt) {
		item.Status = BatchStatusSkipped
		return item
	}

	if _, err := e.FireDue(lead); err != nil {
		item.Status = BatchStatusError
		item.Error = err.Error()
		return item
	}

	if lead.Status == models.LeadStatusSequenceCompleted {
		item.Status = BatchStatusCompleted
	} else {
		item.Status = BatchStatusSent
	}
	return item
}

// EngagementPercent normalizes the interaction history to a percentage:
// delivered weighs 1, opened 2, responded 3, against the maximum attainable
// for the touchpoints sent.
func EngagementPercent(interactions []models.Interaction) float64 {
	n := len(interactions)
	if n == 0 {
		return 0
	}

	points := 0
	for _, i := range interactions {
		if i.Delivered {
			points += 1
		}
		if i.Opened {
			points += 2
		}
		if i.Responded {
			points += 3
		}
	}

	return float64(points) / float64(n*(1+2+3)) * 100
}

// Routing thresholds over the post-sequence engagement percentage
const (
	routeSalesCutoff      = 70
	routeNewsletterCutoff = 40
)

// RouteFor picks the post-sequence routing outcome
func RouteFor(percent float64) string {
	switch {
	case percent >= routeSalesCutoff:
		return models.RouteSalesReengagement
	case percent >= routeNewsletterCutoff:
		return models.RouteMonthlyNewsletter
	default:
		return models.RouteQuarterlyCheckin
	}
}
