package nurture

import (
	"math/rand"
	"regexp"
	"time"

	"nurtureflow/models"
)

// TouchpointRecord is a scheduled, personalized instance of a template.
// Immutable once created; generation is idempotent for the same inputs and
// rand seed.
type TouchpointRecord struct {
	SequenceName string      `json:"sequence_name"`
	Index        int         `json:"index"`
	MessageID    string      `json:"message_id,omitempty"`
	Channel      Channel     `json:"channel"`
	ScheduledAt  time.Time   `json:"scheduled_at"`
	Subject      string      `json:"subject"`
	Body         string      `json:"body"`
	Content      ContentItem `json:"content"`
}

// Scheduler expands a sequence definition into dated, personalized touchpoint
// records for one lead. Content fallback uses the injected rand source, so a
// fixed seed makes scheduling fully deterministic.
type Scheduler struct {
	Library *Library
	Rand    *rand.Rand
}

func NewScheduler(library *Library, rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scheduler{Library: library, Rand: rng}
}

// Schedule produces one record per template, in template order. Dates are
// anchor + offset; non-monotonic offsets are computed as-is and never
// reordered. Sequence ordering is author-controlled.
func (s *Scheduler) Schedule(sequenceName string, lead *models.Lead, anchor time.Time) ([]TouchpointRecord, error) {
	def, err := s.Library.Get(sequenceName)
	if err != nil {
		return nil, err
	}

	records := make([]TouchpointRecord, 0, len(def.Steps))
	for i, step := range def.Steps {
		records = append(records, s.materialize(def, i, step, lead, anchor.AddDate(0, 0, step.OffsetDays)))
	}
	return records, nil
}

// Materialize builds the personalized record for a single step at the given
// send time. Used by the executor at fire time.
func (s *Scheduler) Materialize(def SequenceDefinition, index int, lead *models.Lead, at time.Time) TouchpointRecord {
	return s.materialize(def, index, def.Steps[index], lead, at)
}

func (s *Scheduler) materialize(def SequenceDefinition, index int, step TouchpointTemplate, lead *models.Lead, at time.Time) TouchpointRecord {
	vars := leadVars(lead)

	content := pickContent(lead.Niche, "case_study", s.Rand)
	tip := pickContent(lead.Niche, "tip", s.Rand)
	vars["caseStudy"] = content.Title + ": " + content.URL
	vars["tip"] = tip.Title + ": " + tip.URL

	return TouchpointRecord{
		SequenceName: def.Name,
		Index:        index,
		Channel:      step.Channel,
		ScheduledAt:  at,
		Subject:      Personalize(step.Subject, vars),
		Body:         Personalize(step.Body, vars),
		Content:      content,
	}
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z][a-zA-Z0-9_]*)\}`)

// Personalize substitutes {name} placeholders from vars. Placeholders with no
// entry in vars are left verbatim in the output.
func Personalize(text string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		key := match[1 : len(match)-1]
		if value, ok := vars[key]; ok {
			return value
		}
		return match
	})
}

// leadVars builds the substitution map with generic fillers for missing
// attributes, plus every custom field by name.
func leadVars(lead *models.Lead) map[string]string {
	vars := map[string]string{
		"firstName":    "there",
		"businessName": "your business",
		"challenge":    "growing your customer base",
	}

	if lead.FirstName != "" {
		vars["firstName"] = lead.FirstName
	}
	if lead.LastName != "" {
		vars["lastName"] = lead.LastName
	}
	if lead.Company != "" {
		vars["businessName"] = lead.Company
	}
	if lead.Niche != "" {
		vars["niche"] = lead.Niche
	}

	for _, field := range lead.CustomFields {
		vars[field.Name] = field.Value
	}

	return vars
}
