package nurture

import (
	"fmt"
)

// Channel is the outreach medium for a touchpoint
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelSocial Channel = "social"
	ChannelVoice  Channel = "voice"
)

// TouchpointTemplate is one step of a sequence definition. OffsetDays is
// relative to entry into the sequence; offsets are author-controlled and are
// not required to be increasing.
type TouchpointTemplate struct {
	OffsetDays int     `json:"offset_days"`
	Channel    Channel `json:"channel"`
	Subject    string  `json:"subject"`
	Body       string  `json:"body"`
}

// SequenceDefinition is a named, ordered list of touchpoint templates.
// Definitions are static configuration, never mutated at runtime.
type SequenceDefinition struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Steps       []TouchpointTemplate `json:"steps"`
}

// Library holds the sequence definitions available for enrollment
type Library struct {
	defs map[string]SequenceDefinition
}

func NewLibrary(defs ...SequenceDefinition) *Library {
	l := &Library{defs: make(map[string]SequenceDefinition, len(defs))}
	for _, d := range defs {
		l.defs[d.Name] = d
	}
	return l
}

// Get returns the named definition or a wrapped ErrNotFound
func (l *Library) Get(name string) (SequenceDefinition, error) {
	def, ok := l.defs[name]
	if !ok {
		return SequenceDefinition{}, fmt.Errorf("sequence %q: %w", name, ErrNotFound)
	}
	return def, nil
}

// Names lists the available sequence names
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.defs))
	for name := range l.defs {
		names = append(names, name)
	}
	return names
}

// DefaultLibrary returns the built-in sequence catalog
func DefaultLibrary() *Library {
	return NewLibrary(
		SequenceDefinition{
			Name:        "standard-nurture",
			Description: "Four-touch education track for mid-funnel leads",
			Steps: []TouchpointTemplate{
				{
					OffsetDays: 0,
					Channel:    ChannelEmail,
					Subject:    "Quick idea for {businessName}",
					Body: "Hi {firstName},\n\nThanks for telling us about {businessName}. " +
						"Most teams we talk to are wrestling with {challenge}. Here is a short " +
						"case study that might resonate: {caseStudy}\n\nNo pressure, just useful reading.",
				},
				{
					OffsetDays: 3,
					Channel:    ChannelEmail,
					Subject:    "One thing worth trying this week",
					Body: "Hi {firstName},\n\nA quick, practical tip we share with businesses like " +
						"{businessName}: {tip}\n\nHappy to walk through how it would apply to you.",
				},
				{
					OffsetDays: 7,
					Channel:    ChannelSocial,
					Subject:    "",
					Body: "Hey {firstName}, saw a few things this week that made me think of " +
						"{businessName}. Sent a note to your inbox, would love your take.",
				},
				{
					OffsetDays: 14,
					Channel:    ChannelEmail,
					Subject:    "Should I close your file?",
					Body: "Hi {firstName},\n\nI don't want to clutter your inbox. If tackling " +
						"{challenge} is still on the roadmap for {businessName}, reply and we'll " +
						"pick a time. Otherwise I'll check back next quarter.",
				},
			},
		},
		SequenceDefinition{
			Name:        "fast-follow-up",
			Description: "Aggressive three-touch track for hot inbound leads",
			Steps: []TouchpointTemplate{
				{
					OffsetDays: 0,
					Channel:    ChannelEmail,
					Subject:    "Following up on your inquiry",
					Body: "Hi {firstName},\n\nThanks for reaching out about {challenge}. I put " +
						"together a relevant example for {businessName}: {caseStudy}\n\n" +
						"Do you have 20 minutes this week?",
				},
				{
					OffsetDays: 1,
					Channel:    ChannelVoice,
					Subject:    "",
					Body: "Call script: reference the inquiry from {businessName}, confirm the " +
						"timeline, offer two concrete slots.",
				},
				{
					OffsetDays: 4,
					Channel:    ChannelEmail,
					Subject:    "Last nudge, promise",
					Body: "Hi {firstName},\n\nOne more relevant resource before I get out of your " +
						"hair: {tip}\n\nIf the timing is wrong, just say so and I'll circle back later.",
				},
			},
		},
		SequenceDefinition{
			Name:        "long-term-drip",
			Description: "Low-frequency track for leads without a concrete timeline",
			Steps: []TouchpointTemplate{
				{
					OffsetDays: 0,
					Channel:    ChannelEmail,
					Subject:    "Staying in touch",
					Body: "Hi {firstName},\n\nNo sales pitch here, just a resource we think is " +
						"genuinely useful for {businessName}: {tip}",
				},
				{
					OffsetDays: 21,
					Channel:    ChannelEmail,
					Subject:    "How a team like yours handled {challenge}",
					Body: "Hi {firstName},\n\nThis one is worth five minutes: {caseStudy}\n\n" +
						"Things change. If your plans have, I'm easy to reach.",
				},
				{
					OffsetDays: 45,
					Channel:    ChannelSocial,
					Subject:    "",
					Body:       "Hey {firstName}, hope {businessName} is going well. Open to a quick catch-up?",
				},
			},
		},
	)
}
