package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead status values
const (
	LeadStatusNew               = "new"
	LeadStatusActive            = "active"
	LeadStatusSequenceCompleted = "sequence_completed"
	LeadStatusConverted         = "converted"
	LeadStatusUnsubscribed      = "unsubscribed"
)

// Readiness tiers
const (
	TierCold     = "cold"
	TierLukewarm = "lukewarm"
	TierWarm     = "warm"
	TierHot      = "hot"
)

// Timeline buckets
const (
	TimelineImmediate     = "immediate"
	TimelineWithin3Months = "within_3_months"
	TimelineWithin6Months = "within_6_months"
	TimelineSomeday       = "someday"
)

// Urgency buckets
const (
	UrgencyCritical   = "critical"
	UrgencyImportant  = "important"
	UrgencyNiceToHave = "nice_to_have"
)

// Decision authority levels
const (
	AuthoritySole       = "sole"
	AuthorityPrimary    = "primary"
	AuthorityInfluencer = "influencer"
)

// Engagement levels
const (
	EngagementHigh   = "high"
	EngagementMedium = "medium"
)

// Routing outcomes after a sequence completes
const (
	RouteSalesReengagement = "sales_reengagement"
	RouteMonthlyNewsletter = "monthly_newsletter"
	RouteQuarterlyCheckin  = "quarterly_checkin"
)

// Concern is an advisory annotation attached to a lead's readiness. It never
// affects the score.
type Concern struct {
	Note           string `json:"note"`
	Recommendation string `json:"recommendation,omitempty"`
}

// Lead represents a prospective customer tracked through a nurture sequence
type Lead struct {
	gorm.Model
	UserID uint   `gorm:"not null;index" json:"user_id"`
	UUID   string `gorm:"not null;uniqueIndex" json:"uuid"`

	Email     string `gorm:"not null;index" json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Niche     string `json:"niche"`
	Phone     string `json:"phone"`

	// Scoring attributes. All optional; a nil field contributes nothing.
	Budget            *float64 `json:"budget"`
	Timeline          *string  `json:"timeline"`
	Urgency           *string  `json:"urgency"`
	DecisionAuthority *string  `json:"decision_authority"`
	EngagementLevel   *string  `json:"engagement_level"`

	// Derived readiness, recomputed on creation and after every engagement
	ReadinessScore int       `gorm:"default:0" json:"readiness_score"`
	ReadinessTier  string    `gorm:"default:'cold'" json:"readiness_tier"`
	Strengths      []string  `gorm:"type:jsonb;serializer:json" json:"strengths"`
	Concerns       []Concern `gorm:"type:jsonb;serializer:json" json:"concerns"`
	WasHot         bool      `gorm:"default:false" json:"was_hot"`

	// Sequence state
	Status       string     `gorm:"default:'new'" json:"status"`
	SequenceName string     `json:"sequence_name"`
	Cursor       int        `gorm:"default:0" json:"cursor"`
	EnrolledAt   *time.Time `json:"enrolled_at"`
	NextTouchAt  *time.Time `gorm:"index" json:"next_touch_at"`
	Route        string     `json:"route"`

	Source string `json:"source"`

	// Relations
	CustomFields []LeadCustomField `gorm:"foreignKey:LeadID" json:"custom_fields,omitempty"`
	Interactions []Interaction     `gorm:"foreignKey:LeadID" json:"interactions,omitempty"`
}

// FullName returns the lead's display name, or empty when unknown
func (l *Lead) FullName() string {
	switch {
	case l.FirstName != "" && l.LastName != "":
		return l.FirstName + " " + l.LastName
	case l.FirstName != "":
		return l.FirstName
	default:
		return l.LastName
	}
}

// Terminal reports whether the lead left nurture for good
func (l *Lead) Terminal() bool {
	return l.Status == LeadStatusConverted || l.Status == LeadStatusUnsubscribed
}

// LeadCustomField represents free-form attributes used for personalization
type LeadCustomField struct {
	gorm.Model
	LeadID uint   `gorm:"not null;index" json:"lead_id"`
	Name   string `gorm:"not null;index" json:"name"`
	Value  string `gorm:"type:text" json:"value"`
}

// Interaction records one fired touchpoint and the engagement it received.
// Entries are append-only; StepIndex is always below the lead's cursor.
type Interaction struct {
	gorm.Model
	LeadID uint `gorm:"not null;index" json:"lead_id"`

	StepIndex    int    `gorm:"not null" json:"step_index"`
	SequenceName string `json:"sequence_name"`
	Channel      string `gorm:"not null" json:"channel"`
	MessageID    string `gorm:"index" json:"message_id"`
	Subject      string `json:"subject"`

	SentAt    time.Time `gorm:"not null" json:"sent_at"`
	Delivered bool      `gorm:"default:false" json:"delivered"`

	Opened    bool       `gorm:"default:false" json:"opened"`
	OpenedAt  *time.Time `json:"opened_at"`
	OpenCount int        `gorm:"default:0" json:"open_count"`

	Clicked    bool       `gorm:"default:false" json:"clicked"`
	ClickedAt  *time.Time `json:"clicked_at"`
	ClickCount int        `gorm:"default:0" json:"click_count"`

	Responded   bool       `gorm:"default:false" json:"responded"`
	RespondedAt *time.Time `json:"responded_at"`
}

// SalesAlert is raised when a lead first crosses into the hot tier. Advisory
// output for the sales team, not a retryable action.
type SalesAlert struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`
	LeadID uint `gorm:"not null;index" json:"lead_id"`

	Severity     string `gorm:"not null" json:"severity"`
	Message      string `gorm:"type:text" json:"message"`
	Score        int    `json:"score"`
	Tier         string `json:"tier"`
	Acknowledged bool   `gorm:"default:false" json:"acknowledged"`

	// Relations
	Lead Lead `json:"-"`
}
