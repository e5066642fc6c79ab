// File: backend/internal/outreach/models.go
package outreach

import "time"

// CampaignStatus is the lifecycle state of a Campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

// TemplateStyle selects the voice of rendered outreach emails.
type TemplateStyle string

const (
	StyleProfessional TemplateStyle = "professional"
	StyleCasual       TemplateStyle = "casual"
	StyleDirect       TemplateStyle = "direct"
)

// PersonalizationLevel gates how much of the research snapshot a rendered
// email may reference.
type PersonalizationLevel string

const (
	PersonalizationBasic    PersonalizationLevel = "basic"
	PersonalizationStandard PersonalizationLevel = "standard"
	PersonalizationDeep     PersonalizationLevel = "deep"
)

// SenderSettings identify the sending identity handed to the channel
// collaborator. Provider credentials live with the collaborator, not here.
type SenderSettings struct {
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`
	ReplyTo   string `json:"reply_to,omitempty"`
}

// Campaign is one configured outreach effort with its own policy and
// continuously updated statistics.
type Campaign struct {
	ID                   string               `json:"id"`
	Name                 string               `json:"name"`
	TargetURL            string               `json:"target_url"`
	Keywords             []string             `json:"keywords"`
	AnchorTexts          []string             `json:"anchor_texts,omitempty"`
	TemplateStyle        TemplateStyle        `json:"template_style"`
	PersonalizationLevel PersonalizationLevel `json:"personalization_level"`
	FollowUpEnabled      bool                 `json:"follow_up_enabled"`
	FollowUpDelays       []int                `json:"follow_up_delays"` // days between contacts
	Sender               SenderSettings       `json:"sender"`
	Status               CampaignStatus       `json:"status"`
	Stats                OutreachStats        `json:"stats"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// OutreachStats is the embedded aggregate a Campaign carries. Counters are
// only ever mutated additively through StatsDelta; rates are derived.
type OutreachStats struct {
	EmailsSent        int     `json:"emails_sent"`
	EmailsDelivered   int     `json:"emails_delivered"`
	EmailsOpened      int     `json:"emails_opened"`
	EmailsClicked     int     `json:"emails_clicked"`
	Replied           int     `json:"replied"`
	PositiveResponses int     `json:"positive_responses"`
	NegativeResponses int     `json:"negative_responses"`
	NeutralResponses  int     `json:"neutral_responses"`
	LinksAcquired     int     `json:"links_acquired"`
	FailedSends       int     `json:"failed_sends"`
	ResponseRate      float64 `json:"response_rate"`
	ConversionRate    float64 `json:"conversion_rate"`
}

// Recalculate refreshes the derived rates. Both are exactly zero when no
// emails have been sent.
func (s *OutreachStats) Recalculate() {
	if s.EmailsSent == 0 {
		s.ResponseRate = 0
		s.ConversionRate = 0
		return
	}
	s.ResponseRate = float64(s.Replied) / float64(s.EmailsSent) * 100
	s.ConversionRate = float64(s.LinksAcquired) / float64(s.EmailsSent) * 100
}

// StatsDelta is a partial, additive update to OutreachStats. Zero fields are
// no-ops, so callers name only the counters they touch.
type StatsDelta struct {
	EmailsSent        int
	EmailsDelivered   int
	EmailsOpened      int
	EmailsClicked     int
	Replied           int
	PositiveResponses int
	NegativeResponses int
	NeutralResponses  int
	LinksAcquired     int
	FailedSends       int
}

// Apply adds the delta to the stats and refreshes derived rates. Callers hold
// whatever lock guards the Campaign.
func (s *OutreachStats) Apply(d StatsDelta) {
	s.EmailsSent += d.EmailsSent
	s.EmailsDelivered += d.EmailsDelivered
	s.EmailsOpened += d.EmailsOpened
	s.EmailsClicked += d.EmailsClicked
	s.Replied += d.Replied
	s.PositiveResponses += d.PositiveResponses
	s.NegativeResponses += d.NegativeResponses
	s.NeutralResponses += d.NeutralResponses
	s.LinksAcquired += d.LinksAcquired
	s.FailedSends += d.FailedSends
	s.Recalculate()
}

// ProspectStatus is the outreach state machine position of a Prospect.
type ProspectStatus string

const (
	ProspectDiscovered     ProspectStatus = "discovered"
	ProspectResearching    ProspectStatus = "researching"
	ProspectReadyToContact ProspectStatus = "ready_to_contact"
	ProspectInitialSent    ProspectStatus = "initial_sent"
	ProspectFollowUp1      ProspectStatus = "follow_up_1"
	ProspectFollowUp2      ProspectStatus = "follow_up_2"
	ProspectFollowUp3      ProspectStatus = "follow_up_3"
	ProspectCompleted      ProspectStatus = "completed"
	ProspectPaused         ProspectStatus = "paused"
	ProspectBlacklisted    ProspectStatus = "blacklisted"
)

// IsTerminal reports whether the status permits no further transitions.
func (s ProspectStatus) IsTerminal() bool {
	return s == ProspectCompleted || s == ProspectBlacklisted
}

// forwardOrder positions each forward-chain state for transition validation.
// Side-branch states are not part of the chain.
var forwardOrder = map[ProspectStatus]int{
	ProspectDiscovered:     0,
	ProspectResearching:    1,
	ProspectReadyToContact: 2,
	ProspectInitialSent:    3,
	ProspectFollowUp1:      4,
	ProspectFollowUp2:      5,
	ProspectFollowUp3:      6,
	ProspectCompleted:      7,
}

// CanTransition reports whether moving from s to next respects the state
// machine: one step forward along the chain, a jump to completed, a side
// branch to paused/blacklisted from any non-terminal state, or a resume from
// paused back into the chain. The single edge out of a terminal state is
// blacklisted back to ready_to_contact, which callers must gate behind the
// recontact policy.
func (s ProspectStatus) CanTransition(next ProspectStatus) bool {
	if s == ProspectBlacklisted {
		return next == ProspectReadyToContact
	}
	if s.IsTerminal() {
		return false
	}
	if next == ProspectPaused || next == ProspectBlacklisted {
		return true
	}
	if s == ProspectPaused {
		_, inChain := forwardOrder[next]
		return inChain
	}
	if next == ProspectCompleted {
		return true
	}
	from, okFrom := forwardOrder[s]
	to, okTo := forwardOrder[next]
	return okFrom && okTo && to == from+1
}

// ResponseStatus is the classified disposition of a Prospect's latest reply.
type ResponseStatus string

const (
	ResponseNone     ResponseStatus = "none"
	ResponsePositive ResponseStatus = "positive"
	ResponseNegative ResponseStatus = "negative"
	ResponseNeutral  ResponseStatus = "neutral"
	ResponseBounce   ResponseStatus = "bounce"
)

// Prospect is one (venue, contact) pair tracked through a Campaign's
// outreach lifecycle. Never deleted; only transitioned to a terminal state.
type Prospect struct {
	ID               string            `json:"id"`
	CampaignID       string            `json:"campaign_id"`
	TargetID         string            `json:"target_id,omitempty"`
	Domain           string            `json:"domain"`
	URL              string            `json:"url"`
	ContactName      string            `json:"contact_name,omitempty"`
	ContactEmail     string            `json:"contact_email"`
	ContactTitle     string            `json:"contact_title,omitempty"`
	ContactCompany   string            `json:"contact_company,omitempty"`
	Research         *ProspectResearch `json:"research,omitempty"`
	ResearchAttempts int               `json:"research_attempts"`
	Status           ProspectStatus    `json:"outreach_status"`
	PreviousStatus   ProspectStatus    `json:"previous_status,omitempty"`
	LastContactAt    *time.Time        `json:"last_contact_at,omitempty"`
	NextFollowUpAt   *time.Time        `json:"next_follow_up_at,omitempty"`
	ResponseStatus   ResponseStatus    `json:"response_status"`
	ResponseData     *ResponseData     `json:"response_data,omitempty"`
	LinkAcquired     bool              `json:"link_acquired"`
	AcquiredLinkURL  string            `json:"acquired_link_url,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ProspectResearch is the personalization snapshot gathered before any email
// is sent. A Prospect is never contacted without a completed snapshot.
type ProspectResearch struct {
	SiteTitle            string        `json:"site_title,omitempty"`
	RecentPosts          []PostSummary `json:"recent_posts,omitempty"`
	ContentTopics        []string      `json:"content_topics,omitempty"`
	PostingFrequency     string        `json:"posting_frequency,omitempty"`
	AcceptsGuestPosts    bool          `json:"accepts_guest_posts"`
	PersonalizationFacts []string      `json:"personalization_facts,omitempty"`
	CompletedAt          time.Time     `json:"completed_at"`
}

// PostSummary is one recently published article on the prospect's venue.
type PostSummary struct {
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// EmailType distinguishes the stage a sent email belongs to. A Prospect never
// carries two emails of the same type.
type EmailType string

const (
	EmailInitial   EmailType = "initial"
	EmailFollowUp1 EmailType = "follow_up_1"
	EmailFollowUp2 EmailType = "follow_up_2"
	EmailFollowUp3 EmailType = "follow_up_3"
)

// EmailStatus is the terminal send status of an OutreachEmail. Delivery and
// engagement are tracked as event timestamps, not statuses.
type EmailStatus string

const (
	EmailSent   EmailStatus = "sent"
	EmailFailed EmailStatus = "failed"
)

// OutreachEmail is one concrete contact attempt. Immutable once sent except
// for event timestamps appended by the channel collaborator.
type OutreachEmail struct {
	ID                   string               `json:"id"`
	ProspectID           string               `json:"prospect_id"`
	CampaignID           string               `json:"campaign_id"`
	Type                 EmailType            `json:"email_type"`
	Subject              string               `json:"subject"`
	Body                 string               `json:"body"`
	TemplateStyle        TemplateStyle        `json:"template_style"`
	PersonalizationLevel PersonalizationLevel `json:"personalization_level"`
	PersonalizationFacts []string             `json:"personalization_facts,omitempty"`
	Status               EmailStatus          `json:"status"`
	FailureReason        string               `json:"failure_reason,omitempty"`
	ProviderMessageID    string               `json:"provider_message_id,omitempty"`
	SentAt               time.Time            `json:"sent_at"`
	DeliveredAt          *time.Time           `json:"delivered_at,omitempty"`
	OpenedAt             *time.Time           `json:"opened_at,omitempty"`
	ClickedAt            *time.Time           `json:"clicked_at,omitempty"`
	RepliedAt            *time.Time           `json:"replied_at,omitempty"`
}

// ResponseType is the classifier's verdict category.
type ResponseType string

const (
	ReplyPositive  ResponseType = "positive"
	ReplyNegative  ResponseType = "negative"
	ReplyNeutral   ResponseType = "neutral"
	ReplyAutoReply ResponseType = "auto_reply"
)

// ResponseData is the structured classification of one inbound reply.
type ResponseData struct {
	Type              ResponseType `json:"type"`
	SentimentScore    float64      `json:"sentiment_score"` // -1..1
	IntentFacts       []string     `json:"intent_facts,omitempty"`
	Requirements      []string     `json:"requirements,omitempty"`
	RecommendedAction string       `json:"recommended_action"`
	RequiresFollowUp  bool         `json:"requires_follow_up"`
	ClassifiedAt      time.Time    `json:"classified_at"`
}

// ProspectIntake is the caller-supplied shape for adding one prospect to a
// campaign. Email is mandatory.
type ProspectIntake struct {
	URL            string `json:"url"`
	TargetID       string `json:"target_id,omitempty"`
	ContactName    string `json:"contact_name,omitempty"`
	ContactEmail   string `json:"contact_email"`
	ContactTitle   string `json:"contact_title,omitempty"`
	ContactCompany string `json:"contact_company,omitempty"`
}

// CampaignPerformance is the read model for campaign analytics views.
type CampaignPerformance struct {
	Campaign         *Campaign              `json:"campaign"`
	ProspectsByState map[ProspectStatus]int `json:"prospects_by_state"`
	PendingResearch  int                    `json:"pending_research"`
	DueFollowUps     int                    `json:"due_follow_ups"`
	RecentEmails     []*OutreachEmail       `json:"recent_emails"`
}

// NextEmailType returns the email type owed to a Prospect in its current
// state, or false when no automatic email is due from that state.
func NextEmailType(status ProspectStatus) (EmailType, bool) {
	switch status {
	case ProspectReadyToContact:
		return EmailInitial, true
	case ProspectInitialSent:
		return EmailFollowUp1, true
	case ProspectFollowUp1:
		return EmailFollowUp2, true
	case ProspectFollowUp2:
		return EmailFollowUp3, true
	}
	return "", false
}

// StatusAfterSend returns the state a Prospect lands in after an email of the
// given type is successfully sent.
func StatusAfterSend(t EmailType) ProspectStatus {
	switch t {
	case EmailInitial:
		return ProspectInitialSent
	case EmailFollowUp1:
		return ProspectFollowUp1
	case EmailFollowUp2:
		return ProspectFollowUp2
	default:
		return ProspectFollowUp3
	}
}

// FollowUpIndex maps an email type to its position in the campaign's
// follow_up_delays list. The initial email consumes delays[0] for scheduling
// the first follow-up.
func FollowUpIndex(t EmailType) int {
	switch t {
	case EmailInitial:
		return 0
	case EmailFollowUp1:
		return 1
	case EmailFollowUp2:
		return 2
	default:
		return 3
	}
}
