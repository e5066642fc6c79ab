package targets

import "time"

// TargetType classifies the kind of publication venue a Target is.
type TargetType string

const (
	TypeGuestPostPlatform TargetType = "guest_post_platform"
	TypeBlogCommentSite   TargetType = "blog_comment_site"
	TypeForumCommunity    TargetType = "forum_community"
	TypeSocialPlatform    TargetType = "social_platform"
	TypeDirectoryListing  TargetType = "directory_listing"
	TypeWeb2Platform      TargetType = "web2_platform"
	TypeNewsPublication   TargetType = "news_publication"
	TypeIndustryBlog      TargetType = "industry_blog"
	TypeResourcePage      TargetType = "resource_page"
	TypePressReleaseSite  TargetType = "press_release_site"
	TypeReviewPlatform    TargetType = "review_platform"
	TypeSubmissionPortal  TargetType = "submission_portal"
)

// TargetStatus is the registry lifecycle state of a Target.
type TargetStatus string

const (
	StatusVerified             TargetStatus = "verified"
	StatusPendingVerification  TargetStatus = "pending_verification"
	StatusVerificationFailed   TargetStatus = "verification_failed"
	StatusTemporarilyUnavail   TargetStatus = "temporarily_unavailable"
	StatusPermanentlyRemoved   TargetStatus = "permanently_removed"
	StatusRequiresManualReview TargetStatus = "requires_manual_review"
)

// VerificationStatus is the outcome of one verification pass, distinct from
// the registry lifecycle status above.
type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "verified"
	VerificationFailed   VerificationStatus = "failed"
	VerificationPending  VerificationStatus = "pending"
)

// Target is a candidate publication venue tracked by the registry.
type Target struct {
	ID               string              `json:"id"`
	URL              string              `json:"url"`
	Domain           string              `json:"domain"`
	Type             TargetType          `json:"type"`
	Status           TargetStatus        `json:"status"`
	Verification     Verification        `json:"verification"`
	Quality          QualityMetrics      `json:"quality"`
	Capabilities     SubmissionCaps      `json:"capabilities"`
	Metadata         TargetMetadata      `json:"metadata"`
	Performance      PerformanceHistory  `json:"performance"`
	CreatedAt        time.Time           `json:"createdAt"`
	LastVerified     time.Time           `json:"lastVerified"`
	NextVerification time.Time           `json:"nextVerification"`
}

// Verification records whether and how a Target can accept a submission.
type Verification struct {
	Status                      VerificationStatus  `json:"status"`
	VerifiedAt                  time.Time           `json:"verifiedAt"`
	VerificationMethod          string              `json:"verificationMethod"`
	SubmissionFormExists        bool                `json:"submissionFormExists"`
	SubmissionGuidelinesFound   bool                `json:"submissionGuidelinesFound"`
	ContactInformationAvailable bool                `json:"contactInformationAvailable"`
	ResponseTimeEstimateHours   int                 `json:"responseTimeEstimateHours"`
	SubmissionSuccessRate       float64             `json:"submissionSuccessRate"`
	LastSubmissionAttempt       *time.Time          `json:"lastSubmissionAttempt,omitempty"`
	LastSuccessfulSubmission    *time.Time          `json:"lastSuccessfulSubmission,omitempty"`
	Details                     VerificationDetails `json:"details"`
}

// VerificationDetails carries the structural facts extracted during a
// verification pass.
type VerificationDetails struct {
	FormFields        []FormField `json:"formFields"`
	SubmissionProcess string      `json:"submissionProcess"`
	Requirements      []string    `json:"requirements"`
	Restrictions      []string    `json:"restrictions"`
	Guidelines        string      `json:"guidelines"`
}

// FormField describes one input of a detected submission/contact form.
type FormField struct {
	Name      string `json:"name"`
	FieldType string `json:"fieldType"` // text, email, url, textarea, select, file
	Required  bool   `json:"required"`
	MaxLength int    `json:"maxLength,omitempty"`
}

// QualityMetrics are campaign-independent quality/authority estimates.
// Scores are bounded: DomainAuthority, NicheRelevance, SpamScore,
// LinkJuiceValue and EditorResponseRate in [0,100].
type QualityMetrics struct {
	DomainAuthority     int    `json:"domainAuthority"`
	TrafficEstimate     int    `json:"trafficEstimate"`
	NicheRelevance      int    `json:"nicheRelevance"`
	SpamScore           int    `json:"spamScore"`
	LinkJuiceValue      int    `json:"linkJuiceValue"`
	IndexingSpeedHours  int    `json:"indexingSpeedHours"`
	AvgResponseHours    int    `json:"avgResponseHours"`
	EditorResponseRate  int    `json:"editorResponseRate"`
	ContentStandardTier string `json:"contentStandardTier"` // low, medium, high, premium
}

// SubmissionCaps describes what kinds of submissions the venue supports.
type SubmissionCaps struct {
	AcceptsGuestPosts        bool     `json:"acceptsGuestPosts"`
	AllowsComments           bool     `json:"allowsComments"`
	HasUserRegistration      bool     `json:"hasUserRegistration"`
	RequiresApproval         bool     `json:"requiresApproval"`
	SupportsDirectSubmission bool     `json:"supportsDirectSubmission"`
	HasContentGuidelines     bool     `json:"hasContentGuidelines"`
	AcceptsBacklinks         bool     `json:"acceptsBacklinks"`
	LinkPlacementOptions     []string `json:"linkPlacementOptions,omitempty"`
	ContentTypes             []string `json:"contentTypes,omitempty"`
}

// TargetMetadata is descriptive information about the venue.
type TargetMetadata struct {
	ContactEmail   string   `json:"contactEmail,omitempty"`
	EditorName     string   `json:"editorName,omitempty"`
	SubmissionPage string   `json:"submissionPage"`
	GuidelinesURL  string   `json:"guidelinesUrl,omitempty"`
	FeedURL        string   `json:"feedUrl,omitempty"`
	Topics         []string `json:"topics,omitempty"`
	Language       string   `json:"language,omitempty"`
}

// PerformanceHistory aggregates submission outcomes against this Target.
type PerformanceHistory struct {
	TotalSubmissions      int       `json:"totalSubmissions"`
	SuccessfulSubmissions int       `json:"successfulSubmissions"`
	RejectedSubmissions   int       `json:"rejectedSubmissions"`
	PendingSubmissions    int       `json:"pendingSubmissions"`
	AvgApprovalHours      int       `json:"avgApprovalHours"`
	LastUpdate            time.Time `json:"lastUpdate"`
}

// SubmissionStatus is the lifecycle state of one submission attempt.
// submitted and pending are in-flight; the rest are terminal.
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionPending   SubmissionStatus = "pending"
	SubmissionApproved  SubmissionStatus = "approved"
	SubmissionRejected  SubmissionStatus = "rejected"
	SubmissionPublished SubmissionStatus = "published"
	SubmissionFailed    SubmissionStatus = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case SubmissionApproved, SubmissionRejected, SubmissionPublished, SubmissionFailed:
		return true
	}
	return false
}

// AutomationLevel says how much of a submission can be driven automatically.
type AutomationLevel string

const (
	AutomationFull   AutomationLevel = "fully_automated"
	AutomationSemi   AutomationLevel = "semi_automated"
	AutomationManual AutomationLevel = "manual"
)

// SubmissionPayload is the content submitted to a Target.
type SubmissionPayload struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	AuthorName  string `json:"authorName"`
	AuthorEmail string `json:"authorEmail"`
	TargetURL   string `json:"targetUrl"`
	AnchorText  string `json:"anchorText"`
	Category    string `json:"category,omitempty"`
}

// SubmissionAttempt is one concrete act of submitting content to a Target.
// Immutable once its status is terminal.
type SubmissionAttempt struct {
	ID              string            `json:"id"`
	TargetID        string            `json:"targetId"`
	CampaignID      string            `json:"campaignId"`
	Payload         SubmissionPayload `json:"payload"`
	Status          SubmissionStatus  `json:"status"`
	SubmittedAt     time.Time         `json:"submittedAt"`
	RespondedAt     *time.Time        `json:"respondedAt,omitempty"`
	PublishedAt     *time.Time        `json:"publishedAt,omitempty"`
	PublishedURL    string            `json:"publishedUrl,omitempty"`
	RejectionReason string            `json:"rejectionReason,omitempty"`
	AutomationLevel AutomationLevel   `json:"automationLevel"`
}

// SearchCriteria filters verified Targets.
type SearchCriteria struct {
	Types              []TargetType `json:"types,omitempty"`
	MinDomainAuthority int          `json:"minDomainAuthority,omitempty"`
	MinTraffic         int          `json:"minTraffic,omitempty"`
	MaxSpamScore       int          `json:"maxSpamScore,omitempty"`
	Topics             []string     `json:"topics,omitempty"`
	Limit              int          `json:"limit,omitempty"`
}

// RankedTarget is a Target annotated with a campaign-specific score.
type RankedTarget struct {
	Target *Target `json:"target"`
	Score  float64 `json:"score"`
	Niche  string  `json:"niche"`
}

// ValidationOutcome summarizes a re-validation batch.
type ValidationOutcome struct {
	Valid   []string `json:"valid"`
	Invalid []string `json:"invalid"`
	Errors  []string `json:"errors,omitempty"`
}

// Analytics summarizes the registry for performance views.
type Analytics struct {
	TotalTargets        int                `json:"totalTargets"`
	VerifiedTargets     int                `json:"verifiedTargets"`
	FailedVerifications int                `json:"failedVerifications"`
	AvgSuccessRate      float64            `json:"avgSuccessRate"`
	TopPerformers       []*Target          `json:"topPerformers"`
	TypeDistribution    map[TargetType]int `json:"typeDistribution"`
	AvgDomainAuthority  float64            `json:"avgDomainAuthority"`
	AvgTraffic          float64            `json:"avgTraffic"`
	AvgSpamScore        float64            `json:"avgSpamScore"`
}
