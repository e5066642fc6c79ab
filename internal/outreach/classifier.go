// File: backend/internal/outreach/classifier.go
package outreach

import (
	"strings"
	"time"
)

// Classifier turns an inbound reply into a structured verdict. Pure function
// of the text plus optional research context; the caller persists the result
// and updates counters.
type Classifier struct {
	now func() time.Time
}

func NewClassifier() *Classifier {
	return &Classifier{now: time.Now}
}

// WithClock swaps the time source.
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

var autoReplyCues = []string{
	"out of office",
	"out of the office",
	"auto-reply",
	"automatic reply",
	"autoreply",
	"on vacation",
	"on annual leave",
	"currently away",
	"maternity leave",
}

var positiveCues = []string{
	"interested",
	"sounds good",
	"sounds great",
	"tell me more",
	"send me",
	"would love",
	"happy to",
	"yes, ",
	"let's do",
	"pricing",
	"your rates",
	"go ahead",
}

var negativeCues = []string{
	"not interested",
	"no thanks",
	"no thank you",
	"unsubscribe",
	"remove me",
	"stop emailing",
	"stop contacting",
	"do not contact",
	"don't contact",
	"spam",
	"not a fit",
	"we don't accept",
	"we do not accept",
}

// requirementCues maps a phrase found in the reply to the structured
// requirement recorded for the operator.
var requirementCues = map[string]string{
	"fee":              "Paid placement: a fee is required",
	"payment":          "Paid placement: a fee is required",
	"sponsored":        "Post will be marked as sponsored",
	"word count":       "A word-count requirement applies",
	"words minimum":    "A word-count requirement applies",
	"exclusive":        "Content must be exclusive to their site",
	"original content": "Content must be original and unpublished",
	"author bio":       "An author bio is required",
	"dofollow":         "Link attribute terms were mentioned",
	"nofollow":         "Link attribute terms were mentioned",
	"editorial review": "Content goes through editorial review",
}

// Classify produces the verdict for one raw reply. "interested" appearing
// inside "not interested" must not count as positive, so negative cues are
// checked first and mask their text before positive matching.
func (c *Classifier) Classify(text string) ResponseData {
	verdict := ResponseData{
		RecommendedAction: "manual_review",
		ClassifiedAt:      c.now().UTC(),
	}
	lower := strings.ToLower(text)

	if strings.TrimSpace(lower) == "" {
		verdict.Type = ReplyNeutral
		verdict.RequiresFollowUp = true
		return verdict
	}

	for _, cue := range autoReplyCues {
		if strings.Contains(lower, cue) {
			verdict.Type = ReplyAutoReply
			verdict.IntentFacts = []string{"Automated absence reply"}
			verdict.RecommendedAction = "retry_after_return"
			verdict.RequiresFollowUp = true
			return verdict
		}
	}

	masked := lower
	negHits := 0
	for _, cue := range negativeCues {
		if strings.Contains(masked, cue) {
			negHits++
			masked = strings.ReplaceAll(masked, cue, " ")
		}
	}
	posHits := 0
	for _, cue := range positiveCues {
		if strings.Contains(masked, cue) {
			posHits++
		}
	}

	verdict.Requirements = extractReplyRequirements(lower)
	verdict.SentimentScore = sentimentScore(posHits, negHits)

	switch {
	case negHits > 0 && posHits == 0:
		verdict.Type = ReplyNegative
		verdict.IntentFacts = []string{"Declined or requested no further contact"}
		verdict.RecommendedAction = "mark_not_interested"
	case posHits > 0 && negHits == 0:
		verdict.Type = ReplyPositive
		verdict.IntentFacts = []string{"Expressed interest"}
		verdict.RecommendedAction = "send_proposal"
		if len(verdict.Requirements) > 0 {
			verdict.IntentFacts = append(verdict.IntentFacts, "Stated placement terms")
		}
	default:
		// Mixed or no signal: ambiguous replies default to neutral and
		// are flagged for a human rather than failing.
		verdict.Type = ReplyNeutral
		verdict.RequiresFollowUp = true
	}
	return verdict
}

func extractReplyRequirements(lower string) []string {
	var reqs []string
	seen := map[string]bool{}
	for cue, requirement := range requirementCues {
		if strings.Contains(lower, cue) && !seen[requirement] {
			seen[requirement] = true
			reqs = append(reqs, requirement)
		}
	}
	return reqs
}

func sentimentScore(posHits, negHits int) float64 {
	total := posHits + negHits
	if total == 0 {
		return 0
	}
	return float64(posHits-negHits) / float64(total)
}

// ResponseStatusFor maps a verdict category onto the Prospect's
// response_status field. Auto-replies carry no disposition.
func ResponseStatusFor(t ResponseType) ResponseStatus {
	switch t {
	case ReplyPositive:
		return ResponsePositive
	case ReplyNegative:
		return ResponseNegative
	case ReplyAutoReply:
		return ResponseNone
	default:
		return ResponseNeutral
	}
}
