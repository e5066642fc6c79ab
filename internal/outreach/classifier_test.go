// File: backend/internal/outreach/classifier_test.go
package outreach

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestClassifyPositiveReply(t *testing.T) {
	c := NewClassifier().WithClock(fixedClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))

	verdict := c.Classify("Hi! Yes, this sounds good. Tell me more about the piece you have in mind.")

	assert.Equal(t, ReplyPositive, verdict.Type)
	assert.Equal(t, "send_proposal", verdict.RecommendedAction)
	assert.Greater(t, verdict.SentimentScore, 0.0)
	assert.False(t, verdict.RequiresFollowUp)
}

func TestClassifyNegativeReply(t *testing.T) {
	c := NewClassifier()

	verdict := c.Classify("Not interested, please remove me from your list.")

	assert.Equal(t, ReplyNegative, verdict.Type)
	assert.Equal(t, "mark_not_interested", verdict.RecommendedAction)
	assert.Less(t, verdict.SentimentScore, 0.0)
}

func TestClassifyNegativeMasksEmbeddedPositive(t *testing.T) {
	c := NewClassifier()

	// "interested" appears inside "not interested" and must not flip the verdict.
	verdict := c.Classify("We're not interested.")

	assert.Equal(t, ReplyNegative, verdict.Type)
}

func TestClassifyAutoReply(t *testing.T) {
	c := NewClassifier()

	verdict := c.Classify("I am currently out of office until Monday and will reply on my return.")

	assert.Equal(t, ReplyAutoReply, verdict.Type)
	assert.Equal(t, "retry_after_return", verdict.RecommendedAction)
	assert.True(t, verdict.RequiresFollowUp)
}

func TestClassifyAmbiguousDefaultsToNeutral(t *testing.T) {
	c := NewClassifier()

	verdict := c.Classify("Thanks for reaching out. Who are you again?")

	assert.Equal(t, ReplyNeutral, verdict.Type)
	assert.True(t, verdict.RequiresFollowUp)
	assert.Equal(t, "manual_review", verdict.RecommendedAction)
}

func TestClassifyMixedSignalsIsNeutral(t *testing.T) {
	c := NewClassifier()

	verdict := c.Classify("Sounds good in principle, but we're not interested right now.")

	assert.Equal(t, ReplyNeutral, verdict.Type)
	assert.True(t, verdict.RequiresFollowUp)
}

func TestClassifyExtractsRequirements(t *testing.T) {
	c := NewClassifier()

	verdict := c.Classify("Interested. Note we charge a fee for placement and require an author bio.")

	assert.Equal(t, ReplyPositive, verdict.Type)
	assert.Contains(t, verdict.Requirements, "Paid placement: a fee is required")
	assert.Contains(t, verdict.Requirements, "An author bio is required")
}

func TestResponseStatusFor(t *testing.T) {
	assert.Equal(t, ResponsePositive, ResponseStatusFor(ReplyPositive))
	assert.Equal(t, ResponseNegative, ResponseStatusFor(ReplyNegative))
	assert.Equal(t, ResponseNeutral, ResponseStatusFor(ReplyNeutral))
	assert.Equal(t, ResponseNone, ResponseStatusFor(ReplyAutoReply))
}
