// File: backend/internal/relevance/relevance_test.go
package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/belonio2793/backlinkoo/backend/internal/config"
)

func testMatcher() *Matcher {
	return NewMatcher(config.DefaultNicheSets())
}

func TestInferNicheTechnology(t *testing.T) {
	m := testMatcher()

	niche, score := m.InferNiche("A blog about software development and programming for api builders")
	assert.Equal(t, "technology", niche)
	assert.Positive(t, score)
}

func TestInferNichePicksStrongestSet(t *testing.T) {
	m := testMatcher()

	niche, _ := m.InferNiche("startup marketing and sales advice for founders, with a tech angle")
	assert.Equal(t, "business", niche)
}

func TestInferNicheRegexRule(t *testing.T) {
	m := testMatcher()

	// The \bsaas\b rule must match the word, not a substring.
	niche, _ := m.InferNiche("reviews of saas tools")
	assert.Equal(t, "technology", niche)

	niche, score := m.InferNiche("sassafras recipes")
	assert.Empty(t, niche)
	assert.Zero(t, score)
}

func TestInferNicheNoMatch(t *testing.T) {
	m := testMatcher()

	niche, score := m.InferNiche("gardening tips for beginners")
	assert.Empty(t, niche)
	assert.Zero(t, score)
}

func TestRelevanceForCapsAtHundred(t *testing.T) {
	m := testMatcher()

	score := m.RelevanceFor("health", "health fitness wellness medical nutrition articles")
	assert.InDelta(t, 100.0, score, 0.001)

	assert.Zero(t, m.RelevanceFor("health", "software development"))
	assert.Zero(t, m.RelevanceFor("unknown-niche", "health"))
}

func TestTopicsOverlap(t *testing.T) {
	assert.True(t, TopicsOverlap([]string{"Technology", "startups"}, "technology"))
	assert.True(t, TopicsOverlap([]string{"tech"}, "technology"))
	assert.True(t, TopicsOverlap([]string{"health and wellness"}, "health"))
	assert.False(t, TopicsOverlap([]string{"cooking"}, "technology"))
	assert.False(t, TopicsOverlap(nil, "technology"))
	assert.False(t, TopicsOverlap([]string{"technology"}, ""))
}

func TestNichesListsConfigurationOrder(t *testing.T) {
	m := testMatcher()
	assert.Equal(t, []string{"technology", "business", "health"}, m.Niches())
}
