// File: backend/internal/relevance/relevance.go

// Package relevance maps free-text signals (page text, URLs, topic lists)
// onto the configured niche vocabulary. The ranking layer uses it twice:
// once to infer a target's niche at intake, and again to decide how strongly
// a target's topics overlap a campaign's niche.
package relevance

import (
	"strings"

	"github.com/belonio2793/backlinkoo/backend/internal/config"
)

// Matcher evaluates niche rule sets against text.
type Matcher struct {
	sets []config.NicheSet
}

func NewMatcher(sets []config.NicheSet) *Matcher {
	return &Matcher{sets: sets}
}

// InferNiche returns the niche whose rules hit the given signals most often,
// plus a 0-100 relevance estimate for that niche. Empty niche when nothing
// matches. Signals are typically page text, the URL and any declared topics.
func (m *Matcher) InferNiche(signals ...string) (string, float64) {
	bestNiche := ""
	bestHits := 0
	bestRules := 0
	haystack := strings.ToLower(strings.Join(signals, " "))

	for _, set := range m.sets {
		hits := countHits(set.Rules, haystack)
		if hits > bestHits {
			bestHits = hits
			bestNiche = set.Niche
			bestRules = len(set.Rules)
		}
	}
	if bestHits == 0 {
		return "", 0
	}
	return bestNiche, relevanceScore(bestHits, bestRules)
}

// RelevanceFor scores how strongly the signals match one specific niche,
// 0-100. Unknown niches score zero.
func (m *Matcher) RelevanceFor(niche string, signals ...string) float64 {
	haystack := strings.ToLower(strings.Join(signals, " "))
	for _, set := range m.sets {
		if !strings.EqualFold(set.Niche, niche) {
			continue
		}
		hits := countHits(set.Rules, haystack)
		if hits == 0 {
			return 0
		}
		return relevanceScore(hits, len(set.Rules))
	}
	return 0
}

// TopicsOverlap reports whether any declared target topic names the campaign
// niche directly, in either direction of containment.
func TopicsOverlap(topics []string, niche string) bool {
	lowerNiche := strings.ToLower(strings.TrimSpace(niche))
	if lowerNiche == "" {
		return false
	}
	for _, topic := range topics {
		lowerTopic := strings.ToLower(strings.TrimSpace(topic))
		if lowerTopic == "" {
			continue
		}
		if strings.Contains(lowerTopic, lowerNiche) || strings.Contains(lowerNiche, lowerTopic) {
			return true
		}
	}
	return false
}

// Niches lists the configured niche names in configuration order.
func (m *Matcher) Niches() []string {
	names := make([]string, 0, len(m.sets))
	for _, set := range m.sets {
		names = append(names, set.Niche)
	}
	return names
}

func countHits(rules []config.NicheRule, haystack string) int {
	hits := 0
	for _, rule := range rules {
		switch strings.ToLower(rule.Type) {
		case "regex":
			if rule.CompiledRegex != nil && rule.CompiledRegex.MatchString(haystack) {
				hits++
			}
		default:
			pattern := rule.Pattern
			subject := haystack
			if !rule.CaseSensitive {
				pattern = strings.ToLower(pattern)
			}
			if strings.Contains(subject, pattern) {
				hits++
			}
		}
	}
	return hits
}

// relevanceScore converts a hit count into a bounded 0-100 estimate. Matching
// half of a niche's rules already counts as full relevance.
func relevanceScore(hits, totalRules int) float64 {
	if totalRules == 0 {
		return 0
	}
	score := float64(hits) / (float64(totalRules) / 2) * 100
	if score > 100 {
		score = 100
	}
	return score
}
