// File: backend/internal/scoring/scorer.go
package scoring

import (
	"context"
	"hash/fnv"
	"net/url"
	"strings"

	"github.com/belonio2793/backlinkoo/backend/internal/targets"
	"github.com/belonio2793/backlinkoo/backend/internal/verifier"
)

// Scorer produces quality metrics for a candidate target. Implementations
// must be deterministic for a given URL and page so repeated verification of
// an unchanged page yields identical metrics.
type Scorer interface {
	Score(ctx context.Context, rawURL string, page *verifier.PageFacts) targets.QualityMetrics
}

// HeuristicScorer derives metrics from structural page facts plus a stable
// per-domain hash used to spread otherwise-identical pages apart. It stands
// in for an external metrics provider behind the same interface.
type HeuristicScorer struct{}

func NewHeuristicScorer() *HeuristicScorer { return &HeuristicScorer{} }

func (s *HeuristicScorer) Score(_ context.Context, rawURL string, page *verifier.PageFacts) targets.QualityMetrics {
	domain := domainOf(rawURL)
	spread := domainSpread(domain) // 0..9, stable per domain

	if page == nil {
		return targets.QualityMetrics{
			DomainAuthority:     10 + spread,
			TrafficEstimate:     1000 * (1 + spread),
			NicheRelevance:      0,
			SpamScore:           50,
			LinkJuiceValue:      10,
			IndexingSpeedHours:  168,
			AvgResponseHours:    96,
			EditorResponseRate:  20,
			ContentStandardTier: "low",
		}
	}

	da := domainAuthority(page, spread)
	spam := spamScore(page)
	juice := linkJuice(page, da)

	tier := "medium"
	switch {
	case page.WordCount >= 1500 && page.GuidelinesFound:
		tier = "high"
	case page.WordCount < 300:
		tier = "low"
	}

	indexingHours := 96
	if page.FeedURL != "" {
		indexingHours = 48
	}
	if da >= 60 {
		indexingHours /= 2
	}

	responseRate := 30
	if page.HasContactForm {
		responseRate += 25
	}
	if page.GuidelinesFound {
		responseRate += 20
	}
	if responseRate > 95 {
		responseRate = 95
	}

	return targets.QualityMetrics{
		DomainAuthority:     da,
		TrafficEstimate:     estimateTraffic(da, spread),
		NicheRelevance:      0, // filled in by the relevance layer per niche
		SpamScore:           spam,
		LinkJuiceValue:      juice,
		IndexingSpeedHours:  indexingHours,
		AvgResponseHours:    avgResponseHours(page),
		EditorResponseRate:  responseRate,
		ContentStandardTier: tier,
	}
}

// domainAuthority approximates authority from content depth, link profile and
// transport. Bounded 0-100.
func domainAuthority(page *verifier.PageFacts, spread int) int {
	da := 15 + spread

	switch {
	case page.WordCount >= 2000:
		da += 25
	case page.WordCount >= 800:
		da += 18
	case page.WordCount >= 300:
		da += 10
	}

	if page.UsedTLS {
		da += 8
	}
	if page.FeedURL != "" {
		da += 7
	}
	if page.GuidelinesFound {
		da += 5
	}
	if page.InternalLinks >= 20 {
		da += 8
	} else if page.InternalLinks >= 5 {
		da += 4
	}

	if da > 100 {
		da = 100
	}
	if da < 0 {
		da = 0
	}
	return da
}

// spamScore rises with thin content and heavy outbound linking. Bounded 0-100.
func spamScore(page *verifier.PageFacts) int {
	spam := 10
	if page.WordCount < 200 {
		spam += 30
	}
	if page.ExternalLinks > 50 {
		spam += 25
	} else if page.ExternalLinks > 20 {
		spam += 10
	}
	if !page.UsedTLS {
		spam += 15
	}
	if page.WordCount > 0 && page.ExternalLinks > 0 {
		ratio := float64(page.ExternalLinks) / float64(page.WordCount)
		if ratio > 0.1 {
			spam += 20
		}
	}
	if spam > 100 {
		spam = 100
	}
	return spam
}

// linkJuice is authority discounted by outbound dilution. Bounded 0-100.
func linkJuice(page *verifier.PageFacts, da int) int {
	juice := da
	if page.ExternalLinks > 30 {
		juice -= 20
	} else if page.ExternalLinks > 10 {
		juice -= 10
	}
	if juice < 0 {
		juice = 0
	}
	return juice
}

func avgResponseHours(page *verifier.PageFacts) int {
	hours := 96
	if page.HasContactForm {
		hours -= 24
	}
	if page.GuidelinesFound {
		hours -= 24
	}
	if hours < 24 {
		hours = 24
	}
	return hours
}

func estimateTraffic(da int, spread int) int {
	return da*da*25 + spread*500
}

func domainSpread(domain string) int {
	h := fnv.New32a()
	h.Write([]byte(domain))
	return int(h.Sum32() % 10)
}

func domainOf(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}
