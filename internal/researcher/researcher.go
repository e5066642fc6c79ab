// File: backend/internal/researcher/researcher.go

// Package researcher gathers the personalization snapshot for a prospect's
// venue: site title, recent posts, content topics and posting cadence.
package researcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/belonio2793/backlinkoo/backend/internal/config"
	"github.com/belonio2793/backlinkoo/backend/internal/outreach"
	"github.com/belonio2793/backlinkoo/backend/internal/relevance"
	"github.com/belonio2793/backlinkoo/backend/internal/verifier"
	"github.com/mmcdole/gofeed"
)

// ErrResearchIncomplete marks a research attempt that gathered too little to
// personalize an email. The prospect stays at researching and is retried.
var ErrResearchIncomplete = errors.New("research incomplete")

const maxRecentPosts = 5

// HTTPResearcher fetches the venue's homepage and, when one is advertised,
// its feed. It implements the outreach scheduler's Researcher contract.
type HTTPResearcher struct {
	fetcher    verifier.Fetcher
	feedParser *gofeed.Parser
	matcher    *relevance.Matcher
	now        func() time.Time
}

func New(cfg config.VerifierConfig, matcher *relevance.Matcher) *HTTPResearcher {
	parser := gofeed.NewParser()
	if len(cfg.UserAgents) > 0 {
		parser.UserAgent = cfg.UserAgents[0]
	}
	return &HTTPResearcher{
		fetcher:    verifier.NewFetcher(cfg),
		feedParser: parser,
		matcher:    matcher,
		now:        time.Now,
	}
}

// WithFetcher swaps the page fetcher. Used by tests.
func (r *HTTPResearcher) WithFetcher(f verifier.Fetcher) *HTTPResearcher {
	r.fetcher = f
	return r
}

// WithClock swaps the time source.
func (r *HTTPResearcher) WithClock(now func() time.Time) *HTTPResearcher {
	r.now = now
	return r
}

// Research builds the personalization snapshot for one prospect. A snapshot
// needs at least a site title or one recent post; anything less is
// ErrResearchIncomplete.
func (r *HTTPResearcher) Research(ctx context.Context, p *outreach.Prospect) (*outreach.ProspectResearch, error) {
	page, err := r.fetcher.Fetch(ctx, p.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: homepage fetch failed: %v", ErrResearchIncomplete, err)
	}
	if page.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: homepage answered HTTP %d", ErrResearchIncomplete, page.StatusCode)
	}

	facts := verifier.AnalyzePage(page.Body, page.FinalURL, page.StatusCode)

	snapshot := &outreach.ProspectResearch{
		SiteTitle:         strings.TrimSpace(facts.Title),
		AcceptsGuestPosts: facts.GuidelinesFound || facts.GuestPostPageURL != "",
		CompletedAt:       r.now().UTC(),
	}

	if niche, score := r.matcher.InferNiche(facts.Title, facts.TextContent); niche != "" && score > 0 {
		snapshot.ContentTopics = append(snapshot.ContentTopics, niche)
	}

	if facts.FeedURL != "" {
		posts, frequency := r.readFeed(ctx, facts.FeedURL)
		snapshot.RecentPosts = posts
		snapshot.PostingFrequency = frequency
	}

	snapshot.PersonalizationFacts = buildFacts(snapshot)

	if snapshot.SiteTitle == "" && len(snapshot.RecentPosts) == 0 {
		return nil, fmt.Errorf("%w: no usable facts for '%s'", ErrResearchIncomplete, p.URL)
	}
	return snapshot, nil
}

// readFeed pulls the most recent entries and derives a posting cadence from
// the spacing between them. Feed failures degrade to an empty result; the
// homepage facts alone may still carry the snapshot.
func (r *HTTPResearcher) readFeed(ctx context.Context, feedURL string) ([]outreach.PostSummary, string) {
	feed, err := r.feedParser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		log.Printf("Researcher: Feed parse failed for '%s': %v", feedURL, err)
		return nil, ""
	}

	items := feed.Items
	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := itemTime(items[i]), itemTime(items[j])
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	if len(items) > maxRecentPosts {
		items = items[:maxRecentPosts]
	}

	posts := make([]outreach.PostSummary, 0, len(items))
	for _, item := range items {
		posts = append(posts, outreach.PostSummary{
			Title:       strings.TrimSpace(item.Title),
			URL:         item.Link,
			PublishedAt: itemTime(item),
		})
	}
	return posts, postingFrequency(posts)
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

// postingFrequency buckets the average gap between dated posts.
func postingFrequency(posts []outreach.PostSummary) string {
	var dated []time.Time
	for _, p := range posts {
		if p.PublishedAt != nil {
			dated = append(dated, *p.PublishedAt)
		}
	}
	if len(dated) < 2 {
		return ""
	}
	span := dated[0].Sub(dated[len(dated)-1])
	avgGap := span / time.Duration(len(dated)-1)
	switch {
	case avgGap <= 36*time.Hour:
		return "daily"
	case avgGap <= 10*24*time.Hour:
		return "weekly"
	case avgGap <= 45*24*time.Hour:
		return "monthly"
	default:
		return "occasional"
	}
}

func buildFacts(s *outreach.ProspectResearch) []string {
	var facts []string
	if s.SiteTitle != "" {
		facts = append(facts, "Site title: "+s.SiteTitle)
	}
	if len(s.RecentPosts) > 0 {
		facts = append(facts, "Recent post: "+s.RecentPosts[0].Title)
	}
	if s.PostingFrequency != "" {
		facts = append(facts, "Publishes "+s.PostingFrequency)
	}
	if s.AcceptsGuestPosts {
		facts = append(facts, "Advertises contribution guidelines")
	}
	if len(s.ContentTopics) > 0 {
		facts = append(facts, "Covers "+strings.Join(s.ContentTopics, ", "))
	}
	return facts
}
