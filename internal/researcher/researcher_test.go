// File: backend/internal/researcher/researcher_test.go
package researcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/belonio2793/backlinkoo/backend/internal/config"
	"github.com/belonio2793/backlinkoo/backend/internal/outreach"
	"github.com/belonio2793/backlinkoo/backend/internal/relevance"
	"github.com/belonio2793/backlinkoo/backend/internal/verifier"
)

type fakeFetch struct {
	pages map[string]*verifier.FetchResult
	errs  map[string]error
}

func (f *fakeFetch) Fetch(_ context.Context, rawURL string) (*verifier.FetchResult, error) {
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	page, ok := f.pages[rawURL]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return page, nil
}

func newResearcherFixture() (*HTTPResearcher, *fakeFetch) {
	fetch := &fakeFetch{pages: map[string]*verifier.FetchResult{}, errs: map[string]error{}}
	r := New(config.VerifierConfig{}, relevance.NewMatcher(config.DefaultNicheSets())).
		WithFetcher(fetch).
		WithClock(func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) })
	return r, fetch
}

func TestResearchBuildsSnapshot(t *testing.T) {
	r, fetch := newResearcherFixture()
	fetch.pages["https://techblog.example.org"] = &verifier.FetchResult{
		Body: []byte(`<html><head><title>Example Tech Blog</title></head>
<body><h1>Write for us</h1><p>Articles about software development and programming.</p></body></html>`),
		FinalURL:   "https://techblog.example.org",
		StatusCode: 200,
	}

	snapshot, err := r.Research(context.Background(), &outreach.Prospect{
		ID:  "pros-1",
		URL: "https://techblog.example.org",
	})
	require.NoError(t, err)

	assert.Equal(t, "Example Tech Blog", snapshot.SiteTitle)
	assert.True(t, snapshot.AcceptsGuestPosts)
	assert.Contains(t, snapshot.ContentTopics, "technology")
	assert.Contains(t, snapshot.PersonalizationFacts, "Site title: Example Tech Blog")
	assert.Contains(t, snapshot.PersonalizationFacts, "Advertises contribution guidelines")
	assert.Equal(t, time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), snapshot.CompletedAt)
}

func TestResearchIncompleteWhenNothingUsable(t *testing.T) {
	r, fetch := newResearcherFixture()
	fetch.pages["https://empty.example.org"] = &verifier.FetchResult{
		Body:       []byte(`<html><body></body></html>`),
		FinalURL:   "https://empty.example.org",
		StatusCode: 200,
	}

	_, err := r.Research(context.Background(), &outreach.Prospect{URL: "https://empty.example.org"})
	assert.ErrorIs(t, err, ErrResearchIncomplete)
}

func TestResearchIncompleteOnFetchFailure(t *testing.T) {
	r, fetch := newResearcherFixture()
	fetch.errs["https://down.example.org"] = errors.New("timeout")

	_, err := r.Research(context.Background(), &outreach.Prospect{URL: "https://down.example.org"})
	assert.ErrorIs(t, err, ErrResearchIncomplete)
}

func TestResearchIncompleteOnErrorStatus(t *testing.T) {
	r, fetch := newResearcherFixture()
	fetch.pages["https://gone.example.org"] = &verifier.FetchResult{
		Body:       []byte("gone"),
		FinalURL:   "https://gone.example.org",
		StatusCode: 410,
	}

	_, err := r.Research(context.Background(), &outreach.Prospect{URL: "https://gone.example.org"})
	assert.ErrorIs(t, err, ErrResearchIncomplete)
}

func TestPostingFrequencyBuckets(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	mk := func(gaps ...time.Duration) []outreach.PostSummary {
		posts := make([]outreach.PostSummary, 0, len(gaps)+1)
		at := base
		posts = append(posts, outreach.PostSummary{Title: "p0", PublishedAt: &at})
		for i, gap := range gaps {
			next := posts[i].PublishedAt.Add(-gap)
			posts = append(posts, outreach.PostSummary{Title: "p", PublishedAt: &next})
		}
		return posts
	}

	assert.Equal(t, "daily", postingFrequency(mk(24*time.Hour, 24*time.Hour)))
	assert.Equal(t, "weekly", postingFrequency(mk(7*24*time.Hour, 6*24*time.Hour)))
	assert.Equal(t, "monthly", postingFrequency(mk(30*24*time.Hour)))
	assert.Equal(t, "occasional", postingFrequency(mk(90*24*time.Hour)))
	assert.Empty(t, postingFrequency(mk()))
	assert.Empty(t, postingFrequency(nil))
}
