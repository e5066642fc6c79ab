// File: backend/internal/registry/registry.go

// Package registry owns the Target lifecycle: intake with verification and
// scoring, search, campaign ranking, batch re-validation and submission
// performance tracking.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/belonio2793/backlinkoo/backend/internal/config"
	"github.com/belonio2793/backlinkoo/backend/internal/relevance"
	"github.com/belonio2793/backlinkoo/backend/internal/scoring"
	"github.com/belonio2793/backlinkoo/backend/internal/targets"
	"github.com/belonio2793/backlinkoo/backend/internal/verifier"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ErrIneligibleTarget is returned by AddTarget when verification shows neither
// a submission form nor contact information. Nothing is persisted.
var ErrIneligibleTarget = errors.New("target has no accessible submission method")

// Prober is the verification collaborator. Production wiring uses
// *verifier.Verifier; tests inject fakes.
type Prober interface {
	Verify(ctx context.Context, rawURL string) (targets.Verification, *verifier.PageFacts)
	ProbeAlive(ctx context.Context, rawURL string) (bool, error)
}

// Registry coordinates verification, scoring and persistence of Targets.
type Registry struct {
	store       targets.Store
	prober      Prober
	scorer      scoring.Scorer
	matcher     *relevance.Matcher
	verifierCfg config.VerifierConfig
	schedCfg    config.SchedulerConfig
	limiter     *rate.Limiter
	now         func() time.Time
}

func New(store targets.Store, prober Prober, scorer scoring.Scorer, matcher *relevance.Matcher, verifierCfg config.VerifierConfig, schedCfg config.SchedulerConfig) *Registry {
	rps := verifierCfg.RateLimitRPS
	if rps <= 0 {
		rps = 5
	}
	burst := verifierCfg.RateLimitBurst
	if burst <= 0 {
		burst = int(rps)
	}
	return &Registry{
		store:       store,
		prober:      prober,
		scorer:      scorer,
		matcher:     matcher,
		verifierCfg: verifierCfg,
		schedCfg:    schedCfg,
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		now:         time.Now,
	}
}

// WithClock swaps the time source.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// AddTarget verifies a URL and, if it clears the eligibility bar, scores it
// and persists the resulting Target. Re-adding a tracked URL returns the
// existing Target unchanged.
func (r *Registry) AddTarget(ctx context.Context, rawURL string, declaredTopics []string) (*targets.Target, error) {
	normalized, domain, err := normalizeURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL '%s': %w", rawURL, err)
	}

	if existing, err := r.store.GetTargetByURL(normalized); err == nil {
		log.Printf("Registry: URL '%s' already tracked as target %s", normalized, existing.ID)
		return existing, nil
	} else if !errors.Is(err, targets.ErrNotFound) {
		return nil, err
	}

	verification, facts := r.prober.Verify(ctx, normalized)
	if !verification.SubmissionFormExists && !verification.ContactInformationAvailable {
		log.Printf("Registry: Target '%s' rejected, no accessible submission method.", normalized)
		return nil, fmt.Errorf("%w: %s", ErrIneligibleTarget, normalized)
	}

	quality := r.scorer.Score(ctx, normalized, facts)
	niche, nicheScore := r.inferNiche(facts, domain, declaredTopics)
	quality.NicheRelevance = int(nicheScore)

	status := targets.StatusVerificationFailed
	if verification.Status == targets.VerificationVerified {
		status = targets.StatusVerified
	}

	now := r.now().UTC()
	target := &targets.Target{
		ID:               uuid.NewString(),
		URL:              normalized,
		Domain:           domain,
		Type:             inferType(domain, facts, verification),
		Status:           status,
		Verification:     verification,
		Quality:          quality,
		Capabilities:     capabilitiesFrom(facts, verification),
		Metadata:         metadataFrom(facts, niche, declaredTopics),
		Performance:      targets.PerformanceHistory{LastUpdate: now},
		CreatedAt:        now,
		LastVerified:     now,
		NextVerification: now.Add(r.schedCfg.RevalidationMaxAge),
	}

	if err := r.store.CreateTarget(target); err != nil {
		return nil, fmt.Errorf("failed to persist target for '%s': %w", normalized, err)
	}
	log.Printf("Registry: Added target %s (%s) type=%s status=%s DA=%d", target.ID, domain, target.Type, target.Status, quality.DomainAuthority)
	return target, nil
}

// GetTarget retrieves one Target by id.
func (r *Registry) GetTarget(id string) (*targets.Target, error) {
	return r.store.GetTarget(id)
}

// Search returns verified Targets matching the criteria, ordered by
// descending domain authority.
func (r *Registry) Search(criteria targets.SearchCriteria) ([]*targets.Target, error) {
	verified, err := r.store.ListTargets(targets.StatusVerified)
	if err != nil {
		return nil, err
	}

	matched := make([]*targets.Target, 0, len(verified))
	for _, t := range verified {
		if !matchesCriteria(t, criteria) {
			continue
		}
		matched = append(matched, t)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Quality.DomainAuthority > matched[j].Quality.DomainAuthority
	})

	if criteria.Limit > 0 && len(matched) > criteria.Limit {
		matched = matched[:criteria.Limit]
	}
	return matched, nil
}

// RankForCampaign infers a niche from the campaign's keywords and destination
// URL, applies a relaxed relevance filter (authority >= 30, spam <= 30) and
// returns the survivors ordered by descending weighted score. The ordering is
// stable: equal scores keep creation order.
func (r *Registry) RankForCampaign(destinationURL string, keywords []string, limit int) ([]targets.RankedTarget, error) {
	niche, _ := r.matcher.InferNiche(append([]string{destinationURL}, keywords...)...)

	verified, err := r.store.ListTargets(targets.StatusVerified)
	if err != nil {
		return nil, err
	}

	ranked := make([]targets.RankedTarget, 0, len(verified))
	for _, t := range verified {
		if t.Quality.DomainAuthority < 30 || t.Quality.SpamScore > 30 {
			continue
		}
		ranked = append(ranked, targets.RankedTarget{
			Target: t,
			Score:  r.campaignScore(t, niche),
			Niche:  niche,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Target.CreatedAt.Before(ranked[j].Target.CreatedAt)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// campaignScore is the weighted ranking function. Weights: domain authority
// 30, topic relevance 25, historical success rate 20, link juice 15,
// automation support 10.
func (r *Registry) campaignScore(t *targets.Target, niche string) float64 {
	score := float64(t.Quality.DomainAuthority) / 100 * 30

	if relevance.TopicsOverlap(t.Metadata.Topics, niche) {
		score += 25
	} else {
		score += float64(t.Quality.NicheRelevance) / 100 * 25
	}

	score += t.Verification.SubmissionSuccessRate / 100 * 20
	score += float64(t.Quality.LinkJuiceValue) / 100 * 15

	switch {
	case t.Capabilities.SupportsDirectSubmission:
		score += 10
	case t.Capabilities.AcceptsGuestPosts:
		score += 5
	}
	return score
}

// Validate re-checks liveness of the given Targets, or of every verified
// Target whose lastVerified is older than the re-validation age when ids is
// empty. Each Target transitions independently; one failure never aborts the
// batch.
func (r *Registry) Validate(ctx context.Context, ids []string) (targets.ValidationOutcome, error) {
	batch, err := r.validationBatch(ids)
	if err != nil {
		return targets.ValidationOutcome{}, err
	}

	outcome := targets.ValidationOutcome{Valid: []string{}, Invalid: []string{}}
	if len(batch) == 0 {
		return outcome, nil
	}

	maxConcurrent := r.verifierCfg.MaxConcurrentGoroutines
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	sem := make(chan struct{}, maxConcurrent)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, t := range batch {
		select {
		case <-ctx.Done():
			mu.Lock()
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", t.ID, ctx.Err()))
			mu.Unlock()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(t *targets.Target) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := r.limiter.Wait(ctx); err != nil {
				mu.Lock()
				outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", t.ID, err))
				mu.Unlock()
				return
			}

			itemTimeout := r.verifierCfg.RequestTimeout
			if itemTimeout <= 0 {
				itemTimeout = 30 * time.Second
			}
			itemCtx, cancel := context.WithTimeout(ctx, itemTimeout)
			alive, probeErr := r.prober.ProbeAlive(itemCtx, t.URL)
			cancel()

			mu.Lock()
			defer mu.Unlock()
			if probeErr != nil {
				outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", t.ID, probeErr))
				return
			}

			now := r.now().UTC()
			if alive {
				if err := r.store.SetTargetStatus(t.ID, targets.StatusVerified, now, now.Add(r.schedCfg.RevalidationMaxAge)); err != nil {
					outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", t.ID, err))
					return
				}
				outcome.Valid = append(outcome.Valid, t.ID)
			} else {
				if err := r.store.SetTargetStatus(t.ID, targets.StatusTemporarilyUnavail, t.LastVerified, now.Add(r.schedCfg.RevalidationInterval)); err != nil {
					outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %v", t.ID, err))
					return
				}
				log.Printf("Registry: Target %s (%s) failed re-validation, marked temporarily unavailable.", t.ID, t.Domain)
				outcome.Invalid = append(outcome.Invalid, t.ID)
			}
		}(t)
	}

	wg.Wait()
	return outcome, nil
}

func (r *Registry) validationBatch(ids []string) ([]*targets.Target, error) {
	if len(ids) == 0 {
		cutoff := r.now().UTC().Add(-r.schedCfg.RevalidationMaxAge)
		return r.store.ListStaleTargets(cutoff)
	}
	batch := make([]*targets.Target, 0, len(ids))
	for _, id := range ids {
		t, err := r.store.GetTarget(id)
		if err != nil {
			return nil, fmt.Errorf("validation batch member %s: %w", id, err)
		}
		batch = append(batch, t)
	}
	return batch, nil
}

// RecordSubmission persists a new submission attempt against a Target and
// bumps its performance counters.
func (r *Registry) RecordSubmission(targetID, campaignID string, payload targets.SubmissionPayload, level targets.AutomationLevel) (*targets.SubmissionAttempt, error) {
	if _, err := r.store.GetTarget(targetID); err != nil {
		return nil, err
	}

	attempt := &targets.SubmissionAttempt{
		ID:              uuid.NewString(),
		TargetID:        targetID,
		CampaignID:      campaignID,
		Payload:         payload,
		Status:          targets.SubmissionSubmitted,
		SubmittedAt:     r.now().UTC(),
		AutomationLevel: level,
	}
	if err := r.store.CreateSubmission(attempt); err != nil {
		return nil, err
	}

	delta := targets.PerformanceDelta{TotalSubmissions: 1, PendingSubmissions: 1}
	if err := r.store.ApplyPerformanceDelta(targetID, delta); err != nil {
		return nil, err
	}
	return attempt, r.refreshSuccessRate(targetID)
}

// ResolveSubmission moves an attempt to a terminal status and settles the
// Target's performance counters.
func (r *Registry) ResolveSubmission(submissionID string, status targets.SubmissionStatus, publishedURL, rejectionReason string) (*targets.SubmissionAttempt, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("status '%s' is not a terminal submission status", status)
	}
	attempt, err := r.store.GetSubmission(submissionID)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	attempt.Status = status
	attempt.RespondedAt = &now
	switch status {
	case targets.SubmissionApproved, targets.SubmissionPublished:
		attempt.PublishedAt = &now
		attempt.PublishedURL = publishedURL
	case targets.SubmissionRejected, targets.SubmissionFailed:
		attempt.RejectionReason = rejectionReason
	}
	if err := r.store.UpdateSubmission(attempt); err != nil {
		return nil, err
	}

	delta := targets.PerformanceDelta{PendingSubmissions: -1}
	switch status {
	case targets.SubmissionApproved, targets.SubmissionPublished:
		delta.SuccessfulSubmissions = 1
	case targets.SubmissionRejected, targets.SubmissionFailed:
		delta.RejectedSubmissions = 1
	}
	if err := r.store.ApplyPerformanceDelta(attempt.TargetID, delta); err != nil {
		return nil, err
	}
	return attempt, r.refreshSuccessRate(attempt.TargetID)
}

// refreshSuccessRate recomputes the verification success-rate estimate from
// recorded performance once real history exists.
func (r *Registry) refreshSuccessRate(targetID string) error {
	t, err := r.store.GetTarget(targetID)
	if err != nil {
		return err
	}
	settled := t.Performance.SuccessfulSubmissions + t.Performance.RejectedSubmissions
	if settled == 0 {
		return nil
	}
	t.Verification.SubmissionSuccessRate = float64(t.Performance.SuccessfulSubmissions) / float64(settled) * 100
	now := r.now().UTC()
	t.Verification.LastSubmissionAttempt = &now
	if t.Performance.SuccessfulSubmissions > 0 {
		t.Verification.LastSuccessfulSubmission = &now
	}
	return r.store.UpdateTarget(t)
}

// Analytics aggregates registry-wide statistics.
func (r *Registry) Analytics() (*targets.Analytics, error) {
	all, err := r.store.ListTargets("")
	if err != nil {
		return nil, err
	}

	analytics := &targets.Analytics{
		TotalTargets:     len(all),
		TypeDistribution: map[targets.TargetType]int{},
		TopPerformers:    []*targets.Target{},
	}
	if len(all) == 0 {
		return analytics, nil
	}

	var sumRate, sumDA, sumTraffic, sumSpam float64
	performers := make([]*targets.Target, 0, len(all))
	for _, t := range all {
		analytics.TypeDistribution[t.Type]++
		switch t.Status {
		case targets.StatusVerified:
			analytics.VerifiedTargets++
		case targets.StatusVerificationFailed:
			analytics.FailedVerifications++
		}
		sumRate += t.Verification.SubmissionSuccessRate
		sumDA += float64(t.Quality.DomainAuthority)
		sumTraffic += float64(t.Quality.TrafficEstimate)
		sumSpam += float64(t.Quality.SpamScore)
		if t.Performance.SuccessfulSubmissions > 0 {
			performers = append(performers, t)
		}
	}

	total := float64(len(all))
	analytics.AvgSuccessRate = sumRate / total
	analytics.AvgDomainAuthority = sumDA / total
	analytics.AvgTraffic = sumTraffic / total
	analytics.AvgSpamScore = sumSpam / total

	sort.SliceStable(performers, func(i, j int) bool {
		return performers[i].Performance.SuccessfulSubmissions > performers[j].Performance.SuccessfulSubmissions
	})
	if len(performers) > 10 {
		performers = performers[:10]
	}
	analytics.TopPerformers = performers
	return analytics, nil
}

func (r *Registry) inferNiche(facts *verifier.PageFacts, domain string, declaredTopics []string) (string, float64) {
	signals := []string{domain, strings.Join(declaredTopics, " ")}
	if facts != nil {
		signals = append(signals, facts.Title, facts.TextContent)
	}
	return r.matcher.InferNiche(signals...)
}

func matchesCriteria(t *targets.Target, c targets.SearchCriteria) bool {
	if len(c.Types) > 0 {
		found := false
		for _, typ := range c.Types {
			if t.Type == typ {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.MinDomainAuthority > 0 && t.Quality.DomainAuthority < c.MinDomainAuthority {
		return false
	}
	if c.MinTraffic > 0 && t.Quality.TrafficEstimate < c.MinTraffic {
		return false
	}
	if c.MaxSpamScore > 0 && t.Quality.SpamScore > c.MaxSpamScore {
		return false
	}
	if len(c.Topics) > 0 {
		overlap := false
		for _, topic := range c.Topics {
			if relevance.TopicsOverlap(t.Metadata.Topics, topic) {
				overlap = true
				break
			}
		}
		if !overlap {
			return false
		}
	}
	return true
}

// inferType classifies a venue from its domain and structural facts.
func inferType(domain string, facts *verifier.PageFacts, verification targets.Verification) targets.TargetType {
	lower := strings.ToLower(domain)
	switch {
	case containsAny(lower, "medium.com", "dev.to", "hashnode", "substack", "wordpress.com", "blogspot", "tumblr"):
		return targets.TypeWeb2Platform
	case containsAny(lower, "reddit", "forum", "community", "discuss"):
		return targets.TypeForumCommunity
	case containsAny(lower, "directory", "listing", "catalog"):
		return targets.TypeDirectoryListing
	case verification.SubmissionGuidelinesFound || (facts != nil && facts.GuestPostPageURL != ""):
		return targets.TypeGuestPostPlatform
	case verification.SubmissionFormExists:
		return targets.TypeBlogCommentSite
	default:
		return targets.TypeIndustryBlog
	}
}

func capabilitiesFrom(facts *verifier.PageFacts, verification targets.Verification) targets.SubmissionCaps {
	caps := targets.SubmissionCaps{
		AcceptsGuestPosts:        verification.SubmissionGuidelinesFound,
		AllowsComments:           verification.SubmissionFormExists,
		RequiresApproval:         true,
		SupportsDirectSubmission: verification.SubmissionFormExists,
		HasContentGuidelines:     verification.SubmissionGuidelinesFound,
		AcceptsBacklinks:         true,
	}
	if facts != nil && facts.GuestPostPageURL != "" {
		caps.AcceptsGuestPosts = true
		caps.ContentTypes = []string{"guest_post"}
		caps.LinkPlacementOptions = []string{"author_bio", "contextual"}
	} else if verification.SubmissionFormExists {
		caps.LinkPlacementOptions = []string{"contextual"}
	}
	return caps
}

func metadataFrom(facts *verifier.PageFacts, niche string, declaredTopics []string) targets.TargetMetadata {
	meta := targets.TargetMetadata{Topics: declaredTopics}
	if niche != "" && !relevance.TopicsOverlap(declaredTopics, niche) {
		meta.Topics = append(meta.Topics, niche)
	}
	if facts == nil {
		return meta
	}
	meta.ContactEmail = facts.ContactEmail
	meta.GuidelinesURL = facts.GuidelinesURL
	meta.FeedURL = facts.FeedURL
	if facts.GuestPostPageURL != "" {
		meta.SubmissionPage = facts.GuestPostPageURL
	} else {
		meta.SubmissionPage = facts.FinalURL
	}
	return meta
}

func normalizeURL(rawURL string) (normalized, domain string, err error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", "", errors.New("empty URL")
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", "", err
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", "", errors.New("URL has no host")
	}
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	cleaned := strings.TrimSuffix(parsed.String(), "/")
	return cleaned, strings.TrimPrefix(host, "www."), nil
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
