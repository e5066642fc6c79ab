// File: backend/internal/verifier/verifier.go
package verifier

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/belonio2793/backlinkoo/backend/internal/config"
	"github.com/belonio2793/backlinkoo/backend/internal/dnscheck"
	"github.com/belonio2793/backlinkoo/backend/internal/targets"
	"golang.org/x/net/html/charset"
)

// LivenessChecker is the DNS collaborator consulted before any HTTP probe.
type LivenessChecker interface {
	Check(ctx context.Context, domain string) dnscheck.Result
}

// Fetcher retrieves one URL. Pluggable so tests can inject canned pages.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*FetchResult, error)
}

// FetchResult is a decoded page body plus transport facts.
type FetchResult struct {
	Body       []byte
	FinalURL   string
	StatusCode int
	Headers    http.Header
}

// Verifier decides whether a URL can realistically accept a submission and
// extracts the structural facts behind the verdict. Probe failures are a
// legitimate outcome (a failed record), never an error past this boundary.
type Verifier struct {
	cfg     config.VerifierConfig
	fetcher Fetcher
	dns     LivenessChecker
	now     func() time.Time
}

func New(cfg config.VerifierConfig, dns LivenessChecker) *Verifier {
	return &Verifier{
		cfg:     cfg,
		fetcher: NewFetcher(cfg),
		dns:     dns,
		now:     time.Now,
	}
}

// WithFetcher swaps the HTTP fetcher. Used by tests to inject canned pages.
func (v *Verifier) WithFetcher(f Fetcher) *Verifier {
	v.fetcher = f
	return v
}

// WithClock swaps the time source.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify performs the bounded structural checks against a URL and returns the
// verification record plus the raw page facts. A dead domain, unreachable
// server or parse failure yields a failed record with zero estimates.
func (v *Verifier) Verify(ctx context.Context, rawURL string) (targets.Verification, *PageFacts) {
	verifiedAt := v.now().UTC()

	domain, err := hostOf(rawURL)
	if err != nil {
		log.Printf("Verifier: Invalid URL '%s': %v", rawURL, err)
		return failedVerification(verifiedAt, "invalid URL"), nil
	}

	if live := v.dns.Check(ctx, domain); live.Status != dnscheck.StatusResolved {
		log.Printf("Verifier: Domain '%s' did not resolve (%s), marking verification failed.", domain, live.Status)
		return failedVerification(verifiedAt, "domain does not resolve"), nil
	}

	page, err := v.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		log.Printf("Verifier: Fetch failed for '%s': %v", rawURL, err)
		return failedVerification(verifiedAt, "fetch failed"), nil
	}
	if page.StatusCode >= 400 {
		log.Printf("Verifier: '%s' answered HTTP %d, marking verification failed.", rawURL, page.StatusCode)
		return failedVerification(verifiedAt, fmt.Sprintf("HTTP %d", page.StatusCode)), nil
	}

	facts := AnalyzePage(page.Body, page.FinalURL, page.StatusCode)
	v.recordAntiBot(page.Headers, facts)

	// One bounded secondary probe for a dedicated guest-post page when the
	// landing page showed no guideline cues.
	if !facts.GuidelinesFound {
		if guestURL := v.probeGuestPostPage(ctx, page.FinalURL); guestURL != "" {
			facts.GuidelinesFound = true
			facts.GuestPostPageURL = guestURL
			if facts.GuidelinesURL == "" {
				facts.GuidelinesURL = guestURL
			}
		}
	}

	contactAvailable := facts.HasContactForm || facts.HasMailtoLink
	formExists := facts.HasContactForm || facts.GuestPostPageURL != ""

	status := targets.VerificationFailed
	if formExists || contactAvailable {
		status = targets.VerificationVerified
	}

	record := targets.Verification{
		Status:                      status,
		VerifiedAt:                  verifiedAt,
		VerificationMethod:          "automated",
		SubmissionFormExists:        formExists,
		SubmissionGuidelinesFound:   facts.GuidelinesFound,
		ContactInformationAvailable: contactAvailable,
		ResponseTimeEstimateHours:   estimateResponseHours(facts),
		SubmissionSuccessRate:       estimateSuccessRate(facts),
		Details: targets.VerificationDetails{
			FormFields:        facts.FormFields,
			SubmissionProcess: classifySubmissionProcess(facts),
			Requirements:      ExtractRequirements(facts.TextContent),
			Restrictions:      restrictionsWithAntiBot(facts),
			Guidelines:        facts.GuidelinesText,
		},
	}
	return record, facts
}

// ProbeAlive answers the cheap re-validation question: does the URL still
// resolve and answer with a non-error status.
func (v *Verifier) ProbeAlive(ctx context.Context, rawURL string) (bool, error) {
	domain, err := hostOf(rawURL)
	if err != nil {
		return false, err
	}
	if live := v.dns.Check(ctx, domain); live.Status != dnscheck.StatusResolved {
		return false, nil
	}
	page, err := v.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return false, nil
	}
	return page.StatusCode < 400, nil
}

func (v *Verifier) probeGuestPostPage(ctx context.Context, baseURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	root := base.Scheme + "://" + base.Host
	for _, path := range v.cfg.ProbeGuestPostPaths {
		select {
		case <-ctx.Done():
			return ""
		default:
		}
		probeURL := root + path
		page, err := v.fetcher.Fetch(ctx, probeURL)
		if err != nil || page.StatusCode >= 400 {
			continue
		}
		return page.FinalURL
	}
	return ""
}

func (v *Verifier) recordAntiBot(headers http.Header, facts *PageFacts) {
	if headers == nil {
		return
	}
	for _, s := range headers.Values("Server") {
		lower := strings.ToLower(s)
		if strings.Contains(lower, "cloudflare") {
			facts.AntiBotIndicators["Cloudflare_Server"] = s
		}
		if strings.Contains(lower, "akamaighost") {
			facts.AntiBotIndicators["Akamai_Server"] = s
		}
	}
}

// classifySubmissionProcess maps structural facts onto the process taxonomy.
func classifySubmissionProcess(facts *PageFacts) string {
	switch {
	case facts.GuestPostPageURL != "":
		return "Guest post application"
	case facts.HasContactForm && facts.GuidelinesFound:
		return "Direct submission portal"
	case facts.HasContactForm:
		return "Contact form submission"
	case facts.HasMailtoLink:
		return "Email to editor"
	case facts.GuidelinesFound:
		return "Guest post application"
	default:
		return "unknown"
	}
}

// estimateResponseHours derives a response-time estimate from structural
// facts: venues with dedicated forms and guidelines answer faster.
func estimateResponseHours(facts *PageFacts) int {
	hours := 96
	if facts.HasContactForm {
		hours -= 24
	}
	if facts.GuidelinesFound {
		hours -= 24
	}
	if facts.FeedURL != "" {
		hours -= 12
	}
	if hours < 24 {
		hours = 24
	}
	return hours
}

// estimateSuccessRate derives a starting success-rate estimate from structural
// facts; it is refined later by actual performance history.
func estimateSuccessRate(facts *PageFacts) float64 {
	rate := 40.0
	if facts.HasContactForm {
		rate += 20
	}
	if facts.GuidelinesFound {
		rate += 15
	}
	if facts.GuestPostPageURL != "" {
		rate += 10
	}
	if len(facts.AntiBotIndicators) > 0 {
		rate -= 10
	}
	if rate < 0 {
		rate = 0
	}
	if rate > 95 {
		rate = 95
	}
	return rate
}

func restrictionsWithAntiBot(facts *PageFacts) []string {
	restrictions := ExtractRestrictions(facts.TextContent)
	for indicator := range facts.AntiBotIndicators {
		restrictions = append(restrictions, "Anti-bot protection detected: "+indicator)
	}
	return restrictions
}

func failedVerification(verifiedAt time.Time, reason string) targets.Verification {
	return targets.Verification{
		Status:             targets.VerificationFailed,
		VerifiedAt:         verifiedAt,
		VerificationMethod: "automated",
		Details: targets.VerificationDetails{
			FormFields:        []targets.FormField{},
			SubmissionProcess: "unknown",
			Requirements:      []string{},
			Restrictions:      []string{},
			Guidelines:        "Verification failed: " + reason,
		},
	}
}

func hostOf(rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Hostname() == "" {
		return "", fmt.Errorf("URL '%s' has no host", rawURL)
	}
	return parsed.Hostname(), nil
}

// httpFetcher is the production Fetcher: scheme fallback, bounded body read,
// content decoding and charset normalization.
type httpFetcher struct {
	cfg    config.VerifierConfig
	client *http.Client
	mu     sync.Mutex
	uaIdx  int
}

// NewFetcher builds the production HTTP Fetcher.
func NewFetcher(cfg config.VerifierConfig) Fetcher {
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 7
	}
	return &httpFetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

func (f *httpFetcher) nextUserAgent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.cfg.UserAgents) == 0 {
		return "Mozilla/5.0 (compatible; backlinkoo-verifier/1.0)"
	}
	ua := f.cfg.UserAgents[f.uaIdx%len(f.cfg.UserAgents)]
	f.uaIdx++
	return ua
}

func (f *httpFetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	var urlsToTry []string
	if strings.HasPrefix(rawURL, "https://") {
		urlsToTry = []string{rawURL, strings.Replace(rawURL, "https://", "http://", 1)}
	} else {
		urlsToTry = []string{strings.Replace(rawURL, "http://", "https://", 1), rawURL}
	}

	var lastErr error
	for _, attemptURL := range urlsToTry {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, attemptURL, nil)
		if err != nil {
			lastErr = fmt.Errorf("failed to create request for %s: %w", attemptURL, err)
			continue
		}
		req.Header.Set("User-Agent", f.nextUserAgent())
		for key, value := range f.cfg.DefaultHeaders {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		}

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request to %s failed: %w", attemptURL, err)
			continue
		}

		body, readErr := f.readBody(resp)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}
		return &FetchResult{
			Body:       body,
			FinalURL:   resp.Request.URL.String(),
			StatusCode: resp.StatusCode,
			Headers:    resp.Header,
		}, nil
	}
	return nil, lastErr
}

func (f *httpFetcher) readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader error: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	case "deflate":
		zlibReader, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("deflate reader error: %w", err)
		}
		defer zlibReader.Close()
		reader = zlibReader
	}

	maxBytes := f.cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2 * 1024 * 1024
	}
	raw, err := io.ReadAll(io.LimitReader(reader, maxBytes))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read body error: %w", err)
	}

	utf8Reader, convErr := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if convErr != nil {
		return raw, nil
	}
	utf8Bytes, readErr := io.ReadAll(utf8Reader)
	if readErr != nil {
		return raw, nil
	}
	return utf8Bytes, nil
}
