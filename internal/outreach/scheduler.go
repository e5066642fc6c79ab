// File: backend/internal/outreach/scheduler.go
package outreach

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/belonio2793/backlinkoo/backend/internal/config"
	"github.com/belonio2793/backlinkoo/backend/internal/templates"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Researcher gathers the personalization snapshot for a prospect. The
// concrete implementation lives in the researcher package.
type Researcher interface {
	Research(ctx context.Context, p *Prospect) (*ProspectResearch, error)
}

// ErrBlacklistRecontactDisabled is returned by ReactivateBlacklisted when the
// campaign policy forbids re-contacting blacklisted prospects.
var ErrBlacklistRecontactDisabled = errors.New("blacklist recontact is disabled by policy")

// Scheduler drives each Prospect through the outreach state machine: queued
// research, the initial send, timed follow-up sweeps and reply handling.
type Scheduler struct {
	store      Store
	researcher Researcher
	sender     ContactSender
	classifier *Classifier
	templates  *templates.Engine
	schedCfg   config.SchedulerConfig
	policy     config.OutreachConfig

	researchQueue chan string
	workerWG      sync.WaitGroup
	now           func() time.Time
}

func NewScheduler(store Store, researcher Researcher, sender ContactSender, classifier *Classifier, engine *templates.Engine, schedCfg config.SchedulerConfig, policy config.OutreachConfig) *Scheduler {
	queueSize := schedCfg.ResearchQueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Scheduler{
		store:         store,
		researcher:    researcher,
		sender:        sender,
		classifier:    classifier,
		templates:     engine,
		schedCfg:      schedCfg,
		policy:        policy,
		researchQueue: make(chan string, queueSize),
		now:           time.Now,
	}
}

// WithClock swaps the time source.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// StartResearchWorkers launches the background research workers. They drain
// the queue until ctx is cancelled; Wait blocks until they exit.
func (s *Scheduler) StartResearchWorkers(ctx context.Context) {
	workers := s.schedCfg.ResearchWorkers
	if workers <= 0 {
		workers = 3
	}
	for i := 0; i < workers; i++ {
		s.workerWG.Add(1)
		go func(worker int) {
			defer s.workerWG.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case prospectID := <-s.researchQueue:
					s.processResearch(ctx, prospectID)
				}
			}
		}(i)
	}
	log.Printf("Scheduler: Started %d research workers.", workers)
}

// Wait blocks until the research workers have exited.
func (s *Scheduler) Wait() {
	s.workerWG.Wait()
}

// EnqueueResearch queues a prospect for research without blocking. A false
// return means the queue is full; the research sweep retries later.
func (s *Scheduler) EnqueueResearch(prospectID string) bool {
	select {
	case s.researchQueue <- prospectID:
		return true
	default:
		return false
	}
}

// processResearch advances one Prospect from discovered through researching
// to ready_to_contact. Failure leaves it at researching for retry; no email
// is ever sent without a completed snapshot.
func (s *Scheduler) processResearch(ctx context.Context, prospectID string) {
	prospect, err := s.store.GetProspect(prospectID)
	if err != nil {
		log.Printf("Scheduler: Research skipped, prospect %s not loadable: %v", prospectID, err)
		return
	}

	switch prospect.Status {
	case ProspectDiscovered:
		if err := s.store.TransitionProspect(prospectID, ProspectDiscovered, ProspectResearching, func(p *Prospect) {
			p.UpdatedAt = s.now().UTC()
		}); err != nil {
			log.Printf("Scheduler: Prospect %s moved concurrently, skipping research: %v", prospectID, err)
			return
		}
	case ProspectResearching:
		// Retry of a stuck prospect.
	default:
		return
	}

	prospect, err = s.store.GetProspect(prospectID)
	if err != nil {
		return
	}
	prospect.ResearchAttempts++
	if err := s.store.UpdateProspect(prospect); err != nil {
		log.Printf("Scheduler: Failed to record research attempt for %s: %v", prospectID, err)
	}

	snapshot, err := s.researcher.Research(ctx, prospect)
	if err != nil {
		log.Printf("Scheduler: Research attempt %d failed for prospect %s (%s): %v", prospect.ResearchAttempts, prospectID, prospect.Domain, err)
		return
	}

	if err := s.store.TransitionProspect(prospectID, ProspectResearching, ProspectReadyToContact, func(p *Prospect) {
		p.Research = snapshot
		p.UpdatedAt = s.now().UTC()
	}); err != nil {
		log.Printf("Scheduler: Failed to promote researched prospect %s: %v", prospectID, err)
		return
	}
	log.Printf("Scheduler: Prospect %s (%s) ready to contact.", prospectID, prospect.Domain)
}

// SweepResearch re-queues prospects stuck before ready_to_contact: rows the
// intake enqueue dropped and earlier research failures. Prospects past the
// attempt budget are left for manual review rather than retried forever.
func (s *Scheduler) SweepResearch() int {
	maxAttempts := s.schedCfg.ResearchMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	queued := 0
	for _, status := range []ProspectStatus{ProspectDiscovered, ProspectResearching} {
		prospects, err := s.store.ListProspectsByStatus(status)
		if err != nil {
			log.Printf("Scheduler: Research sweep list failed for status %s: %v", status, err)
			continue
		}
		for _, p := range prospects {
			if p.ResearchAttempts >= maxAttempts {
				continue
			}
			if s.EnqueueResearch(p.ID) {
				queued++
			}
		}
	}
	if queued > 0 {
		log.Printf("Scheduler: Research sweep queued %d prospects.", queued)
	}
	return queued
}

// SendInitialOutreach sends the first email to a ready_to_contact Prospect.
// A send failure records a failed email entry and leaves the state unchanged.
func (s *Scheduler) SendInitialOutreach(ctx context.Context, prospectID string) (*OutreachEmail, error) {
	prospect, err := s.store.GetProspect(prospectID)
	if err != nil {
		return nil, err
	}
	if prospect.Status != ProspectReadyToContact {
		return nil, fmt.Errorf("prospect %s is %s, not ready_to_contact", prospectID, prospect.Status)
	}
	campaign, err := s.store.GetCampaign(prospect.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status == CampaignPaused || campaign.Status == CampaignCompleted {
		return nil, fmt.Errorf("campaign %s is %s", campaign.ID, campaign.Status)
	}

	already, err := s.store.HasSentEmailOfType(prospectID, EmailInitial)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, fmt.Errorf("prospect %s already received an initial email", prospectID)
	}
	return s.sendEmail(ctx, campaign, prospect, EmailInitial)
}

// ProcessDueFollowUps is the scheduler sweep: it selects Prospects whose
// next_follow_up_at has passed, skips paused campaigns wholesale, and sends
// the next follow-up for each on a bounded worker pool. Per-prospect failures
// never abort the sweep. Returns the number of emails sent.
func (s *Scheduler) ProcessDueFollowUps(ctx context.Context) (int, error) {
	due, err := s.store.ListDueProspects(s.now().UTC())
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	// One campaign read per campaign; a paused campaign excludes all of its
	// prospects without touching their records.
	campaigns := map[string]*Campaign{}
	eligible := make([]*Prospect, 0, len(due))
	for _, p := range due {
		campaign, ok := campaigns[p.CampaignID]
		if !ok {
			campaign, err = s.store.GetCampaign(p.CampaignID)
			if err != nil {
				log.Printf("Scheduler: Sweep cannot load campaign %s: %v", p.CampaignID, err)
				continue
			}
			campaigns[p.CampaignID] = campaign
		}
		if campaign.Status == CampaignPaused || campaign.Status == CampaignCompleted || !campaign.FollowUpEnabled {
			continue
		}
		eligible = append(eligible, p)
	}

	workers := s.schedCfg.WorkerCount
	if workers <= 0 {
		workers = 5
	}

	var (
		mu   sync.Mutex
		sent int
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for _, p := range eligible {
		prospect := p
		group.Go(func() error {
			if s.processFollowUp(groupCtx, campaigns[prospect.CampaignID], prospect) {
				mu.Lock()
				sent++
				mu.Unlock()
			}
			// Failures are recorded per email; never abort siblings.
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return sent, err
	}
	log.Printf("Scheduler: Follow-up sweep sent %d of %d due emails.", sent, len(eligible))
	return sent, nil
}

func (s *Scheduler) processFollowUp(ctx context.Context, campaign *Campaign, prospect *Prospect) bool {
	emailType, ok := NextEmailType(prospect.Status)
	if !ok || emailType == EmailInitial {
		return false
	}

	maxFollowUps := s.schedCfg.MaxFollowUps
	if maxFollowUps <= 0 {
		maxFollowUps = 3
	}
	if FollowUpIndex(emailType) > maxFollowUps {
		if err := s.store.TransitionProspect(prospect.ID, prospect.Status, ProspectCompleted, func(p *Prospect) {
			p.NextFollowUpAt = nil
			p.UpdatedAt = s.now().UTC()
		}); err != nil {
			log.Printf("Scheduler: Failed to complete exhausted prospect %s: %v", prospect.ID, err)
		}
		return false
	}

	already, err := s.store.HasSentEmailOfType(prospect.ID, emailType)
	if err != nil {
		log.Printf("Scheduler: Idempotency check failed for prospect %s: %v", prospect.ID, err)
		return false
	}
	if already {
		// The state advance lost a race earlier; clear the stale schedule.
		log.Printf("Scheduler: Prospect %s already has a %s email, skipping.", prospect.ID, emailType)
		return false
	}

	if _, err := s.sendEmail(ctx, campaign, prospect, emailType); err != nil {
		log.Printf("Scheduler: Follow-up send failed for prospect %s (%s): %v", prospect.ID, prospect.Domain, err)
		return false
	}
	return true
}

// sendEmail renders, sends and records one email, then advances the state
// machine and reschedules the next follow-up. The send failure path records
// the failed entry and bumps the campaign's failed-send counter only.
func (s *Scheduler) sendEmail(ctx context.Context, campaign *Campaign, prospect *Prospect, emailType EmailType) (*OutreachEmail, error) {
	subject, body, facts, err := s.renderEmail(campaign, prospect, emailType)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	email := &OutreachEmail{
		ID:                   uuid.NewString(),
		ProspectID:           prospect.ID,
		CampaignID:           campaign.ID,
		Type:                 emailType,
		Subject:              subject,
		Body:                 body,
		TemplateStyle:        campaign.TemplateStyle,
		PersonalizationLevel: campaign.PersonalizationLevel,
		PersonalizationFacts: facts,
		SentAt:               now,
	}

	providerID, sendErr := s.sender.Send(ctx, SendRequest{
		Sender:  campaign.Sender,
		To:      prospect.ContactEmail,
		Subject: subject,
		Body:    body,
		Metadata: map[string]string{
			"campaign_id": campaign.ID,
			"prospect_id": prospect.ID,
			"email_type":  string(emailType),
		},
	})
	if sendErr != nil {
		email.Status = EmailFailed
		email.FailureReason = sendErr.Error()
		if err := s.store.CreateEmail(email); err != nil {
			log.Printf("Scheduler: Failed to record failed email for prospect %s: %v", prospect.ID, err)
		}
		if err := s.store.ApplyStatsDelta(campaign.ID, StatsDelta{FailedSends: 1}); err != nil {
			log.Printf("Scheduler: Failed to count failed send for campaign %s: %v", campaign.ID, err)
		}
		return email, fmt.Errorf("send failed: %w", sendErr)
	}

	email.Status = EmailSent
	email.ProviderMessageID = providerID
	if err := s.store.CreateEmail(email); err != nil {
		return nil, err
	}

	nextStatus := StatusAfterSend(emailType)
	if err := s.store.TransitionProspect(prospect.ID, prospect.Status, nextStatus, func(p *Prospect) {
		p.LastContactAt = &now
		p.NextFollowUpAt = s.nextFollowUpAt(campaign, emailType, now)
		p.UpdatedAt = now
	}); err != nil {
		return email, fmt.Errorf("email %s sent but state advance failed: %w", email.ID, err)
	}

	if err := s.store.ApplyStatsDelta(campaign.ID, StatsDelta{EmailsSent: 1}); err != nil {
		log.Printf("Scheduler: Failed to count sent email for campaign %s: %v", campaign.ID, err)
	}
	log.Printf("Scheduler: Sent %s email to prospect %s (%s).", emailType, prospect.ID, prospect.Domain)
	return email, nil
}

// nextFollowUpAt computes the next contact time, or nil when follow-ups are
// disabled or no configured delay remains.
func (s *Scheduler) nextFollowUpAt(campaign *Campaign, justSent EmailType, sentAt time.Time) *time.Time {
	if !campaign.FollowUpEnabled {
		return nil
	}
	idx := FollowUpIndex(justSent)
	if idx >= len(campaign.FollowUpDelays) {
		return nil
	}
	maxFollowUps := s.schedCfg.MaxFollowUps
	if maxFollowUps <= 0 {
		maxFollowUps = 3
	}
	if idx+1 > maxFollowUps {
		return nil
	}
	next := sentAt.Add(time.Duration(campaign.FollowUpDelays[idx]) * 24 * time.Hour)
	return &next
}

// renderEmail builds template bindings gated by the campaign's
// personalization level and renders subject and body.
func (s *Scheduler) renderEmail(campaign *Campaign, prospect *Prospect, emailType EmailType) (subject, body string, facts []string, err error) {
	keyword := "your industry"
	if len(campaign.Keywords) > 0 {
		keyword = campaign.Keywords[0]
	}
	bindings := templates.Bindings{
		"contact_name": prospect.ContactName,
		"domain":       prospect.Domain,
		"keyword":      keyword,
		"target_url":   campaign.TargetURL,
		"from_name":    campaign.Sender.FromName,
	}

	research := prospect.Research
	if research != nil && campaign.PersonalizationLevel != PersonalizationBasic {
		bindings["site_name"] = research.SiteTitle
		if research.SiteTitle != "" {
			facts = append(facts, "Site title: "+research.SiteTitle)
		}
		if campaign.PersonalizationLevel == PersonalizationDeep {
			if len(research.RecentPosts) > 0 {
				bindings["recent_post_title"] = research.RecentPosts[0].Title
				bindings["recent_post_url"] = research.RecentPosts[0].URL
				facts = append(facts, "Recent post: "+research.RecentPosts[0].Title)
			}
			if research.PostingFrequency != "" {
				bindings["posting_frequency"] = research.PostingFrequency
				facts = append(facts, "Publishes "+research.PostingFrequency)
			}
		}
	}

	subject, body, err = s.templates.Render(templates.Key{
		Type:  string(emailType),
		Style: string(campaign.TemplateStyle),
	}, bindings)
	if err != nil {
		return "", "", nil, err
	}
	return subject, body, facts, nil
}

// RecordReply classifies an inbound reply, stores the verdict on the
// Prospect and bumps the campaign's response counters exactly once. The
// outreach state is never changed by a reply; the recommended action is
// advisory.
func (s *Scheduler) RecordReply(prospectID, replyText string) (*ResponseData, error) {
	prospect, err := s.store.GetProspect(prospectID)
	if err != nil {
		return nil, err
	}

	verdict := s.classifier.Classify(replyText)
	prospect.ResponseData = &verdict
	if status := ResponseStatusFor(verdict.Type); status != ResponseNone {
		prospect.ResponseStatus = status
	}
	prospect.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProspect(prospect); err != nil {
		return nil, err
	}

	delta := StatsDelta{Replied: 1}
	switch verdict.Type {
	case ReplyPositive:
		delta.PositiveResponses = 1
	case ReplyNegative:
		delta.NegativeResponses = 1
	case ReplyNeutral:
		delta.NeutralResponses = 1
	}
	if err := s.store.ApplyStatsDelta(prospect.CampaignID, delta); err != nil {
		return nil, err
	}
	log.Printf("Scheduler: Reply from prospect %s classified %s (action: %s).", prospectID, verdict.Type, verdict.RecommendedAction)
	return &verdict, nil
}

// HandleEmailEvent applies an asynchronous channel event to the matching
// email record and campaign counters. A replied event also runs reply
// classification when text is attached.
func (s *Scheduler) HandleEmailEvent(event EmailEvent) error {
	email, err := s.store.GetEmailByProviderID(event.ProviderMessageID)
	if err != nil {
		return err
	}

	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.now().UTC()
	}

	delta := StatsDelta{}
	switch event.Kind {
	case EventDelivered:
		if email.DeliveredAt == nil {
			email.DeliveredAt = &occurred
			delta.EmailsDelivered = 1
		}
	case EventOpened:
		if email.OpenedAt == nil {
			email.OpenedAt = &occurred
			delta.EmailsOpened = 1
		}
	case EventClicked:
		if email.ClickedAt == nil {
			email.ClickedAt = &occurred
			delta.EmailsClicked = 1
		}
	case EventReplied:
		if email.RepliedAt != nil {
			return nil
		}
		email.RepliedAt = &occurred
	default:
		return fmt.Errorf("unknown email event kind '%s'", event.Kind)
	}

	if err := s.store.UpdateEmailEvents(email); err != nil {
		return err
	}
	if delta != (StatsDelta{}) {
		if err := s.store.ApplyStatsDelta(email.CampaignID, delta); err != nil {
			return err
		}
	}

	if event.Kind == EventReplied {
		if _, err := s.RecordReply(email.ProspectID, event.ReplyText); err != nil {
			return err
		}
	}
	return nil
}

// PauseProspect sidelines a Prospect, remembering where it was.
func (s *Scheduler) PauseProspect(prospectID string) error {
	prospect, err := s.store.GetProspect(prospectID)
	if err != nil {
		return err
	}
	return s.store.TransitionProspect(prospectID, prospect.Status, ProspectPaused, func(p *Prospect) {
		p.PreviousStatus = prospect.Status
		p.UpdatedAt = s.now().UTC()
	})
}

// ResumeProspect returns a paused Prospect to the state it was paused from.
func (s *Scheduler) ResumeProspect(prospectID string) error {
	prospect, err := s.store.GetProspect(prospectID)
	if err != nil {
		return err
	}
	if prospect.Status != ProspectPaused {
		return fmt.Errorf("prospect %s is not paused", prospectID)
	}
	resumeTo := prospect.PreviousStatus
	if resumeTo == "" || resumeTo == ProspectPaused {
		resumeTo = ProspectReadyToContact
	}
	return s.store.TransitionProspect(prospectID, ProspectPaused, resumeTo, func(p *Prospect) {
		p.PreviousStatus = ""
		p.UpdatedAt = s.now().UTC()
	})
}

// BlacklistProspect moves a Prospect to the blacklisted terminal state.
func (s *Scheduler) BlacklistProspect(prospectID string) error {
	prospect, err := s.store.GetProspect(prospectID)
	if err != nil {
		return err
	}
	return s.store.TransitionProspect(prospectID, prospect.Status, ProspectBlacklisted, func(p *Prospect) {
		p.NextFollowUpAt = nil
		p.UpdatedAt = s.now().UTC()
	})
}

// CompleteProspect explicitly closes out a Prospect.
func (s *Scheduler) CompleteProspect(prospectID string) error {
	prospect, err := s.store.GetProspect(prospectID)
	if err != nil {
		return err
	}
	return s.store.TransitionProspect(prospectID, prospect.Status, ProspectCompleted, func(p *Prospect) {
		p.NextFollowUpAt = nil
		p.UpdatedAt = s.now().UTC()
	})
}

// ReactivateBlacklisted returns a blacklisted Prospect to ready_to_contact.
// Only permitted when the recontact policy allows it.
func (s *Scheduler) ReactivateBlacklisted(prospectID string) error {
	if !s.policy.AllowBlacklistRecontact {
		return ErrBlacklistRecontactDisabled
	}
	if err := s.store.TransitionProspect(prospectID, ProspectBlacklisted, ProspectReadyToContact, func(p *Prospect) {
		p.UpdatedAt = s.now().UTC()
	}); err != nil {
		return err
	}
	log.Printf("Scheduler: Blacklisted prospect %s reactivated by policy.", prospectID)
	return nil
}
