// File: backend/internal/outreach/scheduler_test.go
package outreach_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/belonio2793/backlinkoo/backend/internal/config"
	"github.com/belonio2793/backlinkoo/backend/internal/memorystore"
	"github.com/belonio2793/backlinkoo/backend/internal/outreach"
	"github.com/belonio2793/backlinkoo/backend/internal/templates"
)

// fakeSender records every Send and can be told to fail.
type fakeSender struct {
	mu    sync.Mutex
	sent  []outreach.SendRequest
	fail  bool
	seq   int
	delay time.Duration
}

func (f *fakeSender) Send(_ context.Context, req outreach.SendRequest) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("smtp connection refused")
	}
	f.sent = append(f.sent, req)
	f.seq++
	return fmt.Sprintf("prov-%d", f.seq), nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeResearcher returns a canned snapshot or a canned error.
type fakeResearcher struct {
	mu       sync.Mutex
	err      error
	calls    int
	snapshot *outreach.ProspectResearch
}

func (f *fakeResearcher) Research(_ context.Context, _ *outreach.Prospect) (*outreach.ProspectResearch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.snapshot != nil {
		return f.snapshot, nil
	}
	return &outreach.ProspectResearch{
		SiteTitle:     "Example Tech Blog",
		ContentTopics: []string{"technology"},
		CompletedAt:   time.Now().UTC(),
	}, nil
}

type schedulerFixture struct {
	store      *memorystore.OutreachStore
	scheduler  *outreach.Scheduler
	sender     *fakeSender
	researcher *fakeResearcher
	clock      *time.Time
}

func newSchedulerFixture(t *testing.T, policy config.OutreachConfig) *schedulerFixture {
	t.Helper()
	store := memorystore.NewOutreachStore()
	sender := &fakeSender{}
	researcher := &fakeResearcher{}
	start := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := &start

	schedCfg := config.SchedulerConfig{
		WorkerCount:         4,
		ResearchWorkers:     2,
		ResearchQueueSize:   16,
		ResearchMaxAttempts: 3,
		MaxFollowUps:        3,
	}
	scheduler := outreach.NewScheduler(store, researcher, sender, outreach.NewClassifier(), templates.NewEngine(), schedCfg, policy).
		WithClock(func() time.Time { return *clock })

	return &schedulerFixture{store: store, scheduler: scheduler, sender: sender, researcher: researcher, clock: clock}
}

func (f *schedulerFixture) advance(d time.Duration) {
	next := f.clock.Add(d)
	*f.clock = next
}

func (f *schedulerFixture) seedCampaign(t *testing.T, followUp bool) *outreach.Campaign {
	t.Helper()
	campaign := &outreach.Campaign{
		ID:                   "camp-1",
		Name:                 "Guest post push",
		TargetURL:            "https://example.com/guide",
		Keywords:             []string{"cloud backups"},
		TemplateStyle:        outreach.StyleProfessional,
		PersonalizationLevel: outreach.PersonalizationStandard,
		FollowUpEnabled:      followUp,
		FollowUpDelays:       []int{3, 7, 14},
		Sender:               outreach.SenderSettings{FromName: "Sam", FromEmail: "sam@example.com"},
		Status:               outreach.CampaignActive,
		CreatedAt:            *f.clock,
		UpdatedAt:            *f.clock,
	}
	require.NoError(t, f.store.CreateCampaign(campaign))
	return campaign
}

func (f *schedulerFixture) seedProspect(t *testing.T, id string, status outreach.ProspectStatus) *outreach.Prospect {
	t.Helper()
	prospect := &outreach.Prospect{
		ID:             id,
		CampaignID:     "camp-1",
		Domain:         "techblog.example.org",
		URL:            "https://techblog.example.org",
		ContactName:    "Alex",
		ContactEmail:   "alex@techblog.example.org",
		Status:         status,
		ResponseStatus: outreach.ResponseNone,
		CreatedAt:      *f.clock,
		UpdatedAt:      *f.clock,
	}
	if status != outreach.ProspectDiscovered && status != outreach.ProspectResearching {
		prospect.Research = &outreach.ProspectResearch{
			SiteTitle:   "Example Tech Blog",
			CompletedAt: *f.clock,
		}
	}
	require.NoError(t, f.store.CreateProspect(prospect))
	return prospect
}

func TestResearchWorkerPromotesProspect(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectDiscovered)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.scheduler.StartResearchWorkers(ctx)
	require.True(t, f.scheduler.EnqueueResearch("pros-1"))

	assert.Eventually(t, func() bool {
		p, err := f.store.GetProspect("pros-1")
		return err == nil && p.Status == outreach.ProspectReadyToContact
	}, 2*time.Second, 10*time.Millisecond)

	p, err := f.store.GetProspect("pros-1")
	require.NoError(t, err)
	require.NotNil(t, p.Research)
	assert.Equal(t, "Example Tech Blog", p.Research.SiteTitle)
	assert.Equal(t, 1, p.ResearchAttempts)
}

func TestResearchFailureStaysResearching(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectDiscovered)
	f.researcher.err = errors.New("fetch timed out")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.scheduler.StartResearchWorkers(ctx)
	require.True(t, f.scheduler.EnqueueResearch("pros-1"))

	assert.Eventually(t, func() bool {
		p, err := f.store.GetProspect("pros-1")
		return err == nil && p.Status == outreach.ProspectResearching && p.ResearchAttempts == 1
	}, 2*time.Second, 10*time.Millisecond)

	// No email may ever go out without a completed snapshot.
	assert.Zero(t, f.sender.count())
}

func TestSweepResearchRespectsAttemptBudget(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	f.seedCampaign(t, true)
	f.seedProspect(t, "retryable", outreach.ProspectResearching)
	exhausted := f.seedProspect(t, "exhausted", outreach.ProspectResearching)

	exhausted.ResearchAttempts = 3
	require.NoError(t, f.store.UpdateProspect(exhausted))

	queued := f.scheduler.SweepResearch()
	assert.Equal(t, 1, queued)
}

func TestSendInitialOutreach(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	campaign := f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)

	email, err := f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	require.NoError(t, err)
	assert.Equal(t, outreach.EmailInitial, email.Type)
	assert.Equal(t, outreach.EmailSent, email.Status)
	assert.NotEmpty(t, email.ProviderMessageID)
	assert.Contains(t, email.Body, "Alex")

	p, err := f.store.GetProspect("pros-1")
	require.NoError(t, err)
	assert.Equal(t, outreach.ProspectInitialSent, p.Status)
	require.NotNil(t, p.LastContactAt)
	require.NotNil(t, p.NextFollowUpAt)
	assert.Equal(t, f.clock.Add(3*24*time.Hour), *p.NextFollowUpAt)

	updated, err := f.store.GetCampaign(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Stats.EmailsSent)
}

func TestSendInitialOutreachRejectsDuplicate(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)

	_, err := f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	require.NoError(t, err)
	_, err = f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	assert.Error(t, err)
	assert.Equal(t, 1, f.sender.count())
}

func TestSendInitialOutreachPausedCampaign(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)
	require.NoError(t, f.store.UpdateCampaignStatus("camp-1", outreach.CampaignPaused))

	_, err := f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	assert.Error(t, err)
	assert.Zero(t, f.sender.count())
}

func TestSendFailureLeavesStateUnchanged(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	campaign := f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)
	f.sender.fail = true

	_, err := f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	require.Error(t, err)

	p, err := f.store.GetProspect("pros-1")
	require.NoError(t, err)
	assert.Equal(t, outreach.ProspectReadyToContact, p.Status)
	assert.Nil(t, p.LastContactAt)

	emails, err := f.store.ListEmails("pros-1")
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, outreach.EmailFailed, emails[0].Status)
	assert.Equal(t, "smtp connection refused", emails[0].FailureReason)

	updated, err := f.store.GetCampaign(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Stats.FailedSends)
	assert.Zero(t, updated.Stats.EmailsSent)

	// Recovery: once the channel is healthy the same prospect can be sent.
	f.sender.fail = false
	_, err = f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	assert.NoError(t, err)
}

func TestFollowUpScheduleUsesConfiguredDelays(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)

	_, err := f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	require.NoError(t, err)
	initialSentAt := *f.clock

	// Two days later: not due yet.
	f.advance(2 * 24 * time.Hour)
	sent, err := f.scheduler.ProcessDueFollowUps(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	// Day 3: the first follow-up goes out and the next one lands 7 days on.
	f.advance(24 * time.Hour)
	sent, err = f.scheduler.ProcessDueFollowUps(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	p, err := f.store.GetProspect("pros-1")
	require.NoError(t, err)
	assert.Equal(t, outreach.ProspectFollowUp1, p.Status)
	require.NotNil(t, p.NextFollowUpAt)
	assert.Equal(t, initialSentAt.Add((3+7)*24*time.Hour), *p.NextFollowUpAt)

	emails, err := f.store.ListEmails("pros-1")
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, outreach.EmailInitial, emails[0].Type)
	assert.Equal(t, outreach.EmailFollowUp1, emails[1].Type)
}

func TestFollowUpChainExhaustsAndStops(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)

	_, err := f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	require.NoError(t, err)

	for _, days := range []int{3, 7, 14} {
		f.advance(time.Duration(days) * 24 * time.Hour)
		sent, err := f.scheduler.ProcessDueFollowUps(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
	}

	p, err := f.store.GetProspect("pros-1")
	require.NoError(t, err)
	assert.Equal(t, outreach.ProspectFollowUp3, p.Status)
	assert.Nil(t, p.NextFollowUpAt)

	// Nothing further is ever due.
	f.advance(30 * 24 * time.Hour)
	sent, err := f.scheduler.ProcessDueFollowUps(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 4, f.sender.count())
}

func TestFollowUpSweepSkipsPausedCampaign(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)

	_, err := f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateCampaignStatus("camp-1", outreach.CampaignPaused))

	f.advance(5 * 24 * time.Hour)
	sent, err := f.scheduler.ProcessDueFollowUps(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 1, f.sender.count())
}

func TestFollowUpDisabledSchedulesNothing(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	f.seedCampaign(t, false)
	f.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)

	_, err := f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	require.NoError(t, err)

	p, err := f.store.GetProspect("pros-1")
	require.NoError(t, err)
	assert.Nil(t, p.NextFollowUpAt)
}

func TestRecordReplyNegative(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	campaign := f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)

	_, err := f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	require.NoError(t, err)

	verdict, err := f.scheduler.RecordReply("pros-1", "Not interested, please remove me from your list.")
	require.NoError(t, err)
	assert.Equal(t, outreach.ReplyNegative, verdict.Type)

	p, err := f.store.GetProspect("pros-1")
	require.NoError(t, err)
	// The reply is advisory; the state machine does not move.
	assert.Equal(t, outreach.ProspectInitialSent, p.Status)
	assert.Equal(t, outreach.ResponseNegative, p.ResponseStatus)
	require.NotNil(t, p.ResponseData)
	assert.Equal(t, "mark_not_interested", p.ResponseData.RecommendedAction)

	updated, err := f.store.GetCampaign(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Stats.Replied)
	assert.Equal(t, 1, updated.Stats.NegativeResponses)
	assert.Zero(t, updated.Stats.PositiveResponses)
}

func TestHandleEmailEventDeduplicates(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	campaign := f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)

	email, err := f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	require.NoError(t, err)

	event := outreach.EmailEvent{
		ProviderMessageID: email.ProviderMessageID,
		Kind:              outreach.EventOpened,
		OccurredAt:        f.clock.Add(time.Hour),
	}
	require.NoError(t, f.scheduler.HandleEmailEvent(event))
	require.NoError(t, f.scheduler.HandleEmailEvent(event))

	updated, err := f.store.GetCampaign(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Stats.EmailsOpened)
}

func TestHandleEmailEventRepliedClassifies(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	campaign := f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)

	email, err := f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	require.NoError(t, err)

	require.NoError(t, f.scheduler.HandleEmailEvent(outreach.EmailEvent{
		ProviderMessageID: email.ProviderMessageID,
		Kind:              outreach.EventReplied,
		ReplyText:         "Sounds great, send me your draft!",
	}))

	p, err := f.store.GetProspect("pros-1")
	require.NoError(t, err)
	assert.Equal(t, outreach.ResponsePositive, p.ResponseStatus)

	updated, err := f.store.GetCampaign(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Stats.Replied)
	assert.Equal(t, 1, updated.Stats.PositiveResponses)
}

func TestPauseResumeProspect(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)

	_, err := f.scheduler.SendInitialOutreach(context.Background(), "pros-1")
	require.NoError(t, err)

	require.NoError(t, f.scheduler.PauseProspect("pros-1"))
	p, err := f.store.GetProspect("pros-1")
	require.NoError(t, err)
	assert.Equal(t, outreach.ProspectPaused, p.Status)
	assert.Equal(t, outreach.ProspectInitialSent, p.PreviousStatus)

	// Paused prospects are invisible to the sweep.
	f.advance(10 * 24 * time.Hour)
	sent, err := f.scheduler.ProcessDueFollowUps(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	require.NoError(t, f.scheduler.ResumeProspect("pros-1"))
	p, err = f.store.GetProspect("pros-1")
	require.NoError(t, err)
	assert.Equal(t, outreach.ProspectInitialSent, p.Status)
}

func TestReactivateBlacklistedGatedByPolicy(t *testing.T) {
	f := newSchedulerFixture(t, config.OutreachConfig{})
	f.seedCampaign(t, true)
	f.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)
	require.NoError(t, f.scheduler.BlacklistProspect("pros-1"))

	err := f.scheduler.ReactivateBlacklisted("pros-1")
	assert.ErrorIs(t, err, outreach.ErrBlacklistRecontactDisabled)

	allowed := newSchedulerFixture(t, config.OutreachConfig{AllowBlacklistRecontact: true})
	allowed.seedCampaign(t, true)
	allowed.seedProspect(t, "pros-1", outreach.ProspectReadyToContact)
	require.NoError(t, allowed.scheduler.BlacklistProspect("pros-1"))

	require.NoError(t, allowed.scheduler.ReactivateBlacklisted("pros-1"))
	p, err := allowed.store.GetProspect("pros-1")
	require.NoError(t, err)
	assert.Equal(t, outreach.ProspectReadyToContact, p.Status)
}
