// File: backend/internal/memorystore/outreach_store_test.go
package memorystore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/belonio2793/backlinkoo/backend/internal/outreach"
)

func newStoreWithCampaign(t *testing.T) (*OutreachStore, *outreach.Campaign) {
	t.Helper()
	store := NewOutreachStore()
	campaign := &outreach.Campaign{
		ID:        "camp-1",
		Name:      "SaaS keyword push",
		TargetURL: "https://example.com/pricing",
		Status:    outreach.CampaignActive,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateCampaign(campaign))
	return store, campaign
}

func seedProspect(t *testing.T, store *OutreachStore, id string, status outreach.ProspectStatus) {
	t.Helper()
	require.NoError(t, store.CreateProspect(&outreach.Prospect{
		ID:           id,
		CampaignID:   "camp-1",
		Domain:       "blog.example.org",
		URL:          "https://blog.example.org",
		ContactEmail: "editor@blog.example.org",
		Status:       status,
	}))
}

func TestApplyStatsDeltaConcurrent(t *testing.T) {
	store, _ := newStoreWithCampaign(t)

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = store.ApplyStatsDelta("camp-1", outreach.StatsDelta{EmailsSent: 1, Replied: 1})
			_ = store.ApplyStatsDelta("camp-1", outreach.StatsDelta{LinksAcquired: 1})
		}()
	}
	wg.Wait()

	campaign, err := store.GetCampaign("camp-1")
	require.NoError(t, err)
	assert.Equal(t, workers, campaign.Stats.EmailsSent)
	assert.Equal(t, workers, campaign.Stats.Replied)
	assert.Equal(t, workers, campaign.Stats.LinksAcquired)
	assert.InDelta(t, 100.0, campaign.Stats.ResponseRate, 0.001)
	assert.InDelta(t, 100.0, campaign.Stats.ConversionRate, 0.001)
}

func TestApplyStatsDeltaUnknownCampaign(t *testing.T) {
	store := NewOutreachStore()
	err := store.ApplyStatsDelta("missing", outreach.StatsDelta{EmailsSent: 1})
	assert.ErrorIs(t, err, outreach.ErrNotFound)
}

func TestTransitionProspectMovesState(t *testing.T) {
	store, _ := newStoreWithCampaign(t)
	seedProspect(t, store, "pros-1", outreach.ProspectReadyToContact)

	sentAt := time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
	err := store.TransitionProspect("pros-1", outreach.ProspectReadyToContact, outreach.ProspectInitialSent, func(p *outreach.Prospect) {
		p.LastContactAt = &sentAt
	})
	require.NoError(t, err)

	prospect, err := store.GetProspect("pros-1")
	require.NoError(t, err)
	assert.Equal(t, outreach.ProspectInitialSent, prospect.Status)
	require.NotNil(t, prospect.LastContactAt)
	assert.Equal(t, sentAt, *prospect.LastContactAt)
}

func TestTransitionProspectRejectsStaleFrom(t *testing.T) {
	store, _ := newStoreWithCampaign(t)
	seedProspect(t, store, "pros-1", outreach.ProspectInitialSent)

	// A caller holding a stale read must not win the race.
	err := store.TransitionProspect("pros-1", outreach.ProspectReadyToContact, outreach.ProspectInitialSent, nil)
	assert.ErrorIs(t, err, outreach.ErrInvalidTransition)

	prospect, err := store.GetProspect("pros-1")
	require.NoError(t, err)
	assert.Equal(t, outreach.ProspectInitialSent, prospect.Status)
}

func TestTransitionProspectRejectsIllegalEdge(t *testing.T) {
	store, _ := newStoreWithCampaign(t)
	seedProspect(t, store, "pros-1", outreach.ProspectDiscovered)

	err := store.TransitionProspect("pros-1", outreach.ProspectDiscovered, outreach.ProspectInitialSent, nil)
	assert.ErrorIs(t, err, outreach.ErrInvalidTransition)
}

func TestTransitionProspectConcurrentSingleWinner(t *testing.T) {
	store, _ := newStoreWithCampaign(t)
	seedProspect(t, store, "pros-1", outreach.ProspectReadyToContact)

	const racers = 20
	var wg sync.WaitGroup
	wg.Add(racers)
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		go func(i int) {
			defer wg.Done()
			errs[i] = store.TransitionProspect("pros-1", outreach.ProspectReadyToContact, outreach.ProspectInitialSent, nil)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, outreach.ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestUpdateProspectPreservesStateFields(t *testing.T) {
	store, _ := newStoreWithCampaign(t)
	seedProspect(t, store, "pros-1", outreach.ProspectResearching)

	stale, err := store.GetProspect("pros-1")
	require.NoError(t, err)

	require.NoError(t, store.TransitionProspect("pros-1", outreach.ProspectResearching, outreach.ProspectReadyToContact, nil))

	stale.ContactName = "Jordan"
	stale.Status = outreach.ProspectDiscovered // stale, must be ignored
	require.NoError(t, store.UpdateProspect(stale))

	current, err := store.GetProspect("pros-1")
	require.NoError(t, err)
	assert.Equal(t, outreach.ProspectReadyToContact, current.Status)
	assert.Equal(t, "Jordan", current.ContactName)
}

func TestCreateEmailRejectsDuplicateSentType(t *testing.T) {
	store, _ := newStoreWithCampaign(t)
	seedProspect(t, store, "pros-1", outreach.ProspectInitialSent)

	require.NoError(t, store.CreateEmail(&outreach.OutreachEmail{
		ID:         "email-1",
		ProspectID: "pros-1",
		CampaignID: "camp-1",
		Type:       outreach.EmailInitial,
		Status:     outreach.EmailSent,
		SentAt:     time.Now().UTC(),
	}))

	err := store.CreateEmail(&outreach.OutreachEmail{
		ID:         "email-2",
		ProspectID: "pros-1",
		CampaignID: "camp-1",
		Type:       outreach.EmailInitial,
		Status:     outreach.EmailSent,
		SentAt:     time.Now().UTC(),
	})
	assert.ErrorIs(t, err, outreach.ErrDuplicateEmailType)

	has, err := store.HasSentEmailOfType("pros-1", outreach.EmailInitial)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestCreateEmailAllowsRepeatedFailures(t *testing.T) {
	store, _ := newStoreWithCampaign(t)
	seedProspect(t, store, "pros-1", outreach.ProspectReadyToContact)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateEmail(&outreach.OutreachEmail{
			ID:            fmt.Sprintf("email-%d", i),
			ProspectID:    "pros-1",
			CampaignID:    "camp-1",
			Type:          outreach.EmailInitial,
			Status:        outreach.EmailFailed,
			FailureReason: "smtp timeout",
			SentAt:        time.Now().UTC(),
		}))
	}

	has, err := store.HasSentEmailOfType("pros-1", outreach.EmailInitial)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestListDueProspects(t *testing.T) {
	store, _ := newStoreWithCampaign(t)
	now := time.Date(2025, 4, 10, 8, 0, 0, 0, time.UTC)
	past := now.Add(-1 * time.Hour)
	future := now.Add(48 * time.Hour)

	seedProspect(t, store, "due", outreach.ProspectInitialSent)
	seedProspect(t, store, "not-yet", outreach.ProspectInitialSent)
	seedProspect(t, store, "no-schedule", outreach.ProspectFollowUp1)
	seedProspect(t, store, "wrong-state", outreach.ProspectReadyToContact)

	setNextFollowUp := func(id string, at *time.Time) {
		p, err := store.GetProspect(id)
		require.NoError(t, err)
		p.NextFollowUpAt = at
		require.NoError(t, store.UpdateProspect(p))
	}
	setNextFollowUp("due", &past)
	setNextFollowUp("not-yet", &future)
	setNextFollowUp("wrong-state", &past)

	due, err := store.ListDueProspects(now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].ID)
}

func TestListCampaignEmailsNewestFirstCapped(t *testing.T) {
	store, _ := newStoreWithCampaign(t)
	seedProspect(t, store, "pros-1", outreach.ProspectInitialSent)

	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	types := []outreach.EmailType{outreach.EmailInitial, outreach.EmailFollowUp1, outreach.EmailFollowUp2}
	for i, et := range types {
		require.NoError(t, store.CreateEmail(&outreach.OutreachEmail{
			ID:         fmt.Sprintf("email-%d", i),
			ProspectID: "pros-1",
			CampaignID: "camp-1",
			Type:       et,
			Status:     outreach.EmailSent,
			SentAt:     base.Add(time.Duration(i) * 24 * time.Hour),
		}))
	}

	emails, err := store.ListCampaignEmails("camp-1", 2)
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, "email-2", emails[0].ID)
	assert.Equal(t, "email-1", emails[1].ID)
}

func TestUpdateEmailEventsOnlyTouchesTimestamps(t *testing.T) {
	store, _ := newStoreWithCampaign(t)
	seedProspect(t, store, "pros-1", outreach.ProspectInitialSent)

	require.NoError(t, store.CreateEmail(&outreach.OutreachEmail{
		ID:                "email-1",
		ProspectID:        "pros-1",
		CampaignID:        "camp-1",
		Type:              outreach.EmailInitial,
		Subject:           "Quick question",
		Status:            outreach.EmailSent,
		ProviderMessageID: "prov-123",
		SentAt:            time.Now().UTC(),
	}))

	opened := time.Date(2025, 4, 3, 10, 0, 0, 0, time.UTC)
	update, err := store.GetEmailByProviderID("prov-123")
	require.NoError(t, err)
	update.OpenedAt = &opened
	update.Subject = "tampered"
	require.NoError(t, store.UpdateEmailEvents(update))

	stored, err := store.GetEmail("email-1")
	require.NoError(t, err)
	require.NotNil(t, stored.OpenedAt)
	assert.Equal(t, opened, *stored.OpenedAt)
	assert.Equal(t, "Quick question", stored.Subject)
}
