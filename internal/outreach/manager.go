// File: backend/internal/outreach/manager.go
package outreach

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/belonio2793/backlinkoo/backend/internal/config"
	"github.com/google/uuid"
)

// ErrMissingContactEmail rejects prospect intake rows without an email.
var ErrMissingContactEmail = errors.New("prospect contact email is required")

// ResearchEnqueuer accepts newly added prospects for background research.
// The scheduler implements it; tests inject fakes.
type ResearchEnqueuer interface {
	EnqueueResearch(prospectID string) bool
}

// CampaignSpec is the caller-supplied shape for creating a Campaign.
type CampaignSpec struct {
	Name                 string               `json:"name"`
	TargetURL            string               `json:"target_url"`
	Keywords             []string             `json:"keywords"`
	AnchorTexts          []string             `json:"anchor_texts,omitempty"`
	TemplateStyle        TemplateStyle        `json:"template_style,omitempty"`
	PersonalizationLevel PersonalizationLevel `json:"personalization_level,omitempty"`
	FollowUpEnabled      bool                 `json:"follow_up_enabled"`
	FollowUpDelays       []int                `json:"follow_up_delays,omitempty"`
	Sender               SenderSettings       `json:"sender"`
	Status               CampaignStatus       `json:"status,omitempty"`
}

// CampaignManager owns Campaign lifecycle and aggregate statistics, and is
// the intake point for Prospects.
type CampaignManager struct {
	store    Store
	enqueuer ResearchEnqueuer
	cfg      config.OutreachConfig
	now      func() time.Time
}

func NewCampaignManager(store Store, enqueuer ResearchEnqueuer, cfg config.OutreachConfig) *CampaignManager {
	return &CampaignManager{
		store:    store,
		enqueuer: enqueuer,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock swaps the time source.
func (m *CampaignManager) WithClock(now func() time.Time) *CampaignManager {
	m.now = now
	return m
}

// CreateCampaign persists a new Campaign with zeroed statistics. Status
// defaults to draft when the spec leaves it empty.
func (m *CampaignManager) CreateCampaign(spec CampaignSpec) (*Campaign, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, errors.New("campaign name is required")
	}
	if strings.TrimSpace(spec.TargetURL) == "" {
		return nil, errors.New("campaign target URL is required")
	}

	status := spec.Status
	if status == "" {
		status = CampaignDraft
	}
	style := spec.TemplateStyle
	if style == "" {
		style = StyleProfessional
	}
	level := spec.PersonalizationLevel
	if level == "" {
		level = PersonalizationStandard
	}
	delays := spec.FollowUpDelays
	if spec.FollowUpEnabled && len(delays) == 0 {
		delays = []int{3, 7, 14}
	}

	now := m.now().UTC()
	campaign := &Campaign{
		ID:                   uuid.NewString(),
		Name:                 spec.Name,
		TargetURL:            spec.TargetURL,
		Keywords:             spec.Keywords,
		AnchorTexts:          spec.AnchorTexts,
		TemplateStyle:        style,
		PersonalizationLevel: level,
		FollowUpEnabled:      spec.FollowUpEnabled,
		FollowUpDelays:       delays,
		Sender:               spec.Sender,
		Status:               status,
		Stats:                OutreachStats{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := m.store.CreateCampaign(campaign); err != nil {
		return nil, err
	}
	log.Printf("CampaignManager: Created campaign %s ('%s') status=%s", campaign.ID, campaign.Name, campaign.Status)
	return campaign, nil
}

// GetCampaign retrieves one Campaign.
func (m *CampaignManager) GetCampaign(id string) (*Campaign, error) {
	return m.store.GetCampaign(id)
}

// ListCampaigns returns campaigns, optionally filtered by status.
func (m *CampaignManager) ListCampaigns(status CampaignStatus) ([]*Campaign, error) {
	return m.store.ListCampaigns(status)
}

// SetCampaignStatus moves a Campaign between lifecycle states.
func (m *CampaignManager) SetCampaignStatus(id string, status CampaignStatus) error {
	if err := m.store.UpdateCampaignStatus(id, status); err != nil {
		return err
	}
	log.Printf("CampaignManager: Campaign %s status set to %s", id, status)
	return nil
}

// AddProspects creates one Prospect per intake row and queues each for
// research. Rows without a contact email fail the whole batch before any
// writes. Returns the created Prospects.
func (m *CampaignManager) AddProspects(campaignID string, intakes []ProspectIntake) ([]*Prospect, error) {
	if _, err := m.store.GetCampaign(campaignID); err != nil {
		return nil, err
	}
	for i, in := range intakes {
		if strings.TrimSpace(in.ContactEmail) == "" {
			return nil, fmt.Errorf("%w (row %d)", ErrMissingContactEmail, i)
		}
	}

	now := m.now().UTC()
	created := make([]*Prospect, 0, len(intakes))
	for _, in := range intakes {
		prospect := &Prospect{
			ID:             uuid.NewString(),
			CampaignID:     campaignID,
			TargetID:       in.TargetID,
			Domain:         domainOf(in.URL),
			URL:            in.URL,
			ContactName:    in.ContactName,
			ContactEmail:   in.ContactEmail,
			ContactTitle:   in.ContactTitle,
			ContactCompany: in.ContactCompany,
			Status:         ProspectDiscovered,
			ResponseStatus: ResponseNone,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := m.store.CreateProspect(prospect); err != nil {
			return created, err
		}
		created = append(created, prospect)

		if !m.enqueuer.EnqueueResearch(prospect.ID) {
			// Queue is full; the research sweep picks the prospect up later.
			log.Printf("CampaignManager: Research queue full, prospect %s deferred to next sweep.", prospect.ID)
		}
	}
	log.Printf("CampaignManager: Added %d prospects to campaign %s", len(created), campaignID)
	return created, nil
}

// UpdateStats applies a partial, additive delta to a Campaign's counters.
func (m *CampaignManager) UpdateStats(campaignID string, delta StatsDelta) error {
	return m.store.ApplyStatsDelta(campaignID, delta)
}

// RecordLinkAcquired marks a Prospect's link as won and bumps the campaign
// conversion counter once.
func (m *CampaignManager) RecordLinkAcquired(prospectID, linkURL string) error {
	prospect, err := m.store.GetProspect(prospectID)
	if err != nil {
		return err
	}
	if prospect.LinkAcquired {
		return nil
	}
	prospect.LinkAcquired = true
	prospect.AcquiredLinkURL = linkURL
	prospect.UpdatedAt = m.now().UTC()
	if err := m.store.UpdateProspect(prospect); err != nil {
		return err
	}
	log.Printf("CampaignManager: Prospect %s acquired link %s", prospectID, linkURL)
	return m.store.ApplyStatsDelta(prospect.CampaignID, StatsDelta{LinksAcquired: 1})
}

// GetCampaignPerformance assembles the analytics read model: the campaign,
// prospect state distribution, research/follow-up backlogs and recent emails.
func (m *CampaignManager) GetCampaignPerformance(campaignID string) (*CampaignPerformance, error) {
	campaign, err := m.store.GetCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	prospects, err := m.store.ListProspects(campaignID)
	if err != nil {
		return nil, err
	}

	perf := &CampaignPerformance{
		Campaign:         campaign,
		ProspectsByState: map[ProspectStatus]int{},
	}
	now := m.now().UTC()
	for _, p := range prospects {
		perf.ProspectsByState[p.Status]++
		if p.Status == ProspectDiscovered || p.Status == ProspectResearching {
			perf.PendingResearch++
		}
		if p.NextFollowUpAt != nil && !p.NextFollowUpAt.After(now) && !p.Status.IsTerminal() {
			perf.DueFollowUps++
		}
	}

	limit := m.cfg.RecentEmailsLimit
	if limit <= 0 {
		limit = 50
	}
	emails, err := m.store.ListCampaignEmails(campaignID, limit)
	if err != nil {
		return nil, err
	}
	perf.RecentEmails = emails
	return perf, nil
}

// ListProspects returns a campaign's prospects.
func (m *CampaignManager) ListProspects(campaignID string) ([]*Prospect, error) {
	return m.store.ListProspects(campaignID)
}

func domainOf(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}
