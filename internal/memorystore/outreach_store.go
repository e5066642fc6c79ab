// File: backend/internal/memorystore/outreach_store.go
package memorystore

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/belonio2793/backlinkoo/backend/internal/outreach"
)

// OutreachStore is the in-memory outreach.Store. Stats deltas and prospect
// transitions run under the single store lock, which makes them atomic with
// respect to each other.
type OutreachStore struct {
	mu             sync.RWMutex
	campaigns      map[string]*outreach.Campaign
	campaignOrder  []string
	prospects      map[string]*outreach.Prospect
	prospectOrder  []string
	emails         map[string]*outreach.OutreachEmail
	emailsByProsp  map[string][]string
	emailsByCamp   map[string][]string
	emailsByProvID map[string]string
}

func NewOutreachStore() *OutreachStore {
	return &OutreachStore{
		campaigns:      make(map[string]*outreach.Campaign),
		prospects:      make(map[string]*outreach.Prospect),
		emails:         make(map[string]*outreach.OutreachEmail),
		emailsByProsp:  make(map[string][]string),
		emailsByCamp:   make(map[string][]string),
		emailsByProvID: make(map[string]string),
	}
}

func (s *OutreachStore) CreateCampaign(c *outreach.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.campaigns[c.ID]; exists {
		return fmt.Errorf("campaign with ID '%s' already exists", c.ID)
	}
	stored := *c
	s.campaigns[c.ID] = &stored
	s.campaignOrder = append(s.campaignOrder, c.ID)
	return nil
}

func (s *OutreachStore) GetCampaign(id string) (*outreach.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, exists := s.campaigns[id]
	if !exists {
		return nil, outreach.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (s *OutreachStore) UpdateCampaignStatus(id string, status outreach.CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.campaigns[id]
	if !exists {
		return outreach.ErrNotFound
	}
	stored.Status = status
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *OutreachStore) ListCampaigns(status outreach.CampaignStatus) ([]*outreach.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*outreach.Campaign, 0, len(s.campaignOrder))
	for _, id := range s.campaignOrder {
		stored := s.campaigns[id]
		if status != "" && stored.Status != status {
			continue
		}
		copied := *stored
		list = append(list, &copied)
	}
	return list, nil
}

// ApplyStatsDelta adds the delta and recomputes derived rates while holding
// the write lock, so concurrent deltas from sibling prospects all land.
func (s *OutreachStore) ApplyStatsDelta(campaignID string, delta outreach.StatsDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.campaigns[campaignID]
	if !exists {
		return outreach.ErrNotFound
	}
	stored.Stats.Apply(delta)
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *OutreachStore) CreateProspect(p *outreach.Prospect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.prospects[p.ID]; exists {
		return fmt.Errorf("prospect with ID '%s' already exists", p.ID)
	}
	if _, exists := s.campaigns[p.CampaignID]; !exists {
		return outreach.ErrNotFound
	}
	stored := *p
	s.prospects[p.ID] = &stored
	s.prospectOrder = append(s.prospectOrder, p.ID)
	return nil
}

func (s *OutreachStore) GetProspect(id string) (*outreach.Prospect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, exists := s.prospects[id]
	if !exists {
		return nil, outreach.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

// UpdateProspect replaces the record's mutable fields. The state machine
// fields are preserved from the stored record; moves go through
// TransitionProspect only.
func (s *OutreachStore) UpdateProspect(p *outreach.Prospect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.prospects[p.ID]
	if !exists {
		return outreach.ErrNotFound
	}
	updated := *p
	updated.Status = stored.Status
	updated.PreviousStatus = stored.PreviousStatus
	s.prospects[p.ID] = &updated
	return nil
}

func (s *OutreachStore) ListProspects(campaignID string) ([]*outreach.Prospect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []*outreach.Prospect
	for _, id := range s.prospectOrder {
		stored := s.prospects[id]
		if stored.CampaignID != campaignID {
			continue
		}
		copied := *stored
		list = append(list, &copied)
	}
	return list, nil
}

func (s *OutreachStore) ListProspectsByStatus(status outreach.ProspectStatus) ([]*outreach.Prospect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var list []*outreach.Prospect
	for _, id := range s.prospectOrder {
		stored := s.prospects[id]
		if stored.Status != status {
			continue
		}
		copied := *stored
		list = append(list, &copied)
	}
	return list, nil
}

// ListDueProspects returns prospects in an awaiting-follow-up state whose
// next_follow_up_at has passed.
func (s *OutreachStore) ListDueProspects(now time.Time) ([]*outreach.Prospect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []*outreach.Prospect
	for _, id := range s.prospectOrder {
		stored := s.prospects[id]
		switch stored.Status {
		case outreach.ProspectInitialSent, outreach.ProspectFollowUp1, outreach.ProspectFollowUp2:
		default:
			continue
		}
		if stored.NextFollowUpAt == nil || stored.NextFollowUpAt.After(now) {
			continue
		}
		copied := *stored
		due = append(due, &copied)
	}
	return due, nil
}

// TransitionProspect is the compare-and-swap state move: it fails when the
// prospect is no longer in the expected state or the edge is illegal, and
// applies mutate to the stored record while the lock is held.
func (s *OutreachStore) TransitionProspect(id string, from, to outreach.ProspectStatus, mutate func(*outreach.Prospect)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.prospects[id]
	if !exists {
		return outreach.ErrNotFound
	}
	if stored.Status != from {
		return fmt.Errorf("%w: prospect %s is %s, expected %s", outreach.ErrInvalidTransition, id, stored.Status, from)
	}
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", outreach.ErrInvalidTransition, from, to)
	}
	stored.Status = to
	if mutate != nil {
		mutate(stored)
		stored.Status = to // mutate must not override the move
	}
	return nil
}

func (s *OutreachStore) CreateEmail(e *outreach.OutreachEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.emails[e.ID]; exists {
		return fmt.Errorf("email with ID '%s' already exists", e.ID)
	}
	if _, exists := s.prospects[e.ProspectID]; !exists {
		return outreach.ErrNotFound
	}
	if e.Status == outreach.EmailSent {
		for _, existingID := range s.emailsByProsp[e.ProspectID] {
			existing := s.emails[existingID]
			if existing.Type == e.Type && existing.Status == outreach.EmailSent {
				return outreach.ErrDuplicateEmailType
			}
		}
	}
	stored := *e
	s.emails[e.ID] = &stored
	s.emailsByProsp[e.ProspectID] = append(s.emailsByProsp[e.ProspectID], e.ID)
	s.emailsByCamp[e.CampaignID] = append(s.emailsByCamp[e.CampaignID], e.ID)
	if e.ProviderMessageID != "" {
		s.emailsByProvID[e.ProviderMessageID] = e.ID
	}
	return nil
}

func (s *OutreachStore) GetEmail(id string) (*outreach.OutreachEmail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, exists := s.emails[id]
	if !exists {
		return nil, outreach.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (s *OutreachStore) GetEmailByProviderID(providerMessageID string) (*outreach.OutreachEmail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, exists := s.emailsByProvID[providerMessageID]
	if !exists {
		return nil, outreach.ErrNotFound
	}
	copied := *s.emails[id]
	return &copied, nil
}

func (s *OutreachStore) ListEmails(prospectID string) ([]*outreach.OutreachEmail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.emailsByProsp[prospectID]
	list := make([]*outreach.OutreachEmail, 0, len(ids))
	for _, id := range ids {
		copied := *s.emails[id]
		list = append(list, &copied)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].SentAt.Before(list[j].SentAt)
	})
	return list, nil
}

func (s *OutreachStore) ListCampaignEmails(campaignID string, limit int) ([]*outreach.OutreachEmail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.emailsByCamp[campaignID]
	list := make([]*outreach.OutreachEmail, 0, len(ids))
	for _, id := range ids {
		copied := *s.emails[id]
		list = append(list, &copied)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].SentAt.After(list[j].SentAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *OutreachStore) HasSentEmailOfType(prospectID string, t outreach.EmailType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.emailsByProsp[prospectID] {
		stored := s.emails[id]
		if stored.Type == t && stored.Status == outreach.EmailSent {
			return true, nil
		}
	}
	return false, nil
}

// UpdateEmailEvents replaces the event timestamp fields of a sent email. The
// rendered content and send status are immutable.
func (s *OutreachStore) UpdateEmailEvents(e *outreach.OutreachEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.emails[e.ID]
	if !exists {
		return outreach.ErrNotFound
	}
	stored.DeliveredAt = e.DeliveredAt
	stored.OpenedAt = e.OpenedAt
	stored.ClickedAt = e.ClickedAt
	stored.RepliedAt = e.RepliedAt
	return nil
}
