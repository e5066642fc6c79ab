// File: backend/internal/outreach/store.go
package outreach

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by stores when a lookup misses.
	ErrNotFound = errors.New("outreach record not found")

	// ErrInvalidTransition is returned by TransitionProspect when the
	// requested move violates the state machine or the expected current
	// state no longer holds.
	ErrInvalidTransition = errors.New("invalid prospect transition")

	// ErrDuplicateEmailType is returned when a second email of a type the
	// Prospect already carries would be recorded as sent.
	ErrDuplicateEmailType = errors.New("prospect already has an email of this type")
)

// Store defines the persistence operations the outreach side depends on.
// Counter updates and state transitions must be atomic; memorystore provides
// the reference implementation.
type Store interface {
	// CreateCampaign persists a new Campaign.
	CreateCampaign(c *Campaign) error

	// GetCampaign retrieves a Campaign by id.
	GetCampaign(id string) (*Campaign, error)

	// UpdateCampaignStatus moves a Campaign between lifecycle states.
	UpdateCampaignStatus(id string, status CampaignStatus) error

	// ListCampaigns returns all Campaigns, optionally filtered by status.
	ListCampaigns(status CampaignStatus) ([]*Campaign, error)

	// ApplyStatsDelta additively updates a Campaign's counters and
	// recomputes derived rates under a single lock. Concurrent deltas
	// must all land (no lost updates).
	ApplyStatsDelta(campaignID string, delta StatsDelta) error

	// CreateProspect persists a new Prospect.
	CreateProspect(p *Prospect) error

	// GetProspect retrieves a Prospect by id.
	GetProspect(id string) (*Prospect, error)

	// UpdateProspect replaces mutable non-state fields of a Prospect.
	// State moves go through TransitionProspect.
	UpdateProspect(p *Prospect) error

	// ListProspects returns a Campaign's Prospects in creation order.
	ListProspects(campaignID string) ([]*Prospect, error)

	// ListProspectsByStatus returns all Prospects in the given state,
	// across campaigns.
	ListProspectsByStatus(status ProspectStatus) ([]*Prospect, error)

	// ListDueProspects returns Prospects whose next_follow_up_at is at or
	// before now and whose state is one of the awaiting-follow-up states.
	ListDueProspects(now time.Time) ([]*Prospect, error)

	// TransitionProspect atomically moves a Prospect from an expected
	// current state to the next one, applying mutate to the record while
	// the lock is held. Fails with ErrInvalidTransition when the Prospect
	// is no longer in the expected state or the move is illegal.
	TransitionProspect(id string, from, to ProspectStatus, mutate func(*Prospect)) error

	// CreateEmail records a contact attempt. A successfully sent email
	// whose type the Prospect already carries is rejected with
	// ErrDuplicateEmailType; failed attempts may repeat.
	CreateEmail(e *OutreachEmail) error

	// GetEmail retrieves an email by id.
	GetEmail(id string) (*OutreachEmail, error)

	// GetEmailByProviderID resolves a channel collaborator event key.
	GetEmailByProviderID(providerMessageID string) (*OutreachEmail, error)

	// ListEmails returns a Prospect's emails ordered by send time.
	ListEmails(prospectID string) ([]*OutreachEmail, error)

	// ListCampaignEmails returns a Campaign's most recent emails, newest
	// first, capped at limit.
	ListCampaignEmails(campaignID string, limit int) ([]*OutreachEmail, error)

	// HasSentEmailOfType reports whether the Prospect already has a
	// successfully sent email of the given type.
	HasSentEmailOfType(prospectID string, t EmailType) (bool, error)

	// UpdateEmailEvents appends channel event timestamps to a sent email.
	UpdateEmailEvents(e *OutreachEmail) error
}
