package targets

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a lookup misses.
var ErrNotFound = errors.New("target not found")

// Store defines the persistence operations the registry depends on. The
// concrete backend is a collaborator; memorystore provides the reference
// implementation.
type Store interface {
	// CreateTarget persists a new Target. Fails if the URL is already tracked.
	CreateTarget(t *Target) error

	// GetTarget retrieves a Target by id.
	GetTarget(id string) (*Target, error)

	// GetTargetByURL retrieves a Target by its exact URL.
	GetTargetByURL(url string) (*Target, error)

	// UpdateTarget replaces a stored Target.
	UpdateTarget(t *Target) error

	// DeleteTarget removes a Target. Reserved for explicit operator action.
	DeleteTarget(id string) error

	// ListTargets returns all Targets, optionally filtered by status.
	ListTargets(status TargetStatus) ([]*Target, error)

	// ListStaleTargets returns verified Targets whose LastVerified is older
	// than the cutoff.
	ListStaleTargets(cutoff time.Time) ([]*Target, error)

	// SetTargetStatus transitions a Target's lifecycle status and refreshes
	// its verification timestamps atomically.
	SetTargetStatus(id string, status TargetStatus, lastVerified, nextVerification time.Time) error

	// CreateSubmission persists a SubmissionAttempt.
	CreateSubmission(a *SubmissionAttempt) error

	// GetSubmission retrieves a SubmissionAttempt by id.
	GetSubmission(id string) (*SubmissionAttempt, error)

	// UpdateSubmission replaces a stored attempt. Implementations must reject
	// updates to attempts whose status is already terminal.
	UpdateSubmission(a *SubmissionAttempt) error

	// ListSubmissions returns the attempts recorded against a Target.
	ListSubmissions(targetID string) ([]*SubmissionAttempt, error)

	// ApplyPerformanceDelta additively updates a Target's performance
	// counters under a single lock.
	ApplyPerformanceDelta(targetID string, delta PerformanceDelta) error
}

// PerformanceDelta is a partial, additive update to PerformanceHistory.
type PerformanceDelta struct {
	TotalSubmissions      int
	SuccessfulSubmissions int
	RejectedSubmissions   int
	PendingSubmissions    int
}
