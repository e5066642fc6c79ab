// File: backend/internal/memorystore/target_store.go

// Package memorystore provides the in-memory reference implementations of the
// targets and outreach store contracts. All mutations happen under the
// store's lock; reads hand out copies so callers never share mutable state.
package memorystore

import (
	"fmt"
	"sync"
	"time"

	"github.com/belonio2793/backlinkoo/backend/internal/targets"
)

// TargetStore is the in-memory targets.Store.
type TargetStore struct {
	mu          sync.RWMutex
	targets     map[string]*targets.Target
	byURL       map[string]string
	order       []string
	submissions map[string]*targets.SubmissionAttempt
	subsByID    map[string][]string // targetID -> submission ids in creation order
}

func NewTargetStore() *TargetStore {
	return &TargetStore{
		targets:     make(map[string]*targets.Target),
		byURL:       make(map[string]string),
		submissions: make(map[string]*targets.SubmissionAttempt),
		subsByID:    make(map[string][]string),
	}
}

func (s *TargetStore) CreateTarget(t *targets.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.targets[t.ID]; exists {
		return fmt.Errorf("target with ID '%s' already exists", t.ID)
	}
	if _, exists := s.byURL[t.URL]; exists {
		return fmt.Errorf("target URL '%s' already tracked", t.URL)
	}
	stored := *t
	s.targets[t.ID] = &stored
	s.byURL[t.URL] = t.ID
	s.order = append(s.order, t.ID)
	return nil
}

func (s *TargetStore) GetTarget(id string) (*targets.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, exists := s.targets[id]
	if !exists {
		return nil, targets.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (s *TargetStore) GetTargetByURL(url string) (*targets.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, exists := s.byURL[url]
	if !exists {
		return nil, targets.ErrNotFound
	}
	copied := *s.targets[id]
	return &copied, nil
}

func (s *TargetStore) UpdateTarget(t *targets.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.targets[t.ID]
	if !exists {
		return targets.ErrNotFound
	}
	if stored.URL != t.URL {
		delete(s.byURL, stored.URL)
		s.byURL[t.URL] = t.ID
	}
	updated := *t
	s.targets[t.ID] = &updated
	return nil
}

func (s *TargetStore) DeleteTarget(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.targets[id]
	if !exists {
		return targets.ErrNotFound
	}
	delete(s.byURL, stored.URL)
	delete(s.targets, id)
	for i, ordered := range s.order {
		if ordered == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListTargets returns targets in creation order. An empty status returns all.
func (s *TargetStore) ListTargets(status targets.TargetStatus) ([]*targets.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*targets.Target, 0, len(s.order))
	for _, id := range s.order {
		stored := s.targets[id]
		if status != "" && stored.Status != status {
			continue
		}
		copied := *stored
		list = append(list, &copied)
	}
	return list, nil
}

func (s *TargetStore) ListStaleTargets(cutoff time.Time) ([]*targets.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stale []*targets.Target
	for _, id := range s.order {
		stored := s.targets[id]
		if stored.Status != targets.StatusVerified {
			continue
		}
		if stored.LastVerified.Before(cutoff) {
			copied := *stored
			stale = append(stale, &copied)
		}
	}
	return stale, nil
}

func (s *TargetStore) SetTargetStatus(id string, status targets.TargetStatus, lastVerified, nextVerification time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.targets[id]
	if !exists {
		return targets.ErrNotFound
	}
	stored.Status = status
	stored.LastVerified = lastVerified
	stored.NextVerification = nextVerification
	return nil
}

func (s *TargetStore) CreateSubmission(a *targets.SubmissionAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.submissions[a.ID]; exists {
		return fmt.Errorf("submission with ID '%s' already exists", a.ID)
	}
	if _, exists := s.targets[a.TargetID]; !exists {
		return targets.ErrNotFound
	}
	stored := *a
	s.submissions[a.ID] = &stored
	s.subsByID[a.TargetID] = append(s.subsByID[a.TargetID], a.ID)
	return nil
}

func (s *TargetStore) GetSubmission(id string) (*targets.SubmissionAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, exists := s.submissions[id]
	if !exists {
		return nil, targets.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (s *TargetStore) UpdateSubmission(a *targets.SubmissionAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.submissions[a.ID]
	if !exists {
		return targets.ErrNotFound
	}
	if stored.Status.IsTerminal() {
		return fmt.Errorf("submission '%s' is already terminal (%s)", a.ID, stored.Status)
	}
	updated := *a
	s.submissions[a.ID] = &updated
	return nil
}

func (s *TargetStore) ListSubmissions(targetID string) ([]*targets.SubmissionAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.subsByID[targetID]
	list := make([]*targets.SubmissionAttempt, 0, len(ids))
	for _, id := range ids {
		copied := *s.submissions[id]
		list = append(list, &copied)
	}
	return list, nil
}

func (s *TargetStore) ApplyPerformanceDelta(targetID string, delta targets.PerformanceDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, exists := s.targets[targetID]
	if !exists {
		return targets.ErrNotFound
	}
	stored.Performance.TotalSubmissions += delta.TotalSubmissions
	stored.Performance.SuccessfulSubmissions += delta.SuccessfulSubmissions
	stored.Performance.RejectedSubmissions += delta.RejectedSubmissions
	stored.Performance.PendingSubmissions += delta.PendingSubmissions
	stored.Performance.LastUpdate = time.Now().UTC()
	return nil
}
