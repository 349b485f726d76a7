package residency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"civreg/pkg/platform/sentinel"
)

// InMemory is the in-memory residency store used by unit tests and the
// memory transaction runner.
type InMemory struct {
	mu         sync.RWMutex
	residences map[uuid.UUID]*TemporaryResidence
	absences   map[uuid.UUID]*TemporaryAbsence
}

// NewInMemory constructs an empty in-memory residency store.
func NewInMemory() *InMemory {
	return &InMemory{
		residences: make(map[uuid.UUID]*TemporaryResidence),
		absences:   make(map[uuid.UUID]*TemporaryAbsence),
	}
}

func (s *InMemory) CreateResidence(_ context.Context, r *TemporaryResidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.Status.Open() {
		for _, existing := range s.residences {
			if existing.CitizenID == r.CitizenID && existing.Status.Open() {
				return fmt.Errorf("citizen %s has an open residence: %w", r.CitizenID, sentinel.ErrConflict)
			}
		}
	}
	rc := *r
	s.residences[r.ID] = &rc
	return nil
}

func (s *InMemory) FindResidence(_ context.Context, id uuid.UUID) (*TemporaryResidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.residences[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rc := *r
	return &rc, nil
}

func (s *InMemory) FindOpenResidence(_ context.Context, citizenID uuid.UUID) (*TemporaryResidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.residences {
		if r.CitizenID == citizenID && r.Status.Open() {
			rc := *r
			return &rc, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) UpdateResidence(_ context.Context, r *TemporaryResidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.residences[r.ID]; !ok {
		return fmt.Errorf("residence %s: %w", r.ID, sentinel.ErrNotFound)
	}
	rc := *r
	s.residences[r.ID] = &rc
	return nil
}

func (s *InMemory) ExpireOverdueResidences(_ context.Context, asOf time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.residences {
		if r.Status.Open() && r.EndDate.Before(asOf) {
			r.Status = ResidenceExpired
			r.UpdatedAt = asOf
			n++
		}
	}
	return n, nil
}

func (s *InMemory) CreateAbsence(_ context.Context, a *TemporaryAbsence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Status.Open() {
		for _, existing := range s.absences {
			if existing.CitizenID == a.CitizenID && existing.Status.Open() {
				return fmt.Errorf("citizen %s has an open absence: %w", a.CitizenID, sentinel.ErrConflict)
			}
		}
	}
	ac := *a
	s.absences[a.ID] = &ac
	return nil
}

func (s *InMemory) FindAbsence(_ context.Context, id uuid.UUID) (*TemporaryAbsence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.absences[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	ac := *a
	return &ac, nil
}

func (s *InMemory) FindOpenAbsence(_ context.Context, citizenID uuid.UUID) (*TemporaryAbsence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.absences {
		if a.CitizenID == citizenID && a.Status.Open() {
			ac := *a
			return &ac, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) UpdateAbsence(_ context.Context, a *TemporaryAbsence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.absences[a.ID]; !ok {
		return fmt.Errorf("absence %s: %w", a.ID, sentinel.ErrNotFound)
	}
	ac := *a
	s.absences[a.ID] = &ac
	return nil
}

type memorySnapshot struct {
	residences map[uuid.UUID]*TemporaryResidence
	absences   map[uuid.UUID]*TemporaryAbsence
}

// Snapshot captures the store state for the memory transaction runner.
func (s *InMemory) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := memorySnapshot{
		residences: make(map[uuid.UUID]*TemporaryResidence, len(s.residences)),
		absences:   make(map[uuid.UUID]*TemporaryAbsence, len(s.absences)),
	}
	for id, r := range s.residences {
		rc := *r
		snap.residences[id] = &rc
	}
	for id, a := range s.absences {
		ac := *a
		snap.absences[id] = &ac
	}
	return snap
}

// Restore resets the store to a previously captured snapshot.
func (s *InMemory) Restore(snapshot any) {
	snap, ok := snapshot.(memorySnapshot)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.residences = snap.residences
	s.absences = snap.absences
}
