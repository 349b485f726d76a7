package citizen

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"civreg/pkg/platform/sentinel"
)

// InMemory is the in-memory citizen store used by unit tests and the memory
// transaction runner.
type InMemory struct {
	mu       sync.RWMutex
	citizens map[uuid.UUID]*Citizen
	byCode   map[string]uuid.UUID
}

// NewInMemory constructs an empty in-memory citizen store.
func NewInMemory() *InMemory {
	return &InMemory{
		citizens: make(map[uuid.UUID]*Citizen),
		byCode:   make(map[string]uuid.UUID),
	}
}

func (s *InMemory) Create(_ context.Context, c *Citizen) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byCode[c.Code]; exists {
		return fmt.Errorf("citizen code %s: %w", c.Code, sentinel.ErrConflict)
	}
	cp := *c
	s.citizens[c.ID] = &cp
	s.byCode[c.Code] = c.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*Citizen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.citizens[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemory) FindByCode(_ context.Context, code string) (*Citizen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.citizens[id]
	return &cp, nil
}

func (s *InMemory) Update(_ context.Context, c *Citizen) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.citizens[c.ID]; !ok {
		return fmt.Errorf("citizen %s: %w", c.ID, sentinel.ErrNotFound)
	}
	cp := *c
	s.citizens[c.ID] = &cp
	return nil
}

type memorySnapshot struct {
	citizens map[uuid.UUID]*Citizen
	byCode   map[string]uuid.UUID
}

// Snapshot captures the store state for the memory transaction runner.
func (s *InMemory) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := memorySnapshot{
		citizens: make(map[uuid.UUID]*Citizen, len(s.citizens)),
		byCode:   make(map[string]uuid.UUID, len(s.byCode)),
	}
	for id, c := range s.citizens {
		cp := *c
		snap.citizens[id] = &cp
	}
	for code, id := range s.byCode {
		snap.byCode[code] = id
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
	s.citizens = snap.citizens
	s.byCode = snap.byCode
}
