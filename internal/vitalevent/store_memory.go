package vitalevent

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"civreg/pkg/platform/sentinel"
)

// InMemory is the in-memory certificate store used by unit tests and the
// memory transaction runner.
type InMemory struct {
	mu     sync.RWMutex
	births map[uuid.UUID]*BirthCertificate
	deaths map[uuid.UUID]*DeathCertificate
	seqs   map[string]int
}

// NewInMemory constructs an empty in-memory certificate store.
func NewInMemory() *InMemory {
	return &InMemory{
		births: make(map[uuid.UUID]*BirthCertificate),
		deaths: make(map[uuid.UUID]*DeathCertificate),
		seqs:   make(map[string]int),
	}
}

func (s *InMemory) CreateBirth(_ context.Context, cert *BirthCertificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.births {
		if existing.ChildID == cert.ChildID {
			return fmt.Errorf("child %s already has a birth certificate: %w", cert.ChildID, sentinel.ErrConflict)
		}
		if existing.Number == cert.Number {
			return fmt.Errorf("certificate number %s: %w", cert.Number, sentinel.ErrConflict)
		}
	}
	cp := *cert
	s.births[cert.ID] = &cp
	return nil
}

func (s *InMemory) FindBirth(_ context.Context, id uuid.UUID) (*BirthCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.births[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *cert
	return &cp, nil
}

func (s *InMemory) FindBirthByChild(_ context.Context, childID uuid.UUID) (*BirthCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cert := range s.births {
		if cert.ChildID == childID {
			cp := *cert
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) CreateDeath(_ context.Context, cert *DeathCertificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.deaths {
		if existing.CitizenID == cert.CitizenID {
			return fmt.Errorf("citizen %s already has a death certificate: %w", cert.CitizenID, sentinel.ErrConflict)
		}
		if existing.Number == cert.Number {
			return fmt.Errorf("certificate number %s: %w", cert.Number, sentinel.ErrConflict)
		}
	}
	cp := *cert
	s.deaths[cert.ID] = &cp
	return nil
}

func (s *InMemory) FindDeath(_ context.Context, id uuid.UUID) (*DeathCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.deaths[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *cert
	return &cp, nil
}

func (s *InMemory) FindDeathByCitizen(_ context.Context, citizenID uuid.UUID) (*DeathCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cert := range s.deaths {
		if cert.CitizenID == citizenID {
			cp := *cert
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) NextSequence(_ context.Context, kind Kind, month string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := string(kind) + ":" + month
	s.seqs[key]++
	return s.seqs[key], nil
}

func (s *InMemory) HasCertificates(_ context.Context, citizenID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cert := range s.births {
		if cert.ChildID == citizenID {
			return true, nil
		}
		if cert.FatherID != nil && *cert.FatherID == citizenID {
			return true, nil
		}
		if cert.MotherID != nil && *cert.MotherID == citizenID {
			return true, nil
		}
	}
	for _, cert := range s.deaths {
		if cert.CitizenID == citizenID {
			return true, nil
		}
	}
	return false, nil
}

type memorySnapshot struct {
	births map[uuid.UUID]*BirthCertificate
	deaths map[uuid.UUID]*DeathCertificate
	seqs   map[string]int
}

// Snapshot captures the store state for the memory transaction runner.
func (s *InMemory) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := memorySnapshot{
		births: make(map[uuid.UUID]*BirthCertificate, len(s.births)),
		deaths: make(map[uuid.UUID]*DeathCertificate, len(s.deaths)),
		seqs:   make(map[string]int, len(s.seqs)),
	}
	for id, cert := range s.births {
		cp := *cert
		snap.births[id] = &cp
	}
	for id, cert := range s.deaths {
		cp := *cert
		snap.deaths[id] = &cp
	}
	for key, seq := range s.seqs {
		snap.seqs[key] = seq
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
	s.births = snap.births
	s.deaths = snap.deaths
	s.seqs = snap.seqs
}
