package household

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"civreg/pkg/platform/sentinel"
)

// InMemory is the in-memory household store used by unit tests and the
// memory transaction runner. It enforces the same open-membership
// exclusivity the partial unique index enforces in PostgreSQL.
type InMemory struct {
	mu         sync.RWMutex
	households map[uuid.UUID]*Household
	members    map[uuid.UUID]*Member
	wardSeqs   map[string]int
}

// NewInMemory constructs an empty in-memory household store.
func NewInMemory() *InMemory {
	return &InMemory{
		households: make(map[uuid.UUID]*Household),
		members:    make(map[uuid.UUID]*Member),
		wardSeqs:   make(map[string]int),
	}
}

func (s *InMemory) CreateHousehold(_ context.Context, h *Household, head *Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.households {
		if existing.Code == h.Code {
			return fmt.Errorf("household code %s: %w", h.Code, sentinel.ErrConflict)
		}
		if existing.HeadID == h.HeadID {
			return fmt.Errorf("head %s: %w", h.HeadID, sentinel.ErrConflict)
		}
	}
	if s.openMembershipLocked(head.CitizenID) != nil {
		return fmt.Errorf("citizen %s already a member: %w", head.CitizenID, sentinel.ErrConflict)
	}
	hc, mc := *h, *head
	s.households[h.ID] = &hc
	s.members[head.ID] = &mc
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.households[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	hc := *h
	return &hc, nil
}

func (s *InMemory) FindByCode(_ context.Context, code string) (*Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.households {
		if h.Code == code {
			hc := *h
			return &hc, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByHead(_ context.Context, citizenID uuid.UUID) (*Household, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.households {
		if h.HeadID == citizenID {
			hc := *h
			return &hc, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindCurrentMembership(_ context.Context, citizenID uuid.UUID) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m := s.openMembershipLocked(citizenID); m != nil {
		mc := *m
		return &mc, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindCurrentMember(_ context.Context, householdID, citizenID uuid.UUID) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.IsCurrent && m.HouseholdID == householdID && m.CitizenID == citizenID {
			mc := *m
			return &mc, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListCurrentMembers(_ context.Context, householdID uuid.UUID) ([]*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var members []*Member
	for _, m := range s.members {
		if m.IsCurrent && m.HouseholdID == householdID {
			mc := *m
			members = append(members, &mc)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinDate.Equal(members[j].JoinDate) {
			return members[i].JoinDate.Before(members[j].JoinDate)
		}
		return members[i].ID.String() < members[j].ID.String()
	})
	return members, nil
}

func (s *InMemory) InsertMember(_ context.Context, m *Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.IsCurrent && s.openMembershipLocked(m.CitizenID) != nil {
		return fmt.Errorf("citizen %s already a member: %w", m.CitizenID, sentinel.ErrConflict)
	}
	mc := *m
	s.members[m.ID] = &mc
	return nil
}

func (s *InMemory) CloseMember(_ context.Context, memberID uuid.UUID, leaveDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok || !m.IsCurrent {
		return fmt.Errorf("member %s: %w", memberID, sentinel.ErrNotFound)
	}
	ld := leaveDate
	m.IsCurrent = false
	m.LeaveDate = &ld
	return nil
}

func (s *InMemory) UpdateMemberRelationship(_ context.Context, memberID uuid.UUID, rel Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberID]
	if !ok {
		return fmt.Errorf("member %s: %w", memberID, sentinel.ErrNotFound)
	}
	m.Relationship = rel
	return nil
}

func (s *InMemory) UpdateHousehold(_ context.Context, h *Household) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.households[h.ID]; !ok {
		return fmt.Errorf("household %s: %w", h.ID, sentinel.ErrNotFound)
	}
	for _, existing := range s.households {
		if existing.ID != h.ID && existing.HeadID == h.HeadID {
			return fmt.Errorf("head %s: %w", h.HeadID, sentinel.ErrConflict)
		}
	}
	hc := *h
	// The member count moves only through AdjustMemberCount.
	hc.MemberCount = s.households[h.ID].MemberCount
	s.households[h.ID] = &hc
	return nil
}

func (s *InMemory) AdjustMemberCount(_ context.Context, householdID uuid.UUID, delta int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.households[householdID]
	if !ok {
		return fmt.Errorf("household %s: %w", householdID, sentinel.ErrNotFound)
	}
	next := h.MemberCount + delta
	if next < 0 || next > MaxMembers {
		return fmt.Errorf("household %s member count %d: %w", householdID, next, sentinel.ErrConflict)
	}
	h.MemberCount = next
	h.UpdatedAt = now
	return nil
}

func (s *InMemory) NextCode(_ context.Context, wardCode string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wardSeqs[wardCode]++
	return FormatCode(wardCode, s.wardSeqs[wardCode]), nil
}

func (s *InMemory) openMembershipLocked(citizenID uuid.UUID) *Member {
	for _, m := range s.members {
		if m.IsCurrent && m.CitizenID == citizenID {
			return m
		}
	}
	return nil
}

type memorySnapshot struct {
	households map[uuid.UUID]*Household
	members    map[uuid.UUID]*Member
	wardSeqs   map[string]int
}

// Snapshot captures the store state for the memory transaction runner.
func (s *InMemory) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := memorySnapshot{
		households: make(map[uuid.UUID]*Household, len(s.households)),
		members:    make(map[uuid.UUID]*Member, len(s.members)),
		wardSeqs:   make(map[string]int, len(s.wardSeqs)),
	}
	for id, h := range s.households {
		hc := *h
		snap.households[id] = &hc
	}
	for id, m := range s.members {
		mc := *m
		snap.members[id] = &mc
	}
	for ward, seq := range s.wardSeqs {
		snap.wardSeqs[ward] = seq
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
	s.households = snap.households
	s.members = snap.members
	s.wardSeqs = snap.wardSeqs
}
