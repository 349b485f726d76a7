package outbox

import (
	"context"
	"sync"
)

// InMemory collects outbox entries for unit tests and the memory
// transaction runner.
type InMemory struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemory constructs an empty in-memory outbox.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Entries returns a copy of the appended entries.
func (s *InMemory) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries...)
}

// Snapshot captures the store state for the memory transaction runner.
func (s *InMemory) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries...)
}

// Restore resets the store to a previously captured snapshot.
func (s *InMemory) Restore(snapshot any) {
	entries, ok := snapshot.([]Entry)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
}
