//go:build integration

package containers

import (
	"sync"
	"testing"
)

// Manager owns the containers shared across integration test suites.
// Starting a fresh Postgres per suite dominates test runtime, so the
// first caller pays the startup cost and everyone else reuses it.
// Ryuk terminates the containers when the test process exits.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
}

var (
	manager     *Manager
	managerOnce sync.Once
)

// GetManager returns the process-wide container manager.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

// GetPostgres returns the shared Postgres container, starting it on first use.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.postgres == nil {
		m.postgres = NewPostgresContainer(t)
	}
	return m.postgres
}
