package txrunner

import (
	"context"
	"sync"
)

// SnapshotRestorer is implemented by the in-memory stores so the memory
// runner can roll their state back when an operation fails partway through.
type SnapshotRestorer interface {
	Snapshot() any
	Restore(snapshot any)
}

// Memory provides the same all-or-nothing semantics as the Postgres runner
// for in-memory stores: a coarse lock serializes operations, and every
// registered store is snapshotted before fn runs and restored if it fails.
type Memory struct {
	mu     sync.Mutex
	stores []SnapshotRestorer
}

// NewMemory constructs a memory runner over the given stores.
func NewMemory(stores ...SnapshotRestorer) *Memory {
	return &Memory{stores: stores}
}

func (m *Memory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshots := make([]any, len(m.stores))
	for i, store := range m.stores {
		snapshots[i] = store.Snapshot()
	}

	if err := fn(ctx); err != nil {
		for i, store := range m.stores {
			store.Restore(snapshots[i])
		}
		return err
	}
	return nil
}
