package residency

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists temporary residence and absence records. The partial
// unique indexes on open records are the final arbiter for the
// one-open-record-per-citizen invariants.
type Store interface {
	CreateResidence(ctx context.Context, r *TemporaryResidence) error
	FindResidence(ctx context.Context, id uuid.UUID) (*TemporaryResidence, error)
	// FindOpenResidence returns the citizen's record with status in
	// {active, extended}, if any.
	FindOpenResidence(ctx context.Context, citizenID uuid.UUID) (*TemporaryResidence, error)
	UpdateResidence(ctx context.Context, r *TemporaryResidence) error
	// ExpireOverdueResidences closes every open residence whose end date is
	// before asOf and returns how many rows changed.
	ExpireOverdueResidences(ctx context.Context, asOf time.Time) (int64, error)

	CreateAbsence(ctx context.Context, a *TemporaryAbsence) error
	FindAbsence(ctx context.Context, id uuid.UUID) (*TemporaryAbsence, error)
	FindOpenAbsence(ctx context.Context, citizenID uuid.UUID) (*TemporaryAbsence, error)
	UpdateAbsence(ctx context.Context, a *TemporaryAbsence) error
}
