package citizen

import (
	"context"

	"github.com/google/uuid"
)

// Reader is the lookup surface other stores depend on for validity checks.
type Reader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Citizen, error)
}

// Store persists citizens. Implementations return sentinel errors
// (sentinel.ErrNotFound, sentinel.ErrConflict) so the service can translate
// them into domain errors.
type Store interface {
	Reader
	Create(ctx context.Context, c *Citizen) error
	FindByCode(ctx context.Context, code string) (*Citizen, error)
	Update(ctx context.Context, c *Citizen) error
}
