package household

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists households and their membership rows. Implementations
// return sentinel errors for factual failures; the partial unique index on
// open memberships is the final arbiter for the one-household-per-citizen
// invariant.
type Store interface {
	// CreateHousehold inserts the household and its head member row
	// atomically (both inserts run in the caller's transaction).
	CreateHousehold(ctx context.Context, h *Household, head *Member) error

	FindByID(ctx context.Context, id uuid.UUID) (*Household, error)
	FindByCode(ctx context.Context, code string) (*Household, error)

	// FindByHead returns the household a citizen currently heads, if any.
	FindByHead(ctx context.Context, citizenID uuid.UUID) (*Household, error)

	// FindCurrentMembership returns the citizen's open membership row
	// anywhere in the system.
	FindCurrentMembership(ctx context.Context, citizenID uuid.UUID) (*Member, error)

	// FindCurrentMember returns the citizen's open membership row in this
	// specific household.
	FindCurrentMember(ctx context.Context, householdID, citizenID uuid.UUID) (*Member, error)

	ListCurrentMembers(ctx context.Context, householdID uuid.UUID) ([]*Member, error)

	InsertMember(ctx context.Context, m *Member) error

	// CloseMember clears IsCurrent and stamps the leave date on one row.
	CloseMember(ctx context.Context, memberID uuid.UUID, leaveDate time.Time) error

	UpdateMemberRelationship(ctx context.Context, memberID uuid.UUID, rel Relationship) error

	// UpdateHousehold writes address, ward and head. It never writes the
	// member count; that moves only through AdjustMemberCount.
	UpdateHousehold(ctx context.Context, h *Household) error

	// AdjustMemberCount applies a relative delta to the denormalized member
	// count. The store enforces the 0..MaxMembers bound and reports a
	// violation as sentinel.ErrConflict.
	AdjustMemberCount(ctx context.Context, householdID uuid.UUID, delta int, now time.Time) error

	// NextCode allocates the next household code for a ward. The
	// read-and-increment must hold a row lock for the rest of the enclosing
	// transaction.
	NextCode(ctx context.Context, wardCode string) (string, error)
}
