package vitalevent

import (
	"context"

	"github.com/google/uuid"
)

// Store persists certificates and the month-scoped numbering sequences.
type Store interface {
	CreateBirth(ctx context.Context, cert *BirthCertificate) error
	FindBirth(ctx context.Context, id uuid.UUID) (*BirthCertificate, error)
	FindBirthByChild(ctx context.Context, childID uuid.UUID) (*BirthCertificate, error)

	CreateDeath(ctx context.Context, cert *DeathCertificate) error
	FindDeath(ctx context.Context, id uuid.UUID) (*DeathCertificate, error)
	FindDeathByCitizen(ctx context.Context, citizenID uuid.UUID) (*DeathCertificate, error)

	// NextSequence allocates the next certificate number within a month
	// (month formatted YYYYMM). The read-and-increment holds a row lock for
	// the rest of the enclosing transaction so concurrent registrations in
	// the same month cannot share a number.
	NextSequence(ctx context.Context, kind Kind, month string) (int, error)

	// HasCertificates reports whether the citizen appears on any birth
	// certificate (as child or parent) or death certificate. Citizens with
	// certificate history are never physically retired.
	HasCertificates(ctx context.Context, citizenID uuid.UUID) (bool, error)
}
