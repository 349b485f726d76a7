package citizen

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/sentinel"
)

// MembershipCloser is the household store primitive the identity store uses
// to force-close a retiring citizen's membership. Message-passing between
// stores; this service never touches household rows directly.
type MembershipCloser interface {
	CloseMembership(ctx context.Context, citizenID uuid.UUID, effectiveDate time.Time) error
}

// CertificateChecker reports whether a citizen appears on any birth or death
// certificate. Citizens with certificate history are never retired.
type CertificateChecker interface {
	HasCertificates(ctx context.Context, citizenID uuid.UUID) (bool, error)
}

// Clock abstracts time.Now for tests.
type Clock func() time.Time

// Service owns the citizen lifecycle. Status transitions other than
// retirement live with the vital event registrar.
type Service struct {
	store        Store
	memberships  MembershipCloser
	certificates CertificateChecker
	clock        Clock
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs the identity service.
func NewService(store Store, memberships MembershipCloser, certificates CertificateChecker, opts ...Option) *Service {
	s := &Service{
		store:        store,
		memberships:  memberships,
		certificates: certificates,
		clock:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateInput carries registration data for a new citizen.
type CreateInput struct {
	Code             string
	FullName         string
	DateOfBirth      time.Time
	Gender           Gender
	PermanentAddress string
	WardCode         string
}

// Create registers a new citizen.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Citizen, error) {
	c, err := NewCitizen(in.Code, in.FullName, in.DateOfBirth, in.Gender, in.PermanentAddress, in.WardCode, s.clock())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "citizen code %s already registered", in.Code)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create citizen")
	}
	return c, nil
}

// Get returns a citizen by ID regardless of status; soft-deleted citizens
// stay readable for audit snapshots.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Citizen, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "citizen %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find citizen")
	}
	return c, nil
}

// UpdatePatch carries the attributes a generic update may change. Status,
// IsActive, and Code are deliberately absent: the business key is immutable
// and lifecycle fields are mutated only by retirement and death
// registration.
type UpdatePatch struct {
	FullName         *string
	DateOfBirth      *time.Time
	Gender           *Gender
	PermanentAddress *string
	WardCode         *string
}

// Update applies a patch to a citizen's descriptive attributes.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch UpdatePatch) (*Citizen, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "citizen %s is retired", c.Code)
	}

	if patch.FullName != nil {
		if *patch.FullName == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "full name cannot be empty")
		}
		c.FullName = *patch.FullName
	}
	if patch.DateOfBirth != nil {
		if patch.DateOfBirth.After(s.clock()) {
			return nil, dErrors.New(dErrors.CodeValidation, "date of birth cannot be in the future")
		}
		c.DateOfBirth = *patch.DateOfBirth
	}
	if patch.Gender != nil {
		if !patch.Gender.valid() {
			return nil, dErrors.Newf(dErrors.CodeValidation, "unknown gender %q", *patch.Gender)
		}
		c.Gender = *patch.Gender
	}
	if patch.PermanentAddress != nil {
		c.PermanentAddress = *patch.PermanentAddress
	}
	if patch.WardCode != nil {
		if *patch.WardCode == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "ward code cannot be empty")
		}
		c.WardCode = *patch.WardCode
	}
	c.UpdatedAt = s.clock()

	if err := s.store.Update(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update citizen")
	}
	return c, nil
}

// Retire soft-deletes a citizen. Citizens appearing on any certificate keep
// their record forever; retirement fails with Conflict. A current household
// membership, if any, is closed as of today through the household store's
// primitive.
func (s *Service) Retire(ctx context.Context, id uuid.UUID) (*Citizen, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.CanRetire(); err != nil {
		return nil, err
	}

	hasCerts, err := s.certificates.HasCertificates(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check certificate history")
	}
	if hasCerts {
		return nil, dErrors.Newf(dErrors.CodeConflict, "citizen %s has certificate history and cannot be retired", c.Code)
	}

	now := s.clock()
	c.ApplyRetirement(now)
	if err := s.store.Update(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "retire citizen")
	}
	if err := s.memberships.CloseMembership(ctx, id, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "close membership on retirement")
	}
	return c, nil
}

// MarkDeceased flips a citizen to deceased. Reserved for the vital event
// registrar; membership closure is the registrar's responsibility so the
// leave date can be the date of death rather than today.
func (s *Service) MarkDeceased(ctx context.Context, id uuid.UUID, now time.Time) (*Citizen, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.CanMarkDeceased(); err != nil {
		return nil, err
	}
	c.ApplyDeceased(now)
	if err := s.store.Update(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mark citizen deceased")
	}
	return c, nil
}
