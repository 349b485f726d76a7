package vitalevent

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"civreg/internal/citizen"
	"civreg/internal/household"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/sentinel"
)

// CitizenRegistry is what the registrar needs from the identity service:
// lookups plus the deceased transition, which is reserved for death
// registration.
type CitizenRegistry interface {
	Get(ctx context.Context, id uuid.UUID) (*citizen.Citizen, error)
	MarkDeceased(ctx context.Context, id uuid.UUID, now time.Time) (*citizen.Citizen, error)
}

// HouseholdRegistry is what the registrar needs from the household service.
// Enrollment and closure go through these primitives; the registrar never
// touches membership rows directly.
type HouseholdRegistry interface {
	CurrentMembership(ctx context.Context, citizenID uuid.UUID) (*household.Member, error)
	AddMember(ctx context.Context, householdID, citizenID uuid.UUID, relationship household.Relationship) (*household.Member, error)
	CloseMembership(ctx context.Context, citizenID uuid.UUID, effectiveDate time.Time) error
}

// Logger is the subset of *log.Logger the registrar uses.
type Logger interface {
	Printf(format string, v ...any)
}

// Metrics is the subset of the engine metrics the registrar records.
type Metrics interface {
	IncEnrollmentsSkipped()
}

type nopMetrics struct{}

func (nopMetrics) IncEnrollmentsSkipped() {}

// Clock abstracts time.Now for tests.
type Clock func() time.Time

// Service issues birth and death certificates and drives the citizen
// lifecycle changes they imply.
type Service struct {
	store      Store
	citizens   CitizenRegistry
	households HouseholdRegistry
	log        Logger
	metrics    Metrics
	clock      Clock
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

// WithMetrics attaches the engine metrics. Without it skips are still
// logged, just not counted.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewService constructs the vital event registrar.
func NewService(store Store, citizens CitizenRegistry, households HouseholdRegistry, log Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		citizens:   citizens,
		households: households,
		log:        log,
		metrics:    nopMetrics{},
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// RegisterBirthInput carries a birth registration request. Father and
// mother are individually optional; at least one is required.
type RegisterBirthInput struct {
	ChildID      uuid.UUID
	FatherID     *uuid.UUID
	MotherID     *uuid.UUID
	PlaceOfBirth string
}

// RegisterBirth issues a birth certificate for a recently registered child
// and, best effort, enrolls the child into a parent's household.
func (s *Service) RegisterBirth(ctx context.Context, in RegisterBirthInput) (*BirthCertificate, error) {
	if in.FatherID == nil && in.MotherID == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one parent is required")
	}
	if in.PlaceOfBirth == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "place of birth is required")
	}

	child, err := s.citizens.Get(ctx, in.ChildID)
	if err != nil {
		return nil, err
	}
	if !child.IsActive || child.Status != citizen.StatusActive {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "child %s is not active", child.Code)
	}
	now := s.clock()
	if child.AgeInDays(now) > MaxRegistrationAgeDays {
		return nil, dErrors.Newf(dErrors.CodeValidation, "child %s is older than %d days", child.Code, MaxRegistrationAgeDays)
	}

	if _, err := s.store.FindBirthByChild(ctx, in.ChildID); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "child %s already has a birth certificate", child.Code)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check existing birth certificate")
	}

	if err := s.checkParent(ctx, in.FatherID, citizen.GenderMale, "father"); err != nil {
		return nil, err
	}
	if err := s.checkParent(ctx, in.MotherID, citizen.GenderFemale, "mother"); err != nil {
		return nil, err
	}

	seq, err := s.store.NextSequence(ctx, KindBirth, now.Format("200601"))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "allocate certificate number")
	}
	cert := &BirthCertificate{
		ID:           uuid.New(),
		Number:       FormatNumber(KindBirth, now, seq),
		ChildID:      in.ChildID,
		FatherID:     in.FatherID,
		MotherID:     in.MotherID,
		PlaceOfBirth: in.PlaceOfBirth,
		RegisteredAt: now,
	}
	if err := s.store.CreateBirth(ctx, cert); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "child %s already has a birth certificate", child.Code)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "insert birth certificate")
	}

	s.enrollNewborn(ctx, cert, child)

	return cert, nil
}

// enrollNewborn adds the child to the first parent household that has one.
// Best effort only: a full household or any other failure is logged and does
// not fail the registration.
func (s *Service) enrollNewborn(ctx context.Context, cert *BirthCertificate, child *citizen.Citizen) {
	existing, err := s.households.CurrentMembership(ctx, cert.ChildID)
	if err != nil {
		s.log.Printf("warn: birth %s: membership lookup for child %s failed: %v", cert.Number, child.Code, err)
		s.metrics.IncEnrollmentsSkipped()
		return
	}
	if existing != nil {
		return
	}

	for _, parentID := range []*uuid.UUID{cert.FatherID, cert.MotherID} {
		if parentID == nil {
			continue
		}
		membership, err := s.households.CurrentMembership(ctx, *parentID)
		if err != nil {
			s.log.Printf("warn: birth %s: membership lookup for parent %s failed: %v", cert.Number, parentID, err)
			continue
		}
		if membership == nil {
			continue
		}
		if _, err := s.households.AddMember(ctx, membership.HouseholdID, cert.ChildID, household.RelationshipChild); err != nil {
			s.log.Printf("warn: birth %s: could not enroll child %s into household %s: %v", cert.Number, child.Code, membership.HouseholdID, err)
			continue
		}
		return
	}
	s.metrics.IncEnrollmentsSkipped()
}

func (s *Service) checkParent(ctx context.Context, id *uuid.UUID, expected citizen.Gender, role string) error {
	if id == nil {
		return nil
	}
	parent, err := s.citizens.Get(ctx, *id)
	if err != nil {
		return err
	}
	if parent.Gender != expected {
		return dErrors.Newf(dErrors.CodeValidation, "%s %s does not have the expected gender", role, parent.Code)
	}
	if parent.Status == citizen.StatusDeceased {
		return dErrors.Newf(dErrors.CodeInvalidState, "%s %s is deceased", role, parent.Code)
	}
	return nil
}

// RegisterDeathInput carries a death registration request.
type RegisterDeathInput struct {
	CitizenID    uuid.UUID
	DateOfDeath  time.Time
	PlaceOfDeath string
	Cause        string
}

// RegisterDeath issues a death certificate and, in the same transaction,
// flips the citizen to deceased and closes their household membership as of
// the date of death.
func (s *Service) RegisterDeath(ctx context.Context, in RegisterDeathInput) (*DeathCertificate, error) {
	if in.PlaceOfDeath == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "place of death is required")
	}
	if in.DateOfDeath.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "date of death is required")
	}

	c, err := s.citizens.Get(ctx, in.CitizenID)
	if err != nil {
		return nil, err
	}
	if err := c.CanMarkDeceased(); err != nil {
		return nil, err
	}

	now := s.clock()
	if in.DateOfDeath.Before(c.DateOfBirth) {
		return nil, dErrors.New(dErrors.CodeValidation, "date of death cannot be before the date of birth")
	}
	if in.DateOfDeath.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "date of death cannot be in the future")
	}

	if _, err := s.store.FindDeathByCitizen(ctx, in.CitizenID); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "citizen %s already has a death certificate", c.Code)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check existing death certificate")
	}

	seq, err := s.store.NextSequence(ctx, KindDeath, now.Format("200601"))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "allocate certificate number")
	}
	cert := &DeathCertificate{
		ID:           uuid.New(),
		Number:       FormatNumber(KindDeath, now, seq),
		CitizenID:    in.CitizenID,
		DateOfDeath:  in.DateOfDeath,
		PlaceOfDeath: in.PlaceOfDeath,
		Cause:        in.Cause,
		RegisteredAt: now,
	}
	if err := s.store.CreateDeath(ctx, cert); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "citizen %s already has a death certificate", c.Code)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "insert death certificate")
	}

	if _, err := s.citizens.MarkDeceased(ctx, in.CitizenID, now); err != nil {
		return nil, err
	}
	// The leave date is the date of death, not today.
	if err := s.households.CloseMembership(ctx, in.CitizenID, in.DateOfDeath); err != nil {
		return nil, err
	}

	cert.LateRegistration = cert.ReportedLate(now)
	if cert.LateRegistration {
		s.log.Printf("warn: death %s for citizen %s registered more than %s after the death", cert.Number, c.Code, LateRegistrationAfter)
	}
	return cert, nil
}

// GetBirth returns a birth certificate by ID.
func (s *Service) GetBirth(ctx context.Context, id uuid.UUID) (*BirthCertificate, error) {
	cert, err := s.store.FindBirth(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "birth certificate %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find birth certificate")
	}
	return cert, nil
}

// BirthForChild returns the child's birth certificate, or nil without error
// when none exists. Used for audit snapshots.
func (s *Service) BirthForChild(ctx context.Context, childID uuid.UUID) (*BirthCertificate, error) {
	cert, err := s.store.FindBirthByChild(ctx, childID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find birth certificate")
	}
	return cert, nil
}

// DeathForCitizen returns the citizen's death certificate, or nil without
// error when none exists.
func (s *Service) DeathForCitizen(ctx context.Context, citizenID uuid.UUID) (*DeathCertificate, error) {
	cert, err := s.store.FindDeathByCitizen(ctx, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find death certificate")
	}
	return cert, nil
}

// GetDeath returns a death certificate by ID.
func (s *Service) GetDeath(ctx context.Context, id uuid.UUID) (*DeathCertificate, error) {
	cert, err := s.store.FindDeath(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "death certificate %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find death certificate")
	}
	return cert, nil
}
