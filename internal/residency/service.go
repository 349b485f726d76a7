package residency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"civreg/internal/citizen"
	dErrors "civreg/pkg/domain-errors"
	"civreg/pkg/platform/sentinel"
)

// Clock abstracts time.Now for tests.
type Clock func() time.Time

// Service tracks temporary residence and absence registrations.
type Service struct {
	store    Store
	citizens citizen.Reader
	clock    Clock
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

// NewService constructs the residency service.
func NewService(store Store, citizens citizen.Reader, opts ...Option) *Service {
	s := &Service{store: store, citizens: citizens, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateResidenceInput carries a new temporary residence registration.
type CreateResidenceInput struct {
	CitizenID uuid.UUID
	Address   string
	WardCode  string
	StartDate time.Time
	EndDate   time.Time
}

// CreateResidence registers a temporary residence for an active citizen.
func (s *Service) CreateResidence(ctx context.Context, in CreateResidenceInput) (*TemporaryResidence, error) {
	if in.Address == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "address is required")
	}
	if in.WardCode == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "ward code is required")
	}
	if err := s.validateSpan(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	c, err := s.activeCitizen(ctx, in.CitizenID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindOpenResidence(ctx, in.CitizenID); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "citizen %s already has an open temporary residence", c.Code)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check open residence")
	}

	now := s.clock()
	r := &TemporaryResidence{
		ID:        uuid.New(),
		CitizenID: in.CitizenID,
		Address:   in.Address,
		WardCode:  in.WardCode,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Status:    ResidenceActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateResidence(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "citizen %s already has an open temporary residence", c.Code)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create residence")
	}
	return r, nil
}

// CreateAbsenceInput carries a new temporary absence registration.
type CreateAbsenceInput struct {
	CitizenID          uuid.UUID
	DestinationAddress string
	DestinationWard    string
	StartDate          time.Time
	ExpectedReturnDate time.Time
}

// CreateAbsence registers a temporary absence for an active citizen.
func (s *Service) CreateAbsence(ctx context.Context, in CreateAbsenceInput) (*TemporaryAbsence, error) {
	if in.DestinationAddress == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "destination address is required")
	}
	if in.DestinationWard == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "destination ward is required")
	}
	if err := s.validateSpan(in.StartDate, in.ExpectedReturnDate); err != nil {
		return nil, err
	}
	c, err := s.activeCitizen(ctx, in.CitizenID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindOpenAbsence(ctx, in.CitizenID); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "citizen %s already has an open temporary absence", c.Code)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check open absence")
	}

	now := s.clock()
	a := &TemporaryAbsence{
		ID:                 uuid.New(),
		CitizenID:          in.CitizenID,
		DestinationAddress: in.DestinationAddress,
		DestinationWard:    in.DestinationWard,
		StartDate:          in.StartDate,
		ExpectedReturnDate: in.ExpectedReturnDate,
		Status:             AbsenceActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.CreateAbsence(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "citizen %s already has an open temporary absence", c.Code)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create absence")
	}
	return a, nil
}

// GetResidence returns a temporary residence by ID.
func (s *Service) GetResidence(ctx context.Context, id uuid.UUID) (*TemporaryResidence, error) {
	r, err := s.store.FindResidence(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "temporary residence %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find residence")
	}
	return r, nil
}

// GetAbsence returns a temporary absence by ID.
func (s *Service) GetAbsence(ctx context.Context, id uuid.UUID) (*TemporaryAbsence, error) {
	a, err := s.store.FindAbsence(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "temporary absence %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find absence")
	}
	return a, nil
}

// OpenResidence returns the citizen's open residence, or nil without error
// when there is none. Used for audit snapshots.
func (s *Service) OpenResidence(ctx context.Context, citizenID uuid.UUID) (*TemporaryResidence, error) {
	r, err := s.store.FindOpenResidence(ctx, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find open residence")
	}
	return r, nil
}

// OpenAbsence returns the citizen's open absence, or nil without error when
// there is none.
func (s *Service) OpenAbsence(ctx context.Context, citizenID uuid.UUID) (*TemporaryAbsence, error) {
	a, err := s.store.FindOpenAbsence(ctx, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find open absence")
	}
	return a, nil
}

// ExtendResidence pushes the residence's end date out, keeping the
// cumulative span within 12 months of the original start.
func (s *Service) ExtendResidence(ctx context.Context, id uuid.UUID, newEnd time.Time) (*TemporaryResidence, error) {
	r, err := s.GetResidence(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.CanExtend(newEnd); err != nil {
		return nil, err
	}
	r.ApplyExtension(newEnd, s.clock())
	if err := s.store.UpdateResidence(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "extend residence")
	}
	return r, nil
}

// ExtendAbsence pushes the absence's expected return date out under the
// same cumulative cap.
func (s *Service) ExtendAbsence(ctx context.Context, id uuid.UUID, newReturn time.Time) (*TemporaryAbsence, error) {
	a, err := s.GetAbsence(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.CanExtend(newReturn); err != nil {
		return nil, err
	}
	a.ApplyExtension(newReturn, s.clock())
	if err := s.store.UpdateAbsence(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "extend absence")
	}
	return a, nil
}

// CancelResidence cancels a registration that has not taken effect as
// extended yet. Terminal.
func (s *Service) CancelResidence(ctx context.Context, id uuid.UUID) (*TemporaryResidence, error) {
	r, err := s.GetResidence(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.CanCancel(); err != nil {
		return nil, err
	}
	r.ApplyCancel(s.clock())
	if err := s.store.UpdateResidence(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "cancel residence")
	}
	return r, nil
}

// MarkReturned records the citizen's actual return from a temporary
// absence. A zero actualReturn defaults to today. Terminal.
func (s *Service) MarkReturned(ctx context.Context, id uuid.UUID, actualReturn time.Time) (*TemporaryAbsence, error) {
	a, err := s.GetAbsence(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	if actualReturn.IsZero() {
		actualReturn = now
	}
	if err := a.CanMarkReturned(actualReturn); err != nil {
		return nil, err
	}
	a.ApplyReturn(actualReturn, now)
	if err := s.store.UpdateAbsence(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mark returned")
	}
	return a, nil
}

// ExpireOverdue closes every open residence whose end date has passed.
// Housekeeping operation for a periodic sweep.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireOverdueResidences(ctx, s.clock())
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "expire residences")
	}
	return n, nil
}

func (s *Service) validateSpan(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "start and end dates are required")
	}
	if !start.Before(end) {
		return dErrors.New(dErrors.CodeValidation, "start date must be before the end date")
	}
	if !withinSpanCap(start, end) {
		return dErrors.New(dErrors.CodeValidation, "span exceeds the 12-month cap")
	}
	return nil
}

func (s *Service) activeCitizen(ctx context.Context, id uuid.UUID) (*citizen.Citizen, error) {
	c, err := s.citizens.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "citizen %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find citizen")
	}
	if !c.IsActive || c.Status != citizen.StatusActive {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "citizen %s is not active", c.Code)
	}
	return c, nil
}
