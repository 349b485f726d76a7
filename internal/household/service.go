package household

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

// Service owns household composition. Membership exclusivity is checked
// before every insert inside the caller's transaction; the database's
// partial unique index closes the remaining race between check and insert.
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

// NewService constructs the household service.
func NewService(store Store, citizens citizen.Reader, opts ...Option) *Service {
	s := &Service{store: store, citizens: citizens, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Get returns a household by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Household, error) {
	h, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "household %s not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find household")
	}
	return h, nil
}

// Members returns the household's current members.
func (s *Service) Members(ctx context.Context, householdID uuid.UUID) ([]*Member, error) {
	members, err := s.store.ListCurrentMembers(ctx, householdID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list members")
	}
	return members, nil
}

// CurrentMembership returns the citizen's open membership row, or nil
// without error when there is none.
func (s *Service) CurrentMembership(ctx context.Context, citizenID uuid.UUID) (*Member, error) {
	m, err := s.store.FindCurrentMembership(ctx, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find membership")
	}
	return m, nil
}

// Create registers a household with the given citizen as its head and first
// member.
func (s *Service) Create(ctx context.Context, headID uuid.UUID, address, wardCode string) (*Household, error) {
	if address == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "address is required")
	}
	if wardCode == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "ward code is required")
	}

	head, err := s.activeCitizen(ctx, headID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	if head.AgeInYears(now) < HeadMinimumAge {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "citizen %s is under %d and cannot head a household", head.Code, HeadMinimumAge)
	}
	if _, err := s.store.FindByHead(ctx, headID); err == nil {
		return nil, dErrors.Newf(dErrors.CodeInvalidState, "citizen %s already heads a household", head.Code)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check existing headship")
	}
	if _, err := s.store.FindCurrentMembership(ctx, headID); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "citizen %s already belongs to a household", head.Code)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check existing membership")
	}

	code, err := s.store.NextCode(ctx, wardCode)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "allocate household code")
	}

	h := &Household{
		ID:          uuid.New(),
		Code:        code,
		Address:     address,
		WardCode:    wardCode,
		HeadID:      headID,
		MemberCount: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	member := &Member{
		ID:           uuid.New(),
		HouseholdID:  h.ID,
		CitizenID:    headID,
		Relationship: RelationshipHead,
		JoinDate:     now,
		IsCurrent:    true,
	}
	if err := s.store.CreateHousehold(ctx, h, member); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "citizen %s already belongs to or heads a household", head.Code)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create household")
	}
	return h, nil
}

// AddMember enrolls a citizen into a household.
func (s *Service) AddMember(ctx context.Context, householdID, citizenID uuid.UUID, relationship Relationship) (*Member, error) {
	if relationship == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "relationship is required")
	}
	if relationship.IsHead() {
		return nil, dErrors.New(dErrors.CodeValidation, "the head relationship is assigned through household creation or head reassignment")
	}

	h, err := s.Get(ctx, householdID)
	if err != nil {
		return nil, err
	}
	c, err := s.activeCitizen(ctx, citizenID)
	if err != nil {
		return nil, err
	}
	if h.MemberCount >= MaxMembers {
		return nil, dErrors.Newf(dErrors.CodeConflict, "household %s is full (%d members)", h.Code, MaxMembers)
	}
	if _, err := s.store.FindCurrentMembership(ctx, citizenID); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict, "citizen %s already belongs to a household", c.Code)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check existing membership")
	}

	now := s.clock()
	m := &Member{
		ID:           uuid.New(),
		HouseholdID:  householdID,
		CitizenID:    citizenID,
		Relationship: relationship,
		JoinDate:     now,
		IsCurrent:    true,
	}
	if err := s.store.InsertMember(ctx, m); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "citizen %s already belongs to a household", c.Code)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "insert member")
	}

	if err := s.store.AdjustMemberCount(ctx, householdID, 1, now); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "household %s is full (%d members)", h.Code, MaxMembers)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update member count")
	}
	return m, nil
}

// RemoveMember closes a citizen's membership in a household. The head
// cannot be removed; reassign headship first via ChangeHead.
func (s *Service) RemoveMember(ctx context.Context, householdID, citizenID uuid.UUID) error {
	h, err := s.Get(ctx, householdID)
	if err != nil {
		return err
	}
	if h.HeadID == citizenID {
		return dErrors.New(dErrors.CodeInvalidState, "cannot remove the head of household; reassign the head first")
	}
	m, err := s.store.FindCurrentMember(ctx, householdID, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "citizen %s is not a current member of household %s", citizenID, h.Code)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "find member")
	}

	now := s.clock()
	if err := s.store.CloseMember(ctx, m.ID, now); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "close member")
	}
	if err := s.store.AdjustMemberCount(ctx, householdID, -1, now); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update member count")
	}
	return nil
}

// ChangeHead reassigns the head of household to another current member. The
// former head stays in the household with a plain member label.
func (s *Service) ChangeHead(ctx context.Context, householdID, newHeadID uuid.UUID) error {
	h, err := s.Get(ctx, householdID)
	if err != nil {
		return err
	}
	if h.HeadID == newHeadID {
		return dErrors.New(dErrors.CodeInvalidState, "citizen is already the head of this household")
	}

	newHeadMember, err := s.store.FindCurrentMember(ctx, householdID, newHeadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "citizen %s is not a current member of household %s", newHeadID, h.Code)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "find new head")
	}

	c, err := s.activeCitizen(ctx, newHeadID)
	if err != nil {
		return err
	}
	// The age rule applies on reassignment too, not only at creation.
	if c.AgeInYears(s.clock()) < HeadMinimumAge {
		return dErrors.Newf(dErrors.CodeInvalidState, "citizen %s is under %d and cannot head a household", c.Code, HeadMinimumAge)
	}

	outgoing, err := s.store.FindCurrentMember(ctx, householdID, h.HeadID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "find outgoing head")
	}

	if err := s.store.UpdateMemberRelationship(ctx, outgoing.ID, RelationshipMember); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "relabel outgoing head")
	}
	if err := s.store.UpdateMemberRelationship(ctx, newHeadMember.ID, RelationshipHead); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "relabel incoming head")
	}

	h.HeadID = newHeadID
	h.UpdatedAt = s.clock()
	if err := s.store.UpdateHousehold(ctx, h); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Newf(dErrors.CodeInvalidState, "citizen %s already heads another household", c.Code)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "update head")
	}
	return nil
}

// CloseMembership force-closes a citizen's current membership as of the
// effective date. Idempotent: a citizen with no open membership is a no-op.
// Used by retirement and death registration, which bypass the head check by
// design.
func (s *Service) CloseMembership(ctx context.Context, citizenID uuid.UUID, effectiveDate time.Time) error {
	m, err := s.store.FindCurrentMembership(ctx, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "find membership")
	}
	if err := s.store.CloseMember(ctx, m.ID, effectiveDate); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "close membership")
	}
	if err := s.store.AdjustMemberCount(ctx, m.HouseholdID, -1, s.clock()); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update member count")
	}
	return nil
}

// Transfer updates the household's address and ward. A pure attribute
// update: the code and membership rows are untouched.
func (s *Service) Transfer(ctx context.Context, householdID uuid.UUID, newAddress, newWardCode string) (*Household, error) {
	if newAddress == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "address is required")
	}
	if newWardCode == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "ward code is required")
	}
	h, err := s.Get(ctx, householdID)
	if err != nil {
		return nil, err
	}
	h.Address = newAddress
	h.WardCode = newWardCode
	h.UpdatedAt = s.clock()
	if err := s.store.UpdateHousehold(ctx, h); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "transfer household")
	}
	return h, nil
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
