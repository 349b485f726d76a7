package coordinator_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"civreg/internal/citizen"
	"civreg/internal/coordinator"
	"civreg/internal/household"
	"civreg/internal/outbox"
	"civreg/internal/registry/txrunner"
	"civreg/internal/residency"
	"civreg/internal/vitalevent"
	dErrors "civreg/pkg/domain-errors"
)

// faultyOutbox fails Append on demand so tests can abort an operation at
// its last step.
type faultyOutbox struct {
	inner *outbox.InMemory
	fail  bool
}

func (f *faultyOutbox) Append(ctx context.Context, entry outbox.Entry) error {
	if f.fail {
		return errors.New("outbox unavailable")
	}
	return f.inner.Append(ctx, entry)
}

type CoordinatorSuite struct {
	suite.Suite
	engine       *coordinator.Coordinator
	citizenStore *citizen.InMemory
	houseStore   *household.InMemory
	resStore     *residency.InMemory
	certStore    *vitalevent.InMemory
	outbox       *faultyOutbox
	householdSvc *household.Service
	ctx          context.Context
	now          time.Time
	seq          int
}

func (s *CoordinatorSuite) SetupTest() {
	s.citizenStore = citizen.NewInMemory()
	s.houseStore = household.NewInMemory()
	s.resStore = residency.NewInMemory()
	s.certStore = vitalevent.NewInMemory()
	s.outbox = &faultyOutbox{inner: outbox.NewInMemory()}
	s.now = time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC)
	s.seq = 0
	clock := func() time.Time { return s.now }

	s.householdSvc = household.NewService(s.houseStore, s.citizenStore, household.WithClock(clock))
	citizenSvc := citizen.NewService(s.citizenStore, s.householdSvc, s.certStore, citizen.WithClock(clock))
	residencySvc := residency.NewService(s.resStore, s.citizenStore, residency.WithClock(clock))
	vitalSvc := vitalevent.NewService(s.certStore, citizenSvc, s.householdSvc, log.New(log.Writer(), "", 0), vitalevent.WithClock(clock))

	runner := txrunner.NewMemory(s.citizenStore, s.houseStore, s.resStore, s.certStore, s.outbox.inner)
	s.engine = coordinator.New(runner, citizenSvc, s.householdSvc, residencySvc, vitalSvc, s.outbox,
		coordinator.WithClock(clock))
	s.ctx = context.Background()
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) createCitizen(dob time.Time, gender citizen.Gender) *citizen.Citizen {
	s.seq++
	c, err := s.engine.CreateCitizen(s.ctx, citizen.CreateInput{
		Code:             fmt.Sprintf("00111%07d", s.seq),
		FullName:         "Đặng Văn Giang",
		DateOfBirth:      dob,
		Gender:           gender,
		PermanentAddress: "31 Tràng Thi",
		WardCode:         "P050",
	})
	s.Require().NoError(err)
	return c
}

func (s *CoordinatorSuite) createAdult() *citizen.Citizen {
	return s.createCitizen(time.Date(1988, 9, 9, 0, 0, 0, 0, time.UTC), citizen.GenderMale)
}

func (s *CoordinatorSuite) TestOutboxRecordsEveryMutation() {
	head := s.createAdult()
	h, err := s.engine.CreateHousehold(s.ctx, head.ID, "31 Tràng Thi", "P050")
	s.Require().NoError(err)

	spouse := s.createCitizen(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), citizen.GenderFemale)
	_, err = s.engine.AddMember(s.ctx, h.ID, spouse.ID, household.RelationshipSpouse)
	s.Require().NoError(err)

	entries := s.outbox.inner.Entries()
	s.Require().Len(entries, 4)
	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
		s.NotEmpty(e.Payload)
		s.Equal(s.now, e.CreatedAt)
	}
	s.Equal([]string{"citizen.created", "household.created", "citizen.created", "household.member_added"}, actions)
}

func (s *CoordinatorSuite) TestFailedOperationLeavesNoTrace() {
	head := s.createAdult()
	h, err := s.engine.CreateHousehold(s.ctx, head.ID, "31 Tràng Thi", "P050")
	s.Require().NoError(err)

	victim := s.createCitizen(time.Date(1950, 3, 3, 0, 0, 0, 0, time.UTC), citizen.GenderFemale)
	_, err = s.engine.AddMember(s.ctx, h.ID, victim.ID, household.RelationshipSpouse)
	s.Require().NoError(err)

	// Abort death registration at the outbox append, after the
	// certificate insert, status flip, and membership closure have all run.
	s.outbox.fail = true
	_, err = s.engine.RegisterDeath(s.ctx, vitalevent.RegisterDeathInput{
		CitizenID:    victim.ID,
		DateOfDeath:  s.now.AddDate(0, 0, -1),
		PlaceOfDeath: "Hà Nội",
	})
	s.Require().Error(err)
	s.outbox.fail = false

	c, err := s.engine.GetCitizen(s.ctx, victim.ID)
	s.Require().NoError(err)
	s.Equal(citizen.StatusActive, c.Status)
	s.True(c.IsActive)

	m, err := s.householdSvc.CurrentMembership(s.ctx, victim.ID)
	s.Require().NoError(err)
	s.Require().NotNil(m)
	s.True(m.IsCurrent)

	reloaded, err := s.engine.GetHousehold(s.ctx, h.ID)
	s.Require().NoError(err)
	s.Equal(2, reloaded.MemberCount)

	// The sequence rolled back too: the next death takes number 00001.
	cert, err := s.engine.RegisterDeath(s.ctx, vitalevent.RegisterDeathInput{
		CitizenID:    victim.ID,
		DateOfDeath:  s.now.AddDate(0, 0, -1),
		PlaceOfDeath: "Hà Nội",
	})
	s.Require().NoError(err)
	s.Equal("KT-202508-00001", cert.Number)
}

func (s *CoordinatorSuite) TestDeathCascadeCommitsAtomically() {
	head := s.createAdult()
	h, err := s.engine.CreateHousehold(s.ctx, head.ID, "31 Tràng Thi", "P050")
	s.Require().NoError(err)
	victim := s.createCitizen(time.Date(1950, 3, 3, 0, 0, 0, 0, time.UTC), citizen.GenderFemale)
	_, err = s.engine.AddMember(s.ctx, h.ID, victim.ID, household.RelationshipSpouse)
	s.Require().NoError(err)

	dateOfDeath := s.now.AddDate(0, 0, -3)
	cert, err := s.engine.RegisterDeath(s.ctx, vitalevent.RegisterDeathInput{
		CitizenID:    victim.ID,
		DateOfDeath:  dateOfDeath,
		PlaceOfDeath: "Hà Nội",
	})
	s.Require().NoError(err)

	snap, err := s.engine.CitizenSnapshot(s.ctx, victim.ID)
	s.Require().NoError(err)
	s.Equal(citizen.StatusDeceased, snap.Citizen.Status)
	s.Nil(snap.Membership)
	s.Require().NotNil(snap.DeathCertificate)
	s.Equal(cert.Number, snap.DeathCertificate.Number)

	last := s.outbox.inner.Entries()[len(s.outbox.inner.Entries())-1]
	s.Equal("death.registered", last.Action)
	s.Equal(victim.ID.String(), last.AggregateID)
}

func (s *CoordinatorSuite) TestRetireRollsBackWhenMembershipClosureFails() {
	// A head retiring closes their own membership; the closure decrements
	// the member count, and the outbox failure then rolls the whole
	// retirement back.
	head := s.createAdult()
	_, err := s.engine.CreateHousehold(s.ctx, head.ID, "31 Tràng Thi", "P050")
	s.Require().NoError(err)

	s.outbox.fail = true
	_, err = s.engine.RetireCitizen(s.ctx, head.ID)
	s.Require().Error(err)
	s.outbox.fail = false

	c, err := s.engine.GetCitizen(s.ctx, head.ID)
	s.Require().NoError(err)
	s.True(c.IsActive)
	m, err := s.householdSvc.CurrentMembership(s.ctx, head.ID)
	s.Require().NoError(err)
	s.Require().NotNil(m)
}

func (s *CoordinatorSuite) TestResidencyOperations() {
	c := s.createAdult()

	r, err := s.engine.CreateTemporaryResidence(s.ctx, residency.CreateResidenceInput{
		CitizenID: c.ID,
		Address:   "22 Nguyễn Trãi",
		WardCode:  "P044",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)

	extended, err := s.engine.ExtendTemporaryResidence(s.ctx, r.ID, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Equal(residency.ResidenceExtended, extended.Status)

	_, err = s.engine.ExtendTemporaryResidence(s.ctx, r.ID, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	snap, err := s.engine.CitizenSnapshot(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Require().NotNil(snap.OpenResidence)
	s.Equal(r.ID, snap.OpenResidence.ID)

	a, err := s.engine.CreateTemporaryAbsence(s.ctx, residency.CreateAbsenceInput{
		CitizenID:          c.ID,
		DestinationAddress: "KTX Bách Khoa",
		DestinationWard:    "P077",
		StartDate:          time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		ExpectedReturnDate: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)

	returned, err := s.engine.MarkReturned(s.ctx, a.ID, time.Time{})
	s.Require().NoError(err)
	s.Equal(residency.AbsenceReturned, returned.Status)
}

func (s *CoordinatorSuite) TestHouseholdSnapshot() {
	head := s.createAdult()
	h, err := s.engine.CreateHousehold(s.ctx, head.ID, "31 Tràng Thi", "P050")
	s.Require().NoError(err)
	other := s.createCitizen(time.Date(1992, 7, 7, 0, 0, 0, 0, time.UTC), citizen.GenderFemale)
	_, err = s.engine.AddMember(s.ctx, h.ID, other.ID, household.RelationshipSpouse)
	s.Require().NoError(err)

	snap, err := s.engine.HouseholdSnapshot(s.ctx, h.ID)
	s.Require().NoError(err)
	s.Equal(h.ID, snap.Household.ID)
	s.Len(snap.Members, 2)
}

func (s *CoordinatorSuite) TestChangeHeadEndToEnd() {
	oldHead := s.createAdult()
	h, err := s.engine.CreateHousehold(s.ctx, oldHead.ID, "31 Tràng Thi", "P050")
	s.Require().NoError(err)
	newHead := s.createCitizen(time.Date(1995, 2, 2, 0, 0, 0, 0, time.UTC), citizen.GenderFemale)
	_, err = s.engine.AddMember(s.ctx, h.ID, newHead.ID, household.RelationshipSpouse)
	s.Require().NoError(err)

	s.Require().NoError(s.engine.ChangeHead(s.ctx, h.ID, newHead.ID))

	reloaded, err := s.engine.GetHousehold(s.ctx, h.ID)
	s.Require().NoError(err)
	s.Equal(newHead.ID, reloaded.HeadID)

	// The former head can now be removed like any member.
	s.Require().NoError(s.engine.RemoveMember(s.ctx, h.ID, oldHead.ID))
	reloaded, err = s.engine.GetHousehold(s.ctx, h.ID)
	s.Require().NoError(err)
	s.Equal(1, reloaded.MemberCount)
}

func (s *CoordinatorSuite) TestUnknownEntitiesSurfaceNotFound() {
	_, err := s.engine.GetCitizen(s.ctx, uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.engine.GetHousehold(s.ctx, uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.engine.GetBirthCertificate(s.ctx, uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.engine.CitizenSnapshot(s.ctx, uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
