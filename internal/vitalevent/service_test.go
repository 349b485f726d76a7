package vitalevent_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"civreg/internal/citizen"
	"civreg/internal/household"
	"civreg/internal/vitalevent"
	"civreg/internal/vitalevent/mocks"
	dErrors "civreg/pkg/domain-errors"
)

// captureLogger records warn lines so tests can assert on best-effort paths.
type captureLogger struct {
	lines []string
}

func (l *captureLogger) Printf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *captureLogger) contains(substr string) bool {
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// countingMetrics tallies skipped enrollments in place of the Prometheus
// counter.
type countingMetrics struct {
	skips int
}

func (m *countingMetrics) IncEnrollmentsSkipped() {
	m.skips++
}

type ServiceSuite struct {
	suite.Suite
	certs        *vitalevent.InMemory
	citizenStore *citizen.InMemory
	houseStore   *household.InMemory
	citizenSvc   *citizen.Service
	householdSvc *household.Service
	service      *vitalevent.Service
	log          *captureLogger
	metrics      *countingMetrics
	ctx          context.Context
	now          time.Time
	seq          int
}

func (s *ServiceSuite) SetupTest() {
	s.certs = vitalevent.NewInMemory()
	s.citizenStore = citizen.NewInMemory()
	s.houseStore = household.NewInMemory()
	s.log = &captureLogger{}
	s.metrics = &countingMetrics{}
	s.now = time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	s.householdSvc = household.NewService(s.houseStore, s.citizenStore, household.WithClock(clock))
	s.citizenSvc = citizen.NewService(s.citizenStore, s.householdSvc, s.certs, citizen.WithClock(clock))
	s.service = vitalevent.NewService(s.certs, s.citizenSvc, s.householdSvc, s.log,
		vitalevent.WithClock(clock), vitalevent.WithMetrics(s.metrics))
	s.ctx = context.Background()
	s.seq = 0
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) seedCitizen(gender citizen.Gender, dob time.Time) *citizen.Citizen {
	s.seq++
	c := &citizen.Citizen{
		ID:          uuid.New(),
		Code:        fmt.Sprintf("00110%07d", s.seq),
		FullName:    "Vũ Thị Hà",
		DateOfBirth: dob,
		Gender:      gender,
		WardCode:    "P035",
		Status:      citizen.StatusActive,
		IsActive:    true,
		CreatedAt:   s.now,
		UpdatedAt:   s.now,
	}
	s.Require().NoError(s.citizenStore.Create(s.ctx, c))
	return c
}

func (s *ServiceSuite) seedAdult(gender citizen.Gender) *citizen.Citizen {
	return s.seedCitizen(gender, time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC))
}

func (s *ServiceSuite) seedNewborn() *citizen.Citizen {
	return s.seedCitizen(citizen.GenderMale, s.now.AddDate(0, 0, -10))
}

func (s *ServiceSuite) TestRegisterBirth() {
	s.Run("issues a numbered certificate and enrolls the newborn", func() {
		father := s.seedAdult(citizen.GenderMale)
		mother := s.seedAdult(citizen.GenderFemale)
		child := s.seedNewborn()

		h, err := s.householdSvc.Create(s.ctx, father.ID, "9 Hàng Bông", "P035")
		s.Require().NoError(err)

		cert, err := s.service.RegisterBirth(s.ctx, vitalevent.RegisterBirthInput{
			ChildID:      child.ID,
			FatherID:     &father.ID,
			MotherID:     &mother.ID,
			PlaceOfBirth: "Bệnh viện Phụ sản Hà Nội",
		})
		s.Require().NoError(err)
		s.Equal("KS-202508-00001", cert.Number)
		s.Equal(child.ID, cert.ChildID)

		m, err := s.householdSvc.CurrentMembership(s.ctx, child.ID)
		s.Require().NoError(err)
		s.Require().NotNil(m)
		s.Equal(h.ID, m.HouseholdID)
		s.Equal(household.RelationshipChild, m.Relationship)
	})

	s.Run("numbers are monotonic within the month and per kind", func() {
		mother := s.seedAdult(citizen.GenderFemale)
		child := s.seedNewborn()

		cert, err := s.service.RegisterBirth(s.ctx, vitalevent.RegisterBirthInput{
			ChildID:      child.ID,
			MotherID:     &mother.ID,
			PlaceOfBirth: "tại nhà",
		})
		s.Require().NoError(err)
		s.Equal("KS-202508-00002", cert.Number)

		deceased := s.seedAdult(citizen.GenderMale)
		death, err := s.service.RegisterDeath(s.ctx, vitalevent.RegisterDeathInput{
			CitizenID:    deceased.ID,
			DateOfDeath:  s.now.AddDate(0, 0, -1),
			PlaceOfDeath: "Hà Nội",
		})
		s.Require().NoError(err)
		s.Equal("KT-202508-00001", death.Number)
	})

	s.Run("at least one parent is required", func() {
		child := s.seedNewborn()
		_, err := s.service.RegisterBirth(s.ctx, vitalevent.RegisterBirthInput{
			ChildID:      child.ID,
			PlaceOfBirth: "tại nhà",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("place of birth is required", func() {
		mother := s.seedAdult(citizen.GenderFemale)
		child := s.seedNewborn()
		_, err := s.service.RegisterBirth(s.ctx, vitalevent.RegisterBirthInput{
			ChildID:  child.ID,
			MotherID: &mother.ID,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("registration window closes after sixty days", func() {
		mother := s.seedAdult(citizen.GenderFemale)
		tooOld := s.seedCitizen(citizen.GenderFemale, s.now.AddDate(0, 0, -61))
		_, err := s.service.RegisterBirth(s.ctx, vitalevent.RegisterBirthInput{
			ChildID:      tooOld.ID,
			MotherID:     &mother.ID,
			PlaceOfBirth: "tại nhà",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("one certificate per child", func() {
		mother := s.seedAdult(citizen.GenderFemale)
		child := s.seedNewborn()
		in := vitalevent.RegisterBirthInput{
			ChildID:      child.ID,
			MotherID:     &mother.ID,
			PlaceOfBirth: "tại nhà",
		}
		_, err := s.service.RegisterBirth(s.ctx, in)
		s.Require().NoError(err)

		_, err = s.service.RegisterBirth(s.ctx, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("parent roles must match recorded gender", func() {
		notFather := s.seedAdult(citizen.GenderFemale)
		child := s.seedNewborn()
		_, err := s.service.RegisterBirth(s.ctx, vitalevent.RegisterBirthInput{
			ChildID:      child.ID,
			FatherID:     &notFather.ID,
			PlaceOfBirth: "tại nhà",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("a deceased parent cannot be listed", func() {
		mother := s.seedAdult(citizen.GenderFemale)
		_, err := s.citizenSvc.MarkDeceased(s.ctx, mother.ID, s.now)
		s.Require().NoError(err)

		child := s.seedNewborn()
		_, err = s.service.RegisterBirth(s.ctx, vitalevent.RegisterBirthInput{
			ChildID:      child.ID,
			MotherID:     &mother.ID,
			PlaceOfBirth: "tại nhà",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestNewbornEnrollment() {
	s.Run("falls back to the mother's household", func() {
		father := s.seedAdult(citizen.GenderMale)
		mother := s.seedAdult(citizen.GenderFemale)
		child := s.seedNewborn()

		h, err := s.householdSvc.Create(s.ctx, mother.ID, "9 Hàng Bông", "P035")
		s.Require().NoError(err)

		_, err = s.service.RegisterBirth(s.ctx, vitalevent.RegisterBirthInput{
			ChildID:      child.ID,
			FatherID:     &father.ID,
			MotherID:     &mother.ID,
			PlaceOfBirth: "tại nhà",
		})
		s.Require().NoError(err)

		m, err := s.householdSvc.CurrentMembership(s.ctx, child.ID)
		s.Require().NoError(err)
		s.Require().NotNil(m)
		s.Equal(h.ID, m.HouseholdID)
		s.Zero(s.metrics.skips, "an enrolled newborn is not a skip")
	})

	s.Run("no parent household leaves the child unenrolled", func() {
		mother := s.seedAdult(citizen.GenderFemale)
		child := s.seedNewborn()
		before := s.metrics.skips

		cert, err := s.service.RegisterBirth(s.ctx, vitalevent.RegisterBirthInput{
			ChildID:      child.ID,
			MotherID:     &mother.ID,
			PlaceOfBirth: "tại nhà",
		})
		s.Require().NoError(err)
		s.NotEmpty(cert.Number)

		m, err := s.householdSvc.CurrentMembership(s.ctx, child.ID)
		s.Require().NoError(err)
		s.Nil(m)
		s.Equal(before+1, s.metrics.skips)
	})

	s.Run("a full household does not fail the registration", func() {
		father := s.seedAdult(citizen.GenderMale)
		h, err := s.householdSvc.Create(s.ctx, father.ID, "9 Hàng Bông", "P035")
		s.Require().NoError(err)
		for i := 0; i < household.MaxMembers-1; i++ {
			extra := s.seedAdult(citizen.GenderFemale)
			_, err := s.householdSvc.AddMember(s.ctx, h.ID, extra.ID, household.Relationship("Thành viên"))
			s.Require().NoError(err)
		}

		child := s.seedNewborn()
		before := s.metrics.skips
		cert, err := s.service.RegisterBirth(s.ctx, vitalevent.RegisterBirthInput{
			ChildID:      child.ID,
			FatherID:     &father.ID,
			PlaceOfBirth: "tại nhà",
		})
		s.Require().NoError(err)
		s.NotEmpty(cert.Number)
		s.True(s.log.contains("could not enroll"), "expected a warn line, got %v", s.log.lines)

		m, err := s.householdSvc.CurrentMembership(s.ctx, child.ID)
		s.Require().NoError(err)
		s.Nil(m)
		s.Equal(before+1, s.metrics.skips)
	})

	s.Run("a child already in a household is left alone", func() {
		father := s.seedAdult(citizen.GenderMale)
		other := s.seedAdult(citizen.GenderMale)
		child := s.seedNewborn()

		_, err := s.householdSvc.Create(s.ctx, father.ID, "9 Hàng Bông", "P035")
		s.Require().NoError(err)
		existing, err := s.householdSvc.Create(s.ctx, other.ID, "2 Hàng Đào", "P035")
		s.Require().NoError(err)
		_, err = s.householdSvc.AddMember(s.ctx, existing.ID, child.ID, household.RelationshipChild)
		s.Require().NoError(err)

		_, err = s.service.RegisterBirth(s.ctx, vitalevent.RegisterBirthInput{
			ChildID:      child.ID,
			FatherID:     &father.ID,
			PlaceOfBirth: "tại nhà",
		})
		s.Require().NoError(err)

		m, err := s.householdSvc.CurrentMembership(s.ctx, child.ID)
		s.Require().NoError(err)
		s.Require().NotNil(m)
		s.Equal(existing.ID, m.HouseholdID)
	})
}

func (s *ServiceSuite) TestRegisterDeath() {
	s.Run("cascades to the citizen and their membership", func() {
		head := s.seedAdult(citizen.GenderMale)
		deceased := s.seedAdult(citizen.GenderFemale)

		h, err := s.householdSvc.Create(s.ctx, head.ID, "9 Hàng Bông", "P035")
		s.Require().NoError(err)
		_, err = s.householdSvc.AddMember(s.ctx, h.ID, deceased.ID, household.RelationshipSpouse)
		s.Require().NoError(err)

		dateOfDeath := s.now.AddDate(0, 0, -2)
		cert, err := s.service.RegisterDeath(s.ctx, vitalevent.RegisterDeathInput{
			CitizenID:    deceased.ID,
			DateOfDeath:  dateOfDeath,
			PlaceOfDeath: "Hà Nội",
			Cause:        "tuổi già",
		})
		s.Require().NoError(err)
		s.False(cert.LateRegistration)

		c, err := s.citizenSvc.Get(s.ctx, deceased.ID)
		s.Require().NoError(err)
		s.Equal(citizen.StatusDeceased, c.Status)
		s.False(c.IsActive)

		m, err := s.householdSvc.CurrentMembership(s.ctx, deceased.ID)
		s.Require().NoError(err)
		s.Nil(m)

		reloaded, err := s.householdSvc.Get(s.ctx, h.ID)
		s.Require().NoError(err)
		s.Equal(1, reloaded.MemberCount)
	})

	s.Run("one death certificate per citizen", func() {
		deceased := s.seedAdult(citizen.GenderMale)
		in := vitalevent.RegisterDeathInput{
			CitizenID:    deceased.ID,
			DateOfDeath:  s.now.AddDate(0, 0, -1),
			PlaceOfDeath: "Hà Nội",
		}
		_, err := s.service.RegisterDeath(s.ctx, in)
		s.Require().NoError(err)

		_, err = s.service.RegisterDeath(s.ctx, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("date of death cannot be in the future", func() {
		c := s.seedAdult(citizen.GenderMale)
		_, err := s.service.RegisterDeath(s.ctx, vitalevent.RegisterDeathInput{
			CitizenID:    c.ID,
			DateOfDeath:  s.now.AddDate(0, 0, 1),
			PlaceOfDeath: "Hà Nội",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("date of death cannot precede the date of birth", func() {
		c := s.seedAdult(citizen.GenderMale)
		_, err := s.service.RegisterDeath(s.ctx, vitalevent.RegisterDeathInput{
			CitizenID:    c.ID,
			DateOfDeath:  c.DateOfBirth.AddDate(-1, 0, 0),
			PlaceOfDeath: "Hà Nội",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("registration past the grace period is flagged and logged", func() {
		c := s.seedAdult(citizen.GenderFemale)
		cert, err := s.service.RegisterDeath(s.ctx, vitalevent.RegisterDeathInput{
			CitizenID:    c.ID,
			DateOfDeath:  s.now.AddDate(0, 0, -30),
			PlaceOfDeath: "Hà Nội",
		})
		s.Require().NoError(err)
		s.True(cert.LateRegistration)
		s.True(s.log.contains("registered more than"), "expected a warn line, got %v", s.log.lines)
	})
}

func (s *ServiceSuite) TestReads() {
	mother := s.seedAdult(citizen.GenderFemale)
	child := s.seedNewborn()
	cert, err := s.service.RegisterBirth(s.ctx, vitalevent.RegisterBirthInput{
		ChildID:      child.ID,
		MotherID:     &mother.ID,
		PlaceOfBirth: "tại nhà",
	})
	s.Require().NoError(err)

	found, err := s.service.GetBirth(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.Equal(cert.Number, found.Number)

	found, err = s.service.BirthForChild(s.ctx, child.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(cert.ID, found.ID)

	none, err := s.service.DeathForCitizen(s.ctx, child.ID)
	s.Require().NoError(err)
	s.Nil(none)

	_, err = s.service.GetDeath(s.ctx, uuid.New())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// TestEnrollmentLookupFailureIsBestEffort drives the household side with
// mocks: a failing membership lookup after the certificate insert must warn
// and leave the registration intact.
func TestEnrollmentLookupFailureIsBestEffort(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	now := time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC)

	child := &citizen.Citizen{
		ID:          uuid.New(),
		Code:        "001250000001",
		FullName:    "bé Minh",
		DateOfBirth: now.AddDate(0, 0, -5),
		Gender:      citizen.GenderMale,
		Status:      citizen.StatusActive,
		IsActive:    true,
	}
	mother := &citizen.Citizen{
		ID:          uuid.New(),
		Code:        "001250000002",
		FullName:    "Vũ Thị Hà",
		DateOfBirth: time.Date(1995, 2, 2, 0, 0, 0, 0, time.UTC),
		Gender:      citizen.GenderFemale,
		Status:      citizen.StatusActive,
		IsActive:    true,
	}

	citizens := mocks.NewMockCitizenRegistry(ctrl)
	citizens.EXPECT().Get(gomock.Any(), child.ID).Return(child, nil)
	citizens.EXPECT().Get(gomock.Any(), mother.ID).Return(mother, nil)

	households := mocks.NewMockHouseholdRegistry(ctrl)
	households.EXPECT().CurrentMembership(gomock.Any(), child.ID).
		Return(nil, errors.New("membership lookup unavailable"))

	metrics := mocks.NewMockMetrics(ctrl)
	metrics.EXPECT().IncEnrollmentsSkipped()

	log := &captureLogger{}
	service := vitalevent.NewService(vitalevent.NewInMemory(), citizens, households, log,
		vitalevent.WithClock(func() time.Time { return now }),
		vitalevent.WithMetrics(metrics))

	cert, err := service.RegisterBirth(ctx, vitalevent.RegisterBirthInput{
		ChildID:      child.ID,
		MotherID:     &mother.ID,
		PlaceOfBirth: "tại nhà",
	})
	require.NoError(t, err)
	assert.Equal(t, "KS-202508-00001", cert.Number)
	assert.True(t, log.contains("membership lookup"), "expected a warn line, got %v", log.lines)
}
