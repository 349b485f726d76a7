package citizen

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"civreg/pkg/platform/sentinel"
)

type StoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) newCitizen(code string) *Citizen {
	now := time.Now()
	return &Citizen{
		ID:          uuid.New(),
		Code:        code,
		FullName:    "Trần Thị Bình",
		DateOfBirth: time.Date(1985, 4, 2, 0, 0, 0, 0, time.UTC),
		Gender:      GenderFemale,
		WardCode:    "P001",
		Status:      StatusActive,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *StoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds by ID and code", func() {
		c := s.newCitizen("001185000001")
		s.Require().NoError(s.store.Create(s.ctx, c))

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(c.Code, found.Code)

		found, err = s.store.FindByCode(s.ctx, c.Code)
		s.Require().NoError(err)
		s.Equal(c.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, uuid.New())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate code", func() {
		c1 := s.newCitizen("001185000002")
		c2 := s.newCitizen("001185000002")
		s.Require().NoError(s.store.Create(s.ctx, c1))
		s.Require().ErrorIs(s.store.Create(s.ctx, c2), sentinel.ErrConflict)
	})
}

func (s *StoreSuite) TestUpdates() {
	s.Run("persists attribute changes", func() {
		c := s.newCitizen("001185000003")
		s.Require().NoError(s.store.Create(s.ctx, c))

		c.FullName = "Trần Thị Bình Minh"
		s.Require().NoError(s.store.Update(s.ctx, c))

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal("Trần Thị Bình Minh", found.FullName)
	})

	s.Run("update of unknown citizen returns ErrNotFound", func() {
		c := s.newCitizen("001185000004")
		s.Require().ErrorIs(s.store.Update(s.ctx, c), sentinel.ErrNotFound)
	})

	s.Run("stored rows are isolated from caller mutations", func() {
		c := s.newCitizen("001185000005")
		s.Require().NoError(s.store.Create(s.ctx, c))

		c.FullName = "mutated after create"
		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal("Trần Thị Bình", found.FullName)
	})
}

func (s *StoreSuite) TestSnapshotRestore() {
	c := s.newCitizen("001185000006")
	s.Require().NoError(s.store.Create(s.ctx, c))

	snap := s.store.Snapshot()

	c2 := s.newCitizen("001185000007")
	s.Require().NoError(s.store.Create(s.ctx, c2))
	c.FullName = "changed"
	s.Require().NoError(s.store.Update(s.ctx, c))

	s.store.Restore(snap)

	_, err := s.store.FindByID(s.ctx, c2.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal("Trần Thị Bình", found.FullName)
}
