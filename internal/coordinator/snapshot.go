package coordinator

import (
	"context"

	"github.com/google/uuid"

	"civreg/internal/citizen"
	"civreg/internal/household"
	"civreg/internal/residency"
	"civreg/internal/vitalevent"
)

// CitizenSnapshot is the full observable state around one citizen: the
// shape the audit sink captures before and after a mutation.
type CitizenSnapshot struct {
	Citizen          *citizen.Citizen              `json:"citizen"`
	Membership       *household.Member             `json:"membership,omitempty"`
	OpenResidence    *residency.TemporaryResidence `json:"open_residence,omitempty"`
	OpenAbsence      *residency.TemporaryAbsence   `json:"open_absence,omitempty"`
	BirthCertificate *vitalevent.BirthCertificate  `json:"birth_certificate,omitempty"`
	DeathCertificate *vitalevent.DeathCertificate  `json:"death_certificate,omitempty"`
}

// HouseholdSnapshot is the full observable state of one household.
type HouseholdSnapshot struct {
	Household *household.Household `json:"household"`
	Members   []*household.Member  `json:"members"`
}

// CitizenSnapshot gathers the citizen's state across all four stores.
func (c *Coordinator) CitizenSnapshot(ctx context.Context, id uuid.UUID) (*CitizenSnapshot, error) {
	cit, err := c.citizens.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	membership, err := c.households.CurrentMembership(ctx, id)
	if err != nil {
		return nil, err
	}
	openResidence, err := c.residency.OpenResidence(ctx, id)
	if err != nil {
		return nil, err
	}
	openAbsence, err := c.residency.OpenAbsence(ctx, id)
	if err != nil {
		return nil, err
	}
	birth, err := c.vitals.BirthForChild(ctx, id)
	if err != nil {
		return nil, err
	}
	death, err := c.vitals.DeathForCitizen(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CitizenSnapshot{
		Citizen:          cit,
		Membership:       membership,
		OpenResidence:    openResidence,
		OpenAbsence:      openAbsence,
		BirthCertificate: birth,
		DeathCertificate: death,
	}, nil
}

// HouseholdSnapshot gathers a household and its current members.
func (c *Coordinator) HouseholdSnapshot(ctx context.Context, id uuid.UUID) (*HouseholdSnapshot, error) {
	h, err := c.households.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	members, err := c.households.Members(ctx, id)
	if err != nil {
		return nil, err
	}
	return &HouseholdSnapshot{Household: h, Members: members}, nil
}
