// Package coordinator orchestrates multi-entity operations. Every mutation
// runs as one transaction: the coordinator opens the boundary, the services
// call each other only through narrow primitives inside it, and an outbox
// row with before/after snapshots is appended before commit so the audit
// sink sees exactly the mutations that happened.
package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"civreg/internal/citizen"
	"civreg/internal/household"
	"civreg/internal/outbox"
	"civreg/internal/platform/metrics"
	"civreg/internal/registry/txrunner"
	"civreg/internal/residency"
	"civreg/internal/vitalevent"
	dErrors "civreg/pkg/domain-errors"
)

// Clock abstracts time.Now for tests.
type Clock func() time.Time

// Coordinator is the engine's boundary surface: one method per operation,
// each a single transaction.
type Coordinator struct {
	runner     txrunner.Runner
	citizens   *citizen.Service
	households *household.Service
	residency  *residency.Service
	vitals     *vitalevent.Service
	outbox     outbox.Store
	metrics    *metrics.Metrics
	clock      Clock
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithMetrics attaches process metrics. Optional; a nil metrics struct is a
// no-op.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// New wires the coordinator over the four stores' services.
func New(runner txrunner.Runner, citizens *citizen.Service, households *household.Service, res *residency.Service, vitals *vitalevent.Service, ob outbox.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		runner:     runner,
		citizens:   citizens,
		households: households,
		residency:  res,
		vitals:     vitals,
		outbox:     ob,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// runWrite executes fn in a transaction and counts aborts by error code.
func (c *Coordinator) runWrite(ctx context.Context, fn func(ctx context.Context) error) error {
	err := c.runner.RunInTx(ctx, fn)
	if err != nil {
		c.metrics.IncTransactionsAborted(string(dErrors.CodeOf(err)))
	}
	return err
}

func (c *Coordinator) emit(ctx context.Context, aggregateType, aggregateID, action string, before, after any) error {
	entry, err := outbox.NewEntry(aggregateType, aggregateID, action, before, after, c.clock())
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build outbox entry")
	}
	if err := c.outbox.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "append outbox entry")
	}
	return nil
}

// --- Identity Store operations ---

// CreateCitizen registers a new citizen.
func (c *Coordinator) CreateCitizen(ctx context.Context, in citizen.CreateInput) (*citizen.Citizen, error) {
	var created *citizen.Citizen
	err := c.runWrite(ctx, func(ctx context.Context) error {
		var err error
		created, err = c.citizens.Create(ctx, in)
		if err != nil {
			return err
		}
		return c.emit(ctx, "citizen", created.ID.String(), "citizen.created", nil, created)
	})
	if err != nil {
		return nil, err
	}
	c.metrics.IncCitizensRegistered()
	return created, nil
}

// GetCitizen returns full citizen state for audit snapshots and reads.
func (c *Coordinator) GetCitizen(ctx context.Context, id uuid.UUID) (*citizen.Citizen, error) {
	return c.citizens.Get(ctx, id)
}

// UpdateCitizen patches a citizen's descriptive attributes.
func (c *Coordinator) UpdateCitizen(ctx context.Context, id uuid.UUID, patch citizen.UpdatePatch) (*citizen.Citizen, error) {
	var updated *citizen.Citizen
	err := c.runWrite(ctx, func(ctx context.Context) error {
		before, err := c.citizens.Get(ctx, id)
		if err != nil {
			return err
		}
		updated, err = c.citizens.Update(ctx, id, patch)
		if err != nil {
			return err
		}
		return c.emit(ctx, "citizen", id.String(), "citizen.updated", before, updated)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RetireCitizen soft-deletes a citizen and closes any current membership.
func (c *Coordinator) RetireCitizen(ctx context.Context, id uuid.UUID) (*citizen.Citizen, error) {
	var retired *citizen.Citizen
	err := c.runWrite(ctx, func(ctx context.Context) error {
		before, err := c.citizens.Get(ctx, id)
		if err != nil {
			return err
		}
		retired, err = c.citizens.Retire(ctx, id)
		if err != nil {
			return err
		}
		return c.emit(ctx, "citizen", id.String(), "citizen.retired", before, retired)
	})
	if err != nil {
		return nil, err
	}
	return retired, nil
}

// --- Household Store operations ---

// CreateHousehold registers a household with its head as first member.
func (c *Coordinator) CreateHousehold(ctx context.Context, headID uuid.UUID, address, wardCode string) (*household.Household, error) {
	var created *household.Household
	err := c.runWrite(ctx, func(ctx context.Context) error {
		var err error
		created, err = c.households.Create(ctx, headID, address, wardCode)
		if err != nil {
			return err
		}
		return c.emit(ctx, "household", created.ID.String(), "household.created", nil, created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetHousehold returns a household by ID.
func (c *Coordinator) GetHousehold(ctx context.Context, id uuid.UUID) (*household.Household, error) {
	return c.households.Get(ctx, id)
}

// AddMember enrolls a citizen into a household.
func (c *Coordinator) AddMember(ctx context.Context, householdID, citizenID uuid.UUID, relationship household.Relationship) (*household.Member, error) {
	var member *household.Member
	err := c.runWrite(ctx, func(ctx context.Context) error {
		before, err := c.households.Get(ctx, householdID)
		if err != nil {
			return err
		}
		member, err = c.households.AddMember(ctx, householdID, citizenID, relationship)
		if err != nil {
			return err
		}
		after, err := c.households.Get(ctx, householdID)
		if err != nil {
			return err
		}
		return c.emit(ctx, "household", householdID.String(), "household.member_added", before, after)
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember closes a citizen's membership in a household.
func (c *Coordinator) RemoveMember(ctx context.Context, householdID, citizenID uuid.UUID) error {
	return c.runWrite(ctx, func(ctx context.Context) error {
		before, err := c.households.Get(ctx, householdID)
		if err != nil {
			return err
		}
		if err := c.households.RemoveMember(ctx, householdID, citizenID); err != nil {
			return err
		}
		after, err := c.households.Get(ctx, householdID)
		if err != nil {
			return err
		}
		return c.emit(ctx, "household", householdID.String(), "household.member_removed", before, after)
	})
}

// ChangeHead reassigns the head of household.
func (c *Coordinator) ChangeHead(ctx context.Context, householdID, newHeadID uuid.UUID) error {
	return c.runWrite(ctx, func(ctx context.Context) error {
		before, err := c.households.Get(ctx, householdID)
		if err != nil {
			return err
		}
		if err := c.households.ChangeHead(ctx, householdID, newHeadID); err != nil {
			return err
		}
		after, err := c.households.Get(ctx, householdID)
		if err != nil {
			return err
		}
		return c.emit(ctx, "household", householdID.String(), "household.head_changed", before, after)
	})
}

// CloseMembership force-closes a citizen's current membership. Idempotent.
func (c *Coordinator) CloseMembership(ctx context.Context, citizenID uuid.UUID, effectiveDate time.Time) error {
	return c.runWrite(ctx, func(ctx context.Context) error {
		if err := c.households.CloseMembership(ctx, citizenID, effectiveDate); err != nil {
			return err
		}
		return c.emit(ctx, "citizen", citizenID.String(), "household.membership_closed", nil, nil)
	})
}

// TransferHousehold updates a household's address and ward.
func (c *Coordinator) TransferHousehold(ctx context.Context, householdID uuid.UUID, newAddress, newWardCode string) (*household.Household, error) {
	var transferred *household.Household
	err := c.runWrite(ctx, func(ctx context.Context) error {
		before, err := c.households.Get(ctx, householdID)
		if err != nil {
			return err
		}
		transferred, err = c.households.Transfer(ctx, householdID, newAddress, newWardCode)
		if err != nil {
			return err
		}
		return c.emit(ctx, "household", householdID.String(), "household.transferred", before, transferred)
	})
	if err != nil {
		return nil, err
	}
	return transferred, nil
}

// --- Residency Tracker operations ---

// CreateTemporaryResidence registers a temporary residence.
func (c *Coordinator) CreateTemporaryResidence(ctx context.Context, in residency.CreateResidenceInput) (*residency.TemporaryResidence, error) {
	var created *residency.TemporaryResidence
	err := c.runWrite(ctx, func(ctx context.Context) error {
		var err error
		created, err = c.residency.CreateResidence(ctx, in)
		if err != nil {
			return err
		}
		return c.emit(ctx, "temporary_residence", created.ID.String(), "residence.created", nil, created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateTemporaryAbsence registers a temporary absence.
func (c *Coordinator) CreateTemporaryAbsence(ctx context.Context, in residency.CreateAbsenceInput) (*residency.TemporaryAbsence, error) {
	var created *residency.TemporaryAbsence
	err := c.runWrite(ctx, func(ctx context.Context) error {
		var err error
		created, err = c.residency.CreateAbsence(ctx, in)
		if err != nil {
			return err
		}
		return c.emit(ctx, "temporary_absence", created.ID.String(), "absence.created", nil, created)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetTemporaryResidence returns a temporary residence by ID.
func (c *Coordinator) GetTemporaryResidence(ctx context.Context, id uuid.UUID) (*residency.TemporaryResidence, error) {
	return c.residency.GetResidence(ctx, id)
}

// GetTemporaryAbsence returns a temporary absence by ID.
func (c *Coordinator) GetTemporaryAbsence(ctx context.Context, id uuid.UUID) (*residency.TemporaryAbsence, error) {
	return c.residency.GetAbsence(ctx, id)
}

// ExtendTemporaryResidence pushes a residence's end date out.
func (c *Coordinator) ExtendTemporaryResidence(ctx context.Context, id uuid.UUID, newEnd time.Time) (*residency.TemporaryResidence, error) {
	var extended *residency.TemporaryResidence
	err := c.runWrite(ctx, func(ctx context.Context) error {
		before, err := c.residency.GetResidence(ctx, id)
		if err != nil {
			return err
		}
		extended, err = c.residency.ExtendResidence(ctx, id, newEnd)
		if err != nil {
			return err
		}
		return c.emit(ctx, "temporary_residence", id.String(), "residence.extended", before, extended)
	})
	if err != nil {
		return nil, err
	}
	return extended, nil
}

// ExtendTemporaryAbsence pushes an absence's expected return date out.
func (c *Coordinator) ExtendTemporaryAbsence(ctx context.Context, id uuid.UUID, newReturn time.Time) (*residency.TemporaryAbsence, error) {
	var extended *residency.TemporaryAbsence
	err := c.runWrite(ctx, func(ctx context.Context) error {
		before, err := c.residency.GetAbsence(ctx, id)
		if err != nil {
			return err
		}
		extended, err = c.residency.ExtendAbsence(ctx, id, newReturn)
		if err != nil {
			return err
		}
		return c.emit(ctx, "temporary_absence", id.String(), "absence.extended", before, extended)
	})
	if err != nil {
		return nil, err
	}
	return extended, nil
}

// CancelTemporaryResidence cancels a not-yet-extended residence.
func (c *Coordinator) CancelTemporaryResidence(ctx context.Context, id uuid.UUID) (*residency.TemporaryResidence, error) {
	var cancelled *residency.TemporaryResidence
	err := c.runWrite(ctx, func(ctx context.Context) error {
		before, err := c.residency.GetResidence(ctx, id)
		if err != nil {
			return err
		}
		cancelled, err = c.residency.CancelResidence(ctx, id)
		if err != nil {
			return err
		}
		return c.emit(ctx, "temporary_residence", id.String(), "residence.cancelled", before, cancelled)
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// MarkReturned records a citizen's return from a temporary absence. A zero
// actualReturn defaults to today.
func (c *Coordinator) MarkReturned(ctx context.Context, id uuid.UUID, actualReturn time.Time) (*residency.TemporaryAbsence, error) {
	var returned *residency.TemporaryAbsence
	err := c.runWrite(ctx, func(ctx context.Context) error {
		before, err := c.residency.GetAbsence(ctx, id)
		if err != nil {
			return err
		}
		returned, err = c.residency.MarkReturned(ctx, id, actualReturn)
		if err != nil {
			return err
		}
		return c.emit(ctx, "temporary_absence", id.String(), "absence.returned", before, returned)
	})
	if err != nil {
		return nil, err
	}
	return returned, nil
}

// ExpireOverdueResidences closes open residences whose end date has passed.
func (c *Coordinator) ExpireOverdueResidences(ctx context.Context) (int64, error) {
	var n int64
	err := c.runWrite(ctx, func(ctx context.Context) error {
		var err error
		n, err = c.residency.ExpireOverdue(ctx)
		return err
	})
	return n, err
}

// --- Vital Event Registrar operations ---

// RegisterBirth issues a birth certificate and best-effort enrolls the
// newborn into a parent's household.
func (c *Coordinator) RegisterBirth(ctx context.Context, in vitalevent.RegisterBirthInput) (*vitalevent.BirthCertificate, error) {
	var cert *vitalevent.BirthCertificate
	err := c.runWrite(ctx, func(ctx context.Context) error {
		var err error
		cert, err = c.vitals.RegisterBirth(ctx, in)
		if err != nil {
			return err
		}
		return c.emit(ctx, "citizen", in.ChildID.String(), "birth.registered", nil, cert)
	})
	if err != nil {
		return nil, err
	}
	c.metrics.IncCertificatesIssued("birth")
	return cert, nil
}

// RegisterDeath issues a death certificate, flips the citizen to deceased,
// and closes their membership in one transaction.
func (c *Coordinator) RegisterDeath(ctx context.Context, in vitalevent.RegisterDeathInput) (*vitalevent.DeathCertificate, error) {
	var cert *vitalevent.DeathCertificate
	err := c.runWrite(ctx, func(ctx context.Context) error {
		before, err := c.citizens.Get(ctx, in.CitizenID)
		if err != nil {
			return err
		}
		cert, err = c.vitals.RegisterDeath(ctx, in)
		if err != nil {
			return err
		}
		after, err := c.citizens.Get(ctx, in.CitizenID)
		if err != nil {
			return err
		}
		return c.emit(ctx, "citizen", in.CitizenID.String(), "death.registered", before, after)
	})
	if err != nil {
		return nil, err
	}
	c.metrics.IncCertificatesIssued("death")
	return cert, nil
}

// GetBirthCertificate returns a birth certificate by ID.
func (c *Coordinator) GetBirthCertificate(ctx context.Context, id uuid.UUID) (*vitalevent.BirthCertificate, error) {
	return c.vitals.GetBirth(ctx, id)
}

// GetDeathCertificate returns a death certificate by ID.
func (c *Coordinator) GetDeathCertificate(ctx context.Context, id uuid.UUID) (*vitalevent.DeathCertificate, error) {
	return c.vitals.GetDeath(ctx, id)
}
