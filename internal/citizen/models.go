package citizen

import (
	"time"

	"github.com/google/uuid"

	dErrors "civreg/pkg/domain-errors"
)

// Status is the citizen lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeceased Status = "deceased"
)

// CanTransitionTo reports whether the status change is a legal transition.
// The only legal moves are active → inactive (retirement) and
// active → deceased (death registration). Deceased is terminal.
func (s Status) CanTransitionTo(target Status) bool {
	if s != StatusActive {
		return false
	}
	return target == StatusInactive || target == StatusDeceased
}

// Gender of a citizen as recorded on the identity document.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Citizen is the identity record at the root of every other registry entity.
//
// Invariants:
//   - Code is an immutable business key, unique system-wide
//   - Status == deceased implies IsActive == false
//   - Status and IsActive are mutated only through the coordinator's
//     operations (retirement, death registration), never via Update
type Citizen struct {
	ID               uuid.UUID
	Code             string
	FullName         string
	DateOfBirth      time.Time
	Gender           Gender
	PermanentAddress string
	WardCode         string
	Status           Status
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AgeInYears returns the citizen's age in whole years at the given instant.
func (c *Citizen) AgeInYears(at time.Time) int {
	years := at.Year() - c.DateOfBirth.Year()
	birthday := c.DateOfBirth.AddDate(years, 0, 0)
	if birthday.After(at) {
		years--
	}
	return years
}

// AgeInDays returns the citizen's age in whole days at the given instant.
func (c *Citizen) AgeInDays(at time.Time) int {
	return int(at.Sub(c.DateOfBirth).Hours() / 24)
}

// CanRetire checks the retirement transition. Certificate history is checked
// by the service; this covers only the state machine.
func (c *Citizen) CanRetire() error {
	if !c.IsActive {
		return dErrors.New(dErrors.CodeNotFound, "citizen is already retired")
	}
	if !c.Status.CanTransitionTo(StatusInactive) {
		return dErrors.Newf(dErrors.CodeInvalidState, "citizen %s cannot be retired from status %s", c.Code, c.Status)
	}
	return nil
}

// ApplyRetirement soft-deletes the citizen.
func (c *Citizen) ApplyRetirement(now time.Time) {
	c.Status = StatusInactive
	c.IsActive = false
	c.UpdatedAt = now
}

// CanMarkDeceased checks the death transition.
func (c *Citizen) CanMarkDeceased() error {
	if c.Status == StatusDeceased {
		return dErrors.Newf(dErrors.CodeConflict, "citizen %s is already deceased", c.Code)
	}
	if !c.IsActive {
		return dErrors.Newf(dErrors.CodeNotFound, "citizen %s is retired", c.Code)
	}
	return nil
}

// ApplyDeceased flips the citizen to deceased. A deceased citizen is always
// inactive.
func (c *Citizen) ApplyDeceased(now time.Time) {
	c.Status = StatusDeceased
	c.IsActive = false
	c.UpdatedAt = now
}

// NewCitizen validates registration input and returns an active citizen.
func NewCitizen(code, fullName string, dateOfBirth time.Time, gender Gender, address, wardCode string, now time.Time) (*Citizen, error) {
	if code == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "citizen code is required")
	}
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "full name is required")
	}
	if dateOfBirth.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "date of birth is required")
	}
	if dateOfBirth.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "date of birth cannot be in the future")
	}
	if !gender.valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown gender %q", gender)
	}
	if wardCode == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "ward code is required")
	}
	return &Citizen{
		ID:               uuid.New(),
		Code:             code,
		FullName:         fullName,
		DateOfBirth:      dateOfBirth,
		Gender:           gender,
		PermanentAddress: address,
		WardCode:         wardCode,
		Status:           StatusActive,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
