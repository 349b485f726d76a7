package vitalevent

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind selects a certificate numbering namespace. Births and deaths are
// numbered independently within each calendar month.
type Kind string

const (
	KindBirth Kind = "birth"
	KindDeath Kind = "death"
)

func (k Kind) prefix() string {
	if k == KindDeath {
		return "KT"
	}
	return "KS"
}

// FormatNumber renders a certificate number, e.g. KS-202508-00042. The
// format is part of the observable contract: callers search and display by
// it.
func FormatNumber(kind Kind, month time.Time, seq int) string {
	return fmt.Sprintf("%s-%s-%05d", kind.prefix(), month.Format("200601"), seq)
}

// MaxRegistrationAgeDays bounds how old a child can be at birth
// registration.
const MaxRegistrationAgeDays = 60

// LateRegistrationAfter is the grace period for death registration. Later
// registrations are accepted but surfaced as a warning condition.
const LateRegistrationAfter = 7 * 24 * time.Hour

// BirthCertificate records a registered birth. Exactly one exists per
// child. Father and mother are individually optional but at least one is
// always present.
type BirthCertificate struct {
	ID           uuid.UUID
	Number       string
	ChildID      uuid.UUID
	FatherID     *uuid.UUID
	MotherID     *uuid.UUID
	PlaceOfBirth string
	RegisteredAt time.Time
}

// DeathCertificate records a registered death. Issuing one is the sole
// trigger that flips the citizen to deceased and closes their household
// membership.
type DeathCertificate struct {
	ID           uuid.UUID
	Number       string
	CitizenID    uuid.UUID
	DateOfDeath  time.Time
	PlaceOfDeath string
	Cause        string
	RegisteredAt time.Time

	// LateRegistration is derived at registration time, not persisted:
	// true when the death was reported more than the grace period after it
	// occurred.
	LateRegistration bool
}

// ReportedLate reports whether registration at asOf falls outside the
// grace period after the death.
func (d *DeathCertificate) ReportedLate(asOf time.Time) bool {
	return asOf.Sub(d.DateOfDeath) > LateRegistrationAfter
}
