package residency

import (
	"time"

	"github.com/google/uuid"

	dErrors "civreg/pkg/domain-errors"
)

// Both record kinds share the same shape of state machine:
//
//	active → extended → extended → …   (extension is one-way)
//	active|extended → cancelled        (residence only)
//	active|extended → returned         (absence only)
//	active → expired                   (residence only, by sweep)
//
// Terminal states have no outgoing transitions.

// ResidenceStatus is the temporary residence lifecycle state.
type ResidenceStatus string

const (
	ResidenceActive    ResidenceStatus = "active"
	ResidenceExtended  ResidenceStatus = "extended"
	ResidenceExpired   ResidenceStatus = "expired"
	ResidenceCancelled ResidenceStatus = "cancelled"
)

// Open reports whether the record still counts against the
// one-open-record-per-citizen invariant.
func (s ResidenceStatus) Open() bool {
	return s == ResidenceActive || s == ResidenceExtended
}

// AbsenceStatus is the temporary absence lifecycle state.
type AbsenceStatus string

const (
	AbsenceActive   AbsenceStatus = "active"
	AbsenceExtended AbsenceStatus = "extended"
	AbsenceReturned AbsenceStatus = "returned"
)

func (s AbsenceStatus) Open() bool {
	return s == AbsenceActive || s == AbsenceExtended
}

// TemporaryResidence registers a citizen living away from their permanent
// address for a bounded period.
type TemporaryResidence struct {
	ID        uuid.UUID
	CitizenID uuid.UUID
	Address   string
	WardCode  string
	StartDate time.Time
	EndDate   time.Time
	Status    ResidenceStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TemporaryAbsence registers a citizen temporarily away from their home
// ward, keyed by expected and actual return rather than a fixed end date.
type TemporaryAbsence struct {
	ID                 uuid.UUID
	CitizenID          uuid.UUID
	DestinationAddress string
	DestinationWard    string
	StartDate          time.Time
	ExpectedReturnDate time.Time
	ActualReturnDate   *time.Time
	Status             AbsenceStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// withinSpanCap checks the 12-month cumulative cap. The cap is always
// measured from the original start date, so extensions cannot creep past it.
func withinSpanCap(start, end time.Time) bool {
	return !end.After(start.AddDate(1, 0, 0))
}

// CanExtend validates an extension of the residence to newEnd.
func (r *TemporaryResidence) CanExtend(newEnd time.Time) error {
	if !r.Status.Open() {
		return dErrors.Newf(dErrors.CodeInvalidState, "residence is %s and cannot be extended", r.Status)
	}
	if !newEnd.After(r.EndDate) {
		return dErrors.New(dErrors.CodeValidation, "new end date must be later than the current end date")
	}
	if !withinSpanCap(r.StartDate, newEnd) {
		return dErrors.New(dErrors.CodeValidation, "cumulative residence span exceeds 12 months from the original start date")
	}
	return nil
}

// ApplyExtension moves the end date and marks the record extended. Further
// extensions keep the extended status; there is no way back to active.
func (r *TemporaryResidence) ApplyExtension(newEnd, now time.Time) {
	r.EndDate = newEnd
	r.Status = ResidenceExtended
	r.UpdatedAt = now
}

// CanCancel validates cancellation. Only legal from active: an extended
// registration is already in effect and runs to its end date.
func (r *TemporaryResidence) CanCancel() error {
	if r.Status != ResidenceActive {
		return dErrors.Newf(dErrors.CodeInvalidState, "residence is %s and cannot be cancelled", r.Status)
	}
	return nil
}

// ApplyCancel moves the residence to the terminal cancelled state.
func (r *TemporaryResidence) ApplyCancel(now time.Time) {
	r.Status = ResidenceCancelled
	r.UpdatedAt = now
}

// CanExtend validates an extension of the absence to newReturn.
func (a *TemporaryAbsence) CanExtend(newReturn time.Time) error {
	if !a.Status.Open() {
		return dErrors.Newf(dErrors.CodeInvalidState, "absence is %s and cannot be extended", a.Status)
	}
	if !newReturn.After(a.ExpectedReturnDate) {
		return dErrors.New(dErrors.CodeValidation, "new expected return date must be later than the current one")
	}
	if !withinSpanCap(a.StartDate, newReturn) {
		return dErrors.New(dErrors.CodeValidation, "cumulative absence span exceeds 12 months from the original start date")
	}
	return nil
}

// ApplyExtension moves the expected return date and marks the record
// extended.
func (a *TemporaryAbsence) ApplyExtension(newReturn, now time.Time) {
	a.ExpectedReturnDate = newReturn
	a.Status = AbsenceExtended
	a.UpdatedAt = now
}

// CanMarkReturned validates recording the citizen's return.
func (a *TemporaryAbsence) CanMarkReturned(actualReturn time.Time) error {
	if !a.Status.Open() {
		return dErrors.Newf(dErrors.CodeInvalidState, "absence is already %s", a.Status)
	}
	if actualReturn.Before(a.StartDate) {
		return dErrors.New(dErrors.CodeValidation, "actual return date cannot be before the start date")
	}
	return nil
}

// ApplyReturn records the actual return and moves the absence to the
// terminal returned state.
func (a *TemporaryAbsence) ApplyReturn(actualReturn, now time.Time) {
	ar := actualReturn
	a.ActualReturnDate = &ar
	a.Status = AbsenceReturned
	a.UpdatedAt = now
}
