package household

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxMembers caps how many current members a household can hold.
const MaxMembers = 15

// HeadMinimumAge is the minimum age for a head of household, applied both
// at household creation and when reassigning the head.
const HeadMinimumAge = 18

// Relationship is the member's relationship to the head of household. The
// head, spouse, and child roles are closed values the engine branches on;
// any other label is stored verbatim (the registry accepts free-text
// relationships such as "Ông nội" and the engine does not constrain them).
type Relationship string

const (
	RelationshipHead   Relationship = "Chủ hộ"
	RelationshipSpouse Relationship = "Vợ/Chồng"
	RelationshipChild  Relationship = "Con"
	// RelationshipMember is the label a former head keeps after the
	// headship moves to someone else.
	RelationshipMember Relationship = "Thành viên"
)

// IsHead reports whether the label marks the head-of-household row.
func (r Relationship) IsHead() bool {
	return r == RelationshipHead
}

// Household is a registered residential unit.
//
// Invariants:
//   - HeadID always resolves to a current member row with the head
//     relationship
//   - a citizen heads at most one household system-wide
//   - MemberCount is the denormalized count of current members, ≤ MaxMembers
type Household struct {
	ID          uuid.UUID
	Code        string
	Address     string
	WardCode    string
	HeadID      uuid.UUID
	MemberCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Member is the join row between a household and a citizen. Rows are never
// hard-deleted: removal, transfer, retirement, and death close the row by
// clearing IsCurrent and setting LeaveDate.
type Member struct {
	ID           uuid.UUID
	HouseholdID  uuid.UUID
	CitizenID    uuid.UUID
	Relationship Relationship
	JoinDate     time.Time
	LeaveDate    *time.Time
	IsCurrent    bool
}

// FormatCode renders a household code from its ward and per-ward sequence,
// e.g. HK-P012-00042.
func FormatCode(wardCode string, seq int) string {
	return fmt.Sprintf("HK-%s-%05d", wardCode, seq)
}
