package household

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"civreg/pkg/platform/sentinel"
	txcontext "civreg/pkg/platform/tx"
)

// PostgresStore persists households and membership rows in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed household store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const householdColumns = `id, code, address, ward_code, head_id, member_count, created_at, updated_at`
const memberColumns = `id, household_id, citizen_id, relationship, join_date, leave_date, is_current`

func (s *PostgresStore) CreateHousehold(ctx context.Context, h *Household, head *Member) error {
	q := txcontext.Q(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO households (`+householdColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, h.ID, h.Code, h.Address, h.WardCode, h.HeadID, h.MemberCount, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return translateUnique(err, "insert household")
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO household_members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, head.ID, head.HouseholdID, head.CitizenID, head.Relationship, head.JoinDate, head.LeaveDate, head.IsCurrent)
	if err != nil {
		return translateUnique(err, "insert head member")
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Household, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+householdColumns+` FROM households WHERE id = $1`, id)
	return scanHousehold(row)
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*Household, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+householdColumns+` FROM households WHERE code = $1`, code)
	return scanHousehold(row)
}

func (s *PostgresStore) FindByHead(ctx context.Context, citizenID uuid.UUID) (*Household, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+householdColumns+` FROM households WHERE head_id = $1`, citizenID)
	return scanHousehold(row)
}

func (s *PostgresStore) FindCurrentMembership(ctx context.Context, citizenID uuid.UUID) (*Member, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM household_members WHERE citizen_id = $1 AND is_current`, citizenID)
	return scanMember(row)
}

func (s *PostgresStore) FindCurrentMember(ctx context.Context, householdID, citizenID uuid.UUID) (*Member, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+memberColumns+` FROM household_members
		WHERE household_id = $1 AND citizen_id = $2 AND is_current
	`, householdID, citizenID)
	return scanMember(row)
}

func (s *PostgresStore) ListCurrentMembers(ctx context.Context, householdID uuid.UUID) ([]*Member, error) {
	rows, err := txcontext.Q(ctx, s.db).QueryContext(ctx, `
		SELECT `+memberColumns+` FROM household_members
		WHERE household_id = $1 AND is_current
		ORDER BY join_date, id
	`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.HouseholdID, &m.CitizenID, &m.Relationship, &m.JoinDate, &m.LeaveDate, &m.IsCurrent); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

func (s *PostgresStore) InsertMember(ctx context.Context, m *Member) error {
	_, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO household_members (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.HouseholdID, m.CitizenID, m.Relationship, m.JoinDate, m.LeaveDate, m.IsCurrent)
	if err != nil {
		return translateUnique(err, "insert member")
	}
	return nil
}

func (s *PostgresStore) CloseMember(ctx context.Context, memberID uuid.UUID, leaveDate time.Time) error {
	res, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE household_members
		SET is_current = FALSE, leave_date = $2
		WHERE id = $1 AND is_current
	`, memberID, leaveDate)
	if err != nil {
		return fmt.Errorf("close member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close member: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("member %s: %w", memberID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) UpdateMemberRelationship(ctx context.Context, memberID uuid.UUID, rel Relationship) error {
	res, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE household_members SET relationship = $2 WHERE id = $1
	`, memberID, rel)
	if err != nil {
		return fmt.Errorf("update member relationship: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member relationship: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("member %s: %w", memberID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) UpdateHousehold(ctx context.Context, h *Household) error {
	res, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE households
		SET address = $2, ward_code = $3, head_id = $4, updated_at = $5
		WHERE id = $1
	`, h.ID, h.Address, h.WardCode, h.HeadID, h.UpdatedAt)
	if err != nil {
		return translateUnique(err, "update household")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update household: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("household %s: %w", h.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) AdjustMemberCount(ctx context.Context, householdID uuid.UUID, delta int, now time.Time) error {
	res, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE households
		SET member_count = member_count + $2, updated_at = $3
		WHERE id = $1
	`, householdID, delta, now)
	if err != nil {
		// The CHECK on member_count is the final arbiter for the cap.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23514" {
			return fmt.Errorf("adjust member count: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("adjust member count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust member count: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("household %s: %w", householdID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) NextCode(ctx context.Context, wardCode string) (string, error) {
	var seq int
	err := txcontext.Q(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO household_sequences (ward_code, value)
		VALUES ($1, 1)
		ON CONFLICT (ward_code) DO UPDATE SET value = household_sequences.value + 1
		RETURNING value
	`, wardCode).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next household code for ward %s: %w", wardCode, err)
	}
	return FormatCode(wardCode, seq), nil
}

func scanHousehold(row *sql.Row) (*Household, error) {
	var h Household
	err := row.Scan(&h.ID, &h.Code, &h.Address, &h.WardCode, &h.HeadID, &h.MemberCount, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan household: %w", err)
	}
	return &h, nil
}

func scanMember(row *sql.Row) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.HouseholdID, &m.CitizenID, &m.Relationship, &m.JoinDate, &m.LeaveDate, &m.IsCurrent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan member: %w", err)
	}
	return &m, nil
}

func translateUnique(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
