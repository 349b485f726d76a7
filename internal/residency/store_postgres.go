package residency

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

// PostgresStore persists residency records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed residency store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const residenceColumns = `id, citizen_id, address, ward_code, start_date, end_date, status, created_at, updated_at`
const absenceColumns = `id, citizen_id, destination_address, destination_ward, start_date, expected_return_date, actual_return_date, status, created_at, updated_at`

func (s *PostgresStore) CreateResidence(ctx context.Context, r *TemporaryResidence) error {
	_, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO temporary_residences (`+residenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.ID, r.CitizenID, r.Address, r.WardCode, r.StartDate, r.EndDate, r.Status, r.CreatedAt, r.UpdatedAt)
	return translateUnique(err, "insert residence")
}

func (s *PostgresStore) FindResidence(ctx context.Context, id uuid.UUID) (*TemporaryResidence, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+residenceColumns+` FROM temporary_residences WHERE id = $1`, id)
	return scanResidence(row)
}

func (s *PostgresStore) FindOpenResidence(ctx context.Context, citizenID uuid.UUID) (*TemporaryResidence, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+residenceColumns+` FROM temporary_residences
		WHERE citizen_id = $1 AND status IN ('active', 'extended')
	`, citizenID)
	return scanResidence(row)
}

func (s *PostgresStore) UpdateResidence(ctx context.Context, r *TemporaryResidence) error {
	res, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE temporary_residences
		SET address = $2, ward_code = $3, start_date = $4, end_date = $5, status = $6, updated_at = $7
		WHERE id = $1
	`, r.ID, r.Address, r.WardCode, r.StartDate, r.EndDate, r.Status, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update residence: %w", err)
	}
	return requireRow(res, r.ID)
}

func (s *PostgresStore) ExpireOverdueResidences(ctx context.Context, asOf time.Time) (int64, error) {
	res, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE temporary_residences
		SET status = 'expired', updated_at = $1
		WHERE status IN ('active', 'extended') AND end_date < $1
	`, asOf)
	if err != nil {
		return 0, fmt.Errorf("expire residences: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresStore) CreateAbsence(ctx context.Context, a *TemporaryAbsence) error {
	_, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO temporary_absences (`+absenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID, a.CitizenID, a.DestinationAddress, a.DestinationWard, a.StartDate, a.ExpectedReturnDate, a.ActualReturnDate, a.Status, a.CreatedAt, a.UpdatedAt)
	return translateUnique(err, "insert absence")
}

func (s *PostgresStore) FindAbsence(ctx context.Context, id uuid.UUID) (*TemporaryAbsence, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+absenceColumns+` FROM temporary_absences WHERE id = $1`, id)
	return scanAbsence(row)
}

func (s *PostgresStore) FindOpenAbsence(ctx context.Context, citizenID uuid.UUID) (*TemporaryAbsence, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+absenceColumns+` FROM temporary_absences
		WHERE citizen_id = $1 AND status IN ('active', 'extended')
	`, citizenID)
	return scanAbsence(row)
}

func (s *PostgresStore) UpdateAbsence(ctx context.Context, a *TemporaryAbsence) error {
	res, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		UPDATE temporary_absences
		SET destination_address = $2, destination_ward = $3, start_date = $4,
		    expected_return_date = $5, actual_return_date = $6, status = $7, updated_at = $8
		WHERE id = $1
	`, a.ID, a.DestinationAddress, a.DestinationWard, a.StartDate, a.ExpectedReturnDate, a.ActualReturnDate, a.Status, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update absence: %w", err)
	}
	return requireRow(res, a.ID)
}

func scanResidence(row *sql.Row) (*TemporaryResidence, error) {
	var r TemporaryResidence
	err := row.Scan(&r.ID, &r.CitizenID, &r.Address, &r.WardCode, &r.StartDate, &r.EndDate, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan residence: %w", err)
	}
	return &r, nil
}

func scanAbsence(row *sql.Row) (*TemporaryAbsence, error) {
	var a TemporaryAbsence
	err := row.Scan(&a.ID, &a.CitizenID, &a.DestinationAddress, &a.DestinationWard, &a.StartDate, &a.ExpectedReturnDate, &a.ActualReturnDate, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan absence: %w", err)
	}
	return &a, nil
}

func requireRow(res sql.Result, id uuid.UUID) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("record %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func translateUnique(err error, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
