package vitalevent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"civreg/pkg/platform/sentinel"
	txcontext "civreg/pkg/platform/tx"
)

// PostgresStore persists certificates in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const birthColumns = `id, number, child_id, father_id, mother_id, place_of_birth, registered_at`
const deathColumns = `id, number, citizen_id, date_of_death, place_of_death, cause_of_death, registered_at`

func (s *PostgresStore) CreateBirth(ctx context.Context, cert *BirthCertificate) error {
	_, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO birth_certificates (`+birthColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, cert.ID, cert.Number, cert.ChildID, cert.FatherID, cert.MotherID, cert.PlaceOfBirth, cert.RegisteredAt)
	return translateUnique(err, "insert birth certificate")
}

func (s *PostgresStore) FindBirth(ctx context.Context, id uuid.UUID) (*BirthCertificate, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+birthColumns+` FROM birth_certificates WHERE id = $1`, id)
	return scanBirth(row)
}

func (s *PostgresStore) FindBirthByChild(ctx context.Context, childID uuid.UUID) (*BirthCertificate, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+birthColumns+` FROM birth_certificates WHERE child_id = $1`, childID)
	return scanBirth(row)
}

func (s *PostgresStore) CreateDeath(ctx context.Context, cert *DeathCertificate) error {
	_, err := txcontext.Q(ctx, s.db).ExecContext(ctx, `
		INSERT INTO death_certificates (`+deathColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, cert.ID, cert.Number, cert.CitizenID, cert.DateOfDeath, cert.PlaceOfDeath, cert.Cause, cert.RegisteredAt)
	return translateUnique(err, "insert death certificate")
}

func (s *PostgresStore) FindDeath(ctx context.Context, id uuid.UUID) (*DeathCertificate, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+deathColumns+` FROM death_certificates WHERE id = $1`, id)
	return scanDeath(row)
}

func (s *PostgresStore) FindDeathByCitizen(ctx context.Context, citizenID uuid.UUID) (*DeathCertificate, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+deathColumns+` FROM death_certificates WHERE citizen_id = $1`, citizenID)
	return scanDeath(row)
}

func (s *PostgresStore) NextSequence(ctx context.Context, kind Kind, month string) (int, error) {
	var seq int
	err := txcontext.Q(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO certificate_sequences (kind, month, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, month) DO UPDATE SET value = certificate_sequences.value + 1
		RETURNING value
	`, kind, month).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next %s sequence for %s: %w", kind, month, err)
	}
	return seq, nil
}

func (s *PostgresStore) HasCertificates(ctx context.Context, citizenID uuid.UUID) (bool, error) {
	var exists bool
	err := txcontext.Q(ctx, s.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM birth_certificates
			WHERE child_id = $1 OR father_id = $1 OR mother_id = $1
		) OR EXISTS (
			SELECT 1 FROM death_certificates WHERE citizen_id = $1
		)
	`, citizenID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check certificate history: %w", err)
	}
	return exists, nil
}

func scanBirth(row *sql.Row) (*BirthCertificate, error) {
	var cert BirthCertificate
	err := row.Scan(&cert.ID, &cert.Number, &cert.ChildID, &cert.FatherID, &cert.MotherID, &cert.PlaceOfBirth, &cert.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan birth certificate: %w", err)
	}
	return &cert, nil
}

func scanDeath(row *sql.Row) (*DeathCertificate, error) {
	var cert DeathCertificate
	err := row.Scan(&cert.ID, &cert.Number, &cert.CitizenID, &cert.DateOfDeath, &cert.PlaceOfDeath, &cert.Cause, &cert.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan death certificate: %w", err)
	}
	return &cert, nil
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
