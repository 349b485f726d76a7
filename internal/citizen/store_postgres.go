package citizen

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

// PostgresStore persists citizens in PostgreSQL. Every method resolves the
// querier per call so the store joins the coordinator's transaction when one
// is open in context.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed citizen store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const citizenColumns = `id, code, full_name, date_of_birth, gender, permanent_address, ward_code, status, is_active, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, c *Citizen) error {
	query := `
		INSERT INTO citizens (` + citizenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := txcontext.Q(ctx, s.db).ExecContext(ctx, query,
		c.ID, c.Code, c.FullName, c.DateOfBirth, c.Gender,
		c.PermanentAddress, c.WardCode, c.Status, c.IsActive,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("citizen code %s: %w", c.Code, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert citizen: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Citizen, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+citizenColumns+` FROM citizens WHERE id = $1`, id)
	return scanCitizen(row)
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*Citizen, error) {
	row := txcontext.Q(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+citizenColumns+` FROM citizens WHERE code = $1`, code)
	return scanCitizen(row)
}

func (s *PostgresStore) Update(ctx context.Context, c *Citizen) error {
	query := `
		UPDATE citizens
		SET full_name = $2, date_of_birth = $3, gender = $4,
		    permanent_address = $5, ward_code = $6, status = $7,
		    is_active = $8, updated_at = $9
		WHERE id = $1
	`
	res, err := txcontext.Q(ctx, s.db).ExecContext(ctx, query,
		c.ID, c.FullName, c.DateOfBirth, c.Gender,
		c.PermanentAddress, c.WardCode, c.Status, c.IsActive, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update citizen: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update citizen: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("citizen %s: %w", c.ID, sentinel.ErrNotFound)
	}
	return nil
}

func scanCitizen(row *sql.Row) (*Citizen, error) {
	var c Citizen
	err := row.Scan(
		&c.ID, &c.Code, &c.FullName, &c.DateOfBirth, &c.Gender,
		&c.PermanentAddress, &c.WardCode, &c.Status, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan citizen: %w", err)
	}
	return &c, nil
}
