// Package txrunner provides the transactional boundaries the coordinator
// runs every mutating operation inside. Each operation is a single
// transaction: any error aborts the whole thing and no partial effects
// remain visible.
package txrunner

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	dErrors "civreg/pkg/domain-errors"
	txcontext "civreg/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// Runner executes fn inside a transactional boundary. The context passed to
// fn carries the open transaction; stores resolve it via pkg/platform/tx.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Postgres runs each operation in a *sql.Tx with read-committed or stronger
// isolation. Commit-time constraint violations are translated to the same
// Conflict the services' pre-checks would have produced: the pre-check is an
// optimization for a friendly message, the database constraint is the final
// arbiter.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

// PostgresOption configures a Postgres runner.
type PostgresOption func(*Postgres)

// WithTimeout overrides the per-transaction timeout.
func WithTimeout(d time.Duration) PostgresOption {
	return func(p *Postgres) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewPostgres constructs a transaction runner over db.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	p := &Postgres{db: db, timeout: defaultTxTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

func (p *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return Translate(err)
	}

	if err := tx.Commit(); err != nil {
		return Translate(err)
	}
	return nil
}

// Postgres error classes relevant to the engine's constraints.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// Translate maps driver-level constraint violations onto the domain error
// taxonomy. Domain errors pass through untouched; anything else is a storage
// failure.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return dErrors.Wrap(err, dErrors.CodeConflict, "uniqueness constraint violated")
		case pqForeignKeyViolation:
			return dErrors.Wrap(err, dErrors.CodeNotFound, "referenced entity does not exist")
		}
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "transaction failed")
}
