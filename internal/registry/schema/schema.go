// Package schema embeds the authoritative DDL so tests and deployments
// create identical constraints. The engine relies on the partial unique
// indexes as the final arbiter for its exclusivity invariants.
package schema

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var DDL string

// Apply runs the schema statements against db. Statements are idempotent
// (IF NOT EXISTS) so Apply is safe to run on every startup.
func Apply(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, DDL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
