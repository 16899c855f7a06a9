package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/lockbox/internal/ledger"
)

// SetReporter records the authorization flag for an identity.
// Re-authorizing is a no-op success (idempotent upsert).
func (s *Store) SetReporter(ctx context.Context, id ledger.Identity, authorized bool) error {
	v := 0
	if authorized {
		v = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reporters (identity, authorized)
		VALUES (?, ?)
		ON CONFLICT(identity) DO UPDATE SET authorized = excluded.authorized
	`, string(id), v)
	if err != nil {
		return fmt.Errorf("set reporter %q: %w", id, err)
	}
	return nil
}

// ReporterAuthorized looks up the authorization flag for an identity.
// found is false when no row exists; the caller applies the
// default-to-false semantics, not the storage layer.
func (s *Store) ReporterAuthorized(ctx context.Context, id ledger.Identity) (authorized bool, found bool, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT authorized FROM reporters WHERE identity = ?`, string(id))

	var v int
	scanErr := row.Scan(&v)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return false, false, nil
	}
	if scanErr != nil {
		return false, false, fmt.Errorf("reporter lookup %q: %w", id, scanErr)
	}
	return v != 0, true, nil
}
