package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/lockbox/internal/ledger"
)

// UpsertFeed overwrites the entry for a feed key. Value and update tick
// change together; no history is retained and no staleness check is
// applied: a later report always wins.
func (s *Store) UpsertFeed(ctx context.Context, entry ledger.FeedEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feeds (feed_key, value, updated_tick)
		VALUES (?, ?, ?)
		ON CONFLICT(feed_key) DO UPDATE SET value = excluded.value, updated_tick = excluded.updated_tick
	`, entry.Key, int64(entry.Value), int64(entry.UpdatedTick))
	if err != nil {
		return fmt.Errorf("upsert feed %q: %w", entry.Key, err)
	}
	return nil
}

// GetFeed returns the latest entry for a feed key.
// Returns ErrNotFound if nothing has been reported for the key.
func (s *Store) GetFeed(ctx context.Context, key string) (ledger.FeedEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT feed_key, value, updated_tick FROM feeds WHERE feed_key = ?
	`, key)

	var (
		entry         ledger.FeedEntry
		value, update int64
	)
	err := row.Scan(&entry.Key, &value, &update)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.FeedEntry{}, ErrNotFound
	}
	if err != nil {
		return ledger.FeedEntry{}, fmt.Errorf("get feed %q: %w", key, err)
	}

	entry.Value = uint64(value)
	entry.UpdatedTick = uint64(update)
	return entry, nil
}
