package postgres

import (
	"context"
	"fmt"
	"time"
)

// nextSequenceSQL advances a per-scope, per-day counter atomically. The upsert
// makes the first caller of a new day create the row and later callers bump
// it, so two concurrent creations can never observe the same value.
const nextSequenceSQL = `INSERT INTO number_sequences (scope, day, value)
	VALUES ($1, $2, 1)
	ON CONFLICT (scope, day) DO UPDATE SET value = number_sequences.value + 1
	RETURNING value`

// nextSequence returns the next counter value for the given scope and day,
// running inside the caller's transaction.
func nextSequence(ctx context.Context, db DBTX, scope string, day time.Time) (int, error) {
	var value int
	err := db.QueryRow(ctx, nextSequenceSQL, scope, day.Format("2006-01-02")).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("advancing %s sequence: %w", scope, err)
	}
	return value, nil
}
