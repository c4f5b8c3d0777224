package port

import (
	"context"
	"time"
)

// NonceRepository provides single-use consumption of recovery-challenge
// nonces, so a captured challenge/signature pair can't be replayed.
type NonceRepository interface {
	// Consume atomically inserts nonce if absent. Returns true iff the row
	// was newly inserted (i.e. the nonce had not been used before).
	Consume(ctx context.Context, nonce string, ttl time.Duration) (bool, error)
	// PruneExpired deletes rows past their expiry and returns how many were
	// removed.
	PruneExpired(ctx context.Context, now time.Time) (int, error)
}
