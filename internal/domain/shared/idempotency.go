package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed provider event references so that a
// redelivered webhook can be short-circuited before it reaches the database.
// The database lookup remains the source of truth; this is a fast path.
type IdempotencyStore interface {
	// MarkProcessed marks a reference as processed with a TTL.
	// Returns true if the reference was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, reference string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a reference has already been processed
	IsProcessed(ctx context.Context, reference string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is the time-to-live for processed references. After this duration
	// the same reference is checked against the database again.
	TTL time.Duration

	// Enabled determines whether the fast-path check is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
