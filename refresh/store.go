package refresh

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound reports an unknown, expired, or foreign refresh record.
	ErrNotFound = errors.New("refresh token not found")
	// ErrUnavailable reports a backend failure or timeout. Wrapped errors carry
	// the backend cause.
	ErrUnavailable = errors.New("refresh store unavailable")
)

// DefaultOpTimeout bounds every store operation when no timeout is configured.
const DefaultOpTimeout = 3 * time.Second

// Record is the persisted state of one refresh secret.
type Record struct {
	UserID    int64
	ExpiresAt time.Time
}

// Store persists hashed refresh records. Implementations are safe for
// concurrent use.
type Store interface {
	Create(ctx context.Context, userID int64, raw string, expiresAt time.Time) error
	Lookup(ctx context.Context, raw string) (Record, error)
	Rotate(ctx context.Context, oldRaw, newRaw string, userID int64, newExpiresAt time.Time) error
	Delete(ctx context.Context, raw string) error
	DeleteAllForUser(ctx context.Context, userID int64) (int64, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// Options tune a store backend.
type Options struct {
	// OpTimeout bounds each operation. Zero means DefaultOpTimeout.
	OpTimeout time.Duration
	// Now overrides the expiry clock, for tests.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.OpTimeout <= 0 {
		o.OpTimeout = DefaultOpTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
